// Package logging configures the process-wide logger used by freeport.
//
// Messages are written to stderr so they never mix with command output on
// stdout. By default only warnings and errors are shown in a human-readable
// console format; debug mode lowers the level and structured mode switches
// to one JSON object per line.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stderr, false, false)
)

// SetupLogger configures the global logger.
func SetupLogger(debugMode, structuredLogs bool) {
	SetupLoggerWithWriter(os.Stderr, debugMode, structuredLogs)
}

// SetupLoggerWithWriter configures the global logger to write to w.
func SetupLoggerWithWriter(w io.Writer, debugMode, structuredLogs bool) {
	l := newLogger(w, debugMode, structuredLogs)

	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// SetLevel overrides the level chosen by SetupLogger ("debug", "info", "warn", "error").
func SetLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	logger = logger.Level(lvl)
	return nil
}

func newLogger(w io.Writer, debugMode, structuredLogs bool) zerolog.Logger {
	out := w
	if !structuredLogs {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: !isTerminal(w)}
	}

	level := zerolog.WarnLevel
	if debugMode {
		level = zerolog.DebugLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs msg with alternating key/value pairs at debug level.
func Debug(msg string, args ...any) {
	l := current()
	write(l.Debug(), msg, args)
}

// Info logs msg with alternating key/value pairs at info level.
func Info(msg string, args ...any) {
	l := current()
	write(l.Info(), msg, args)
}

// Warn logs msg with alternating key/value pairs at warn level.
func Warn(msg string, args ...any) {
	l := current()
	write(l.Warn(), msg, args)
}

// Error logs msg with alternating key/value pairs at error level.
func Error(msg string, args ...any) {
	l := current()
	write(l.Error(), msg, args)
}

func write(e *zerolog.Event, msg string, args []any) {
	// Disabled levels return a nil event.
	if e == nil {
		return
	}
	e.Fields(fields(args)).Msg(msg)
}

// fields turns key/value pairs into a map, dropping nil values and
// stringifying errors. A non-string key or a trailing key without a value is
// kept as "!BADKEY" and the walk resumes at the next argument.
func fields(args []any) map[string]any {
	out := make(map[string]any, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok || i+1 >= len(args) {
			out["!BADKEY"] = args[i]
			i--
			continue
		}

		switch v := args[i+1].(type) {
		case nil:
			continue
		case error:
			out[key] = v.Error()
		default:
			out[key] = v
		}
	}
	return out
}
