// Package portkill frees a port by forcibly terminating whatever process
// holds it, then reports whether the port became available.
//
// On Windows the owning process is found with netstat and stopped with
// taskkill. Everywhere else lsof lists the owners and kill -9 stops them.
// Both require the tools to be installed and the caller to have permission
// to signal the target process.
package portkill

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jongio/freeport/src/internal/executor"
	"github.com/jongio/freeport/src/internal/logging"
	"github.com/jongio/freeport/src/internal/portmanager"
)

// DefaultSettleDelay is how long the killer waits for the OS to release a
// port before probing it again.
const DefaultSettleDelay = 10 * time.Millisecond

// errStillInUse drives the wait loop; it never escapes the package.
var errStillInUse = errors.New("port still in use")

// Runner executes an external tool and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs tools through the executor package.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return executor.RunCommandWithOutput(ctx, name, args, "")
}

// Observer receives the outcome of every kill attempt.
type Observer interface {
	ObserveKill(port int, pids []int, freed bool, err error)
}

// Killer terminates processes holding a port.
type Killer struct {
	runner      Runner
	goos        string
	settleDelay time.Duration
	waitTimeout time.Duration
	probe       func(ctx context.Context, port int) (bool, error)
	observer    Observer
}

// Option configures a Killer.
type Option func(*Killer)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(k *Killer) { k.runner = r }
}

// WithGOOS overrides the platform used to pick the kill procedure.
func WithGOOS(goos string) Option {
	return func(k *Killer) { k.goos = goos }
}

// WithSettleDelay sets the pause between the kill step and the first re-probe.
func WithSettleDelay(d time.Duration) Option {
	return func(k *Killer) { k.settleDelay = d }
}

// WithWaitTimeout keeps re-probing with exponential backoff until the port
// is free or d has elapsed. Zero means a single re-probe.
func WithWaitTimeout(d time.Duration) Option {
	return func(k *Killer) { k.waitTimeout = d }
}

// WithObserver registers an observer for kill outcomes.
func WithObserver(o Observer) Option {
	return func(k *Killer) { k.observer = o }
}

// WithProber replaces the port check used after the kill step.
func WithProber(probe func(ctx context.Context, port int) (bool, error)) Option {
	return func(k *Killer) { k.probe = probe }
}

// New returns a Killer for the current platform.
func New(opts ...Option) *Killer {
	k := &Killer{
		runner:      execRunner{},
		goos:        runtime.GOOS,
		settleDelay: DefaultSettleDelay,
		probe:       probeDefault,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

var defaultKiller = New()

// probeDefault checks the port on all interfaces over tcp.
func probeDefault(ctx context.Context, port int) (bool, error) {
	return portmanager.IsPortAvailableContext(ctx, portmanager.ProbeRequest{Port: port})
}

// Result describes one kill attempt.
type Result struct {
	Port int
	// PIDs lists the processes that were signalled. Processes that exited
	// between the lookup and the kill are not included.
	PIDs  []int
	Freed bool
}

// KillProcessOnPort terminates whatever holds port and reports whether the
// port is available afterwards. A port nobody holds is not an error: nothing
// is killed and the re-probe decides the result.
func (k *Killer) KillProcessOnPort(ctx context.Context, port int) (bool, error) {
	res, err := k.Kill(ctx, port)
	return res.Freed, err
}

// Kill is KillProcessOnPort, also returning the processes it stopped.
func (k *Killer) Kill(ctx context.Context, port int) (Result, error) {
	res := Result{Port: port}

	pids, err := k.FindPIDs(ctx, port)
	if err == nil && len(pids) > 0 {
		res.PIDs, err = k.kill(ctx, pids)
	}
	if err == nil {
		res.Freed, err = k.awaitFree(ctx, port)
	}

	if k.observer != nil {
		k.observer.ObserveKill(port, res.PIDs, res.Freed, err)
	}
	logging.Debug("kill on port finished", "port", port, "pids", res.PIDs, "freed", res.Freed, "error", err)
	return res, err
}

// FindPIDs lists the processes holding port. On Windows at most one PID is
// returned, taken from the first matching TCP row.
func (k *Killer) FindPIDs(ctx context.Context, port int) ([]int, error) {
	if k.goos == "windows" {
		return k.findWindows(ctx, port)
	}
	return k.findUnix(ctx, port)
}

func (k *Killer) findUnix(ctx context.Context, port int) ([]int, error) {
	out, err := k.runner.Run(ctx, "lsof", "-nti:"+strconv.Itoa(port))
	if err != nil {
		// lsof exits non-zero with no output when nothing matches.
		if ctx.Err() == nil && isExitStatus(err) && len(bytes.TrimSpace(out)) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list processes on port %d: %w", port, err)
	}
	return ParseLsofPIDs(out)
}

func (k *Killer) findWindows(ctx context.Context, port int) ([]int, error) {
	out, err := k.runner.Run(ctx, "netstat", "-a", "-n", "-o")
	if err != nil {
		return nil, fmt.Errorf("failed to list connections for port %d: %w", port, err)
	}

	pid, ok := FindNetstatPID(ParseNetstat(out), port)
	if !ok {
		return nil, nil
	}
	return []int{pid}, nil
}

// kill signals each PID in turn and returns the ones it stopped. A process
// that is already gone is skipped; any other failure stops the loop.
func (k *Killer) kill(ctx context.Context, pids []int) ([]int, error) {
	killed := make([]int, 0, len(pids))
	for _, pid := range pids {
		var err error
		if k.goos == "windows" {
			_, err = k.runner.Run(ctx, "taskkill", "/PID", strconv.Itoa(pid), "/F")
		} else {
			_, err = k.runner.Run(ctx, "kill", "-9", strconv.Itoa(pid))
		}

		switch {
		case err == nil:
			killed = append(killed, pid)
		case ctx.Err() == nil && processGone(err, k.goos, pid):
			logging.Debug("process exited before kill", "pid", pid)
		default:
			return killed, fmt.Errorf("failed to kill process %d: %w", pid, err)
		}
	}
	return killed, nil
}

// processGone reports whether a kill failed only because pid had already exited.
// Both tools report this on stderr, which the executor folds into the error.
func processGone(err error, goos string, pid int) bool {
	if !isExitStatus(err) {
		return false
	}
	msg := strings.ToLower(err.Error())
	if goos == "windows" {
		return strings.Contains(msg, `process "`+strconv.Itoa(pid)+`" not found`)
	}
	return strings.Contains(msg, "no such process")
}

// awaitFree waits the settle delay and probes the port. With a wait timeout
// it keeps probing under exponential backoff until the port frees up, the
// timeout passes, or a probe fails.
func (k *Killer) awaitFree(ctx context.Context, port int) (bool, error) {
	if err := sleep(ctx, k.settleDelay); err != nil {
		return false, err
	}
	if k.waitTimeout <= 0 {
		return k.probe(ctx, port)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = max(k.settleDelay, 10*time.Millisecond)
	b.MaxInterval = time.Second
	b.MaxElapsedTime = k.waitTimeout

	err := backoff.Retry(func() error {
		free, err := k.probe(ctx, port)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !free {
			return errStillInUse
		}
		return nil
	}, backoff.WithContext(b, ctx))

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStillInUse):
		return false, nil
	default:
		return false, err
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// isExitStatus reports whether err carries a process exit code.
func isExitStatus(err error) bool {
	var exitErr interface{ ExitCode() int }
	return errors.As(err, &exitErr) && exitErr.ExitCode() > 0
}

// KillProcessOnPort frees port using the default killer.
func KillProcessOnPort(port int) (bool, error) {
	return defaultKiller.KillProcessOnPort(context.Background(), port)
}

// KillProcessOnPortContext frees port using the default killer.
func KillProcessOnPortContext(ctx context.Context, port int) (bool, error) {
	return defaultKiller.KillProcessOnPort(ctx, port)
}

// FindPIDs lists the processes holding port using the default killer.
func FindPIDs(ctx context.Context, port int) ([]int, error) {
	return defaultKiller.FindPIDs(ctx, port)
}
