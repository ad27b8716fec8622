// Package output renders command results for humans or machines.
//
// In default mode commands print styled text through the helpers below. In
// json or yaml mode the styled helpers still work, but commands are expected
// to route results through Print so stdout carries a single document.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

// Format selects how results are written.
type Format string

const (
	FormatDefault Format = "default"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
)

// ANSI styles.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

// Status glyphs.
const (
	SymbolCheck   = "✓"
	SymbolCross   = "✗"
	SymbolWarning = "⚠"
	SymbolInfo    = "ℹ"
	SymbolBullet  = "•"
)

var (
	mu            sync.RWMutex
	currentFormat = FormatDefault
)

// SetFormat sets the output format. An empty string selects the default.
func SetFormat(format string) error {
	f := Format(strings.ToLower(strings.TrimSpace(format)))
	if f == "" {
		f = FormatDefault
	}

	switch f {
	case FormatDefault, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("invalid output format %q (valid: default, json, yaml)", format)
	}

	mu.Lock()
	defer mu.Unlock()
	currentFormat = f
	return nil
}

// GetFormat returns the current output format.
func GetFormat() Format {
	mu.RLock()
	defer mu.RUnlock()
	return currentFormat
}

// IsJSON reports whether output is JSON.
func IsJSON() bool {
	return GetFormat() == FormatJSON
}

// IsStructured reports whether output is a machine-readable document.
func IsStructured() bool {
	return GetFormat() != FormatDefault
}

// Print writes data as a document in structured modes, or calls formatter
// in default mode.
func Print(data any, formatter func()) error {
	switch GetFormat() {
	case FormatJSON:
		return PrintJSON(data)
	case FormatYAML:
		return PrintYAML(data)
	default:
		formatter()
		return nil
	}
}

// PrintJSON writes data as indented JSON.
func PrintJSON(data any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

// PrintYAML writes data as YAML.
func PrintYAML(data any) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode YAML output: %w", err)
	}
	return enc.Close()
}

// PrintDefault calls formatter only in default mode.
func PrintDefault(formatter func()) {
	if GetFormat() == FormatDefault {
		formatter()
	}
}

func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

func style(code, text string) string {
	if !colorEnabled() {
		return text
	}
	return code + text + reset
}

func sprintf(format string, args []any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// Header prints a bold title followed by a blank line.
func Header(format string, args ...any) {
	fmt.Fprintf(os.Stdout, "%s\n\n", style(bold, sprintf(format, args)))
}

// Success prints a success line.
func Success(format string, args ...any) {
	fmt.Fprintf(os.Stdout, "%s %s\n", style(green, SymbolCheck), sprintf(format, args))
}

// Error prints an error line.
func Error(format string, args ...any) {
	fmt.Fprintf(os.Stdout, "%s %s\n", style(red, SymbolCross), sprintf(format, args))
}

// Warning prints a warning line.
func Warning(format string, args ...any) {
	fmt.Fprintf(os.Stdout, "%s %s\n", style(yellow, SymbolWarning), sprintf(format, args))
}

// Info prints an informational line.
func Info(format string, args ...any) {
	fmt.Fprintf(os.Stdout, "%s %s\n", style(cyan, SymbolInfo), sprintf(format, args))
}

// Item prints an indented bullet.
func Item(format string, args ...any) {
	fmt.Fprintf(os.Stdout, "  %s %s\n", SymbolBullet, sprintf(format, args))
}

// ItemSuccess prints an indented success bullet.
func ItemSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stdout, "  %s %s\n", style(green, SymbolCheck), sprintf(format, args))
}

// ItemError prints an indented error bullet.
func ItemError(format string, args ...any) {
	fmt.Fprintf(os.Stdout, "  %s %s\n", style(red, SymbolCross), sprintf(format, args))
}

// Label prints an aligned "label: value" pair.
func Label(label, value string) {
	fmt.Fprintf(os.Stdout, "  %-10s %s\n", label+":", value)
}

// Newline prints an empty line.
func Newline() {
	fmt.Fprintln(os.Stdout)
}

// Highlight returns text styled for emphasis.
func Highlight(format string, args ...any) string {
	return style(cyan+bold, sprintf(format, args))
}

// Muted returns text styled as secondary.
func Muted(format string, args ...any) string {
	return style(dim, sprintf(format, args))
}
