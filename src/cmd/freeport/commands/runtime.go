// Package commands implements the freeport CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jongio/freeport/src/internal/config"
	"github.com/jongio/freeport/src/internal/metrics"
	"github.com/jongio/freeport/src/internal/portkill"
	"github.com/jongio/freeport/src/internal/portmanager"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfg      = defaultConfig()
	recorder *metrics.Recorder

	// newKiller is swapped out by tests to avoid signalling real processes.
	newKiller = func(wait time.Duration) *portkill.Killer {
		return portkill.New(killerOptions(wait)...)
	}
)

func defaultConfig() *config.Config {
	return &config.Config{
		Transport: string(portmanager.DefaultTransport),
		Kill:      config.KillConfig{SettleDelay: portkill.DefaultSettleDelay},
		Log:       config.LogConfig{Format: "text"},
	}
}

// Configure installs the loaded configuration and metrics recorder used by
// every command. A nil recorder disables metrics.
func Configure(c *config.Config, r *metrics.Recorder) {
	if c == nil {
		c = defaultConfig()
	}
	cfg = c
	recorder = r
}

func newManager() *portmanager.Manager {
	opts := []portmanager.Option{portmanager.WithProbeRate(cfg.ProbeRate)}
	if recorder != nil {
		opts = append(opts, portmanager.WithObserver(recorder))
	}
	return portmanager.New(opts...)
}

func killerOptions(wait time.Duration) []portkill.Option {
	opts := []portkill.Option{
		portkill.WithSettleDelay(cfg.Kill.SettleDelay),
		portkill.WithWaitTimeout(wait),
	}
	if recorder != nil {
		opts = append(opts, portkill.WithObserver(recorder))
	}
	return opts
}

// addTargetFlags registers the --hostname and --transport flags shared by
// the probing commands.
func addTargetFlags(cmd *cobra.Command, hostname, transport *string) {
	cmd.Flags().StringVar(hostname, "hostname", "", "Address to bind probes to (default: all interfaces)")
	cmd.Flags().StringVar(transport, "transport", "", "Transport to probe (tcp)")
}

// resolveTarget fills hostname and transport from config unless the flags
// were set explicitly.
func resolveTarget(cmd *cobra.Command, hostname, transport string) (string, portmanager.Transport) {
	if !cmd.Flags().Changed("hostname") {
		hostname = cfg.Hostname
	}
	if !cmd.Flags().Changed("transport") {
		transport = cfg.Transport
	}
	return hostname, portmanager.Transport(transport)
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// exitError marks a command outcome that should exit non-zero after its
// result has already been printed.
type exitError struct {
	msg string
}

func (e *exitError) Error() string { return e.msg }

func newExitError(format string, args ...any) error {
	return &exitError{msg: fmt.Sprintf(format, args...)}
}

// IsReported reports whether err belongs to a result that was already
// printed, so main only needs to set the exit code.
func IsReported(err error) bool {
	var e *exitError
	return errors.As(err, &e)
}
