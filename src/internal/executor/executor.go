// Package executor runs external commands on behalf of the process terminator.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/jongio/freeport/src/internal/logging"
)

// RunCommandWithOutput runs a command and returns its stdout.
// On failure the returned error wraps the underlying *exec.ExitError, so
// callers can inspect the exit code, and stdout is still returned.
func RunCommandWithOutput(ctx context.Context, name string, args []string, dir string) ([]byte, error) {
	// #nosec G204 -- callers pass fixed tool names; arguments are numeric ports or PIDs
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logging.Debug("running command", "name", name, "args", strings.Join(args, " "), "dir", dir)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return out, fmt.Errorf("command %s canceled: %w", name, ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("command %s failed: %w: %s", name, err, msg)
		}
		return out, fmt.Errorf("command %s failed: %w", name, err)
	}
	return out, nil
}
