package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jongio/freeport/src/internal/output"

	"github.com/spf13/cobra"
)

// KillResult is the outcome of freeing a port.
type KillResult struct {
	Port  int   `json:"port" yaml:"port"`
	PIDs  []int `json:"pids" yaml:"pids"`
	Freed bool  `json:"freed" yaml:"freed"`
}

// NewKillCommand creates the kill command.
func NewKillCommand() *cobra.Command {
	var (
		yes  bool
		wait time.Duration
	)

	cmd := &cobra.Command{
		Use:   "kill <port>",
		Short: "Stop whatever process holds a port",
		Long: `Kill forcibly terminates the process listening on a port and reports
whether the port is free afterwards. On Windows netstat and taskkill are used;
elsewhere lsof and kill -9. You are asked to confirm unless --yes is given.`,
		Example: `  freeport kill 3000
  freeport kill 3000 --yes --wait 2s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid port %q: must be a number", args[0])
			}
			if !cmd.Flags().Changed("wait") {
				wait = cfg.Kill.WaitTimeout
			}
			if wait < 0 {
				return fmt.Errorf("--wait must not be negative, got %s", wait)
			}
			return runKill(cmd, port, yes, wait)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep checking up to this long for the port to free up")
	return cmd
}

func runKill(cmd *cobra.Command, port int, yes bool, wait time.Duration) error {
	ctx := commandContext(cmd)
	killer := newKiller(wait)

	pids, err := killer.FindPIDs(ctx, port)
	if err != nil {
		return err
	}

	if !yes {
		var prompt string
		if len(pids) == 0 {
			prompt = fmt.Sprintf("No process was found on port %d. Attempt to stop it anyway? (y/N): ", port)
		} else {
			prompt = fmt.Sprintf("Port %d is in use by process %s. Stop existing process? (y/N): ", port, joinPIDs(pids))
		}

		ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), prompt)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("user declined to kill process on port %d", port)
		}
	}

	res, err := killer.Kill(ctx, port)
	if err != nil {
		return err
	}

	// PIDs come from the kill itself, not the prompt's lookup.
	freed := res.Freed
	result := KillResult{Port: port, PIDs: res.PIDs, Freed: freed}
	if result.PIDs == nil {
		result.PIDs = []int{}
	}
	if err := output.Print(result, func() {
		if freed {
			output.Success("Port %s is free", output.Highlight("%d", port))
		} else {
			output.Warning("Port %d is still in use", port)
		}
		if len(result.PIDs) > 0 {
			output.Label("Stopped", output.Muted("%s", joinPIDs(result.PIDs)))
		}
	}); err != nil {
		return err
	}

	if !freed {
		return newExitError("port %d is still in use", port)
	}
	return nil
}

// confirm asks a yes/no question and accepts "y" or "yes".
func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)

	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && response != "") {
		return false, fmt.Errorf("failed to read user input: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

func joinPIDs(pids []int) string {
	parts := make([]string, len(pids))
	for i, pid := range pids {
		parts[i] = strconv.Itoa(pid)
	}
	return strings.Join(parts, ", ")
}
