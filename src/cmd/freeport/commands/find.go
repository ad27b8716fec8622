package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jongio/freeport/src/internal/output"
	"github.com/jongio/freeport/src/internal/portmanager"

	"github.com/spf13/cobra"
)

// FindResult is the outcome of a port selection.
type FindResult struct {
	Port     int    `json:"port" yaml:"port"`
	Found    bool   `json:"found" yaml:"found"`
	Strategy string `json:"strategy" yaml:"strategy"`
}

// NewFindCommand creates the find command.
func NewFindCommand() *cobra.Command {
	var (
		portList  string
		portRange string
		hostname  string
		transport string
	)

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find a free port",
		Long: `Find selects a free port. With --ports the candidates are tried in the
given order and entries outside 0-65535 are skipped. With --range the lowest
free port in the inclusive range wins. With neither, random ports are tried
until one is free. The command exits non-zero when no candidate is free.`,
		Example: `  freeport find
  freeport find --ports 3000,4000,8080
  freeport find --range 3000-3010 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := buildSelection(cmd, portList, portRange)
			if err != nil {
				return err
			}
			sel.Hostname, sel.Transport = resolveTarget(cmd, hostname, transport)
			return runFind(cmd, sel)
		},
	}

	cmd.Flags().StringVar(&portList, "ports", "", "Comma-separated candidate ports, tried in order")
	cmd.Flags().StringVar(&portRange, "range", "", "Inclusive port range START-END, scanned ascending")
	cmd.MarkFlagsMutuallyExclusive("ports", "range")
	addTargetFlags(cmd, &hostname, &transport)
	return cmd
}

func buildSelection(cmd *cobra.Command, portList, portRange string) (portmanager.Selection, error) {
	switch {
	case cmd.Flags().Changed("range"):
		r, err := parseRange(portRange)
		if err != nil {
			return portmanager.Selection{}, err
		}
		return portmanager.InRange(r.Start, r.End), nil
	case cmd.Flags().Changed("ports"):
		ports, err := parsePortList(portList)
		if err != nil {
			return portmanager.Selection{}, err
		}
		return portmanager.Candidates(ports...), nil
	default:
		return portmanager.AnyPort(), nil
	}
}

func runFind(cmd *cobra.Command, sel portmanager.Selection) error {
	port, found, err := newManager().GetAvailablePortContext(commandContext(cmd), sel)
	if err != nil {
		return err
	}

	result := FindResult{Port: port, Found: found, Strategy: sel.Strategy().String()}
	if err := output.Print(result, func() {
		if found {
			output.Success("Port %s is free", output.Highlight("%d", port))
		} else {
			output.Error("No free port found")
		}
	}); err != nil {
		return err
	}

	if !found {
		return newExitError("no free port found")
	}
	return nil
}

// parsePortList parses "3000,4000, 8080". Empty entries are ignored and
// numbers outside the port space are kept so the selector can skip them.
func parsePortList(raw string) ([]int, error) {
	ports := []int{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		port, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q in --ports: must be a number", part)
		}
		ports = append(ports, port)
	}
	return ports, nil
}

// parseRange parses "START-END". The bounds themselves are validated by the
// selector so that invalid ranges surface as argument errors.
func parseRange(raw string) (portmanager.Range, error) {
	raw = strings.TrimSpace(raw)

	// Skip a leading sign so "-1-3000" splits on the second dash.
	sep := -1
	if len(raw) > 1 {
		if i := strings.Index(raw[1:], "-"); i >= 0 {
			sep = i + 1
		}
	}
	if sep < 0 {
		return portmanager.Range{}, fmt.Errorf("invalid --range %q: expected START-END", raw)
	}

	start, err := strconv.Atoi(strings.TrimSpace(raw[:sep]))
	if err != nil {
		return portmanager.Range{}, fmt.Errorf("invalid --range start %q: must be a number", raw[:sep])
	}
	end, err := strconv.Atoi(strings.TrimSpace(raw[sep+1:]))
	if err != nil {
		return portmanager.Range{}, fmt.Errorf("invalid --range end %q: must be a number", raw[sep+1:])
	}
	return portmanager.Range{Start: start, End: end}, nil
}
