package commands

import (
	"fmt"
	"strconv"

	"github.com/jongio/freeport/src/internal/output"
	"github.com/jongio/freeport/src/internal/portmanager"

	"github.com/spf13/cobra"
)

// ProbeReport is the result of probing one port.
type ProbeReport struct {
	Port      int    `json:"port" yaml:"port"`
	Hostname  string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Transport string `json:"transport" yaml:"transport"`
	Available bool   `json:"available" yaml:"available"`
}

// NewProbeCommand creates the probe command.
func NewProbeCommand() *cobra.Command {
	var hostname, transport string

	cmd := &cobra.Command{
		Use:   "probe <port>...",
		Short: "Check whether ports can be bound",
		Long: `Probe tries to bind each port and releases it immediately. A port is
reported in use only when the bind fails because the address is taken; any
other failure (permissions, unknown host) is returned as an error.`,
		Example: `  freeport probe 3000
  freeport probe 3000 8080 --hostname 127.0.0.1 -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := parsePortArgs(args)
			if err != nil {
				return err
			}
			host, tr := resolveTarget(cmd, hostname, transport)
			return runProbe(cmd, ports, host, tr)
		},
	}

	addTargetFlags(cmd, &hostname, &transport)
	return cmd
}

func runProbe(cmd *cobra.Command, ports []int, hostname string, transport portmanager.Transport) error {
	reqs := make([]portmanager.ProbeRequest, len(ports))
	for i, port := range ports {
		reqs[i] = portmanager.ProbeRequest{Port: port, Hostname: hostname, Transport: transport}
	}

	results, err := newManager().ProbeAll(commandContext(cmd), reqs)
	if err != nil {
		return err
	}

	reports := make([]ProbeReport, len(results))
	for i, r := range results {
		reports[i] = ProbeReport{
			Port:      r.Port,
			Hostname:  r.Hostname,
			Transport: string(r.Transport),
			Available: r.Available,
		}
	}

	return output.Print(reports, func() {
		for _, r := range reports {
			if r.Available {
				output.ItemSuccess("%d is free", r.Port)
			} else {
				output.ItemError("%d is in use", r.Port)
			}
		}
	})
}

// parsePortArgs converts positional arguments to port numbers.
func parsePortArgs(args []string) ([]int, error) {
	ports := make([]int, 0, len(args))
	for _, arg := range args {
		port, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: must be a number", arg)
		}
		ports = append(ports, port)
	}
	return ports, nil
}
