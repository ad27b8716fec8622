package main

import (
	"fmt"
	"os"

	"github.com/jongio/freeport/src/cmd/freeport/commands"
	"github.com/jongio/freeport/src/internal/config"
	"github.com/jongio/freeport/src/internal/logging"
	"github.com/jongio/freeport/src/internal/metrics"
	"github.com/jongio/freeport/src/internal/output"

	"github.com/spf13/cobra"
)

// cli holds global flag values and state resolved before a command runs.
type cli struct {
	outputFormat   string
	debugMode      bool
	structuredLogs bool
	configFile     string
	metricsFile    string

	recorder *metrics.Recorder
}

func main() {
	app := &cli{}
	rootCmd := app.rootCommand()

	err := rootCmd.Execute()
	if werr := app.writeMetrics(); werr != nil {
		logging.Warn("failed to write metrics file", "path", app.metricsFile, "error", werr)
	}

	if err != nil {
		if !commands.IsReported(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func (c *cli) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "freeport",
		Short: "Freeport - check, find, and free TCP ports",
		Long: `Freeport checks whether ports can be bound, finds a free port from a list,
a range, or at random, and stops the process holding a port.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	rootCmd.PersistentFlags().StringVarP(&c.outputFormat, "output", "o", "default", "Output format (default, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&c.debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&c.structuredLogs, "structured-logs", false, "Enable structured JSON logging to stderr")
	rootCmd.PersistentFlags().StringVar(&c.configFile, "config", "", "Config file (default: .freeport.yaml in the working or home directory)")
	rootCmd.PersistentFlags().StringVar(&c.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the command runs")

	rootCmd.AddCommand(
		commands.NewProbeCommand(),
		commands.NewFindCommand(),
		commands.NewKillCommand(),
		commands.NewVersionCommand(),
	)
	return rootCmd
}

// setup loads configuration and configures logging, output, and metrics.
func (c *cli) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return err
	}

	debug := c.debugMode || cfg.Log.Level == "debug"
	structured := c.structuredLogs || cfg.Log.Format == "json"
	logging.SetupLogger(debug, structured)
	if cfg.Log.Level != "" && !c.debugMode {
		if err := logging.SetLevel(cfg.Log.Level); err != nil {
			return err
		}
	}

	if !cmd.Flags().Changed("metrics-file") {
		c.metricsFile = cfg.MetricsFile
	}
	c.recorder = metrics.NewRecorder()
	commands.Configure(cfg, c.recorder)

	logging.Debug("Starting freeport",
		"version", commands.Version,
		"command", cmd.Name(),
		"args", args,
		"config", c.configFile,
	)

	return output.SetFormat(c.outputFormat)
}

// writeMetrics exports the metrics collected by the command, if requested.
func (c *cli) writeMetrics() error {
	if c.metricsFile == "" || c.recorder == nil {
		return nil
	}
	return c.recorder.WriteTextfile(c.metricsFile)
}
