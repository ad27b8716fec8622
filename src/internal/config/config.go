// Package config loads freeport settings from defaults, an optional YAML
// file, and FREEPORT_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jongio/freeport/src/internal/portmanager"
	"github.com/spf13/viper"
)

// FileName is the config file looked up when no explicit path is given.
const FileName = ".freeport"

// EnvPrefix prefixes every environment override, e.g. FREEPORT_KILL_WAIT_TIMEOUT.
const EnvPrefix = "FREEPORT"

// Config holds all freeport configuration
type Config struct {
	Hostname    string     `mapstructure:"hostname"`   // Address probes bind to; empty means all interfaces
	Transport   string     `mapstructure:"transport"`  // Only "tcp" is supported
	ProbeRate   float64    `mapstructure:"probe_rate"` // Max selection probes per second; 0 disables pacing
	Kill        KillConfig `mapstructure:"kill"`
	Log         LogConfig  `mapstructure:"log"`
	MetricsFile string     `mapstructure:"metrics_file"` // Textfile written after each command, if set
}

// KillConfig holds kill-on-port settings
type KillConfig struct {
	SettleDelay time.Duration `mapstructure:"settle_delay"` // Pause before re-probing a killed port
	WaitTimeout time.Duration `mapstructure:"wait_timeout"` // Keep re-probing up to this long; 0 probes once
}

// LogConfig holds logging configuration
type LogConfig struct {
	Format string `mapstructure:"format"` // "text" or "json"
	Level  string `mapstructure:"level"`  // "debug", "info", "warn", "error"; empty follows --debug
}

// Load reads configuration. When path is empty, .freeport.yaml is looked up
// in the working directory and then the home directory, and a missing file
// is not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("hostname", "")
	v.SetDefault("transport", string(portmanager.DefaultTransport))
	v.SetDefault("probe_rate", 0.0)
	v.SetDefault("kill.settle_delay", "10ms")
	v.SetDefault("kill.wait_timeout", "0s")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "")
	v.SetDefault("metrics_file", "")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no command could honor.
func (c *Config) Validate() error {
	if c.Transport != string(portmanager.TransportTCP) {
		return fmt.Errorf("invalid transport %q: %w", c.Transport, portmanager.ErrUnsupportedTransport)
	}
	if c.ProbeRate < 0 {
		return fmt.Errorf("probe_rate must not be negative, got %v", c.ProbeRate)
	}
	if c.Kill.SettleDelay < 0 {
		return fmt.Errorf("kill.settle_delay must not be negative, got %s", c.Kill.SettleDelay)
	}
	if c.Kill.WaitTimeout < 0 {
		return fmt.Errorf("kill.wait_timeout must not be negative, got %s", c.Kill.WaitTimeout)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}
	return nil
}
