// Package config provides configuration management for srcwatch.
//
// Configuration is loaded from three sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (SRCWATCH_ prefix)
//  3. Config file (.srcwatch.yaml)
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Supported watch backends.
const (
	BackendAuto     = "auto"
	BackendInotify  = "inotify"
	BackendFSNotify = "fsnotify"
)

// Defaults for the watch loop.
const (
	DefaultWatchDir  = "src"
	DefaultFormatter = "black ."
	DefaultProgram   = "python3 src/main.py"
	DefaultInput     = "local/in.toml"
	DefaultOutput    = "local/out.toml"
)

// Config represents the global configuration for srcwatch.
type Config struct {
	// LogLevel controls the verbosity of log output.
	// Valid values: debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" json:"logLevel" yaml:"log-level"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" json:"logFormat" yaml:"log-format"`

	// NoColor disables colored banners.
	NoColor bool `mapstructure:"no-color" json:"noColor" yaml:"no-color"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet" yaml:"quiet"`

	// WatchDir is the directory watched for write-close events.
	WatchDir string `mapstructure:"watch-dir" json:"watchDir" yaml:"watch-dir"`

	// Backend selects the watch primitive: auto, inotify, fsnotify.
	Backend string `mapstructure:"backend" json:"backend" yaml:"backend"`

	// Ignore lists base-name globs that never trigger a run.
	Ignore []string `mapstructure:"ignore" json:"ignore" yaml:"ignore"`

	// Coalesce is the quiet period used to fold bursts of events.
	// Zero runs once per event.
	Coalesce time.Duration `mapstructure:"coalesce" json:"coalesce" yaml:"coalesce"`

	// Formatter is the command line that reformats the project.
	Formatter string `mapstructure:"formatter" json:"formatter" yaml:"formatter"`

	// Program is the downstream program's command line, without -i/-o.
	Program string `mapstructure:"program" json:"program" yaml:"program"`

	// Input is passed to the program as -i.
	Input string `mapstructure:"input" json:"input" yaml:"input"`

	// Output is passed to the program as -o.
	Output string `mapstructure:"output" json:"output" yaml:"output"`

	// ReportChanges prints a summary of output file changes after each run.
	ReportChanges bool `mapstructure:"report-changes" json:"reportChanges" yaml:"report-changes"`

	// ShowDiff additionally prints a unified diff of the output file.
	ShowDiff bool `mapstructure:"show-diff" json:"showDiff" yaml:"show-diff"`

	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `mapstructure:"metrics-addr" json:"metricsAddr" yaml:"metrics-addr"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load() — not read from config itself.
	ConfigFile string `mapstructure:"-" json:"-" yaml:"-"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel:  LogLevelInfo,
		LogFormat: LogFormatText,
		WatchDir:  DefaultWatchDir,
		Backend:   BackendAuto,
		Formatter: DefaultFormatter,
		Program:   DefaultProgram,
		Input:     DefaultInput,
		Output:    DefaultOutput,
	}
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// valid
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
		// valid
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	switch c.Backend {
	case BackendAuto, BackendInotify, BackendFSNotify:
		// valid
	default:
		return fmt.Errorf("invalid backend %q: must be one of auto, inotify, fsnotify", c.Backend)
	}

	var errs []error

	for key, val := range map[string]string{
		"watch-dir": c.WatchDir,
		"formatter": c.Formatter,
		"program":   c.Program,
		"input":     c.Input,
		"output":    c.Output,
	} {
		if strings.TrimSpace(val) == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", key))
		}
	}

	if c.Coalesce < 0 {
		errs = append(errs, fmt.Errorf("coalesce must not be negative, got %s", c.Coalesce))
	}

	for _, p := range c.Ignore {
		if _, err := filepath.Match(p, ""); err != nil {
			errs = append(errs, fmt.Errorf("invalid ignore pattern %q: %w", p, err))
		}
	}

	return errors.Join(errs...)
}

// EffectiveLogLevel returns the log level to use. When Quiet is true the log
// level is overridden to "error" regardless of the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("no-color", d.NoColor)
	v.SetDefault("quiet", d.Quiet)
	v.SetDefault("watch-dir", d.WatchDir)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("ignore", []string{})
	v.SetDefault("coalesce", d.Coalesce)
	v.SetDefault("formatter", d.Formatter)
	v.SetDefault("program", d.Program)
	v.SetDefault("input", d.Input)
	v.SetDefault("output", d.Output)
	v.SetDefault("report-changes", d.ReportChanges)
	v.SetDefault("show-diff", d.ShowDiff)
	v.SetDefault("metrics-addr", d.MetricsAddr)
}

// configureEnv sets up environment variable support.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("SRCWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// configureFile sets up the config file source.
func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	// Auto-discovery mode.
	v.SetConfigName(".srcwatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "srcwatch"))
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file found → perfectly fine in auto-discovery.
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}

		// Found a file but it was malformed.
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags walks from cmd up to the root and binds all PersistentFlags.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	// Bind the current command's own flags.
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	// Walk up to root and bind all persistent flags at each level.
	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
