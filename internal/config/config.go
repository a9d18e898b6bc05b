// Package config loads bugsafe's own settings file: default capture
// behavior, redaction toggles, and output preferences. Loading never fails
// on a missing file — a missing config is just Default().
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/spf13/viper"
)

const (
	DefaultTimeoutSeconds = 300
	DefaultOutputFormat   = "md"
	DefaultMaxOutputSize  = 1024 * 1024 // 1 MB
)

// DefaultEnvAllowlist names the environment variables captured alongside a
// process snapshot; everything else is omitted so an Environment block
// doesn't leak unrelated secrets from the caller's shell.
var DefaultEnvAllowlist = []string{
	"PATH", "VIRTUAL_ENV", "PYTHONPATH", "CONDA_DEFAULT_ENV",
	"CONDA_PREFIX", "SHELL", "TERM", "LANG", "LC_ALL",
}

// Defaults controls capture behavior that isn't specific to redaction.
type Defaults struct {
	EnvAllowlist  []string `yaml:"env_allowlist" mapstructure:"env_allowlist"`
	TimeoutSec    int      `yaml:"timeout" mapstructure:"timeout"`
	MaxOutputSize int      `yaml:"max_output_size" mapstructure:"max_output_size"`
}

// Redaction controls which pattern categories are applied by default and
// where a project's custom pattern file lives.
type Redaction struct {
	CustomPatternsFile string `yaml:"custom_patterns_file" mapstructure:"custom_patterns_file"`
	RedactEmails       bool   `yaml:"redact_emails" mapstructure:"redact_emails"`
	RedactIPs          bool   `yaml:"redact_ips" mapstructure:"redact_ips"`
	RedactUUIDs        bool   `yaml:"redact_uuids" mapstructure:"redact_uuids"`
}

// Output controls how bundles are rendered and where they land by default.
type Output struct {
	DefaultFormat    string `yaml:"default_format" mapstructure:"default_format"`
	DefaultOutputDir string `yaml:"default_output_dir" mapstructure:"default_output_dir"`
}

// Config is the top-level bugsafe settings document.
type Config struct {
	Defaults  Defaults  `yaml:"defaults" mapstructure:"defaults"`
	Redaction Redaction `yaml:"redaction" mapstructure:"redaction"`
	Output    Output    `yaml:"output" mapstructure:"output"`
}

// Default returns a Config with the same safe defaults bugsafe runs with
// when no config file is present.
func Default() *Config {
	return &Config{
		Defaults: Defaults{
			EnvAllowlist:  append([]string(nil), DefaultEnvAllowlist...),
			TimeoutSec:    DefaultTimeoutSeconds,
			MaxOutputSize: DefaultMaxOutputSize,
		},
		Redaction: Redaction{
			RedactEmails: true,
			RedactIPs:    true,
			RedactUUIDs:  false,
		},
		Output: Output{
			DefaultFormat: DefaultOutputFormat,
		},
	}
}

// Dir returns the directory bugsafe's config file lives in, honoring
// XDG_CONFIG_HOME the same way the rest of the XDG-aware tooling in this
// ecosystem does.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bugsafe")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/bugsafe"
	}
	return filepath.Join(home, ".config", "bugsafe")
}

// File returns the default config file path, config.yaml under Dir().
func File() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads a config file at path. A missing file is not an error — it
// yields Default(). Environment variables prefixed BUGSAFE_ override
// whatever the file (or the defaults) set, read through viper so
// BUGSAFE_REDACTION_REDACT_EMAILS=false overrides redaction.redact_emails
// without needing a flag for every setting.
func Load(path string) (*Config, error) {
	if path == "" {
		path = File()
	}

	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		dir := filepath.Dir(path)
		base := filepath.Base(path)

		root, err := os.OpenRoot(dir)
		if err != nil {
			return nil, fmt.Errorf("config: failed to open directory: %w", err)
		}
		defer root.Close()

		file, err := root.Open(base)
		if err != nil {
			return nil, fmt.Errorf("config: failed to open file: %w", err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("BUGSAFE")
	v.AutomaticEnv()
	v.SetConfigType("yaml")

	applyEnvOverrides(v, cfg)

	return cfg, nil
}

// applyEnvOverrides lets BUGSAFE_REDACTION_REDACT_EMAILS-style environment
// variables flip the booleans a CI pipeline most commonly needs to toggle
// without maintaining a config file.
func applyEnvOverrides(v *viper.Viper, cfg *Config) {
	if v.IsSet("redaction_redact_emails") {
		cfg.Redaction.RedactEmails = v.GetBool("redaction_redact_emails")
	}
	if v.IsSet("redaction_redact_ips") {
		cfg.Redaction.RedactIPs = v.GetBool("redaction_redact_ips")
	}
	if v.IsSet("redaction_redact_uuids") {
		cfg.Redaction.RedactUUIDs = v.GetBool("redaction_redact_uuids")
	}
	if v.IsSet("output_default_format") {
		cfg.Output.DefaultFormat = v.GetString("output_default_format")
	}
}
