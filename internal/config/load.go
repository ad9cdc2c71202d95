package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"
)

var logLevels = []any{"debug", "info", "warn", "error"}

// Load reads and validates a single plugin-migrate.yaml file.
func Load(path string) (*Config, error) {
	cfg, err := parse(path)
	if err != nil {
		return nil, err
	}
	if errs := Validate(cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return cfg, nil
}

// parse reads a config file and expands ${VAR} references before decoding.
func parse(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Config for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d (only version 1 is supported)", cfg.Version))
	}

	check := func(field string, value any, rules ...validation.Rule) {
		if err := validation.Validate(value, rules...); err != nil {
			errs = append(errs, fmt.Sprintf("'%s': %v", field, err))
		}
	}
	check("log_level", cfg.LogLevel, validation.In(logLevels...).Error("must be one of: debug, info, warn, error"))
	check("target_version", cfg.TargetVersion, is.Semver)
	check("formatter.concurrency", cfg.Formatter.Concurrency, validation.Min(0))

	if p := cfg.SettingsPath; p != "" && (filepath.IsAbs(p) || strings.HasPrefix(filepath.ToSlash(filepath.Clean(p)), "../")) {
		errs = append(errs, fmt.Sprintf("'settings_path': %q must be relative to the project root", p))
	}
	if cfg.Formatter.Command == "" && len(cfg.Formatter.Args) > 0 {
		errs = append(errs, "'formatter.args' requires 'formatter.command'")
	}
	if cfg.Install.Command == "" && len(cfg.Install.Args) > 0 {
		errs = append(errs, "'install.args' requires 'install.command'")
	}

	return errs
}
