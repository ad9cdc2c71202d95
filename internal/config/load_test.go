package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const exampleConfig = `
version: 1
log_level: debug
target_version: 6.1.0
commit_each_migration: true

formatter:
  command: npx
  args: [prettier, --stdin-filepath, "{path}"]
  concurrency: 2

install:
  skip: true
`

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func containsSubstring(errs []string, sub string) bool {
	for _, e := range errs {
		if strings.Contains(e, sub) {
			return true
		}
	}
	return false
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), FileName, exampleConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("version = %d, want 1", cfg.Version)
	}
	if cfg.TargetVersion != "6.1.0" {
		t.Errorf("target_version = %q, want 6.1.0", cfg.TargetVersion)
	}
	if !cfg.CommitEach() {
		t.Error("commit_each_migration not set")
	}
	if !cfg.SkipInstall() {
		t.Error("install.skip not set")
	}
	if cfg.FormatDisabled() {
		t.Error("formatter disabled unexpectedly")
	}
	if len(cfg.Formatter.Args) != 3 || cfg.Formatter.Args[2] != "{path}" {
		t.Errorf("formatter args = %v", cfg.Formatter.Args)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/plugin-migrate.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("PM_TARGET", "5.22.0")
	path := writeConfig(t, t.TempDir(), FileName, "version: 1\ntarget_version: ${PM_TARGET}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TargetVersion != "5.22.0" {
		t.Errorf("target_version = %q, want 5.22.0", cfg.TargetVersion)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), FileName, "version: [1\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("error = %v, want parse error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"version zero", Config{}, "unsupported version 0"},
		{"version too high", Config{Version: 99}, "unsupported version 99"},
		{"log level", Config{Version: 1, LogLevel: "loud"}, "'log_level'"},
		{"target version", Config{Version: 1, TargetVersion: "next"}, "'target_version'"},
		{"concurrency", Config{Version: 1, Formatter: Formatter{Concurrency: -1}}, "'formatter.concurrency'"},
		{"absolute settings", Config{Version: 1, SettingsPath: "/etc/cprc.json"}, "'settings_path'"},
		{"escaping settings", Config{Version: 1, SettingsPath: "../cprc.json"}, "'settings_path'"},
		{"formatter args", Config{Version: 1, Formatter: Formatter{Args: []string{"x"}}}, "'formatter.args' requires"},
		{"install args", Config{Version: 1, Install: Install{Args: []string{"ci"}}}, "'install.args' requires"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(&tt.cfg)
			if !containsSubstring(errs, tt.want) {
				t.Errorf("errors = %v, want one containing %q", errs, tt.want)
			}
		})
	}
}

func TestValidateDefault(t *testing.T) {
	if errs := Validate(Default()); len(errs) > 0 {
		t.Errorf("default config invalid: %v", errs)
	}
}

func TestValidationErrorFormat(t *testing.T) {
	err := &ValidationError{Errors: []string{"a", "b"}}
	want := "config validation failed:\n  - a\n  - b"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
