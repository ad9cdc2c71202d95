package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// FileName is the configuration file name at every level.
const FileName = "plugin-migrate.yaml"

const configDirName = "plugin-migrate"

// Environment variables read during discovery.
const (
	envNoInherit = "PLUGIN_MIGRATE_NO_INHERIT"
	envUserDir   = "PLUGIN_MIGRATE_CONFIG_DIR"
)

// Level is where a configuration file sits in the precedence order.
type Level string

const (
	LevelSystem  Level = "system"
	LevelUser    Level = "user"
	LevelProject Level = "project"
)

// Layer is one candidate configuration file.
type Layer struct {
	Level  Level
	Path   string
	Loaded bool
	Err    error // set when the file exists but could not be parsed
}

// Locations overrides where configuration files are looked for. Empty
// fields use the platform defaults; a path that does not exist skips the
// level.
type Locations struct {
	Project string
	System  string
	User    string
}

// DiscoverPaths lists the candidate files from lowest precedence (system)
// to highest (project). Two levels resolving to the same file appear once,
// at the lower level.
func DiscoverPaths(loc Locations) []Layer {
	candidates := []Layer{
		{Level: LevelSystem, Path: firstNonEmpty(loc.System, defaultSystemConfigPath())},
		{Level: LevelUser, Path: firstNonEmpty(loc.User, defaultUserConfigPath())},
		{Level: LevelProject, Path: loc.Project},
	}

	seen := make(map[string]bool, len(candidates))
	layers := candidates[:0]
	for _, c := range candidates {
		if c.Path == "" {
			continue
		}
		key := c.Path
		if abs, err := filepath.Abs(c.Path); err == nil {
			key = abs
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		layers = append(layers, c)
	}
	return layers
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func defaultSystemConfigPath() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(firstNonEmpty(os.Getenv("ProgramData"), `C:\ProgramData`), configDirName, FileName)
	}
	return filepath.Join("/etc", configDirName, FileName)
}

// defaultUserConfigPath honours PLUGIN_MIGRATE_CONFIG_DIR before the OS
// user config directory.
func defaultUserConfigPath() string {
	if dir := os.Getenv(envUserDir); dir != "" {
		return filepath.Join(dir, FileName)
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, configDirName, FileName)
}

// EnvNoInherit reports whether PLUGIN_MIGRATE_NO_INHERIT is "1" or "true",
// which limits loading to the project file.
func EnvNoInherit() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(envNoInherit))) {
	case "1", "true":
		return true
	}
	return false
}
