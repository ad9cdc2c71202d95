// Package config loads plugin-migrate.yaml, the tool's own configuration,
// from the system, user and project levels.
package config

// Config represents the plugin-migrate.yaml configuration file.
type Config struct {
	Version             int       `yaml:"version"`
	LogLevel            string    `yaml:"log_level,omitempty"`
	SettingsPath        string    `yaml:"settings_path,omitempty"`
	TargetVersion       string    `yaml:"target_version,omitempty"`
	CommitEachMigration *bool     `yaml:"commit_each_migration,omitempty"`
	Formatter           Formatter `yaml:"formatter,omitempty"`
	Install             Install   `yaml:"install,omitempty"`
}

// Formatter configures the command touched files are piped through. An
// empty command means the project's prettier.
type Formatter struct {
	Command     string   `yaml:"command,omitempty"`
	Args        []string `yaml:"args,omitempty"`
	Disabled    *bool    `yaml:"disabled,omitempty"`
	Concurrency int      `yaml:"concurrency,omitempty"`
}

// Install configures the dependency install run after a migration
// changes the manifest. An empty command means the detected package
// manager.
type Install struct {
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
	Skip    *bool    `yaml:"skip,omitempty"`
}

// Default log level and formatter concurrency.
const (
	DefaultLogLevel    = "info"
	DefaultConcurrency = 4
)

// Default returns the configuration used when no file sets a value.
func Default() *Config {
	return &Config{
		Version:      1,
		LogLevel:     DefaultLogLevel,
		SettingsPath: ".config/.cprc.json",
		Formatter:    Formatter{Concurrency: DefaultConcurrency},
	}
}

// CommitEach reports whether each migration gets its own commit.
func (c *Config) CommitEach() bool { return isTrue(c.CommitEachMigration) }

// FormatDisabled reports whether formatting is turned off.
func (c *Config) FormatDisabled() bool { return isTrue(c.Formatter.Disabled) }

// SkipInstall reports whether dependency installs are turned off.
func (c *Config) SkipInstall() bool { return isTrue(c.Install.Skip) }

func isTrue(b *bool) bool { return b != nil && *b }
