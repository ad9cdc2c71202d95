// Package pluginmigrate provides the public Go library API for
// plugin-migrate.
//
// plugin-migrate upgrades a scaffolded Grafana plugin project from the
// framework version recorded in its settings file to a newer one by
// applying an ordered catalog of migrations. Each migration's changes are
// written before the next one runs, and the recorded version only moves
// once all of them succeeded.
//
// # Basic Usage
//
//	client, err := pluginmigrate.New(pluginmigrate.Options{
//	    ProjectRoot: "/path/to/plugin",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// See what is pending
//	status, err := client.Status(ctx)
//
//	// Show the combined changes without writing them
//	preview, err := client.PreviewAll(ctx, pluginmigrate.MigrateOptions{})
//
//	// Apply them
//	result, err := client.Migrate(ctx, pluginmigrate.MigrateOptions{Commit: true})
package pluginmigrate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/bianoble/plugin-migrate/internal/config"
	"github.com/bianoble/plugin-migrate/internal/engine"
	"github.com/bianoble/plugin-migrate/internal/migrations"
	"github.com/bianoble/plugin-migrate/internal/runner"
)

// Migrator applies pending migrations to a project.
type Migrator interface {
	Migrate(ctx context.Context, opts MigrateOptions) (*RunResult, error)
}

// Previewer shows what migrations would change without writing anything.
type Previewer interface {
	Preview(ctx context.Context, name string) (*PreviewResult, error)
	PreviewAll(ctx context.Context, opts MigrateOptions) (*PreviewResult, error)
}

// MigrateOptions configures a migration run.
type MigrateOptions struct {
	// From overrides the version recorded in the project settings.
	From string

	// To defaults to the configured target_version, then to the newest
	// migration.
	To string

	// Commit creates one git commit per migration. The configuration's
	// commit_each_migration turns it on as well.
	Commit bool
}

// Options configures a plugin-migrate client.
type Options struct {
	// ProjectRoot is the plugin project directory. Default: the current
	// directory.
	ProjectRoot string

	// ConfigPath is the project config file. Default: plugin-migrate.yaml
	// in ProjectRoot.
	ConfigPath string

	// NoInherit skips the system and user config layers.
	NoInherit bool

	// Out receives change summaries. Default: discarded.
	Out io.Writer

	// Logger receives structured progress logs. Default: discarded.
	Logger *slog.Logger

	// Diffs adds unified diffs to the summaries of applied migrations.
	Diffs bool

	// Formatter, Installer and Committer replace the external commands
	// the configuration would select.
	Formatter runner.Formatter
	Installer runner.Installer
	Committer runner.Committer
}

// Client is the main entry point for the plugin-migrate library.
// It implements Migrator and Previewer.
type Client struct {
	opts        Options
	cfg         *config.Config
	projectRoot string
	catalog     []migrations.Meta
	registry    *migrations.Registry
}

// New creates a client and loads its configuration.
func New(opts Options) (*Client, error) {
	root := opts.ProjectRoot
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}

	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = filepath.Join(abs, config.FileName)
	}
	loaded, err := config.LoadHierarchical(config.HierarchicalOptions{
		ProjectPath: cfgPath,
		NoInherit:   opts.NoInherit || config.EnvNoInherit(),
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		opts:        opts,
		cfg:         loaded.Config,
		projectRoot: abs,
		catalog:     migrations.Catalog(),
		registry:    migrations.DefaultRegistry(),
	}, nil
}

// Config returns the merged configuration the client runs with.
func (c *Client) Config() *config.Config {
	return c.cfg
}

// ProjectRoot returns the absolute project directory.
func (c *Client) ProjectRoot() string {
	return c.projectRoot
}

// Migrations returns the catalog in declaration order.
func (c *Client) Migrations() []Migration {
	return append([]Migration(nil), c.catalog...)
}

// Migrate applies every pending migration.
func (c *Client) Migrate(ctx context.Context, opts MigrateOptions) (*RunResult, error) {
	commit := opts.Commit || c.cfg.CommitEach()
	m, err := c.manager(ctx, commit)
	if err != nil {
		return nil, err
	}
	return m.Run(ctx, engine.RunOptions{
		From:                opts.From,
		To:                  c.target(opts.To),
		CommitEachMigration: commit,
	})
}

// Preview runs one migration in memory and prints its changes with diffs.
func (c *Client) Preview(ctx context.Context, name string) (*PreviewResult, error) {
	m, err := c.manager(ctx, false)
	if err != nil {
		return nil, err
	}
	return m.Preview(ctx, name)
}

// PreviewAll runs every pending migration in memory and prints the
// combined changes.
func (c *Client) PreviewAll(ctx context.Context, opts MigrateOptions) (*PreviewResult, error) {
	m, err := c.manager(ctx, false)
	if err != nil {
		return nil, err
	}
	return m.PreviewRange(ctx, opts.From, c.target(opts.To))
}

// Status reports the recorded version and pending migrations.
func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	m, err := c.manager(ctx, false)
	if err != nil {
		return nil, err
	}
	return m.Status()
}

func (c *Client) target(to string) string {
	if to != "" {
		return to
	}
	return c.cfg.TargetVersion
}

func (c *Client) manager(ctx context.Context, commit bool) (*engine.Manager, error) {
	m := &engine.Manager{
		Catalog:           c.catalog,
		Registry:          c.registry,
		ProjectRoot:       c.projectRoot,
		SettingsPath:      c.cfg.SettingsPath,
		Formatter:         c.formatter(),
		FormatConcurrency: c.cfg.Formatter.Concurrency,
		Installer:         c.installer(),
		Out:               c.opts.Out,
		Logger:            c.opts.Logger,
		Diffs:             c.opts.Diffs,
	}
	if commit {
		m.Committer = c.opts.Committer
		if m.Committer == nil {
			if !runner.IsRepo(ctx, c.projectRoot) {
				return nil, fmt.Errorf("cannot commit migrations: %s is not inside a git repository", c.projectRoot)
			}
			m.Committer = runner.GitCommitter{}
		}
	}
	return m, nil
}

func (c *Client) formatter() runner.Formatter {
	if c.opts.Formatter != nil {
		return c.opts.Formatter
	}
	if c.cfg.FormatDisabled() {
		return nil
	}
	if c.cfg.Formatter.Command != "" {
		return &runner.CommandFormatter{Dir: c.projectRoot, Command: c.cfg.Formatter.Command, Args: c.cfg.Formatter.Args}
	}
	return runner.Prettier(c.projectRoot)
}

func (c *Client) installer() runner.Installer {
	if c.opts.Installer != nil {
		return c.opts.Installer
	}
	if c.cfg.SkipInstall() {
		return nil
	}
	if c.cfg.Install.Command != "" {
		return &runner.CommandInstaller{Command: c.cfg.Install.Command, Args: c.cfg.Install.Args}
	}
	return runner.DetectInstaller(c.projectRoot)
}
