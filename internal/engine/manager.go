package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/mod/semver"

	"github.com/bianoble/plugin-migrate/internal/deps"
	"github.com/bianoble/plugin-migrate/internal/migrations"
	"github.com/bianoble/plugin-migrate/internal/runner"
	"github.com/bianoble/plugin-migrate/internal/sandbox"
	"github.com/bianoble/plugin-migrate/internal/settings"
	"github.com/bianoble/plugin-migrate/internal/snapshot"
)

// CommitMessagePrefix starts the message of every per-migration commit.
const CommitMessagePrefix = "chore: run create-plugin migration - "

// Manager selects and applies migrations to one project.
type Manager struct {
	Catalog      []migrations.Meta
	Registry     *migrations.Registry
	ProjectRoot  string
	SettingsPath string

	// Formatter, Installer and Committer are optional.
	Formatter         runner.Formatter
	FormatConcurrency int
	Installer         runner.Installer
	Committer         runner.Committer

	// Out receives the human readable change summaries.
	Out    io.Writer
	Logger *slog.Logger

	// Diffs adds unified diffs to run summaries. Previews always show them.
	Diffs bool
}

// RunOptions configures a run.
type RunOptions struct {
	// From defaults to the version recorded in the project settings and To
	// to the newest catalog version.
	From string
	To   string

	CommitEachMigration bool
}

// Run applies every migration between From and To in order. Each
// migration's changes are flushed to disk before the next one starts. The
// recorded version is advanced once, after the last migration succeeds;
// after a failure it stays put so a later run resumes from there.
func (m *Manager) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	result := &RunResult{}
	result.enter(StateSelecting, "")

	s, err := settings.Load(m.ProjectRoot, m.settingsPath())
	if err != nil {
		result.enter(StateFailed, "")
		return result, err
	}
	selected, err := m.selectRange(s, opts.From, opts.To, result)
	if err != nil {
		result.enter(StateFailed, "")
		return result, err
	}
	result.Recorded = s.Version

	rc := newRunContext()
	for _, meta := range selected {
		result.enter(StateRunning, meta.Name)
		applied, err := m.apply(ctx, rc, meta)
		if err != nil {
			result.enter(StateFailed, meta.Name)
			return result, &MigrationError{Migration: meta.Name, Err: err}
		}

		result.enter(StateCommitting, meta.Name)
		if opts.CommitEachMigration && m.Committer != nil && applied.Counts.Total() > 0 {
			if err := m.Committer.Commit(ctx, m.ProjectRoot, CommitMessagePrefix+meta.Name); err != nil {
				result.enter(StateFailed, meta.Name)
				return result, &MigrationError{Migration: meta.Name, Err: err}
			}
			applied.Committed = true
		}
		result.Applied = append(result.Applied, *applied)
	}

	if advances(result.From, result.To) {
		s.Version = result.To
		if err := settings.Save(m.ProjectRoot, m.settingsPath(), s); err != nil {
			result.enter(StateFailed, "")
			return result, fmt.Errorf("recording version %s: %w", result.To, err)
		}
		result.Recorded = s.Version
	}
	result.enter(StateDone, "")
	return result, nil
}

func advances(from, to string) bool {
	lo, err := canonical(from)
	if err != nil {
		return false
	}
	hi, err := canonical(to)
	if err != nil {
		return false
	}
	return semver.Compare(hi, lo) > 0
}

// Status reports the recorded version and the migrations still pending.
func (m *Manager) Status() (*StatusResult, error) {
	s, err := settings.Load(m.ProjectRoot, m.settingsPath())
	if err != nil {
		return nil, err
	}
	res := &StatusResult{Recorded: s.Version, Latest: LatestVersion(m.Catalog)}
	if s.Version == "" {
		res.Pending = append(res.Pending, m.Catalog...)
		return res, nil
	}
	res.Pending, err = GetMigrationsToRun(s.Version, res.Latest, m.Catalog)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (m *Manager) selectRange(s *settings.Settings, from, to string, result *RunResult) ([]migrations.Meta, error) {
	if from == "" {
		from = s.Version
	}
	if from == "" {
		return nil, fmt.Errorf("%w in %s: pass a starting version", ErrNoRecordedVersion, m.settingsPath())
	}
	if to == "" {
		to = LatestVersion(m.Catalog)
	}
	result.From, result.To = from, to

	selected, err := GetMigrationsToRun(from, to, m.Catalog)
	if err != nil {
		return nil, err
	}
	m.logger().Debug("selected migrations", slog.String("from", from), slog.String("to", to), slog.Int("count", len(selected)))
	return selected, nil
}

// apply runs one migration against a fresh snapshot of the project and
// flushes the result.
func (m *Manager) apply(ctx context.Context, rc *runContext, meta migrations.Meta) (*MigrationResult, error) {
	snap, err := m.invoke(ctx, meta, snapshot.New(snapshot.OSProvider{Root: m.ProjectRoot}))
	if err != nil {
		return nil, err
	}
	if err := m.format(ctx, snap); err != nil {
		return nil, err
	}

	fmt.Fprintf(m.out(), "%s (%s): %s\n", meta.Name, meta.Version, meta.Description)
	if err := snapshot.PrintSummary(m.out(), snap, m.Diffs); err != nil {
		return nil, err
	}

	res := &MigrationResult{Meta: meta, Counts: snapshot.Count(snap)}
	manifestChanged := false
	if _, ok := snap.ListChanges()[deps.ManifestPath]; ok {
		manifestChanged = true
	}

	flushed, err := snapshot.Flush(m.ProjectRoot, snap)
	if err != nil {
		return nil, err
	}
	res.Written, res.Removed = flushed.Written, flushed.Removed

	if manifestChanged && m.Installer != nil {
		manifest, err := sandbox.SafeRead(m.ProjectRoot, deps.ManifestPath)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", deps.ManifestPath, err)
		}
		if res.Installed, err = rc.install(ctx, m.Installer, m.ProjectRoot, manifest); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// invoke calls a migration's entry point on snap.
func (m *Manager) invoke(ctx context.Context, meta migrations.Meta, snap *snapshot.Snapshot) (*snapshot.Snapshot, error) {
	fn, err := m.Registry.Get(meta.EntryPoint)
	if err != nil {
		return nil, err
	}
	logger := m.logger().With(slog.String("migration", meta.Name))
	logger.Debug("running migration", slog.String("version", meta.Version))
	out, err := fn(ctx, snap, logger)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return snap, nil
	}
	return out, nil
}

func (m *Manager) settingsPath() string {
	if m.SettingsPath == "" {
		return settings.DefaultPath
	}
	return m.SettingsPath
}

func (m *Manager) out() io.Writer {
	if m.Out == nil {
		return io.Discard
	}
	return m.Out
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return m.Logger
}
