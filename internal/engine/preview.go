package engine

import (
	"context"
	"fmt"

	"github.com/bianoble/plugin-migrate/internal/migrations"
	"github.com/bianoble/plugin-migrate/internal/settings"
	"github.com/bianoble/plugin-migrate/internal/snapshot"
)

// Preview runs a single named migration against the project and prints
// its changes with diffs. Nothing is written to disk.
func (m *Manager) Preview(ctx context.Context, name string) (*PreviewResult, error) {
	meta, ok := migrations.Find(m.Catalog, name)
	if !ok {
		return nil, fmt.Errorf("unknown migration '%s'", name)
	}
	snap, err := m.invoke(ctx, meta, snapshot.New(snapshot.OSProvider{Root: m.ProjectRoot}))
	if err != nil {
		return nil, &MigrationError{Migration: meta.Name, Err: err}
	}
	if err := m.format(ctx, snap); err != nil {
		return nil, err
	}

	fmt.Fprintf(m.out(), "%s (%s): %s\n", meta.Name, meta.Version, meta.Description)
	if err := snapshot.PrintSummary(m.out(), snap, true); err != nil {
		return nil, err
	}
	return &PreviewResult{Migrations: []migrations.Meta{meta}, Snapshot: snap}, nil
}

// PreviewRange runs every migration between from and to in memory, each
// one seeing the previous one's output, and prints the combined changes
// against disk. Nothing is written to disk. Empty bounds default as they
// do for Run.
func (m *Manager) PreviewRange(ctx context.Context, from, to string) (*PreviewResult, error) {
	s, err := settings.Load(m.ProjectRoot, m.settingsPath())
	if err != nil {
		return nil, err
	}
	selected, err := m.selectRange(s, from, to, &RunResult{})
	if err != nil {
		return nil, err
	}

	disk := snapshot.OSProvider{Root: m.ProjectRoot}

	var view snapshot.Provider = disk
	touched := map[string]bool{}
	for _, meta := range selected {
		snap, err := m.invoke(ctx, meta, snapshot.New(view))
		if err != nil {
			return nil, &MigrationError{Migration: meta.Name, Err: err}
		}
		if err := m.format(ctx, snap); err != nil {
			return nil, err
		}
		fmt.Fprintf(m.out(), "%s (%s): %s\n", meta.Name, meta.Version, meta.Description)
		if err := snapshot.PrintSummary(m.out(), snap, false); err != nil {
			return nil, err
		}
		for _, p := range snap.Paths() {
			touched[p] = true
		}
		view = snap
	}

	combined := snapshot.New(disk)
	for p := range touched {
		content, err := view.ReadFile(p)
		switch {
		case err == nil:
			if err := combined.UpdateFile(p, content); err != nil {
				return nil, err
			}
		case snapshot.IsNotExist(err):
			combined.DeleteFile(p)
		default:
			return nil, err
		}
	}

	fmt.Fprintln(m.out(), "combined changes:")
	if err := snapshot.PrintSummary(m.out(), combined, true); err != nil {
		return nil, err
	}
	return &PreviewResult{Migrations: selected, Snapshot: combined}, nil
}
