package engine

import (
	"context"
	"log/slog"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/bianoble/plugin-migrate/internal/runner"
	"github.com/bianoble/plugin-migrate/internal/snapshot"
)

// runContext is the state shared by the migrations of one run. It only
// grows.
type runContext struct {
	installed map[uint64]bool
}

func newRunContext() *runContext {
	return &runContext{installed: make(map[uint64]bool)}
}

// install runs the installer unless this run already installed for the
// same manifest content. It reports whether the installer ran.
func (rc *runContext) install(ctx context.Context, inst runner.Installer, root string, manifest []byte) (bool, error) {
	key := xxh3.Hash(manifest)
	if rc.installed[key] {
		return false, nil
	}
	if err := inst.Install(ctx, root); err != nil {
		return false, err
	}
	rc.installed[key] = true
	return true, nil
}

// format pipes every touched file the formatter understands through it,
// a bounded number at a time. A file the formatter rejects keeps its
// unformatted content.
func (m *Manager) format(ctx context.Context, snap *snapshot.Snapshot) error {
	if m.Formatter == nil {
		return nil
	}
	var paths []string
	for _, p := range snap.Touched() {
		if runner.Supports(p) {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return nil
	}

	limit := m.FormatConcurrency
	if limit < 1 {
		limit = 1
	}
	formatted := make([][]byte, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range paths {
		content, _ := snap.GetFile(p)
		g.Go(func() error {
			out, err := m.Formatter.Format(gctx, p, content)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				m.logger().Warn("formatting failed", slog.String("path", p), slog.String("error", err.Error()))
				return nil
			}
			formatted[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, p := range paths {
		if formatted[i] == nil {
			continue
		}
		if err := snap.UpdateFile(p, formatted[i]); err != nil {
			return err
		}
	}
	return nil
}
