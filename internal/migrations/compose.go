package migrations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bianoble/plugin-migrate/internal/dedupe"
	"github.com/bianoble/plugin-migrate/internal/snapshot"
	"github.com/bianoble/plugin-migrate/internal/yamldoc"
)

const (
	composeBasePath = ".config/docker-compose-base.yaml"
	composeService  = "grafana"
)

var composePaths = []string{"docker-compose.yaml", "docker-compose.yml"}

// UpdateComposeExtend strips the project compose file's grafana service of
// everything the shared base file already declares and makes it extend
// the base service instead.
func UpdateComposeExtend(_ context.Context, snap *snapshot.Snapshot, logger *slog.Logger) (*snapshot.Snapshot, error) {
	overlayPath, ok := firstExisting(snap, composePaths)
	if !ok {
		logger.Debug("no compose file found")
		return snap, nil
	}
	overlay, ok := readYAML(snap, overlayPath, logger)
	if !ok {
		return snap, nil
	}
	base, ok := readYAML(snap, composeBasePath, logger)
	if !ok {
		logger.Debug("no shared compose base", slog.String("path", composeBasePath))
		return snap, nil
	}

	changed := dedupe.Service(overlay, base, dedupe.Target{
		OverlayPath: overlayPath,
		BasePath:    composeBasePath,
		Service:     composeService,
	})
	if !changed {
		return snap, nil
	}
	out, err := overlay.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", overlayPath, err)
	}
	if err := snap.UpdateFile(overlayPath, out); err != nil {
		return nil, err
	}
	return snap, nil
}

func readYAML(snap *snapshot.Snapshot, path string, logger *slog.Logger) (*yamldoc.Document, bool) {
	data, ok := snap.GetFile(path)
	if !ok {
		return nil, false
	}
	doc, err := yamldoc.Parse(data)
	if err != nil {
		logger.Warn("skipping unparsable file", slog.String("path", path), slog.String("error", err.Error()))
		return nil, false
	}
	return doc, true
}

func firstExisting(snap *snapshot.Snapshot, paths []string) (string, bool) {
	for _, p := range paths {
		if snap.DoesFileExist(p) {
			return p, true
		}
	}
	return "", false
}
