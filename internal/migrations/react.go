package migrations

import (
	"context"
	"log/slog"

	"github.com/bianoble/plugin-migrate/internal/deps"
	"github.com/bianoble/plugin-migrate/internal/snapshot"
)

const react183 = "^18.3.0"

// UpgradeReact183 moves react and its type packages to 18.3 in projects
// that depend on react. Newer versions already present are kept.
func UpgradeReact183(_ context.Context, snap *snapshot.Snapshot, logger *slog.Logger) (*snapshot.Snapshot, error) {
	manifest, ok := readJSON(snap, deps.ManifestPath, logger)
	if !ok || !hasDependency(manifest, "react") {
		logger.Debug("project does not depend on react")
		return snap, nil
	}
	summary, err := deps.AddDependenciesToPackageJSON(snap,
		map[string]string{"react": react183, "react-dom": react183},
		map[string]string{"@types/react": react183, "@types/react-dom": react183},
	)
	if err != nil {
		return nil, err
	}
	logSummary(logger, summary)
	return snap, nil
}
