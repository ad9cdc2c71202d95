package migrations

import (
	"fmt"
	"log/slog"

	"github.com/bianoble/plugin-migrate/internal/deps"
	"github.com/bianoble/plugin-migrate/internal/jsondoc"
	"github.com/bianoble/plugin-migrate/internal/snapshot"
)

// readJSON parses a JSON object file visible through snap. Missing files
// and parse failures both report false; parse failures are logged.
func readJSON(snap *snapshot.Snapshot, path string, logger *slog.Logger) (*jsondoc.Object, bool) {
	data, ok := snap.GetFile(path)
	if !ok {
		return nil, false
	}
	doc, err := jsondoc.Parse(data)
	if err != nil {
		logger.Warn("skipping unparsable file", slog.String("path", path), slog.String("error", err.Error()))
		return nil, false
	}
	return doc, true
}

func writeJSON(snap *snapshot.Snapshot, path string, doc *jsondoc.Object) error {
	out, err := jsondoc.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return snap.UpdateFile(path, out)
}

// hasDependency reports whether the manifest lists name in either
// dependency section.
func hasDependency(manifest *jsondoc.Object, name string) bool {
	for _, section := range []string{"dependencies", "devDependencies"} {
		if obj := jsondoc.GetObject(manifest, section); obj != nil {
			if _, ok := obj.Get(name); ok {
				return true
			}
		}
	}
	return false
}

func logSummary(logger *slog.Logger, summary deps.Summary) {
	for _, name := range summary.Names() {
		c := summary[name]
		if c.Prev == "" {
			logger.Info("added dependency", slog.String("package", name), slog.String("version", c.Next))
			continue
		}
		logger.Info("updated dependency", slog.String("package", name),
			slog.String("from", c.Prev), slog.String("to", c.Next))
	}
}
