package migrations

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bianoble/plugin-migrate/internal/deps"
	"github.com/bianoble/plugin-migrate/internal/flatconfig"
	"github.com/bianoble/plugin-migrate/internal/jsondoc"
	"github.com/bianoble/plugin-migrate/internal/snapshot"
)

// Versions pinned for packages flat config modules import. Other packages
// the translation imports are added at "latest" when missing.
var eslint9Pins = map[string]string{
	"eslint":     "^9.0.0",
	"@eslint/js": "^9.0.0",
	"globals":    "^16.0.0",
}

// droppedLintFlags take a value and have no flat config equivalent.
var droppedLintFlags = []string{"--ext", "--ignore-path"}

// MigrateESLint9 converts legacy lint configuration to flat config
// modules, removes CLI flags eslint 9 rejects from the manifest scripts
// and adds the packages the new modules import.
func MigrateESLint9(_ context.Context, snap *snapshot.Snapshot, logger *slog.Logger) (*snapshot.Snapshot, error) {
	outcome, err := flatconfig.Migrate(snap, logger)
	if err != nil {
		return nil, err
	}
	if len(outcome.Written) == 0 {
		return snap, nil
	}
	for _, p := range outcome.Written {
		logger.Debug("wrote flat lint config", slog.String("path", p))
	}

	manifest, ok := readJSON(snap, deps.ManifestPath, logger)
	if !ok {
		return snap, nil
	}
	if rewriteLintScripts(manifest) {
		if err := writeJSON(snap, deps.ManifestPath, manifest); err != nil {
			return nil, err
		}
	}

	devDeps := map[string]string{"eslint": eslint9Pins["eslint"]}
	for _, pkg := range outcome.Packages {
		if version, pinned := eslint9Pins[pkg]; pinned {
			devDeps[pkg] = version
			continue
		}
		if !hasDependency(manifest, pkg) {
			devDeps[pkg] = "latest"
		}
	}
	summary, err := deps.AddDependenciesToPackageJSON(snap, nil, devDeps)
	if err != nil {
		return nil, err
	}
	logSummary(logger, summary)
	return snap, nil
}

// rewriteLintScripts strips dropped flags from every script that runs
// eslint and reports whether any script changed.
func rewriteLintScripts(manifest *jsondoc.Object) bool {
	scripts := jsondoc.GetObject(manifest, "scripts")
	changed := false
	for _, name := range jsondoc.Keys(scripts) {
		script, ok := jsondoc.GetString(scripts, name)
		if !ok || !strings.Contains(script, "eslint") {
			continue
		}
		if next := stripFlags(script, droppedLintFlags); next != script {
			scripts.Set(name, next)
			changed = true
		}
	}
	return changed
}

// stripFlags removes each flag and its value, in either "--flag value" or
// "--flag=value" form.
func stripFlags(script string, flags []string) string {
	fields := strings.Fields(script)
	out := make([]string, 0, len(fields))
	removed := false
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		name, _, hasValue := strings.Cut(f, "=")
		if !isDropped(name, flags) {
			out = append(out, f)
			continue
		}
		removed = true
		if !hasValue && i+1 < len(fields) && !strings.HasPrefix(fields[i+1], "-") {
			i++
		}
	}
	if !removed {
		return script
	}
	return strings.Join(out, " ")
}

func isDropped(name string, flags []string) bool {
	for _, f := range flags {
		if name == f {
			return true
		}
	}
	return false
}
