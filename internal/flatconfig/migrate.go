package flatconfig

import (
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/bianoble/plugin-migrate/internal/jsast"
	"github.com/bianoble/plugin-migrate/internal/snapshot"
)

// IgnoreFile is the legacy ignore file read from the project root.
const IgnoreFile = ".eslintignore"

// Outcome describes what Migrate changed.
type Outcome struct {
	Written  []string
	Removed  []string
	Packages []string
}

// Migrate replaces the project's legacy lint configuration with flat
// modules: the root config and every local config it reaches through
// relative extends entries each become an eslint.config.mjs next to the
// original, which is deleted. It does nothing when the root already has a
// flat config or has no legacy config. An unreadable root config is logged
// and treated as nothing to do.
func Migrate(snap *snapshot.Snapshot, logger *slog.Logger) (*Outcome, error) {
	out := &Outcome{}
	if HasFlatConfig(snap, ".") {
		logger.Debug("flat lint config already present")
		return out, nil
	}
	root, ok := FindLegacy(snap, ".")
	if !ok {
		logger.Debug("no legacy lint config found")
		return out, nil
	}

	configs, links, order := discover(snap, root, logger)
	if _, ok := configs[root]; !ok {
		return out, nil
	}

	outputs := make(map[string]string, len(order))
	for _, p := range order {
		outputs[p] = OutputPath(p)
	}

	ignores, hadIgnoreFile := readIgnoreFile(snap)
	packages := map[string]bool{}
	for _, p := range order {
		resolved := links[p]
		opts := Options{
			Local: func(ref string) (string, bool) {
				target, ok := resolved[ref]
				if !ok {
					return "", false
				}
				outPath, ok := outputs[target]
				if !ok {
					return "", false
				}
				return importPath(path.Dir(outputs[p]), outPath), true
			},
		}
		if p == root {
			opts.Ignores = ignores
		}

		res, err := Translate(configs[p], opts)
		if err != nil {
			return nil, err
		}
		for _, w := range res.Warnings {
			logger.Warn("lint config translation", slog.String("path", p), slog.String("warning", w))
		}
		for _, pkg := range res.Packages {
			packages[pkg] = true
		}

		if err := snap.UpdateFile(outputs[p], []byte(res.File.Print())); err != nil {
			return nil, err
		}
		out.Written = append(out.Written, outputs[p])
	}

	// Legacy files go only after every translation has resolved its links.
	for _, p := range order {
		snap.DeleteFile(p)
		out.Removed = append(out.Removed, p)
	}

	if hadIgnoreFile {
		snap.DeleteFile(IgnoreFile)
		out.Removed = append(out.Removed, IgnoreFile)
	}
	for pkg := range packages {
		out.Packages = append(out.Packages, pkg)
	}
	sort.Strings(out.Packages)
	return out, nil
}

// discover loads root and every local config reachable from it through
// relative extends entries, breadth first, and records which file each
// entry resolved to. Files that fail to load are logged and left out.
func discover(snap *snapshot.Snapshot, root string, logger *slog.Logger) (map[string]*jsast.Object, map[string]map[string]string, []string) {
	configs := map[string]*jsast.Object{}
	links := map[string]map[string]string{}
	var order []string
	seen := map[string]bool{root: true}
	queue := []string{root}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		cfg, err := Load(snap, p)
		if err != nil {
			logger.Warn("skipping lint config", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		configs[p] = cfg
		links[p] = map[string]string{}
		order = append(order, p)

		for _, ref := range extendsRefs(cfg) {
			if !isLocalRef(ref) {
				continue
			}
			target, ok := resolveLocal(snap, path.Dir(p), ref)
			if !ok {
				logger.Warn("local lint config not found", slog.String("path", p), slog.String("extends", ref))
				continue
			}
			links[p][ref] = target
			if !seen[target] {
				seen[target] = true
				queue = append(queue, target)
			}
		}
	}
	return configs, links, order
}

// readIgnoreFile converts the root ignore file into flat ignore patterns.
func readIgnoreFile(snap *snapshot.Snapshot) ([]string, bool) {
	data, ok := snap.GetFile(IgnoreFile)
	if !ok {
		return nil, false
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if p := ignorePattern(line); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}
