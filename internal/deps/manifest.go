package deps

import (
	"fmt"
	"sort"

	"github.com/bianoble/plugin-migrate/internal/jsondoc"
	"github.com/bianoble/plugin-migrate/internal/snapshot"
)

// ManifestPath is the project manifest, relative to the project root.
const ManifestPath = "package.json"

const (
	sectionDeps    = "dependencies"
	sectionDevDeps = "devDependencies"
)

// Change is one dependency's version move. Prev is empty when the
// dependency was not present before.
type Change struct {
	Prev string `json:"prev,omitempty"`
	Next string `json:"next"`
}

// Summary maps package names to version changes.
type Summary map[string]Change

// Names returns the changed package names in sorted order.
func (s Summary) Names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AddDependenciesToPackageJSON merges deps into "dependencies" and devDeps
// into "devDependencies" of the manifest visible through snap.
//
// A package already listed in either section is upgraded in place when the
// incoming version wins Reconcile and left alone otherwise; a missing
// package is added to the requested section. The manifest is rewritten,
// with both sections sorted, only when something changed. A missing
// manifest yields an empty summary.
func AddDependenciesToPackageJSON(snap *snapshot.Snapshot, deps, devDeps map[string]string) (Summary, error) {
	data, ok := snap.GetFile(ManifestPath)
	if !ok {
		return Summary{}, nil
	}
	doc, err := jsondoc.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ManifestPath, err)
	}

	summary := Summary{}
	for _, name := range sortedKeys(deps) {
		apply(doc, sectionDeps, name, deps[name], summary)
	}
	for _, name := range sortedKeys(devDeps) {
		apply(doc, sectionDevDeps, name, devDeps[name], summary)
	}
	if len(summary) == 0 {
		return summary, nil
	}

	for _, section := range []string{sectionDeps, sectionDevDeps} {
		if obj := jsondoc.GetObject(doc, section); obj != nil {
			doc.Set(section, jsondoc.Sorted(obj))
		}
	}
	out, err := jsondoc.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", ManifestPath, err)
	}
	if err := snap.UpdateFile(ManifestPath, out); err != nil {
		return nil, err
	}
	return summary, nil
}

func apply(doc *jsondoc.Object, section, name, version string, summary Summary) {
	for _, s := range []string{sectionDeps, sectionDevDeps} {
		obj := jsondoc.GetObject(doc, s)
		if obj == nil {
			continue
		}
		if _, present := obj.Get(name); !present {
			continue
		}
		existing, _ := jsondoc.GetString(obj, name)
		if existing != version && Reconcile(version, existing) {
			obj.Set(name, version)
			summary[name] = Change{Prev: existing, Next: version}
		}
		return
	}
	jsondoc.EnsureObject(doc, section).Set(name, version)
	summary[name] = Change{Next: version}
}

// DiffManifests compares the dependency sections of a project manifest with
// a target manifest and reports every package the target would add or
// move forward.
func DiffManifests(current, target []byte) (Summary, error) {
	cur, err := jsondoc.Parse(current)
	if err != nil {
		return nil, fmt.Errorf("parsing current manifest: %w", err)
	}
	tgt, err := jsondoc.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parsing target manifest: %w", err)
	}

	existing := map[string]string{}
	for _, s := range []string{sectionDeps, sectionDevDeps} {
		obj := jsondoc.GetObject(cur, s)
		for _, name := range jsondoc.Keys(obj) {
			v, _ := jsondoc.GetString(obj, name)
			existing[name] = v
		}
	}

	summary := Summary{}
	for _, s := range []string{sectionDeps, sectionDevDeps} {
		obj := jsondoc.GetObject(tgt, s)
		for _, name := range jsondoc.Keys(obj) {
			next, ok := jsondoc.GetString(obj, name)
			if !ok {
				continue
			}
			prev, had := existing[name]
			switch {
			case !had:
				summary[name] = Change{Next: next}
			case prev != next && Reconcile(next, prev):
				summary[name] = Change{Prev: prev, Next: next}
			}
		}
	}
	return summary, nil
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
