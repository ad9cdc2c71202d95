// Package dedupe strips a derived compose file of everything its shared
// base file already provides, then points the derived service at the base
// with an extends reference.
package dedupe

import (
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bianoble/plugin-migrate/internal/yamldoc"
)

// Target locates the service to deduplicate. Paths are project-relative
// and slash separated; relative paths inside each file resolve against
// that file's directory.
type Target struct {
	OverlayPath string
	BasePath    string
	Service     string
}

// Service removes from the overlay's service every value the base's
// service defines identically, deepest keys first, drops mappings and
// lists left empty, and prepends `extends: {file, service}`. It reports
// whether the overlay changed. Nothing happens when either file lacks the
// service.
func Service(overlay, base *yamldoc.Document, t Target) bool {
	ov := yamldoc.Lookup(overlay.Root(), "services", t.Service)
	bs := yamldoc.Lookup(base.Root(), "services", t.Service)
	if ov == nil || bs == nil || ov.Kind != yaml.MappingNode || bs.Kind != yaml.MappingNode {
		return false
	}

	d := &deduper{
		overlayDir: path.Dir(t.OverlayPath),
		baseDir:    path.Dir(t.BasePath),
	}
	changed := d.mapping(ov, bs, nil)

	ext := yamldoc.NewMapping()
	ext.Content = append(ext.Content,
		yamldoc.NewScalar("file"), yamldoc.NewScalar(relativeTo(d.overlayDir, t.BasePath)),
		yamldoc.NewScalar("service"), yamldoc.NewScalar(t.Service),
	)
	if existing := yamldoc.Lookup(ov, "extends"); existing == nil || !yamldoc.Equal(existing, ext) {
		yamldoc.Prepend(ov, "extends", ext)
		changed = true
	}
	return changed
}

type deduper struct {
	overlayDir string
	baseDir    string
}

// mapping deduplicates ov against bs in place. keys is the path from the
// service down to ov.
func (d *deduper) mapping(ov, bs *yaml.Node, keys []string) bool {
	changed := false
	for _, key := range yamldoc.Keys(ov) {
		if key == "extends" || key == "<<" {
			continue
		}
		bv := yamldoc.Lookup(bs, key)
		if bv == nil {
			continue
		}
		ovv := yamldoc.Lookup(ov, key)
		at := append(append([]string(nil), keys...), key)

		switch {
		case ovv.Kind == yaml.MappingNode && bv.Kind == yaml.MappingNode:
			if len(ovv.Content) == 0 {
				continue
			}
			if d.mapping(ovv, bv, at) {
				changed = true
			}
			if len(ovv.Content) == 0 {
				yamldoc.DeleteKey(ov, key)
			}
		case ovv.Kind == yaml.SequenceNode && (bv.Kind == yaml.SequenceNode || bv.Kind == yaml.MappingNode):
			if len(ovv.Content) == 0 {
				continue
			}
			if d.sequence(ovv, bv, at) {
				changed = true
			}
			if len(ovv.Content) == 0 {
				yamldoc.DeleteKey(ov, key)
			}
		case ovv.Kind == yaml.MappingNode && bv.Kind == yaml.SequenceNode && isEnvLike(key):
			if d.envMapping(ovv, bv) {
				changed = true
			}
			if len(ovv.Content) == 0 {
				yamldoc.DeleteKey(ov, key)
			}
		case ovv.Kind == yaml.ScalarNode && bv.Kind == yaml.ScalarNode:
			if d.scalarEqual(ovv, bv, at) {
				yamldoc.DeleteKey(ov, key)
				changed = true
			}
		}
	}
	return changed
}

// sequence drops every overlay item the base list (or, for environment
// style keys, the base mapping) already contains.
func (d *deduper) sequence(ov, bs *yaml.Node, keys []string) bool {
	kept := ov.Content[:0:0]
	for _, item := range ov.Content {
		if !d.inBase(item, bs, keys) {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(ov.Content) {
		return false
	}
	ov.Content = kept
	return true
}

func (d *deduper) inBase(item, bs *yaml.Node, keys []string) bool {
	item = resolveAlias(item)
	if bs.Kind == yaml.MappingNode {
		if item.Kind != yaml.ScalarNode || !isEnvLike(last(keys)) {
			return false
		}
		k, v, ok := strings.Cut(item.Value, "=")
		if !ok {
			return false
		}
		bv := yamldoc.Lookup(bs, k)
		return bv != nil && bv.Kind == yaml.ScalarNode && bv.Value == v
	}

	key := last(keys)
	for _, b := range bs.Content {
		b = resolveAlias(b)
		switch {
		case key == "volumes" && item.Kind == yaml.ScalarNode && b.Kind == yaml.ScalarNode:
			if d.volume(item.Value, d.overlayDir) == d.volume(b.Value, d.baseDir) {
				return true
			}
		case key == "volumes" && item.Kind == yaml.MappingNode && b.Kind == yaml.MappingNode:
			if d.longVolume(item, d.overlayDir) == d.longVolume(b, d.baseDir) {
				return true
			}
		case key == "env_file" && item.Kind == yaml.ScalarNode && b.Kind == yaml.ScalarNode:
			if resolvePath(d.overlayDir, item.Value) == resolvePath(d.baseDir, b.Value) {
				return true
			}
		default:
			if yamldoc.Equal(item, b) {
				return true
			}
		}
	}
	return false
}

// envMapping handles an overlay `KEY: value` mapping against a base
// `- KEY=value` list.
func (d *deduper) envMapping(ov, bs *yaml.Node) bool {
	have := map[string]bool{}
	for _, b := range bs.Content {
		if b = resolveAlias(b); b.Kind == yaml.ScalarNode {
			have[b.Value] = true
		}
	}
	changed := false
	for _, k := range yamldoc.Keys(ov) {
		v := yamldoc.Lookup(ov, k)
		if v.Kind == yaml.ScalarNode && have[k+"="+v.Value] {
			yamldoc.DeleteKey(ov, k)
			changed = true
		}
	}
	return changed
}

func (d *deduper) scalarEqual(ov, bs *yaml.Node, keys []string) bool {
	if isPathKey(keys) {
		return resolvePath(d.overlayDir, ov.Value) == resolvePath(d.baseDir, bs.Value)
	}
	return ov.Value == bs.Value
}

// volume normalizes a short-syntax volume. Relative host paths resolve
// against dir; named volumes, absolute paths and variables compare as
// written.
func (d *deduper) volume(spec, dir string) string {
	host, rest, ok := strings.Cut(spec, ":")
	if !ok {
		return spec
	}
	return resolvePath(dir, host) + ":" + rest
}

func (d *deduper) longVolume(n *yaml.Node, dir string) string {
	var parts []string
	for _, k := range []string{"type", "source", "target", "read_only"} {
		v := yamldoc.Lookup(n, k)
		if v == nil {
			parts = append(parts, "")
			continue
		}
		if k == "source" {
			parts = append(parts, resolvePath(dir, v.Value))
			continue
		}
		parts = append(parts, v.Value)
	}
	if len(yamldoc.Keys(n)) > 4 {
		out, _ := yaml.Marshal(n)
		parts = append(parts, string(out))
	}
	return strings.Join(parts, "|")
}

// resolvePath maps a relative filesystem path to a project-relative one.
func resolvePath(dir, p string) string {
	if !isRelativePath(p) {
		return p
	}
	return path.Join(dir, p)
}

func isRelativePath(p string) bool {
	return p == "." || p == ".." || strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../")
}

// isPathKey reports whether a scalar at keys holds a filesystem path.
func isPathKey(keys []string) bool {
	switch strings.Join(keys, ".") {
	case "build", "build.context", "env_file":
		return true
	}
	return false
}

func isEnvLike(key string) bool {
	return key == "environment" || key == "labels" || key == "args"
}

func relativeTo(dir, target string) string {
	if dir == "." || dir == "" {
		return target
	}
	up := strings.Repeat("../", strings.Count(dir, "/")+1)
	if strings.HasPrefix(target, dir+"/") {
		return strings.TrimPrefix(target, dir+"/")
	}
	return up + target
}

func last(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[len(keys)-1]
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}
