package flatconfig

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bianoble/plugin-migrate/internal/jsast"
	"github.com/bianoble/plugin-migrate/internal/snapshot"
)

// legacyNames are the legacy config file names in ESLint's lookup order.
var legacyNames = []string{
	".eslintrc.js",
	".eslintrc.cjs",
	".eslintrc.yaml",
	".eslintrc.yml",
	".eslintrc.json",
	".eslintrc",
}

// flatNames are the file names ESLint 9 picks up.
var flatNames = []string{
	"eslint.config.js",
	"eslint.config.mjs",
	"eslint.config.cjs",
	"eslint.config.ts",
	"eslint.config.mts",
	"eslint.config.cts",
}

// FindLegacy returns the legacy config file in dir, if any.
func FindLegacy(snap *snapshot.Snapshot, dir string) (string, bool) {
	for _, name := range legacyNames {
		p := snapshot.Clean(path.Join(dir, name))
		if snap.DoesFileExist(p) {
			return p, true
		}
	}
	return "", false
}

// HasFlatConfig reports whether dir already holds a flat config file.
func HasFlatConfig(snap *snapshot.Snapshot, dir string) bool {
	for _, name := range flatNames {
		if snap.DoesFileExist(path.Join(dir, name)) {
			return true
		}
	}
	return false
}

// OutputPath names the flat module that replaces a legacy file:
// <dir>/.eslintrc[.ext] becomes <dir>/eslint.config.mjs and any other
// <dir>/<name>.<ext> becomes <dir>/<name>.config.mjs.
func OutputPath(legacy string) string {
	dir, base := path.Dir(legacy), path.Base(legacy)
	if strings.HasPrefix(base, ".eslintrc") {
		return snapshot.Clean(path.Join(dir, "eslint.config.mjs"))
	}
	stem := strings.TrimPrefix(strings.TrimSuffix(base, path.Ext(base)), ".")
	return snapshot.Clean(path.Join(dir, stem+".config.mjs"))
}

// Load reads a legacy config file into an object tree. JSON files may
// carry comments and trailing commas, as ESLint allowed.
func Load(snap *snapshot.Snapshot, p string) (*jsast.Object, error) {
	data, ok := snap.GetFile(p)
	if !ok {
		return nil, fmt.Errorf("reading %s: file does not exist", p)
	}
	switch path.Ext(p) {
	case ".js", ".cjs":
		return loadModule(p, string(data))
	case ".yaml", ".yml":
		return loadYAML(p, data)
	case ".json":
		return loadJSON(p, string(data))
	}
	if obj, err := loadJSON(p, string(data)); err == nil {
		return obj, nil
	}
	return loadYAML(p, data)
}

func loadModule(p, src string) (*jsast.Object, error) {
	f, err := jsast.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", p, err)
	}
	for _, st := range f.Body {
		var v jsast.Node
		switch s := st.(type) {
		case *jsast.Assign:
			v = s.Value
		case *jsast.ExportDefault:
			v = s.Value
		default:
			continue
		}
		if obj, ok := v.(*jsast.Object); ok {
			return obj, nil
		}
		return nil, fmt.Errorf("parsing %s: exported config is not an object literal", p)
	}
	return nil, fmt.Errorf("parsing %s: no module.exports assignment", p)
}

func loadJSON(p, src string) (*jsast.Object, error) {
	obj, err := loadModule(p, "module.exports = "+src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s as JSON: %w", p, err)
	}
	return obj, nil
}

func loadYAML(p string, data []byte) (*jsast.Object, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s as YAML: %w", p, err)
	}
	obj, ok := FromYAML(&doc).(*jsast.Object)
	if !ok {
		return nil, fmt.Errorf("parsing %s: top level is not a mapping", p)
	}
	return obj, nil
}

// FromYAML converts a YAML node tree into expression nodes.
func FromYAML(n *yaml.Node) jsast.Node {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return jsast.Obj()
		}
		return FromYAML(n.Content[0])
	case yaml.AliasNode:
		return FromYAML(n.Alias)
	case yaml.MappingNode:
		var props []jsast.Node
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == "<<" {
				continue
			}
			props = append(props, jsast.Prop(n.Content[i].Value, FromYAML(n.Content[i+1])))
		}
		return jsast.Obj(props...)
	case yaml.SequenceNode:
		elems := make([]jsast.Node, 0, len(n.Content))
		for _, c := range n.Content {
			elems = append(elems, FromYAML(c))
		}
		return jsast.Arr(elems...)
	}
	switch n.ShortTag() {
	case "!!int", "!!float":
		return jsast.NumRaw(n.Value)
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return jsast.Bool(b)
		}
	case "!!null":
		return jsast.Null()
	}
	return jsast.Str(n.Value)
}

// extendsRefs collects the extends entries of a config and its overrides.
func extendsRefs(cfg *jsast.Object) []string {
	var out []string
	collect := func(o *jsast.Object) {
		if v, ok := o.Get("extends"); ok {
			refs, _ := jsast.Strings(v)
			out = append(out, refs...)
		}
	}
	collect(cfg)
	if v, ok := cfg.Get("overrides"); ok {
		if arr, ok := v.(*jsast.Array); ok {
			for _, e := range arr.Elems {
				if o, ok := e.(*jsast.Object); ok {
					collect(o)
				}
			}
		}
	}
	return out
}

func isLocalRef(ref string) bool {
	return strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../")
}

// resolveLocal finds the file a relative extends entry points at.
func resolveLocal(snap *snapshot.Snapshot, dir, ref string) (string, bool) {
	p := snapshot.Clean(path.Join(dir, ref))
	candidates := []string{p}
	for _, ext := range []string{".js", ".cjs", ".json", ".yaml", ".yml"} {
		candidates = append(candidates, p+ext)
	}
	for _, name := range legacyNames {
		candidates = append(candidates, path.Join(p, name))
	}
	for _, c := range candidates {
		if strings.HasPrefix(c, "../") || c == ".." {
			return "", false
		}
		if snap.DoesFileExist(c) {
			return c, true
		}
	}
	return "", false
}

// importPath returns the specifier that imports target from a module in
// fromDir.
func importPath(fromDir, target string) string {
	rel, err := filepath.Rel(filepath.FromSlash(fromDir), filepath.FromSlash(target))
	if err != nil {
		return target
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel
}
