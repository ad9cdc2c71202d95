// Package flatconfig translates legacy ESLint configuration files into
// flat config modules.
package flatconfig

import (
	"fmt"
	"strings"

	"github.com/bianoble/plugin-migrate/internal/jsast"
)

// knownConfigs are shareable configs that ship a flat variant under a
// different entry point. Their flat export is an array and gets spread.
var knownConfigs = map[string]struct{ source, ident string }{
	"@grafana/eslint-config": {source: "@grafana/eslint-config/flat", ident: "grafanaConfig"},
}

// handled lists the legacy keys the translator consumes.
var handled = map[string]bool{
	"extends": true, "overrides": true, "root": true, "ignorePatterns": true,
	"files": true, "excludedFiles": true, "env": true, "globals": true,
	"parser": true, "parserOptions": true, "plugins": true, "settings": true,
	"rules": true, "noInlineConfig": true, "reportUnusedDisableDirectives": true,
}

// Options tune a translation.
type Options struct {
	// Ignores are global ignore patterns, already in flat form, emitted as
	// the leading entry.
	Ignores []string
	// Local maps a relative extends entry to the import path of its
	// migrated module. A false result drops the entry with a warning.
	Local func(ref string) (string, bool)
}

// Result is a translated module.
type Result struct {
	File     *jsast.File
	Packages []string
	Warnings []string
}

type translator struct {
	opts     Options
	imports  *importSet
	warnings []string
}

// Translate builds a flat config module from one legacy config object:
// imports first, then `export default defineConfig([...])` whose entries
// are the global ignores, the root's extends and literal entry, then each
// override's extends followed by its literal entry.
func Translate(cfg *jsast.Object, opts Options) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("translating config: no config object")
	}
	t := &translator{opts: opts, imports: newImportSet()}
	define := t.imports.named("eslint/config", "defineConfig")

	var elems []jsast.Node
	if ig := t.ignores(cfg); ig != nil {
		elems = append(elems, ig)
	}
	elems = append(elems, t.block(cfg, true)...)

	if ov, ok := cfg.Get("overrides"); ok {
		arr, ok := ov.(*jsast.Array)
		if !ok {
			t.warn("overrides is not an array, skipping")
		} else {
			for i, o := range arr.Elems {
				obj, ok := o.(*jsast.Object)
				if !ok {
					t.warn(fmt.Sprintf("overrides[%d] is not an object, skipping", i))
					continue
				}
				elems = append(elems, t.block(obj, false)...)
			}
		}
	}

	file, err := jsast.Parse("")
	if err != nil {
		return nil, err
	}
	body := t.imports.statements()
	body = append(body,
		jsast.RawStatement(""),
		jsast.ExportDefaultOf(jsast.CallOf(jsast.Id(define), jsast.Arr(elems...))),
	)
	file = file.Insert(0, body...)

	return &Result{File: file, Packages: t.imports.packages(), Warnings: t.warnings}, nil
}

func (t *translator) warn(msg string) {
	t.warnings = append(t.warnings, msg)
}

// ignores builds the global ignores entry from ignorePatterns and
// Options.Ignores.
func (t *translator) ignores(cfg *jsast.Object) jsast.Node {
	var patterns []string
	if v, ok := cfg.Get("ignorePatterns"); ok {
		list, ok := jsast.Strings(v)
		if !ok {
			t.warn("ignorePatterns is not a string list, skipping")
		}
		for _, line := range list {
			if p := ignorePattern(line); p != "" {
				patterns = append(patterns, p)
			}
		}
	}
	patterns = append(patterns, t.opts.Ignores...)

	seen := map[string]bool{}
	var valid []string
	for _, p := range patterns {
		if seen[p] {
			continue
		}
		seen[p] = true
		if !validPattern(p) {
			t.warn(fmt.Sprintf("dropping invalid ignore pattern %q", p))
			continue
		}
		valid = append(valid, p)
	}
	if len(valid) == 0 {
		return nil
	}
	return jsast.Obj(jsast.Prop("ignores", jsast.StrArr(valid...)))
}

func (t *translator) block(obj *jsast.Object, root bool) []jsast.Node {
	var out []jsast.Node
	if v, ok := obj.Get("extends"); ok {
		refs, ok := jsast.Strings(v)
		if !ok {
			t.warn("extends is not a string or string list, skipping")
		}
		for _, ref := range refs {
			if n := t.extend(ref); n != nil {
				out = append(out, n)
			}
		}
	}
	if lit := t.literal(obj, root); len(lit.Props) > 0 {
		out = append(out, lit)
	}
	return out
}

func (t *translator) extend(ref string) jsast.Node {
	switch {
	case strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../"):
		if t.opts.Local == nil {
			t.warn(fmt.Sprintf("cannot resolve local config %q", ref))
			return nil
		}
		src, ok := t.opts.Local(ref)
		if !ok {
			t.warn(fmt.Sprintf("cannot resolve local config %q", ref))
			return nil
		}
		return jsast.SpreadOf(jsast.Id(t.imports.def(src, "baseConfig")))

	case ref == "eslint:recommended" || ref == "eslint:all":
		js := t.imports.def("@eslint/js", "js")
		return jsast.Dot(jsast.Id(js), "configs", strings.TrimPrefix(ref, "eslint:"))

	case strings.HasPrefix(ref, "plugin:"):
		spec := strings.TrimPrefix(ref, "plugin:")
		i := strings.LastIndex(spec, "/")
		if i <= 0 || i == len(spec)-1 {
			t.warn(fmt.Sprintf("cannot read plugin config %q", ref))
			return nil
		}
		p := resolvePlugin(spec[:i])
		id := t.imports.def(p.pkg, p.ident)
		path := []string{"configs"}
		if p.key == "react" {
			path = append(path, "flat")
		}
		return jsast.Dot(jsast.Id(id), append(path, spec[i+1:])...)
	}

	if k, ok := knownConfigs[ref]; ok {
		return jsast.SpreadOf(jsast.Id(t.imports.def(k.source, k.ident)))
	}
	pkg := configPackage(ref)
	return jsast.Id(t.imports.def(pkg, configIdent(pkg)))
}

// literal builds the plain entry for a config block.
func (t *translator) literal(obj *jsast.Object, root bool) *jsast.Object {
	var props []jsast.Node
	if !root {
		if files := t.patterns(obj, "files"); files != nil {
			props = append(props, jsast.Prop("files", files))
		}
		if ex := t.patterns(obj, "excludedFiles"); ex != nil {
			props = append(props, jsast.Prop("ignores", ex))
		}
	}
	if lo := t.languageOptions(obj); lo != nil {
		props = append(props, jsast.Prop("languageOptions", lo))
	}
	if lo := linterOptions(obj); lo != nil {
		props = append(props, jsast.Prop("linterOptions", lo))
	}
	if pl := t.plugins(obj); pl != nil {
		props = append(props, jsast.Prop("plugins", pl))
	}
	for _, key := range []string{"settings", "rules"} {
		if v, ok := obj.Get(key); ok && !isEmptyObject(v) {
			props = append(props, jsast.Prop(key, v))
		}
	}

	for _, key := range obj.Keys() {
		if !handled[key] {
			t.warn(fmt.Sprintf("dropping unsupported key %q", key))
		}
	}
	if !root {
		if _, ok := obj.Get("ignorePatterns"); ok {
			t.warn("ignorePatterns inside overrides is not supported, skipping")
		}
	}
	return jsast.Obj(props...)
}

func (t *translator) patterns(obj *jsast.Object, key string) jsast.Node {
	v, ok := obj.Get(key)
	if !ok {
		return nil
	}
	list, ok := jsast.Strings(v)
	if !ok {
		t.warn(fmt.Sprintf("%s is not a string list, skipping", key))
		return nil
	}
	out := make([]string, 0, len(list))
	for _, p := range list {
		p = filePattern(p)
		if !validPattern(p) {
			t.warn(fmt.Sprintf("pattern %q may not match as intended", p))
		}
		out = append(out, p)
	}
	return jsast.StrArr(out...)
}

func (t *translator) languageOptions(obj *jsast.Object) *jsast.Object {
	var props []jsast.Node
	if g := t.globals(obj); g != nil {
		props = append(props, jsast.Prop("globals", g))
	}
	if v, ok := obj.Get("parser"); ok {
		if pkg, ok := jsast.StringValue(v); ok {
			props = append(props, jsast.Prop("parser", jsast.Id(t.imports.def(pkg, parserIdent(pkg)))))
		} else {
			t.warn("parser is not a string, skipping")
		}
	}
	if v, ok := obj.Get("parserOptions"); ok {
		po, ok := v.(*jsast.Object)
		if !ok {
			t.warn("parserOptions is not an object, skipping")
		} else {
			var rest []jsast.Node
			for _, m := range po.Props {
				if p, ok := m.(*jsast.Property); ok && (p.Key == "ecmaVersion" || p.Key == "sourceType") {
					props = append(props, jsast.Prop(p.Key, p.Value))
					continue
				}
				rest = append(rest, m)
			}
			if len(rest) > 0 {
				props = append(props, jsast.Prop("parserOptions", jsast.Obj(rest...)))
			}
		}
	}
	if len(props) == 0 {
		return nil
	}
	return jsast.Obj(props...)
}

// globals merges enabled environments, as spreads from the globals
// package, with explicitly declared globals.
func (t *translator) globals(obj *jsast.Object) *jsast.Object {
	var members []jsast.Node
	if v, ok := obj.Get("env"); ok {
		env, ok := v.(*jsast.Object)
		if !ok {
			t.warn("env is not an object, skipping")
		} else {
			for _, m := range env.Props {
				p, ok := m.(*jsast.Property)
				if !ok || !isTrue(p.Value) {
					continue
				}
				g := t.imports.def("globals", "globals")
				members = append(members, jsast.SpreadOf(jsast.Dot(jsast.Id(g), envGlobals(p.Key))))
			}
		}
	}
	if v, ok := obj.Get("globals"); ok {
		if g, ok := v.(*jsast.Object); ok {
			members = append(members, g.Props...)
		}
	}
	if len(members) == 0 {
		return nil
	}
	return jsast.Obj(members...)
}

func (t *translator) plugins(obj *jsast.Object) *jsast.Object {
	v, ok := obj.Get("plugins")
	if !ok {
		return nil
	}
	names, ok := jsast.Strings(v)
	if !ok {
		t.warn("plugins is not a string list, skipping")
		return nil
	}
	seen := map[string]bool{}
	var props []jsast.Node
	for _, name := range names {
		p := resolvePlugin(name)
		if seen[p.key] {
			continue
		}
		seen[p.key] = true
		props = append(props, jsast.Prop(p.key, jsast.Id(t.imports.def(p.pkg, p.ident))))
	}
	if len(props) == 0 {
		return nil
	}
	return jsast.Obj(props...)
}

func linterOptions(obj *jsast.Object) *jsast.Object {
	var props []jsast.Node
	for _, key := range []string{"noInlineConfig", "reportUnusedDisableDirectives"} {
		if v, ok := obj.Get(key); ok {
			props = append(props, jsast.Prop(key, v))
		}
	}
	if len(props) == 0 {
		return nil
	}
	return jsast.Obj(props...)
}

func isTrue(n jsast.Node) bool {
	l, ok := n.(*jsast.Literal)
	return ok && l.Kind == jsast.BoolLit && l.Value == "true"
}

func isEmptyObject(n jsast.Node) bool {
	o, ok := n.(*jsast.Object)
	return ok && len(o.Props) == 0
}
