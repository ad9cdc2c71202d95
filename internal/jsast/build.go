package jsast

import (
	"strconv"
	"strings"
)

// Id builds an identifier.
func Id(name string) *Ident { return &Ident{Name: name} }

// Str builds a single-quoted string literal.
func Str(s string) *Literal {
	return &Literal{Kind: StringLit, Raw: Quote(s), Value: s}
}

// Num builds a numeric literal.
func Num(v float64) *Literal {
	raw := strconv.FormatFloat(v, 'f', -1, 64)
	return &Literal{Kind: NumberLit, Raw: raw, Value: raw}
}

// NumRaw builds a numeric literal from its source text.
func NumRaw(raw string) *Literal {
	return &Literal{Kind: NumberLit, Raw: raw, Value: raw}
}

// Bool builds a boolean literal.
func Bool(v bool) *Literal {
	raw := strconv.FormatBool(v)
	return &Literal{Kind: BoolLit, Raw: raw, Value: raw}
}

// Null builds the null literal.
func Null() *Literal { return &Literal{Kind: NullLit, Raw: "null", Value: "null"} }

// Dot builds a chain of property accesses: Dot(Id("js"), "configs", "all").
// Segments that are not identifiers use computed access.
func Dot(obj Node, props ...string) Node {
	n := obj
	for _, p := range props {
		if isIdentifier(p) {
			n = &Member{Object: n, Property: p}
		} else {
			n = &Member{Object: n, Property: Quote(p), Computed: true}
		}
	}
	return n
}

// CallOf builds a call expression.
func CallOf(callee Node, args ...Node) *Call {
	return &Call{Callee: callee, Args: append([]Node{}, args...)}
}

// Prop builds an object property.
func Prop(key string, value Node) *Property {
	return &Property{Key: key, Quoted: !isIdentifier(key), Value: value}
}

// Obj builds an object literal from members.
func Obj(props ...Node) *Object {
	return &Object{Props: append([]Node{}, props...)}
}

// Arr builds an array literal.
func Arr(elems ...Node) *Array {
	return &Array{Elems: append([]Node{}, elems...)}
}

// StrArr builds an array of string literals.
func StrArr(values ...string) *Array {
	a := &Array{Elems: make([]Node, 0, len(values))}
	for _, v := range values {
		a.Elems = append(a.Elems, Str(v))
	}
	return a
}

// SpreadOf builds a spread element.
func SpreadOf(arg Node) *Spread { return &Spread{Arg: arg} }

// Raw wraps source text as an expression.
func Raw(text string) *Unknown { return &Unknown{Raw: text} }

// RawStatement wraps source text as a statement.
func RawStatement(text string) *RawStmt { return &RawStmt{Raw: text} }

// DefaultImport builds `import name from 'source';`.
func DefaultImport(name, source string) *Import {
	return &Import{Default: name, Source: source}
}

// NamedImport builds `import { a, b } from 'source';`.
func NamedImport(source string, names ...string) *Import {
	imp := &Import{Source: source}
	for _, n := range names {
		imp.Named = append(imp.Named, ImportName{Name: n})
	}
	return imp
}

// ExportDefaultOf builds `export default <value>;`.
func ExportDefaultOf(value Node) *ExportDefault {
	return &ExportDefault{Value: value}
}

// Const builds `const name = init;`.
func Const(name string, init Node) *VarDecl {
	return &VarDecl{Keyword: "const", Name: name, Init: init}
}

// Append returns a copy of a with elems added at the end. When a was
// parsed from source, printing the copy keeps the original text and its
// formatting.
func Append(a *Array, elems ...Node) *Array {
	out := &Array{
		Elems:         append(append([]Node{}, a.Elems...), elems...),
		trailingComma: a.trailingComma,
	}
	switch {
	case a.from != nil:
		out.from = a.from
	case a.span.Valid() && a.src != "":
		out.from = a
	}
	return out
}

// With returns a copy of o with key set to value. An existing property is
// replaced in place; a new one is appended.
func With(o *Object, key string, value Node) *Object {
	out := &Object{Props: make([]Node, 0, len(o.Props)+1)}
	replaced := false
	for _, m := range o.Props {
		if p, ok := m.(*Property); ok && p.Key == key && !replaced {
			out.Props = append(out.Props, Prop(key, value))
			replaced = true
			continue
		}
		out.Props = append(out.Props, m)
	}
	if !replaced {
		out.Props = append(out.Props, Prop(key, value))
	}
	return out
}

// Without returns a copy of o without the named properties.
func Without(o *Object, keys ...string) *Object {
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	out := &Object{Props: make([]Node, 0, len(o.Props))}
	for _, m := range o.Props {
		if p, ok := m.(*Property); ok && drop[p.Key] {
			continue
		}
		out.Props = append(out.Props, m)
	}
	return out
}

// CamelCase turns a package-ish name such as "react-hooks" or "@org/x"
// into a valid identifier ("reactHooks", "orgX").
func CamelCase(s string) string {
	var b strings.Builder
	upper := false
	for _, r := range s {
		if !isIdentPart(r) || r == '$' {
			upper = b.Len() > 0
			continue
		}
		if b.Len() == 0 && !isIdentStart(r) {
			b.WriteByte('_')
		}
		if upper {
			b.WriteString(strings.ToUpper(string(r)))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
