package jsast

import (
	"strings"
)

const indentUnit = "  "

// maxInline is the longest array printed on a single line.
const maxInline = 72

// PrintNode renders a node on its own, as it would appear at the start of
// a line with no indentation.
func PrintNode(n Node) string {
	if st, ok := n.(Stmt); ok {
		return printStmt(st)
	}
	return printNode(n, "")
}

func printStmt(st Stmt) string {
	switch v := st.(type) {
	case *Import:
		return printImport(v)
	case *ExportDefault:
		return "export default " + printNode(v.Value, "") + ";"
	case *VarDecl:
		var b strings.Builder
		if v.Exported {
			b.WriteString("export ")
		}
		kw := v.Keyword
		if kw == "" {
			kw = "const"
		}
		b.WriteString(kw + " " + v.Name)
		if v.Type != "" {
			b.WriteString(": " + v.Type)
		}
		if v.Init != nil {
			b.WriteString(" = " + printNode(v.Init, ""))
		}
		b.WriteString(";")
		return b.String()
	case *Assign:
		return v.Target + " = " + printNode(v.Value, "") + ";"
	case *RawStmt:
		return v.Raw
	}
	return ""
}

func printImport(v *Import) string {
	var b strings.Builder
	b.WriteString("import ")
	if v.TypeOnly {
		b.WriteString("type ")
	}
	var clauses []string
	if v.Default != "" {
		clauses = append(clauses, v.Default)
	}
	if v.Namespace != "" {
		clauses = append(clauses, "* as "+v.Namespace)
	}
	if len(v.Named) > 0 {
		names := make([]string, 0, len(v.Named))
		for _, n := range v.Named {
			if n.Alias != "" && n.Alias != n.Name {
				names = append(names, n.Name+" as "+n.Alias)
			} else {
				names = append(names, n.Name)
			}
		}
		clauses = append(clauses, "{ "+strings.Join(names, ", ")+" }")
	}
	if len(clauses) > 0 {
		b.WriteString(strings.Join(clauses, ", ") + " from ")
	}
	b.WriteString(Quote(v.Source) + ";")
	return b.String()
}

func printNode(n Node, indent string) string {
	switch v := n.(type) {
	case nil:
		return "undefined"
	case *Ident:
		return v.Name
	case *Literal:
		if v.Kind == StringLit {
			return Quote(v.Value)
		}
		return v.Raw
	case *Unknown:
		return v.Raw
	case *Spread:
		return "..." + printNode(v.Arg, indent)
	case *Member:
		obj := printNode(v.Object, indent)
		if v.Computed {
			return obj + "[" + v.Property + "]"
		}
		return obj + "." + v.Property
	case *Call:
		args := make([]string, 0, len(v.Args))
		for _, a := range v.Args {
			args = append(args, printNode(a, indent))
		}
		return printNode(v.Callee, indent) + "(" + strings.Join(args, ", ") + ")"
	case *Property:
		if v.Shorthand {
			if id, ok := v.Value.(*Ident); ok && id.Name == v.Key {
				return v.Key
			}
		}
		return printKey(v.Key) + ": " + printNode(v.Value, indent)
	case *Object:
		return printObject(v, indent)
	case *Array:
		if v.from != nil {
			return printAppended(v)
		}
		return printArray(v.Elems, indent)
	case Stmt:
		return printStmt(v)
	}
	return ""
}

func printKey(key string) string {
	if isIdentifier(key) {
		return key
	}
	return Quote(key)
}

func printObject(o *Object, indent string) string {
	if len(o.Props) == 0 {
		return "{}"
	}
	inner := indent + indentUnit
	var b strings.Builder
	b.WriteString("{\n")
	for _, m := range o.Props {
		b.WriteString(inner + printNode(m, inner) + ",\n")
	}
	b.WriteString(indent + "}")
	return b.String()
}

func printArray(elems []Node, indent string) string {
	if len(elems) == 0 {
		return "[]"
	}
	parts := make([]string, 0, len(elems))
	inline := true
	width := 2
	for _, e := range elems {
		switch e.(type) {
		case *Object, *Array, *Call, *Unknown:
			inline = false
		}
		s := printNode(e, indent+indentUnit)
		if strings.Contains(s, "\n") {
			inline = false
		}
		width += len(s) + 2
		parts = append(parts, s)
	}
	if inline && width <= maxInline {
		return "[" + strings.Join(parts, ", ") + "]"
	}
	inner := indent + indentUnit
	var b strings.Builder
	b.WriteString("[\n")
	for _, s := range parts {
		b.WriteString(inner + s + ",\n")
	}
	b.WriteString(indent + "]")
	return b.String()
}

// printAppended reprints an array derived by Append, keeping the original
// text and inserting the new elements before the closing bracket.
func printAppended(a *Array) string {
	orig := a.from
	src := orig.src
	text := src[orig.span.Start:orig.span.End]
	added := a.Elems[len(orig.Elems):]
	multiline := strings.Contains(text, "\n")

	if len(orig.Elems) == 0 {
		indent := indentAt(src, orig.span.Start)
		if multiline {
			return printArray(added, indent)
		}
		return printArray(added, "")
	}

	last := orig.Elems[len(orig.Elems)-1].Span()
	prefix := src[orig.span.Start:last.End]
	rest := src[last.End:orig.span.End]
	if trimmed := strings.TrimLeft(rest, " \t"); strings.HasPrefix(trimmed, ",") {
		rest = trimmed[1:]
	}

	sep := " "
	if multiline {
		sep = "\n" + indentAt(src, last.Start)
	}
	indent := strings.TrimPrefix(sep, "\n")
	var b strings.Builder
	b.WriteString(prefix)
	for _, e := range added {
		b.WriteString("," + sep + printNode(e, indent))
	}
	if orig.trailingComma {
		b.WriteString(",")
	}
	b.WriteString(rest)
	return b.String()
}

// Quote renders s as a single-quoted string literal.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isIdentStart(r) {
			return false
		}
		if !isIdentPart(r) {
			return false
		}
	}
	return true
}
