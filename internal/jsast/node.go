// Package jsast is a small syntax tree for the JavaScript and TypeScript
// configuration modules found in plugin projects. It understands imports,
// default exports, top-level declarations and the literal expressions used
// by config files; everything else is kept as raw source text.
//
// Trees are immutable. Edits build new nodes and splice them into a File,
// and printing copies untouched source verbatim.
package jsast

// Span is a byte range in the source a node was parsed from. Synthesized
// nodes have the zero Span.
type Span struct {
	Start, End int
}

// Valid reports whether the span refers to source text.
func (s Span) Valid() bool { return s.End > s.Start }

func (s Span) contains(o Span) bool { return s.Start <= o.Start && o.End <= s.End }

// Node is any expression, object member or statement.
type Node interface {
	Span() Span
	node()
}

// Stmt is a top-level statement.
type Stmt interface {
	Node
	lead() int
}

type pos struct{ span Span }

func (p pos) Span() Span { return p.span }
func (pos) node()        {}

type stmtPos struct {
	pos
	leadAt int
}

func (s stmtPos) lead() int { return s.leadAt }

// LitKind classifies literals.
type LitKind int

const (
	StringLit LitKind = iota
	NumberLit
	BoolLit
	NullLit
	UndefinedLit
	TemplateLit
	RegexLit
)

// Ident is a bare identifier reference.
type Ident struct {
	pos
	Name string
}

// Literal is a primitive literal. Value holds the decoded string for
// string and template literals and the raw text otherwise.
type Literal struct {
	pos
	Kind  LitKind
	Raw   string
	Value string
}

// Member is a property access. For computed access Property holds the raw
// index expression.
type Member struct {
	pos
	Object   Node
	Property string
	Computed bool
}

// Call is a function call.
type Call struct {
	pos
	Callee Node
	Args   []Node
}

// Object is an object literal. Props holds *Property, *Spread and *Unknown
// members in source order.
type Object struct {
	pos
	Props []Node
}

// Property is a key/value object member.
type Property struct {
	pos
	Key       string
	Quoted    bool
	Value     Node
	Shorthand bool
}

// Array is an array literal.
type Array struct {
	pos
	Elems []Node

	trailingComma bool
	src           string
	from          *Array
}

// Spread is a spread element in an array, object or argument list.
type Spread struct {
	pos
	Arg Node
}

// Unknown is an expression the parser does not model, kept as source text.
type Unknown struct {
	pos
	Raw string
}

// ImportName is one named import binding.
type ImportName struct {
	Name  string
	Alias string
}

// Local returns the binding the import introduces.
func (n ImportName) Local() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Name
}

// Import is an import declaration.
type Import struct {
	stmtPos
	Default   string
	Namespace string
	Named     []ImportName
	Source    string
	TypeOnly  bool
}

// ExportDefault is an `export default <expr>` statement.
type ExportDefault struct {
	stmtPos
	Value Node
}

// VarDecl is a single-binding const, let or var declaration.
type VarDecl struct {
	stmtPos
	Keyword  string
	Name     string
	Type     string
	Init     Node
	Exported bool
}

// Assign is an assignment statement such as `module.exports = ...`.
type Assign struct {
	stmtPos
	Target string
	Value  Node
}

// RawStmt is a statement kept as source text.
type RawStmt struct {
	stmtPos
	Raw string
}

// Walk visits n and its children depth-first. Children are skipped when fn
// returns false.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *Member:
		Walk(v.Object, fn)
	case *Call:
		Walk(v.Callee, fn)
		for _, a := range v.Args {
			Walk(a, fn)
		}
	case *Object:
		for _, p := range v.Props {
			Walk(p, fn)
		}
	case *Property:
		Walk(v.Value, fn)
	case *Array:
		for _, e := range v.Elems {
			Walk(e, fn)
		}
	case *Spread:
		Walk(v.Arg, fn)
	case *ExportDefault:
		Walk(v.Value, fn)
	case *VarDecl:
		Walk(v.Init, fn)
	case *Assign:
		Walk(v.Value, fn)
	}
}

// Get returns the value of the first non-spread property named key.
func (o *Object) Get(key string) (Node, bool) {
	for _, m := range o.Props {
		if p, ok := m.(*Property); ok && p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Keys returns property keys in source order.
func (o *Object) Keys() []string {
	var out []string
	for _, m := range o.Props {
		if p, ok := m.(*Property); ok {
			out = append(out, p.Key)
		}
	}
	return out
}

// StringValue returns the decoded value of a string literal.
func StringValue(n Node) (string, bool) {
	l, ok := n.(*Literal)
	if !ok || (l.Kind != StringLit && l.Kind != TemplateLit) {
		return "", false
	}
	return l.Value, true
}

// Strings returns the values of a string literal or an array of them.
func Strings(n Node) ([]string, bool) {
	if s, ok := StringValue(n); ok {
		return []string{s}, true
	}
	a, ok := n.(*Array)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(a.Elems))
	for _, e := range a.Elems {
		s, ok := StringValue(e)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
