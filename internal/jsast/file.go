package jsast

import (
	"sort"
	"strings"
)

// File is a parsed module: an index-addressed statement list over the
// original source. Edit methods return a new File and leave the receiver
// untouched.
type File struct {
	Body []Stmt

	src   string
	tail  int
	edits []edit
}

type edit struct {
	span Span
	node Node
}

// Source returns the text the file was parsed from.
func (f *File) Source() string { return f.src }

func (f *File) clone() *File {
	nf := *f
	nf.Body = append([]Stmt(nil), f.Body...)
	nf.edits = append([]edit(nil), f.edits...)
	return &nf
}

// Insert places stmts before index i. An index equal to len(Body) appends.
func (f *File) Insert(i int, stmts ...Stmt) *File {
	nf := f.clone()
	if i < 0 {
		i = 0
	}
	if i > len(nf.Body) {
		i = len(nf.Body)
	}
	body := make([]Stmt, 0, len(nf.Body)+len(stmts))
	body = append(body, nf.Body[:i]...)
	body = append(body, stmts...)
	body = append(body, nf.Body[i:]...)
	nf.Body = body
	return nf
}

// Remove drops the statement at index i.
func (f *File) Remove(i int) *File {
	nf := f.clone()
	nf.Body = append(nf.Body[:i], nf.Body[i+1:]...)
	return nf
}

// Replace swaps the statement at index i.
func (f *File) Replace(i int, st Stmt) *File {
	nf := f.clone()
	nf.Body[i] = st
	return nf
}

// ReplaceNode substitutes a node parsed from this file, wherever it sits,
// with repl. Any earlier substitution overlapping the same range is
// discarded.
func (f *File) ReplaceNode(old, repl Node) *File {
	nf := f.clone()
	span := old.Span()
	kept := nf.edits[:0]
	for _, e := range nf.edits {
		if e.span.End <= span.Start || e.span.Start >= span.End {
			kept = append(kept, e)
		}
	}
	nf.edits = append(kept, edit{span: span, node: repl})
	return nf
}

// Imports returns the indexes of import declarations in Body.
func (f *File) Imports() []int {
	var out []int
	for i, st := range f.Body {
		if _, ok := st.(*Import); ok {
			out = append(out, i)
		}
	}
	return out
}

// FindImport returns the first import of source and its index.
func (f *File) FindImport(source string) (*Import, int) {
	for i, st := range f.Body {
		if imp, ok := st.(*Import); ok && imp.Source == source {
			return imp, i
		}
	}
	return nil, -1
}

// Binds reports whether any import of source introduces the local name.
func (f *File) Binds(source, local string) bool {
	for _, st := range f.Body {
		imp, ok := st.(*Import)
		if !ok || imp.Source != source {
			continue
		}
		if imp.Default == local || imp.Namespace == local {
			return true
		}
		for _, n := range imp.Named {
			if n.Local() == local {
				return true
			}
		}
	}
	return false
}

// AddImport inserts imp after the last import, or at the top of a file
// without imports.
func (f *File) AddImport(imp *Import) *File {
	idx := f.Imports()
	if len(idx) == 0 {
		return f.Insert(0, imp)
	}
	return f.Insert(idx[len(idx)-1]+1, imp)
}

// Print renders the file. Parsed statements are copied from the source
// together with their leading comments; substituted and synthesized nodes
// are printed fresh.
func (f *File) Print() string {
	var b strings.Builder
	lastSynth := false
	for _, st := range f.Body {
		span := st.Span()
		if !span.Valid() {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(printStmt(st))
			lastSynth = true
			continue
		}
		lead := f.src[st.lead():span.Start]
		if lastSynth && !strings.Contains(lead, "\n") {
			b.WriteString("\n")
		}
		b.WriteString(lead)
		b.WriteString(f.spliced(span))
		lastSynth = false
	}
	tail := f.src[f.tail:]
	if lastSynth && !strings.HasPrefix(tail, "\n") && !strings.HasPrefix(tail, "\r\n") {
		b.WriteString("\n")
	}
	b.WriteString(tail)
	return b.String()
}

// spliced returns the source of span with node substitutions applied.
func (f *File) spliced(span Span) string {
	var inside []edit
	for _, e := range f.edits {
		if span.contains(e.span) {
			inside = append(inside, e)
		}
	}
	if len(inside) == 0 {
		return f.src[span.Start:span.End]
	}
	sort.Slice(inside, func(i, j int) bool { return inside[i].span.Start < inside[j].span.Start })

	var b strings.Builder
	at := span.Start
	for _, e := range inside {
		b.WriteString(f.src[at:e.span.Start])
		b.WriteString(printNode(e.node, indentAt(f.src, e.span.Start)))
		at = e.span.End
	}
	b.WriteString(f.src[at:span.End])
	return b.String()
}

// indentAt returns the leading whitespace of the line containing offset.
func indentAt(src string, offset int) string {
	lineStart := strings.LastIndexByte(src[:offset], '\n') + 1
	end := lineStart
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return src[lineStart:end]
}
