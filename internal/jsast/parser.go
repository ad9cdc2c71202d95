package jsast

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

type parser struct {
	src  string
	toks []token
	i    int
}

// Parse parses a JavaScript or TypeScript module. Statements and
// expressions outside the modeled subset are preserved as raw text; only
// lexical errors and unbalanced brackets fail.
func Parse(src string) (*File, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	f := &File{src: src}
	lead := 0
	for p.peek().kind != tEOF {
		if p.peek().is(";") {
			p.next()
			continue
		}
		st, err := p.statement(lead)
		if err != nil {
			return nil, err
		}
		f.Body = append(f.Body, st)
		lead = st.Span().End
	}
	f.tail = lead
	return f, nil
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) peekAt(n int) token {
	if p.i+n < len(p.toks) {
		return p.toks[p.i+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tEOF {
		p.i++
	}
	return t
}

func (p *parser) prevEnd() int {
	if p.i == 0 {
		return 0
	}
	return p.toks[p.i-1].end
}

func (p *parser) spanFrom(t token) Span {
	return Span{Start: t.start, End: p.prevEnd()}
}

func (p *parser) statement(lead int) (Stmt, error) {
	start := p.i
	t := p.peek()

	var (
		st  Stmt
		ok  bool
		err error
	)
	switch {
	case t.kind == tIdent && t.text == "import" && !p.peekAt(1).is("(") && !p.peekAt(1).is("."):
		st, ok, err = p.importDecl(lead)
	case t.kind == tIdent && t.text == "export" && p.peekAt(1).is("default"):
		st, ok, err = p.exportDefault(lead)
	case t.kind == tIdent && t.text == "export" && isDeclKeyword(p.peekAt(1)):
		st, ok, err = p.varDecl(lead, true)
	case isDeclKeyword(t):
		st, ok, err = p.varDecl(lead, false)
	case t.is("module") && p.peekAt(1).is(".") && p.peekAt(2).is("exports") && p.peekAt(3).is("="):
		st, ok, err = p.assign(lead)
	}
	if err != nil {
		return nil, err
	}
	if ok {
		return st, nil
	}
	p.i = start
	return p.rawStmt(lead)
}

func isDeclKeyword(t token) bool {
	return t.kind == tIdent && (t.text == "const" || t.text == "let" || t.text == "var")
}

func (p *parser) importDecl(lead int) (Stmt, bool, error) {
	first := p.next()
	imp := &Import{}
	if p.peek().is("type") {
		n := p.peekAt(1)
		if n.is("{") || n.is("*") || (n.kind == tIdent && n.text != "from") {
			p.next()
			imp.TypeOnly = true
		}
	}

	if p.peek().kind != tString {
	clauses:
		for {
			t := p.peek()
			switch {
			case t.kind == tIdent && t.text != "from" && imp.Default == "" && imp.Namespace == "" && imp.Named == nil:
				imp.Default = p.next().text
			case t.is("*"):
				p.next()
				if !p.peek().is("as") || p.peekAt(1).kind != tIdent {
					return nil, false, nil
				}
				p.next()
				imp.Namespace = p.next().text
			case t.is("{"):
				p.next()
				imp.Named = []ImportName{}
				for !p.peek().is("}") {
					nt := p.peek()
					if nt.kind != tIdent && nt.kind != tString {
						return nil, false, nil
					}
					p.next()
					name := nt.text
					if name == "type" && p.peek().kind == tIdent && !p.peek().is("as") {
						name += " " + p.next().text
					}
					var alias string
					if p.peek().is("as") {
						p.next()
						if p.peek().kind != tIdent {
							return nil, false, nil
						}
						alias = p.next().text
					}
					imp.Named = append(imp.Named, ImportName{Name: name, Alias: alias})
					if p.peek().is(",") {
						p.next()
						continue
					}
					if !p.peek().is("}") {
						return nil, false, nil
					}
				}
				p.next()
			default:
				return nil, false, nil
			}
			if !p.peek().is(",") {
				break clauses
			}
			p.next()
		}
		if !p.peek().is("from") {
			return nil, false, nil
		}
		p.next()
	}
	if p.peek().kind != tString {
		return nil, false, nil
	}
	imp.Source = decodeString(p.next().text)
	if !p.finishStmt() {
		return nil, false, nil
	}
	imp.stmtPos = stmtPos{pos: pos{p.spanFrom(first)}, leadAt: lead}
	return imp, true, nil
}

func (p *parser) exportDefault(lead int) (Stmt, bool, error) {
	first := p.next()
	p.next()
	v, err := p.expr(false)
	if err != nil {
		return nil, false, err
	}
	if !p.finishStmt() {
		return nil, false, nil
	}
	return &ExportDefault{stmtPos: stmtPos{pos: pos{p.spanFrom(first)}, leadAt: lead}, Value: v}, true, nil
}

func (p *parser) varDecl(lead int, exported bool) (Stmt, bool, error) {
	first := p.peek()
	if exported {
		p.next()
	}
	d := &VarDecl{Keyword: p.next().text, Exported: exported}
	if p.peek().kind != tIdent {
		return nil, false, nil
	}
	d.Name = p.next().text

	if p.peek().is(":") {
		p.next()
		typeStart := p.peek().start
		depth := 0
		for {
			t := p.peek()
			if t.kind == tEOF || (depth == 0 && (t.is("=") || t.is(";"))) {
				break
			}
			switch t.text {
			case "(", "[", "{", "<":
				depth++
			case ")", "]", "}", ">":
				depth--
			}
			if depth < 0 {
				return nil, false, nil
			}
			p.next()
		}
		d.Type = strings.TrimSpace(p.src[typeStart:p.prevEnd()])
	}

	if p.peek().is("=") {
		p.next()
		v, err := p.expr(false)
		if err != nil {
			return nil, false, err
		}
		d.Init = v
	}
	if !p.finishStmt() {
		return nil, false, nil
	}
	d.stmtPos = stmtPos{pos: pos{p.spanFrom(first)}, leadAt: lead}
	return d, true, nil
}

func (p *parser) assign(lead int) (Stmt, bool, error) {
	first := p.peek()
	p.i += 4
	v, err := p.expr(false)
	if err != nil {
		return nil, false, err
	}
	if !p.finishStmt() {
		return nil, false, nil
	}
	return &Assign{
		stmtPos: stmtPos{pos: pos{p.spanFrom(first)}, leadAt: lead},
		Target:  "module.exports",
		Value:   v,
	}, true, nil
}

func (p *parser) rawStmt(lead int) (Stmt, error) {
	first := p.peek()
	if _, err := p.skip(false); err != nil {
		return nil, err
	}
	if p.peek().is(";") {
		p.next()
	}
	span := p.spanFrom(first)
	return &RawStmt{stmtPos: stmtPos{pos: pos{span}, leadAt: lead}, Raw: p.src[span.Start:span.End]}, nil
}

// finishStmt consumes an optional semicolon and reports whether the
// statement ends here.
func (p *parser) finishStmt() bool {
	t := p.peek()
	if t.is(";") {
		p.next()
		return true
	}
	return t.kind == tEOF || t.nlBefore
}

// expr parses an expression. Anything outside the modeled subset becomes an
// Unknown spanning up to the next terminator: a comma or closing bracket in
// container context, the end of the statement otherwise.
func (p *parser) expr(container bool) (Node, error) {
	start := p.i
	n, ok, err := p.postfix()
	if err != nil {
		return nil, err
	}
	if ok && p.atEnd(container) {
		return n, nil
	}
	p.i = start
	s := p.peek().start
	end, err := p.skip(container)
	if err != nil {
		return nil, err
	}
	return &Unknown{pos: pos{Span{Start: s, End: end}}, Raw: p.src[s:end]}, nil
}

func (p *parser) atEnd(container bool) bool {
	t := p.peek()
	if container {
		return t.is(",") || isCloser(t)
	}
	if t.is(";") || t.kind == tEOF {
		return true
	}
	return t.nlBefore && !continues(p.toks[p.i-1], t)
}

// skip consumes a balanced token run up to the next terminator and returns
// the end offset of the last consumed token.
func (p *parser) skip(container bool) (int, error) {
	startI := p.i
	depth := 0
	for {
		t := p.peek()
		if t.kind == tEOF {
			if depth > 0 {
				return 0, &SyntaxError{Offset: t.start, Msg: "unexpected end of input"}
			}
			break
		}
		if depth == 0 {
			if container && (t.is(",") || isCloser(t)) {
				break
			}
			if !container {
				if t.is(";") {
					break
				}
				if isCloser(t) {
					return 0, &SyntaxError{Offset: t.start, Msg: "unexpected " + strconv.Quote(t.text)}
				}
				if p.i > startI && t.nlBefore && !continues(p.toks[p.i-1], t) {
					break
				}
			}
		}
		switch {
		case isOpener(t):
			depth++
		case isCloser(t):
			depth--
		}
		p.next()
	}
	if p.i == startI {
		t := p.peek()
		return 0, &SyntaxError{Offset: t.start, Msg: "unexpected " + strconv.Quote(t.text)}
	}
	return p.prevEnd(), nil
}

func isOpener(t token) bool {
	return t.kind == tPunct && (t.text == "(" || t.text == "[" || t.text == "{")
}

func isCloser(t token) bool {
	return t.kind == tPunct && (t.text == ")" || t.text == "]" || t.text == "}")
}

// continues reports whether t, which starts a new line, carries on the
// expression ending with prev instead of starting a new statement.
func continues(prev, t token) bool {
	if prev.kind == tPunct {
		switch prev.text {
		case ")", "]", "}", "++", "--":
		default:
			return true
		}
	}
	switch t.kind {
	case tPunct:
		switch t.text {
		case "++", "--", "!", "~", "@", "#", "...":
			return false
		case "{":
			return prev.is(")")
		}
		return true
	case tIdent:
		switch t.text {
		case "as", "satisfies", "in", "instanceof", "else", "catch", "finally", "extends", "implements":
			return true
		}
	}
	return false
}

func (p *parser) postfix() (Node, bool, error) {
	first := p.peek()
	n, ok, err := p.primary()
	if !ok || err != nil {
		return nil, false, err
	}
	for {
		t := p.peek()
		switch {
		case t.is("."):
			name := p.peekAt(1)
			if name.kind != tIdent {
				return nil, false, nil
			}
			p.i += 2
			n = &Member{pos: pos{p.spanFrom(first)}, Object: n, Property: name.text}
		case t.is("[") && !t.nlBefore:
			p.next()
			s := p.peek().start
			if _, err := p.expr(true); err != nil {
				return nil, false, err
			}
			if !p.peek().is("]") {
				return nil, false, nil
			}
			raw := p.src[s:p.prevEnd()]
			p.next()
			n = &Member{pos: pos{p.spanFrom(first)}, Object: n, Property: raw, Computed: true}
		case t.is("(") && !t.nlBefore:
			args, _, ok, err := p.list(")")
			if !ok || err != nil {
				return nil, false, err
			}
			n = &Call{pos: pos{p.spanFrom(first)}, Callee: n, Args: args}
		default:
			return n, true, nil
		}
	}
}

func (p *parser) primary() (Node, bool, error) {
	t := p.peek()
	lit := func(kind LitKind, value string) (Node, bool, error) {
		p.next()
		return &Literal{pos: pos{Span{Start: t.start, End: t.end}}, Kind: kind, Raw: t.text, Value: value}, true, nil
	}
	switch t.kind {
	case tString:
		return lit(StringLit, decodeString(t.text))
	case tNumber:
		return lit(NumberLit, t.text)
	case tRegex:
		return lit(RegexLit, t.text)
	case tTemplate:
		if strings.Contains(t.text, "${") {
			return nil, false, nil
		}
		return lit(TemplateLit, t.text[1:len(t.text)-1])
	case tIdent:
		switch t.text {
		case "true", "false":
			return lit(BoolLit, t.text)
		case "null":
			return lit(NullLit, t.text)
		case "undefined":
			return lit(UndefinedLit, t.text)
		case "new", "function", "async", "class", "typeof", "void", "delete", "await", "yield":
			return nil, false, nil
		}
		p.next()
		return &Ident{pos: pos{Span{Start: t.start, End: t.end}}, Name: t.text}, true, nil
	case tPunct:
		switch t.text {
		case "{":
			return p.object()
		case "[":
			elems, trailing, ok, err := p.list("]")
			if !ok || err != nil {
				return nil, false, err
			}
			return &Array{pos: pos{p.spanFrom(t)}, Elems: elems, trailingComma: trailing, src: p.src}, true, nil
		}
	}
	return nil, false, nil
}

// list parses a bracketed, comma separated list starting at the opener.
func (p *parser) list(closer string) ([]Node, bool, bool, error) {
	p.next()
	items := []Node{}
	trailing := false
	for {
		if p.peek().is(closer) {
			p.next()
			return items, trailing, true, nil
		}
		trailing = false

		var (
			item Node
			err  error
		)
		if t := p.peek(); t.is("...") {
			p.next()
			var arg Node
			if arg, err = p.expr(true); err == nil {
				item = &Spread{pos: pos{p.spanFrom(t)}, Arg: arg}
			}
		} else {
			item, err = p.expr(true)
		}
		if err != nil {
			return nil, false, false, err
		}
		items = append(items, item)

		switch {
		case p.peek().is(","):
			p.next()
			trailing = true
		case p.peek().is(closer):
		default:
			return nil, false, false, nil
		}
	}
}

func (p *parser) object() (Node, bool, error) {
	open := p.next()
	obj := &Object{Props: []Node{}}
	for {
		t := p.peek()
		if t.is("}") {
			p.next()
			break
		}

		var m Node
		switch {
		case t.is("..."):
			p.next()
			arg, err := p.expr(true)
			if err != nil {
				return nil, false, err
			}
			m = &Spread{pos: pos{p.spanFrom(t)}, Arg: arg}
		case (t.kind == tIdent || t.kind == tString || t.kind == tNumber) && p.peekAt(1).is(":"):
			p.i += 2
			v, err := p.expr(true)
			if err != nil {
				return nil, false, err
			}
			prop := &Property{Key: t.text, Value: v}
			if t.kind == tString {
				prop.Key, prop.Quoted = decodeString(t.text), true
			}
			prop.span = p.spanFrom(t)
			m = prop
		case t.kind == tIdent && (p.peekAt(1).is(",") || p.peekAt(1).is("}")):
			p.next()
			span := Span{Start: t.start, End: t.end}
			m = &Property{pos: pos{span}, Key: t.text, Value: &Ident{pos: pos{span}, Name: t.text}, Shorthand: true}
		default:
			end, err := p.skip(true)
			if err != nil {
				return nil, false, err
			}
			m = &Unknown{pos: pos{Span{Start: t.start, End: end}}, Raw: p.src[t.start:end]}
		}
		obj.Props = append(obj.Props, m)

		switch {
		case p.peek().is(","):
			p.next()
		case p.peek().is("}"):
		default:
			return nil, false, nil
		}
	}
	obj.span = p.spanFrom(open)
	return obj, true, nil
}

// decodeString returns the value of a quoted string literal.
func decodeString(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	body := raw[1 : len(raw)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := body[i]; e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
		case 'x':
			if i+2 < len(body) {
				if v, err := strconv.ParseUint(body[i+1:i+3], 16, 8); err == nil {
					b.WriteRune(rune(v))
					i += 2
					continue
				}
			}
			b.WriteByte(e)
		case 'u':
			hex, width := "", 0
			if i+1 < len(body) && body[i+1] == '{' {
				if end := strings.IndexByte(body[i:], '}'); end > 0 {
					hex, width = body[i+2:i+end], end
				}
			} else if i+4 < len(body) {
				hex, width = body[i+1:i+5], 4
			}
			if v, err := strconv.ParseUint(hex, 16, 32); err == nil && utf8.ValidRune(rune(v)) {
				b.WriteRune(rune(v))
				i += width
				continue
			}
			b.WriteByte(e)
		default:
			b.WriteByte(e)
		}
	}
	return b.String()
}
