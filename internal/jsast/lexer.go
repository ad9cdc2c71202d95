package jsast

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokKind int

const (
	tEOF tokKind = iota
	tIdent
	tString
	tTemplate
	tNumber
	tRegex
	tPunct
)

type token struct {
	kind     tokKind
	text     string
	start    int
	end      int
	nlBefore bool
}

func (t token) is(text string) bool {
	return (t.kind == tPunct || t.kind == tIdent) && t.text == text
}

// SyntaxError reports where a source file could not be tokenized or parsed.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Msg)
}

// Longest operators first so greedy matching works.
var punctuators = []string{
	"...", "===", "!==", "**=", "??=", "&&=", "||=", "<<=",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "**", "<<",
}

// regexKeywords are identifiers after which a slash starts a regex.
var regexKeywords = map[string]bool{
	"return": true, "typeof": true, "case": true, "do": true, "else": true,
	"in": true, "instanceof": true, "new": true, "delete": true, "void": true,
	"throw": true, "yield": true, "await": true,
}

type lexer struct {
	src  string
	pos  int
	prev *token
}

func tokenize(src string) ([]token, error) {
	l := &lexer{src: src}
	var toks []token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.kind == tEOF {
			return toks, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	nl, err := l.skipTrivia()
	if err != nil {
		return token{}, err
	}
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tEOF, start: start, end: start, nlBefore: nl}, nil
	}

	c := l.src[l.pos]
	var t token
	switch {
	case c == '"' || c == '\'':
		err = l.scanString(c)
		t.kind = tString
	case c == '`':
		err = l.scanTemplate()
		t.kind = tTemplate
	case isDigit(c) || (c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])):
		l.scanNumber()
		t.kind = tNumber
	case isIdentStart(l.peekRune()):
		l.scanIdent()
		t.kind = tIdent
	case c == '/' && l.regexAllowed():
		if l.scanRegex() {
			t.kind = tRegex
		} else {
			l.pos = start + 1
			t.kind = tPunct
		}
	default:
		l.scanPunct()
		t.kind = tPunct
	}
	if err != nil {
		return token{}, err
	}
	t.start, t.end, t.nlBefore = start, l.pos, nl
	t.text = l.src[start:l.pos]
	l.prev = &t
	return t, nil
}

func (l *lexer) skipTrivia() (bool, error) {
	nl := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			nl = true
			l.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			l.pos++
		case strings.HasPrefix(l.src[l.pos:], "//"):
			end := strings.IndexByte(l.src[l.pos:], '\n')
			if end < 0 {
				l.pos = len(l.src)
			} else {
				l.pos += end
			}
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return nl, &SyntaxError{Offset: l.pos, Msg: "unterminated comment"}
			}
			if strings.Contains(l.src[l.pos:l.pos+2+end], "\n") {
				nl = true
			}
			l.pos += end + 4
		case l.pos == 0 && strings.HasPrefix(l.src, "#!"):
			end := strings.IndexByte(l.src, '\n')
			if end < 0 {
				end = len(l.src)
			}
			l.pos = end
		default:
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if r == '\u00a0' || r == '\ufeff' || r == '\u2028' || r == '\u2029' {
				l.pos += size
				continue
			}
			return nl, nil
		}
	}
	return nl, nil
}

func (l *lexer) scanString(quote byte) error {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			l.pos += 2
		case quote:
			l.pos++
			return nil
		case '\n':
			return &SyntaxError{Offset: start, Msg: "unterminated string literal"}
		default:
			l.pos++
		}
	}
	return &SyntaxError{Offset: start, Msg: "unterminated string literal"}
}

func (l *lexer) scanTemplate() error {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) {
		switch {
		case l.src[l.pos] == '\\':
			l.pos += 2
		case l.src[l.pos] == '`':
			l.pos++
			return nil
		case strings.HasPrefix(l.src[l.pos:], "${"):
			l.pos += 2
			depth := 1
			for depth > 0 {
				t, err := l.next()
				if err != nil {
					return err
				}
				switch {
				case t.kind == tEOF:
					return &SyntaxError{Offset: start, Msg: "unterminated template literal"}
				case t.is("{"):
					depth++
				case t.is("}"):
					depth--
				}
			}
		default:
			l.pos++
		}
	}
	return &SyntaxError{Offset: start, Msg: "unterminated template literal"}
}

func (l *lexer) scanNumber() {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if isDigit(c) || isLetter(c) || c == '.' || c == '_' {
			l.pos++
			continue
		}
		prev := l.src[l.pos-1]
		hex := strings.HasPrefix(l.src[start:], "0x") || strings.HasPrefix(l.src[start:], "0X")
		if (c == '+' || c == '-') && (prev == 'e' || prev == 'E') && !hex {
			l.pos++
			continue
		}
		return
	}
}

func (l *lexer) scanIdent() {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isIdentPart(r) {
			return
		}
		l.pos += size
	}
}

// scanRegex consumes a regex literal. It returns false when no closing
// slash appears on the line, in which case the slash is an operator (this
// also covers JSX closing tags).
func (l *lexer) scanRegex() bool {
	i := l.pos + 1
	inClass := false
	for i < len(l.src) {
		switch c := l.src[i]; {
		case c == '\n':
			return false
		case c == '\\':
			i += 2
			continue
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			i++
			for i < len(l.src) && isLetter(l.src[i]) {
				i++
			}
			l.pos = i
			return true
		}
		i++
	}
	return false
}

func (l *lexer) scanPunct() {
	rest := l.src[l.pos:]
	for _, p := range punctuators {
		if strings.HasPrefix(rest, p) {
			l.pos += len(p)
			return
		}
	}
	_, size := utf8.DecodeRuneInString(rest)
	l.pos += size
}

func (l *lexer) regexAllowed() bool {
	if l.prev == nil {
		return true
	}
	switch l.prev.kind {
	case tIdent:
		return regexKeywords[l.prev.text]
	case tString, tTemplate, tNumber, tRegex:
		return false
	case tPunct:
		switch l.prev.text {
		case ")", "]", "}", "++", "--":
			return false
		}
	}
	return true
}

func (l *lexer) peekRune() rune {
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isIdentStart(r rune) bool {
	return r == '$' || r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r) || r == '\u200c' || r == '\u200d'
}
