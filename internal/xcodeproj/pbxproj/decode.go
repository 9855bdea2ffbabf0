package pbxproj

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseError reports malformed project text with the location it was found at.
type ParseError struct {
	Pos
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokString
	tokData
	tokPunct
)

type token struct {
	kind    tokenKind
	text    string // decoded text for strings, the character for punctuation
	lexeme  string
	comment string
	pos     Pos
}

type lexer struct {
	src  []byte
	off  int
	line int
	col  int
}

func newLexer(src []byte) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) pos() Pos { return Pos{Line: l.line, Column: l.col} }

func (l *lexer) errorf(p Pos, format string, args ...any) *ParseError {
	return &ParseError{Pos: p, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) peekByte(ahead int) byte {
	if l.off+ahead >= len(l.src) {
		return 0
	}
	return l.src[l.off+ahead]
}

func (l *lexer) advance(n int) {
	for i := 0; i < n && l.off < len(l.src); i++ {
		if l.src[l.off] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.off++
	}
}

// skipSpace consumes whitespace and comments.
func (l *lexer) skipSpace() error {
	for l.off < len(l.src) {
		c := l.src[l.off]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.advance(1)
		case c == '/' && l.peekByte(1) == '*':
			if _, err := l.blockComment(); err != nil {
				return err
			}
		case c == '/' && l.peekByte(1) == '/':
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.advance(1)
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) blockComment() (string, error) {
	start := l.pos()
	l.advance(2)
	end := strings.Index(string(l.src[l.off:]), "*/")
	if end < 0 {
		return "", l.errorf(start, "unterminated comment")
	}
	body := string(l.src[l.off : l.off+end])
	l.advance(end + 2)
	return strings.TrimSpace(body), nil
}

// trailingComment attaches a block comment that follows a token on the same line.
func (l *lexer) trailingComment() (string, error) {
	i := l.off
	for i < len(l.src) && (l.src[i] == ' ' || l.src[i] == '\t') {
		i++
	}
	if i+1 < len(l.src) && l.src[i] == '/' && l.src[i+1] == '*' {
		l.advance(i - l.off)
		return l.blockComment()
	}
	return "", nil
}

func isBareChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '_' || c == '$' || c == '.' || c == '/' || c == ':' || c == '-' || c == '+'
}

func (l *lexer) next() (token, error) {
	if err := l.skipSpace(); err != nil {
		return token{}, err
	}
	p := l.pos()
	if l.off >= len(l.src) {
		return token{kind: tokEOF, pos: p}, nil
	}
	c := l.src[l.off]
	switch {
	case strings.IndexByte("{}()=;,", c) >= 0:
		l.advance(1)
		return token{kind: tokPunct, text: string(c), pos: p}, nil
	case c == '"' || c == '\'':
		return l.quoted(p, c)
	case c == '<':
		return l.data(p)
	case isBareChar(c):
		start := l.off
		for l.off < len(l.src) && isBareChar(l.src[l.off]) {
			// "//" and "/*" start comments, never bare strings.
			if l.src[l.off] == '/' && (l.peekByte(1) == '/' || l.peekByte(1) == '*') {
				break
			}
			l.advance(1)
		}
		lex := string(l.src[start:l.off])
		tok := token{kind: tokString, text: lex, lexeme: lex, pos: p}
		var err error
		tok.comment, err = l.trailingComment()
		return tok, err
	}
	r, _ := utf8.DecodeRune(l.src[l.off:])
	return token{}, l.errorf(p, "unexpected character %q", r)
}

func (l *lexer) quoted(p Pos, quote byte) (token, error) {
	start := l.off
	l.advance(1)
	var sb strings.Builder
	for {
		if l.off >= len(l.src) {
			return token{}, l.errorf(p, "unterminated string")
		}
		c := l.src[l.off]
		if c == quote {
			l.advance(1)
			break
		}
		if c != '\\' {
			sb.WriteByte(c)
			l.advance(1)
			continue
		}
		if err := l.escape(&sb); err != nil {
			return token{}, err
		}
	}
	tok := token{kind: tokString, text: sb.String(), lexeme: string(l.src[start:l.off]), pos: p}
	var err error
	tok.comment, err = l.trailingComment()
	return tok, err
}

func (l *lexer) escape(sb *strings.Builder) error {
	p := l.pos()
	l.advance(1)
	if l.off >= len(l.src) {
		return l.errorf(p, "unterminated escape sequence")
	}
	c := l.src[l.off]
	switch c {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case 'a':
		sb.WriteByte('\a')
	case 'U':
		if l.off+5 > len(l.src) {
			return l.errorf(p, "truncated \\U escape")
		}
		n, err := strconv.ParseUint(string(l.src[l.off+1:l.off+5]), 16, 32)
		if err != nil {
			return l.errorf(p, "invalid \\U escape")
		}
		sb.WriteRune(rune(n))
		l.advance(5)
		return nil
	default:
		if c >= '0' && c <= '7' {
			n := 0
			i := 0
			for ; i < 3 && l.off+i < len(l.src); i++ {
				d := l.src[l.off+i]
				if d < '0' || d > '7' {
					break
				}
				n = n*8 + int(d-'0')
			}
			sb.WriteByte(byte(n))
			l.advance(i)
			return nil
		}
		// \\, \", \' and any other character stand for themselves.
		sb.WriteByte(c)
	}
	l.advance(1)
	return nil
}

func (l *lexer) data(p Pos) (token, error) {
	start := l.off
	l.advance(1)
	var digits strings.Builder
	for {
		if l.off >= len(l.src) {
			return token{}, l.errorf(p, "unterminated data literal")
		}
		c := l.src[l.off]
		l.advance(1)
		if c == '>' {
			break
		}
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			continue
		}
		digits.WriteByte(c)
	}
	if _, err := hex.DecodeString(digits.String()); err != nil {
		return token{}, l.errorf(p, "invalid data literal")
	}
	return token{kind: tokData, text: digits.String(), lexeme: string(l.src[start:l.off]), pos: p}, nil
}

type parser struct {
	lex  *lexer
	tok  token
	peek bool
}

func (p *parser) next() (token, error) {
	if p.peek {
		p.peek = false
		return p.tok, nil
	}
	t, err := p.lex.next()
	if err != nil {
		return token{}, err
	}
	p.tok = t
	return t, nil
}

func (p *parser) unread() { p.peek = true }

func (p *parser) expect(punct string) error {
	t, err := p.next()
	if err != nil {
		return err
	}
	if t.kind != tokPunct || t.text != punct {
		return p.lex.errorf(t.pos, "expected %q, found %s", punct, describe(t))
	}
	return nil
}

func describe(t token) string {
	switch t.kind {
	case tokEOF:
		return "end of file"
	case tokPunct:
		return strconv.Quote(t.text)
	case tokData:
		return "data literal"
	}
	return "string " + strconv.Quote(t.text)
}

func (p *parser) value() (Value, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	switch t.kind {
	case tokString:
		return &String{Text: t.text, Comment: t.comment, lexeme: t.lexeme, pos: t.pos}, nil
	case tokData:
		b, _ := hex.DecodeString(t.text)
		return &Data{Bytes: b, lexeme: t.lexeme}, nil
	case tokPunct:
		switch t.text {
		case "{":
			return p.dict(t.pos)
		case "(":
			return p.array(t.pos)
		}
	}
	return nil, p.lex.errorf(t.pos, "expected a value, found %s", describe(t))
}

func (p *parser) dict(open Pos) (*Dict, error) {
	d := &Dict{pos: open}
	for {
		t, err := p.next()
		if err != nil {
			return nil, err
		}
		if t.kind == tokPunct && t.text == "}" {
			return d, nil
		}
		if t.kind == tokEOF {
			return nil, p.lex.errorf(open, "unbalanced '{': dictionary is never closed")
		}
		if t.kind != tokString {
			return nil, p.lex.errorf(t.pos, "expected a dictionary key, found %s", describe(t))
		}
		key := &String{Text: t.text, Comment: t.comment, lexeme: t.lexeme, pos: t.pos}
		if err := p.expect("="); err != nil {
			return nil, err
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
		d.Append(key, v)
	}
}

func (p *parser) array(open Pos) (*Array, error) {
	a := &Array{pos: open}
	for {
		t, err := p.next()
		if err != nil {
			return nil, err
		}
		if t.kind == tokPunct && t.text == ")" {
			return a, nil
		}
		if t.kind == tokEOF {
			return nil, p.lex.errorf(open, "unbalanced '(': array is never closed")
		}
		p.unread()
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		a.Items = append(a.Items, v)
		t, err = p.next()
		if err != nil {
			return nil, err
		}
		if t.kind == tokPunct && t.text == ")" {
			return a, nil
		}
		if t.kind != tokPunct || t.text != "," {
			return nil, p.lex.errorf(t.pos, "expected ',' or ')', found %s", describe(t))
		}
	}
}

// Parse reads the property-list syntax of a project file without checking
// the project schema.
func Parse(src []byte) (*Document, error) {
	doc := &Document{}
	text := string(src)
	if strings.HasPrefix(text, "//") {
		end := strings.IndexByte(text, '\n')
		if end < 0 {
			end = len(text)
		}
		doc.Header = strings.TrimRight(text[:end], "\r")
	}

	p := &parser{lex: newLexer(src)}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	root, ok := v.(*Dict)
	if !ok {
		return nil, &ParseError{Pos: Pos{Line: 1, Column: 1}, Msg: "top-level value must be a dictionary"}
	}
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	if t.kind != tokEOF {
		return nil, p.lex.errorf(t.pos, "unexpected %s after top-level dictionary", describe(t))
	}
	doc.Root = root
	return doc, nil
}

// Decode parses a project file and checks its schema: the archive and object
// versions, the objects table, and that every reference field names a
// declared object.
func Decode(src []byte) (*Document, error) {
	doc, err := Parse(src)
	if err != nil {
		return nil, err
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}
