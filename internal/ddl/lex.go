package ddl

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokIdent tokenKind = iota + 1
	tokNumber
	tokString
	tokPunct
	tokEOF
)

// token is a lexical unit of DDL text. Quoted identifiers keep their text
// without the surrounding double quotes.
type token struct {
	kind   tokenKind
	text   string
	line   int
	quoted bool
}

// is reports whether t is the unquoted keyword kw.
func (t token) is(kw string) bool {
	return t.kind == tokIdent && !t.quoted && strings.EqualFold(t.text, kw)
}

// punct reports whether t is the punctuation r.
func (t token) punct(r rune) bool {
	return t.kind == tokPunct && t.text == string(r)
}

type lex struct {
	input string
	pos   int // current position
	width int // size of latest rune
	line  int
	toks  []token
}

const eos = -1

// tokenize splits input into tokens. Comments and whitespace are dropped.
// A single-quoted string runs to the next quote; an unterminated string
// runs to the end of input.
func tokenize(input string) []token {
	l := &lex{input: input, line: 1}
	for {
		r := l.next()
		switch {
		case r == eos:
			l.emit(tokEOF, "", l.line)
			return l.toks
		case r == '\n':
			l.line++
		case unicode.IsSpace(r):
		case r == '-' && l.peek() == '-':
			l.skipLine()
		case r == '/' && l.peek() == '*':
			l.next()
			l.skipBlock()
		case r == '\'':
			l.quoted('\'', tokString)
		case r == '"':
			l.quoted('"', tokIdent)
		case isDigit(r):
			l.backup()
			l.number()
		case isIdentStart(r):
			l.backup()
			l.ident()
		default:
			l.emit(tokPunct, string(r), l.line)
		}
	}
}

func (l *lex) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eos
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	return r
}

func (l *lex) backup() {
	l.pos -= l.width
}

func (l *lex) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *lex) emit(kind tokenKind, text string, line int) {
	l.toks = append(l.toks, token{kind: kind, text: text, line: line})
}

func (l *lex) skipLine() {
	for {
		switch l.next() {
		case eos:
			return
		case '\n':
			l.line++
			return
		}
	}
}

func (l *lex) skipBlock() {
	for {
		switch r := l.next(); {
		case r == eos:
			return
		case r == '\n':
			l.line++
		case r == '*' && l.peek() == '/':
			l.next()
			return
		}
	}
}

func (l *lex) quoted(q rune, kind tokenKind) {
	line := l.line
	start := l.pos
	for {
		r := l.next()
		if r == eos {
			l.toks = append(l.toks, token{kind: kind, text: l.input[start:], line: line, quoted: kind == tokIdent})
			return
		}
		if r == '\n' {
			l.line++
		}
		if r == q {
			l.toks = append(l.toks, token{kind: kind, text: l.input[start : l.pos-l.width], line: line, quoted: kind == tokIdent})
			return
		}
	}
}

func (l *lex) number() {
	start := l.pos
	for isDigit(l.peek()) {
		l.next()
	}
	// Fraction, only when a digit follows the dot so db.ts stays three tokens.
	if l.peek() == '.' && l.pos+1 < len(l.input) && isDigit(rune(l.input[l.pos+1])) {
		l.next()
		for isDigit(l.peek()) {
			l.next()
		}
	}
	l.emit(tokNumber, l.input[start:l.pos], l.line)
}

func (l *lex) ident() {
	start := l.pos
	for r := l.peek(); isIdentStart(r) || isDigit(r); r = l.peek() {
		l.next()
	}
	l.emit(tokIdent, l.input[start:l.pos], l.line)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '#' || r == '@' || r == '$' || (r != eos && unicode.IsLetter(r))
}
