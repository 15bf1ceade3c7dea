// Package token splits Rust source text into the tokens the item parser needs.
package token

import (
	"fmt"
	"unicode"
)

type Type int

const (
	Ident Type = iota
	Lifetime
	Punct
	String
	Char
	Number
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
)

func (t Type) String() string {
	switch t {
	case Ident:
		return "identifier"
	case Lifetime:
		return "lifetime"
	case Punct:
		return "punctuation"
	case String:
		return "string"
	case Char:
		return "char"
	case Number:
		return "number"
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case LBrace:
		return "'{'"
	case RBrace:
		return "'}'"
	case LBracket:
		return "'['"
	case RBracket:
		return "']'"
	}
	return "unknown"
}

// IsOpen reports whether t opens a delimited group.
func (t Type) IsOpen() bool {
	return t == LParen || t == LBrace || t == LBracket
}

// IsClose reports whether t closes a delimited group.
func (t Type) IsClose() bool {
	return t == RParen || t == RBrace || t == RBracket
}

// Closing returns the closing delimiter for an opening one.
func (t Type) Closing() Type {
	switch t {
	case LParen:
		return RParen
	case LBrace:
		return RBrace
	case LBracket:
		return RBracket
	}
	return t
}

type Token struct {
	Value string
	Type  Type
	Line  int
	Col   int
}

// Is reports whether the token is the identifier or punctuation v.
func (t Token) Is(v string) bool {
	return (t.Type == Ident || t.Type == Punct) && t.Value == v
}

func (t Token) String() string {
	return fmt.Sprintf("%d:%d %s %q", t.Line, t.Col, t.Type, t.Value)
}

// multi-character punctuation recognised as one token
var joined = []string{"::", "->", "=>", "..", "==", "!=", "<=", ">="}

// Error reports a lexical error at a position.
type Error struct {
	Msg  string
	Line int
	Col  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

type lexer struct {
	runes  []rune
	tokens []Token
	pos    int
	line   int
	col    int
}

// Tokenize splits src into tokens. Comments and whitespace are dropped.
func Tokenize(src string) ([]Token, error) {
	l := &lexer{runes: []rune(src), line: 1, col: 1}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

func (l *lexer) peek(off int) rune {
	if l.pos+off >= len(l.runes) {
		return 0
	}
	return l.runes[l.pos+off]
}

func (l *lexer) advance() rune {
	r := l.runes[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) emit(typ Type, value string, line, col int) {
	l.tokens = append(l.tokens, Token{Value: value, Type: typ, Line: line, Col: col})
}

func (l *lexer) errorf(line, col int, format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...), Line: line, Col: col}
}

func (l *lexer) run() error {
	for l.pos < len(l.runes) {
		r := l.peek(0)
		line, col := l.line, l.col

		switch {
		case unicode.IsSpace(r):
			l.advance()

		case r == '/' && l.peek(1) == '/':
			for l.pos < len(l.runes) && l.peek(0) != '\n' {
				l.advance()
			}

		case r == '/' && l.peek(1) == '*':
			if err := l.blockComment(line, col); err != nil {
				return err
			}

		case r == '"':
			if err := l.str(line, col); err != nil {
				return err
			}

		case (r == 'r' && (l.peek(1) == '"' || (l.peek(1) == '#' && (l.peek(2) == '"' || l.peek(2) == '#')))) ||
			(r == 'b' && l.peek(1) == 'r' && (l.peek(2) == '"' || l.peek(2) == '#')):
			if err := l.rawStr(line, col); err != nil {
				return err
			}

		case r == 'b' && l.peek(1) == '"':
			l.advance()
			if err := l.str(line, col); err != nil {
				return err
			}

		case r == 'b' && l.peek(1) == '\'':
			l.advance()
			if err := l.quote(line, col); err != nil {
				return err
			}

		case r == '\'':
			if err := l.quote(line, col); err != nil {
				return err
			}

		case unicode.IsDigit(r):
			start := l.pos
			for l.pos < len(l.runes) {
				c := l.peek(0)
				if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || (c == '.' && unicode.IsDigit(l.peek(1))) {
					l.advance()
					continue
				}
				break
			}
			l.emit(Number, string(l.runes[start:l.pos]), line, col)

		case unicode.IsLetter(r) || r == '_':
			start := l.pos
			for l.pos < len(l.runes) && (unicode.IsLetter(l.peek(0)) || unicode.IsDigit(l.peek(0)) || l.peek(0) == '_') {
				l.advance()
			}
			l.emit(Ident, string(l.runes[start:l.pos]), line, col)

		case r == '(':
			l.advance()
			l.emit(LParen, "(", line, col)
		case r == ')':
			l.advance()
			l.emit(RParen, ")", line, col)
		case r == '{':
			l.advance()
			l.emit(LBrace, "{", line, col)
		case r == '}':
			l.advance()
			l.emit(RBrace, "}", line, col)
		case r == '[':
			l.advance()
			l.emit(LBracket, "[", line, col)
		case r == ']':
			l.advance()
			l.emit(RBracket, "]", line, col)

		default:
			matched := false
			for _, j := range joined {
				jr := []rune(j)
				if r == jr[0] && l.peek(1) == jr[1] {
					l.advance()
					l.advance()
					l.emit(Punct, j, line, col)
					matched = true
					break
				}
			}
			if !matched {
				l.advance()
				l.emit(Punct, string(r), line, col)
			}
		}
	}
	return nil
}

func (l *lexer) blockComment(line, col int) error {
	l.advance()
	l.advance()
	depth := 1
	for l.pos < len(l.runes) && depth > 0 {
		switch {
		case l.peek(0) == '/' && l.peek(1) == '*':
			l.advance()
			l.advance()
			depth++
		case l.peek(0) == '*' && l.peek(1) == '/':
			l.advance()
			l.advance()
			depth--
		default:
			l.advance()
		}
	}
	if depth > 0 {
		return l.errorf(line, col, "unterminated block comment")
	}
	return nil
}

func (l *lexer) str(line, col int) error {
	l.advance()
	start := l.pos
	for l.pos < len(l.runes) && l.peek(0) != '"' {
		if l.peek(0) == '\\' {
			l.advance()
			if l.pos >= len(l.runes) {
				break
			}
		}
		l.advance()
	}
	if l.pos >= len(l.runes) {
		return l.errorf(line, col, "unterminated string literal")
	}
	value := string(l.runes[start:l.pos])
	l.advance()
	l.emit(String, value, line, col)
	return nil
}

func (l *lexer) rawStr(line, col int) error {
	if l.peek(0) == 'b' {
		l.advance()
	}
	l.advance() // r
	hashes := 0
	for l.peek(0) == '#' {
		hashes++
		l.advance()
	}
	if l.peek(0) != '"' {
		return l.errorf(line, col, "malformed raw string literal")
	}
	l.advance()
	start := l.pos
	for l.pos < len(l.runes) {
		if l.peek(0) == '"' {
			n := 0
			for n < hashes && l.peek(1+n) == '#' {
				n++
			}
			if n == hashes {
				value := string(l.runes[start:l.pos])
				for i := 0; i <= hashes; i++ {
					l.advance()
				}
				l.emit(String, value, line, col)
				return nil
			}
		}
		l.advance()
	}
	return l.errorf(line, col, "unterminated raw string literal")
}

// quote handles both char literals and lifetimes, which share the leading '.
func (l *lexer) quote(line, col int) error {
	l.advance()
	if l.pos >= len(l.runes) {
		return l.errorf(line, col, "unexpected end of input after '")
	}

	// 'a' or '\n' are chars; 'a followed by anything else is a lifetime
	if l.peek(0) == '\\' {
		start := l.pos
		for l.pos < len(l.runes) && l.peek(0) != '\'' {
			if l.peek(0) == '\\' {
				l.advance()
			}
			if l.pos < len(l.runes) {
				l.advance()
			}
		}
		if l.pos >= len(l.runes) {
			return l.errorf(line, col, "unterminated char literal")
		}
		value := string(l.runes[start:l.pos])
		l.advance()
		l.emit(Char, value, line, col)
		return nil
	}

	if l.peek(1) == '\'' {
		value := string(l.runes[l.pos : l.pos+1])
		l.advance()
		l.advance()
		l.emit(Char, value, line, col)
		return nil
	}

	start := l.pos
	for l.pos < len(l.runes) && (unicode.IsLetter(l.peek(0)) || unicode.IsDigit(l.peek(0)) || l.peek(0) == '_') {
		l.advance()
	}
	if l.pos == start {
		return l.errorf(line, col, "malformed lifetime or char literal")
	}
	l.emit(Lifetime, string(l.runes[start:l.pos]), line, col)
	return nil
}
