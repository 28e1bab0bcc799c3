// Package lexer tokenizes template source text.
//
// The lexer runs as a two-mode state machine. In text mode it scans
// plain characters into a single text token until it meets {{ or {%,
// emits the corresponding start token and switches to expression mode.
// In expression mode it skips whitespace and recognizes identifiers
// (keyword lexemes are reclassified to keyword tokens), double-quoted
// strings, numbers, operators and the closing }} / %} delimiters, which
// switch back to text mode.
package lexer

import "fmt"

type lexerMode int

const (
	modeText lexerMode = iota
	modeExpression
)

// Error is a lexical error with the line it occurred on.
type Error struct {
	Message string
	Line    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (line %d)", e.Message, e.Line)
}

// Lexer produces tokens from template source text.
type Lexer struct {
	source string
	pos    int
	line   int
	mode   lexerMode
}

// New creates a Lexer for the given source.
func New(source string) *Lexer {
	return &Lexer{source: source, line: 1}
}

// Peek returns the next token without consuming it. The lexer position,
// line and mode are fully restored, giving the parser one-token
// lookahead without backtracking.
func (l *Lexer) Peek() (Token, error) {
	pos, line, mode := l.pos, l.line, l.mode
	tok, err := l.Next()
	l.pos, l.line, l.mode = pos, line, mode
	return tok, err
}

// Next returns the next token. At end of input it returns an EOF token.
func (l *Lexer) Next() (Token, error) {
	if l.mode == modeText {
		return l.nextText(), nil
	}
	return l.nextExpression()
}

func (l *Lexer) nextText() Token {
	if l.atEnd() {
		return Token{Kind: TokenEOF, Line: l.line}
	}

	// Start delimiter at the current position switches to expression mode.
	if l.hasPrefix("{{") {
		tok := Token{Kind: TokenVariableStart, Lexeme: "{{", Line: l.line}
		l.advance(2)
		l.mode = modeExpression
		return tok
	}
	if l.hasPrefix("{%") {
		tok := Token{Kind: TokenTagStart, Lexeme: "{%", Line: l.line}
		l.advance(2)
		l.mode = modeExpression
		return tok
	}

	startLine := l.line
	start := l.pos
	for !l.atEnd() && !l.hasPrefix("{{") && !l.hasPrefix("{%") {
		l.advance(1)
	}
	return Token{Kind: TokenText, Lexeme: l.source[start:l.pos], Line: startLine}
}

func (l *Lexer) nextExpression() (Token, error) {
	l.skipWhitespace()

	if l.atEnd() {
		return Token{Kind: TokenEOF, Line: l.line}, nil
	}

	if l.hasPrefix("}}") {
		tok := Token{Kind: TokenVariableEnd, Lexeme: "}}", Line: l.line}
		l.advance(2)
		l.mode = modeText
		return tok, nil
	}
	if l.hasPrefix("%}") {
		tok := Token{Kind: TokenTagEnd, Lexeme: "%}", Line: l.line}
		l.advance(2)
		l.mode = modeText
		return tok, nil
	}

	c := l.source[l.pos]
	switch {
	case isIdentStart(c):
		return l.lexIdent(), nil
	case isDigit(c):
		return l.lexNumber(), nil
	case c == '"':
		return l.lexString()
	case c == '|':
		l.advance(1)
		return Token{Kind: TokenPipe, Lexeme: "|", Line: l.line}, nil
	case c == '=':
		if l.hasPrefix("==") {
			l.advance(2)
			return Token{Kind: TokenOperator, Lexeme: "==", Line: l.line}, nil
		}
		l.advance(1)
		return Token{Kind: TokenOperator, Lexeme: "=", Line: l.line}, nil
	case c == '!':
		if l.hasPrefix("!=") {
			l.advance(2)
			return Token{Kind: TokenOperator, Lexeme: "!=", Line: l.line}, nil
		}
	case c == '<':
		if l.hasPrefix("<=") {
			l.advance(2)
			return Token{Kind: TokenOperator, Lexeme: "<=", Line: l.line}, nil
		}
		l.advance(1)
		return Token{Kind: TokenOperator, Lexeme: "<", Line: l.line}, nil
	case c == '>':
		if l.hasPrefix(">=") {
			l.advance(2)
			return Token{Kind: TokenOperator, Lexeme: ">=", Line: l.line}, nil
		}
		l.advance(1)
		return Token{Kind: TokenOperator, Lexeme: ">", Line: l.line}, nil
	case c == '.' || c == ',' || c == ':' || c == '(' || c == ')':
		l.advance(1)
		return Token{Kind: TokenOperator, Lexeme: string(c), Line: l.line}, nil
	}

	return Token{}, &Error{
		Message: fmt.Sprintf("unexpected character %q in expression", c),
		Line:    l.line,
	}
}

func (l *Lexer) lexIdent() Token {
	start := l.pos
	for !l.atEnd() && isIdentPart(l.source[l.pos]) {
		l.advance(1)
	}
	lexeme := l.source[start:l.pos]
	if kind, ok := keywords[lexeme]; ok {
		return Token{Kind: kind, Lexeme: lexeme, Line: l.line}
	}
	return Token{Kind: TokenIdent, Lexeme: lexeme, Line: l.line}
}

func (l *Lexer) lexNumber() Token {
	start := l.pos
	for !l.atEnd() && isDigit(l.source[l.pos]) {
		l.advance(1)
	}
	// A fraction only when a digit follows the dot, so "1." stays two tokens.
	if !l.atEnd() && l.source[l.pos] == '.' && l.pos+1 < len(l.source) && isDigit(l.source[l.pos+1]) {
		l.advance(1)
		for !l.atEnd() && isDigit(l.source[l.pos]) {
			l.advance(1)
		}
	}
	return Token{Kind: TokenNumber, Lexeme: l.source[start:l.pos], Line: l.line}
}

// lexString scans a double-quoted string. No escape processing is
// performed; a missing closing quote is a hard error.
func (l *Lexer) lexString() (Token, error) {
	startLine := l.line
	l.advance(1) // opening quote
	start := l.pos
	for !l.atEnd() && l.source[l.pos] != '"' {
		l.advance(1)
	}
	if l.atEnd() {
		return Token{}, &Error{Message: "unterminated string", Line: startLine}
	}
	lexeme := l.source[start:l.pos]
	l.advance(1) // closing quote
	return Token{Kind: TokenString, Lexeme: lexeme, Line: startLine}, nil
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() {
		switch l.source[l.pos] {
		case ' ', '\t', '\r', '\n':
			l.advance(1)
		default:
			return
		}
	}
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.source)
}

func (l *Lexer) hasPrefix(s string) bool {
	return l.pos+len(s) <= len(l.source) && l.source[l.pos:l.pos+len(s)] == s
}

func (l *Lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.source); i++ {
		if l.source[l.pos] == '\n' {
			l.line++
		}
		l.pos++
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
