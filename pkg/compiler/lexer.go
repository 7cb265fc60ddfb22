package compiler

import (
	"fmt"
	"unicode"
)

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"exit": EXIT,
	"def":  DEF,
	"if":   IF,
	"elif": ELIF,
	"else": ELSE,
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), pos: 0, line: 1}
}

// Lex scans src into its token sequence. The token stream simply ends at
// end of input; there is no EOF token (the parser synthesizes one).
func Lex(src string) ([]Token, error) {
	l := newLexer(src)

	var tokens []Token
	for {
		tok, ok, err := l.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.peek()) {
		l.advance()
	}
}

// skipLineComment discards everything from the current position to
// end-of-line. The opening "//" must already have been consumed.
func (l *Lexer) skipLineComment() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

// skipBlockComment discards everything up to and including the closing
// "*/". The opening "/*" must already have been consumed.
func (l *Lexer) skipBlockComment() error {
	startLine := l.line
	for l.pos < len(l.src) {
		if l.peek() == '*' && l.peek2() == '/' {
			l.advance() // *
			l.advance() // /
			return nil
		}
		l.advance()
	}
	return fmt.Errorf("unterminated block comment (opened on line %d)", startLine)
}

// next returns the next token, or ok=false at end of input.
func (l *Lexer) next() (Token, bool, error) {
	for {
		l.skipWhitespace()
		if l.pos >= len(l.src) {
			return Token{}, false, nil
		}

		if l.peek() == '/' && l.peek2() == '/' {
			l.advance()
			l.advance()
			l.skipLineComment()
			continue
		}
		if l.peek() == '/' && l.peek2() == '*' {
			l.advance()
			l.advance()
			if err := l.skipBlockComment(); err != nil {
				return Token{}, false, err
			}
			continue
		}
		break
	}

	line := l.line
	r := l.peek()

	switch {
	case unicode.IsLetter(r) || r == '_':
		start := l.pos
		for l.pos < len(l.src) && (unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_') {
			l.advance()
		}
		word := string(l.src[start:l.pos])
		if kw, ok := keywords[word]; ok {
			return Token{Type: kw, Lexeme: word, Line: line}, true, nil
		}
		return Token{Type: IDENTIFIER, Lexeme: word, Line: line}, true, nil

	case unicode.IsDigit(r):
		start := l.pos
		for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
			l.advance()
		}
		return Token{Type: INTEGER, Lexeme: string(l.src[start:l.pos]), Line: line}, true, nil
	}

	l.advance()
	var tt TokenType
	switch r {
	case ';':
		tt = SEMICOLON
	case '(':
		tt = LPAREN
	case ')':
		tt = RPAREN
	case '{':
		tt = LBRACE
	case '}':
		tt = RBRACE
	case '=':
		tt = ASSIGN
	case '+':
		tt = PLUS
	case '-':
		tt = MINUS
	case '*':
		tt = STAR
	case '/':
		tt = SLASH
	default:
		return Token{}, false, fmt.Errorf("unexpected character %q on line %d", r, line)
	}
	return Token{Type: tt, Lexeme: string(r), Line: line}, true, nil
}
