package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // variable name
	INTEGER    // decimal integer literal

	// Keywords
	EXIT // "exit"
	DEF  // "def"
	IF   // "if"
	ELIF // "elif"
	ELSE // "else"

	// Paired delimiters
	LPAREN // (
	RPAREN // )
	LBRACE // {
	RBRACE // }

	// Punctuation
	SEMICOLON // ;
	ASSIGN    // =

	// Arithmetic operators
	PLUS  // +
	MINUS // -
	STAR  // *
	SLASH // /
)

// tokenNames is indexed by TokenType.
var tokenNames = [...]string{
	EOF:        "EOF",
	IDENTIFIER: "IDENTIFIER",
	INTEGER:    "INTEGER",
	EXIT:       "EXIT",
	DEF:        "DEF",
	IF:         "IF",
	ELIF:       "ELIF",
	ELSE:       "ELSE",
	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	LBRACE:     "LBRACE",
	RBRACE:     "RBRACE",
	SEMICOLON:  "SEMICOLON",
	ASSIGN:     "ASSIGN",
	PLUS:       "PLUS",
	MINUS:      "MINUS",
	STAR:       "STAR",
	SLASH:      "SLASH",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// binaryPrecedence returns the binding power of a binary operator token
// and whether the token is a binary operator at all. Additive operators
// bind at 0, multiplicative at 1; all are left-associative.
func binaryPrecedence(tt TokenType) (int, bool) {
	switch tt {
	case PLUS, MINUS:
		return 0, true
	case STAR, SLASH:
		return 1, true
	}
	return 0, false
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Line   int    // 1-based source line
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  line %d", t.Type, t.Lexeme, t.Line)
}
