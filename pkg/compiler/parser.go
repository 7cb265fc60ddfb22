package compiler

import (
	"fmt"
	"strings"
)

// Parser consumes the flat token slice produced by the Lexer and builds an
// arena-owned AST.
//
// Grammar:
//
//	program    = statement* EOF
//	statement  = "exit" "(" expression ")" ";"
//	           | "def" IDENTIFIER "=" expression ";"
//	           | scope
//	           | "if" "(" expression ")" scope ifPredicate?
//	ifPredicate = "elif" "(" expression ")" scope ifPredicate?
//	            | "else" scope
//	scope      = "{" statement* "}"
//	expression = term (binop expression)*     ; precedence climbing
//	term       = INTEGER | IDENTIFIER | "(" expression ")"
//	binop      = "+" | "-"                    ; binding power 0
//	           | "*" | "/"                    ; binding power 1
//
// Binary expressions are folded by precedence climbing rather than one
// method per precedence level: a left term is parsed, then operators at or
// above the minimum binding power are consumed in a loop, each right-hand
// side parsed with the operator's power plus one. All operators are
// left-associative.
//
// The parser never terminates the process; every failure propagates as an
// error wrapping one of the package's sentinel errors.
type Parser struct {
	tokens      []Token
	pos         int
	arena       *Arena
	sourceLines []string
}

// NewParser wires a token stream to an arena. The raw source is kept only
// to quote offending lines in error messages.
func NewParser(tokens []Token, rawSource string, arena *Arena) *Parser {
	return &Parser{
		tokens:      tokens,
		arena:       arena,
		sourceLines: strings.Split(rawSource, "\n"),
	}
}

// Parse builds the whole program or reports the first error. The returned
// Program keeps the arena that owns every node alive.
func Parse(tokens []Token, rawSource string) (*Program, error) {
	p := NewParser(tokens, rawSource, NewArena(DefaultArenaBytes))
	return p.parseProgram()
}

// errorf wraps sentinel with position information and the offending
// source line.
func (p *Parser) errorf(sentinel error, tok Token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)

	snippet := "<source unavailable>"
	lineIdx := tok.Line - 1
	if lineIdx >= 0 && lineIdx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[lineIdx])
	}

	return fmt.Errorf("line %d: %w: %s\n  |> %s", tok.Line, sentinel, msg, snippet)
}

func (p *Parser) lastLine() int {
	if len(p.tokens) == 0 {
		return 1
	}
	return p.tokens[len(p.tokens)-1].Line
}

// peek returns the current token without consuming it. Past the end of
// input it returns an EOF sentinel carrying the last token's line.
func (p *Parser) peek() Token {
	return p.peekAt(0)
}

// peekAt returns the token at the given offset from the current position.
func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return Token{Type: EOF, Line: p.lastLine()}
	}
	return p.tokens[p.pos+offset]
}

// consume advances the cursor and returns the consumed token. Advancing
// past the end of input is ErrOutOfTokens.
func (p *Parser) consume() (Token, error) {
	if p.pos >= len(p.tokens) {
		eof := Token{Type: EOF, Line: p.lastLine()}
		return eof, p.errorf(ErrOutOfTokens, eof, "token cursor advanced past end of input")
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok, nil
}

// expect consumes the current token if it matches tt, otherwise reports a
// syntax error naming the expected kind.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.errorf(ErrSyntax, tok, "expected %s, got %s (%q)", tt, tok.Type, tok.Lexeme)
	}
	return p.consume()
}

func (p *Parser) parseProgram() (*Program, error) {
	prog := &Program{arena: p.arena}
	for p.peek().Type != EOF {
		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if st == nil {
			return nil, p.errorf(ErrSyntax, p.peek(), "invalid statement")
		}
		prog.Stmts = append(prog.Stmts, st)
	}
	return prog, nil
}

// parseStatement dispatches on a fixed lookahead of at most three tokens.
// It returns nil, nil when no statement form matches, leaving the caller
// to decide whether that is end of input or an error.
func (p *Parser) parseStatement() (Stmt, error) {
	switch {
	case p.peek().Type == EXIT && p.peekAt(1).Type == LPAREN:
		if _, err := p.consume(); err != nil {
			return nil, err
		}
		if _, err := p.consume(); err != nil {
			return nil, err
		}
		expr, err := p.requireExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		st, err := p.arena.NewExitStmt(expr)
		if err != nil {
			return nil, err
		}
		return st, nil

	case p.peek().Type == DEF && p.peekAt(1).Type == IDENTIFIER && p.peekAt(2).Type == ASSIGN:
		if _, err := p.consume(); err != nil {
			return nil, err
		}
		name, err := p.consume()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(); err != nil {
			return nil, err
		}
		expr, err := p.requireExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		st, err := p.arena.NewDefineStmt(name.Lexeme, expr)
		if err != nil {
			return nil, err
		}
		return st, nil

	case p.peek().Type == LBRACE:
		block, err := p.parseScope()
		if err != nil {
			return nil, err
		}
		return block, nil

	case p.peek().Type == IF && p.peekAt(1).Type == LPAREN:
		if _, err := p.consume(); err != nil {
			return nil, err
		}
		if _, err := p.consume(); err != nil {
			return nil, err
		}
		cond, err := p.requireExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		body, err := p.parseScope()
		if err != nil {
			return nil, err
		}
		pred, err := p.parseIfPredicate()
		if err != nil {
			return nil, err
		}
		st, err := p.arena.NewIfStmt(cond, body, pred)
		if err != nil {
			return nil, err
		}
		return st, nil
	}

	return nil, nil
}

// parseScope parses a braced statement sequence. Empty scopes are legal.
func (p *Parser) parseScope() (*BlockStmt, error) {
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	var stmts []Stmt
	for {
		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if st == nil {
			break
		}
		stmts = append(stmts, st)
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return p.arena.NewBlockStmt(stmts)
}

// parseIfPredicate parses the optional elif/else chain after an if body.
// It returns nil, nil when the lookahead starts no alternative.
func (p *Parser) parseIfPredicate() (IfPred, error) {
	switch p.peek().Type {
	case ELIF:
		if _, err := p.consume(); err != nil {
			return nil, err
		}
		if _, err := p.expect(LPAREN); err != nil {
			return nil, err
		}
		cond, err := p.requireExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		body, err := p.parseScope()
		if err != nil {
			return nil, err
		}
		next, err := p.parseIfPredicate()
		if err != nil {
			return nil, err
		}
		pred, err := p.arena.NewElifPred(cond, body, next)
		if err != nil {
			return nil, err
		}
		return pred, nil

	case ELSE:
		if _, err := p.consume(); err != nil {
			return nil, err
		}
		body, err := p.parseScope()
		if err != nil {
			return nil, err
		}
		pred, err := p.arena.NewElsePred(body)
		if err != nil {
			return nil, err
		}
		return pred, nil
	}

	return nil, nil
}

// requireExpression parses an expression that the surrounding construct
// demands; absence is ErrMissingExpression.
func (p *Parser) requireExpression() (Expr, error) {
	expr, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if expr == nil {
		tok := p.peek()
		return nil, p.errorf(ErrMissingExpression, tok, "got %s (%q)", tok.Type, tok.Lexeme)
	}
	return expr, nil
}

// parseExpression implements precedence climbing. It parses a left term,
// then folds every following binary operator whose binding power is at
// least minPrec, parsing each right-hand side with the operator's power
// plus one so equal-power operators associate left. It returns nil, nil
// when no term starts an expression.
func (p *Parser) parseExpression(minPrec int) (Expr, error) {
	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if term == nil {
		return nil, nil
	}

	var expr Expr = term
	for {
		prec, isBinary := binaryPrecedence(p.peek().Type)
		if !isBinary || prec < minPrec {
			break
		}

		op, err := p.consume()
		if err != nil {
			return nil, err
		}

		rhs, err := p.parseExpression(prec + 1)
		if err != nil {
			return nil, err
		}
		if rhs == nil {
			return nil, p.errorf(ErrMissingExpression, op, "no right-hand side after %q", op.Lexeme)
		}

		// The accumulated left side is copied into a fresh node before
		// becoming the new operand, so no node is ever referenced twice.
		lhs, err := p.arena.CopyExpr(expr)
		if err != nil {
			return nil, err
		}
		bin, err := p.arena.NewBinaryExpr(op.Type, lhs, rhs)
		if err != nil {
			return nil, err
		}
		expr = bin
	}

	return expr, nil
}

// parseTerm matches, in order: an integer literal, an identifier, or a
// parenthesized expression (which resets the precedence context to zero).
// It returns nil, nil when no alternative matches.
func (p *Parser) parseTerm() (Term, error) {
	switch p.peek().Type {
	case INTEGER:
		tok, err := p.consume()
		if err != nil {
			return nil, err
		}
		n, err := p.arena.NewIntLit(tok.Lexeme)
		if err != nil {
			return nil, err
		}
		return n, nil

	case IDENTIFIER:
		tok, err := p.consume()
		if err != nil {
			return nil, err
		}
		n, err := p.arena.NewIdent(tok.Lexeme)
		if err != nil {
			return nil, err
		}
		return n, nil

	case LPAREN:
		if _, err := p.consume(); err != nil {
			return nil, err
		}
		inner, err := p.requireExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		n, err := p.arena.NewParen(inner)
		if err != nil {
			return nil, err
		}
		return n, nil
	}

	return nil, nil
}
