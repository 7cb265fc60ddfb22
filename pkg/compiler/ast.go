package compiler

import (
	"fmt"
	"strings"
)

//  Expression nodes

// Expr is implemented by every node that produces a value. Generated code
// leaves the value on top of the evaluation stack.
type Expr interface {
	exprNode()
	String() string
}

// Term is the subset of expressions precedence climbing treats as atoms:
// integer literals, identifiers and parenthesized expressions.
type Term interface {
	Expr
	termNode()
}

// IntLit is an integer constant. The value is kept as source text and
// passed through to the emitted assembly untouched.
//
//	exit(42);
//	     ^^  IntLit{Value: "42"}
type IntLit struct {
	Value string
}

func (*IntLit) exprNode()        {}
func (*IntLit) termNode()        {}
func (l *IntLit) String() string { return l.Value }

// Ident is a read of a named variable.
//
//	exit(x);
//	     ^  Ident{Name: "x"}
type Ident struct {
	Name string
}

func (*Ident) exprNode()        {}
func (*Ident) termNode()        {}
func (i *Ident) String() string { return i.Name }

// Paren is a parenthesized expression. It only affects parse-time
// precedence; code generation sees straight through it.
type Paren struct {
	Inner Expr
}

func (*Paren) exprNode()        {}
func (*Paren) termNode()        {}
func (p *Paren) String() string { return fmt.Sprintf("(%s)", p.Inner) }

// BinaryExpr represents Lhs Op Rhs with Op one of PLUS, MINUS, STAR,
// SLASH. Both operand references are non-owning pointers into the arena.
type BinaryExpr struct {
	Op  TokenType
	Lhs Expr
	Rhs Expr
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Lhs, opSymbol(b.Op), b.Rhs)
}

func opSymbol(tt TokenType) string {
	switch tt {
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case STAR:
		return "*"
	case SLASH:
		return "/"
	}
	return tt.String()
}

//  Statement nodes

// Stmt is implemented by every statement node.
type Stmt interface {
	stmtNode()
	String() string
}

// ExitStmt terminates the program with the expression's value as status.
//
//	exit(x + 1);
type ExitStmt struct {
	Expr Expr
}

func (*ExitStmt) stmtNode()        {}
func (s *ExitStmt) String() string { return fmt.Sprintf("exit(%s);", s.Expr) }

// DefineStmt declares a variable and binds the initializer's value to it.
//
//	def x = 5;
type DefineStmt struct {
	Name string
	Expr Expr
}

func (*DefineStmt) stmtNode() {}
func (s *DefineStmt) String() string {
	return fmt.Sprintf("def %s = %s;", s.Name, s.Expr)
}

// BlockStmt is a braced sequence of statements with its own variable
// lifetime: everything declared inside is deallocated at the closing
// brace. An empty block is legal.
type BlockStmt struct {
	Stmts []Stmt
}

func (*BlockStmt) stmtNode() {}
func (s *BlockStmt) String() string {
	var b strings.Builder
	b.WriteString("{ ")
	for _, st := range s.Stmts {
		b.WriteString(st.String())
		b.WriteString(" ")
	}
	b.WriteString("}")
	return b.String()
}

// IfStmt is a conditional with an optional elif/else chain.
//
//	if (cond) { ... } elif (cond2) { ... } else { ... }
type IfStmt struct {
	Cond Expr
	Body *BlockStmt
	Pred IfPred // nil when there is no elif/else chain
}

func (*IfStmt) stmtNode() {}
func (s *IfStmt) String() string {
	out := fmt.Sprintf("if (%s) %s", s.Cond, s.Body)
	if s.Pred != nil {
		out += " " + s.Pred.String()
	}
	return out
}

//  Predicate chain

// IfPred is one alternative in an elif/else chain. The chain is a linked
// list evaluated in order; at most one alternative's body executes.
type IfPred interface {
	ifPredNode()
	String() string
}

// ElifPred is an "elif (cond) { ... }" alternative.
type ElifPred struct {
	Cond Expr
	Body *BlockStmt
	Next IfPred // nil at the end of the chain
}

func (*ElifPred) ifPredNode() {}
func (p *ElifPred) String() string {
	out := fmt.Sprintf("elif (%s) %s", p.Cond, p.Body)
	if p.Next != nil {
		out += " " + p.Next.String()
	}
	return out
}

// ElsePred is a trailing "else { ... }"; it always terminates the chain.
type ElsePred struct {
	Body *BlockStmt
}

func (*ElsePred) ifPredNode()      {}
func (p *ElsePred) String() string { return fmt.Sprintf("else %s", p.Body) }

// Program is an ordered sequence of top-level statements. It keeps the
// arena that owns every node alive for as long as the tree is in use.
type Program struct {
	Stmts []Stmt

	arena *Arena
}

func (p *Program) String() string {
	var b strings.Builder
	for _, s := range p.Stmts {
		b.WriteString(s.String())
		b.WriteString("\n")
	}
	return b.String()
}
