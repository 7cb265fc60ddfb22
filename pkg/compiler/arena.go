package compiler

import (
	"fmt"
	"unsafe"
)

// DefaultArenaBytes is the backing budget of an arena created by Parse.
// Exceeding it fails the compilation; the arena never resizes.
const DefaultArenaBytes = 4 << 20

// noCopy makes `go vet` flag copies of the containing struct.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// slab is fixed-capacity bump storage for one node kind. Because the
// backing array is sized once and append never exceeds its capacity,
// pointers into a slab stay valid for the slab's whole lifetime.
type slab[T any] struct {
	cells []T
}

func newSlab[T any](budget int) slab[T] {
	var zero T
	n := budget / int(unsafe.Sizeof(zero))
	if n < 1 {
		n = 1
	}
	return slab[T]{cells: make([]T, 0, n)}
}

func (s *slab[T]) alloc() (*T, error) {
	if len(s.cells) == cap(s.cells) {
		return nil, ErrArenaExhausted
	}
	var zero T
	s.cells = append(s.cells, zero)
	return &s.cells[len(s.cells)-1], nil
}

// Arena owns every AST node of a single compilation. Nodes are handed out
// zero-initialized from per-kind slabs, cross-reference each other without
// owning anything, and are released all at once when the arena becomes
// unreachable. The arena must not be copied; the noCopy field makes vet
// enforce that.
type Arena struct {
	noCopy noCopy

	intLits  slab[IntLit]
	idents   slab[Ident]
	parens   slab[Paren]
	binaries slab[BinaryExpr]
	exits    slab[ExitStmt]
	defines  slab[DefineStmt]
	blocks   slab[BlockStmt]
	ifs      slab[IfStmt]
	elifs    slab[ElifPred]
	elses    slab[ElsePred]
}

// NewArena returns an arena whose slabs split a single byte budget.
func NewArena(budgetBytes int) *Arena {
	share := budgetBytes / 10
	return &Arena{
		intLits:  newSlab[IntLit](share),
		idents:   newSlab[Ident](share),
		parens:   newSlab[Paren](share),
		binaries: newSlab[BinaryExpr](share),
		exits:    newSlab[ExitStmt](share),
		defines:  newSlab[DefineStmt](share),
		blocks:   newSlab[BlockStmt](share),
		ifs:      newSlab[IfStmt](share),
		elifs:    newSlab[ElifPred](share),
		elses:    newSlab[ElsePred](share),
	}
}

func (a *Arena) NewIntLit(value string) (*IntLit, error) {
	n, err := a.intLits.alloc()
	if err != nil {
		return nil, err
	}
	n.Value = value
	return n, nil
}

func (a *Arena) NewIdent(name string) (*Ident, error) {
	n, err := a.idents.alloc()
	if err != nil {
		return nil, err
	}
	n.Name = name
	return n, nil
}

func (a *Arena) NewParen(inner Expr) (*Paren, error) {
	n, err := a.parens.alloc()
	if err != nil {
		return nil, err
	}
	n.Inner = inner
	return n, nil
}

func (a *Arena) NewBinaryExpr(op TokenType, lhs, rhs Expr) (*BinaryExpr, error) {
	n, err := a.binaries.alloc()
	if err != nil {
		return nil, err
	}
	n.Op, n.Lhs, n.Rhs = op, lhs, rhs
	return n, nil
}

func (a *Arena) NewExitStmt(expr Expr) (*ExitStmt, error) {
	n, err := a.exits.alloc()
	if err != nil {
		return nil, err
	}
	n.Expr = expr
	return n, nil
}

func (a *Arena) NewDefineStmt(name string, expr Expr) (*DefineStmt, error) {
	n, err := a.defines.alloc()
	if err != nil {
		return nil, err
	}
	n.Name, n.Expr = name, expr
	return n, nil
}

func (a *Arena) NewBlockStmt(stmts []Stmt) (*BlockStmt, error) {
	n, err := a.blocks.alloc()
	if err != nil {
		return nil, err
	}
	n.Stmts = stmts
	return n, nil
}

func (a *Arena) NewIfStmt(cond Expr, body *BlockStmt, pred IfPred) (*IfStmt, error) {
	n, err := a.ifs.alloc()
	if err != nil {
		return nil, err
	}
	n.Cond, n.Body, n.Pred = cond, body, pred
	return n, nil
}

func (a *Arena) NewElifPred(cond Expr, body *BlockStmt, next IfPred) (*ElifPred, error) {
	n, err := a.elifs.alloc()
	if err != nil {
		return nil, err
	}
	n.Cond, n.Body, n.Next = cond, body, next
	return n, nil
}

func (a *Arena) NewElsePred(body *BlockStmt) (*ElsePred, error) {
	n, err := a.elses.alloc()
	if err != nil {
		return nil, err
	}
	n.Body = body
	return n, nil
}

// CopyExpr allocates a fresh shallow copy of e. Precedence climbing uses
// it when an already-parsed expression becomes the left operand of a newly
// discovered binary operator, so the tree stays a strict tree: no node is
// ever referenced from two places.
func (a *Arena) CopyExpr(e Expr) (Expr, error) {
	switch n := e.(type) {
	case *IntLit:
		return a.NewIntLit(n.Value)
	case *Ident:
		return a.NewIdent(n.Name)
	case *Paren:
		return a.NewParen(n.Inner)
	case *BinaryExpr:
		return a.NewBinaryExpr(n.Op, n.Lhs, n.Rhs)
	}
	return nil, fmt.Errorf("cannot copy expression %T", e)
}
