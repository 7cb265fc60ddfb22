package compiler

import (
	"fmt"
	"strings"
)

// cellSize is the width of one evaluation-stack cell in bytes.
const cellSize = 8

// CodeGen walks a Program read-only and emits Stax VM assembly text.
// All generation state lives on this one value, so generation is
// reentrant and testable per statement.
type CodeGen struct {
	out        strings.Builder
	stackDepth int // live stack-machine cells, not bytes
	vars       varTable
	nextLabel  int
}

func newCodeGen() *CodeGen {
	return &CodeGen{}
}

func (cg *CodeGen) newLabel() string {
	l := fmt.Sprintf("L%d", cg.nextLabel)
	cg.nextLabel++
	return l
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, format+"\n", args...)
}

func (cg *CodeGen) comment(format string, args ...any) {
	cg.line("    ; "+format, args...)
}

func (cg *CodeGen) label(name string) {
	cg.line("%s:", name)
}

// push emits a push of src (a register or a [SP+n] slot) and counts the
// new cell.
func (cg *CodeGen) push(src string) {
	cg.line("    PUSH %s", src)
	cg.stackDepth++
}

// pop emits a pop into reg and uncounts the cell.
func (cg *CodeGen) pop(reg string) {
	cg.line("    POP %s", reg)
	cg.stackDepth--
}

// genTerm pushes the term's value onto the evaluation stack.
func (cg *CodeGen) genTerm(t Term) error {
	switch n := t.(type) {
	case *IntLit:
		cg.line("    MOV R0, %s", n.Value)
		cg.push("R0")
		return nil

	case *Ident:
		v, ok := cg.vars.lookup(n.Name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUndeclaredIdentifier, n.Name)
		}
		// The variable's cell sits (stackDepth - declDepth - 1) cells
		// below the current top; push a copy of it.
		offset := (cg.stackDepth - v.stackDepth - 1) * cellSize
		cg.push(fmt.Sprintf("[SP+%d]", offset))
		return nil

	case *Paren:
		// Parentheses only affected parse-time precedence.
		return cg.genExpr(n.Inner)
	}

	return fmt.Errorf("unsupported term %T", t)
}

// genBinaryExpr evaluates the right operand first, then the left, so the
// left operand ends up on top of the stack. R0 receives the left value,
// R1 the right; subtraction and division are left-over-right and depend
// on this order.
func (cg *CodeGen) genBinaryExpr(b *BinaryExpr) error {
	if err := cg.genExpr(b.Rhs); err != nil {
		return err
	}
	if err := cg.genExpr(b.Lhs); err != nil {
		return err
	}
	cg.pop("R0") // left operand
	cg.pop("R1") // right operand

	switch b.Op {
	case PLUS:
		cg.line("    ADD R0, R1")
	case MINUS:
		cg.line("    SUB R0, R1")
	case STAR:
		cg.line("    MUL R0, R1")
	case SLASH:
		cg.line("    DIV R0, R1")
	default:
		return fmt.Errorf("unsupported binary operator %s", b.Op)
	}

	cg.push("R0")
	return nil
}

// genExpr leaves the expression's value on top of the evaluation stack.
func (cg *CodeGen) genExpr(e Expr) error {
	switch n := e.(type) {
	case *BinaryExpr:
		return cg.genBinaryExpr(n)
	case Term:
		return cg.genTerm(n)
	}
	return fmt.Errorf("unsupported expression %T", e)
}

func (cg *CodeGen) genStmt(s Stmt) error {
	switch n := s.(type) {
	case *ExitStmt:
		cg.comment("exit %s", n.Expr)
		if err := cg.genExpr(n.Expr); err != nil {
			return err
		}
		cg.pop("R0")
		cg.line("    EXIT R0")
		return nil

	case *DefineStmt:
		// Redeclaring a name that is live anywhere in the scope chain is
		// rejected; the check is deliberately not limited to the
		// innermost block.
		if cg.vars.isDeclared(n.Name) {
			return fmt.Errorf("%w: %q", ErrDuplicateIdentifier, n.Name)
		}
		cg.comment("def %s = %s", n.Name, n.Expr)
		cg.vars.declare(n.Name, cg.stackDepth)
		// The initializer's pushed result is the variable's storage cell.
		return cg.genExpr(n.Expr)

	case *BlockStmt:
		cg.vars.beginScope()
		for _, st := range n.Stmts {
			if err := cg.genStmt(st); err != nil {
				return err
			}
		}
		popCount := cg.vars.endScope()
		cg.line("    ADD SP, %d", popCount*cellSize)
		cg.stackDepth -= popCount
		return nil

	case *IfStmt:
		return cg.genIf(n)
	}

	return fmt.Errorf("unsupported statement %T", s)
}

// genIf lowers a conditional to label-based jumps: the condition value is
// popped into R0 and a zero value branches past the body to the next
// alternative. Exactly one alternative's body executes, or none when no
// condition holds and there is no trailing else.
func (cg *CodeGen) genIf(n *IfStmt) error {
	next := cg.newLabel()

	if err := cg.genExpr(n.Cond); err != nil {
		return err
	}
	cg.pop("R0")
	cg.line("    JZ R0, %s", next)

	if err := cg.genStmt(n.Body); err != nil {
		return err
	}

	if n.Pred == nil {
		cg.label(next)
		return nil
	}

	end := cg.newLabel()
	cg.line("    JMP %s", end)
	cg.label(next)
	if err := cg.genIfPred(n.Pred, end); err != nil {
		return err
	}
	cg.label(end)
	return nil
}

func (cg *CodeGen) genIfPred(pred IfPred, end string) error {
	switch n := pred.(type) {
	case *ElifPred:
		next := cg.newLabel()

		if err := cg.genExpr(n.Cond); err != nil {
			return err
		}
		cg.pop("R0")
		cg.line("    JZ R0, %s", next)

		if err := cg.genStmt(n.Body); err != nil {
			return err
		}
		if n.Next != nil {
			cg.line("    JMP %s", end)
		}
		cg.label(next)
		if n.Next != nil {
			return cg.genIfPred(n.Next, end)
		}
		return nil

	case *ElsePred:
		return cg.genStmt(n.Body)
	}

	return fmt.Errorf("unsupported if predicate %T", pred)
}

// Generate lowers a parsed program to Stax VM assembly text: a fixed
// entry preamble, every top-level statement in order, then an
// unconditional terminate-with-zero trailer for control that falls
// through.
func Generate(prog *Program) (string, error) {
	cg := newCodeGen()
	cg.label("start")

	for _, s := range prog.Stmts {
		if err := cg.genStmt(s); err != nil {
			return "", err
		}
	}

	cg.line("    MOV R0, 0")
	cg.line("    EXIT R0")
	return cg.out.String(), nil
}
