package compiler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSource(t *testing.T, src string) *Program {
	t.Helper()
	tokens, err := Lex(src)
	require.NoError(t, err)
	prog, err := Parse(tokens, src)
	require.NoError(t, err)
	return prog
}

// exprShape parses "exit(<expr>);" and renders the expression tree with
// explicit grouping, so precedence and associativity are visible.
func exprShape(t *testing.T, expr string) string {
	t.Helper()
	prog := parseSource(t, "exit("+expr+");")
	require.Len(t, prog.Stmts, 1)
	st, ok := prog.Stmts[0].(*ExitStmt)
	require.True(t, ok, "expected *ExitStmt, got %T", prog.Stmts[0])
	return st.Expr.String()
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"2 + 3 * 4", "(2 + (3 * 4))"},
		{"2 * 3 + 4", "((2 * 3) + 4)"},
		{"2 * 3 + 4 * 5", "((2 * 3) + (4 * 5))"},
		{"a + b / c", "(a + (b / c))"},
		{"1 + 2 - 3", "((1 + 2) - 3)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exprShape(t, tt.expr), "expr %q", tt.expr)
	}
}

func TestParseLeftAssociativity(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"10 - 3 - 2", "((10 - 3) - 2)"},
		{"100 / 5 / 2", "((100 / 5) / 2)"},
		{"1 + 2 + 3 + 4", "(((1 + 2) + 3) + 4)"},
		{"2 * 3 * 4", "((2 * 3) * 4)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exprShape(t, tt.expr), "expr %q", tt.expr)
	}
}

func TestParseParentheses(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"(2 + 3) * 4", "((2 + 3) * 4)"},
		{"2 * (3 + 4)", "(2 * (3 + 4))"},
		{"(x)", "(x)"},
		{"((5))", "((5))"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exprShape(t, tt.expr), "expr %q", tt.expr)
	}
}

func TestParseExpressionTree(t *testing.T) {
	prog := parseSource(t, "exit(2 + 3 * 4);")
	require.Len(t, prog.Stmts, 1)

	want := &ExitStmt{
		Expr: &BinaryExpr{
			Op:  PLUS,
			Lhs: &IntLit{Value: "2"},
			Rhs: &BinaryExpr{
				Op:  STAR,
				Lhs: &IntLit{Value: "3"},
				Rhs: &IntLit{Value: "4"},
			},
		},
	}
	if diff := cmp.Diff(want, prog.Stmts[0]); diff != "" {
		t.Errorf("AST mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDefineStmt(t *testing.T) {
	prog := parseSource(t, "def total = x + 1;")
	require.Len(t, prog.Stmts, 1)

	want := &DefineStmt{
		Name: "total",
		Expr: &BinaryExpr{
			Op:  PLUS,
			Lhs: &Ident{Name: "x"},
			Rhs: &IntLit{Value: "1"},
		},
	}
	if diff := cmp.Diff(want, prog.Stmts[0]); diff != "" {
		t.Errorf("AST mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBlockStmt(t *testing.T) {
	prog := parseSource(t, "{ def x = 1; { } exit(x); }")
	require.Len(t, prog.Stmts, 1)

	block, ok := prog.Stmts[0].(*BlockStmt)
	require.True(t, ok)
	require.Len(t, block.Stmts, 3)
	assert.IsType(t, &DefineStmt{}, block.Stmts[0])
	assert.IsType(t, &BlockStmt{}, block.Stmts[1])
	assert.IsType(t, &ExitStmt{}, block.Stmts[2])

	inner := block.Stmts[1].(*BlockStmt)
	assert.Empty(t, inner.Stmts, "empty scope must parse to an empty block")
}

func TestParseIfChain(t *testing.T) {
	prog := parseSource(t, "if (a) { exit(1); } elif (b) { exit(2); } else { exit(3); }")
	require.Len(t, prog.Stmts, 1)

	want := &IfStmt{
		Cond: &Ident{Name: "a"},
		Body: &BlockStmt{Stmts: []Stmt{&ExitStmt{Expr: &IntLit{Value: "1"}}}},
		Pred: &ElifPred{
			Cond: &Ident{Name: "b"},
			Body: &BlockStmt{Stmts: []Stmt{&ExitStmt{Expr: &IntLit{Value: "2"}}}},
			Next: &ElsePred{
				Body: &BlockStmt{Stmts: []Stmt{&ExitStmt{Expr: &IntLit{Value: "3"}}}},
			},
		},
	}
	if diff := cmp.Diff(want, prog.Stmts[0]); diff != "" {
		t.Errorf("AST mismatch (-want +got):\n%s", diff)
	}
}

func TestParseIfWithoutChain(t *testing.T) {
	prog := parseSource(t, "if (x) { exit(1); }")
	require.Len(t, prog.Stmts, 1)
	ifStmt, ok := prog.Stmts[0].(*IfStmt)
	require.True(t, ok)
	assert.Nil(t, ifStmt.Pred)
}

func TestParseOperandsAreDistinctNodes(t *testing.T) {
	// Folding the chain must never reuse a node as two operands.
	prog := parseSource(t, "exit(1 + 2 + 3);")
	st := prog.Stmts[0].(*ExitStmt)
	outer := st.Expr.(*BinaryExpr)
	inner := outer.Lhs.(*BinaryExpr)
	assert.NotSame(t, outer, inner)
	assert.NotSame(t, inner.Lhs, inner.Rhs)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		sentinel error
		contains string
	}{
		{"unclosed paren at eof", "exit(5", ErrSyntax, "RPAREN"},
		{"missing semicolon", "exit(5)", ErrSyntax, "SEMICOLON"},
		{"empty exit", "exit();", ErrMissingExpression, ""},
		{"empty define", "def x = ;", ErrMissingExpression, ""},
		{"dangling operator", "exit(5 *);", ErrMissingExpression, "right-hand side"},
		{"empty parens", "exit(());", ErrMissingExpression, ""},
		{"unclosed scope", "{ exit(1);", ErrSyntax, "RBRACE"},
		{"stray closing brace", "}", ErrSyntax, "invalid statement"},
		{"bare expression", "5 + 5;", ErrSyntax, "invalid statement"},
		{"elif without if", "elif (1) { }", ErrSyntax, "invalid statement"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Lex(tt.src)
			require.NoError(t, err)
			_, err = Parse(tokens, tt.src)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestParseErrorQuotesSourceLine(t *testing.T) {
	src := "def x = 1;\nexit(x"
	tokens, err := Lex(src)
	require.NoError(t, err)
	_, err = Parse(tokens, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), "exit(x")
}

func TestParseEmptyProgram(t *testing.T) {
	prog := parseSource(t, "")
	assert.Empty(t, prog.Stmts)
}
