package compiler

import "errors"

// Compilation errors. Every error is fatal to the whole compilation: the
// first one encountered propagates to the caller and no output is
// produced. Concrete errors wrap one of these sentinels so callers can
// classify them with errors.Is.
var (
	// ErrSyntax: the lookahead did not match the expected token kind, or
	// a statement could not be formed from the remaining input.
	ErrSyntax = errors.New("syntax error")

	// ErrMissingExpression: an operator or construct demands a
	// sub-expression that parsing could not produce.
	ErrMissingExpression = errors.New("expected expression")

	// ErrOutOfTokens: the token cursor was advanced past end of input.
	ErrOutOfTokens = errors.New("unexpected end of input")

	// ErrUndeclaredIdentifier: a variable reference has no matching live
	// declaration.
	ErrUndeclaredIdentifier = errors.New("undeclared identifier")

	// ErrDuplicateIdentifier: a definition reuses a name that is still
	// live anywhere in the enclosing scope chain.
	ErrDuplicateIdentifier = errors.New("identifier already declared")

	// ErrArenaExhausted: the AST arena's fixed budget ran out.
	ErrArenaExhausted = errors.New("arena exhausted")
)
