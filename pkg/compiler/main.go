// Package compiler implements the Stax front end: a lexer, a
// recursive-descent parser with precedence climbing that builds an
// arena-owned AST, and a code generator that lowers the tree to Stax VM
// assembly with lexically-scoped variable storage on the evaluation
// stack.
//
// Pipeline: Stax source → Lex → Parse → Generate → Stax VM assembly text
package compiler
