package compiler

import (
	"staxc/pkg/asm"
	"staxc/pkg/vm"
)

// Compile runs the whole pipeline over src: lex, parse, generate, and
// assemble. It returns the generated assembly text and the decoded
// program ready for a vm.Machine. The first error aborts the pipeline;
// nothing is produced from a failed compilation.
func Compile(src string) (string, []vm.Instr, error) {
	tokens, err := Lex(src)
	if err != nil {
		return "", nil, err
	}

	prog, err := Parse(tokens, src)
	if err != nil {
		return "", nil, err
	}

	assembly, err := Generate(prog)
	if err != nil {
		return "", nil, err
	}

	program, _, err := asm.Assemble(assembly)
	if err != nil {
		return "", nil, err
	}

	return assembly, program, nil
}

// CompileToAsm stops the pipeline after code generation and returns the
// assembly text only.
func CompileToAsm(src string) (string, error) {
	tokens, err := Lex(src)
	if err != nil {
		return "", err
	}

	prog, err := Parse(tokens, src)
	if err != nil {
		return "", err
	}

	return Generate(prog)
}
