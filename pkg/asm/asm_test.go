package asm

import (
	"strings"
	"testing"

	"staxc/pkg/vm"
)

func mustAssemble(t *testing.T, code string) []vm.Instr {
	t.Helper()
	program, _, err := Assemble(code)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	return program
}

func TestAssembleBasicProgram(t *testing.T) {
	program := mustAssemble(t, `
start:
    MOV R0, 7
    PUSH R0
    POP R1
    EXIT R1
`)
	want := []vm.Instr{
		{Op: vm.OpMOV, A: 0, Imm: 7},
		{Op: vm.OpPUSH, A: 0},
		{Op: vm.OpPOP, A: 1},
		{Op: vm.OpEXIT, A: 1},
	}
	if len(program) != len(want) {
		t.Fatalf("expected %d instructions, got %d", len(want), len(program))
	}
	for i := range want {
		if program[i] != want[i] {
			t.Errorf("instruction %d: expected %v, got %v", i, want[i], program[i])
		}
	}
}

func TestAssembleOperandForms(t *testing.T) {
	tests := []struct {
		line string
		want vm.Instr
	}{
		{"MOV R2, -5", vm.Instr{Op: vm.OpMOV, A: 2, Imm: -5}},
		{"PUSH R3", vm.Instr{Op: vm.OpPUSH, A: 3}},
		{"PUSH [SP+16]", vm.Instr{Op: vm.OpPUSHS, Imm: 16}},
		{"PUSH [SP+0]", vm.Instr{Op: vm.OpPUSHS, Imm: 0}},
		{"ADD R0, R1", vm.Instr{Op: vm.OpADD, A: 0, B: 1}},
		{"SUB R1, R2", vm.Instr{Op: vm.OpSUB, A: 1, B: 2}},
		{"MUL R0, R1", vm.Instr{Op: vm.OpMUL, A: 0, B: 1}},
		{"DIV R0, R1", vm.Instr{Op: vm.OpDIV, A: 0, B: 1}},
		{"ADD SP, 24", vm.Instr{Op: vm.OpADDSP, Imm: 24}},
		{"HLT", vm.Instr{Op: vm.OpHLT}},
		{"pop r0", vm.Instr{Op: vm.OpPOP, A: 0}}, // case-insensitive
	}
	for _, tt := range tests {
		program := mustAssemble(t, tt.line)
		if len(program) != 1 {
			t.Fatalf("%q: expected 1 instruction, got %d", tt.line, len(program))
		}
		if program[0] != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.line, tt.want, program[0])
		}
	}
}

func TestAssembleLabels(t *testing.T) {
	program := mustAssemble(t, `
start:
    MOV R0, 0
    JZ R0, done    ; forward reference
    MOV R0, 1
done:
    EXIT R0
loop:
    JMP loop       ; backward reference
`)
	if program[1].Op != vm.OpJZ || program[1].Imm != 3 {
		t.Errorf("JZ done: expected target 3, got %v", program[1])
	}
	if program[4].Op != vm.OpJMP || program[4].Imm != 4 {
		t.Errorf("JMP loop: expected target 4, got %v", program[4])
	}
}

func TestAssembleLabelSharingLine(t *testing.T) {
	program := mustAssemble(t, "top: MOV R0, 1\nJMP top")
	if program[1].Imm != 0 {
		t.Errorf("expected label at 0, got %d", program[1].Imm)
	}
}

func TestAssembleLabelsCaseInsensitive(t *testing.T) {
	program := mustAssemble(t, "Done:\n    JMP done")
	if program[0].Imm != 0 {
		t.Errorf("expected target 0, got %d", program[0].Imm)
	}
}

func TestAssembleCommentsAndBlankLines(t *testing.T) {
	program := mustAssemble(t, `
; a whole-line comment
// another comment style

    MOV R0, 1  ; trailing
    EXIT R0    // trailing
`)
	if len(program) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(program))
	}
}

func TestAssembleSourceMap(t *testing.T) {
	_, sourceMap, err := Assemble("start:\n    MOV R0, 1\n\n    EXIT R0\n")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if sourceMap[0] != 2 {
		t.Errorf("instruction 0: expected source line 2, got %d", sourceMap[0])
	}
	if sourceMap[1] != 4 {
		t.Errorf("instruction 1: expected source line 4, got %d", sourceMap[1])
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		contains string
	}{
		{"unknown mnemonic", "FROB R0", "unknown instruction"},
		{"bad register", "POP R9", "invalid register"},
		{"undefined label", "JMP nowhere", "undefined label"},
		{"duplicate label", "x:\nx:\n    HLT", "duplicate label"},
		{"operand count", "ADD R0", "expects 2 operands"},
		{"too many operands", "HLT R0", "expects 0 operands"},
		{"bad immediate", "MOV R0, 1.5", "invalid immediate"},
		{"misaligned slot", "PUSH [SP+3]", "invalid stack slot"},
		{"negative slot", "PUSH [SP+-8]", "invalid stack slot"},
		{"bad label", "9lives:\n    HLT", "invalid label"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Assemble(tt.code)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("expected error containing %q, got %v", tt.contains, err)
			}
		})
	}
}

func TestAssembleErrorNamesLine(t *testing.T) {
	_, _, err := Assemble("MOV R0, 1\nFROB\n")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line 2 in error, got %v", err)
	}
}

func TestAssembleEmptyInput(t *testing.T) {
	program := mustAssemble(t, "")
	if len(program) != 0 {
		t.Errorf("expected an empty program, got %d instructions", len(program))
	}
}
