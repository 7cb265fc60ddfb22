// Package asm assembles Stax VM assembly text into a decoded instruction
// sequence. Assembly is two passes: pass 1 collects label addresses
// (instruction indices), pass 2 encodes instructions and resolves label
// references.
package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"staxc/pkg/vm"
)

var zeroOperandOps = map[string]vm.Opcode{
	"HLT": vm.OpHLT,
}

var oneRegisterOps = map[string]vm.Opcode{
	"POP":  vm.OpPOP,
	"EXIT": vm.OpEXIT,
}

var twoRegisterOps = map[string]vm.Opcode{
	"ADD": vm.OpADD,
	"SUB": vm.OpSUB,
	"MUL": vm.OpMUL,
	"DIV": vm.OpDIV,
}

var immediateOnlyOps = map[string]vm.Opcode{
	"JMP": vm.OpJMP,
}

type Assembler struct {
	labels map[string]int
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]int),
	}
}

// Assemble is a convenience wrapper over a one-shot Assembler.
func Assemble(code string) ([]vm.Instr, map[int]int, error) {
	return NewAssembler().Assemble(code)
}

// Assemble returns the program and a map from instruction index to the
// 1-based source line it was assembled from.
func (a *Assembler) Assemble(code string) ([]vm.Instr, map[int]int, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, nil, err
	}

	return a.pass2(lines)
}

func (a *Assembler) pass1(lines []string) error {
	addr := 0

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			key := normalizeLabel(lbl)
			if _, exists := a.labels[key]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[key] = addr
		}

		if p.mnemonic == "" {
			continue
		}
		addr++
	}

	return nil
}

func (a *Assembler) pass2(lines []string) ([]vm.Instr, map[int]int, error) {
	program := make([]vm.Instr, 0)
	sourceMap := make(map[int]int)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, nil, err
		}

		if p.mnemonic == "" {
			continue
		}

		in, err := a.encode(p)
		if err != nil {
			return nil, nil, err
		}

		sourceMap[len(program)] = lineNo
		program = append(program, in)
	}

	return program, sourceMap, nil
}

// encode turns one parsed line into an instruction. Mnemonics with more
// than one operand shape (PUSH, ADD, MOV, JZ) are handled individually;
// the rest go through the shape tables.
func (a *Assembler) encode(p parsedLine) (vm.Instr, error) {
	mnemonic, ops, lineNo := p.mnemonic, p.operands, p.lineNo

	switch mnemonic {
	case "PUSH":
		if len(ops) != 1 {
			return vm.Instr{}, fmt.Errorf("PUSH expects 1 operand on line %d", lineNo)
		}
		if isStackSlot(ops[0]) {
			off, err := parseStackSlot(ops[0], lineNo)
			if err != nil {
				return vm.Instr{}, err
			}
			return vm.Instr{Op: vm.OpPUSHS, Imm: off}, nil
		}
		reg, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return vm.Instr{}, err
		}
		return vm.Instr{Op: vm.OpPUSH, A: reg}, nil

	case "MOV":
		if len(ops) != 2 {
			return vm.Instr{}, fmt.Errorf("MOV expects 2 operands on line %d", lineNo)
		}
		reg, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return vm.Instr{}, err
		}
		imm, err := a.parseImmediate(ops[1], lineNo)
		if err != nil {
			return vm.Instr{}, err
		}
		return vm.Instr{Op: vm.OpMOV, A: reg, Imm: imm}, nil

	case "JZ":
		if len(ops) != 2 {
			return vm.Instr{}, fmt.Errorf("JZ expects 2 operands on line %d", lineNo)
		}
		reg, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return vm.Instr{}, err
		}
		imm, err := a.parseImmediate(ops[1], lineNo)
		if err != nil {
			return vm.Instr{}, err
		}
		return vm.Instr{Op: vm.OpJZ, A: reg, Imm: imm}, nil
	}

	// ADD has a stack-pointer form: ADD SP, <bytes>.
	if _, ok := twoRegisterOps[mnemonic]; ok {
		if len(ops) != 2 {
			return vm.Instr{}, fmt.Errorf("%s expects 2 operands on line %d", mnemonic, lineNo)
		}
		if mnemonic == "ADD" && strings.EqualFold(ops[0], "SP") {
			imm, err := a.parseImmediate(ops[1], lineNo)
			if err != nil {
				return vm.Instr{}, err
			}
			return vm.Instr{Op: vm.OpADDSP, Imm: imm}, nil
		}
		regA, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return vm.Instr{}, err
		}
		regB, err := parseRegister(ops[1], lineNo)
		if err != nil {
			return vm.Instr{}, err
		}
		return vm.Instr{Op: twoRegisterOps[mnemonic], A: regA, B: regB}, nil
	}

	if opcode, ok := zeroOperandOps[mnemonic]; ok {
		if len(ops) != 0 {
			return vm.Instr{}, fmt.Errorf("%s expects 0 operands on line %d", mnemonic, lineNo)
		}
		return vm.Instr{Op: opcode}, nil
	}

	if opcode, ok := oneRegisterOps[mnemonic]; ok {
		if len(ops) != 1 {
			return vm.Instr{}, fmt.Errorf("%s expects 1 operand on line %d", mnemonic, lineNo)
		}
		reg, err := parseRegister(ops[0], lineNo)
		if err != nil {
			return vm.Instr{}, err
		}
		return vm.Instr{Op: opcode, A: reg}, nil
	}

	if opcode, ok := immediateOnlyOps[mnemonic]; ok {
		if len(ops) != 1 {
			return vm.Instr{}, fmt.Errorf("%s expects 1 operand on line %d", mnemonic, lineNo)
		}
		imm, err := a.parseImmediate(ops[0], lineNo)
		if err != nil {
			return vm.Instr{}, err
		}
		return vm.Instr{Op: opcode, Imm: imm}, nil
	}

	return vm.Instr{}, fmt.Errorf("unknown instruction on line %d: %s", lineNo, mnemonic)
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(raw)
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if beforeColon == "" {
			return p, fmt.Errorf("invalid label on line %d", lineNo)
		}

		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	line = stripComments(line)
	line = strings.TrimSpace(line)
	if line == "" {
		return p, nil
	}

	line = normalizeInstructionText(line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return p, nil
	}

	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}

	return p, nil
}

func stripComments(line string) string {
	semicolon := strings.Index(line, ";")
	doubleSlash := strings.Index(line, "//")

	cut := -1
	if semicolon >= 0 {
		cut = semicolon
	}
	if doubleSlash >= 0 && (cut == -1 || doubleSlash < cut) {
		cut = doubleSlash
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

// normalizeInstructionText turns commas and brackets into field breaks so
// "PUSH [SP+16]" and "ADD R0, R1" split cleanly.
func normalizeInstructionText(line string) string {
	replacer := strings.NewReplacer(",", " ", "[", " ", "]", " ")
	return replacer.Replace(line)
}

func parseRegister(token string, lineNo int) (uint16, error) {
	switch strings.ToUpper(token) {
	case "R0":
		return 0, nil
	case "R1":
		return 1, nil
	case "R2":
		return 2, nil
	case "R3":
		return 3, nil
	default:
		return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
	}
}

// isStackSlot reports whether token looks like SP+<n> (brackets were
// already stripped by normalizeInstructionText).
func isStackSlot(token string) bool {
	return strings.HasPrefix(strings.ToUpper(token), "SP+")
}

func parseStackSlot(token string, lineNo int) (int64, error) {
	body := strings.ToUpper(token)
	offText := strings.TrimPrefix(body, "SP+")
	off, err := strconv.ParseInt(offText, 10, 64)
	if err != nil || off < 0 || off%vm.CellSize != 0 {
		return 0, fmt.Errorf("invalid stack slot '[%s]' on line %d", token, lineNo)
	}
	return off, nil
}

func (a *Assembler) parseImmediate(token string, lineNo int) (int64, error) {
	if value, err := strconv.ParseInt(token, 0, 64); err == nil {
		return value, nil
	}

	label := normalizeLabel(token)
	if addr, ok := a.labels[label]; ok {
		return int64(addr), nil
	}

	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
	}

	return 0, fmt.Errorf("invalid immediate '%s' on line %d", token, lineNo)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

func normalizeLabel(label string) string {
	return strings.ToUpper(label)
}
