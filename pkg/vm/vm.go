// Package vm implements the Stax virtual machine: a 64-bit stack machine
// with four general registers and a descending evaluation stack of 8-byte
// cells. Programs are sequences of decoded instructions produced by
// pkg/asm; execution faults (divide by zero, stack misuse, bad jumps) are
// reported as errors rather than terminating the host.
package vm

import (
	"errors"
	"fmt"
)

// Opcode identifies a Stax VM instruction.
type Opcode uint16

const (
	OpHLT   Opcode = iota // stop without an exit status
	OpMOV                 // MOV Ra, imm
	OpPUSH                // PUSH Ra
	OpPUSHS               // PUSH [SP+imm]
	OpPOP                 // POP Ra
	OpADD                 // ADD Ra, Rb
	OpSUB                 // SUB Ra, Rb
	OpMUL                 // MUL Ra, Rb
	OpDIV                 // DIV Ra, Rb (floor division)
	OpADDSP               // ADD SP, imm (discard imm bytes of stack)
	OpJMP                 // JMP imm (instruction index)
	OpJZ                  // JZ Ra, imm
	OpEXIT                // EXIT Ra
)

var opNames = [...]string{
	OpHLT:   "HLT",
	OpMOV:   "MOV",
	OpPUSH:  "PUSH",
	OpPUSHS: "PUSH",
	OpPOP:   "POP",
	OpADD:   "ADD",
	OpSUB:   "SUB",
	OpMUL:   "MUL",
	OpDIV:   "DIV",
	OpADDSP: "ADD",
	OpJMP:   "JMP",
	OpJZ:    "JZ",
	OpEXIT:  "EXIT",
}

func (op Opcode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", uint16(op))
}

// Register indices.
const (
	R0 uint16 = iota
	R1
	R2
	R3
)

const (
	// CellSize is the width of one evaluation-stack cell in bytes.
	CellSize = 8

	// NumRegs is the number of general registers.
	NumRegs = 4

	// DefaultStackCells is the stack capacity of a new Machine.
	DefaultStackCells = 4096
)

// Instr is one decoded instruction. A and B are register indices; Imm is
// a literal value, a byte offset, or a jump target depending on Op.
type Instr struct {
	Op   Opcode
	A, B uint16
	Imm  int64
}

func (in Instr) String() string {
	switch in.Op {
	case OpHLT:
		return "HLT"
	case OpMOV:
		return fmt.Sprintf("MOV R%d, %d", in.A, in.Imm)
	case OpPUSH:
		return fmt.Sprintf("PUSH R%d", in.A)
	case OpPUSHS:
		return fmt.Sprintf("PUSH [SP+%d]", in.Imm)
	case OpPOP:
		return fmt.Sprintf("POP R%d", in.A)
	case OpADD, OpSUB, OpMUL, OpDIV:
		return fmt.Sprintf("%s R%d, R%d", in.Op, in.A, in.B)
	case OpADDSP:
		return fmt.Sprintf("ADD SP, %d", in.Imm)
	case OpJMP:
		return fmt.Sprintf("JMP %d", in.Imm)
	case OpJZ:
		return fmt.Sprintf("JZ R%d, %d", in.A, in.Imm)
	case OpEXIT:
		return fmt.Sprintf("EXIT R%d", in.A)
	}
	return fmt.Sprintf("%s %d %d %d", in.Op, in.A, in.B, in.Imm)
}

// Runtime faults. A fault halts the machine; the returned error wraps one
// of these sentinels.
var (
	ErrDivideByZero   = errors.New("divide by zero")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
	ErrBadSlot        = errors.New("stack slot out of range")
	ErrBadPC          = errors.New("program counter out of range")
	ErrBadRegister    = errors.New("register index out of range")
	ErrStepBudget     = errors.New("step budget exhausted")
)

// Machine is one Stax VM instance. The exported fields are read freely by
// tests and the visualizer; they must not be mutated mid-Step.
type Machine struct {
	Program []Instr
	PC      int

	Regs  [NumRegs]int64
	Stack []int64
	SP    int // index of the top live cell; len(Stack) when empty

	Halted   bool
	ExitCode int64
	Steps    int
}

// New returns a Machine loaded with program and an empty stack.
func New(program []Instr) *Machine {
	stack := make([]int64, DefaultStackCells)
	return &Machine{
		Program: program,
		Stack:   stack,
		SP:      len(stack),
	}
}

// Depth reports the number of live stack cells.
func (m *Machine) Depth() int {
	return len(m.Stack) - m.SP
}

func (m *Machine) push(v int64) error {
	if m.SP == 0 {
		return ErrStackOverflow
	}
	m.SP--
	m.Stack[m.SP] = v
	return nil
}

func (m *Machine) pop() (int64, error) {
	if m.SP >= len(m.Stack) {
		return 0, ErrStackUnderflow
	}
	v := m.Stack[m.SP]
	m.SP++
	return v, nil
}

func (m *Machine) reg(idx uint16) (*int64, error) {
	if idx >= NumRegs {
		return nil, fmt.Errorf("%w: R%d", ErrBadRegister, idx)
	}
	return &m.Regs[idx], nil
}

// fault halts the machine and decorates err with the faulting location.
func (m *Machine) fault(err error) error {
	m.Halted = true
	return fmt.Errorf("fault at instruction %d: %w", m.PC-1, err)
}

// floorDiv divides a by b rounding toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Step executes a single instruction. On a halted machine it is a no-op.
func (m *Machine) Step() error {
	if m.Halted {
		return nil
	}
	if m.PC < 0 || m.PC >= len(m.Program) {
		m.Halted = true
		return fmt.Errorf("%w: %d", ErrBadPC, m.PC)
	}

	in := m.Program[m.PC]
	m.PC++
	m.Steps++

	switch in.Op {
	case OpHLT:
		m.Halted = true

	case OpMOV:
		ra, err := m.reg(in.A)
		if err != nil {
			return m.fault(err)
		}
		*ra = in.Imm

	case OpPUSH:
		ra, err := m.reg(in.A)
		if err != nil {
			return m.fault(err)
		}
		if err := m.push(*ra); err != nil {
			return m.fault(err)
		}

	case OpPUSHS:
		idx := m.SP + int(in.Imm)/CellSize
		if in.Imm < 0 || in.Imm%CellSize != 0 || idx < m.SP || idx >= len(m.Stack) {
			return m.fault(fmt.Errorf("%w: [SP+%d]", ErrBadSlot, in.Imm))
		}
		if err := m.push(m.Stack[idx]); err != nil {
			return m.fault(err)
		}

	case OpPOP:
		ra, err := m.reg(in.A)
		if err != nil {
			return m.fault(err)
		}
		v, err := m.pop()
		if err != nil {
			return m.fault(err)
		}
		*ra = v

	case OpADD, OpSUB, OpMUL, OpDIV:
		ra, err := m.reg(in.A)
		if err != nil {
			return m.fault(err)
		}
		rb, err := m.reg(in.B)
		if err != nil {
			return m.fault(err)
		}
		switch in.Op {
		case OpADD:
			*ra += *rb
		case OpSUB:
			*ra -= *rb
		case OpMUL:
			*ra *= *rb
		case OpDIV:
			if *rb == 0 {
				return m.fault(ErrDivideByZero)
			}
			*ra = floorDiv(*ra, *rb)
		}

	case OpADDSP:
		if in.Imm < 0 || in.Imm%CellSize != 0 {
			return m.fault(fmt.Errorf("%w: ADD SP, %d", ErrBadSlot, in.Imm))
		}
		sp := m.SP + int(in.Imm)/CellSize
		if sp > len(m.Stack) {
			return m.fault(ErrStackUnderflow)
		}
		m.SP = sp

	case OpJMP:
		m.PC = int(in.Imm)

	case OpJZ:
		ra, err := m.reg(in.A)
		if err != nil {
			return m.fault(err)
		}
		if *ra == 0 {
			m.PC = int(in.Imm)
		}

	case OpEXIT:
		ra, err := m.reg(in.A)
		if err != nil {
			return m.fault(err)
		}
		m.ExitCode = *ra
		m.Halted = true

	default:
		return m.fault(fmt.Errorf("unknown opcode %d", uint16(in.Op)))
	}

	return nil
}

// Run steps the machine until it halts or maxSteps instructions have
// executed. Exceeding the budget is reported as ErrStepBudget.
func (m *Machine) Run(maxSteps int) error {
	for i := 0; i < maxSteps; i++ {
		if m.Halted {
			return nil
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	if !m.Halted {
		return fmt.Errorf("%w (%d steps)", ErrStepBudget, maxSteps)
	}
	return nil
}
