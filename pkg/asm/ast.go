// Package asm defines the x86 assembly representation.
// This is the final output of the backend: structured instructions over
// operands, rendered to Intel-syntax GNU as text by Printer.
package asm

import "github.com/raymyers/ralph-x64/pkg/operand"

// Instruction is the interface for x86 instructions
type Instruction interface {
	implInstruction()
}

// BinOp selects a two-operand arithmetic instruction
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	And
	Or
	Xor
	Shr
	Shl
)

var binOpMnemonics = [...]string{"add", "sub", "imul", "and", "or", "xor", "sar", "sal"}

// Mnemonic returns the instruction name for op
func (op BinOp) Mnemonic() string {
	if op < 0 || int(op) >= len(binOpMnemonics) {
		return ""
	}
	return binOpMnemonics[op]
}

// UnaryOp selects a one-operand arithmetic instruction
type UnaryOp int

const (
	Inc UnaryOp = iota
	Dec
	Neg
	Not
)

// --- Data Movement ---

// Mov - Move
type Mov struct {
	Dest, Src operand.Operand
}

// Movzx - Move with zero extension
type Movzx struct {
	Dest, Src operand.Operand
}

// Lea - Load effective address
type Lea struct {
	Dest, Src operand.Operand
}

// Push - Push onto the machine stack
type Push struct {
	Src operand.Operand
}

// Pop - Pop off the machine stack
type Pop struct {
	Dest operand.Operand
}

// RepStos - Store rax into rcx elements at rdi
type RepStos struct {
	Width int
}

// --- Arithmetic ---

// Binary - Two-operand arithmetic (Dest op= Src)
type Binary struct {
	Op        BinOp
	Dest, Src operand.Operand
}

// IMul3 - Three-operand multiply (Dest = Src * Imm)
type IMul3 struct {
	Dest, Src, Imm operand.Operand
}

// Unary - One-operand arithmetic. Inc and Dec print as add/sub 1.
type Unary struct {
	Op   UnaryOp
	Dest operand.Operand
}

// Idiv - Signed divide of rdx:rax
type Idiv struct {
	Src operand.Operand
}

// Cmp - Compare
type Cmp struct {
	L, R operand.Operand
}

// --- Control Flow ---

// Jmp - Unconditional jump
type Jmp struct {
	Target string
}

// Jcc - Conditional jump
type Jcc struct {
	Cond   operand.Condition
	Target string
}

// Call - Direct call
type Call struct {
	Target string
}

// CallIndirect - Call through a register or memory operand
type CallIndirect struct {
	Target operand.Operand
}

// Ret - Return
type Ret struct{}

// --- Pseudo ---

// LabelDef - Label definition
type LabelDef struct {
	Name string
}

// Comment - Assembler comment
type Comment struct {
	Text string
}

// Marker methods
func (Mov) implInstruction()          {}
func (Movzx) implInstruction()        {}
func (Lea) implInstruction()          {}
func (Push) implInstruction()         {}
func (Pop) implInstruction()          {}
func (RepStos) implInstruction()      {}
func (Binary) implInstruction()       {}
func (IMul3) implInstruction()        {}
func (Unary) implInstruction()        {}
func (Idiv) implInstruction()         {}
func (Cmp) implInstruction()          {}
func (Jmp) implInstruction()          {}
func (Jcc) implInstruction()          {}
func (Call) implInstruction()         {}
func (CallIndirect) implInstruction() {}
func (Ret) implInstruction()          {}
func (LabelDef) implInstruction()     {}
func (Comment) implInstruction()      {}

// --- Function and Program ---

// Function represents an assembly function
type Function struct {
	Name string
	Code []Instruction
}

// Data is a mutable static variable
type Data struct {
	Label  string
	Global bool
	Size   int
	Init   int64
}

// String is a read-only NUL-terminated string constant
type String struct {
	Label string
	Value string
}

// Program represents a complete assembly file
type Program struct {
	Source    string
	Functions []Function
	Data      []Data
	Strings   []String
}
