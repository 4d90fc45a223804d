// Package ir defines the control-flow graph the backend optimizes and emits.
// A Function owns an arena of Blocks addressed by BlockID; each block holds
// already-selected x86 instructions and exactly one Terminator once closed.
package ir

import (
	"github.com/raymyers/ralph-x64/pkg/asm"
	"github.com/raymyers/ralph-x64/pkg/operand"
)

// Re-export types
type (
	Condition = operand.Condition
	Operand   = operand.Operand
)

// BlockID is a stable handle into a function's block arena
type BlockID int

// NoBlock is the invalid handle
const NoBlock BlockID = -1

// Terminator is the control transfer that closes a block
type Terminator interface {
	implTerminator()
}

// Jump - Unconditional transfer to To
type Jump struct {
	To BlockID
}

// Branch - Go to IfTrue when Cond holds on the flags, else IfFalse
type Branch struct {
	Cond    operand.Condition
	IfTrue  BlockID
	IfFalse BlockID
}

// Call - Call a named function, then continue at Ret
type Call struct {
	Callee *Symbol
	Ret    BlockID
}

// CallIndirect - Call through an operand, then continue at Ret
type CallIndirect struct {
	Callee operand.Operand
	Ret    BlockID
}

// Return - Return to the caller
type Return struct{}

func (Jump) implTerminator()         {}
func (Branch) implTerminator()       {}
func (Call) implTerminator()         {}
func (CallIndirect) implTerminator() {}
func (Return) implTerminator()       {}

// Block is a straight-line run of instructions with one terminator.
// Preds and Succs are maintained by the terminator methods on Function and
// must not be edited directly. An edge appears once per terminator target, so
// a branch with both arms to the same block contributes two entries.
type Block struct {
	ID    BlockID
	Label *operand.Label
	Code  []asm.Instruction
	Term  Terminator

	Preds []BlockID
	Succs []BlockID
}

// Append adds instructions to the end of the block
func (b *Block) Append(insts ...asm.Instruction) {
	b.Code = append(b.Code, insts...)
}

// Closed reports whether the block has a terminator
func (b *Block) Closed() bool {
	return b.Term != nil
}

// Symbol is a source-level identifier and the label the target spells it with
type Symbol struct {
	Ident string
	Label *operand.Label
}

// StaticData is a mutable static variable
type StaticData struct {
	Label  string
	Global bool
	Size   int
	Init   int64
}

// StringConstant is a read-only string
type StringConstant struct {
	Label *operand.Label
	Value string
}
