// Package asmgen lowers abstract operations on operands into legal x86
// instructions. x86 has no memory-to-memory forms, no wide moves and no way to
// read the flags as a value, so every operation here legalizes its operands
// first: oversized values are split into word chunks, a second memory operand
// is routed through a scoped temporary register, and flags are materialized
// with a conditional move.
package asmgen

import (
	"github.com/raymyers/ralph-x64/pkg/arch"
	"github.com/raymyers/ralph-x64/pkg/diag"
	"github.com/raymyers/ralph-x64/pkg/ir"
	"github.com/raymyers/ralph-x64/pkg/operand"
	"github.com/raymyers/ralph-x64/pkg/regalloc"
)

// Selector is the per-program code generation context
type Selector struct {
	Prog *ir.Program
	Arch *arch.Arch
	Pool *regalloc.Pool

	// StackPtr and BasePtr are permanent claims on rsp and rbp at word size
	StackPtr operand.Reg
	BasePtr  operand.Reg

	rep *diag.Reporter
}

// NewSelector creates a selector for prog. pool may be nil.
func NewSelector(prog *ir.Program, pool *regalloc.Pool) *Selector {
	rep := prog.Reporter()
	if pool == nil {
		pool = regalloc.NewPool(rep)
	}
	word := prog.Arch.WordSize
	return &Selector{
		Prog:     prog,
		Arch:     prog.Arch,
		Pool:     pool,
		StackPtr: operand.NewReg(pool.Reserve(regalloc.RSP, word)),
		BasePtr:  operand.NewReg(pool.Reserve(regalloc.RBP, word)),
		rep:      rep,
	}
}

// CreateFunction creates a function whose prologue reserves frameSize bytes of
// locals and saves the callee-saved registers, and whose epilogue undoes that.
// Callers fill the blocks between Entry and Epilogue.
func (s *Selector) CreateFunction(name string, frameSize int) (*ir.Function, error) {
	if name != "" {
		name = s.Prog.Symbol(name).Label.Name
	}
	fn := s.Prog.NewFunction(name)
	if err := s.Prologue(fn.Block(fn.Prologue), frameSize); err != nil {
		return fn, err
	}
	if err := s.Epilogue(fn.Block(fn.Epilogue)); err != nil {
		return fn, err
	}
	return fn, nil
}

// FrameSlot returns the local at offset from the frame pointer
func (s *Selector) FrameSlot(offset, size int) operand.Mem {
	return operand.NewMem(s.BasePtr.Claim, offset, size)
}

// size is operand.Size for this target
func (s *Selector) size(op operand.Operand) int {
	return operand.Size(s.Arch.WordSize, op)
}

// withTemp runs fn with a scratch register of width bytes, clamped to the
// word, and releases it afterwards
func (s *Selector) withTemp(width int, fn func(tmp operand.Reg) error) error {
	if width <= 0 || width > s.Arch.WordSize {
		width = s.Arch.WordSize
	}
	return s.Pool.Scoped(width, func(c *regalloc.Claim) error {
		return fn(operand.NewReg(c))
	})
}

// fixed returns an unpooled view of a physical register at word size, for
// instructions that name a register without owning it
func (s *Selector) fixed(id regalloc.ID) operand.Reg {
	return operand.Reg{Claim: &regalloc.Claim{ID: id, Width: s.Arch.WordSize}, Width: s.Arch.WordSize}
}

func isInvalid(op operand.Operand) bool {
	_, ok := op.(operand.Invalid)
	return ok
}
