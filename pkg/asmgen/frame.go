package asmgen

import (
	"github.com/raymyers/ralph-x64/pkg/asm"
	"github.com/raymyers/ralph-x64/pkg/ir"
	"github.com/raymyers/ralph-x64/pkg/operand"
)

// Prologue saves the caller's frame pointer, establishes the new frame,
// reserves frameSize bytes of locals and saves the callee-saved registers
func (s *Selector) Prologue(b *ir.Block, frameSize int) error {
	if err := s.Push(b, s.BasePtr); err != nil {
		return err
	}
	if err := s.Move(b, s.BasePtr, s.StackPtr); err != nil {
		return err
	}
	if frameSize != 0 {
		if err := s.Binary(b, asm.Sub, s.StackPtr, operand.Literal{Value: int64(frameSize)}); err != nil {
			return err
		}
	}
	for _, r := range s.Arch.CalleeSaveRegs {
		if err := s.SaveReg(b, r); err != nil {
			return err
		}
	}
	return nil
}

// Epilogue restores the callee-saved registers in reverse and tears down
// the frame
func (s *Selector) Epilogue(b *ir.Block) error {
	regs := s.Arch.CalleeSaveRegs
	for i := len(regs) - 1; i >= 0; i-- {
		if err := s.RestoreReg(b, regs[i]); err != nil {
			return err
		}
	}
	if err := s.Move(b, s.StackPtr, s.BasePtr); err != nil {
		return err
	}
	return s.Pop(b, s.BasePtr)
}
