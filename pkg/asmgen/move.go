package asmgen

import (
	"github.com/raymyers/ralph-x64/pkg/asm"
	"github.com/raymyers/ralph-x64/pkg/ir"
	"github.com/raymyers/ralph-x64/pkg/operand"
	"github.com/raymyers/ralph-x64/pkg/regalloc"
)

// Move copies src into dest
func (s *Selector) Move(b *ir.Block, dest, src operand.Operand) error {
	if isInvalid(dest) || isInvalid(src) {
		return nil
	}
	if _, ok := dest.(operand.Void); ok {
		return nil
	}
	if !operand.IsUsable(src) {
		return s.rep.Unhandled("Move", "source", src)
	}
	if _, ok := dest.(operand.Stack); ok {
		return s.Push(b, src)
	}
	word := s.Arch.WordSize

	switch {
	case s.size(dest) > word:
		return s.moveWide(b, dest, src)

	case operand.IsMem(dest) && operand.IsMem(src):
		return s.withTemp(max(s.size(dest), s.size(src)), func(tmp operand.Reg) error {
			if err := s.Move(b, tmp, src); err != nil {
				return err
			}
			return s.Move(b, dest, tmp)
		})
	}

	switch src := src.(type) {
	case operand.Flags:
		if err := s.Move(b, dest, operand.Literal{Value: 0}); err != nil {
			return err
		}
		return s.ConditionalMove(b, src.Cond, dest, operand.Literal{Value: 1})
	case operand.Stack:
		return s.Pop(b, dest)
	}
	return s.moveSized(b, dest, src)
}

// moveWide splits a move of more than a word into word chunks from the low
// end, with a remainder chunk if the size is not a multiple of the word
func (s *Selector) moveWide(b *ir.Block, dest, src operand.Operand) error {
	dm, ok := dest.(operand.Mem)
	if !ok {
		return s.rep.AssertFailed("Move", "dest mem")
	}
	sm, ok := src.(operand.Mem)
	if !ok {
		return s.rep.AssertFailed("Move", "src mem")
	}
	if dm.Size != sm.Size {
		return s.rep.AssertFailed("Move", "operand size equality")
	}

	size, chunk := dm.Size, s.Arch.WordSize
	dm.Size, sm.Size = chunk, chunk
	for i := 0; i+chunk <= size; i += chunk {
		if err := s.Move(b, dm, sm); err != nil {
			return err
		}
		dm.Offset += chunk
		sm.Offset += chunk
	}
	if rem := size % chunk; rem != 0 {
		dm.Size, sm.Size = rem, rem
		return s.Move(b, dm, sm)
	}
	return nil
}

// moveSized emits a single move of at most a word, widening or narrowing
// the source to the destination's width
func (s *Selector) moveSized(b *ir.Block, dest, src operand.Operand) error {
	if !isLocation(dest) {
		return s.rep.Unhandled("Move", "destination", dest)
	}
	dsize, ssize := s.size(dest), s.size(src)
	if _, ok := src.(operand.Literal); ok || dsize == ssize {
		b.Append(asm.Mov{Dest: dest, Src: src})
		return nil
	}

	if dsize < ssize {
		src = s.narrow(src, dsize)
		b.Append(asm.Mov{Dest: dest, Src: src})
		return nil
	}

	// Widening
	r, ok := dest.(operand.Reg)
	if !ok {
		return s.withTemp(dsize, func(tmp operand.Reg) error {
			if err := s.moveSized(b, tmp, src); err != nil {
				return err
			}
			b.Append(asm.Mov{Dest: dest, Src: tmp})
			return nil
		})
	}
	if ssize == 4 {
		// A 32-bit write clears the upper half; movzx has no r64, r/m32 form
		b.Append(asm.Mov{Dest: r.As(4), Src: src})
		return nil
	}
	b.Append(asm.Movzx{Dest: dest, Src: src})
	return nil
}

// narrow views src at width bytes
func (s *Selector) narrow(src operand.Operand, width int) operand.Operand {
	switch src := src.(type) {
	case operand.Reg:
		if _, ok := regalloc.Name(src.ID(), width); !ok {
			s.rep.Errorf("Move", "%s has no %d byte form", src.ID(), width)
		}
		return src.As(width)
	case operand.Mem:
		src.Size = width
		return src
	case operand.LabelMem:
		src.Size = width
		return src
	}
	return src
}

func isLocation(op operand.Operand) bool {
	switch op.(type) {
	case operand.Reg, operand.Mem, operand.LabelMem:
		return true
	}
	return false
}

// ConditionalMove moves src into dest only when cond holds on the flags. It
// jumps over the move on the negated condition to a fresh local label.
func (s *Selector) ConditionalMove(b *ir.Block, cond operand.Condition, dest, src operand.Operand) error {
	skip := s.Prog.NewLabel()
	b.Append(asm.Jcc{Cond: cond.Negate(), Target: skip.Name})
	if err := s.Move(b, dest, src); err != nil {
		return err
	}
	b.Append(asm.LabelDef{Name: skip.Name})
	return nil
}
