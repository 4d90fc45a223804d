package asmgen

import (
	"github.com/raymyers/ralph-x64/pkg/asm"
	"github.com/raymyers/ralph-x64/pkg/ir"
	"github.com/raymyers/ralph-x64/pkg/operand"
	"github.com/raymyers/ralph-x64/pkg/regalloc"
)

// Push pushes l onto the machine stack. Values wider than a word are pushed
// high chunk first so they end up in memory order.
func (s *Selector) Push(b *ir.Block, l operand.Operand) error {
	word := s.Arch.WordSize
	size := s.size(l)

	switch op := l.(type) {
	case operand.Invalid:
		return nil
	case operand.Stack:
		// Already there
		return nil
	case operand.Flags:
		if err := s.Push(b, operand.Literal{Value: 0}); err != nil {
			return err
		}
		top := operand.NewMem(s.StackPtr.Claim, 0, word)
		return s.ConditionalMove(b, op.Cond, top, operand.Literal{Value: 1})
	case operand.Reg:
		// push has no byte form and a word push moves the stack by 2
		b.Append(asm.Push{Src: op.As(word)})
		return nil
	}

	switch {
	case size > word:
		m, ok := l.(operand.Mem)
		if !ok {
			return s.rep.AssertFailed("Push", "memory operand")
		}
		chunks := (size + word - 1) / word
		m.Size = word
		for i := chunks - 1; i >= 0; i-- {
			c := m
			c.Offset += i * word
			if err := s.Push(b, c); err != nil {
				return err
			}
		}
		return nil

	case operand.IsMem(l) && size < word:
		return s.withTemp(word, func(tmp operand.Reg) error {
			if err := s.Move(b, tmp, l); err != nil {
				return err
			}
			return s.Push(b, tmp)
		})
	}

	b.Append(asm.Push{Src: l})
	return nil
}

// Pop pops the top of the machine stack into l
func (s *Selector) Pop(b *ir.Block, l operand.Operand) error {
	switch op := l.(type) {
	case operand.Invalid:
		return nil
	case operand.Stack, operand.Void:
		return s.PopN(b, 1)
	case operand.Reg:
		b.Append(asm.Pop{Dest: op.As(s.Arch.WordSize)})
		return nil
	case operand.Mem, operand.LabelMem:
		if s.size(l) != s.Arch.WordSize {
			return s.rep.AssertFailed("Pop", "word sized destination")
		}
		b.Append(asm.Pop{Dest: l})
		return nil
	}
	return s.rep.Unhandled("Pop", "destination", l)
}

// PushN reserves n words on the stack
func (s *Selector) PushN(b *ir.Block, n int) error {
	if n == 0 {
		return nil
	}
	return s.Binary(b, asm.Sub, s.StackPtr, operand.Literal{Value: int64(n * s.Arch.WordSize)})
}

// PopN discards n words from the stack
func (s *Selector) PopN(b *ir.Block, n int) error {
	if n == 0 {
		return nil
	}
	return s.Binary(b, asm.Add, s.StackPtr, operand.Literal{Value: int64(n * s.Arch.WordSize)})
}

// SaveReg pushes a physical register regardless of who holds it
func (s *Selector) SaveReg(b *ir.Block, id regalloc.ID) error {
	if !id.Valid() {
		return s.rep.Unhandled("SaveReg", "register index", int(id))
	}
	b.Append(asm.Push{Src: s.fixed(id)})
	return nil
}

// RestoreReg pops a physical register saved by SaveReg
func (s *Selector) RestoreReg(b *ir.Block, id regalloc.ID) error {
	if !id.Valid() {
		return s.rep.Unhandled("RestoreReg", "register index", int(id))
	}
	b.Append(asm.Pop{Dest: s.fixed(id)})
	return nil
}
