package asmgen

import (
	"github.com/raymyers/ralph-x64/pkg/asm"
	"github.com/raymyers/ralph-x64/pkg/ir"
	"github.com/raymyers/ralph-x64/pkg/operand"
	"github.com/raymyers/ralph-x64/pkg/regalloc"
)

// Binary emits l = l op r
func (s *Selector) Binary(b *ir.Block, op asm.BinOp, l, r operand.Operand) error {
	if isInvalid(l) || isInvalid(r) {
		return nil
	}
	if op.Mnemonic() == "" {
		return s.rep.Unhandled("BOP", "operator", int(op))
	}
	if !isLocation(l) {
		return s.rep.AssertFailed("BOP", "register or memory destination")
	}

	switch {
	case operand.IsMem(l) && operand.IsMem(r):
		return s.withTemp(max(s.size(l), s.size(r)), func(tmp operand.Reg) error {
			if err := s.Move(b, tmp, r); err != nil {
				return err
			}
			return s.Binary(b, op, l, tmp)
		})

	case op == asm.Mul && operand.IsMem(l):
		// imul cannot write to memory
		if rr, ok := r.(operand.Reg); ok {
			if err := s.Binary(b, asm.Mul, rr, l); err != nil {
				return err
			}
			return s.Move(b, l, rr)
		}
		if s.size(l) == 1 {
			// imul has no byte form; widen into a word register first
			return s.withTemp(2, func(tmp operand.Reg) error {
				if err := s.Move(b, tmp, l); err != nil {
					return err
				}
				b.Append(asm.IMul3{Dest: tmp, Src: tmp, Imm: r})
				return s.Move(b, l, tmp)
			})
		}
		return s.withTemp(max(s.size(l), s.size(r)), func(tmp operand.Reg) error {
			b.Append(asm.IMul3{Dest: tmp, Src: l, Imm: r})
			return s.Move(b, l, tmp)
		})

	case op == asm.Shl || op == asm.Shr:
		if rr, ok := r.(operand.Reg); ok {
			if rr.ID() != regalloc.RCX {
				if err := s.rep.Errorf("BOP", "shift count in %s, want cl", rr); err != nil {
					return err
				}
			}
			r = rr.As(1)
		}
	}

	b.Append(asm.Binary{Op: op, Dest: l, Src: r})
	return nil
}

// Unary emits r = op r
func (s *Selector) Unary(b *ir.Block, op asm.UnaryOp, r operand.Operand) error {
	if isInvalid(r) {
		return nil
	}
	switch op {
	case asm.Inc, asm.Dec, asm.Neg, asm.Not:
	default:
		return s.rep.Unhandled("UOP", "operator", int(op))
	}
	if !isLocation(r) {
		return s.rep.AssertFailed("UOP", "register or memory operand")
	}
	b.Append(asm.Unary{Op: op, Dest: r})
	return nil
}

// Compare sets the flags from l - r
func (s *Selector) Compare(b *ir.Block, l, r operand.Operand) error {
	if isInvalid(l) || isInvalid(r) {
		return nil
	}
	_, llit := l.(operand.Literal)
	_, rlit := r.(operand.Literal)

	switch {
	case operand.IsMem(l) && operand.IsMem(r), llit && rlit:
		width := s.Arch.WordSize
		if operand.IsMem(l) {
			width = max(s.size(l), s.size(r))
		}
		return s.withTemp(width, func(tmp operand.Reg) error {
			if err := s.Move(b, tmp, l); err != nil {
				return err
			}
			return s.Compare(b, tmp, r)
		})

	case llit:
		// cmp needs the immediate on the right; materialize it rather than
		// swap, so ordering conditions keep their meaning
		return s.withTemp(s.size(r), func(tmp operand.Reg) error {
			if err := s.Move(b, tmp, l); err != nil {
				return err
			}
			return s.Compare(b, tmp, r)
		})
	}

	b.Append(asm.Cmp{L: l, R: r})
	return nil
}

// Divide emits a signed division of rdx:rax by r
func (s *Selector) Divide(b *ir.Block, r operand.Operand) error {
	if isInvalid(r) {
		return nil
	}
	if _, ok := r.(operand.Literal); ok {
		return s.withTemp(s.Arch.WordSize, func(tmp operand.Reg) error {
			if err := s.Move(b, tmp, r); err != nil {
				return err
			}
			b.Append(asm.Idiv{Src: tmp})
			return nil
		})
	}
	b.Append(asm.Idiv{Src: r})
	return nil
}

// EvalAddress loads the address of memory operand r into l
func (s *Selector) EvalAddress(b *ir.Block, l, r operand.Operand) error {
	if isInvalid(l) || isInvalid(r) {
		return nil
	}
	if operand.IsMem(l) && operand.IsMem(r) {
		return s.withTemp(s.Arch.WordSize, func(tmp operand.Reg) error {
			if err := s.EvalAddress(b, tmp, r); err != nil {
				return err
			}
			return s.Move(b, l, tmp)
		})
	}

	switch m := r.(type) {
	case operand.Mem:
		m.Size = s.Arch.WordSize
		r = m
	case operand.LabelMem:
		m.Size = s.Arch.WordSize
		r = m
	default:
		return s.rep.AssertFailed("EvalAddress", "memory operand")
	}
	b.Append(asm.Lea{Dest: l, Src: r})
	return nil
}

// Fill stores length bytes of the low part of src at dest with rep stos. It
// needs rax, rcx and rdi free; the tail that is not a whole word is filled a
// byte at a time.
func (s *Selector) Fill(b *ir.Block, dest operand.Operand, length int, src operand.Operand) error {
	word := s.Arch.WordSize
	var claims []*regalloc.Claim
	defer func() {
		for i := len(claims) - 1; i >= 0; i-- {
			s.Pool.Release(claims[i])
		}
	}()
	for _, id := range []regalloc.ID{regalloc.RAX, regalloc.RCX, regalloc.RDI} {
		c, ok := s.Pool.Request(id, word)
		if !ok {
			return s.rep.Errorf("RepStos", "%s is in use", id)
		}
		claims = append(claims, c)
	}
	rax, rcx, rdi := operand.NewReg(claims[0]), operand.NewReg(claims[1]), operand.NewReg(claims[2])

	if err := s.Move(b, rax, src); err != nil {
		return err
	}
	if err := s.EvalAddress(b, rdi, dest); err != nil {
		return err
	}
	if n := length / word; n > 0 {
		if err := s.Move(b, rcx, operand.Literal{Value: int64(n)}); err != nil {
			return err
		}
		b.Append(asm.RepStos{Width: word})
	}
	if rem := length % word; rem > 0 {
		if err := s.Move(b, rcx, operand.Literal{Value: int64(rem)}); err != nil {
			return err
		}
		b.Append(asm.RepStos{Width: 1})
	}
	return nil
}

// Comment attaches an assembler comment
func (s *Selector) Comment(b *ir.Block, text string) {
	b.Append(asm.Comment{Text: text})
}
