// Package operand describes where a value lives during instruction selection:
// a register, a memory slot, an immediate, a label or the condition flags.
package operand

import (
	"fmt"

	"github.com/raymyers/ralph-x64/pkg/regalloc"
)

// Operand is a value location. Only Reg and Mem hold register claims.
type Operand interface {
	String() string
	implOperand()
}

// Undefined is the zero operand
type Undefined struct{}

// Invalid marks a value that failed to lower; operations on it are dropped
type Invalid struct{}

// Void is the result of an expression with no value
type Void struct{}

// Flags is a comparison result still held in the condition codes
type Flags struct {
	Cond Condition
}

// Reg is a register, viewed at Width bytes
type Reg struct {
	Claim *regalloc.Claim
	Width int
}

// Mem is a sized memory access at Base + Index*Factor + Offset
type Mem struct {
	Base   *regalloc.Claim
	Index  *regalloc.Claim
	Factor int
	Offset int
	Size   int
}

// Literal is an immediate integer
type Literal struct {
	Value int64
}

// LabelAddr is the address of a label used as a value
type LabelAddr struct {
	Label *Label
}

// LabelMem is the memory a label names
type LabelMem struct {
	Label *Label
	Size  int
}

// LabelOffset is the address of a label as an immediate
type LabelOffset struct {
	Label *Label
}

// Stack is the top of the machine stack
type Stack struct{}

func (Undefined) implOperand()   {}
func (Invalid) implOperand()     {}
func (Void) implOperand()        {}
func (Flags) implOperand()       {}
func (Reg) implOperand()         {}
func (Mem) implOperand()         {}
func (Literal) implOperand()     {}
func (LabelAddr) implOperand()   {}
func (LabelMem) implOperand()    {}
func (LabelOffset) implOperand() {}
func (Stack) implOperand()       {}

// Label is an interned assembler label. Labels compare by identity.
type Label struct {
	Name string
}

// NewLabel creates a label
func NewLabel(name string) *Label {
	return &Label{Name: name}
}

func (l *Label) String() string {
	if l == nil {
		return "<nil label>"
	}
	return l.Name
}

// NewReg views a claim at its claimed width
func NewReg(c *regalloc.Claim) Reg {
	return Reg{Claim: c, Width: c.Width}
}

// NewMem creates a base+offset memory operand
func NewMem(base *regalloc.Claim, offset, size int) Mem {
	return Mem{Base: base, Offset: offset, Size: size}
}

// ID returns the physical register
func (r Reg) ID() regalloc.ID {
	if r.Claim == nil {
		return regalloc.Undefined
	}
	return r.Claim.ID
}

// As returns the same register viewed at width bytes
func (r Reg) As(width int) Reg {
	r.Width = width
	return r
}

// Equal reports whether l and r name the same location
func Equal(l, r Operand) bool {
	switch l := l.(type) {
	case Flags:
		rr, ok := r.(Flags)
		return ok && l.Cond == rr.Cond
	case Reg:
		rr, ok := r.(Reg)
		return ok && l.ID() == rr.ID()
	case Mem:
		rr, ok := r.(Mem)
		return ok && l.Size == rr.Size && claimID(l.Base) == claimID(rr.Base) &&
			claimID(l.Index) == claimID(rr.Index) && l.Factor == rr.Factor && l.Offset == rr.Offset
	case Literal:
		rr, ok := r.(Literal)
		return ok && l.Value == rr.Value
	case LabelAddr:
		rr, ok := r.(LabelAddr)
		return ok && l.Label == rr.Label
	case LabelMem:
		rr, ok := r.(LabelMem)
		return ok && l.Label == rr.Label
	case LabelOffset:
		rr, ok := r.(LabelOffset)
		return ok && l.Label == rr.Label
	case Undefined:
		_, ok := r.(Undefined)
		return ok
	case Invalid:
		_, ok := r.(Invalid)
		return ok
	case Void:
		_, ok := r.(Void)
		return ok
	case Stack:
		_, ok := r.(Stack)
		return ok
	}
	return false
}

func claimID(c *regalloc.Claim) regalloc.ID {
	if c == nil {
		return regalloc.Undefined
	}
	return c.ID
}

// Size returns the width of op in bytes on a target with the given word size.
// Literals are 1: their width comes from the other operand.
func Size(wordSize int, op Operand) int {
	switch op := op.(type) {
	case Reg:
		return op.Width
	case Mem:
		return op.Size
	case LabelMem:
		return op.Size
	case Literal:
		return 1
	case LabelAddr, LabelOffset, Flags:
		return wordSize
	}
	return 0
}

// IsMem reports whether op is a memory access
func IsMem(op Operand) bool {
	switch op.(type) {
	case Mem, LabelMem:
		return true
	}
	return false
}

// IsUsable reports whether op is a location an instruction can name
func IsUsable(op Operand) bool {
	switch op.(type) {
	case Undefined, Invalid, Void:
		return false
	}
	return true
}

// Free releases the register claims held by op. The frame pointer is a
// permanent claim so a frame slot releases nothing.
func Free(op Operand) error {
	switch op := op.(type) {
	case Reg:
		if op.Claim == nil {
			return nil
		}
		return op.Claim.Release()
	case Mem:
		var err error
		if op.Base != nil {
			err = op.Base.Release()
		}
		if op.Index != nil {
			if ierr := op.Index.Release(); err == nil {
				err = ierr
			}
		}
		return err
	}
	return nil
}

// Rendering

func sizeName(size int) string {
	switch size {
	case 1:
		return "byte"
	case 2:
		return "word"
	case 4:
		return "dword"
	case 8:
		return "qword"
	case 16:
		return "oword"
	}
	return "dword"
}

func (Undefined) String() string { return "<undefined>" }
func (Invalid) String() string   { return "<invalid>" }
func (Void) String() string      { return "<void>" }
func (Stack) String() string     { return "<stack>" }

func (f Flags) String() string { return f.Cond.String() }

func (r Reg) String() string {
	if r.Claim == nil {
		return "<undefined>"
	}
	if name, ok := regalloc.Name(r.Claim.ID, r.Width); ok {
		return name
	}
	return fmt.Sprintf("<%s:%d>", r.Claim.ID, r.Width)
}

func (m Mem) String() string {
	base := "<undefined>"
	if m.Base != nil {
		base = m.Base.Name()
	}
	switch {
	case m.Index != nil && m.Factor != 0:
		return fmt.Sprintf("%s ptr [%s+%s*%d%s]", sizeName(m.Size), base, m.Index.Name(), m.Factor, offset(m.Offset))
	case m.Offset == 0:
		return fmt.Sprintf("%s ptr [%s]", sizeName(m.Size), base)
	}
	return fmt.Sprintf("%s ptr [%s%+d]", sizeName(m.Size), base, m.Offset)
}

func offset(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%+d", n)
}

func (l Literal) String() string { return fmt.Sprintf("%d", l.Value) }

func (l LabelAddr) String() string   { return "offset " + l.Label.String() }
func (l LabelOffset) String() string { return "offset " + l.Label.String() }

func (l LabelMem) String() string {
	return fmt.Sprintf("%s ptr [%s]", sizeName(l.Size), l.Label)
}
