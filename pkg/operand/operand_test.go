package operand

import (
	"testing"

	"github.com/raymyers/ralph-x64/pkg/diag"
	"github.com/raymyers/ralph-x64/pkg/regalloc"
)

func TestRender(t *testing.T) {
	pool := regalloc.NewPool(nil)
	rbp := pool.Reserve(regalloc.RBP, 8)
	rbx, _ := pool.Request(regalloc.RBX, 8)
	rcx, _ := pool.Request(regalloc.RCX, 8)
	str := NewLabel(".0001")

	tests := []struct {
		name string
		op   Operand
		want string
	}{
		{"frame slot", NewMem(rbp, -8, 8), "qword ptr [rbp-8]"},
		{"positive offset", NewMem(rbp, 16, 4), "dword ptr [rbp+16]"},
		{"no offset", NewMem(rbx, 0, 1), "byte ptr [rbx]"},
		{"indexed", Mem{Base: rbx, Index: rcx, Factor: 8, Offset: -4, Size: 2}, "word ptr [rbx+rcx*8-4]"},
		{"odd size defaults to dword", NewMem(rbp, -24, 12), "dword ptr [rbp-24]"},
		{"oword", NewMem(rbp, -16, 16), "oword ptr [rbp-16]"},
		{"register", NewReg(rbx), "rbx"},
		{"register narrowed", NewReg(rbx).As(1), "bl"},
		{"literal", Literal{Value: -3}, "-3"},
		{"label offset", LabelOffset{Label: str}, "offset .0001"},
		{"label address", LabelAddr{Label: str}, "offset .0001"},
		{"label memory", LabelMem{Label: str, Size: 8}, "qword ptr [.0001]"},
		{"flags", Flags{Cond: GE}, "ge"},
		{"undefined condition", Flags{}, "condition"},
		{"void", Void{}, "<void>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNegate(t *testing.T) {
	tests := []struct{ c, want Condition }{
		{EQ, NE}, {NE, EQ}, {GT, LE}, {GE, LT}, {LT, GE}, {LE, GT}, {CondUndefined, CondUndefined},
	}
	for _, tt := range tests {
		if got := tt.c.Negate(); got != tt.want {
			t.Errorf("%v.Negate() = %v, want %v", tt.c, got, tt.want)
		}
		if tt.c != CondUndefined && tt.c.Negate().Negate() != tt.c {
			t.Errorf("double negation of %v is not the identity", tt.c)
		}
	}
}

func TestParseCondition(t *testing.T) {
	if c, ok := ParseCondition("le"); !ok || c != LE {
		t.Errorf("ParseCondition(le) = %v, %v", c, ok)
	}
	if _, ok := ParseCondition("condition"); ok {
		t.Error("the undefined placeholder should not parse")
	}
}

func TestEqual(t *testing.T) {
	pool := regalloc.NewPool(nil)
	rbp := pool.Reserve(regalloc.RBP, 8)
	rbx, _ := pool.Request(regalloc.RBX, 8)
	a, b := NewLabel("x"), NewLabel("x")

	tests := []struct {
		name string
		l, r Operand
		want bool
	}{
		{"same slot", NewMem(rbp, -8, 8), NewMem(rbp, -8, 8), true},
		{"different size", NewMem(rbp, -8, 8), NewMem(rbp, -8, 4), false},
		{"register identity ignores width", NewReg(rbx), NewReg(rbx).As(1), true},
		{"labels by identity", LabelOffset{Label: a}, LabelOffset{Label: a}, true},
		{"same name is not the same label", LabelOffset{Label: a}, LabelOffset{Label: b}, false},
		{"tag mismatch", LabelOffset{Label: a}, LabelAddr{Label: a}, false},
		{"literals", Literal{Value: 2}, Literal{Value: 2}, true},
		{"void", Void{}, Void{}, true},
		{"flags", Flags{Cond: EQ}, Flags{Cond: NE}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.l, tt.r); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSize(t *testing.T) {
	pool := regalloc.NewPool(nil)
	rbp := pool.Reserve(regalloc.RBP, 8)
	c, _ := pool.Request(regalloc.RCX, 2)
	tests := []struct {
		op   Operand
		want int
	}{
		{Undefined{}, 0},
		{Invalid{}, 0},
		{Void{}, 0},
		{NewReg(c), 2},
		{NewMem(rbp, -4, 4), 4},
		{Literal{Value: 100000}, 1},
		{LabelOffset{Label: NewLabel("l")}, 8},
		{Flags{Cond: EQ}, 8},
	}
	for _, tt := range tests {
		if got := Size(8, tt.op); got != tt.want {
			t.Errorf("Size(%v) = %d, want %d", tt.op, got, tt.want)
		}
	}
}

func TestFree(t *testing.T) {
	rep := diag.NewReporter(diag.Continue, nil)
	pool := regalloc.NewPool(rep)
	rbp := pool.Reserve(regalloc.RBP, 8)

	slot := NewMem(rbp, -8, 8)
	if err := Free(slot); err != nil {
		t.Fatal(err)
	}
	if !pool.InUse(regalloc.RBP) {
		t.Error("freeing a frame slot released the frame pointer")
	}

	base, _ := pool.AllocateAny(8)
	index, _ := pool.AllocateAny(8)
	Free(Mem{Base: base, Index: index, Factor: 4, Size: 4})
	if !pool.Idle() {
		t.Errorf("indexed access leaked %v", pool.Live())
	}

	r, _ := pool.AllocateAny(4)
	op := NewReg(r)
	Free(op)
	Free(op)
	if rep.Count() != 1 {
		t.Errorf("double free should be reported once, got %d", rep.Count())
	}
	if err := Free(Literal{Value: 1}); err != nil {
		t.Errorf("Free(literal) = %v", err)
	}
}
