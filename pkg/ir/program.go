package ir

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/raymyers/ralph-x64/pkg/arch"
	"github.com/raymyers/ralph-x64/pkg/diag"
	"github.com/raymyers/ralph-x64/pkg/operand"
)

// Program is one compilation unit: its functions, static data and the label
// counter shared by everything that needs a unique name.
type Program struct {
	Arch   *arch.Arch
	Source string

	Functions []*Function
	Data      []StaticData
	Strings   []StringConstant

	// DedupStrings makes StringConstant return the existing label for a
	// string it has already seen
	DedupStrings bool

	rep      *diag.Reporter
	labelNo  int
	symbols  map[string]*Symbol
	interned map[uint64][]int
}

// NewProgram creates an empty program for target a
func NewProgram(a *arch.Arch, source string, rep *diag.Reporter) *Program {
	if rep == nil {
		rep = diag.NewReporter(diag.Continue, nil)
	}
	return &Program{
		Arch:     a,
		Source:   source,
		rep:      rep,
		symbols:  make(map[string]*Symbol),
		interned: make(map[uint64][]int),
	}
}

// Reporter returns the program's diagnostic reporter
func (p *Program) Reporter() *diag.Reporter {
	return p.rep
}

// NewLabel returns a fresh local label
func (p *Program) NewLabel() *operand.Label {
	l := operand.NewLabel(fmt.Sprintf(".%04X", p.labelNo))
	p.labelNo++
	return l
}

// Symbol interns ident, mangling it for the target on first use
func (p *Program) Symbol(ident string) *Symbol {
	if s, ok := p.symbols[ident]; ok {
		return s
	}
	s := &Symbol{Ident: ident, Label: operand.NewLabel(p.Arch.Mangle(ident))}
	p.symbols[ident] = s
	return s
}

// StaticValue declares a mutable static of size bytes
func (p *Program) StaticValue(label string, global bool, size int, init int64) {
	p.Data = append(p.Data, StaticData{Label: label, Global: global, Size: size, Init: init})
}

// StringConstant adds s to rodata and returns its address
func (p *Program) StringConstant(s string) operand.LabelOffset {
	var h uint64
	if p.DedupStrings {
		h = xxhash.Sum64String(s)
		for _, i := range p.interned[h] {
			if p.Strings[i].Value == s {
				return operand.LabelOffset{Label: p.Strings[i].Label}
			}
		}
	}
	l := p.NewLabel()
	if p.DedupStrings {
		p.interned[h] = append(p.interned[h], len(p.Strings))
	}
	p.Strings = append(p.Strings, StringConstant{Label: l, Value: s})
	return operand.LabelOffset{Label: l}
}

// NewFunction creates a function with its prologue, entry and epilogue blocks.
// The prologue jumps to the entry point and the epilogue returns; the caller
// fills the blocks in between. An empty name gets a generated label.
func (p *Program) NewFunction(name string) *Function {
	if name == "" {
		name = p.NewLabel().Name
	}
	f := &Function{Name: name, prog: p, rep: p.rep}
	f.Prologue = f.NewBlock().ID
	f.Entry = f.NewBlock().ID
	f.Epilogue = f.NewBlock().ID
	f.Jump(f.Prologue, f.Entry)
	f.Return(f.Epilogue)
	p.Functions = append(p.Functions, f)
	return f
}
