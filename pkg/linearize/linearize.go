// Package linearize turns a function's CFG into a flat instruction sequence.
// Blocks are ordered so that each one tends to follow its predecessor, labels
// are emitted only where something can jump to them, and jumps to the next
// block in order are dropped.
package linearize

import (
	"github.com/raymyers/ralph-x64/pkg/asm"
	"github.com/raymyers/ralph-x64/pkg/diag"
	"github.com/raymyers/ralph-x64/pkg/ir"
)

// Program lowers every function of prog and collects its static data
func Program(prog *ir.Program) (*asm.Program, error) {
	rep := prog.Reporter()
	out := &asm.Program{Source: prog.Source}
	for _, fn := range prog.Functions {
		f, err := Function(fn, rep)
		if err != nil {
			return nil, err
		}
		out.Functions = append(out.Functions, f)
	}
	for _, d := range prog.Data {
		if _, ok := asm.DataDirective(d.Size); !ok {
			if err := rep.Unhandled("AsmStaticData", "data size", d.Size); err != nil {
				return nil, err
			}
		}
		out.Data = append(out.Data, asm.Data{Label: d.Label, Global: d.Global, Size: d.Size, Init: d.Init})
	}
	for _, s := range prog.Strings {
		out.Strings = append(out.Strings, asm.String{Label: s.Label.Name, Value: s.Value})
	}
	return out, nil
}

// Function emits fn's blocks in Order
func Function(fn *ir.Function, rep *diag.Reporter) (asm.Function, error) {
	if rep == nil {
		rep = diag.NewReporter(diag.Continue, nil)
	}
	l := &linearizer{fn: fn, rep: rep, order: Order(fn)}
	out := asm.Function{Name: fn.Name}
	for i := range l.order {
		code, err := l.emitBlock(i)
		if err != nil {
			return out, err
		}
		out.Code = append(out.Code, code...)
	}
	return out, nil
}

// Order returns fn's live blocks in emission order: a depth first walk from
// the epilogue that places every block after its first predecessor chain.
// The prologue always comes first since the function label falls into it.
// Blocks with no path to the epilogue follow in creation order.
func Order(fn *ir.Function) []ir.BlockID {
	visited := make(map[ir.BlockID]bool)
	var order []ir.BlockID

	var dfs func(id ir.BlockID)
	dfs = func(id ir.BlockID) {
		if visited[id] {
			return
		}
		visited[id] = true
		b := fn.Block(id)
		if b == nil {
			return
		}
		for _, p := range b.Preds {
			dfs(p)
		}
		order = append(order, id)
	}

	dfs(fn.Epilogue)
	for _, b := range fn.Blocks() {
		dfs(b.ID)
	}

	for i, id := range order {
		if id == fn.Prologue && i != 0 {
			copy(order[1:i+1], order[:i])
			order[0] = fn.Prologue
			break
		}
	}
	return order
}

type linearizer struct {
	fn    *ir.Function
	rep   *diag.Reporter
	order []ir.BlockID
}

func (l *linearizer) at(i int) ir.BlockID {
	if i < 0 || i >= len(l.order) {
		return ir.NoBlock
	}
	return l.order[i]
}

// needsLabel reports whether anything other than a fall through from prev can
// reach b
func needsLabel(b *ir.Block, prev ir.BlockID) bool {
	switch len(b.Preds) {
	case 0:
		return false
	case 1:
		return b.Preds[0] != prev
	}
	return true
}

func (l *linearizer) emitBlock(i int) ([]asm.Instruction, error) {
	b := l.fn.Block(l.order[i])
	prev, next := l.at(i-1), l.at(i+1)

	var code []asm.Instruction
	if needsLabel(b, prev) {
		code = append(code, asm.LabelDef{Name: b.Label.Name})
	}
	code = append(code, b.Code...)

	jumpTo := ir.NoBlock
	switch t := b.Term.(type) {
	case ir.Jump:
		jumpTo = t.To
	case ir.Branch:
		if t.IfTrue == next {
			target, err := l.label(b, t.IfFalse)
			if err != nil {
				return nil, err
			}
			code = append(code, asm.Jcc{Cond: t.Cond.Negate(), Target: target})
			jumpTo = t.IfTrue
		} else {
			target, err := l.label(b, t.IfTrue)
			if err != nil {
				return nil, err
			}
			code = append(code, asm.Jcc{Cond: t.Cond, Target: target})
			jumpTo = t.IfFalse
		}
	case ir.Call:
		code = append(code, asm.Call{Target: t.Callee.Label.Name})
		jumpTo = t.Ret
	case ir.CallIndirect:
		code = append(code, asm.CallIndirect{Target: t.Callee})
		jumpTo = t.Ret
	case ir.Return:
		code = append(code, asm.Ret{})
	case nil:
		if err := l.rep.Errorf("EmitBlock", "block %s has no terminator", b.Label); err != nil {
			return nil, err
		}
	default:
		if err := l.rep.Unhandled("EmitBlock", "terminator", t); err != nil {
			return nil, err
		}
	}

	if jumpTo != ir.NoBlock && jumpTo != next {
		target, err := l.label(b, jumpTo)
		if err != nil {
			return nil, err
		}
		code = append(code, asm.Jmp{Target: target})
	}
	return code, nil
}

func (l *linearizer) label(from *ir.Block, id ir.BlockID) (string, error) {
	target := l.fn.Block(id)
	if target == nil {
		return "", l.rep.Errorf("EmitBlock", "block %s targets a deleted block %d", from.Label, id)
	}
	return target.Label.Name, nil
}
