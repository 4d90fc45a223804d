// Package blockopt simplifies a function's CFG at block granularity: blocks
// nothing can reach are removed and straight-line pairs are merged. It never
// reorders, duplicates or speculates.
package blockopt

import "github.com/raymyers/ralph-x64/pkg/ir"

// Stats counts the rewrites applied to a function
type Stats struct {
	Removed int
	Merged  int
}

// Program optimizes every function of prog
func Program(prog *ir.Program) Stats {
	var total Stats
	for _, fn := range prog.Functions {
		s := Function(fn)
		total.Removed += s.Removed
		total.Merged += s.Merged
	}
	return total
}

// Function walks fn depth first from its epilogue along predecessor edges and
// applies one rewrite per visited block
func Function(fn *ir.Function) Stats {
	o := &optimizer{fn: fn, done: make(map[ir.BlockID]bool)}
	o.visit(fn.Epilogue)
	return o.stats
}

type optimizer struct {
	fn    *ir.Function
	done  map[ir.BlockID]bool
	stats Stats
}

// visit rewrites id after all of its predecessors. A predecessor that is
// removed or merged away changes the list under the loop, so the index only
// advances past entries that are already done.
func (o *optimizer) visit(id ir.BlockID) {
	if o.done[id] {
		return
	}
	o.done[id] = true

	b := o.fn.Block(id)
	if b == nil {
		return
	}
	for i := 0; i < len(b.Preds); {
		if o.done[b.Preds[i]] {
			i++
			continue
		}
		o.visit(b.Preds[i])
	}
	if !o.removeUnreachable(id) {
		o.coalesce(id)
	}
}

// removeUnreachable deletes id if nothing can transfer control to it. The
// epilogue is kept even when the function never returns.
func (o *optimizer) removeUnreachable(id ir.BlockID) bool {
	if id == o.fn.Epilogue || o.fn.PredCount(id) != 0 {
		return false
	}
	o.fn.DeleteBlock(id)
	o.stats.Removed++
	return true
}

// coalesce merges id into its only predecessor when that predecessor has no
// other successor
func (o *optimizer) coalesce(id ir.BlockID) bool {
	b := o.fn.Block(id)
	if b == nil || len(b.Preds) != 1 {
		return false
	}
	pred := b.Preds[0]
	if pred == id || o.fn.SuccCount(pred) != 1 {
		return false
	}
	o.fn.Combine(pred, id)
	o.stats.Merged++
	return true
}
