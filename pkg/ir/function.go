package ir

import (
	"slices"

	"github.com/raymyers/ralph-x64/pkg/diag"
)

// Function owns its blocks. Prologue, Entry and Epilogue are always live;
// Entry and Epilogue are repointed when coalescing absorbs them.
type Function struct {
	Name     string
	Prologue BlockID
	Entry    BlockID
	Epilogue BlockID

	blocks []*Block
	prog   *Program
	rep    *diag.Reporter
}

// Program returns the owning program
func (f *Function) Program() *Program {
	return f.prog
}

// NewBlock allocates an open block with a fresh label
func (f *Function) NewBlock() *Block {
	b := &Block{ID: BlockID(len(f.blocks)), Label: f.prog.NewLabel()}
	f.blocks = append(f.blocks, b)
	return b
}

// Block returns the block for id, or nil if it was deleted
func (f *Function) Block(id BlockID) *Block {
	if id < 0 || int(id) >= len(f.blocks) {
		return nil
	}
	return f.blocks[id]
}

// Blocks returns the live blocks in creation order
func (f *Function) Blocks() []*Block {
	live := make([]*Block, 0, len(f.blocks))
	for _, b := range f.blocks {
		if b != nil {
			live = append(live, b)
		}
	}
	return live
}

// NumBlocks returns the number of live blocks
func (f *Function) NumBlocks() int {
	n := 0
	for _, b := range f.blocks {
		if b != nil {
			n++
		}
	}
	return n
}

// PredCount counts b's predecessors. The prologue has one implicit
// predecessor, the caller.
func (f *Function) PredCount(id BlockID) int {
	b := f.Block(id)
	if b == nil {
		return 0
	}
	n := len(b.Preds)
	if id == f.Prologue {
		n++
	}
	return n
}

// SuccCount counts b's successors. A call counts the callee as one more.
func (f *Function) SuccCount(id BlockID) int {
	b := f.Block(id)
	if b == nil {
		return 0
	}
	n := len(b.Succs)
	switch b.Term.(type) {
	case Call, CallIndirect:
		n++
	}
	return n
}

// Terminator attachment

// Jump closes from with an unconditional jump to to
func (f *Function) Jump(from, to BlockID) error {
	return f.terminate(from, Jump{To: to}, to)
}

// Branch closes b with a conditional branch on the flags
func (f *Function) Branch(b BlockID, cond Condition, ifTrue, ifFalse BlockID) error {
	return f.terminate(b, Branch{Cond: cond, IfTrue: ifTrue, IfFalse: ifFalse}, ifTrue, ifFalse)
}

// Call closes b with a call to callee that returns to ret
func (f *Function) Call(b BlockID, callee *Symbol, ret BlockID) error {
	return f.terminate(b, Call{Callee: callee, Ret: ret}, ret)
}

// CallIndirect closes b with a call through callee that returns to ret
func (f *Function) CallIndirect(b BlockID, callee Operand, ret BlockID) error {
	return f.terminate(b, CallIndirect{Callee: callee, Ret: ret}, ret)
}

// Return closes b with a return to the caller
func (f *Function) Return(b BlockID) error {
	return f.terminate(b, Return{})
}

func (f *Function) terminate(id BlockID, term Terminator, targets ...BlockID) error {
	b := f.Block(id)
	if b == nil {
		return f.rep.Errorf("Terminate", "attempted to terminate a deleted block %d", id)
	}
	for _, t := range targets {
		if f.Block(t) == nil {
			return f.rep.Errorf("Terminate", "block %s targets a deleted block %d", b.Label, t)
		}
	}
	if b.Term != nil {
		if err := f.rep.Errorf("Terminate", "attempted to terminate already terminated block %s", b.Label); err != nil {
			return err
		}
		f.unlinkSuccs(b)
	}
	b.Term = term
	for _, t := range targets {
		f.link(b, f.blocks[t])
	}
	return nil
}

func (f *Function) link(from, to *Block) {
	from.Succs = append(from.Succs, to.ID)
	to.Preds = append(to.Preds, from.ID)
}

func (f *Function) unlinkSuccs(b *Block) {
	for _, s := range b.Succs {
		if succ := f.blocks[s]; succ != nil {
			succ.Preds = removeOne(succ.Preds, b.ID)
		}
	}
	b.Succs = nil
}

// removeOne drops the first occurrence of id, keeping the order of the rest
func removeOne(ids []BlockID, id BlockID) []BlockID {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}

// Graph edits

// DeleteBlock unlinks id from its neighbours and frees its slot
func (f *Function) DeleteBlock(id BlockID) {
	b := f.Block(id)
	if b == nil {
		return
	}
	for _, p := range b.Preds {
		if pred := f.blocks[p]; pred != nil && pred != b {
			pred.Succs = removeOne(pred.Succs, id)
		}
	}
	f.unlinkSuccs(b)
	b.Preds = nil
	f.blocks[id] = nil
}

// Combine merges succ into pred: pred's code is followed by succ's, pred takes
// succ's terminator and outgoing edges, and succ is deleted. The caller
// guarantees pred's only successor is succ and succ's only predecessor is pred.
func (f *Function) Combine(predID, succID BlockID) {
	pred, succ := f.Block(predID), f.Block(succID)
	if pred == nil || succ == nil || pred == succ {
		f.rep.Errorf("Combine", "cannot combine blocks %d and %d", predID, succID)
		return
	}

	pred.Succs = removeOne(pred.Succs, succID)
	succ.Preds = removeOne(succ.Preds, predID)

	pred.Code = append(pred.Code, succ.Code...)
	pred.Term = succ.Term
	for _, s := range succ.Succs {
		next := f.blocks[s]
		if i := slices.Index(next.Preds, succID); i >= 0 {
			next.Preds[i] = predID
		}
		pred.Succs = append(pred.Succs, s)
	}
	succ.Succs = nil
	succ.Term = nil

	if f.Epilogue == succID {
		f.Epilogue = predID
	}
	if f.Entry == succID {
		f.Entry = predID
	}
	f.DeleteBlock(succID)
}
