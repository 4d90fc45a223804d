package irfile

import (
	"fmt"

	"github.com/raymyers/ralph-x64/pkg/asm"
	"github.com/raymyers/ralph-x64/pkg/asmgen"
	"github.com/raymyers/ralph-x64/pkg/ir"
	"github.com/raymyers/ralph-x64/pkg/operand"
	"github.com/raymyers/ralph-x64/pkg/regalloc"
)

// exitBlock names the epilogue in branch targets
const exitBlock = "exit"

var binOps = map[string]asm.BinOp{
	"add": asm.Add,
	"sub": asm.Sub,
	"mul": asm.Mul,
	"and": asm.And,
	"or":  asm.Or,
	"xor": asm.Xor,
	"shr": asm.Shr,
	"shl": asm.Shl,
}

var unaryOps = map[string]asm.UnaryOp{
	"inc": asm.Inc,
	"dec": asm.Dec,
	"neg": asm.Neg,
	"not": asm.Not,
}

type builder struct {
	sel    *asmgen.Selector
	prog   *ir.Program
	labels map[string]*operand.Label
	held   []*regalloc.Claim
}

// Build adds f's statics, strings and functions to the selector's program
func (f *File) Build(sel *asmgen.Selector) error {
	b := &builder{sel: sel, prog: sel.Prog, labels: make(map[string]*operand.Label)}
	for _, d := range f.Data {
		if d.Label == "" {
			return fmt.Errorf("%w: data without a label", ErrInvalid)
		}
		b.prog.StaticValue(d.Label, d.Global, d.Size, d.Init)
		b.labels[d.Label] = operand.NewLabel(d.Label)
	}
	for _, s := range f.Strings {
		if s.Name == "" {
			return fmt.Errorf("%w: string without a name", ErrInvalid)
		}
		b.labels[s.Name] = b.prog.StringConstant(s.Value).Label
	}
	for _, fd := range f.Functions {
		if err := b.function(fd); err != nil {
			return fmt.Errorf("function %s: %w", fd.Name, err)
		}
	}
	return nil
}

// label resolves a name to a static, a string or, failing both, a symbol
func (b *builder) label(name string) *operand.Label {
	if l, ok := b.labels[name]; ok {
		return l
	}
	return b.prog.Symbol(name).Label
}

// claim holds id at word size for the current instruction. The frame and
// stack pointers resolve to the selector's permanent claims.
func (b *builder) claim(id regalloc.ID) *regalloc.Claim {
	switch id {
	case regalloc.RSP:
		return b.sel.StackPtr.Claim
	case regalloc.RBP:
		return b.sel.BasePtr.Claim
	}
	for _, c := range b.held {
		if c.ID == id {
			return c
		}
	}
	word := b.prog.Arch.WordSize
	c, ok := b.sel.Pool.Request(id, word)
	if !ok {
		return &regalloc.Claim{ID: id, Width: word}
	}
	b.held = append(b.held, c)
	return c
}

func (b *builder) release() {
	for i := len(b.held) - 1; i >= 0; i-- {
		b.held[i].Release()
	}
	b.held = b.held[:0]
}

func (b *builder) function(fd Function) error {
	fn, err := b.sel.CreateFunction(fd.Name, fd.Frame)
	if err != nil {
		return err
	}

	blocks := map[string]*ir.Block{exitBlock: fn.Block(fn.Epilogue)}
	order := make([]*ir.Block, len(fd.Blocks))
	for i, bd := range fd.Blocks {
		if bd.Name == exitBlock {
			return fmt.Errorf("%w: block name %q is reserved", ErrInvalid, exitBlock)
		}
		if _, dup := blocks[bd.Name]; dup && bd.Name != "" {
			return fmt.Errorf("%w: duplicate block %q", ErrInvalid, bd.Name)
		}
		blk := fn.Block(fn.Entry)
		if i > 0 {
			blk = fn.NewBlock()
		}
		if bd.Name != "" {
			blocks[bd.Name] = blk
		}
		order[i] = blk
	}
	if len(order) == 0 {
		return fn.Jump(fn.Entry, fn.Epilogue)
	}

	target := func(name string) (ir.BlockID, error) {
		blk, ok := blocks[name]
		if !ok {
			return ir.NoBlock, fmt.Errorf("%w: unknown block %q", ErrInvalid, name)
		}
		return blk.ID, nil
	}

	for i, bd := range fd.Blocks {
		blk := order[i]
		for _, in := range bd.Code {
			if err := b.inst(blk, in); err != nil {
				return fmt.Errorf("block %s: %s: %w", bd.Name, in.Op, err)
			}
		}
		fallthru := fn.Epilogue
		if i+1 < len(order) {
			fallthru = order[i+1].ID
		}
		if err := b.terminate(fn, blk, bd, fallthru, target); err != nil {
			return fmt.Errorf("block %s: %w", bd.Name, err)
		}
	}
	return nil
}

func (b *builder) terminate(fn *ir.Function, blk *ir.Block, bd Block, fallthru ir.BlockID, target func(string) (ir.BlockID, error)) error {
	n := 0
	for _, set := range []bool{bd.Jump != "", bd.Branch != nil, bd.Call != nil, bd.CallIndirect != nil} {
		if set {
			n++
		}
	}
	if n > 1 {
		return fmt.Errorf("%w: more than one terminator", ErrInvalid)
	}

	switch {
	case bd.Jump != "":
		to, err := target(bd.Jump)
		if err != nil {
			return err
		}
		return fn.Jump(blk.ID, to)
	case bd.Branch != nil:
		cond, ok := operand.ParseCondition(bd.Branch.Cond)
		if !ok {
			return fmt.Errorf("%w: unknown condition %q", ErrInvalid, bd.Branch.Cond)
		}
		then, err := target(bd.Branch.Then)
		if err != nil {
			return err
		}
		els, err := target(bd.Branch.Else)
		if err != nil {
			return err
		}
		return fn.Branch(blk.ID, cond, then, els)
	case bd.Call != nil:
		ret, err := target(bd.Call.Ret)
		if err != nil {
			return err
		}
		return fn.Call(blk.ID, b.prog.Symbol(bd.Call.Symbol), ret)
	case bd.CallIndirect != nil:
		ret, err := target(bd.CallIndirect.Ret)
		if err != nil {
			return err
		}
		callee, err := b.operand(bd.CallIndirect.Target)
		if err != nil {
			return err
		}
		// the callee is rendered at emission and needs no claim past this point
		b.release()
		return fn.CallIndirect(blk.ID, callee, ret)
	}
	return fn.Jump(blk.ID, fallthru)
}

func (b *builder) inst(blk *ir.Block, in Inst) error {
	defer b.release()
	s := b.sel

	switch in.Op {
	case "mov", "lea", "cmp", "cmov", "add", "sub", "mul", "and", "or", "xor", "shr", "shl":
		dest, err := b.operand(in.Dest)
		if err != nil {
			return err
		}
		src, err := b.operand(in.Src)
		if err != nil {
			return err
		}
		switch in.Op {
		case "mov":
			return s.Move(blk, dest, src)
		case "lea":
			return s.EvalAddress(blk, dest, src)
		case "cmp":
			return s.Compare(blk, dest, src)
		case "cmov":
			cond, ok := operand.ParseCondition(in.Cond)
			if !ok {
				return fmt.Errorf("%w: unknown condition %q", ErrInvalid, in.Cond)
			}
			return s.ConditionalMove(blk, cond, dest, src)
		}
		return s.Binary(blk, binOps[in.Op], dest, src)
	case "inc", "dec", "neg", "not":
		dest, err := b.operand(in.Dest)
		if err != nil {
			return err
		}
		return s.Unary(blk, unaryOps[in.Op], dest)
	case "push":
		src, err := b.operand(in.Src)
		if err != nil {
			return err
		}
		return s.Push(blk, src)
	case "pop":
		dest, err := b.operand(in.Dest)
		if err != nil {
			return err
		}
		return s.Pop(blk, dest)
	case "pushn":
		return s.PushN(blk, in.N)
	case "popn":
		return s.PopN(blk, in.N)
	case "idiv":
		src, err := b.operand(in.Src)
		if err != nil {
			return err
		}
		return s.Divide(blk, src)
	case "fill":
		dest, err := b.operand(in.Dest)
		if err != nil {
			return err
		}
		src, err := b.operand(in.Src)
		if err != nil {
			return err
		}
		// fill claims rax, rcx and rdi itself
		b.release()
		return s.Fill(blk, dest, in.N, src)
	case "save", "restore":
		id, _, ok := regalloc.Lookup(in.Reg)
		if !ok {
			return fmt.Errorf("%w: %q is not a register", ErrInvalid, in.Reg)
		}
		if in.Op == "save" {
			return s.SaveReg(blk, id)
		}
		return s.RestoreReg(blk, id)
	case "comment":
		s.Comment(blk, in.Text)
		return nil
	}
	return fmt.Errorf("%w: unknown op %q", ErrInvalid, in.Op)
}
