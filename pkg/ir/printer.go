package ir

import (
	"fmt"
	"io"

	"github.com/raymyers/ralph-x64/pkg/asm"
)

// Printer dumps the CFG of a program for debugging
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new CFG printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram prints every function, then the static data
func (p *Printer) PrintProgram(prog *Program) {
	for i, fn := range prog.Functions {
		p.PrintFunction(fn)
		if i < len(prog.Functions)-1 {
			fmt.Fprintln(p.w)
		}
	}
	for _, d := range prog.Data {
		fmt.Fprintf(p.w, "data %s[%d] = %d", d.Label, d.Size, d.Init)
		if d.Global {
			fmt.Fprint(p.w, " global")
		}
		fmt.Fprintln(p.w)
	}
	for _, s := range prog.Strings {
		fmt.Fprintf(p.w, "string %s = \"%s\"\n", s.Label, asm.Escape(s.Value))
	}
}

// PrintFunction prints the blocks of fn in creation order
func (p *Printer) PrintFunction(fn *Function) {
	fmt.Fprintf(p.w, "%s {\n", fn.Name)
	for _, b := range fn.Blocks() {
		fmt.Fprintf(p.w, "  %s:%s", b.Label, p.role(fn, b.ID))
		fmt.Fprintf(p.w, " preds(%s) succs(%s)\n", p.labels(fn, b.Preds), p.labels(fn, b.Succs))
		fmt.Fprintf(p.w, "    %d instructions\n", len(b.Code))
		fmt.Fprint(p.w, "    ")
		p.printTerminator(fn, b.Term)
		fmt.Fprintln(p.w)
	}
	fmt.Fprintln(p.w, "}")
}

func (p *Printer) role(fn *Function, id BlockID) string {
	switch id {
	case fn.Prologue:
		return " prologue"
	case fn.Entry:
		return " entry"
	case fn.Epilogue:
		return " epilogue"
	}
	return ""
}

func (p *Printer) labels(fn *Function, ids []BlockID) string {
	s := ""
	for i, id := range ids {
		if i > 0 {
			s += ", "
		}
		s += p.label(fn, id)
	}
	return s
}

func (p *Printer) label(fn *Function, id BlockID) string {
	if b := fn.Block(id); b != nil {
		return b.Label.Name
	}
	return fmt.Sprintf("<deleted %d>", id)
}

func (p *Printer) printTerminator(fn *Function, t Terminator) {
	switch t := t.(type) {
	case Jump:
		fmt.Fprintf(p.w, "jump %s", p.label(fn, t.To))
	case Branch:
		fmt.Fprintf(p.w, "branch %s %s, %s", t.Cond, p.label(fn, t.IfTrue), p.label(fn, t.IfFalse))
	case Call:
		fmt.Fprintf(p.w, "call %s -> %s", t.Callee.Label, p.label(fn, t.Ret))
	case CallIndirect:
		fmt.Fprintf(p.w, "call %s -> %s", t.Callee, p.label(fn, t.Ret))
	case Return:
		fmt.Fprint(p.w, "return")
	case nil:
		fmt.Fprint(p.w, "<open>")
	default:
		fmt.Fprintf(p.w, "<unknown terminator %T>", t)
	}
}
