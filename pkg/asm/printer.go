package asm

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs x86 assembly in Intel syntax for GNU as
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new assembly printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram outputs an entire program: file prologue, code, then data and rodata
func (p *Printer) PrintProgram(prog *Program) {
	fmt.Fprintf(p.w, "\t.file\t1 \"%s\"\n", prog.Source)
	fmt.Fprintf(p.w, "\t.intel_syntax\tnoprefix\n")

	for _, f := range prog.Functions {
		p.printFunction(f)
	}

	fmt.Fprintf(p.w, "\t.section\t.data\n")
	for _, d := range prog.Data {
		p.printData(d)
	}

	fmt.Fprintf(p.w, "\t.section\t.rodata\n")
	for _, s := range prog.Strings {
		fmt.Fprintf(p.w, "%s:\n", s.Label)
		fmt.Fprintf(p.w, "\t.asciz\t\"%s\"\n", Escape(s.Value))
	}
}

// DataDirective maps a static's size to its directive. A 4 byte value is
// emitted as .quad and an 8 byte one as .octa.
func DataDirective(size int) (string, bool) {
	switch size {
	case 1:
		return ".byte", true
	case 2:
		return ".word", true
	case 4:
		return ".quad", true
	case 8:
		return ".octa", true
	}
	return "", false
}

func (p *Printer) printData(d Data) {
	if d.Global {
		fmt.Fprintf(p.w, "\t.globl\t%s\n", d.Label)
	}
	fmt.Fprintf(p.w, "%s:\n", d.Label)
	if dir, ok := DataDirective(d.Size); ok {
		fmt.Fprintf(p.w, "\t%s\t%d\n", dir, d.Init)
	} else {
		fmt.Fprintf(p.w, "\t.zero\t%d\n", d.Size)
	}
}

func (p *Printer) printFunction(f Function) {
	fmt.Fprintf(p.w, "\t.balign\t16\n")
	fmt.Fprintf(p.w, "\t.globl\t%s\n", f.Name)
	fmt.Fprintf(p.w, "%s:\n", f.Name)
	p.PrintCode(f.Code)
	fmt.Fprintf(p.w, "\n")
}

// PrintCode outputs a bare instruction sequence
func (p *Printer) PrintCode(code []Instruction) {
	for _, inst := range code {
		p.printInstruction(inst)
	}
}

func (p *Printer) printInstruction(inst Instruction) {
	switch i := inst.(type) {
	case LabelDef:
		fmt.Fprintf(p.w, "%s:\n", i.Name)
	case Comment:
		fmt.Fprintf(p.w, "\t# %s\n", i.Text)

	// Data movement
	case Mov:
		fmt.Fprintf(p.w, "\tmov\t%s, %s\n", i.Dest, i.Src)
	case Movzx:
		fmt.Fprintf(p.w, "\tmovzx\t%s, %s\n", i.Dest, i.Src)
	case Lea:
		fmt.Fprintf(p.w, "\tlea\t%s, %s\n", i.Dest, i.Src)
	case Push:
		fmt.Fprintf(p.w, "\tpush\t%s\n", i.Src)
	case Pop:
		fmt.Fprintf(p.w, "\tpop\t%s\n", i.Dest)
	case RepStos:
		fmt.Fprintf(p.w, "\trep stos%s\n", stosSuffix(i.Width))

	// Arithmetic
	case Binary:
		fmt.Fprintf(p.w, "\t%s\t%s, %s\n", i.Op.Mnemonic(), i.Dest, i.Src)
	case IMul3:
		fmt.Fprintf(p.w, "\timul\t%s, %s, %s\n", i.Dest, i.Src, i.Imm)
	case Unary:
		switch i.Op {
		case Inc:
			fmt.Fprintf(p.w, "\tadd\t%s, 1\n", i.Dest)
		case Dec:
			fmt.Fprintf(p.w, "\tsub\t%s, 1\n", i.Dest)
		case Neg:
			fmt.Fprintf(p.w, "\tneg\t%s\n", i.Dest)
		case Not:
			fmt.Fprintf(p.w, "\tnot\t%s\n", i.Dest)
		}
	case Idiv:
		fmt.Fprintf(p.w, "\tidiv\t%s\n", i.Src)
	case Cmp:
		fmt.Fprintf(p.w, "\tcmp\t%s, %s\n", i.L, i.R)

	// Control flow
	case Jmp:
		fmt.Fprintf(p.w, "\tjmp\t%s\n", i.Target)
	case Jcc:
		fmt.Fprintf(p.w, "\tj%s\t%s\n", i.Cond, i.Target)
	case Call:
		fmt.Fprintf(p.w, "\tcall\t%s\n", i.Target)
	case CallIndirect:
		fmt.Fprintf(p.w, "\tcall\t%s\n", i.Target)
	case Ret:
		fmt.Fprintf(p.w, "\tret\n")

	default:
		fmt.Fprintf(p.w, "\t# unknown instruction %T\n", inst)
	}
}

func stosSuffix(width int) string {
	switch width {
	case 1:
		return "b"
	case 2:
		return "w"
	case 8:
		return "q"
	}
	return "d"
}

// Escape quotes s for a GNU as string directive
func Escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&b, "\\%03o", c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}
