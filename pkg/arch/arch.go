// Package arch describes the compilation target: word size, operating system,
// the register conventions that follow from them, symbol mangling and the flags
// handed to the external assembler and linker.
package arch

import (
	"fmt"
	"strings"

	"github.com/raymyers/ralph-x64/pkg/diag"
	"github.com/raymyers/ralph-x64/pkg/regalloc"
	"github.com/spf13/pflag"
)

// OS selects the target operating system
type OS int

const (
	Linux OS = iota
	Windows
)

var _ pflag.Value = (*OS)(nil)

func (o OS) String() string {
	switch o {
	case Linux:
		return "linux"
	case Windows:
		return "windows"
	}
	return fmt.Sprintf("os(%d)", int(o))
}

// Set parses an OS name, for use as a command-line flag
func (o *OS) Set(s string) error {
	switch strings.ToLower(s) {
	case "linux":
		*o = Linux
	case "windows", "win32", "win64":
		*o = Windows
	default:
		return fmt.Errorf("unknown OS %q (want linux or windows)", s)
	}
	return nil
}

// Type returns the flag type name
func (o *OS) Type() string {
	return "os"
}

// Arch is the target description consulted by every stage after the front-end
type Arch struct {
	OS       OS
	WordSize int

	ScratchRegs    []regalloc.ID
	CalleeSaveRegs []regalloc.ID

	ASFlags string
	LDFlags string
}

// New builds the description for os at wordSize bytes (4 or 8). Unknown values
// are reported and degrade to Linux and no register conventions.
func New(os OS, wordSize int, rep *diag.Reporter) *Arch {
	if rep == nil {
		rep = diag.NewReporter(diag.Continue, nil)
	}
	a := &Arch{OS: os, WordSize: wordSize}
	if os != Linux && os != Windows {
		rep.Unhandled("ArchSetup", "OS", int(os))
		a.OS = Linux
	}

	switch wordSize {
	case 4:
		a.ScratchRegs = []regalloc.ID{regalloc.RAX, regalloc.RCX, regalloc.RDX}
		a.CalleeSaveRegs = []regalloc.ID{regalloc.RBX, regalloc.RSI, regalloc.RDI}
		a.ASFlags, a.LDFlags = "-m32", "-m32"
	case 8:
		a.ScratchRegs = []regalloc.ID{regalloc.RAX, regalloc.RCX, regalloc.RDX,
			regalloc.R8, regalloc.R9, regalloc.R10, regalloc.R11}
		a.CalleeSaveRegs = []regalloc.ID{regalloc.RBX, regalloc.R12, regalloc.R13,
			regalloc.R14, regalloc.R15}
		// rsi and rdi are callee-saved only in the Microsoft x64 convention
		if a.OS == Windows {
			a.CalleeSaveRegs = append(a.CalleeSaveRegs, regalloc.RSI, regalloc.RDI)
		} else {
			a.ScratchRegs = append(a.ScratchRegs, regalloc.RSI, regalloc.RDI)
		}
		a.ASFlags, a.LDFlags = "-m64", "-m64"
	default:
		rep.Unhandled("ArchSetupRegs", "word size", wordSize)
	}
	return a
}

// Mangle returns the assembler label for a source identifier
func (a *Arch) Mangle(ident string) string {
	if a.OS == Windows {
		return "_" + ident
	}
	return ident
}
