package arch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/raymyers/ralph-x64/pkg/diag"
	"github.com/raymyers/ralph-x64/pkg/regalloc"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		os         OS
		word       int
		scratch    []regalloc.ID
		calleeSave []regalloc.ID
		flags      string
	}{
		{
			name:       "linux 64",
			os:         Linux,
			word:       8,
			scratch:    []regalloc.ID{regalloc.RAX, regalloc.RCX, regalloc.RDX, regalloc.R8, regalloc.R9, regalloc.R10, regalloc.R11, regalloc.RSI, regalloc.RDI},
			calleeSave: []regalloc.ID{regalloc.RBX, regalloc.R12, regalloc.R13, regalloc.R14, regalloc.R15},
			flags:      "-m64",
		},
		{
			name:       "windows 64",
			os:         Windows,
			word:       8,
			scratch:    []regalloc.ID{regalloc.RAX, regalloc.RCX, regalloc.RDX, regalloc.R8, regalloc.R9, regalloc.R10, regalloc.R11},
			calleeSave: []regalloc.ID{regalloc.RBX, regalloc.R12, regalloc.R13, regalloc.R14, regalloc.R15, regalloc.RSI, regalloc.RDI},
			flags:      "-m64",
		},
		{
			name:       "linux 32",
			os:         Linux,
			word:       4,
			scratch:    []regalloc.ID{regalloc.RAX, regalloc.RCX, regalloc.RDX},
			calleeSave: []regalloc.ID{regalloc.RBX, regalloc.RSI, regalloc.RDI},
			flags:      "-m32",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.os, tt.word, nil)
			if diff := cmp.Diff(tt.scratch, a.ScratchRegs); diff != "" {
				t.Errorf("scratch mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.calleeSave, a.CalleeSaveRegs); diff != "" {
				t.Errorf("callee-save mismatch (-want +got):\n%s", diff)
			}
			if a.ASFlags != tt.flags || a.LDFlags != tt.flags {
				t.Errorf("flags = %q/%q, want %q", a.ASFlags, a.LDFlags, tt.flags)
			}
		})
	}
}

func TestNewUnknownValues(t *testing.T) {
	rep := diag.NewReporter(diag.Continue, nil)
	a := New(OS(7), 2, rep)
	if a.OS != Linux {
		t.Errorf("unknown OS should degrade to linux, got %v", a.OS)
	}
	if rep.Count() != 2 {
		t.Errorf("Count = %d, want 2", rep.Count())
	}
	if a.ASFlags != "" || len(a.CalleeSaveRegs) != 0 {
		t.Errorf("unknown word size should leave conventions empty")
	}
}

func TestMangle(t *testing.T) {
	if got := New(Linux, 8, nil).Mangle("main"); got != "main" {
		t.Errorf("linux Mangle = %q", got)
	}
	if got := New(Windows, 8, nil).Mangle("main"); got != "_main" {
		t.Errorf("windows Mangle = %q", got)
	}
}

func TestOSFlagValue(t *testing.T) {
	var o OS
	if err := o.Set("Windows"); err != nil || o != Windows {
		t.Errorf("Set(Windows) = %v, %v", o, err)
	}
	if err := o.Set("plan9"); err == nil {
		t.Error("Set(plan9) should fail")
	}
	if o.String() != "windows" || o.Type() != "os" {
		t.Errorf("String/Type = %q/%q", o.String(), o.Type())
	}
}
