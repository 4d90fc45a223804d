package ir

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/raymyers/ralph-x64/pkg/arch"
	"github.com/raymyers/ralph-x64/pkg/asm"
	"github.com/raymyers/ralph-x64/pkg/diag"
	"github.com/raymyers/ralph-x64/pkg/operand"
)

func newTestProgram(policy diag.Policy) *Program {
	rep := diag.NewReporter(policy, nil)
	return NewProgram(arch.New(arch.Linux, 8, rep), "test.c", rep)
}

// checkSymmetric verifies that B is in A.Succs iff A is in B.Preds, with
// matching multiplicity
func checkSymmetric(t *testing.T, f *Function) {
	t.Helper()
	for _, a := range f.Blocks() {
		for _, s := range a.Succs {
			b := f.Block(s)
			if b == nil {
				t.Errorf("%s has a successor edge to deleted block %d", a.Label, s)
				continue
			}
			if count(a.Succs, b.ID) != count(b.Preds, a.ID) {
				t.Errorf("edge %s -> %s is not symmetric", a.Label, b.Label)
			}
		}
		for _, p := range a.Preds {
			b := f.Block(p)
			if b == nil {
				t.Errorf("%s has a predecessor edge from deleted block %d", a.Label, p)
				continue
			}
			if count(b.Succs, a.ID) != count(a.Preds, b.ID) {
				t.Errorf("edge %s -> %s is not symmetric", b.Label, a.Label)
			}
		}
	}
}

func count(ids []BlockID, id BlockID) int {
	n := 0
	for _, x := range ids {
		if x == id {
			n++
		}
	}
	return n
}

func TestNewFunctionSkeleton(t *testing.T) {
	p := newTestProgram(diag.Continue)
	f := p.NewFunction("main")

	if f.NumBlocks() != 3 {
		t.Fatalf("NumBlocks = %d, want 3", f.NumBlocks())
	}
	pro, entry, epi := f.Block(f.Prologue), f.Block(f.Entry), f.Block(f.Epilogue)
	if diff := cmp.Diff([]string{".0000", ".0001", ".0002"}, []string{pro.Label.Name, entry.Label.Name, epi.Label.Name}); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	if j, ok := pro.Term.(Jump); !ok || j.To != f.Entry {
		t.Errorf("prologue terminator = %#v, want jump to entry", pro.Term)
	}
	if _, ok := epi.Term.(Return); !ok {
		t.Errorf("epilogue terminator = %#v, want return", epi.Term)
	}
	if entry.Closed() {
		t.Error("entry should be open")
	}
	if f.PredCount(f.Prologue) != 1 {
		t.Errorf("prologue PredCount = %d, want 1 (implicit caller)", f.PredCount(f.Prologue))
	}
	checkSymmetric(t, f)

	anon := p.NewFunction("")
	if anon.Name != ".0003" {
		t.Errorf("anonymous function name = %q", anon.Name)
	}
	if len(p.Functions) != 2 {
		t.Errorf("Functions = %d, want 2", len(p.Functions))
	}
}

func TestTerminatorsAreSymmetric(t *testing.T) {
	p := newTestProgram(diag.Continue)
	f := p.NewFunction("f")
	a, b, c := f.NewBlock(), f.NewBlock(), f.NewBlock()
	puts := p.Symbol("puts")

	f.Branch(f.Entry, operand.LT, a.ID, b.ID)
	f.Call(a.ID, puts, c.ID)
	f.CallIndirect(b.ID, operand.LabelOffset{Label: puts.Label}, c.ID)
	f.Branch(c.ID, operand.EQ, f.Epilogue, f.Epilogue)

	checkSymmetric(t, f)
	if got := f.SuccCount(a.ID); got != 2 {
		t.Errorf("call block SuccCount = %d, want 2", got)
	}
	if got := f.SuccCount(c.ID); got != 2 {
		t.Errorf("branch with equal arms SuccCount = %d, want 2", got)
	}
	if got := f.PredCount(f.Epilogue); got != 2 {
		t.Errorf("epilogue PredCount = %d, want 2", got)
	}
	if got := f.PredCount(c.ID); got != 2 {
		t.Errorf("join PredCount = %d, want 2", got)
	}
}

func TestDoubleTerminate(t *testing.T) {
	t.Run("continue replaces", func(t *testing.T) {
		p := newTestProgram(diag.Continue)
		f := p.NewFunction("f")
		a, b := f.NewBlock(), f.NewBlock()
		f.Jump(f.Entry, a.ID)
		if err := f.Jump(f.Entry, b.ID); err != nil {
			t.Fatalf("Continue policy returned %v", err)
		}
		if p.Reporter().Count() != 1 {
			t.Errorf("double terminate reported %d times, want 1", p.Reporter().Count())
		}
		if j := f.Block(f.Entry).Term.(Jump); j.To != b.ID {
			t.Errorf("new terminator not installed: %#v", j)
		}
		if len(a.Preds) != 0 {
			t.Errorf("old edge survived: %v", a.Preds)
		}
		checkSymmetric(t, f)
	})
	t.Run("abort keeps the old terminator", func(t *testing.T) {
		p := newTestProgram(diag.Abort)
		f := p.NewFunction("f")
		a, b := f.NewBlock(), f.NewBlock()
		f.Jump(f.Entry, a.ID)
		err := f.Jump(f.Entry, b.ID)
		if !errors.Is(err, diag.ErrAssertion) {
			t.Fatalf("err = %v, want assertion", err)
		}
		if j := f.Block(f.Entry).Term.(Jump); j.To != a.ID {
			t.Errorf("terminator replaced under Abort: %#v", j)
		}
	})
}

func TestDeleteBlock(t *testing.T) {
	p := newTestProgram(diag.Continue)
	f := p.NewFunction("f")
	dead := f.NewBlock()
	f.Jump(f.Entry, f.Epilogue)
	f.Branch(dead.ID, operand.NE, f.Epilogue, f.Entry)

	f.DeleteBlock(dead.ID)
	if f.Block(dead.ID) != nil {
		t.Fatal("deleted block still reachable by id")
	}
	if f.NumBlocks() != 3 {
		t.Errorf("NumBlocks = %d, want 3", f.NumBlocks())
	}
	if diff := cmp.Diff([]BlockID{f.Entry}, f.Block(f.Epilogue).Preds); diff != "" {
		t.Errorf("epilogue preds mismatch (-want +got):\n%s", diff)
	}
	checkSymmetric(t, f)

	// ids of surviving blocks are stable
	later := f.NewBlock()
	if later.ID != 4 {
		t.Errorf("new block id = %d, want 4", later.ID)
	}
}

func TestCombine(t *testing.T) {
	p := newTestProgram(diag.Continue)
	f := p.NewFunction("f")
	b := f.NewBlock()
	other := f.NewBlock()

	f.Block(f.Entry).Append(asm.Comment{Text: "first"})
	b.Append(asm.Comment{Text: "second"}, asm.Comment{Text: "third"})
	f.Jump(f.Entry, b.ID)
	f.Branch(b.ID, operand.GT, other.ID, f.Epilogue)
	f.Jump(other.ID, f.Epilogue)

	f.Combine(f.Entry, b.ID)

	merged := f.Block(f.Entry)
	var texts []string
	for _, inst := range merged.Code {
		texts = append(texts, inst.(asm.Comment).Text)
	}
	if diff := cmp.Diff([]string{"first", "second", "third"}, texts); diff != "" {
		t.Errorf("code order mismatch (-want +got):\n%s", diff)
	}
	if br, ok := merged.Term.(Branch); !ok || br.IfTrue != other.ID || br.IfFalse != f.Epilogue {
		t.Errorf("terminator not transferred: %#v", merged.Term)
	}
	if diff := cmp.Diff([]BlockID{other.ID, f.Epilogue}, merged.Succs); diff != "" {
		t.Errorf("succs mismatch (-want +got):\n%s", diff)
	}
	if f.Block(b.ID) != nil {
		t.Error("absorbed block still live")
	}
	checkSymmetric(t, f)
}

func TestCombineRepointsEpilogue(t *testing.T) {
	p := newTestProgram(diag.Continue)
	f := p.NewFunction("f")
	f.Jump(f.Entry, f.Epilogue)
	entry := f.Entry
	f.Combine(entry, f.Epilogue)
	if f.Epilogue != entry {
		t.Errorf("Epilogue = %d, want %d", f.Epilogue, entry)
	}
	if _, ok := f.Block(f.Epilogue).Term.(Return); !ok {
		t.Errorf("merged epilogue should return, got %#v", f.Block(f.Epilogue).Term)
	}
}

func TestSymbolMangling(t *testing.T) {
	rep := diag.NewReporter(diag.Continue, nil)
	p := NewProgram(arch.New(arch.Windows, 8, rep), "t.c", rep)
	s := p.Symbol("printf")
	if s.Label.Name != "_printf" {
		t.Errorf("label = %q, want _printf", s.Label.Name)
	}
	if p.Symbol("printf") != s {
		t.Error("symbols are not interned")
	}
}

func TestStringConstant(t *testing.T) {
	p := newTestProgram(diag.Continue)
	a := p.StringConstant("hi")
	b := p.StringConstant("hi")
	if a.Label == b.Label {
		t.Error("strings are deduplicated without DedupStrings")
	}

	p = newTestProgram(diag.Continue)
	p.DedupStrings = true
	a = p.StringConstant("hi")
	b = p.StringConstant("hi")
	c := p.StringConstant("bye")
	if a.Label != b.Label {
		t.Error("DedupStrings did not reuse the label")
	}
	if a.Label == c.Label || len(p.Strings) != 2 {
		t.Errorf("distinct strings merged: %d strings", len(p.Strings))
	}
}

func TestPrinter(t *testing.T) {
	p := newTestProgram(diag.Continue)
	f := p.NewFunction("main")
	f.Call(f.Entry, p.Symbol("exit"), f.Epilogue)
	p.StaticValue("counter", true, 4, 10)
	p.StringConstant("hi\n")

	var buf bytes.Buffer
	NewPrinter(&buf).PrintProgram(p)
	out := buf.String()
	for _, want := range []string{
		"main {",
		".0000: prologue preds() succs(.0001)",
		"jump .0001",
		".0001: entry preds(.0000) succs(.0002)",
		"call exit -> .0002",
		".0002: epilogue preds(.0001) succs()",
		"return",
		"data counter[4] = 10 global",
		`string .0003 = "hi\n"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if slices.Contains(strings.Split(out, "\n"), "    <open>") {
		t.Errorf("closed blocks printed as open:\n%s", out)
	}
}
