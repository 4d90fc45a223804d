package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raymyers/ralph-x64/pkg/diag"
)

const helloProgram = `
source: hello.c
strings:
  - {name: msg, value: "hello"}
functions:
  - name: main
    blocks:
      - code:
          - {op: mov, dest: rdi, src: "offset msg"}
        call: {symbol: puts, ret: exit}
`

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func execute(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestFlagsExist(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	for _, name := range []string{"output", "os", "word", "strict", "no-opt", "dedup-strings", "dcfg", "print-flags"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag --%s to exist", name)
		}
	}
	if f := cmd.Flags().ShorthandLookup("o"); f == nil || f.Name != "output" {
		t.Error("expected -o to be the shorthand for --output")
	}
	if got := cmd.Flags().Lookup("os").DefValue; got != "linux" {
		t.Errorf("--os default = %q, want linux", got)
	}
}

func TestNoArgsPrintsHelp(t *testing.T) {
	out, _, err := execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Usage:") {
		t.Errorf("expected usage, got %q", out)
	}
}

func TestPrintFlags(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--print-flags"}, "as: -m64\nld: -m64\n" +
			"scratch: rax rcx rdx r8 r9 r10 r11 rsi rdi\n" +
			"callee-save: rbx r12 r13 r14 r15\n"},
		{[]string{"--print-flags", "--word", "4"}, "as: -m32\nld: -m32\n" +
			"scratch: rax rcx rdx\n" +
			"callee-save: rbx rsi rdi\n"},
		{[]string{"--print-flags", "--os", "Win64"}, "as: -m64\nld: -m64\n" +
			"scratch: rax rcx rdx r8 r9 r10 r11\n" +
			"callee-save: rbx r12 r13 r14 r15 rsi rdi\n"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, _, err := execute(tt.args...)
			if err != nil {
				t.Fatal(err)
			}
			if out != tt.want {
				t.Errorf("got %q, want %q", out, tt.want)
			}
		})
	}
}

func TestBadOSFlag(t *testing.T) {
	if _, _, err := execute("--os", "plan9", "--print-flags"); err == nil {
		t.Error("expected an error for an unknown OS")
	}
}

func TestCompileToStdout(t *testing.T) {
	out, errOut, err := execute("-o", "-", writeInput(t, helloProgram))
	if err != nil {
		t.Fatalf("unexpected error: %v\nStderr: %s", err, errOut)
	}
	for _, want := range []string{"\t.file\t1 \"hello.c\"", "main:", "\tcall\tputs", "\t.asciz\t\"hello\""} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if errOut != "" {
		t.Errorf("unexpected diagnostics: %s", errOut)
	}
}

func TestCompileWritesOutputFile(t *testing.T) {
	input := writeInput(t, helloProgram)
	out, _, err := execute(input)
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Errorf("nothing should go to stdout, got %q", out)
	}
	content, err := os.ReadFile(asmOutputFilename(input))
	if err != nil {
		t.Fatalf("output file not created: %v", err)
	}
	if !strings.Contains(string(content), "\tcall\tputs") {
		t.Errorf("output file missing the call:\n%s", content)
	}
}

func TestDCFG(t *testing.T) {
	out, _, err := execute("--dcfg", "-o", "-", writeInput(t, helloProgram))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "main {\n") || !strings.Contains(out, "call puts") {
		t.Errorf("expected a CFG dump, got:\n%s", out)
	}
}

func TestMissingInput(t *testing.T) {
	_, _, err := execute(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

const badShift = `
functions:
  - name: main
    blocks:
      - code:
          - {op: shl, dest: rax, src: rbx}
`

func TestDiagnosticsFailTheRun(t *testing.T) {
	input := writeInput(t, badShift)

	out, errOut, err := execute("-o", "-", input)
	if !errors.Is(err, ErrDiagnostics) {
		t.Errorf("err = %v, want ErrDiagnostics", err)
	}
	if !strings.Contains(errOut, "ralph-x64: internal error(BOP): shift count in rbx, want cl") {
		t.Errorf("diagnostic not printed, stderr = %q", errOut)
	}
	if !strings.Contains(out, "\tsal\trax, bl") {
		t.Errorf("continue policy should still emit code, got:\n%s", out)
	}

	_, _, err = execute("--strict", "-o", "-", input)
	var de *diag.Error
	if !errors.As(err, &de) {
		t.Errorf("strict err = %v, want *diag.Error", err)
	}
}

func TestAsmOutputFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"prog.yaml", "prog.s"},
		{"dir/prog.yml", "dir/prog.s"},
		{"prog", "prog.s"},
	}
	for _, tt := range tests {
		if got := asmOutputFilename(tt.in); got != tt.want {
			t.Errorf("asmOutputFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
