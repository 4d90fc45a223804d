package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/raymyers/ralph-x64/pkg/arch"
	"github.com/raymyers/ralph-x64/pkg/asm"
	"github.com/raymyers/ralph-x64/pkg/asmgen"
	"github.com/raymyers/ralph-x64/pkg/blockopt"
	"github.com/raymyers/ralph-x64/pkg/diag"
	"github.com/raymyers/ralph-x64/pkg/ir"
	"github.com/raymyers/ralph-x64/pkg/irfile"
	"github.com/raymyers/ralph-x64/pkg/linearize"
	"github.com/raymyers/ralph-x64/pkg/regalloc"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// ErrDiagnostics is returned when compilation finished but reported internal errors
var ErrDiagnostics = errors.New("internal errors reported")

// options holds the command line flags
type options struct {
	output       string
	os           arch.OS
	wordSize     int
	strict       bool
	noOpt        bool
	dedupStrings bool
	dCFG         bool
	printFlags   bool
}

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		// diagnostics were already printed by the sink
		var de *diag.Error
		if !errors.Is(err, ErrDiagnostics) && !errors.As(err, &de) {
			fmt.Fprintf(os.Stderr, "ralph-x64: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &options{os: arch.Linux, wordSize: 8}

	rootCmd := &cobra.Command{
		Use:   "ralph-x64 [file.yaml]",
		Short: "ralph-x64 lowers a CFG program description to x86 assembly",
		Long: `ralph-x64 reads a program described as functions of basic blocks,
legalizes every operation into x86 instructions, simplifies the
control flow graph and writes Intel-syntax assembly for GNU as.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.printFlags {
				return doPrintFlags(opts, out, errOut)
			}
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			return doCompile(args[0], opts, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write assembly to this file (- for stdout)")
	rootCmd.Flags().Var(&opts.os, "os", "Target OS (linux, windows)")
	rootCmd.Flags().IntVar(&opts.wordSize, "word", 8, "Word size in bytes (4 or 8)")
	rootCmd.Flags().BoolVar(&opts.strict, "strict", false, "Stop at the first internal error")
	rootCmd.Flags().BoolVar(&opts.noOpt, "no-opt", false, "Skip CFG simplification")
	rootCmd.Flags().BoolVar(&opts.dedupStrings, "dedup-strings", false, "Share one label between equal string constants")
	rootCmd.Flags().BoolVar(&opts.dCFG, "dcfg", false, "Dump the CFG before emission")
	rootCmd.Flags().BoolVar(&opts.printFlags, "print-flags", false, "Print assembler and linker flags and register conventions for the target")

	return rootCmd
}

func newReporter(opts *options, errOut io.Writer) *diag.Reporter {
	policy := diag.Continue
	if opts.strict {
		policy = diag.Abort
	}
	return diag.NewReporter(policy, diag.NewWriterSink(errOut, "ralph-x64"))
}

func doPrintFlags(opts *options, out, errOut io.Writer) error {
	a := arch.New(opts.os, opts.wordSize, newReporter(opts, errOut))
	fmt.Fprintf(out, "as: %s\n", a.ASFlags)
	fmt.Fprintf(out, "ld: %s\n", a.LDFlags)
	fmt.Fprintf(out, "scratch: %s\n", regList(a.ScratchRegs))
	fmt.Fprintf(out, "callee-save: %s\n", regList(a.CalleeSaveRegs))
	return nil
}

func regList(ids []regalloc.ID) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.String()
	}
	return strings.Join(names, " ")
}

func doCompile(filename string, opts *options, out, errOut io.Writer) error {
	file, err := irfile.ReadFile(filename)
	if err != nil {
		return err
	}

	rep := newReporter(opts, errOut)
	source := file.Source
	if source == "" {
		source = filepath.Base(filename)
	}
	prog := ir.NewProgram(arch.New(opts.os, opts.wordSize, rep), source, rep)
	prog.DedupStrings = opts.dedupStrings

	sel := asmgen.NewSelector(prog, nil)
	if err := file.Build(sel); err != nil {
		return err
	}
	if !opts.noOpt {
		blockopt.Program(prog)
	}
	if opts.dCFG {
		ir.NewPrinter(out).PrintProgram(prog)
	}

	asmProg, err := linearize.Program(prog)
	if err != nil {
		return err
	}

	outputFilename := opts.output
	if outputFilename == "" {
		outputFilename = asmOutputFilename(filename)
	}
	if outputFilename == "-" {
		asm.NewPrinter(out).PrintProgram(asmProg)
	} else {
		outFile, err := os.Create(outputFilename)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outputFilename, err)
		}
		defer outFile.Close()
		asm.NewPrinter(outFile).PrintProgram(asmProg)
	}

	if n := rep.Count(); n > 0 {
		return fmt.Errorf("%w: %d", ErrDiagnostics, n)
	}
	return nil
}

// asmOutputFilename returns the default output: input.yaml -> input.s
func asmOutputFilename(filename string) string {
	for _, ext := range []string{".yaml", ".yml"} {
		if strings.HasSuffix(filename, ext) {
			return filename[:len(filename)-len(ext)] + ".s"
		}
	}
	return filename + ".s"
}
