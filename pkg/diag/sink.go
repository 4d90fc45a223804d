package diag

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const (
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorNone   = "\033[0m"
)

// WriterSink prints diagnostics one per line, prefixed with the program name
type WriterSink struct {
	w      io.Writer
	prog   string
	colors bool
}

// NewWriterSink creates a sink writing to w. Colors are enabled only when w is
// a terminal.
func NewWriterSink(w io.Writer, prog string) *WriterSink {
	s := &WriterSink{w: w, prog: prog}
	if f, ok := w.(*os.File); ok {
		s.colors = term.IsTerminal(int(f.Fd()))
	}
	return s
}

// Emit writes d to the sink's writer
func (s *WriterSink) Emit(d Diagnostic) {
	tag := d.Severity.String()
	if s.colors {
		color := colorRed
		if d.Severity == SeverityWarning {
			color = colorYellow
		}
		tag = color + tag + colorNone
	}
	fmt.Fprintf(s.w, "%s: %s(%s): %s\n", s.prog, tag, d.Func, d.Detail)
}
