// Package irfile reads the YAML description of a program and builds it
// through the instruction selector. It is the driver's front end: each
// instruction in the file becomes one selector operation, so the file can
// freely mix memory operands and oversized values and rely on asmgen to
// legalize them.
package irfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every error caused by the description itself
var ErrInvalid = errors.New("invalid program description")

// File is a whole program
type File struct {
	Source    string     `yaml:"source"`
	Data      []Data     `yaml:"data"`
	Strings   []String   `yaml:"strings"`
	Functions []Function `yaml:"functions"`
}

// Data declares a mutable static
type Data struct {
	Label  string `yaml:"label"`
	Global bool   `yaml:"global"`
	Size   int    `yaml:"size"`
	Init   int64  `yaml:"init"`
}

// String declares a read-only string. Name is how operands refer to it; the
// emitted label is generated.
type String struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Function is a function body. The first block is the entry point and the
// name "exit" refers to the epilogue.
type Function struct {
	Name   string  `yaml:"name"`
	Frame  int     `yaml:"frame"`
	Blocks []Block `yaml:"blocks"`
}

// Block is a straight-line run of instructions and at most one terminator.
// A block without one continues at the next listed block.
type Block struct {
	Name         string        `yaml:"name"`
	Code         []Inst        `yaml:"code"`
	Jump         string        `yaml:"jump,omitempty"`
	Branch       *Branch       `yaml:"branch,omitempty"`
	Call         *Call         `yaml:"call,omitempty"`
	CallIndirect *CallIndirect `yaml:"call_indirect,omitempty"`
}

// Inst is one selector operation
type Inst struct {
	Op   string `yaml:"op"`
	Dest string `yaml:"dest,omitempty"`
	Src  string `yaml:"src,omitempty"`
	Cond string `yaml:"cond,omitempty"` // cmov
	N    int    `yaml:"n,omitempty"`    // pushn, popn, fill
	Reg  string `yaml:"reg,omitempty"`  // save, restore
	Text string `yaml:"text,omitempty"` // comment
}

// Branch tests the flags left by the previous cmp
type Branch struct {
	Cond string `yaml:"cond"`
	Then string `yaml:"then"`
	Else string `yaml:"else"`
}

// Call calls a symbol and continues at Ret
type Call struct {
	Symbol string `yaml:"symbol"`
	Ret    string `yaml:"ret"`
}

// CallIndirect calls through an operand and continues at Ret
type CallIndirect struct {
	Target string `yaml:"target"`
	Ret    string `yaml:"ret"`
}

// Parse decodes a description. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &f, nil
}

// ReadFile parses the description stored at path
func ReadFile(path string) (*File, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer in.Close()
	f, err := Parse(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
