// Package regalloc is the physical register pool used by instruction selection.
//
// The allocator is deliberately simple: there is no liveness analysis and no
// spilling. A register is either free or checked out at some width, and the
// caller gives it back when its temporary dies. Temporaries taken during
// selection are scoped (see Pool.Scoped) so they are always released in
// reverse acquisition order.
package regalloc

import "strings"

// ID identifies a physical x86 general-purpose register
type ID int

const (
	Undefined ID = iota
	RAX
	RBX
	RCX
	RDX
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	RBP
	RSP
	NumRegs
)

// Register describes one physical register
type Register struct {
	Size  int       // natural minimum width in bytes
	Names [4]string // byte, word, dword, qword; "" where the width has no name
}

var table = [NumRegs]Register{
	Undefined: {1, [4]string{"undefined", "undefined", "undefined", "undefined"}},
	RAX:       {1, [4]string{"al", "ax", "eax", "rax"}},
	RBX:       {1, [4]string{"bl", "bx", "ebx", "rbx"}},
	RCX:       {1, [4]string{"cl", "cx", "ecx", "rcx"}},
	RDX:       {1, [4]string{"dl", "dx", "edx", "rdx"}},
	RSI:       {2, [4]string{"", "si", "esi", "rsi"}},
	RDI:       {2, [4]string{"", "di", "edi", "rdi"}},
	R8:        {8, [4]string{"r8b", "r8w", "r8d", "r8"}},
	R9:        {8, [4]string{"r9b", "r9w", "r9d", "r9"}},
	R10:       {8, [4]string{"r10b", "r10w", "r10d", "r10"}},
	R11:       {8, [4]string{"r11b", "r11w", "r11d", "r11"}},
	R12:       {8, [4]string{"r12b", "r12w", "r12d", "r12"}},
	R13:       {8, [4]string{"r13b", "r13w", "r13d", "r13"}},
	R14:       {8, [4]string{"r14b", "r14w", "r14d", "r14"}},
	R15:       {8, [4]string{"r15b", "r15w", "r15d", "r15"}},
	RBP:       {2, [4]string{"", "bp", "ebp", "rbp"}},
	RSP:       {2, [4]string{"", "sp", "esp", "rsp"}},
}

// Info returns the table entry for id
func (id ID) Info() Register {
	if id < 0 || id >= NumRegs {
		return table[Undefined]
	}
	return table[id]
}

// Valid reports whether id names a real register
func (id ID) Valid() bool {
	return id > Undefined && id < NumRegs
}

// String returns the qword name of the register
func (id ID) String() string {
	if name, ok := Name(id, 8); ok {
		return name
	}
	return "undefined"
}

func widthSlot(width int) int {
	switch width {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	}
	return -1
}

// Name returns the display name of id at width bytes
func Name(id ID, width int) (string, bool) {
	slot := widthSlot(width)
	if slot < 0 || !id.Valid() {
		return "", false
	}
	name := table[id].Names[slot]
	return name, name != ""
}

// Lookup parses a register name of any width, e.g. "eax" -> (RAX, 4)
func Lookup(name string) (ID, int, bool) {
	name = strings.ToLower(name)
	for id := RAX; id < NumRegs; id++ {
		for slot, n := range table[id].Names {
			if n != "" && n == name {
				return id, 1 << slot, true
			}
		}
	}
	return Undefined, 0, false
}
