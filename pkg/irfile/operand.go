package irfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-x64/pkg/operand"
	"github.com/raymyers/ralph-x64/pkg/regalloc"
)

var sizeNames = map[string]int{
	"byte":  1,
	"word":  2,
	"dword": 4,
	"qword": 8,
	"oword": 16,
}

// parseSize accepts the access size names and sizeN for any other width
func parseSize(s string) (int, bool) {
	s = strings.ToLower(s)
	if n, ok := sizeNames[s]; ok {
		return n, true
	}
	if rest, ok := strings.CutPrefix(s, "size"); ok {
		n, err := strconv.Atoi(rest)
		return n, err == nil && n > 0
	}
	return 0, false
}

// operand parses one operand. Registers it names are claimed from the pool
// until the current instruction is done.
func (b *builder) operand(s string) (operand.Operand, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: missing operand", ErrInvalid)
	}
	switch strings.ToLower(s) {
	case "stack":
		return operand.Stack{}, nil
	case "void":
		return operand.Void{}, nil
	}
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return operand.Literal{Value: v}, nil
	}
	if id, width, ok := regalloc.Lookup(s); ok {
		return operand.Reg{Claim: b.claim(id), Width: width}, nil
	}
	if strings.Contains(s, "[") {
		return b.memory(s)
	}

	fields := strings.Fields(s)
	if len(fields) == 2 {
		switch strings.ToLower(fields[0]) {
		case "offset":
			return operand.LabelOffset{Label: b.label(fields[1])}, nil
		case "flags":
			cond, ok := operand.ParseCondition(strings.ToLower(fields[1]))
			if !ok {
				return nil, fmt.Errorf("%w: unknown condition %q", ErrInvalid, fields[1])
			}
			return operand.Flags{Cond: cond}, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot parse operand %q", ErrInvalid, s)
}

// memory parses "<size> [ptr] [address]"
func (b *builder) memory(s string) (operand.Operand, error) {
	open := strings.IndexByte(s, '[')
	if !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("%w: unterminated address in %q", ErrInvalid, s)
	}
	prefix := strings.Fields(s[:open])
	if len(prefix) == 2 && strings.EqualFold(prefix[1], "ptr") {
		prefix = prefix[:1]
	}
	if len(prefix) != 1 {
		return nil, fmt.Errorf("%w: memory operand %q needs a size", ErrInvalid, s)
	}
	size, ok := parseSize(prefix[0])
	if !ok {
		return nil, fmt.Errorf("%w: unknown size %q", ErrInvalid, prefix[0])
	}

	addr := strings.Join(strings.Fields(s[open+1:len(s)-1]), "")
	if addr == "" {
		return nil, fmt.Errorf("%w: empty address in %q", ErrInvalid, s)
	}
	if isIdent(addr) {
		if _, _, isReg := regalloc.Lookup(addr); !isReg {
			return operand.LabelMem{Label: b.label(addr), Size: size}, nil
		}
	}

	m := operand.Mem{Size: size}
	for _, term := range splitTerms(addr) {
		neg := term[0] == '-'
		body := strings.TrimLeft(term, "+-")
		if n, err := strconv.ParseInt(body, 0, 32); err == nil {
			if neg {
				n = -n
			}
			m.Offset += int(n)
			continue
		}
		if neg {
			return nil, fmt.Errorf("%w: register subtracted in %q", ErrInvalid, s)
		}
		name, factor := body, 1
		if reg, scale, ok := strings.Cut(body, "*"); ok {
			f, err := strconv.Atoi(scale)
			if err != nil || (f != 1 && f != 2 && f != 4 && f != 8) {
				return nil, fmt.Errorf("%w: bad scale in %q", ErrInvalid, s)
			}
			name, factor = reg, f
		}
		id, _, ok := regalloc.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a register", ErrInvalid, name)
		}
		switch {
		case factor == 1 && m.Base == nil:
			m.Base = b.claim(id)
		case m.Index == nil:
			m.Index, m.Factor = b.claim(id), factor
		default:
			return nil, fmt.Errorf("%w: too many registers in %q", ErrInvalid, s)
		}
	}
	if m.Base == nil {
		return nil, fmt.Errorf("%w: address %q has no base register", ErrInvalid, s)
	}
	return m, nil
}

// splitTerms splits "rbx+rcx*8-4" into "rbx", "+rcx*8", "-4"
func splitTerms(addr string) []string {
	var terms []string
	start := 0
	for i := 1; i < len(addr); i++ {
		if addr[i] == '+' || addr[i] == '-' {
			terms = append(terms, addr[start:i])
			start = i
		}
	}
	return append(terms, addr[start:])
}

func isIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || r == '.' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return s != ""
}
