package operand

// Condition is a comparison outcome tested by a conditional jump
type Condition int

const (
	CondUndefined Condition = iota
	EQ
	NE
	GT
	GE
	LT
	LE
)

var condNames = [...]string{"condition", "e", "ne", "g", "ge", "l", "le"}

// String returns the jcc suffix for c
func (c Condition) String() string {
	if c < 0 || int(c) >= len(condNames) {
		return "condition"
	}
	return condNames[c]
}

// Negate returns the condition that holds exactly when c does not
func (c Condition) Negate() Condition {
	switch c {
	case EQ:
		return NE
	case NE:
		return EQ
	case GT:
		return LE
	case GE:
		return LT
	case LT:
		return GE
	case LE:
		return GT
	}
	return CondUndefined
}

// ParseCondition maps a jcc suffix back to its condition
func ParseCondition(s string) (Condition, bool) {
	for i, name := range condNames {
		if i > 0 && name == s {
			return Condition(i), true
		}
	}
	return CondUndefined, false
}
