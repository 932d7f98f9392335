package packet

import "fmt"

// TypeLiteral is the 3-bit type tag reserved for literal packets.
const TypeLiteral uint8 = 4

// Operator is the semantics of an operator packet. Each value equals its
// 3-bit type tag.
type Operator uint8

const (
	OpSum         Operator = 0
	OpProduct     Operator = 1
	OpMinimum     Operator = 2
	OpMaximum     Operator = 3
	OpGreaterThan Operator = 5
	OpLessThan    Operator = 6
	OpEqual       Operator = 7
)

var operatorNames = map[Operator]string{
	OpSum:         "sum",
	OpProduct:     "product",
	OpMinimum:     "min",
	OpMaximum:     "max",
	OpGreaterThan: "gt",
	OpLessThan:    "lt",
	OpEqual:       "eq",
}

// ParseOperator maps a type tag to its operator. The literal tag and tags
// outside 0-7 are rejected.
func ParseOperator(tag uint8) (Operator, error) {
	op := Operator(tag)
	if _, ok := operatorNames[op]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownOperator, tag)
	}
	return op, nil
}

func (o Operator) Valid() bool {
	_, ok := operatorNames[o]
	return ok
}

// Comparison reports whether o compares exactly two operands.
func (o Operator) Comparison() bool {
	return o == OpGreaterThan || o == OpLessThan || o == OpEqual
}

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}
