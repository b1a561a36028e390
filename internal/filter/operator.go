package filter

import (
	"fmt"
	"strings"
)

// Operator is a comparison understood by filter bodies.
type Operator string

const (
	Eq Operator = "Eq"
	Ne Operator = "Ne"
	Lt Operator = "Lt"
	Le Operator = "Le"
	Gt Operator = "Gt"
	Ge Operator = "Ge"
	In Operator = "In"
)

var operators = []Operator{Eq, Ne, Lt, Le, Gt, Ge, In}

// Operators returns the operator set in canonical order.
func Operators() []Operator {
	return append([]Operator(nil), operators...)
}

// Valid reports whether op is one of the known operators.
func (op Operator) Valid() bool {
	for _, o := range operators {
		if o == op {
			return true
		}
	}
	return false
}

// ParseOperator accepts an operator name in any letter case.
func ParseOperator(s string) (Operator, error) {
	s = strings.TrimSpace(s)
	for _, o := range operators {
		if strings.EqualFold(string(o), s) {
			return o, nil
		}
	}
	return "", fmt.Errorf("filter: unknown operator %q", s)
}
