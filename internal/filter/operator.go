// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Operator is the comparison applied by a Leaf.
type Operator string

const (
	OpEquals     Operator = "equals"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpIn         Operator = "in"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpBetween    Operator = "between"
)

// ParseOperator normalizes a wire operator name. Unrecognized names are
// returned as-is and reported by the compiler.
func ParseOperator(s string) Operator {
	return Operator(strings.ToLower(strings.TrimSpace(s)))
}

// Valid reports whether o is one of the known operators.
func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpContains, OpStartsWith, OpEndsWith, OpIn,
		OpGt, OpGte, OpLt, OpLte, OpBetween:
		return true
	}
	return false
}

// list reports whether the operator takes a list of values.
func (o Operator) list() bool {
	return o == OpIn || o == OpBetween
}

// predicate renders "<column> <op> ?" for n bound values.
func (o Operator) predicate(column string, n int) string {
	switch o {
	case OpEquals:
		return column + " = ?"
	case OpGt:
		return column + " > ?"
	case OpGte:
		return column + " >= ?"
	case OpLt:
		return column + " < ?"
	case OpLte:
		return column + " <= ?"
	case OpContains, OpStartsWith, OpEndsWith:
		return column + " LIKE ?"
	case OpIn:
		return column + " IN (" + sq.Placeholders(n) + ")"
	case OpBetween:
		return column + " BETWEEN ? AND ?"
	}
	panic(fmt.Sprintf("filter: predicate for unchecked operator %q", string(o)))
}

// OperatorSet is the list of operators a field accepts.
type OperatorSet []Operator

// Has reports whether op is in the set.
func (s OperatorSet) Has(op Operator) bool {
	for _, o := range s {
		if o == op {
			return true
		}
	}
	return false
}

// ValueType is the declared type of a whitelisted field.
type ValueType string

const (
	TypeString  ValueType = "string"
	TypeNumber  ValueType = "number"
	TypeBoolean ValueType = "boolean"
	TypeDate    ValueType = "date"
)

// Valid reports whether t is a known value type.
func (t ValueType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeDate:
		return true
	}
	return false
}

// Supports reports whether op makes sense for values of type t.
func (t ValueType) Supports(op Operator) bool {
	return DefaultOperators(t).Has(op)
}

// DefaultOperators returns the full operator set for a value type.
func DefaultOperators(t ValueType) OperatorSet {
	switch t {
	case TypeString:
		return OperatorSet{OpEquals, OpContains, OpStartsWith, OpEndsWith, OpIn}
	case TypeNumber, TypeDate:
		return OperatorSet{OpEquals, OpGt, OpGte, OpLt, OpLte, OpBetween, OpIn}
	case TypeBoolean:
		return OperatorSet{OpEquals}
	}
	return nil
}
