// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTable is raised (as a panic) when a caller asks for a table
	// that was never registered.
	ErrUnknownTable = errors.New("filter: unknown table")

	// ErrInvalidScope is raised (as a panic) when a trusted predicate does not
	// compile against its table.
	ErrInvalidScope = errors.New("filter: invalid trusted scope")

	// ErrInvalidSchema is returned while building a Registry from bad
	// configuration.
	ErrInvalidSchema = errors.New("filter: invalid schema")

	// ErrMalformedBody is returned by ParseBody for structurally broken input.
	ErrMalformedBody = errors.New("filter: malformed body")
)

// Kind classifies a Problem.
type Kind string

const (
	UnknownField        Kind = "unknown_field"
	DisallowedOperator  Kind = "disallowed_operator"
	TypeCoercionFailure Kind = "type_coercion_failure"
	UnknownSortField    Kind = "unknown_sort_field"
)

// Problem is one rejected piece of user input.
type Problem struct {
	Kind     Kind     `json:"kind"`
	Field    string   `json:"field"`
	Operator Operator `json:"operator,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

// Message renders the problem the way it is reported to API consumers.
func (p Problem) Message() string {
	switch p.Kind {
	case UnknownField:
		return "unknown field: " + p.Field
	case UnknownSortField:
		return "unknown sort field: " + p.Field
	}
	return fmt.Sprintf("%s %s: %s", p.Field, p.Operator, p.Reason)
}

// problems accumulates Problems over one compile.
type problems struct {
	list []Problem
}

func (ps *problems) add(p Problem) {
	ps.list = append(ps.list, p)
}

func (ps *problems) messages() []string {
	if len(ps.list) == 0 {
		return nil
	}
	out := make([]string, len(ps.list))
	for i, p := range ps.list {
		out[i] = p.Message()
	}
	return out
}
