// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package filter compiles client supplied filter, sort and pagination
// descriptions into parameterized SQL for the list endpoints.
//
// Input is parsed into a FilterSpec, validated against a per-table whitelist
// held by a Registry, and compiled into a CompiledQuery. Problems with the
// input are accumulated on the result instead of being returned as errors.
package filter

import (
	"encoding/json"
	"strings"
)

// Pagination bounds.
const (
	DefaultLimit = 50
	MinLimit     = 1
	MaxLimit     = 1000
)

// Combinator joins the children of a Group.
type Combinator string

const (
	And Combinator = "and"
	Or  Combinator = "or"
)

// SortDirection is the direction of the requested sort column.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// ParseSortDirection reads a direction case-insensitively. Anything other
// than "asc" is treated as descending.
func ParseSortDirection(s string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(s), string(Asc)) {
		return Asc
	}
	return Desc
}

// SQL returns the keyword used in ORDER BY.
func (d SortDirection) SQL() string {
	if d == Asc {
		return "ASC"
	}
	return "DESC"
}

// FilterSpec is the parsed request: predicate tree, pagination and sort.
// A nil Where means no predicate. An empty SortBy means the table default.
type FilterSpec struct {
	Where   Node
	Limit   int
	Offset  int
	SortBy  string
	SortDir SortDirection
}

// NewFilterSpec returns a spec carrying the default pagination.
func NewFilterSpec() FilterSpec {
	return FilterSpec{Limit: DefaultLimit, SortDir: Desc}
}

// Node is a predicate tree node. It is implemented by *Leaf and *Group only.
type Node interface {
	node()
}

// Leaf is a single field/operator/value predicate.
type Leaf struct {
	Field    string
	Operator Operator
	Value    any
}

// Group combines child predicates with AND or OR. An empty Combinator is
// read as And.
type Group struct {
	Combinator Combinator
	Children   []Node
}

func (*Leaf) node()  {}
func (*Group) node() {}

// NewLeaf is shorthand for a *Leaf node.
func NewLeaf(field string, op Operator, value any) *Leaf {
	return &Leaf{Field: field, Operator: op, Value: value}
}

// AllOf returns an AND group of the given nodes.
func AllOf(children ...Node) *Group {
	return &Group{Combinator: And, Children: children}
}

// AnyOf returns an OR group of the given nodes.
func AnyOf(children ...Node) *Group {
	return &Group{Combinator: Or, Children: children}
}

func (g *Group) combinator() Combinator {
	if g.Combinator == Or {
		return Or
	}
	return And
}

// MarshalJSON renders the leaf as {"field","operator","value"}.
func (l *Leaf) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Field    string   `json:"field"`
		Operator Operator `json:"operator"`
		Value    any      `json:"value"`
	}{l.Field, l.Operator, l.Value})
}

// MarshalJSON renders the group as {"and": [...]} or {"or": [...]}.
func (g *Group) MarshalJSON() ([]byte, error) {
	children := g.Children
	if children == nil {
		children = []Node{}
	}
	return json.Marshal(map[string][]Node{string(g.combinator()): children})
}

// MarshalJSON renders s in the same shape ParseBody accepts.
func (s FilterSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Where   Node          `json:"where,omitempty"`
		Limit   int           `json:"limit"`
		Offset  int           `json:"offset"`
		SortBy  string        `json:"sortBy,omitempty"`
		SortDir SortDirection `json:"sortDir,omitempty"`
	}{s.Where, s.Limit, s.Offset, s.SortBy, s.SortDir})
}
