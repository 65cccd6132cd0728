// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter

import (
	"fmt"
	"strings"
)

// CompiledQuery is the result of compiling a FilterSpec.
// When Errors is non-empty the SQL must not be executed.
type CompiledQuery struct {
	Table      string        `json:"table"`
	SQL        string        `json:"sql"`
	Params     []any         `json:"params"`
	Errors     []string      `json:"errors,omitempty"`
	Problems   []Problem     `json:"problems,omitempty"`
	Limit      int           `json:"limit"`
	Offset     int           `json:"offset"`
	SortColumn string        `json:"sortColumn"`
	SortDir    SortDirection `json:"sortDir"`
}

// Valid reports whether the query compiled without problems.
func (q CompiledQuery) Valid() bool {
	return len(q.Errors) == 0
}

// Placeholders counts the bind markers in SQL.
func (q CompiledQuery) Placeholders() int {
	return strings.Count(q.SQL, "?")
}

// Option adjusts a single Compile call.
type Option func(*compileOptions)

type compileOptions struct {
	trusted []Node
}

// WithTrustedWhere ANDs a caller-owned predicate after the user predicate.
// Trusted leaves may use any field of the table and any operator valid for
// its type; a trusted predicate that fails to compile panics with
// ErrInvalidScope.
func WithTrustedWhere(n Node) Option {
	return func(o *compileOptions) {
		if n != nil {
			o.trusted = append(o.trusted, n)
		}
	}
}

// Compiler turns FilterSpecs into SQL against a fixed Registry.
// It holds no mutable state and is safe for concurrent use.
type Compiler struct {
	registry *Registry
}

// NewCompiler creates a Compiler over registry.
func NewCompiler(registry *Registry) *Compiler {
	if registry == nil {
		panic("filter: registry is required")
	}
	return &Compiler{registry: registry}
}

// Registry returns the registry the compiler validates against.
func (c *Compiler) Registry() *Registry {
	return c.registry
}

// Compile compiles spec against table. It panics if table is not
// registered; every problem with spec itself is reported on the result.
func (c *Compiler) Compile(table string, spec FilterSpec, opts ...Option) CompiledQuery {
	t := c.registry.Table(table)

	var o compileOptions
	for _, opt := range opts {
		opt(&o)
	}

	ps := &problems{}
	user := (&predicateCompiler{table: t, problems: ps}).node(spec.Where)

	where := []fragment{user}
	for _, n := range o.trusted {
		where = append(where, (&predicateCompiler{table: t, trusted: true}).node(n))
	}

	p := resolvePage(t, spec, ps)
	sql, params := assemble(t, join(And, where), p)

	return CompiledQuery{
		Table:      t.Name,
		SQL:        sql,
		Params:     params,
		Errors:     ps.messages(),
		Problems:   ps.list,
		Limit:      p.limit,
		Offset:     p.offset,
		SortColumn: p.column,
		SortDir:    p.dir,
	}
}

// fragment is compiled predicate text with its bound values. terms counts
// the top-level operands joined in sql; more than one needs parentheses
// when nested.
type fragment struct {
	sql   string
	args  []any
	terms int
}

func (f fragment) empty() bool {
	return f.terms == 0
}

type predicateCompiler struct {
	table    *Table
	problems *problems
	trusted  bool
}

func (pc *predicateCompiler) node(n Node) fragment {
	switch v := n.(type) {
	case *Leaf:
		if v == nil {
			return fragment{}
		}
		return pc.leaf(v)
	case *Group:
		if v == nil {
			return fragment{}
		}
		children := make([]fragment, 0, len(v.Children))
		for _, child := range v.Children {
			children = append(children, pc.node(child))
		}
		return join(v.combinator(), children)
	}
	return fragment{}
}

func (pc *predicateCompiler) leaf(l *Leaf) fragment {
	f, ok := pc.table.Fields[l.Field]
	if !ok {
		pc.reject(Problem{Kind: UnknownField, Field: l.Field})
		return fragment{}
	}

	switch {
	case !l.Operator.Valid():
		pc.reject(Problem{Kind: DisallowedOperator, Field: l.Field, Operator: l.Operator, Reason: "unknown operator"})
		return fragment{}
	case pc.trusted && !f.Type.Supports(l.Operator),
		!pc.trusted && !f.Operators.Has(l.Operator):
		pc.reject(Problem{
			Kind:     DisallowedOperator,
			Field:    l.Field,
			Operator: l.Operator,
			Reason:   fmt.Sprintf("operator not allowed for %s field", f.Type),
		})
		return fragment{}
	}

	params, reason := coerce(f.Type, l.Operator, l.Value)
	if reason != "" {
		pc.reject(Problem{Kind: TypeCoercionFailure, Field: l.Field, Operator: l.Operator, Reason: reason})
		return fragment{}
	}

	return fragment{
		sql:   l.Operator.predicate(f.Column, len(params)),
		args:  params,
		terms: 1,
	}
}

func (pc *predicateCompiler) reject(p Problem) {
	if pc.trusted {
		panic(fmt.Errorf("%w: table %s: %s", ErrInvalidScope, pc.table.Name, p.Message()))
	}
	pc.problems.add(p)
}

// join combines the non-empty fragments with comb. A single survivor is
// returned unchanged.
func join(comb Combinator, parts []fragment) fragment {
	var live []fragment
	for _, p := range parts {
		if !p.empty() {
			live = append(live, p)
		}
	}
	switch len(live) {
	case 0:
		return fragment{}
	case 1:
		return live[0]
	}

	sep := " AND "
	if comb == Or {
		sep = " OR "
	}

	texts := make([]string, len(live))
	var args []any
	for i, p := range live {
		texts[i] = p.sql
		if p.terms > 1 {
			texts[i] = "(" + p.sql + ")"
		}
		args = append(args, p.args...)
	}
	return fragment{sql: strings.Join(texts, sep), args: args, terms: len(live)}
}
