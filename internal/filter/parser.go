// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// keyPattern matches "field" and "field[operator]".
var keyPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)(?:\[([A-Za-z_]+)\])?$`)

var (
	limitKeys   = []string{"limit"}
	offsetKeys  = []string{"offset"}
	sortKeys    = []string{"sortBy", "sort"}
	sortDirKeys = []string{"sortDir", "sortDirection", "order"}
)

func reservedKey(key string) bool {
	for _, set := range [][]string{limitKeys, offsetKeys, sortKeys, sortDirKeys} {
		for _, k := range set {
			if k == key {
				return true
			}
		}
	}
	return false
}

func firstValue(values map[string][]string, keys []string) (string, bool) {
	for _, k := range keys {
		if vs := values[k]; len(vs) > 0 {
			return vs[0], true
		}
	}
	return "", false
}

// ParseOption adjusts ParseValues and ParseBody.
type ParseOption func(*parseOptions)

type parseOptions struct {
	defaultLimit int
}

// WithDefaultLimit sets the limit used when the input names none, or names
// one that is not a number. Non-positive n is ignored.
func WithDefaultLimit(n int) ParseOption {
	return func(o *parseOptions) {
		if n > 0 {
			o.defaultLimit = n
		}
	}
}

func newParseOptions(opts []ParseOption) parseOptions {
	o := parseOptions{defaultLimit: DefaultLimit}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ParseValues parses flat query-string style input. "status=published"
// becomes an equals leaf and "size[gt]=10" a gt leaf. Keys matching neither
// form are ignored and no whitelist checks happen here.
func ParseValues(values map[string][]string, opts ...ParseOption) FilterSpec {
	o := newParseOptions(opts)
	spec := NewFilterSpec()
	spec.Limit = o.defaultLimit

	if v, ok := firstValue(values, limitKeys); ok {
		spec.Limit = atoiOr(v, o.defaultLimit)
	}
	if v, ok := firstValue(values, offsetKeys); ok {
		spec.Offset = atoiOr(v, 0)
	}
	if v, ok := firstValue(values, sortKeys); ok {
		spec.SortBy = strings.TrimSpace(v)
	}
	if v, ok := firstValue(values, sortDirKeys); ok {
		spec.SortDir = ParseSortDirection(v)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		if !reservedKey(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var leaves []Node
	for _, key := range keys {
		m := keyPattern.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		op := OpEquals
		if m[2] != "" {
			op = ParseOperator(m[2])
		}
		for _, raw := range values[key] {
			var value any = raw
			if op.list() {
				value = splitList(raw)
			}
			leaves = append(leaves, NewLeaf(m[1], op, value))
		}
	}

	if len(leaves) > 0 {
		spec.Where = AllOf(leaves...)
	}
	return spec
}

// atoiOr parses s as an int. Out-of-range input saturates to the nearest
// int so the clamps see a bound, not the fallback.
func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return n
		}
		return fallback
	}
	return n
}

// saturate converts f to int without wrapping.
func saturate(f float64) int {
	switch {
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(f)
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseBody parses the structured JSON form:
//
//	{"where": {"and": [{"field": "status", "operator": "equals", "value": "draft"}]},
//	 "limit": 10, "offset": 0, "sortBy": "title", "sortDir": "asc"}
//
// Only structurally broken input is an error. A group given as
// {"children": [...]} without a combinator is read as "and".
func ParseBody(data []byte, opts ...ParseOption) (FilterSpec, error) {
	o := newParseOptions(opts)
	spec := NewFilterSpec()
	spec.Limit = o.defaultLimit
	if len(bytes.TrimSpace(data)) == 0 {
		return spec, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return spec, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	if raw, ok := body["where"]; ok && raw != nil {
		where, err := parseNode(raw)
		if err != nil {
			return spec, err
		}
		spec.Where = where
	}
	if raw, ok := body["limit"]; ok && raw != nil {
		spec.Limit = intOr(raw, o.defaultLimit)
	}
	if raw, ok := body["offset"]; ok {
		spec.Offset = intOr(raw, 0)
	}
	for _, k := range sortKeys {
		if s, ok := body[k].(string); ok {
			spec.SortBy = strings.TrimSpace(s)
			break
		}
	}
	for _, k := range sortDirKeys {
		if s, ok := body[k].(string); ok {
			spec.SortDir = ParseSortDirection(s)
			break
		}
	}
	return spec, nil
}

func intOr(raw any, fallback int) int {
	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		// overflowing literals come back as ±Inf with ErrRange
		if f, err := v.Float64(); err == nil || errors.Is(err, strconv.ErrRange) {
			return saturate(f)
		}
	case string:
		return atoiOr(v, fallback)
	}
	return fallback
}

func parseNode(raw any) (Node, error) {
	switch v := raw.(type) {
	case []any:
		return parseGroup(And, v)
	case map[string]any:
		return parseObject(v)
	}
	return nil, fmt.Errorf("%w: expected an object, got %T", ErrMalformedBody, raw)
}

func parseObject(obj map[string]any) (Node, error) {
	if _, ok := obj["field"]; ok {
		field, _ := obj["field"].(string)
		op := OpEquals
		switch v := obj["operator"].(type) {
		case nil:
		case string:
			if v != "" {
				op = ParseOperator(v)
			}
		default:
			// kept verbatim so the compiler rejects it
			op = ParseOperator(fmt.Sprint(v))
		}
		return NewLeaf(field, op, obj["value"]), nil
	}

	andChildren, hasAnd := obj["and"]
	orChildren, hasOr := obj["or"]
	switch {
	case hasAnd && hasOr:
		return nil, fmt.Errorf("%w: group has both \"and\" and \"or\"", ErrMalformedBody)
	case hasAnd:
		return parseGroupValue(And, andChildren)
	case hasOr:
		return parseGroupValue(Or, orChildren)
	}

	if children, ok := obj["children"]; ok {
		comb := And
		if s, _ := obj["combinator"].(string); strings.EqualFold(s, string(Or)) {
			comb = Or
		}
		return parseGroupValue(comb, children)
	}
	return nil, fmt.Errorf("%w: node is neither a leaf nor a group", ErrMalformedBody)
}

func parseGroupValue(comb Combinator, raw any) (Node, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects a list", ErrMalformedBody, comb)
	}
	return parseGroup(comb, list)
}

func parseGroup(comb Combinator, list []any) (Node, error) {
	g := &Group{Combinator: comb, Children: make([]Node, 0, len(list))}
	for _, item := range list {
		child, err := parseNode(item)
		if err != nil {
			return nil, err
		}
		g.Children = append(g.Children, child)
	}
	return g, nil
}
