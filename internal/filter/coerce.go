// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MaxInValues caps the size of an "in" list.
const MaxInValues = 100

// maxExactInt is the largest integer a float64 holds exactly.
const maxExactInt = 1 << 53

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// coerce converts a raw leaf value into the bound parameters for op.
// A non-empty reason means the value was rejected.
func coerce(t ValueType, op Operator, raw any) ([]any, string) {
	if raw == nil {
		return nil, "value is required"
	}

	if !op.list() {
		if isList(raw) {
			return nil, "expected a single value"
		}
		v, reason := coerceScalar(t, raw)
		if reason != "" {
			return nil, reason
		}
		if s, ok := v.(string); ok {
			v = likePattern(op, s)
		}
		return []any{v}, ""
	}

	items := toList(raw)
	switch op {
	case OpIn:
		if len(items) == 0 {
			return nil, "in requires at least one value"
		}
		if len(items) > MaxInValues {
			return nil, fmt.Sprintf("in accepts at most %d values", MaxInValues)
		}
	case OpBetween:
		if len(items) != 2 {
			return nil, "between requires exactly 2 values"
		}
	}

	params := make([]any, 0, len(items))
	for _, item := range items {
		if item == nil {
			return nil, "value is required"
		}
		v, reason := coerceScalar(t, item)
		if reason != "" {
			return nil, reason
		}
		params = append(params, v)
	}
	return params, ""
}

func coerceScalar(t ValueType, raw any) (any, string) {
	switch t {
	case TypeString:
		return toString(raw)
	case TypeNumber:
		return toNumber(raw)
	case TypeBoolean:
		return toBool(raw)
	case TypeDate:
		return toDate(raw)
	}
	return nil, fmt.Sprintf("unsupported field type %q", string(t))
}

func likePattern(op Operator, s string) string {
	switch op {
	case OpContains:
		return "%" + likeEscaper.Replace(s) + "%"
	case OpStartsWith:
		return likeEscaper.Replace(s) + "%"
	case OpEndsWith:
		return "%" + likeEscaper.Replace(s)
	}
	return s
}

func isList(raw any) bool {
	switch raw.(type) {
	case []string, []any:
		return true
	}
	return false
}

// toList accepts a slice or a comma separated string.
func toList(raw any) []any {
	switch v := raw.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case string:
		var out []any
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return []any{raw}
}

func toString(raw any) (any, string) {
	switch v := raw.(type) {
	case string:
		return v, ""
	case json.Number:
		return v.String(), ""
	case bool:
		return strconv.FormatBool(v), ""
	case int:
		return strconv.Itoa(v), ""
	case int64:
		return strconv.FormatInt(v, 10), ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), ""
	}
	return nil, fmt.Sprintf("expected a string, got %T", raw)
}

func toNumber(raw any) (any, string) {
	var f float64
	switch v := raw.(type) {
	case int:
		return int64(v), ""
	case int64:
		return v, ""
	case float64:
		f = v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, ""
		}
		parsed, err := v.Float64()
		if err != nil {
			return nil, fmt.Sprintf("invalid number %q", v.String())
		}
		f = parsed
	case string:
		s := strings.TrimSpace(v)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, ""
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Sprintf("invalid number %q", v)
		}
		f = parsed
	default:
		return nil, fmt.Sprintf("expected a number, got %T", raw)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, "number must be finite"
	}
	if f == math.Trunc(f) && math.Abs(f) < maxExactInt {
		return int64(f), ""
	}
	return f, ""
}

func toBool(raw any) (any, string) {
	switch v := raw.(type) {
	case bool:
		return v, ""
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Sprintf("invalid boolean %q", v)
		}
		return b, ""
	}
	return nil, fmt.Sprintf("expected a boolean, got %T", raw)
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02"}

func toDate(raw any) (any, string) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), ""
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), ""
			}
		}
		return nil, fmt.Sprintf("invalid date %q, expected RFC3339 or YYYY-MM-DD", v)
	}
	return nil, fmt.Sprintf("expected a date, got %T", raw)
}
