// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter

// page is the resolved LIMIT/OFFSET/ORDER BY of a query.
type page struct {
	limit    int
	offset   int
	column   string
	dir      SortDirection
	tieBreak string
}

// ClampLimit forces n into [MinLimit, MaxLimit].
func ClampLimit(n int) int {
	switch {
	case n < MinLimit:
		return MinLimit
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

// ClampOffset forces n to be non-negative.
func ClampOffset(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func resolvePage(t *Table, spec FilterSpec, ps *problems) page {
	name := t.DefaultSort
	if spec.SortBy != "" {
		if f, ok := t.Fields[spec.SortBy]; ok && f.Sortable {
			name = spec.SortBy
		} else {
			ps.add(Problem{Kind: UnknownSortField, Field: spec.SortBy})
		}
	}

	p := page{
		limit:  ClampLimit(spec.Limit),
		offset: ClampOffset(spec.Offset),
		column: t.Fields[name].Column,
		dir:    ParseSortDirection(string(spec.SortDir)),
	}
	if p.column != t.PrimaryKey {
		p.tieBreak = t.PrimaryKey
	}
	return p
}

func (p page) orderBy() []string {
	clauses := []string{p.column + " " + p.dir.SQL()}
	if p.tieBreak != "" {
		clauses = append(clauses, p.tieBreak+" ASC")
	}
	return clauses
}
