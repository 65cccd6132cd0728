// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// assemble renders the final statement:
//
//	SELECT <cols> FROM <table> [WHERE <pred>] ORDER BY <col> <dir>[, <pk> ASC] LIMIT ? OFFSET ?
//
// limit and offset are always the last two params.
func assemble(t *Table, where fragment, p page) (string, []any) {
	builder := sq.Select(t.projection()...).
		From(t.Name).
		PlaceholderFormat(sq.Question)

	if !where.empty() {
		builder = builder.Where(where.sql, where.args...)
	}

	sql, args, err := builder.
		OrderBy(p.orderBy()...).
		Suffix("LIMIT ? OFFSET ?", p.limit, p.offset).
		ToSql()
	if err != nil {
		// only reachable with an empty projection or table name, which the
		// registry rejects
		panic(fmt.Sprintf("filter: assemble %s: %v", t.Name, err))
	}
	if args == nil {
		args = []any{}
	}
	return sql, args
}
