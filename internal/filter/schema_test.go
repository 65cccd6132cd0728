// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/badmuriss/warpcms-sub000/internal/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTable() filter.Table {
	return filter.Table{
		Name:        "pages",
		PrimaryKey:  "id",
		DefaultSort: "title",
		Columns:     []string{"id", "title"},
		Fields: map[string]filter.Field{
			"title": {Column: "title", Type: filter.TypeString, Operators: filter.DefaultOperators(filter.TypeString), Sortable: true},
		},
	}
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*filter.Table)
	}{
		{"field without operators", func(tb *filter.Table) {
			f := tb.Fields["title"]
			f.Operators = nil
			tb.Fields["title"] = f
		}},
		{"operator wrong for type", func(tb *filter.Table) {
			f := tb.Fields["title"]
			f.Operators = filter.OperatorSet{filter.OpGt}
			tb.Fields["title"] = f
		}},
		{"unknown type", func(tb *filter.Table) {
			f := tb.Fields["title"]
			f.Type = "uuid"
			tb.Fields["title"] = f
		}},
		{"injected column", func(tb *filter.Table) {
			f := tb.Fields["title"]
			f.Column = "title; drop table pages"
			tb.Fields["title"] = f
		}},
		{"missing primary key", func(tb *filter.Table) { tb.PrimaryKey = "" }},
		{"bad table name", func(tb *filter.Table) { tb.Name = "pages p" }},
		{"default sort not sortable", func(tb *filter.Table) {
			f := tb.Fields["title"]
			f.Sortable = false
			tb.Fields["title"] = f
		}},
		{"no fields", func(tb *filter.Table) { tb.Fields = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := validTable()
			tt.mutate(&tb)

			_, err := filter.NewRegistry(tb)
			assert.ErrorIs(t, err, filter.ErrInvalidSchema)
		})
	}

	t.Run("duplicate table", func(t *testing.T) {
		_, err := filter.NewRegistry(validTable(), validTable())
		assert.ErrorIs(t, err, filter.ErrInvalidSchema)
	})

	t.Run("must panics", func(t *testing.T) {
		tb := validTable()
		tb.Fields = nil
		assert.Panics(t, func() { filter.MustNewRegistry(tb) })
	})
}

func TestRegistry_Lookups(t *testing.T) {
	tb := validTable()
	registry, err := filter.NewRegistry(tb)
	require.NoError(t, err)

	// later edits to the source do not leak into the registry
	tb.Fields["body"] = filter.Field{Column: "body", Type: filter.TypeString, Operators: filter.OperatorSet{filter.OpEquals}}

	fields := registry.AllowedFields("pages")
	assert.Len(t, fields, 1)
	assert.Equal(t, "title", fields["title"].Name)

	delete(fields, "title")
	assert.Len(t, registry.AllowedFields("pages"), 1)

	assert.True(t, registry.HasTable("pages"))
	assert.False(t, registry.HasTable("posts"))
	assert.Equal(t, []string{"pages"}, registry.Tables())
	assert.Equal(t, []string{"title"}, registry.Table("pages").SortableFields())

	assert.Panics(t, func() { registry.AllowedFields("posts") })
}

func TestDefaultRegistry(t *testing.T) {
	registry := filter.DefaultRegistry()

	assert.Equal(t, []string{"collections", "content", "media", "users"}, registry.Tables())
	assert.NotContains(t, registry.Table(filter.TableUsers).Columns, "password_hash")

	status, ok := registry.Table(filter.TableContent).Field("status")
	require.True(t, ok)
	assert.True(t, status.Operators.Has(filter.OpIn))
	assert.False(t, status.Operators.Has(filter.OpContains))

	active, ok := registry.Table(filter.TableUsers).Field("is_active")
	require.True(t, ok)
	assert.Equal(t, filter.OperatorSet{filter.OpEquals}, active.Operators)
}

func TestLoadRegistryFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tables:
  - name: articles
    primaryKey: id
    defaultSort: published
    columns: [id, headline, views, published_at]
    fields:
      headline:
        type: string
        operators: [equals, contains]
      views:
        type: NUMBER
        sortable: true
      published:
        column: published_at
        type: date
        sortable: true
`), 0o600))

	registry, err := filter.LoadRegistryFile(path)
	require.NoError(t, err)

	fields := registry.AllowedFields("articles")
	assert.Equal(t, filter.OperatorSet{filter.OpEquals, filter.OpContains}, fields["headline"].Operators)
	assert.Equal(t, "headline", fields["headline"].Column)
	assert.Equal(t, filter.TypeNumber, fields["views"].Type)
	assert.Equal(t, filter.DefaultOperators(filter.TypeNumber), fields["views"].Operators)
	assert.Equal(t, "published_at", fields["published"].Column)

	q := filter.NewCompiler(registry).Compile("articles", filter.ParseValues(map[string][]string{
		"views[gte]": {"100"},
		"sort":       {"views"},
	}))
	require.True(t, q.Valid(), q.Errors)
	assert.Equal(t,
		"SELECT id, headline, views, published_at FROM articles WHERE views >= ? ORDER BY views DESC, id ASC LIMIT ? OFFSET ?",
		q.SQL)
	assert.Equal(t, []any{int64(100), 50, 0}, q.Params)

	t.Run("explicit empty operators fails", func(t *testing.T) {
		_, err := filter.ParseRegistry([]byte(`
tables:
  - name: t
    primaryKey: id
    defaultSort: id
    fields:
      id: {type: number, sortable: true, operators: []}
`))
		assert.ErrorIs(t, err, filter.ErrInvalidSchema)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := filter.LoadRegistryFile(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}
