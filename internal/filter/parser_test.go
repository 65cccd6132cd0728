// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter_test

import (
	"encoding/json"
	"math"
	"net/url"
	"testing"

	"github.com/badmuriss/warpcms-sub000/internal/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValues_RoundTrip(t *testing.T) {
	spec := filter.ParseValues(map[string][]string{
		"status": {"published"},
		"limit":  {"10"},
	})

	want := filter.FilterSpec{
		Where:   filter.AllOf(filter.NewLeaf("status", filter.OpEquals, "published")),
		Limit:   10,
		Offset:  0,
		SortDir: filter.Desc,
	}
	assert.Equal(t, want, spec)
}

func TestParseValues(t *testing.T) {
	t.Run("operator syntax", func(t *testing.T) {
		values, err := url.ParseQuery("title[contains]=news&size[between]=1,10&status[in]=draft,review&created_at[GTE]=2024-01-01")
		require.NoError(t, err)

		spec := filter.ParseValues(values)

		assert.Equal(t, filter.AllOf(
			filter.NewLeaf("created_at", filter.OpGte, "2024-01-01"),
			filter.NewLeaf("size", filter.OpBetween, []string{"1", "10"}),
			filter.NewLeaf("status", filter.OpIn, []string{"draft", "review"}),
			filter.NewLeaf("title", filter.OpContains, "news"),
		), spec.Where)
	})

	t.Run("repeated key yields one leaf per value", func(t *testing.T) {
		spec := filter.ParseValues(url.Values{"tag": {"a", "b"}})

		assert.Equal(t, filter.AllOf(
			filter.NewLeaf("tag", filter.OpEquals, "a"),
			filter.NewLeaf("tag", filter.OpEquals, "b"),
		), spec.Where)
	})

	t.Run("non matching keys ignored", func(t *testing.T) {
		spec := filter.ParseValues(url.Values{
			"a[b][c]": {"1"},
			"9lives":  {"1"},
			"x-y":     {"1"},
		})

		assert.Nil(t, spec.Where)
	})

	t.Run("unknown operator kept for the compiler", func(t *testing.T) {
		spec := filter.ParseValues(url.Values{"status[like]": {"x"}})

		assert.Equal(t, filter.AllOf(filter.NewLeaf("status", filter.Operator("like"), "x")), spec.Where)
	})

	t.Run("no filters means no tree", func(t *testing.T) {
		spec := filter.ParseValues(url.Values{})

		assert.Nil(t, spec.Where)
		assert.Equal(t, filter.DefaultLimit, spec.Limit)
		assert.Equal(t, 0, spec.Offset)
		assert.Equal(t, "", spec.SortBy)
		assert.Equal(t, filter.Desc, spec.SortDir)
	})

	t.Run("pagination and sort", func(t *testing.T) {
		spec := filter.ParseValues(url.Values{
			"limit":  {"5000"},
			"offset": {"-3"},
			"sort":   {"title"},
			"order":  {"ASC"},
		})

		assert.Equal(t, 5000, spec.Limit)
		assert.Equal(t, -3, spec.Offset)
		assert.Equal(t, "title", spec.SortBy)
		assert.Equal(t, filter.Asc, spec.SortDir)
		assert.Nil(t, spec.Where)
	})

	t.Run("non numeric pagination falls back", func(t *testing.T) {
		spec := filter.ParseValues(url.Values{"limit": {"ten"}, "offset": {"x"}})

		assert.Equal(t, filter.DefaultLimit, spec.Limit)
		assert.Equal(t, 0, spec.Offset)
	})

	t.Run("overflowing numbers saturate", func(t *testing.T) {
		spec := filter.ParseValues(url.Values{
			"limit":  {"99999999999999999999"},
			"offset": {"-99999999999999999999"},
		})

		assert.Equal(t, math.MaxInt, spec.Limit)
		assert.Equal(t, math.MinInt, spec.Offset)
	})

	t.Run("default limit option", func(t *testing.T) {
		assert.Equal(t, 20, filter.ParseValues(url.Values{}, filter.WithDefaultLimit(20)).Limit)
		assert.Equal(t, 20, filter.ParseValues(url.Values{"limit": {"ten"}}, filter.WithDefaultLimit(20)).Limit)
		assert.Equal(t, 5, filter.ParseValues(url.Values{"limit": {"5"}}, filter.WithDefaultLimit(20)).Limit)
		assert.Equal(t, filter.DefaultLimit, filter.ParseValues(url.Values{}, filter.WithDefaultLimit(0)).Limit)
	})
}

func TestParseBody(t *testing.T) {
	t.Run("nested groups", func(t *testing.T) {
		body := `{
			"where": {"and": [
				{"or": [
					{"field": "status", "operator": "equals", "value": "draft"},
					{"field": "status", "value": "review"}
				]},
				{"field": "collection_id", "operator": "equals", "value": "x"}
			]},
			"limit": 20,
			"offset": "40",
			"sortBy": "title",
			"sortDir": "asc"
		}`

		spec, err := filter.ParseBody([]byte(body))
		require.NoError(t, err)

		assert.Equal(t, filter.AllOf(
			filter.AnyOf(
				filter.NewLeaf("status", filter.OpEquals, "draft"),
				filter.NewLeaf("status", filter.OpEquals, "review"),
			),
			filter.NewLeaf("collection_id", filter.OpEquals, "x"),
		), spec.Where)
		assert.Equal(t, 20, spec.Limit)
		assert.Equal(t, 40, spec.Offset)
		assert.Equal(t, "title", spec.SortBy)
		assert.Equal(t, filter.Asc, spec.SortDir)
	})

	t.Run("group without combinator is and", func(t *testing.T) {
		spec, err := filter.ParseBody([]byte(`{"where": {"children": [{"field": "status", "value": "x"}]}}`))
		require.NoError(t, err)

		assert.Equal(t, filter.AllOf(filter.NewLeaf("status", filter.OpEquals, "x")), spec.Where)
	})

	t.Run("numbers stay exact", func(t *testing.T) {
		spec, err := filter.ParseBody([]byte(`{"where": {"field": "size", "operator": "in", "value": [1, 2.5]}}`))
		require.NoError(t, err)

		assert.Equal(t, filter.NewLeaf("size", filter.OpIn, []any{json.Number("1"), json.Number("2.5")}), spec.Where)

		q := newCompiler().Compile("media", spec)
		require.True(t, q.Valid(), q.Errors)
		assert.Equal(t, []any{int64(1), 2.5, 50, 0}, q.Params)
	})

	t.Run("overflowing limit saturates", func(t *testing.T) {
		for body, want := range map[string]int{
			`{"limit": 1e20}`:                  math.MaxInt,
			`{"limit": 99999999999999999999}`:  math.MaxInt,
			`{"limit": -99999999999999999999}`: math.MinInt,
			`{"limit": 1e400}`:                 math.MaxInt,
		} {
			spec, err := filter.ParseBody([]byte(body))
			require.NoError(t, err, body)
			assert.Equal(t, want, spec.Limit, body)
		}
	})

	t.Run("default limit option", func(t *testing.T) {
		for body, want := range map[string]int{
			``:                     25,
			`{}`:                   25,
			`{"limit": null}`:      25,
			`{"limit": "ten"}`:     25,
			`{"limit": 7}`:         7,
			`{"where": [], "x":1}`: 25,
		} {
			spec, err := filter.ParseBody([]byte(body), filter.WithDefaultLimit(25))
			require.NoError(t, err, body)
			assert.Equal(t, want, spec.Limit, body)
		}
	})

	t.Run("non string operator is kept and rejected", func(t *testing.T) {
		spec, err := filter.ParseBody([]byte(`{"where": {"field": "status", "operator": 5, "value": "x"}}`))
		require.NoError(t, err)
		assert.Equal(t, filter.NewLeaf("status", filter.Operator("5"), "x"), spec.Where)

		q := newCompiler().Compile("content", spec)
		require.Len(t, q.Problems, 1)
		assert.Equal(t, filter.DisallowedOperator, q.Problems[0].Kind)
		assert.NotContains(t, q.SQL, "status =")
	})

	t.Run("missing or null operator means equals", func(t *testing.T) {
		spec, err := filter.ParseBody([]byte(`{"where": {"field": "status", "operator": null, "value": "x"}}`))
		require.NoError(t, err)
		assert.Equal(t, filter.NewLeaf("status", filter.OpEquals, "x"), spec.Where)
	})

	t.Run("empty body gives defaults", func(t *testing.T) {
		spec, err := filter.ParseBody(nil)
		require.NoError(t, err)
		assert.Equal(t, filter.NewFilterSpec(), spec)
	})

	t.Run("malformed input", func(t *testing.T) {
		for _, body := range []string{
			`{"where": `,
			`{"where": 42}`,
			`{"where": {"and": {}}}`,
			`{"where": {"and": [], "or": []}}`,
			`{"where": {"something": true}}`,
		} {
			_, err := filter.ParseBody([]byte(body))
			assert.ErrorIs(t, err, filter.ErrMalformedBody, body)
		}
	})

	t.Run("marshal round trip", func(t *testing.T) {
		spec := filter.NewFilterSpec()
		spec.Where = filter.AllOf(
			filter.AnyOf(
				filter.NewLeaf("status", filter.OpEquals, "draft"),
				filter.NewLeaf("status", filter.OpEquals, "review"),
			),
			filter.NewLeaf("title", filter.OpContains, "go"),
		)
		spec.SortBy = "title"

		data, err := json.Marshal(spec)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"where": {"and": [
				{"or": [
					{"field": "status", "operator": "equals", "value": "draft"},
					{"field": "status", "operator": "equals", "value": "review"}
				]},
				{"field": "title", "operator": "contains", "value": "go"}
			]},
			"limit": 50, "offset": 0, "sortBy": "title", "sortDir": "desc"
		}`, string(data))

		parsed, err := filter.ParseBody(data)
		require.NoError(t, err)
		assert.Equal(t, spec, parsed)
	})
}
