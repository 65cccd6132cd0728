// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"time"

	"github.com/badmuriss/warpcms-sub000/internal/filter"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// ListResponse is the body of every successful list endpoint.
type ListResponse struct {
	Data []Row    `json:"data"`
	Meta ListMeta `json:"meta"`
}

// ListMeta describes how a listing was produced.
type ListMeta struct {
	Count     int               `json:"count"`
	Timestamp time.Time         `json:"timestamp"`
	Filter    filter.FilterSpec `json:"filter"`
	Query     *QueryMeta        `json:"query,omitempty"`
	Cache     CacheMeta         `json:"cache"`
}

// QueryMeta echoes the executed statement.
type QueryMeta struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// CacheMeta reports whether the rows came from a cache tier.
type CacheMeta struct {
	Hit    bool   `json:"hit"`
	Source string `json:"source"`
}

// HealthResponse is returned by the liveness check.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// InvalidateResponse reports a cache invalidation.
type InvalidateResponse struct {
	CollectionID string   `json:"collectionId"`
	Patterns     []string `json:"patterns"`
}
