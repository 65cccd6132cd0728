// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"

	"github.com/badmuriss/warpcms-sub000/content/models"
	"github.com/badmuriss/warpcms-sub000/internal/cache"
	"github.com/badmuriss/warpcms-sub000/internal/filter"
)

// Cache namespaces. Collection listings live under
// NamespaceContentList + ":" + collectionID.
const (
	NamespaceContentList = "content:list"
	NamespaceContentAll  = NamespaceContentList + ":all"
	NamespaceReferences  = "references"
	NamespaceMedia       = "media:list"
)

// ListRequest describes one listing.
type ListRequest struct {
	Table string
	Spec  filter.FilterSpec
	// Scope is ANDed in front of the caller's filter and never comes from input.
	Scope     filter.Node
	Namespace string
}

// ListResult is a listing plus how it was produced.
type ListResult struct {
	Rows   []models.Row
	Query  filter.CompiledQuery
	Source cache.Source
}

// Hit reports whether the rows came from a cache tier.
func (r *ListResult) Hit() bool {
	return r.Source == cache.SourceMemory || r.Source == cache.SourceKV
}

// ListService defines the listing operations behind the HTTP surface
type ListService interface {
	List(ctx context.Context, req ListRequest) (*ListResult, error)
	// ListMedia lists media rows and attaches a fetchable url to each.
	ListMedia(ctx context.Context, spec filter.FilterSpec) (*ListResult, error)
	// InvalidateCollection drops cached listings that may contain the
	// collection's content and returns the patterns removed.
	InvalidateCollection(ctx context.Context, collectionID string) ([]string, error)
}

// CollectionNamespace is the cache namespace of one collection's listings.
func CollectionNamespace(collectionID string) string {
	return NamespaceContentList + ":" + collectionID
}
