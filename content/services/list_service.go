// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	contentErrors "github.com/badmuriss/warpcms-sub000/content/errors"
	"github.com/badmuriss/warpcms-sub000/content/models"
	"github.com/badmuriss/warpcms-sub000/content/repository"
	"github.com/badmuriss/warpcms-sub000/internal/cache"
	"github.com/badmuriss/warpcms-sub000/internal/filter"
	"github.com/badmuriss/warpcms-sub000/internal/pkg/log"
	"github.com/badmuriss/warpcms-sub000/storage/provider"
)

// mediaKeyColumn holds the object key a media url is derived from.
const mediaKeyColumn = "r2_key"

// listService implements the ListService interface
type listService struct {
	compiler   *filter.Compiler
	repo       repository.ListRepository
	cache      *cache.TieredCache
	blobs      provider.BlobProvider
	presignTTL time.Duration
}

// Option configures optional collaborators of the list service.
type Option func(*listService)

// WithCache serves listings through a tiered cache
func WithCache(c *cache.TieredCache) Option {
	return func(s *listService) { s.cache = c }
}

// WithBlobProvider resolves media urls through p
func WithBlobProvider(p provider.BlobProvider, presignTTL time.Duration) Option {
	return func(s *listService) {
		s.blobs = p
		s.presignTTL = presignTTL
	}
}

// NewListService creates a new list service
func NewListService(compiler *filter.Compiler, repo repository.ListRepository, opts ...Option) ListService {
	s := &listService{compiler: compiler, repo: repo, presignTTL: 15 * time.Minute}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// cacheDiscriminator is everything that determines a result set.
type cacheDiscriminator struct {
	Table  string `json:"table"`
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

func (s *listService) List(ctx context.Context, req ListRequest) (*ListResult, error) {
	var opts []filter.Option
	if req.Scope != nil {
		opts = append(opts, filter.WithTrustedWhere(req.Scope))
	}
	q := s.compiler.Compile(req.Table, req.Spec, opts...)
	if !q.Valid() {
		return nil, contentErrors.NewValidationError(q.Errors)
	}

	result := &ListResult{Query: q, Source: cache.SourceDatabase}
	load := func(ctx context.Context) (any, error) {
		return s.repo.List(ctx, q)
	}

	if s.cache == nil || req.Namespace == "" {
		rows, err := s.repo.List(ctx, q)
		if err != nil {
			return nil, err
		}
		result.Rows = rows
		return result, nil
	}

	discriminator, err := cache.HashKey(cacheDiscriminator{Table: q.Table, SQL: q.SQL, Params: q.Params})
	if err != nil {
		return nil, err
	}
	key := s.cache.GenerateKey(req.Namespace, discriminator)

	var rows []models.Row
	source, err := s.cache.GetOrSet(ctx, key, &rows, load)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.Row{}
	}
	result.Rows = rows
	result.Source = source
	log.Debug("list %s served from %s (%d rows)", req.Table, source, len(rows))
	return result, nil
}

func (s *listService) ListMedia(ctx context.Context, spec filter.FilterSpec) (*ListResult, error) {
	result, err := s.List(ctx, ListRequest{Table: filter.TableMedia, Spec: spec, Namespace: NamespaceMedia})
	if err != nil {
		return nil, err
	}
	// urls are attached after caching; presigned ones expire
	if err := s.decorateMedia(ctx, result.Rows); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *listService) decorateMedia(ctx context.Context, rows []models.Row) error {
	if s.blobs == nil {
		return nil
	}
	for _, row := range rows {
		key, _ := row[mediaKeyColumn].(string)
		if key == "" {
			continue
		}
		url, err := s.blobs.DownloadURL(ctx, key, s.presignTTL)
		if err != nil {
			return fmt.Errorf("resolve media url for %s: %w", key, err)
		}
		row["url"] = url
	}
	return nil
}

// ValidateCollectionID trims id and rejects ids that would not map to exactly
// one cache namespace: empty ones, and ones holding ':' or glob characters.
func ValidateCollectionID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: collectionId", contentErrors.ErrMissingParameter)
	}
	if strings.ContainsAny(id, "*?[]:\\") {
		return "", fmt.Errorf("%w: collectionId %q", contentErrors.ErrInvalidParameter, id)
	}
	return id, nil
}

func (s *listService) InvalidateCollection(ctx context.Context, collectionID string) ([]string, error) {
	collectionID, err := ValidateCollectionID(collectionID)
	if err != nil {
		return nil, err
	}
	if s.cache == nil {
		return []string{}, nil
	}

	// unscoped listings can hold the collection's rows too
	patterns := []string{
		s.cache.GenerateKey(CollectionNamespace(collectionID), "*"),
		s.cache.GenerateKey(NamespaceContentAll, "*"),
	}
	for _, pattern := range patterns {
		if err := s.cache.Invalidate(ctx, pattern); err != nil {
			log.ErrorWithContext(ctx, "invalidate %s: %v", pattern, err)
			return nil, fmt.Errorf("invalidate %s: %w", pattern, err)
		}
	}
	return patterns, nil
}
