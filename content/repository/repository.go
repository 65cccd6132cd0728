// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/badmuriss/warpcms-sub000/content/models"
	"github.com/badmuriss/warpcms-sub000/internal/database/postgres"
	"github.com/badmuriss/warpcms-sub000/internal/filter"
)

// ErrInvalidQuery is returned when asked to run a query that failed to compile.
var ErrInvalidQuery = errors.New("refusing to execute an invalid query")

// ListRepository executes compiled list queries.
type ListRepository interface {
	List(ctx context.Context, q filter.CompiledQuery) ([]models.Row, error)
}

// postgresRepository runs compiled queries through a postgres.Executor
type postgresRepository struct {
	exec postgres.Executor
}

// NewPostgresRepository creates a ListRepository over exec
func NewPostgresRepository(exec postgres.Executor) ListRepository {
	return &postgresRepository{exec: exec}
}

func (r *postgresRepository) List(ctx context.Context, q filter.CompiledQuery) ([]models.Row, error) {
	if !q.Valid() {
		return nil, ErrInvalidQuery
	}
	rows, err := r.exec.QueryRows(ctx, q.SQL, q.Params)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", q.Table, err)
	}
	return rows, nil
}
