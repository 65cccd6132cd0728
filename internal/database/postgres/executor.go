// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Executor runs a compiled read query. sql uses ? placeholders and params
// are positional.
type Executor interface {
	QueryRows(ctx context.Context, sql string, params []any) ([]map[string]any, error)
}

var (
	ErrQueryTimeout    = errors.New("query timed out")
	ErrUndefinedObject = errors.New("query references an undefined table or column")
	ErrInvalidValue    = errors.New("query parameter rejected by database")
	ErrQueryFailed     = errors.New("query failed")
)

var _ Executor = (*Client)(nil)

// QueryRows rebinds ? to $n, runs the query and returns each row as a
// column to value map. []byte values come back as strings.
func (c *Client) QueryRows(ctx context.Context, sql string, params []any) ([]map[string]any, error) {
	if c.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	rows, err := c.db.QueryxContext(ctx, c.db.Rebind(sql), params...)
	if err != nil {
		return nil, classifyError(ctx, err)
	}
	defer rows.Close()

	out := make([]map[string]any, 0)
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, classifyError(ctx, err)
		}
		out = append(out, normalizeRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(ctx, err)
	}
	return out, nil
}

// normalizeRow converts driver values into JSON friendly ones.
func normalizeRow(row map[string]any) map[string]any {
	for column, value := range row {
		switch v := value.(type) {
		case []byte:
			row[column] = string(v)
		case time.Time:
			row[column] = v.UTC()
		}
	}
	return row
}

// classifyError maps driver failures onto the package sentinels.
func classifyError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrQueryTimeout, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "57014":
			return fmt.Errorf("%w: %s", ErrQueryTimeout, pqErr.Message)
		case "42P01", "42703":
			return fmt.Errorf("%w: %s", ErrUndefinedObject, pqErr.Message)
		}
		if pqErr.Code.Class() == "22" {
			return fmt.Errorf("%w: %s", ErrInvalidValue, pqErr.Message)
		}
		return fmt.Errorf("%w: %s (%s)", ErrQueryFailed, pqErr.Message, pqErr.Code.Name())
	}
	return fmt.Errorf("%w: %v", ErrQueryFailed, err)
}
