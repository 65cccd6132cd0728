// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/badmuriss/warpcms-sub000/internal/platform/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Client wraps sqlx.DB and provides connection pooling, health checks and
// read-only query execution
type Client struct {
	db           *sqlx.DB
	queryTimeout time.Duration
}

// NewClient creates a new PostgreSQL client wrapper. cfg.DSN wins over the
// discrete host/port fields when set.
func NewClient(ctx context.Context, cfg *config.PostgreSQLConfig) (*Client, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &Client{db: db, queryTimeout: cfg.QueryTimeout}, nil
}

// NewClientFromDB wraps an already opened handle. A zero queryTimeout
// leaves deadlines to the caller's context.
func NewClientFromDB(db *sqlx.DB, queryTimeout time.Duration) *Client {
	return &Client{db: db, queryTimeout: queryTimeout}
}

// buildConnectionString builds PostgreSQL connection string from config
func buildConnectionString(cfg *config.PostgreSQLConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("host=%s", cfg.Host))
	parts = append(parts, fmt.Sprintf("port=%d", cfg.Port))
	parts = append(parts, fmt.Sprintf("dbname=%s", cfg.Database))

	if cfg.Username != "" {
		parts = append(parts, fmt.Sprintf("user=%s", cfg.Username))
	}
	if cfg.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", cfg.Password))
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	parts = append(parts, fmt.Sprintf("sslmode=%s", sslMode))

	return strings.Join(parts, " ")
}

// DB returns the underlying *sqlx.DB connection
func (c *Client) DB() *sqlx.DB {
	return c.db
}

// Ping tests the database connection
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// BeginTxx starts a new transaction with the given context
func (c *Client) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return c.db.BeginTxx(ctx, opts)
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// HealthCheck performs a health check on the database connection
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Ping(ctx)
}
