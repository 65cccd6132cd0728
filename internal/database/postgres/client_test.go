// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/badmuriss/warpcms-sub000/internal/platform/config"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localConfig() *config.PostgreSQLConfig {
	return &config.PostgreSQLConfig{
		Host:            "localhost",
		Port:            5432,
		Username:        "postgres",
		Password:        "postgres",
		Database:        "warpcms_test",
		DSN:             os.Getenv("POSTGRES_DSN"),
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 300 * time.Second,
		QueryTimeout:    5 * time.Second,
	}
}

func TestBuildConnectionString(t *testing.T) {
	cfg := &config.PostgreSQLConfig{
		Host:     "db",
		Port:     5433,
		Username: "cms",
		Password: "secret",
		Database: "warpcms",
	}
	assert.Equal(t, "host=db port=5433 dbname=warpcms user=cms password=secret sslmode=disable", buildConnectionString(cfg))

	cfg.DSN = "postgres://cms@db/warpcms"
	assert.Equal(t, "postgres://cms@db/warpcms", buildConnectionString(cfg))
}

func TestNormalizeRow(t *testing.T) {
	local := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	row := normalizeRow(map[string]any{
		"data":       []byte(`{"a":1}`),
		"created_at": local,
		"count":      int64(3),
		"nothing":    nil,
	})

	assert.Equal(t, `{"a":1}`, row["data"])
	assert.Equal(t, time.UTC, row["created_at"].(time.Time).Location())
	assert.True(t, local.Equal(row["created_at"].(time.Time)))
	assert.Equal(t, int64(3), row["count"])
	assert.Nil(t, row["nothing"])
}

func TestClassifyError(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"undefined column", &pq.Error{Code: "42703", Message: `column "x" does not exist`}, ErrUndefinedObject},
		{"undefined table", &pq.Error{Code: "42P01", Message: `relation "x" does not exist`}, ErrUndefinedObject},
		{"bad date", &pq.Error{Code: "22007", Message: "invalid input syntax for type timestamp"}, ErrInvalidValue},
		{"canceled", &pq.Error{Code: "57014", Message: "canceling statement due to statement timeout"}, ErrQueryTimeout},
		{"other pq", &pq.Error{Code: "53300", Message: "too many connections"}, ErrQueryFailed},
		{"deadline", context.DeadlineExceeded, ErrQueryTimeout},
		{"plain", errors.New("broken pipe"), ErrQueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyError(ctx, tt.err), tt.want)
		})
	}
}

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	client, err := NewClient(ctx, localConfig())
	if err != nil {
		t.Skipf("Skipping test: PostgreSQL not available: %v", err)
		return
	}
	defer client.Close()

	require.NoError(t, client.HealthCheck(ctx))

	rows, err := client.QueryRows(ctx, "SELECT ? AS label, ?::int AS n", []any{"x", 2})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "x", rows[0]["label"])
	assert.Equal(t, int64(2), rows[0]["n"])
}
