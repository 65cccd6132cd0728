// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"context"
	"net/url"
	"testing"
	"time"

	platformconfig "github.com/badmuriss/warpcms-sub000/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(&platformconfig.StorageConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	p, err := NewProvider(&platformconfig.StorageConfig{PublicURL: "https://cdn.example.com/"})
	require.NoError(t, err)
	assert.IsType(t, &publicProvider{}, p)

	_, err = NewProvider(&platformconfig.StorageConfig{AccessKeyID: "id", SecretAccessKey: "secret"})
	assert.EqualError(t, err, "R2_BUCKET_NAME is required")
}

func TestPublicProvider(t *testing.T) {
	p := NewPublicProvider("https://cdn.example.com/")

	got, err := p.DownloadURL(context.Background(), "/uploads/2024/cat.png", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/uploads/2024/cat.png", got)
}

func TestR2Provider(t *testing.T) {
	cfg := &platformconfig.StorageConfig{
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		BucketName:      "media",
		AccountID:       "acct",
	}

	t.Run("presigned when no CDN", func(t *testing.T) {
		p, err := NewR2Provider(cfg)
		require.NoError(t, err)

		raw, err := p.DownloadURL(context.Background(), "uploads/cat.png", 15*time.Minute)
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "acct.r2.cloudflarestorage.com", u.Host)
		assert.Equal(t, "/media/uploads/cat.png", u.Path)
		assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
		assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	})

	t.Run("CDN shortcut", func(t *testing.T) {
		withCDN := *cfg
		withCDN.PublicURL = "https://media.example.com"
		p, err := NewR2Provider(&withCDN)
		require.NoError(t, err)

		got, err := p.DownloadURL(context.Background(), "uploads/cat.png", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "https://media.example.com/uploads/cat.png", got)
	})

	t.Run("missing endpoint", func(t *testing.T) {
		noEndpoint := *cfg
		noEndpoint.AccountID = ""
		_, err := NewR2Provider(&noEndpoint)
		assert.EqualError(t, err, "R2_ENDPOINT or R2_ACCOUNT_ID is required")
	})
}
