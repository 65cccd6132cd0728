// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured is returned by NewProvider when no bucket or CDN is set.
var ErrNotConfigured = errors.New("blob storage is not configured")

// BlobProvider resolves stored object keys into URLs clients can fetch.
// It is provider-agnostic: Cloudflare R2, AWS S3 or a plain CDN.
type BlobProvider interface {
	// DownloadURL returns a URL for viewing the object. Private buckets get
	// a presigned GET valid for expiresIn; public ones a CDN URL.
	DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)
}
