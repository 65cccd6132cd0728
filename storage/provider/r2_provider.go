// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	platformconfig "github.com/badmuriss/warpcms-sub000/internal/platform/config"
)

// NewProvider picks the provider the configuration supports: R2 when
// credentials are present, otherwise the public CDN alone.
func NewProvider(cfg *platformconfig.StorageConfig) (BlobProvider, error) {
	switch {
	case cfg.AccessKeyID != "" && cfg.SecretAccessKey != "":
		return NewR2Provider(cfg)
	case cfg.PublicURL != "":
		return NewPublicProvider(cfg.PublicURL), nil
	default:
		return nil, ErrNotConfigured
	}
}

// r2Provider implements BlobProvider for Cloudflare R2 using AWS S3 SDK
type r2Provider struct {
	presign   *s3.PresignClient
	bucket    string
	publicURL string
}

// NewR2Provider creates a new R2 provider from configuration
func NewR2Provider(cfg *platformconfig.StorageConfig) (BlobProvider, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("R2_ACCESS_KEY_ID and R2_SECRET_ACCESS_KEY are required")
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("R2_BUCKET_NAME is required")
	}

	// Format: https://<account-id>.r2.cloudflarestorage.com
	endpoint := cfg.Endpoint
	if endpoint == "" && cfg.AccountID != "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}
	if endpoint == "" {
		return nil, fmt.Errorf("R2_ENDPOINT or R2_ACCOUNT_ID is required")
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true // R2 requires path-style addressing
	})

	return &r2Provider{
		presign:   s3.NewPresignClient(s3Client),
		bucket:    cfg.BucketName,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

// DownloadURL returns the CDN URL when one is configured, otherwise a
// presigned GET.
func (r *r2Provider) DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	if r.publicURL != "" {
		return joinURL(r.publicURL, key), nil
	}

	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiresIn
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned download URL: %w", err)
	}
	return req.URL, nil
}

// publicProvider serves every object from a public CDN base URL
type publicProvider struct {
	baseURL string
}

// NewPublicProvider creates a provider for a public bucket behind baseURL
func NewPublicProvider(baseURL string) BlobProvider {
	return &publicProvider{baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (p *publicProvider) DownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return joinURL(p.baseURL, key), nil
}

func joinURL(base, key string) string {
	return base + "/" + strings.TrimPrefix(key, "/")
}
