// Package minio provides an ObjectStore for S3-compatible services through minio-go.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

// Config captures the parameters required to reach an S3-compatible endpoint.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// Region skips bucket-location lookups when set.
	Region string
}

// BlobStore writes objects through a minio client. The bucket is chosen per call.
type BlobStore struct {
	client *miniogo.Client
}

// New creates a minio-backed blob store.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &BlobStore{client: client}, nil
}

// PutObject uploads data and returns an s3:// URI.
func (s *BlobStore) PutObject(
	ctx context.Context,
	bucket, key, contentType string,
	data []byte,
	metadata map[string]string,
) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: object key is required", workflow.ErrStorageRejected)
	}
	_, err := s.client.PutObject(
		ctx,
		bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		miniogo.PutObjectOptions{
			ContentType:  contentType,
			UserMetadata: metadata,
		},
	)
	if err != nil {
		if miniogo.ToErrorResponse(err).Code == "NoSuchBucket" {
			return "", fmt.Errorf("%w: %s: %w", workflow.ErrBucketNotFound, bucket, err)
		}
		return "", fmt.Errorf("%w: put %s/%s: %w", workflow.ErrStorageRejected, bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}
