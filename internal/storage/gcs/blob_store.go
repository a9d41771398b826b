// Package gcs provides an ObjectStore backed by Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	// Endpoint overrides the JSON API endpoint, e.g. for an emulator.
	Endpoint string
}

// BlobStore writes objects to GCS. The bucket is chosen per call.
type BlobStore struct {
	client *storage.Client
}

// Open builds a client from Application Default Credentials, or anonymously against
// cfg.Endpoint when one is set.
func Open(ctx context.Context, cfg Config) (*BlobStore, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return New(client)
}

// New creates a GCS-backed blob store.
func New(client *storage.Client) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	return &BlobStore{client: client}, nil
}

// Close releases the underlying client.
func (s *BlobStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}

// PutObject uploads data and returns a gs:// URI.
func (s *BlobStore) PutObject(
	ctx context.Context,
	bucket, key, contentType string,
	data []byte,
	metadata map[string]string,
) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: object key is required", workflow.ErrStorageRejected)
	}
	writer := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	writer.Metadata = metadata
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", classify(bucket, fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr))
		}
		return "", classify(bucket, fmt.Errorf("copy object: %w", err))
	}
	if err := writer.Close(); err != nil {
		return "", classify(bucket, fmt.Errorf("close writer: %w", err))
	}
	return fmt.Sprintf("gs://%s/%s", bucket, key), nil
}

// classify maps a GCS failure onto the storage taxonomy. A 404 on object creation can only
// mean the bucket is gone.
func classify(bucket string, err error) error {
	var apiErr *googleapi.Error
	if errors.Is(err, storage.ErrBucketNotExist) ||
		(errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound) {
		return fmt.Errorf("%w: %s: %w", workflow.ErrBucketNotFound, bucket, err)
	}
	return fmt.Errorf("%w: %w", workflow.ErrStorageRejected, err)
}
