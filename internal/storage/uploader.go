// Package storage uploads downloaded files to an object-storage bucket. Backends live in
// the gcs, minio, local and memory subpackages.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

// DefaultContentType is used when none is configured.
const DefaultContentType = "text/csv"

// DigestMetadataKey names the object metadata entry holding the hex SHA-256 of the payload.
const DigestMetadataKey = "sha256"

// ObjectStore writes a single object and returns its URI. Implementations report a missing
// bucket with workflow.ErrBucketNotFound.
type ObjectStore interface {
	PutObject(
		ctx context.Context,
		bucket, key, contentType string,
		data []byte,
		metadata map[string]string,
	) (string, error)
}

// Uploader implements workflow.Uploader.
type Uploader struct {
	store       ObjectStore
	contentType string
	logger      *zap.Logger
}

// NewUploader wraps store.
func NewUploader(store ObjectStore, contentType string, logger *zap.Logger) *Uploader {
	if contentType == "" {
		contentType = DefaultContentType
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{store: store, contentType: contentType, logger: logger}
}

// Upload writes data under key. A blank bucket fails before the backend is contacted.
func (u *Uploader) Upload(ctx context.Context, data []byte, key workflow.StorageKey) (workflow.UploadResult, error) {
	if strings.TrimSpace(key.Bucket) == "" {
		return workflow.UploadResult{}, fmt.Errorf("%w: upload %s", workflow.ErrMissingBucket, key.Key)
	}
	if strings.TrimSpace(key.Key) == "" {
		return workflow.UploadResult{}, fmt.Errorf("%w: object key is empty", workflow.ErrStorageRejected)
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	uri, err := u.store.PutObject(ctx, key.Bucket, key.Key, u.contentType, data,
		map[string]string{DigestMetadataKey: digest})
	if err != nil {
		if errors.Is(err, workflow.ErrStorage) {
			return workflow.UploadResult{}, fmt.Errorf("upload %s/%s: %w", key.Bucket, key.Key, err)
		}
		return workflow.UploadResult{}, fmt.Errorf("%w: upload %s/%s: %w",
			workflow.ErrStorageRejected, key.Bucket, key.Key, err)
	}
	u.logger.Debug("object stored",
		zap.String("uri", uri),
		zap.Int("bytes", len(data)),
		zap.String("content_type", u.contentType),
	)
	// ObjectStore reports success or an error only; every backend's success is a 200 on the wire.
	return workflow.UploadResult{
		StatusCode: http.StatusOK,
		URI:        uri,
		Digest:     digest,
	}, nil
}
