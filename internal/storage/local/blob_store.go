// Package local implements an ObjectStore on the local filesystem. Each bucket is a
// directory directly under the base directory.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

// Config captures the parameters for the local filesystem blob store.
type Config struct {
	// BaseDir is the root directory holding one subdirectory per bucket.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// BlobStore writes objects to the local filesystem.
type BlobStore struct {
	baseDir string
}

// New creates a new local filesystem-backed blob store.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	return &BlobStore{
		baseDir: filepath.Clean(cfg.BaseDir),
	}, nil
}

// PutObject writes data to <base>/<bucket>/<key> and returns a file:// URI. Metadata is
// written next to the object as <key>.meta.json.
func (s *BlobStore) PutObject(
	_ context.Context,
	bucket, key, _ string,
	data []byte,
	metadata map[string]string,
) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: object key is required", workflow.ErrStorageRejected)
	}
	bucketDir := filepath.Join(s.baseDir, bucket)
	if !within(s.baseDir, bucketDir) {
		return "", fmt.Errorf("%w: bucket %q escapes base directory", workflow.ErrStorageRejected, bucket)
	}
	if info, err := os.Stat(bucketDir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", workflow.ErrBucketNotFound, bucket)
	}

	fullPath := filepath.Join(bucketDir, key)
	if !within(bucketDir, fullPath) {
		return "", fmt.Errorf("%w: path traversal detected in %q", workflow.ErrStorageRejected, key)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("%w: create parent directories: %w", workflow.ErrStorageRejected, err)
	}
	if err := os.WriteFile(fullPath, data, 0o600); err != nil {
		return "", fmt.Errorf("%w: write file: %w", workflow.ErrStorageRejected, err)
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return "", fmt.Errorf("%w: encode metadata: %w", workflow.ErrStorageRejected, err)
		}
		if err := os.WriteFile(fullPath+".meta.json", raw, 0o600); err != nil {
			return "", fmt.Errorf("%w: write metadata: %w", workflow.ErrStorageRejected, err)
		}
	}

	return fmt.Sprintf("file://%s", fullPath), nil
}

func within(root, path string) bool {
	return strings.HasPrefix(filepath.Clean(path), root+string(filepath.Separator))
}
