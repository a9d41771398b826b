// Package memory stores objects in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

// Object is a stored payload plus the metadata it was written with.
type Object struct {
	ContentType string
	Data        []byte
	Metadata    map[string]string
}

// BlobStore keeps objects per bucket. Writing to a bucket that was never created fails the
// same way a real backend does.
type BlobStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string]Object
}

// NewBlobStore creates a store with the given buckets.
func NewBlobStore(buckets ...string) *BlobStore {
	s := &BlobStore{buckets: make(map[string]map[string]Object, len(buckets))}
	for _, b := range buckets {
		s.CreateBucket(b)
	}
	return s
}

// CreateBucket adds an empty bucket. Existing buckets are left alone.
func (s *BlobStore) CreateBucket(bucket string) {
	if bucket == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; !ok {
		s.buckets[bucket] = make(map[string]Object)
	}
}

// PutObject persists a copy of data and returns a memory:// URI.
func (s *BlobStore) PutObject(
	_ context.Context,
	bucket, key, contentType string,
	data []byte,
	metadata map[string]string,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	objects, ok := s.buckets[bucket]
	if !ok {
		return "", fmt.Errorf("%w: %s", workflow.ErrBucketNotFound, bucket)
	}
	objects[key] = Object{
		ContentType: contentType,
		Data:        append([]byte(nil), data...),
		Metadata:    maps.Clone(metadata),
	}
	return fmt.Sprintf("memory://%s/%s", bucket, key), nil
}

// Get returns a stored object.
func (s *BlobStore) Get(bucket, key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.buckets[bucket][key]
	return obj, ok
}

// Len returns the number of objects in bucket.
func (s *BlobStore) Len(bucket string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets[bucket])
}
