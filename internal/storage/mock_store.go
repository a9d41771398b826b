package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockObjectStore is a mock implementation of ObjectStore for testing.
type MockObjectStore struct {
	mock.Mock
}

// PutObject is the mock implementation of the PutObject method.
func (m *MockObjectStore) PutObject(
	ctx context.Context,
	bucket, key, contentType string,
	data []byte,
	metadata map[string]string,
) (string, error) {
	args := m.Called(ctx, bucket, key, contentType, data, metadata)
	return args.String(0), args.Error(1) //nolint:wrapcheck
}
