package storage

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

const helloDigest = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func TestUploader_Upload(t *testing.T) {
	t.Parallel()

	store := new(MockObjectStore)
	store.On("PutObject", mock.Anything, "exports", "report2024.csv", "text/csv", []byte("hello"),
		map[string]string{DigestMetadataKey: helloDigest}).
		Return("memory://exports/report2024.csv", nil).Once()

	result, err := NewUploader(store, "", nil).Upload(context.Background(), []byte("hello"),
		workflow.StorageKey{Bucket: "exports", Key: "report2024.csv"})

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, result.StatusCode)
	require.Equal(t, "memory://exports/report2024.csv", result.URI)
	require.Equal(t, helloDigest, result.Digest)
	store.AssertExpectations(t)
}

func TestUploader_MissingBucket(t *testing.T) {
	t.Parallel()

	for _, bucket := range []string{"", "   "} {
		store := new(MockObjectStore)
		_, err := NewUploader(store, "", nil).Upload(context.Background(), []byte("x"),
			workflow.StorageKey{Bucket: bucket, Key: "k.csv"})

		require.ErrorIs(t, err, workflow.ErrMissingBucket)
		store.AssertNotCalled(t, "PutObject",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestUploader_BackendErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "bucket not found", err: workflow.ErrBucketNotFound, want: workflow.ErrBucketNotFound},
		{name: "untyped failure", err: errors.New("connection reset"), want: workflow.ErrStorageRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := new(MockObjectStore)
			store.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return("", tt.err)

			_, err := NewUploader(store, "text/csv", nil).Upload(context.Background(), []byte("x"),
				workflow.StorageKey{Bucket: "b", Key: "k.csv"})

			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, workflow.ErrStorage)
		})
	}
}
