package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore("exports")
	payload := []byte("content")
	meta := map[string]string{"sha256": "abc"}
	uri, err := store.PutObject(context.Background(), "exports", "path/report.csv", "text/csv", payload, meta)
	require.NoError(t, err)
	require.Equal(t, "memory://exports/path/report.csv", uri)

	payload[0] = 'C'
	meta["sha256"] = "changed"
	obj, ok := store.Get("exports", "path/report.csv")
	require.True(t, ok)
	require.Equal(t, "content", string(obj.Data))
	require.Equal(t, "abc", obj.Metadata["sha256"])
	require.Equal(t, "text/csv", obj.ContentType)
	require.Equal(t, 1, store.Len("exports"))
}

func TestBlobStoreUnknownBucket(t *testing.T) {
	t.Parallel()

	store := NewBlobStore("exports")
	_, err := store.PutObject(context.Background(), "other", "k.csv", "text/csv", []byte("x"), nil)

	require.ErrorIs(t, err, workflow.ErrBucketNotFound)
	require.Zero(t, store.Len("other"))
}

func TestBlobStoreCreateBucketIdempotent(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	store.CreateBucket("exports")
	_, err := store.PutObject(context.Background(), "exports", "k.csv", "text/csv", []byte("x"), nil)
	require.NoError(t, err)

	store.CreateBucket("exports")
	store.CreateBucket("")
	require.Equal(t, 1, store.Len("exports"))
}
