package minio

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rastercache/blobstore"
)

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := "localhost:9000"
	accessKey := "minioadmin"
	secretKey := "minioadmin"
	bucket := "test-rastercache"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	// Check if MinIO is reachable
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("block payload")
	require.NoError(t, store.Put(ctx, "b0/r0/c0", data))
	require.NoError(t, store.Put(ctx, "b0/r0/c1", data))

	got, err := store.Get(ctx, "b0/r0/c0")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	names, err := store.List(ctx, "b0/")
	require.NoError(t, err)
	assert.Equal(t, []string{"b0/r0/c0", "b0/r0/c1"}, names)

	require.NoError(t, store.Delete(ctx, "b0/r0/c0"))
	require.NoError(t, store.Delete(ctx, "b0/r0/c1"))

	_, err = store.Get(ctx, "b0/r0/c0")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStore_Key(t *testing.T) {
	s := NewStore(nil, "bucket", "rasters/dem/")
	assert.Equal(t, "rasters/dem/b1/r2/c3", s.key("b1/r2/c3"))
	assert.Equal(t, "raster.json", NewStore(nil, "bucket", "").key("raster.json"))
	assert.Equal(t, "b1/r2/c3", s.name("rasters/dem/b1/r2/c3"))
}
