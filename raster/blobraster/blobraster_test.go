package blobraster

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rastercache/blobstore"
	"github.com/hupe1980/rastercache/raster"
	"github.com/hupe1980/rastercache/testutil"
)

var testSpec = Spec{
	Bands: []Band{
		{BlocksX: 3, BlocksY: 2, BlockSize: 64},
		{BlocksX: 2, BlocksY: 2, BlockSize: 32},
	},
}

// countingStore counts Get calls.
type countingStore struct {
	blobstore.BlobStore
	gets atomic.Int64
}

func (s *countingStore) Get(ctx context.Context, name string) ([]byte, error) {
	s.gets.Add(1)
	return s.BlobStore.Get(ctx, name)
}

func TestBlobName(t *testing.T) {
	c := raster.Coord{Band: 2, Row: 10, Col: 7}
	assert.Equal(t, "b2/r10/c7", BlobName(c))

	got, ok := parseBlobName(BlobName(c))
	require.True(t, ok)
	assert.Equal(t, c, got)

	for _, bad := range []string{"raster.json", "b1/r2", "b1/x2/c3", "b1/r2/cX", "b/r1/c1/extra"} {
		_, ok := parseBlobName(bad)
		assert.False(t, ok, bad)
	}
}

func TestCreate_UnwrittenBlocksReadZero(t *testing.T) {
	store := &countingStore{BlobStore: blobstore.NewMemoryStore()}
	r, err := Create(t.Context(), store, testSpec)
	require.NoError(t, err)
	store.gets.Store(0)

	assert.Equal(t, 2, r.BandCount())
	bx, by := r.BlockGrid(1)
	assert.Equal(t, [2]int{2, 2}, [2]int{bx, by})
	assert.Equal(t, 32, r.BlockSize(1))
	assert.Equal(t, raster.ReadWrite, r.Policy())

	dst := bytes.Repeat([]byte{0xFF}, 64)
	require.NoError(t, r.ReadBlock(t.Context(), raster.Coord{Row: 1, Col: 2}, dst))
	assert.Equal(t, make([]byte, 64), dst)
	assert.Zero(t, store.gets.Load(), "absent blocks are not fetched")
	assert.Zero(t, r.Stored())
}

func TestRoundTrip(t *testing.T) {
	for _, codec := range []string{"none", "lz4", "zstd"} {
		t.Run(codec, func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			spec := testSpec
			spec.Compression = codec

			r, err := Create(t.Context(), store, spec)
			require.NoError(t, err)

			c := raster.Coord{Band: 1, Row: 1, Col: 0}
			want := testutil.Pattern(c, 32)
			require.NoError(t, r.WriteBlock(t.Context(), c, want))
			assert.Equal(t, 1, r.Stored())

			got := make([]byte, 32)
			require.NoError(t, r.ReadBlock(t.Context(), c, got))
			assert.Equal(t, want, got)

			// Reopen picks up the stored block.
			ro, err := Open(t.Context(), store, raster.Read)
			require.NoError(t, err)
			assert.Equal(t, spec, ro.Spec())
			assert.Equal(t, 1, ro.Stored())

			got = make([]byte, 32)
			require.NoError(t, ro.ReadBlock(t.Context(), c, got))
			assert.Equal(t, want, got)

			assert.ErrorIs(t, ro.WriteBlock(t.Context(), c, want), ErrReadOnly)
		})
	}
}

func TestCreate_WithFill(t *testing.T) {
	store := blobstore.NewMemoryStore()
	fill := func(c raster.Coord, dst []byte) {
		copy(dst, testutil.Pattern(c, len(dst)))
	}

	r, err := Create(t.Context(), store, testSpec, WithFill(fill), WithConcurrency(3))
	require.NoError(t, err)
	assert.Equal(t, 10, r.Stored())
	assert.Equal(t, 11, store.Len())

	ro, err := Open(t.Context(), store, raster.Read)
	require.NoError(t, err)
	layout, err := raster.NewLayout(ro)
	require.NoError(t, err)
	for _, c := range layout.All() {
		size := ro.BlockSize(c.Band)
		got := make([]byte, size)
		require.NoError(t, ro.ReadBlock(t.Context(), c, got))
		assert.Equal(t, testutil.Pattern(c, size), got, "block %s", c)
	}
}

type failingStore struct {
	blobstore.BlobStore
	err error
}

func (s failingStore) Put(ctx context.Context, name string, data []byte) error {
	if name != ManifestName {
		return s.err
	}
	return s.BlobStore.Put(ctx, name, data)
}

func TestCreate_FillFailureLeavesNoManifest(t *testing.T) {
	mem := blobstore.NewMemoryStore()
	boom := errors.New("boom")

	_, err := Create(t.Context(), failingStore{BlobStore: mem, err: boom}, testSpec,
		WithFill(func(raster.Coord, []byte) {}))
	assert.ErrorIs(t, err, boom)

	_, err = Open(t.Context(), mem, raster.Read)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestCreate_Exists(t *testing.T) {
	store := blobstore.NewMemoryStore()
	_, err := Create(t.Context(), store, testSpec)
	require.NoError(t, err)

	_, err = Create(t.Context(), store, testSpec)
	assert.ErrorIs(t, err, ErrExists)
}

func TestCreate_InvalidSpec(t *testing.T) {
	tests := []Spec{
		{},
		{Bands: []Band{{BlocksX: 0, BlocksY: 1, BlockSize: 8}}},
		{Bands: []Band{{BlocksX: 1, BlocksY: 1, BlockSize: 0}}},
		{Bands: []Band{{BlocksX: 1, BlocksY: 1, BlockSize: 8}}, Compression: "brotli"},
	}
	for _, spec := range tests {
		_, err := Create(t.Context(), blobstore.NewMemoryStore(), spec)
		assert.ErrorIs(t, err, raster.ErrConfiguration, "%+v", spec)
	}
}

func TestOpen_Errors(t *testing.T) {
	store := blobstore.NewMemoryStore()
	_, err := Open(t.Context(), store, raster.Read)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.Put(t.Context(), ManifestName, []byte(`{"version":99,"bands":[]}`)))
	_, err = Open(t.Context(), store, raster.Read)
	assert.ErrorContains(t, err, "unsupported manifest version")

	require.NoError(t, store.Put(t.Context(), ManifestName, []byte(`not json`)))
	_, err = Open(t.Context(), store, raster.Read)
	assert.Error(t, err)
}

func TestOpen_IgnoresForeignBlobs(t *testing.T) {
	store := blobstore.NewMemoryStore()
	_, err := Create(t.Context(), store, testSpec)
	require.NoError(t, err)
	require.NoError(t, store.Put(t.Context(), "b9/r0/c0", []byte("x")))
	require.NoError(t, store.Put(t.Context(), "backup.tar", []byte("x")))

	r, err := Open(t.Context(), store, raster.Read)
	require.NoError(t, err)
	assert.Zero(t, r.Stored())
}

func TestBlock_Validation(t *testing.T) {
	r, err := Create(t.Context(), blobstore.NewMemoryStore(), testSpec)
	require.NoError(t, err)

	err = r.ReadBlock(t.Context(), raster.Coord{Band: 2}, make([]byte, 64))
	assert.ErrorIs(t, err, raster.ErrInvalidIndex)

	err = r.WriteBlock(t.Context(), raster.Coord{}, make([]byte, 10))
	assert.ErrorIs(t, err, raster.ErrConfiguration)
}

func TestReadBlock_CorruptBlob(t *testing.T) {
	store := blobstore.NewMemoryStore()
	spec := testSpec
	spec.Compression = "lz4"
	r, err := Create(t.Context(), store, spec)
	require.NoError(t, err)

	c := raster.Coord{}
	require.NoError(t, r.WriteBlock(t.Context(), c, make([]byte, 64)))
	require.NoError(t, store.Put(t.Context(), BlobName(c), []byte{1, 2}))

	err = r.ReadBlock(t.Context(), c, make([]byte, 64))
	assert.ErrorContains(t, err, "decode")
}
