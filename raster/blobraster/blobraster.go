package blobraster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/rastercache/blobstore"
	"github.com/hupe1980/rastercache/internal/compress"
	"github.com/hupe1980/rastercache/raster"
)

var (
	// ErrExists is returned by Create when the store already holds a raster.
	ErrExists = errors.New("blobraster: raster already exists")

	// ErrReadOnly is returned by WriteBlock when the policy lacks Write.
	ErrReadOnly = errors.New("blobraster: raster is read-only")
)

// Raster is a raster.Raster backed by a BlobStore. It is safe for
// concurrent use.
type Raster struct {
	store  blobstore.BlobStore
	spec   Spec
	codec  compress.Codec
	policy raster.Policy
	layout *raster.Layout
	logger *slog.Logger

	mu      sync.RWMutex
	present *bitset.BitSet // by linear block index
}

var _ raster.Raster = (*Raster)(nil)

// BlobName returns the blob holding block c.
func BlobName(c raster.Coord) string {
	return "b" + strconv.Itoa(c.Band) + "/r" + strconv.Itoa(c.Row) + "/c" + strconv.Itoa(c.Col)
}

// parseBlobName is the inverse of BlobName.
func parseBlobName(name string) (raster.Coord, bool) {
	parts := strings.Split(name, "/")
	if len(parts) != 3 {
		return raster.Coord{}, false
	}
	var v [3]int
	for i, prefix := range []string{"b", "r", "c"} {
		digits, ok := strings.CutPrefix(parts[i], prefix)
		if !ok {
			return raster.Coord{}, false
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return raster.Coord{}, false
		}
		v[i] = n
	}
	return raster.Coord{Band: v[0], Row: v[1], Col: v[2]}, true
}

func newRaster(store blobstore.BlobStore, spec Spec, policy raster.Policy, logger *slog.Logger) (*Raster, error) {
	codec, err := spec.validate()
	if err != nil {
		return nil, err
	}

	r := &Raster{
		store:  store,
		spec:   spec,
		codec:  codec,
		policy: policy,
		logger: logger,
	}
	if r.layout, err = raster.NewLayout(r); err != nil {
		return nil, err
	}
	r.present = bitset.New(uint(r.layout.TotalBlocks()))
	return r, nil
}

// Create writes a new raster described by spec to store.
//
// With WithFill every block is written before the manifest, so a raster
// whose creation failed cannot be opened.
func Create(ctx context.Context, store blobstore.BlobStore, spec Spec, optFns ...Option) (*Raster, error) {
	o := applyOptions(optFns)

	r, err := newRaster(store, spec, o.policy, o.logger)
	if err != nil {
		return nil, err
	}

	switch _, err := store.Get(ctx, ManifestName); {
	case err == nil:
		return nil, ErrExists
	case !errors.Is(err, blobstore.ErrNotFound):
		return nil, fmt.Errorf("blobraster: check manifest: %w", err)
	}

	if o.fill != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.concurrency)
		for _, c := range r.layout.All() {
			g.Go(func() error {
				buf := make([]byte, r.layout.Band(c.Band).BlockSize)
				o.fill(c, buf)
				return r.put(gctx, c, buf)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	data, err := encodeManifest(spec)
	if err != nil {
		return nil, err
	}
	if err := store.Put(ctx, ManifestName, data); err != nil {
		return nil, fmt.Errorf("blobraster: write manifest: %w", err)
	}

	r.logger.Debug("raster created",
		"bands", len(spec.Bands),
		"blocks", r.layout.TotalBlocks(),
		"compression", r.codec.String(),
		"filled", o.fill != nil,
	)
	return r, nil
}

// Open reads the raster in store and serves it with the given policy.
func Open(ctx context.Context, store blobstore.BlobStore, policy raster.Policy, optFns ...Option) (*Raster, error) {
	o := applyOptions(optFns)

	data, err := store.Get(ctx, ManifestName)
	if err != nil {
		return nil, fmt.Errorf("blobraster: read manifest: %w", err)
	}
	spec, err := decodeManifest(data)
	if err != nil {
		return nil, err
	}

	r, err := newRaster(store, spec, policy, o.logger)
	if err != nil {
		return nil, err
	}

	names, err := store.List(ctx, "b")
	if err != nil {
		return nil, fmt.Errorf("blobraster: list blocks: %w", err)
	}
	for _, name := range names {
		c, ok := parseBlobName(name)
		if !ok || r.layout.Validate(c) != nil {
			r.logger.Warn("ignoring unexpected blob", "name", name)
			continue
		}
		r.present.Set(uint(r.layout.Index(c)))
	}

	r.logger.Debug("raster opened",
		"bands", len(spec.Bands),
		"blocks", r.layout.TotalBlocks(),
		"stored", r.present.Count(),
		"policy", policy.String(),
	)
	return r, nil
}

// BandCount implements raster.Raster.
func (r *Raster) BandCount() int { return len(r.spec.Bands) }

// BlockGrid implements raster.Raster.
func (r *Raster) BlockGrid(band int) (int, int) {
	b := r.spec.Bands[band]
	return b.BlocksX, b.BlocksY
}

// BlockSize implements raster.Raster.
func (r *Raster) BlockSize(band int) int { return r.spec.Bands[band].BlockSize }

// Policy implements raster.Raster.
func (r *Raster) Policy() raster.Policy { return r.policy }

// Spec returns the raster description.
func (r *Raster) Spec() Spec { return r.spec }

// Stored returns the number of blocks held in the store.
func (r *Raster) Stored() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int(r.present.Count())
}

// ReadBlock implements raster.Raster. Blocks never written read as zeros.
func (r *Raster) ReadBlock(ctx context.Context, c raster.Coord, dst []byte) error {
	dst, err := r.block(c, dst)
	if err != nil {
		return err
	}

	r.mu.RLock()
	stored := r.present.Test(uint(r.layout.Index(c)))
	r.mu.RUnlock()
	if !stored {
		clear(dst)
		return nil
	}

	data, err := r.store.Get(ctx, BlobName(c))
	if errors.Is(err, blobstore.ErrNotFound) {
		clear(dst)
		return nil
	}
	if err != nil {
		return fmt.Errorf("blobraster: get %s: %w", c, err)
	}
	if err := compress.Decode(r.codec, data, dst); err != nil {
		return fmt.Errorf("blobraster: decode %s: %w", c, err)
	}
	return nil
}

// WriteBlock implements raster.Raster.
func (r *Raster) WriteBlock(ctx context.Context, c raster.Coord, src []byte) error {
	if !r.policy.CanWrite() {
		return ErrReadOnly
	}
	src, err := r.block(c, src)
	if err != nil {
		return err
	}
	return r.put(ctx, c, src)
}

func (r *Raster) put(ctx context.Context, c raster.Coord, data []byte) error {
	frame, err := compress.Encode(r.codec, data)
	if err != nil {
		return fmt.Errorf("blobraster: encode %s: %w", c, err)
	}
	if err := r.store.Put(ctx, BlobName(c), frame); err != nil {
		return fmt.Errorf("blobraster: put %s: %w", c, err)
	}

	r.mu.Lock()
	r.present.Set(uint(r.layout.Index(c)))
	r.mu.Unlock()
	return nil
}

// block validates c and trims buf to the block size of its band.
func (r *Raster) block(c raster.Coord, buf []byte) ([]byte, error) {
	if err := r.layout.Validate(c); err != nil {
		return nil, err
	}
	size := r.layout.Band(c.Band).BlockSize
	if len(buf) < size {
		return nil, fmt.Errorf("%w: buffer of %d bytes for block %s of %d bytes",
			raster.ErrConfiguration, len(buf), c, size)
	}
	return buf[:size], nil
}
