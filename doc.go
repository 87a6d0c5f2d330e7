// Package rastercache provides block caching and access synchronization for
// tiled rasters.
//
// A raster is a set of bands, each stored as a grid of fixed-size blocks.
// rastercache keeps a bounded number of blocks in memory, evicts the oldest
// unpinned block on a miss, writes modified blocks back when the raster
// allows it, and serializes writers across caches that share a raster.
//
// # Quick Start
//
//	store := blobstore.NewLocalStore("./dem")
//	r, _ := blobraster.Open(ctx, store, raster.ReadWrite)
//
//	c, _ := rastercache.New(r,
//	    rastercache.WithBudget(blockcache.MemoryPercent(10)),
//	    rastercache.WithLogLevel(slog.LevelDebug),
//	)
//	defer c.Close(ctx)
//
//	h, _ := c.Get(ctx, raster.Coord{Band: 0, Row: 3, Col: 7})
//	h.Bytes()[0] = 42
//	h.Release()
//
// # Concurrency
//
// Each goroutine that works on a shared raster should use its own Cache
// obtained with Attach; attached caches share one access.Synchronizer. Under
// a write policy a block is held by at most one cache at a time and every
// cache keeps a single block resident, so a cache always releases its block
// before waiting for the next one. Under a read-only policy caches share
// blocks freely.
//
// # Packages
//
//   - raster: the raster capability, block coordinates, and an in-memory raster
//   - access: the per-raster synchronizer
//   - blockcache: the bounded managers, synchronized and direct
//   - raster/blobraster, blobstore: rasters stored as blobs on disk, MinIO or S3
//   - metrics: cache event observers, including Prometheus
package rastercache
