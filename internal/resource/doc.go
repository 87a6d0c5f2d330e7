// Package resource implements the Controller for memory, I/O and worker
// limits shared by block caches.
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                         Controller                          │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Buffer Memory  │  Prefetch       │  Raster I/O Limiter     │
//	│  (fail-fast)    │  Workers (sem)  │  (token bucket)         │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  AcquireMemory  │  TryAcquire-    │  AcquireIO              │
//	│  ReleaseMemory  │  Background     │  LimitRaster            │
//	│  MemoryLimit    │  Release-       │                         │
//	│  MemoryUsage    │  Background     │                         │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// # Memory
//
// Every block buffer a cache allocates is reserved up front. AcquireMemory
// never blocks; it returns ErrMemoryLimitExceeded and the cache reports an
// out-of-memory error for that request without disturbing resident blocks.
// A cache never plans for more slots than MemoryLimit can hold, so the error
// only shows when several caches share one Controller:
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 256 << 20})
//	if err := rc.AcquireMemory(blockSize); err != nil {
//	    return err
//	}
//	defer rc.ReleaseMemory(blockSize)
//
// # I/O
//
// LimitRaster wraps a raster so that each block transfer waits for tokens.
// Requests larger than the bucket are charged at the bucket size.
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully; they become no-ops.
package resource
