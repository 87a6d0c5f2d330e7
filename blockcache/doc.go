// Package blockcache keeps a bounded number of raster blocks resident in
// memory.
//
// Manager is safe for concurrent use and goes through an
// access.Synchronizer, so several managers over the same raster respect
// writer exclusivity. Direct talks to the raster itself and must only be used
// from one goroutine at a time; it can optionally read ahead along the
// direction of recent access.
//
// Both evict in admission order (FIFO). A block referenced by an unreleased
// Handle is never evicted; when every resident block is pinned a miss fails
// with ErrBusy instead of invalidating a live buffer.
package blockcache
