// Package access arbitrates concurrent block-level access to one raster.
//
// A Synchronizer owns one mutex and one condition variable per raster and a
// use-counter per block. The access policy is negotiated once, at
// construction, as the intersection of what the caller requests and what the
// raster declares:
//
//	requested   capability   negotiated
//	ReadWrite   ReadWrite    ReadWrite   writers are exclusive per block
//	ReadWrite   Read         Read        readers share blocks, never block
//	Write       Read         Read
//	Read        ReadWrite    Read
//	any         None         None
//
// Under a Write policy Acquire waits until no other holder owns the block;
// under a Read-only policy it only counts holders. Block I/O runs while the
// mutex is held, so raster reads and writes are serialized across goroutines.
//
// # Deadlines
//
// Waiting honours the context passed to Acquire and the optional
// WithWaitTimeout. An expired wait returns an error matching ErrTimeout and
// the context error and leaves all counters unchanged.
//
// # Pins
//
// Independently of holders, callers can Pin a block to announce a live
// reference into a cached copy of it. Cache managers consult Pinned before
// reusing a slot.
package access
