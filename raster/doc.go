// Package raster defines the narrow raster capability consumed by the block
// synchronizer and the block cache managers.
//
// A raster is a set of bands. Each band is stored as a grid of fixed-size
// blocks, and a block is the atomic unit of I/O:
//
//	band 0                       band 1
//	┌──────┬──────┬──────┐       ┌──────┬──────┐
//	│ 0,0  │ 0,1  │ 0,2  │       │ 0,0  │ 0,1  │
//	├──────┼──────┼──────┤       ├──────┼──────┤
//	│ 1,0  │ 1,1  │ 1,2  │       │ 1,0  │ 1,1  │
//	└──────┴──────┴──────┘       └──────┴──────┘
//
// Blocks are addressed by Coord{Band, Row, Col}. Layout captures the block
// geometry of a raster once and maps every coordinate to a dense linear index
// that increases in (band, row, col) order.
//
// # Implementations
//
//   - Memory: an in-memory raster, useful for tests and scratch data
//   - blobraster.Raster: blocks stored as blobs in a blobstore.BlobStore
//
// Codecs, georeferencing and pixel access live outside this package.
package raster
