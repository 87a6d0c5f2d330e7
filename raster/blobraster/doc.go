// Package blobraster stores a raster as one blob per block in a
// blobstore.BlobStore.
//
// The store holds a JSON manifest named raster.json describing the band
// grids, block sizes and block compression, plus one blob per written block
// named b{band}/r{row}/c{col}. Blocks that were never written read as zeros.
//
//	store := blobstore.NewLocalStore("/data/dem")
//	r, err := blobraster.Create(ctx, store, blobraster.Spec{
//	    Bands:       []blobraster.Band{{BlocksX: 64, BlocksY: 64, BlockSize: 256 * 256 * 4}},
//	    Compression: "zstd",
//	})
//
// The access policy is chosen by whoever opens the raster; the manifest does
// not record one.
package blobraster
