// Package s3 stores raster blocks as objects in Amazon S3.
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("rasters/dem"),
//	    s3.WithRegion("us-east-1"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r, err := blobraster.Open(ctx, store, raster.Read)
//
// Uploads go through the SDK upload manager, so very large blocks are sent
// as multipart uploads. Listing follows continuation tokens.
package s3
