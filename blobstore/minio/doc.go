// Package minio stores raster blocks in MinIO or another S3-compatible
// object store through the minio-go client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	r, err := blobraster.Open(ctx, miniostore.NewStore(client, "rasters", "dem"), raster.Read)
package minio
