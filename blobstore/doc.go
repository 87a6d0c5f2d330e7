// Package blobstore stores named byte blobs for blob-backed rasters.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests
//   - LocalStore: one file per blob under a root directory, replaced atomically
//   - minio.Store: MinIO and other S3-compatible services
//   - s3.Store: Amazon S3 through the AWS SDK upload manager
//
// Blob names use forward slashes; stores map them onto their own key space.
// Implementations must be safe for concurrent use.
package blobstore
