package main

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/pflag"

	"github.com/hupe1980/rastercache/blobstore"
	miniostore "github.com/hupe1980/rastercache/blobstore/minio"
	s3store "github.com/hupe1980/rastercache/blobstore/s3"
)

var backendFlags BackendConfig

func bindBackendFlags(fs *pflag.FlagSet) {
	fs.StringVar(&backendFlags.Kind, "backend", "", "Blob store: local, minio or s3")
	fs.StringVar(&backendFlags.Path, "path", "", "Directory of the local backend")
	fs.StringVar(&backendFlags.Bucket, "bucket", "", "Bucket of the minio or s3 backend")
	fs.StringVar(&backendFlags.Prefix, "prefix", "", "Key prefix inside the bucket")
	fs.StringVar(&backendFlags.Endpoint, "endpoint", "", "Endpoint of the minio or s3 backend")
	fs.StringVar(&backendFlags.Region, "region", "", "AWS region of the s3 backend")
}

// applyBackendFlags overrides b with the backend flags set on the command line.
func applyBackendFlags(fs *pflag.FlagSet, b *BackendConfig) {
	set := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	set("backend", &b.Kind, backendFlags.Kind)
	set("path", &b.Path, backendFlags.Path)
	set("bucket", &b.Bucket, backendFlags.Bucket)
	set("prefix", &b.Prefix, backendFlags.Prefix)
	set("endpoint", &b.Endpoint, backendFlags.Endpoint)
	set("region", &b.Region, backendFlags.Region)
}

// openStore connects to the configured blob store.
func openStore(ctx context.Context, b BackendConfig) (blobstore.BlobStore, error) {
	switch b.Kind {
	case "local":
		return blobstore.NewLocalStore(b.Path), nil
	case "minio":
		creds := credentials.NewEnvMinio()
		if b.AccessKey != "" {
			creds = credentials.NewStaticV4(b.AccessKey, b.SecretKey, "")
		}
		client, err := minio.New(b.Endpoint, &minio.Options{
			Creds:  creds,
			Secure: b.Secure,
			Region: b.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return miniostore.NewStore(client, b.Bucket, b.Prefix), nil
	case "s3":
		opts := []s3store.Option{s3store.WithPrefix(b.Prefix)}
		if b.Region != "" {
			opts = append(opts, s3store.WithRegion(b.Region))
		}
		if b.Endpoint != "" {
			opts = append(opts, s3store.WithEndpoint(b.Endpoint))
		}
		return s3store.New(ctx, b.Bucket, opts...)
	default:
		return nil, fmt.Errorf("unknown backend %q", b.Kind)
	}
}
