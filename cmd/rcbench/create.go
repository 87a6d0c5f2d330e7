package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/rastercache/blobstore"
	"github.com/hupe1980/rastercache/raster"
	"github.com/hupe1980/rastercache/raster/blobraster"
	"github.com/hupe1980/rastercache/testutil"
)

type createOptions struct {
	bands       int
	blocksX     int
	blocksY     int
	blockSize   int
	compression string
	fill        string
	concurrency int
}

func init() {
	var opts createOptions

	cmd := newCreateCmd(&opts)
	cmd.Flags().IntVar(&opts.bands, "bands", 1, "Number of bands")
	cmd.Flags().IntVar(&opts.blocksX, "blocks-x", 16, "Blocks per row")
	cmd.Flags().IntVar(&opts.blocksY, "blocks-y", 16, "Blocks per column")
	cmd.Flags().IntVar(&opts.blockSize, "block-size", 64<<10, "Bytes per block")
	cmd.Flags().StringVar(&opts.compression, "compression", "zstd", "Block compression: none, lz4 or zstd")
	cmd.Flags().StringVar(&opts.fill, "fill", "pattern", "Initial content: none, pattern or random")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Parallel uploads (default GOMAXPROCS)")
	rootCmd.AddCommand(cmd)
}

func newCreateCmd(opts *createOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a raster in the blob store",
		Long: `Create writes a raster manifest and, unless --fill=none, every block of
the raster to the configured backend. Creating over an existing raster fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd.Context(), cfg.Backend)
			if err != nil {
				return err
			}
			return runCreate(cmd.Context(), cmd.OutOrStdout(), store, *opts)
		},
	}
}

func runCreate(ctx context.Context, w io.Writer, store blobstore.BlobStore, opts createOptions) error {
	spec := blobraster.Spec{Compression: opts.compression}
	for range opts.bands {
		spec.Bands = append(spec.Bands, blobraster.Band{
			BlocksX:   opts.blocksX,
			BlocksY:   opts.blocksY,
			BlockSize: opts.blockSize,
		})
	}

	createOpts := []blobraster.Option{
		blobraster.WithLogger(newLogger().Logger),
		blobraster.WithConcurrency(opts.concurrency),
	}
	switch opts.fill {
	case "none":
	case "pattern":
		createOpts = append(createOpts, blobraster.WithFill(func(c raster.Coord, dst []byte) {
			copy(dst, testutil.Pattern(c, len(dst)))
		}))
	case "random":
		rng := testutil.NewRNG(cfg.Bench.Seed)
		createOpts = append(createOpts, blobraster.WithFill(func(_ raster.Coord, dst []byte) {
			rng.Fill(dst)
		}))
	default:
		return fmt.Errorf("unknown fill %q", opts.fill)
	}

	r, err := blobraster.Create(ctx, store, spec, createOpts...)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(w, inspectResult{Spec: r.Spec(), Stored: r.Stored()})
	}
	fmt.Fprintf(w, "created raster: %d band(s), %dx%d blocks of %d bytes, %s, %d block(s) stored\n",
		opts.bands, opts.blocksX, opts.blocksY, opts.blockSize, opts.compression, r.Stored())
	return nil
}
