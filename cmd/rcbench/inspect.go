package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/rastercache/blobstore"
	"github.com/hupe1980/rastercache/raster"
	"github.com/hupe1980/rastercache/raster/blobraster"
)

type inspectResult struct {
	Spec   blobraster.Spec `json:"spec"`
	Stored int             `json:"stored_blocks"`
}

func init() {
	rootCmd.AddCommand(newInspectCmd())
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show the layout of a stored raster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd.Context(), cfg.Backend)
			if err != nil {
				return err
			}
			return runInspect(cmd.Context(), cmd.OutOrStdout(), store)
		},
	}
}

func runInspect(ctx context.Context, w io.Writer, store blobstore.BlobStore) error {
	r, err := blobraster.Open(ctx, store, raster.Read)
	if err != nil {
		return err
	}

	res := inspectResult{Spec: r.Spec(), Stored: r.Stored()}
	if jsonOut {
		return printJSON(w, res)
	}

	compression := res.Spec.Compression
	if compression == "" {
		compression = "none"
	}
	total := 0
	fmt.Fprintf(w, "compression: %s\n", compression)
	for i, b := range res.Spec.Bands {
		fmt.Fprintf(w, "band %d: %dx%d blocks of %d bytes\n", i, b.BlocksX, b.BlocksY, b.BlockSize)
		total += b.BlocksX * b.BlocksY
	}
	fmt.Fprintf(w, "stored: %d of %d blocks\n", res.Stored, total)
	return nil
}
