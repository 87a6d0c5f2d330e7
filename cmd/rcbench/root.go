package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hupe1980/rastercache"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOut    bool

	cfg Config
)

var rootCmd = &cobra.Command{
	Use:   "rcbench",
	Short: "Benchmark bounded raster block caches",
	Long: `rcbench creates block rasters in a blob store (local directory, MinIO or S3)
and drives synchronized or single-goroutine block caches over them, reporting
hit ratios, evictions, write-backs and writer wait times.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		applyBackendFlags(cmd.Flags(), &loaded.Backend)
		if err := validateConfig(loaded); err != nil {
			return fmt.Errorf("%w: %w", errConfigInvalid, err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "JSONC configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	bindBackendFlags(rootCmd.PersistentFlags())
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newLogger logs warnings to stderr, or everything with --verbose.
func newLogger() *rastercache.Logger {
	if verbose {
		return rastercache.NewTextLogger(slog.LevelDebug)
	}
	return rastercache.NewTextLogger(slog.LevelWarn)
}

// printJSON outputs data as indented JSON.
func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}
