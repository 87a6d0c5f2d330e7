package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rastercache/blobstore"
	"github.com/hupe1980/rastercache/blockcache"
	"github.com/hupe1980/rastercache/raster"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rcbench.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, blockcache.MemoryPercent(40), cfg.Cache.budget())
}

func TestLoadConfig_JSONC(t *testing.T) {
	path := writeConfig(t, `{
		// blob store
		"backend": {"kind": "minio", "endpoint": "localhost:9000", "bucket": "rasters",},
		"cache": {
			"policy": "read",
			"blocks": 32,
			"wait_timeout": "250ms", /* bounded waits */
		},
		"bench": {"workers": 8, "requests": 100, "access": "scan", "write_ratio": 0},
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "minio", cfg.Backend.Kind)
	assert.Equal(t, "rasters", cfg.Backend.Bucket)
	assert.Equal(t, blockcache.Blocks(32), cfg.Cache.budget())
	d, err := cfg.Cache.waitTimeout()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
	assert.Equal(t, 8, cfg.Bench.Workers)
	assert.Equal(t, "scan", cfg.Bench.Access)

	// Unset keys keep their defaults.
	assert.Equal(t, int64(1), cfg.Bench.Seed)
	assert.InDelta(t, 1.1, cfg.Bench.Skew, 1e-9)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `{"cache": `},
		{"unknown field", `{"cache": {"capacity": 3}}`},
		{"unknown backend", `{"backend": {"kind": "ftp"}}`},
		{"s3 without bucket", `{"backend": {"kind": "s3"}}`},
		{"policy", `{"cache": {"policy": "append"}}`},
		{"percent", `{"cache": {"memory_percent": 120}}`},
		{"negative blocks", `{"cache": {"blocks": -1}}`},
		{"timeout", `{"cache": {"wait_timeout": "soon"}}`},
		{"workers", `{"bench": {"workers": 0}}`},
		{"access", `{"bench": {"access": "random"}}`},
		{"write ratio", `{"bench": {"write_ratio": 1.5}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.ErrorIs(t, err, errConfigInvalid)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.jsonc"))
	assert.ErrorIs(t, err, errConfigFileRead)
}

func TestFormatConfig(t *testing.T) {
	out, err := formatConfig(DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "local"`)
	assert.Contains(t, out, `"memory_percent": 40`)
}

func TestRunShowConfig(t *testing.T) {
	c := DefaultConfig()
	c.Backend.Kind = "minio"
	c.Backend.Bucket = "rasters"
	c.Backend.SecretKey = "hunter2"
	c.Cache.Blocks = 8

	var buf bytes.Buffer
	require.NoError(t, runShowConfig(&buf, c))
	assert.NotContains(t, buf.String(), "hunter2")
	assert.Equal(t, "hunter2", c.Backend.SecretKey)

	// The output is a valid config file again.
	var parsed Config
	require.NoError(t, parseConfig(buf.Bytes(), &parsed))
	assert.Equal(t, "rasters", parsed.Backend.Bucket)
	assert.Equal(t, 8, parsed.Cache.Blocks)
	assert.Equal(t, "********", parsed.Backend.SecretKey)
}

func TestParsePolicy(t *testing.T) {
	for s, want := range map[string]raster.Policy{
		"none":      raster.None,
		"read":      raster.Read,
		"write":     raster.Write,
		"readwrite": raster.ReadWrite,
		"":          raster.ReadWrite,
	} {
		got, err := parsePolicy(s)
		require.NoError(t, err)
		assert.Equal(t, want, got, s)
	}
}

func TestApplyBackendFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	bindBackendFlags(fs)
	require.NoError(t, fs.Parse([]string{"--backend", "s3", "--bucket", "tiles"}))

	b := BackendConfig{Kind: "local", Path: "raster", Prefix: "dem/"}
	applyBackendFlags(fs, &b)

	assert.Equal(t, BackendConfig{Kind: "s3", Path: "raster", Bucket: "tiles", Prefix: "dem/"}, b)
}

func TestOpenStore(t *testing.T) {
	store, err := openStore(context.Background(), BackendConfig{Kind: "local", Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &blobstore.LocalStore{}, store)

	_, err = openStore(context.Background(), BackendConfig{Kind: "ftp"})
	assert.Error(t, err)
}
