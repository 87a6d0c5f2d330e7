package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/tailscale/hujson"

	"github.com/hupe1980/rastercache"
	"github.com/hupe1980/rastercache/blockcache"
	"github.com/hupe1980/rastercache/raster"
)

var (
	errConfigFileRead = errors.New("cannot read config file")
	errConfigInvalid  = errors.New("invalid config")
)

// Config holds all configuration options.
type Config struct {
	Backend BackendConfig `json:"backend"`
	Cache   CacheConfig   `json:"cache"`
	Bench   BenchConfig   `json:"bench"`
}

// BackendConfig selects the blob store holding the raster.
type BackendConfig struct {
	// Kind is "local", "minio" or "s3".
	Kind     string `json:"kind"`
	Path     string `json:"path,omitempty"`
	Bucket   string `json:"bucket,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	// AccessKey and SecretKey are used by minio; empty reads MINIO_ACCESS_KEY
	// and MINIO_SECRET_KEY from the environment.
	AccessKey string `json:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty"`
	Secure    bool   `json:"secure,omitempty"`
}

// CacheConfig configures the caches under test.
type CacheConfig struct {
	Policy string `json:"policy"`
	// Blocks, when positive, takes precedence over MemoryPercent.
	Blocks             int     `json:"blocks,omitempty"`
	MemoryPercent      float64 `json:"memory_percent,omitempty"`
	MemoryLimitBytes   int64   `json:"memory_limit_bytes,omitempty"`
	IOLimitBytesPerSec int64   `json:"io_limit_bytes_per_sec,omitempty"`
	WaitTimeout        string  `json:"wait_timeout,omitempty"`
	PrefetchThreshold  int     `json:"prefetch_threshold,omitempty"`
}

// BenchConfig configures the generated workload.
type BenchConfig struct {
	Workers  int `json:"workers"`
	Requests int `json:"requests"`
	// Access is "uniform", "zipf" or "scan".
	Access     string  `json:"access"`
	Skew       float64 `json:"skew,omitempty"`
	WriteRatio float64 `json:"write_ratio"`
	Seed       int64   `json:"seed"`
	// Direct runs a single unsynchronized cache instead of one attached
	// cache per worker.
	Direct      bool   `json:"direct,omitempty"`
	MetricsAddr string `json:"metrics_addr,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			Kind: "local",
			Path: "raster",
		},
		Cache: CacheConfig{
			Policy:        "readwrite",
			MemoryPercent: rastercache.DefaultMemoryPercent,
		},
		Bench: BenchConfig{
			Workers:    4,
			Requests:   10000,
			Access:     "zipf",
			Skew:       1.1,
			WriteRatio: 0.1,
			Seed:       1,
		},
	}
}

// LoadConfig returns the defaults overlaid with the JSONC file at path.
// An empty path yields the validated defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %w", errConfigFileRead, path, err)
		}
		if err := parseConfig(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
		}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", errConfigInvalid, err)
	}
	return cfg, nil
}

// parseConfig decodes JSONC data over the values already in cfg.
func parseConfig(data []byte, cfg *Config) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("invalid JSONC: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func validateConfig(cfg Config) error {
	b := cfg.Backend
	switch b.Kind {
	case "local":
		if b.Path == "" {
			return errors.New("backend.path is required for local")
		}
	case "minio":
		if b.Endpoint == "" || b.Bucket == "" {
			return errors.New("backend.endpoint and backend.bucket are required for minio")
		}
	case "s3":
		if b.Bucket == "" {
			return errors.New("backend.bucket is required for s3")
		}
	default:
		return fmt.Errorf("unknown backend.kind %q", b.Kind)
	}

	if _, err := parsePolicy(cfg.Cache.Policy); err != nil {
		return err
	}
	if cfg.Cache.Blocks < 0 {
		return fmt.Errorf("cache.blocks must not be negative, got %d", cfg.Cache.Blocks)
	}
	if cfg.Cache.Blocks == 0 && (cfg.Cache.MemoryPercent <= 0 || cfg.Cache.MemoryPercent > 100) {
		return fmt.Errorf("cache.memory_percent must be in (0, 100], got %g", cfg.Cache.MemoryPercent)
	}
	if _, err := cfg.Cache.waitTimeout(); err != nil {
		return err
	}

	n := cfg.Bench
	if n.Workers < 1 || n.Requests < 1 {
		return fmt.Errorf("bench.workers and bench.requests must be positive, got %d and %d", n.Workers, n.Requests)
	}
	switch n.Access {
	case "uniform", "scan":
	case "zipf":
		if n.Skew <= 0 {
			return fmt.Errorf("bench.skew must be positive, got %g", n.Skew)
		}
	default:
		return fmt.Errorf("unknown bench.access %q", n.Access)
	}
	if n.WriteRatio < 0 || n.WriteRatio > 1 {
		return fmt.Errorf("bench.write_ratio must be in [0, 1], got %g", n.WriteRatio)
	}
	return nil
}

// formatConfig returns the config as formatted JSON.
func formatConfig(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}
	return string(data), nil
}

func parsePolicy(s string) (raster.Policy, error) {
	switch s {
	case "none":
		return raster.None, nil
	case "read":
		return raster.Read, nil
	case "write":
		return raster.Write, nil
	case "readwrite", "":
		return raster.ReadWrite, nil
	default:
		return raster.None, fmt.Errorf("unknown policy %q", s)
	}
}

func (c CacheConfig) budget() blockcache.Budget {
	if c.Blocks > 0 {
		return blockcache.Blocks(c.Blocks)
	}
	return blockcache.MemoryPercent(c.MemoryPercent)
}

func (c CacheConfig) waitTimeout() (time.Duration, error) {
	if c.WaitTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.WaitTimeout)
	if err != nil {
		return 0, fmt.Errorf("cache.wait_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("cache.wait_timeout must not be negative, got %s", d)
	}
	return d, nil
}
