package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/rastercache"
	"github.com/hupe1980/rastercache/blobstore"
	"github.com/hupe1980/rastercache/blockcache"
	"github.com/hupe1980/rastercache/internal/resource"
	"github.com/hupe1980/rastercache/metrics"
	promobs "github.com/hupe1980/rastercache/metrics/prometheus"
	"github.com/hupe1980/rastercache/raster"
	"github.com/hupe1980/rastercache/raster/blobraster"
	"github.com/hupe1980/rastercache/testutil"
)

// blockCache is the part of rastercache.Cache and blockcache.Direct a
// benchmark worker uses.
type blockCache interface {
	Get(ctx context.Context, c raster.Coord) (*blockcache.Handle, error)
	Close(ctx context.Context) error
	Stats() blockcache.Stats
}

type benchResult struct {
	Mode      string           `json:"mode"`
	Policy    string           `json:"policy"`
	Workers   int              `json:"workers"`
	Requests  int64            `json:"requests"`
	Writes    int64            `json:"writes"`
	Timeouts  int64            `json:"timeouts"`
	Elapsed   time.Duration    `json:"elapsed_ns"`
	OpsPerSec float64          `json:"ops_per_sec"`
	Cache     blockcache.Stats `json:"cache"`
	Events    metrics.Stats    `json:"events"`
}

var benchFlags struct {
	workers  int
	requests int
	direct   bool
}

func init() {
	cmd := newBenchCmd()
	cmd.Flags().IntVarP(&benchFlags.workers, "workers", "w", 0, "Concurrent workers (overrides config)")
	cmd.Flags().IntVarP(&benchFlags.requests, "requests", "n", 0, "Total block requests (overrides config)")
	cmd.Flags().BoolVar(&benchFlags.direct, "direct", false, "Use one single-goroutine cache")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Run a block access workload through bounded caches",
		Long: `Bench opens the raster in the configured backend and issues block requests
from several workers. Each worker owns a cache attached to one shared
synchronizer, so writers of the same block exclude each other. With --direct a
single unsynchronized cache serves all requests, optionally reading ahead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			bc := cfg.Bench
			if flags.Changed("workers") {
				bc.Workers = benchFlags.workers
			}
			if flags.Changed("requests") {
				bc.Requests = benchFlags.requests
			}
			if flags.Changed("direct") {
				bc.Direct = benchFlags.direct
			}
			run := cfg
			run.Bench = bc
			if err := validateConfig(run); err != nil {
				return fmt.Errorf("%w: %w", errConfigInvalid, err)
			}

			store, err := openStore(cmd.Context(), run.Backend)
			if err != nil {
				return err
			}
			res, err := runBench(cmd.Context(), store, run)
			if err != nil {
				return err
			}
			return printBench(cmd.OutOrStdout(), res)
		},
	}
}

func runBench(ctx context.Context, store blobstore.BlobStore, c Config) (benchResult, error) {
	policy, err := parsePolicy(c.Cache.Policy)
	if err != nil {
		return benchResult{}, err
	}
	waitTimeout, err := c.Cache.waitTimeout()
	if err != nil {
		return benchResult{}, err
	}
	logger := newLogger()

	r, err := blobraster.Open(ctx, store, policy, blobraster.WithLogger(logger.Logger))
	if err != nil {
		return benchResult{}, err
	}
	layout, err := raster.NewLayout(r)
	if err != nil {
		return benchResult{}, err
	}

	basic := &metrics.Basic{}
	var obs metrics.Observer = basic
	if c.Bench.MetricsAddr != "" {
		po := promobs.NewObserver("rcbench")
		reg := prometheus.NewRegistry()
		reg.MustRegister(po)
		srv := &http.Server{
			Addr:              c.Bench.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
		defer srv.Close()
		obs = metrics.Multi{basic, po}
	}

	caches, err := openCaches(r, c, policy, waitTimeout, obs, logger)
	if err != nil {
		return benchResult{}, err
	}

	res := benchResult{
		Mode:    "synchronized",
		Policy:  policy.String(),
		Workers: len(caches),
	}
	if c.Bench.Direct {
		res.Mode = "direct"
	}

	writable := policy.Intersect(r.Policy()).CanWrite()
	perWorker := c.Bench.Requests / len(caches)
	workers := make([]*worker, len(caches))

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i, bc := range caches {
		w := &worker{
			cache:    bc,
			layout:   layout,
			rng:      testutil.NewRNG(c.Bench.Seed + int64(i)),
			bench:    c.Bench,
			writable: writable,
			next:     i * layout.TotalBlocks() / len(caches),
		}
		workers[i] = w
		n := perWorker
		if i == 0 {
			n += c.Bench.Requests % len(caches)
		}
		// Each worker closes its own cache as soon as it is done.
		g.Go(func() error {
			return errors.Join(w.run(gctx, n), w.cache.Close(ctx))
		})
	}
	err = g.Wait()
	res.Elapsed = time.Since(start)

	for _, bc := range caches {
		st := bc.Stats()
		res.Cache.Capacity += st.Capacity
		res.Cache.Hits += st.Hits
		res.Cache.Misses += st.Misses
		res.Cache.Evictions += st.Evictions
		res.Cache.WriteBacks += st.WriteBacks
		res.Cache.PrefetchHits += st.PrefetchHits
	}
	if err != nil {
		return res, err
	}

	for _, w := range workers {
		res.Requests += w.requests
		res.Writes += w.writes
		res.Timeouts += w.timeouts
	}
	if s := res.Elapsed.Seconds(); s > 0 {
		res.OpsPerSec = float64(res.Requests) / s
	}
	res.Events = basic.Snapshot()
	return res, nil
}

// openCaches returns one Direct cache, or one cache per worker attached to a
// common synchronizer.
func openCaches(
	r raster.Raster, c Config, policy raster.Policy, waitTimeout time.Duration,
	obs metrics.Observer, logger *rastercache.Logger,
) ([]blockCache, error) {
	budget := c.Cache.budget()

	if c.Bench.Direct {
		rc := resource.NewController(resource.Config{
			MemoryLimitBytes:   c.Cache.MemoryLimitBytes,
			IOLimitBytesPerSec: c.Cache.IOLimitBytesPerSec,
		})
		d, err := blockcache.NewDirect(resource.LimitRaster(r, rc), budget,
			blockcache.WithLogger(logger.Logger),
			blockcache.WithObserver(obs),
			blockcache.WithResourceController(rc),
			blockcache.WithPrefetchThreshold(c.Cache.PrefetchThreshold),
		)
		if err != nil {
			return nil, err
		}
		return []blockCache{d}, nil
	}

	first, err := rastercache.New(r,
		rastercache.WithPolicy(policy),
		rastercache.WithBudget(budget),
		rastercache.WithWaitTimeout(waitTimeout),
		rastercache.WithObserver(obs),
		rastercache.WithMemoryLimit(c.Cache.MemoryLimitBytes),
		rastercache.WithIOLimit(c.Cache.IOLimitBytesPerSec),
		rastercache.WithLogger(logger),
		rastercache.WithName("worker-0"),
	)
	if err != nil {
		return nil, err
	}

	caches := []blockCache{first}
	for i := 1; i < c.Bench.Workers; i++ {
		attached, err := first.Attach(
			rastercache.WithBudget(budget),
			rastercache.WithObserver(obs),
			rastercache.WithLogger(logger),
			rastercache.WithName(fmt.Sprintf("worker-%d", i)),
		)
		if err != nil {
			for _, bc := range caches {
				_ = bc.Close(context.Background())
			}
			return nil, err
		}
		caches = append(caches, attached)
	}
	return caches, nil
}

type worker struct {
	cache    blockCache
	layout   *raster.Layout
	rng      *testutil.RNG
	bench    BenchConfig
	writable bool
	next     int

	requests, writes, timeouts int64
}

func (w *worker) run(ctx context.Context, n int) error {
	for range n {
		if err := ctx.Err(); err != nil {
			return err
		}

		c := w.coord()
		h, err := w.cache.Get(ctx, c)
		if errors.Is(err, rastercache.ErrTimeout) {
			w.timeouts++
			continue
		}
		if err != nil {
			return fmt.Errorf("block %s: %w", c, err)
		}
		w.requests++

		if w.writable && w.rng.Intn(1_000_000) < int(w.bench.WriteRatio*1_000_000) {
			buf := h.Bytes()
			buf[w.rng.Intn(len(buf))]++
			w.writes++
		}
		h.Release()
	}
	return nil
}

func (w *worker) coord() raster.Coord {
	switch w.bench.Access {
	case "zipf":
		return w.rng.ZipfCoord(w.layout, w.bench.Skew)
	case "scan":
		c := w.layout.Coord(w.next % w.layout.TotalBlocks())
		w.next++
		return c
	default:
		return w.rng.Coord(w.layout)
	}
}

func printBench(w io.Writer, res benchResult) error {
	if jsonOut {
		return printJSON(w, res)
	}

	fmt.Fprintf(w, "mode:        %s (%s, %d worker(s))\n", res.Mode, res.Policy, res.Workers)
	fmt.Fprintf(w, "requests:    %d (%d writes, %d timeouts)\n", res.Requests, res.Writes, res.Timeouts)
	fmt.Fprintf(w, "elapsed:     %s (%.0f ops/s)\n", res.Elapsed.Round(time.Millisecond), res.OpsPerSec)
	fmt.Fprintf(w, "capacity:    %d block(s)\n", res.Cache.Capacity)
	fmt.Fprintf(w, "hit ratio:   %.3f (%d hits, %d misses, %d prefetched)\n",
		res.Cache.HitRatio(), res.Cache.Hits, res.Cache.Misses, res.Cache.PrefetchHits)
	fmt.Fprintf(w, "evictions:   %d (%d write-backs)\n", res.Cache.Evictions, res.Cache.WriteBacks)
	fmt.Fprintf(w, "miss avg:    %s\n", time.Duration(res.Events.MissAvgNanos))
	fmt.Fprintf(w, "writer wait: %d (%d expired, avg %s)\n",
		res.Events.Waits, res.Events.WaitErrors, time.Duration(res.Events.WaitAvgNanos))
	return nil
}
