// Package prometheus provides a metrics.Observer backed by Prometheus
// collectors.
//
//	obs := prometheus.NewObserver("rastercache")
//	prom.MustRegister(obs)
//	cache, _ := rastercache.New(r, rastercache.WithObserver(obs))
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/rastercache/metrics"
	"github.com/hupe1980/rastercache/raster"
)

var _ metrics.Observer = (*Observer)(nil)
var _ prometheus.Collector = (*Observer)(nil)

// Observer records cache events as Prometheus metrics. It is itself a
// prometheus.Collector and must be registered by the caller.
type Observer struct {
	requests    *prometheus.CounterVec
	missLatency *prometheus.HistogramVec
	evictions   *prometheus.CounterVec
	flushes     *prometheus.CounterVec
	waitLatency *prometheus.HistogramVec
}

// NewObserver creates an Observer whose metric names start with namespace.
func NewObserver(namespace string) *Observer {
	return &Observer{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_requests_total",
			Help:      "Block requests by result (hit or miss) and band.",
		}, []string{"result", "band"}),
		missLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "block_load_seconds",
			Help:      "Latency of cache misses including victim write-back.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_evictions_total",
			Help:      "Evicted blocks by whether they were written back.",
		}, []string{"flushed"}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_flushed_total",
			Help:      "Blocks written back by explicit flush or close.",
		}, []string{"status"}),
		waitLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "block_wait_seconds",
			Help:      "Time writers spent waiting for exclusive block access.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// OnHit implements metrics.Observer.
func (o *Observer) OnHit(c raster.Coord) {
	o.requests.WithLabelValues("hit", strconv.Itoa(c.Band)).Inc()
}

// OnMiss implements metrics.Observer.
func (o *Observer) OnMiss(c raster.Coord, d time.Duration, err error) {
	o.requests.WithLabelValues("miss", strconv.Itoa(c.Band)).Inc()
	o.missLatency.WithLabelValues(status(err)).Observe(d.Seconds())
}

// OnEvict implements metrics.Observer.
func (o *Observer) OnEvict(_ raster.Coord, flushed bool) {
	o.evictions.WithLabelValues(strconv.FormatBool(flushed)).Inc()
}

// OnFlush implements metrics.Observer.
func (o *Observer) OnFlush(blocks int, _ time.Duration, err error) {
	o.flushes.WithLabelValues(status(err)).Add(float64(blocks))
}

// OnWait implements metrics.Observer.
func (o *Observer) OnWait(d time.Duration, err error) {
	o.waitLatency.WithLabelValues(status(err)).Observe(d.Seconds())
}

// Describe implements prometheus.Collector.
func (o *Observer) Describe(ch chan<- *prometheus.Desc) {
	o.requests.Describe(ch)
	o.missLatency.Describe(ch)
	o.evictions.Describe(ch)
	o.flushes.Describe(ch)
	o.waitLatency.Describe(ch)
}

// Collect implements prometheus.Collector.
func (o *Observer) Collect(ch chan<- prometheus.Metric) {
	o.requests.Collect(ch)
	o.missLatency.Collect(ch)
	o.evictions.Collect(ch)
	o.flushes.Collect(ch)
	o.waitLatency.Collect(ch)
}
