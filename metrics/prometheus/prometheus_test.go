package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rastercache/raster"
)

func TestObserver(t *testing.T) {
	o := NewObserver("test")

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(o))

	o.OnHit(raster.Coord{Band: 1})
	o.OnHit(raster.Coord{Band: 1})
	o.OnMiss(raster.Coord{Band: 0}, time.Millisecond, nil)
	o.OnEvict(raster.Coord{}, true)
	o.OnFlush(3, time.Millisecond, nil)
	o.OnWait(time.Millisecond, errors.New("timeout"))

	assert.Equal(t, 2.0, testutil.ToFloat64(o.requests.WithLabelValues("hit", "1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.requests.WithLabelValues("miss", "0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.evictions.WithLabelValues("true")))
	assert.Equal(t, 3.0, testutil.ToFloat64(o.flushes.WithLabelValues("success")))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Positive(t, n)
}
