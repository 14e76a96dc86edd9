package metrics_test

import (
	"testing"

	"github.com/olablt/gio-events/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	m.TilesLoaded.WithLabelValues("osm").Inc()
	m.TileErrors.WithLabelValues("osm").Inc()
	m.TileFetchSeconds.WithLabelValues("osm").Observe(0.2)
	m.TileCacheHits.Inc()
	m.MarkersPlaced.Set(11)
	m.Recenters.WithLabelValues("fired").Inc()
	m.Regions.WithLabelValues("ok").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 7)

	assert.InDelta(t, 11, testutil.ToFloat64(m.MarkersPlaced), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Recenters.WithLabelValues("fired")), 0)
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewMetrics(reg)

	assert.Panics(t, func() {
		metrics.NewMetrics(reg)
	})
}
