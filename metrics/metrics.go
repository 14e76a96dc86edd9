package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TilesLoaded      *prometheus.CounterVec
	TileErrors       *prometheus.CounterVec
	TileFetchSeconds *prometheus.HistogramVec
	TileCacheHits    prometheus.Counter
	MarkersPlaced    prometheus.Gauge
	Recenters        *prometheus.CounterVec
	Regions          *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		TilesLoaded: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "eventmap_tiles_loaded_total",
			Help: "Total number of map tiles loaded from a provider.",
		}, []string{"provider"}),
		TileErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "eventmap_tile_errors_total",
			Help: "Total number of failed tile loads.",
		}, []string{"provider"}),
		TileFetchSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventmap_tile_fetch_duration_seconds",
			Help:    "Duration of tile requests to a provider.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		TileCacheHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "eventmap_tile_cache_hits_total",
			Help: "Total number of tiles served from the in-memory cache.",
		}),
		MarkersPlaced: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "eventmap_markers_placed",
			Help: "Current number of event markers on the map.",
		}),
		Recenters: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "eventmap_recenters_total",
			Help: "Recenter commands by outcome (scheduled, fired, cancelled).",
		}, []string{"outcome"}),
		Regions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "eventmap_region_computations_total",
			Help: "Initial region computations by status.",
		}, []string{"status"}),
	}
}
