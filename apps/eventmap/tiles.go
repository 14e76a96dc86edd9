package main

import (
	"image"
	"log/slog"

	"github.com/olablt/gio-events/config"
	"github.com/olablt/gio-events/metrics"
	"github.com/olablt/gio-events/tiles"
)

// newTileManager builds the configured provider stack. With the combined
// provider the map shows local placeholder tiles until the OSM tile arrives,
// then caches the OSM tile over the placeholder and asks for a redraw.
func newTileManager(cfg config.TilesConfig, logger *slog.Logger, m *metrics.Metrics, redraw func()) *tiles.TileManager {
	osm := func() *tiles.OSMTileProvider {
		return tiles.NewOSMTileProvider(cfg.URL, cfg.UserAgent, cfg.Timeout, logger)
	}

	switch cfg.Provider {
	case config.ProviderOSM:
		tm := tiles.NewTileManager(osm(), tiles.WithMetrics(m, config.ProviderOSM), tiles.WithLogger(logger))
		tm.SetOnLoadCallback(redraw)
		return tm
	case config.ProviderLocal:
		return tiles.NewTileManager(tiles.NewLocalTileProvider(), tiles.WithMetrics(m, config.ProviderLocal), tiles.WithLogger(logger))
	default:
		combined := tiles.NewCombinedTileProvider(osm(), tiles.NewLocalTileProvider())
		tm := tiles.NewTileManager(combined, tiles.WithMetrics(m, config.ProviderCombined), tiles.WithLogger(logger))
		combined.SetOnLoadCallback(func(tile tiles.Tile, img image.Image) {
			tm.Set(tile, img)
			redraw()
		})
		return tm
	}
}
