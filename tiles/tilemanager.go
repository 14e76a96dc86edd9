package tiles

import (
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/olablt/gio-events/metrics"
)

type TileProvider interface {
	GetTile(tile Tile) (image.Image, error)
}

// TileManager serves tiles from a cache in front of a provider.
type TileManager struct {
	cache    Cache[image.Image]
	provider TileProvider
	name     string
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu     sync.RWMutex
	onLoad func()

	storeMu sync.Mutex
}

type ManagerOption func(*TileManager)

// WithCache replaces the default unbounded map cache.
func WithCache(cache Cache[image.Image]) ManagerOption {
	return func(tm *TileManager) { tm.cache = cache }
}

// WithMetrics records loads and errors under the given provider label.
func WithMetrics(m *metrics.Metrics, providerName string) ManagerOption {
	return func(tm *TileManager) {
		tm.metrics = m
		tm.name = providerName
	}
}

func WithLogger(logger *slog.Logger) ManagerOption {
	return func(tm *TileManager) { tm.logger = logger }
}

func NewTileManager(provider TileProvider, opts ...ManagerOption) *TileManager {
	tm := &TileManager{
		cache:    NewMapCache[image.Image](),
		provider: provider,
		name:     "default",
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

func (tm *TileManager) GetCache() Cache[image.Image] {
	return tm.cache
}

func (tm *TileManager) SetOnLoadCallback(callback func()) {
	tm.mu.Lock()
	tm.onLoad = callback
	tm.mu.Unlock()
}

// Cached returns the tile only if it is already in the cache.
func (tm *TileManager) Cached(tile Tile) (image.Image, bool) {
	return tm.cache.Get(GetTileKey(tile))
}

func (tm *TileManager) GetTile(tile Tile) (image.Image, error) {
	key := GetTileKey(tile)

	if img, ok := tm.cache.Get(key); ok {
		if tm.metrics != nil {
			tm.metrics.TileCacheHits.Inc()
		}
		return img, nil
	}

	start := time.Now()
	img, err := tm.provider.GetTile(tile)
	if tm.metrics != nil {
		tm.metrics.TileFetchSeconds.WithLabelValues(tm.name).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if tm.metrics != nil {
			tm.metrics.TileErrors.WithLabelValues(tm.name).Inc()
		}
		tm.logger.Debug("tile load failed", "tile", key, "error", err)
		return nil, err
	}

	tm.store(key, img)
	if tm.metrics != nil {
		tm.metrics.TilesLoaded.WithLabelValues(tm.name).Inc()
	}

	tm.mu.RLock()
	onLoad := tm.onLoad
	tm.mu.RUnlock()
	if onLoad != nil {
		onLoad()
	}
	return img, nil
}

// Set caches a tile loaded outside GetTile, replacing any placeholder.
func (tm *TileManager) Set(tile Tile, img image.Image) {
	tm.store(GetTileKey(tile), img)
}

// store caches img. A Placeholder is only stored when the key is empty, so a
// real tile that arrived first is never overwritten by its stand-in.
func (tm *TileManager) store(key string, img image.Image) {
	tm.storeMu.Lock()
	defer tm.storeMu.Unlock()

	if _, temp := img.(Placeholder); temp {
		if _, ok := tm.cache.Get(key); ok {
			return
		}
	}
	tm.cache.Set(key, img)
}

// Invalidate drops a tile from the cache so the next GetTile asks the provider again.
func (tm *TileManager) Invalidate(tile Tile) {
	tm.cache.Delete(GetTileKey(tile))
}
