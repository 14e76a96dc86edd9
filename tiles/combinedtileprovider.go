package tiles

import (
	"fmt"
	"image"
	"sync"
)

// Placeholder wraps a stand-in tile served while the real one loads. The
// tile manager never lets a placeholder replace a cached tile.
type Placeholder struct {
	image.Image
}

// CombinedTileProvider answers with the fallback tile while the primary tile
// loads in the background, then serves the primary tile once it arrives.
type CombinedTileProvider struct {
	primary  TileProvider
	fallback TileProvider

	loading   map[string]bool
	loadingMu sync.Mutex

	cache Cache[image.Image]

	callbackMu sync.RWMutex
	onLoadFunc func(Tile, image.Image)
}

func NewCombinedTileProvider(primary, fallback TileProvider) *CombinedTileProvider {
	return &CombinedTileProvider{
		primary:  primary,
		fallback: fallback,
		loading:  make(map[string]bool),
		cache:    NewMapCache[image.Image](),
	}
}

// SetOnLoadCallback registers a function called with the primary tile once it
// finished loading in the background.
func (p *CombinedTileProvider) SetOnLoadCallback(callback func(Tile, image.Image)) {
	p.callbackMu.Lock()
	p.onLoadFunc = callback
	p.callbackMu.Unlock()
}

func (p *CombinedTileProvider) GetTile(tile Tile) (image.Image, error) {
	key := GetTileKey(tile)

	if img, ok := p.cache.Get(key); ok {
		return img, nil
	}

	fallbackImg, err := p.fallback.GetTile(tile)
	if err != nil {
		// no placeholder, so wait for the primary
		img, perr := p.primary.GetTile(tile)
		if perr != nil {
			return nil, fmt.Errorf("both primary and fallback providers failed: %w", perr)
		}
		p.cache.Set(key, img)
		return img, nil
	}

	p.loadingMu.Lock()
	if p.loading[key] {
		p.loadingMu.Unlock()
		return Placeholder{fallbackImg}, nil
	}
	p.loading[key] = true
	p.loadingMu.Unlock()

	go p.loadPrimary(tile, key)

	return Placeholder{fallbackImg}, nil
}

func (p *CombinedTileProvider) loadPrimary(tile Tile, key string) {
	defer func() {
		p.loadingMu.Lock()
		delete(p.loading, key)
		p.loadingMu.Unlock()
	}()

	img, err := p.primary.GetTile(tile)
	if err != nil {
		return
	}
	p.cache.Set(key, img)

	p.callbackMu.RLock()
	onLoad := p.onLoadFunc
	p.callbackMu.RUnlock()
	if onLoad != nil {
		onLoad(tile, img)
	}
}
