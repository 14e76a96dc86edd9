package tiles

import (
	"context"
	"fmt"
	"image"
	_ "image/png"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultOSMURL       = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultUserAgent    = "gio-events/1.0 (+https://github.com/olablt/gio-events)"
	defaultFetchTimeout = 10 * time.Second
)

type OSMTileProvider struct {
	client    *http.Client
	url       string
	userAgent string
	logger    *slog.Logger
}

// NewOSMTileProvider returns a provider for a slippy-map tile server. The url
// template uses {z}, {x} and {y} placeholders; empty values fall back to the
// OpenStreetMap defaults.
func NewOSMTileProvider(url, userAgent string, timeout time.Duration, logger *slog.Logger) *OSMTileProvider {
	if url == "" {
		url = DefaultOSMURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OSMTileProvider{
		client:    &http.Client{Timeout: timeout},
		url:       url,
		userAgent: userAgent,
		logger:    logger,
	}
}

func (p *OSMTileProvider) GetTile(tile Tile) (image.Image, error) {
	return p.GetTileContext(context.Background(), tile)
}

func (p *OSMTileProvider) GetTileContext(ctx context.Context, tile Tile) (image.Image, error) {
	url := p.GetTileURL(tile)
	p.logger.DebugContext(ctx, "requesting tile", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for tile %v: %w", tile, err)
	}

	// tile.openstreetmap.org rejects requests without an identifying agent
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "image/png,image/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tile %v: %w", tile, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch tile %v: unexpected status code: %d", tile, resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode tile %v: %w", tile, err)
	}

	p.logger.DebugContext(ctx, "tile loaded", "tile", GetTileKey(tile))
	return img, nil
}

// GetTileURL returns the URL for downloading the map tile
func (p *OSMTileProvider) GetTileURL(tile Tile) string {
	r := strings.NewReplacer(
		"{z}", fmt.Sprint(tile.Zoom),
		"{x}", fmt.Sprint(tile.X),
		"{y}", fmt.Sprint(tile.Y),
	)
	return r.Replace(p.url)
}
