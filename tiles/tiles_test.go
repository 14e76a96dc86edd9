package tiles_test

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/olablt/gio-events/metrics"
	"github.com/olablt/gio-events/tiles"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	mu    sync.Mutex
	calls int
	err   error
	img   image.Image
	gate  chan struct{}
}

func (s *stubProvider) GetTile(tiles.Tile) (image.Image, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.img, nil
}

func (s *stubProvider) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func solid(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, c)
	return img
}

func TestLatLngToTile_KnownValues(t *testing.T) {
	assert.Equal(t, tiles.Tile{X: 0, Y: 0, Zoom: 0}, tiles.LatLngToTile(tiles.LatLng{Lat: 10, Lng: 10}, 0))
	assert.Equal(t, tiles.Tile{X: 1, Y: 0, Zoom: 1}, tiles.LatLngToTile(tiles.LatLng{Lat: 10, Lng: 10}, 1))
	assert.Equal(t, tiles.Tile{X: 0, Y: 1, Zoom: 1}, tiles.LatLngToTile(tiles.LatLng{Lat: -10, Lng: -10}, 1))
}

func TestWorldCoordinatesRoundTrip(t *testing.T) {
	ll := tiles.LatLng{Lat: 49.271412, Lng: -122.9725585}
	x, y := tiles.CalculateWorldCoordinates(ll, 15)
	back := tiles.WorldToLatLng(x, y, 15)

	assert.InDelta(t, ll.Lat, back.Lat, 1e-9)
	assert.InDelta(t, ll.Lng, back.Lng, 1e-9)
}

func TestTileToLatLng_NorthWestCorner(t *testing.T) {
	nw := tiles.TileToLatLng(tiles.Tile{X: 0, Y: 0, Zoom: 3})
	assert.InDelta(t, -180, nw.Lng, 1e-9)
	assert.InDelta(t, 85.0511, nw.Lat, 1e-3)
}

func TestConstrainTile(t *testing.T) {
	assert.Equal(t, tiles.Tile{X: 0, Y: 3, Zoom: 2}, tiles.ConstrainTile(tiles.Tile{X: -4, Y: 9, Zoom: 2}))
}

func TestCalculateVisibleTiles_Unique(t *testing.T) {
	visible := tiles.CalculateVisibleTiles(tiles.LatLng{}, 0, image.Pt(800, 600))
	assert.Equal(t, []tiles.Tile{{Zoom: 0}}, visible)

	visible = tiles.CalculateVisibleTiles(tiles.LatLng{Lat: 49.27, Lng: -122.97}, 14, image.Pt(800, 600))
	assert.Len(t, visible, 5*4)
}

func TestZoomForSpan(t *testing.T) {
	center := tiles.LatLng{Lat: 49.271412, Lng: -122.9725585}
	size := image.Pt(1600, 800)
	latDelta, lngDelta := 0.017986, 0.035972

	zoom := tiles.ZoomForSpan(center, latDelta, lngDelta, size, 0, 19)

	fits := func(z int) bool {
		x0, y0 := tiles.CalculateWorldCoordinates(tiles.LatLng{Lat: center.Lat + latDelta/2, Lng: center.Lng - lngDelta/2}, float64(z))
		x1, y1 := tiles.CalculateWorldCoordinates(tiles.LatLng{Lat: center.Lat - latDelta/2, Lng: center.Lng + lngDelta/2}, float64(z))
		return x1-x0 <= float64(size.X) && y1-y0 <= float64(size.Y)
	}
	assert.True(t, fits(zoom))
	assert.False(t, fits(zoom+1))
}

func TestZoomForSpan_Clamps(t *testing.T) {
	center := tiles.LatLng{Lat: 10, Lng: 10}
	assert.Equal(t, 16, tiles.ZoomForSpan(center, 1e-7, 1e-7, image.Pt(800, 600), 2, 16))
	assert.Equal(t, 2, tiles.ZoomForSpan(center, 120, 300, image.Pt(800, 600), 2, 16))
	assert.Equal(t, 2, tiles.ZoomForSpan(center, 1, 1, image.Point{}, 2, 16))
}

func TestTileManager_CachesTiles(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	provider := &stubProvider{img: solid(color.White)}

	var loads atomic.Int32
	tm := tiles.NewTileManager(provider, tiles.WithMetrics(m, "stub"))
	tm.SetOnLoadCallback(func() { loads.Add(1) })

	tile := tiles.Tile{X: 1, Y: 2, Zoom: 3}
	_, ok := tm.Cached(tile)
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		img, err := tm.GetTile(tile)
		require.NoError(t, err)
		assert.Equal(t, provider.img, img)
	}

	assert.Equal(t, 1, provider.Calls())
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, 1, tm.GetCache().Len())
	assert.InDelta(t, 1, testutil.ToFloat64(m.TilesLoaded.WithLabelValues("stub")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.TileCacheHits), 0)

	tm.Invalidate(tile)
	_, err := tm.GetTile(tile)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.Calls())
}

func TestTileManager_Errors(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	boom := errors.New("boom")
	tm := tiles.NewTileManager(&stubProvider{err: boom}, tiles.WithMetrics(m, "stub"))

	_, err := tm.GetTile(tiles.Tile{})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, tm.GetCache().Len())
	assert.InDelta(t, 1, testutil.ToFloat64(m.TileErrors.WithLabelValues("stub")), 0)
}

func TestCombinedTileProvider_FallbackThenPrimary(t *testing.T) {
	primary := &stubProvider{img: solid(color.Black), gate: make(chan struct{})}
	fallback := &stubProvider{img: solid(color.White)}
	p := tiles.NewCombinedTileProvider(primary, fallback)

	loaded := make(chan tiles.Tile, 1)
	p.SetOnLoadCallback(func(tile tiles.Tile, img image.Image) {
		assert.Equal(t, primary.img, img)
		loaded <- tile
	})

	tile := tiles.Tile{X: 3, Y: 4, Zoom: 5}
	img, err := p.GetTile(tile)
	require.NoError(t, err)
	assert.Equal(t, tiles.Placeholder{Image: fallback.img}, img)

	// still loading, no second background fetch
	img, err = p.GetTile(tile)
	require.NoError(t, err)
	assert.Equal(t, tiles.Placeholder{Image: fallback.img}, img)

	close(primary.gate)
	select {
	case got := <-loaded:
		assert.Equal(t, tile, got)
	case <-time.After(time.Second):
		t.Fatal("primary tile never loaded")
	}

	img, err = p.GetTile(tile)
	require.NoError(t, err)
	assert.Equal(t, primary.img, img)
	assert.Equal(t, 1, primary.Calls())
}

// racingProvider delivers the real tile to the manager before GetTile
// returns its placeholder.
type racingProvider struct {
	tm          *tiles.TileManager
	real, stand image.Image
}

func (p *racingProvider) GetTile(tile tiles.Tile) (image.Image, error) {
	p.tm.Set(tile, p.real)
	return tiles.Placeholder{Image: p.stand}, nil
}

func TestTileManager_PlaceholderNeverReplacesTile(t *testing.T) {
	p := &racingProvider{real: solid(color.Black), stand: solid(color.White)}
	tm := tiles.NewTileManager(p)
	p.tm = tm

	tile := tiles.Tile{X: 1, Y: 1, Zoom: 2}
	img, err := tm.GetTile(tile)
	require.NoError(t, err)
	assert.Equal(t, tiles.Placeholder{Image: p.stand}, img)

	cached, ok := tm.Cached(tile)
	require.True(t, ok)
	assert.Equal(t, p.real, cached)
}

func TestTileManager_CombinedEndsWithPrimary(t *testing.T) {
	for i := 0; i < 50; i++ {
		primary := &stubProvider{img: solid(color.Black)}
		combined := tiles.NewCombinedTileProvider(primary, &stubProvider{img: solid(color.White)})
		tm := tiles.NewTileManager(combined)

		loaded := make(chan struct{})
		combined.SetOnLoadCallback(func(tile tiles.Tile, img image.Image) {
			tm.Set(tile, img)
			close(loaded)
		})

		tile := tiles.Tile{X: i, Y: 0, Zoom: 8}
		_, err := tm.GetTile(tile)
		require.NoError(t, err)
		select {
		case <-loaded:
		case <-time.After(time.Second):
			t.Fatal("primary tile never loaded")
		}

		cached, ok := tm.Cached(tile)
		require.True(t, ok)
		assert.Equal(t, primary.img, cached, "iteration %d", i)
	}
}

func TestCombinedTileProvider_NoFallback(t *testing.T) {
	primary := &stubProvider{img: solid(color.Black)}
	p := tiles.NewCombinedTileProvider(primary, &stubProvider{err: errors.New("no placeholder")})

	img, err := p.GetTile(tiles.Tile{})
	require.NoError(t, err)
	assert.Equal(t, primary.img, img)

	failing := tiles.NewCombinedTileProvider(&stubProvider{err: errors.New("down")}, &stubProvider{err: errors.New("no placeholder")})
	_, err = failing.GetTile(tiles.Tile{})
	require.Error(t, err)
}

func TestLocalTileProvider(t *testing.T) {
	img, err := tiles.NewLocalTileProvider().GetTile(tiles.Tile{X: 1, Y: 1, Zoom: 1})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, tiles.TileSize, tiles.TileSize), img.Bounds())

	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, [3]uint32{100 * 0x101, 100 * 0x101, 100 * 0x101}, [3]uint32{r, g, b})
}

func TestOSMTileProvider(t *testing.T) {
	var gotPath, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.UserAgent()
		if r.URL.Path == "/9/9/9.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, solid(color.White))
	}))
	defer srv.Close()

	p := tiles.NewOSMTileProvider(srv.URL+"/{z}/{x}/{y}.png", "eventmap-test", time.Second, nil)
	assert.Equal(t, srv.URL+"/14/2600/5600.png", p.GetTileURL(tiles.Tile{X: 2600, Y: 5600, Zoom: 14}))

	img, err := p.GetTile(tiles.Tile{X: 1, Y: 2, Zoom: 3})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1, 1), img.Bounds())
	assert.Equal(t, "/3/1/2.png", gotPath)
	assert.Equal(t, "eventmap-test", gotAgent)

	_, err = p.GetTile(tiles.Tile{X: 9, Y: 9, Zoom: 9})
	require.ErrorContains(t, err, "unexpected status code: 404")
}

func TestMapCache(t *testing.T) {
	c := tiles.NewMapCache[int]()
	c.Set("a", 1)
	c.Set("b", 2)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}
