package mapview

import (
	"context"
	"image"
	"log/slog"
	"math"
	"sync"
	"time"

	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"

	"github.com/olablt/gio-events/camera"
	"github.com/olablt/gio-events/events"
	"github.com/olablt/gio-events/region"
	"github.com/olablt/gio-events/tiles"
	"github.com/olablt/gio-events/tiles/worker"
)

type Options struct {
	Center  tiles.LatLng
	Zoom    int
	MinZoom int
	MaxZoom int

	// Pool loads tiles in the background. A small pool is created when nil.
	Pool   *worker.Pool
	Logger *slog.Logger
	// Refresh receives a value whenever the view needs a new frame outside
	// of input handling, e.g. a tile arrived or a camera animation started.
	Refresh chan<- struct{}
}

type MapView struct {
	TileManager *tiles.TileManager
	Center      tiles.LatLng
	Zoom        int
	MinZoom     int
	MaxZoom     int

	// OnReady is called once, after the first frame with a non-empty size.
	OnReady func()
	// OnSelect is called when a marker is clicked.
	OnSelect func(events.Marker)

	size           image.Point
	visibleTiles   []tiles.Tile
	metersPerPixel float64
	scale          scaleBar
	scaleLabel     labelOp
	imageOps       tiles.Cache[tileOp]
	ready          bool
	fit            *region.Region

	markers    []events.Marker
	markerTags map[int]*markerTag
	selected   int

	dragging bool
	lastPos  image.Point

	anim *camera.Animation

	mu          sync.Mutex
	pendingAnim *camera.Animation
	inflight    map[tiles.Tile]bool

	pool    *worker.Pool
	ownPool bool
	logger  *slog.Logger
	refresh chan<- struct{}
}

// tileOp keeps the GPU image op of a tile next to the image it was made from,
// so a placeholder replaced by the real tile gets a fresh op.
type tileOp struct {
	src image.Image
	op  paint.ImageOp
}

type markerTag struct {
	key int
}

func New(tm *tiles.TileManager, opts Options) *MapView {
	if opts.MaxZoom == 0 {
		opts.MaxZoom = 19
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	mv := &MapView{
		TileManager: tm,
		Center:      opts.Center,
		MinZoom:     opts.MinZoom,
		MaxZoom:     opts.MaxZoom,
		imageOps:    tiles.NewMapCache[tileOp](),
		markerTags:  make(map[int]*markerTag),
		selected:    -1,
		inflight:    make(map[tiles.Tile]bool),
		pool:        opts.Pool,
		logger:      opts.Logger,
		refresh:     opts.Refresh,
	}
	mv.Zoom = max(mv.MinZoom, min(opts.Zoom, mv.MaxZoom))
	if mv.pool == nil {
		mv.pool = worker.NewPool(4, 64, 15*time.Second, opts.Logger)
		mv.ownPool = true
	}
	return mv
}

// FitRegion centers the map on r and picks the largest zoom at which the
// whole region is visible. Before the first layout the fit is deferred until
// the view knows its size.
func (mv *MapView) FitRegion(r region.Region) {
	if mv.size.X <= 0 || mv.size.Y <= 0 {
		mv.fit = &r
		return
	}
	mv.Center = r.Center
	mv.Zoom = tiles.ZoomForSpan(r.Center, r.LatitudeDelta, r.LongitudeDelta, mv.size, mv.MinZoom, mv.MaxZoom)
	mv.updateVisibleTiles()
	mv.logger.Debug("fitted region", "center", r.Center, "zoom", mv.Zoom, "size", mv.size)
}

// SetMarkers replaces the markers. Tags of markers whose key survives are
// kept, so pointer handling stays attached to the same pin.
func (mv *MapView) SetMarkers(markers []events.Marker) {
	mv.markers = markers
	tags := make(map[int]*markerTag, len(markers))
	for _, m := range markers {
		tag, ok := mv.markerTags[m.Key]
		if !ok {
			tag = &markerTag{key: m.Key}
		}
		tags[m.Key] = tag
	}
	mv.markerTags = tags
	if _, ok := tags[mv.selected]; !ok {
		mv.selected = -1
	}
}

func (mv *MapView) Markers() []events.Marker {
	return mv.markers
}

// Selected returns the key of the selected marker, or -1.
func (mv *MapView) Selected() int {
	return mv.selected
}

// Ready reports whether the first frame has been laid out.
func (mv *MapView) Ready() bool {
	return mv.ready
}

// AnimateCamera moves the center to the given point over duration. It is
// safe to call from any goroutine; the animation starts on the next frame.
func (mv *MapView) AnimateCamera(center tiles.LatLng, duration time.Duration) {
	mv.mu.Lock()
	mv.pendingAnim = &camera.Animation{To: center, Duration: duration}
	mv.mu.Unlock()
	mv.invalidate()
}

// Invalidate asks the window for a new frame.
func (mv *MapView) Invalidate() {
	mv.invalidate()
}

// Close stops background tile loading started by the view.
func (mv *MapView) Close() {
	if mv.ownPool {
		mv.pool.Shutdown()
	}
}

func (mv *MapView) Layout(gtx layout.Context) layout.Dimensions {
	if size := gtx.Constraints.Max; size != mv.size {
		mv.size = size
		if mv.fit != nil {
			r := *mv.fit
			mv.fit = nil
			mv.FitRegion(r)
		}
		mv.updateVisibleTiles()
	}

	mv.processMarkerEvents(gtx)
	mv.processEvents(gtx)
	mv.stepAnimation(gtx)

	// Confine the area of interest to a gtx Max
	defer clip.Rect{Max: mv.size}.Push(gtx.Ops).Pop()
	event.Op(gtx.Ops, mv)

	mv.drawTiles(gtx)
	mv.drawMarkers(gtx)
	mv.drawScale(gtx)

	if !mv.ready && mv.size.X > 0 && mv.size.Y > 0 {
		mv.ready = true
		mv.logger.Debug("map ready", "center", mv.Center, "zoom", mv.Zoom)
		if mv.OnReady != nil {
			mv.OnReady()
		}
	}

	return layout.Dimensions{Size: mv.size}
}

func (mv *MapView) processEvents(gtx layout.Context) {
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  mv,
			Kinds:   pointer.Scroll | pointer.Drag | pointer.Press | pointer.Release | pointer.Cancel,
			ScrollY: pointer.ScrollRange{Min: -10, Max: 10},
		})
		if !ok {
			break
		}

		x, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		pos := x.Position.Round()
		switch x.Kind {
		case pointer.Press:
			mv.dragging = true
			mv.lastPos = pos
		case pointer.Scroll:
			switch {
			case x.Scroll.Y < 0:
				mv.zoomAround(pos, mv.Zoom+1)
			case x.Scroll.Y > 0:
				mv.zoomAround(pos, mv.Zoom-1)
			}
		case pointer.Drag:
			if mv.dragging {
				mv.pan(pos.Sub(mv.lastPos))
				mv.lastPos = pos
			}
		case pointer.Release, pointer.Cancel:
			mv.dragging = false
		}
	}
}

func (mv *MapView) processMarkerEvents(gtx layout.Context) {
	for key, tag := range mv.markerTags {
		for {
			ev, ok := gtx.Event(pointer.Filter{Target: tag, Kinds: pointer.Press})
			if !ok {
				break
			}
			if e, ok := ev.(pointer.Event); ok && e.Kind == pointer.Press {
				mv.selectMarker(key)
			}
		}
	}
}

func (mv *MapView) selectMarker(key int) {
	for _, m := range mv.markers {
		if m.Key != key {
			continue
		}
		mv.selected = key
		mv.logger.Info("marker selected", "key", key, "title", m.Title, "lat", m.Position.Lat, "lng", m.Position.Lng)
		if mv.OnSelect != nil {
			mv.OnSelect(m)
		}
		return
	}
}

// pan moves the map by a screen delta in pixels, dragging the content along.
func (mv *MapView) pan(delta image.Point) {
	if delta == (image.Point{}) {
		return
	}
	mv.anim = nil
	zoom := float64(mv.Zoom)
	wx, wy := tiles.CalculateWorldCoordinates(mv.Center, zoom)
	mv.Center = tiles.WorldToLatLng(wx-float64(delta.X), wy-float64(delta.Y), zoom)
	mv.updateVisibleTiles()
}

// zoomAround changes zoom keeping the geographic point under pos fixed.
func (mv *MapView) zoomAround(pos image.Point, newZoom int) {
	oldZoom := mv.Zoom
	newZoom = max(mv.MinZoom, min(newZoom, mv.MaxZoom))
	if newZoom == oldZoom {
		return
	}
	mv.anim = nil

	offX := float64(pos.X - mv.size.X/2)
	offY := float64(pos.Y - mv.size.Y/2)

	worldX, worldY := tiles.CalculateWorldCoordinates(mv.Center, float64(oldZoom))
	factor := math.Pow(2, float64(newZoom-oldZoom))
	newX := (worldX+offX)*factor - offX
	newY := (worldY+offY)*factor - offY

	mv.Zoom = newZoom
	mv.Center = tiles.WorldToLatLng(newX, newY, float64(newZoom))
	mv.updateVisibleTiles()
}

func (mv *MapView) stepAnimation(gtx layout.Context) {
	mv.mu.Lock()
	pending := mv.pendingAnim
	mv.pendingAnim = nil
	mv.mu.Unlock()

	if pending != nil {
		pending.From = mv.Center
		pending.Start = gtx.Now
		mv.anim = pending
		mv.dragging = false
	}
	if mv.anim == nil {
		return
	}

	center, done := mv.anim.At(gtx.Now)
	mv.Center = center
	mv.updateVisibleTiles()
	if done {
		mv.anim = nil
		return
	}
	gtx.Execute(op.InvalidateCmd{})
}

// ScreenPoint returns the position of ll in view pixels.
func (mv *MapView) ScreenPoint(ll tiles.LatLng) image.Point {
	wx, wy := tiles.CalculateWorldCoordinates(ll, float64(mv.Zoom))
	return mv.worldToScreen(wx, wy)
}

func (mv *MapView) worldToScreen(wx, wy float64) image.Point {
	cx, cy := tiles.CalculateWorldCoordinates(mv.Center, float64(mv.Zoom))
	return image.Point{
		X: mv.size.X/2 + int(math.Round(wx-cx)),
		Y: mv.size.Y/2 + int(math.Round(wy-cy)),
	}
}

func (mv *MapView) drawTiles(gtx layout.Context) {
	for _, tile := range mv.visibleTiles {
		img, ok := mv.TileManager.Cached(tile)
		if !ok {
			mv.requestTile(tile)
			continue
		}

		key := tiles.GetTileKey(tile)
		cached, ok := mv.imageOps.Get(key)
		if !ok || cached.src != img {
			cached = tileOp{src: img, op: paint.NewImageOp(img)}
			mv.imageOps.Set(key, cached)
		}

		nw := mv.worldToScreen(float64(tile.X*tiles.TileSize), float64(tile.Y*tiles.TileSize))
		transform := op.Offset(nw).Push(gtx.Ops)
		cached.op.Add(gtx.Ops)
		paint.PaintOp{}.Add(gtx.Ops)
		transform.Pop()
	}
}

// requestTile queues a background load unless one is already running.
func (mv *MapView) requestTile(tile tiles.Tile) {
	mv.mu.Lock()
	if mv.inflight[tile] {
		mv.mu.Unlock()
		return
	}
	mv.inflight[tile] = true
	mv.mu.Unlock()

	ok := mv.pool.Submit(worker.Task{
		Name: tiles.GetTileKey(tile),
		Work: func(context.Context) error {
			defer func() {
				mv.mu.Lock()
				delete(mv.inflight, tile)
				mv.mu.Unlock()
			}()
			_, err := mv.TileManager.GetTile(tile)
			if err != nil {
				mv.logger.Warn("error loading tile", "tile", tile, "error", err)
				return err
			}
			mv.invalidate()
			return nil
		},
	})
	if !ok {
		// queue full, retry on a later frame
		mv.mu.Lock()
		delete(mv.inflight, tile)
		mv.mu.Unlock()
	}
}

func (mv *MapView) updateVisibleTiles() {
	mv.metersPerPixel = tiles.CalculateMetersPerPixel(mv.Center.Lat, mv.Zoom)
	mv.visibleTiles = tiles.CalculateVisibleTiles(mv.Center, mv.Zoom, mv.size)
}

// MetersPerPixel returns the ground resolution at the current center and zoom.
func (mv *MapView) MetersPerPixel() float64 {
	return mv.metersPerPixel
}

func (mv *MapView) invalidate() {
	if mv.refresh == nil {
		return
	}
	select {
	case mv.refresh <- struct{}{}:
	default:
	}
}
