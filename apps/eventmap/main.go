package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"gioui.org/app"
	"gioui.org/io/system"
	"gioui.org/op"
	"gioui.org/unit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/olablt/gio-events/camera"
	"github.com/olablt/gio-events/config"
	"github.com/olablt/gio-events/events"
	"github.com/olablt/gio-events/logging"
	"github.com/olablt/gio-events/mapview"
	"github.com/olablt/gio-events/metrics"
	"github.com/olablt/gio-events/region"
	"github.com/olablt/gio-events/tiles"
	"github.com/olablt/gio-events/tiles/worker"
)

type application struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	center   tiles.LatLng
	view     *mapview.MapView
	recenter *camera.Recenter
	pool     *worker.Pool
	refresh  chan struct{}
	ready    atomic.Bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Env, os.Stdout)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	a, err := newApplication(cfg, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Port > 0 {
		g.Go(func() error {
			return serveMonitoring(gctx, logger, newMonitoringRouter(reg, a.ready.Load), cfg.Metrics.Port)
		})
	}

	go func() {
		w := new(app.Window)
		w.Option(
			app.Title(cfg.Window.Title),
			app.Size(unit.Dp(cfg.Window.Width), unit.Dp(cfg.Window.Height)),
		)

		g.Go(func() error {
			a.forwardRefresh(gctx, w)
			return nil
		})
		g.Go(func() error {
			// closing the window ends every other goroutine
			defer stop()
			return a.loop(w)
		})

		err := g.Wait()
		a.shutdown()
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Application stopped with error", "error", err)
			os.Exit(1)
		}
		logger.Info("Application stopped gracefully.")
		os.Exit(0)
	}()
	app.Main()
}

func newApplication(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*application, error) {
	list, err := loadEvents(cfg.Events.File)
	if err != nil {
		return nil, err
	}

	a := &application{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		center:  tiles.LatLng{Lat: cfg.Map.CenterLat, Lng: cfg.Map.CenterLng},
		refresh: make(chan struct{}, 1),
	}

	a.pool = worker.NewPool(cfg.Tiles.Workers, cfg.Tiles.Queue, cfg.Tiles.Timeout, logger)
	tm := newTileManager(cfg.Tiles, logger, m, a.invalidate)

	a.view = mapview.New(tm, mapview.Options{
		Center:  a.center,
		Zoom:    cfg.Map.MinZoom,
		MinZoom: cfg.Map.MinZoom,
		MaxZoom: cfg.Map.MaxZoom,
		Pool:    a.pool,
		Logger:  logger,
		Refresh: a.refresh,
	})

	markers := events.Markers(list)
	a.view.SetMarkers(markers)
	m.MarkersPlaced.Set(float64(len(markers)))
	logger.Info("Markers placed", "count", len(markers))

	a.recenter = camera.NewRecenter(a.view, a.center,
		camera.WithDelay(cfg.Camera.RecenterDelay),
		camera.WithDuration(cfg.Camera.AnimationDuration),
		camera.WithLogger(logger),
		camera.WithMetrics(m),
	)
	a.view.OnReady = func() {
		a.ready.Store(true)
		a.recenter.OnMapReady()
	}

	return a, nil
}

func loadEvents(path string) ([]events.Event, error) {
	if path == "" {
		return events.Default()
	}
	return events.LoadFile(path)
}

// initialRegion computes the starting viewport from the first frame size.
// There is no fallback aspect ratio: a display without metrics is fatal.
func (a *application) initialRegion(src region.AspectRatioSource) (region.Region, error) {
	r, err := region.FromSource(a.center, a.cfg.Map.RadiusKm, src)
	if err != nil {
		a.metrics.Regions.WithLabelValues("error").Inc()
		return region.Region{}, fmt.Errorf("initial region: %w", err)
	}
	a.metrics.Regions.WithLabelValues("ok").Inc()

	latKm, lngKm := r.SpanKm()
	a.logger.Info("Initial region computed",
		"lat_delta", r.LatitudeDelta, "lng_delta", r.LongitudeDelta,
		"lat_span_km", latKm, "lng_span_km", lngKm)
	return r, nil
}

func (a *application) loop(w *app.Window) error {
	var ops op.Ops
	initialized := false

	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			a.recenter.Stop()
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			if !initialized {
				r, err := a.initialRegion(region.Screen{Size: e.Size})
				if err != nil {
					a.recenter.Stop()
					return err
				}
				a.view.FitRegion(r)
				initialized = true
			}
			a.view.Layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

// forwardRefresh turns background redraw requests into window invalidations
// and closes the window when ctx is cancelled.
func (a *application) forwardRefresh(ctx context.Context, w *app.Window) {
	for {
		select {
		case <-ctx.Done():
			w.Perform(system.ActionClose)
			return
		case <-a.refresh:
			w.Invalidate()
		}
	}
}

func (a *application) invalidate() {
	select {
	case a.refresh <- struct{}{}:
	default:
	}
}

func (a *application) shutdown() {
	a.recenter.Stop()
	a.pool.Shutdown()
}
