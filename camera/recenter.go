package camera

import (
	"log/slog"
	"sync"
	"time"

	"github.com/olablt/gio-events/metrics"
	"github.com/olablt/gio-events/tiles"
)

const (
	DefaultDelay    = 500 * time.Millisecond
	DefaultDuration = 150 * time.Millisecond
)

// Animator moves the map camera. AnimateCamera is called with the recenter
// lock held and must not block.
type Animator interface {
	AnimateCamera(center tiles.LatLng, duration time.Duration)
}

// Timer is the part of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it once wrapped.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Recenter issues a single delayed recenter command after the map reports
// it is ready. The delay lets the map finish its own initial layout first.
type Recenter struct {
	target   Animator
	center   tiles.LatLng
	delay    time.Duration
	duration time.Duration

	afterFunc AfterFunc
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu         sync.Mutex
	timer      Timer
	generation uint64
	stopped    bool
}

type Option func(*Recenter)

func WithDelay(d time.Duration) Option {
	return func(r *Recenter) { r.delay = d }
}

func WithDuration(d time.Duration) Option {
	return func(r *Recenter) { r.duration = d }
}

func WithAfterFunc(f AfterFunc) Option {
	return func(r *Recenter) { r.afterFunc = f }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recenter) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recenter) { r.metrics = m }
}

func NewRecenter(target Animator, center tiles.LatLng, opts ...Option) *Recenter {
	r := &Recenter{
		target:    target,
		center:    center,
		delay:     DefaultDelay,
		duration:  DefaultDuration,
		afterFunc: stdAfterFunc,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnMapReady schedules the recenter. A pending recenter from an earlier
// ready signal is replaced, so at most one timer is ever armed.
func (r *Recenter) OnMapReady() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
		r.count("cancelled")
	}

	r.generation++
	gen := r.generation
	r.timer = r.afterFunc(r.delay, func() { r.fire(gen) })
	r.count("scheduled")
	r.logger.Debug("recenter scheduled", "delay", r.delay, "center", r.center)
}

func (r *Recenter) fire(gen uint64) {
	// Stop returns only after the recenter was either cancelled or issued.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || gen != r.generation || r.timer == nil {
		// stopped or replaced while the timer was firing
		return
	}
	r.timer = nil

	r.logger.Info("map is loaded, recentering", "lat", r.center.Lat, "lng", r.center.Lng, "duration", r.duration)
	r.target.AnimateCamera(r.center, r.duration)
	r.count("fired")
}

// Pending reports whether a recenter is scheduled and has not fired yet.
func (r *Recenter) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

// Stop cancels a pending recenter and ignores later ready signals. It is
// safe to call more than once and after the recenter fired.
func (r *Recenter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
		r.count("cancelled")
	}
}

func (r *Recenter) count(outcome string) {
	if r.metrics != nil {
		r.metrics.Recenters.WithLabelValues(outcome).Inc()
	}
}
