package camera

import (
	"time"

	"github.com/olablt/gio-events/tiles"
)

// Animation moves the camera center from From to To over Duration.
type Animation struct {
	From     tiles.LatLng
	To       tiles.LatLng
	Start    time.Time
	Duration time.Duration
}

// At returns the center at now and whether the animation has finished.
func (a Animation) At(now time.Time) (tiles.LatLng, bool) {
	if a.Duration <= 0 {
		return a.To, true
	}
	elapsed := now.Sub(a.Start)
	if elapsed >= a.Duration {
		return a.To, true
	}
	if elapsed <= 0 {
		return a.From, false
	}

	t := easeOut(float64(elapsed) / float64(a.Duration))
	return tiles.LatLng{
		Lat: a.From.Lat + (a.To.Lat-a.From.Lat)*t,
		Lng: a.From.Lng + (a.To.Lng-a.From.Lng)*t,
	}, false
}

// easeOut is a cubic ease-out on [0, 1].
func easeOut(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}
