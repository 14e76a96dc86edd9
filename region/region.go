package region

import (
	"errors"
	"fmt"
	"math"

	"github.com/olablt/gio-events/tiles"
)

// EarthRadiusKm is the radius of the sphere used to turn ground distance into degrees.
const EarthRadiusKm = 6371.0

var (
	// ErrInvalidArgument is returned for non-positive or non-finite radius and aspect ratio values.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDisplayUnavailable is returned when the display cannot report its aspect ratio.
	ErrDisplayUnavailable = errors.New("display metrics unavailable")
)

// Region is a bounding box around Center. Latitude covers
// Center.Lat ± LatitudeDelta/2, longitude covers Center.Lng ± LongitudeDelta/2.
type Region struct {
	Center         tiles.LatLng
	LatitudeDelta  float64
	LongitudeDelta float64
}

// Compute returns the region around center whose shorter screen axis spans
// exactly 2*radiusKm of ground distance. The longer axis is widened by the
// ratio of the long screen side to the short one.
//
// Longitude degrees are not scaled by latitude; at a few kilometers the error
// is acceptable and callers rely on the plain spherical conversion.
func Compute(center tiles.LatLng, radiusKm, aspectRatio float64) (Region, error) {
	if !positive(radiusKm) {
		return Region{}, fmt.Errorf("compute region: radius %v km: %w", radiusKm, ErrInvalidArgument)
	}
	if !positive(aspectRatio) {
		return Region{}, fmt.Errorf("compute region: aspect ratio %v: %w", aspectRatio, ErrInvalidArgument)
	}

	latSpan := 2 * radiusKm
	lngSpan := 2 * radiusKm
	if aspectRatio >= 1 {
		// wider than tall: latitude runs along the short side
		lngSpan *= aspectRatio
	} else {
		latSpan /= aspectRatio
	}

	return Region{
		Center:         center,
		LatitudeDelta:  KmToDegrees(latSpan),
		LongitudeDelta: KmToDegrees(lngSpan),
	}, nil
}

// FromSource reads the aspect ratio from src once and computes the region.
func FromSource(center tiles.LatLng, radiusKm float64, src AspectRatioSource) (Region, error) {
	aspect, err := src.AspectRatio()
	if err != nil {
		return Region{}, fmt.Errorf("query aspect ratio: %w", err)
	}
	return Compute(center, radiusKm, aspect)
}

// KmToDegrees converts a ground distance to an arc in degrees on the earth sphere.
func KmToDegrees(km float64) float64 {
	return km / EarthRadiusKm / math.Pi * 180
}

// DegreesToKm is the inverse of KmToDegrees.
func DegreesToKm(deg float64) float64 {
	return deg / 180 * math.Pi * EarthRadiusKm
}

// SpanKm returns the ground distance covered by the latitude and longitude deltas.
func (r Region) SpanKm() (lat, lng float64) {
	return DegreesToKm(r.LatitudeDelta), DegreesToKm(r.LongitudeDelta)
}

// Bounds returns the south-west and north-east corners of the region.
func (r Region) Bounds() (sw, ne tiles.LatLng) {
	sw = tiles.LatLng{Lat: r.Center.Lat - r.LatitudeDelta/2, Lng: r.Center.Lng - r.LongitudeDelta/2}
	ne = tiles.LatLng{Lat: r.Center.Lat + r.LatitudeDelta/2, Lng: r.Center.Lng + r.LongitudeDelta/2}
	return sw, ne
}

// Contains reports whether p lies inside the region.
func (r Region) Contains(p tiles.LatLng) bool {
	sw, ne := r.Bounds()
	return p.Lat >= sw.Lat && p.Lat <= ne.Lat && p.Lng >= sw.Lng && p.Lng <= ne.Lng
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1) && !math.IsNaN(v)
}
