package region

import (
	"fmt"
	"image"
)

// AspectRatioSource reports the width/height ratio of the display surface.
type AspectRatioSource interface {
	AspectRatio() (float64, error)
}

// Fixed is a constant aspect ratio.
type Fixed float64

func (f Fixed) AspectRatio() (float64, error) {
	return float64(f), nil
}

// Screen derives the aspect ratio from a window size in pixels.
type Screen struct {
	Size image.Point
}

func (s Screen) AspectRatio() (float64, error) {
	if s.Size.X <= 0 || s.Size.Y <= 0 {
		return 0, fmt.Errorf("screen size %v: %w", s.Size, ErrDisplayUnavailable)
	}
	return float64(s.Size.X) / float64(s.Size.Y), nil
}

// SourceFunc adapts a function to AspectRatioSource.
type SourceFunc func() (float64, error)

func (f SourceFunc) AspectRatio() (float64, error) {
	return f()
}
