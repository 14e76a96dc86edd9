package mapview

import (
	"image"
	"image/color"

	"gioui.org/io/event"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
)

const pinRadius = 7

var (
	pinFill     = color.NRGBA{R: 0xd9, G: 0x30, B: 0x25, A: 0xff}
	pinSelected = color.NRGBA{R: 0x1a, G: 0x73, B: 0xe8, A: 0xff}
	pinBorder   = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// pinBounds returns the screen rectangle of the pin for a marker at pt.
func pinBounds(pt image.Point) image.Rectangle {
	r := image.Pt(pinRadius, pinRadius)
	return image.Rectangle{Min: pt.Sub(r), Max: pt.Add(r)}
}

// drawMarkers paints one pin per marker and registers its pointer tag.
// Later markers are drawn on top of earlier ones at the same spot.
func (mv *MapView) drawMarkers(gtx layout.Context) {
	view := image.Rectangle{Max: mv.size}.Inset(-pinRadius)

	for _, m := range mv.markers {
		pt := mv.ScreenPoint(m.Position)
		if !pt.In(view) {
			continue
		}

		bounds := pinBounds(pt)
		fill := pinFill
		if m.Key == mv.selected {
			fill = pinSelected
		}
		paint.FillShape(gtx.Ops, pinBorder, clip.Ellipse(bounds.Inset(-2)).Op(gtx.Ops))
		paint.FillShape(gtx.Ops, fill, clip.Ellipse(bounds).Op(gtx.Ops))

		area := clip.Ellipse(bounds).Push(gtx.Ops)
		event.Op(gtx.Ops, mv.markerTags[m.Key])
		area.Pop()
	}
}

// VisibleMarkers returns the keys of markers whose pin lies inside the view.
func (mv *MapView) VisibleMarkers() []int {
	view := image.Rectangle{Max: mv.size}
	var keys []int
	for _, m := range mv.markers {
		if mv.ScreenPoint(m.Position).In(view) {
			keys = append(keys, m.Key)
		}
	}
	return keys
}
