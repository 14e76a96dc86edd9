package mapview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	scaleMaxWidth = 100 // px
	scaleMargin   = 10
	scaleTick     = 6
)

var (
	scaleInk = color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	scaleBg  = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xc0}
)

// scaleBar is a ground distance and its length on screen at the current zoom.
type scaleBar struct {
	meters float64
	width  int
}

type labelOp struct {
	text string
	size image.Point
	op   paint.ImageOp
}

// scaleFor picks the largest round distance (1, 2 or 5 × 10^n meters) whose
// bar is at most maxWidth pixels long.
func scaleFor(metersPerPixel float64, maxWidth int) scaleBar {
	if !(metersPerPixel > 0) || math.IsInf(metersPerPixel, 0) || maxWidth <= 0 {
		return scaleBar{}
	}
	limit := metersPerPixel * float64(maxWidth)
	base := math.Pow(10, math.Floor(math.Log10(limit)))
	for _, step := range []float64{5, 2, 1} {
		if m := step * base; m <= limit {
			return scaleBar{meters: m, width: int(math.Round(m / metersPerPixel))}
		}
	}
	return scaleBar{}
}

func formatDistance(meters float64) string {
	if meters >= 1000 {
		return fmt.Sprintf("%g km", meters/1000)
	}
	return fmt.Sprintf("%g m", meters)
}

// drawScale paints the scale bar in the bottom-left corner.
func (mv *MapView) drawScale(gtx layout.Context) {
	mv.scale = scaleFor(mv.metersPerPixel, scaleMaxWidth)
	if mv.scale.width == 0 {
		return
	}

	label := mv.scaleLabelOp(formatDistance(mv.scale.meters))
	boxW := max(mv.scale.width, label.size.X) + scaleMargin
	boxH := label.size.Y + scaleTick + 6
	origin := image.Pt(scaleMargin, mv.size.Y-scaleMargin-boxH)

	defer op.Offset(origin).Push(gtx.Ops).Pop()
	paint.FillShape(gtx.Ops, scaleBg, clip.Rect{Max: image.Pt(boxW, boxH)}.Op())

	x0, x1 := scaleMargin/2, scaleMargin/2+mv.scale.width
	bottom := boxH - 3
	paint.FillShape(gtx.Ops, scaleInk, clip.Rect{Min: image.Pt(x0, bottom-2), Max: image.Pt(x1, bottom)}.Op())
	paint.FillShape(gtx.Ops, scaleInk, clip.Rect{Min: image.Pt(x0, bottom-scaleTick), Max: image.Pt(x0+2, bottom)}.Op())
	paint.FillShape(gtx.Ops, scaleInk, clip.Rect{Min: image.Pt(x1-2, bottom-scaleTick), Max: image.Pt(x1, bottom)}.Op())

	text := op.Offset(image.Pt(x0, 1)).Push(gtx.Ops)
	label.op.Add(gtx.Ops)
	paint.PaintOp{}.Add(gtx.Ops)
	text.Pop()
}

// scaleLabelOp renders text with the basic bitmap font, reusing the last
// rendering while the text stays the same.
func (mv *MapView) scaleLabelOp(text string) labelOp {
	if mv.scaleLabel.text == text {
		return mv.scaleLabel
	}

	face := basicfont.Face7x13
	d := &font.Drawer{Src: image.NewUniform(scaleInk), Face: face}
	size := image.Pt(d.MeasureString(text).Ceil(), face.Metrics().Height.Ceil())

	img := image.NewNRGBA(image.Rectangle{Max: size})
	draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)
	d.Dst = img
	d.Dot = fixed.P(0, face.Metrics().Ascent.Ceil())
	d.DrawString(text)

	mv.scaleLabel = labelOp{text: text, size: size, op: paint.NewImageOp(img)}
	return mv.scaleLabel
}
