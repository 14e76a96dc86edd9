package tiles

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	localBackground = color.RGBA{200, 220, 255, 255}
	localBorder     = color.RGBA{100, 100, 100, 255}
	localLabelBg    = color.RGBA{255, 255, 255, 220}
)

// LocalTileProvider draws placeholder tiles labelled with their zoom/x/y.
type LocalTileProvider struct{}

func NewLocalTileProvider() *LocalTileProvider {
	return &LocalTileProvider{}
}

func (p *LocalTileProvider) GetTile(tile Tile) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, TileSize, TileSize))
	draw.Draw(img, img.Bounds(), &image.Uniform{localBackground}, image.Point{}, draw.Src)

	drawLabel(img, GetTileKey(tile))

	last := TileSize - 1
	borders := []image.Rectangle{
		image.Rect(0, 0, TileSize, 1),           // Top
		image.Rect(0, last, TileSize, TileSize), // Bottom
		image.Rect(0, 0, 1, TileSize),           // Left
		image.Rect(last, 0, TileSize, TileSize), // Right
	}
	for _, rect := range borders {
		draw.Draw(img, rect, &image.Uniform{localBorder}, image.Point{}, draw.Src)
	}

	return img, nil
}

func drawLabel(img *image.RGBA, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}

	textWidth := d.MeasureString(text).Round()
	textHeight := face.Metrics().Height.Round()
	mid := TileSize / 2

	padding := 10
	bg := image.Rect(
		mid-textWidth/2-padding,
		mid-textHeight/2-padding,
		mid+textWidth/2+padding,
		mid+textHeight/2+padding,
	)
	draw.Draw(img, bg, &image.Uniform{localLabelBg}, image.Point{}, draw.Over)

	d.Dot = fixed.Point26_6{
		X: fixed.I(mid - textWidth/2),
		Y: fixed.I(mid + textHeight/2 - face.Descent),
	}
	d.DrawString(text)
}

