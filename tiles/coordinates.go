package tiles

import (
	"fmt"
	"image"
	"math"
)

const (
	TileSize           = 256
	earthCircumference = 40075016.686 // meters at equator
	maxMercatorLat     = 85.05112878
)

// Tile represents a map tile coordinates
type Tile struct {
	X, Y, Zoom int
}

// LatLng represents a geographical point in degrees
type LatLng struct {
	Lat, Lng float64
}

// Valid reports whether the point is inside the latitude and longitude ranges.
func (ll LatLng) Valid() bool {
	return ll.Lat >= -90 && ll.Lat <= 90 && ll.Lng >= -180 && ll.Lng <= 180
}

// LatLngToTile converts geographical coordinates to tile coordinates
func LatLngToTile(ll LatLng, zoom int) Tile {
	x, y := CalculateWorldCoordinates(ll, float64(zoom))
	return Tile{X: int(x / TileSize), Y: int(y / TileSize), Zoom: zoom}
}

// TileToLatLng converts tile coordinates to geographical coordinates (north-west corner of tile)
func TileToLatLng(tile Tile) LatLng {
	return WorldToLatLng(float64(tile.X*TileSize), float64(tile.Y*TileSize), float64(tile.Zoom))
}

// CalculateWorldCoordinates converts geographical coordinates to world pixel coordinates at given zoom level
func CalculateWorldCoordinates(ll LatLng, zoom float64) (float64, float64) {
	n := math.Pow(2, zoom)
	lat := math.Max(-maxMercatorLat, math.Min(ll.Lat, maxMercatorLat))
	latRad := lat * math.Pi / 180.0
	worldX := float64(TileSize) * n * (ll.Lng + 180) / 360
	worldY := float64(TileSize) * n * (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2
	return worldX, worldY
}

// WorldToLatLng converts world pixel coordinates back to geographical coordinates
func WorldToLatLng(worldX, worldY float64, zoom float64) LatLng {
	n := math.Pow(2, zoom)
	lng := (worldX/(float64(TileSize)*n))*360 - 180
	latRad := math.Pi * (1 - 2*worldY/(float64(TileSize)*n))
	lat := 180 / math.Pi * math.Atan(math.Sinh(latRad))
	return LatLng{Lat: lat, Lng: lng}
}

// CalculateMetersPerPixel calculates the meters per pixel at a given latitude and zoom level
func CalculateMetersPerPixel(latitude float64, zoom int) float64 {
	return earthCircumference * math.Cos(latitude*math.Pi/180) / (math.Pow(2, float64(zoom)) * TileSize)
}

// ConstrainTile ensures tile coordinates are within valid bounds for the zoom level
func ConstrainTile(tile Tile) Tile {
	maxTile := 1<<tile.Zoom - 1
	tile.X = max(0, min(tile.X, maxTile))
	tile.Y = max(0, min(tile.Y, maxTile))
	return tile
}

// CalculateVisibleTiles calculates which tiles are visible given a center point and screen size.
// Tiles clamped to the same edge tile are returned once.
func CalculateVisibleTiles(center LatLng, zoom int, screenSize image.Point) []Tile {
	centerTile := LatLngToTile(center, zoom)
	tilesX := (screenSize.X / TileSize) + 2 // Add buffer tiles
	tilesY := (screenSize.Y / TileSize) + 2

	startX := centerTile.X - tilesX/2
	startY := centerTile.Y - tilesY/2

	seen := make(map[Tile]struct{}, tilesX*tilesY)
	visibleTiles := make([]Tile, 0, tilesX*tilesY)
	for x := startX; x < startX+tilesX; x++ {
		for y := startY; y < startY+tilesY; y++ {
			tile := ConstrainTile(Tile{X: x, Y: y, Zoom: zoom})
			if _, ok := seen[tile]; ok {
				continue
			}
			seen[tile] = struct{}{}
			visibleTiles = append(visibleTiles, tile)
		}
	}
	return visibleTiles
}

// ZoomForSpan returns the largest zoom in [minZoom, maxZoom] at which a box of
// latDelta by lngDelta degrees around center fits inside screenSize.
func ZoomForSpan(center LatLng, latDelta, lngDelta float64, screenSize image.Point, minZoom, maxZoom int) int {
	if screenSize.X <= 0 || screenSize.Y <= 0 || latDelta <= 0 || lngDelta <= 0 {
		return minZoom
	}

	// world pixel extent of the box at zoom 0
	x0, y0 := CalculateWorldCoordinates(LatLng{Lat: center.Lat + latDelta/2, Lng: center.Lng - lngDelta/2}, 0)
	x1, y1 := CalculateWorldCoordinates(LatLng{Lat: center.Lat - latDelta/2, Lng: center.Lng + lngDelta/2}, 0)
	width, height := math.Abs(x1-x0), math.Abs(y1-y0)

	scale := math.Min(float64(screenSize.X)/width, float64(screenSize.Y)/height)
	zoom := int(math.Floor(math.Log2(scale)))
	return max(minZoom, min(zoom, maxZoom))
}

// GetTileKey returns a unique string key for a tile
func GetTileKey(tile Tile) string {
	return fmt.Sprintf("%d/%d/%d", tile.Zoom, tile.X, tile.Y)
}
