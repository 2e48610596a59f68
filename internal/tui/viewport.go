package tui

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"geomap/internal/geo"
)

// tilePixels is the on screen width of one tile in braille dots.
const tilePixels = 256

const (
	dotsX = 2 // braille dots per cell, horizontally
	dotsY = 4
)

// viewport maps EPSG:3857 coordinates onto the braille canvas. Dots are
// square, res map units wide.
type viewport struct {
	cx, cy float64
	res    float64
	w, h   int // cells
}

func newViewport() viewport {
	return viewport{res: geo.WorldHalf * 2 / tilePixels}
}

func (v viewport) dots() (int, int) { return v.w * dotsX, v.h * dotsY }

func (v viewport) envelope() geo.Envelope {
	dw, dh := v.dots()
	hw, hh := float64(dw)*v.res/2, float64(dh)*v.res/2
	return geo.NewEnvelope(v.cx-hw, v.cy-hh, v.cx+hw, v.cy+hh)
}

// toDots converts map coordinates to fractional dot coordinates, y down.
func (v viewport) toDots(x, y float64) (float64, float64) {
	env := v.envelope()
	return (x - env.MinX) / v.res, (env.MaxY - y) / v.res
}

// fromCell returns the map coordinates under the center of a cell.
func (v viewport) fromCell(col, row int) (float64, float64) {
	env := v.envelope()
	x := env.MinX + (float64(col)+0.5)*dotsX*v.res
	y := env.MaxY - (float64(row)+0.5)*dotsY*v.res
	return x, y
}

// cellRadius is the map distance covered by n cells.
func (v viewport) cellRadius(n float64) float64 { return n * dotsY * v.res }

// fit centers env and scales it to fill the canvas.
func (v *viewport) fit(env geo.Envelope) {
	if !env.IsInit() {
		return
	}
	v.cx, v.cy = env.Center()
	dw, dh := v.dots()
	if dw == 0 || dh == 0 {
		return
	}
	res := math.Max(env.Width()/float64(dw), env.Height()/float64(dh)) * 1.1
	if res <= 0 {
		// A single point: show roughly one zoom 16 tile.
		res = geo.TileSize(16) / tilePixels
	}
	v.res = res
}

// zoom scales by factor; values above one zoom in.
func (v *viewport) zoom(factor float64) {
	res := v.res / factor
	maxRes := geo.WorldHalf * 2 / tilePixels
	minRes := geo.TileSize(geo.MaxZoom) / tilePixels
	v.res = math.Min(maxRes, math.Max(minRes, res))
}

func (v *viewport) pan(cols, rows int) {
	v.cx += float64(cols*dotsX) * v.res
	v.cy -= float64(rows*dotsY) * v.res
}

// level is the tile zoom whose tiles are about tilePixels dots wide.
func (v viewport) level(maxZoom uint8) uint8 {
	z := math.Floor(math.Log2(geo.WorldHalf * 2 / (v.res * tilePixels)))
	if z < 0 {
		return 0
	}
	if z > float64(maxZoom) {
		return maxZoom
	}
	return uint8(z)
}

// keys lists the tiles visible at the current level.
func (v viewport) keys(maxZoom uint8) []geo.TileItem {
	return geo.KeysForEnvelope(v.envelope(), v.level(maxZoom))
}

func lonLat(x, y float64) (float64, float64) {
	p := project.Mercator.ToWGS84(orb.Point{x, y})
	return p[0], p[1]
}
