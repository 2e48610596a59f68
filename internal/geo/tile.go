package geo

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MaxZoom is the deepest zoom level keys are generated for.
const MaxZoom = 24

// Key addresses a tile in the XYZ scheme. CrossExtent counts whole world
// widths the tile is shifted by when a view crosses the antimeridian.
type Key struct {
	X           int
	Y           int
	Z           uint8
	CrossExtent int8
}

// TileItem pairs a key with its map envelope.
type TileItem struct {
	Key      Key
	Envelope Envelope
}

// Compare orders keys by x, y, z and cross extent.
func (k Key) Compare(o Key) int {
	switch {
	case k.X != o.X:
		return cmpInt(k.X, o.X)
	case k.Y != o.Y:
		return cmpInt(k.Y, o.Y)
	case k.Z != o.Z:
		return cmpInt(int(k.Z), int(o.Z))
	}
	return cmpInt(int(k.CrossExtent), int(o.CrossExtent))
}

func (k Key) Less(o Key) bool { return k.Compare(o) < 0 }

func (k Key) String() string {
	if k.CrossExtent != 0 {
		return fmt.Sprintf("%d/%d/%d@%d", k.Z, k.X, k.Y, k.CrossExtent)
	}
	return fmt.Sprintf("%d/%d/%d", k.Z, k.X, k.Y)
}

// ParseKey reads the "z/x/y" or "z/x/y@cross" form written by String.
func ParseKey(s string) (Key, error) {
	s, cross, hasCross := strings.Cut(strings.TrimSpace(s), "@")
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Key{}, errors.Newf("tile key %q: want z/x/y", s)
	}
	z, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil || z > MaxZoom {
		return Key{}, errors.Newf("tile key %q: bad zoom", s)
	}
	x, errX := strconv.Atoi(parts[1])
	y, errY := strconv.Atoi(parts[2])
	if errX != nil || errY != nil || x < 0 || y < 0 || x >= 1<<z || y >= 1<<z {
		return Key{}, errors.Newf("tile key %q: column or row out of range", s)
	}
	k := Key{X: x, Y: y, Z: uint8(z)}
	if hasCross {
		c, err := strconv.ParseInt(cross, 10, 8)
		if err != nil {
			return Key{}, errors.Newf("tile key %q: bad cross extent", cross)
		}
		k.CrossExtent = int8(c)
	}
	return k, nil
}

// TileSize is the width of one tile at zoom z in map units.
func TileSize(z uint8) float64 {
	return WorldHalf * 2 / float64(uint64(1)<<z)
}

// Envelope returns the EPSG:3857 extent of the tile.
func (k Key) Envelope() Envelope {
	size := TileSize(k.Z)
	shift := float64(k.CrossExtent) * WorldHalf * 2
	minX := -WorldHalf + float64(k.X)*size + shift
	maxY := WorldHalf - float64(k.Y)*size
	return Envelope{MinX: minX, MinY: maxY - size, MaxX: minX + size, MaxY: maxY}
}

// LonLatBound returns the tile extent in degrees.
func (k Key) LonLatBound() orb.Bound {
	b := maptile.New(uint32(k.X), uint32(k.Y), maptile.Zoom(k.Z)).Bound()
	shift := float64(k.CrossExtent) * 360
	b.Min[0] += shift
	b.Max[0] += shift
	return b
}

// KeysForEnvelope lists every tile at zoom z intersecting env, in key order.
// Columns past the world edge wrap and record the wrap in CrossExtent.
func KeysForEnvelope(env Envelope, z uint8) []TileItem {
	if !env.IsInit() || z > MaxZoom {
		return nil
	}
	n := 1 << z
	size := TileSize(z)
	colMin := int(math.Floor((env.MinX + WorldHalf) / size))
	colMax := int(math.Ceil((env.MaxX+WorldHalf)/size)) - 1
	if colMax < colMin {
		colMax = colMin
	}
	rowMin := clampInt(int(math.Floor((WorldHalf-env.MaxY)/size)), 0, n-1)
	rowMax := clampInt(int(math.Ceil((WorldHalf-env.MinY)/size))-1, 0, n-1)
	if rowMax < rowMin {
		rowMax = rowMin
	}

	var out []TileItem
	for col := colMin; col <= colMax; col++ {
		cross := floorDiv(col, n)
		if cross < math.MinInt8 || cross > math.MaxInt8 {
			continue
		}
		for row := rowMin; row <= rowMax; row++ {
			k := Key{X: col - cross*n, Y: row, Z: z, CrossExtent: int8(cross)}
			out = append(out, TileItem{Key: k, Envelope: k.Envelope()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out
}

// ZoomFor picks the zoom at which roughly tilesAcross tiles span env.
func ZoomFor(env Envelope, tilesAcross float64) uint8 {
	if !env.IsInit() || env.Width() <= 0 || tilesAcross <= 0 {
		return 0
	}
	z := math.Floor(math.Log2(WorldHalf * 2 * tilesAcross / env.Width()))
	return uint8(clampInt(int(z), 0, MaxZoom))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
