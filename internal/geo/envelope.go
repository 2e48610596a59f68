package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/tidwall/gjson"
	"github.com/twpayne/go-geom"
)

// Web Mercator half world width in meters.
const WorldHalf = 20037508.34

var (
	// DefaultBounds covers the whole EPSG:3857 world.
	DefaultBounds = Envelope{MinX: -WorldHalf, MinY: -WorldHalf, MaxX: WorldHalf, MaxY: WorldHalf}
	// DefaultBoundsX2 is DefaultBounds widened to one world on each side.
	DefaultBoundsX2 = Envelope{MinX: -WorldHalf * 2, MinY: -WorldHalf * 2, MaxX: WorldHalf * 2, MaxY: WorldHalf * 2}
)

// Envelope document keys.
const (
	KeyMinX = "min_x"
	KeyMinY = "min_y"
	KeyMaxX = "max_x"
	KeyMaxY = "max_y"
)

// Envelope is an axis aligned box. The zero value is a degenerate box at the
// origin; use EmptyEnvelope for the uninitialized state.
type Envelope struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Document is the key/value form an envelope is persisted to.
type Document map[string]interface{}

// EmptyEnvelope returns an uninitialized envelope.
func EmptyEnvelope() Envelope {
	return Envelope{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
	}
}

// NewEnvelope builds a normalized envelope from two corners.
func NewEnvelope(x1, y1, x2, y2 float64) Envelope {
	e := Envelope{MinX: x1, MinY: y1, MaxX: x2, MaxY: y2}
	e.Fix()
	return e
}

func (e Envelope) IsInit() bool {
	return e.MinX != math.MaxFloat64 && e.MinY != math.MaxFloat64 &&
		e.MaxX != -math.MaxFloat64 && e.MaxY != -math.MaxFloat64 &&
		e.MinX <= e.MaxX && e.MinY <= e.MaxY
}

func (e Envelope) Width() float64  { return e.MaxX - e.MinX }
func (e Envelope) Height() float64 { return e.MaxY - e.MinY }

func (e Envelope) Center() (float64, float64) {
	return e.MinX + e.Width()/2, e.MinY + e.Height()/2
}

// Intersects reports whether the boxes share at least one point.
func (e Envelope) Intersects(o Envelope) bool {
	if !e.IsInit() || !o.IsInit() {
		return false
	}
	return e.MinX <= o.MaxX && o.MinX <= e.MaxX && e.MinY <= o.MaxY && o.MinY <= e.MaxY
}

// Contains reports whether o lies fully inside e.
func (e Envelope) Contains(o Envelope) bool {
	if !e.IsInit() || !o.IsInit() {
		return false
	}
	return e.MinX <= o.MinX && e.MaxX >= o.MaxX && e.MinY <= o.MinY && e.MaxY >= o.MaxY
}

// ContainsPoint reports whether (x, y) lies inside e, borders included.
func (e Envelope) ContainsPoint(x, y float64) bool {
	return e.IsInit() && x >= e.MinX && x <= e.MaxX && y >= e.MinY && y <= e.MaxY
}

// Merge widens e to cover o.
func (e *Envelope) Merge(o Envelope) *Envelope {
	if !o.IsInit() {
		return e
	}
	if !e.IsInit() {
		*e = o
		return e
	}
	e.MinX = math.Min(e.MinX, o.MinX)
	e.MinY = math.Min(e.MinY, o.MinY)
	e.MaxX = math.Max(e.MaxX, o.MaxX)
	e.MaxY = math.Max(e.MaxY, o.MaxY)
	return e
}

// Extend widens e to cover the point (x, y).
func (e *Envelope) Extend(x, y float64) *Envelope {
	if !e.IsInit() {
		*e = Envelope{MinX: x, MinY: y, MaxX: x, MaxY: y}
		return e
	}
	e.MinX = math.Min(e.MinX, x)
	e.MinY = math.Min(e.MinY, y)
	e.MaxX = math.Max(e.MaxX, x)
	e.MaxY = math.Max(e.MaxY, y)
	return e
}

// Intersect shrinks e to the overlap with o. Disjoint boxes leave e
// uninitialized.
func (e *Envelope) Intersect(o Envelope) *Envelope {
	if !e.Intersects(o) {
		*e = EmptyEnvelope()
		return e
	}
	e.MinX = math.Max(e.MinX, o.MinX)
	e.MinY = math.Max(e.MinY, o.MinY)
	e.MaxX = math.Min(e.MaxX, o.MaxX)
	e.MaxY = math.Min(e.MaxY, o.MaxY)
	return e
}

// Rotate turns the four corners by angle radians around the center and
// replaces e with their bounding box.
func (e *Envelope) Rotate(angle float64) *Envelope {
	if !e.IsInit() || angle == 0 {
		return e
	}
	cx, cy := e.Center()
	sin, cos := math.Sincos(angle)
	corners := [4][2]float64{{e.MinX, e.MinY}, {e.MinX, e.MaxY}, {e.MaxX, e.MaxY}, {e.MaxX, e.MinY}}
	out := EmptyEnvelope()
	for _, c := range corners {
		dx, dy := c[0]-cx, c[1]-cy
		out.Extend(cx+dx*cos-dy*sin, cy+dx*sin+dy*cos)
	}
	*e = out
	return e
}

// SetRatio grows the shorter axis so that Width/Height equals ratio. The
// center does not move.
func (e *Envelope) SetRatio(ratio float64) *Envelope {
	if !e.IsInit() || ratio <= 0 {
		return e
	}
	w, h := e.Width(), e.Height()
	cx, cy := e.Center()
	if h == 0 || w/h < ratio {
		w = h * ratio
	} else {
		h = w / ratio
	}
	e.MinX, e.MaxX = cx-w/2, cx+w/2
	e.MinY, e.MaxY = cy-h/2, cy+h/2
	return e
}

// Resize scales e around its center.
func (e *Envelope) Resize(factor float64) *Envelope {
	if !e.IsInit() {
		return e
	}
	cx, cy := e.Center()
	w, h := e.Width()*factor/2, e.Height()*factor/2
	e.MinX, e.MaxX = cx-w, cx+w
	e.MinY, e.MaxY = cy-h, cy+h
	e.Fix()
	return e
}

func (e *Envelope) Move(dx, dy float64) *Envelope {
	if !e.IsInit() {
		return e
	}
	e.MinX += dx
	e.MaxX += dx
	e.MinY += dy
	e.MaxY += dy
	return e
}

// Fix swaps reversed min/max pairs.
func (e *Envelope) Fix() *Envelope {
	if e.MinX > e.MaxX {
		e.MinX, e.MaxX = e.MaxX, e.MinX
	}
	if e.MinY > e.MaxY {
		e.MinY, e.MaxY = e.MaxY, e.MinY
	}
	return e
}

func (e Envelope) String() string {
	if !e.IsInit() {
		return "[empty]"
	}
	return fmt.Sprintf("[%.5f, %.5f, %.5f, %.5f]", e.MinX, e.MinY, e.MaxX, e.MaxY)
}

// Bound converts e to an orb bound.
func (e Envelope) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{e.MinX, e.MinY}, Max: orb.Point{e.MaxX, e.MaxY}}
}

// EnvelopeFromBound converts an orb bound. Empty bounds yield an uninitialized
// envelope.
func EnvelopeFromBound(b orb.Bound) Envelope {
	if b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] {
		return EmptyEnvelope()
	}
	return Envelope{MinX: b.Min[0], MinY: b.Min[1], MaxX: b.Max[0], MaxY: b.Max[1]}
}

// EnvelopeOf returns the bounds of a native geometry.
func EnvelopeOf(g geom.T) Envelope {
	if g == nil || len(g.FlatCoords()) == 0 {
		return EmptyEnvelope()
	}
	b := g.Bounds()
	return Envelope{MinX: b.Min(0), MinY: b.Min(1), MaxX: b.Max(0), MaxY: b.Max(1)}
}

// ToGeometry returns e as a closed polygon.
func (e Envelope) ToGeometry() *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		e.MinX, e.MinY,
		e.MinX, e.MaxY,
		e.MaxX, e.MaxY,
		e.MaxX, e.MinY,
		e.MinX, e.MinY,
	}, []int{10})
}

// Save writes e to a document.
func (e Envelope) Save() Document {
	return Document{
		KeyMinX: e.MinX,
		KeyMinY: e.MinY,
		KeyMaxX: e.MaxX,
		KeyMaxY: e.MaxY,
	}
}

// Load reads e from doc. When any key is missing or not numeric e is set to
// def and false is returned. Swapped bounds are reordered and unknown keys
// are ignored.
func (e *Envelope) Load(doc Document, def Envelope) bool {
	var vals [4]float64
	for i, k := range [4]string{KeyMinX, KeyMinY, KeyMaxX, KeyMaxY} {
		v, ok := number(doc[k])
		if !ok {
			*e = def
			return false
		}
		vals[i] = v
	}
	*e = envelopeFrom(vals)
	return true
}

// LoadJSON is Load for a raw JSON object.
func (e *Envelope) LoadJSON(data []byte, def Envelope) bool {
	if !gjson.ValidBytes(data) {
		*e = def
		return false
	}
	res := gjson.GetManyBytes(data, KeyMinX, KeyMinY, KeyMaxX, KeyMaxY)
	var vals [4]float64
	for i, r := range res {
		if r.Type != gjson.Number {
			*e = def
			return false
		}
		vals[i] = r.Float()
	}
	*e = envelopeFrom(vals)
	return true
}

// envelopeFrom orders loaded bounds. A saved empty envelope stays empty.
func envelopeFrom(vals [4]float64) Envelope {
	e := Envelope{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}
	if e == EmptyEnvelope() {
		return e
	}
	return *e.Fix()
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), !math.IsNaN(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
