// Package edit keeps one geometry under interactive edit: vertex, hole and
// part insertion and removal with undo and redo.
package edit

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"geomap/internal/geo"
)

type TouchType int

const (
	TouchDown TouchType = iota
	TouchMove
	TouchUp
	TouchSingle
)

type Piece int

const (
	PiecePoint Piece = iota
	PieceHole
	PiecePart
)

type DeleteResult int

const (
	DeleteFailed DeleteResult = iota
	Deleted
	RemovedPart
	RemoveGeometry
)

func (r DeleteResult) String() string {
	switch r {
	case Deleted:
		return "deleted"
	case RemovedPart:
		return "removed part"
	case RemoveGeometry:
		return "remove geometry"
	}
	return "failed"
}

// PointID identifies the selected vertex within its path.
type PointID struct {
	Index  int
	IsHole bool
}

var noPoint = PointID{Index: -1}

// Selection addresses a vertex. -1 means nothing selected at that level.
type Selection struct {
	Part  int
	Ring  int
	Point int
}

var noSelection = Selection{Part: -1, Ring: -1, Point: -1}

type Options struct {
	// HistoryLimit caps undo depth. Zero means DefaultHistoryLimit.
	HistoryLimit int
}

func (o Options) limit() int {
	if o.HistoryLimit == 0 {
		return DefaultHistoryLimit
	}
	return o.HistoryLimit
}

// Geometry is a single edit session's geometry. It is not safe for
// concurrent use.
type Geometry struct {
	kind     Kind
	data     *History[Shape]
	sel      Selection
	dragging bool
	moved    bool
	// anchor holds the first vertex of a path being drawn into an empty
	// line. It joins the payload with the second vertex.
	anchor *orb.Point
}

func newGeometry(kind Kind, shape Shape, opts Options) *Geometry {
	return &Geometry{
		kind: kind,
		data: NewHistory(shape, Shape.Clone, opts.limit()),
		sel:  noSelection,
	}
}

// New seeds a geometry of the given kind from two corners: a point at their
// center, a segment between them, or a rectangle spanning them.
func New(kind Kind, x1, y1, x2, y2 float64, opts Options) *Geometry {
	var part Part
	r := kind.rules()
	switch {
	case r.single:
		part = Part{{{(x1 + x2) / 2, (y1 + y2) / 2}}}
	case r.closed:
		part = Part{rectangle(x1, y1, x2, y2)}
	default:
		part = Part{{{x1, y1}, {x2, y2}}}
	}
	return newGeometry(kind, Shape{part}, opts)
}

func rectangle(x1, y1, x2, y2 float64) Path {
	return Path{{x1, y1}, {x1, y2}, {x2, y2}, {x2, y1}, {x1, y1}}
}

func (g *Geometry) Kind() Kind { return g.kind }

// Shape returns a copy of the current payload.
func (g *Geometry) Shape() Shape { return g.data.Current().Clone() }

func (g *Geometry) Selection() Selection { return g.sel }

func (g *Geometry) IsDragging() bool { return g.dragging }

// Anchor reports a vertex placed on an empty line that still waits for its
// second vertex.
func (g *Geometry) Anchor() (orb.Point, bool) {
	if g.anchor == nil {
		return orb.Point{}, false
	}
	return *g.anchor, true
}

func (g *Geometry) shape() Shape { return *g.data.Current() }

func (g *Geometry) setShape(s Shape) { *g.data.Current() = s }

// Envelope covers every vertex.
func (g *Geometry) Envelope() geo.Envelope {
	env := geo.EmptyEnvelope()
	for _, part := range g.shape() {
		for _, path := range part {
			for _, p := range path {
				env.Extend(p[0], p[1])
			}
		}
	}
	return env
}

// Select sets the selection. It fails when the address does not exist.
func (g *Geometry) Select(part, ring, point int) bool {
	s := g.shape()
	if part < 0 || part >= len(s) || ring < 0 || ring >= len(s[part]) {
		return false
	}
	if point < -1 || point >= g.vertexCount(s[part][ring]) {
		return false
	}
	g.sel = Selection{Part: part, Ring: ring, Point: point}
	return true
}

// ClearSelection drops the selection and any drag in progress.
func (g *Geometry) ClearSelection() {
	g.sel = noSelection
	g.dragging = false
}

func (g *Geometry) selectedPoint() PointID {
	if g.sel.Point < 0 {
		return noPoint
	}
	return PointID{Index: g.sel.Point, IsHole: g.sel.Ring > 0}
}

// vertexCount excludes the closing vertex of rings.
func (g *Geometry) vertexCount(p Path) int {
	if g.kind.rules().closed && len(p) > 0 {
		return len(p) - 1
	}
	return len(p)
}

func (g *Geometry) validSelection() bool {
	s := g.shape()
	return g.sel.Part >= 0 && g.sel.Part < len(s) &&
		g.sel.Ring >= 0 && g.sel.Ring < len(s[g.sel.Part]) &&
		g.sel.Point >= 0 && g.sel.Point < g.vertexCount(s[g.sel.Part][g.sel.Ring])
}

// Touch handles a pointer event at (x, y). Down grabs the vertex under the
// pointer, Move drags it without recording history, Up records the gesture
// as one undo step, Single selects a vertex or inserts one at the tapped
// segment midpoint.
func (g *Geometry) Touch(x, y float64, typ TouchType, tolerance float64) PointID {
	pt := orb.Point{x, y}
	switch typ {
	case TouchDown:
		sel, ok := g.hitVertex(pt, tolerance)
		if !ok {
			g.ClearSelection()
			return noPoint
		}
		g.sel = sel
		g.dragging = true
		g.moved = false
	case TouchMove:
		if !g.dragging || !g.validSelection() {
			return noPoint
		}
		g.moveVertex(pt)
		g.moved = true
	case TouchUp:
		if !g.dragging {
			return g.selectedPoint()
		}
		if g.moved && g.validSelection() {
			g.moveVertex(pt)
			g.data.SaveState()
		}
		g.dragging = false
		g.moved = false
	case TouchSingle:
		g.dragging = false
		if sel, ok := g.hitVertex(pt, tolerance); ok {
			g.sel = sel
			break
		}
		if sel, at, ok := g.hitMedian(pt, tolerance); ok {
			g.insertMedian(sel.Part, sel.Ring, at)
			g.data.SaveState()
			break
		}
		g.ClearSelection()
		return noPoint
	}
	return g.selectedPoint()
}

func (g *Geometry) hitVertex(pt orb.Point, tolerance float64) (Selection, bool) {
	best, bestD := noSelection, math.Inf(1)
	for pi, part := range g.shape() {
		for ri, path := range part {
			for i := 0; i < g.vertexCount(path); i++ {
				if d := planar.Distance(pt, path[i]); d <= tolerance && d < bestD {
					best, bestD = Selection{Part: pi, Ring: ri, Point: i}, d
				}
			}
		}
	}
	return best, bestD <= tolerance
}

// hitMedian finds the segment whose midpoint is under pt. It returns the
// index a new vertex would take.
func (g *Geometry) hitMedian(pt orb.Point, tolerance float64) (Selection, int, bool) {
	if g.kind.rules().single {
		return noSelection, 0, false
	}
	best, at, bestD := noSelection, 0, math.Inf(1)
	for pi, part := range g.shape() {
		for ri, path := range part {
			for i := 0; i+1 < len(path); i++ {
				mid := orb.Point{(path[i][0] + path[i+1][0]) / 2, (path[i][1] + path[i+1][1]) / 2}
				if d := planar.Distance(pt, mid); d <= tolerance && d < bestD {
					best, at, bestD = Selection{Part: pi, Ring: ri}, i+1, d
				}
			}
		}
	}
	return best, at, bestD <= tolerance
}

func (g *Geometry) moveVertex(pt orb.Point) {
	path := g.shape()[g.sel.Part][g.sel.Ring]
	path[g.sel.Point] = pt
	if g.kind.rules().closed && g.sel.Point == 0 {
		path[len(path)-1] = pt
	}
}

// insertMedian splits the segment ending at index at by its midpoint and
// selects the new vertex.
func (g *Geometry) insertMedian(part, ring, at int) {
	s := g.shape()
	path := s[part][ring]
	mid := orb.Point{(path[at-1][0] + path[at][0]) / 2, (path[at-1][1] + path[at][1]) / 2}
	s[part][ring] = insertAt(path, at, mid)
	g.sel = Selection{Part: part, Ring: ring, Point: at}
}

func insertAt(p Path, at int, pt orb.Point) Path {
	p = append(p, orb.Point{})
	copy(p[at+1:], p[at:])
	p[at] = pt
	return p
}

func removeAt(p Path, at int) Path {
	return append(p[:at], p[at+1:]...)
}

// AddPoint inserts a vertex after the selected one, or appends it to the
// active path when no vertex is selected. Multipoints gain a new part.
func (g *Geometry) AddPoint(x, y float64, log bool) bool {
	r := g.kind.rules()
	pt := orb.Point{x, y}
	s := g.shape()

	switch {
	case r.single && !r.multi:
		return false
	case r.single:
		g.setShape(append(s, Part{{pt}}))
		g.sel = Selection{Part: len(s), Ring: 0, Point: 0}
	default:
		part, ring := g.activePath()
		if part < 0 {
			if r.closed || (len(s) > 0 && !r.multi) {
				return false
			}
			if g.anchor == nil {
				g.anchor = &pt
				return true
			}
			g.setShape(append(s, Part{{*g.anchor, pt}}))
			g.anchor = nil
			g.sel = Selection{Part: len(s), Ring: 0, Point: 1}
			break
		}
		path := s[part][ring]
		at := len(path)
		if r.closed {
			at = len(path) - 1
		}
		if g.sel.Part == part && g.sel.Ring == ring && g.sel.Point >= 0 && g.sel.Point < g.vertexCount(path) {
			at = g.sel.Point + 1
		}
		s[part][ring] = insertAt(path, at, pt)
		g.sel = Selection{Part: part, Ring: ring, Point: at}
	}
	if log {
		g.data.SaveState()
	}
	return true
}

// activePath is the selected path, else the first path of the last part.
func (g *Geometry) activePath() (int, int) {
	s := g.shape()
	if g.sel.Part >= 0 && g.sel.Part < len(s) && g.sel.Ring >= 0 && g.sel.Ring < len(s[g.sel.Part]) {
		return g.sel.Part, g.sel.Ring
	}
	for i := len(s) - 1; i >= 0; i-- {
		if len(s[i]) > 0 {
			return i, 0
		}
	}
	return -1, -1
}

// AddPiece adds a hole to a polygon part or a new part to a multi geometry,
// seeded from the corners (x1, y1) and (x2, y2). Holes and polygon parts are
// rectangles spanning the corners; a hole must lie inside its exterior ring.
func (g *Geometry) AddPiece(piece Piece, x1, y1, x2, y2 float64) bool {
	g.anchor = nil
	r := g.kind.rules()
	s := g.shape()
	switch piece {
	case PieceHole:
		if !r.holes || x1 == x2 || y1 == y2 {
			return false
		}
		hole := rectangle(x1, y1, x2, y2)
		part := g.partContaining(hole)
		if part < 0 {
			return false
		}
		s[part] = append(s[part], hole)
		g.sel = Selection{Part: part, Ring: len(s[part]) - 1, Point: 0}
	case PiecePart:
		if !r.multi {
			return false
		}
		var p Part
		switch {
		case r.single:
			p = Part{{{x1, y1}}}
		case r.closed:
			if x1 == x2 || y1 == y2 {
				return false
			}
			p = Part{rectangle(x1, y1, x2, y2)}
		default:
			if x1 == x2 && y1 == y2 {
				return false
			}
			p = Part{{{x1, y1}, {x2, y2}}}
		}
		g.setShape(append(s, p))
		g.sel = Selection{Part: len(s), Ring: 0, Point: 0}
	default:
		return false
	}
	g.data.SaveState()
	return true
}

// partContaining prefers the selected part, then any part whose exterior
// ring holds every vertex of ring.
func (g *Geometry) partContaining(ring Path) int {
	s := g.shape()
	inside := func(part int) bool {
		if len(s[part]) == 0 {
			return false
		}
		ext := orb.Ring(s[part][0])
		for _, p := range ring {
			if !planar.RingContains(ext, p) {
				return false
			}
		}
		return true
	}
	if g.sel.Part >= 0 && g.sel.Part < len(s) && inside(g.sel.Part) {
		return g.sel.Part
	}
	for i := range s {
		if inside(i) {
			return i
		}
	}
	return -1
}

// DeletePiece removes the selected vertex, hole or part. RemoveGeometry asks
// the caller to drop the whole feature and leaves the geometry as it was.
func (g *Geometry) DeletePiece(piece Piece) DeleteResult {
	if g.anchor != nil {
		g.anchor = nil
		return Deleted
	}
	if g.kind == KindPoint {
		return RemoveGeometry
	}
	var res DeleteResult
	switch piece {
	case PiecePoint:
		res = g.deletePoint()
	case PieceHole:
		res = g.deleteRing()
	case PiecePart:
		res = g.deletePart()
	}
	if res == Deleted || res == RemovedPart {
		g.dragging = false
		g.data.SaveState()
	}
	return res
}

func (g *Geometry) deletePoint() DeleteResult {
	if !g.validSelection() {
		return DeleteFailed
	}
	r := g.kind.rules()
	s := g.shape()
	path := s[g.sel.Part][g.sel.Ring]
	if g.vertexCount(path)-1 < r.minVertices {
		if r.closed {
			return g.deleteRing()
		}
		return g.deletePart()
	}

	at := g.sel.Point
	if r.closed && at == 0 {
		path = removeAt(path, 0)
		path[len(path)-1] = path[0]
	} else {
		path = removeAt(path, at)
	}
	s[g.sel.Part][g.sel.Ring] = path
	prev := at - 1
	if prev < 0 {
		prev = g.vertexCount(path) - 1
	}
	g.sel.Point = prev
	return Deleted
}

// deleteRing removes the selected ring. An exterior ring cannot go while
// holes remain.
func (g *Geometry) deleteRing() DeleteResult {
	s := g.shape()
	if !g.kind.rules().holes || g.sel.Part < 0 || g.sel.Part >= len(s) ||
		g.sel.Ring < 0 || g.sel.Ring >= len(s[g.sel.Part]) {
		return DeleteFailed
	}
	part := s[g.sel.Part]
	if g.sel.Ring > 0 {
		s[g.sel.Part] = append(part[:g.sel.Ring], part[g.sel.Ring+1:]...)
		g.sel = Selection{Part: g.sel.Part, Ring: 0, Point: -1}
		return RemovedPart
	}
	if len(part) > 1 {
		return DeleteFailed
	}
	return g.deletePart()
}

func (g *Geometry) deletePart() DeleteResult {
	s := g.shape()
	if g.sel.Part < 0 || g.sel.Part >= len(s) {
		if !g.kind.IsMulti() {
			return RemoveGeometry
		}
		return DeleteFailed
	}
	if len(s) == 1 {
		// A bare line may be emptied and redrawn; everything else goes
		// with its last part.
		if g.kind == KindLine {
			g.setShape(Shape{})
			g.ClearSelection()
			return RemovedPart
		}
		return RemoveGeometry
	}
	g.setShape(append(s[:g.sel.Part], s[g.sel.Part+1:]...))
	prev := g.sel.Part - 1
	if prev < 0 {
		prev = 0
	}
	g.sel = Selection{Part: prev, Ring: 0, Point: -1}
	return RemovedPart
}

func (g *Geometry) CanUndo() bool { return g.data.CanUndo() }

func (g *Geometry) CanRedo() bool { return g.data.CanRedo() }

// Undo and Redo drop the selection and any anchor; the addressed vertex may
// be gone.
func (g *Geometry) Undo() bool {
	if !g.data.Undo() {
		return false
	}
	g.ClearSelection()
	g.anchor = nil
	return true
}

func (g *Geometry) Redo() bool {
	if !g.data.Redo() {
		return false
	}
	g.ClearSelection()
	g.anchor = nil
	return true
}

// SaveState records the current payload as an undo step.
func (g *Geometry) SaveState() { g.data.SaveState() }

// Validate checks the payload can be committed: at least one part, every
// path long enough for the kind and every ring closed.
func (g *Geometry) Validate() error {
	r := g.kind.rules()
	s := g.shape()
	if len(s) == 0 {
		return errors.Wrap(ErrEmptyGeometry, r.name)
	}
	for i, part := range s {
		if len(part) == 0 {
			return errors.Wrapf(ErrInvalidGeometry, "%s part %d has no path", r.name, i)
		}
		for j, path := range part {
			if n := g.vertexCount(path); n < r.minVertices {
				return errors.Wrapf(ErrInvalidGeometry, "%s part %d path %d has %d vertices, want %d",
					r.name, i, j, n, r.minVertices)
			}
			if r.closed && path[0] != path[len(path)-1] {
				return errors.Wrapf(ErrInvalidGeometry, "%s part %d ring %d is not closed", r.name, i, j)
			}
		}
	}
	return nil
}
