package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"geomap/internal/edit"
	"geomap/internal/geo"
	"geomap/internal/geo/backend"
)

// editKey runs an edit mode binding and reports whether key was one.
func (m *Model) editKey(key string) bool {
	ctx := context.Background()
	g := m.session.Geometry()
	switch key {
	case "v":
		x, y := m.cursor()
		if !g.AddPoint(x, y, true) {
			m.status = "cannot add a vertex to a " + g.Kind().String()
			return true
		}
		m.status = "vertex added"
		if _, ok := g.Anchor(); ok {
			m.status = "first vertex placed, add another to start the line"
		}
	case "x":
		m.deletePiece(edit.PiecePoint)
	case "D":
		m.deletePiece(edit.PieceHole)
	case "X":
		m.deletePiece(edit.PiecePart)
	case "H", "P":
		piece, name := edit.PieceHole, "hole"
		if key == "P" {
			piece, name = edit.PiecePart, "part"
		}
		x, y := m.cursor()
		r := m.vp.cellRadius(2)
		if !g.AddPiece(piece, x-r, y-r, x+r, y+r) {
			m.status = "cannot add a " + name + " here"
			return true
		}
		m.status = name + " added"
	case "u":
		if !g.Undo() {
			m.status = "nothing to undo"
			return true
		}
		m.status = "undo"
	case "r":
		if !g.Redo() {
			m.status = "nothing to redo"
			return true
		}
		m.status = "redo"
	case "s":
		if _, err := m.session.Save(ctx); err != nil {
			log.WithError(err).Warn("save failed")
			m.status = "save error: " + err.Error()
			return true
		}
		m.status = fmt.Sprintf("saved feature %d", m.session.ID())
	case "esc":
		m.closeSession()
		m.status = "edit cancelled"
	default:
		return false
	}
	return true
}

func (m *Model) deletePiece(piece edit.Piece) {
	res := m.session.Geometry().DeletePiece(piece)
	switch res {
	case edit.DeleteFailed:
		m.status = "nothing to delete"
	case edit.RemoveGeometry:
		id := m.session.ID()
		if err := m.session.Delete(context.Background()); err != nil {
			m.status = "delete error: " + err.Error()
			return
		}
		m.session = nil
		m.status = fmt.Sprintf("feature %d deleted", id)
	default:
		m.status = strings.ToLower(res.String())
	}
}

// touch turns mouse gestures into engine touches: press, drag and release
// move a grabbed vertex; a press that grabs nothing becomes a tap.
func (m *Model) touch(msg tea.MouseMsg) {
	g := m.session.Geometry()
	tol := m.vp.cellRadius(m.engine.cfg.Edit.TouchTolerance)
	x, y := m.hoverX, m.hoverY
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		m.pressed = true
		m.pressHit = g.Touch(x, y, edit.TouchDown, tol).Index >= 0
	case tea.MouseActionMotion:
		if m.pressed && m.pressHit {
			g.Touch(x, y, edit.TouchMove, tol)
		}
	case tea.MouseActionRelease:
		if !m.pressed {
			return
		}
		m.pressed = false
		if m.pressHit {
			g.Touch(x, y, edit.TouchUp, tol)
			return
		}
		if g.Touch(x, y, edit.TouchSingle, tol).Index >= 0 {
			m.status = "vertex selected"
		}
	}
}

// cursor is the hovered map position, or the view center without a mouse.
func (m Model) cursor() (float64, float64) {
	if m.hoverHasGeo {
		return m.hoverX, m.hoverY
	}
	return m.vp.cx, m.vp.cy
}

// pick finds the feature under (x, y), zero when there is none.
func (m Model) pick(x, y float64) int64 {
	tol := m.vp.cellRadius(m.engine.cfg.Edit.TouchTolerance)
	id, ok := m.engine.Nearest(context.Background(), x, y, tol)
	if !ok {
		return 0
	}
	return id
}

func (m *Model) beginEdit() {
	x, y := m.cursor()
	id := m.pick(x, y)
	if id == 0 {
		m.status = "no feature under cursor"
		return
	}
	s, err := m.engine.Begin(context.Background(), id)
	if err != nil {
		m.status = "edit error: " + err.Error()
		return
	}
	m.closeSession()
	m.session = s
	m.inspectPopup = ""
	m.status = fmt.Sprintf("editing feature %d (%s)", id, s.Geometry().Kind())
}

// createFeature starts a new feature of the current kind in the middle of
// the view.
func (m *Model) createFeature() {
	env := m.vp.envelope()
	env.Resize(1.0 / 3)
	m.closeSession()
	m.session = m.engine.Create(m.createKind, env)
	m.status = "new " + m.createKind.String() + ", s to save"
}

func (m *Model) closeSession() {
	if m.session != nil {
		m.session.Cancel()
		m.session = nil
	}
	m.pressed = false
}

func nextKind(k edit.Kind) edit.Kind {
	kinds := edit.Kinds()
	return kinds[(int(k)+1)%len(kinds)]
}

// inspect describes the feature under the cursor in a popup.
func (m *Model) inspect() {
	ctx := context.Background()
	x, y := m.cursor()
	id := m.pick(x, y)
	if id == 0 {
		m.inspectPopup = "no feature nearby"
		m.status = m.inspectPopup
		return
	}
	f, err := m.engine.Feature(ctx, id)
	if err != nil {
		m.inspectPopup = "inspect: " + err.Error()
		return
	}
	env := geo.EnvelopeOf(f.Geometry)
	minLon, minLat := lonLat(env.MinX, env.MinY)
	maxLon, maxLat := lonLat(env.MaxX, env.MaxY)
	typ := "unknown"
	if h, err := backend.ToBackend(f.Geometry); err == nil {
		typ = h.Type()
	}
	z := m.vp.level(m.engine.cfg.Tiles.MaxZoom)
	tileKey := "-"
	if keys := geo.KeysForEnvelope(geo.NewEnvelope(x, y, x, y), z); len(keys) > 0 {
		tileKey = keys[0].Key.String()
	}
	store := m.engine.Store()
	pending, _ := store.Pending()
	meta := []string{
		fmt.Sprintf("feature: %d", id),
		fmt.Sprintf("type: %s", typ),
		fmt.Sprintf("vertices: %d", len(f.Geometry.FlatCoords())/f.Geometry.Stride()),
		fmt.Sprintf("bbox: [%.5f, %.5f, %.5f, %.5f]", minLon, minLat, maxLon, maxLat),
		fmt.Sprintf("tile: %s", tileKey),
		fmt.Sprintf("cache: %d tiles", m.engine.Cache().Len()),
		fmt.Sprintf("edits: %d pending, synced to v%d", len(pending), store.SyncedWatermark()),
	}
	for _, k := range sortedKeys(f.Attributes) {
		meta = append(meta, fmt.Sprintf("%s: %s", k, truncate(formatValue(f.Attributes[k]), 32)))
	}
	m.inspectPopup = strings.Join(meta, "\n")
	m.status = "inspect popup"
}
