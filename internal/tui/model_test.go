package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom/encoding/wkt"

	"geomap/internal/config"
	"geomap/internal/edit"
	"geomap/internal/geo"
	"geomap/internal/metrics"
	"geomap/internal/source"
)

const square = "POLYGON ((-1000 -1000, 1000 -1000, 1000 1000, -1000 1000, -1000 -1000))"

func newModel(t *testing.T) Model {
	t.Helper()
	eng, err := NewEngine(config.Default(), metrics.New(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	g, err := wkt.Unmarshal(square)
	require.NoError(t, err)
	require.NoError(t, eng.Load(context.Background(), []source.Feature{
		{ID: 1, Geometry: g, Attributes: map[string]interface{}{"name": "block"}},
	}))

	m := New(eng)
	m.cwd = t.TempDir()
	m.fitData()
	return update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// mouseAt addresses the cell showing map point (x, y).
func mouseAt(m Model, x, y float64, action tea.MouseAction) tea.MouseMsg {
	ox, oy, _, _ := m.layout()
	dx, dy := m.vp.toDots(x, y)
	return tea.MouseMsg{
		X:      ox + int(dx)/dotsX,
		Y:      oy + int(dy)/dotsY,
		Action: action,
		Button: tea.MouseButtonLeft,
	}
}

func hasBraille(s string) bool {
	for _, r := range s {
		if r > 0x2800 && r <= 0x28FF {
			return true
		}
	}
	return false
}

func TestViewportRoundTrip(t *testing.T) {
	v := viewport{w: 10, h: 5}
	v.fit(geo.NewEnvelope(0, 0, 100, 100))
	assert.InDelta(t, 5.5, v.res, 1e-9)

	x, y := v.fromCell(0, 0)
	dx, dy := v.toDots(x, y)
	assert.InDelta(t, 1, dx, 1e-9)
	assert.InDelta(t, 2, dy, 1e-9)

	v = newViewport()
	assert.Equal(t, uint8(0), v.level(14))
	v.zoom(2)
	assert.Equal(t, uint8(1), v.level(14))
	for i := 0; i < 200; i++ {
		v.zoom(2)
	}
	assert.Equal(t, uint8(14), v.level(14))
}

func TestBrailleBuf(t *testing.T) {
	b := newBrailleBuf(2, 1)
	b.setPixel(0, 0)
	assert.Equal(t, []string{"⠁ "}, b.toLines())

	b.setClip(rect{2, 0, 4, 4})
	b.setPixel(1, 1)
	assert.False(t, b.isSet(1, 1))

	b = newBrailleBuf(2, 1)
	b.fillTriangle(0, 0, 8, 0, 0, 8)
	assert.True(t, b.isSet(0, 0))
	assert.False(t, b.isSet(1, 0))
	assert.True(t, b.isSet(3, 1))
}

func TestViewRendersTiles(t *testing.T) {
	m := newModel(t)
	out := m.View()
	assert.True(t, hasBraille(out))
	assert.NotZero(t, m.engine.Cache().Len())

	m = update(t, m, key("3"))
	assert.False(t, m.showPolys)
	assert.False(t, hasBraille(m.View()))
}

func TestEditAddVertexAndSave(t *testing.T) {
	m := newModel(t)
	m = update(t, m, key("e"))
	require.True(t, m.editing())
	assert.Equal(t, edit.KindPolygon, m.session.Geometry().Kind())
	assert.Contains(t, m.View(), "EDIT")

	m = update(t, m, key("v"))
	m = update(t, m, key("s"))
	assert.Equal(t, "saved feature 1", m.status)

	f, err := m.engine.Feature(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, f.Geometry.FlatCoords(), 12)

	m = update(t, m, key("w"))
	pending, err := m.engine.Store().Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
	_, err = os.Stat(filepath.Join(m.cwd, "geomap.edited.geojson"))
	assert.NoError(t, err)

	m = update(t, m, key("esc"))
	assert.False(t, m.editing())
}

func TestEditDragVertex(t *testing.T) {
	m := newModel(t)
	m = update(t, m, key("e"))
	require.True(t, m.editing())

	m = update(t, m, mouseAt(m, 1000, 1000, tea.MouseActionPress))
	assert.Equal(t, 2, m.session.Geometry().Selection().Point)
	m = update(t, m, mouseAt(m, 1050, 600, tea.MouseActionMotion))
	m = update(t, m, mouseAt(m, 1050, 600, tea.MouseActionRelease))

	g := m.session.Geometry()
	assert.True(t, g.CanUndo())
	moved := g.Shape()[0][0][2]
	assert.InDelta(t, 1050, moved[0], m.vp.cellRadius(1))
	assert.InDelta(t, 600, moved[1], m.vp.cellRadius(1))

	m = update(t, m, key("u"))
	assert.Equal(t, 1000.0, m.session.Geometry().Shape()[0][0][2][0])
}

func TestEditDeleteAndCreate(t *testing.T) {
	m := newModel(t)
	m = update(t, m, key("e"))
	m = update(t, m, key("X"))
	assert.False(t, m.editing())
	assert.Zero(t, m.engine.Store().Len())

	m = update(t, m, key("k"))
	assert.Equal(t, edit.KindMultiPoint, m.createKind)
	m = update(t, m, key("c"))
	require.True(t, m.editing())
	assert.True(t, m.session.IsNew())
	m = update(t, m, key("s"))
	assert.Equal(t, 1, m.engine.Store().Len())
}

func TestPasteAndAttributes(t *testing.T) {
	m := newModel(t)
	require.NoError(t, m.pasteWKT("POINT (0.001 0.001)"))
	assert.Equal(t, 2, m.engine.Store().Len())
	assert.True(t, strings.HasPrefix(m.status, "added feature 2"))
	assert.Error(t, m.pasteWKT("POINT ("))

	m = update(t, m, key("a"))
	require.True(t, m.showAttrs)
	rows := m.tbl.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"1", "block"}, []string(rows[0]))

	m = update(t, m, key("a"))
	m = update(t, m, key("i"))
	assert.Contains(t, m.inspectPopup, "feature: 1")
	assert.Contains(t, m.inspectPopup, "name: block")
}
