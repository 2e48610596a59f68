package tui

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"geomap/internal/geo"
	"geomap/internal/vectortile"
)

// renderMap draws the visible tiles and, on top, the geometry under edit.
func (m Model) renderMap() string {
	w, h := m.vp.w, m.vp.h
	if w <= 0 || h <= 0 {
		return ""
	}
	br := newBrailleBuf(w, h)
	ctx := context.Background()
	hidden := int64(0)
	if m.session != nil && !m.session.IsNew() {
		hidden = m.session.ID()
	}
	extent := m.engine.cfg.Tiles.Extent
	for _, ti := range m.vp.keys(m.engine.cfg.Tiles.MaxZoom) {
		tile, err := m.engine.Tile(ctx, ti.Key)
		if err != nil {
			log.WithError(err).WithField("tile", ti.Key.String()).Warn("tile skipped")
			continue
		}
		m.drawTile(br, ti, tile, extent, hidden)
	}
	br.resetClip()

	cells := make([][]string, h)
	for y, line := range br.toLines() {
		row := make([]string, 0, w)
		for _, r := range line {
			row = append(row, string(r))
		}
		cells[y] = row
	}
	if m.session != nil {
		m.drawEdit(cells)
	}

	lines := make([]string, h)
	for y, row := range cells {
		lines[y] = strings.Join(row, "")
	}
	return strings.Join(lines, "\n")
}

// drawTile rasterizes one tile. Item coordinates run over [0, extent] across
// the tile envelope, y pointing down.
func (m Model) drawTile(br *brailleBuf, ti geo.TileItem, tile *vectortile.Tile, extent float64, hidden int64) {
	env := ti.Envelope
	x0, y0 := m.vp.toDots(env.MinX, env.MaxY)
	x1, y1 := m.vp.toDots(env.MaxX, env.MinY)
	br.setClip(rect{round(x0), round(y0), round(x1), round(y1)})
	sx := (x1 - x0) / extent
	sy := (y1 - y0) / extent
	at := func(p vectortile.SimplePoint) (float64, float64) {
		return x0 + float64(p.X)*sx, y0 + float64(p.Y)*sy
	}

	for _, it := range tile.Items() {
		if hidden != 0 && it.HasID(hidden) {
			continue
		}
		switch {
		case len(it.BorderIndices) > 0:
			if !m.showPolys {
				continue
			}
			for i := 0; i+2 < len(it.Indices); i += 3 {
				ax, ay := at(it.Points[it.Indices[i]])
				bx, by := at(it.Points[it.Indices[i+1]])
				cx, cy := at(it.Points[it.Indices[i+2]])
				br.fillTriangle(ax, ay, bx, by, cx, cy)
			}
			for _, ring := range it.BorderIndices {
				for i := range ring {
					ax, ay := at(it.Points[ring[i]])
					bx, by := at(it.Points[ring[(i+1)%len(ring)]])
					br.line(ax, ay, bx, by)
				}
			}
		case len(it.Indices) > 0:
			if !m.showLines {
				continue
			}
			for i := 0; i+1 < len(it.Indices); i++ {
				ax, ay := at(it.Points[it.Indices[i]])
				bx, by := at(it.Points[it.Indices[i+1]])
				br.line(ax, ay, bx, by)
			}
		default:
			if !m.showPoints {
				continue
			}
			for _, p := range it.Points {
				x, y := at(p)
				px, py := round(x), round(y)
				br.setPixel(px, py)
				br.setPixel(px+1, py)
				br.setPixel(px, py+1)
				br.setPixel(px+1, py+1)
			}
		}
	}
}

// drawEdit draws the edited shape with solid edges and marks its vertices.
// The selected vertex gets the highlight marker.
func (m Model) drawEdit(cells [][]string) {
	g := m.session.Geometry()
	shape := g.Shape()
	overlay := newBrailleBuf(m.vp.w, m.vp.h)
	for _, part := range shape {
		for _, path := range part {
			for i := 0; i+1 < len(path); i++ {
				ax, ay := m.vp.toDots(path[i][0], path[i][1])
				bx, by := m.vp.toDots(path[i+1][0], path[i+1][1])
				overlay.line(ax, ay, bx, by)
			}
		}
	}
	for y, line := range overlay.toLines() {
		for x, r := range []rune(line) {
			if r != ' ' {
				cells[y][x] = editStyle.Render(string(r))
			}
		}
	}

	sel := g.Selection()
	mark := func(x, y float64, style string) {
		if x < 0 || y < 0 {
			return
		}
		cx, cy := int(x)/dotsX, int(y)/dotsY
		if cy >= len(cells) || cx >= len(cells[cy]) {
			return
		}
		cells[cy][cx] = style
	}
	for pi, part := range shape {
		for ri, path := range part {
			n := len(path)
			if g.Kind().IsClosed() {
				n-- // closing vertex
			}
			for i := 0; i < n; i++ {
				x, y := m.vp.toDots(path[i][0], path[i][1])
				marker := vertexMarker
				if sel.Part == pi && sel.Ring == ri && sel.Point == i {
					marker = selectedMarker
				}
				mark(x, y, marker)
			}
		}
	}
	if p, ok := g.Anchor(); ok {
		x, y := m.vp.toDots(p[0], p[1])
		mark(x, y, selectedMarker)
	}
}
