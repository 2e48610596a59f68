package tui

import (
	"fmt"

	list "github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

const zoomStep = 1.2

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
	case tea.KeyMsg:
		// Keys belong to the list while it filters.
		if m.showSidebar && m.l.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.l, cmd = m.l.Update(msg)
			return m, cmd
		}
		if m.pasteMode {
			return m.updatePaste(msg)
		}
		if m.editing() && m.editKey(msg.String()) {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.closeSession()
			return m, tea.Quit
		case "1":
			m.showPoints = !m.showPoints
			m.status = fmt.Sprintf("points: %v", m.showPoints)
		case "2":
			m.showLines = !m.showLines
			m.status = fmt.Sprintf("lines: %v", m.showLines)
		case "3":
			m.showPolys = !m.showPolys
			m.status = fmt.Sprintf("polys: %v", m.showPolys)
		case "+", "=":
			m.vp.zoom(zoomStep)
			m.status = fmt.Sprintf("zoom: z%d", m.vp.level(m.engine.cfg.Tiles.MaxZoom))
		case "-", "_":
			m.vp.zoom(1 / zoomStep)
			m.status = fmt.Sprintf("zoom: z%d", m.vp.level(m.engine.cfg.Tiles.MaxZoom))
		case "f":
			m.fitData()
		case "tab":
			m.showSidebar = !m.showSidebar
			if m.showSidebar {
				m.refreshDir()
			}
			m.resize()
		case "p":
			m.pasteMode = true
			m.ta.SetValue("")
			m.status = "paste mode"
			m.ta.Focus()
		case "h":
			m.helpVisible = !m.helpVisible
		case "a":
			m.showAttrs = !m.showAttrs
			if m.showAttrs {
				m.refreshAttrs()
			}
		case "i":
			m.inspect()
		case "esc":
			m.inspectPopup = ""
		case "l":
			all := m.showPoints && m.showLines && m.showPolys
			m.showPoints, m.showLines, m.showPolys = !all, !all, !all
			m.status = fmt.Sprintf("layers: pts=%v ls=%v poly=%v", m.showPoints, m.showLines, m.showPolys)
		case "e":
			m.beginEdit()
		case "c":
			m.createFeature()
		case "k":
			m.createKind = nextKind(m.createKind)
			m.status = "new features: " + m.createKind.String()
		case "w":
			if err := m.exportEdits(); err != nil {
				m.status = "export error: " + err.Error()
			}
		case "enter":
			if m.showSidebar {
				if it, ok := m.l.SelectedItem().(fileItem); ok {
					m.loadPath(it.path)
				}
			}
		case "up":
			m.vp.pan(0, -1)
		case "down":
			m.vp.pan(0, 1)
		case "left":
			m.vp.pan(-2, 0)
		case "right":
			m.vp.pan(2, 0)
		}
	case tea.MouseMsg:
		m.updateMouse(msg)
	}
	if m.showSidebar {
		var cmd tea.Cmd
		m.l, cmd = m.l.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updatePaste(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.pasteMode = false
		m.ta.Blur()
		m.status = "view mode"
		return m, nil
	case "enter":
		if err := m.pasteWKT(m.ta.Value()); err != nil {
			m.status = "wkt error: " + err.Error()
			return m, nil
		}
		m.pasteMode = false
		m.ta.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.ta, cmd = m.ta.Update(msg)
	return m, cmd
}

func (m *Model) updateMouse(msg tea.MouseMsg) {
	ox, oy, w, h := m.layout()
	cx, cy := msg.X-ox, msg.Y-oy
	inside := cx >= 0 && cx < w && cy >= 0 && cy < h
	if !inside {
		m.hovering = false
		m.hoverHasGeo = false
		if msg.Action == tea.MouseActionRelease {
			m.pressed = false
		}
		return
	}
	m.hovering = true
	m.hoverCellX, m.hoverCellY = cx, cy
	m.hoverX, m.hoverY = m.vp.fromCell(cx, cy)
	m.hoverHasGeo = true

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.vp.zoom(zoomStep)
	case msg.Button == tea.MouseButtonWheelDown:
		m.vp.zoom(1 / zoomStep)
	case m.editing():
		m.touch(msg)
	}
	if !m.editing() || !m.pressed {
		m.hoverID = m.pick(m.hoverX, m.hoverY)
	}
}
