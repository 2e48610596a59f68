// Package tui is the terminal map viewer and editor.
package tui

import (
	"context"
	"os"

	list "github.com/charmbracelet/bubbles/list"
	table "github.com/charmbracelet/bubbles/table"
	textarea "github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"geomap/internal/edit"
	"geomap/internal/overlay"
)

const (
	sidebarWidth = 28
	headerHeight = 1
	footerHeight = 2
)

type Model struct {
	engine *Engine

	width  int
	height int

	showSidebar bool
	helpVisible bool

	vp        viewport
	fitOnSize bool

	status string

	// File explorer
	cwd     string
	l       list.Model
	items   []list.Item
	selPath string

	// paste mode
	pasteMode bool
	ta        textarea.Model

	// layer visibility
	showPoints bool
	showLines  bool
	showPolys  bool

	inspectPopup string

	// hover state, in map cells
	hovering    bool
	hoverCellX  int
	hoverCellY  int
	hoverX      float64
	hoverY      float64
	hoverID     int64
	hoverHasGeo bool

	// attributes table
	showAttrs bool
	tbl       table.Model

	// edit mode
	session    *overlay.Session
	createKind edit.Kind
	pressed    bool
	pressHit   bool
}

func New(engine *Engine) Model {
	m := Model{
		engine:      engine,
		helpVisible: true,
		vp:          newViewport(),
		status:      "geomap ready",
		showPoints:  true,
		showLines:   true,
		showPolys:   true,
		createKind:  edit.KindPolygon,
	}
	m.cwd, _ = os.Getwd()
	d := list.NewDefaultDelegate()
	d.ShowDescription = false
	m.l = list.New(nil, d, 0, 0)
	m.l.Title = "Files"
	m.l.SetShowHelp(false)
	m.l.SetShowStatusBar(false)
	m.l.SetFilteringEnabled(true)
	m.ta = textarea.New()
	m.ta.Placeholder = "Paste WKT here (lon/lat). Press Enter to add it; Esc to cancel."
	m.ta.CharLimit = 0
	m.ta.SetWidth(50)
	m.ta.SetHeight(6)
	m.tbl = table.New(table.WithFocused(true))
	m.tbl.SetHeight(12)
	m.refreshDir()
	return m
}

// NewWithPath preloads a file's data at launch.
func NewWithPath(engine *Engine, path string) Model {
	m := New(engine)
	m.loadPath(path)
	return m
}

func (m Model) Init() tea.Cmd { return nil }

// layout returns the map canvas origin and size in cells.
func (m Model) layout() (x, y, w, h int) {
	contentHeight := max(4, m.height-headerHeight-footerHeight)
	contentWidth := max(10, m.width)
	w = contentWidth - 1
	if m.showSidebar {
		w -= sidebarWidth
		x = sidebarWidth + 1
	}
	return x, headerHeight, max(10, w), contentHeight
}

// resize fits the viewport to the current layout.
func (m *Model) resize() {
	_, _, w, h := m.layout()
	m.vp.w, m.vp.h = w, h
	if m.showSidebar {
		m.l.SetSize(sidebarWidth-2, h-2)
	}
	if m.fitOnSize && m.width > 0 {
		m.fitData()
	}
}

// fitData zooms to the loaded features, deferring until the size is known.
func (m *Model) fitData() {
	if m.width == 0 {
		m.fitOnSize = true
		return
	}
	m.fitOnSize = false
	env := m.engine.Envelope(context.Background())
	m.vp.fit(env)
}

func (m Model) editing() bool { return m.session != nil }
