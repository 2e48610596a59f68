package tui

import (
	"context"
	"strconv"

	table "github.com/charmbracelet/bubbles/table"

	"geomap/internal/source"
)

const maxColWidth = 24

// refreshAttrs rebuilds the table from the loaded features.
func (m *Model) refreshAttrs() {
	fs, err := m.engine.Features(context.Background())
	if err != nil {
		m.showAttrs = false
		m.status = "attributes: " + err.Error()
		return
	}
	cols, rows := buildAttributes(fs)
	if len(cols) == 0 || len(rows) == 0 {
		m.showAttrs = false
		m.status = "no attributes for current dataset"
		return
	}
	tcols := make([]table.Column, 0, len(cols)+1)
	tcols = append(tcols, table.Column{Title: "id", Width: 6})
	for _, c := range cols {
		tcols = append(tcols, table.Column{Title: c, Width: min(maxColWidth, len(c)+2)})
	}
	// Clear rows before the columns change so widths never disagree.
	m.tbl.SetRows(nil)
	m.tbl.SetColumns(tcols)
	m.tbl.SetRows(rows)
}

// buildAttributes unions the attribute keys of fs in sorted order and
// returns one row per feature with attributes, led by its id.
func buildAttributes(fs []*source.Feature) ([]string, []table.Row) {
	seen := map[string]interface{}{}
	for _, f := range fs {
		for k := range f.Attributes {
			seen[k] = nil
		}
	}
	cols := sortedKeys(seen)
	if len(cols) == 0 {
		return nil, nil
	}
	rows := make([]table.Row, 0, len(fs))
	for _, f := range fs {
		if len(f.Attributes) == 0 {
			continue
		}
		row := make(table.Row, 0, len(cols)+1)
		row = append(row, strconv.FormatInt(f.ID, 10))
		for _, c := range cols {
			row = append(row, truncate(formatValue(f.Attributes[c]), maxColWidth))
		}
		rows = append(rows, row)
	}
	return cols, rows
}
