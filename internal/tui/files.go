package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	list "github.com/charmbracelet/bubbles/list"
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"

	"geomap/internal/source"
)

type fileItem struct {
	title, desc string
	path        string
}

func (f fileItem) Title() string       { return f.title }
func (f fileItem) Description() string { return f.desc }
func (f fileItem) FilterValue() string { return f.title }

func (m *Model) refreshDir() {
	entries, err := os.ReadDir(m.cwd)
	if err != nil {
		m.status = "read dir error: " + err.Error()
		return
	}
	var items []list.Item
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !source.Supported(name) {
			continue
		}
		items = append(items, fileItem{title: name, desc: strings.ToLower(filepath.Ext(name)), path: filepath.Join(m.cwd, name)})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].(fileItem).Title() < items[j].(fileItem).Title() })
	m.items = items
	m.l.SetItems(items)
	if len(items) == 0 {
		m.status = "no supported files in current directory"
	}
}

// loadPath replaces the data set with a file's features. Input is taken as
// lon/lat and projected to web mercator.
func (m *Model) loadPath(p string) {
	if !source.Supported(p) {
		m.status = "unsupported file: " + filepath.Ext(p)
		return
	}
	fs, err := source.LoadFile(p, source.LoadOptions{Mercator: true})
	if err != nil {
		log.WithError(err).WithField("path", p).Warn("load failed")
		m.status = "load error: " + err.Error()
		return
	}
	m.closeSession()
	if err := m.engine.Load(context.Background(), fs); err != nil {
		m.status = "load error: " + err.Error()
		return
	}
	m.selPath = p
	m.showPoints, m.showLines, m.showPolys = true, true, true
	m.inspectPopup = ""
	m.fitData()
	m.status = fmt.Sprintf("loaded: %s  features: %d", filepath.Base(p), len(fs))
	if m.showAttrs {
		m.refreshAttrs()
	}
}

// pasteWKT adds the pasted geometry to the data set as a new feature.
func (m *Model) pasteWKT(text string) error {
	g, err := source.ParseWKT(text)
	if err != nil {
		return err
	}
	g, err = source.ToMercator(g)
	if err != nil {
		return err
	}
	wasEmpty := m.engine.Store().Len() == 0
	id, err := m.engine.Insert(context.Background(), g)
	if err != nil {
		return err
	}
	if wasEmpty {
		m.fitData()
	}
	m.status = fmt.Sprintf("added feature %d from wkt", id)
	return nil
}

// exportEdits writes the data set, edits included, next to the loaded file
// and marks every logged edit as synced.
func (m *Model) exportEdits() error {
	store := m.engine.Store()
	pending, err := store.Pending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		m.status = "no unsaved edits"
		return nil
	}
	fs, err := m.engine.Features(context.Background())
	if err != nil {
		return err
	}
	path := exportPath(m.selPath, m.cwd)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "export")
	}
	if err := source.WriteGeoJSON(f, fs, true); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "export")
	}
	last := pending[len(pending)-1].Version
	store.MarkSynced(last)
	log.WithFields(log.Fields{"path": path, "edits": len(pending), "version": last}).Info("edits exported")
	m.status = fmt.Sprintf("wrote %d edits to %s", len(pending), filepath.Base(path))
	return nil
}

func exportPath(loaded, dir string) string {
	if loaded == "" {
		return filepath.Join(dir, "geomap.edited.geojson")
	}
	base := strings.TrimSuffix(filepath.Base(loaded), filepath.Ext(loaded))
	return filepath.Join(filepath.Dir(loaded), base+".edited.geojson")
}
