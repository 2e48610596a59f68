// Package overlay runs edit sessions: one feature's geometry under edit,
// committed back to the store with the affected tiles dropped from the
// cache.
package overlay

import (
	"context"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"

	"geomap/internal/edit"
	"geomap/internal/geo"
	"geomap/internal/metrics"
	"geomap/internal/source"
	"geomap/internal/tilecache"
	"geomap/internal/tiler"
)

var ErrClosed = errors.New("edit session closed")

type Options struct {
	Edit edit.Options
	// Cache and Tiler are optional. When set, a commit drops stale tiles
	// and refreshes the feature's prepared geometry.
	Cache   *tilecache.Cache
	Tiler   *tiler.Tiler
	Metrics *metrics.Metrics
}

type Session struct {
	store  source.Store
	opts   Options
	id     int64
	attrs  map[string]interface{}
	geom   *edit.Geometry
	extent geo.Envelope
	closed bool
}

// Begin opens feature id for editing.
func Begin(ctx context.Context, store source.Store, id int64, opts Options) (*Session, error) {
	f, err := store.Feature(ctx, id)
	if err != nil {
		return nil, err
	}
	g, err := edit.FromNative(f.Geometry, opts.Edit)
	if err != nil {
		return nil, errors.Wrapf(err, "feature %d", id)
	}
	log.WithFields(log.Fields{"feature": id, "kind": g.Kind()}).Debug("edit session started")
	return &Session{
		store:  store,
		opts:   opts,
		id:     id,
		attrs:  f.Attributes,
		geom:   g,
		extent: geo.EnvelopeOf(f.Geometry),
	}, nil
}

// Create starts a new feature of kind seeded from env. It is inserted into
// the store on the first Save.
func Create(store source.Store, kind edit.Kind, env geo.Envelope, opts Options) *Session {
	return &Session{
		store:  store,
		opts:   opts,
		geom:   edit.New(kind, env.MinX, env.MinY, env.MaxX, env.MaxY, opts.Edit),
		extent: geo.EmptyEnvelope(),
	}
}

func (s *Session) Geometry() *edit.Geometry { return s.geom }

// ID is zero until a created feature is saved.
func (s *Session) ID() int64 { return s.id }

func (s *Session) IsNew() bool { return s.id == 0 }

func (s *Session) Closed() bool { return s.closed }

// Save commits the current geometry and returns it. The session stays open.
func (s *Session) Save(ctx context.Context) (geom.T, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.geom.Validate(); err != nil {
		return nil, errors.Wrapf(err, "save feature %d", s.id)
	}
	g := s.geom.ToNative()
	var (
		version int64
		err     error
		op      = "update"
	)
	if s.IsNew() {
		op = "insert"
		s.id, version, err = s.store.Insert(ctx, g, s.attrs)
	} else {
		version, err = s.store.CommitEdit(ctx, s.id, g)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "save feature %d", s.id)
	}

	stale := s.extent
	stale.Merge(geo.EnvelopeOf(g))
	if err := s.invalidate(ctx, stale); err != nil {
		return nil, err
	}
	s.extent = geo.EnvelopeOf(g)
	s.opts.Metrics.Commit(op)
	log.WithFields(log.Fields{"feature": s.id, "version": version, "op": op}).Info("edit saved")
	return g, nil
}

// Cancel discards unsaved changes and closes the session.
func (s *Session) Cancel() {
	if !s.closed {
		log.WithField("feature", s.id).Debug("edit session cancelled")
	}
	s.closed = true
}

// Delete removes the feature from the store and closes the session. Callers
// use it when the engine reports edit.RemoveGeometry.
func (s *Session) Delete(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if s.IsNew() {
		s.closed = true
		return nil
	}
	version, err := s.store.Delete(ctx, s.id)
	if err != nil {
		return errors.Wrapf(err, "delete feature %d", s.id)
	}
	if err := s.invalidate(ctx, s.extent); err != nil {
		return err
	}
	s.closed = true
	s.opts.Metrics.Commit("delete")
	log.WithFields(log.Fields{"feature": s.id, "version": version}).Info("feature deleted")
	return nil
}

func (s *Session) invalidate(ctx context.Context, env geo.Envelope) error {
	if s.opts.Tiler != nil {
		refreshed, err := s.opts.Tiler.Refresh(ctx, s.id)
		if err != nil {
			return errors.Wrap(err, "refresh tiler")
		}
		env.Merge(refreshed)
	}
	if s.opts.Cache == nil {
		return nil
	}
	if _, err := s.opts.Cache.Invalidate(ctx, env); err != nil {
		return errors.Wrap(err, "invalidate tiles")
	}
	return nil
}
