// Package source is the boundary to the feature store the engine reads from
// and commits edits to.
package source

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
)

var ErrNotFound = errors.New("feature not found")

type Feature struct {
	ID         int64
	Geometry   geom.T
	Attributes map[string]interface{}
}

// Store reads features in ID order and accepts edits. Versions grow with
// every commit; SyncedWatermark is the newest version acknowledged
// upstream.
type Store interface {
	// Next returns io.EOF after the last feature.
	Next(ctx context.Context) (*Feature, error)
	Reset()
	Feature(ctx context.Context, id int64) (*Feature, error)
	CommitEdit(ctx context.Context, id int64, g geom.T) (int64, error)
	Insert(ctx context.Context, g geom.T, attrs map[string]interface{}) (id, version int64, err error)
	Delete(ctx context.Context, id int64) (int64, error)
	SyncedWatermark() int64
}

// Change is one logged edit. A nil Geometry records a delete.
type Change struct {
	Version  int64
	ID       int64
	Geometry geom.T
}
