package source

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"geomap/internal/geo"
)

// MemoryStore holds features in memory. Edits land in an append-only log of
// WKB records that is only allocated on the first commit.
type MemoryStore struct {
	mu       sync.RWMutex
	features map[int64]*Feature
	ids      []int64
	cursor   int
	nextID   int64

	logOnce sync.Once
	log     *editLog
	synced  int64
}

type logEntry struct {
	version int64
	id      int64
	wkb     []byte
}

type editLog struct {
	entries []logEntry
	version int64
}

func NewMemoryStore(features ...Feature) *MemoryStore {
	s := &MemoryStore{features: make(map[int64]*Feature), nextID: 1}
	for _, f := range features {
		s.Add(f)
	}
	return s
}

// Add stores f, replacing a feature with the same ID. A zero ID is
// assigned the next free one.
func (s *MemoryStore) Add(f Feature) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(f)
}

func (s *MemoryStore) add(f Feature) int64 {
	if f.ID == 0 {
		f.ID = s.nextID
	}
	if f.ID >= s.nextID {
		s.nextID = f.ID + 1
	}
	if _, ok := s.features[f.ID]; !ok {
		i := sort.Search(len(s.ids), func(i int) bool { return s.ids[i] >= f.ID })
		s.ids = append(s.ids, 0)
		copy(s.ids[i+1:], s.ids[i:])
		s.ids[i] = f.ID
	}
	s.features[f.ID] = &f
	return f.ID
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Next walks features in ascending ID order.
func (s *MemoryStore) Next(ctx context.Context) (*Feature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor >= len(s.ids) {
		return nil, io.EOF
	}
	f := *s.features[s.ids[s.cursor]]
	s.cursor++
	return &f, nil
}

func (s *MemoryStore) Reset() {
	s.mu.Lock()
	s.cursor = 0
	s.mu.Unlock()
}

func (s *MemoryStore) Feature(ctx context.Context, id int64) (*Feature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.features[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "id %d", id)
	}
	out := *f
	return &out, nil
}

// Envelope covers every stored geometry.
func (s *MemoryStore) Envelope() geo.Envelope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	env := geo.EmptyEnvelope()
	for _, f := range s.features {
		if f.Geometry != nil {
			env.Merge(geo.EnvelopeOf(f.Geometry))
		}
	}
	return env
}

func (s *MemoryStore) editLog() *editLog {
	s.logOnce.Do(func() {
		s.log = &editLog{}
	})
	return s.log
}

func (s *MemoryStore) record(id int64, g geom.T) (int64, error) {
	var data []byte
	if g != nil {
		var err error
		if data, err = wkb.Marshal(g, wkb.NDR); err != nil {
			return 0, errors.Wrapf(err, "encode feature %d", id)
		}
	}
	l := s.editLog()
	l.version++
	l.entries = append(l.entries, logEntry{version: l.version, id: id, wkb: data})
	return l.version, nil
}

func (s *MemoryStore) CommitEdit(ctx context.Context, id int64, g geom.T) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if g == nil {
		return 0, errors.New("commit without geometry")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.features[id]
	if !ok {
		return 0, errors.Wrapf(ErrNotFound, "id %d", id)
	}
	version, err := s.record(id, g)
	if err != nil {
		return 0, err
	}
	updated := *f
	updated.Geometry = g
	s.features[id] = &updated
	log.WithFields(log.Fields{"feature": id, "version": version}).Debug("edit committed")
	return version, nil
}

func (s *MemoryStore) Insert(ctx context.Context, g geom.T, attrs map[string]interface{}) (int64, int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if g == nil {
		return 0, 0, errors.New("insert without geometry")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	version, err := s.record(id, g)
	if err != nil {
		return 0, 0, err
	}
	s.add(Feature{ID: id, Geometry: g, Attributes: attrs})
	log.WithFields(log.Fields{"feature": id, "version": version}).Debug("feature inserted")
	return id, version, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.features[id]; !ok {
		return 0, errors.Wrapf(ErrNotFound, "id %d", id)
	}
	version, err := s.record(id, nil)
	if err != nil {
		return 0, err
	}
	delete(s.features, id)
	i := sort.Search(len(s.ids), func(i int) bool { return s.ids[i] >= id })
	s.ids = append(s.ids[:i], s.ids[i+1:]...)
	if s.cursor > i {
		s.cursor--
	}
	log.WithFields(log.Fields{"feature": id, "version": version}).Debug("feature deleted")
	return version, nil
}

func (s *MemoryStore) SyncedWatermark() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.synced
}

// MarkSynced advances the watermark. It never moves backwards or past the
// newest version.
func (s *MemoryStore) MarkSynced(version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.log == nil {
		return
	}
	if version > s.log.version {
		version = s.log.version
	}
	if version > s.synced {
		s.synced = version
	}
}

// Changes returns logged edits newer than version, oldest first.
func (s *MemoryStore) Changes(since int64) ([]Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.log == nil {
		return nil, nil
	}
	var out []Change
	for _, e := range s.log.entries {
		if e.version <= since {
			continue
		}
		c := Change{Version: e.version, ID: e.id}
		if e.wkb != nil {
			g, err := wkb.Unmarshal(e.wkb)
			if err != nil {
				return nil, errors.Wrapf(err, "decode version %d", e.version)
			}
			c.Geometry = g
		}
		out = append(out, c)
	}
	return out, nil
}

// Pending lists edits not yet acknowledged by MarkSynced.
func (s *MemoryStore) Pending() ([]Change, error) {
	return s.Changes(s.SyncedWatermark())
}
