// Package tilecache keeps built tiles in an ordered in-memory index backed by
// an optional badger store.
package tilecache

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/btree"
	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"

	"geomap/internal/geo"
	"geomap/internal/metrics"
	"geomap/internal/vectortile"
)

type Options struct {
	// Path of the badger directory. Empty with InMemory false means no
	// persistent layer.
	Path     string
	InMemory bool
	Compress bool
	Metrics  *metrics.Metrics
}

// entry is a btree item. A nil tile is on disk and not loaded yet.
type entry struct {
	key  geo.Key
	tile *vectortile.Tile
}

func (e *entry) Less(than btree.Item) bool { return e.key.Less(than.(*entry).key) }

const btreeDegree = 32

// Cache is safe for concurrent use. Tiles handed out by Get are shared and
// must not be modified.
type Cache struct {
	mu      sync.RWMutex
	index   *btree.BTree
	db      *badger.DB
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	metrics *metrics.Metrics
}

func Open(opts Options) (*Cache, error) {
	c := &Cache{index: btree.New(btreeDegree), metrics: opts.Metrics}
	if opts.Path == "" && !opts.InMemory {
		return c, nil
	}

	bopts := badger.DefaultOptions(opts.Path).
		WithInMemory(opts.InMemory).
		WithLogger(log.WithField("component", "badger"))
	if opts.InMemory {
		bopts = bopts.WithDir("").WithValueDir("")
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrap(err, "open tile store")
	}
	c.db = db

	if opts.Compress {
		if c.enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault)); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "zstd encoder")
		}
	}
	// Stored values may be compressed regardless of the current setting.
	if c.dec, err = zstd.NewReader(nil); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "zstd decoder")
	}

	if err := c.loadIndex(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// loadIndex registers every stored key without reading values.
func (c *Cache) loadIndex() error {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false, Prefix: keyPrefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k, err := decodeKey(it.Item().Key())
			if err != nil {
				return err
			}
			c.index.ReplaceOrInsert(&entry{key: k})
			n++
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "scan tile store")
	}
	if n > 0 {
		log.WithField("tiles", n).Debug("tile cache index loaded")
	}
	return nil
}

func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enc != nil {
		_ = c.enc.Close()
		c.enc = nil
	}
	if c.dec != nil {
		c.dec.Close()
		c.dec = nil
	}
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Get returns the tile for key, reading it from disk on first access.
func (c *Cache) Get(ctx context.Context, key geo.Key) (*vectortile.Tile, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	c.mu.RLock()
	item := c.index.Get(&entry{key: key})
	var t *vectortile.Tile
	if item != nil {
		t = item.(*entry).tile
	}
	c.mu.RUnlock()
	if item == nil {
		c.metrics.CacheMiss()
		return nil, false, nil
	}
	if t != nil {
		c.metrics.CacheHit("memory")
		return t, true, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another reader may have loaded it meanwhile.
	e, ok := c.index.Get(&entry{key: key}).(*entry)
	if !ok {
		c.metrics.CacheMiss()
		return nil, false, nil
	}
	if e.tile != nil {
		c.metrics.CacheHit("memory")
		return e.tile, true, nil
	}
	t, err := c.read(key)
	if err != nil {
		return nil, false, err
	}
	if t == nil {
		c.index.Delete(e)
		c.metrics.CacheMiss()
		return nil, false, nil
	}
	e.tile = t
	c.metrics.CacheHit("disk")
	return t, true, nil
}

func (c *Cache) read(key geo.Key) (*vectortile.Tile, error) {
	if c.db == nil {
		return nil, nil
	}
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeKey(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read tile %s", key)
	}
	data, err := c.decode(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "tile %s", key)
	}
	t := vectortile.New()
	if err := t.UnmarshalBinary(data); err != nil {
		return nil, errors.Wrapf(err, "tile %s", key)
	}
	return t, nil
}

// Put stores t under key. Invalid tiles are refused.
func (c *Cache) Put(ctx context.Context, key geo.Key, t *vectortile.Tile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t == nil || !t.Valid() {
		return errors.Newf("tile %s: refusing to cache an incomplete tile", key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		data, err := t.MarshalBinary()
		if err != nil {
			return errors.Wrapf(err, "tile %s", key)
		}
		val := c.encode(data)
		if err := c.db.Update(func(txn *badger.Txn) error {
			return txn.Set(encodeKey(key), val)
		}); err != nil {
			return errors.Wrapf(err, "write tile %s", key)
		}
	}
	c.index.ReplaceOrInsert(&entry{key: key, tile: t})
	return nil
}

// Invalidate drops every tile whose envelope intersects env and returns
// their keys in ascending order. Wrapped tiles are matched by their home
// column, whose content they repeat.
func (c *Cache) Invalidate(ctx context.Context, env geo.Envelope) ([]geo.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !env.IsInit() {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []geo.Key
	c.index.Ascend(func(i btree.Item) bool {
		k := i.(*entry).key
		home := k
		home.CrossExtent = 0
		if home.Envelope().Intersects(env) {
			keys = append(keys, k)
		}
		return true
	})
	if len(keys) == 0 {
		return nil, nil
	}
	if c.db != nil {
		wb := c.db.NewWriteBatch()
		defer wb.Cancel()
		for _, k := range keys {
			if err := wb.Delete(encodeKey(k)); err != nil {
				return nil, errors.Wrap(err, "invalidate tiles")
			}
		}
		if err := wb.Flush(); err != nil {
			return nil, errors.Wrap(err, "invalidate tiles")
		}
	}
	for _, k := range keys {
		c.index.Delete(&entry{key: k})
	}
	c.metrics.TilesInvalidated(len(keys))
	log.WithFields(log.Fields{"tiles": len(keys), "extent": env.String()}).Debug("tiles invalidated")
	return keys, nil
}

// Purge drops every cached tile, on disk too.
func (c *Cache) Purge(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		if err := c.db.DropPrefix(keyPrefix); err != nil {
			return errors.Wrap(err, "purge tiles")
		}
	}
	n := c.index.Len()
	c.index = btree.New(btreeDegree)
	c.metrics.TilesInvalidated(n)
	return nil
}

// Keys lists cached keys in ascending order.
func (c *Cache) Keys() []geo.Key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]geo.Key, 0, c.index.Len())
	c.index.Ascend(func(i btree.Item) bool {
		keys = append(keys, i.(*entry).key)
		return true
	})
	return keys
}

// KeysAt lists cached keys of zoom z in ascending order.
func (c *Cache) KeysAt(z uint8) []geo.Key {
	var out []geo.Key
	for _, k := range c.Keys() {
		if k.Z == z {
			out = append(out, k)
		}
	}
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.Len()
}

// Persistent reports whether a badger layer backs the cache.
func (c *Cache) Persistent() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db != nil
}
