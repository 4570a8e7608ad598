// Package eventcache implements the default capability.Cache: a durable,
// id-keyed badger store (spec.md §6 "on-disk cache... MUST survive
// between invocations") with the indexed query shapes discovery (C4)
// needs, fronted by an LRU hot layer for the id lookups the remote-helper
// protocol loop repeats within a single invocation.
//
// Keying mirrors the teacher's badger wiring in storage/badger.go: one
// flat keyspace, prefixed by purpose, iterated with badger's native
// prefix scan rather than a secondary database.
package eventcache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"

	"github.com/make-os/nostrgit/internal/capability"
	"github.com/make-os/nostrgit/internal/eventmodel"
	"github.com/make-os/nostrgit/pkgs/cache"
)

// hotCacheSize bounds the number of events kept in the LRU hot layer.
const hotCacheSize = 4096

// noopLogger silences badger's internal logging; the core has its own
// logging path through pkgs/logger at the call sites that matter.
type noopLogger struct{}

func (noopLogger) Errorf(string, ...interface{})   {}
func (noopLogger) Warningf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})    {}
func (noopLogger) Debugf(string, ...interface{})   {}

const (
	prefixEvent     = "ev:"  // ev:<id> -> json event
	prefixAuthorKD  = "akd:" // akd:<author>:<kind>:<d> -> id of newest matching event
	prefixKindATag  = "ka:"  // ka:<kind>:<a-value>:<id> -> ""
	prefixKindETag  = "ke:"  // ke:<kind>:<e-value>:<id> -> ""
)

// Cache is the production capability.Cache: badger-backed, safe for
// concurrent use (badger itself serializes transactions), with an LRU
// layer absorbing repeated id lookups.
type Cache struct {
	db  *badger.DB
	hot *cache.Cache // id -> *eventmodel.Event
	mu  sync.Mutex
}

var _ capability.Cache = (*Cache)(nil)

// Open opens (or creates) the badger store at dir. An empty dir opens an
// in-memory store, used by tests.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	opts = opts.WithTruncate(true).WithLogger(noopLogger{})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open event cache")
	}
	return &Cache{db: db, hot: cache.NewCache(hotCacheSize)}, nil
}

// Close releases the underlying badger store.
func (c *Cache) Close() error {
	return c.db.Close()
}

func eventKey(id string) []byte { return []byte(prefixEvent + id) }

func authorKDKey(author string, kind eventmodel.Kind, d string) []byte {
	return []byte(fmt.Sprintf("%s%s:%d:%s", prefixAuthorKD, author, int(kind), d))
}

func kindATagKey(kind eventmodel.Kind, a, id string) []byte {
	return []byte(fmt.Sprintf("%s%d:%s:%s", prefixKindATag, int(kind), a, id))
}

func kindATagPrefix(kind eventmodel.Kind, a string) []byte {
	return []byte(fmt.Sprintf("%s%d:%s:", prefixKindATag, int(kind), a))
}

func kindETagKey(kind eventmodel.Kind, e, id string) []byte {
	return []byte(fmt.Sprintf("%s%d:%s:%s", prefixKindETag, int(kind), e, id))
}

func kindETagPrefix(kind eventmodel.Kind, e string) []byte {
	return []byte(fmt.Sprintf("%s%d:%s:", prefixKindETag, int(kind), e))
}

// Put persists ev, indexing it under every tag shape discovery queries
// by. For a replaceable kind, the author+kind+d index is only advanced
// if ev is newer than whatever is currently indexed there.
func (c *Cache) Put(ctx context.Context, ev *eventmodel.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(eventKey(ev.ID), payload); err != nil {
			return err
		}

		if ev.Kind.IsReplaceable() {
			key := authorKDKey(ev.PubKey, ev.Kind, ev.DTag())
			if cur, err := currentReplaceable(txn, key); err == nil && cur != nil && cur.CreatedAt >= ev.CreatedAt {
				// a newer (or equally new) event already occupies this
				// replaceable slot; still index by tag below so lookups
				// by a/e tag see this event too, but don't steal the slot.
			} else if err := txn.Set(key, []byte(ev.ID)); err != nil {
				return err
			}
		}

		for _, t := range ev.Tags.FindAll(eventmodel.TagA) {
			if err := txn.Set(kindATagKey(ev.Kind, t.Value(), ev.ID), nil); err != nil {
				return err
			}
		}
		for _, name := range []string{eventmodel.TagE, eventmodel.TagBigE} {
			for _, t := range ev.Tags.FindAll(name) {
				if err := txn.Set(kindETagKey(ev.Kind, t.Value(), ev.ID), nil); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		c.hot.Add(ev.ID, ev)
	}
	return err
}

func currentReplaceable(txn *badger.Txn, key []byte) (*eventmodel.Event, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var id string
	if err := item.Value(func(val []byte) error { id = string(val); return nil }); err != nil {
		return nil, err
	}
	evItem, err := txn.Get(eventKey(id))
	if err != nil {
		return nil, err
	}
	var ev eventmodel.Event
	if err := evItem.Value(func(val []byte) error { return json.Unmarshal(val, &ev) }); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Get returns the event with the given id.
func (c *Cache) Get(ctx context.Context, id string) (*eventmodel.Event, bool, error) {
	if v := c.hot.Get(id); v != nil {
		return v.(*eventmodel.Event), true, nil
	}
	var ev *eventmodel.Event
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(eventKey(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var e eventmodel.Event
			if err := json.Unmarshal(val, &e); err != nil {
				return err
			}
			ev = &e
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}
	if ev == nil {
		return nil, false, nil
	}
	c.hot.Add(id, ev)
	return ev, true, nil
}

// ByAuthorKindD returns the newest cached event for the replaceable
// (author, kind, d) slot.
func (c *Cache) ByAuthorKindD(ctx context.Context, author string, kind eventmodel.Kind, d string) (*eventmodel.Event, bool, error) {
	var id string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(authorKDKey(author, kind, d))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { id = string(val); return nil })
	})
	if err != nil || id == "" {
		return nil, false, err
	}
	return c.Get(ctx, id)
}

// ByKindATag returns every cached event of kind tagging coordinate a.
func (c *Cache) ByKindATag(ctx context.Context, kind eventmodel.Kind, a string) ([]*eventmodel.Event, error) {
	ids, err := c.scanIDs(kindATagPrefix(kind, a))
	if err != nil {
		return nil, err
	}
	return c.loadAll(ctx, ids)
}

// ByKindETag returns every cached event of kind referencing event id e
// (via either an "e" or "E" tag).
func (c *Cache) ByKindETag(ctx context.Context, kind eventmodel.Kind, e string) ([]*eventmodel.Event, error) {
	ids, err := c.scanIDs(kindETagPrefix(kind, e))
	if err != nil {
		return nil, err
	}
	return c.loadAll(ctx, ids)
}

func (c *Cache) scanIDs(prefix []byte) ([]string, error) {
	var ids []string
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, key[strings.LastIndex(key, ":")+1:])
		}
		return nil
	})
	return ids, err
}

func (c *Cache) loadAll(ctx context.Context, ids []string) ([]*eventmodel.Event, error) {
	out := make([]*eventmodel.Event, 0, len(ids))
	for _, id := range ids {
		ev, ok, err := c.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, ev)
		}
	}
	return out, nil
}
