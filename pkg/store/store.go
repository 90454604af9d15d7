// Package store is the local persisted cache: four independent
// id→record tables kept in a single pebble DB. It is the only state
// the UI layer observes; write failures always propagate.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"tripsync/pkg/logger"
)

// Kind names an entity table.
type Kind string

const (
	KindTrips       Kind = "trips"
	KindItineraries Kind = "itineraries"
	KindPolls       Kind = "polls"
	KindMessages    Kind = "messages"
)

var (
	// ErrNotFound marks an absent record.
	ErrNotFound = errors.New("store: record not found")
	// ErrClosed marks an operation against a closed store.
	ErrClosed = errors.New("store: not open")
)

// Options tunes the underlying pebble instance.
type Options struct {
	// CacheBytes sizes the pebble block cache; zero keeps the default.
	CacheBytes int64
}

// Store is an explicitly constructed cache handle with an open/close
// lifecycle. Construct one and inject it; there is no package-global
// instance.
type Store struct {
	db   *pebble.DB
	path string
}

// Open opens (or creates) the cache DB at path.
func Open(path string, opts Options) (*Store, error) {
	popts := &pebble.Options{}
	if opts.CacheBytes > 0 {
		cache := pebble.NewCache(opts.CacheBytes)
		defer cache.Unref()
		popts.Cache = cache
	}
	db, err := pebble.Open(path, popts)
	if err != nil {
		logger.Error("store_open_failed", "path", path, "error", err)
		return nil, err
	}
	logger.Info("store_opened", "path", path)
	openGauge.Inc()
	return &Store{db: db, path: path}, nil
}

// Close closes the DB. Safe to call on an already closed store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	openGauge.Dec()
	logger.Info("store_closed", "path", s.path)
	return err
}

// key layout: <kind>:<scope>:<id>. Scope partitions a table (e.g.
// messages by room); kinds with a single partition use an empty scope.
func key(kind Kind, scope, id string) []byte {
	return []byte(string(kind) + ":" + scope + ":" + id)
}

func prefix(kind Kind, scope string) []byte {
	return []byte(string(kind) + ":" + scope + ":")
}

// upperBound returns the exclusive end of the prefix's key range.
func upperBound(p []byte) []byte {
	end := make([]byte, len(p))
	copy(end, p)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// Get unmarshals the record with the given id into out.
func (s *Store) Get(kind Kind, scope, id string, out any) error {
	if s.db == nil {
		return ErrClosed
	}
	opsTotal.WithLabelValues("get").Inc()
	val, closer, err := s.db.Get(key(kind, scope, id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return ErrNotFound
		}
		errsTotal.WithLabelValues("get").Inc()
		return err
	}
	defer closer.Close()
	if err := json.Unmarshal(val, out); err != nil {
		errsTotal.WithLabelValues("get").Inc()
		return fmt.Errorf("store: decode %s/%s: %w", kind, id, err)
	}
	return nil
}

// Has reports whether any record exists under the given scope.
func (s *Store) Has(kind Kind, scope string) (bool, error) {
	if s.db == nil {
		return false, ErrClosed
	}
	p := prefix(kind, scope)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: p, UpperBound: upperBound(p)})
	if err != nil {
		return false, err
	}
	defer iter.Close()
	return iter.First(), nil
}

// List returns the raw JSON records under the given scope in key
// order. Callers apply their kind's ordering after decoding.
func (s *Store) List(kind Kind, scope string) ([][]byte, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	opsTotal.WithLabelValues("list").Inc()
	p := prefix(kind, scope)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: p, UpperBound: upperBound(p)})
	if err != nil {
		errsTotal.WithLabelValues("list").Inc()
		return nil, err
	}
	defer iter.Close()
	var out [][]byte
	for ok := iter.First(); ok; ok = iter.Next() {
		v := make([]byte, len(iter.Value()))
		copy(v, iter.Value())
		out = append(out, v)
	}
	if err := iter.Error(); err != nil {
		errsTotal.WithLabelValues("list").Inc()
		return nil, err
	}
	return out, nil
}

// Put upserts a single record.
func (s *Store) Put(kind Kind, scope, id string, rec any) error {
	if s.db == nil {
		return ErrClosed
	}
	opsTotal.WithLabelValues("put").Inc()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: encode %s/%s: %w", kind, id, err)
	}
	if err := s.db.Set(key(kind, scope, id), data, pebble.Sync); err != nil {
		errsTotal.WithLabelValues("put").Inc()
		logger.Error("store_put_failed", "kind", kind, "id", id, "error", err)
		return err
	}
	return nil
}

// PutMany upserts records in one batch. ids and recs are parallel.
func (s *Store) PutMany(kind Kind, scope string, ids []string, recs []any) error {
	if s.db == nil {
		return ErrClosed
	}
	if len(ids) != len(recs) {
		return fmt.Errorf("store: %d ids for %d records", len(ids), len(recs))
	}
	opsTotal.WithLabelValues("put_many").Inc()
	b := s.db.NewBatch()
	defer b.Close()
	for i, id := range ids {
		data, err := json.Marshal(recs[i])
		if err != nil {
			return fmt.Errorf("store: encode %s/%s: %w", kind, id, err)
		}
		if err := b.Set(key(kind, scope, id), data, nil); err != nil {
			return err
		}
	}
	if err := s.db.Apply(b, pebble.Sync); err != nil {
		errsTotal.WithLabelValues("put_many").Inc()
		return err
	}
	return nil
}

// ReplaceScope atomically swaps the scope's contents for the given
// records: the snapshot-replace used after a successful list refresh.
func (s *Store) ReplaceScope(kind Kind, scope string, ids []string, recs []any) error {
	if s.db == nil {
		return ErrClosed
	}
	if len(ids) != len(recs) {
		return fmt.Errorf("store: %d ids for %d records", len(ids), len(recs))
	}
	opsTotal.WithLabelValues("replace_scope").Inc()
	p := prefix(kind, scope)
	b := s.db.NewBatch()
	defer b.Close()
	if end := upperBound(p); end != nil {
		if err := b.DeleteRange(p, end, nil); err != nil {
			return err
		}
	}
	for i, id := range ids {
		data, err := json.Marshal(recs[i])
		if err != nil {
			return fmt.Errorf("store: encode %s/%s: %w", kind, id, err)
		}
		if err := b.Set(key(kind, scope, id), data, nil); err != nil {
			return err
		}
	}
	if err := s.db.Apply(b, pebble.Sync); err != nil {
		errsTotal.WithLabelValues("replace_scope").Inc()
		logger.Error("store_replace_failed", "kind", kind, "scope", scope, "error", err)
		return err
	}
	return nil
}

// Delete removes a single record. Deleting an absent id is a no-op.
func (s *Store) Delete(kind Kind, scope, id string) error {
	if s.db == nil {
		return ErrClosed
	}
	opsTotal.WithLabelValues("delete").Inc()
	if err := s.db.Delete(key(kind, scope, id), pebble.Sync); err != nil {
		errsTotal.WithLabelValues("delete").Inc()
		return err
	}
	return nil
}

// Clear drops every record under the scope.
func (s *Store) Clear(kind Kind, scope string) error {
	if s.db == nil {
		return ErrClosed
	}
	opsTotal.WithLabelValues("clear").Inc()
	p := prefix(kind, scope)
	end := upperBound(p)
	if end == nil {
		return nil
	}
	if err := s.db.DeleteRange(p, end, pebble.Sync); err != nil {
		errsTotal.WithLabelValues("clear").Inc()
		return err
	}
	return nil
}
