// Package memstore is an in-memory document store implementing the same
// capability interface as the Mongo adapter. It exists so the consistency
// engine can be tested in isolation, without a database.
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"forkful/store"
)

type Store struct {
	mu    sync.RWMutex
	colls map[string]map[string]bson.M
}

func New() *Store {
	return &Store{colls: make(map[string]map[string]bson.M)}
}

// toDoc normalizes an arbitrary document value through a bson round trip so
// stored field names and scalar types match what the Mongo adapter would see.
func toDoc(id string, doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("memstore: encode document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("memstore: decode document: %w", err)
	}
	m["_id"] = id
	return m, nil
}

func decode(m bson.M, out any) error {
	raw, err := bson.Marshal(m)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func (s *Store) coll(name string) map[string]bson.M {
	c, ok := s.colls[name]
	if !ok {
		c = make(map[string]bson.M)
		s.colls[name] = c
	}
	return c
}

// lookup is the read-side variant of coll: it never mutates the collection
// map, so it is safe under the read lock.
func (s *Store) lookup(name string) map[string]bson.M {
	return s.colls[name]
}

func (s *Store) Get(ctx context.Context, coll, id string, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.lookup(coll)[id]
	if !ok {
		return store.ErrNotFound
	}
	return decode(m, out)
}

func (s *Store) Create(ctx context.Context, coll, id string, doc any) error {
	m, err := toDoc(id, doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(coll)
	if _, ok := c[id]; ok {
		return store.ErrExists
	}
	c[id] = m
	return nil
}

func (s *Store) Set(ctx context.Context, coll, id string, doc any) error {
	m, err := toDoc(id, doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.coll(coll)[id] = m
	return nil
}

func (s *Store) Update(ctx context.Context, coll, id string, upd store.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(coll)
	m, ok := c[id]
	if !ok {
		return store.ErrNotFound
	}
	c[id] = applyUpdate(m, upd)
	return nil
}

func (s *Store) Delete(ctx context.Context, coll, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(coll)
	if _, ok := c[id]; !ok {
		return false, nil
	}
	delete(c, id)
	return true, nil
}

func (s *Store) Find(ctx context.Context, coll string, q store.Query, out any) error {
	s.mu.RLock()
	matched := make([]bson.M, 0)
	for _, m := range s.lookup(coll) {
		if matches(m, q.Filters) {
			matched = append(matched, m)
		}
	}
	s.mu.RUnlock()

	if q.OrderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			c := compare(matched[i][q.OrderBy], matched[j][q.OrderBy])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && int64(len(matched)) > q.Limit {
		matched = matched[:q.Limit]
	}

	slice := reflect.ValueOf(out)
	if slice.Kind() != reflect.Ptr || slice.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("memstore: Find out must be a pointer to a slice, got %T", out)
	}
	elems := reflect.MakeSlice(slice.Elem().Type(), 0, len(matched))
	elemType := slice.Elem().Type().Elem()
	for _, m := range matched {
		ev := reflect.New(elemType)
		if err := decode(m, ev.Interface()); err != nil {
			return err
		}
		elems = reflect.Append(elems, ev.Elem())
	}
	slice.Elem().Set(elems)
	return nil
}

// Batch stages every write against copies of the affected collections and
// swaps them in only if all ops validate, so a failing op leaves the store
// untouched.
func (s *Store) Batch(ctx context.Context, ops []store.Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string]map[string]bson.M)
	stage := func(coll string) map[string]bson.M {
		c, ok := staged[coll]
		if !ok {
			c = make(map[string]bson.M, len(s.coll(coll)))
			for id, m := range s.coll(coll) {
				c[id] = m
			}
			staged[coll] = c
		}
		return c
	}

	for _, op := range ops {
		c := stage(op.Coll)
		switch op.Kind {
		case store.OpCreate:
			if _, ok := c[op.ID]; ok {
				return store.ErrExists
			}
			m, err := toDoc(op.ID, op.Doc)
			if err != nil {
				return err
			}
			c[op.ID] = m
		case store.OpSet:
			m, err := toDoc(op.ID, op.Doc)
			if err != nil {
				return err
			}
			c[op.ID] = m
		case store.OpUpdate:
			m, ok := c[op.ID]
			if !ok {
				return store.ErrNotFound
			}
			c[op.ID] = applyUpdate(m, op.Update)
		case store.OpDelete:
			delete(c, op.ID)
		}
	}

	for coll, c := range staged {
		s.colls[coll] = c
	}
	return nil
}

func applyUpdate(m bson.M, upd store.Update) bson.M {
	next := make(bson.M, len(m))
	for k, v := range m {
		next[k] = v
	}
	for k, v := range upd.Set {
		next[k] = v
	}
	for k, v := range upd.Inc {
		next[k] = asInt64(next[k]) + asInt64(v)
	}
	return next
}

func matches(m bson.M, filters []store.Filter) bool {
	for _, f := range filters {
		v, ok := m[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case store.OpEq:
			if compare(v, f.Value) != 0 {
				return false
			}
		case store.OpLt:
			if compare(v, f.Value) >= 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// compare orders two scalar document values. Strings compare
// lexicographically, which is what keyset pagination over RFC 3339
// timestamps relies on.
func compare(a, b any) int {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			switch {
			case as < bs:
				return -1
			case as > bs:
				return 1
			default:
				return 0
			}
		}
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return 0
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}
