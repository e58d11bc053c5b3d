// Package memory is an in-process docstore.Store. It backs the test suites and
// the "memory" store driver for local development.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/taskmanager/taskmanager-go/internal/docstore"
)

type record struct {
	id     string
	body   []byte
	fields map[string]any
}

// Store keeps every collection as an insertion-ordered slice of JSON records.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]*record
	unique      map[string][]string
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		collections: make(map[string][]*record),
		unique:      make(map[string][]string),
	}
}

// Collection returns a handle to the named collection.
func (s *Store) Collection(name string) docstore.Collection {
	return &collection{store: s, name: name}
}

// EnsureUnique registers a unique constraint on field. It fails with
// docstore.ErrDuplicate if existing documents already violate it.
func (s *Store) EnsureUnique(_ context.Context, collection, field string) error {
	if err := docstore.ValidateField(field); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.unique[collection] {
		if f == field {
			return nil
		}
	}

	seen := make([]any, 0, len(s.collections[collection]))
	for _, r := range s.collections[collection] {
		v, ok := r.fields[field]
		if !ok || v == nil {
			continue
		}
		for _, prev := range seen {
			if reflect.DeepEqual(prev, v) {
				return fmt.Errorf("%w: %s.%s", docstore.ErrDuplicate, collection, field)
			}
		}
		seen = append(seen, v)
	}

	s.unique[collection] = append(s.unique[collection], field)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close(context.Context) error { return nil }

// violatesUnique reports whether candidate clashes with any record other than
// self on a unique field. Callers hold s.mu.
func (s *Store) violatesUnique(collection string, candidate map[string]any, self *record) bool {
	for _, field := range s.unique[collection] {
		v, ok := candidate[field]
		if !ok || v == nil {
			continue
		}
		for _, r := range s.collections[collection] {
			if r == self {
				continue
			}
			if reflect.DeepEqual(r.fields[field], v) {
				return true
			}
		}
	}
	return false
}

type collection struct {
	store *Store
	name  string
}

func (c *collection) Find(ctx context.Context, filter docstore.Filter, out any) error {
	match, err := matcher(filter)
	if err != nil {
		return err
	}

	c.store.mu.RLock()
	var bodies [][]byte
	for _, r := range c.store.collections[c.name] {
		if match(r) {
			bodies = append(bodies, r.body)
		}
	}
	c.store.mu.RUnlock()

	return docstore.DecodeMany(bodies, out)
}

func (c *collection) FindOne(ctx context.Context, filter docstore.Filter, out any) error {
	match, err := matcher(filter)
	if err != nil {
		return err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	for _, r := range c.store.collections[c.name] {
		if match(r) {
			return docstore.DecodeOne(r.body, out)
		}
	}
	return docstore.ErrNotFound
}

func (c *collection) Insert(ctx context.Context, doc any) error {
	body, id, err := docstore.EncodeDocument(doc)
	if err != nil {
		return err
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	for _, r := range c.store.collections[c.name] {
		if r.id == id {
			return fmt.Errorf("%w: %s %s", docstore.ErrDuplicate, docstore.IDField, id)
		}
	}
	if c.store.violatesUnique(c.name, fields, nil) {
		return docstore.ErrDuplicate
	}

	c.store.collections[c.name] = append(c.store.collections[c.name], &record{
		id:     id,
		body:   body,
		fields: fields,
	})
	return nil
}

func (c *collection) UpdateOne(ctx context.Context, filter docstore.Filter, patch docstore.Patch) error {
	if err := docstore.ValidatePatch(patch); err != nil {
		return err
	}
	match, err := matcher(filter)
	if err != nil {
		return err
	}

	normalized := make(map[string]any, len(patch))
	for k, v := range patch {
		n, err := docstore.Normalize(v)
		if err != nil {
			return fmt.Errorf("encoding patch field %q: %w", k, err)
		}
		normalized[k] = n
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	for _, r := range c.store.collections[c.name] {
		if !match(r) {
			continue
		}

		fields := make(map[string]any, len(r.fields)+len(normalized))
		for k, v := range r.fields {
			fields[k] = v
		}
		for k, v := range normalized {
			fields[k] = v
		}

		if c.store.violatesUnique(c.name, fields, r) {
			return docstore.ErrDuplicate
		}

		body, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		r.body = body
		r.fields = fields
		return nil
	}

	return docstore.ErrNotFound
}

func (c *collection) DeleteOne(ctx context.Context, filter docstore.Filter, out any) error {
	match, err := matcher(filter)
	if err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	records := c.store.collections[c.name]
	for i, r := range records {
		if !match(r) {
			continue
		}
		c.store.collections[c.name] = append(records[:i:i], records[i+1:]...)
		return docstore.DecodeOne(r.body, out)
	}

	return docstore.ErrNotFound
}

func (c *collection) DeleteMany(ctx context.Context, filter docstore.Filter) (int64, error) {
	match, err := matcher(filter)
	if err != nil {
		return 0, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	records := c.store.collections[c.name]
	kept := make([]*record, 0, len(records))
	var deleted int64
	for _, r := range records {
		if match(r) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	c.store.collections[c.name] = kept

	return deleted, nil
}

// matcher compiles filter into a predicate over stored records.
func matcher(filter docstore.Filter) (func(*record) bool, error) {
	if err := docstore.ValidateFilter(filter); err != nil {
		return nil, err
	}

	want := make(map[string]any, len(filter))
	for k, v := range filter {
		n, err := docstore.Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", docstore.ErrInvalidFilter, k, err)
		}
		want[k] = n
	}

	return func(r *record) bool {
		for k, v := range want {
			got, ok := r.fields[k]
			if !ok || !reflect.DeepEqual(got, v) {
				return false
			}
		}
		return true
	}, nil
}
