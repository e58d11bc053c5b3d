// Package docstore defines the document store used by the repositories.
//
// A store is a set of named collections holding JSON-like documents keyed by
// "_id". Filters match on top-level field equality and patches overwrite the
// named top-level fields. That is the whole contract: every backend
// (in-memory, MongoDB, MySQL, Postgres) implements exactly these operations.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrDuplicate     = errors.New("duplicate document")
	ErrInvalidFilter = errors.New("invalid filter")
	ErrMissingID     = errors.New("document has no _id")
)

// IDField is the key every document is addressed by.
const IDField = "_id"

// Filter selects documents whose top-level fields equal the given values.
// An empty filter matches every document in the collection.
type Filter map[string]any

// Patch sets the given top-level fields on the matched document.
type Patch map[string]any

// Store is a handle to a document database.
type Store interface {
	Collection(name string) Collection
	// EnsureUnique makes field unique across all documents of collection.
	// Inserts that would violate it fail with ErrDuplicate.
	EnsureUnique(ctx context.Context, collection, field string) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Collection is a named set of documents.
//
// out arguments are decoded the way encoding/json would decode the stored
// document: Find expects a pointer to a slice, FindOne and DeleteOne a pointer
// to a struct or map. DeleteOne accepts a nil out when the caller does not need
// the removed document.
type Collection interface {
	Find(ctx context.Context, filter Filter, out any) error
	FindOne(ctx context.Context, filter Filter, out any) error
	Insert(ctx context.Context, doc any) error
	UpdateOne(ctx context.Context, filter Filter, patch Patch) error
	DeleteOne(ctx context.Context, filter Filter, out any) error
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateField reports whether name can be used as a collection name, filter
// key or patch key. Names are restricted so SQL backends can embed them in
// JSON paths and index names.
func ValidateField(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("%w: unsupported name %q", ErrInvalidFilter, name)
	}
	return nil
}

// ValidateFilter checks every key of f with ValidateField.
func ValidateFilter(f Filter) error {
	for k := range f {
		if err := ValidateField(k); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePatch checks every key of p and rejects attempts to change the id.
func ValidatePatch(p Patch) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty patch", ErrInvalidFilter)
	}
	for k := range p {
		if err := ValidateField(k); err != nil {
			return err
		}
		if k == IDField {
			return fmt.Errorf("%w: %s is immutable", ErrInvalidFilter, IDField)
		}
	}
	return nil
}

// IndexName is the name SQL backends give the unique index on
// collection.field. It stays within the 63 byte identifier limit of Postgres.
func IndexName(collection, field string) string {
	name := "ux_" + collection + "_" + field
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}
