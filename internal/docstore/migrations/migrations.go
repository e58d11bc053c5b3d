// Package migrations holds the schema for the SQL document store backends.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pressly/goose/v3"
)

//go:embed mysql/*.sql postgres/*.sql
var Migrations embed.FS

// Up applies every pending migration for dialect ("mysql" or "postgres").
func Up(ctx context.Context, db *sql.DB, dialect string) error {
	switch dialect {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported migration dialect %q", dialect)
	}

	goose.SetBaseFS(Migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	if err := gooseUpContext(ctx, db, dialect); err != nil {
		return fmt.Errorf("applying %s migrations: %w", dialect, err)
	}

	return nil
}

// gooseUpContext is a seam for tests.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Schema applies a backend's migrations on first use. A failed attempt is not
// remembered, so a store opened while its server was down picks up the schema
// once the server is reachable.
type Schema struct {
	ready atomic.Bool
	mu    sync.Mutex
	apply func(ctx context.Context) error
}

// NewSchema returns a Schema that runs Up for dialect on db.
func NewSchema(db *sql.DB, dialect string) *Schema {
	return newSchema(func(ctx context.Context) error {
		return Up(ctx, db, dialect)
	})
}

func newSchema(apply func(ctx context.Context) error) *Schema {
	return &Schema{apply: apply}
}

// Ensure applies the migrations unless an earlier call already succeeded.
func (s *Schema) Ensure(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready.Load() {
		return nil
	}

	if err := s.apply(ctx); err != nil {
		return err
	}
	s.ready.Store(true)
	return nil
}
