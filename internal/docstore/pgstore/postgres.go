// Package pgstore implements docstore.Store on a Postgres table with a jsonb
// body column, using a pgx connection pool.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/taskmanager/taskmanager-go/internal/docstore"
	"github.com/taskmanager/taskmanager-go/internal/docstore/migrations"
)

const uniqueViolation = "23505"

// Store is a docstore.Store backed by a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	schema *migrations.Schema
}

// Open connects to Postgres and applies the schema through goose. An
// unreachable server is logged and the pool is returned anyway; the schema is
// then applied on the first operation that reaches the server.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	s := &Store{pool: pool, schema: migrations.NewSchema(stdlib.OpenDBFromPool(pool), "postgres")}

	if err := pool.Ping(ctx); err != nil {
		slog.Warn("postgres ping failed, schema deferred", "error", err)
		return s, nil
	}

	if err := s.schema.Ensure(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Collection(name string) docstore.Collection {
	return &collection{pool: s.pool, schema: s.schema, name: name}
}

// EnsureUnique creates a partial unique expression index on the field,
// restricted to documents of the collection.
func (s *Store) EnsureUnique(ctx context.Context, collection, field string) error {
	if err := docstore.ValidateField(collection); err != nil {
		return err
	}
	if err := docstore.ValidateField(field); err != nil {
		return err
	}

	stmt := fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON documents ((body ->> '%s')) WHERE collection = '%s'`,
		docstore.IndexName(collection, field), field, collection)

	if err := s.schema.Ensure(ctx); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, stmt)
	return mapError(err)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}

type collection struct {
	pool   *pgxpool.Pool
	schema *migrations.Schema
	name   string
}

func (c *collection) Find(ctx context.Context, filter docstore.Filter, out any) error {
	var q query
	cond, err := q.where(c.name, filter)
	if err != nil {
		return err
	}

	if err := c.schema.Ensure(ctx); err != nil {
		return err
	}

	rows, err := c.pool.Query(ctx, `SELECT body FROM documents WHERE `+cond+` ORDER BY seq`, q.args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	var bodies [][]byte
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return err
		}
		bodies = append(bodies, body)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	return docstore.DecodeMany(bodies, out)
}

func (c *collection) FindOne(ctx context.Context, filter docstore.Filter, out any) error {
	var q query
	cond, err := q.where(c.name, filter)
	if err != nil {
		return err
	}

	if err := c.schema.Ensure(ctx); err != nil {
		return err
	}

	var body []byte
	err = c.pool.QueryRow(ctx, `SELECT body FROM documents WHERE `+cond+` ORDER BY seq LIMIT 1`, q.args...).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return docstore.ErrNotFound
		}
		return err
	}

	return docstore.DecodeOne(body, out)
}

func (c *collection) Insert(ctx context.Context, doc any) error {
	body, id, err := docstore.EncodeDocument(doc)
	if err != nil {
		return err
	}

	if err := c.schema.Ensure(ctx); err != nil {
		return err
	}

	_, err = c.pool.Exec(ctx, `INSERT INTO documents (collection, id, body) VALUES ($1, $2, $3::jsonb)`, c.name, id, string(body))
	return mapError(err)
}

func (c *collection) UpdateOne(ctx context.Context, filter docstore.Filter, patch docstore.Patch) error {
	if err := docstore.ValidatePatch(patch); err != nil {
		return err
	}

	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encoding patch: %w", err)
	}

	var q query
	patchArg := q.arg(string(raw))
	cond, err := q.where(c.name, filter)
	if err != nil {
		return err
	}

	if err := c.schema.Ensure(ctx); err != nil {
		return err
	}

	// jsonb || jsonb replaces the top-level keys present on the right.
	tag, err := c.pool.Exec(ctx, `UPDATE documents SET body = body || `+patchArg+`::jsonb
		WHERE seq = (SELECT seq FROM documents WHERE `+cond+` ORDER BY seq LIMIT 1 FOR UPDATE)`, q.args...)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (c *collection) DeleteOne(ctx context.Context, filter docstore.Filter, out any) error {
	var q query
	cond, err := q.where(c.name, filter)
	if err != nil {
		return err
	}

	if err := c.schema.Ensure(ctx); err != nil {
		return err
	}

	var body []byte
	err = c.pool.QueryRow(ctx, `DELETE FROM documents
		WHERE seq = (SELECT seq FROM documents WHERE `+cond+` ORDER BY seq LIMIT 1 FOR UPDATE)
		RETURNING body`, q.args...).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return docstore.ErrNotFound
		}
		return err
	}

	return docstore.DecodeOne(body, out)
}

func (c *collection) DeleteMany(ctx context.Context, filter docstore.Filter) (int64, error) {
	var q query
	cond, err := q.where(c.name, filter)
	if err != nil {
		return 0, err
	}

	if err := c.schema.Ensure(ctx); err != nil {
		return 0, err
	}

	tag, err := c.pool.Exec(ctx, `DELETE FROM documents WHERE `+cond, q.args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// query accumulates positional arguments.
type query struct {
	args []any
}

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

// where translates filter into a condition over the documents table.
func (q *query) where(collection string, filter docstore.Filter) (string, error) {
	if err := docstore.ValidateFilter(filter); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("collection = " + q.arg(collection))

	for _, k := range docstore.SortedKeys(filter) {
		v := filter[k]
		if id, ok := v.(string); ok && k == docstore.IDField {
			b.WriteString(" AND id = " + q.arg(id))
			continue
		}

		raw, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", docstore.ErrInvalidFilter, k, err)
		}
		b.WriteString(" AND body -> " + q.arg(k) + "::text = " + q.arg(string(raw)) + "::jsonb")
	}

	return b.String(), nil
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", docstore.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
