// Package mysqlstore implements docstore.Store on a single MySQL table with a
// JSON body column. It needs MySQL 8.0.13 or later for functional indexes.
package mysqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/taskmanager/taskmanager-go/internal/docstore"
	"github.com/taskmanager/taskmanager-go/internal/docstore/migrations"
)

const errDuplicateEntry = 1062

// Store is a docstore.Store backed by a MySQL connection pool.
type Store struct {
	db     *sql.DB
	schema *migrations.Schema
}

// Open creates a MySQL connection pool with the given DSN and applies the
// schema. An unreachable server is logged, not fatal: the pool keeps dialing
// on demand and the schema is applied on the first operation that reaches it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db, schema: migrations.NewSchema(db, "mysql")}

	if err := db.PingContext(ctx); err != nil {
		slog.Warn("mysql ping failed, schema deferred", "error", err)
		return s, nil
	}

	if err := s.schema.Ensure(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Collection(name string) docstore.Collection {
	return &collection{db: s.db, schema: s.schema, name: name}
}

// EnsureUnique creates a functional unique index over the field for documents
// of the collection, unless one with the same name already exists.
func (s *Store) EnsureUnique(ctx context.Context, collection, field string) error {
	if err := docstore.ValidateField(collection); err != nil {
		return err
	}
	if err := docstore.ValidateField(field); err != nil {
		return err
	}

	if err := s.schema.Ensure(ctx); err != nil {
		return err
	}

	name := docstore.IndexName(collection, field)

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = 'documents' AND index_name = ?`, name).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	stmt := fmt.Sprintf(`CREATE UNIQUE INDEX %s ON documents ((CAST(
		CASE WHEN collection = '%s' THEN JSON_UNQUOTE(JSON_EXTRACT(body, '%s')) END
		AS CHAR(255)) COLLATE utf8mb4_bin))`, name, collection, jsonPath(field))

	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

type collection struct {
	db     *sql.DB
	schema *migrations.Schema
	name   string
}

func (c *collection) Find(ctx context.Context, filter docstore.Filter, out any) error {
	cond, args, err := where(c.name, filter)
	if err != nil {
		return err
	}

	if err := c.schema.Ensure(ctx); err != nil {
		return err
	}

	rows, err := c.db.QueryContext(ctx, `SELECT body FROM documents WHERE `+cond+` ORDER BY seq`, args...)
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
	cond, args, err := where(c.name, filter)
	if err != nil {
		return err
	}

	if err := c.schema.Ensure(ctx); err != nil {
		return err
	}

	var body []byte
	err = c.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE `+cond+` ORDER BY seq LIMIT 1`, args...).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

	_, err = c.db.ExecContext(ctx, `INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)`, c.name, id, string(body))
	return mapError(err)
}

func (c *collection) UpdateOne(ctx context.Context, filter docstore.Filter, patch docstore.Patch) error {
	if err := docstore.ValidatePatch(patch); err != nil {
		return err
	}
	cond, args, err := where(c.name, filter)
	if err != nil {
		return err
	}
	set, setArgs, err := jsonSet(patch)
	if err != nil {
		return err
	}

	if err := c.schema.Ensure(ctx); err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM documents WHERE `+cond+` ORDER BY seq LIMIT 1 FOR UPDATE`, args...).Scan(&seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return docstore.ErrNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE documents SET body = `+set+` WHERE seq = ?`, append(setArgs, seq)...); err != nil {
		return mapError(err)
	}

	return tx.Commit()
}

func (c *collection) DeleteOne(ctx context.Context, filter docstore.Filter, out any) error {
	cond, args, err := where(c.name, filter)
	if err != nil {
		return err
	}

	if err := c.schema.Ensure(ctx); err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		seq  int64
		body []byte
	)
	err = tx.QueryRowContext(ctx, `SELECT seq, body FROM documents WHERE `+cond+` ORDER BY seq LIMIT 1 FOR UPDATE`, args...).Scan(&seq, &body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return docstore.ErrNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE seq = ?`, seq); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	return docstore.DecodeOne(body, out)
}

func (c *collection) DeleteMany(ctx context.Context, filter docstore.Filter) (int64, error) {
	cond, args, err := where(c.name, filter)
	if err != nil {
		return 0, err
	}

	if err := c.schema.Ensure(ctx); err != nil {
		return 0, err
	}

	result, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE `+cond, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// where translates filter into a condition over the documents table.
// _id is matched on the indexed id column, everything else on the JSON body.
func where(collection string, filter docstore.Filter) (string, []any, error) {
	if err := docstore.ValidateFilter(filter); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("collection = ?")
	args := []any{collection}

	for _, k := range docstore.SortedKeys(filter) {
		v := filter[k]
		if id, ok := v.(string); ok && k == docstore.IDField {
			b.WriteString(" AND id = ?")
			args = append(args, id)
			continue
		}

		raw, err := json.Marshal(v)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s: %v", docstore.ErrInvalidFilter, k, err)
		}
		b.WriteString(" AND JSON_EXTRACT(body, ?) = CAST(? AS JSON)")
		args = append(args, jsonPath(k), string(raw))
	}

	return b.String(), args, nil
}

// jsonSet builds a JSON_SET expression assigning every patch field.
func jsonSet(patch docstore.Patch) (string, []any, error) {
	var b strings.Builder
	b.WriteString("JSON_SET(body")
	args := make([]any, 0, 2*len(patch))

	for _, k := range docstore.SortedKeys(patch) {
		raw, err := json.Marshal(patch[k])
		if err != nil {
			return "", nil, fmt.Errorf("encoding patch field %q: %w", k, err)
		}
		b.WriteString(", ?, CAST(? AS JSON)")
		args = append(args, jsonPath(k), string(raw))
	}
	b.WriteString(")")

	return b.String(), args, nil
}

func jsonPath(field string) string {
	return `$."` + field + `"`
}

func mapError(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == errDuplicateEntry {
		return fmt.Errorf("%w: %s", docstore.ErrDuplicate, myErr.Message)
	}
	return err
}
