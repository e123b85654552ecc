package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/client/migrations"
	"github.com/dmitrijs2005/fieldcrm/internal/common"
	"github.com/dmitrijs2005/fieldcrm/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

const sqlitePageSize = 4096

// SQLiteStore implements Store over a SQLite file. The database is opened
// and migrated on the first operation; a failed open is retried on the next.
type SQLiteStore struct {
	path     string
	schema   Schema
	maxBytes int64

	mu sync.Mutex
	db *sql.DB
}

// Option tunes a SQLiteStore.
type Option func(*SQLiteStore)

// WithMaxBytes caps the database size. Writes beyond it fail with
// ErrQuotaExceeded.
func WithMaxBytes(n int64) Option {
	return func(s *SQLiteStore) { s.maxBytes = n }
}

// NewSQLite returns a store for the database at path. Nothing is opened yet.
func NewSQLite(path string, schema Schema, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{path: path, schema: schema}
	for _, o := range opts {
		o(s)
	}
	return s
}

// newWithDB binds an already opened, already migrated database.
func newWithDB(db *sql.DB, schema Schema) *SQLiteStore {
	return &SQLiteStore{schema: schema, db: db}
}

func (s *SQLiteStore) dsn() string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	if s.maxBytes > 0 {
		pages := s.maxBytes / sqlitePageSize
		if pages < 1 {
			pages = 1
		}
		q.Add("_pragma", fmt.Sprintf("max_page_count(%d)", pages))
	}
	return "file:" + s.path + "?" + q.Encode()
}

// Open forces the lazy open. It is safe to call more than once.
func (s *SQLiteStore) Open(ctx context.Context) error {
	_, err := s.handle(ctx)
	return err
}

func (s *SQLiteStore) handle(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}

	db, err := sql.Open("sqlite", s.dsn())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	// one writer at a time; SQLite serialises writes anyway
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if err := migrate(ctx, db, s.schema); err != nil {
		_ = db.Close()
		if dbx.IsDiskFull(err) {
			return nil, fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return nil, fmt.Errorf("%w: migrate %s: %v", ErrStorageUnavailable, s.schema.Name, err)
	}

	s.db = db
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB, schema Schema) error {
	fsys, err := fs.Sub(migrations.FS, schema.Dir)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

func (s *SQLiteStore) table(p Partition) (string, error) {
	if !s.schema.has(p) {
		return "", fmt.Errorf("%w: %s", ErrUnknownPartition, p)
	}
	// partition names are a closed set, safe to splice into SQL
	return string(p), nil
}

// mapErr turns driver errors into store errors.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, ErrStorageUnavailable),
		errors.Is(err, ErrQuotaExceeded):
		return err
	case dbx.IsDiskFull(err):
		return fmt.Errorf("%s: %w: %v", op, ErrQuotaExceeded, err)
	case dbx.IsUnavailable(err):
		return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *SQLiteStore) Get(ctx context.Context, p Partition, key string) (Record, error) {
	table, err := s.table(p)
	if err != nil {
		return Record{}, err
	}
	db, err := s.handle(ctx)
	if err != nil {
		return Record{}, err
	}

	var rec Record
	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var created int64
		row := tx.QueryRowContext(ctx,
			`SELECT key, order_id, created_at, value FROM `+table+` WHERE key = ?`, key)
		if err := row.Scan(&rec.Key, &rec.OrderID, &created, &rec.Value); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return common.ErrorNotFound
			}
			return err
		}
		rec.CreatedAt = time.Unix(0, created).UTC()
		return nil
	})
	if err != nil {
		return Record{}, mapErr(fmt.Sprintf("get %s[%s]", p, key), err)
	}
	return rec, nil
}

func (s *SQLiteStore) Put(ctx context.Context, p Partition, rec Record) error {
	table, err := s.table(p)
	if err != nil {
		return err
	}
	if rec.Key == "" {
		return fmt.Errorf("put %s: empty key", p)
	}
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO `+table+` (key, order_id, created_at, value) VALUES (?, ?, ?, COALESCE(?, X''))
			ON CONFLICT(key) DO UPDATE SET
				order_id = excluded.order_id,
				created_at = excluded.created_at,
				value = excluded.value`,
			rec.Key, rec.OrderID, rec.CreatedAt.UnixNano(), rec.Value)
		return err
	})
	return mapErr(fmt.Sprintf("put %s[%s]", p, rec.Key), err)
}

// Delete removes key from p. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, p Partition, key string) error {
	table, err := s.table(p)
	if err != nil {
		return err
	}
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE key = ?`, key)
		return err
	})
	return mapErr(fmt.Sprintf("delete %s[%s]", p, key), err)
}

func (s *SQLiteStore) Iterate(ctx context.Context, p Partition, q Query) ([]Record, error) {
	table, err := s.table(p)
	if err != nil {
		return nil, err
	}

	query := `SELECT key, order_id, created_at, value FROM ` + table
	var args []any
	switch q.Index {
	case IndexKey:
		query += ` ORDER BY key`
	case IndexCreatedAt:
		query += ` ORDER BY created_at, rowid`
	case IndexOrderID:
		query += ` WHERE order_id = ? ORDER BY created_at, rowid`
		args = append(args, q.OrderID)
	default:
		return nil, fmt.Errorf("iterate %s: unknown index %q", p, q.Index)
	}
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}

	var out []Record
	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var rec Record
			var created int64
			if err := rows.Scan(&rec.Key, &rec.OrderID, &created, &rec.Value); err != nil {
				return err
			}
			rec.CreatedAt = time.Unix(0, created).UTC()
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, mapErr(fmt.Sprintf("iterate %s", p), err)
	}
	return out, nil
}

// Close releases the database if it was ever opened.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
