package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database. Useful for tests and dry runs.
const MemoryPath = ":memory:"

// DB wraps the SQLite connections backing the note store.
//
// Writes go through a single-connection pool whose transactions begin
// IMMEDIATE, so mutations are applied one at a time and each one is atomic.
// Reads use their own pool and run inside a transaction, which under WAL
// gives every read a consistent snapshot of notes and entries.
type DB struct {
	writer *sql.DB
	reader *sql.DB
	Path   string

	log zerolog.Logger
	now func() int64
}

// Option configures a DB at open time.
type Option func(*DB)

// WithLogger sets the logger used for degraded reads (e.g. malformed tags).
func WithLogger(l zerolog.Logger) Option {
	return func(d *DB) { d.log = l }
}

// WithClock overrides the millisecond clock used for created_at/updated_at.
func WithClock(now func() int64) Option {
	return func(d *DB) { d.now = now }
}

// OpenDB opens (creating if needed) the note database at path, enables WAL
// mode and foreign keys, and brings the schema up to date.
func OpenDB(path string, opts ...Option) (*DB, error) {
	d := &DB{
		Path: path,
		log:  zerolog.Nop(),
		now:  func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(d)
	}

	writer, err := sql.Open("sqlite", dsn(path, true))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	writer.SetMaxOpenConns(1)

	if err := migrate(context.Background(), writer); err != nil {
		writer.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	d.writer = writer
	d.reader = writer
	if path == MemoryPath {
		return d, nil
	}

	reader, err := sql.Open("sqlite", dsn(path, false))
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("opening read pool: %w", err)
	}
	d.reader = reader

	return d, nil
}

// dsn builds a modernc.org/sqlite connection string. PRAGMAs are passed as
// _pragma parameters so every pooled connection gets them, not just the first.
func dsn(path string, writer bool) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	if path != MemoryPath {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	if writer {
		q.Set("_txlock", "immediate")
	} else {
		q.Add("_pragma", "query_only(1)")
	}
	return "file:" + uriPathEscaper.Replace(path) + "?" + q.Encode()
}

// uriPathEscaper escapes the characters SQLite's URI parser treats specially
// in the path part of a file: URI.
var uriPathEscaper = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

// Close closes both connection pools
func (d *DB) Close() error {
	var err error
	if d.reader != d.writer {
		err = d.reader.Close()
	}
	if werr := d.writer.Close(); werr != nil {
		err = werr
	}
	return err
}

// Conn returns the read-only pool for custom queries
func (d *DB) Conn() *sql.DB {
	return d.reader
}

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// write runs fn inside a write transaction. fn must only touch tx: the writer
// pool has a single connection.
func (d *DB) write(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := d.writer.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageErr(op, err)
	}
	return nil
}

// read runs fn inside a transaction on the read pool so multi-query loads
// see a single snapshot.
func (d *DB) read(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := d.reader.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(op, err)
	}
	defer tx.Rollback()
	return fn(tx)
}
