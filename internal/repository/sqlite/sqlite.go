// Package sqlite implements the repository interfaces on top of SQLite.
//
// The driver is modernc.org/sqlite, a pure Go build of SQLite, so the binary
// needs no C toolchain. Schema changes are SQL files under migrations/,
// embedded into the binary and applied by goose when the store opens.
//
// Every write the services depend on for correctness is a single statement:
// the refresh-token rotation in particular is one conditional UPDATE, so
// two concurrent refreshes of the same user can never both succeed.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"time"

	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// gooseUp is a seam for tests that need to run without migrations.
var gooseUp = func(ctx context.Context, conn *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, conn, "migrations")
}

// DB wraps a sql.DB connection pool and provides the repository methods for
// users (user.go) and blogs (blog.go).
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens the SQLite database at dbPath and applies pending migrations.
//
// dbPath examples:
//   - "data/blog.db" → file-based database
//   - ":memory:"     → in-memory database, lost on Close
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows one writer at a time. A single pooled connection also
	// keeps ":memory:" databases from splitting into one copy per connection.
	conn.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if err := gooseUp(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return newFromConn(conn), nil
}

// newFromConn wraps an already-open pool without touching the schema.
func newFromConn(conn *sql.DB) *DB {
	return &DB{
		conn: conn,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// dsn builds a modernc connection string with the pragmas every connection
// needs: foreign keys on, a busy timeout, and WAL for file databases.
func dsn(dbPath string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	if dbPath != ":memory:" {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	return "file:" + dbPath + "?" + q.Encode()
}

// Ping reports whether the database is reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}
