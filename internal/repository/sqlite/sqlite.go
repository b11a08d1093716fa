// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. It is the default
// backend; set DATABASE_URL to a mongodb:// or postgres:// URL to use the others.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code: no C compiler needed.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB      - a connection pool (NOT a single connection!)
//   - sql.Row     - a single result row
//   - sql.Rows    - multiple result rows (must be closed!)
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/repo-bookmarks/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/bookmarks.db"  -> file-based database (persistent)
//   - ":memory:"           -> in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	// "sqlite" is the driver name registered by modernc.org/sqlite's init().
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// IN-MEMORY DATABASES ARE PER-CONNECTION:
	// Every new connection to ":memory:" gets its own empty database. If the
	// pool opened a second connection, it would not see our tables. Pin the
	// pool to a single connection so the whole process shares one database.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema.
//
// CREATE TABLE IF NOT EXISTS is safe to run on every start: it won't error
// if the table exists.
//
// UNIQUENESS LIVES IN THE SCHEMA:
//   - users.email is UNIQUE. TEXT columns use BINARY collation by default,
//     so the comparison is case-sensitive, exactly like the lookup.
//   - (user_id, repo_id) on bookmarks is UNIQUE. Two concurrent "add
//     bookmark" requests race here and SQLite rejects the loser.
//
// bookmarks.user_id carries no foreign key. A token outlives the account it
// was issued for, and adding a bookmark with such a token behaves the same
// on every backend (the MongoDB store has no foreign keys at all).
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS bookmarks (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL,
			repo_id          INTEGER NOT NULL,
			name             TEXT NOT NULL,
			full_name        TEXT NOT NULL DEFAULT '',
			description      TEXT,
			stars            INTEGER NOT NULL DEFAULT 0,
			forks            INTEGER NOT NULL DEFAULT 0,
			language         TEXT,
			html_url         TEXT NOT NULL,
			owner_login      TEXT NOT NULL DEFAULT '',
			owner_avatar_url TEXT NOT NULL DEFAULT '',
			owner_html_url   TEXT NOT NULL DEFAULT '',
			created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_bookmarks_user_repo ON bookmarks(user_id, repo_id);
	`)
	if err != nil {
		return fmt.Errorf("creating bookmarks table: %w", err)
	}

	return nil
}

// connPragmas run on EVERY connection the pool opens. A plain
// conn.Exec("PRAGMA ...") would only reach whichever connection served it.
//
//   - busy_timeout: a writer waits up to 5s for the lock instead of failing
//     at once with SQLITE_BUSY. SQLite allows one writer at a time.
//   - journal_mode(WAL): readers keep going while a write is in progress.
var connPragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
}

// dsn appends connPragmas to dbPath in modernc.org/sqlite's
// "_pragma=name(value)" query form.
func dsn(dbPath string) string {
	q := url.Values{}
	for _, p := range connPragmas {
		q.Add("_pragma", p)
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + q.Encode()
}

// isUniqueViolation reports whether err is SQLite's UNIQUE constraint failure.
//
// modernc.org/sqlite returns *sqlite.Error carrying the extended result code.
// SQLITE_CONSTRAINT_UNIQUE (2067) covers both UNIQUE columns and unique indexes;
// SQLITE_CONSTRAINT_PRIMARYKEY is included because a colliding xid would
// surface that way.
func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
