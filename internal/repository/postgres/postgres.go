// Package postgres implements the repository interfaces on PostgreSQL via
// a pgx connection pool.
//
// Selected when DATABASE_URL starts with postgres:// or postgresql://.
// Ids are UUIDs generated in Go and stored as TEXT, so a malformed id in a
// request simply matches nothing instead of raising a cast error.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sakif/repo-bookmarks/internal/repository"
)

// uniqueViolation is SQLSTATE 23505.
const uniqueViolation = "23505"

var _ repository.Store = (*DB)(nil)

type DB struct {
	pool *pgxpool.Pool
}

// New opens a pool, pings it and applies the schema.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}
	return db, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

func (db *DB) migrate(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bookmarks (
			id               TEXT PRIMARY KEY,
			seq              BIGSERIAL,
			user_id          TEXT NOT NULL,
			repo_id          BIGINT NOT NULL,
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
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating bookmarks table: %w", err)
	}

	// No foreign key on user_id: a token outlives its account, and adding a
	// bookmark with it must behave as on the other stores. Schemas created
	// before the key was removed still carry it.
	_, err = db.pool.Exec(ctx, `
		ALTER TABLE bookmarks DROP CONSTRAINT IF EXISTS bookmarks_user_id_fkey
	`)
	if err != nil {
		return fmt.Errorf("dropping bookmarks user fk: %w", err)
	}

	_, err = db.pool.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_bookmarks_user_repo ON bookmarks(user_id, repo_id)
	`)
	if err != nil {
		return fmt.Errorf("creating bookmarks index: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
