package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/repo-bookmarks/internal/apperror"
	"github.com/sakif/repo-bookmarks/internal/model"
	"github.com/sakif/repo-bookmarks/internal/repository"
)

var _ repository.BookmarkRepository = (*DB)(nil)

// bookmarkColumns is the SELECT list shared by every bookmark query.
// The order MUST match scanBookmark.
const bookmarkColumns = `id, user_id, repo_id, name, full_name, description, stars, forks,
	language, html_url, owner_login, owner_avatar_url, owner_html_url, created_at, updated_at`

// CreateBookmark inserts a bookmark.
//
// The unique index idx_bookmarks_user_repo rejects a second row for the same
// (user_id, repo_id). We rely on that instead of checking first, which would
// leave a window where two requests both see "not bookmarked yet".
//
// Description and Language are *string: database/sql writes a nil pointer
// as NULL and dereferences a non-nil one.
func (db *DB) CreateBookmark(ctx context.Context, b *model.Bookmark) error {
	now := time.Now().UTC()
	b.ID = xid.New().String()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO bookmarks (`+bookmarkColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.UserID,
		b.RepoID,
		b.Name,
		b.FullName,
		b.Description,
		b.Stars,
		b.Forks,
		b.Language,
		b.HTMLURL,
		b.Owner.Login,
		b.Owner.AvatarURL,
		b.Owner.HTMLURL,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Already bookmarked")
		}
		return fmt.Errorf("sqlite: creating bookmark (user=%s repo=%d): %w", b.UserID, b.RepoID, err)
	}

	return nil
}

// ListBookmarks returns all bookmarks owned by userID in insertion order.
//
// rowid breaks ties between rows created within the same timestamp tick.
func (db *DB) ListBookmarks(ctx context.Context, userID string) ([]model.Bookmark, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+bookmarkColumns+`
		 FROM bookmarks
		 WHERE user_id = ?
		 ORDER BY created_at ASC, rowid ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing bookmarks: %w", err)
	}
	// CRITICAL: always close rows when done!
	defer rows.Close()

	// Start from an empty (non-nil) slice so the JSON response is [] not null.
	bookmarks := make([]model.Bookmark, 0)

	for rows.Next() {
		var b model.Bookmark
		if err := scanBookmark(rows, &b); err != nil {
			return nil, fmt.Errorf("sqlite: scanning bookmark row: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating bookmarks: %w", err)
	}

	return bookmarks, nil
}

// DeleteBookmark removes a bookmark by id, scoped to its owner.
//
// A bookmark that does not exist, or belongs to somebody else, is silently
// left alone: the call succeeds and reports false. RowsAffected is only
// informational here. The WHERE clause on user_id is what stops user B from
// deleting user A's bookmark.
func (db *DB) DeleteBookmark(ctx context.Context, id, userID string) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting bookmark %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteBookmarksByUser removes every bookmark of userID (account deletion).
func (db *DB) DeleteBookmarksByUser(ctx context.Context, userID string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM bookmarks WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("sqlite: deleting bookmarks of user %s: %w", userID, err)
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanBookmark reads one row selected with bookmarkColumns.
//
// &b.Description is a **string: database/sql sets it to nil for NULL and
// allocates a string otherwise.
func scanBookmark(s scanner, b *model.Bookmark) error {
	return s.Scan(
		&b.ID,
		&b.UserID,
		&b.RepoID,
		&b.Name,
		&b.FullName,
		&b.Description,
		&b.Stars,
		&b.Forks,
		&b.Language,
		&b.HTMLURL,
		&b.Owner.Login,
		&b.Owner.AvatarURL,
		&b.Owner.HTMLURL,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
}
