package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/repo-bookmarks/internal/apperror"
	"github.com/sakif/repo-bookmarks/internal/model"
)

func (db *DB) CreateBookmark(ctx context.Context, b *model.Bookmark) error {
	now := time.Now().UTC()
	id := uuid.NewString()

	_, err := db.pool.Exec(ctx, `
		INSERT INTO bookmarks (
			id, user_id, repo_id, name, full_name, description, stars, forks,
			language, html_url, owner_login, owner_avatar_url, owner_html_url,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		id, b.UserID, b.RepoID, b.Name, b.FullName, b.Description, b.Stars, b.Forks,
		b.Language, b.HTMLURL, b.Owner.Login, b.Owner.AvatarURL, b.Owner.HTMLURL,
		now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Already bookmarked")
		}
		return fmt.Errorf("postgres: inserting bookmark: %w", err)
	}

	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

func (db *DB) ListBookmarks(ctx context.Context, userID string) ([]model.Bookmark, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, user_id, repo_id, name, full_name, description, stars, forks,
		       language, html_url, owner_login, owner_avatar_url, owner_html_url,
		       created_at, updated_at
		FROM bookmarks
		WHERE user_id = $1
		ORDER BY created_at ASC, seq ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing bookmarks: %w", err)
	}
	defer rows.Close()

	out := make([]model.Bookmark, 0)
	for rows.Next() {
		var b model.Bookmark
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.RepoID, &b.Name, &b.FullName, &b.Description, &b.Stars, &b.Forks,
			&b.Language, &b.HTMLURL, &b.Owner.Login, &b.Owner.AvatarURL, &b.Owner.HTMLURL,
			&b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scanning bookmark: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating bookmarks: %w", err)
	}
	return out, nil
}

// DeleteBookmark reports whether a row matched; no match is not an error.
func (db *DB) DeleteBookmark(ctx context.Context, id, userID string) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM bookmarks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("postgres: deleting bookmark: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (db *DB) DeleteBookmarksByUser(ctx context.Context, userID string) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM bookmarks WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("postgres: deleting user bookmarks: %w", err)
	}
	return nil
}
