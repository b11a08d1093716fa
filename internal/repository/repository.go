// Package repository declares the storage contracts the services depend on.
//
// Three implementations live in subpackages: sqlite (default, embedded),
// mongo (document store) and postgres. Each one MUST enforce the uniqueness
// rules itself (unique index / constraint) and report violations as
// apperror.ErrConflict, so concurrent writers can never slip a duplicate
// past a read-then-write check.
package repository

import (
	"context"

	"github.com/sakif/repo-bookmarks/internal/model"
)

type UserRepository interface {
	// CreateUser assigns ID and timestamps. Duplicate email -> apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	// GetUserByEmail is a case-sensitive exact match. Missing -> apperror.ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// DeleteUser is a no-op when the user does not exist.
	DeleteUser(ctx context.Context, id string) error
}

type BookmarkRepository interface {
	// CreateBookmark assigns ID and timestamps. Duplicate (UserID, RepoID) -> apperror.ErrConflict.
	CreateBookmark(ctx context.Context, b *model.Bookmark) error
	// ListBookmarks returns the user's bookmarks oldest first, never nil.
	ListBookmarks(ctx context.Context, userID string) ([]model.Bookmark, error)
	// DeleteBookmark removes the bookmark only if both id and owner match and
	// reports whether a row was removed. A missing or foreign bookmark is NOT
	// an error, just (false, nil).
	DeleteBookmark(ctx context.Context, id, userID string) (bool, error)
	// DeleteBookmarksByUser removes every bookmark the user owns.
	DeleteBookmarksByUser(ctx context.Context, userID string) error
}

// Store is what a backend provides to the server: both repositories plus
// lifecycle hooks.
type Store interface {
	UserRepository
	BookmarkRepository
	Ping(ctx context.Context) error
	Close() error
}
