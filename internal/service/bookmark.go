package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/repo-bookmarks/internal/apperror"
	"github.com/sakif/repo-bookmarks/internal/metrics"
	"github.com/sakif/repo-bookmarks/internal/model"
	"github.com/sakif/repo-bookmarks/internal/repository"
)

// BookmarkService saves repository snapshots per user.
type BookmarkService struct {
	bookmarks repository.BookmarkRepository
	validate  *validator.Validate
	metrics   metrics.Recorder
	logger    *slog.Logger
}

func NewBookmarkService(
	bookmarks repository.BookmarkRepository,
	validate *validator.Validate,
	rec metrics.Recorder,
	logger *slog.Logger,
) *BookmarkService {
	return &BookmarkService{
		bookmarks: bookmarks,
		validate:  validate,
		metrics:   rec,
		logger:    logger,
	}
}

// Add stores a snapshot of repo for ownerID. A second Add of the same repo
// id by the same owner fails with ErrConflict ("Already bookmarked"); the
// store's unique index decides, not a prior lookup.
func (s *BookmarkService) Add(ctx context.Context, ownerID string, repo model.RepoSummary) (*model.Bookmark, error) {
	if err := validateStruct(s.validate, repo); err != nil {
		return nil, err
	}

	b := model.NewBookmark(ownerID, repo)
	if err := s.bookmarks.CreateBookmark(ctx, b); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/bookmark: creating bookmark: %w", err)
	}

	s.metrics.IncBookmarkAdded()
	s.logger.Info("bookmark added",
		slog.String("userID", ownerID),
		slog.String("bookmarkID", b.ID),
		slog.Int64("repoID", b.RepoID),
	)
	return b, nil
}

// List returns the owner's bookmarks, oldest first. Never nil.
func (s *BookmarkService) List(ctx context.Context, ownerID string) ([]model.Bookmark, error) {
	list, err := s.bookmarks.ListBookmarks(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("service/bookmark: listing bookmarks: %w", err)
	}
	if list == nil {
		list = []model.Bookmark{}
	}
	return list, nil
}

// Remove deletes the bookmark if ownerID owns it. A bookmark that does not
// exist or belongs to someone else is not an error: the caller cannot tell
// the cases apart.
func (s *BookmarkService) Remove(ctx context.Context, bookmarkID, ownerID string) error {
	removed, err := s.bookmarks.DeleteBookmark(ctx, bookmarkID, ownerID)
	if err != nil {
		return fmt.Errorf("service/bookmark: deleting bookmark: %w", err)
	}
	if !removed {
		s.logger.Debug("bookmark remove matched nothing",
			slog.String("userID", ownerID),
			slog.String("bookmarkID", bookmarkID),
		)
		return nil
	}

	s.metrics.IncBookmarkRemoved()
	s.logger.Info("bookmark removed",
		slog.String("userID", ownerID),
		slog.String("bookmarkID", bookmarkID),
	)
	return nil
}
