package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/repo-bookmarks/internal/apperror"
	"github.com/sakif/repo-bookmarks/internal/metrics"
	"github.com/sakif/repo-bookmarks/internal/model"
)

// =========================================================================
// FAKES
// =========================================================================

// fakeStore is an in-memory UserRepository + BookmarkRepository. Using a
// hand-written fake keeps tests readable: you can see exactly what it does.
// Like the real stores, it enforces uniqueness at insert time.
type fakeStore struct {
	mu        sync.Mutex
	users     map[string]*model.User
	bookmarks []model.Bookmark
	nextID    int

	// set to a non-nil error to simulate a database failure
	createUserErr error
	listErr       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*model.User)}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createUserErr != nil {
		return f.createUserErr
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("User already exists")
		}
	}
	user.ID = f.id("user")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

func (f *fakeStore) CreateBookmark(_ context.Context, b *model.Bookmark) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.bookmarks {
		if existing.UserID == b.UserID && existing.RepoID == b.RepoID {
			return apperror.Conflict("Already bookmarked")
		}
	}
	b.ID = f.id("bm")
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	f.bookmarks = append(f.bookmarks, *b)
	return nil
}

func (f *fakeStore) ListBookmarks(_ context.Context, userID string) ([]model.Bookmark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.Bookmark // nil on purpose: the service must normalise it
	for _, b := range f.bookmarks {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteBookmark(_ context.Context, id, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.bookmarks {
		if b.ID == id && b.UserID == userID {
			f.bookmarks = append(f.bookmarks[:i], f.bookmarks[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) DeleteBookmarksByUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.bookmarks[:0]
	for _, b := range f.bookmarks {
		if b.UserID != userID {
			kept = append(kept, b)
		}
	}
	f.bookmarks = kept
	return nil
}

// fakeGitHub records calls and returns canned results.
type fakeGitHub struct {
	mu     sync.Mutex
	calls  int
	repos  []model.RepoSummary
	detail *model.RepoDetail
	readme string
	err    error
}

func (f *fakeGitHub) SearchRepositories(_ context.Context, _ string, _ int) ([]model.RepoSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.repos, f.err
}

func (f *fakeGitHub) GetRepository(_ context.Context, _, _ string) (*model.RepoDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.detail, f.err
}

func (f *fakeGitHub) GetReadmeHTML(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.readme, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRepo(id int64, name string) model.RepoSummary {
	return model.RepoSummary{
		ID:       id,
		Name:     name,
		FullName: "octocat/" + name,
		HTMLURL:  "https://github.com/octocat/" + name,
		Owner:    model.RepoOwner{Login: "octocat"},
	}
}

// countingMetrics counts business events; HTTP and upstream observations
// are ignored.
type countingMetrics struct {
	metrics.Noop
	mu      sync.Mutex
	added   int
	removed int
}

func (c *countingMetrics) IncBookmarkAdded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added++
}

func (c *countingMetrics) IncBookmarkRemoved() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed++
}
