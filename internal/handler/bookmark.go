package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/repo-bookmarks/internal/model"
	"github.com/sakif/repo-bookmarks/internal/service"
)

// BookmarkHandler serves /api/bookmarks. Every route is behind RequireAuth.
type BookmarkHandler struct {
	svc    *service.BookmarkService
	logger *slog.Logger
}

func NewBookmarkHandler(svc *service.BookmarkService, logger *slog.Logger) *BookmarkHandler {
	return &BookmarkHandler{svc: svc, logger: logger}
}

// HandleList returns the caller's bookmarks, oldest first. An empty list
// is "[]", never "null".
func (h *BookmarkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	list, err := h.svc.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleAdd bookmarks a repository.
//
// REQUEST BODY: a RepoSummary exactly as returned by /api/search.
// RESPONSE 201: the stored Bookmark.
func (h *BookmarkHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var repo model.RepoSummary
	if err := decodeJSON(w, r, &repo); err != nil {
		writeError(w, r, err)
		return
	}

	b, err := h.svc.Add(r.Context(), userID, repo)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// HandleRemove deletes a bookmark by its id.
//
// HTTP: DELETE /api/bookmarks/{id}
//
// Always answers 200 "Bookmark removed", including when the id does not
// exist or belongs to another user.
func (h *BookmarkHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.svc.Remove(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Bookmark removed"})
}
