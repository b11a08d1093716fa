package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/repo-bookmarks/internal/service"
)

// RepoHandler serves the public GitHub proxy routes.
type RepoHandler struct {
	svc    *service.RepoService
	logger *slog.Logger
}

func NewRepoHandler(svc *service.RepoService, logger *slog.Logger) *RepoHandler {
	return &RepoHandler{svc: svc, logger: logger}
}

// ReadmeResponse wraps the rendered README.
type ReadmeResponse struct {
	HTML string `json:"html"`
}

// HandleSearch runs GET /api/search?query=<q>.
func (h *RepoHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	repos, err := h.svc.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

// HandleRepo runs GET /api/repos/{owner}/{repo}.
func (h *RepoHandler) HandleRepo(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Repo(r.Context(), chi.URLParam(r, "owner"), chi.URLParam(r, "repo"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleReadme runs GET /api/repos/{owner}/{repo}/readme.
func (h *RepoHandler) HandleReadme(w http.ResponseWriter, r *http.Request) {
	html, err := h.svc.Readme(r.Context(), chi.URLParam(r, "owner"), chi.URLParam(r, "repo"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReadmeResponse{HTML: html})
}
