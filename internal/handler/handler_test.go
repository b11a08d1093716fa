package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/repo-bookmarks/internal/auth"
	"github.com/sakif/repo-bookmarks/internal/github"
	"github.com/sakif/repo-bookmarks/internal/handler"
	"github.com/sakif/repo-bookmarks/internal/metrics"
	"github.com/sakif/repo-bookmarks/internal/middleware"
	"github.com/sakif/repo-bookmarks/internal/model"
	"github.com/sakif/repo-bookmarks/internal/repository/sqlite"
	"github.com/sakif/repo-bookmarks/internal/service"
)

// =========================================================================
// TEST HARNESS
// =========================================================================

// stubGitHub implements service.GitHubClient with canned answers.
type stubGitHub struct {
	calls  int
	repos  []model.RepoSummary
	detail *model.RepoDetail
	readme string
	err    error
	hang   bool // block until the request context ends
}

func (s *stubGitHub) SearchRepositories(ctx context.Context, _ string, _ int) ([]model.RepoSummary, error) {
	s.calls++
	if s.hang {
		<-ctx.Done()
		return nil, fmt.Errorf("github: search request: %w", ctx.Err())
	}
	return s.repos, s.err
}

func (s *stubGitHub) GetRepository(context.Context, string, string) (*model.RepoDetail, error) {
	s.calls++
	return s.detail, s.err
}

func (s *stubGitHub) GetReadmeHTML(context.Context, string, string) (string, error) {
	s.calls++
	return s.readme, s.err
}

type harness struct {
	router http.Handler
	gh     *stubGitHub
	db     *sqlite.DB
}

// newHarness wires real services over in-memory SQLite, the way the
// server does, with the GitHub client stubbed out.
func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-1234")
	require.NoError(t, err)

	v := service.NewValidator()
	gh := &stubGitHub{}

	authH := handler.NewAuthHandler(service.NewAuthService(db, db, tokens, auth.NewPasswordService(bcrypt.MinCost), v, metrics.Noop{}, logger), logger)
	bookmarkH := handler.NewBookmarkHandler(service.NewBookmarkService(db, v, metrics.Noop{}, logger), logger)
	repoH := handler.NewRepoHandler(service.NewRepoService(gh, logger), logger)
	healthH := handler.NewHealthHandler(db, logger)

	r := chi.NewRouter()
	r.Get("/health", healthH.HandleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", authH.HandleSignup)
		r.Post("/auth/login", authH.HandleLogin)
		r.Get("/search", repoH.HandleSearch)
		r.Get("/repos/{owner}/{repo}", repoH.HandleRepo)
		r.Get("/repos/{owner}/{repo}/readme", repoH.HandleReadme)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/auth/me", authH.HandleMe)
			r.Put("/auth/password", authH.HandleChangePassword)
			r.Delete("/auth/account", authH.HandleDeleteAccount)
			r.Get("/bookmarks", bookmarkH.HandleList)
			r.Post("/bookmarks", bookmarkH.HandleAdd)
			r.Delete("/bookmarks/{id}", bookmarkH.HandleRemove)
		})
	})

	return &harness{router: r, gh: gh, db: db}
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func (h *harness) signup(t *testing.T, email string) service.AuthResult {
	t.Helper()
	rr := h.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var res service.AuthResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	return res
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var e handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&e))
	return e
}

func repoBody(id int64, name string) map[string]any {
	return map[string]any{
		"id":          id,
		"name":        name,
		"full_name":   "octocat/" + name,
		"description": nil,
		"stars":       3,
		"forks":       1,
		"language":    "Go",
		"html_url":    "https://github.com/octocat/" + name,
		"owner":       map[string]string{"login": "octocat", "avatar_url": "a", "html_url": "https://github.com/octocat"},
	}
}

// =========================================================================
// AUTH
// =========================================================================

func TestSignup(t *testing.T) {
	h := newHarness(t)

	res := h.signup(t, "a@x.com")
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "a@x.com", res.User.Email)
	assert.NotEmpty(t, res.User.ID)
}

func TestSignup_DuplicateIs400(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "a@x.com")

	rr := h.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "a@x.com", "password": "other-pw"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	e := decodeError(t, rr)
	assert.Equal(t, "User already exists", e.Message)
	assert.Equal(t, "conflict", e.Error)
}

func TestSignup_BadInput(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		body any
	}{
		{"malformed JSON", `{"email":`},
		{"empty body", ""},
		{"missing password", map[string]string{"email": "a@x.com"}},
		{"short password", map[string]string{"email": "a@x.com", "password": "123"}},
		{"bad email", map[string]string{"email": "nope", "password": "secret1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := h.do(t, http.MethodPost, "/api/auth/signup", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, "validation_error", decodeError(t, rr).Error)
		})
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	signed := h.signup(t, "a@x.com")

	rr := h.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rr.Code)

	var res service.AuthResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, signed.User.ID, res.User.ID)

	// The new token works on a protected route.
	me := h.do(t, http.MethodGet, "/api/auth/me", res.Token, nil)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"email":"a@x.com"`)
	assert.NotContains(t, me.Body.String(), "password")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "a@x.com")

	wrong := h.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "WRONG!"})
	ghost := h.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ghost@x.com", "password": "secret1"})

	assert.Equal(t, http.StatusBadRequest, wrong.Code)
	assert.Equal(t, http.StatusBadRequest, ghost.Code)
	assert.Equal(t, wrong.Body.String(), ghost.Body.String())
	assert.Contains(t, wrong.Body.String(), "Invalid credentials")
}

func TestChangePasswordAndDeleteAccount(t *testing.T) {
	h := newHarness(t)
	res := h.signup(t, "a@x.com")

	rr := h.do(t, http.MethodPut, "/api/auth/password", res.Token,
		map[string]string{"currentPassword": "secret1", "newPassword": "secret2"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = h.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "secret2"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(t, http.MethodPost, "/api/bookmarks", res.Token, repoBody(1, "r"))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = h.do(t, http.MethodDelete, "/api/auth/account", res.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	// The token still verifies but the user is gone.
	rr = h.do(t, http.MethodGet, "/api/auth/me", res.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	list, err := h.db.ListBookmarks(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// A token keeps verifying until it expires, even after its account is gone.
// Bookmark routes accept it the same way on every store: no 500.
func TestAddBookmark_AfterAccountDeleted(t *testing.T) {
	h := newHarness(t)
	res := h.signup(t, "gone@x.com")

	rr := h.do(t, http.MethodDelete, "/api/auth/account", res.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(t, http.MethodPost, "/api/bookmarks", res.Token, repoBody(3, "late"))
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = h.do(t, http.MethodGet, "/api/bookmarks", res.Token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

// =========================================================================
// BOOKMARKS
// =========================================================================

func TestBookmarks_RequireToken(t *testing.T) {
	h := newHarness(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/bookmarks"},
		{http.MethodPost, "/api/bookmarks"},
		{http.MethodDelete, "/api/bookmarks/abc"},
	} {
		rr := h.do(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, tc.method+" "+tc.path)

		rr = h.do(t, tc.method, tc.path, "garbage.token.value", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, tc.method+" "+tc.path)
	}
}

func TestBookmarks_AddListDuplicate(t *testing.T) {
	h := newHarness(t)
	tok := h.signup(t, "a@x.com").Token

	rr := h.do(t, http.MethodPost, "/api/bookmarks", tok, repoBody(42, "hello"))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var b model.Bookmark
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&b))
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, int64(42), b.RepoID)
	assert.Nil(t, b.Description)

	rr = h.do(t, http.MethodPost, "/api/bookmarks", tok, repoBody(42, "hello"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Already bookmarked", decodeError(t, rr).Message)

	rr = h.do(t, http.MethodGet, "/api/bookmarks", tok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0]["_id"])
	assert.Equal(t, float64(42), list[0]["repoId"])
}

func TestBookmarks_EmptyListIsArray(t *testing.T) {
	h := newHarness(t)
	tok := h.signup(t, "a@x.com").Token

	rr := h.do(t, http.MethodGet, "/api/bookmarks", tok, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestBookmarks_InvalidRepo(t *testing.T) {
	h := newHarness(t)
	tok := h.signup(t, "a@x.com").Token

	body := repoBody(0, "r")
	rr := h.do(t, http.MethodPost, "/api/bookmarks", tok, body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "validation_error", decodeError(t, rr).Error)
}

func TestBookmarks_RemoveIsScopedToOwner(t *testing.T) {
	h := newHarness(t)
	alice := h.signup(t, "alice@x.com").Token
	bob := h.signup(t, "bob@x.com").Token

	rr := h.do(t, http.MethodPost, "/api/bookmarks", alice, repoBody(1, "r"))
	require.Equal(t, http.StatusCreated, rr.Code)
	var b model.Bookmark
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&b))

	rr = h.do(t, http.MethodDelete, "/api/bookmarks/"+b.ID, bob, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Bookmark removed"}`, rr.Body.String())

	rr = h.do(t, http.MethodGet, "/api/bookmarks", alice, nil)
	var list []model.Bookmark
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	assert.Len(t, list, 1, "bob must not be able to delete alice's bookmark")
}

// =========================================================================
// GITHUB PROXY
// =========================================================================

func TestSearch_EmptyQuery(t *testing.T) {
	h := newHarness(t)

	rr := h.do(t, http.MethodGet, "/api/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Query is required", decodeError(t, rr).Message)
	assert.Zero(t, h.gh.calls)
}

func TestSearch_OK(t *testing.T) {
	h := newHarness(t)
	h.gh.repos = []model.RepoSummary{{ID: 1, Name: "react", HTMLURL: "https://github.com/facebook/react"}}

	rr := h.do(t, http.MethodGet, "/api/search?query=react", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var repos []model.RepoSummary
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&repos))
	require.Len(t, repos, 1)
	assert.Equal(t, "react", repos[0].Name)
}

func TestSearch_UpstreamFailureIs500(t *testing.T) {
	h := newHarness(t)
	h.gh.err = errors.New("connection refused to 10.0.0.1")

	rr := h.do(t, http.MethodGet, "/api/search?query=react", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	e := decodeError(t, rr)
	assert.Equal(t, "GitHub API failed", e.Message)
	assert.NotContains(t, rr.Body.String(), "10.0.0.1")
}

func TestRepoAndReadme(t *testing.T) {
	h := newHarness(t)
	h.gh.detail = &model.RepoDetail{RepoSummary: model.RepoSummary{ID: 1, Name: "react"}, Topics: []string{}}
	h.gh.readme = "<h1>React</h1>"

	rr := h.do(t, http.MethodGet, "/api/repos/facebook/react", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"react"`)

	rr = h.do(t, http.MethodGet, "/api/repos/facebook/react/readme", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var readme handler.ReadmeResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&readme))
	assert.Equal(t, "<h1>React</h1>", readme.HTML)
}

func TestRepo_NotFound(t *testing.T) {
	h := newHarness(t)
	h.gh.err = &github.StatusError{Endpoint: "repo", StatusCode: http.StatusNotFound}

	rr := h.do(t, http.MethodGet, "/api/repos/nobody/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decodeError(t, rr).Error)
}

// =========================================================================
// HEALTH
// =========================================================================

func TestHealth(t *testing.T) {
	h := newHarness(t)

	rr := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestHealth_StoreDown(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.db.Close())

	rr := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

// An upstream call cut short by the request deadline answers 504 exactly
// once, not a 500 followed by a second status line.
func TestSearch_RequestDeadline(t *testing.T) {
	h := newHarness(t)
	h.gh.hang = true
	router := middleware.Timeout(20 * time.Millisecond)(h.router)

	req := httptest.NewRequest(http.MethodGet, "/api/search?query=go", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
	assert.Equal(t, "timeout", decodeError(t, rr).Error)
}
