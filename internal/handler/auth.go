package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/repo-bookmarks/internal/apperror"
	"github.com/sakif/repo-bookmarks/internal/auth"
	"github.com/sakif/repo-bookmarks/internal/service"
)

// AuthHandler serves signup, login and the account endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignup         → POST   /api/auth/signup
//   - HandleLogin          → POST   /api/auth/login
//   - HandleMe             → GET    /api/auth/me        (bearer)
//   - HandleChangePassword → PUT    /api/auth/password  (bearer)
//   - HandleDeleteAccount  → DELETE /api/auth/account   (bearer)
type AuthHandler struct {
	svc    *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// HandleSignup creates an account.
//
// REQUEST BODY:  {"email": "a@x.com", "password": "secret1"}
// RESPONSE 201:  {"token": "<jwt>", "user": {"id": "...", "email": "a@x.com"}}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.svc.Signup(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// HandleLogin exchanges credentials for a token.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleMe returns the authenticated user's public profile.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := h.svc.Me(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Summary())
}

// HandleChangePassword replaces the password.
//
// REQUEST BODY: {"currentPassword": "...", "newPassword": "..."}
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var in service.ChangePasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), userID, in); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password updated"})
}

// HandleDeleteAccount removes the user and every bookmark they own.
func (h *AuthHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteAccount(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Account deleted"})
}

// requireUser reads the user id RequireAuth put in the context. On a route
// without the middleware it answers 401 itself.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Unauthorized("No token provided"))
		return "", false
	}
	return userID, true
}
