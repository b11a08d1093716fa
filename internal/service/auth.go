// Package service holds the business rules. Handlers call services;
// services call repositories, the token and password services, and the
// GitHub client.
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT)
//
// Services know nothing about HTTP. They return apperror values and the
// handler layer decides the status code.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/repo-bookmarks/internal/apperror"
	"github.com/sakif/repo-bookmarks/internal/auth"
	"github.com/sakif/repo-bookmarks/internal/metrics"
	"github.com/sakif/repo-bookmarks/internal/model"
	"github.com/sakif/repo-bookmarks/internal/repository"
)

// SignupInput is the signup request body.
type SignupInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginInput is the login request body. Only presence is checked here;
// anything else is a credentials question.
type LoginInput struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordInput is the password change request body.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=6,max=72"`
}

// AuthResult bundles the user and the issued token so the handler can
// respond in one step.
type AuthResult struct {
	Token string            `json:"token"`
	User  model.UserSummary `json:"user"`
}

// AuthService handles signup, login and account management.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository      → credential store
//   - bookmarks  repository.BookmarkRepository  → cleared on account deletion
//   - tokens     *auth.TokenService             → issue JWTs
//   - passwords  *auth.PasswordService          → bcrypt
type AuthService struct {
	users     repository.UserRepository
	bookmarks repository.BookmarkRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	validate  *validator.Validate
	metrics   metrics.Recorder
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	bookmarks repository.BookmarkRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	validate *validator.Validate,
	rec metrics.Recorder,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		bookmarks: bookmarks,
		tokens:    tokens,
		passwords: passwords,
		validate:  validate,
		metrics:   rec,
		logger:    logger,
	}
}

// Signup creates an account and returns a token for it.
//
// There is no "does this email exist?" query first: the store's unique
// index on email is the only check, so two concurrent signups for the same
// address cannot both succeed. The loser gets ErrConflict.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password", "password must be at most 72 bytes")
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Email: in.Email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.metrics.IncSignup()
	s.logger.Info("user signed up", slog.String("userID", user.ID))

	return s.issue(user)
}

// Login checks credentials and issues a fresh token. Earlier tokens stay
// valid until they expire.
//
// An unknown email and a wrong password produce the same error, so the
// response does not reveal which emails have accounts.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.checkPassword(user, in.Password); err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// Me returns the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Token outlived the account.
			return nil, apperror.Unauthorized("User no longer exists")
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}
	return user, nil
}

// ChangePassword replaces the password hash after checking the current
// password. Tokens already issued remain valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	if err := validateStruct(s.validate, in); err != nil {
		return err
	}
	if len(in.NewPassword) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("newPassword", "newPassword must be at most 72 bytes")
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.checkPassword(user, in.CurrentPassword); err != nil {
		return err
	}

	hash, err := s.passwords.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("service/auth: hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("service/auth: updating password: %w", err)
	}

	s.logger.Info("password changed", slog.String("userID", userID))
	return nil
}

// DeleteAccount removes the user's bookmarks and then the user. Running it
// twice is harmless.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.bookmarks.DeleteBookmarksByUser(ctx, userID); err != nil {
		return fmt.Errorf("service/auth: deleting bookmarks of %s: %w", userID, err)
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("service/auth: deleting user %s: %w", userID, err)
	}

	s.logger.Info("account deleted", slog.String("userID", userID))
	return nil
}

func (s *AuthService) checkPassword(user *model.User, password string) error {
	err := s.passwords.Verify(user.PasswordHash, password)
	if err == nil {
		return nil
	}
	if errors.Is(err, auth.ErrPasswordMismatch) {
		return apperror.InvalidCredentials()
	}
	return fmt.Errorf("service/auth: verifying password: %w", err)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", user.ID, err)
	}
	return &AuthResult{Token: token, User: user.Summary()}, nil
}
