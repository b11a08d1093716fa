// Package auth issues and verifies access tokens, hashes passwords, and
// guards protected routes.
//
// AUTHENTICATION FLOW:
// 1. Client POSTs /api/auth/signup or /api/auth/login with email + password
// 2. Server verifies the password (bcrypt) and issues a signed JWT
// 3. Client keeps the token and sends "Authorization: Bearer <token>"
// 4. RequireAuth verifies the token and puts the user id in the request context
//
// Tokens are stateless: nothing is stored server-side, so a token stays
// valid until it expires. Logging out is the client throwing it away.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<userID>","iss":"repo-bookmarks","jti":"<uuid>","iat":...,"exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sakif/repo-bookmarks/internal/apperror"
)

const (
	// DefaultTTL is how long an issued token stays valid.
	DefaultTTL = 7 * 24 * time.Hour

	issuer          = "repo-bookmarks"
	minSecretLength = 16
)

// TokenService handles JWT creation and validation.
//
// The clock is injectable so tests can move time forward past expiry
// without sleeping.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithTTL overrides DefaultTTL.
func WithTTL(d time.Duration) TokenOption {
	return func(s *TokenService) { s.ttl = d }
}

// WithClock replaces time.Now for both issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a TokenService with the given secret.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", minSecretLength)
	}

	s := &TokenService{
		secret: []byte(secret),
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue creates and signs a token for userID.
//
// Every token carries a random jti, so two tokens issued for the same user
// in the same second are still different strings.
func (s *TokenService) Issue(userID string) (string, error) {
	now := s.now()

	c := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    issuer,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the user id in its "sub" claim.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid
//   - Algorithm is HS256 (blocks "alg":"none" and RS/HS confusion)
//   - Issuer is "repo-bookmarks"
//   - exp is present and later than s.now()
//
// Every failure is an apperror.ErrUnauthorized.
func (s *TokenService) Verify(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperror.Unauthorized("Token expired")
		}
		return "", apperror.Unauthorized("Invalid token")
	}

	if c.Subject == "" {
		return "", apperror.Unauthorized("Invalid token")
	}
	return c.Subject, nil
}
