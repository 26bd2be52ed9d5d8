// Package auth exchanges secrets-engine credentials for short-lived session
// tokens. The session JWT carries the engine token as a claim so the REST
// layer can hand it to the orchestrator per request; no credential is ever
// held in process-wide state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidAccessToken = errors.New("invalid access token")

// TokenBackend is the slice of the signer gateway auth needs.
type TokenBackend interface {
	CheckToken(ctx context.Context, token string) error
	LoginWithAppRole(ctx context.Context, roleID, secretID string) (string, error)
}

type Service struct {
	backend TokenBackend
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

func NewService(backend TokenBackend, secret []byte, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		backend: backend,
		secret:  secret,
		ttl:     ttl,
		now:     time.Now,
	}
}

// SignIn validates the engine token against the backend and wraps it in a
// signed session JWT.
func (s *Service) SignIn(ctx context.Context, vaultToken string) (string, error) {
	if err := s.backend.CheckToken(ctx, vaultToken); err != nil {
		return "", err
	}
	now := s.now()
	claims := jwt.MapClaims{
		"vault_token": vaultToken,
		"iat":         now.Unix(),
		"exp":         now.Add(s.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// SignInWithRole exchanges approle credentials for an engine token. The
// caller decides whether to wrap it via SignIn afterwards.
func (s *Service) SignInWithRole(ctx context.Context, roleID, secretID string) (string, error) {
	return s.backend.LoginWithAppRole(ctx, roleID, secretID)
}

// VerifyAccessToken checks the session JWT and returns the engine token it
// carries.
func (s *Service) VerifyAccessToken(accessToken string) (string, error) {
	parsed, err := jwt.Parse(accessToken, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidAccessToken
	}
	vaultToken, ok := claims["vault_token"].(string)
	if !ok || vaultToken == "" {
		return "", ErrInvalidAccessToken
	}
	return vaultToken, nil
}
