// Package session keeps the registry bearer token on the device and hands it
// to outbound clients. The token is opaque to the server contract; when it
// happens to be a JWT its expiry is checked locally so an expired session
// fails before any request is made.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"clearcrew/internal/devicestore"
	dErrors "clearcrew/pkg/domain-errors"
	"clearcrew/pkg/platform/sentinel"
)

// Info describes the resident session without exposing the token.
type Info struct {
	LoggedIn  bool
	Subject   string
	ExpiresAt *time.Time
}

type Session struct {
	kv  devicestore.Store
	now func() time.Time
}

type Option func(*Session)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

func New(kv devicestore.Store, opts ...Option) *Session {
	s := &Session{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save replaces the stored token.
func (s *Session) Save(ctx context.Context, token string) error {
	if token == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "session token is empty")
	}
	if err := s.kv.SetMany(ctx, map[string][]byte{devicestore.KeySessionToken: []byte(token)}); err != nil {
		return fmt.Errorf("save session token: %w", err)
	}
	return nil
}

// Token returns the bearer token, or CodeUnauthorized when there is none or
// it has expired.
func (s *Session) Token(ctx context.Context) (string, error) {
	raw, err := s.kv.Get(ctx, devicestore.KeySessionToken)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.New(dErrors.CodeUnauthorized, "not logged in")
	}
	if err != nil {
		return "", fmt.Errorf("load session token: %w", err)
	}
	token := string(raw)
	if claims, ok := parseClaims(token); ok {
		exp, err := claims.GetExpirationTime()
		if err == nil && exp != nil && !s.now().Before(exp.Time) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "session expired")
		}
	}
	return token, nil
}

// Clear logs out. The identity is untouched.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.kv.DeleteMany(ctx, devicestore.KeySessionToken); err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	return nil
}

func (s *Session) Info(ctx context.Context) (Info, error) {
	raw, err := s.kv.Get(ctx, devicestore.KeySessionToken)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Info{}, nil
	}
	if err != nil {
		return Info{}, fmt.Errorf("load session token: %w", err)
	}
	info := Info{LoggedIn: true}
	claims, ok := parseClaims(string(raw))
	if !ok {
		return info, nil
	}
	info.Subject, _ = claims.GetSubject()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		info.ExpiresAt = &t
		info.LoggedIn = s.now().Before(t)
	}
	return info, nil
}

// parseClaims reads claims without verifying the signature; the device has no
// key for that and the registry verifies every request anyway.
func parseClaims(token string) (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}
