// Package session carries the signed-in identity through request contexts.
// The auth middleware is the only writer; handlers and services only read.
package session

import (
	"context"
	"errors"
	"time"
)

// Session is the authenticated identity of the current request.
type Session struct {
	UID       string
	Email     string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

type contextKey struct{}

var ErrNoSession = errors.New("no session in context")

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx.
func FromContext(ctx context.Context) (Session, error) {
	s, ok := ctx.Value(contextKey{}).(Session)
	if !ok || s.UID == "" {
		return Session{}, ErrNoSession
	}
	return s, nil
}

// HasRole reports whether the session holds role.
func (s Session) HasRole(role string) bool {
	return s.Role == role
}
