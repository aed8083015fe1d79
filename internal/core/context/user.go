// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// UserContext contains the authenticated user information decoded from the
// access token.
type UserContext struct {
	UserID   int
	Username string
	Accesses []string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns the user id from context or 0.
func GetUserID(ctx context.Context) int {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return 0
}

// GetUsername returns the username from context or "".
func GetUsername(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.Username
	}
	return ""
}
