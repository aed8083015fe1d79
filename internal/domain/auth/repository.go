package auth

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines user storage operations.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID int) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, user *User) error
	List(ctx context.Context, filter UserFilter) ([]User, int64, error)
	Exists(ctx context.Context, username string) (bool, error)

	LoadRoles(ctx context.Context, userID int) ([]Role, error)
	ReplaceRoles(ctx context.Context, userID int, roleIDs []int) error
}

// RoleRepository defines role and grant storage operations.
type RoleRepository interface {
	GetByID(ctx context.Context, roleID int) (*Role, error)
	List(ctx context.Context) ([]Role, error)

	// ListUserAccesses returns the distinct active accesses granted to the
	// user through any of its active roles.
	ListUserAccesses(ctx context.Context, userID int) ([]Access, error)

	// HasGrant reports whether any active role of the user carries an
	// active grant for the access/operation pair.
	HasGrant(ctx context.Context, userID, accessID, operationID int) (bool, error)

	ListAccesses(ctx context.Context) ([]Access, error)
	ListOperations(ctx context.Context) ([]Operation, error)
}

// SessionRepository defines session storage operations.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	// Expire moves not_after to now, closing the refresh window.
	Expire(ctx context.Context, id uuid.UUID) error
}

// TokenRepository defines OTP storage operations.
type TokenRepository interface {
	Save(ctx context.Context, t *AuthToken) error
	GetByUser(ctx context.Context, userID int) (*AuthToken, error)
	// DeleteByUser drops every OTP of the user; called before issuing a new
	// one and after a successful consume.
	DeleteByUser(ctx context.Context, userID int) error
}

// UserFilter pages user listings.
type UserFilter struct {
	Search   string
	IsActive *bool
	Limit    int
	Offset   int
}
