// Package auth provides the security core: users, roles, accesses,
// operation grants, sessions and the two-step OTP login.
package auth

import (
	"time"

	"github.com/google/uuid"

	"mecsa/internal/core/apperror"
)

// User is a system account. The password hash is bcrypt.
type User struct {
	ID              int        `db:"id" json:"id"`
	Username        string     `db:"username" json:"username"`
	PasswordHash    string     `db:"password" json:"-"`
	DisplayName     string     `db:"display_name" json:"displayName"`
	Email           string     `db:"email" json:"email"`
	IsActive        bool       `db:"is_active" json:"isActive"`
	BlockedUntil    *time.Time `db:"blocked_until" json:"blockedUntil,omitempty"`
	ResetPassword   bool       `db:"reset_password" json:"resetPassword"`
	PasswordResetAt *time.Time `db:"password_reset_at" json:"passwordResetAt,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`

	// Loaded relations
	Roles []Role `db:"-" json:"roles,omitempty"`
}

// Blocked reports a temporary lock.
func (u *User) Blocked() bool {
	return u.BlockedUntil != nil && time.Now().Before(*u.BlockedUntil)
}

// CanLogin checks account state before any credential work.
func (u *User) CanLogin() error {
	if !u.IsActive {
		return apperror.NewForbidden(apperror.CodeForbidden, "account is disabled")
	}
	if u.Blocked() {
		return apperror.NewForbidden(apperror.CodeForbidden, "account is temporarily blocked")
	}
	return nil
}

// HasRole checks role membership.
func (u *User) HasRole(roleID int) bool {
	for _, r := range u.Roles {
		if r.ID == roleID {
			return true
		}
	}
	return false
}

// Role groups access grants.
type Role struct {
	ID        int    `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	IsActive  bool   `db:"is_active" json:"isActive"`
	UseSystem bool   `db:"use_system" json:"useSystem"`
}

// Access is a guarded resource of the API.
type Access struct {
	ID       int    `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Path     string `db:"path" json:"path"`
	IsActive bool   `db:"is_active" json:"isActive"`
}

// Operation is a verb over an access (read, create, update, annul...).
type Operation struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// RoleAccessOperation is one grant row.
type RoleAccessOperation struct {
	RoleID      int  `db:"role_id" json:"roleId"`
	AccessID    int  `db:"access_id" json:"accessId"`
	OperationID int  `db:"operation_id" json:"operationId"`
	IsActive    bool `db:"is_active" json:"isActive"`
}

// Session is one refresh window. A session stays usable strictly before
// NotAfter; logout moves NotAfter to now.
type Session struct {
	ID        uuid.UUID `db:"id"`
	UserID    int       `db:"user_id"`
	IP        string    `db:"ip"`
	NotBefore time.Time `db:"not_before"`
	NotAfter  time.Time `db:"not_after"`
}

// Usable reports whether the session still accepts refreshes at the given
// instant. The boundary itself is rejected.
func (s *Session) Usable(at time.Time) bool {
	return !at.Before(s.NotBefore) && at.Before(s.NotAfter)
}

// AuthToken is a single-use login OTP.
type AuthToken struct {
	ID        uuid.UUID `db:"id"`
	UserID    int       `db:"user_id"`
	Token     string    `db:"token"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Expired reports OTP expiry at the given instant.
func (t *AuthToken) Expired(at time.Time) bool {
	return !at.Before(t.ExpiresAt)
}

// TokenPair carries both signed tokens and the session they belong to.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
	SessionID        uuid.UUID `json:"-"`
}

// Credentials for the send-token step.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginForm completes the two-step login with the emailed OTP.
type LoginForm struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Token    string `json:"token"`
	IP       string `json:"-"`
}

// CreateUserForm for user administration.
type CreateUserForm struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	RoleIDs     []int  `json:"roleIds"`
}

// UpdateUserForm patches mutable user fields. Nil means unchanged.
type UpdateUserForm struct {
	DisplayName *string `json:"displayName"`
	Email       *string `json:"email"`
	IsActive    *bool   `json:"isActive"`
	RoleIDs     []int   `json:"roleIds"`
}
