package dto

import (
	"time"

	"mecsa/internal/domain/auth"
)

// SendTokenRequest starts the two-step login.
type SendTokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest finishes it with the emailed code.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Token    string `json:"token" binding:"required"`
}

// LoginResponse returns both tokens; they are also set as cookies.
type LoginResponse struct {
	AccessToken      string       `json:"access_token"`
	RefreshToken     string       `json:"refresh_token"`
	AccessExpiresAt  time.Time    `json:"access_expires_at"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`
	User             UserResponse `json:"user"`
}

// RefreshResponse returns the renewed access token.
type RefreshResponse struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID            int            `json:"id"`
	Username      string         `json:"username"`
	DisplayName   string         `json:"displayName"`
	Email         string         `json:"email"`
	IsActive      bool           `json:"isActive"`
	BlockedUntil  *time.Time     `json:"blockedUntil,omitempty"`
	ResetPassword bool           `json:"resetPassword"`
	Roles         []RoleResponse `json:"roles,omitempty"`
}

// RoleResponse is the public view of a role.
type RoleResponse struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

// AccessResponse is one guarded API surface.
type AccessResponse struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	IsActive bool   `json:"isActive"`
}

// OperationResponse is one operation kind within an access.
type OperationResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ResetPasswordRequest sets a new password for a user.
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// UserListQuery filters the user list.
type UserListQuery struct {
	PaginationQuery
	Search   string `form:"search"`
	IsActive *bool  `form:"isActive"`
}

// FromUser maps a domain user.
func FromUser(u *auth.User) UserResponse {
	out := UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		Email:         u.Email,
		IsActive:      u.IsActive,
		BlockedUntil:  u.BlockedUntil,
		ResetPassword: u.ResetPassword,
	}
	for _, r := range u.Roles {
		out.Roles = append(out.Roles, FromRole(r))
	}
	return out
}

// FromRole maps a domain role.
func FromRole(r auth.Role) RoleResponse {
	return RoleResponse{ID: r.ID, Name: r.Name, IsActive: r.IsActive}
}

// FromAccess maps a domain access.
func FromAccess(a auth.Access) AccessResponse {
	return AccessResponse{ID: a.ID, Name: a.Name, Path: a.Path, IsActive: a.IsActive}
}

// FromOperation maps a domain operation.
func FromOperation(o auth.Operation) OperationResponse {
	return OperationResponse{ID: o.ID, Name: o.Name}
}
