package handlers

import (
	"github.com/gin-gonic/gin"

	"mecsa/internal/domain/auth"
	"mecsa/internal/infrastructure/http/v1/dto"
)

// UserHandler serves user administration endpoints.
type UserHandler struct {
	*BaseHandler
	service *auth.Service
}

// NewUserHandler creates a user handler.
func NewUserHandler(base *BaseHandler, service *auth.Service) *UserHandler {
	return &UserHandler{BaseHandler: base, service: service}
}

// List pages users with an optional search filter.
func (h *UserHandler) List(c *gin.Context) {
	var q dto.UserListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if q.PageSize < 1 {
		q.PageSize = 50
	}
	if q.Page < 1 {
		q.Page = 1
	}

	users, total, err := h.service.ListUsers(c.Request.Context(), auth.UserFilter{
		Search:   q.Search,
		IsActive: q.IsActive,
		Limit:    q.PageSize,
		Offset:   (q.Page - 1) * q.PageSize,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.FromUser(&users[i]))
	}
	h.OK(c, dto.PageResponse{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize})
}

// Get returns one user with roles.
func (h *UserHandler) Get(c *gin.Context) {
	userID, ok := h.IntParam(c, "id")
	if !ok {
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromUser(user))
}

// Create registers a user with the password policy applied.
func (h *UserHandler) Create(c *gin.Context) {
	var form auth.CreateUserForm
	if !h.BindJSON(c, &form) {
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), form)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromUser(user))
}

// Update patches user fields and role assignments.
func (h *UserHandler) Update(c *gin.Context) {
	userID, ok := h.IntParam(c, "id")
	if !ok {
		return
	}
	var form auth.UpdateUserForm
	if !h.BindJSON(c, &form) {
		return
	}

	user, err := h.service.UpdateUser(c.Request.Context(), userID, form)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromUser(user))
}

// ResetPassword sets a fresh password for the user.
func (h *UserHandler) ResetPassword(c *gin.Context) {
	userID, ok := h.IntParam(c, "id")
	if !ok {
		return
	}
	var req dto.ResetPasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), userID, req.Password); err != nil {
		h.Error(c, err)
		return
	}
	h.Message(c, "password reset")
}

// ListRoles returns all roles.
func (h *UserHandler) ListRoles(c *gin.Context) {
	roles, err := h.service.ListRoles(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	items := make([]dto.RoleResponse, 0, len(roles))
	for _, r := range roles {
		items = append(items, dto.FromRole(r))
	}
	h.OK(c, items)
}

// ListAccesses returns the guarded API surfaces.
func (h *UserHandler) ListAccesses(c *gin.Context) {
	accesses, err := h.service.ListAccesses(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	items := make([]dto.AccessResponse, 0, len(accesses))
	for _, a := range accesses {
		items = append(items, dto.FromAccess(a))
	}
	h.OK(c, items)
}

// ListOperations returns the operation kinds.
func (h *UserHandler) ListOperations(c *gin.Context) {
	ops, err := h.service.ListOperations(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	items := make([]dto.OperationResponse, 0, len(ops))
	for _, o := range ops {
		items = append(items, dto.FromOperation(o))
	}
	h.OK(c, items)
}
