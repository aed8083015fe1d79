// Package handlers implements the v1 endpoint handlers.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mecsa/internal/core/apperror"
	"mecsa/internal/infrastructure/http/v1/dto"
)

// BaseHandler provides binding and response helpers shared by all handlers.
type BaseHandler struct{}

// NewBaseHandler creates a base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds the request body, registering a validation error on failure.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds query parameters, registering a validation error on failure.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers the error and aborts; middleware.ErrorHandler renders it.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// OK sends a 200 response.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 response.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// Message sends a 200 with a message body.
func (h *BaseHandler) Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, dto.MessageResponse{Message: message})
}

// IntParam parses a path parameter as integer.
func (h *BaseHandler) IntParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid path parameter").WithDetail("param", name))
		return 0, false
	}
	return v, true
}

// PeriodQuery reads the period query parameter, defaulting to the current
// year. Movement documents are filed per period.
func (h *BaseHandler) PeriodQuery(c *gin.Context) int {
	if v, err := strconv.Atoi(c.Query("period")); err == nil && v > 0 {
		return v
	}
	return time.Now().Year()
}

// BoolQuery reads a boolean query parameter.
func (h *BaseHandler) BoolQuery(c *gin.Context, name string) bool {
	v, _ := strconv.ParseBool(c.Query(name))
	return v
}
