// Package apperror provides the structured error type shared by all services.
// Services return *Error values; the HTTP layer is the only place that
// translates them into responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes grouped by HTTP semantics.
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400/422)
	CodeValidation    = "VALIDATION_ERROR"
	CodeUnprocessable = "UNPROCESSABLE_ENTITY"

	// Business rule violations (422)
	CodeRecipeInvalid    = "RECIPE_INVALID"
	CodeConeMismatch     = "CONE_COUNT_MISMATCH"
	CodePackageMismatch  = "PACKAGE_COUNT_MISMATCH"
	CodeQuantityExceeded = "QUANTITY_EXCEEDED"
	CodeStructurePattern = "STRUCTURE_PATTERN_INVALID"
	CodePasswordPolicy   = "PASSWORD_POLICY_VIOLATION"
	CodeYarnNotInRecipe  = "YARN_NOT_IN_FABRIC_RECIPE"
	CodeFabricNotInOrder = "FABRIC_NOT_IN_SERVICE_ORDER"

	// Forbidden state transitions (403)
	CodeForbidden         = "FORBIDDEN"
	CodeMovementAnnulled  = "MOVEMENT_ANNULLED"
	CodeMovementAccounted = "MOVEMENT_ALREADY_ACCOUNTED"
	CodeCardConsumed      = "CARD_ALREADY_DISPATCHED"
	CodeCardAnnulled      = "CARD_ANNULLED"
	CodeCardNotOfSupplier = "CARD_NOT_OF_SUPPLIER"
	CodeGroupConsumed     = "GROUP_ALREADY_DISPATCHED"
	CodeGroupAnnulled     = "GROUP_ANNULLED"
	CodeSupplierService   = "SUPPLIER_SERVICE_MISSING"
	CodeSessionInactive   = "SESSION_INACTIVE"
	CodeOrderCancelled    = "SERVICE_ORDER_CANCELLED"
	CodeOrderFinished     = "SERVICE_ORDER_FINISHED"

	// Authorization errors (401)
	CodeUnauthorized = "UNAUTHORIZED"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Duplicates (409)
	CodeDuplicate = "DUPLICATE_VALUE"
)

// Error is the standard error type for the platform.
// It carries a machine-readable code, an i18n-ready detail message and the
// HTTP status the adapter should answer with.
type Error struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is the human-readable detail surfaced as {"detail": ...}
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400).
func NewValidation(message string) *Error {
	return &Error{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewUnprocessable creates an invariant-violation error (422).
func NewUnprocessable(code, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewNotFound creates a not found error (404) for a named entity.
func NewNotFound(entity string, id any) *Error {
	return &Error{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewDuplicate creates a duplicate-value error (409).
func NewDuplicate(entity, field string) *Error {
	return &Error{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field},
	}
}

// NewForbidden creates a forbidden-state error (403).
func NewForbidden(code, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewUnauthorized creates an authentication error (401).
func NewUnauthorized(message string) *Error {
	return &Error{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewInternal creates an internal server error hiding details from the client.
func NewInternal(err error) *Error {
	return &Error{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helpers ---

// As extracts *Error from an error chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HTTPStatus returns the appropriate HTTP status for any error.
func HTTPStatus(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == code
	}
	return false
}
