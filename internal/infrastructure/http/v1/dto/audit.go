package dto

import (
	"encoding/json"
	"time"

	"mecsa/internal/domain/audit"
)

// AuditListQuery filters the action log.
type AuditListQuery struct {
	PaginationQuery
	Username string     `form:"username"`
	Endpoint string     `form:"endpoint"`
	From     *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To       *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ActionLogResponse is one request-level audit row.
type ActionLogResponse struct {
	ID           string          `json:"id"`
	UserID       int             `json:"userId"`
	Username     string          `json:"username"`
	Endpoint     string          `json:"endpoint"`
	Method       string          `json:"method"`
	Path         string          `json:"path"`
	Query        string          `json:"query,omitempty"`
	RequestBody  json.RawMessage `json:"requestBody,omitempty"`
	ResponseBody json.RawMessage `json:"responseBody,omitempty"`
	StatusCode   int             `json:"statusCode"`
	IP           string          `json:"ip"`
	UserAgent    string          `json:"userAgent"`
	DurationMs   int64           `json:"durationMs"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// DataLogResponse is one entity-level audit row.
type DataLogResponse struct {
	ID         string          `json:"id"`
	ActionID   string          `json:"actionId"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Action     string          `json:"action"`
	OldValue   json.RawMessage `json:"oldValue,omitempty"`
	NewValue   json.RawMessage `json:"newValue,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// FromActionLog maps an action log row.
func FromActionLog(row audit.ActionLog) ActionLogResponse {
	return ActionLogResponse{
		ID:           row.ID.String(),
		UserID:       row.UserID,
		Username:     row.Username,
		Endpoint:     row.Endpoint,
		Method:       row.Method,
		Path:         row.Path,
		Query:        row.Query,
		RequestBody:  row.RequestBody,
		ResponseBody: row.ResponseBody,
		StatusCode:   row.StatusCode,
		IP:           row.IP,
		UserAgent:    row.UserAgent,
		DurationMs:   row.DurationMs,
		CreatedAt:    row.CreatedAt,
	}
}

// FromDataLog maps a data log row.
func FromDataLog(row audit.DataLog) DataLogResponse {
	return DataLogResponse{
		ID:         row.ID.String(),
		ActionID:   row.ActionID.String(),
		EntityType: row.EntityType,
		EntityID:   row.EntityID,
		Action:     row.Action,
		OldValue:   row.OldValue,
		NewValue:   row.NewValue,
		CreatedAt:  row.CreatedAt,
	}
}
