// Package audit records who did what: one action log per API call plus
// per-entity data logs sharing its correlation id.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Data log actions.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Compression markers on stored payloads.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// ActionLog is the request-level audit row.
type ActionLog struct {
	ID              uuid.UUID       `db:"id"`
	UserID          int             `db:"user_id"`
	Username        string          `db:"username"`
	Endpoint        string          `db:"endpoint"`
	Method          string          `db:"method"`
	Path            string          `db:"path"`
	Query           string          `db:"query"`
	RequestBody     json.RawMessage `db:"request_body"`
	ResponseBody    json.RawMessage `db:"response_body"`
	StatusCode      int             `db:"status_code"`
	IP              string          `db:"ip"`
	UserAgent       string          `db:"user_agent"`
	DurationMs      int64           `db:"duration_ms"`
	CompressionAlgo string          `db:"compression_algo"`
	CreatedAt       time.Time       `db:"created_at"`
}

// DataLog is one entity snapshot pair under an action.
type DataLog struct {
	ID              uuid.UUID       `db:"id"`
	ActionID        uuid.UUID       `db:"action_id"`
	EntityType      string          `db:"entity_type"`
	EntityID        string          `db:"entity_id"`
	Action          string          `db:"action"`
	OldValue        json.RawMessage `db:"old_value"`
	NewValue        json.RawMessage `db:"new_value"`
	CompressionAlgo string          `db:"compression_algo"`
	CreatedAt       time.Time       `db:"created_at"`
}

// Repository persists both log kinds in the application database.
type Repository interface {
	InsertAction(ctx context.Context, row *ActionLog) error
	InsertData(ctx context.Context, rows []DataLog) error
	ListActions(ctx context.Context, filter ActionFilter) ([]ActionLog, int64, error)
	ListDataByAction(ctx context.Context, actionID uuid.UUID) ([]DataLog, error)
}

// ActionFilter pages action logs.
type ActionFilter struct {
	Username string
	Endpoint string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}
