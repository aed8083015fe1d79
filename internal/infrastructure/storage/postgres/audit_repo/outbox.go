package audit_repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"mecsa/internal/domain/audit"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ postgres.OutboxHandler = (*OutboxHandler)(nil)

// OutboxHandler lands relayed Promec movement events in the audit data log,
// correlated with the API action that produced them.
type OutboxHandler struct {
	repo *Repo
}

func NewOutboxHandler(repo *Repo) *OutboxHandler {
	return &OutboxHandler{repo: repo}
}

func (h *OutboxHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	actionID := uuid.New()
	var payload struct {
		ActionID string `json:"action_id"`
	}
	if err := json.Unmarshal(msg.Payload, &payload); err == nil {
		if parsed, err := uuid.Parse(payload.ActionID); err == nil {
			actionID = parsed
		}
	}

	action := audit.ActionUpdate
	if msg.EventType == "movement.posted" {
		action = audit.ActionCreate
	}

	return h.repo.InsertData(ctx, []audit.DataLog{{
		ID:              uuid.New(),
		ActionID:        actionID,
		EntityType:      msg.AggregateType,
		EntityID:        msg.AggregateID,
		Action:          action,
		NewValue:        msg.Payload,
		CompressionAlgo: audit.CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}})
}
