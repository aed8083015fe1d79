package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mecsa/pkg/logger"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

const outboxMaxRetries = 5

// OutboxMessage is one event queued in the operational database for
// delivery to the application database.
type OutboxMessage struct {
	ID            uuid.UUID    `db:"id"`
	EventKey      string       `db:"event_key"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   string       `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

// DomainEvent is an event to enqueue. EventKey makes the enqueue
// idempotent: re-posting the same document under the same key is a no-op.
type DomainEvent struct {
	EventKey      string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       any
}

// OutboxPublisher writes events to the outbox table inside the caller's
// business transaction.
type OutboxPublisher struct {
	txManager *TxManager
}

// NewOutboxPublisher creates an outbox publisher.
func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager}
}

// Publish enqueues an event. MUST be called inside a transaction so the
// event commits atomically with the business write.
func (p *OutboxPublisher) Publish(ctx context.Context, event DomainEvent) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}

	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (id, event_key, aggregate_type, aggregate_id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_key) DO NOTHING
	`, uuid.New(), event.EventKey, event.AggregateType, event.AggregateID,
		event.EventType, payloadBytes, OutboxStatusPending, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// OutboxHandler processes relayed messages on the receiving side.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxRelay drains pending messages and hands them to the handler.
// Concurrent relays are safe: rows are claimed with SKIP LOCKED.
type OutboxRelay struct {
	pool      *pgxpool.Pool
	batchSize int
	handler   OutboxHandler
}

// NewOutboxRelay creates an outbox relay.
func NewOutboxRelay(pool *pgxpool.Pool, batchSize int, handler OutboxHandler) *OutboxRelay {
	return &OutboxRelay{pool: pool, batchSize: batchSize, handler: handler}
}

// Run drains the outbox on the given interval until the context ends.
func (r *OutboxRelay) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := r.ProcessBatch(ctx); err != nil {
				logger.Error(ctx, "outbox batch failed", "error", err)
			} else if n > 0 {
				logger.Debug(ctx, "outbox batch relayed", "count", n)
			}
		}
	}
}

// ProcessBatch claims and processes one batch of pending messages. Returns
// the number delivered.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin relay transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := tx.Query(ctx, `
		SELECT id, event_key, aggregate_type, aggregate_id, event_type, payload,
		       status, retry_count, last_error, next_retry_at, created_at, published_at
		FROM outbox
		WHERE status = $1
		  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
		ORDER BY created_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, OutboxStatusPending, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox messages: %w", err)
	}

	var messages []*OutboxMessage
	for rows.Next() {
		var msg OutboxMessage
		err := rows.Scan(
			&msg.ID, &msg.EventKey, &msg.AggregateType, &msg.AggregateID,
			&msg.EventType, &msg.Payload, &msg.Status, &msg.RetryCount,
			&msg.LastError, &msg.NextRetryAt, &msg.CreatedAt, &msg.PublishedAt,
		)
		if err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox message: %w", err)
		}
		messages = append(messages, &msg)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox messages: %w", err)
	}

	processed := 0
	for _, msg := range messages {
		if err := r.deliver(ctx, tx, msg); err != nil {
			logger.Warn(ctx, "outbox delivery failed",
				"event_key", msg.EventKey, "error", err)
			continue
		}
		processed++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit relay transaction: %w", err)
	}
	return processed, nil
}

// deliver hands one message to the handler and records the outcome on the
// claimed row.
func (r *OutboxRelay) deliver(ctx context.Context, tx pgx.Tx, msg *OutboxMessage) error {
	if err := r.handler.Handle(ctx, msg); err != nil {
		nextRetry := time.Now().Add(time.Duration(msg.RetryCount+1) * time.Minute)
		errStr := err.Error()

		_, updateErr := tx.Exec(ctx, `
			UPDATE outbox
			SET retry_count = retry_count + 1,
			    last_error = $1,
			    next_retry_at = $2,
			    status = CASE WHEN retry_count + 1 >= $3 THEN $4 ELSE status END
			WHERE id = $5
		`, errStr, nextRetry, outboxMaxRetries, OutboxStatusFailed, msg.ID)
		if updateErr != nil {
			return fmt.Errorf("update failed message: %w", updateErr)
		}
		return err
	}

	_, err := tx.Exec(ctx, `
		UPDATE outbox
		SET status = $1, published_at = $2
		WHERE id = $3
	`, OutboxStatusPublished, time.Now().UTC(), msg.ID)
	return err
}
