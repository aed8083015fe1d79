// Package audit_repo persists audit action and data logs in the App DB.
package audit_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"mecsa/internal/domain/audit"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ audit.Repository = (*Repo)(nil)

var actionColumns = []string{
	"id", "user_id", "username", "endpoint", "method", "path", "query",
	"request_body", "response_body", "status_code", "ip", "user_agent",
	"duration_ms", "compression_algo", "created_at",
}

var dataColumns = []string{
	"id", "action_id", "entity_type", "entity_id", "action",
	"old_value", "new_value", "compression_algo", "created_at",
}

type Repo struct {
	txManager *postgres.TxManager
	builder   sq.StatementBuilderType
}

func New(txManager *postgres.TxManager) *Repo {
	return &Repo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *Repo) InsertAction(ctx context.Context, row *audit.ActionLog) error {
	query, args, err := r.builder.
		Insert("audit_action_logs").
		Columns(actionColumns...).
		Values(row.ID, row.UserID, row.Username, row.Endpoint, row.Method,
			row.Path, row.Query, row.RequestBody, row.ResponseBody,
			row.StatusCode, row.IP, row.UserAgent, row.DurationMs,
			row.CompressionAlgo, row.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build action log insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert action log %s: %w", row.ID, err)
	}
	return nil
}

func (r *Repo) InsertData(ctx context.Context, rows []audit.DataLog) error {
	if len(rows) == 0 {
		return nil
	}
	q := r.builder.Insert("audit_data_logs").Columns(dataColumns...)
	for _, row := range rows {
		q = q.Values(row.ID, row.ActionID, row.EntityType, row.EntityID,
			row.Action, row.OldValue, row.NewValue, row.CompressionAlgo, row.CreatedAt)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build data log insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert data logs: %w", err)
	}
	return nil
}

func (r *Repo) ListActions(ctx context.Context, filter audit.ActionFilter) ([]audit.ActionLog, int64, error) {
	q := r.builder.Select(actionColumns...).From("audit_action_logs")
	countQ := r.builder.Select("COUNT(*)").From("audit_action_logs")

	preds := sq.And{}
	if filter.Username != "" {
		preds = append(preds, sq.Eq{"username": filter.Username})
	}
	if filter.Endpoint != "" {
		preds = append(preds, sq.Eq{"endpoint": filter.Endpoint})
	}
	if filter.From != nil {
		preds = append(preds, sq.GtOrEq{"created_at": *filter.From})
	}
	if filter.To != nil {
		preds = append(preds, sq.Lt{"created_at": *filter.To})
	}
	if len(preds) > 0 {
		q = q.Where(preds)
		countQ = countQ.Where(preds)
	}

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build action log count query: %w", err)
	}
	var total int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count action logs: %w", err)
	}

	query, args, err := q.
		OrderBy("created_at DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build action log list query: %w", err)
	}

	var rows []audit.ActionLog
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list action logs: %w", err)
	}
	return rows, total, nil
}

func (r *Repo) ListDataByAction(ctx context.Context, actionID uuid.UUID) ([]audit.DataLog, error) {
	query, args, err := r.builder.
		Select(dataColumns...).
		From("audit_data_logs").
		Where(sq.Eq{"action_id": actionID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build data log query: %w", err)
	}

	var rows []audit.DataLog
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list data logs of action %s: %w", actionID, err)
	}
	return rows, nil
}
