// Package movement_repo implements movement persistence in the Promec DB:
// headers, detail lines, auxiliary weights, heavy lots, fabric warehouse
// rows and roll cards.
package movement_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	appctx "mecsa/internal/core/context"
	"mecsa/internal/domain/movement"
	"mecsa/internal/domain/series"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ movement.HeaderRepository = (*HeaderRepo)(nil)

var headerColumns = []string{
	"company", "storage_code", "movement_type", "movement_code",
	"document_code", "document_number", "period", "creation_date",
	"creation_time", "auxiliary_code", "auxiliary_name", "reference_code",
	"reference_number1", "reference_number2", "status_flag", "printed_flag",
	"flgcbd", "nrodir", "transporter_code", "service_purchase_code",
	"annulment_date", "user_id", "annulment_user_id",
}

type HeaderRepo struct {
	txManager *postgres.TxManager
	outbox    *postgres.OutboxPublisher
	builder   sq.StatementBuilderType
}

func NewHeaderRepo(txManager *postgres.TxManager) *HeaderRepo {
	return &HeaderRepo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// WithOutbox enables movement event publishing. Events commit inside the
// same Promec transaction as the header write and are relayed to the App DB.
func (r *HeaderRepo) WithOutbox(publisher *postgres.OutboxPublisher) *HeaderRepo {
	r.outbox = publisher
	return r
}

func (r *HeaderRepo) publish(ctx context.Context, eventType string, m *movement.Movement) error {
	if r.outbox == nil {
		return nil
	}
	key := m.Key()
	return r.outbox.Publish(ctx, postgres.DomainEvent{
		EventKey:      fmt.Sprintf("%s:%s:%s:%d", eventType, key.MovementCode, key.DocumentNumber, key.Period),
		AggregateType: "movement",
		AggregateID:   key.DocumentNumber,
		EventType:     eventType,
		Payload: map[string]any{
			"action_id":       appctx.GetActionID(ctx),
			"storage_code":    key.StorageCode,
			"movement_type":   key.MovementType,
			"movement_code":   key.MovementCode,
			"document_code":   key.DocumentCode,
			"document_number": key.DocumentNumber,
			"period":          key.Period,
			"auxiliary_code":  m.AuxiliaryCode,
			"status_flag":     m.StatusFlag,
			"user_id":         m.UserID,
		},
	})
}

func keyPredicate(key movement.Key) sq.Eq {
	return sq.Eq{
		"company":         key.Company,
		"storage_code":    key.StorageCode,
		"movement_type":   key.MovementType,
		"movement_code":   key.MovementCode,
		"document_code":   key.DocumentCode,
		"document_number": key.DocumentNumber,
		"period":          key.Period,
	}
}

func (r *HeaderRepo) Insert(ctx context.Context, m *movement.Movement) error {
	query, args, err := r.builder.
		Insert("movements").
		Columns(headerColumns...).
		Values(m.Company, m.StorageCode, m.MovementType, m.MovementCode,
			m.DocumentCode, m.DocumentNumber, m.Period, m.CreationDate,
			m.CreationTime, m.AuxiliaryCode, m.AuxiliaryName, m.ReferenceCode,
			m.ReferenceNumber1, m.ReferenceNumber2, m.StatusFlag, m.PrintedFlag,
			m.Flgcbd, m.NrodirCode, m.TransporterCode, m.ServicePurchaseCode,
			m.AnnulmentDate, m.UserID, m.AnnulmentUserID).
		ToSql()
	if err != nil {
		return fmt.Errorf("build movement insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert movement %s: %w", m.DocumentNumber, err)
	}
	return r.publish(ctx, "movement.posted", m)
}

func (r *HeaderRepo) Get(ctx context.Context, key movement.Key) (*movement.Movement, error) {
	query, args, err := r.builder.
		Select(headerColumns...).
		From("movements").
		Where(keyPredicate(key)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build movement query: %w", err)
	}

	var m movement.Movement
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &m, query, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get movement %s: %w", key.DocumentNumber, err)
	}
	return &m, nil
}

func (r *HeaderRepo) Update(ctx context.Context, m *movement.Movement) error {
	query, args, err := r.builder.
		Update("movements").
		Set("auxiliary_code", m.AuxiliaryCode).
		Set("auxiliary_name", m.AuxiliaryName).
		Set("reference_code", m.ReferenceCode).
		Set("reference_number1", m.ReferenceNumber1).
		Set("reference_number2", m.ReferenceNumber2).
		Set("status_flag", m.StatusFlag).
		Set("printed_flag", m.PrintedFlag).
		Set("nrodir", m.NrodirCode).
		Set("transporter_code", m.TransporterCode).
		Set("service_purchase_code", m.ServicePurchaseCode).
		Set("annulment_date", m.AnnulmentDate).
		Set("annulment_user_id", m.AnnulmentUserID).
		Where(keyPredicate(m.Key())).
		ToSql()
	if err != nil {
		return fmt.Errorf("build movement update: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update movement %s: %w", m.DocumentNumber, err)
	}
	if m.StatusFlag == movement.StatusAnnulled {
		return r.publish(ctx, "movement.annulled", m)
	}
	return nil
}

func (r *HeaderRepo) List(ctx context.Context, storage, movementType, movementCode, documentCode string, filter movement.ListFilter) (*movement.ListResult, error) {
	base := sq.Eq{
		"company":       series.Company,
		"storage_code":  storage,
		"movement_type": movementType,
		"movement_code": movementCode,
		"document_code": documentCode,
	}
	if filter.Period != 0 {
		base["period"] = filter.Period
	}
	if filter.SupplierCode != "" {
		base["auxiliary_code"] = filter.SupplierCode
	}

	q := r.builder.
		Select(headerColumns...).
		From("movements").
		Where(base)
	countQ := r.builder.
		Select("COUNT(*)").
		From("movements").
		Where(base)
	if !filter.IncludeAnnulled {
		notAnnulled := sq.NotEq{"status_flag": movement.StatusAnnulled}
		q = q.Where(notAnnulled)
		countQ = countQ.Where(notAnnulled)
	}

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build movement count query: %w", err)
	}
	var total int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count movements: %w", err)
	}

	query, args, err := q.
		OrderBy("document_number DESC").
		Limit(uint64(filter.PageSize)).
		Offset(filter.Offset()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build movement list query: %w", err)
	}

	var items []movement.Movement
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, query, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}

	return &movement.ListResult{
		Items:    items,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}
