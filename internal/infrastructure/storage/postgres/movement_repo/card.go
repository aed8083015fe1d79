package movement_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecsa/internal/domain/movement"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ movement.CardRepository = (*CardRepo)(nil)

var cardColumns = []string{
	"id", "company", "fabric_id", "product_id", "net_weight",
	"yarn_supplier_id", "weaving_supplier_id", "tint_supplier_id",
	"tint_color_id", "card_type", "status_flag", "exit_number",
	"document_number", "period",
}

type CardRepo struct {
	txManager *postgres.TxManager
	batch     *postgres.BatchInserter
	builder   sq.StatementBuilderType
}

func NewCardRepo(txManager *postgres.TxManager) *CardRepo {
	return &CardRepo{
		txManager: txManager,
		batch:     postgres.NewBatchInserter(txManager),
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *CardRepo) InsertBatch(ctx context.Context, rows []movement.CardOperation) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, 0, len(rows))
	for _, c := range rows {
		values = append(values, []any{
			c.ID, c.Company, c.FabricID, c.ProductID, c.NetWeight,
			c.YarnSupplierID, c.WeavingSupplierID, c.TintSupplierID,
			c.TintColorID, c.CardType, c.StatusFlag, c.ExitNumber,
			c.DocumentNumber, c.Period,
		})
	}
	if _, err := r.batch.CopyFromSlice(ctx, "card_operations", cardColumns, values); err != nil {
		return fmt.Errorf("insert roll cards: %w", err)
	}
	return nil
}

func (r *CardRepo) Get(ctx context.Context, id string) (*movement.CardOperation, error) {
	query, args, err := r.builder.
		Select(cardColumns...).
		From("card_operations").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build card query: %w", err)
	}

	var c movement.CardOperation
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &c, query, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get card %s: %w", id, err)
	}
	return &c, nil
}

func (r *CardRepo) ListByIDs(ctx context.Context, ids []string) ([]movement.CardOperation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := r.builder.
		Select(cardColumns...).
		From("card_operations").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build card batch query: %w", err)
	}

	var rows []movement.CardOperation
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("get cards: %w", err)
	}
	return rows, nil
}

func (r *CardRepo) ListByDocument(ctx context.Context, documentNumber string, period int) ([]movement.CardOperation, error) {
	query, args, err := r.builder.
		Select(cardColumns...).
		From("card_operations").
		Where(sq.Eq{"document_number": documentNumber, "period": period}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build card document query: %w", err)
	}

	var rows []movement.CardOperation
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list cards of %s: %w", documentNumber, err)
	}
	return rows, nil
}

func (r *CardRepo) Update(ctx context.Context, c *movement.CardOperation) error {
	query, args, err := r.builder.
		Update("card_operations").
		Set("net_weight", c.NetWeight).
		Set("tint_supplier_id", c.TintSupplierID).
		Set("tint_color_id", c.TintColorID).
		Set("status_flag", c.StatusFlag).
		Set("exit_number", c.ExitNumber).
		Where(sq.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build card update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update card %s: %w", c.ID, err)
	}
	return nil
}

func (r *CardRepo) DeleteByDocument(ctx context.Context, documentNumber string, period int) error {
	query, args, err := r.builder.
		Delete("card_operations").
		Where(sq.Eq{"document_number": documentNumber, "period": period}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build card delete: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete cards of %s: %w", documentNumber, err)
	}
	return nil
}
