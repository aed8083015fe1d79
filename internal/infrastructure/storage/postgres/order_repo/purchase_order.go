package order_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"mecsa/internal/domain/documents/purchase_order"
	"mecsa/internal/domain/series"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ purchase_order.Repository = (*PurchaseOrderRepo)(nil)

type PurchaseOrderRepo struct {
	txManager *postgres.TxManager
	builder   sq.StatementBuilderType
}

func NewPurchaseOrderRepo(txManager *postgres.TxManager) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *PurchaseOrderRepo) Get(ctx context.Context, number string) (*purchase_order.PurchaseOrder, error) {
	query, args, err := r.builder.
		Select("company", "number", "supplier_code", "status_flag").
		From("purchase_orders").
		Where(sq.Eq{"company": series.Company, "number": number}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build purchase order query: %w", err)
	}

	var o purchase_order.PurchaseOrder
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &o, query, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase order %s: %w", number, err)
	}
	return &o, nil
}

func (r *PurchaseOrderRepo) ListLines(ctx context.Context, number string) ([]purchase_order.Line, error) {
	query, args, err := r.builder.
		Select("company", "number", "product_code", "quantity_ordered", "quantity_received").
		From("purchase_order_lines").
		Where(sq.Eq{"company": series.Company, "number": number}).
		OrderBy("product_code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build purchase order line query: %w", err)
	}

	var rows []purchase_order.Line
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list lines of purchase order %s: %w", number, err)
	}
	return rows, nil
}

func (r *PurchaseOrderRepo) AddReceived(ctx context.Context, number, productCode string, delta decimal.Decimal) error {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE purchase_order_lines
		SET quantity_received = quantity_received + $1
		WHERE company = $2 AND number = $3 AND product_code = $4
	`, delta, series.Company, number, productCode)
	if err != nil {
		return fmt.Errorf("add received to purchase order %s/%s: %w", number, productCode, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchase order line %s/%s not found", number, productCode)
	}
	return nil
}
