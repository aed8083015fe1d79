// Package register_repo implements stock balance and supply ledger
// persistence in the Promec DB.
package register_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"mecsa/internal/domain/registers/inventory"
	"mecsa/internal/domain/series"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ inventory.Repository = (*InventoryRepo)(nil)

type InventoryRepo struct {
	txManager *postgres.TxManager
	builder   sq.StatementBuilderType
}

func NewInventoryRepo(txManager *postgres.TxManager) *InventoryRepo {
	return &InventoryRepo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *InventoryRepo) Get(ctx context.Context, storageCode, productCode string, period int) (*inventory.ProductInventory, error) {
	query, args, err := r.builder.
		Select("company", "storage_code", "product_code", "period", "current_stock").
		From("product_inventory").
		Where(sq.Eq{
			"company":      series.Company,
			"storage_code": storageCode,
			"product_code": productCode,
			"period":       period,
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build inventory query: %w", err)
	}

	var row inventory.ProductInventory
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, query, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get inventory %s/%s: %w", storageCode, productCode, err)
	}
	return &row, nil
}

func (r *InventoryRepo) Create(ctx context.Context, row *inventory.ProductInventory) error {
	query, args, err := r.builder.
		Insert("product_inventory").
		Columns("company", "storage_code", "product_code", "period", "current_stock").
		Values(row.Company, row.StorageCode, row.ProductCode, row.Period, row.CurrentStock).
		Suffix("ON CONFLICT (company, storage_code, product_code, period) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build inventory insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("create inventory %s/%s: %w", row.StorageCode, row.ProductCode, err)
	}
	return nil
}

func (r *InventoryRepo) AddStock(ctx context.Context, storageCode, productCode string, period int, delta decimal.Decimal) (int64, error) {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE product_inventory
		SET current_stock = current_stock + $1
		WHERE company = $2 AND storage_code = $3 AND product_code = $4 AND period = $5
	`, delta, series.Company, storageCode, productCode, period)
	if err != nil {
		return 0, fmt.Errorf("add stock %s/%s: %w", storageCode, productCode, err)
	}
	return tag.RowsAffected(), nil
}
