package register_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecsa/internal/domain/registers/supply"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ supply.Repository = (*SupplyRepo)(nil)

var supplyColumns = []string{
	"storage_code", "reference_number", "item_number", "supply_id",
	"supplier_yarn_id", "current_stock", "provided_quantity",
	"quantity_dispatched", "quantity_received", "status_flag",
}

type SupplyRepo struct {
	txManager *postgres.TxManager
	builder   sq.StatementBuilderType
}

func NewSupplyRepo(txManager *postgres.TxManager) *SupplyRepo {
	return &SupplyRepo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *SupplyRepo) ListByOrder(ctx context.Context, storageCode, referenceNumber string) ([]supply.Detail, error) {
	query, args, err := r.builder.
		Select(supplyColumns...).
		From("service_order_supply_details").
		Where(sq.Eq{"storage_code": storageCode, "reference_number": referenceNumber}).
		OrderBy("item_number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build supply ledger query: %w", err)
	}

	var rows []supply.Detail
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list supply ledger of %s: %w", referenceNumber, err)
	}
	return rows, nil
}

func (r *SupplyRepo) Insert(ctx context.Context, d *supply.Detail) error {
	query, args, err := r.builder.
		Insert("service_order_supply_details").
		Columns(supplyColumns...).
		Values(d.StorageCode, d.ReferenceNumber, d.ItemNumber, d.SupplyID,
			d.SupplierYarnID, d.CurrentStock, d.ProvidedQuantity,
			d.QuantityDispatched, d.QuantityReceived, d.StatusFlag).
		ToSql()
	if err != nil {
		return fmt.Errorf("build supply ledger insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert supply ledger row %s/%d: %w", d.ReferenceNumber, d.ItemNumber, err)
	}
	return nil
}

func (r *SupplyRepo) Update(ctx context.Context, d *supply.Detail) error {
	query, args, err := r.builder.
		Update("service_order_supply_details").
		Set("supply_id", d.SupplyID).
		Set("supplier_yarn_id", d.SupplierYarnID).
		Set("current_stock", d.CurrentStock).
		Set("provided_quantity", d.ProvidedQuantity).
		Set("quantity_dispatched", d.QuantityDispatched).
		Set("quantity_received", d.QuantityReceived).
		Set("status_flag", d.StatusFlag).
		Where(sq.Eq{
			"storage_code":     d.StorageCode,
			"reference_number": d.ReferenceNumber,
			"item_number":      d.ItemNumber,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build supply ledger update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update supply ledger row %s/%d: %w", d.ReferenceNumber, d.ItemNumber, err)
	}
	return nil
}
