package movement_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecsa/internal/domain/movement"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ movement.FabricWarehouseRepository = (*WarehouseRepo)(nil)

var warehouseColumns = []string{
	"company", "document_code", "document_number", "period", "fabric_id",
	"codcol", "width", "density", "guide_net_weight", "mecsa_weight",
	"roll_count", "meters_count", "status_flag",
}

type WarehouseRepo struct {
	txManager *postgres.TxManager
	batch     *postgres.BatchInserter
	builder   sq.StatementBuilderType
}

func NewWarehouseRepo(txManager *postgres.TxManager) *WarehouseRepo {
	return &WarehouseRepo{
		txManager: txManager,
		batch:     postgres.NewBatchInserter(txManager),
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *WarehouseRepo) InsertBatch(ctx context.Context, rows []movement.FabricWarehouse) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, 0, len(rows))
	for _, w := range rows {
		values = append(values, []any{
			w.Company, w.DocumentCode, w.DocumentNumber, w.Period, w.FabricID,
			w.Codcol, w.Width, w.Density, w.GuideNetWeight, w.MecsaWeight,
			w.RollCount, w.MetersCount, w.StatusFlag,
		})
	}
	if _, err := r.batch.CopyFromSlice(ctx, "fabric_warehouse", warehouseColumns, values); err != nil {
		return fmt.Errorf("insert fabric warehouse rows: %w", err)
	}
	return nil
}

func (r *WarehouseRepo) ListByDocument(ctx context.Context, documentCode, documentNumber string, period int) ([]movement.FabricWarehouse, error) {
	query, args, err := r.builder.
		Select(warehouseColumns...).
		From("fabric_warehouse").
		Where(sq.Eq{
			"document_code":   documentCode,
			"document_number": documentNumber,
			"period":          period,
		}).
		OrderBy("fabric_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build fabric warehouse list query: %w", err)
	}

	var rows []movement.FabricWarehouse
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list fabric warehouse of %s: %w", documentNumber, err)
	}
	return rows, nil
}

func (r *WarehouseRepo) Update(ctx context.Context, row *movement.FabricWarehouse) error {
	query, args, err := r.builder.
		Update("fabric_warehouse").
		Set("codcol", row.Codcol).
		Set("width", row.Width).
		Set("density", row.Density).
		Set("guide_net_weight", row.GuideNetWeight).
		Set("mecsa_weight", row.MecsaWeight).
		Set("roll_count", row.RollCount).
		Set("meters_count", row.MetersCount).
		Set("status_flag", row.StatusFlag).
		Where(sq.Eq{
			"document_code":   row.DocumentCode,
			"document_number": row.DocumentNumber,
			"period":          row.Period,
			"fabric_id":       row.FabricID,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build fabric warehouse update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update fabric warehouse %s/%s: %w", row.DocumentNumber, row.FabricID, err)
	}
	return nil
}

func (r *WarehouseRepo) Delete(ctx context.Context, documentCode, documentNumber string, period int, fabricID string) error {
	query, args, err := r.builder.
		Delete("fabric_warehouse").
		Where(sq.Eq{
			"document_code":   documentCode,
			"document_number": documentNumber,
			"period":          period,
			"fabric_id":       fabricID,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build fabric warehouse delete: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete fabric warehouse %s/%s: %w", documentNumber, fabricID, err)
	}
	return nil
}

func (r *WarehouseRepo) DeleteByDocument(ctx context.Context, documentCode, documentNumber string, period int) error {
	query, args, err := r.builder.
		Delete("fabric_warehouse").
		Where(sq.Eq{
			"document_code":   documentCode,
			"document_number": documentNumber,
			"period":          period,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build fabric warehouse document delete: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete fabric warehouse of %s: %w", documentNumber, err)
	}
	return nil
}

func (r *WarehouseRepo) UpdateStatusByDocument(ctx context.Context, documentCode, documentNumber string, period int, status string) error {
	query, args, err := r.builder.
		Update("fabric_warehouse").
		Set("status_flag", status).
		Where(sq.Eq{
			"document_code":   documentCode,
			"document_number": documentNumber,
			"period":          period,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build fabric warehouse status update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update fabric warehouse status of %s: %w", documentNumber, err)
	}
	return nil
}
