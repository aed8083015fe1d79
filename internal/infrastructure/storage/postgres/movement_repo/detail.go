package movement_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecsa/internal/domain/movement"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ movement.DetailRepository = (*DetailRepo)(nil)

var detailColumns = []string{
	"company", "storage_code", "movement_type", "movement_code",
	"document_code", "document_number", "period", "item_number",
	"product_code", "unit", "factor", "mecsa_weight",
	"ref_document_code", "ref_document_number", "nrotarj",
	"group_number", "item_number_supply", "status_flag",
}

var auxColumns = []string{
	"company", "document_code", "document_number", "period", "item_number",
	"guide_gross_weight", "guide_net_weight", "guide_cone_count",
	"guide_package_count", "mecsa_batch", "supplier_batch",
}

type DetailRepo struct {
	txManager *postgres.TxManager
	batch     *postgres.BatchInserter
	builder   sq.StatementBuilderType
}

func NewDetailRepo(txManager *postgres.TxManager) *DetailRepo {
	return &DetailRepo{
		txManager: txManager,
		batch:     postgres.NewBatchInserter(txManager),
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// InsertBatch bulk-inserts detail lines with the COPY protocol.
func (r *DetailRepo) InsertBatch(ctx context.Context, rows []movement.MovementDetail) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, 0, len(rows))
	for _, d := range rows {
		values = append(values, []any{
			d.Company, d.StorageCode, d.MovementType, d.MovementCode,
			d.DocumentCode, d.DocumentNumber, d.Period, d.ItemNumber,
			d.ProductCode, d.Unit, d.Factor, d.MecsaWeight,
			d.RefDocumentCode, d.RefDocumentNumber, d.CardID,
			d.GroupNumber, d.ItemNumberSupply, d.StatusFlag,
		})
	}
	if _, err := r.batch.CopyFromSlice(ctx, "movement_details", detailColumns, values); err != nil {
		return fmt.Errorf("insert movement details: %w", err)
	}
	return nil
}

func (r *DetailRepo) ListByDocument(ctx context.Context, documentCode, documentNumber string, period int) ([]movement.MovementDetail, error) {
	query, args, err := r.builder.
		Select(detailColumns...).
		From("movement_details").
		Where(sq.Eq{
			"document_code":   documentCode,
			"document_number": documentNumber,
			"period":          period,
		}).
		OrderBy("item_number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build detail list query: %w", err)
	}

	var rows []movement.MovementDetail
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list details of %s: %w", documentNumber, err)
	}
	return rows, nil
}

func (r *DetailRepo) DeleteByDocument(ctx context.Context, documentCode, documentNumber string, period int) error {
	query, args, err := r.builder.
		Delete("movement_details").
		Where(sq.Eq{
			"document_code":   documentCode,
			"document_number": documentNumber,
			"period":          period,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build detail delete: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete details of %s: %w", documentNumber, err)
	}
	return nil
}

func (r *DetailRepo) DeleteLines(ctx context.Context, documentCode, documentNumber string, period int, itemNumbers []int) error {
	if len(itemNumbers) == 0 {
		return nil
	}
	query, args, err := r.builder.
		Delete("movement_details").
		Where(sq.Eq{
			"document_code":   documentCode,
			"document_number": documentNumber,
			"period":          period,
			"item_number":     itemNumbers,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build detail line delete: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete lines of %s: %w", documentNumber, err)
	}
	return nil
}

func (r *DetailRepo) UpdateStatusByDocument(ctx context.Context, documentCode, documentNumber string, period int, status string) error {
	query, args, err := r.builder.
		Update("movement_details").
		Set("status_flag", status).
		Where(sq.Eq{
			"document_code":   documentCode,
			"document_number": documentNumber,
			"period":          period,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build detail status update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update detail status of %s: %w", documentNumber, err)
	}
	return nil
}

// InsertAuxBatch bulk-inserts auxiliary weight rows.
func (r *DetailRepo) InsertAuxBatch(ctx context.Context, rows []movement.MovementDetailAux) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, 0, len(rows))
	for _, a := range rows {
		values = append(values, []any{
			a.Company, a.DocumentCode, a.DocumentNumber, a.Period, a.ItemNumber,
			a.GuideGrossWeight, a.GuideNetWeight, a.GuideConeCount,
			a.GuidePackageCount, a.MecsaBatch, a.SupplierBatch,
		})
	}
	if _, err := r.batch.CopyFromSlice(ctx, "movement_detail_aux", auxColumns, values); err != nil {
		return fmt.Errorf("insert movement detail aux: %w", err)
	}
	return nil
}

func (r *DetailRepo) ListAuxByDocument(ctx context.Context, documentCode, documentNumber string, period int) ([]movement.MovementDetailAux, error) {
	query, args, err := r.builder.
		Select(auxColumns...).
		From("movement_detail_aux").
		Where(sq.Eq{
			"document_code":   documentCode,
			"document_number": documentNumber,
			"period":          period,
		}).
		OrderBy("item_number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build detail aux list query: %w", err)
	}

	var rows []movement.MovementDetailAux
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list detail aux of %s: %w", documentNumber, err)
	}
	return rows, nil
}

func (r *DetailRepo) DeleteAuxByDocument(ctx context.Context, documentCode, documentNumber string, period int) error {
	query, args, err := r.builder.
		Delete("movement_detail_aux").
		Where(sq.Eq{
			"document_code":   documentCode,
			"document_number": documentNumber,
			"period":          period,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build detail aux delete: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete detail aux of %s: %w", documentNumber, err)
	}
	return nil
}
