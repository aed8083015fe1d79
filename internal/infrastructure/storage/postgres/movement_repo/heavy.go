package movement_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecsa/internal/domain/movement"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ movement.HeavyRepository = (*HeavyRepo)(nil)

var heavyColumns = []string{
	"company", "ingress_number", "item_number", "group_number", "period",
	"product_code", "cone_count", "package_count", "cones_left", "packages_left",
	"gross_weight", "net_weight", "dispatch_status", "exit_number",
	"exit_user_id", "supplier_batch", "mecsa_batch", "status_flag",
}

type HeavyRepo struct {
	txManager *postgres.TxManager
	batch     *postgres.BatchInserter
	builder   sq.StatementBuilderType
}

func NewHeavyRepo(txManager *postgres.TxManager) *HeavyRepo {
	return &HeavyRepo{
		txManager: txManager,
		batch:     postgres.NewBatchInserter(txManager),
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *HeavyRepo) InsertBatch(ctx context.Context, rows []movement.YarnOCHeavy) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, 0, len(rows))
	for _, h := range rows {
		values = append(values, []any{
			h.Company, h.IngressNumber, h.ItemNumber, h.GroupNumber, h.Period,
			h.ProductCode, h.ConeCount, h.PackageCount, h.ConesLeft, h.PackagesLeft,
			h.GrossWeight, h.NetWeight, h.DispatchStatus, h.ExitNumber,
			h.ExitUserID, h.SupplierBatch, h.MecsaBatch, h.StatusFlag,
		})
	}
	if _, err := r.batch.CopyFromSlice(ctx, "yarn_oc_heavies", heavyColumns, values); err != nil {
		return fmt.Errorf("insert heavy lots: %w", err)
	}
	return nil
}

func (r *HeavyRepo) Get(ctx context.Context, ingressNumber string, itemNumber, groupNumber, period int) (*movement.YarnOCHeavy, error) {
	query, args, err := r.builder.
		Select(heavyColumns...).
		From("yarn_oc_heavies").
		Where(sq.Eq{
			"ingress_number": ingressNumber,
			"item_number":    itemNumber,
			"group_number":   groupNumber,
			"period":         period,
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build heavy lot query: %w", err)
	}

	var h movement.YarnOCHeavy
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &h, query, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get heavy lot %s/%d/%d: %w", ingressNumber, itemNumber, groupNumber, err)
	}
	return &h, nil
}

func (r *HeavyRepo) ListByIngress(ctx context.Context, ingressNumber string, period int) ([]movement.YarnOCHeavy, error) {
	query, args, err := r.builder.
		Select(heavyColumns...).
		From("yarn_oc_heavies").
		Where(sq.Eq{"ingress_number": ingressNumber, "period": period}).
		OrderBy("item_number", "group_number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build heavy lot list query: %w", err)
	}

	var rows []movement.YarnOCHeavy
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list heavy lots of %s: %w", ingressNumber, err)
	}
	return rows, nil
}

func (r *HeavyRepo) Update(ctx context.Context, h *movement.YarnOCHeavy) error {
	query, args, err := r.builder.
		Update("yarn_oc_heavies").
		Set("cones_left", h.ConesLeft).
		Set("packages_left", h.PackagesLeft).
		Set("dispatch_status", h.DispatchStatus).
		Set("exit_number", h.ExitNumber).
		Set("exit_user_id", h.ExitUserID).
		Set("status_flag", h.StatusFlag).
		Where(sq.Eq{
			"ingress_number": h.IngressNumber,
			"item_number":    h.ItemNumber,
			"group_number":   h.GroupNumber,
			"period":         h.Period,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build heavy lot update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update heavy lot %s/%d/%d: %w", h.IngressNumber, h.ItemNumber, h.GroupNumber, err)
	}
	return nil
}

func (r *HeavyRepo) DeleteByIngress(ctx context.Context, ingressNumber string, period int) error {
	query, args, err := r.builder.
		Delete("yarn_oc_heavies").
		Where(sq.Eq{"ingress_number": ingressNumber, "period": period}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build heavy lot delete: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete heavy lots of %s: %w", ingressNumber, err)
	}
	return nil
}

// AnyConsumed reports whether any lot of the ingress was already taken by a
// dispatch, either partially or in full.
func (r *HeavyRepo) AnyConsumed(ctx context.Context, ingressNumber string, period int) (bool, error) {
	var consumed bool
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM yarn_oc_heavies
			WHERE ingress_number = $1 AND period = $2
			  AND (exit_number IS NOT NULL
			       OR cones_left <> cone_count
			       OR packages_left <> package_count)
		)
	`, ingressNumber, period).Scan(&consumed)
	if err != nil {
		return false, fmt.Errorf("check heavy consumption of %s: %w", ingressNumber, err)
	}
	return consumed, nil
}
