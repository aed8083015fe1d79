package catalog_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecsa/internal/domain/catalogs/fabric"
	"mecsa/internal/domain/catalogs/yarn"
	"mecsa/internal/infrastructure/storage/postgres"
)

var (
	_ yarn.RecipeRepository   = (*YarnRecipeRepo)(nil)
	_ fabric.RecipeRepository = (*FabricRecipeRepo)(nil)
)

// YarnRecipeRepo persists yarn fiber recipes in the App DB.
type YarnRecipeRepo struct {
	txManager *postgres.TxManager
	builder   sq.StatementBuilderType
}

func NewYarnRecipeRepo(txManager *postgres.TxManager) *YarnRecipeRepo {
	return &YarnRecipeRepo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var yarnFiberColumns = []string{
	"yarn_id", "fiber_id", "num_plies", "proportion", "galgue", "diameter",
}

func (r *YarnRecipeRepo) ListByYarn(ctx context.Context, yarnID string) ([]yarn.YarnFiber, error) {
	query, args, err := r.builder.
		Select(yarnFiberColumns...).
		From("yarn_fibers").
		Where(sq.Eq{"yarn_id": yarnID}).
		OrderBy("fiber_id", "num_plies").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build yarn recipe query: %w", err)
	}

	var rows []yarn.YarnFiber
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list recipe of yarn %s: %w", yarnID, err)
	}
	return rows, nil
}

func (r *YarnRecipeRepo) ListByYarns(ctx context.Context, yarnIDs []string) (map[string][]yarn.YarnFiber, error) {
	out := make(map[string][]yarn.YarnFiber, len(yarnIDs))
	if len(yarnIDs) == 0 {
		return out, nil
	}

	query, args, err := r.builder.
		Select(yarnFiberColumns...).
		From("yarn_fibers").
		Where(sq.Eq{"yarn_id": yarnIDs}).
		OrderBy("yarn_id", "fiber_id", "num_plies").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build yarn recipe batch query: %w", err)
	}

	var rows []yarn.YarnFiber
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list yarn recipes: %w", err)
	}
	for _, row := range rows {
		out[row.YarnID] = append(out[row.YarnID], row)
	}
	return out, nil
}

func (r *YarnRecipeRepo) Insert(ctx context.Context, rows []yarn.YarnFiber) error {
	if len(rows) == 0 {
		return nil
	}
	q := r.builder.Insert("yarn_fibers").Columns(yarnFiberColumns...)
	for _, row := range rows {
		q = q.Values(row.YarnID, row.FiberID, row.NumPlies, row.Proportion, row.Galgue, row.Diameter)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build yarn recipe insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert yarn recipe: %w", err)
	}
	return nil
}

// UpdateShape rewrites the non-key attributes of one recipe line.
func (r *YarnRecipeRepo) UpdateShape(ctx context.Context, row yarn.YarnFiber) error {
	query, args, err := r.builder.
		Update("yarn_fibers").
		Set("proportion", row.Proportion).
		Set("galgue", row.Galgue).
		Set("diameter", row.Diameter).
		Where(sq.Eq{"yarn_id": row.YarnID, "fiber_id": row.FiberID, "num_plies": row.NumPlies}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build yarn recipe update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update yarn recipe line: %w", err)
	}
	return nil
}

func (r *YarnRecipeRepo) DeleteByYarn(ctx context.Context, yarnID string) error {
	query, args, err := r.builder.
		Delete("yarn_fibers").
		Where(sq.Eq{"yarn_id": yarnID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build yarn recipe delete: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete recipe of yarn %s: %w", yarnID, err)
	}
	return nil
}

// FabricRecipeRepo persists fabric yarn recipes in the App DB.
type FabricRecipeRepo struct {
	txManager *postgres.TxManager
	builder   sq.StatementBuilderType
}

func NewFabricRecipeRepo(txManager *postgres.TxManager) *FabricRecipeRepo {
	return &FabricRecipeRepo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var fabricYarnColumns = []string{
	"fabric_id", "yarn_id", "num_plies", "proportion", "galgue", "diameter", "stitch_length",
}

func (r *FabricRecipeRepo) ListByFabric(ctx context.Context, fabricID string) ([]fabric.FabricYarn, error) {
	query, args, err := r.builder.
		Select(fabricYarnColumns...).
		From("fabric_yarns").
		Where(sq.Eq{"fabric_id": fabricID}).
		OrderBy("yarn_id", "num_plies").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build fabric recipe query: %w", err)
	}

	var rows []fabric.FabricYarn
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list recipe of fabric %s: %w", fabricID, err)
	}
	return rows, nil
}

func (r *FabricRecipeRepo) ListByFabrics(ctx context.Context, fabricIDs []string) (map[string][]fabric.FabricYarn, error) {
	out := make(map[string][]fabric.FabricYarn, len(fabricIDs))
	if len(fabricIDs) == 0 {
		return out, nil
	}

	query, args, err := r.builder.
		Select(fabricYarnColumns...).
		From("fabric_yarns").
		Where(sq.Eq{"fabric_id": fabricIDs}).
		OrderBy("fabric_id", "yarn_id", "num_plies").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build fabric recipe batch query: %w", err)
	}

	var rows []fabric.FabricYarn
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list fabric recipes: %w", err)
	}
	for _, row := range rows {
		out[row.FabricID] = append(out[row.FabricID], row)
	}
	return out, nil
}

func (r *FabricRecipeRepo) Insert(ctx context.Context, rows []fabric.FabricYarn) error {
	if len(rows) == 0 {
		return nil
	}
	q := r.builder.Insert("fabric_yarns").Columns(fabricYarnColumns...)
	for _, row := range rows {
		q = q.Values(row.FabricID, row.YarnID, row.NumPlies, row.Proportion,
			row.Galgue, row.Diameter, row.StitchLength)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build fabric recipe insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert fabric recipe: %w", err)
	}
	return nil
}

// UpdateShape rewrites the non-key attributes of one recipe line.
func (r *FabricRecipeRepo) UpdateShape(ctx context.Context, row fabric.FabricYarn) error {
	query, args, err := r.builder.
		Update("fabric_yarns").
		Set("proportion", row.Proportion).
		Set("galgue", row.Galgue).
		Set("diameter", row.Diameter).
		Set("stitch_length", row.StitchLength).
		Where(sq.Eq{"fabric_id": row.FabricID, "yarn_id": row.YarnID, "num_plies": row.NumPlies}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build fabric recipe update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update fabric recipe line: %w", err)
	}
	return nil
}

func (r *FabricRecipeRepo) DeleteByFabric(ctx context.Context, fabricID string) error {
	query, args, err := r.builder.
		Delete("fabric_yarns").
		Where(sq.Eq{"fabric_id": fabricID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build fabric recipe delete: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete recipe of fabric %s: %w", fabricID, err)
	}
	return nil
}
