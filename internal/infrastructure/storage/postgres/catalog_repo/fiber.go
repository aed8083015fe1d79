package catalog_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecsa/internal/domain/catalogs/fiber"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ fiber.Repository = (*FiberRepo)(nil)

var fiberColumns = []string{"id", "category_id", "denomination_id", "color_id", "is_active"}

type FiberRepo struct {
	txManager *postgres.TxManager
	builder   sq.StatementBuilderType
}

func NewFiberRepo(txManager *postgres.TxManager) *FiberRepo {
	return &FiberRepo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *FiberRepo) GetByID(ctx context.Context, id string) (*fiber.Fiber, error) {
	query, args, err := r.builder.
		Select(fiberColumns...).
		From("fibers").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build fiber query: %w", err)
	}

	var f fiber.Fiber
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &f, query, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fiber %s: %w", id, err)
	}
	return &f, nil
}

func (r *FiberRepo) GetByIDs(ctx context.Context, ids []string) ([]fiber.Fiber, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := r.builder.
		Select(fiberColumns...).
		From("fibers").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build fiber batch query: %w", err)
	}

	var list []fiber.Fiber
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &list, query, args...); err != nil {
		return nil, fmt.Errorf("get fibers: %w", err)
	}
	return list, nil
}

func (r *FiberRepo) List(ctx context.Context, onlyActive bool) ([]fiber.Fiber, error) {
	q := r.builder.
		Select(fiberColumns...).
		From("fibers").
		OrderBy("id")
	if onlyActive {
		q = q.Where(sq.Eq{"is_active": true})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build fiber list query: %w", err)
	}

	var list []fiber.Fiber
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &list, query, args...); err != nil {
		return nil, fmt.Errorf("list fibers: %w", err)
	}
	return list, nil
}

func (r *FiberRepo) Insert(ctx context.Context, f *fiber.Fiber) error {
	query, args, err := r.builder.
		Insert("fibers").
		Columns(fiberColumns...).
		Values(f.ID, f.CategoryID, f.DenominationID, f.ColorID, f.IsActive).
		ToSql()
	if err != nil {
		return fmt.Errorf("build fiber insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert fiber %s: %w", f.ID, err)
	}
	return nil
}

func (r *FiberRepo) Update(ctx context.Context, f *fiber.Fiber) error {
	query, args, err := r.builder.
		Update("fibers").
		Set("category_id", f.CategoryID).
		Set("denomination_id", f.DenominationID).
		Set("color_id", f.ColorID).
		Set("is_active", f.IsActive).
		Where(sq.Eq{"id": f.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build fiber update: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update fiber %s: %w", f.ID, err)
	}
	return nil
}
