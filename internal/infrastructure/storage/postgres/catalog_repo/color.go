package catalog_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecsa/internal/domain/catalogs/color"
	"mecsa/internal/domain/series"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ color.Repository = (*ColorRepo)(nil)

var colorColumns = []string{"id", "name", "slug", "sku", "hexadecimal", "is_active"}

type ColorRepo struct {
	txManager *postgres.TxManager
	builder   sq.StatementBuilderType
}

func NewColorRepo(txManager *postgres.TxManager) *ColorRepo {
	return &ColorRepo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *ColorRepo) getBy(ctx context.Context, pred sq.Eq) (*color.MecsaColor, error) {
	query, args, err := r.builder.
		Select(colorColumns...).
		From("mecsa_colors").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build color query: %w", err)
	}

	var c color.MecsaColor
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &c, query, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get color: %w", err)
	}
	return &c, nil
}

func (r *ColorRepo) GetByID(ctx context.Context, id int) (*color.MecsaColor, error) {
	return r.getBy(ctx, sq.Eq{"id": id})
}

func (r *ColorRepo) GetBySlug(ctx context.Context, slug string) (*color.MecsaColor, error) {
	return r.getBy(ctx, sq.Eq{"slug": slug})
}

func (r *ColorRepo) GetBySku(ctx context.Context, sku string) (*color.MecsaColor, error) {
	return r.getBy(ctx, sq.Eq{"sku": sku})
}

func (r *ColorRepo) List(ctx context.Context, onlyActive bool) ([]color.MecsaColor, error) {
	q := r.builder.
		Select(colorColumns...).
		From("mecsa_colors").
		OrderBy("id")
	if onlyActive {
		q = q.Where(sq.Eq{"is_active": true})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build color list query: %w", err)
	}

	var list []color.MecsaColor
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &list, query, args...); err != nil {
		return nil, fmt.Errorf("list colors: %w", err)
	}
	return list, nil
}

func (r *ColorRepo) NextID(ctx context.Context) (int, error) {
	var id int
	err := r.txManager.GetQuerier(ctx).
		QueryRow(ctx, fmt.Sprintf("SELECT nextval('%s')", series.ColorIDSeq)).
		Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("next color id: %w", err)
	}
	return id, nil
}

func (r *ColorRepo) Insert(ctx context.Context, c *color.MecsaColor) error {
	query, args, err := r.builder.
		Insert("mecsa_colors").
		Columns(colorColumns...).
		Values(c.ID, c.Name, c.Slug, c.Sku, c.Hexadecimal, c.IsActive).
		ToSql()
	if err != nil {
		return fmt.Errorf("build color insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert color %d: %w", c.ID, err)
	}
	return nil
}

func (r *ColorRepo) Update(ctx context.Context, c *color.MecsaColor) error {
	query, args, err := r.builder.
		Update("mecsa_colors").
		Set("name", c.Name).
		Set("slug", c.Slug).
		Set("sku", c.Sku).
		Set("hexadecimal", c.Hexadecimal).
		Set("is_active", c.IsActive).
		Where(sq.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build color update: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update color %d: %w", c.ID, err)
	}
	return nil
}
