// Package param_repo implements parameter persistence on the App DB.
package param_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecsa/internal/domain/params"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ params.Repository = (*Repo)(nil)

type Repo struct {
	txManager *postgres.TxManager
	builder   sq.StatementBuilderType
}

func New(txManager *postgres.TxManager) *Repo {
	return &Repo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *Repo) GetByID(ctx context.Context, id int) (*params.Parameter, error) {
	query, args, err := r.builder.
		Select("id", "category_id", "value", "data_type", "is_active").
		From("parameters").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build parameter query: %w", err)
	}

	var p params.Parameter
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &p, query, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get parameter %d: %w", id, err)
	}
	return &p, nil
}

func (r *Repo) ListByCategory(ctx context.Context, categoryID int, onlyActive bool) ([]params.Parameter, error) {
	q := r.builder.
		Select("id", "category_id", "value", "data_type", "is_active").
		From("parameters").
		Where(sq.Eq{"category_id": categoryID}).
		OrderBy("id")
	if onlyActive {
		q = q.Where(sq.Eq{"is_active": true})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build parameter list query: %w", err)
	}

	var list []params.Parameter
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &list, query, args...); err != nil {
		return nil, fmt.Errorf("list parameters of category %d: %w", categoryID, err)
	}
	return list, nil
}

func (r *Repo) ListCategories(ctx context.Context) ([]params.ParameterCategory, error) {
	query, args, err := r.builder.
		Select("id", "name").
		From("parameter_categories").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build category list query: %w", err)
	}

	var list []params.ParameterCategory
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &list, query, args...); err != nil {
		return nil, fmt.Errorf("list parameter categories: %w", err)
	}
	return list, nil
}

func (r *Repo) Save(ctx context.Context, p *params.Parameter) error {
	query, args, err := r.builder.
		Insert("parameters").
		Columns("id", "category_id", "value", "data_type", "is_active").
		Values(p.ID, p.CategoryID, p.Value, p.DataType, p.IsActive).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			category_id = EXCLUDED.category_id,
			value = EXCLUDED.value,
			data_type = EXCLUDED.data_type,
			is_active = EXCLUDED.is_active`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build parameter upsert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("save parameter %d: %w", p.ID, err)
	}
	return nil
}
