package catalog_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecsa/internal/domain/catalogs/unit"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ unit.Repository = (*UnitRepo)(nil)

type UnitRepo struct {
	txManager *postgres.TxManager
	builder   sq.StatementBuilderType
}

func NewUnitRepo(txManager *postgres.TxManager) *UnitRepo {
	return &UnitRepo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *UnitRepo) GetByCode(ctx context.Context, code string) (*unit.Unit, error) {
	query, args, err := r.builder.
		Select("code", "description").
		From("units").
		Where(sq.Eq{"code": code}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build unit query: %w", err)
	}

	var u unit.Unit
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &u, query, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get unit %s: %w", code, err)
	}
	return &u, nil
}

func (r *UnitRepo) List(ctx context.Context) ([]unit.Unit, error) {
	query, args, err := r.builder.
		Select("code", "description").
		From("units").
		OrderBy("code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build unit list query: %w", err)
	}

	var list []unit.Unit
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &list, query, args...); err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return list, nil
}
