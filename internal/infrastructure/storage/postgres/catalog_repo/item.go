// Package catalog_repo implements catalog persistence. Item, unit and
// supplier repositories run against the Promec DB; colors, fibers and
// recipes live in the App DB.
package catalog_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecsa/internal/domain/catalogs/item"
	"mecsa/internal/domain/series"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ item.Repository = (*ItemRepo)(nil)

var itemColumns = []string{
	"company", "id", "family_id", "subfamily_id", "units", "description",
	"barcode", "is_active", "field1", "field2", "field3", "field4", "field5", "field6",
}

type ItemRepo struct {
	txManager *postgres.TxManager
	builder   sq.StatementBuilderType
}

func NewItemRepo(txManager *postgres.TxManager) *ItemRepo {
	return &ItemRepo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *ItemRepo) GetByID(ctx context.Context, id string) (*item.InventoryItem, error) {
	query, args, err := r.builder.
		Select(itemColumns...).
		From("inventory_items").
		Where(sq.Eq{"company": series.Company, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build item query: %w", err)
	}

	var it item.InventoryItem
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &it, query, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	return &it, nil
}

func (r *ItemRepo) FindByFields(ctx context.Context, filter item.FieldFilter) ([]item.InventoryItem, error) {
	q := r.builder.
		Select(itemColumns...).
		From("inventory_items").
		Where(sq.Eq{"company": series.Company})
	if filter.FamilyID != "" {
		q = q.Where(sq.Eq{"family_id": filter.FamilyID})
	}
	if filter.SubfamilyID != "" {
		q = q.Where(sq.Eq{"subfamily_id": filter.SubfamilyID})
	}
	for col, val := range map[string]*string{
		"field1": filter.Field1,
		"field2": filter.Field2,
		"field3": filter.Field3,
		"field4": filter.Field4,
		"field5": filter.Field5,
	} {
		if val != nil {
			q = q.Where(sq.Eq{col: *val})
		}
	}

	query, args, err := q.OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build item filter query: %w", err)
	}

	var list []item.InventoryItem
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &list, query, args...); err != nil {
		return nil, fmt.Errorf("find items by fields: %w", err)
	}
	return list, nil
}

func (r *ItemRepo) Insert(ctx context.Context, it *item.InventoryItem) error {
	query, args, err := r.builder.
		Insert("inventory_items").
		Columns(itemColumns...).
		Values(it.Company, it.ID, it.FamilyID, it.SubfamilyID, it.Units, it.Description,
			it.Barcode, it.IsActive, it.Field1, it.Field2, it.Field3, it.Field4, it.Field5, it.Field6).
		ToSql()
	if err != nil {
		return fmt.Errorf("build item insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert item %s: %w", it.ID, err)
	}
	return nil
}

func (r *ItemRepo) Update(ctx context.Context, it *item.InventoryItem) error {
	query, args, err := r.builder.
		Update("inventory_items").
		Set("description", it.Description).
		Set("units", it.Units).
		Set("is_active", it.IsActive).
		Set("field1", it.Field1).
		Set("field2", it.Field2).
		Set("field3", it.Field3).
		Set("field4", it.Field4).
		Set("field5", it.Field5).
		Set("field6", it.Field6).
		Where(sq.Eq{"company": it.Company, "id": it.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build item update: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update item %s: %w", it.ID, err)
	}
	return nil
}

func (r *ItemRepo) SetActive(ctx context.Context, id string, active bool) error {
	flag := item.FlagInactive
	if active {
		flag = item.FlagActive
	}
	query, args, err := r.builder.
		Update("inventory_items").
		Set("is_active", flag).
		Where(sq.Eq{"company": series.Company, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build item activity update: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("set item %s activity: %w", id, err)
	}
	return nil
}
