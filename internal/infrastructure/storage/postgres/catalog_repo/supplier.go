package catalog_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"mecsa/internal/domain/catalogs/supplier"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ supplier.Repository = (*SupplierRepo)(nil)

var supplierColumns = []string{
	"code", "name", "address", "ruc", "initials", "storage_code", "email", "is_active",
}

type SupplierRepo struct {
	txManager *postgres.TxManager
	builder   sq.StatementBuilderType
}

func NewSupplierRepo(txManager *postgres.TxManager) *SupplierRepo {
	return &SupplierRepo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *SupplierRepo) GetByCode(ctx context.Context, code string) (*supplier.Supplier, error) {
	query, args, err := r.builder.
		Select(supplierColumns...).
		From("suppliers").
		Where(sq.Eq{"code": code}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build supplier query: %w", err)
	}

	var s supplier.Supplier
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &s, query, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get supplier %s: %w", code, err)
	}
	return &s, nil
}

func (r *SupplierRepo) ListByService(ctx context.Context, serviceCode string, onlyActive bool) ([]supplier.Supplier, error) {
	q := r.builder.
		Select(
			"s.code", "s.name", "s.address", "s.ruc", "s.initials",
			"s.storage_code", "s.email", "s.is_active",
		).
		From("suppliers s").
		Join("supplier_services ss ON ss.supplier_code = s.code").
		Where(sq.Eq{"ss.service_code": serviceCode}).
		OrderBy("s.name")
	if onlyActive {
		q = q.Where(sq.Eq{"s.is_active": "A"})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build supplier service list query: %w", err)
	}

	var list []supplier.Supplier
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &list, query, args...); err != nil {
		return nil, fmt.Errorf("list suppliers of service %s: %w", serviceCode, err)
	}
	return list, nil
}

func (r *SupplierRepo) GetService(ctx context.Context, supplierCode, serviceCode string) (*supplier.SupplierService, error) {
	query, args, err := r.builder.
		Select("supplier_code", "service_code", "sequence_number").
		From("supplier_services").
		Where(sq.Eq{"supplier_code": supplierCode, "service_code": serviceCode}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build supplier service query: %w", err)
	}

	var svc supplier.SupplierService
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &svc, query, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get supplier service %s/%s: %w", supplierCode, serviceCode, err)
	}
	return &svc, nil
}

// IncrementServiceSequence advances the purchase sequence atomically and
// returns the value before the increment.
func (r *SupplierRepo) IncrementServiceSequence(ctx context.Context, supplierCode, serviceCode string) (int64, error) {
	var n int64
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, `
		UPDATE supplier_services
		SET sequence_number = sequence_number + 1
		WHERE supplier_code = $1 AND service_code = $2
		RETURNING sequence_number - 1
	`, supplierCode, serviceCode).Scan(&n)
	if err == pgx.ErrNoRows {
		return 0, fmt.Errorf("supplier service %s/%s has no sequence", supplierCode, serviceCode)
	}
	if err != nil {
		return 0, fmt.Errorf("increment purchase sequence %s/%s: %w", supplierCode, serviceCode, err)
	}
	return n, nil
}

func (r *SupplierRepo) ListAddresses(ctx context.Context, supplierCode string) ([]supplier.SupplierAddress, error) {
	query, args, err := r.builder.
		Select("supplier_code", "address_id", "address").
		From("supplier_addresses").
		Where(sq.Eq{"supplier_code": supplierCode}).
		OrderBy("address_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build supplier address list query: %w", err)
	}

	var list []supplier.SupplierAddress
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &list, query, args...); err != nil {
		return nil, fmt.Errorf("list addresses of supplier %s: %w", supplierCode, err)
	}
	return list, nil
}

func (r *SupplierRepo) GetAddress(ctx context.Context, supplierCode string, addressID int) (*supplier.SupplierAddress, error) {
	query, args, err := r.builder.
		Select("supplier_code", "address_id", "address").
		From("supplier_addresses").
		Where(sq.Eq{"supplier_code": supplierCode, "address_id": addressID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build supplier address query: %w", err)
	}

	var addr supplier.SupplierAddress
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &addr, query, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get supplier address %s/%d: %w", supplierCode, addressID, err)
	}
	return &addr, nil
}

func (r *SupplierRepo) ListColors(ctx context.Context, supplierCode string) ([]supplier.SupplierColor, error) {
	query, args, err := r.builder.
		Select("supplier_code", "color_id", "name").
		From("supplier_colors").
		Where(sq.Eq{"supplier_code": supplierCode}).
		OrderBy("color_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build supplier color list query: %w", err)
	}

	var list []supplier.SupplierColor
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &list, query, args...); err != nil {
		return nil, fmt.Errorf("list colors of supplier %s: %w", supplierCode, err)
	}
	return list, nil
}

func (r *SupplierRepo) GetColor(ctx context.Context, supplierCode, colorID string) (*supplier.SupplierColor, error) {
	query, args, err := r.builder.
		Select("supplier_code", "color_id", "name").
		From("supplier_colors").
		Where(sq.Eq{"supplier_code": supplierCode, "color_id": colorID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build supplier color query: %w", err)
	}

	var col supplier.SupplierColor
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &col, query, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get supplier color %s/%s: %w", supplierCode, colorID, err)
	}
	return &col, nil
}
