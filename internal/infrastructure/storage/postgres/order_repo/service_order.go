// Package order_repo implements service and purchase order persistence in
// the Promec DB.
package order_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mecsa/internal/domain/documents/service_order"
	"mecsa/internal/domain/movement"
	"mecsa/internal/domain/series"
	"mecsa/internal/infrastructure/storage/postgres"
)

var _ service_order.Repository = (*ServiceOrderRepo)(nil)

var orderColumns = []string{
	"company", "id", "type", "supplier_id", "issue_date", "storage_code",
	"status_flag", "status_param_id",
}

var orderDetailColumns = []string{
	"company", "order_id", "order_type", "item_number", "product_code",
	"quantity_ordered", "quantity_supplied", "price", "status_param_id",
}

type ServiceOrderRepo struct {
	txManager *postgres.TxManager
	builder   sq.StatementBuilderType
}

func NewServiceOrderRepo(txManager *postgres.TxManager) *ServiceOrderRepo {
	return &ServiceOrderRepo{
		txManager: txManager,
		builder:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *ServiceOrderRepo) Get(ctx context.Context, id, orderType string) (*service_order.ServiceOrder, error) {
	query, args, err := r.builder.
		Select(orderColumns...).
		From("service_orders").
		Where(sq.Eq{"company": series.Company, "id": id, "type": orderType}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build service order query: %w", err)
	}

	var o service_order.ServiceOrder
	err = pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &o, query, args...)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get service order %s: %w", id, err)
	}
	return &o, nil
}

func (r *ServiceOrderRepo) Insert(ctx context.Context, o *service_order.ServiceOrder) error {
	query, args, err := r.builder.
		Insert("service_orders").
		Columns(orderColumns...).
		Values(o.Company, o.ID, o.Type, o.SupplierID, o.IssueDate, o.StorageCode,
			o.StatusFlag, o.StatusParamID).
		ToSql()
	if err != nil {
		return fmt.Errorf("build service order insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert service order %s: %w", o.ID, err)
	}
	return nil
}

func (r *ServiceOrderRepo) Update(ctx context.Context, o *service_order.ServiceOrder) error {
	query, args, err := r.builder.
		Update("service_orders").
		Set("supplier_id", o.SupplierID).
		Set("issue_date", o.IssueDate).
		Set("storage_code", o.StorageCode).
		Set("status_flag", o.StatusFlag).
		Set("status_param_id", o.StatusParamID).
		Where(sq.Eq{"company": o.Company, "id": o.ID, "type": o.Type}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build service order update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update service order %s: %w", o.ID, err)
	}
	return nil
}

func (r *ServiceOrderRepo) List(ctx context.Context, filter service_order.ListFilter) ([]service_order.ServiceOrder, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 200 {
		filter.PageSize = 50
	}

	base := sq.Eq{"company": series.Company}
	if filter.Type != "" {
		base["type"] = filter.Type
	}
	if filter.SupplierID != "" {
		base["supplier_id"] = filter.SupplierID
	}

	countQ := r.builder.Select("COUNT(*)").From("service_orders").Where(base)
	q := r.builder.Select(orderColumns...).From("service_orders").Where(base)
	if !filter.IncludeAnnulled {
		notAnnulled := sq.NotEq{"status_flag": movement.StatusAnnulled}
		countQ = countQ.Where(notAnnulled)
		q = q.Where(notAnnulled)
	}

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build service order count query: %w", err)
	}
	var total int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count service orders: %w", err)
	}

	query, args, err := q.
		OrderBy("issue_date DESC", "id DESC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64((filter.Page - 1) * filter.PageSize)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build service order list query: %w", err)
	}

	var items []service_order.ServiceOrder
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list service orders: %w", err)
	}
	return items, total, nil
}

func (r *ServiceOrderRepo) ListDetails(ctx context.Context, id, orderType string) ([]service_order.Detail, error) {
	query, args, err := r.builder.
		Select(orderDetailColumns...).
		From("service_order_details").
		Where(sq.Eq{"company": series.Company, "order_id": id, "order_type": orderType}).
		OrderBy("item_number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build service order detail query: %w", err)
	}

	var rows []service_order.Detail
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list details of order %s: %w", id, err)
	}
	return rows, nil
}

func (r *ServiceOrderRepo) InsertDetails(ctx context.Context, rows []service_order.Detail) error {
	if len(rows) == 0 {
		return nil
	}
	q := r.builder.Insert("service_order_details").Columns(orderDetailColumns...)
	for _, d := range rows {
		q = q.Values(d.Company, d.OrderID, d.OrderType, d.ItemNumber, d.ProductCode,
			d.QuantityOrdered, d.QuantitySupplied, d.Price, d.StatusParamID)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build service order detail insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert service order details: %w", err)
	}
	return nil
}

func (r *ServiceOrderRepo) UpdateDetail(ctx context.Context, d *service_order.Detail) error {
	query, args, err := r.builder.
		Update("service_order_details").
		Set("product_code", d.ProductCode).
		Set("quantity_ordered", d.QuantityOrdered).
		Set("quantity_supplied", d.QuantitySupplied).
		Set("price", d.Price).
		Set("status_param_id", d.StatusParamID).
		Where(sq.Eq{
			"company":     d.Company,
			"order_id":    d.OrderID,
			"order_type":  d.OrderType,
			"item_number": d.ItemNumber,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build service order detail update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update detail %d of order %s: %w", d.ItemNumber, d.OrderID, err)
	}
	return nil
}

func (r *ServiceOrderRepo) DeleteDetail(ctx context.Context, id, orderType string, itemNumber int) error {
	query, args, err := r.builder.
		Delete("service_order_details").
		Where(sq.Eq{
			"company":     series.Company,
			"order_id":    id,
			"order_type":  orderType,
			"item_number": itemNumber,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build service order detail delete: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete detail %d of order %s: %w", itemNumber, id, err)
	}
	return nil
}
