// Package service_order manages weaving and dyeing service orders and their
// lifecycle against supplier deliveries.
package service_order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order types.
const (
	TypeWeaving = "TJ"
	TypeDyeing  = "TT"
)

// ServiceOrder is an agreement with a supplier, identity (company, id, type).
type ServiceOrder struct {
	Company       string    `db:"company"`
	ID            string    `db:"id"`
	Type          string    `db:"type"`
	SupplierID    string    `db:"supplier_id"`
	IssueDate     time.Time `db:"issue_date"`
	StorageCode   string    `db:"storage_code"`
	StatusFlag    string    `db:"status_flag"`
	StatusParamID int       `db:"status_param_id"`
}

// Detail is one ordered product line.
type Detail struct {
	Company          string          `db:"company"`
	OrderID          string          `db:"order_id"`
	OrderType        string          `db:"order_type"`
	ItemNumber       int             `db:"item_number"`
	ProductCode      string          `db:"product_code"`
	QuantityOrdered  decimal.Decimal `db:"quantity_ordered"`
	QuantitySupplied decimal.Decimal `db:"quantity_supplied"`
	Price            decimal.Decimal `db:"price"`
	StatusParamID    int             `db:"status_param_id"`
}

// ListFilter pages service orders.
type ListFilter struct {
	Type            string
	SupplierID      string
	Page            int
	PageSize        int
	IncludeAnnulled bool
}

// Repository persists service orders in the Promec DB.
type Repository interface {
	Get(ctx context.Context, id, orderType string) (*ServiceOrder, error)
	Insert(ctx context.Context, o *ServiceOrder) error
	Update(ctx context.Context, o *ServiceOrder) error
	List(ctx context.Context, filter ListFilter) ([]ServiceOrder, int64, error)

	ListDetails(ctx context.Context, id, orderType string) ([]Detail, error)
	InsertDetails(ctx context.Context, rows []Detail) error
	UpdateDetail(ctx context.Context, d *Detail) error
	DeleteDetail(ctx context.Context, id, orderType string, itemNumber int) error
}
