package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"mecsa/internal/domain/documents/service_order"
)

// OrderListQuery pages service orders.
type OrderListQuery struct {
	PaginationQuery
	Type            string `form:"type"`
	SupplierID      string `form:"supplierId"`
	IncludeAnnulled bool   `form:"includeAnnulled"`
}

// ToFilter maps the query onto the domain filter.
func (q OrderListQuery) ToFilter() service_order.ListFilter {
	return service_order.ListFilter{
		Type:            q.Type,
		SupplierID:      q.SupplierID,
		Page:            q.Page,
		PageSize:        q.PageSize,
		IncludeAnnulled: q.IncludeAnnulled,
	}
}

// OrderLineRequest is one ordered product line.
type OrderLineRequest struct {
	ProductCode     string          `json:"productCode" binding:"required"`
	QuantityOrdered decimal.Decimal `json:"quantityOrdered"`
	Price           decimal.Decimal `json:"price"`
}

// CreateOrderRequest opens a service order.
type CreateOrderRequest struct {
	Type        string             `json:"type" binding:"required"`
	SupplierID  string             `json:"supplierId" binding:"required"`
	StorageCode string             `json:"storageCode"`
	IssueDate   time.Time          `json:"issueDate"`
	Lines       []OrderLineRequest `json:"lines" binding:"required"`
}

// UpdateOrderRequest replaces the line set.
type UpdateOrderRequest struct {
	Lines []OrderLineRequest `json:"lines" binding:"required"`
}

// OrderLineResponse is one line with its progress.
type OrderLineResponse struct {
	ItemNumber       int             `json:"itemNumber"`
	ProductCode      string          `json:"productCode"`
	QuantityOrdered  decimal.Decimal `json:"quantityOrdered"`
	QuantitySupplied decimal.Decimal `json:"quantitySupplied"`
	Price            decimal.Decimal `json:"price"`
	StatusParamID    int             `json:"statusParamId"`
}

// OrderResponse is a service order with optional lines.
type OrderResponse struct {
	ID            string              `json:"id"`
	Type          string              `json:"type"`
	SupplierID    string              `json:"supplierId"`
	IssueDate     time.Time           `json:"issueDate"`
	StorageCode   string              `json:"storageCode"`
	StatusFlag    string              `json:"statusFlag"`
	StatusParamID int                 `json:"statusParamId"`
	Lines         []OrderLineResponse `json:"lines,omitempty"`
}

// ToForm maps the create request.
func (r CreateOrderRequest) ToForm() service_order.CreateForm {
	return service_order.CreateForm{
		Type:        r.Type,
		SupplierID:  r.SupplierID,
		StorageCode: r.StorageCode,
		IssueDate:   r.IssueDate,
		Lines:       toOrderLines(r.Lines),
	}
}

// ToForm maps the update request.
func (r UpdateOrderRequest) ToForm() service_order.UpdateForm {
	return service_order.UpdateForm{Lines: toOrderLines(r.Lines)}
}

func toOrderLines(rows []OrderLineRequest) []service_order.LineForm {
	out := make([]service_order.LineForm, 0, len(rows))
	for _, l := range rows {
		out = append(out, service_order.LineForm{
			ProductCode:     l.ProductCode,
			QuantityOrdered: l.QuantityOrdered,
			Price:           l.Price,
		})
	}
	return out
}

// FromOrder maps an order with its lines.
func FromOrder(o *service_order.ServiceOrder, lines []service_order.Detail) OrderResponse {
	out := OrderResponse{
		ID:            o.ID,
		Type:          o.Type,
		SupplierID:    o.SupplierID,
		IssueDate:     o.IssueDate,
		StorageCode:   o.StorageCode,
		StatusFlag:    o.StatusFlag,
		StatusParamID: o.StatusParamID,
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, OrderLineResponse{
			ItemNumber:       l.ItemNumber,
			ProductCode:      l.ProductCode,
			QuantityOrdered:  l.QuantityOrdered,
			QuantitySupplied: l.QuantitySupplied,
			Price:            l.Price,
			StatusParamID:    l.StatusParamID,
		})
	}
	return out
}
