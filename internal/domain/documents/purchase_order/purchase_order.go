// Package purchase_order exposes the legacy yarn purchase orders consumed by
// the yarn purchase entry movement.
package purchase_order

import (
	"context"

	"github.com/shopspring/decimal"

	"mecsa/internal/core/apperror"
)

// PurchaseOrder is a yarn purchase order header.
type PurchaseOrder struct {
	Company      string `db:"company"`
	Number       string `db:"number"`
	SupplierCode string `db:"supplier_code"`
	StatusFlag   string `db:"status_flag"`
}

// Line is one ordered yarn.
type Line struct {
	Company          string          `db:"company"`
	Number           string          `db:"number"`
	ProductCode      string          `db:"product_code"`
	QuantityOrdered  decimal.Decimal `db:"quantity_ordered"`
	QuantityReceived decimal.Decimal `db:"quantity_received"`
}

// Remaining is the quantity still open on the line.
func (l Line) Remaining() decimal.Decimal {
	return l.QuantityOrdered.Sub(l.QuantityReceived)
}

// Repository reads purchase orders from the Promec DB.
type Repository interface {
	Get(ctx context.Context, number string) (*PurchaseOrder, error)
	ListLines(ctx context.Context, number string) ([]Line, error)
	// AddReceived moves the received counter of a line; negative deltas
	// reverse a receipt.
	AddReceived(ctx context.Context, number, productCode string, delta decimal.Decimal) error
}

// Service validates receipts against orders.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RequireOpen loads an order and its lines, failing when annulled.
func (s *Service) RequireOpen(ctx context.Context, number string) (*PurchaseOrder, []Line, error) {
	o, err := s.repo.Get(ctx, number)
	if err != nil {
		return nil, nil, err
	}
	if o == nil {
		return nil, nil, apperror.NewNotFound("purchase-order", number)
	}
	if o.StatusFlag == "A" {
		return nil, nil, apperror.NewForbidden(apperror.CodeMovementAnnulled,
			"purchase order is annulled").WithDetail("number", number)
	}

	lines, err := s.repo.ListLines(ctx, number)
	if err != nil {
		return nil, nil, err
	}
	return o, lines, nil
}

// CheckRemaining verifies a yarn belongs to the order and qty fits in the
// remaining open quantity.
func CheckRemaining(lines []Line, productCode string, qty decimal.Decimal) error {
	for _, l := range lines {
		if l.ProductCode != productCode {
			continue
		}
		if qty.GreaterThan(l.Remaining()) {
			return apperror.NewUnprocessable(apperror.CodeQuantityExceeded,
				"quantity exceeds the open purchase order balance").
				WithDetail("product_code", productCode).
				WithDetail("remaining", l.Remaining().String())
		}
		return nil
	}
	return apperror.NewUnprocessable(apperror.CodeQuantityExceeded,
		"yarn is not part of the purchase order").
		WithDetail("product_code", productCode)
}

// AddReceived forwards to the repository.
func (s *Service) AddReceived(ctx context.Context, number, productCode string, delta decimal.Decimal) error {
	return s.repo.AddReceived(ctx, number, productCode, delta)
}
