// Package inventory maintains per-storage product stock balances.
// All mutations run inside the caller's transaction; the service never
// commits on its own.
package inventory

import (
	"context"

	"github.com/shopspring/decimal"

	"mecsa/internal/core/apperror"
)

// ProductInventory is one stock balance row, identity
// (company, storage_code, product_code, period).
type ProductInventory struct {
	Company      string          `db:"company"`
	StorageCode  string          `db:"storage_code"`
	ProductCode  string          `db:"product_code"`
	Period       int             `db:"period"`
	CurrentStock decimal.Decimal `db:"current_stock"`
}

// Repository persists stock balances in the Promec DB.
type Repository interface {
	Get(ctx context.Context, storageCode, productCode string, period int) (*ProductInventory, error)
	Create(ctx context.Context, row *ProductInventory) error
	// AddStock applies a delta to an existing row, returning the number of
	// rows touched. The UPDATE takes the row lock.
	AddStock(ctx context.Context, storageCode, productCode string, period int, delta decimal.Decimal) (int64, error)
}

// Service exposes the stock balance operations of the movement engine.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ReadOrCreate returns the balance row, creating a zero row when
// enableCreate is set. Fails with NotFound otherwise.
func (s *Service) ReadOrCreate(ctx context.Context, storageCode, productCode string, period int, enableCreate bool) (*ProductInventory, error) {
	row, err := s.repo.Get(ctx, storageCode, productCode, period)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return row, nil
	}
	if !enableCreate {
		return nil, apperror.NewNotFound("product-inventory", storageCode+"/"+productCode)
	}

	row = &ProductInventory{
		Company:      "001",
		StorageCode:  storageCode,
		ProductCode:  productCode,
		Period:       period,
		CurrentStock: decimal.Zero,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// UpdateCurrentStock applies a delta, creating the row first when missing.
func (s *Service) UpdateCurrentStock(ctx context.Context, productCode, storageCode string, period int, delta decimal.Decimal) error {
	if _, err := s.ReadOrCreate(ctx, storageCode, productCode, period, true); err != nil {
		return err
	}
	_, err := s.repo.AddStock(ctx, storageCode, productCode, period, delta)
	return err
}

// RollbackCurrentStock subtracts a quantity previously applied.
func (s *Service) RollbackCurrentStock(ctx context.Context, productCode, storageCode string, period int, qty decimal.Decimal) error {
	n, err := s.repo.AddStock(ctx, storageCode, productCode, period, qty.Neg())
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NewNotFound("product-inventory", storageCode+"/"+productCode)
	}
	return nil
}
