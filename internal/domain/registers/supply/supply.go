// Package supply maintains the per-order FIFO supply ledger: how much yarn
// was provided to, dispatched to, and received back from a supplier on a
// service order.
package supply

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"mecsa/internal/domain/catalogs/fabric"
)

var hundred = decimal.NewFromInt(100)

// Detail is one ledger row, identity (storage, reference_number, item_number).
type Detail struct {
	StorageCode        string          `db:"storage_code"`
	ReferenceNumber    string          `db:"reference_number"`
	ItemNumber         int             `db:"item_number"`
	SupplyID           string          `db:"supply_id"`
	SupplierYarnID     string          `db:"supplier_yarn_id"`
	CurrentStock       decimal.Decimal `db:"current_stock"`
	ProvidedQuantity   decimal.Decimal `db:"provided_quantity"`
	QuantityDispatched decimal.Decimal `db:"quantity_dispatched"`
	QuantityReceived   decimal.Decimal `db:"quantity_received"`
	StatusFlag         string          `db:"status_flag"`
}

// Repository persists ledger rows in the Promec DB.
type Repository interface {
	// ListByOrder returns the rows of one order sorted by item_number.
	ListByOrder(ctx context.Context, storageCode, referenceNumber string) ([]Detail, error)
	Insert(ctx context.Context, d *Detail) error
	Update(ctx context.Context, d *Detail) error
}

// Service owns the ledger arithmetic.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListByOrder returns the ledger rows of one order, FIFO order.
func (s *Service) ListByOrder(ctx context.Context, storageCode, referenceNumber string) ([]Detail, error) {
	rows, err := s.repo.ListByOrder(ctx, storageCode, referenceNumber)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ItemNumber < rows[j].ItemNumber })
	return rows, nil
}

// Upsert merges an entry into the ledger. A row matching
// (supply_id, supplier_yarn_id) accumulates quantities; otherwise the entry
// is appended with the next item_number.
func (s *Service) Upsert(ctx context.Context, entry Detail) error {
	rows, err := s.ListByOrder(ctx, entry.StorageCode, entry.ReferenceNumber)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		entry.ItemNumber = 1
		return s.repo.Insert(ctx, &entry)
	}

	maxItem := 0
	for i := range rows {
		row := &rows[i]
		if row.ItemNumber > maxItem {
			maxItem = row.ItemNumber
		}
		if row.SupplyID == entry.SupplyID && row.SupplierYarnID == entry.SupplierYarnID {
			row.CurrentStock = row.CurrentStock.Add(entry.CurrentStock)
			row.ProvidedQuantity = row.ProvidedQuantity.Add(entry.ProvidedQuantity)
			row.QuantityDispatched = row.QuantityDispatched.Add(entry.QuantityDispatched)
			return s.repo.Update(ctx, row)
		}
	}

	entry.ItemNumber = maxItem + 1
	return s.repo.Insert(ctx, &entry)
}

// RollbackUpsert reverses a prior Upsert by subtracting the entry quantities
// from the matching (supply_id, supplier_yarn_id) row.
func (s *Service) RollbackUpsert(ctx context.Context, entry Detail) error {
	rows, err := s.ListByOrder(ctx, entry.StorageCode, entry.ReferenceNumber)
	if err != nil {
		return err
	}
	for i := range rows {
		row := &rows[i]
		if row.SupplyID == entry.SupplyID && row.SupplierYarnID == entry.SupplierYarnID {
			row.CurrentStock = row.CurrentStock.Sub(entry.CurrentStock)
			row.ProvidedQuantity = row.ProvidedQuantity.Sub(entry.ProvidedQuantity)
			row.QuantityDispatched = row.QuantityDispatched.Sub(entry.QuantityDispatched)
			return s.repo.Update(ctx, row)
		}
	}
	return nil
}

// UpdateCurrentStockByFabricRecipe consumes qty of fabric from the ledger by
// splitting it into yarn quantities per the fabric recipe and filling rows
// FIFO by item_number. The residual left after all matching rows are drained
// is applied to the last matching row.
func (s *Service) UpdateCurrentStockByFabricRecipe(ctx context.Context, f *fabric.Fabric, qty decimal.Decimal, rows []Detail) error {
	for _, comp := range f.Recipe {
		q := comp.Proportion.Div(hundred).Mul(qty)
		if err := s.consumeYarn(ctx, comp.YarnID, q, rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) consumeYarn(ctx context.Context, yarnID string, q decimal.Decimal, rows []Detail) error {
	var last *Detail
	for i := range rows {
		row := &rows[i]
		if row.SupplierYarnID != yarnID {
			continue
		}
		last = row
		if q.LessThanOrEqual(decimal.Zero) {
			continue
		}

		take := decimal.Min(row.CurrentStock, q)
		row.CurrentStock = row.CurrentStock.Sub(take)
		row.QuantityReceived = row.QuantityReceived.Add(take)
		q = q.Sub(take)

		if err := s.repo.Update(ctx, row); err != nil {
			return err
		}
	}

	// Tail residual lands on the last matching row.
	if last != nil && q.GreaterThan(decimal.Zero) {
		last.CurrentStock = last.CurrentStock.Sub(q)
		last.QuantityReceived = last.QuantityReceived.Add(q)
		return s.repo.Update(ctx, last)
	}
	return nil
}

// RollbackCurrentStockByFabricRecipe reverses a prior consumption, restoring
// current_stock bounded by provided_quantity, in reverse FIFO order.
func (s *Service) RollbackCurrentStockByFabricRecipe(ctx context.Context, f *fabric.Fabric, qty decimal.Decimal, rows []Detail) error {
	for _, comp := range f.Recipe {
		q := comp.Proportion.Div(hundred).Mul(qty)
		if err := s.restoreYarn(ctx, comp.YarnID, q, rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) restoreYarn(ctx context.Context, yarnID string, q decimal.Decimal, rows []Detail) error {
	for i := len(rows) - 1; i >= 0 && q.GreaterThan(decimal.Zero); i-- {
		row := &rows[i]
		if row.SupplierYarnID != yarnID {
			continue
		}

		headroom := row.ProvidedQuantity.Sub(row.CurrentStock)
		give := decimal.Min(headroom, q)
		if give.LessThanOrEqual(decimal.Zero) {
			continue
		}

		row.CurrentStock = row.CurrentStock.Add(give)
		row.QuantityReceived = row.QuantityReceived.Sub(give)
		q = q.Sub(give)

		if err := s.repo.Update(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
