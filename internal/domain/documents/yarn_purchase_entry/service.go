// Package yarn_purchase_entry implements the yarn purchase entry movement:
// yarn received from a purchase order into storage 006, weighed in sub-lots
// of cones and packages.
package yarn_purchase_entry

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"mecsa/internal/core/apperror"
	appctx "mecsa/internal/core/context"
	"mecsa/internal/core/tx"
	"mecsa/internal/domain/catalogs/supplier"
	"mecsa/internal/domain/documents/purchase_order"
	"mecsa/internal/domain/movement"
	"mecsa/internal/domain/registers/inventory"
	"mecsa/internal/domain/series"
)

// Entry aggregates a yarn purchase entry movement.
type Entry struct {
	Header  movement.Movement
	Details []movement.MovementDetail
	Aux     []movement.MovementDetailAux
	Heavies []movement.YarnOCHeavy
}

// GroupForm is one weighed sub-lot of a detail.
type GroupForm struct {
	GroupNumber  int
	ConeCount    int
	PackageCount int
	GrossWeight  decimal.Decimal
	NetWeight    decimal.Decimal
}

// DetailForm is one yarn line of a create/update request.
type DetailForm struct {
	YarnID         string
	GuideNetWeight decimal.Decimal
	ConeCount      int
	PackageCount   int
	SupplierBatch  string
	Groups         []GroupForm
}

// CreateForm carries creation input.
type CreateForm struct {
	SupplierCode        string
	PurchaseOrderNumber string
	Period              int
	Details             []DetailForm
}

// UpdateForm replaces the detail set of a posted entry.
type UpdateForm struct {
	Details []DetailForm
}

// Updatability answers the is-updatable endpoint.
type Updatability struct {
	Updatable bool   `json:"updatable"`
	Reason    string `json:"reason,omitempty"`
}

// Service drives the yarn purchase entry state machine.
type Service struct {
	headers   movement.HeaderRepository
	details   movement.DetailRepository
	heavies   movement.HeavyRepository
	orders    *purchase_order.Service
	suppliers *supplier.CatalogService
	inventory *inventory.Service
	series    *series.Service
	promecTx  tx.Manager
}

func NewService(
	headers movement.HeaderRepository,
	details movement.DetailRepository,
	heavies movement.HeavyRepository,
	orders *purchase_order.Service,
	suppliers *supplier.CatalogService,
	inv *inventory.Service,
	seriesSvc *series.Service,
	promecTx tx.Manager,
) *Service {
	return &Service{
		headers:   headers,
		details:   details,
		heavies:   heavies,
		orders:    orders,
		suppliers: suppliers,
		inventory: inv,
		series:    seriesSvc,
		promecTx:  promecTx,
	}
}

func headerKey(documentNumber string, period int) movement.Key {
	return movement.Key{
		Company:        series.Company,
		StorageCode:    movement.StorageYarn,
		MovementType:   movement.TypeIngress,
		MovementCode:   movement.CodeYarnPurchase,
		DocumentCode:   movement.DocEntry,
		DocumentNumber: documentNumber,
		Period:         period,
	}
}

// Read loads an entry with all children.
func (s *Service) Read(ctx context.Context, documentNumber string, period int) (*Entry, error) {
	h, err := s.headers.Get(ctx, headerKey(documentNumber, period))
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, apperror.NewNotFound("movement", documentNumber)
	}

	details, err := s.details.ListByDocument(ctx, h.DocumentCode, h.DocumentNumber, period)
	if err != nil {
		return nil, err
	}
	aux, err := s.details.ListAuxByDocument(ctx, h.DocumentCode, h.DocumentNumber, period)
	if err != nil {
		return nil, err
	}
	heavies, err := s.heavies.ListByIngress(ctx, h.DocumentNumber, period)
	if err != nil {
		return nil, err
	}

	return &Entry{Header: *h, Details: details, Aux: aux, Heavies: heavies}, nil
}

// List pages entries.
func (s *Service) List(ctx context.Context, filter movement.ListFilter) (*movement.ListResult, error) {
	filter.Normalize()
	return s.headers.List(ctx, movement.StorageYarn, movement.TypeIngress,
		movement.CodeYarnPurchase, movement.DocEntry, filter)
}

// Create validates supplier and order, allocates the document number and
// posts the entry with all side effects.
func (s *Service) Create(ctx context.Context, form CreateForm) (*Entry, error) {
	if len(form.Details) == 0 {
		return nil, apperror.NewValidation("entry needs at least one detail")
	}

	var created *Entry
	err := s.promecTx.RunInTransaction(ctx, func(ctx context.Context) error {
		sup, _, err := s.suppliers.RequireService(ctx, form.SupplierCode, supplier.ServiceYarn)
		if err != nil {
			return err
		}

		_, lines, err := s.orders.RequireOpen(ctx, form.PurchaseOrderNumber)
		if err != nil {
			return err
		}
		for _, d := range form.Details {
			if err := purchase_order.CheckRemaining(lines, d.YarnID, d.GuideNetWeight); err != nil {
				return err
			}
		}

		docNumber, err := s.series.NextDocumentNumber(ctx, series.YarnPurchaseEntry)
		if err != nil {
			return err
		}

		now := time.Now()
		h := movement.Movement{
			Company:          series.Company,
			StorageCode:      movement.StorageYarn,
			MovementType:     movement.TypeIngress,
			MovementCode:     movement.CodeYarnPurchase,
			DocumentCode:     movement.DocEntry,
			DocumentNumber:   docNumber,
			Period:           form.Period,
			CreationDate:     now,
			CreationTime:     now.Format("15:04:05"),
			AuxiliaryCode:    sup.Code,
			AuxiliaryName:    sup.Name,
			ReferenceCode:    "O/C",
			ReferenceNumber1: form.PurchaseOrderNumber,
			StatusFlag:       movement.StatusPosted,
			UserID:           appctx.GetUsername(ctx),
		}

		entry := &Entry{Header: h}
		if err := s.buildChildren(ctx, entry, form.Details); err != nil {
			return err
		}

		for _, d := range entry.Details {
			if err := s.inventory.UpdateCurrentStock(ctx, d.ProductCode,
				movement.StorageYarn, form.Period, d.MecsaWeight); err != nil {
				return err
			}
			if err := s.orders.AddReceived(ctx, form.PurchaseOrderNumber,
				d.ProductCode, d.MecsaWeight); err != nil {
				return err
			}
		}

		if err := s.headers.Insert(ctx, &entry.Header); err != nil {
			return err
		}
		if err := s.details.InsertBatch(ctx, entry.Details); err != nil {
			return err
		}
		if err := s.details.InsertAuxBatch(ctx, entry.Aux); err != nil {
			return err
		}
		if err := s.heavies.InsertBatch(ctx, entry.Heavies); err != nil {
			return err
		}

		created = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// buildChildren materializes details, aux rows and heavy lots from the forms.
func (s *Service) buildChildren(ctx context.Context, entry *Entry, forms []DetailForm) error {
	h := entry.Header
	for i, d := range forms {
		itemNumber := i + 1

		batch, err := s.series.NextVal(ctx, series.MecsaBatchSeq)
		if err != nil {
			return err
		}
		mecsaBatch := strconv.FormatInt(batch, 10)

		grossTotal := decimal.Zero
		for _, g := range d.Groups {
			heavy := movement.YarnOCHeavy{
				Company:       h.Company,
				IngressNumber: h.DocumentNumber,
				ItemNumber:    itemNumber,
				GroupNumber:   g.GroupNumber,
				Period:        h.Period,
				ProductCode:   d.YarnID,
				ConeCount:     g.ConeCount,
				PackageCount:  g.PackageCount,
				ConesLeft:     g.ConeCount,
				PackagesLeft:  g.PackageCount,
				GrossWeight:   g.GrossWeight,
				NetWeight:     g.NetWeight,
				SupplierBatch: d.SupplierBatch,
				MecsaBatch:    mecsaBatch,
				StatusFlag:    movement.StatusPosted,
			}
			heavy.SyncDispatchStatus()
			grossTotal = grossTotal.Add(g.GrossWeight)
			entry.Heavies = append(entry.Heavies, heavy)
		}

		entry.Details = append(entry.Details, movement.MovementDetail{
			Company:        h.Company,
			StorageCode:    h.StorageCode,
			MovementType:   h.MovementType,
			MovementCode:   h.MovementCode,
			DocumentCode:   h.DocumentCode,
			DocumentNumber: h.DocumentNumber,
			Period:         h.Period,
			ItemNumber:     itemNumber,
			ProductCode:    d.YarnID,
			Unit:           "KGS",
			Factor:         decimal.NewFromInt(1),
			MecsaWeight:    d.GuideNetWeight,
			StatusFlag:     movement.StatusPosted,
		})

		entry.Aux = append(entry.Aux, movement.MovementDetailAux{
			Company:           h.Company,
			DocumentCode:      h.DocumentCode,
			DocumentNumber:    h.DocumentNumber,
			Period:            h.Period,
			ItemNumber:        itemNumber,
			GuideGrossWeight:  grossTotal,
			GuideNetWeight:    d.GuideNetWeight,
			GuideConeCount:    d.ConeCount,
			GuidePackageCount: d.PackageCount,
			MecsaBatch:        mecsaBatch,
			SupplierBatch:     d.SupplierBatch,
		})
	}
	return nil
}

// IsUpdatable answers whether the entry can still be modified.
func (s *Service) IsUpdatable(ctx context.Context, documentNumber string, period int) (*Updatability, error) {
	entry, err := s.Read(ctx, documentNumber, period)
	if err != nil {
		return nil, err
	}
	if err := entry.Header.CheckEditable(); err != nil {
		appErr, _ := apperror.As(err)
		return &Updatability{Updatable: false, Reason: appErr.Message}, nil
	}
	consumed, err := s.heavies.AnyConsumed(ctx, documentNumber, period)
	if err != nil {
		return nil, err
	}
	if consumed {
		return &Updatability{Updatable: false, Reason: "entry has dispatched groups"}, nil
	}
	return &Updatability{Updatable: true}, nil
}

// Update rolls back the stock and heavy side effects of the current detail
// set and re-applies the new one under the same document number.
func (s *Service) Update(ctx context.Context, documentNumber string, period int, form UpdateForm) (*Entry, error) {
	if len(form.Details) == 0 {
		return nil, apperror.NewValidation("entry needs at least one detail")
	}

	var updated *Entry
	err := s.promecTx.RunInTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.Read(ctx, documentNumber, period)
		if err != nil {
			return err
		}
		if err := entry.Header.CheckEditable(); err != nil {
			return err
		}
		if err := s.requireNoConsumption(ctx, documentNumber, period); err != nil {
			return err
		}

		if _, _, err := s.orders.RequireOpen(ctx, entry.Header.ReferenceNumber1); err != nil {
			return err
		}

		// Reverse current side effects.
		if err := s.reverseStock(ctx, entry, decimal.NewFromInt(-1)); err != nil {
			return err
		}
		if err := s.details.DeleteByDocument(ctx, entry.Header.DocumentCode, documentNumber, period); err != nil {
			return err
		}
		if err := s.details.DeleteAuxByDocument(ctx, entry.Header.DocumentCode, documentNumber, period); err != nil {
			return err
		}
		if err := s.heavies.DeleteByIngress(ctx, documentNumber, period); err != nil {
			return err
		}

		// Remainders were just released back to the order, re-read them.
		_, lines, err := s.orders.RequireOpen(ctx, entry.Header.ReferenceNumber1)
		if err != nil {
			return err
		}
		for _, d := range form.Details {
			if err := purchase_order.CheckRemaining(lines, d.YarnID, d.GuideNetWeight); err != nil {
				return err
			}
		}

		fresh := &Entry{Header: entry.Header}
		if err := s.buildChildren(ctx, fresh, form.Details); err != nil {
			return err
		}
		for _, d := range fresh.Details {
			if err := s.inventory.UpdateCurrentStock(ctx, d.ProductCode,
				movement.StorageYarn, period, d.MecsaWeight); err != nil {
				return err
			}
			if err := s.orders.AddReceived(ctx, entry.Header.ReferenceNumber1,
				d.ProductCode, d.MecsaWeight); err != nil {
				return err
			}
		}

		if err := s.details.InsertBatch(ctx, fresh.Details); err != nil {
			return err
		}
		if err := s.details.InsertAuxBatch(ctx, fresh.Aux); err != nil {
			return err
		}
		if err := s.heavies.InsertBatch(ctx, fresh.Heavies); err != nil {
			return err
		}

		updated = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Annul reverses all stock increments and marks the entry annulled.
// Sequence numbers are not reclaimed.
func (s *Service) Annul(ctx context.Context, documentNumber string, period int) error {
	return s.promecTx.RunInTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.Read(ctx, documentNumber, period)
		if err != nil {
			return err
		}
		if err := entry.Header.CheckEditable(); err != nil {
			return err
		}
		if err := s.requireNoConsumption(ctx, documentNumber, period); err != nil {
			return err
		}

		if err := s.reverseStock(ctx, entry, decimal.NewFromInt(-1)); err != nil {
			return err
		}

		now := time.Now()
		entry.Header.StatusFlag = movement.StatusAnnulled
		entry.Header.AnnulmentDate = &now
		entry.Header.AnnulmentUserID = appctx.GetUsername(ctx)
		if err := s.headers.Update(ctx, &entry.Header); err != nil {
			return err
		}
		if err := s.details.UpdateStatusByDocument(ctx, entry.Header.DocumentCode,
			documentNumber, period, movement.StatusAnnulled); err != nil {
			return err
		}
		for i := range entry.Heavies {
			entry.Heavies[i].StatusFlag = movement.StatusAnnulled
			if err := s.heavies.Update(ctx, &entry.Heavies[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) requireNoConsumption(ctx context.Context, documentNumber string, period int) error {
	consumed, err := s.heavies.AnyConsumed(ctx, documentNumber, period)
	if err != nil {
		return err
	}
	if consumed {
		return apperror.NewForbidden(apperror.CodeGroupConsumed,
			"entry has groups already taken by a dispatch").
			WithDetail("document_number", documentNumber)
	}
	return nil
}

// reverseStock applies sign*weight to inventory and the purchase order for
// every detail of the entry.
func (s *Service) reverseStock(ctx context.Context, entry *Entry, sign decimal.Decimal) error {
	for _, d := range entry.Details {
		delta := d.MecsaWeight.Mul(sign)
		if err := s.inventory.UpdateCurrentStock(ctx, d.ProductCode,
			movement.StorageYarn, entry.Header.Period, delta); err != nil {
			return err
		}
		if err := s.orders.AddReceived(ctx, entry.Header.ReferenceNumber1,
			d.ProductCode, delta); err != nil {
			return err
		}
	}
	return nil
}
