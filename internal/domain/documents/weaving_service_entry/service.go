// Package weaving_service_entry implements the fabric receipt from a
// weaving supplier at storage 007: rolls arrive as cards, the service order
// advances, and the supply ledger consumes yarn per the fabric recipe.
package weaving_service_entry

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"mecsa/internal/core/apperror"
	appctx "mecsa/internal/core/context"
	"mecsa/internal/core/tx"
	"mecsa/internal/domain/catalogs/fabric"
	"mecsa/internal/domain/catalogs/supplier"
	"mecsa/internal/domain/documents/service_order"
	"mecsa/internal/domain/movement"
	"mecsa/internal/domain/registers/inventory"
	"mecsa/internal/domain/registers/supply"
	"mecsa/internal/domain/series"
)

// Entry aggregates a weaving service entry.
type Entry struct {
	Header  movement.Movement
	Details []movement.MovementDetail
	Fabrics []movement.FabricWarehouse
	Cards   []movement.CardOperation
}

// RollForm is one physical roll of a detail.
type RollForm struct {
	NetWeight decimal.Decimal
}

// DetailForm is one fabric line of a create request.
type DetailForm struct {
	FabricID       string
	GuideNetWeight decimal.Decimal
	TintSupplierID string
	TintColorID    string
	Rolls          []RollForm
}

// CreateForm carries creation input.
type CreateForm struct {
	SupplierCode   string
	ServiceOrderID string
	Period         int
	Details        []DetailForm
}

// UpdateForm replaces the detail set.
type UpdateForm struct {
	Details []DetailForm
}

// Updatability answers the is-updatable endpoint.
type Updatability struct {
	Updatable bool   `json:"updatable"`
	Reason    string `json:"reason,omitempty"`
}

// Service drives the weaving entry state machine.
type Service struct {
	headers   movement.HeaderRepository
	details   movement.DetailRepository
	warehouse movement.FabricWarehouseRepository
	cards     movement.CardRepository
	suppliers *supplier.CatalogService
	orders    *service_order.Service
	fabrics   *fabric.Service
	inventory *inventory.Service
	supply    *supply.Service
	series    *series.Service
	promecTx  tx.Manager
}

func NewService(
	headers movement.HeaderRepository,
	details movement.DetailRepository,
	warehouse movement.FabricWarehouseRepository,
	cards movement.CardRepository,
	suppliers *supplier.CatalogService,
	orders *service_order.Service,
	fabrics *fabric.Service,
	inv *inventory.Service,
	supplySvc *supply.Service,
	seriesSvc *series.Service,
	promecTx tx.Manager,
) *Service {
	return &Service{
		headers:   headers,
		details:   details,
		warehouse: warehouse,
		cards:     cards,
		suppliers: suppliers,
		orders:    orders,
		fabrics:   fabrics,
		inventory: inv,
		supply:    supplySvc,
		series:    seriesSvc,
		promecTx:  promecTx,
	}
}

func headerKey(documentNumber string, period int) movement.Key {
	return movement.Key{
		Company:        series.Company,
		StorageCode:    movement.StorageFabric,
		MovementType:   movement.TypeIngress,
		MovementCode:   movement.CodeWeavingEntry,
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
	fabrics, err := s.warehouse.ListByDocument(ctx, h.DocumentCode, h.DocumentNumber, period)
	if err != nil {
		return nil, err
	}
	cards, err := s.cards.ListByDocument(ctx, h.DocumentNumber, period)
	if err != nil {
		return nil, err
	}
	return &Entry{Header: *h, Details: details, Fabrics: fabrics, Cards: cards}, nil
}

// List pages entries.
func (s *Service) List(ctx context.Context, filter movement.ListFilter) (*movement.ListResult, error) {
	filter.Normalize()
	return s.headers.List(ctx, movement.StorageFabric, movement.TypeIngress,
		movement.CodeWeavingEntry, movement.DocEntry, filter)
}

// Create posts the receipt: stock in at 007, one card per roll, service
// order progress and ledger consumption.
func (s *Service) Create(ctx context.Context, form CreateForm) (*Entry, error) {
	if len(form.Details) == 0 {
		return nil, apperror.NewValidation("entry needs at least one detail")
	}

	var created *Entry
	err := s.promecTx.RunInTransaction(ctx, func(ctx context.Context) error {
		sup, _, err := s.suppliers.RequireService(ctx, form.SupplierCode, supplier.ServiceWeaving)
		if err != nil {
			return err
		}

		order, orderLines, err := s.orders.Get(ctx, form.ServiceOrderID, service_order.TypeWeaving)
		if err != nil {
			return err
		}
		if err := s.orders.CheckOpen(order); err != nil {
			return err
		}
		inOrder := make(map[string]bool, len(orderLines))
		for _, l := range orderLines {
			inOrder[l.ProductCode] = true
		}

		docNumber, err := s.series.NextDocumentNumber(ctx, series.WeavingServiceEntry)
		if err != nil {
			return err
		}

		now := time.Now()
		entry := &Entry{Header: movement.Movement{
			Company:          series.Company,
			StorageCode:      movement.StorageFabric,
			MovementType:     movement.TypeIngress,
			MovementCode:     movement.CodeWeavingEntry,
			DocumentCode:     movement.DocEntry,
			DocumentNumber:   docNumber,
			Period:           form.Period,
			CreationDate:     now,
			CreationTime:     now.Format("15:04:05"),
			AuxiliaryCode:    sup.Code,
			AuxiliaryName:    sup.Name,
			ReferenceCode:    "O/S",
			ReferenceNumber1: order.ID,
			StatusFlag:       movement.StatusPosted,
			UserID:           appctx.GetUsername(ctx),
		}}

		if err := s.headers.Insert(ctx, &entry.Header); err != nil {
			return err
		}
		if err := s.post(ctx, entry, order, inOrder, sup, form.Details); err != nil {
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

// post builds and persists the children of the entry and applies stock,
// order progress and ledger consumption. The header must already exist.
func (s *Service) post(
	ctx context.Context,
	entry *Entry,
	order *service_order.ServiceOrder,
	inOrder map[string]bool,
	sup *supplier.Supplier,
	forms []DetailForm,
) error {
	ledgerRows, err := s.supply.ListByOrder(ctx, sup.StorageCode, order.ID)
	if err != nil {
		return err
	}

	docNumber := entry.Header.DocumentNumber
	period := entry.Header.Period

	for i, d := range forms {
		if !inOrder[d.FabricID] {
			return apperror.NewUnprocessable(apperror.CodeFabricNotInOrder,
				"fabric is not part of the service order").
				WithDetail("fabric_id", d.FabricID)
		}
		if len(d.Rolls) == 0 {
			return apperror.NewValidation("fabric line needs at least one roll")
		}

		fab, err := s.fabrics.Get(ctx, d.FabricID)
		if err != nil {
			return err
		}
		density, _ := fab.DensityValue()
		width, _ := fab.WidthValue()

		total := decimal.Zero
		for _, roll := range d.Rolls {
			total = total.Add(roll.NetWeight)

			cardID, err := s.series.NextVal(ctx, series.CardIDSeq)
			if err != nil {
				return err
			}
			entry.Cards = append(entry.Cards, movement.CardOperation{
				ID:                strconv.FormatInt(cardID, 10),
				Company:           series.Company,
				FabricID:          d.FabricID,
				ProductID:         d.FabricID,
				NetWeight:         roll.NetWeight,
				WeavingSupplierID: sup.Code,
				TintSupplierID:    d.TintSupplierID,
				TintColorID:       d.TintColorID,
				CardType:          "T",
				StatusFlag:        movement.StatusPosted,
				DocumentNumber:    docNumber,
				Period:            period,
			})
		}

		entry.Details = append(entry.Details, movement.MovementDetail{
			Company:        entry.Header.Company,
			StorageCode:    entry.Header.StorageCode,
			MovementType:   entry.Header.MovementType,
			MovementCode:   entry.Header.MovementCode,
			DocumentCode:   entry.Header.DocumentCode,
			DocumentNumber: docNumber,
			Period:         period,
			ItemNumber:     i + 1,
			ProductCode:    d.FabricID,
			Unit:           "KGS",
			Factor:         decimal.NewFromInt(1),
			MecsaWeight:    total,
			StatusFlag:     movement.StatusPosted,
		})
		entry.Fabrics = append(entry.Fabrics, movement.FabricWarehouse{
			Company:        entry.Header.Company,
			DocumentCode:   entry.Header.DocumentCode,
			DocumentNumber: docNumber,
			Period:         period,
			FabricID:       d.FabricID,
			Codcol:         fab.ColorOrCrude(),
			Width:          width,
			Density:        density,
			GuideNetWeight: d.GuideNetWeight,
			MecsaWeight:    total,
			RollCount:      len(d.Rolls),
			MetersCount:    movement.MetersCount(total, density, width),
			StatusFlag:     movement.StatusPosted,
		})

		if err := s.inventory.UpdateCurrentStock(ctx, d.FabricID,
			movement.StorageFabric, period, total); err != nil {
			return err
		}
		if err := s.orders.AddSupplied(ctx, order.ID, order.Type, d.FabricID, total); err != nil {
			return err
		}
		if err := s.supply.UpdateCurrentStockByFabricRecipe(ctx, fab, total, ledgerRows); err != nil {
			return err
		}
	}

	if err := s.details.InsertBatch(ctx, entry.Details); err != nil {
		return err
	}
	if err := s.warehouse.InsertBatch(ctx, entry.Fabrics); err != nil {
		return err
	}
	return s.cards.InsertBatch(ctx, entry.Cards)
}

// reverse undoes the stock, order progress and ledger effects of the entry.
func (s *Service) reverse(ctx context.Context, entry *Entry) error {
	sup, err := s.suppliers.Get(ctx, entry.Header.AuxiliaryCode)
	if err != nil {
		return err
	}
	ledgerRows, err := s.supply.ListByOrder(ctx, sup.StorageCode, entry.Header.ReferenceNumber1)
	if err != nil {
		return err
	}

	for _, d := range entry.Details {
		fab, err := s.fabrics.Get(ctx, d.ProductCode)
		if err != nil {
			return err
		}
		if err := s.inventory.RollbackCurrentStock(ctx, d.ProductCode,
			movement.StorageFabric, entry.Header.Period, d.MecsaWeight); err != nil {
			return err
		}
		if err := s.orders.AddSupplied(ctx, entry.Header.ReferenceNumber1,
			service_order.TypeWeaving, d.ProductCode, d.MecsaWeight.Neg()); err != nil {
			return err
		}
		if err := s.supply.RollbackCurrentStockByFabricRecipe(ctx, fab, d.MecsaWeight, ledgerRows); err != nil {
			return err
		}
	}
	return nil
}

// Update replaces the detail set of a posted entry. All effects of the old
// details are reversed and the new set is posted under the same document
// number; rolls get fresh card ids. Fails once any card was dispatched.
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
		for _, c := range entry.Cards {
			if c.Consumed() {
				return apperror.NewForbidden(apperror.CodeCardConsumed,
					"roll card was already taken by a dispatch").
					WithDetail("card_id", c.ID)
			}
		}

		sup, _, err := s.suppliers.RequireService(ctx, entry.Header.AuxiliaryCode, supplier.ServiceWeaving)
		if err != nil {
			return err
		}
		order, orderLines, err := s.orders.Get(ctx, entry.Header.ReferenceNumber1, service_order.TypeWeaving)
		if err != nil {
			return err
		}
		if err := s.orders.CheckOpen(order); err != nil {
			return err
		}
		inOrder := make(map[string]bool, len(orderLines))
		for _, l := range orderLines {
			inOrder[l.ProductCode] = true
		}

		if err := s.reverse(ctx, entry); err != nil {
			return err
		}
		if err := s.details.DeleteByDocument(ctx, entry.Header.DocumentCode, documentNumber, period); err != nil {
			return err
		}
		if err := s.warehouse.DeleteByDocument(ctx, entry.Header.DocumentCode, documentNumber, period); err != nil {
			return err
		}
		if err := s.cards.DeleteByDocument(ctx, documentNumber, period); err != nil {
			return err
		}

		fresh := &Entry{Header: entry.Header}
		if err := s.post(ctx, fresh, order, inOrder, sup, form.Details); err != nil {
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
	for _, c := range entry.Cards {
		if c.Consumed() {
			return &Updatability{Updatable: false, Reason: "entry has dispatched rolls"}, nil
		}
	}
	return &Updatability{Updatable: true}, nil
}

// Annul reverses stock, order progress and ledger consumption and marks the
// entry and its cards annulled. Fails when any card was dispatched.
func (s *Service) Annul(ctx context.Context, documentNumber string, period int) error {
	return s.promecTx.RunInTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.Read(ctx, documentNumber, period)
		if err != nil {
			return err
		}
		if err := entry.Header.CheckEditable(); err != nil {
			return err
		}
		for _, c := range entry.Cards {
			if c.Consumed() {
				return apperror.NewForbidden(apperror.CodeCardConsumed,
					"roll card was already taken by a dispatch").
					WithDetail("card_id", c.ID)
			}
		}

		if err := s.reverse(ctx, entry); err != nil {
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
		if err := s.warehouse.UpdateStatusByDocument(ctx, entry.Header.DocumentCode,
			documentNumber, period, movement.StatusAnnulled); err != nil {
			return err
		}
		for i := range entry.Cards {
			entry.Cards[i].StatusFlag = movement.StatusAnnulled
			if err := s.cards.Update(ctx, &entry.Cards[i]); err != nil {
				return err
			}
		}
		return nil
	})
}
