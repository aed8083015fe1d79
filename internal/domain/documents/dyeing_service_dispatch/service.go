// Package dyeing_service_dispatch implements the fabric dispatch to a
// dyeing supplier: an outbound guide at storage 007 paired with an entry at
// the supplier's storage, consuming roll cards grouped by fabric.
package dyeing_service_dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"mecsa/internal/core/apperror"
	appctx "mecsa/internal/core/context"
	"mecsa/internal/core/tx"
	"mecsa/internal/domain/catalogs/fabric"
	"mecsa/internal/domain/catalogs/supplier"
	"mecsa/internal/domain/movement"
	"mecsa/internal/domain/registers/inventory"
	"mecsa/internal/domain/series"
)

// Dispatch aggregates an outbound dyeing dispatch and its paired entry.
type Dispatch struct {
	Header      movement.Movement
	Details     []movement.MovementDetail
	Fabrics     []movement.FabricWarehouse
	PairedEntry movement.Movement
}

// CreateForm carries creation input. The dispatch consumes whole cards.
type CreateForm struct {
	SupplierCode    string
	AddressID       int
	SupplierColorID string
	Period          int
	CardIDs         []string
}

// UpdateForm replaces the card set.
type UpdateForm struct {
	CardIDs []string
}

// Updatability answers the is-updatable endpoint.
type Updatability struct {
	Updatable bool   `json:"updatable"`
	Reason    string `json:"reason,omitempty"`
}

// Service drives the dyeing dispatch state machine.
type Service struct {
	headers   movement.HeaderRepository
	details   movement.DetailRepository
	warehouse movement.FabricWarehouseRepository
	cards     movement.CardRepository
	suppliers *supplier.CatalogService
	fabrics   *fabric.Service
	inventory *inventory.Service
	series    *series.Service
	promecTx  tx.Manager
}

func NewService(
	headers movement.HeaderRepository,
	details movement.DetailRepository,
	warehouse movement.FabricWarehouseRepository,
	cards movement.CardRepository,
	suppliers *supplier.CatalogService,
	fabrics *fabric.Service,
	inv *inventory.Service,
	seriesSvc *series.Service,
	promecTx tx.Manager,
) *Service {
	return &Service{
		headers:   headers,
		details:   details,
		warehouse: warehouse,
		cards:     cards,
		suppliers: suppliers,
		fabrics:   fabrics,
		inventory: inv,
		series:    seriesSvc,
		promecTx:  promecTx,
	}
}

func outboundKey(documentNumber string, period int) movement.Key {
	return movement.Key{
		Company:        series.Company,
		StorageCode:    movement.StorageFabric,
		MovementType:   movement.TypeExit,
		MovementCode:   movement.CodeDyeingDispatch,
		DocumentCode:   movement.DocGuide,
		DocumentNumber: documentNumber,
		Period:         period,
	}
}

// Read loads a dispatch with its lines and fabric rows.
func (s *Service) Read(ctx context.Context, documentNumber string, period int) (*Dispatch, error) {
	h, err := s.headers.Get(ctx, outboundKey(documentNumber, period))
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

	d := &Dispatch{Header: *h, Details: details, Fabrics: fabrics}
	if h.ReferenceNumber2 != "" {
		sup, err := s.suppliers.Get(ctx, h.AuxiliaryCode)
		if err != nil {
			return nil, err
		}
		paired, err := s.headers.Get(ctx, movement.Key{
			Company:        series.Company,
			StorageCode:    sup.StorageCode,
			MovementType:   movement.TypeIngress,
			MovementCode:   movement.CodeDyeingDispatch,
			DocumentCode:   movement.DocEntry,
			DocumentNumber: h.ReferenceNumber2,
			Period:         period,
		})
		if err != nil {
			return nil, err
		}
		if paired != nil {
			d.PairedEntry = *paired
		}
	}
	return d, nil
}

// List pages dispatches.
func (s *Service) List(ctx context.Context, filter movement.ListFilter) (*movement.ListResult, error) {
	filter.Normalize()
	return s.headers.List(ctx, movement.StorageFabric, movement.TypeExit,
		movement.CodeDyeingDispatch, movement.DocGuide, filter)
}

// Create validates supplier, address, color and cards, then posts the
// outbound guide, the paired entry and the stock moves.
func (s *Service) Create(ctx context.Context, form CreateForm) (*Dispatch, error) {
	if len(form.CardIDs) == 0 {
		return nil, apperror.NewValidation("dispatch needs at least one card")
	}

	var created *Dispatch
	err := s.promecTx.RunInTransaction(ctx, func(ctx context.Context) error {
		sup, _, err := s.suppliers.RequireService(ctx, form.SupplierCode, supplier.ServiceDyeing)
		if err != nil {
			return err
		}
		if err := supplier.RequireStorage(sup); err != nil {
			return err
		}
		if _, err := s.suppliers.RequireAddress(ctx, sup.Code, form.AddressID); err != nil {
			return err
		}
		if _, err := s.suppliers.RequireColor(ctx, sup.Code, form.SupplierColorID); err != nil {
			return err
		}

		cards, err := s.loadCards(ctx, form.CardIDs, sup.Code)
		if err != nil {
			return err
		}

		docNumber, err := s.series.NextDocumentNumber(ctx, series.DyeingServiceDispatch)
		if err != nil {
			return err
		}
		entryNumber, err := s.series.NextDocumentNumber(ctx, series.Entry)
		if err != nil {
			return err
		}

		d, err := s.post(ctx, sup, form, cards, docNumber, entryNumber)
		if err != nil {
			return err
		}
		created = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// loadCards fetches and validates the cards to consume.
func (s *Service) loadCards(ctx context.Context, ids []string, supplierCode string) ([]movement.CardOperation, error) {
	cards, err := s.cards.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]movement.CardOperation, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}

	out := make([]movement.CardOperation, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, apperror.NewNotFound("card", id)
		}
		if c.StatusFlag == movement.StatusAnnulled {
			return nil, apperror.NewForbidden(apperror.CodeCardAnnulled,
				"roll card is annulled").WithDetail("card_id", id)
		}
		if c.Consumed() {
			return nil, apperror.NewForbidden(apperror.CodeCardConsumed,
				"roll card is already dispatched").WithDetail("card_id", id)
		}
		if c.TintSupplierID != "" && c.TintSupplierID != supplierCode {
			return nil, apperror.NewForbidden(apperror.CodeCardNotOfSupplier,
				"roll card is assigned to another dyeing supplier").
				WithDetail("card_id", id)
		}
		out = append(out, c)
	}
	return out, nil
}

// post writes both headers, per-card lines, per-fabric rows and stock moves.
func (s *Service) post(
	ctx context.Context,
	sup *supplier.Supplier,
	form CreateForm,
	cards []movement.CardOperation,
	docNumber, entryNumber string,
) (*Dispatch, error) {
	now := time.Now()
	userID := appctx.GetUsername(ctx)
	exitNumber := movement.DocGuide + docNumber

	out := movement.Movement{
		Company:          series.Company,
		StorageCode:      movement.StorageFabric,
		MovementType:     movement.TypeExit,
		MovementCode:     movement.CodeDyeingDispatch,
		DocumentCode:     movement.DocGuide,
		DocumentNumber:   docNumber,
		Period:           form.Period,
		CreationDate:     now,
		CreationTime:     now.Format("15:04:05"),
		AuxiliaryCode:    sup.Code,
		AuxiliaryName:    sup.Name,
		ReferenceNumber2: entryNumber,
		NrodirCode:       addressCode(form.AddressID),
		StatusFlag:       movement.StatusPosted,
		UserID:           userID,
	}
	d := &Dispatch{Header: out}

	for i, c := range cards {
		d.Details = append(d.Details, movement.MovementDetail{
			Company:        out.Company,
			StorageCode:    out.StorageCode,
			MovementType:   out.MovementType,
			MovementCode:   out.MovementCode,
			DocumentCode:   out.DocumentCode,
			DocumentNumber: out.DocumentNumber,
			Period:         out.Period,
			ItemNumber:     i + 1,
			ProductCode:    c.FabricID,
			Unit:           "KGS",
			Factor:         decimal.NewFromInt(1),
			MecsaWeight:    c.NetWeight,
			CardID:         c.ID,
			StatusFlag:     movement.StatusPosted,
		})

		c.StatusFlag = movement.StatusClosed
		c.ExitNumber = &exitNumber
		if err := s.cards.Update(ctx, &c); err != nil {
			return nil, err
		}
	}

	fabricRows, perFabric, err := s.buildFabricRows(ctx, &out, cards)
	if err != nil {
		return nil, err
	}
	d.Fabrics = fabricRows

	in := movement.Movement{
		Company:          series.Company,
		StorageCode:      sup.StorageCode,
		MovementType:     movement.TypeIngress,
		MovementCode:     movement.CodeDyeingDispatch,
		DocumentCode:     movement.DocEntry,
		DocumentNumber:   entryNumber,
		Period:           form.Period,
		CreationDate:     now,
		CreationTime:     now.Format("15:04:05"),
		AuxiliaryCode:    sup.Code,
		AuxiliaryName:    sup.Name,
		ReferenceCode:    movement.DocGuide,
		ReferenceNumber1: docNumber,
		StatusFlag:       movement.StatusPosted,
		UserID:           userID,
	}
	var inDetails []movement.MovementDetail
	item := 0
	for fabricID, qty := range perFabric {
		item++
		inDetails = append(inDetails, movement.MovementDetail{
			Company:           in.Company,
			StorageCode:       in.StorageCode,
			MovementType:      in.MovementType,
			MovementCode:      in.MovementCode,
			DocumentCode:      in.DocumentCode,
			DocumentNumber:    in.DocumentNumber,
			Period:            in.Period,
			ItemNumber:        item,
			ProductCode:       fabricID,
			Unit:              "KGS",
			Factor:            decimal.NewFromInt(1),
			MecsaWeight:       qty,
			RefDocumentCode:   movement.DocGuide,
			RefDocumentNumber: docNumber,
			StatusFlag:        movement.StatusPosted,
		})

		if err := s.inventory.UpdateCurrentStock(ctx, fabricID,
			movement.StorageFabric, form.Period, qty.Neg()); err != nil {
			return nil, err
		}
		if err := s.inventory.UpdateCurrentStock(ctx, fabricID,
			sup.StorageCode, form.Period, qty); err != nil {
			return nil, err
		}
	}

	if err := s.headers.Insert(ctx, &d.Header); err != nil {
		return nil, err
	}
	if err := s.details.InsertBatch(ctx, d.Details); err != nil {
		return nil, err
	}
	if err := s.warehouse.InsertBatch(ctx, d.Fabrics); err != nil {
		return nil, err
	}
	if err := s.headers.Insert(ctx, &in); err != nil {
		return nil, err
	}
	if err := s.details.InsertBatch(ctx, inDetails); err != nil {
		return nil, err
	}

	d.PairedEntry = in
	return d, nil
}

// buildFabricRows groups cards by fabric into warehouse rows, computing
// meters from net weight, density and width.
func (s *Service) buildFabricRows(ctx context.Context, h *movement.Movement, cards []movement.CardOperation) ([]movement.FabricWarehouse, map[string]decimal.Decimal, error) {
	perFabric := make(map[string]decimal.Decimal)
	rolls := make(map[string]int)
	order := make([]string, 0)
	for _, c := range cards {
		if _, ok := perFabric[c.FabricID]; !ok {
			order = append(order, c.FabricID)
		}
		perFabric[c.FabricID] = perFabric[c.FabricID].Add(c.NetWeight)
		rolls[c.FabricID]++
	}

	rows := make([]movement.FabricWarehouse, 0, len(order))
	for _, fabricID := range order {
		fab, err := s.fabrics.Get(ctx, fabricID)
		if err != nil {
			return nil, nil, err
		}
		density, _ := fab.DensityValue()
		width, _ := fab.WidthValue()
		total := perFabric[fabricID]

		rows = append(rows, movement.FabricWarehouse{
			Company:        h.Company,
			DocumentCode:   h.DocumentCode,
			DocumentNumber: h.DocumentNumber,
			Period:         h.Period,
			FabricID:       fabricID,
			Codcol:         fab.ColorOrCrude(),
			Width:          width,
			Density:        density,
			GuideNetWeight: total,
			MecsaWeight:    total,
			RollCount:      rolls[fabricID],
			MetersCount:    movement.MetersCount(total, density, width),
			StatusFlag:     movement.StatusPosted,
		})
	}
	return rows, perFabric, nil
}

// IsUpdatable answers whether the dispatch can still be modified.
func (s *Service) IsUpdatable(ctx context.Context, documentNumber string, period int) (*Updatability, error) {
	d, err := s.Read(ctx, documentNumber, period)
	if err != nil {
		return nil, err
	}
	if err := d.Header.CheckEditable(); err != nil {
		appErr, _ := apperror.As(err)
		return &Updatability{Updatable: false, Reason: appErr.Message}, nil
	}
	return &Updatability{Updatable: true}, nil
}

// Update diffs the new card set against the posted one: removed cards are
// restored and their lines dropped, added cards are validated and appended.
// Retained lines keep their item numbers. An identical set is a no-op.
func (s *Service) Update(ctx context.Context, documentNumber string, period int, form UpdateForm) (*Dispatch, error) {
	if len(form.CardIDs) == 0 {
		return nil, apperror.NewValidation("dispatch needs at least one card")
	}

	var updated *Dispatch
	err := s.promecTx.RunInTransaction(ctx, func(ctx context.Context) error {
		d, err := s.Read(ctx, documentNumber, period)
		if err != nil {
			return err
		}
		if err := d.Header.CheckEditable(); err != nil {
			return err
		}
		if d.Header.Annulled() {
			return apperror.NewForbidden(apperror.CodeMovementAnnulled,
				"movement is annulled")
		}

		sup, err := s.suppliers.Get(ctx, d.Header.AuxiliaryCode)
		if err != nil {
			return err
		}

		existing := make(map[string]movement.MovementDetail, len(d.Details))
		maxItem := 0
		for _, line := range d.Details {
			existing[line.CardID] = line
			if line.ItemNumber > maxItem {
				maxItem = line.ItemNumber
			}
		}
		wanted := make(map[string]bool, len(form.CardIDs))
		for _, id := range form.CardIDs {
			wanted[id] = true
		}

		var removed []movement.MovementDetail
		for cardID, line := range existing {
			if !wanted[cardID] {
				removed = append(removed, line)
			}
		}
		var added []string
		for _, id := range form.CardIDs {
			if _, ok := existing[id]; !ok {
				added = append(added, id)
			}
		}

		// Same card set: nothing to do.
		if len(removed) == 0 && len(added) == 0 {
			updated = d
			return nil
		}

		exitNumber := movement.DocGuide + documentNumber

		for _, line := range removed {
			card, err := s.cards.Get(ctx, line.CardID)
			if err != nil {
				return err
			}
			if card == nil {
				return apperror.NewNotFound("card", line.CardID)
			}
			card.StatusFlag = movement.StatusPosted
			card.ExitNumber = nil
			if err := s.cards.Update(ctx, card); err != nil {
				return err
			}
			if err := s.details.DeleteLines(ctx, d.Header.DocumentCode,
				documentNumber, period, []int{line.ItemNumber}); err != nil {
				return err
			}
			if err := s.inventory.UpdateCurrentStock(ctx, line.ProductCode,
				movement.StorageFabric, period, line.MecsaWeight); err != nil {
				return err
			}
			if err := s.inventory.RollbackCurrentStock(ctx, line.ProductCode,
				sup.StorageCode, period, line.MecsaWeight); err != nil {
				return err
			}
		}

		if len(added) > 0 {
			cards, err := s.loadCards(ctx, added, sup.Code)
			if err != nil {
				return err
			}
			var newLines []movement.MovementDetail
			for _, c := range cards {
				maxItem++
				newLines = append(newLines, movement.MovementDetail{
					Company:        d.Header.Company,
					StorageCode:    d.Header.StorageCode,
					MovementType:   d.Header.MovementType,
					MovementCode:   d.Header.MovementCode,
					DocumentCode:   d.Header.DocumentCode,
					DocumentNumber: documentNumber,
					Period:         period,
					ItemNumber:     maxItem,
					ProductCode:    c.FabricID,
					Unit:           "KGS",
					Factor:         decimal.NewFromInt(1),
					MecsaWeight:    c.NetWeight,
					CardID:         c.ID,
					StatusFlag:     movement.StatusPosted,
				})

				c.StatusFlag = movement.StatusClosed
				c.ExitNumber = &exitNumber
				if err := s.cards.Update(ctx, &c); err != nil {
					return err
				}
				if err := s.inventory.UpdateCurrentStock(ctx, c.FabricID,
					movement.StorageFabric, period, c.NetWeight.Neg()); err != nil {
					return err
				}
				if err := s.inventory.UpdateCurrentStock(ctx, c.FabricID,
					sup.StorageCode, period, c.NetWeight); err != nil {
					return err
				}
			}
			if err := s.details.InsertBatch(ctx, newLines); err != nil {
				return err
			}
		}

		if err := s.rebuildChildren(ctx, d, sup); err != nil {
			return err
		}

		fresh, err := s.Read(ctx, documentNumber, period)
		if err != nil {
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

// rebuildChildren recomputes the per-fabric rows of the outbound document
// and the paired entry lines from the surviving card lines.
func (s *Service) rebuildChildren(ctx context.Context, d *Dispatch, sup *supplier.Supplier) error {
	lines, err := s.details.ListByDocument(ctx, d.Header.DocumentCode, d.Header.DocumentNumber, d.Header.Period)
	if err != nil {
		return err
	}

	cards := make([]movement.CardOperation, 0, len(lines))
	for _, line := range lines {
		cards = append(cards, movement.CardOperation{
			ID:        line.CardID,
			FabricID:  line.ProductCode,
			NetWeight: line.MecsaWeight,
		})
	}

	if err := s.warehouse.DeleteByDocument(ctx, d.Header.DocumentCode, d.Header.DocumentNumber, d.Header.Period); err != nil {
		return err
	}
	rows, perFabric, err := s.buildFabricRows(ctx, &d.Header, cards)
	if err != nil {
		return err
	}
	if err := s.warehouse.InsertBatch(ctx, rows); err != nil {
		return err
	}

	if d.PairedEntry.DocumentNumber == "" {
		return nil
	}
	if err := s.details.DeleteByDocument(ctx, d.PairedEntry.DocumentCode, d.PairedEntry.DocumentNumber, d.PairedEntry.Period); err != nil {
		return err
	}
	var inDetails []movement.MovementDetail
	item := 0
	for fabricID, qty := range perFabric {
		item++
		inDetails = append(inDetails, movement.MovementDetail{
			Company:           d.PairedEntry.Company,
			StorageCode:       d.PairedEntry.StorageCode,
			MovementType:      d.PairedEntry.MovementType,
			MovementCode:      d.PairedEntry.MovementCode,
			DocumentCode:      d.PairedEntry.DocumentCode,
			DocumentNumber:    d.PairedEntry.DocumentNumber,
			Period:            d.PairedEntry.Period,
			ItemNumber:        item,
			ProductCode:       fabricID,
			Unit:              "KGS",
			Factor:            decimal.NewFromInt(1),
			MecsaWeight:       qty,
			RefDocumentCode:   movement.DocGuide,
			RefDocumentNumber: d.Header.DocumentNumber,
			StatusFlag:        movement.StatusPosted,
		})
	}
	return s.details.InsertBatch(ctx, inDetails)
}

// Annul restores every card, reverses both stock moves and marks both
// headers annulled.
func (s *Service) Annul(ctx context.Context, documentNumber string, period int) error {
	return s.promecTx.RunInTransaction(ctx, func(ctx context.Context) error {
		d, err := s.Read(ctx, documentNumber, period)
		if err != nil {
			return err
		}
		if err := d.Header.CheckEditable(); err != nil {
			return err
		}

		sup, err := s.suppliers.Get(ctx, d.Header.AuxiliaryCode)
		if err != nil {
			return err
		}

		for _, line := range d.Details {
			card, err := s.cards.Get(ctx, line.CardID)
			if err != nil {
				return err
			}
			if card != nil {
				card.StatusFlag = movement.StatusPosted
				card.ExitNumber = nil
				if err := s.cards.Update(ctx, card); err != nil {
					return err
				}
			}
			if err := s.inventory.UpdateCurrentStock(ctx, line.ProductCode,
				movement.StorageFabric, period, line.MecsaWeight); err != nil {
				return err
			}
			if err := s.inventory.RollbackCurrentStock(ctx, line.ProductCode,
				sup.StorageCode, period, line.MecsaWeight); err != nil {
				return err
			}
		}

		now := time.Now()
		d.Header.StatusFlag = movement.StatusAnnulled
		d.Header.AnnulmentDate = &now
		d.Header.AnnulmentUserID = appctx.GetUsername(ctx)
		if err := s.headers.Update(ctx, &d.Header); err != nil {
			return err
		}
		if err := s.details.UpdateStatusByDocument(ctx, d.Header.DocumentCode,
			documentNumber, period, movement.StatusAnnulled); err != nil {
			return err
		}
		if err := s.warehouse.UpdateStatusByDocument(ctx, d.Header.DocumentCode,
			documentNumber, period, movement.StatusAnnulled); err != nil {
			return err
		}
		if d.PairedEntry.DocumentNumber != "" {
			d.PairedEntry.StatusFlag = movement.StatusAnnulled
			d.PairedEntry.AnnulmentDate = &now
			if err := s.headers.Update(ctx, &d.PairedEntry); err != nil {
				return err
			}
			if err := s.details.UpdateStatusByDocument(ctx, d.PairedEntry.DocumentCode,
				d.PairedEntry.DocumentNumber, period, movement.StatusAnnulled); err != nil {
				return err
			}
		}
		return nil
	})
}

func addressCode(addressID int) string {
	if addressID == 0 {
		return ""
	}
	return fmt.Sprintf("%03d", addressID)
}
