// Package yarn_weaving_dispatch implements the yarn dispatch to a weaving
// supplier: an outbound guide at storage 006 paired with an automatic entry
// at the supplier's storage, consuming weighed lots of a yarn purchase entry
// and feeding the service order supply ledger.
package yarn_weaving_dispatch

import (
	"context"
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

// Dispatch aggregates an outbound dispatch and its paired entry.
type Dispatch struct {
	Header      movement.Movement
	Details     []movement.MovementDetail
	Aux         []movement.MovementDetailAux
	PairedEntry movement.Movement
}

// DetailForm is one dispatched lot.
type DetailForm struct {
	EntryNumber  string
	ItemNumber   int
	GroupNumber  int
	ConeCount    int
	PackageCount int
	NetWeight    decimal.Decimal
	FabricID     string
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

// Service drives the dispatch state machine.
type Service struct {
	headers   movement.HeaderRepository
	details   movement.DetailRepository
	heavies   movement.HeavyRepository
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
	heavies movement.HeavyRepository,
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
		heavies:   heavies,
		suppliers: suppliers,
		orders:    orders,
		fabrics:   fabrics,
		inventory: inv,
		supply:    supplySvc,
		series:    seriesSvc,
		promecTx:  promecTx,
	}
}

func outboundKey(documentNumber string, period int) movement.Key {
	return movement.Key{
		Company:        series.Company,
		StorageCode:    movement.StorageYarn,
		MovementType:   movement.TypeExit,
		MovementCode:   movement.CodeYarnDispatch,
		DocumentCode:   movement.DocGuide,
		DocumentNumber: documentNumber,
		Period:         period,
	}
}

// Read loads a dispatch with its lines and paired entry.
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
	aux, err := s.details.ListAuxByDocument(ctx, h.DocumentCode, h.DocumentNumber, period)
	if err != nil {
		return nil, err
	}

	d := &Dispatch{Header: *h, Details: details, Aux: aux}

	if h.ReferenceNumber2 != "" {
		sup, err := s.suppliers.Get(ctx, h.AuxiliaryCode)
		if err != nil {
			return nil, err
		}
		paired, err := s.headers.Get(ctx, movement.Key{
			Company:        series.Company,
			StorageCode:    sup.StorageCode,
			MovementType:   movement.TypeIngress,
			MovementCode:   movement.CodeYarnDispatch,
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
	return s.headers.List(ctx, movement.StorageYarn, movement.TypeExit,
		movement.CodeYarnDispatch, movement.DocGuide, filter)
}

// Create validates supplier, service order and heavy lots, then posts the
// outbound guide, its paired entry and every side effect.
func (s *Service) Create(ctx context.Context, form CreateForm) (*Dispatch, error) {
	if len(form.Details) == 0 {
		return nil, apperror.NewValidation("dispatch needs at least one detail")
	}

	var created *Dispatch
	err := s.promecTx.RunInTransaction(ctx, func(ctx context.Context) error {
		sup, _, err := s.suppliers.RequireService(ctx, form.SupplierCode, supplier.ServiceWeaving)
		if err != nil {
			return err
		}
		if err := supplier.RequireStorage(sup); err != nil {
			return err
		}

		order, orderLines, err := s.orders.Get(ctx, form.ServiceOrderID, service_order.TypeWeaving)
		if err != nil {
			return err
		}
		if err := s.orders.CheckOpen(order); err != nil {
			return err
		}

		heavies, fabrics, err := s.validateDetails(ctx, form.Details, orderLines, form.Period)
		if err != nil {
			return err
		}

		docNumber, err := s.series.NextDocumentNumber(ctx, series.YarnWeavingDispatch)
		if err != nil {
			return err
		}
		entryNumber, err := s.series.NextDocumentNumber(ctx, series.Entry)
		if err != nil {
			return err
		}
		purchaseCode, err := s.suppliers.NextPurchaseCode(ctx, sup, supplier.ServiceWeaving)
		if err != nil {
			return err
		}

		d, err := s.post(ctx, sup, order, form, heavies, fabrics, docNumber, entryNumber, purchaseCode, false)
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

// validateDetails loads and checks the heavy lot and fabric of every line.
func (s *Service) validateDetails(ctx context.Context, forms []DetailForm, orderLines []service_order.Detail, period int) (map[int]*movement.YarnOCHeavy, map[string]*fabric.Fabric, error) {
	inOrder := make(map[string]bool, len(orderLines))
	for _, l := range orderLines {
		inOrder[l.ProductCode] = true
	}

	heavies := make(map[int]*movement.YarnOCHeavy, len(forms))
	fabrics := make(map[string]*fabric.Fabric)
	for i, f := range forms {
		if !inOrder[f.FabricID] {
			return nil, nil, apperror.NewUnprocessable(apperror.CodeFabricNotInOrder,
				"fabric is not part of the service order").
				WithDetail("fabric_id", f.FabricID)
		}

		heavy, err := s.heavies.Get(ctx, f.EntryNumber, f.ItemNumber, f.GroupNumber, period)
		if err != nil {
			return nil, nil, err
		}
		if heavy == nil {
			return nil, nil, apperror.NewNotFound("heavy-group", f.EntryNumber)
		}
		if heavy.StatusFlag == movement.StatusAnnulled {
			return nil, nil, apperror.NewForbidden(apperror.CodeGroupAnnulled,
				"weighed group belongs to an annulled entry").
				WithDetail("entry_number", f.EntryNumber)
		}
		if heavy.DispatchStatus {
			return nil, nil, apperror.NewForbidden(apperror.CodeGroupConsumed,
				"weighed group is already dispatched").
				WithDetail("entry_number", f.EntryNumber).
				WithDetail("group_number", f.GroupNumber)
		}
		if f.PackageCount > heavy.PackagesLeft {
			return nil, nil, apperror.NewUnprocessable(apperror.CodePackageMismatch,
				"package count exceeds packages left in the group").
				WithDetail("requested", f.PackageCount).
				WithDetail("left", heavy.PackagesLeft)
		}
		if f.ConeCount > heavy.ConesLeft {
			return nil, nil, apperror.NewUnprocessable(apperror.CodeConeMismatch,
				"cone count exceeds cones left in the group").
				WithDetail("requested", f.ConeCount).
				WithDetail("left", heavy.ConesLeft)
		}

		fab, ok := fabrics[f.FabricID]
		if !ok {
			fab, err = s.fabrics.Get(ctx, f.FabricID)
			if err != nil {
				return nil, nil, err
			}
			fabrics[f.FabricID] = fab
		}
		if !recipeHasYarn(fab, heavy.ProductCode) {
			return nil, nil, apperror.NewUnprocessable(apperror.CodeYarnNotInRecipe,
				"dispatched yarn is not part of the fabric recipe").
				WithDetail("yarn_id", heavy.ProductCode).
				WithDetail("fabric_id", f.FabricID)
		}

		heavies[i] = heavy
	}
	return heavies, fabrics, nil
}

func recipeHasYarn(f *fabric.Fabric, yarnID string) bool {
	for _, comp := range f.Recipe {
		if comp.YarnID == yarnID {
			return true
		}
	}
	return false
}

// post writes headers, lines, stock, heavies and ledger entries. On a
// repost the outbound and paired headers already exist (reverse keeps
// them), so they are updated in place instead of inserted.
func (s *Service) post(
	ctx context.Context,
	sup *supplier.Supplier,
	order *service_order.ServiceOrder,
	form CreateForm,
	heavies map[int]*movement.YarnOCHeavy,
	fabrics map[string]*fabric.Fabric,
	docNumber, entryNumber, purchaseCode string,
	repost bool,
) (*Dispatch, error) {
	now := time.Now()
	userID := appctx.GetUsername(ctx)

	out := movement.Movement{
		Company:             series.Company,
		StorageCode:         movement.StorageYarn,
		MovementType:        movement.TypeExit,
		MovementCode:        movement.CodeYarnDispatch,
		DocumentCode:        movement.DocGuide,
		DocumentNumber:      docNumber,
		Period:              form.Period,
		CreationDate:        now,
		CreationTime:        now.Format("15:04:05"),
		AuxiliaryCode:       sup.Code,
		AuxiliaryName:       sup.Name,
		ReferenceCode:       "O/S",
		ReferenceNumber1:    order.ID,
		ReferenceNumber2:    entryNumber,
		ServicePurchaseCode: purchaseCode,
		StatusFlag:          movement.StatusPosted,
		UserID:              userID,
	}

	d := &Dispatch{Header: out}
	perProduct := make(map[string]decimal.Decimal)

	for i, f := range form.Details {
		heavy := heavies[i]
		itemNumber := i + 1

		d.Details = append(d.Details, movement.MovementDetail{
			Company:           out.Company,
			StorageCode:       out.StorageCode,
			MovementType:      out.MovementType,
			MovementCode:      out.MovementCode,
			DocumentCode:      out.DocumentCode,
			DocumentNumber:    out.DocumentNumber,
			Period:            out.Period,
			ItemNumber:        itemNumber,
			ProductCode:       heavy.ProductCode,
			Unit:              "KGS",
			Factor:            decimal.NewFromInt(1),
			MecsaWeight:       f.NetWeight,
			RefDocumentCode:   movement.DocEntry,
			RefDocumentNumber: f.EntryNumber,
			GroupNumber:       f.GroupNumber,
			ItemNumberSupply:  f.ItemNumber,
			StatusFlag:        movement.StatusPosted,
		})
		d.Aux = append(d.Aux, movement.MovementDetailAux{
			Company:           out.Company,
			DocumentCode:      out.DocumentCode,
			DocumentNumber:    out.DocumentNumber,
			Period:            out.Period,
			ItemNumber:        itemNumber,
			GuideNetWeight:    f.NetWeight,
			GuideConeCount:    f.ConeCount,
			GuidePackageCount: f.PackageCount,
			MecsaBatch:        heavy.MecsaBatch,
			SupplierBatch:     heavy.SupplierBatch,
		})

		// Outbound stock at 006.
		if err := s.inventory.UpdateCurrentStock(ctx, heavy.ProductCode,
			movement.StorageYarn, form.Period, f.NetWeight.Neg()); err != nil {
			return nil, err
		}
		perProduct[heavy.ProductCode] = perProduct[heavy.ProductCode].Add(f.NetWeight)

		// Consume the lot.
		heavy.PackagesLeft -= f.PackageCount
		heavy.ConesLeft -= f.ConeCount
		heavy.SyncDispatchStatus()
		heavy.ExitNumber = &docNumber
		heavy.ExitUserID = &userID
		if err := s.heavies.Update(ctx, heavy); err != nil {
			return nil, err
		}

		// Ledger: yarn provided to the supplier on this order.
		if err := s.supply.Upsert(ctx, supply.Detail{
			StorageCode:        sup.StorageCode,
			ReferenceNumber:    order.ID,
			SupplyID:           docNumber,
			SupplierYarnID:     heavy.ProductCode,
			CurrentStock:       f.NetWeight,
			ProvidedQuantity:   f.NetWeight,
			QuantityDispatched: f.NetWeight,
			StatusFlag:         movement.StatusPosted,
		}); err != nil {
			return nil, err
		}
	}

	// Paired entry at the supplier storage, one line per product.
	in := movement.Movement{
		Company:          series.Company,
		StorageCode:      sup.StorageCode,
		MovementType:     movement.TypeIngress,
		MovementCode:     movement.CodeYarnDispatch,
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
	for product, qty := range perProduct {
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
			ProductCode:       product,
			Unit:              "KGS",
			Factor:            decimal.NewFromInt(1),
			MecsaWeight:       qty,
			RefDocumentCode:   movement.DocGuide,
			RefDocumentNumber: docNumber,
			StatusFlag:        movement.StatusPosted,
		})
		if err := s.inventory.UpdateCurrentStock(ctx, product,
			sup.StorageCode, form.Period, qty); err != nil {
			return nil, err
		}
	}

	if repost {
		if err := s.headers.Update(ctx, &d.Header); err != nil {
			return nil, err
		}
	} else if err := s.headers.Insert(ctx, &d.Header); err != nil {
		return nil, err
	}
	if err := s.details.InsertBatch(ctx, d.Details); err != nil {
		return nil, err
	}
	if err := s.details.InsertAuxBatch(ctx, d.Aux); err != nil {
		return nil, err
	}
	if repost {
		if err := s.headers.Update(ctx, &in); err != nil {
			return nil, err
		}
	} else if err := s.headers.Insert(ctx, &in); err != nil {
		return nil, err
	}
	if err := s.details.InsertBatch(ctx, inDetails); err != nil {
		return nil, err
	}

	d.PairedEntry = in
	return d, nil
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

// Update reverses the current side effects and re-applies the new detail
// set under the same outbound and paired entry numbers.
func (s *Service) Update(ctx context.Context, documentNumber string, period int, form UpdateForm) (*Dispatch, error) {
	if len(form.Details) == 0 {
		return nil, apperror.NewValidation("dispatch needs at least one detail")
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

		sup, err := s.suppliers.Get(ctx, d.Header.AuxiliaryCode)
		if err != nil {
			return err
		}
		order, orderLines, err := s.orders.Get(ctx, d.Header.ReferenceNumber1, service_order.TypeWeaving)
		if err != nil {
			return err
		}
		if err := s.orders.CheckOpen(order); err != nil {
			return err
		}

		if err := s.reverse(ctx, d, sup); err != nil {
			return err
		}

		heavies, fabrics, err := s.validateDetails(ctx, form.Details, orderLines, period)
		if err != nil {
			return err
		}

		createForm := CreateForm{
			SupplierCode:   sup.Code,
			ServiceOrderID: order.ID,
			Period:         period,
			Details:        form.Details,
		}
		fresh, err := s.post(ctx, sup, order, createForm, heavies, fabrics,
			documentNumber, d.Header.ReferenceNumber2, d.Header.ServicePurchaseCode, true)
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

// Annul reverses stock, lot and ledger effects and marks both headers
// annulled.
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
		if err := s.reverse(ctx, d, sup); err != nil {
			return err
		}

		now := time.Now()
		d.Header.StatusFlag = movement.StatusAnnulled
		d.Header.AnnulmentDate = &now
		d.Header.AnnulmentUserID = appctx.GetUsername(ctx)
		if err := s.headers.Update(ctx, &d.Header); err != nil {
			return err
		}
		if d.PairedEntry.DocumentNumber != "" {
			d.PairedEntry.StatusFlag = movement.StatusAnnulled
			d.PairedEntry.AnnulmentDate = &now
			if err := s.headers.Update(ctx, &d.PairedEntry); err != nil {
				return err
			}
		}
		return nil
	})
}

// reverse undoes every side effect of the posted detail set and deletes the
// outbound and paired lines. The headers stay.
func (s *Service) reverse(ctx context.Context, d *Dispatch, sup *supplier.Supplier) error {
	auxByItem := make(map[int]movement.MovementDetailAux, len(d.Aux))
	for _, a := range d.Aux {
		auxByItem[a.ItemNumber] = a
	}

	for _, line := range d.Details {
		aux := auxByItem[line.ItemNumber]

		heavy, err := s.heavies.Get(ctx, line.RefDocumentNumber, line.ItemNumberSupply, line.GroupNumber, d.Header.Period)
		if err != nil {
			return err
		}
		if heavy == nil {
			return apperror.NewNotFound("heavy-group", line.RefDocumentNumber)
		}
		if heavy.ExitNumber != nil && *heavy.ExitNumber != d.Header.DocumentNumber {
			return apperror.NewForbidden(apperror.CodeGroupConsumed,
				"weighed group was taken by another dispatch").
				WithDetail("entry_number", line.RefDocumentNumber)
		}

		heavy.PackagesLeft += aux.GuidePackageCount
		heavy.ConesLeft += aux.GuideConeCount
		heavy.SyncDispatchStatus()
		heavy.ExitNumber = nil
		heavy.ExitUserID = nil
		if err := s.heavies.Update(ctx, heavy); err != nil {
			return err
		}

		if err := s.inventory.UpdateCurrentStock(ctx, line.ProductCode,
			movement.StorageYarn, d.Header.Period, line.MecsaWeight); err != nil {
			return err
		}
		if err := s.inventory.RollbackCurrentStock(ctx, line.ProductCode,
			sup.StorageCode, d.Header.Period, line.MecsaWeight); err != nil {
			return err
		}

		if err := s.supply.RollbackUpsert(ctx, supply.Detail{
			StorageCode:        sup.StorageCode,
			ReferenceNumber:    d.Header.ReferenceNumber1,
			SupplyID:           d.Header.DocumentNumber,
			SupplierYarnID:     line.ProductCode,
			CurrentStock:       line.MecsaWeight,
			ProvidedQuantity:   line.MecsaWeight,
			QuantityDispatched: line.MecsaWeight,
		}); err != nil {
			return err
		}
	}

	if err := s.details.DeleteByDocument(ctx, d.Header.DocumentCode, d.Header.DocumentNumber, d.Header.Period); err != nil {
		return err
	}
	if err := s.details.DeleteAuxByDocument(ctx, d.Header.DocumentCode, d.Header.DocumentNumber, d.Header.Period); err != nil {
		return err
	}
	if d.PairedEntry.DocumentNumber != "" {
		if err := s.details.DeleteByDocument(ctx, d.PairedEntry.DocumentCode, d.PairedEntry.DocumentNumber, d.PairedEntry.Period); err != nil {
			return err
		}
	}
	return nil
}
