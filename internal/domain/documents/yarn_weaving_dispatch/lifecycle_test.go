package yarn_weaving_dispatch

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mecsa/internal/core/apperror"
	appctx "mecsa/internal/core/context"
	"mecsa/internal/domain/catalogs/fabric"
	"mecsa/internal/domain/catalogs/item"
	"mecsa/internal/domain/catalogs/supplier"
	"mecsa/internal/domain/documents/service_order"
	"mecsa/internal/domain/movement"
	"mecsa/internal/domain/params"
	"mecsa/internal/domain/registers/inventory"
	"mecsa/internal/domain/registers/supply"
	"mecsa/internal/domain/series"
)

// fakeHeaderRepo enforces the composite primary key the way the real
// table does: inserting an existing key fails, updating a missing one too.
type fakeHeaderRepo struct {
	headers map[movement.Key]movement.Movement
}

func (r *fakeHeaderRepo) Insert(_ context.Context, m *movement.Movement) error {
	if _, ok := r.headers[m.Key()]; ok {
		return fmt.Errorf("duplicate movement header %v", m.Key())
	}
	r.headers[m.Key()] = *m
	return nil
}

func (r *fakeHeaderRepo) Get(_ context.Context, key movement.Key) (*movement.Movement, error) {
	if m, ok := r.headers[key]; ok {
		return &m, nil
	}
	return nil, nil
}

func (r *fakeHeaderRepo) Update(_ context.Context, m *movement.Movement) error {
	if _, ok := r.headers[m.Key()]; !ok {
		return fmt.Errorf("movement header not found %v", m.Key())
	}
	r.headers[m.Key()] = *m
	return nil
}

func (r *fakeHeaderRepo) List(_ context.Context, _, _, _, _ string, filter movement.ListFilter) (*movement.ListResult, error) {
	var items []movement.Movement
	for _, m := range r.headers {
		items = append(items, m)
	}
	return &movement.ListResult{Items: items, Total: int64(len(items)),
		Page: filter.Page, PageSize: filter.PageSize}, nil
}

type fakeDetailRepo struct {
	details []movement.MovementDetail
	aux     []movement.MovementDetailAux
}

func (r *fakeDetailRepo) InsertBatch(_ context.Context, rows []movement.MovementDetail) error {
	r.details = append(r.details, rows...)
	return nil
}

func (r *fakeDetailRepo) ListByDocument(_ context.Context, documentCode, documentNumber string, period int) ([]movement.MovementDetail, error) {
	var out []movement.MovementDetail
	for _, d := range r.details {
		if d.DocumentCode == documentCode && d.DocumentNumber == documentNumber && d.Period == period {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDetailRepo) DeleteByDocument(_ context.Context, documentCode, documentNumber string, period int) error {
	kept := r.details[:0]
	for _, d := range r.details {
		if !(d.DocumentCode == documentCode && d.DocumentNumber == documentNumber && d.Period == period) {
			kept = append(kept, d)
		}
	}
	r.details = kept
	return nil
}

func (r *fakeDetailRepo) DeleteLines(_ context.Context, documentCode, documentNumber string, period int, itemNumbers []int) error {
	drop := make(map[int]struct{}, len(itemNumbers))
	for _, n := range itemNumbers {
		drop[n] = struct{}{}
	}
	kept := r.details[:0]
	for _, d := range r.details {
		_, gone := drop[d.ItemNumber]
		if !(d.DocumentCode == documentCode && d.DocumentNumber == documentNumber && d.Period == period && gone) {
			kept = append(kept, d)
		}
	}
	r.details = kept
	return nil
}

func (r *fakeDetailRepo) UpdateStatusByDocument(_ context.Context, documentCode, documentNumber string, period int, status string) error {
	for i, d := range r.details {
		if d.DocumentCode == documentCode && d.DocumentNumber == documentNumber && d.Period == period {
			r.details[i].StatusFlag = status
		}
	}
	return nil
}

func (r *fakeDetailRepo) InsertAuxBatch(_ context.Context, rows []movement.MovementDetailAux) error {
	r.aux = append(r.aux, rows...)
	return nil
}

func (r *fakeDetailRepo) ListAuxByDocument(_ context.Context, documentCode, documentNumber string, period int) ([]movement.MovementDetailAux, error) {
	var out []movement.MovementDetailAux
	for _, a := range r.aux {
		if a.DocumentCode == documentCode && a.DocumentNumber == documentNumber && a.Period == period {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeDetailRepo) DeleteAuxByDocument(_ context.Context, documentCode, documentNumber string, period int) error {
	kept := r.aux[:0]
	for _, a := range r.aux {
		if !(a.DocumentCode == documentCode && a.DocumentNumber == documentNumber && a.Period == period) {
			kept = append(kept, a)
		}
	}
	r.aux = kept
	return nil
}

type fakeSupplierRepo struct {
	suppliers map[string]supplier.Supplier
	services  map[string]supplier.SupplierService
}

func (r *fakeSupplierRepo) GetByCode(_ context.Context, code string) (*supplier.Supplier, error) {
	if s, ok := r.suppliers[code]; ok {
		return &s, nil
	}
	return nil, nil
}

func (r *fakeSupplierRepo) ListByService(_ context.Context, _ string, _ bool) ([]supplier.Supplier, error) {
	return nil, nil
}

func (r *fakeSupplierRepo) GetService(_ context.Context, supplierCode, serviceCode string) (*supplier.SupplierService, error) {
	if s, ok := r.services[supplierCode+"/"+serviceCode]; ok {
		return &s, nil
	}
	return nil, nil
}

func (r *fakeSupplierRepo) IncrementServiceSequence(_ context.Context, supplierCode, serviceCode string) (int64, error) {
	key := supplierCode + "/" + serviceCode
	svc := r.services[key]
	n := svc.SequenceNumber
	svc.SequenceNumber++
	r.services[key] = svc
	return n, nil
}

func (r *fakeSupplierRepo) ListAddresses(_ context.Context, _ string) ([]supplier.SupplierAddress, error) {
	return nil, nil
}

func (r *fakeSupplierRepo) GetAddress(_ context.Context, _ string, _ int) (*supplier.SupplierAddress, error) {
	return nil, nil
}

func (r *fakeSupplierRepo) ListColors(_ context.Context, _ string) ([]supplier.SupplierColor, error) {
	return nil, nil
}

func (r *fakeSupplierRepo) GetColor(_ context.Context, _, _ string) (*supplier.SupplierColor, error) {
	return nil, nil
}

type fakeOrderRepo struct {
	orders map[string]service_order.ServiceOrder
	lines  []service_order.Detail
}

func orderKey(id, orderType string) string { return id + "/" + orderType }

func (r *fakeOrderRepo) Get(_ context.Context, id, orderType string) (*service_order.ServiceOrder, error) {
	if o, ok := r.orders[orderKey(id, orderType)]; ok {
		return &o, nil
	}
	return nil, nil
}

func (r *fakeOrderRepo) Insert(_ context.Context, o *service_order.ServiceOrder) error {
	r.orders[orderKey(o.ID, o.Type)] = *o
	return nil
}

func (r *fakeOrderRepo) Update(_ context.Context, o *service_order.ServiceOrder) error {
	r.orders[orderKey(o.ID, o.Type)] = *o
	return nil
}

func (r *fakeOrderRepo) List(_ context.Context, _ service_order.ListFilter) ([]service_order.ServiceOrder, int64, error) {
	return nil, 0, nil
}

func (r *fakeOrderRepo) ListDetails(_ context.Context, id, orderType string) ([]service_order.Detail, error) {
	var out []service_order.Detail
	for _, l := range r.lines {
		if l.OrderID == id && l.OrderType == orderType {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) InsertDetails(_ context.Context, rows []service_order.Detail) error {
	r.lines = append(r.lines, rows...)
	return nil
}

func (r *fakeOrderRepo) UpdateDetail(_ context.Context, d *service_order.Detail) error {
	for i, l := range r.lines {
		if l.OrderID == d.OrderID && l.OrderType == d.OrderType && l.ItemNumber == d.ItemNumber {
			r.lines[i] = *d
		}
	}
	return nil
}

func (r *fakeOrderRepo) DeleteDetail(_ context.Context, id, orderType string, itemNumber int) error {
	kept := r.lines[:0]
	for _, l := range r.lines {
		if !(l.OrderID == id && l.OrderType == orderType && l.ItemNumber == itemNumber) {
			kept = append(kept, l)
		}
	}
	r.lines = kept
	return nil
}

type fakeInventoryRepo struct {
	stock map[string]decimal.Decimal
}

func invKey(storageCode, productCode string, period int) string {
	return storageCode + "/" + productCode + "/" + strconv.Itoa(period)
}

func (r *fakeInventoryRepo) Get(_ context.Context, storageCode, productCode string, period int) (*inventory.ProductInventory, error) {
	if stock, ok := r.stock[invKey(storageCode, productCode, period)]; ok {
		return &inventory.ProductInventory{
			StorageCode: storageCode, ProductCode: productCode,
			Period: period, CurrentStock: stock,
		}, nil
	}
	return nil, nil
}

func (r *fakeInventoryRepo) Create(_ context.Context, row *inventory.ProductInventory) error {
	r.stock[invKey(row.StorageCode, row.ProductCode, row.Period)] = row.CurrentStock
	return nil
}

func (r *fakeInventoryRepo) AddStock(_ context.Context, storageCode, productCode string, period int, delta decimal.Decimal) (int64, error) {
	key := invKey(storageCode, productCode, period)
	if _, ok := r.stock[key]; !ok {
		return 0, nil
	}
	r.stock[key] = r.stock[key].Add(delta)
	return 1, nil
}

type fakeSupplyRepo struct {
	rows []supply.Detail
}

func (r *fakeSupplyRepo) ListByOrder(_ context.Context, storageCode, referenceNumber string) ([]supply.Detail, error) {
	var out []supply.Detail
	for _, d := range r.rows {
		if d.StorageCode == storageCode && d.ReferenceNumber == referenceNumber {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeSupplyRepo) Insert(_ context.Context, d *supply.Detail) error {
	r.rows = append(r.rows, *d)
	return nil
}

func (r *fakeSupplyRepo) Update(_ context.Context, d *supply.Detail) error {
	for i, row := range r.rows {
		if row.StorageCode == d.StorageCode && row.ReferenceNumber == d.ReferenceNumber &&
			row.ItemNumber == d.ItemNumber {
			r.rows[i] = *d
		}
	}
	return nil
}

type fakeSeriesRepo struct {
	counters  map[string]int64
	sequences map[string]int64
}

func (r *fakeSeriesRepo) NextNumber(_ context.Context, company, documentCode, serviceNumber string) (int64, error) {
	key := company + "|" + documentCode + "|" + serviceNumber
	r.counters[key]++
	return r.counters[key], nil
}

func (r *fakeSeriesRepo) NextVal(_ context.Context, sequence string) (int64, error) {
	r.sequences[sequence]++
	return r.sequences[sequence], nil
}

const (
	testSupplier    = "S01"
	testOrder       = "GP3"
	supplierStorage = "021"
)

type dispatchFixture struct {
	svc       *Service
	headers   *fakeHeaderRepo
	details   *fakeDetailRepo
	heavies   *fakeHeavyRepo
	suppliers *fakeSupplierRepo
	inventory *fakeInventoryRepo
	supply    *fakeSupplyRepo
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()

	headers := &fakeHeaderRepo{headers: make(map[movement.Key]movement.Movement)}
	details := &fakeDetailRepo{}
	heavies := &fakeHeavyRepo{heavies: map[string]movement.YarnOCHeavy{
		heavyKey(testEntry, 1, 1): {
			IngressNumber: testEntry, ItemNumber: 1, GroupNumber: 1, Period: testPeriod,
			ProductCode: "Y1", ConeCount: 24, PackageCount: 4,
			ConesLeft: 24, PackagesLeft: 4,
			MecsaBatch: "7", SupplierBatch: "LOT-88",
			StatusFlag: movement.StatusPosted,
		},
		heavyKey(testEntry, 1, 2): {
			IngressNumber: testEntry, ItemNumber: 1, GroupNumber: 2, Period: testPeriod,
			ProductCode: "Y1", ConeCount: 12, PackageCount: 2,
			ConesLeft: 12, PackagesLeft: 2,
			MecsaBatch: "7", SupplierBatch: "LOT-88",
			StatusFlag: movement.StatusPosted,
		},
	}}

	supplierRepo := &fakeSupplierRepo{
		suppliers: map[string]supplier.Supplier{
			testSupplier: {Code: testSupplier, Name: "TEJEDURIA GAMARRA", Initials: "GP",
				StorageCode: supplierStorage, IsActive: "A"},
		},
		services: map[string]supplier.SupplierService{
			testSupplier + "/" + supplier.ServiceWeaving: {
				SupplierCode: testSupplier, ServiceCode: supplier.ServiceWeaving,
				SequenceNumber: 4,
			},
		},
	}
	suppliers := supplier.NewCatalogService(supplierRepo)

	orderRepo := &fakeOrderRepo{
		orders: map[string]service_order.ServiceOrder{
			orderKey(testOrder, service_order.TypeWeaving): {
				Company: series.Company, ID: testOrder, Type: service_order.TypeWeaving,
				SupplierID: testSupplier, StatusFlag: movement.StatusPosted,
				StatusParamID: params.OrderStatusUnstarted,
			},
		},
		lines: []service_order.Detail{{
			OrderID: testOrder, OrderType: service_order.TypeWeaving, ItemNumber: 1,
			ProductCode: testFabric, QuantityOrdered: decimal.NewFromInt(100),
		}},
	}
	orders := service_order.NewService(orderRepo, suppliers, stubTx{})

	items := &fakeItemRepo{items: map[string]item.InventoryItem{
		testFabric: {ID: testFabric, FamilyID: item.FabricFamily, IsActive: item.FlagActive},
	}}
	recipes := &fakeFabricRecipeRepo{byFabric: map[string][]fabric.FabricYarn{
		testFabric: {{FabricID: testFabric, YarnID: "Y1", Proportion: decimal.NewFromInt(100)}},
	}}
	fabrics := fabric.NewService(items, recipes, nil, nil, nil, stubTx{}, stubTx{})

	inv := &fakeInventoryRepo{stock: map[string]decimal.Decimal{
		invKey(movement.StorageYarn, "Y1", testPeriod): decimal.NewFromInt(100),
	}}
	supplyRepo := &fakeSupplyRepo{}
	seriesSvc := series.NewService(&fakeSeriesRepo{
		counters:  make(map[string]int64),
		sequences: make(map[string]int64),
	})

	svc := NewService(headers, details, heavies, suppliers, orders, fabrics,
		inventory.NewService(inv), supply.NewService(supplyRepo), seriesSvc, stubTx{})

	return &dispatchFixture{svc: svc, headers: headers, details: details,
		heavies: heavies, suppliers: supplierRepo, inventory: inv, supply: supplyRepo}
}

func userContext(username string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: 7, Username: username})
}

func dispatchForm(details ...DetailForm) CreateForm {
	return CreateForm{
		SupplierCode:   testSupplier,
		ServiceOrderID: testOrder,
		Period:         testPeriod,
		Details:        details,
	}
}

func lotGroup(group, cones, packages int, net int64) DetailForm {
	return DetailForm{
		EntryNumber:  testEntry,
		ItemNumber:   1,
		GroupNumber:  group,
		ConeCount:    cones,
		PackageCount: packages,
		NetWeight:    decimal.NewFromInt(net),
		FabricID:     testFabric,
	}
}

func TestCreatePostsGuideAndPairedEntry(t *testing.T) {
	fx := newDispatchFixture(t)
	ctx := userContext("jrios")

	d, err := fx.svc.Create(ctx, dispatchForm(lot(24, 4)))
	require.NoError(t, err)

	h := d.Header
	assert.Equal(t, "T0060000001", h.DocumentNumber)
	assert.Equal(t, movement.StorageYarn, h.StorageCode)
	assert.Equal(t, movement.TypeExit, h.MovementType)
	assert.Equal(t, movement.CodeYarnDispatch, h.MovementCode)
	assert.Equal(t, testOrder, h.ReferenceNumber1)
	assert.Equal(t, "0010000001", h.ReferenceNumber2)
	assert.Equal(t, "GP4", h.ServicePurchaseCode)
	assert.Equal(t, movement.StatusPosted, h.StatusFlag)
	assert.Equal(t, "jrios", h.UserID)

	require.Len(t, d.Details, 1)
	assert.Equal(t, "Y1", d.Details[0].ProductCode)
	assert.Equal(t, "25", d.Details[0].MecsaWeight.String())
	require.Len(t, d.Aux, 1)
	assert.Equal(t, "7", d.Aux[0].MecsaBatch)
	assert.Equal(t, 24, d.Aux[0].GuideConeCount)

	in := d.PairedEntry
	assert.Equal(t, "0010000001", in.DocumentNumber)
	assert.Equal(t, supplierStorage, in.StorageCode)
	assert.Equal(t, movement.TypeIngress, in.MovementType)
	assert.Equal(t, h.DocumentNumber, in.ReferenceNumber1)

	// The lot is fully consumed and tagged with the guide.
	heavy := fx.heavies.heavies[heavyKey(testEntry, 1, 1)]
	assert.Zero(t, heavy.ConesLeft)
	assert.Zero(t, heavy.PackagesLeft)
	assert.True(t, heavy.DispatchStatus)
	require.NotNil(t, heavy.ExitNumber)
	assert.Equal(t, "T0060000001", *heavy.ExitNumber)

	// Stock moved from 006 to the supplier storage.
	assert.Equal(t, "75", fx.inventory.stock[invKey(movement.StorageYarn, "Y1", testPeriod)].String())
	assert.Equal(t, "25", fx.inventory.stock[invKey(supplierStorage, "Y1", testPeriod)].String())

	// Ledger row for the order.
	require.Len(t, fx.supply.rows, 1)
	assert.Equal(t, "T0060000001", fx.supply.rows[0].SupplyID)
	assert.Equal(t, "25", fx.supply.rows[0].ProvidedQuantity.String())
}

func TestUpdateReusesHeadersAndReappliesEffects(t *testing.T) {
	fx := newDispatchFixture(t)
	ctx := userContext("jrios")

	d, err := fx.svc.Create(ctx, dispatchForm(lot(12, 2)))
	require.NoError(t, err)
	doc := d.Header.DocumentNumber

	updated, err := fx.svc.Update(ctx, doc, testPeriod, UpdateForm{
		Details: []DetailForm{lotGroup(2, 12, 2, 12)},
	})
	require.NoError(t, err)

	// Same outbound and paired numbers, same purchase code, still two headers.
	assert.Equal(t, doc, updated.Header.DocumentNumber)
	assert.Equal(t, d.Header.ReferenceNumber2, updated.PairedEntry.DocumentNumber)
	assert.Equal(t, d.Header.ServicePurchaseCode, updated.Header.ServicePurchaseCode)
	assert.Len(t, fx.headers.headers, 2)

	// First group restored, second consumed.
	g1 := fx.heavies.heavies[heavyKey(testEntry, 1, 1)]
	assert.Equal(t, 24, g1.ConesLeft)
	assert.Equal(t, 4, g1.PackagesLeft)
	assert.Nil(t, g1.ExitNumber)
	g2 := fx.heavies.heavies[heavyKey(testEntry, 1, 2)]
	assert.Zero(t, g2.ConesLeft)
	assert.Zero(t, g2.PackagesLeft)
	require.NotNil(t, g2.ExitNumber)
	assert.Equal(t, doc, *g2.ExitNumber)

	// Stock and ledger reflect the new set only.
	assert.Equal(t, "88", fx.inventory.stock[invKey(movement.StorageYarn, "Y1", testPeriod)].String())
	assert.Equal(t, "12", fx.inventory.stock[invKey(supplierStorage, "Y1", testPeriod)].String())
	require.Len(t, fx.supply.rows, 1)
	assert.Equal(t, "12", fx.supply.rows[0].ProvidedQuantity.String())

	rows, err := fx.details.ListByDocument(context.Background(), movement.DocGuide, doc, testPeriod)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].GroupNumber)
}

func TestUpdateBlockedWhenGroupTakenByAnotherDispatch(t *testing.T) {
	fx := newDispatchFixture(t)
	ctx := userContext("jrios")

	d, err := fx.svc.Create(ctx, dispatchForm(lot(12, 2)))
	require.NoError(t, err)

	other := "T0060000099"
	h := fx.heavies.heavies[heavyKey(testEntry, 1, 1)]
	h.ExitNumber = &other
	fx.heavies.heavies[heavyKey(testEntry, 1, 1)] = h

	_, err = fx.svc.Update(ctx, d.Header.DocumentNumber, testPeriod, UpdateForm{
		Details: []DetailForm{lotGroup(2, 12, 2, 12)},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeGroupConsumed))
}

func TestAnnulRestoresLotsAndStock(t *testing.T) {
	fx := newDispatchFixture(t)
	ctx := userContext("jrios")

	d, err := fx.svc.Create(ctx, dispatchForm(lot(24, 4)))
	require.NoError(t, err)
	doc := d.Header.DocumentNumber

	require.NoError(t, fx.svc.Annul(userContext("mquispe"), doc, testPeriod))

	heavy := fx.heavies.heavies[heavyKey(testEntry, 1, 1)]
	assert.Equal(t, 24, heavy.ConesLeft)
	assert.Equal(t, 4, heavy.PackagesLeft)
	assert.False(t, heavy.DispatchStatus)
	assert.Nil(t, heavy.ExitNumber)

	assert.Equal(t, "100", fx.inventory.stock[invKey(movement.StorageYarn, "Y1", testPeriod)].String())
	assert.True(t, fx.inventory.stock[invKey(supplierStorage, "Y1", testPeriod)].IsZero())

	out := fx.headers.headers[outboundKey(doc, testPeriod)]
	assert.Equal(t, movement.StatusAnnulled, out.StatusFlag)
	assert.Equal(t, "mquispe", out.AnnulmentUserID)
	require.NotNil(t, out.AnnulmentDate)
	in := fx.headers.headers[movement.Key{
		Company: series.Company, StorageCode: supplierStorage,
		MovementType: movement.TypeIngress, MovementCode: movement.CodeYarnDispatch,
		DocumentCode: movement.DocEntry, DocumentNumber: d.Header.ReferenceNumber2,
		Period: testPeriod,
	}]
	assert.Equal(t, movement.StatusAnnulled, in.StatusFlag)

	// Terminal: a second annulment is rejected.
	err = fx.svc.Annul(ctx, doc, testPeriod)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeMovementAnnulled))
}

func TestReadFailsWhenPairedSupplierMissing(t *testing.T) {
	fx := newDispatchFixture(t)
	ctx := userContext("jrios")

	d, err := fx.svc.Create(ctx, dispatchForm(lot(24, 4)))
	require.NoError(t, err)

	delete(fx.suppliers.suppliers, testSupplier)

	_, err = fx.svc.Read(ctx, d.Header.DocumentNumber, testPeriod)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
