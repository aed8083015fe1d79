package dyeing_service_dispatch

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
	"mecsa/internal/domain/movement"
	"mecsa/internal/domain/registers/inventory"
	"mecsa/internal/domain/series"
)

type stubTx struct{}

func (stubTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeHeaderRepo enforces the composite primary key the way the real
// table does.
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

func (r *fakeDetailRepo) InsertAuxBatch(_ context.Context, _ []movement.MovementDetailAux) error {
	return nil
}

func (r *fakeDetailRepo) ListAuxByDocument(_ context.Context, _, _ string, _ int) ([]movement.MovementDetailAux, error) {
	return nil, nil
}

func (r *fakeDetailRepo) DeleteAuxByDocument(_ context.Context, _, _ string, _ int) error {
	return nil
}

type fakeWarehouseRepo struct {
	rows []movement.FabricWarehouse
}

func (r *fakeWarehouseRepo) InsertBatch(_ context.Context, rows []movement.FabricWarehouse) error {
	r.rows = append(r.rows, rows...)
	return nil
}

func (r *fakeWarehouseRepo) ListByDocument(_ context.Context, documentCode, documentNumber string, period int) ([]movement.FabricWarehouse, error) {
	var out []movement.FabricWarehouse
	for _, row := range r.rows {
		if row.DocumentCode == documentCode && row.DocumentNumber == documentNumber && row.Period == period {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeWarehouseRepo) Update(_ context.Context, row *movement.FabricWarehouse) error {
	for i, existing := range r.rows {
		if existing.DocumentCode == row.DocumentCode && existing.DocumentNumber == row.DocumentNumber &&
			existing.Period == row.Period && existing.FabricID == row.FabricID {
			r.rows[i] = *row
		}
	}
	return nil
}

func (r *fakeWarehouseRepo) Delete(_ context.Context, documentCode, documentNumber string, period int, fabricID string) error {
	kept := r.rows[:0]
	for _, row := range r.rows {
		if !(row.DocumentCode == documentCode && row.DocumentNumber == documentNumber &&
			row.Period == period && row.FabricID == fabricID) {
			kept = append(kept, row)
		}
	}
	r.rows = kept
	return nil
}

func (r *fakeWarehouseRepo) DeleteByDocument(_ context.Context, documentCode, documentNumber string, period int) error {
	kept := r.rows[:0]
	for _, row := range r.rows {
		if !(row.DocumentCode == documentCode && row.DocumentNumber == documentNumber && row.Period == period) {
			kept = append(kept, row)
		}
	}
	r.rows = kept
	return nil
}

func (r *fakeWarehouseRepo) UpdateStatusByDocument(_ context.Context, documentCode, documentNumber string, period int, status string) error {
	for i, row := range r.rows {
		if row.DocumentCode == documentCode && row.DocumentNumber == documentNumber && row.Period == period {
			r.rows[i].StatusFlag = status
		}
	}
	return nil
}

type fakeSupplierRepo struct {
	suppliers map[string]supplier.Supplier
	services  map[string]supplier.SupplierService
	addresses map[string]supplier.SupplierAddress
	colors    map[string]supplier.SupplierColor
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

func (r *fakeSupplierRepo) GetAddress(_ context.Context, supplierCode string, addressID int) (*supplier.SupplierAddress, error) {
	if a, ok := r.addresses[supplierCode+"/"+strconv.Itoa(addressID)]; ok {
		return &a, nil
	}
	return nil, nil
}

func (r *fakeSupplierRepo) ListColors(_ context.Context, _ string) ([]supplier.SupplierColor, error) {
	return nil, nil
}

func (r *fakeSupplierRepo) GetColor(_ context.Context, supplierCode, colorID string) (*supplier.SupplierColor, error) {
	if c, ok := r.colors[supplierCode+"/"+colorID]; ok {
		return &c, nil
	}
	return nil, nil
}

type fakeItemRepo struct {
	items map[string]item.InventoryItem
}

func (r *fakeItemRepo) GetByID(_ context.Context, id string) (*item.InventoryItem, error) {
	if it, ok := r.items[id]; ok {
		return &it, nil
	}
	return nil, nil
}

func (r *fakeItemRepo) FindByFields(_ context.Context, _ item.FieldFilter) ([]item.InventoryItem, error) {
	return nil, nil
}

func (r *fakeItemRepo) Insert(_ context.Context, _ *item.InventoryItem) error { return nil }
func (r *fakeItemRepo) Update(_ context.Context, _ *item.InventoryItem) error { return nil }
func (r *fakeItemRepo) SetActive(_ context.Context, _ string, _ bool) error   { return nil }

type fakeFabricRecipeRepo struct {
	byFabric map[string][]fabric.FabricYarn
}

func (r *fakeFabricRecipeRepo) ListByFabric(_ context.Context, fabricID string) ([]fabric.FabricYarn, error) {
	return r.byFabric[fabricID], nil
}

func (r *fakeFabricRecipeRepo) ListByFabrics(_ context.Context, _ []string) (map[string][]fabric.FabricYarn, error) {
	return nil, nil
}

func (r *fakeFabricRecipeRepo) Insert(_ context.Context, _ []fabric.FabricYarn) error    { return nil }
func (r *fakeFabricRecipeRepo) UpdateShape(_ context.Context, _ fabric.FabricYarn) error { return nil }
func (r *fakeFabricRecipeRepo) DeleteByFabric(_ context.Context, _ string) error         { return nil }

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

type fakeSeriesRepo struct {
	counters map[string]int64
}

func (r *fakeSeriesRepo) NextNumber(_ context.Context, company, documentCode, serviceNumber string) (int64, error) {
	key := company + "|" + documentCode + "|" + serviceNumber
	r.counters[key]++
	return r.counters[key], nil
}

func (r *fakeSeriesRepo) NextVal(_ context.Context, _ string) (int64, error) {
	return 0, nil
}

const (
	testFabric  = "2001"
	testPeriod  = 2026
	testAddress = 2
	testColor   = "AZUL"
	dyerStorage = "022"
)

type dispatchFixture struct {
	svc       *Service
	headers   *fakeHeaderRepo
	details   *fakeDetailRepo
	warehouse *fakeWarehouseRepo
	cards     *fakeCardRepo
	inventory *fakeInventoryRepo
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()

	headers := &fakeHeaderRepo{headers: make(map[movement.Key]movement.Movement)}
	details := &fakeDetailRepo{}
	warehouse := &fakeWarehouseRepo{}
	cards := &fakeCardRepo{cards: map[string]movement.CardOperation{
		"C1": card("C1", dyer),
		"C2": card("C2", ""),
	}}

	supplierRepo := &fakeSupplierRepo{
		suppliers: map[string]supplier.Supplier{
			dyer: {Code: dyer, Name: "TINTORERIA SUR", StorageCode: dyerStorage, IsActive: "A"},
		},
		services: map[string]supplier.SupplierService{
			dyer + "/" + supplier.ServiceDyeing: {
				SupplierCode: dyer, ServiceCode: supplier.ServiceDyeing,
			},
		},
		addresses: map[string]supplier.SupplierAddress{
			dyer + "/" + strconv.Itoa(testAddress): {
				SupplierCode: dyer, AddressID: testAddress, Address: "AV. ARGENTINA 2350",
			},
		},
		colors: map[string]supplier.SupplierColor{
			dyer + "/" + testColor: {SupplierCode: dyer, ColorID: testColor, Name: "AZUL MARINO"},
		},
	}
	suppliers := supplier.NewCatalogService(supplierRepo)

	items := &fakeItemRepo{items: map[string]item.InventoryItem{
		testFabric: {ID: testFabric, FamilyID: item.FabricFamily, IsActive: item.FlagActive,
			Field1: "180", Field2: "30"},
	}}
	recipes := &fakeFabricRecipeRepo{byFabric: map[string][]fabric.FabricYarn{
		testFabric: {{FabricID: testFabric, YarnID: "Y1", Proportion: decimal.NewFromInt(100)}},
	}}
	fabrics := fabric.NewService(items, recipes, nil, nil, nil, stubTx{}, stubTx{})

	inv := &fakeInventoryRepo{stock: map[string]decimal.Decimal{
		invKey(movement.StorageFabric, testFabric, testPeriod): decimal.NewFromInt(100),
	}}
	seriesSvc := series.NewService(&fakeSeriesRepo{counters: make(map[string]int64)})

	svc := NewService(headers, details, warehouse, cards, suppliers, fabrics,
		inventory.NewService(inv), seriesSvc, stubTx{})

	return &dispatchFixture{svc: svc, headers: headers, details: details,
		warehouse: warehouse, cards: cards, inventory: inv}
}

func userContext(username string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: 7, Username: username})
}

func dispatchForm(cardIDs ...string) CreateForm {
	return CreateForm{
		SupplierCode:    dyer,
		AddressID:       testAddress,
		SupplierColorID: testColor,
		Period:          testPeriod,
		CardIDs:         cardIDs,
	}
}

func TestCreatePostsDispatchWithFabricRows(t *testing.T) {
	fx := newDispatchFixture(t)
	ctx := userContext("jrios")

	d, err := fx.svc.Create(ctx, dispatchForm("C1", "C2"))
	require.NoError(t, err)

	h := d.Header
	assert.Equal(t, "T0070000001", h.DocumentNumber)
	assert.Equal(t, movement.StorageFabric, h.StorageCode)
	assert.Equal(t, movement.TypeExit, h.MovementType)
	assert.Equal(t, movement.CodeDyeingDispatch, h.MovementCode)
	assert.Equal(t, "0010000001", h.ReferenceNumber2)
	assert.Equal(t, "002", h.NrodirCode)
	assert.Equal(t, "jrios", h.UserID)

	require.Len(t, d.Details, 2)
	assert.Equal(t, "C1", d.Details[0].CardID)
	assert.Equal(t, "25", d.Details[0].MecsaWeight.String())

	// Cards closed and stamped with the guide exit number.
	exit := movement.DocGuide + h.DocumentNumber
	for _, id := range []string{"C1", "C2"} {
		c := fx.cards.cards[id]
		assert.Equal(t, movement.StatusClosed, c.StatusFlag)
		require.NotNil(t, c.ExitNumber)
		assert.Equal(t, exit, *c.ExitNumber)
	}

	// One warehouse row per fabric, meters from density 180 and width 30.
	require.Len(t, d.Fabrics, 1)
	row := d.Fabrics[0]
	assert.Equal(t, testFabric, row.FabricID)
	assert.Equal(t, 2, row.RollCount)
	assert.Equal(t, "50", row.GuideNetWeight.String())
	assert.Equal(t, "462.96", row.MetersCount.String())
	assert.Equal(t, "CRUD", row.Codcol)

	// Stock moved from 007 to the supplier storage.
	assert.Equal(t, "50", fx.inventory.stock[invKey(movement.StorageFabric, testFabric, testPeriod)].String())
	assert.Equal(t, "50", fx.inventory.stock[invKey(dyerStorage, testFabric, testPeriod)].String())

	in := d.PairedEntry
	assert.Equal(t, "0010000001", in.DocumentNumber)
	assert.Equal(t, dyerStorage, in.StorageCode)
	assert.Equal(t, movement.TypeIngress, in.MovementType)
	assert.Equal(t, h.DocumentNumber, in.ReferenceNumber1)
}

func TestUpdateSwapsCards(t *testing.T) {
	fx := newDispatchFixture(t)
	ctx := userContext("jrios")

	d, err := fx.svc.Create(ctx, dispatchForm("C1"))
	require.NoError(t, err)
	doc := d.Header.DocumentNumber

	updated, err := fx.svc.Update(ctx, doc, testPeriod, UpdateForm{CardIDs: []string{"C2"}})
	require.NoError(t, err)

	// Removed card restored, added card closed.
	c1 := fx.cards.cards["C1"]
	assert.Equal(t, movement.StatusPosted, c1.StatusFlag)
	assert.Nil(t, c1.ExitNumber)
	c2 := fx.cards.cards["C2"]
	assert.Equal(t, movement.StatusClosed, c2.StatusFlag)
	require.NotNil(t, c2.ExitNumber)
	assert.Equal(t, movement.DocGuide+doc, *c2.ExitNumber)

	// Net stock unchanged after the swap.
	assert.Equal(t, "75", fx.inventory.stock[invKey(movement.StorageFabric, testFabric, testPeriod)].String())
	assert.Equal(t, "25", fx.inventory.stock[invKey(dyerStorage, testFabric, testPeriod)].String())

	// One surviving line with a fresh item number, children rebuilt.
	require.Len(t, updated.Details, 1)
	assert.Equal(t, "C2", updated.Details[0].CardID)
	assert.Equal(t, 2, updated.Details[0].ItemNumber)
	require.Len(t, updated.Fabrics, 1)
	assert.Equal(t, 1, updated.Fabrics[0].RollCount)
	assert.Equal(t, "25", updated.Fabrics[0].GuideNetWeight.String())

	entryLines, err := fx.details.ListByDocument(context.Background(),
		movement.DocEntry, d.PairedEntry.DocumentNumber, testPeriod)
	require.NoError(t, err)
	require.Len(t, entryLines, 1)
	assert.Equal(t, "25", entryLines[0].MecsaWeight.String())
}

func TestUpdateSameCardSetIsNoOp(t *testing.T) {
	fx := newDispatchFixture(t)
	ctx := userContext("jrios")

	d, err := fx.svc.Create(ctx, dispatchForm("C1"))
	require.NoError(t, err)

	updated, err := fx.svc.Update(ctx, d.Header.DocumentNumber, testPeriod,
		UpdateForm{CardIDs: []string{"C1"}})
	require.NoError(t, err)

	require.Len(t, updated.Details, 1)
	assert.Equal(t, 1, updated.Details[0].ItemNumber)
	assert.Equal(t, movement.StatusClosed, fx.cards.cards["C1"].StatusFlag)
	assert.Equal(t, "75", fx.inventory.stock[invKey(movement.StorageFabric, testFabric, testPeriod)].String())
}

func TestAnnulRestoresCardsAndStock(t *testing.T) {
	fx := newDispatchFixture(t)
	ctx := userContext("jrios")

	d, err := fx.svc.Create(ctx, dispatchForm("C1", "C2"))
	require.NoError(t, err)
	doc := d.Header.DocumentNumber

	require.NoError(t, fx.svc.Annul(userContext("mquispe"), doc, testPeriod))

	for _, id := range []string{"C1", "C2"} {
		c := fx.cards.cards[id]
		assert.Equal(t, movement.StatusPosted, c.StatusFlag)
		assert.Nil(t, c.ExitNumber)
	}

	assert.Equal(t, "100", fx.inventory.stock[invKey(movement.StorageFabric, testFabric, testPeriod)].String())
	assert.True(t, fx.inventory.stock[invKey(dyerStorage, testFabric, testPeriod)].IsZero())

	out := fx.headers.headers[outboundKey(doc, testPeriod)]
	assert.Equal(t, movement.StatusAnnulled, out.StatusFlag)
	assert.Equal(t, "mquispe", out.AnnulmentUserID)
	in := fx.headers.headers[movement.Key{
		Company: series.Company, StorageCode: dyerStorage,
		MovementType: movement.TypeIngress, MovementCode: movement.CodeDyeingDispatch,
		DocumentCode: movement.DocEntry, DocumentNumber: d.Header.ReferenceNumber2,
		Period: testPeriod,
	}]
	assert.Equal(t, movement.StatusAnnulled, in.StatusFlag)

	// Children marked annulled too.
	lines, err := fx.details.ListByDocument(context.Background(), movement.DocGuide, doc, testPeriod)
	require.NoError(t, err)
	for _, l := range lines {
		assert.Equal(t, movement.StatusAnnulled, l.StatusFlag)
	}
	require.Len(t, fx.warehouse.rows, 1)
	assert.Equal(t, movement.StatusAnnulled, fx.warehouse.rows[0].StatusFlag)

	// Terminal: a second annulment is rejected.
	err = fx.svc.Annul(ctx, doc, testPeriod)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeMovementAnnulled))
}
