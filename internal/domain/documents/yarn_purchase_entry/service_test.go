package yarn_purchase_entry

import (
	"context"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mecsa/internal/core/apperror"
	appctx "mecsa/internal/core/context"
	"mecsa/internal/domain/catalogs/supplier"
	"mecsa/internal/domain/documents/purchase_order"
	"mecsa/internal/domain/movement"
	"mecsa/internal/domain/registers/inventory"
	"mecsa/internal/domain/series"
)

type stubTx struct{}

func (stubTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeHeaderRepo struct {
	headers map[movement.Key]movement.Movement
}

func (r *fakeHeaderRepo) Insert(_ context.Context, m *movement.Movement) error {
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

type fakeHeavyRepo struct {
	heavies []movement.YarnOCHeavy
}

func (r *fakeHeavyRepo) InsertBatch(_ context.Context, rows []movement.YarnOCHeavy) error {
	r.heavies = append(r.heavies, rows...)
	return nil
}

func (r *fakeHeavyRepo) Get(_ context.Context, ingressNumber string, itemNumber, groupNumber, period int) (*movement.YarnOCHeavy, error) {
	for _, h := range r.heavies {
		if h.IngressNumber == ingressNumber && h.ItemNumber == itemNumber &&
			h.GroupNumber == groupNumber && h.Period == period {
			return &h, nil
		}
	}
	return nil, nil
}

func (r *fakeHeavyRepo) ListByIngress(_ context.Context, ingressNumber string, period int) ([]movement.YarnOCHeavy, error) {
	var out []movement.YarnOCHeavy
	for _, h := range r.heavies {
		if h.IngressNumber == ingressNumber && h.Period == period {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *fakeHeavyRepo) Update(_ context.Context, h *movement.YarnOCHeavy) error {
	for i, existing := range r.heavies {
		if existing.IngressNumber == h.IngressNumber && existing.ItemNumber == h.ItemNumber &&
			existing.GroupNumber == h.GroupNumber && existing.Period == h.Period {
			r.heavies[i] = *h
		}
	}
	return nil
}

func (r *fakeHeavyRepo) DeleteByIngress(_ context.Context, ingressNumber string, period int) error {
	kept := r.heavies[:0]
	for _, h := range r.heavies {
		if !(h.IngressNumber == ingressNumber && h.Period == period) {
			kept = append(kept, h)
		}
	}
	r.heavies = kept
	return nil
}

func (r *fakeHeavyRepo) AnyConsumed(_ context.Context, ingressNumber string, period int) (bool, error) {
	for _, h := range r.heavies {
		if h.IngressNumber == ingressNumber && h.Period == period &&
			(h.ConesLeft < h.ConeCount || h.PackagesLeft < h.PackageCount) {
			return true, nil
		}
	}
	return false, nil
}

type fakeOrderRepo struct {
	order *purchase_order.PurchaseOrder
	lines []purchase_order.Line
}

func (r *fakeOrderRepo) Get(_ context.Context, number string) (*purchase_order.PurchaseOrder, error) {
	if r.order != nil && r.order.Number == number {
		return r.order, nil
	}
	return nil, nil
}

func (r *fakeOrderRepo) ListLines(_ context.Context, number string) ([]purchase_order.Line, error) {
	var out []purchase_order.Line
	for _, l := range r.lines {
		if l.Number == number {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) AddReceived(_ context.Context, number, productCode string, delta decimal.Decimal) error {
	for i, l := range r.lines {
		if l.Number == number && l.ProductCode == productCode {
			r.lines[i].QuantityReceived = l.QuantityReceived.Add(delta)
		}
	}
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

func (r *fakeSupplierRepo) IncrementServiceSequence(_ context.Context, _, _ string) (int64, error) {
	return 0, nil
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
	testSupplier = "S01"
	testOrder    = "OC123"
	testPeriod   = 2026
)

type entryFixture struct {
	svc       *Service
	headers   *fakeHeaderRepo
	details   *fakeDetailRepo
	heavies   *fakeHeavyRepo
	orders    *fakeOrderRepo
	inventory *fakeInventoryRepo
}

func newEntryFixture(t *testing.T) *entryFixture {
	t.Helper()

	headers := &fakeHeaderRepo{headers: make(map[movement.Key]movement.Movement)}
	details := &fakeDetailRepo{}
	heavies := &fakeHeavyRepo{}
	orders := &fakeOrderRepo{
		order: &purchase_order.PurchaseOrder{Number: testOrder, SupplierCode: testSupplier, StatusFlag: "P"},
		lines: []purchase_order.Line{
			{Number: testOrder, ProductCode: "Y1", QuantityOrdered: decimal.NewFromInt(100)},
			{Number: testOrder, ProductCode: "Y2", QuantityOrdered: decimal.NewFromInt(40)},
		},
	}
	supplierRepo := &fakeSupplierRepo{
		suppliers: map[string]supplier.Supplier{
			testSupplier: {Code: testSupplier, Name: "HILANDERIA ANDINA", IsActive: "A"},
			"S02":        {Code: "S02", Name: "TINTORERIA SUR", IsActive: "A"},
		},
		services: map[string]supplier.SupplierService{
			testSupplier + "/" + supplier.ServiceYarn: {SupplierCode: testSupplier, ServiceCode: supplier.ServiceYarn},
		},
	}
	inv := &fakeInventoryRepo{stock: make(map[string]decimal.Decimal)}
	seriesSvc := series.NewService(&fakeSeriesRepo{
		counters:  make(map[string]int64),
		sequences: make(map[string]int64),
	})

	svc := NewService(headers, details, heavies,
		purchase_order.NewService(orders),
		supplier.NewCatalogService(supplierRepo),
		inventory.NewService(inv), seriesSvc, stubTx{})

	return &entryFixture{svc: svc, headers: headers, details: details,
		heavies: heavies, orders: orders, inventory: inv}
}

func userContext(username string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: 7, Username: username})
}

func entryForm(yarnID string, net string, groups ...GroupForm) CreateForm {
	return CreateForm{
		SupplierCode:        testSupplier,
		PurchaseOrderNumber: testOrder,
		Period:              testPeriod,
		Details: []DetailForm{{
			YarnID:         yarnID,
			GuideNetWeight: decimal.RequireFromString(net),
			ConeCount:      24,
			PackageCount:   4,
			SupplierBatch:  "LOT-88",
			Groups:         groups,
		}},
	}
}

func group(n, cones, packages int, gross, net string) GroupForm {
	return GroupForm{
		GroupNumber:  n,
		ConeCount:    cones,
		PackageCount: packages,
		GrossWeight:  decimal.RequireFromString(gross),
		NetWeight:    decimal.RequireFromString(net),
	}
}

func TestCreatePostsEntryWithSideEffects(t *testing.T) {
	fx := newEntryFixture(t)
	ctx := userContext("jrios")

	entry, err := fx.svc.Create(ctx, entryForm("Y1", "50",
		group(1, 12, 2, "26", "25"), group(2, 12, 2, "26.5", "25")))
	require.NoError(t, err)

	h := entry.Header
	assert.Equal(t, "0060000001", h.DocumentNumber)
	assert.Equal(t, movement.StorageYarn, h.StorageCode)
	assert.Equal(t, movement.TypeIngress, h.MovementType)
	assert.Equal(t, "HILANDERIA ANDINA", h.AuxiliaryName)
	assert.Equal(t, testOrder, h.ReferenceNumber1)
	assert.Equal(t, movement.StatusPosted, h.StatusFlag)
	assert.Equal(t, "jrios", h.UserID)

	require.Len(t, entry.Details, 1)
	assert.Equal(t, "50", entry.Details[0].MecsaWeight.String())

	require.Len(t, entry.Aux, 1)
	assert.Equal(t, "52.5", entry.Aux[0].GuideGrossWeight.String())
	assert.Equal(t, "1", entry.Aux[0].MecsaBatch)

	require.Len(t, entry.Heavies, 2)
	for _, heavy := range entry.Heavies {
		assert.Equal(t, heavy.ConeCount, heavy.ConesLeft)
		assert.False(t, heavy.DispatchStatus)
	}

	assert.Equal(t, "50", fx.inventory.stock[invKey(movement.StorageYarn, "Y1", testPeriod)].String())
	assert.Equal(t, "50", fx.orders.lines[0].QuantityReceived.String())
}

func TestCreateRejectsQuantityOverOrderBalance(t *testing.T) {
	fx := newEntryFixture(t)

	_, err := fx.svc.Create(userContext("jrios"), entryForm("Y1", "100.01", group(1, 24, 4, "101", "100.01")))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeQuantityExceeded))
	assert.Empty(t, fx.headers.headers)
}

func TestCreateRejectsYarnOutsideOrder(t *testing.T) {
	fx := newEntryFixture(t)

	_, err := fx.svc.Create(userContext("jrios"), entryForm("Y9", "10", group(1, 4, 1, "11", "10")))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeQuantityExceeded))
}

func TestCreateRejectsSupplierWithoutYarnService(t *testing.T) {
	fx := newEntryFixture(t)
	form := entryForm("Y1", "10", group(1, 4, 1, "11", "10"))
	form.SupplierCode = "S02"

	_, err := fx.svc.Create(userContext("jrios"), form)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeSupplierService))
}

func TestCreateRejectsEmptyDetails(t *testing.T) {
	fx := newEntryFixture(t)

	_, err := fx.svc.Create(userContext("jrios"), CreateForm{
		SupplierCode: testSupplier, PurchaseOrderNumber: testOrder, Period: testPeriod,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestUpdateReplacesDetailSet(t *testing.T) {
	fx := newEntryFixture(t)
	ctx := userContext("jrios")

	entry, err := fx.svc.Create(ctx, entryForm("Y1", "50", group(1, 24, 4, "52", "50")))
	require.NoError(t, err)
	doc := entry.Header.DocumentNumber

	updated, err := fx.svc.Update(ctx, doc, testPeriod, UpdateForm{
		Details: []DetailForm{{
			YarnID:         "Y2",
			GuideNetWeight: decimal.NewFromInt(30),
			ConeCount:      12,
			PackageCount:   2,
			Groups:         []GroupForm{group(1, 12, 2, "31", "30")},
		}},
	})
	require.NoError(t, err)

	// Same document number, fresh mecsa batch.
	assert.Equal(t, doc, updated.Header.DocumentNumber)
	assert.Equal(t, "2", updated.Aux[0].MecsaBatch)

	// Old side effects rolled back, new ones applied.
	assert.True(t, fx.inventory.stock[invKey(movement.StorageYarn, "Y1", testPeriod)].IsZero())
	assert.Equal(t, "30", fx.inventory.stock[invKey(movement.StorageYarn, "Y2", testPeriod)].String())
	assert.True(t, fx.orders.lines[0].QuantityReceived.IsZero())
	assert.Equal(t, "30", fx.orders.lines[1].QuantityReceived.String())

	rows, err := fx.details.ListByDocument(context.Background(), movement.DocEntry, doc, testPeriod)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Y2", rows[0].ProductCode)
}

func TestUpdateBlockedAfterDispatchTookAGroup(t *testing.T) {
	fx := newEntryFixture(t)
	ctx := userContext("jrios")

	entry, err := fx.svc.Create(ctx, entryForm("Y1", "50", group(1, 24, 4, "52", "50")))
	require.NoError(t, err)

	fx.heavies.heavies[0].ConesLeft = 0
	fx.heavies.heavies[0].PackagesLeft = 0

	_, err = fx.svc.Update(ctx, entry.Header.DocumentNumber, testPeriod, UpdateForm{
		Details: []DetailForm{{YarnID: "Y1", GuideNetWeight: decimal.NewFromInt(10)}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeGroupConsumed))

	check, err := fx.svc.IsUpdatable(ctx, entry.Header.DocumentNumber, testPeriod)
	require.NoError(t, err)
	assert.False(t, check.Updatable)
	assert.NotEmpty(t, check.Reason)
}

func TestAnnulReversesStockAndMarksChildren(t *testing.T) {
	fx := newEntryFixture(t)
	ctx := userContext("jrios")

	entry, err := fx.svc.Create(ctx, entryForm("Y1", "50", group(1, 24, 4, "52", "50")))
	require.NoError(t, err)
	doc := entry.Header.DocumentNumber

	require.NoError(t, fx.svc.Annul(userContext("mquispe"), doc, testPeriod))

	assert.True(t, fx.inventory.stock[invKey(movement.StorageYarn, "Y1", testPeriod)].IsZero())
	assert.True(t, fx.orders.lines[0].QuantityReceived.IsZero())

	after, err := fx.svc.Read(ctx, doc, testPeriod)
	require.NoError(t, err)
	assert.Equal(t, movement.StatusAnnulled, after.Header.StatusFlag)
	assert.Equal(t, "mquispe", after.Header.AnnulmentUserID)
	require.NotNil(t, after.Header.AnnulmentDate)
	assert.Equal(t, movement.StatusAnnulled, after.Details[0].StatusFlag)
	assert.Equal(t, movement.StatusAnnulled, after.Heavies[0].StatusFlag)

	// Terminal: a second annulment is rejected.
	err = fx.svc.Annul(ctx, doc, testPeriod)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeMovementAnnulled))
}

func TestAnnulBlockedWhenAccounted(t *testing.T) {
	fx := newEntryFixture(t)
	ctx := userContext("jrios")

	entry, err := fx.svc.Create(ctx, entryForm("Y1", "50", group(1, 24, 4, "52", "50")))
	require.NoError(t, err)

	h := fx.headers.headers[entry.Header.Key()]
	h.Flgcbd = movement.AccountedFlag
	fx.headers.headers[entry.Header.Key()] = h

	err = fx.svc.Annul(ctx, entry.Header.DocumentNumber, testPeriod)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeMovementAccounted))
}

func TestReadUnknownDocument(t *testing.T) {
	fx := newEntryFixture(t)

	_, err := fx.svc.Read(context.Background(), "0069999999", testPeriod)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
