package supply

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mecsa/internal/domain/catalogs/fabric"
)

type fakeRepo struct {
	rows []Detail
}

func (r *fakeRepo) ListByOrder(_ context.Context, storageCode, referenceNumber string) ([]Detail, error) {
	var out []Detail
	for _, row := range r.rows {
		if row.StorageCode == storageCode && row.ReferenceNumber == referenceNumber {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeRepo) Insert(_ context.Context, d *Detail) error {
	r.rows = append(r.rows, *d)
	return nil
}

func (r *fakeRepo) Update(_ context.Context, d *Detail) error {
	for i := range r.rows {
		if r.rows[i].StorageCode == d.StorageCode &&
			r.rows[i].ReferenceNumber == d.ReferenceNumber &&
			r.rows[i].ItemNumber == d.ItemNumber {
			r.rows[i] = *d
			return nil
		}
	}
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ledgerRow(item int, yarnID string, stock, provided string) Detail {
	return Detail{
		StorageCode:      "201",
		ReferenceNumber:  "TJ100",
		ItemNumber:       item,
		SupplyID:         "TJ100",
		SupplierYarnID:   yarnID,
		CurrentStock:     dec(stock),
		ProvidedQuantity: dec(provided),
		StatusFlag:       "P",
	}
}

func singleYarnFabric(yarnID string) *fabric.Fabric {
	return &fabric.Fabric{
		Recipe: []fabric.FabricYarn{{YarnID: yarnID, Proportion: dec("100")}},
	}
}

func TestUpsertAppendsAndMerges(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	first := ledgerRow(0, "Y1", "50", "50")
	require.NoError(t, svc.Upsert(ctx, first))
	require.Len(t, repo.rows, 1)
	assert.Equal(t, 1, repo.rows[0].ItemNumber)

	// Same (supply, yarn): quantities accumulate, no new row.
	require.NoError(t, svc.Upsert(ctx, ledgerRow(0, "Y1", "30", "30")))
	require.Len(t, repo.rows, 1)
	assert.True(t, repo.rows[0].CurrentStock.Equal(dec("80")))
	assert.True(t, repo.rows[0].ProvidedQuantity.Equal(dec("80")))

	// Different yarn: appended with the next item number.
	require.NoError(t, svc.Upsert(ctx, ledgerRow(0, "Y2", "20", "20")))
	require.Len(t, repo.rows, 2)
	assert.Equal(t, 2, repo.rows[1].ItemNumber)
}

func TestRollbackUpsert(t *testing.T) {
	repo := &fakeRepo{rows: []Detail{ledgerRow(1, "Y1", "80", "80")}}
	svc := NewService(repo)

	require.NoError(t, svc.RollbackUpsert(context.Background(), ledgerRow(0, "Y1", "30", "30")))
	assert.True(t, repo.rows[0].CurrentStock.Equal(dec("50")))
	assert.True(t, repo.rows[0].ProvidedQuantity.Equal(dec("50")))
}

func TestConsumeFIFOAcrossRows(t *testing.T) {
	repo := &fakeRepo{rows: []Detail{
		ledgerRow(1, "Y1", "40", "40"),
		ledgerRow(2, "Y1", "60", "60"),
	}}
	svc := NewService(repo)
	ctx := context.Background()

	rows, err := svc.ListByOrder(ctx, "201", "TJ100")
	require.NoError(t, err)

	// 70 drains row 1 fully and takes 30 from row 2.
	err = svc.UpdateCurrentStockByFabricRecipe(ctx, singleYarnFabric("Y1"), dec("70"), rows)
	require.NoError(t, err)

	assert.True(t, repo.rows[0].CurrentStock.IsZero())
	assert.True(t, repo.rows[0].QuantityReceived.Equal(dec("40")))
	assert.True(t, repo.rows[1].CurrentStock.Equal(dec("30")))
	assert.True(t, repo.rows[1].QuantityReceived.Equal(dec("30")))
}

func TestConsumeTailResidualGoesNegativeOnLastRow(t *testing.T) {
	repo := &fakeRepo{rows: []Detail{
		ledgerRow(1, "Y1", "40", "40"),
		ledgerRow(2, "Y1", "20", "20"),
	}}
	svc := NewService(repo)
	ctx := context.Background()

	rows, err := svc.ListByOrder(ctx, "201", "TJ100")
	require.NoError(t, err)

	// 75 exceeds the 60 on the ledger; the 15 residual lands on the last
	// matching row, driving it negative.
	err = svc.UpdateCurrentStockByFabricRecipe(ctx, singleYarnFabric("Y1"), dec("75"), rows)
	require.NoError(t, err)

	assert.True(t, repo.rows[0].CurrentStock.IsZero())
	assert.True(t, repo.rows[1].CurrentStock.Equal(dec("-15")))
	assert.True(t, repo.rows[1].QuantityReceived.Equal(dec("35")))
}

func TestConsumeSplitsByRecipeProportion(t *testing.T) {
	repo := &fakeRepo{rows: []Detail{
		ledgerRow(1, "Y1", "100", "100"),
		ledgerRow(2, "Y2", "100", "100"),
	}}
	svc := NewService(repo)
	ctx := context.Background()

	rows, err := svc.ListByOrder(ctx, "201", "TJ100")
	require.NoError(t, err)

	blend := &fabric.Fabric{Recipe: []fabric.FabricYarn{
		{YarnID: "Y1", Proportion: dec("60")},
		{YarnID: "Y2", Proportion: dec("40")},
	}}
	require.NoError(t, svc.UpdateCurrentStockByFabricRecipe(ctx, blend, dec("50"), rows))

	assert.True(t, repo.rows[0].CurrentStock.Equal(dec("70")))
	assert.True(t, repo.rows[1].CurrentStock.Equal(dec("80")))
}

func TestRollbackBoundedByProvidedQuantity(t *testing.T) {
	rows := []Detail{
		ledgerRow(1, "Y1", "0", "40"),
		ledgerRow(2, "Y1", "30", "60"),
	}
	rows[0].QuantityReceived = dec("40")
	rows[1].QuantityReceived = dec("30")
	repo := &fakeRepo{rows: rows}
	svc := NewService(repo)
	ctx := context.Background()

	loaded, err := svc.ListByOrder(ctx, "201", "TJ100")
	require.NoError(t, err)

	// Restoring 50 fills the last row to its provided quantity (30 headroom)
	// then gives the remaining 20 to the first row.
	err = svc.RollbackCurrentStockByFabricRecipe(ctx, singleYarnFabric("Y1"), dec("50"), loaded)
	require.NoError(t, err)

	assert.True(t, repo.rows[1].CurrentStock.Equal(dec("60")))
	assert.True(t, repo.rows[1].QuantityReceived.IsZero())
	assert.True(t, repo.rows[0].CurrentStock.Equal(dec("20")))
	assert.True(t, repo.rows[0].QuantityReceived.Equal(dec("20")))
}
