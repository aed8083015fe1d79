package movement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mecsa/internal/core/apperror"
)

func TestCheckEditable(t *testing.T) {
	m := Movement{DocumentNumber: "0060000001", StatusFlag: StatusPosted}
	assert.NoError(t, m.CheckEditable())

	annulled := m
	annulled.StatusFlag = StatusAnnulled
	err := annulled.CheckEditable()
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeMovementAnnulled))

	accounted := m
	accounted.Flgcbd = AccountedFlag
	err = accounted.CheckEditable()
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeMovementAccounted))
}

func TestSyncDispatchStatus(t *testing.T) {
	h := YarnOCHeavy{ConesLeft: 0, PackagesLeft: 2}
	h.SyncDispatchStatus()
	assert.False(t, h.DispatchStatus)

	h.PackagesLeft = 0
	h.SyncDispatchStatus()
	assert.True(t, h.DispatchStatus)
}

func TestCardConsumed(t *testing.T) {
	open := CardOperation{StatusFlag: StatusPosted}
	assert.False(t, open.Consumed())

	exit := "T0070000001"
	dispatched := CardOperation{StatusFlag: StatusPosted, ExitNumber: &exit}
	assert.True(t, dispatched.Consumed())

	closed := CardOperation{StatusFlag: StatusClosed}
	assert.True(t, closed.Consumed())
}

func TestMetersCount(t *testing.T) {
	// 25 kg of 180 g/m2 fabric at 90 cm tubular width:
	// 25*1000 / (180*90*2/100) = 77.16049... -> 77.16
	got := MetersCount(decimal.NewFromInt(25), decimal.NewFromInt(180), decimal.NewFromInt(90))
	assert.Equal(t, "77.16", got.String())

	assert.True(t, MetersCount(decimal.NewFromInt(25), decimal.Zero, decimal.NewFromInt(90)).IsZero())
}

func TestListFilterNormalize(t *testing.T) {
	f := ListFilter{}
	f.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 50, f.PageSize)
	assert.Equal(t, uint64(0), f.Offset())

	f = ListFilter{Page: 3, PageSize: 500}
	f.Normalize()
	assert.Equal(t, 50, f.PageSize)
	assert.Equal(t, uint64(100), f.Offset())
}
