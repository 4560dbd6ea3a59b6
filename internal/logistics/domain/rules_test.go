package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careflow/careflow-backend/internal/logistics/domain"
	"github.com/careflow/careflow-backend/pkg/errors"
)

func strPtr(s string) *string {
	return &s
}

func TestValidateNewMovement(t *testing.T) {
	from := strPtr("loc-a")
	to := "loc-b"

	tests := []struct {
		name    string
		from    *string
		to      string
		items   []domain.MovementItem
		wantErr error
	}{
		{
			name: "valid transfer",
			from: from,
			to:   to,
			items: []domain.MovementItem{
				{ItemID: "item-1", Quantity: 5},
				{ItemID: "item-2", Quantity: 1},
			},
		},
		{
			name:  "valid supplier receipt without origin",
			from:  nil,
			to:    to,
			items: []domain.MovementItem{{ItemID: "item-1", Quantity: 100}},
		},
		{
			name:    "empty line list",
			from:    from,
			to:      to,
			items:   nil,
			wantErr: errors.ErrEmptyMovement,
		},
		{
			name:    "origin equals destination",
			from:    strPtr(to),
			to:      to,
			items:   []domain.MovementItem{{ItemID: "item-1", Quantity: 5}},
			wantErr: errors.ErrInvalidRoute,
		},
		{
			name: "duplicate item line",
			from: from,
			to:   to,
			items: []domain.MovementItem{
				{ItemID: "item-1", Quantity: 5},
				{ItemID: "item-1", Quantity: 2},
			},
			wantErr: errors.ErrDuplicateLineItem,
		},
		{
			name:    "zero quantity line",
			from:    from,
			to:      to,
			items:   []domain.MovementItem{{ItemID: "item-1", Quantity: 0}},
			wantErr: errors.ErrValidation,
		},
		{
			name:    "negative quantity line",
			from:    from,
			to:      to,
			items:   []domain.MovementItem{{ItemID: "item-1", Quantity: -3}},
			wantErr: errors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.ValidateNewMovement(tt.from, tt.to, tt.items)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateLossReport(t *testing.T) {
	lines := []domain.MovementItem{
		{ItemID: "item-1", Quantity: 10},
		{ItemID: "item-2", Quantity: 3},
	}

	tests := []struct {
		name    string
		lost    []domain.LostItem
		wantErr bool
	}{
		{name: "empty report means full receipt", lost: nil},
		{name: "all-zero report means full receipt", lost: []domain.LostItem{{ItemID: "item-1", Quantity: 0}}},
		{name: "partial loss", lost: []domain.LostItem{{ItemID: "item-1", Quantity: 4}}},
		{name: "total loss", lost: []domain.LostItem{
			{ItemID: "item-1", Quantity: 10},
			{ItemID: "item-2", Quantity: 3},
		}},
		{name: "unknown item", lost: []domain.LostItem{{ItemID: "item-9", Quantity: 1}}, wantErr: true},
		{name: "duplicate report for one line", lost: []domain.LostItem{
			{ItemID: "item-1", Quantity: 1},
			{ItemID: "item-1", Quantity: 2},
		}, wantErr: true},
		{name: "negative loss", lost: []domain.LostItem{{ItemID: "item-1", Quantity: -1}}, wantErr: true},
		{name: "loss exceeds moved quantity", lost: []domain.LostItem{{ItemID: "item-2", Quantity: 4}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.ValidateLossReport(lines, tt.lost)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrInvalidLossQuantity)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHasLoss(t *testing.T) {
	assert.False(t, domain.HasLoss(nil))
	assert.False(t, domain.HasLoss([]domain.LostItem{{ItemID: "a", Quantity: 0}}))
	assert.True(t, domain.HasLoss([]domain.LostItem{
		{ItemID: "a", Quantity: 0},
		{ItemID: "b", Quantity: 2},
	}))
}

func TestMergeOps(t *testing.T) {
	t.Run("aggregates deltas per granule", func(t *testing.T) {
		merged := domain.MergeOps([]domain.StockOp{
			{LocationID: "loc-b", ItemID: "item-1", Delta: -5},
			{LocationID: "loc-a", ItemID: "item-1", Delta: 5},
			{LocationID: "loc-b", ItemID: "item-1", Delta: 2},
		})

		require.Len(t, merged, 2)
		assert.Equal(t, domain.StockOp{LocationID: "loc-a", ItemID: "item-1", Delta: 5}, merged[0])
		assert.Equal(t, domain.StockOp{LocationID: "loc-b", ItemID: "item-1", Delta: -3}, merged[1])
	})

	t.Run("keeps zero-delta granules", func(t *testing.T) {
		merged := domain.MergeOps([]domain.StockOp{
			{LocationID: "loc-a", ItemID: "item-1", Delta: 7},
			{LocationID: "loc-a", ItemID: "item-1", Delta: -7},
		})

		require.Len(t, merged, 1)
		assert.Equal(t, 0, merged[0].Delta)
	})

	t.Run("returns ops in composite key order", func(t *testing.T) {
		merged := domain.MergeOps([]domain.StockOp{
			{LocationID: "loc-b", ItemID: "item-2", Delta: 1},
			{LocationID: "loc-b", ItemID: "item-1", Delta: 1},
			{LocationID: "loc-a", ItemID: "item-9", Delta: 1},
		})

		require.Len(t, merged, 3)
		assert.Equal(t, "loc-a", merged[0].LocationID)
		assert.Equal(t, "item-1", merged[1].ItemID)
		assert.Equal(t, "item-2", merged[2].ItemID)
	})
}

func TestStockStatus(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		minStock int
		want     string
	}{
		{"zero is critical", 0, 10, domain.StockStatusCritical},
		{"zero with zero threshold is critical", 0, 0, domain.StockStatusCritical},
		{"below threshold is low", 4, 10, domain.StockStatusLow},
		{"at threshold is normal", 10, 10, domain.StockStatusNormal},
		{"above threshold is normal", 25, 10, domain.StockStatusNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.StockStatus(tt.total, tt.minStock))
		})
	}
}

func TestMovementHelpers(t *testing.T) {
	m := &domain.Movement{
		ToLocationID: "loc-b",
		Items: []domain.MovementItem{
			{ItemID: "item-1", Quantity: 10, QuantityLost: 4},
			{ItemID: "item-2", Quantity: 3, QuantityLost: 0},
		},
	}

	assert.True(t, m.IsSupplierReceipt())
	m.FromLocationID = strPtr("loc-a")
	assert.False(t, m.IsSupplierReceipt())

	assert.False(t, m.Settled())

	lost := m.ItemsLost()
	require.Len(t, lost, 1)
	assert.Equal(t, "item-1", lost[0].ItemID)
	assert.Equal(t, 4, lost[0].Quantity)
}
