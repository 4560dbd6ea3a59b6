package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careflow/careflow-backend/internal/logistics/domain"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/testutil"
)

func TestStockApplyBatch_AllOrNothing(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, itemRepo, stockRepo, _ := newRepos()

	locA := mustCreateLocation(t, ctx, locationRepo)
	locB := mustCreateLocation(t, ctx, locationRepo)
	item := mustCreateItem(t, ctx, itemRepo)
	mustSeedStock(t, ctx, stockRepo, locA.ID, item.ID, 10)

	// Second op would drive locB negative, so the whole batch fails
	err := stockRepo.ApplyBatch(ctx, []domain.StockOp{
		{LocationID: locA.ID, ItemID: item.ID, Delta: -5},
		{LocationID: locB.ID, ItemID: item.ID, Delta: -1},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInsufficientStock)

	qty, err := stockRepo.GetQuantity(ctx, locA.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, qty)
}

func TestStockApplyBatch_MergesOpsOnSameGranule(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, itemRepo, stockRepo, _ := newRepos()

	loc := mustCreateLocation(t, ctx, locationRepo)
	item := mustCreateItem(t, ctx, itemRepo)
	mustSeedStock(t, ctx, stockRepo, loc.ID, item.ID, 3)

	// Individually the debit exceeds the balance; the merged net delta
	// (+10 -8 = +2) does not
	err := stockRepo.ApplyBatch(ctx, []domain.StockOp{
		{LocationID: loc.ID, ItemID: item.ID, Delta: 10},
		{LocationID: loc.ID, ItemID: item.ID, Delta: -8},
	})
	require.NoError(t, err)

	qty, err := stockRepo.GetQuantity(ctx, loc.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, qty)
}

func TestStockGetQuantity_AbsentGranuleReadsZero(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, itemRepo, stockRepo, _ := newRepos()

	loc := mustCreateLocation(t, ctx, locationRepo)
	item := mustCreateItem(t, ctx, itemRepo)

	qty, err := stockRepo.GetQuantity(ctx, loc.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, qty)

	total, err := stockRepo.TotalForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	// Debiting an absent granule is insufficient stock, not a missing row
	err = stockRepo.ApplyDelta(ctx, loc.ID, item.ID, -1)
	assert.ErrorIs(t, err, errors.ErrInsufficientStock)
}

func TestStockApplyBatch_ConcurrentDebitsNeverOversell(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, itemRepo, stockRepo, _ := newRepos()

	loc := mustCreateLocation(t, ctx, locationRepo)
	item := mustCreateItem(t, ctx, itemRepo)
	mustSeedStock(t, ctx, stockRepo, loc.ID, item.ID, 10)

	// 20 goroutines each try to debit 1; only 10 can succeed
	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = stockRepo.ApplyDelta(ctx, loc.ID, item.ID, -1)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, errors.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 10, succeeded)

	qty, err := stockRepo.GetQuantity(ctx, loc.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, qty)
}

func TestStockBreakdown_SkipsZeroEntries(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, itemRepo, stockRepo, _ := newRepos()

	locA := mustCreateLocation(t, ctx, locationRepo, testutil.WithLocationName("Central Warehouse"))
	locB := mustCreateLocation(t, ctx, locationRepo)
	item := mustCreateItem(t, ctx, itemRepo)

	mustSeedStock(t, ctx, stockRepo, locA.ID, item.ID, 7)
	// Drive locB's entry to zero; it must not show up
	mustSeedStock(t, ctx, stockRepo, locB.ID, item.ID, 3)
	require.NoError(t, stockRepo.ApplyDelta(ctx, locB.ID, item.ID, -3))

	rows, err := stockRepo.Breakdown(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, locA.ID, rows[0].LocationID)
	assert.Equal(t, "Central Warehouse", rows[0].LocationName)
	assert.Equal(t, 7, rows[0].Quantity)

	holdings, err := stockRepo.TotalsForLocation(ctx, locB.ID)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}
