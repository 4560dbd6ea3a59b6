package repository_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careflow/careflow-backend/internal/logistics/domain"
	"github.com/careflow/careflow-backend/internal/logistics/repository"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to create integration suite: %v", err)
	}

	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

func newRepos() (*repository.LocationRepository, *repository.ItemRepository, *repository.StockRepository, *repository.MovementRepository) {
	locationRepo := repository.NewLocationRepository(suite.DB)
	itemRepo := repository.NewItemRepository(suite.DB)
	stockRepo := repository.NewStockRepository(suite.DB)
	movementRepo := repository.NewMovementRepository(suite.DB, stockRepo)
	return locationRepo, itemRepo, stockRepo, movementRepo
}

func mustCreateLocation(t *testing.T, ctx context.Context, repo *repository.LocationRepository, opts ...func(*domain.Location)) *domain.Location {
	t.Helper()
	loc := suite.Fixtures.Location(opts...)
	loc.ID = ""
	require.NoError(t, repo.Create(ctx, loc))
	return loc
}

func mustCreateItem(t *testing.T, ctx context.Context, repo *repository.ItemRepository, opts ...func(*domain.Item)) *domain.Item {
	t.Helper()
	item := suite.Fixtures.Item(opts...)
	item.ID = ""
	require.NoError(t, repo.Create(ctx, item))
	return item
}

func mustSeedStock(t *testing.T, ctx context.Context, repo *repository.StockRepository, locationID, itemID string, qty int) {
	t.Helper()
	require.NoError(t, repo.ApplyDelta(ctx, locationID, itemID, qty))
}

func TestMovementApprove_TransfersStock(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, itemRepo, stockRepo, movementRepo := newRepos()

	origin := mustCreateLocation(t, ctx, locationRepo)
	dest := mustCreateLocation(t, ctx, locationRepo, testutil.WithLocationType(domain.LocationPatient))
	item := mustCreateItem(t, ctx, itemRepo)
	mustSeedStock(t, ctx, stockRepo, origin.ID, item.ID, 50)

	m := suite.Fixtures.Movement(&origin.ID, dest.ID, testutil.Line(item, 20))
	m.ID = ""
	require.NoError(t, movementRepo.Create(ctx, m))
	assert.Equal(t, domain.StatusPending, m.Status)

	// Pending movements reserve nothing
	qty, err := stockRepo.GetQuantity(ctx, origin.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, qty)

	approved, err := movementRepo.Approve(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)

	originQty, err := stockRepo.GetQuantity(ctx, origin.ID, item.ID)
	require.NoError(t, err)
	destQty, err := stockRepo.GetQuantity(ctx, dest.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, originQty)
	assert.Equal(t, 20, destQty)

	// Approval conserves the item total
	total, err := stockRepo.TotalForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, total)
}

func TestMovementApprove_InsufficientStockLeavesPending(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, itemRepo, stockRepo, movementRepo := newRepos()

	origin := mustCreateLocation(t, ctx, locationRepo)
	dest := mustCreateLocation(t, ctx, locationRepo)
	item := mustCreateItem(t, ctx, itemRepo)
	mustSeedStock(t, ctx, stockRepo, origin.ID, item.ID, 5)

	m := suite.Fixtures.Movement(&origin.ID, dest.ID, testutil.Line(item, 20))
	m.ID = ""
	require.NoError(t, movementRepo.Create(ctx, m))

	_, err := movementRepo.Approve(ctx, m.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInsufficientStock)

	// Everything rolled back: stock untouched, movement still pending
	qty, err := stockRepo.GetQuantity(ctx, origin.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, qty)

	reloaded, err := movementRepo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, reloaded.Status)

	// A corrected retry succeeds
	mustSeedStock(t, ctx, stockRepo, origin.ID, item.ID, 15)
	_, err = movementRepo.Approve(ctx, m.ID)
	require.NoError(t, err)
}

func TestMovementApprove_SupplierReceiptInjectsStock(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, itemRepo, stockRepo, movementRepo := newRepos()

	dest := mustCreateLocation(t, ctx, locationRepo)
	item := mustCreateItem(t, ctx, itemRepo)

	// No origin: approval needs no stock anywhere
	m := suite.Fixtures.Movement(nil, dest.ID, testutil.Line(item, 100))
	m.ID = ""
	require.NoError(t, movementRepo.Create(ctx, m))

	approved, err := movementRepo.Approve(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsSupplierReceipt())

	qty, err := stockRepo.GetQuantity(ctx, dest.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, qty)

	total, err := stockRepo.TotalForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, total)
}

func TestMovementApprove_OnlyOnce(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, itemRepo, stockRepo, movementRepo := newRepos()

	dest := mustCreateLocation(t, ctx, locationRepo)
	item := mustCreateItem(t, ctx, itemRepo)

	m := suite.Fixtures.Movement(nil, dest.ID, testutil.Line(item, 10))
	m.ID = ""
	require.NoError(t, movementRepo.Create(ctx, m))

	_, err := movementRepo.Approve(ctx, m.ID)
	require.NoError(t, err)

	_, err = movementRepo.Approve(ctx, m.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)

	// The double approval must not double the stock
	qty, err := stockRepo.GetQuantity(ctx, dest.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, qty)
}

func TestMovementReject(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, itemRepo, stockRepo, movementRepo := newRepos()

	origin := mustCreateLocation(t, ctx, locationRepo)
	dest := mustCreateLocation(t, ctx, locationRepo)
	item := mustCreateItem(t, ctx, itemRepo)
	mustSeedStock(t, ctx, stockRepo, origin.ID, item.ID, 50)

	m := suite.Fixtures.Movement(&origin.ID, dest.ID, testutil.Line(item, 20))
	m.ID = ""
	require.NoError(t, movementRepo.Create(ctx, m))

	rejected, err := movementRepo.Reject(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)

	// No ledger effect
	qty, err := stockRepo.GetQuantity(ctx, origin.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, qty)

	// Rejected is terminal
	_, err = movementRepo.Approve(ctx, m.ID)
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
	_, err = movementRepo.Reject(ctx, m.ID)
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
}

func TestMovementReportLoss_PartialLoss(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, itemRepo, stockRepo, movementRepo := newRepos()

	origin := mustCreateLocation(t, ctx, locationRepo)
	dest := mustCreateLocation(t, ctx, locationRepo)
	item := mustCreateItem(t, ctx, itemRepo)
	other := mustCreateItem(t, ctx, itemRepo)
	mustSeedStock(t, ctx, stockRepo, origin.ID, item.ID, 50)
	mustSeedStock(t, ctx, stockRepo, origin.ID, other.ID, 10)

	m := suite.Fixtures.Movement(&origin.ID, dest.ID, testutil.Line(item, 20), testutil.Line(other, 10))
	m.ID = ""
	require.NoError(t, movementRepo.Create(ctx, m))
	_, err := movementRepo.Approve(ctx, m.ID)
	require.NoError(t, err)

	obs := "box damaged in transit"
	settled, err := movementRepo.ReportLoss(ctx, m.ID, &obs, []domain.LostItem{
		{ItemID: item.ID, Quantity: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLost, settled.Status)
	assert.True(t, settled.Settled())
	require.NotNil(t, settled.LossObservation)
	assert.Equal(t, obs, *settled.LossObservation)

	// The loss debits the destination only; the origin keeps its balance
	destQty, err := stockRepo.GetQuantity(ctx, dest.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 16, destQty)

	originQty, err := stockRepo.GetQuantity(ctx, origin.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, originQty)

	// The untouched line is unaffected
	otherQty, err := stockRepo.GetQuantity(ctx, dest.ID, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, otherQty)

	// Lost quantities are recorded per line
	reloaded, err := movementRepo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	lost := reloaded.ItemsLost()
	require.Len(t, lost, 1)
	assert.Equal(t, item.ID, lost[0].ItemID)
	assert.Equal(t, 4, lost[0].Quantity)
}

func TestMovementReportLoss_FullReceiptKeepsApproved(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, itemRepo, stockRepo, movementRepo := newRepos()

	dest := mustCreateLocation(t, ctx, locationRepo)
	item := mustCreateItem(t, ctx, itemRepo)

	m := suite.Fixtures.Movement(nil, dest.ID, testutil.Line(item, 30))
	m.ID = ""
	require.NoError(t, movementRepo.Create(ctx, m))
	_, err := movementRepo.Approve(ctx, m.ID)
	require.NoError(t, err)

	// All-zero report confirms full receipt
	settled, err := movementRepo.ReportLoss(ctx, m.ID, nil, []domain.LostItem{
		{ItemID: item.ID, Quantity: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, settled.Status)
	assert.True(t, settled.Settled())

	qty, err := stockRepo.GetQuantity(ctx, dest.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, qty)

	// Settled movements admit no second report
	_, err = movementRepo.ReportLoss(ctx, m.ID, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
}

func TestMovementReportLoss_InvalidReports(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, itemRepo, _, movementRepo := newRepos()

	dest := mustCreateLocation(t, ctx, locationRepo)
	item := mustCreateItem(t, ctx, itemRepo)

	m := suite.Fixtures.Movement(nil, dest.ID, testutil.Line(item, 10))
	m.ID = ""
	require.NoError(t, movementRepo.Create(ctx, m))

	// Loss reports require an approved movement
	_, err := movementRepo.ReportLoss(ctx, m.ID, nil, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)

	_, err = movementRepo.Approve(ctx, m.ID)
	require.NoError(t, err)

	for name, lost := range map[string][]domain.LostItem{
		"unknown item":   {{ItemID: uuid.New().String(), Quantity: 1}},
		"exceeds moved":  {{ItemID: item.ID, Quantity: 11}},
		"negative":       {{ItemID: item.ID, Quantity: -1}},
		"duplicate line": {{ItemID: item.ID, Quantity: 1}, {ItemID: item.ID, Quantity: 2}},
	} {
		_, err := movementRepo.ReportLoss(ctx, m.ID, nil, lost)
		assert.ErrorIs(t, err, errors.ErrInvalidLossQuantity, "case %q", name)
	}

	// The rejected reports must not have settled the movement
	reloaded, err := movementRepo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Settled())

	// Total loss is still possible
	settled, err := movementRepo.ReportLoss(ctx, m.ID, nil, []domain.LostItem{{ItemID: item.ID, Quantity: 10}})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLost, settled.Status)
}

func TestMovementGetByID_NotFound(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	_, _, _, movementRepo := newRepos()

	_, err := movementRepo.GetByID(ctx, uuid.New().String())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestMovementList_FilterByStatus(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, itemRepo, _, movementRepo := newRepos()

	dest := mustCreateLocation(t, ctx, locationRepo)
	item := mustCreateItem(t, ctx, itemRepo)

	for i := 0; i < 3; i++ {
		m := suite.Fixtures.Movement(nil, dest.ID, testutil.Line(item, 5))
		m.ID = ""
		require.NoError(t, movementRepo.Create(ctx, m))
		if i == 0 {
			_, err := movementRepo.Approve(ctx, m.ID)
			require.NoError(t, err)
		}
	}

	pending, total, err := movementRepo.List(ctx, 1, 20, string(domain.StatusPending))
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, pending, 2)
	for _, m := range pending {
		assert.Equal(t, domain.StatusPending, m.Status)
		assert.Len(t, m.Items, 1)
	}

	all, total, err := movementRepo.List(ctx, 1, 20, "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)
}
