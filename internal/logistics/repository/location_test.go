package repository_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careflow/careflow-backend/internal/logistics/domain"
	"github.com/careflow/careflow-backend/internal/logistics/repository"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/testutil"
)

func TestLocationCreateAndGet(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, _, _, _ := newRepos()

	entityID := uuid.New().String()
	loc := suite.Fixtures.Location(
		testutil.WithLocationType(domain.LocationPatient),
		testutil.WithLocationName("Erika Mustermann"),
		testutil.WithLinkedEntity(entityID),
	)
	loc.ID = ""
	loc.Address = testutil.PtrString("Hauptstr. 12, Berlin")
	require.NoError(t, locationRepo.Create(ctx, loc))
	assert.NotEmpty(t, loc.ID)
	assert.False(t, loc.CreatedAt.IsZero())

	got, err := locationRepo.GetByID(ctx, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Erika Mustermann", got.Name)
	assert.Equal(t, domain.LocationPatient, got.Type)
	require.NotNil(t, got.LinkedEntityID)
	assert.Equal(t, entityID, *got.LinkedEntityID)
}

func TestLocationList_FilterByType(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, _, _, _ := newRepos()

	mustCreateLocation(t, ctx, locationRepo, testutil.WithLocationType(domain.LocationCompany))
	mustCreateLocation(t, ctx, locationRepo, testutil.WithLocationType(domain.LocationVehicle))
	mustCreateLocation(t, ctx, locationRepo, testutil.WithLocationType(domain.LocationVehicle))

	vehicles, err := locationRepo.List(ctx, string(domain.LocationVehicle))
	require.NoError(t, err)
	assert.Len(t, vehicles, 2)

	all, err := locationRepo.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLocationRemove_ProtectedWhileHoldingStock(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, itemRepo, stockRepo, _ := newRepos()

	loc := mustCreateLocation(t, ctx, locationRepo)
	item := mustCreateItem(t, ctx, itemRepo)
	mustSeedStock(t, ctx, stockRepo, loc.ID, item.ID, 5)

	err := locationRepo.Remove(ctx, loc.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrLocationInUse)

	// Draining the stock unblocks the removal; the zero-quantity ledger
	// entry goes with the location
	require.NoError(t, stockRepo.ApplyDelta(ctx, loc.ID, item.ID, -5))
	require.NoError(t, locationRepo.Remove(ctx, loc.ID))

	_, err = locationRepo.GetByID(ctx, loc.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestLocationRemove_NotFound(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, _, _, _ := newRepos()

	err := locationRepo.Remove(ctx, uuid.New().String())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestItemUpdate_ImmutableOnceReferenced(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	locationRepo, itemRepo, stockRepo, _ := newRepos()

	item := mustCreateItem(t, ctx, itemRepo, testutil.WithUnit("box"))

	// Unreferenced: unit and category may still change
	item.Unit = "piece"
	item.Category = domain.CategoryEquipment
	require.NoError(t, itemRepo.Update(ctx, item))

	loc := mustCreateLocation(t, ctx, locationRepo)
	mustSeedStock(t, ctx, stockRepo, loc.ID, item.ID, 1)

	item.Unit = "pack"
	err := itemRepo.Update(ctx, item)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConflict)
	item.Unit = "piece"

	item.Category = domain.CategoryMedication
	err = itemRepo.Update(ctx, item)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConflict)
	item.Category = domain.CategoryEquipment

	// Other fields stay mutable
	item.Name = "Nitrile gloves"
	item.MinStock = 42
	require.NoError(t, itemRepo.Update(ctx, item))

	got, err := itemRepo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nitrile gloves", got.Name)
	assert.Equal(t, 42, got.MinStock)
	assert.Equal(t, "piece", got.Unit)
	assert.Equal(t, domain.CategoryEquipment, got.Category)
}

func newEntityCacheRepo() *repository.EntityCacheRepository {
	return repository.NewEntityCacheRepository(suite.DB)
}

func newCachedPatient(entityID, name, address string) *repository.CachedEntity {
	return &repository.CachedEntity{
		EntityID: entityID,
		Kind:     repository.EntityKindPatient,
		Name:     name,
		Address:  &address,
	}
}

func TestEntityCacheSetGetDelete(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)

	cacheRepo := newEntityCacheRepo()

	entityID := uuid.New().String()
	require.NoError(t, cacheRepo.Set(ctx, newCachedPatient(entityID, "Max Mustermann", "Ringstr. 5")))

	got, err := cacheRepo.Get(ctx, entityID)
	require.NoError(t, err)
	assert.Equal(t, "Max Mustermann", got.Name)

	// Set is an upsert
	require.NoError(t, cacheRepo.Set(ctx, newCachedPatient(entityID, "Max Meier", "Ringstr. 5")))
	got, err = cacheRepo.Get(ctx, entityID)
	require.NoError(t, err)
	assert.Equal(t, "Max Meier", got.Name)

	require.NoError(t, cacheRepo.Delete(ctx, entityID))
	_, err = cacheRepo.Get(ctx, entityID)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
