package consumers_test

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careflow/careflow-backend/internal/logistics/consumers"
	"github.com/careflow/careflow-backend/internal/logistics/repository"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/messaging"
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
		panic("failed to create integration suite: " + err.Error())
	}

	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

func newHandler() (*consumers.RegistryEventHandler, *repository.EntityCacheRepository) {
	cacheRepo := repository.NewEntityCacheRepository(suite.DB)
	return consumers.NewRegistryEventHandler(cacheRepo, suite.Logger), cacheRepo
}

func registryEvent(t *testing.T, eventType string, data interface{}) *messaging.Event {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	return &messaging.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    "patient-service",
		Timestamp: time.Now(),
		Data:      payload,
	}
}

func TestRegistryEventHandler_PatientLifecycle(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)
	handler, cacheRepo := newHandler()

	patientID := uuid.New().String()

	t.Run("caches patient on created event", func(t *testing.T) {
		event := registryEvent(t, messaging.EventPatientCreated, messaging.PatientEvent{
			PatientID: patientID,
			Name:      "Herta Mayer",
			Address:   "Lindenstr. 12, Bremen",
		})
		require.NoError(t, handler.HandleEvent(ctx, event))

		cached, err := cacheRepo.Get(ctx, patientID)
		require.NoError(t, err)
		assert.Equal(t, repository.EntityKindPatient, cached.Kind)
		assert.Equal(t, "Herta Mayer", cached.Name)
		require.NotNil(t, cached.Address)
		assert.Equal(t, "Lindenstr. 12, Bremen", *cached.Address)
	})

	t.Run("updated event overwrites the cached entry", func(t *testing.T) {
		event := registryEvent(t, messaging.EventPatientUpdated, messaging.PatientEvent{
			PatientID: patientID,
			Name:      "Herta Mayer-Schulz",
		})
		require.NoError(t, handler.HandleEvent(ctx, event))

		cached, err := cacheRepo.Get(ctx, patientID)
		require.NoError(t, err)
		assert.Equal(t, "Herta Mayer-Schulz", cached.Name)
		assert.Nil(t, cached.Address)
	})

	t.Run("deleted event evicts the entry", func(t *testing.T) {
		event := registryEvent(t, messaging.EventPatientDeleted, messaging.PatientEvent{
			PatientID: patientID,
		})
		require.NoError(t, handler.HandleEvent(ctx, event))

		_, err := cacheRepo.Get(ctx, patientID)
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})
}

func TestRegistryEventHandler_CompanyEvents(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)
	handler, cacheRepo := newHandler()

	companyID := uuid.New().String()

	event := registryEvent(t, messaging.EventCompanyCreated, messaging.CompanyEvent{
		CompanyID: companyID,
		Name:      "Pflegedienst Nordlicht GmbH",
		Address:   "Hafenstr. 3, Hamburg",
	})
	require.NoError(t, handler.HandleEvent(ctx, event))

	cached, err := cacheRepo.Get(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, repository.EntityKindCompany, cached.Kind)
	assert.Equal(t, "Pflegedienst Nordlicht GmbH", cached.Name)
}

func TestRegistryEventHandler_UnknownEventIgnored(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)
	handler, _ := newHandler()

	event := registryEvent(t, "registry.patient.archived", messaging.PatientEvent{
		PatientID: uuid.New().String(),
	})
	// Unknown types are acked, not requeued
	require.NoError(t, handler.HandleEvent(ctx, event))
}

func TestRegistryEventHandler_MalformedPayload(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()
	suite.Reset(t, ctx)
	handler, _ := newHandler()

	event := &messaging.Event{
		ID:        uuid.New().String(),
		Type:      messaging.EventPatientCreated,
		Timestamp: time.Now(),
		Data:      json.RawMessage(`{"patient_id": 42}`),
	}
	assert.Error(t, handler.HandleEvent(ctx, event))
}
