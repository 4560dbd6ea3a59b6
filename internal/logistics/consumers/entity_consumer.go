package consumers

import (
	"context"

	"github.com/careflow/careflow-backend/internal/logistics/repository"
	"github.com/careflow/careflow-backend/pkg/logger"
	"github.com/careflow/careflow-backend/pkg/messaging"
)

// RegistryEventHandler mirrors patient and company events into the local
// entity cache (testable without RabbitMQ)
type RegistryEventHandler struct {
	cacheRepo *repository.EntityCacheRepository
	logger    *logger.Logger
}

// NewRegistryEventHandler creates a new handler for testing purposes
func NewRegistryEventHandler(cacheRepo *repository.EntityCacheRepository, log *logger.Logger) *RegistryEventHandler {
	return &RegistryEventHandler{
		cacheRepo: cacheRepo,
		logger:    log,
	}
}

// HandleEvent processes a registry event and updates the entity cache
func (h *RegistryEventHandler) HandleEvent(ctx context.Context, event *messaging.Event) error {
	switch event.Type {
	case messaging.EventPatientCreated, messaging.EventPatientUpdated:
		return h.handlePatientUpsert(ctx, event)
	case messaging.EventPatientDeleted:
		return h.handlePatientDeleted(ctx, event)
	case messaging.EventCompanyCreated, messaging.EventCompanyUpdated:
		return h.handleCompanyUpsert(ctx, event)
	case messaging.EventCompanyDeleted:
		return h.handleCompanyDeleted(ctx, event)
	default:
		h.logger.Warn().Str("event_type", event.Type).Msg("unknown event type received")
		return nil
	}
}

// RegistryEventConsumer keeps a local cache of patient and company display
// data so location creation can pre-fill names and delivery addresses
// without a synchronous call to the registry services.
type RegistryEventConsumer struct {
	consumer *messaging.Consumer
	handler  *RegistryEventHandler
	logger   *logger.Logger
}

// NewRegistryEventConsumer creates a new registry event consumer
func NewRegistryEventConsumer(rmq *messaging.RabbitMQ, cacheRepo *repository.EntityCacheRepository, log *logger.Logger) (*RegistryEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "logistics-service.registry-events", log)
	if err != nil {
		return nil, err
	}

	// Subscribe to patient and company events
	if err := consumer.Subscribe(messaging.ExchangeRegistryEvents, "registry.#"); err != nil {
		return nil, err
	}

	handler := NewRegistryEventHandler(cacheRepo, log)

	c := &RegistryEventConsumer{
		consumer: consumer,
		handler:  handler,
		logger:   log,
	}

	// Register handlers for entity cache sync
	consumer.RegisterHandler(messaging.EventPatientCreated, handler.handlePatientUpsert)
	consumer.RegisterHandler(messaging.EventPatientUpdated, handler.handlePatientUpsert)
	consumer.RegisterHandler(messaging.EventPatientDeleted, handler.handlePatientDeleted)
	consumer.RegisterHandler(messaging.EventCompanyCreated, handler.handleCompanyUpsert)
	consumer.RegisterHandler(messaging.EventCompanyUpdated, handler.handleCompanyUpsert)
	consumer.RegisterHandler(messaging.EventCompanyDeleted, handler.handleCompanyDeleted)

	return c, nil
}

// Start starts consuming messages
func (c *RegistryEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (h *RegistryEventHandler) handlePatientUpsert(ctx context.Context, event *messaging.Event) error {
	var data messaging.PatientEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	h.logger.Info().
		Str("patient_id", data.PatientID).
		Str("event_type", event.Type).
		Msg("received patient event")

	return h.cacheRepo.Set(ctx, &repository.CachedEntity{
		EntityID: data.PatientID,
		Kind:     repository.EntityKindPatient,
		Name:     data.Name,
		Address:  optional(data.Address),
	})
}

func (h *RegistryEventHandler) handlePatientDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.PatientEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	h.logger.Info().
		Str("patient_id", data.PatientID).
		Msg("received patient deleted event")

	return h.cacheRepo.Delete(ctx, data.PatientID)
}

func (h *RegistryEventHandler) handleCompanyUpsert(ctx context.Context, event *messaging.Event) error {
	var data messaging.CompanyEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	h.logger.Info().
		Str("company_id", data.CompanyID).
		Str("event_type", event.Type).
		Msg("received company event")

	return h.cacheRepo.Set(ctx, &repository.CachedEntity{
		EntityID: data.CompanyID,
		Kind:     repository.EntityKindCompany,
		Name:     data.Name,
		Address:  optional(data.Address),
	})
}

func (h *RegistryEventHandler) handleCompanyDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.CompanyEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	h.logger.Info().
		Str("company_id", data.CompanyID).
		Msg("received company deleted event")

	return h.cacheRepo.Delete(ctx, data.CompanyID)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
