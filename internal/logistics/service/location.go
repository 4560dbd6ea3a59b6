package service

import (
	"context"

	"github.com/careflow/careflow-backend/internal/logistics/domain"
	"github.com/careflow/careflow-backend/internal/logistics/events"
	"github.com/careflow/careflow-backend/internal/logistics/repository"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/logger"
)

// LocationService handles stock location business logic
type LocationService struct {
	locationRepo *repository.LocationRepository
	cacheRepo    *repository.EntityCacheRepository
	publisher    *events.LogisticsEventPublisher
	logger       *logger.Logger
}

// NewLocationService creates a new location service
func NewLocationService(
	locationRepo *repository.LocationRepository,
	cacheRepo *repository.EntityCacheRepository,
	publisher *events.LogisticsEventPublisher,
	log *logger.Logger,
) *LocationService {
	return &LocationService{
		locationRepo: locationRepo,
		cacheRepo:    cacheRepo,
		publisher:    publisher,
		logger:       log,
	}
}

// CreateLocationInput carries the fields for registering a location
type CreateLocationInput struct {
	Name           string
	Type           domain.LocationType
	Address        *string
	LinkedEntityID *string
}

// CreateLocation registers a stock location. When the location is linked
// to a patient or company, missing name and address are pre-filled from
// the locally cached registry data. Vehicles never carry an address.
func (s *LocationService) CreateLocation(ctx context.Context, input CreateLocationInput) (*domain.Location, error) {
	if !input.Type.Valid() {
		return nil, errors.Validation(map[string]string{"type": "must be one of company, patient, vehicle"})
	}

	loc := &domain.Location{
		Name:           input.Name,
		Type:           input.Type,
		Address:        input.Address,
		LinkedEntityID: input.LinkedEntityID,
	}

	if input.LinkedEntityID != nil {
		if err := s.prefillFromRegistry(ctx, loc); err != nil {
			return nil, err
		}
	}

	if loc.Type == domain.LocationVehicle {
		loc.Address = nil
	}

	if loc.Name == "" {
		return nil, errors.Validation(map[string]string{"name": "is required"})
	}

	if err := s.locationRepo.Create(ctx, loc); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("location_id", loc.ID).
		Str("type", string(loc.Type)).
		Msg("stock location created")

	s.publisher.PublishLocationCreated(ctx, loc)

	return loc, nil
}

// GetLocation gets a location by ID
func (s *LocationService) GetLocation(ctx context.Context, id string) (*domain.Location, error) {
	return s.locationRepo.GetByID(ctx, id)
}

// ListLocations lists locations, optionally filtered by type
func (s *LocationService) ListLocations(ctx context.Context, locationType string) ([]*domain.Location, error) {
	if locationType != "" && !domain.LocationType(locationType).Valid() {
		return nil, errors.Validation(map[string]string{"type": "must be one of company, patient, vehicle"})
	}
	return s.locationRepo.List(ctx, locationType)
}

// RemoveLocation removes a location. Locations still holding stock are
// protected and the removal is refused.
func (s *LocationService) RemoveLocation(ctx context.Context, id string) error {
	if err := s.locationRepo.Remove(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("location_id", id).Msg("stock location removed")
	s.publisher.PublishLocationRemoved(ctx, id)

	return nil
}

func (s *LocationService) prefillFromRegistry(ctx context.Context, loc *domain.Location) error {
	cached, err := s.cacheRepo.Get(ctx, *loc.LinkedEntityID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			// Registry event may not have arrived yet; caller-provided
			// fields stand on their own.
			return nil
		}
		return err
	}

	switch {
	case loc.Type == domain.LocationPatient && cached.Kind != repository.EntityKindPatient:
		return errors.Validation(map[string]string{"linked_entity_id": "does not reference a patient"})
	case loc.Type == domain.LocationCompany && cached.Kind != repository.EntityKindCompany:
		return errors.Validation(map[string]string{"linked_entity_id": "does not reference a company"})
	case loc.Type == domain.LocationVehicle:
		return errors.Validation(map[string]string{"linked_entity_id": "vehicles cannot be linked to a registry entity"})
	}

	if loc.Name == "" {
		loc.Name = cached.Name
	}
	if loc.Address == nil {
		loc.Address = cached.Address
	}

	return nil
}
