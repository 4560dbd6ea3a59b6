package repository

import (
	"context"
	"database/sql"

	"github.com/careflow/careflow-backend/pkg/database"
	"github.com/careflow/careflow-backend/pkg/errors"
)

// Cached entity kinds
const (
	EntityKindPatient = "patient"
	EntityKindCompany = "company"
)

// CachedEntity is a patient or company record synced from registry events.
// Only the display fields needed to pre-fill a new location are kept; the
// registries stay the source of truth.
type CachedEntity struct {
	EntityID string  `db:"entity_id" json:"entity_id"`
	Kind     string  `db:"kind" json:"kind"`
	Name     string  `db:"name" json:"name"`
	Address  *string `db:"address" json:"address,omitempty"`
}

// EntityCacheRepository handles entity cache persistence
type EntityCacheRepository struct {
	db *database.DB
}

// NewEntityCacheRepository creates a new entity cache repository
func NewEntityCacheRepository(db *database.DB) *EntityCacheRepository {
	return &EntityCacheRepository{db: db}
}

// Set creates or updates a cached entity
func (r *EntityCacheRepository) Set(ctx context.Context, entity *CachedEntity) error {
	query := `
		INSERT INTO entity_cache (entity_id, kind, name, address, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (entity_id)
		DO UPDATE SET kind = $2, name = $3, address = $4, updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, entity.EntityID, entity.Kind, entity.Name, entity.Address)
	return err
}

// Get gets a cached entity by ID
func (r *EntityCacheRepository) Get(ctx context.Context, entityID string) (*CachedEntity, error) {
	var entity CachedEntity
	query := `SELECT entity_id, kind, name, address FROM entity_cache WHERE entity_id = $1`
	err := r.db.GetContext(ctx, &entity, query, entityID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("linked entity")
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// Delete deletes a cached entity
func (r *EntityCacheRepository) Delete(ctx context.Context, entityID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM entity_cache WHERE entity_id = $1`, entityID)
	return err
}
