package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careflow/careflow-backend/internal/logistics/domain"
	"github.com/careflow/careflow-backend/pkg/database"
	"github.com/careflow/careflow-backend/pkg/errors"
)

// LocationRepository handles location persistence
type LocationRepository struct {
	db *database.DB
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *database.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// Create inserts a new location
func (r *LocationRepository) Create(ctx context.Context, loc *domain.Location) error {
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}

	query := `
		INSERT INTO locations (id, name, type, address, linked_entity_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		loc.ID, loc.Name, loc.Type, loc.Address, loc.LinkedEntityID,
	).Scan(&loc.CreatedAt, &loc.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID returns a location by ID
func (r *LocationRepository) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	var loc domain.Location
	query := `
		SELECT id, name, type, address, linked_entity_id, created_at, updated_at
		FROM locations WHERE id = $1
	`
	err := r.db.GetContext(ctx, &loc, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("location")
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// List returns all locations, optionally filtered by type
func (r *LocationRepository) List(ctx context.Context, locationType string) ([]*domain.Location, error) {
	var locations []*domain.Location

	query := `
		SELECT id, name, type, address, linked_entity_id, created_at, updated_at
		FROM locations
	`
	args := []interface{}{}
	if locationType != "" {
		query += ` WHERE type = $1`
		args = append(args, locationType)
	}
	query += ` ORDER BY name`

	if err := r.db.SelectContext(ctx, &locations, query, args...); err != nil {
		return nil, err
	}
	return locations, nil
}

// Remove deletes a location. A location still holding stock cannot be
// removed; zero-quantity ledger entries are swept together with the row.
// The stock check and the delete run in one transaction so a concurrent
// credit cannot slip in between them.
func (r *LocationRepository) Remove(ctx context.Context, id string) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var quantities []int
		err := tx.SelectContext(ctx, &quantities, `
			SELECT quantity FROM stock_entries
			WHERE location_id = $1 FOR UPDATE
		`, id)
		if err != nil {
			return err
		}
		for _, q := range quantities {
			if q > 0 {
				return errors.LocationInUse(id)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM stock_entries WHERE location_id = $1`, id); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM locations WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return errors.NotFound("location")
		}
		return nil
	})
}
