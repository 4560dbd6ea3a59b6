package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/careflow/careflow-backend/internal/logistics/domain"
	"github.com/careflow/careflow-backend/pkg/database"
	"github.com/careflow/careflow-backend/pkg/errors"
)

// ItemRepository handles item catalog persistence
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts a new catalog item
func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	query := `
		INSERT INTO items (id, name, category, unit, min_stock)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		item.ID, item.Name, item.Category, item.Unit, item.MinStock,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID returns an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	var item domain.Item
	query := `
		SELECT id, name, category, unit, min_stock, created_at, updated_at
		FROM items WHERE id = $1
	`
	err := r.db.GetContext(ctx, &item, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("item")
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns catalog items with pagination, optionally filtered by category
func (r *ItemRepository) List(ctx context.Context, page, perPage int, category string) ([]*domain.Item, int64, error) {
	offset := (page - 1) * perPage

	countQuery := `SELECT COUNT(*) FROM items`
	listQuery := `
		SELECT id, name, category, unit, min_stock, created_at, updated_at
		FROM items
	`
	args := []interface{}{}
	if category != "" {
		countQuery += ` WHERE category = $1`
		listQuery += ` WHERE category = $1 ORDER BY name LIMIT $2 OFFSET $3`
		args = append(args, category)
	} else {
		listQuery += ` ORDER BY name LIMIT $1 OFFSET $2`
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, perPage, offset)

	var items []*domain.Item
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Update changes an item's mutable fields. Unit and category are immutable
// once the item is referenced by any stock entry or movement line.
func (r *ItemRepository) Update(ctx context.Context, item *domain.Item) error {
	current, err := r.GetByID(ctx, item.ID)
	if err != nil {
		return err
	}

	if item.Unit != current.Unit || item.Category != current.Category {
		referenced, err := r.isReferenced(ctx, item.ID)
		if err != nil {
			return err
		}
		if referenced {
			return errors.Conflict("item unit and category cannot change once the item is in use")
		}
	}

	query := `
		UPDATE items SET name = $2, category = $3, unit = $4, min_stock = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err = r.db.QueryRowxContext(ctx, query,
		item.ID, item.Name, item.Category, item.Unit, item.MinStock,
	).Scan(&item.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("item")
	}
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetAll returns every catalog item ordered by name
func (r *ItemRepository) GetAll(ctx context.Context) ([]*domain.Item, error) {
	var items []*domain.Item
	query := `
		SELECT id, name, category, unit, min_stock, created_at, updated_at
		FROM items ORDER BY name
	`
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ItemRepository) isReferenced(ctx context.Context, itemID string) (bool, error) {
	var referenced bool
	query := `
		SELECT EXISTS (SELECT 1 FROM stock_entries WHERE item_id = $1)
		    OR EXISTS (SELECT 1 FROM movement_items WHERE item_id = $1)
	`
	if err := r.db.GetContext(ctx, &referenced, query, itemID); err != nil {
		return false, err
	}
	return referenced, nil
}
