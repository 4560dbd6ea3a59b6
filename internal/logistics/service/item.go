package service

import (
	"context"

	"github.com/careflow/careflow-backend/internal/logistics/domain"
	"github.com/careflow/careflow-backend/internal/logistics/repository"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/logger"
)

// ItemService handles catalog business logic
type ItemService struct {
	itemRepo  *repository.ItemRepository
	stockRepo *repository.StockRepository
	logger    *logger.Logger
}

// NewItemService creates a new item service
func NewItemService(itemRepo *repository.ItemRepository, stockRepo *repository.StockRepository, log *logger.Logger) *ItemService {
	return &ItemService{
		itemRepo:  itemRepo,
		stockRepo: stockRepo,
		logger:    log,
	}
}

// CreateItem creates a new catalog item
func (s *ItemService) CreateItem(ctx context.Context, item *domain.Item) error {
	if !item.Category.Valid() {
		return errors.Validation(map[string]string{"category": "must be one of medication, supply, equipment"})
	}
	if item.MinStock < 0 {
		return errors.Validation(map[string]string{"min_stock": "must not be negative"})
	}

	if err := s.itemRepo.Create(ctx, item); err != nil {
		return err
	}

	s.logger.Info().
		Str("item_id", item.ID).
		Str("category", string(item.Category)).
		Msg("catalog item created")

	return nil
}

// GetItem gets an item by ID
func (s *ItemService) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	return s.itemRepo.GetByID(ctx, id)
}

// ListItems lists items with pagination, optionally filtered by category
func (s *ItemService) ListItems(ctx context.Context, page, perPage int, category string) ([]*domain.Item, int64, error) {
	if category != "" && !domain.ItemCategory(category).Valid() {
		return nil, 0, errors.Validation(map[string]string{"category": "must be one of medication, supply, equipment"})
	}
	return s.itemRepo.List(ctx, page, perPage, category)
}

// UpdateItem updates a catalog item. Unit and category changes are refused
// once the item is referenced by stock entries or movement lines.
func (s *ItemService) UpdateItem(ctx context.Context, item *domain.Item) error {
	if !item.Category.Valid() {
		return errors.Validation(map[string]string{"category": "must be one of medication, supply, equipment"})
	}
	if item.MinStock < 0 {
		return errors.Validation(map[string]string{"min_stock": "must not be negative"})
	}
	return s.itemRepo.Update(ctx, item)
}
