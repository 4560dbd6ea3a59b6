package service

import (
	"context"

	"github.com/careflow/careflow-backend/internal/logistics/domain"
	"github.com/careflow/careflow-backend/internal/logistics/repository"
	"github.com/careflow/careflow-backend/pkg/logger"
)

// InventoryService is the read side: per-item balances across locations
// derived from the stock ledger, classified against catalog thresholds.
type InventoryService struct {
	itemRepo     *repository.ItemRepository
	locationRepo *repository.LocationRepository
	stockRepo    *repository.StockRepository
	logger       *logger.Logger
}

// NewInventoryService creates a new inventory view service
func NewInventoryService(
	itemRepo *repository.ItemRepository,
	locationRepo *repository.LocationRepository,
	stockRepo *repository.StockRepository,
	log *logger.Logger,
) *InventoryService {
	return &InventoryService{
		itemRepo:     itemRepo,
		locationRepo: locationRepo,
		stockRepo:    stockRepo,
		logger:       log,
	}
}

// LocationStock is one location's share of an item balance
type LocationStock struct {
	LocationID   string `json:"location_id"`
	LocationName string `json:"location_name"`
	Quantity     int    `json:"quantity"`
}

// ItemBalance is an item's agency-wide position: the total across all
// locations, its classification against the item's minimum stock and the
// per-location breakdown of non-zero holdings.
type ItemBalance struct {
	*domain.Item
	TotalQuantity int             `json:"total_quantity"`
	Status        string          `json:"status"`
	Locations     []LocationStock `json:"locations"`
}

// Overview returns the balance of every catalog item, including items
// with no stock anywhere, which report zero and critical status.
func (s *InventoryService) Overview(ctx context.Context) ([]*ItemBalance, error) {
	items, err := s.itemRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	totals, err := s.stockRepo.Totals(ctx)
	if err != nil {
		return nil, err
	}
	totalByItem := make(map[string]int, len(totals))
	for _, t := range totals {
		totalByItem[t.ItemID] = t.Total
	}

	breakdown, err := s.stockRepo.Breakdown(ctx)
	if err != nil {
		return nil, err
	}
	locationsByItem := make(map[string][]LocationStock)
	for _, row := range breakdown {
		locationsByItem[row.ItemID] = append(locationsByItem[row.ItemID], LocationStock{
			LocationID:   row.LocationID,
			LocationName: row.LocationName,
			Quantity:     row.Quantity,
		})
	}

	balances := make([]*ItemBalance, len(items))
	for i, item := range items {
		total := totalByItem[item.ID]
		balances[i] = &ItemBalance{
			Item:          item,
			TotalQuantity: total,
			Status:        domain.StockStatus(total, item.MinStock),
			Locations:     locationsByItem[item.ID],
		}
	}

	return balances, nil
}

// ItemBalance returns one item's agency-wide position
func (s *InventoryService) ItemBalance(ctx context.Context, itemID string) (*ItemBalance, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	total, err := s.stockRepo.TotalForItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.stockRepo.Breakdown(ctx)
	if err != nil {
		return nil, err
	}
	var locations []LocationStock
	for _, row := range breakdown {
		if row.ItemID == itemID {
			locations = append(locations, LocationStock{
				LocationID:   row.LocationID,
				LocationName: row.LocationName,
				Quantity:     row.Quantity,
			})
		}
	}

	return &ItemBalance{
		Item:          item,
		TotalQuantity: total,
		Status:        domain.StockStatus(total, item.MinStock),
		Locations:     locations,
	}, nil
}

// LocationInventory returns the items held at one location with their
// quantities. Zero-quantity entries are equivalent to absent ones and
// never appear.
func (s *InventoryService) LocationInventory(ctx context.Context, locationID string) (*domain.Location, []repository.ItemQuantity, error) {
	loc, err := s.locationRepo.GetByID(ctx, locationID)
	if err != nil {
		return nil, nil, err
	}

	holdings, err := s.stockRepo.TotalsForLocation(ctx, locationID)
	if err != nil {
		return nil, nil, err
	}

	return loc, holdings, nil
}
