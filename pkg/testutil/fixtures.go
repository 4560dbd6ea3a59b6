package testutil

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/careflow/careflow-backend/internal/logistics/domain"
)

// FixtureFactory builds domain fixtures with unique names per call
type FixtureFactory struct {
	mu  sync.Mutex
	seq int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{}
}

func (f *FixtureFactory) nextSeq() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return f.seq
}

// Location builds a location fixture. Defaults to a company warehouse.
func (f *FixtureFactory) Location(opts ...func(*domain.Location)) *domain.Location {
	n := f.nextSeq()
	loc := &domain.Location{
		ID:   uuid.New().String(),
		Name: fmt.Sprintf("Warehouse %d", n),
		Type: domain.LocationCompany,
	}
	for _, opt := range opts {
		opt(loc)
	}
	return loc
}

// WithLocationType sets the location type
func WithLocationType(t domain.LocationType) func(*domain.Location) {
	return func(l *domain.Location) {
		l.Type = t
	}
}

// WithLocationName sets the location name
func WithLocationName(name string) func(*domain.Location) {
	return func(l *domain.Location) {
		l.Name = name
	}
}

// WithLinkedEntity links the location to a registry entity
func WithLinkedEntity(entityID string) func(*domain.Location) {
	return func(l *domain.Location) {
		l.LinkedEntityID = &entityID
	}
}

// Item builds a catalog item fixture. Defaults to a supply with a
// minimum stock of 10.
func (f *FixtureFactory) Item(opts ...func(*domain.Item)) *domain.Item {
	n := f.nextSeq()
	item := &domain.Item{
		ID:       uuid.New().String(),
		Name:     fmt.Sprintf("Test Item %d", n),
		Category: domain.CategorySupply,
		Unit:     "piece",
		MinStock: 10,
	}
	for _, opt := range opts {
		opt(item)
	}
	return item
}

// WithCategory sets the item category
func WithCategory(c domain.ItemCategory) func(*domain.Item) {
	return func(i *domain.Item) {
		i.Category = c
	}
}

// WithMinStock sets the item's minimum stock threshold
func WithMinStock(min int) func(*domain.Item) {
	return func(i *domain.Item) {
		i.MinStock = min
	}
}

// WithUnit sets the item unit
func WithUnit(unit string) func(*domain.Item) {
	return func(i *domain.Item) {
		i.Unit = unit
	}
}

// Movement builds a pending movement fixture between the given locations
// with one line per item
func (f *FixtureFactory) Movement(from *string, to string, items ...domain.MovementItem) *domain.Movement {
	return &domain.Movement{
		ID:             uuid.New().String(),
		FromLocationID: from,
		ToLocationID:   to,
		Status:         domain.StatusPending,
		RequestedBy:    uuid.New().String(),
		Items:          items,
	}
}

// Line builds one movement line
func Line(item *domain.Item, quantity int) domain.MovementItem {
	return domain.MovementItem{
		ItemID:   item.ID,
		ItemName: item.Name,
		Quantity: quantity,
	}
}
