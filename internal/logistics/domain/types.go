// Package domain holds the logistics entities and the pure rules of the
// stock movement workflow. Nothing here touches the database or the wire;
// repositories and services enforce these rules transactionally.
package domain

import (
	"time"
)

// LocationType classifies a stock-holding location
type LocationType string

const (
	LocationCompany LocationType = "company"
	LocationPatient LocationType = "patient"
	LocationVehicle LocationType = "vehicle"
)

// Valid reports whether the location type is one of the known kinds
func (t LocationType) Valid() bool {
	switch t {
	case LocationCompany, LocationPatient, LocationVehicle:
		return true
	}
	return false
}

// ItemCategory classifies a trackable item
type ItemCategory string

const (
	CategoryMedication ItemCategory = "medication"
	CategorySupply     ItemCategory = "supply"
	CategoryEquipment  ItemCategory = "equipment"
)

// Valid reports whether the category is one of the known kinds
func (c ItemCategory) Valid() bool {
	switch c {
	case CategoryMedication, CategorySupply, CategoryEquipment:
		return true
	}
	return false
}

// MovementStatus is the lifecycle state of a movement
type MovementStatus string

const (
	StatusPending  MovementStatus = "pending"
	StatusApproved MovementStatus = "approved"
	StatusRejected MovementStatus = "rejected"
	StatusLost     MovementStatus = "lost"
	// StatusCompleted is reserved. No transition produces it today; an
	// approved movement settled without losses stays approved.
	StatusCompleted MovementStatus = "completed"
)

// Location is a stock-holding location: a company warehouse, a patient's
// home, or a vehicle
type Location struct {
	ID             string       `json:"id" db:"id"`
	Name           string       `json:"name" db:"name"`
	Type           LocationType `json:"type" db:"type"`
	Address        *string      `json:"address,omitempty" db:"address"`
	LinkedEntityID *string      `json:"linked_entity_id,omitempty" db:"linked_entity_id"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

// Item is a trackable catalog entry. MinStock drives low-stock
// classification only; it never gates movements.
type Item struct {
	ID        string       `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Category  ItemCategory `json:"category" db:"category"`
	Unit      string       `json:"unit" db:"unit"`
	MinStock  int          `json:"min_stock" db:"min_stock"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// StockEntry is one cell of the ledger matrix. Absent entries and entries
// with quantity zero are equivalent on reads.
type StockEntry struct {
	LocationID string `json:"location_id" db:"location_id"`
	ItemID     string `json:"item_id" db:"item_id"`
	Quantity   int    `json:"quantity" db:"quantity"`
}

// StockOp is a single delta against one ledger granule
type StockOp struct {
	LocationID string
	ItemID     string
	Delta      int
}

// MovementItem is a line within a movement. ItemName is denormalized at
// creation time so the record stays readable even if the catalog entry is
// later renamed.
type MovementItem struct {
	MovementID   string `json:"-" db:"movement_id"`
	ItemID       string `json:"item_id" db:"item_id"`
	ItemName     string `json:"item_name" db:"item_name"`
	Quantity     int    `json:"quantity" db:"quantity"`
	QuantityLost int    `json:"quantity_lost" db:"quantity_lost"`
}

// LostItem is the reported transit loss for one movement line
type LostItem struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// Movement is a transfer request between two locations, or from an
// external supplier into a location when FromLocationID is nil.
type Movement struct {
	ID              string         `json:"id" db:"id"`
	FromLocationID  *string        `json:"from_location_id,omitempty" db:"from_location_id"`
	ToLocationID    string         `json:"to_location_id" db:"to_location_id"`
	Status          MovementStatus `json:"status" db:"status"`
	RequestedBy     string         `json:"requested_by" db:"requested_by"`
	Observation     *string        `json:"observation,omitempty" db:"observation"`
	LossObservation *string        `json:"loss_observation,omitempty" db:"loss_observation"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
	SettledAt       *time.Time     `json:"settled_at,omitempty" db:"settled_at"`
	Items           []MovementItem `json:"items" db:"-"`
}

// IsSupplierReceipt reports whether the movement injects stock from an
// external supplier (no origin debit on approval)
func (m *Movement) IsSupplierReceipt() bool {
	return m.FromLocationID == nil
}

// Settled reports whether the movement has reached a state in which no
// further stock-affecting transition is legal
func (m *Movement) Settled() bool {
	return m.SettledAt != nil
}

// ItemsLost returns the recorded losses, one entry per line with a
// positive lost quantity
func (m *Movement) ItemsLost() []LostItem {
	var lost []LostItem
	for _, line := range m.Items {
		if line.QuantityLost > 0 {
			lost = append(lost, LostItem{ItemID: line.ItemID, Quantity: line.QuantityLost})
		}
	}
	return lost
}
