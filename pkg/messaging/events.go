package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Movement events
	EventMovementCreated  = "logistics.movement.created"
	EventMovementApproved = "logistics.movement.approved"
	EventMovementRejected = "logistics.movement.rejected"
	EventMovementLoss     = "logistics.movement.loss.reported"

	// Stock events
	EventStockLow = "logistics.stock.low"

	// Audit events
	EventAuditLogCreated = "audit.log.created"

	// Registry events (consumed; published by the patient and company services)
	EventPatientCreated = "registry.patient.created"
	EventPatientUpdated = "registry.patient.updated"
	EventPatientDeleted = "registry.patient.deleted"
	EventCompanyCreated = "registry.company.created"
	EventCompanyUpdated = "registry.company.updated"
	EventCompanyDeleted = "registry.company.deleted"
)

// Exchange names
const (
	ExchangeLogisticsEvents = "logistics.events"
	ExchangeAuditEvents     = "audit.events"
	ExchangeRegistryEvents  = "registry.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Movement Events

// MovementLine is one item line of a movement as carried on events
type MovementLine struct {
	ItemID   string `json:"item_id"`
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

// MovementCreatedEvent is published when a movement request is created
type MovementCreatedEvent struct {
	MovementID     string         `json:"movement_id"`
	FromLocationID *string        `json:"from_location_id,omitempty"`
	ToLocationID   string         `json:"to_location_id"`
	Items          []MovementLine `json:"items"`
	RequestedBy    string         `json:"requested_by"`
}

// MovementApprovedEvent is published when a movement is approved and the
// ledger has been mutated
type MovementApprovedEvent struct {
	MovementID     string         `json:"movement_id"`
	FromLocationID *string        `json:"from_location_id,omitempty"`
	ToLocationID   string         `json:"to_location_id"`
	Items          []MovementLine `json:"items"`
	ApprovedBy     string         `json:"approved_by"`
}

// MovementRejectedEvent is published when a movement is rejected
type MovementRejectedEvent struct {
	MovementID string `json:"movement_id"`
	RejectedBy string `json:"rejected_by"`
}

// LostLine is one reported loss line
type LostLine struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// MovementLossEvent is published when transit losses are reported against
// an approved movement. An empty ItemsLost means the movement was confirmed
// fully received.
type MovementLossEvent struct {
	MovementID   string     `json:"movement_id"`
	ToLocationID string     `json:"to_location_id"`
	ItemsLost    []LostLine `json:"items_lost"`
	ReportedBy   string     `json:"reported_by"`
}

// Stock Events

// StockLowEvent is published when a ledger mutation drops an item's total
// quantity to or below its minimum stock threshold
type StockLowEvent struct {
	ItemID        string `json:"item_id"`
	ItemName      string `json:"item_name"`
	TotalQuantity int    `json:"total_quantity"`
	MinStock      int    `json:"min_stock"`
	Status        string `json:"status"` // low or critical
}

// Audit Events

// AuditLogEvent is the audit record emitted to the external append-only
// audit sink for every successful workflow or registry action
type AuditLogEvent struct {
	ActorID     string `json:"actor_id"`
	ActorName   string `json:"actor_name"`
	ActorRole   string `json:"actor_role"`
	Action      string `json:"action"`
	Entity      string `json:"entity"` // "Movement" or "StockLocation"
	EntityID    string `json:"entity_id"`
	Description string `json:"description"`
}

// Registry Events (consumed)

// PatientEvent carries the patient display fields cached locally for
// location pre-fill
type PatientEvent struct {
	PatientID string `json:"patient_id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
}

// CompanyEvent carries the company display fields cached locally for
// location pre-fill
type CompanyEvent struct {
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
}
