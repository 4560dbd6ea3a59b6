package events

import (
	"context"
	"fmt"

	"github.com/careflow/careflow-backend/internal/logistics/domain"
	"github.com/careflow/careflow-backend/pkg/actor"
	"github.com/careflow/careflow-backend/pkg/logger"
	"github.com/careflow/careflow-backend/pkg/messaging"
)

// LogisticsEventPublisher publishes movement and stock events plus the
// audit records every successful workflow action owes the external audit
// sink. Publishing is fire-and-forget: a broker hiccup is logged, never
// surfaced to the caller, because the ledger mutation has already
// committed.
type LogisticsEventPublisher struct {
	events *messaging.Publisher
	audit  *messaging.Publisher
	logger *logger.Logger
}

// NewLogisticsEventPublisher creates a new logistics event publisher
func NewLogisticsEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*LogisticsEventPublisher, error) {
	events, err := messaging.NewPublisher(rmq, messaging.ExchangeLogisticsEvents, "logistics-service", log)
	if err != nil {
		return nil, err
	}

	audit, err := messaging.NewPublisher(rmq, messaging.ExchangeAuditEvents, "logistics-service", log)
	if err != nil {
		return nil, err
	}

	return &LogisticsEventPublisher{
		events: events,
		audit:  audit,
		logger: log,
	}, nil
}

// PublishMovementCreated publishes a movement created event
func (p *LogisticsEventPublisher) PublishMovementCreated(ctx context.Context, m *domain.Movement) {
	if p == nil {
		return
	}
	data := messaging.MovementCreatedEvent{
		MovementID:     m.ID,
		FromLocationID: m.FromLocationID,
		ToLocationID:   m.ToLocationID,
		Items:          movementLines(m),
		RequestedBy:    m.RequestedBy,
	}
	if err := p.events.Publish(ctx, messaging.EventMovementCreated, data); err != nil {
		p.logger.Error().Err(err).Str("movement_id", m.ID).Msg("failed to publish movement created event")
	}
	p.publishAudit(ctx, "movement.create", "Movement", m.ID,
		fmt.Sprintf("movement requested to location %s with %d line(s)", m.ToLocationID, len(m.Items)))
}

// PublishMovementApproved publishes a movement approved event
func (p *LogisticsEventPublisher) PublishMovementApproved(ctx context.Context, m *domain.Movement) {
	if p == nil {
		return
	}
	data := messaging.MovementApprovedEvent{
		MovementID:     m.ID,
		FromLocationID: m.FromLocationID,
		ToLocationID:   m.ToLocationID,
		Items:          movementLines(m),
		ApprovedBy:     actorID(ctx),
	}
	if err := p.events.Publish(ctx, messaging.EventMovementApproved, data); err != nil {
		p.logger.Error().Err(err).Str("movement_id", m.ID).Msg("failed to publish movement approved event")
	}
	p.publishAudit(ctx, "movement.approve", "Movement", m.ID,
		fmt.Sprintf("movement approved, stock moved to location %s", m.ToLocationID))
}

// PublishMovementRejected publishes a movement rejected event
func (p *LogisticsEventPublisher) PublishMovementRejected(ctx context.Context, m *domain.Movement) {
	if p == nil {
		return
	}
	data := messaging.MovementRejectedEvent{
		MovementID: m.ID,
		RejectedBy: actorID(ctx),
	}
	if err := p.events.Publish(ctx, messaging.EventMovementRejected, data); err != nil {
		p.logger.Error().Err(err).Str("movement_id", m.ID).Msg("failed to publish movement rejected event")
	}
	p.publishAudit(ctx, "movement.reject", "Movement", m.ID, "movement rejected")
}

// PublishMovementLoss publishes a loss report event. An empty loss list
// means the movement was confirmed fully received.
func (p *LogisticsEventPublisher) PublishMovementLoss(ctx context.Context, m *domain.Movement) {
	if p == nil {
		return
	}
	lost := make([]messaging.LostLine, 0, len(m.Items))
	for _, l := range m.ItemsLost() {
		lost = append(lost, messaging.LostLine{ItemID: l.ItemID, Quantity: l.Quantity})
	}

	data := messaging.MovementLossEvent{
		MovementID:   m.ID,
		ToLocationID: m.ToLocationID,
		ItemsLost:    lost,
		ReportedBy:   actorID(ctx),
	}
	if err := p.events.Publish(ctx, messaging.EventMovementLoss, data); err != nil {
		p.logger.Error().Err(err).Str("movement_id", m.ID).Msg("failed to publish movement loss event")
	}

	description := "movement confirmed fully received"
	if len(lost) > 0 {
		description = fmt.Sprintf("transit loss reported on %d line(s)", len(lost))
	}
	p.publishAudit(ctx, "movement.loss", "Movement", m.ID, description)
}

// PublishStockLow publishes a low stock event
func (p *LogisticsEventPublisher) PublishStockLow(ctx context.Context, item *domain.Item, totalQuantity int) {
	if p == nil {
		return
	}
	data := messaging.StockLowEvent{
		ItemID:        item.ID,
		ItemName:      item.Name,
		TotalQuantity: totalQuantity,
		MinStock:      item.MinStock,
		Status:        domain.StockStatus(totalQuantity, item.MinStock),
	}
	if err := p.events.Publish(ctx, messaging.EventStockLow, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", item.ID).Msg("failed to publish stock low event")
	}
}

// PublishLocationCreated emits the audit record for a new stock location
func (p *LogisticsEventPublisher) PublishLocationCreated(ctx context.Context, loc *domain.Location) {
	if p == nil {
		return
	}
	p.publishAudit(ctx, "location.create", "StockLocation", loc.ID,
		fmt.Sprintf("stock location %q (%s) created", loc.Name, loc.Type))
}

// PublishLocationRemoved emits the audit record for a removed stock location
func (p *LogisticsEventPublisher) PublishLocationRemoved(ctx context.Context, locationID string) {
	if p == nil {
		return
	}
	p.publishAudit(ctx, "location.remove", "StockLocation", locationID, "stock location removed")
}

func (p *LogisticsEventPublisher) publishAudit(ctx context.Context, action, entity, entityID, description string) {
	a := actor.FromContext(ctx)
	if a == nil {
		a = actor.SystemActor()
	}

	data := messaging.AuditLogEvent{
		ActorID:     a.ID,
		ActorName:   a.Name,
		ActorRole:   a.Role,
		Action:      action,
		Entity:      entity,
		EntityID:    entityID,
		Description: description,
	}
	if err := p.audit.Publish(ctx, messaging.EventAuditLogCreated, data); err != nil {
		p.logger.Error().Err(err).Str("action", action).Str("entity_id", entityID).Msg("failed to publish audit event")
	}
}

func movementLines(m *domain.Movement) []messaging.MovementLine {
	lines := make([]messaging.MovementLine, len(m.Items))
	for i, line := range m.Items {
		lines[i] = messaging.MovementLine{
			ItemID:   line.ItemID,
			ItemName: line.ItemName,
			Quantity: line.Quantity,
		}
	}
	return lines
}

func actorID(ctx context.Context) string {
	if a := actor.FromContext(ctx); a != nil {
		return a.ID
	}
	return actor.SystemActor().ID
}
