package service

import (
	"context"

	"github.com/careflow/careflow-backend/internal/logistics/domain"
	"github.com/careflow/careflow-backend/internal/logistics/events"
	"github.com/careflow/careflow-backend/internal/logistics/repository"
	"github.com/careflow/careflow-backend/pkg/actor"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/logger"
)

// MovementService drives the movement workflow: request, approval,
// rejection and loss reporting. Stock is only ever touched through the
// repository's transactional transitions; this layer validates intent,
// denormalizes catalog names and emits events after commit.
type MovementService struct {
	movementRepo *repository.MovementRepository
	locationRepo *repository.LocationRepository
	itemRepo     *repository.ItemRepository
	stockRepo    *repository.StockRepository
	publisher    *events.LogisticsEventPublisher
	logger       *logger.Logger
}

// NewMovementService creates a new movement service
func NewMovementService(
	movementRepo *repository.MovementRepository,
	locationRepo *repository.LocationRepository,
	itemRepo *repository.ItemRepository,
	stockRepo *repository.StockRepository,
	publisher *events.LogisticsEventPublisher,
	log *logger.Logger,
) *MovementService {
	return &MovementService{
		movementRepo: movementRepo,
		locationRepo: locationRepo,
		itemRepo:     itemRepo,
		stockRepo:    stockRepo,
		publisher:    publisher,
		logger:       log,
	}
}

// MovementLineInput is one requested line of a movement
type MovementLineInput struct {
	ItemID   string
	Quantity int
}

// CreateMovementInput carries the fields for requesting a movement. A nil
// FromLocationID requests a supplier receipt.
type CreateMovementInput struct {
	FromLocationID *string
	ToLocationID   string
	Observation    *string
	Items          []MovementLineInput
}

// CreateMovement registers a pending movement request. Stock is not
// checked or reserved here; availability is settled at approval time.
func (s *MovementService) CreateMovement(ctx context.Context, input CreateMovementInput) (*domain.Movement, error) {
	if _, err := s.locationRepo.GetByID(ctx, input.ToLocationID); err != nil {
		return nil, err
	}
	if input.FromLocationID != nil {
		if _, err := s.locationRepo.GetByID(ctx, *input.FromLocationID); err != nil {
			return nil, err
		}
	}

	lines := make([]domain.MovementItem, len(input.Items))
	for i, in := range input.Items {
		item, err := s.itemRepo.GetByID(ctx, in.ItemID)
		if err != nil {
			return nil, err
		}
		lines[i] = domain.MovementItem{
			ItemID:   item.ID,
			ItemName: item.Name,
			Quantity: in.Quantity,
		}
	}

	if err := domain.ValidateNewMovement(input.FromLocationID, input.ToLocationID, lines); err != nil {
		return nil, err
	}

	m := &domain.Movement{
		FromLocationID: input.FromLocationID,
		ToLocationID:   input.ToLocationID,
		Status:         domain.StatusPending,
		RequestedBy:    requestingActor(ctx),
		Observation:    input.Observation,
		Items:          lines,
	}

	if err := s.movementRepo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("movement_id", m.ID).
		Str("to_location_id", m.ToLocationID).
		Bool("supplier_receipt", m.IsSupplierReceipt()).
		Int("lines", len(m.Items)).
		Msg("movement requested")

	s.publisher.PublishMovementCreated(ctx, m)

	return m, nil
}

// GetMovement gets a movement with its lines
func (s *MovementService) GetMovement(ctx context.Context, id string) (*domain.Movement, error) {
	return s.movementRepo.GetByID(ctx, id)
}

// ListMovements lists movements with pagination, optionally filtered by status
func (s *MovementService) ListMovements(ctx context.Context, page, perPage int, status string) ([]*domain.Movement, int64, error) {
	if status != "" {
		switch domain.MovementStatus(status) {
		case domain.StatusPending, domain.StatusApproved, domain.StatusRejected, domain.StatusLost, domain.StatusCompleted:
		default:
			return nil, 0, errors.Validation(map[string]string{"status": "unknown movement status"})
		}
	}
	return s.movementRepo.List(ctx, page, perPage, status)
}

// ApproveMovement approves a pending movement, debiting the origin and
// crediting the destination atomically. Insufficient stock at the origin
// fails the approval and leaves the movement pending.
func (s *MovementService) ApproveMovement(ctx context.Context, id string) (*domain.Movement, error) {
	m, err := s.movementRepo.Approve(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("movement_id", m.ID).
		Str("to_location_id", m.ToLocationID).
		Msg("movement approved")

	s.publisher.PublishMovementApproved(ctx, m)

	return m, nil
}

// RejectMovement rejects a pending movement without touching stock
func (s *MovementService) RejectMovement(ctx context.Context, id string) (*domain.Movement, error) {
	m, err := s.movementRepo.Reject(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("movement_id", m.ID).Msg("movement rejected")

	s.publisher.PublishMovementRejected(ctx, m)

	return m, nil
}

// ReportLoss records the transit outcome of an approved movement. Lost
// quantities are debited from the destination as shrinkage; an empty or
// all-zero report confirms full receipt and settles the movement without
// changing stock.
func (s *MovementService) ReportLoss(ctx context.Context, id string, observation *string, lost []domain.LostItem) (*domain.Movement, error) {
	m, err := s.movementRepo.ReportLoss(ctx, id, observation, lost)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("movement_id", m.ID).
		Str("status", string(m.Status)).
		Int("lost_lines", len(m.ItemsLost())).
		Msg("movement loss reported")

	s.publisher.PublishMovementLoss(ctx, m)

	// Losses are the only operation that shrinks an item's agency-wide
	// total, so the low-stock check lives here.
	for _, l := range m.ItemsLost() {
		s.checkLowStock(ctx, l.ItemID)
	}

	return m, nil
}

func (s *MovementService) checkLowStock(ctx context.Context, itemID string) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return
	}

	total, err := s.stockRepo.TotalForItem(ctx, itemID)
	if err != nil {
		return
	}

	if domain.StockStatus(total, item.MinStock) != domain.StockStatusNormal {
		s.publisher.PublishStockLow(ctx, item, total)
	}
}

func requestingActor(ctx context.Context) string {
	if a := actor.FromContext(ctx); a != nil {
		return a.ID
	}
	return actor.SystemActor().ID
}
