package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careflow/careflow-backend/internal/logistics/domain"
	"github.com/careflow/careflow-backend/pkg/database"
	"github.com/careflow/careflow-backend/pkg/errors"
)

// MovementRepository persists movements and drives their lifecycle. Every
// stock-affecting transition locks the movement row, re-checks the status
// and mutates the ledger in the same transaction, so a transition is
// applied at most once no matter how many callers race on it.
type MovementRepository struct {
	db    *database.DB
	stock *StockRepository
}

// NewMovementRepository creates a new movement repository
func NewMovementRepository(db *database.DB, stock *StockRepository) *MovementRepository {
	return &MovementRepository{db: db, stock: stock}
}

// Create inserts a pending movement with its lines. No ledger effect:
// pending movements reserve nothing.
func (r *MovementRepository) Create(ctx context.Context, m *domain.Movement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.Status = domain.StatusPending

	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO movements (id, from_location_id, to_location_id, status, requested_by, observation)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at, updated_at
		`
		err := tx.QueryRowxContext(ctx, query,
			m.ID, m.FromLocationID, m.ToLocationID, m.Status, m.RequestedBy, m.Observation,
		).Scan(&m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}

		for i := range m.Items {
			m.Items[i].MovementID = m.ID
			_, err := tx.ExecContext(ctx, `
				INSERT INTO movement_items (movement_id, item_id, item_name, quantity)
				VALUES ($1, $2, $3, $4)
			`, m.ID, m.Items[i].ItemID, m.Items[i].ItemName, m.Items[i].Quantity)
			if err != nil {
				if appErr := database.MapPQError(err); appErr != nil {
					return appErr
				}
				return err
			}
		}
		return nil
	})
}

// GetByID returns a movement with its lines
func (r *MovementRepository) GetByID(ctx context.Context, id string) (*domain.Movement, error) {
	var m domain.Movement
	query := `
		SELECT id, from_location_id, to_location_id, status, requested_by,
		       observation, loss_observation, created_at, updated_at, settled_at
		FROM movements WHERE id = $1
	`
	err := r.db.GetContext(ctx, &m, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("movement")
	}
	if err != nil {
		return nil, err
	}

	if err := r.db.SelectContext(ctx, &m.Items, `
		SELECT movement_id, item_id, item_name, quantity, quantity_lost
		FROM movement_items WHERE movement_id = $1 ORDER BY item_name
	`, id); err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns movements with pagination, optionally filtered by status,
// newest first
func (r *MovementRepository) List(ctx context.Context, page, perPage int, status string) ([]*domain.Movement, int64, error) {
	offset := (page - 1) * perPage

	countQuery := `SELECT COUNT(*) FROM movements`
	listQuery := `
		SELECT id, from_location_id, to_location_id, status, requested_by,
		       observation, loss_observation, created_at, updated_at, settled_at
		FROM movements
	`
	args := []interface{}{}
	if status != "" {
		countQuery += ` WHERE status = $1`
		listQuery += ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, status)
	} else {
		listQuery += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, perPage, offset)

	var movements []*domain.Movement
	if err := r.db.SelectContext(ctx, &movements, listQuery, args...); err != nil {
		return nil, 0, err
	}

	for _, m := range movements {
		if err := r.db.SelectContext(ctx, &m.Items, `
			SELECT movement_id, item_id, item_name, quantity, quantity_lost
			FROM movement_items WHERE movement_id = $1 ORDER BY item_name
		`, m.ID); err != nil {
			return nil, 0, err
		}
	}
	return movements, total, nil
}

// Approve transitions a pending movement to approved and moves the stock:
// the origin is debited and the destination credited line by line through
// one ledger batch. Supplier receipts (nil origin) only credit. On
// InsufficientStock the whole transaction rolls back and the movement
// stays pending.
func (r *MovementRepository) Approve(ctx context.Context, id string) (*domain.Movement, error) {
	var approved *domain.Movement

	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		m, err := r.lockMovement(ctx, tx, id)
		if err != nil {
			return err
		}
		if m.Status != domain.StatusPending {
			return errors.InvalidTransition(string(m.Status), string(domain.StatusApproved))
		}

		ops := make([]domain.StockOp, 0, 2*len(m.Items))
		for _, line := range m.Items {
			if m.FromLocationID != nil {
				ops = append(ops, domain.StockOp{
					LocationID: *m.FromLocationID,
					ItemID:     line.ItemID,
					Delta:      -line.Quantity,
				})
			}
			ops = append(ops, domain.StockOp{
				LocationID: m.ToLocationID,
				ItemID:     line.ItemID,
				Delta:      line.Quantity,
			})
		}

		if err := r.stock.ApplyBatchTx(ctx, tx, ops); err != nil {
			return err
		}

		if err := r.setStatus(ctx, tx, m, domain.StatusApproved, nil, false); err != nil {
			return err
		}
		approved = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Reject transitions a pending movement to rejected. Terminal, no ledger
// effect.
func (r *MovementRepository) Reject(ctx context.Context, id string) (*domain.Movement, error) {
	var rejected *domain.Movement

	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		m, err := r.lockMovement(ctx, tx, id)
		if err != nil {
			return err
		}
		if m.Status != domain.StatusPending {
			return errors.InvalidTransition(string(m.Status), string(domain.StatusRejected))
		}

		if err := r.setStatus(ctx, tx, m, domain.StatusRejected, nil, false); err != nil {
			return err
		}
		rejected = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// ReportLoss settles an approved movement. Lines with a positive lost
// quantity debit the destination (shrinkage - the stock vanishes, it is
// never re-credited to the origin) and the movement becomes lost. An
// all-zero report confirms full receipt: no ledger effect, status stays
// approved. Either way the movement is settled and admits no further
// stock-affecting transition.
func (r *MovementRepository) ReportLoss(ctx context.Context, id string, lossObservation *string, lost []domain.LostItem) (*domain.Movement, error) {
	var settled *domain.Movement

	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		m, err := r.lockMovement(ctx, tx, id)
		if err != nil {
			return err
		}
		if m.Status != domain.StatusApproved || m.Settled() {
			return errors.InvalidTransition(string(m.Status), string(domain.StatusLost))
		}

		if err := domain.ValidateLossReport(m.Items, lost); err != nil {
			return err
		}

		var ops []domain.StockOp
		for _, l := range lost {
			if l.Quantity > 0 {
				ops = append(ops, domain.StockOp{
					LocationID: m.ToLocationID,
					ItemID:     l.ItemID,
					Delta:      -l.Quantity,
				})
			}
		}
		if len(ops) > 0 {
			if err := r.stock.ApplyBatchTx(ctx, tx, ops); err != nil {
				return err
			}
		}

		for _, l := range lost {
			if l.Quantity == 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE movement_items SET quantity_lost = $3
				WHERE movement_id = $1 AND item_id = $2
			`, m.ID, l.ItemID, l.Quantity); err != nil {
				return err
			}
			for i := range m.Items {
				if m.Items[i].ItemID == l.ItemID {
					m.Items[i].QuantityLost = l.Quantity
				}
			}
		}

		status := domain.StatusApproved
		if domain.HasLoss(lost) {
			status = domain.StatusLost
		}
		if err := r.setStatus(ctx, tx, m, status, lossObservation, true); err != nil {
			return err
		}
		settled = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// lockMovement loads the movement row under FOR UPDATE together with its
// lines, serializing transitions on the same movement
func (r *MovementRepository) lockMovement(ctx context.Context, tx *sqlx.Tx, id string) (*domain.Movement, error) {
	var m domain.Movement
	err := tx.GetContext(ctx, &m, `
		SELECT id, from_location_id, to_location_id, status, requested_by,
		       observation, loss_observation, created_at, updated_at, settled_at
		FROM movements WHERE id = $1 FOR UPDATE
	`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("movement")
	}
	if err != nil {
		return nil, err
	}

	if err := tx.SelectContext(ctx, &m.Items, `
		SELECT movement_id, item_id, item_name, quantity, quantity_lost
		FROM movement_items WHERE movement_id = $1 ORDER BY item_name
	`, id); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MovementRepository) setStatus(ctx context.Context, tx *sqlx.Tx, m *domain.Movement, status domain.MovementStatus, lossObservation *string, settle bool) error {
	now := time.Now().UTC()

	var settledAt *time.Time
	if settle {
		settledAt = &now
	} else {
		settledAt = m.SettledAt
	}

	if lossObservation != nil {
		m.LossObservation = lossObservation
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE movements
		SET status = $2, loss_observation = COALESCE($3, loss_observation),
		    settled_at = $4, updated_at = NOW()
		WHERE id = $1
	`, m.ID, status, lossObservation, settledAt)
	if err != nil {
		return err
	}

	m.Status = status
	m.SettledAt = settledAt
	m.UpdatedAt = now
	return nil
}
