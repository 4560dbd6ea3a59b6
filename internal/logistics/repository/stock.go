package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/careflow/careflow-backend/internal/logistics/domain"
	"github.com/careflow/careflow-backend/pkg/database"
	"github.com/careflow/careflow-backend/pkg/errors"
)

// StockRepository is the authoritative store of on-hand quantities, keyed
// by (location, item). It exposes delta-based mutation only; nothing else
// in the codebase writes stock_entries. Reads go through MVCC snapshots,
// so they are never blocked by in-flight mutations on other granules.
type StockRepository struct {
	db *database.DB
}

// NewStockRepository creates a new stock repository
func NewStockRepository(db *database.DB) *StockRepository {
	return &StockRepository{db: db}
}

// GetQuantity returns the on-hand quantity for a granule. A missing entry
// reads as zero; there is no error case for unknown pairs.
func (r *StockRepository) GetQuantity(ctx context.Context, locationID, itemID string) (int, error) {
	var quantity int
	query := `SELECT quantity FROM stock_entries WHERE location_id = $1 AND item_id = $2`
	err := r.db.GetContext(ctx, &quantity, query, locationID, itemID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

// TotalForItem returns the item's quantity summed across all locations
func (r *StockRepository) TotalForItem(ctx context.Context, itemID string) (int, error) {
	var total int
	query := `SELECT COALESCE(SUM(quantity), 0) FROM stock_entries WHERE item_id = $1`
	if err := r.db.GetContext(ctx, &total, query, itemID); err != nil {
		return 0, err
	}
	return total, nil
}

// ApplyDelta adds delta (possibly negative) to one granule, creating the
// entry if absent. Fails with InsufficientStock and no effect if the
// resulting quantity would be negative.
func (r *StockRepository) ApplyDelta(ctx context.Context, locationID, itemID string, delta int) error {
	return r.ApplyBatch(ctx, []domain.StockOp{{LocationID: locationID, ItemID: itemID, Delta: delta}})
}

// ApplyBatch applies every op or none within a single transaction
func (r *StockRepository) ApplyBatch(ctx context.Context, ops []domain.StockOp) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return r.ApplyBatchTx(ctx, tx, ops)
	})
}

// ApplyBatchTx is the batch mutation composable into a caller's
// transaction; movement approval and loss settlement run it alongside
// their status updates so status-check-then-mutate is one atomic unit.
//
// Granules are locked in sorted (location_id, item_id) order - the fixed
// global order that keeps two overlapping batches from deadlocking - and
// every post-image is validated before the first row is updated.
func (r *StockRepository) ApplyBatchTx(ctx context.Context, tx *sqlx.Tx, ops []domain.StockOp) error {
	merged := domain.MergeOps(ops)

	post := make([]int, len(merged))
	for i, op := range merged {
		var current int
		// The no-op upsert takes the row lock and creates the granule
		// when absent, in one statement.
		err := tx.GetContext(ctx, &current, `
			INSERT INTO stock_entries (location_id, item_id, quantity)
			VALUES ($1, $2, 0)
			ON CONFLICT (location_id, item_id) DO UPDATE SET quantity = stock_entries.quantity
			RETURNING quantity
		`, op.LocationID, op.ItemID)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}

		if current+op.Delta < 0 {
			return errors.InsufficientStock(op.LocationID, op.ItemID, current, -op.Delta)
		}
		post[i] = current + op.Delta
	}

	for i, op := range merged {
		_, err := tx.ExecContext(ctx, `
			UPDATE stock_entries SET quantity = $3, updated_at = NOW()
			WHERE location_id = $1 AND item_id = $2
		`, op.LocationID, op.ItemID, post[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// ItemTotal is an item's quantity summed across locations
type ItemTotal struct {
	ItemID string `db:"item_id"`
	Total  int    `db:"total"`
}

// Totals returns per-item totals across all locations. Items without any
// entry simply do not appear; callers treat absence as zero.
func (r *StockRepository) Totals(ctx context.Context) ([]ItemTotal, error) {
	var totals []ItemTotal
	query := `
		SELECT item_id, COALESCE(SUM(quantity), 0) AS total
		FROM stock_entries GROUP BY item_id
	`
	if err := r.db.SelectContext(ctx, &totals, query); err != nil {
		return nil, err
	}
	return totals, nil
}

// ItemQuantity is one item's holding at a single location, joined with
// the catalog name for display
type ItemQuantity struct {
	ItemID   string `db:"item_id"`
	ItemName string `db:"item_name"`
	Quantity int    `db:"quantity"`
}

// TotalsForLocation returns the non-zero per-item quantities held at one
// location
func (r *StockRepository) TotalsForLocation(ctx context.Context, locationID string) ([]ItemQuantity, error) {
	var totals []ItemQuantity
	query := `
		SELECT s.item_id, i.name AS item_name, s.quantity
		FROM stock_entries s
		JOIN items i ON i.id = s.item_id
		WHERE s.location_id = $1 AND s.quantity > 0
		ORDER BY i.name
	`
	if err := r.db.SelectContext(ctx, &totals, query, locationID); err != nil {
		return nil, err
	}
	return totals, nil
}

// LocationQuantity is one location's holding of one item
type LocationQuantity struct {
	ItemID       string `db:"item_id"`
	LocationID   string `db:"location_id"`
	LocationName string `db:"location_name"`
	Quantity     int    `db:"quantity"`
}

// Breakdown returns, for every item, the locations holding more than zero
// units, joined with the location name for display
func (r *StockRepository) Breakdown(ctx context.Context) ([]LocationQuantity, error) {
	var rows []LocationQuantity
	query := `
		SELECT s.item_id, s.location_id, l.name AS location_name, s.quantity
		FROM stock_entries s
		JOIN locations l ON l.id = s.location_id
		WHERE s.quantity > 0
		ORDER BY s.item_id, l.name
	`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}
