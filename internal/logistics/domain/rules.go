package domain

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/careflow/careflow-backend/pkg/errors"
)

// ValidateNewMovement checks the structural rules of a transfer request.
// The destination (and origin, when set) are verified against the registry
// by the service; everything checked here is intrinsic to the request.
func ValidateNewMovement(fromLocationID *string, toLocationID string, items []MovementItem) error {
	if len(items) == 0 {
		return errors.EmptyMovement()
	}
	if fromLocationID != nil && *fromLocationID == toLocationID {
		return errors.InvalidRoute("origin and destination must differ")
	}

	seen := make(map[string]struct{}, len(items))
	for i, line := range items {
		if line.Quantity <= 0 {
			return errors.Validation(map[string]string{
				fmt.Sprintf("items[%d].quantity", i): "must be greater than 0",
			})
		}
		if _, dup := seen[line.ItemID]; dup {
			return errors.DuplicateLineItem(line.ItemID)
		}
		seen[line.ItemID] = struct{}{}
	}
	return nil
}

// ValidateLossReport checks reported losses against the movement's lines.
// Every reported loss must reference a line, appear once, and stay within
// 0..line quantity. An all-zero (or empty) report is valid and means the
// movement was received in full.
func ValidateLossReport(lines []MovementItem, lost []LostItem) error {
	byItem := make(map[string]MovementItem, len(lines))
	for _, line := range lines {
		byItem[line.ItemID] = line
	}

	seen := make(map[string]struct{}, len(lost))
	for _, l := range lost {
		line, ok := byItem[l.ItemID]
		if !ok {
			return errors.InvalidLossQuantity(l.ItemID, "item is not part of the movement")
		}
		if _, dup := seen[l.ItemID]; dup {
			return errors.InvalidLossQuantity(l.ItemID, "reported more than once")
		}
		seen[l.ItemID] = struct{}{}

		if l.Quantity < 0 {
			return errors.InvalidLossQuantity(l.ItemID, "must not be negative")
		}
		if l.Quantity > line.Quantity {
			return errors.InvalidLossQuantity(l.ItemID,
				"lost "+strconv.Itoa(l.Quantity)+" exceeds moved "+strconv.Itoa(line.Quantity))
		}
	}
	return nil
}

// HasLoss reports whether any reported line carries a positive quantity
func HasLoss(lost []LostItem) bool {
	for _, l := range lost {
		if l.Quantity > 0 {
			return true
		}
	}
	return false
}

// SortOps orders ledger operations by their composite (location, item) key.
// Acquiring granules in this fixed global order keeps concurrent batches
// that overlap from deadlocking each other.
func SortOps(ops []StockOp) {
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].LocationID != ops[j].LocationID {
			return ops[i].LocationID < ops[j].LocationID
		}
		return ops[i].ItemID < ops[j].ItemID
	})
}

// MergeOps aggregates deltas that touch the same granule and returns the
// result in the fixed global lock order. Zero-delta granules are kept so
// the post-image of every touched pair is still validated.
func MergeOps(ops []StockOp) []StockOp {
	type key struct{ loc, item string }
	totals := make(map[key]int, len(ops))
	order := make([]key, 0, len(ops))
	for _, op := range ops {
		k := key{op.LocationID, op.ItemID}
		if _, ok := totals[k]; !ok {
			order = append(order, k)
		}
		totals[k] += op.Delta
	}

	merged := make([]StockOp, 0, len(order))
	for _, k := range order {
		merged = append(merged, StockOp{LocationID: k.loc, ItemID: k.item, Delta: totals[k]})
	}
	SortOps(merged)
	return merged
}

// Stock status classification

const (
	StockStatusCritical = "critical"
	StockStatusLow      = "low"
	StockStatusNormal   = "normal"
)

// StockStatus classifies an item's total on-hand quantity against its
// minimum stock threshold
func StockStatus(totalQuantity, minStock int) string {
	switch {
	case totalQuantity == 0:
		return StockStatusCritical
	case totalQuantity < minStock:
		return StockStatusLow
	default:
		return StockStatusNormal
	}
}
