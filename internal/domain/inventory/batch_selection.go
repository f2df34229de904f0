package inventory

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchTake is one planned deduction from a single batch
type BatchTake struct {
	BatchID     uuid.UUID
	TakeBase    int64           // base units to remove from the batch
	Take        decimal.Decimal // same amount in display units
	UnitCost    decimal.Decimal // cost per display unit at intake
	LeftAfter   int64           // base units remaining in the batch afterwards
	FullyDrains bool            // true when the batch hits zero
}

// DeductionPlan is the outcome of planning a deduction over a set of batches
type DeductionPlan struct {
	Takes         []BatchTake
	TotalBase     int64
	RemainingBase int64 // unfulfilled base units, zero when fully planned
	TotalCost     decimal.Decimal
}

// FullyFulfilled returns true when the whole requested quantity was planned
func (p *DeductionPlan) FullyFulfilled() bool {
	return p.RemainingBase == 0
}

// EligibleBatches filters batches that can serve a deduction now:
// unexpired with stock remaining
func EligibleBatches(batches []StockBatch, now time.Time) []StockBatch {
	eligible := make([]StockBatch, 0, len(batches))
	for _, b := range batches {
		if b.IsEligible(now) {
			eligible = append(eligible, b)
		}
	}
	return eligible
}

// SortForDeduction orders batches for consumption: soonest expiry first,
// never-expiring batches last, ties broken by intake date then creation date.
// Perishable stock is used up before stock that keeps.
func SortForDeduction(batches []StockBatch) {
	sort.Slice(batches, func(i, j int) bool {
		if batches[i].ExpiryDate != nil && batches[j].ExpiryDate != nil {
			if !batches[i].ExpiryDate.Equal(*batches[j].ExpiryDate) {
				return batches[i].ExpiryDate.Before(*batches[j].ExpiryDate)
			}
		} else if batches[i].ExpiryDate != nil {
			return true
		} else if batches[j].ExpiryDate != nil {
			return false
		}
		if !batches[i].DateAdded.Equal(batches[j].DateAdded) {
			return batches[i].DateAdded.Before(batches[j].DateAdded)
		}
		return batches[i].CreatedAt.Before(batches[j].CreatedAt)
	})
}

// AvailableBase sums the remaining base units across eligible batches
func AvailableBase(batches []StockBatch, now time.Time) int64 {
	var total int64
	for _, b := range batches {
		if b.IsEligible(now) {
			total += b.QuantityLeftBase
		}
	}
	return total
}

// PlanDeduction greedily allocates the requested base quantity across
// batches in consumption order. The plan is computed against a snapshot and
// applied later under row locks; it does not mutate the batches.
func PlanDeduction(requestedBase int64, factor int64, batches []StockBatch, now time.Time) *DeductionPlan {
	eligible := EligibleBatches(batches, now)
	SortForDeduction(eligible)

	takes := make([]BatchTake, 0, len(eligible))
	remaining := requestedBase
	var totalBase int64
	totalCost := decimal.Zero

	for _, batch := range eligible {
		if remaining == 0 {
			break
		}

		takeBase := batch.QuantityLeftBase
		if takeBase > remaining {
			takeBase = remaining
		}
		takeDisplay := decimal.NewFromInt(takeBase).Div(decimal.NewFromInt(factor))
		leftAfter := batch.QuantityLeftBase - takeBase

		takes = append(takes, BatchTake{
			BatchID:     batch.ID,
			TakeBase:    takeBase,
			Take:        takeDisplay,
			UnitCost:    batch.UnitCostAtIntake,
			LeftAfter:   leftAfter,
			FullyDrains: leftAfter == 0,
		})

		totalBase += takeBase
		totalCost = totalCost.Add(takeDisplay.Mul(batch.UnitCostAtIntake))
		remaining -= takeBase
	}

	return &DeductionPlan{
		Takes:         takes,
		TotalBase:     totalBase,
		RemainingBase: remaining,
		TotalCost:     totalCost,
	}
}
