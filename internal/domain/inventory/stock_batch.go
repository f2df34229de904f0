package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// farFutureYear marks expiry dates used as "never expires" placeholders by
// legacy importers. Anything at or beyond it is normalized to no expiry.
const farFutureYear = 9000

// NormalizeExpiry maps far-future placeholder dates to nil.
// A nil expiry means the batch never expires.
func NormalizeExpiry(expiry *time.Time) *time.Time {
	if expiry == nil {
		return nil
	}
	if expiry.Year() >= farFutureYear {
		return nil
	}
	return expiry
}

// StockBatch is one intake of stock for a product at a branch.
// Quantities are held twice: in display units for reporting, and in integer
// base units which are authoritative for all arithmetic. The pair always
// satisfies display = base / factor for the product's conversion factor.
type StockBatch struct {
	shared.BranchAggregateRoot
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	QuantityAdded     decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	QuantityLeft      decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	QuantityAddedBase int64           `gorm:"not null"`
	QuantityLeftBase  int64           `gorm:"not null"`
	UnitPriceAtIntake decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	UnitCostAtIntake  decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	ExpiryDate        *time.Time      `gorm:"index"`
	DateAdded         time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StockBatch) TableName() string {
	return "stock_batches"
}

// NewStockBatch creates a batch from an intake.
// The display quantity and its base equivalent must already be converted
// through the unit table; the expiry is normalized here.
func NewStockBatch(
	branchID, productID uuid.UUID,
	quantity decimal.Decimal,
	quantityBase int64,
	unitPrice, unitCost decimal.Decimal,
	expiry *time.Time,
	dateAdded time.Time,
) (*StockBatch, error) {
	if quantityBase <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Batch quantity must be positive")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Batch quantity must be positive")
	}

	return &StockBatch{
		BranchAggregateRoot: shared.NewBranchAggregateRoot(branchID),
		ProductID:           productID,
		QuantityAdded:       quantity,
		QuantityLeft:        quantity,
		QuantityAddedBase:   quantityBase,
		QuantityLeftBase:    quantityBase,
		UnitPriceAtIntake:   unitPrice,
		UnitCostAtIntake:    unitCost,
		ExpiryDate:          NormalizeExpiry(expiry),
		DateAdded:           dateAdded,
	}, nil
}

// IsExpired returns true if the batch has expired as of the given instant
func (b *StockBatch) IsExpired(now time.Time) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return b.ExpiryDate.Before(now)
}

// WillExpireWithin returns true if the batch expires within the window
func (b *StockBatch) WillExpireWithin(now time.Time, window time.Duration) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return !b.IsExpired(now) && b.ExpiryDate.Before(now.Add(window))
}

// HasStock returns true if the batch has remaining quantity
func (b *StockBatch) HasStock() bool {
	return b.QuantityLeftBase > 0
}

// IsEligible returns true if the batch can serve a deduction:
// it has stock left and has not expired.
func (b *StockBatch) IsEligible(now time.Time) bool {
	return b.HasStock() && !b.IsExpired(now)
}

// DeductBase removes base units from the batch, keeping the display quantity
// in lockstep via the conversion factor. It never over-deducts.
func (b *StockBatch) DeductBase(takeBase int64, factor int64) error {
	if takeBase <= 0 {
		return &InvariantViolationError{BatchID: b.ID, Reason: "deduction amount must be positive"}
	}
	if takeBase > b.QuantityLeftBase {
		return &InvariantViolationError{BatchID: b.ID, Reason: "deduction exceeds remaining batch quantity"}
	}
	b.QuantityLeftBase -= takeBase
	b.QuantityLeft = decimal.NewFromInt(b.QuantityLeftBase).Div(decimal.NewFromInt(factor))
	b.UpdatedAt = time.Now()
	return nil
}

// RestoreBase credits base units back to the batch. The remaining quantity
// can never exceed what was originally added.
func (b *StockBatch) RestoreBase(giveBase int64, factor int64) error {
	if giveBase <= 0 {
		return &InvariantViolationError{BatchID: b.ID, Reason: "restore amount must be positive"}
	}
	if b.QuantityLeftBase+giveBase > b.QuantityAddedBase {
		return &InvariantViolationError{BatchID: b.ID, Reason: "restore exceeds original batch quantity"}
	}
	b.QuantityLeftBase += giveBase
	b.QuantityLeft = decimal.NewFromInt(b.QuantityLeftBase).Div(decimal.NewFromInt(factor))
	b.UpdatedAt = time.Now()
	return nil
}

// RemainingValue returns the cost value of the remaining stock
func (b *StockBatch) RemainingValue() decimal.Decimal {
	return b.QuantityLeft.Mul(b.UnitCostAtIntake)
}
