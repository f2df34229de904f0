package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// UsageRecord ties a sale to the exact batch its stock was taken from.
// Records are append-only: a restoration marks the record restored instead of
// deleting it, and a later re-deduction writes fresh records, so the full
// deduction history of a sale stays auditable.
type UsageRecord struct {
	shared.BaseEntity
	BranchID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	BatchID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	QuantityUsed     decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	QuantityUsedBase int64           `gorm:"not null"`
	IsRestored       bool            `gorm:"not null;default:false"`
	RestoredAt       *time.Time
}

// TableName returns the table name for GORM
func (UsageRecord) TableName() string {
	return "usage_records"
}

// NewUsageRecord records a deduction of base units from one batch for a sale
func NewUsageRecord(branchID, saleID, productID, batchID uuid.UUID, quantity decimal.Decimal, quantityBase int64) *UsageRecord {
	return &UsageRecord{
		BaseEntity:       shared.NewBaseEntity(),
		BranchID:         branchID,
		SaleID:           saleID,
		ProductID:        productID,
		BatchID:          batchID,
		QuantityUsed:     quantity,
		QuantityUsedBase: quantityBase,
		IsRestored:       false,
	}
}

// MarkRestored flags the record as credited back to its batch.
// A restored record is terminal and is never deducted again.
func (u *UsageRecord) MarkRestored(now time.Time) {
	u.IsRestored = true
	u.RestoredAt = &now
	u.UpdatedAt = now
}
