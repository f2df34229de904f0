package inventory

import (
	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/shared"
)

// Alert types
const (
	AlertTypeLowStock = "low_stock"
	AlertTypeExpiring = "expiring"
)

// InventoryAlert is a persisted alert row, the backing store for the alert
// feed shown to branch staff
type InventoryAlert struct {
	shared.BaseEntity
	BranchID     uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID `gorm:"type:uuid;not null;index"`
	AlertType    string    `gorm:"not null"`
	Message      string    `gorm:"not null"`
	Acknowledged bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (InventoryAlert) TableName() string {
	return "inventory_alerts"
}

// NewInventoryAlert creates an alert for a product at a branch
func NewInventoryAlert(branchID, productID uuid.UUID, alertType, message string) *InventoryAlert {
	return &InventoryAlert{
		BaseEntity:   shared.NewBaseEntity(),
		BranchID:     branchID,
		ProductID:    productID,
		AlertType:    alertType,
		Message:      message,
		Acknowledged: false,
	}
}

// Acknowledge marks the alert as seen
func (a *InventoryAlert) Acknowledge() {
	a.Acknowledged = true
}
