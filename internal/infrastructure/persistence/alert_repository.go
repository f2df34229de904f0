package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormAlertRepository implements AlertRepository using GORM
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GormAlertRepository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

// Save persists an alert
func (r *GormAlertRepository) Save(ctx context.Context, alert *inventory.InventoryAlert) error {
	return r.db.WithContext(ctx).Save(alert).Error
}

// ExistsOpen reports whether an unacknowledged alert of the given type
// already exists for a product
func (r *GormAlertRepository) ExistsOpen(ctx context.Context, branchID, productID uuid.UUID, alertType string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&inventory.InventoryAlert{}).
		Where("branch_id = ? AND product_id = ? AND alert_type = ? AND acknowledged = false",
			branchID, productID, alertType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindUnacknowledgedForBranch returns the open alerts of a branch, newest first
func (r *GormAlertRepository) FindUnacknowledgedForBranch(ctx context.Context, branchID uuid.UUID) ([]inventory.InventoryAlert, error) {
	var alerts []inventory.InventoryAlert
	err := r.db.WithContext(ctx).
		Where("branch_id = ? AND acknowledged = false", branchID).
		Order("created_at DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// Acknowledge marks an alert as seen
func (r *GormAlertRepository) Acknowledge(ctx context.Context, alertID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&inventory.InventoryAlert{}).
		Where("id = ?", alertID).
		Update("acknowledged", true).Error
}

// Ensure GormAlertRepository implements AlertRepository
var _ inventory.AlertRepository = (*GormAlertRepository)(nil)
