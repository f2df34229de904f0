package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormUsageRecordRepository implements UsageRecordRepository using GORM
type GormUsageRecordRepository struct {
	db *gorm.DB
}

// NewGormUsageRecordRepository creates a new GormUsageRecordRepository
func NewGormUsageRecordRepository(db *gorm.DB) *GormUsageRecordRepository {
	return &GormUsageRecordRepository{db: db}
}

// FindBySale returns every usage record of a sale, restored or not
func (r *GormUsageRecordRepository) FindBySale(ctx context.Context, saleID uuid.UUID) ([]inventory.UsageRecord, error) {
	var records []inventory.UsageRecord
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// FindUnrestoredBySale returns the usage records of a sale that still hold
// deducted stock
func (r *GormUsageRecordRepository) FindUnrestoredBySale(ctx context.Context, saleID uuid.UUID) ([]inventory.UsageRecord, error) {
	var records []inventory.UsageRecord
	err := r.db.WithContext(ctx).
		Where("sale_id = ? AND is_restored = false", saleID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// SaveAll persists new or updated usage records
func (r *GormUsageRecordRepository) SaveAll(ctx context.Context, records []*inventory.UsageRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(records).Error
}

// Ensure GormUsageRecordRepository implements UsageRecordRepository
var _ inventory.UsageRecordRepository = (*GormUsageRecordRepository)(nil)
