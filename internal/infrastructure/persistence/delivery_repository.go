package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/sales"
	"github.com/ims/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDeliveryRepository implements DeliveryRepository using GORM
type GormDeliveryRepository struct {
	db *gorm.DB
}

// NewGormDeliveryRepository creates a new GormDeliveryRepository
func NewGormDeliveryRepository(db *gorm.DB) *GormDeliveryRepository {
	return &GormDeliveryRepository{db: db}
}

// FindByID finds a delivery by its ID
func (r *GormDeliveryRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Delivery, error) {
	var delivery sales.Delivery
	if err := r.db.WithContext(ctx).First(&delivery, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &delivery, nil
}

// FindAll finds all deliveries matching the filter
func (r *GormDeliveryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]sales.Delivery, error) {
	var deliveries []sales.Delivery
	query := r.applyFilter(r.db.WithContext(ctx).Model(&sales.Delivery{}), filter)
	if err := query.Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}

// Save persists a delivery
func (r *GormDeliveryRepository) Save(ctx context.Context, delivery *sales.Delivery) error {
	return r.db.WithContext(ctx).Save(delivery).Error
}

// Count counts deliveries matching the filter
func (r *GormDeliveryRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&sales.Delivery{})
	if status, ok := filter.Filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindByIDForBranch finds a delivery by ID within a branch
func (r *GormDeliveryRepository) FindByIDForBranch(ctx context.Context, branchID, id uuid.UUID) (*sales.Delivery, error) {
	var delivery sales.Delivery
	if err := r.db.WithContext(ctx).
		Where("branch_id = ? AND id = ?", branchID, id).
		First(&delivery).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &delivery, nil
}

// FindAllForBranch finds all deliveries of a branch
func (r *GormDeliveryRepository) FindAllForBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]sales.Delivery, error) {
	var deliveries []sales.Delivery
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&sales.Delivery{}).
			Where("branch_id = ?", branchID),
		filter,
	)
	if err := query.Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}

// FindBySaleID returns the delivery of a sale, or nil if none exists
func (r *GormDeliveryRepository) FindBySaleID(ctx context.Context, saleID uuid.UUID) (*sales.Delivery, error) {
	var delivery sales.Delivery
	if err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		First(&delivery).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &delivery, nil
}

// FindBySaleIDForUpdate returns and locks the delivery row of a sale, or nil
// if none exists. Must run inside a transaction.
func (r *GormDeliveryRepository) FindBySaleIDForUpdate(ctx context.Context, saleID uuid.UUID) (*sales.Delivery, error) {
	var delivery sales.Delivery
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sale_id = ?", saleID).
		First(&delivery).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, mapLockError(err, "delivery")
	}
	return &delivery, nil
}

// applyFilter applies ordering and pagination
func (r *GormDeliveryRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if status, ok := filter.Filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, DeliverySortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// Ensure GormDeliveryRepository implements DeliveryRepository
var _ sales.DeliveryRepository = (*GormDeliveryRepository)(nil)
