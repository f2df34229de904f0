package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/inventory"
	"github.com/ims/backend/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockNotAvailable is the PostgreSQL error code raised when a row lock
// cannot be acquired within lock_timeout
const lockNotAvailable = "55P03"

// GormStockBatchRepository implements StockBatchRepository using GORM
type GormStockBatchRepository struct {
	db *gorm.DB
}

// NewGormStockBatchRepository creates a new GormStockBatchRepository
func NewGormStockBatchRepository(db *gorm.DB) *GormStockBatchRepository {
	return &GormStockBatchRepository{db: db}
}

// FindByID finds a batch by its ID
func (r *GormStockBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockBatch, error) {
	var batch inventory.StockBatch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindAll finds all batches matching the filter
func (r *GormStockBatchRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.StockBatch, error) {
	var batches []inventory.StockBatch
	query := r.applyFilter(r.db.WithContext(ctx).Model(&inventory.StockBatch{}), filter)
	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// Save persists a batch
func (r *GormStockBatchRepository) Save(ctx context.Context, batch *inventory.StockBatch) error {
	return r.db.WithContext(ctx).Save(batch).Error
}

// Count counts batches matching the filter
func (r *GormStockBatchRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&inventory.StockBatch{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindEligibleForUpdate returns and locks the batches of a product that still
// hold stock and have not expired, in consumption order. Must run inside a
// transaction.
func (r *GormStockBatchRepository) FindEligibleForUpdate(ctx context.Context, branchID, productID uuid.UUID, now time.Time) ([]inventory.StockBatch, error) {
	var batches []inventory.StockBatch
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("branch_id = ? AND product_id = ? AND quantity_left_base > 0", branchID, productID).
		Where("expiry_date IS NULL OR expiry_date >= ?", now).
		Order("COALESCE(expiry_date, '9999-12-31') ASC, date_added ASC, created_at ASC").
		Find(&batches).Error
	if err != nil {
		return nil, mapLockError(err, "stock batches")
	}
	return batches, nil
}

// FindByIDsForUpdate returns and locks specific batches. Must run inside a
// transaction.
func (r *GormStockBatchRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]inventory.StockBatch, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var batches []inventory.StockBatch
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Find(&batches).Error
	if err != nil {
		return nil, mapLockError(err, "stock batches")
	}
	return batches, nil
}

// FindByProduct returns all batches of a product, newest intake first
func (r *GormStockBatchRepository) FindByProduct(ctx context.Context, branchID, productID uuid.UUID) ([]inventory.StockBatch, error) {
	var batches []inventory.StockBatch
	err := r.db.WithContext(ctx).
		Where("branch_id = ? AND product_id = ?", branchID, productID).
		Order("date_added DESC, created_at DESC").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

// AggregateRemainingBase sums the unexpired remaining base units per product
func (r *GormStockBatchRepository) AggregateRemainingBase(ctx context.Context, branchID uuid.UUID, productIDs []uuid.UUID, now time.Time) (map[uuid.UUID]int64, error) {
	totals := make(map[uuid.UUID]int64, len(productIDs))
	if len(productIDs) == 0 {
		return totals, nil
	}

	var rows []struct {
		ProductID uuid.UUID
		Total     int64
	}
	err := r.db.WithContext(ctx).
		Model(&inventory.StockBatch{}).
		Select("product_id, SUM(quantity_left_base) AS total").
		Where("branch_id = ? AND product_id IN ? AND quantity_left_base > 0", branchID, productIDs).
		Where("expiry_date IS NULL OR expiry_date >= ?", now).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		totals[row.ProductID] = row.Total
	}
	return totals, nil
}

// FindExpiringWithin returns batches with stock left that expire inside the
// window. A branchID of uuid.Nil covers every branch.
func (r *GormStockBatchRepository) FindExpiringWithin(ctx context.Context, branchID uuid.UUID, now time.Time, window time.Duration) ([]inventory.StockBatch, error) {
	cutoff := now.Add(window)
	query := r.db.WithContext(ctx).
		Where("quantity_left_base > 0").
		Where("expiry_date IS NOT NULL AND expiry_date > ? AND expiry_date <= ?", now, cutoff)
	if branchID != uuid.Nil {
		query = query.Where("branch_id = ?", branchID)
	}

	var batches []inventory.StockBatch
	if err := query.Order("expiry_date ASC").Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// SaveAll persists a set of batches in one round trip
func (r *GormStockBatchRepository) SaveAll(ctx context.Context, batches []*inventory.StockBatch) error {
	if len(batches) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(batches).Error
}

// applyFilter applies ordering and pagination
func (r *GormStockBatchRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, StockBatchSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// mapLockError translates a lock_timeout failure into a domain error.
// The runtime connects through the pgx-based postgres driver, so the error
// arrives as *pgconn.PgError; the lib/pq shape is still recognized for
// connections opened through database/sql with the pq driver.
func mapLockError(err error, resource string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == lockNotAvailable {
		return &inventory.LockTimeoutError{Resource: resource}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == lockNotAvailable {
		return &inventory.LockTimeoutError{Resource: resource}
	}
	return err
}

// Ensure GormStockBatchRepository implements StockBatchRepository
var _ inventory.StockBatchRepository = (*GormStockBatchRepository)(nil)
