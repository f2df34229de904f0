package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/shared"
)

// ProductRepository provides access to products
type ProductRepository interface {
	shared.BranchRepository[Product]
	// FindByNameForBranch looks a product up by its unique name within a branch
	FindByNameForBranch(ctx context.Context, branchID uuid.UUID, name string) (*Product, error)
	// FindByIDsForBranch loads several products of one branch at once
	FindByIDsForBranch(ctx context.Context, branchID uuid.UUID, ids []uuid.UUID) ([]Product, error)
}

// StockBatchRepository provides access to stock batches.
// The ForUpdate variants must run inside a transaction; they lock the
// returned rows until commit.
type StockBatchRepository interface {
	shared.Repository[StockBatch]
	// FindEligibleForUpdate returns and locks the batches of a product that
	// still hold stock and have not expired, in consumption order
	FindEligibleForUpdate(ctx context.Context, branchID, productID uuid.UUID, now time.Time) ([]StockBatch, error)
	// FindByIDsForUpdate returns and locks specific batches
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]StockBatch, error)
	// FindByProduct returns all batches of a product, newest intake first
	FindByProduct(ctx context.Context, branchID, productID uuid.UUID) ([]StockBatch, error)
	// AggregateRemainingBase sums the unexpired remaining base units per product
	AggregateRemainingBase(ctx context.Context, branchID uuid.UUID, productIDs []uuid.UUID, now time.Time) (map[uuid.UUID]int64, error)
	// FindExpiringWithin returns batches with stock left that expire inside
	// the window. A branchID of uuid.Nil covers every branch.
	FindExpiringWithin(ctx context.Context, branchID uuid.UUID, now time.Time, window time.Duration) ([]StockBatch, error)
	// SaveAll persists a set of batches in one round trip
	SaveAll(ctx context.Context, batches []*StockBatch) error
}

// UsageRecordRepository provides access to sale usage records
type UsageRecordRepository interface {
	// FindBySale returns every usage record of a sale, restored or not
	FindBySale(ctx context.Context, saleID uuid.UUID) ([]UsageRecord, error)
	// FindUnrestoredBySale returns the usage records of a sale that still
	// hold deducted stock
	FindUnrestoredBySale(ctx context.Context, saleID uuid.UUID) ([]UsageRecord, error)
	// SaveAll persists new or updated usage records
	SaveAll(ctx context.Context, records []*UsageRecord) error
}

// AlertRepository provides access to persisted inventory alerts
type AlertRepository interface {
	// Save persists an alert
	Save(ctx context.Context, alert *InventoryAlert) error
	// ExistsOpen reports whether an unacknowledged alert of the given type
	// already exists for a product, to avoid duplicate alert rows
	ExistsOpen(ctx context.Context, branchID, productID uuid.UUID, alertType string) (bool, error)
	// FindUnacknowledgedForBranch returns the open alerts of a branch
	FindUnacknowledgedForBranch(ctx context.Context, branchID uuid.UUID) ([]InventoryAlert, error)
	// Acknowledge marks an alert as seen
	Acknowledge(ctx context.Context, alertID uuid.UUID) error
}
