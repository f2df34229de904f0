package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/inventory"
	"github.com/ims/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ExpiryDetector periodically scans for batches that still hold stock and
// will expire within the warning window, and publishes an event per batch.
// The alert handler downstream deduplicates, so a batch that stays in the
// window across scans raises one alert, not one per tick.
type ExpiryDetector struct {
	scope          TransactionScope
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	window         time.Duration
	interval       time.Duration
}

// NewExpiryDetector creates a new ExpiryDetector
func NewExpiryDetector(scope TransactionScope, logger *zap.Logger, window, interval time.Duration) *ExpiryDetector {
	return &ExpiryDetector{
		scope:    scope,
		logger:   logger,
		window:   window,
		interval: interval,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (d *ExpiryDetector) SetEventPublisher(publisher shared.EventPublisher) {
	d.eventPublisher = publisher
}

// Run scans on a ticker until the context is cancelled
func (d *ExpiryDetector) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("expiry detector started",
		zap.Duration("window", d.window),
		zap.Duration("interval", d.interval),
	)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("expiry detector stopped")
			return
		case <-ticker.C:
			if err := d.Scan(ctx); err != nil {
				d.logger.Error("expiry scan failed", zap.Error(err))
			}
		}
	}
}

// Scan finds batches expiring within the window across all branches and
// publishes a BatchExpiring event for each
func (d *ExpiryDetector) Scan(ctx context.Context) error {
	now := time.Now()
	var pendingEvents []shared.DomainEvent

	err := d.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		batches, err := repos.BatchRepo().FindExpiringWithin(ctx, uuid.Nil, now, d.window)
		if err != nil {
			return err
		}
		if len(batches) == 0 {
			return nil
		}

		// Group by branch so products are loaded per branch.
		byBranch := make(map[uuid.UUID][]uuid.UUID)
		for i := range batches {
			byBranch[batches[i].BranchID] = append(byBranch[batches[i].BranchID], batches[i].ProductID)
		}
		productNames := make(map[uuid.UUID]*inventory.Product)
		for branchID, productIDs := range byBranch {
			products, err := repos.ProductRepo().FindByIDsForBranch(ctx, branchID, productIDs)
			if err != nil {
				return err
			}
			for i := range products {
				productNames[products[i].ID] = &products[i]
			}
		}

		for i := range batches {
			batch := &batches[i]
			product := productNames[batch.ProductID]
			if product == nil || batch.ExpiryDate == nil {
				continue
			}
			pendingEvents = append(pendingEvents, inventory.NewBatchExpiringEvent(
				batch.ID, batch.ProductID, batch.BranchID,
				product.Name, batch.QuantityLeft, product.Unit, *batch.ExpiryDate))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if d.eventPublisher != nil && len(pendingEvents) > 0 {
		d.logger.Info("expiring batches detected", zap.Int("count", len(pendingEvents)))
		_ = d.eventPublisher.Publish(ctx, pendingEvents...)
	}
	return nil
}
