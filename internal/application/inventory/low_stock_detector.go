package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/shared"
	"github.com/ims/backend/internal/domain/unit"
	"go.uber.org/zap"
)

// LowStockDetector re-evaluates the low stock flag of products after ledger
// operations. The flag is edge triggered: one alert fires when availability
// crosses down through the threshold, and the flag re-arms only after stock
// recovers above it.
//
// Evaluation is best effort and runs outside the ledger transaction; a failed
// evaluation is logged and corrected on the next one. Concurrent evaluations
// of the same product may race, which at worst duplicates or skips one alert,
// never corrupts stock.
type LowStockDetector struct {
	scope          TransactionScope
	units          *unit.Registry
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewLowStockDetector creates a new LowStockDetector
func NewLowStockDetector(scope TransactionScope, units *unit.Registry, logger *zap.Logger) *LowStockDetector {
	return &LowStockDetector{
		scope:  scope,
		units:  units,
		logger: logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (d *LowStockDetector) SetEventPublisher(publisher shared.EventPublisher) {
	d.eventPublisher = publisher
}

// Evaluate checks the given products and flips their low stock flags where
// availability crossed the threshold in either direction. Errors are logged,
// never propagated; evaluation must not fail the operation that triggered it.
func (d *LowStockDetector) Evaluate(ctx context.Context, branchID uuid.UUID, productIDs []uuid.UUID) {
	if len(productIDs) == 0 {
		return
	}

	table := d.units.Table()
	var pendingEvents []shared.DomainEvent

	err := d.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		products, err := repos.ProductRepo().FindByIDsForBranch(ctx, branchID, productIDs)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(products))
		for i := range products {
			ids = append(ids, products[i].ID)
		}
		available, err := repos.BatchRepo().AggregateRemainingBase(ctx, branchID, ids, time.Now())
		if err != nil {
			return err
		}

		for i := range products {
			product := &products[i]
			display, err := table.ToDisplay(available[product.ID], product.Unit)
			if err != nil {
				return err
			}

			var changed bool
			if product.IsBelowThreshold(display) {
				changed = product.MarkBelowThreshold(display)
			} else {
				changed = product.MarkRecovered(display)
			}
			if !changed {
				continue
			}
			if err := repos.ProductRepo().Save(ctx, product); err != nil {
				return err
			}
			pendingEvents = append(pendingEvents, product.GetDomainEvents()...)
			product.ClearDomainEvents()
		}
		return nil
	})
	if err != nil {
		d.logger.Error("low stock evaluation failed",
			zap.String("branch_id", branchID.String()),
			zap.Int("products", len(productIDs)),
			zap.Error(err),
		)
		return
	}

	if d.eventPublisher != nil && len(pendingEvents) > 0 {
		_ = d.eventPublisher.Publish(ctx, pendingEvents...)
	}
}
