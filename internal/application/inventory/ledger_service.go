package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/inventory"
	"github.com/ims/backend/internal/domain/shared"
	"github.com/ims/backend/internal/domain/unit"
)

// LedgerService executes the two mutating ledger operations: deducting stock
// for a sale and restoring it. Both run entirely inside a transaction scope;
// either every batch change, usage record and flag lands, or none do.
//
// The InScope variants run against an already open transaction so callers
// can combine a ledger operation with their own writes (saving a sale,
// flipping a delivery status) atomically. They return the domain events to
// publish once that transaction has committed.
type LedgerService struct {
	scope          TransactionScope
	units          *unit.Registry
	eventPublisher shared.EventPublisher
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(scope TransactionScope, units *unit.Registry) *LedgerService {
	return &LedgerService{
		scope: scope,
		units: units,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *LedgerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// DeductForSale takes stock for a sale's lines inside its own transaction
func (s *LedgerService) DeductForSale(ctx context.Context, branchID, saleID uuid.UUID, lines []LineRequest) (*DeductionSummary, error) {
	var summary *DeductionSummary
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		summary, events, err = s.DeductInScope(ctx, repos, branchID, saleID, lines)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	return summary, nil
}

// RestoreForSale restores a sale's stock inside its own transaction
func (s *LedgerService) RestoreForSale(ctx context.Context, branchID, saleID uuid.UUID) (*RestorationSummary, error) {
	var summary *RestorationSummary
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		summary, events, err = s.RestoreInScope(ctx, repos, branchID, saleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	return summary, nil
}

// DeductInScope takes stock for a sale's lines from eligible batches and
// writes one usage record per batch touched.
//
// Requests for the same product are summed before the availability check, so
// two lines of 3 and 4 units fail together against a stock of 6. If the sale
// already has unrestored usage records the call is a no-op; a sale's stock
// is held exactly once no matter how often a delivery flips into an active
// state.
//
// On any shortfall nothing is written and the returned InsufficientStockError
// lists every short product; the caller's transaction rolls back.
func (s *LedgerService) DeductInScope(ctx context.Context, repos TransactionalRepositories, branchID, saleID uuid.UUID, lines []LineRequest) (*DeductionSummary, []shared.DomainEvent, error) {
	if len(lines) == 0 {
		return nil, nil, shared.NewDomainError("EMPTY_DEDUCTION", "Deduction requires at least one line")
	}

	existing, err := repos.UsageRepo().FindUnrestoredBySale(ctx, saleID)
	if err != nil {
		return nil, nil, err
	}
	if len(existing) > 0 {
		return &DeductionSummary{AlreadyDeducted: true}, nil, nil
	}

	table := s.units.Table()
	demands, productOrder, err := sumLinesPerProduct(lines)
	if err != nil {
		return nil, nil, err
	}

	products, err := repos.ProductRepo().FindByIDsForBranch(ctx, branchID, productOrder)
	if err != nil {
		return nil, nil, err
	}
	productByID := make(map[uuid.UUID]*inventory.Product, len(products))
	for i := range products {
		productByID[products[i].ID] = &products[i]
	}

	now := time.Now()

	// Validate units and convert demands to base quantities before touching
	// any rows.
	type productDemand struct {
		product *inventory.Product
		factor  int64
		base    int64
	}
	prepared := make([]productDemand, 0, len(productOrder))
	for _, productID := range productOrder {
		product, ok := productByID[productID]
		if !ok {
			return nil, nil, shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found: "+productID.String())
		}
		demand := demands[productID]

		if demand.Unit != product.Unit {
			return nil, nil, &inventory.UnitMismatchError{
				ProductID:     product.ID,
				ProductName:   product.Name,
				ProductUnit:   product.Unit,
				RequestedUnit: demand.Unit,
			}
		}
		conv, err := table.Lookup(product.Unit)
		if err != nil {
			return nil, nil, err
		}
		precise, err := table.IsPreciseMultiple(demand.Quantity, product.Unit)
		if err != nil {
			return nil, nil, err
		}
		if !precise {
			minimum, _ := table.MinimumQuantity(product.Unit)
			return nil, nil, &inventory.ImpreciseQuantityError{
				Quantity: demand.Quantity,
				Unit:     product.Unit,
				Minimum:  minimum,
			}
		}
		base, err := table.ToBase(demand.Quantity, product.Unit)
		if err != nil {
			return nil, nil, err
		}
		prepared = append(prepared, productDemand{product: product, factor: conv.Factor, base: base})
	}

	// Lock eligible batches for every product, then check availability across
	// all of them before deducting anything.
	lockedBatches := make(map[uuid.UUID][]inventory.StockBatch, len(prepared))
	var shortfalls []inventory.ShortfallDetail
	for _, pd := range prepared {
		batches, err := repos.BatchRepo().FindEligibleForUpdate(ctx, branchID, pd.product.ID, now)
		if err != nil {
			return nil, nil, err
		}
		lockedBatches[pd.product.ID] = batches

		available := inventory.AvailableBase(batches, now)
		if available < pd.base {
			availableDisplay, err := table.ToDisplay(available, pd.product.Unit)
			if err != nil {
				return nil, nil, err
			}
			shortfalls = append(shortfalls, inventory.ShortfallDetail{
				ProductID:   pd.product.ID,
				ProductName: pd.product.Name,
				Unit:        pd.product.Unit,
				Requested:   demands[pd.product.ID].Quantity,
				Available:   availableDisplay,
			})
		}
	}
	if len(shortfalls) > 0 {
		return nil, nil, &inventory.InsufficientStockError{Shortfalls: shortfalls}
	}

	// Apply the plan batch by batch and write usage records.
	summary := &DeductionSummary{}
	var events []shared.DomainEvent
	for _, pd := range prepared {
		batches := lockedBatches[pd.product.ID]
		plan := inventory.PlanDeduction(pd.base, pd.factor, batches, now)
		if !plan.FullyFulfilled() {
			// Availability was checked against these locked rows, so a
			// shortfall here means the snapshot is corrupt.
			return nil, nil, &inventory.InvariantViolationError{Reason: "plan shortfall after availability check"}
		}

		batchByID := make(map[uuid.UUID]*inventory.StockBatch, len(batches))
		for i := range batches {
			batchByID[batches[i].ID] = &batches[i]
		}

		changed := make([]*inventory.StockBatch, 0, len(plan.Takes))
		records := make([]*inventory.UsageRecord, 0, len(plan.Takes))
		for _, take := range plan.Takes {
			batch := batchByID[take.BatchID]
			if batch == nil {
				return nil, nil, &inventory.InvariantViolationError{BatchID: take.BatchID, Reason: "planned batch not among locked rows"}
			}
			if err := batch.DeductBase(take.TakeBase, pd.factor); err != nil {
				return nil, nil, err
			}
			changed = append(changed, batch)
			records = append(records, inventory.NewUsageRecord(branchID, saleID, pd.product.ID, batch.ID, take.Take, take.TakeBase))
		}

		if err := repos.BatchRepo().SaveAll(ctx, changed); err != nil {
			return nil, nil, err
		}
		if err := repos.UsageRepo().SaveAll(ctx, records); err != nil {
			return nil, nil, err
		}

		demand := demands[pd.product.ID]
		summary.Lines = append(summary.Lines, DeductionLine{
			ProductID:   pd.product.ID,
			ProductName: pd.product.Name,
			Quantity:    demand.Quantity,
			Unit:        pd.product.Unit,
			BatchesUsed: len(plan.Takes),
			TotalCost:   plan.TotalCost,
		})
		summary.ProductIDs = append(summary.ProductIDs, pd.product.ID)
		events = append(events, inventory.NewStockDeductedEvent(
			pd.product.ID, branchID, saleID, pd.product.Name, demand.Quantity, pd.product.Unit, len(plan.Takes)))
	}
	return summary, events, nil
}

// RestoreInScope credits a sale's deducted stock back to the exact batches it
// came from and marks the usage records restored. A sale with no unrestored
// usage records is a no-op, so repeated restorations are safe.
func (s *LedgerService) RestoreInScope(ctx context.Context, repos TransactionalRepositories, branchID, saleID uuid.UUID) (*RestorationSummary, []shared.DomainEvent, error) {
	records, err := repos.UsageRepo().FindUnrestoredBySale(ctx, saleID)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return &RestorationSummary{}, nil, nil
	}

	table := s.units.Table()
	productIDs := make([]uuid.UUID, 0, len(records))
	batchIDs := make([]uuid.UUID, 0, len(records))
	seenProducts := make(map[uuid.UUID]bool)
	seenBatches := make(map[uuid.UUID]bool)
	for _, r := range records {
		if !seenProducts[r.ProductID] {
			seenProducts[r.ProductID] = true
			productIDs = append(productIDs, r.ProductID)
		}
		if !seenBatches[r.BatchID] {
			seenBatches[r.BatchID] = true
			batchIDs = append(batchIDs, r.BatchID)
		}
	}

	products, err := repos.ProductRepo().FindByIDsForBranch(ctx, branchID, productIDs)
	if err != nil {
		return nil, nil, err
	}
	factorByProduct := make(map[uuid.UUID]int64, len(products))
	for _, p := range products {
		conv, err := table.Lookup(p.Unit)
		if err != nil {
			return nil, nil, err
		}
		factorByProduct[p.ID] = conv.Factor
	}

	batches, err := repos.BatchRepo().FindByIDsForUpdate(ctx, batchIDs)
	if err != nil {
		return nil, nil, err
	}
	batchByID := make(map[uuid.UUID]*inventory.StockBatch, len(batches))
	for i := range batches {
		batchByID[batches[i].ID] = &batches[i]
	}

	now := time.Now()
	updatedRecords := make([]*inventory.UsageRecord, 0, len(records))
	for i := range records {
		record := &records[i]
		batch := batchByID[record.BatchID]
		if batch == nil {
			return nil, nil, &inventory.InvariantViolationError{BatchID: record.BatchID, Reason: "usage record points at a missing batch"}
		}
		factor, ok := factorByProduct[record.ProductID]
		if !ok {
			return nil, nil, shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found: "+record.ProductID.String())
		}
		if err := batch.RestoreBase(record.QuantityUsedBase, factor); err != nil {
			return nil, nil, err
		}
		record.MarkRestored(now)
		updatedRecords = append(updatedRecords, record)
	}

	changed := make([]*inventory.StockBatch, 0, len(batchIDs))
	for _, id := range batchIDs {
		changed = append(changed, batchByID[id])
	}
	if err := repos.BatchRepo().SaveAll(ctx, changed); err != nil {
		return nil, nil, err
	}
	if err := repos.UsageRepo().SaveAll(ctx, updatedRecords); err != nil {
		return nil, nil, err
	}

	summary := &RestorationSummary{
		RecordsRestored: len(updatedRecords),
		ProductIDs:      productIDs,
	}
	events := []shared.DomainEvent{inventory.NewStockRestoredEvent(saleID, branchID, len(updatedRecords))}
	return summary, events, nil
}

// publish sends events after the transaction committed. Event delivery
// failures are handled by the bus, never surfaced to the caller.
func (s *LedgerService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}

// sumLinesPerProduct folds duplicate product lines into one demand each,
// keeping first-appearance order. Mixed units for one product are rejected
// before any conversion happens.
func sumLinesPerProduct(lines []LineRequest) (map[uuid.UUID]LineRequest, []uuid.UUID, error) {
	demands := make(map[uuid.UUID]LineRequest, len(lines))
	order := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.Quantity.Sign() <= 0 {
			return nil, nil, shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
		}
		existing, ok := demands[line.ProductID]
		if !ok {
			demands[line.ProductID] = line
			order = append(order, line.ProductID)
			continue
		}
		if existing.Unit != line.Unit {
			return nil, nil, shared.NewDomainError("MIXED_UNITS", "Lines for one product must use one unit")
		}
		existing.Quantity = existing.Quantity.Add(line.Quantity)
		demands[line.ProductID] = existing
	}
	return demands, order, nil
}
