package sales

import (
	"context"
	"errors"

	"github.com/google/uuid"
	appinventory "github.com/ims/backend/internal/application/inventory"
	"github.com/ims/backend/internal/domain/inventory"
	"github.com/ims/backend/internal/domain/sales"
	"github.com/ims/backend/internal/domain/shared"
)

// DeliveryService drives the delivery status state machine. Every status
// change locks the sale's delivery row, applies the transition's ledger
// effect in the same transaction and commits both together, so the invariant
// "stock deducted exactly when the delivery is in an active state" holds at
// every commit point.
type DeliveryService struct {
	scope          appinventory.TransactionScope
	ledger         *appinventory.LedgerService
	detector       *appinventory.LowStockDetector
	eventPublisher shared.EventPublisher
}

// NewDeliveryService creates a new DeliveryService
func NewDeliveryService(scope appinventory.TransactionScope, ledger *appinventory.LedgerService) *DeliveryService {
	return &DeliveryService{
		scope:  scope,
		ledger: ledger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *DeliveryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLowStockDetector sets the detector run after ledger changes commit
func (s *DeliveryService) SetLowStockDetector(detector *appinventory.LowStockDetector) {
	s.detector = detector
}

// Create attaches a delivery to an existing active sale. The initial status
// defaults to out for delivery; an active initial status ensures the sale's
// stock is deducted in the same transaction, while an undelivered one keeps
// the stock the sale already holds.
func (s *DeliveryService) Create(ctx context.Context, branchID uuid.UUID, req CreateDeliveryRequest) (*DeliveryResponse, error) {
	status := sales.DeliveryStatusOutForDelivery
	if req.Status != "" {
		status = sales.DeliveryStatus(req.Status)
		if !status.IsValid() {
			return nil, shared.NewDomainError("INVALID_DELIVERY_STATUS", "Unknown delivery status: "+req.Status)
		}
	}

	var delivery *sales.Delivery
	var affectedProducts []uuid.UUID
	var pendingEvents []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		sale, err := repos.SaleRepo().FindByIDForBranch(ctx, branchID, req.SaleID)
		if err != nil {
			return err
		}
		if !sale.IsActive() {
			return shared.NewDomainError("SALE_CANCELLED", "Cannot create a delivery for a cancelled sale")
		}
		existing, err := repos.DeliveryRepo().FindBySaleID(ctx, req.SaleID)
		if err == nil && existing != nil {
			return shared.NewDomainError("DELIVERY_EXISTS", "Sale already has a delivery")
		}

		delivery, err = sales.NewDelivery(branchID, sale.ID, status, req.CustomerName, req.Address, req.Phone, req.CourierName)
		if err != nil {
			return err
		}

		products, events, err := s.ensureLedgerState(ctx, repos, sale, status)
		if err != nil {
			return err
		}
		affectedProducts = products
		pendingEvents = append(pendingEvents, events...)

		return repos.DeliveryRepo().Save(ctx, delivery)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, pendingEvents)
	if s.detector != nil && len(affectedProducts) > 0 {
		s.detector.Evaluate(ctx, branchID, affectedProducts)
	}
	resp := ToDeliveryResponse(delivery)
	return &resp, nil
}

// SetStatus moves the delivery of a sale to a new status. The target can be
// given as an explicit status or as the legacy boolean pair; a contradictory
// pair is rejected before anything is touched.
//
// A transition that needs stock the branch no longer has fails with
// InsufficientStockForTransitionError and leaves the delivery unchanged.
func (s *DeliveryService) SetStatus(ctx context.Context, branchID, saleID uuid.UUID, req SetDeliveryStatusRequest) (*DeliveryResponse, error) {
	target, err := resolveTargetStatus(req)
	if err != nil {
		return nil, err
	}

	var delivery *sales.Delivery
	var affectedProducts []uuid.UUID
	var pendingEvents []shared.DomainEvent

	err = s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		var err error
		delivery, err = repos.DeliveryRepo().FindBySaleIDForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if delivery == nil {
			return shared.NewDomainError("DELIVERY_NOT_FOUND", "Sale has no delivery")
		}
		if delivery.BranchID != branchID {
			return shared.ErrNotFound
		}

		from := delivery.Status
		effect, err := delivery.Transition(target)
		if err != nil {
			return err
		}
		if req.CourierName != nil {
			delivery.AssignCourier(*req.CourierName)
		}
		if req.DeliveredDate != nil {
			delivery.OverrideDeliveredAt(*req.DeliveredDate)
		}

		switch effect {
		case sales.StockEffectDeduct:
			sale, err := repos.SaleRepo().FindByIDForBranch(ctx, branchID, saleID)
			if err != nil {
				return err
			}
			summary, events, err := s.ledger.DeductInScope(ctx, repos, branchID, saleID, lineRequests(sale))
			if err != nil {
				var short *inventory.InsufficientStockError
				if errors.As(err, &short) {
					return &sales.InsufficientStockForTransitionError{
						SaleID:     saleID,
						From:       from,
						To:         target,
						Shortfalls: short.Shortfalls,
					}
				}
				return err
			}
			affectedProducts = summary.ProductIDs
			pendingEvents = append(pendingEvents, events...)

		case sales.StockEffectRestore:
			summary, events, err := s.ledger.RestoreInScope(ctx, repos, branchID, saleID)
			if err != nil {
				return err
			}
			affectedProducts = summary.ProductIDs
			pendingEvents = append(pendingEvents, events...)
		}

		if err := repos.DeliveryRepo().Save(ctx, delivery); err != nil {
			return err
		}
		pendingEvents = append(pendingEvents, delivery.GetDomainEvents()...)
		delivery.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, pendingEvents)
	if s.detector != nil && len(affectedProducts) > 0 {
		s.detector.Evaluate(ctx, branchID, affectedProducts)
	}
	resp := ToDeliveryResponse(delivery)
	return &resp, nil
}

// Get retrieves the delivery of a sale
func (s *DeliveryService) Get(ctx context.Context, branchID, saleID uuid.UUID) (*DeliveryResponse, error) {
	var resp DeliveryResponse
	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		delivery, err := repos.DeliveryRepo().FindBySaleID(ctx, saleID)
		if err != nil {
			return err
		}
		if delivery == nil || delivery.BranchID != branchID {
			return shared.ErrNotFound
		}
		resp = ToDeliveryResponse(delivery)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// List retrieves the deliveries of a branch with pagination
func (s *DeliveryService) List(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]DeliveryResponse, error) {
	var out []DeliveryResponse
	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		items, err := repos.DeliveryRepo().FindAllForBranch(ctx, branchID, filter)
		if err != nil {
			return err
		}
		out = make([]DeliveryResponse, 0, len(items))
		for i := range items {
			out = append(out, ToDeliveryResponse(&items[i]))
		}
		return nil
	})
	return out, err
}

// ensureLedgerState brings the sale's ledger state in line with a delivery's
// initial status: active states ensure the stock is deducted. An undelivered
// delivery leaves the ledger alone; the stock the sale deducted at creation
// stays held until a status update first lands on undelivered. The deduction
// is idempotent, so this is safe no matter what state the sale is already in.
func (s *DeliveryService) ensureLedgerState(ctx context.Context, repos appinventory.TransactionalRepositories, sale *sales.Sale, status sales.DeliveryStatus) ([]uuid.UUID, []shared.DomainEvent, error) {
	if !status.IsActive() {
		return nil, nil, nil
	}
	summary, events, err := s.ledger.DeductInScope(ctx, repos, sale.BranchID, sale.ID, lineRequests(sale))
	if err != nil {
		return nil, nil, err
	}
	return summary.ProductIDs, events, nil
}

// lineRequests converts a sale's lines into ledger line requests
func lineRequests(sale *sales.Sale) []appinventory.LineRequest {
	out := make([]appinventory.LineRequest, 0, len(sale.Lines))
	for _, line := range sale.Lines {
		out = append(out, appinventory.LineRequest{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Unit:      line.Unit,
		})
	}
	return out
}

// resolveTargetStatus accepts either the explicit status field or the legacy
// boolean pair
func resolveTargetStatus(req SetDeliveryStatusRequest) (sales.DeliveryStatus, error) {
	if req.Status != "" {
		status := sales.DeliveryStatus(req.Status)
		if !status.IsValid() {
			return "", shared.NewDomainError("INVALID_DELIVERY_STATUS", "Unknown delivery status: "+req.Status)
		}
		return status, nil
	}
	if req.IsDelivered == nil && req.IsPending == nil {
		return "", shared.NewDomainError("INVALID_DELIVERY_STATUS", "A target status is required")
	}
	var delivered, pending bool
	if req.IsDelivered != nil {
		delivered = *req.IsDelivered
	}
	if req.IsPending != nil {
		pending = *req.IsPending
	}
	return sales.StatusFromFlags(delivered, pending)
}

// publish sends events after the transaction committed
func (s *DeliveryService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
