package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	appinventory "github.com/ims/backend/internal/application/inventory"
	"github.com/ims/backend/internal/domain/sales"
	"github.com/ims/backend/internal/domain/shared"
)

// saleNumberAttempts bounds the retry loop for sale number collisions
const saleNumberAttempts = 5

// SaleService creates and cancels sales. A sale's stock moves in the same
// transaction as the sale itself: creation deducts, cancellation restores,
// and neither can land without the other.
type SaleService struct {
	scope          appinventory.TransactionScope
	ledger         *appinventory.LedgerService
	detector       *appinventory.LowStockDetector
	eventPublisher shared.EventPublisher
}

// NewSaleService creates a new SaleService
func NewSaleService(scope appinventory.TransactionScope, ledger *appinventory.LedgerService) *SaleService {
	return &SaleService{
		scope:  scope,
		ledger: ledger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *SaleService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLowStockDetector sets the detector run after ledger changes commit
func (s *SaleService) SetLowStockDetector(detector *appinventory.LowStockDetector) {
	s.detector = detector
}

// Create prices the requested lines at the products' current prices, or at
// the per-line override when the request carries one, deducts
// their stock and persists the sale, all in one transaction. A sale with
// delivery details gets a delivery record starting out for delivery; its
// stock is already held by the sale, so no further ledger effect applies.
func (s *SaleService) Create(ctx context.Context, branchID uuid.UUID, req CreateSaleRequest) (*SaleResponse, error) {
	var sale *sales.Sale
	var summary *appinventory.DeductionSummary
	var pendingEvents []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		productIDs := make([]uuid.UUID, 0, len(req.Lines))
		for _, line := range req.Lines {
			productIDs = append(productIDs, line.ProductID)
		}
		products, err := repos.ProductRepo().FindByIDsForBranch(ctx, branchID, productIDs)
		if err != nil {
			return err
		}
		productByID := make(map[uuid.UUID]int, len(products))
		for i := range products {
			productByID[products[i].ID] = i
		}

		lines := make([]sales.SaleLine, 0, len(req.Lines))
		lineReqs := make([]appinventory.LineRequest, 0, len(req.Lines))
		for _, line := range req.Lines {
			idx, ok := productByID[line.ProductID]
			if !ok {
				return shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found: "+line.ProductID.String())
			}
			product := &products[idx]
			unitPrice := product.UnitPrice
			if line.UnitPrice != nil {
				unitPrice = *line.UnitPrice
			}
			lines = append(lines, sales.NewSaleLine(product.ID, product.Name, line.Quantity, line.Unit, unitPrice))
			lineReqs = append(lineReqs, appinventory.LineRequest{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Unit:      line.Unit,
			})
		}

		saleNumber, err := s.pickSaleNumber(ctx, repos, branchID)
		if err != nil {
			return err
		}
		sale, err = sales.NewSale(branchID, saleNumber, lines, time.Now())
		if err != nil {
			return err
		}

		var events []shared.DomainEvent
		summary, events, err = s.ledger.DeductInScope(ctx, repos, branchID, sale.ID, lineReqs)
		if err != nil {
			return err
		}
		pendingEvents = append(pendingEvents, events...)

		if err := repos.SaleRepo().Save(ctx, sale); err != nil {
			return err
		}
		pendingEvents = append(pendingEvents, sale.GetDomainEvents()...)
		sale.ClearDomainEvents()

		if req.Delivery != nil {
			delivery, err := sales.NewDelivery(branchID, sale.ID, sales.DeliveryStatusOutForDelivery,
				req.Delivery.CustomerName, req.Delivery.Address, req.Delivery.Phone, req.Delivery.CourierName)
			if err != nil {
				return err
			}
			if err := repos.DeliveryRepo().Save(ctx, delivery); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, pendingEvents)
	if s.detector != nil && summary != nil {
		s.detector.Evaluate(ctx, branchID, summary.ProductIDs)
	}
	resp := ToSaleResponse(sale)
	return &resp, nil
}

// Cancel marks a sale cancelled and restores its stock to the original
// batches. If the sale has a delivery it falls back to undelivered; the
// restoration already happened, so that transition's effect is a no-op.
func (s *SaleService) Cancel(ctx context.Context, branchID, saleID uuid.UUID) (*SaleResponse, error) {
	var sale *sales.Sale
	var summary *appinventory.RestorationSummary
	var pendingEvents []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		var err error
		sale, err = repos.SaleRepo().FindByIDForBranch(ctx, branchID, saleID)
		if err != nil {
			return err
		}
		if err := sale.Cancel(); err != nil {
			return err
		}

		var events []shared.DomainEvent
		summary, events, err = s.ledger.RestoreInScope(ctx, repos, branchID, saleID)
		if err != nil {
			return err
		}
		pendingEvents = append(pendingEvents, events...)

		if err := repos.SaleRepo().Save(ctx, sale); err != nil {
			return err
		}
		pendingEvents = append(pendingEvents, sale.GetDomainEvents()...)
		sale.ClearDomainEvents()

		delivery, err := repos.DeliveryRepo().FindBySaleIDForUpdate(ctx, saleID)
		if err == nil && delivery != nil && delivery.Status != sales.DeliveryStatusUndelivered {
			if _, err := delivery.Transition(sales.DeliveryStatusUndelivered); err != nil {
				return err
			}
			if err := repos.DeliveryRepo().Save(ctx, delivery); err != nil {
				return err
			}
			pendingEvents = append(pendingEvents, delivery.GetDomainEvents()...)
			delivery.ClearDomainEvents()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, pendingEvents)
	if s.detector != nil && summary != nil {
		s.detector.Evaluate(ctx, branchID, summary.ProductIDs)
	}
	resp := ToSaleResponse(sale)
	return &resp, nil
}

// Get retrieves a sale by ID
func (s *SaleService) Get(ctx context.Context, branchID, saleID uuid.UUID) (*SaleResponse, error) {
	var resp SaleResponse
	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		sale, err := repos.SaleRepo().FindByIDForBranch(ctx, branchID, saleID)
		if err != nil {
			return err
		}
		resp = ToSaleResponse(sale)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// List retrieves the sales of a branch with pagination
func (s *SaleService) List(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]SaleResponse, error) {
	var out []SaleResponse
	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		items, err := repos.SaleRepo().FindAllForBranch(ctx, branchID, filter)
		if err != nil {
			return err
		}
		out = make([]SaleResponse, 0, len(items))
		for i := range items {
			out = append(out, ToSaleResponse(&items[i]))
		}
		return nil
	})
	return out, err
}

// pickSaleNumber generates a sale number, retrying on the rare collision
func (s *SaleService) pickSaleNumber(ctx context.Context, repos appinventory.TransactionalRepositories, branchID uuid.UUID) (string, error) {
	for i := 0; i < saleNumberAttempts; i++ {
		number := sales.GenerateSaleNumber()
		taken, err := repos.SaleRepo().ExistsBySaleNumber(ctx, branchID, number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return "", shared.NewDomainError("SALE_NUMBER_EXHAUSTED", "Could not generate a unique sale number")
}

// publish sends events after the transaction committed
func (s *SaleService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
