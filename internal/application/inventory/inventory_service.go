package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/inventory"
	"github.com/ims/backend/internal/domain/shared"
	"github.com/ims/backend/internal/domain/unit"
	"github.com/shopspring/decimal"
)

// InventoryService handles product intake and stock queries
type InventoryService struct {
	scope          TransactionScope
	units          *unit.Registry
	detector       *LowStockDetector
	eventPublisher shared.EventPublisher
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(scope TransactionScope, units *unit.Registry) *InventoryService {
	return &InventoryService{
		scope: scope,
		units: units,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *InventoryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLowStockDetector sets the detector re-evaluated after stock intakes
func (s *InventoryService) SetLowStockDetector(detector *LowStockDetector) {
	s.detector = detector
}

// CreateProduct creates a product for a branch, optionally with an opening
// stock batch
func (s *InventoryService) CreateProduct(ctx context.Context, branchID uuid.UUID, req CreateProductRequest) (*ProductResponse, error) {
	table := s.units.Table()
	if !table.Has(req.Unit) {
		return nil, &unit.UnknownUnitError{Unit: req.Unit}
	}

	product, err := inventory.NewProduct(branchID, req.Name, req.Unit, req.UnitPrice, req.UnitCost, req.Threshold)
	if err != nil {
		return nil, err
	}

	var batch *inventory.StockBatch
	if req.InitialQuantity.Sign() > 0 {
		batch, err = s.buildBatch(product, req.InitialQuantity, req.UnitPrice, req.UnitCost, req.ExpiryDate)
		if err != nil {
			return nil, err
		}
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.ProductRepo().FindByNameForBranch(ctx, branchID, req.Name)
		if err == nil && existing != nil {
			return shared.NewDomainError("PRODUCT_EXISTS", "A product with this name already exists in the branch")
		}
		if err := repos.ProductRepo().Save(ctx, product); err != nil {
			return err
		}
		if batch != nil {
			return repos.BatchRepo().Save(ctx, batch)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if batch != nil {
		s.publishStockAdded(ctx, product, batch)
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// AddStock takes in a new batch for an existing product. The intake price and
// cost default to the product's current ones, so a price change later never
// rewrites history.
func (s *InventoryService) AddStock(ctx context.Context, branchID, productID uuid.UUID, req AddStockRequest) (*StockBatchResponse, error) {
	var product *inventory.Product
	var batch *inventory.StockBatch

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		product, err = repos.ProductRepo().FindByIDForBranch(ctx, branchID, productID)
		if err != nil {
			return err
		}

		price := product.UnitPrice
		cost := product.UnitCost
		if req.UnitPrice != nil {
			price = *req.UnitPrice
		}
		if req.UnitCost != nil {
			cost = *req.UnitCost
		}

		batch, err = s.buildBatch(product, req.Quantity, price, cost, req.ExpiryDate)
		if err != nil {
			return err
		}
		return repos.BatchRepo().Save(ctx, batch)
	})
	if err != nil {
		return nil, err
	}

	s.publishStockAdded(ctx, product, batch)
	if s.detector != nil {
		// Stock went up; the low stock flag may need re-arming.
		s.detector.Evaluate(ctx, branchID, []uuid.UUID{productID})
	}
	resp := ToStockBatchResponse(batch)
	return &resp, nil
}

// buildBatch converts an intake quantity through the unit table and creates
// the batch
func (s *InventoryService) buildBatch(product *inventory.Product, quantity, price, cost decimal.Decimal, expiry *time.Time) (*inventory.StockBatch, error) {
	table := s.units.Table()
	precise, err := table.IsPreciseMultiple(quantity, product.Unit)
	if err != nil {
		return nil, err
	}
	if !precise {
		minimum, _ := table.MinimumQuantity(product.Unit)
		return nil, &inventory.ImpreciseQuantityError{Quantity: quantity, Unit: product.Unit, Minimum: minimum}
	}
	base, err := table.ToBase(quantity, product.Unit)
	if err != nil {
		return nil, err
	}
	return inventory.NewStockBatch(product.BranchID, product.ID, quantity, base, price, cost, expiry, time.Now())
}

// publishStockAdded publishes the intake event after commit
func (s *InventoryService) publishStockAdded(ctx context.Context, product *inventory.Product, batch *inventory.StockBatch) {
	if s.eventPublisher == nil || product == nil || batch == nil {
		return
	}
	_ = s.eventPublisher.Publish(ctx, inventory.NewStockAddedEvent(
		product.ID, product.BranchID, batch.ID, batch.QuantityAdded, product.Unit))
}

// GetProduct retrieves a product by ID
func (s *InventoryService) GetProduct(ctx context.Context, branchID, productID uuid.UUID) (*ProductResponse, error) {
	var resp ProductResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		product, err := repos.ProductRepo().FindByIDForBranch(ctx, branchID, productID)
		if err != nil {
			return err
		}
		resp = ToProductResponse(product)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListProducts retrieves products of a branch with pagination
func (s *InventoryService) ListProducts(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]ProductResponse, error) {
	var out []ProductResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		products, err := repos.ProductRepo().FindAllForBranch(ctx, branchID, filter)
		if err != nil {
			return err
		}
		out = make([]ProductResponse, 0, len(products))
		for i := range products {
			out = append(out, ToProductResponse(&products[i]))
		}
		return nil
	})
	return out, err
}

// ListBatches retrieves the batches of a product, newest intake first
func (s *InventoryService) ListBatches(ctx context.Context, branchID, productID uuid.UUID) ([]StockBatchResponse, error) {
	var out []StockBatchResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		batches, err := repos.BatchRepo().FindByProduct(ctx, branchID, productID)
		if err != nil {
			return err
		}
		out = make([]StockBatchResponse, 0, len(batches))
		for i := range batches {
			out = append(out, ToStockBatchResponse(&batches[i]))
		}
		return nil
	})
	return out, err
}

// ConsumptionHistory returns the consumed quantity per intake batch of a
// product, oldest first. Consumption is what has left each batch since its
// intake; the series feeds demand forecasting.
func (s *InventoryService) ConsumptionHistory(ctx context.Context, branchID, productID uuid.UUID) ([]ConsumptionPoint, error) {
	var out []ConsumptionPoint
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.ProductRepo().FindByIDForBranch(ctx, branchID, productID); err != nil {
			return err
		}
		batches, err := repos.BatchRepo().FindByProduct(ctx, branchID, productID)
		if err != nil {
			return err
		}
		out = make([]ConsumptionPoint, 0, len(batches))
		for i := len(batches) - 1; i >= 0; i-- {
			b := &batches[i]
			consumed := b.QuantityAdded.Sub(b.QuantityLeft)
			if consumed.Sign() <= 0 {
				continue
			}
			out = append(out, ConsumptionPoint{Date: b.DateAdded, Quantity: consumed})
		}
		return nil
	})
	return out, err
}

// GetStockLevels reports the current unexpired availability per product.
// With no product IDs given it covers the whole branch.
func (s *InventoryService) GetStockLevels(ctx context.Context, branchID uuid.UUID, productIDs []uuid.UUID) ([]StockLevelResponse, error) {
	table := s.units.Table()
	var out []StockLevelResponse

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var products []inventory.Product
		var err error
		if len(productIDs) == 0 {
			products, err = repos.ProductRepo().FindAllForBranch(ctx, branchID, shared.DefaultFilter())
		} else {
			products, err = repos.ProductRepo().FindByIDsForBranch(ctx, branchID, productIDs)
		}
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

		out = make([]StockLevelResponse, 0, len(products))
		for i := range products {
			p := &products[i]
			display, err := table.ToDisplay(available[p.ID], p.Unit)
			if err != nil {
				return err
			}
			out = append(out, StockLevelResponse{
				ProductID:   p.ID,
				ProductName: p.Name,
				Unit:        p.Unit,
				Available:   display,
				Threshold:   p.Threshold,
				BelowStock:  p.IsBelowThreshold(display),
			})
		}
		return nil
	})
	return out, err
}

// ListAlerts returns the open alerts of a branch
func (s *InventoryService) ListAlerts(ctx context.Context, branchID uuid.UUID) ([]AlertResponse, error) {
	var out []AlertResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		alerts, err := repos.AlertRepo().FindUnacknowledgedForBranch(ctx, branchID)
		if err != nil {
			return err
		}
		out = make([]AlertResponse, 0, len(alerts))
		for i := range alerts {
			out = append(out, ToAlertResponse(&alerts[i]))
		}
		return nil
	})
	return out, err
}

// AcknowledgeAlert marks an alert as seen
func (s *InventoryService) AcknowledgeAlert(ctx context.Context, alertID uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.AlertRepo().Acknowledge(ctx, alertID)
	})
}
