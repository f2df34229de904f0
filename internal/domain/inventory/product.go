package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product represents a sellable product at a branch.
// Quantities for a product are always expressed in its display unit; the
// conversion table maps that unit onto integer base units for storage.
type Product struct {
	shared.BranchAggregateRoot
	Name             string          `gorm:"not null;index:idx_products_branch_name,unique,composite:branch_name"`
	Unit             string          `gorm:"not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	Threshold        decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	LowStockNotified bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product for a branch
func NewProduct(branchID uuid.UUID, name, unit string, unitPrice, unitCost, threshold decimal.Decimal) (*Product, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if unit == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_UNIT", "Product unit cannot be empty")
	}
	if unitPrice.IsNegative() || unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRODUCT_PRICE", "Product price and cost cannot be negative")
	}
	if threshold.IsNegative() {
		return nil, shared.NewDomainError("INVALID_THRESHOLD", "Low stock threshold cannot be negative")
	}

	return &Product{
		BranchAggregateRoot: shared.NewBranchAggregateRoot(branchID),
		Name:                name,
		Unit:                unit,
		UnitPrice:           unitPrice,
		UnitCost:            unitCost,
		Threshold:           threshold,
		LowStockNotified:    false,
	}, nil
}

// UpdatePricing changes the current price and cost used for new stock intakes.
// Existing batches keep the price and cost captured at their intake.
func (p *Product) UpdatePricing(unitPrice, unitCost decimal.Decimal) error {
	if unitPrice.IsNegative() || unitCost.IsNegative() {
		return shared.NewDomainError("INVALID_PRODUCT_PRICE", "Product price and cost cannot be negative")
	}
	p.UnitPrice = unitPrice
	p.UnitCost = unitCost
	p.UpdatedAt = time.Now()
	return nil
}

// UpdateThreshold changes the low stock threshold
func (p *Product) UpdateThreshold(threshold decimal.Decimal) error {
	if threshold.IsNegative() {
		return shared.NewDomainError("INVALID_THRESHOLD", "Low stock threshold cannot be negative")
	}
	p.Threshold = threshold
	p.UpdatedAt = time.Now()
	return nil
}

// IsBelowThreshold returns true if the available quantity is at or below the
// product's low stock threshold
func (p *Product) IsBelowThreshold(available decimal.Decimal) bool {
	return available.LessThanOrEqual(p.Threshold)
}

// MarkBelowThreshold records that a low stock alert has been raised.
// It returns true only on the transition from healthy to low, so repeated
// checks while stock stays low raise a single alert.
func (p *Product) MarkBelowThreshold(available decimal.Decimal) bool {
	if p.LowStockNotified {
		return false
	}
	p.LowStockNotified = true
	p.UpdatedAt = time.Now()
	p.AddDomainEvent(NewStockBelowThresholdEvent(p.ID, p.BranchID, p.Name, p.Unit, available, p.Threshold))
	return true
}

// MarkRecovered clears the low stock flag once stock rises above the
// threshold again, re-arming the alert for the next dip.
func (p *Product) MarkRecovered(available decimal.Decimal) bool {
	if !p.LowStockNotified {
		return false
	}
	p.LowStockNotified = false
	p.UpdatedAt = time.Now()
	p.AddDomainEvent(NewStockRecoveredEvent(p.ID, p.BranchID, p.Name, p.Unit, available, p.Threshold))
	return true
}
