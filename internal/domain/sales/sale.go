package sales

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SaleStatus represents the lifecycle status of a sale
type SaleStatus string

const (
	// SaleStatusActive is a live sale
	SaleStatusActive SaleStatus = "active"
	// SaleStatusCancelled is a cancelled sale; its stock has been restored
	SaleStatusCancelled SaleStatus = "cancelled"
)

// Sale is a point-of-sale transaction at a branch.
// Creating a sale deducts stock for every line; cancelling it restores the
// exact batches that stock came from.
type Sale struct {
	shared.BranchAggregateRoot
	SaleNumber  string          `gorm:"not null;uniqueIndex"`
	Status      SaleStatus      `gorm:"not null;default:'active'"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	SoldAt      time.Time       `gorm:"not null"`
	Lines       []SaleLine      `gorm:"foreignKey:SaleID"`
}

// TableName returns the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// SaleLine is one product position on a sale
type SaleLine struct {
	shared.BaseEntity
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	Unit        string          `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(20,8);not null"`
}

// TableName returns the table name for GORM
func (SaleLine) TableName() string {
	return "sale_lines"
}

// GenerateSaleNumber produces a 7-digit human-facing sale number.
// Receipt numbers are what staff read out over the phone; uniqueness is
// enforced by the database, callers retry on collision.
func GenerateSaleNumber() string {
	return fmt.Sprintf("%07d", 1000000+rand.IntN(9000000))
}

// NewSale creates an active sale with the given lines
func NewSale(branchID uuid.UUID, saleNumber string, lines []SaleLine, soldAt time.Time) (*Sale, error) {
	if len(lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_SALE", "A sale must have at least one line")
	}

	total := decimal.Zero
	for i := range lines {
		if lines[i].Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Sale line quantity must be positive")
		}
		lines[i].LineTotal = lines[i].Quantity.Mul(lines[i].UnitPrice)
		total = total.Add(lines[i].LineTotal)
	}

	sale := &Sale{
		BranchAggregateRoot: shared.NewBranchAggregateRoot(branchID),
		SaleNumber:          saleNumber,
		Status:              SaleStatusActive,
		TotalAmount:         total,
		SoldAt:              soldAt,
		Lines:               lines,
	}
	for i := range sale.Lines {
		sale.Lines[i].SaleID = sale.ID
	}
	sale.AddDomainEvent(NewSaleCreatedEvent(sale.ID, branchID, saleNumber, total))
	return sale, nil
}

// NewSaleLine creates a sale line for a product
func NewSaleLine(productID uuid.UUID, productName string, quantity decimal.Decimal, unit string, unitPrice decimal.Decimal) SaleLine {
	return SaleLine{
		BaseEntity:  shared.NewBaseEntity(),
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		Unit:        unit,
		UnitPrice:   unitPrice,
		LineTotal:   quantity.Mul(unitPrice),
	}
}

// IsActive returns true if the sale has not been cancelled
func (s *Sale) IsActive() bool {
	return s.Status == SaleStatusActive
}

// Cancel marks the sale cancelled. Cancelling twice is an error; the caller
// restores the sale's stock in the same transaction.
func (s *Sale) Cancel() error {
	if s.Status == SaleStatusCancelled {
		return shared.NewDomainError("SALE_ALREADY_CANCELLED", "Sale has already been cancelled")
	}
	s.Status = SaleStatusCancelled
	s.UpdatedAt = time.Now()
	s.AddDomainEvent(NewSaleCancelledEvent(s.ID, s.BranchID, s.SaleNumber))
	return nil
}
