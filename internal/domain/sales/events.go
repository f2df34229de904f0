package sales

import (
	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types for the sales domain
const (
	EventTypeSaleCreated           = "sales.sale_created"
	EventTypeSaleCancelled         = "sales.sale_cancelled"
	EventTypeDeliveryStatusChanged = "sales.delivery_status_changed"
)

// SaleCreatedEvent is published after a sale and its stock deduction commit
type SaleCreatedEvent struct {
	shared.BaseDomainEvent
	SaleID      uuid.UUID       `json:"sale_id"`
	SaleNumber  string          `json:"sale_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewSaleCreatedEvent creates a new sale created event
func NewSaleCreatedEvent(saleID, branchID uuid.UUID, saleNumber string, totalAmount decimal.Decimal) *SaleCreatedEvent {
	return &SaleCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCreated, "Sale", saleID, branchID),
		SaleID:          saleID,
		SaleNumber:      saleNumber,
		TotalAmount:     totalAmount,
	}
}

// SaleCancelledEvent is published after a sale is cancelled and its stock
// restored
type SaleCancelledEvent struct {
	shared.BaseDomainEvent
	SaleID     uuid.UUID `json:"sale_id"`
	SaleNumber string    `json:"sale_number"`
}

// NewSaleCancelledEvent creates a new sale cancelled event
func NewSaleCancelledEvent(saleID, branchID uuid.UUID, saleNumber string) *SaleCancelledEvent {
	return &SaleCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCancelled, "Sale", saleID, branchID),
		SaleID:          saleID,
		SaleNumber:      saleNumber,
	}
}

// DeliveryStatusChangedEvent is published after a delivery status transition
// and its ledger effect commit together
type DeliveryStatusChangedEvent struct {
	shared.BaseDomainEvent
	DeliveryID uuid.UUID      `json:"delivery_id"`
	SaleID     uuid.UUID      `json:"sale_id"`
	FromStatus DeliveryStatus `json:"from_status"`
	ToStatus   DeliveryStatus `json:"to_status"`
}

// NewDeliveryStatusChangedEvent creates a new delivery status changed event
func NewDeliveryStatusChangedEvent(deliveryID, branchID, saleID uuid.UUID, from, to DeliveryStatus) *DeliveryStatusChangedEvent {
	return &DeliveryStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDeliveryStatusChanged, "Delivery", deliveryID, branchID),
		DeliveryID:      deliveryID,
		SaleID:          saleID,
		FromStatus:      from,
		ToStatus:        to,
	}
}
