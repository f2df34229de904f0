package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types for the inventory domain
const (
	EventTypeStockDeducted       = "inventory.stock_deducted"
	EventTypeStockRestored       = "inventory.stock_restored"
	EventTypeStockAdded          = "inventory.stock_added"
	EventTypeStockBelowThreshold = "inventory.stock_below_threshold"
	EventTypeStockRecovered      = "inventory.stock_recovered"
	EventTypeBatchExpiring       = "inventory.batch_expiring"
)

// StockDeductedEvent is published after a sale's stock has been taken from
// batches and committed
type StockDeductedEvent struct {
	shared.BaseDomainEvent
	SaleID      uuid.UUID       `json:"sale_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	BatchesUsed int             `json:"batches_used"`
}

// NewStockDeductedEvent creates a new stock deducted event
func NewStockDeductedEvent(productID, branchID, saleID uuid.UUID, productName string, quantity decimal.Decimal, unit string, batchesUsed int) *StockDeductedEvent {
	return &StockDeductedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockDeducted, "Product", productID, branchID),
		SaleID:          saleID,
		ProductID:       productID,
		ProductName:     productName,
		Quantity:        quantity,
		Unit:            unit,
		BatchesUsed:     batchesUsed,
	}
}

// StockRestoredEvent is published after a sale's stock has been credited back
// to its original batches
type StockRestoredEvent struct {
	shared.BaseDomainEvent
	SaleID          uuid.UUID `json:"sale_id"`
	RecordsRestored int       `json:"records_restored"`
}

// NewStockRestoredEvent creates a new stock restored event
func NewStockRestoredEvent(saleID, branchID uuid.UUID, recordsRestored int) *StockRestoredEvent {
	return &StockRestoredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockRestored, "Sale", saleID, branchID),
		SaleID:          saleID,
		RecordsRestored: recordsRestored,
	}
}

// StockAddedEvent is published when new stock is taken in for a product
type StockAddedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID       `json:"product_id"`
	BatchID   uuid.UUID       `json:"batch_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
}

// NewStockAddedEvent creates a new stock added event
func NewStockAddedEvent(productID, branchID, batchID uuid.UUID, quantity decimal.Decimal, unit string) *StockAddedEvent {
	return &StockAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdded, "Product", productID, branchID),
		ProductID:       productID,
		BatchID:         batchID,
		Quantity:        quantity,
		Unit:            unit,
	}
}

// StockBelowThresholdEvent is published once when a product's available stock
// falls to or below its threshold
type StockBelowThresholdEvent struct {
	shared.BaseDomainEvent
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	Available   decimal.Decimal `json:"available"`
	Threshold   decimal.Decimal `json:"threshold"`
}

// NewStockBelowThresholdEvent creates a new stock below threshold event
func NewStockBelowThresholdEvent(productID, branchID uuid.UUID, productName, unit string, available, threshold decimal.Decimal) *StockBelowThresholdEvent {
	return &StockBelowThresholdEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockBelowThreshold, "Product", productID, branchID),
		ProductID:       productID,
		ProductName:     productName,
		Unit:            unit,
		Available:       available,
		Threshold:       threshold,
	}
}

// StockRecoveredEvent is published once when a product's available stock rises
// back above its threshold, re-arming the low stock alert
type StockRecoveredEvent struct {
	shared.BaseDomainEvent
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	Available   decimal.Decimal `json:"available"`
	Threshold   decimal.Decimal `json:"threshold"`
}

// NewStockRecoveredEvent creates a new stock recovered event
func NewStockRecoveredEvent(productID, branchID uuid.UUID, productName, unit string, available, threshold decimal.Decimal) *StockRecoveredEvent {
	return &StockRecoveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockRecovered, "Product", productID, branchID),
		ProductID:       productID,
		ProductName:     productName,
		Unit:            unit,
		Available:       available,
		Threshold:       threshold,
	}
}

// BatchExpiringEvent is published for a batch that still holds stock and will
// expire within the detector's warning window
type BatchExpiringEvent struct {
	shared.BaseDomainEvent
	BatchID      uuid.UUID       `json:"batch_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	QuantityLeft decimal.Decimal `json:"quantity_left"`
	Unit         string          `json:"unit"`
	ExpiryDate   time.Time       `json:"expiry_date"`
}

// NewBatchExpiringEvent creates a new batch expiring event
func NewBatchExpiringEvent(batchID, productID, branchID uuid.UUID, productName string, quantityLeft decimal.Decimal, unit string, expiryDate time.Time) *BatchExpiringEvent {
	return &BatchExpiringEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchExpiring, "StockBatch", batchID, branchID),
		BatchID:         batchID,
		ProductID:       productID,
		ProductName:     productName,
		QuantityLeft:    quantityLeft,
		Unit:            unit,
		ExpiryDate:      expiryDate,
	}
}
