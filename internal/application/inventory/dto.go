package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// LineRequest is one product quantity to deduct or check
type LineRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	Unit      string          `json:"unit" binding:"required"`
}

// DeductionLine reports what one product's deduction cost and touched
type DeductionLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	BatchesUsed int             `json:"batches_used"`
	TotalCost   decimal.Decimal `json:"total_cost"`
}

// DeductionSummary is the result of deducting a sale's stock
type DeductionSummary struct {
	AlreadyDeducted bool            `json:"already_deducted"`
	Lines           []DeductionLine `json:"lines"`
	ProductIDs      []uuid.UUID     `json:"-"`
}

// RestorationSummary is the result of restoring a sale's stock
type RestorationSummary struct {
	RecordsRestored int         `json:"records_restored"`
	ProductIDs      []uuid.UUID `json:"-"`
}

// NothingToRestore returns true when the sale held no stock
func (r *RestorationSummary) NothingToRestore() bool {
	return r.RecordsRestored == 0
}

// CreateProductRequest creates a product, optionally with opening stock
type CreateProductRequest struct {
	Name            string          `json:"name" binding:"required,notblank"`
	Unit            string          `json:"unit" binding:"required"`
	UnitPrice       decimal.Decimal `json:"unit_price" binding:"required"`
	UnitCost        decimal.Decimal `json:"unit_cost" binding:"required"`
	Threshold       decimal.Decimal `json:"threshold"`
	InitialQuantity decimal.Decimal `json:"initial_quantity"`
	ExpiryDate      *time.Time      `json:"expiry_date"`
}

// AddStockRequest takes in new stock for an existing product
type AddStockRequest struct {
	Quantity   decimal.Decimal  `json:"quantity" binding:"required"`
	ExpiryDate *time.Time       `json:"expiry_date"`
	UnitPrice  *decimal.Decimal `json:"unit_price"`
	UnitCost   *decimal.Decimal `json:"unit_cost"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID               uuid.UUID       `json:"id"`
	BranchID         uuid.UUID       `json:"branch_id"`
	Name             string          `json:"name"`
	Unit             string          `json:"unit"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	Threshold        decimal.Decimal `json:"threshold"`
	LowStockNotified bool            `json:"low_stock_notified"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ToProductResponse converts a product to its response form
func ToProductResponse(p *inventory.Product) ProductResponse {
	return ProductResponse{
		ID:               p.ID,
		BranchID:         p.BranchID,
		Name:             p.Name,
		Unit:             p.Unit,
		UnitPrice:        p.UnitPrice,
		UnitCost:         p.UnitCost,
		Threshold:        p.Threshold,
		LowStockNotified: p.LowStockNotified,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// StockBatchResponse represents a stock batch in API responses
type StockBatchResponse struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	QuantityAdded decimal.Decimal `json:"quantity_added"`
	QuantityLeft  decimal.Decimal `json:"quantity_left"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	ExpiryDate    *time.Time      `json:"expiry_date,omitempty"`
	DateAdded     time.Time       `json:"date_added"`
}

// ToStockBatchResponse converts a batch to its response form
func ToStockBatchResponse(b *inventory.StockBatch) StockBatchResponse {
	return StockBatchResponse{
		ID:            b.ID,
		ProductID:     b.ProductID,
		QuantityAdded: b.QuantityAdded,
		QuantityLeft:  b.QuantityLeft,
		UnitPrice:     b.UnitPriceAtIntake,
		UnitCost:      b.UnitCostAtIntake,
		ExpiryDate:    b.ExpiryDate,
		DateAdded:     b.DateAdded,
	}
}

// StockLevelResponse reports a product's current availability
type StockLevelResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	Available   decimal.Decimal `json:"available"`
	Threshold   decimal.Decimal `json:"threshold"`
	BelowStock  bool            `json:"below_threshold"`
}

// ConsumptionPoint is one dated consumed quantity in a product's history
type ConsumptionPoint struct {
	Date     time.Time       `json:"date"`
	Quantity decimal.Decimal `json:"quantity"`
}

// AlertResponse represents an inventory alert in API responses
type AlertResponse struct {
	ID           uuid.UUID `json:"id"`
	ProductID    uuid.UUID `json:"product_id"`
	AlertType    string    `json:"alert_type"`
	Message      string    `json:"message"`
	Acknowledged bool      `json:"acknowledged"`
	CreatedAt    time.Time `json:"created_at"`
}

// ToAlertResponse converts an alert to its response form
func ToAlertResponse(a *inventory.InventoryAlert) AlertResponse {
	return AlertResponse{
		ID:           a.ID,
		ProductID:    a.ProductID,
		AlertType:    a.AlertType,
		Message:      a.Message,
		Acknowledged: a.Acknowledged,
		CreatedAt:    a.CreatedAt,
	}
}
