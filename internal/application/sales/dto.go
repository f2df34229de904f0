package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// SaleLineRequest is one product position on a sale request. A line is
// priced at the product's current price unless the request carries an
// explicit unit price override.
type SaleLineRequest struct {
	ProductID uuid.UUID        `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal  `json:"quantity" binding:"required"`
	Unit      string           `json:"unit" binding:"required"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// DeliveryDetailsRequest carries the delivery details of a for-delivery sale
type DeliveryDetailsRequest struct {
	CustomerName string `json:"customer_name" binding:"required,notblank"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	CourierName  string `json:"courier_name"`
}

// CreateSaleRequest creates a sale and deducts its stock
type CreateSaleRequest struct {
	Lines    []SaleLineRequest       `json:"lines" binding:"required,min=1,dive"`
	Delivery *DeliveryDetailsRequest `json:"delivery"`
}

// CreateDeliveryRequest attaches a delivery to an existing sale
type CreateDeliveryRequest struct {
	SaleID       uuid.UUID `json:"sale_id" binding:"required"`
	CustomerName string    `json:"customer_name" binding:"required,notblank"`
	Address      string    `json:"address"`
	Phone        string    `json:"phone"`
	CourierName  string    `json:"courier_name"`
	Status       string    `json:"status"`
}

// SetDeliveryStatusRequest moves a delivery to a new status.
// Either the explicit status or the legacy boolean pair can be used. The
// courier can be reassigned on any update; a delivered date override is
// honored when the target state is delivered.
type SetDeliveryStatusRequest struct {
	Status        string     `json:"status"`
	IsDelivered   *bool      `json:"is_delivered"`
	IsPending     *bool      `json:"is_pending"`
	CourierName   *string    `json:"courier_name"`
	DeliveredDate *time.Time `json:"delivered_date"`
}

// SaleLineResponse represents a sale line in API responses
type SaleLineResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// SaleResponse represents a sale in API responses
type SaleResponse struct {
	ID          uuid.UUID          `json:"id"`
	BranchID    uuid.UUID          `json:"branch_id"`
	SaleNumber  string             `json:"sale_number"`
	Status      sales.SaleStatus   `json:"status"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	SoldAt      time.Time          `json:"sold_at"`
	Lines       []SaleLineResponse `json:"lines"`
}

// ToSaleResponse converts a sale to its response form
func ToSaleResponse(s *sales.Sale) SaleResponse {
	lines := make([]SaleLineResponse, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, SaleLineResponse{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			Unit:        l.Unit,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		})
	}
	return SaleResponse{
		ID:          s.ID,
		BranchID:    s.BranchID,
		SaleNumber:  s.SaleNumber,
		Status:      s.Status,
		TotalAmount: s.TotalAmount,
		SoldAt:      s.SoldAt,
		Lines:       lines,
	}
}

// DeliveryResponse represents a delivery in API responses.
// The boolean pair is kept for clients still reading the legacy fields.
type DeliveryResponse struct {
	ID           uuid.UUID            `json:"id"`
	BranchID     uuid.UUID            `json:"branch_id"`
	SaleID       uuid.UUID            `json:"sale_id"`
	Status       sales.DeliveryStatus `json:"status"`
	IsDelivered  bool                 `json:"is_delivered"`
	IsPending    bool                 `json:"is_pending"`
	CustomerName string               `json:"customer_name"`
	Address      string               `json:"address"`
	Phone        string               `json:"phone"`
	CourierName  string               `json:"courier_name"`
	DeliveredAt  *time.Time           `json:"delivered_at,omitempty"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// ToDeliveryResponse converts a delivery to its response form
func ToDeliveryResponse(d *sales.Delivery) DeliveryResponse {
	isDelivered, isPending := d.Status.Flags()
	return DeliveryResponse{
		ID:           d.ID,
		BranchID:     d.BranchID,
		SaleID:       d.SaleID,
		Status:       d.Status,
		IsDelivered:  isDelivered,
		IsPending:    isPending,
		CustomerName: d.CustomerName,
		Address:      d.Address,
		Phone:        d.Phone,
		CourierName:  d.CourierName,
		DeliveredAt:  d.DeliveredAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
