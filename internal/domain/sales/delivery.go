package sales

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/shared"
)

// DeliveryStatus is the explicit delivery state of a sale
type DeliveryStatus string

const (
	// DeliveryStatusUndelivered means the order sits at the branch and its
	// stock is not committed
	DeliveryStatusUndelivered DeliveryStatus = "undelivered"
	// DeliveryStatusOutForDelivery means the order has left with a driver
	DeliveryStatusOutForDelivery DeliveryStatus = "out_for_delivery"
	// DeliveryStatusDelivered means the order reached the customer
	DeliveryStatusDelivered DeliveryStatus = "delivered"
)

// IsValid checks if the status is one of the known states
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusUndelivered, DeliveryStatusOutForDelivery, DeliveryStatusDelivered:
		return true
	}
	return false
}

// String returns the string representation
func (s DeliveryStatus) String() string {
	return string(s)
}

// IsActive returns true for states in which the order's stock must be
// deducted. Out for delivery and delivered both hold stock; undelivered
// does not.
func (s DeliveryStatus) IsActive() bool {
	return s == DeliveryStatusOutForDelivery || s == DeliveryStatusDelivered
}

// InvalidDeliveryFlagsError is returned when a stored boolean pair does not
// map to any delivery state
type InvalidDeliveryFlagsError struct {
	IsDelivered bool
	IsPending   bool
}

// Error implements the error interface
func (e *InvalidDeliveryFlagsError) Error() string {
	return fmt.Sprintf("delivery flags (delivered=%t, pending=%t) do not map to a delivery status", e.IsDelivered, e.IsPending)
}

// StatusFromFlags maps the legacy boolean pair onto a delivery status.
// delivered+pending at once is contradictory and rejected.
func StatusFromFlags(isDelivered, isPending bool) (DeliveryStatus, error) {
	switch {
	case isDelivered && isPending:
		return "", &InvalidDeliveryFlagsError{IsDelivered: isDelivered, IsPending: isPending}
	case isDelivered:
		return DeliveryStatusDelivered, nil
	case isPending:
		return DeliveryStatusOutForDelivery, nil
	default:
		return DeliveryStatusUndelivered, nil
	}
}

// Flags maps the status back onto the legacy boolean pair
func (s DeliveryStatus) Flags() (isDelivered, isPending bool) {
	switch s {
	case DeliveryStatusDelivered:
		return true, false
	case DeliveryStatusOutForDelivery:
		return false, true
	default:
		return false, false
	}
}

// StockEffect is what a delivery status transition requires of the stock
// ledger
type StockEffect int

const (
	// StockEffectNone leaves the ledger untouched
	StockEffectNone StockEffect = iota
	// StockEffectDeduct requires the sale's stock to be deducted
	StockEffectDeduct
	// StockEffectRestore requires the sale's stock to be restored
	StockEffectRestore
)

// String returns the string representation
func (e StockEffect) String() string {
	switch e {
	case StockEffectDeduct:
		return "deduct"
	case StockEffectRestore:
		return "restore"
	default:
		return "none"
	}
}

// TransitionEffect returns the ledger effect of moving from one status to
// another. Every pair is spelled out: moving between the two active states
// never touches stock, entering an active state from undelivered deducts,
// and any update landing on undelivered restores. The restore itself is
// idempotent, so re-asserting undelivered only releases stock the sale
// still holds.
func TransitionEffect(from, to DeliveryStatus) (StockEffect, error) {
	if !from.IsValid() {
		return StockEffectNone, shared.NewDomainError("INVALID_DELIVERY_STATUS", "Unknown delivery status: "+from.String())
	}
	if !to.IsValid() {
		return StockEffectNone, shared.NewDomainError("INVALID_DELIVERY_STATUS", "Unknown delivery status: "+to.String())
	}

	switch {
	case from == DeliveryStatusUndelivered && to == DeliveryStatusOutForDelivery:
		return StockEffectDeduct, nil
	case from == DeliveryStatusUndelivered && to == DeliveryStatusDelivered:
		return StockEffectDeduct, nil
	case to == DeliveryStatusUndelivered:
		return StockEffectRestore, nil
	default:
		// same active state, or movement between the two active states
		return StockEffectNone, nil
	}
}

// Delivery tracks the delivery state of one sale.
// There is at most one delivery per sale; transitions are serialized through
// a row lock on this record.
type Delivery struct {
	shared.BranchAggregateRoot
	SaleID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"`
	Status       DeliveryStatus `gorm:"not null;default:'undelivered'"`
	CustomerName string         `gorm:"not null"`
	Address      string
	Phone        string
	CourierName  string
	DeliveredAt  *time.Time
}

// TableName returns the table name for GORM
func (Delivery) TableName() string {
	return "deliveries"
}

// NewDelivery creates a delivery for a sale in the given initial status.
// The caller is responsible for applying the matching ledger effect; the
// delivery service does this through the ensure semantics of the ledger.
func NewDelivery(branchID, saleID uuid.UUID, status DeliveryStatus, customerName, address, phone, courierName string) (*Delivery, error) {
	if customerName == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Delivery customer name cannot be empty")
	}
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_DELIVERY_STATUS", "Unknown delivery status: "+status.String())
	}
	d := &Delivery{
		BranchAggregateRoot: shared.NewBranchAggregateRoot(branchID),
		SaleID:              saleID,
		Status:              status,
		CustomerName:        customerName,
		Address:             address,
		Phone:               phone,
		CourierName:         courierName,
	}
	if status == DeliveryStatusDelivered {
		now := time.Now()
		d.DeliveredAt = &now
	}
	return d, nil
}

// Transition moves the delivery to a new status and returns the ledger
// effect the caller must apply in the same transaction.
func (d *Delivery) Transition(to DeliveryStatus) (StockEffect, error) {
	effect, err := TransitionEffect(d.Status, to)
	if err != nil {
		return StockEffectNone, err
	}

	from := d.Status
	d.Status = to
	now := time.Now()
	if to == DeliveryStatusDelivered {
		d.DeliveredAt = &now
	} else {
		d.DeliveredAt = nil
	}
	d.UpdatedAt = now

	if from != to {
		d.AddDomainEvent(NewDeliveryStatusChangedEvent(d.ID, d.BranchID, d.SaleID, from, to))
	}
	return effect, nil
}

// AssignCourier records who carries the order out
func (d *Delivery) AssignCourier(name string) {
	d.CourierName = name
}

// OverrideDeliveredAt backdates the delivered timestamp for entries made
// after the fact. Ignored outside the delivered state.
func (d *Delivery) OverrideDeliveredAt(ts time.Time) {
	if d.Status == DeliveryStatusDelivered {
		d.DeliveredAt = &ts
	}
}
