package sales

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/inventory"
)

// InsufficientStockForTransitionError is returned when a delivery status
// change would deduct stock that is no longer available. The transition is
// rejected and the delivery stays in its previous state.
type InsufficientStockForTransitionError struct {
	SaleID     uuid.UUID
	From       DeliveryStatus
	To         DeliveryStatus
	Shortfalls []inventory.ShortfallDetail
}

// Error implements the error interface
func (e *InsufficientStockForTransitionError) Error() string {
	cause := &inventory.InsufficientStockError{Shortfalls: e.Shortfalls}
	return fmt.Sprintf("cannot move delivery of sale %s from %s to %s: %s",
		e.SaleID, e.From, e.To, cause.Error())
}

// Unwrap exposes the underlying stock error
func (e *InsufficientStockForTransitionError) Unwrap() error {
	return &inventory.InsufficientStockError{Shortfalls: e.Shortfalls}
}
