package inventory

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShortfallDetail describes one product that could not be fully served
type ShortfallDetail struct {
	ProductID   uuid.UUID
	ProductName string
	Unit        string
	Requested   decimal.Decimal
	Available   decimal.Decimal
}

// InsufficientStockError is returned when one or more products in a request
// lack eligible stock. Every short product is listed, not just the first one
// found, so the caller can report the whole problem at once.
type InsufficientStockError struct {
	Shortfalls []ShortfallDetail
}

// Error implements the error interface
func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s: requested %s %s, available %s %s",
			s.ProductName, s.Requested.String(), s.Unit, s.Available.String(), s.Unit))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// UnitMismatchError is returned when a request uses a unit different from the
// product's configured unit
type UnitMismatchError struct {
	ProductID     uuid.UUID
	ProductName   string
	ProductUnit   string
	RequestedUnit string
}

// Error implements the error interface
func (e *UnitMismatchError) Error() string {
	return fmt.Sprintf("unit mismatch for %s: product is tracked in %q, request used %q",
		e.ProductName, e.ProductUnit, e.RequestedUnit)
}

// ImpreciseQuantityError is returned when a display quantity does not convert
// to a whole number of base units
type ImpreciseQuantityError struct {
	Quantity decimal.Decimal
	Unit     string
	Minimum  decimal.Decimal
}

// Error implements the error interface
func (e *ImpreciseQuantityError) Error() string {
	return fmt.Sprintf("quantity %s %s is not a multiple of the minimum sellable quantity %s %s",
		e.Quantity.String(), e.Unit, e.Minimum.String(), e.Unit)
}

// LockTimeoutError is returned when batch rows could not be locked within the
// configured timeout, meaning a concurrent operation held them too long
type LockTimeoutError struct {
	Resource string
}

// Error implements the error interface
func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for lock on %s", e.Resource)
}

// InvariantViolationError signals corrupted or impossible batch state,
// such as a deduction exceeding what a locked batch holds
type InvariantViolationError struct {
	BatchID uuid.UUID
	Reason  string
}

// Error implements the error interface
func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("stock invariant violated on batch %s: %s", e.BatchID, e.Reason)
}
