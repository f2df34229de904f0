package sales

import (
	"context"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/shared"
)

// SaleRepository provides access to sales
type SaleRepository interface {
	shared.BranchRepository[Sale]
	// FindBySaleNumber looks a sale up by its human-facing number within a branch
	FindBySaleNumber(ctx context.Context, branchID uuid.UUID, saleNumber string) (*Sale, error)
	// ExistsBySaleNumber reports whether a sale number is already taken
	// within a branch, for collision retries during number generation
	ExistsBySaleNumber(ctx context.Context, branchID uuid.UUID, saleNumber string) (bool, error)
}

// DeliveryRepository provides access to deliveries
type DeliveryRepository interface {
	shared.BranchRepository[Delivery]
	// FindBySaleID returns the delivery of a sale, if one exists
	FindBySaleID(ctx context.Context, saleID uuid.UUID) (*Delivery, error)
	// FindBySaleIDForUpdate returns and locks the delivery row of a sale.
	// Must run inside a transaction; the lock serializes concurrent status
	// transitions on the same sale.
	FindBySaleIDForUpdate(ctx context.Context, saleID uuid.UUID) (*Delivery, error)
}
