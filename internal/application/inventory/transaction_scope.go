package inventory

import (
	"context"

	"github.com/ims/backend/internal/domain/inventory"
	"github.com/ims/backend/internal/domain/sales"
)

// TransactionScope provides transactional access to the ledger repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically. Row locks taken through the ForUpdate repository methods
// are held until the scope ends.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories within a
// transaction. All repositories returned share the same underlying database
// transaction, so a deduction can lock batches, write usage records and save
// the sale as one atomic unit.
type TransactionalRepositories interface {
	// ProductRepo returns the product repository scoped to the current transaction
	ProductRepo() inventory.ProductRepository
	// BatchRepo returns the stock batch repository scoped to the current transaction
	BatchRepo() inventory.StockBatchRepository
	// UsageRepo returns the usage record repository scoped to the current transaction
	UsageRepo() inventory.UsageRecordRepository
	// SaleRepo returns the sale repository scoped to the current transaction
	SaleRepo() sales.SaleRepository
	// DeliveryRepo returns the delivery repository scoped to the current transaction
	DeliveryRepo() sales.DeliveryRepository
	// AlertRepo returns the alert repository scoped to the current transaction
	AlertRepo() inventory.AlertRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. This is useful for testing with in-memory repositories.
type NoOpTransactionScope struct {
	productRepo  inventory.ProductRepository
	batchRepo    inventory.StockBatchRepository
	usageRepo    inventory.UsageRecordRepository
	saleRepo     sales.SaleRepository
	deliveryRepo sales.DeliveryRepository
	alertRepo    inventory.AlertRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	productRepo inventory.ProductRepository,
	batchRepo inventory.StockBatchRepository,
	usageRepo inventory.UsageRecordRepository,
	saleRepo sales.SaleRepository,
	deliveryRepo sales.DeliveryRepository,
	alertRepo inventory.AlertRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		productRepo:  productRepo,
		batchRepo:    batchRepo,
		usageRepo:    usageRepo,
		saleRepo:     saleRepo,
		deliveryRepo: deliveryRepo,
		alertRepo:    alertRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ProductRepo returns the product repository.
func (s *NoOpTransactionScope) ProductRepo() inventory.ProductRepository {
	return s.productRepo
}

// BatchRepo returns the stock batch repository.
func (s *NoOpTransactionScope) BatchRepo() inventory.StockBatchRepository {
	return s.batchRepo
}

// UsageRepo returns the usage record repository.
func (s *NoOpTransactionScope) UsageRepo() inventory.UsageRecordRepository {
	return s.usageRepo
}

// SaleRepo returns the sale repository.
func (s *NoOpTransactionScope) SaleRepo() sales.SaleRepository {
	return s.saleRepo
}

// DeliveryRepo returns the delivery repository.
func (s *NoOpTransactionScope) DeliveryRepo() sales.DeliveryRepository {
	return s.deliveryRepo
}

// AlertRepo returns the alert repository.
func (s *NoOpTransactionScope) AlertRepo() inventory.AlertRepository {
	return s.alertRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
