package sales

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	appinventory "github.com/ims/backend/internal/application/inventory"
	"github.com/ims/backend/internal/domain/inventory"
	"github.com/ims/backend/internal/domain/sales"
	"github.com/ims/backend/internal/domain/shared"
)

// In-memory repositories backing the service tests, mirroring the row
// semantics of the real ones: reads hand out copies, saves copy back.

type memStore struct {
	mu         sync.Mutex
	products   map[uuid.UUID]inventory.Product
	batches    map[uuid.UUID]inventory.StockBatch
	usage      map[uuid.UUID]inventory.UsageRecord
	sales      map[uuid.UUID]sales.Sale
	deliveries map[uuid.UUID]sales.Delivery
	alerts     map[uuid.UUID]inventory.InventoryAlert
}

func newMemStore() *memStore {
	return &memStore{
		products:   make(map[uuid.UUID]inventory.Product),
		batches:    make(map[uuid.UUID]inventory.StockBatch),
		usage:      make(map[uuid.UUID]inventory.UsageRecord),
		sales:      make(map[uuid.UUID]sales.Sale),
		deliveries: make(map[uuid.UUID]sales.Delivery),
		alerts:     make(map[uuid.UUID]inventory.InventoryAlert),
	}
}

func (s *memStore) scope() *appinventory.NoOpTransactionScope {
	return appinventory.NewNoOpTransactionScope(
		&memProductRepo{store: s},
		&memBatchRepo{store: s},
		&memUsageRepo{store: s},
		&memSaleRepo{store: s},
		&memDeliveryRepo{store: s},
		&memAlertRepo{store: s},
	)
}

func (s *memStore) addProduct(p *inventory.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = *p
}

func (s *memStore) addBatch(b *inventory.StockBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[b.ID] = *b
}

func (s *memStore) batch(id uuid.UUID) inventory.StockBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches[id]
}

func (s *memStore) sale(id uuid.UUID) sales.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sales[id]
}

func (s *memStore) deliveryBySale(saleID uuid.UUID) *sales.Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.deliveries {
		if d.SaleID == saleID {
			found := d
			return &found
		}
	}
	return nil
}

func (s *memStore) usageBySale(saleID uuid.UUID) []inventory.UsageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inventory.UsageRecord
	for _, r := range s.usage {
		if r.SaleID == saleID {
			out = append(out, r)
		}
	}
	return out
}

type memProductRepo struct{ store *memStore }

func (r *memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (r *memProductRepo) FindAll(_ context.Context, _ shared.Filter) ([]inventory.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]inventory.Product, 0, len(r.store.products))
	for _, p := range r.store.products {
		out = append(out, p)
	}
	return out, nil
}

func (r *memProductRepo) Save(_ context.Context, p *inventory.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.products[p.ID] = *p
	return nil
}

func (r *memProductRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.products)), nil
}

func (r *memProductRepo) FindByIDForBranch(_ context.Context, branchID, id uuid.UUID) (*inventory.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok || p.BranchID != branchID {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (r *memProductRepo) FindAllForBranch(_ context.Context, branchID uuid.UUID, _ shared.Filter) ([]inventory.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []inventory.Product
	for _, p := range r.store.products {
		if p.BranchID == branchID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProductRepo) FindByNameForBranch(_ context.Context, branchID uuid.UUID, name string) (*inventory.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.products {
		if p.BranchID == branchID && p.Name == name {
			found := p
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memProductRepo) FindByIDsForBranch(_ context.Context, branchID uuid.UUID, ids []uuid.UUID) ([]inventory.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]inventory.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.store.products[id]; ok && p.BranchID == branchID {
			out = append(out, p)
		}
	}
	return out, nil
}

type memBatchRepo struct{ store *memStore }

func (r *memBatchRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.StockBatch, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.batches[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &b, nil
}

func (r *memBatchRepo) FindAll(_ context.Context, _ shared.Filter) ([]inventory.StockBatch, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]inventory.StockBatch, 0, len(r.store.batches))
	for _, b := range r.store.batches {
		out = append(out, b)
	}
	return out, nil
}

func (r *memBatchRepo) Save(_ context.Context, b *inventory.StockBatch) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.batches[b.ID] = *b
	return nil
}

func (r *memBatchRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.batches)), nil
}

func (r *memBatchRepo) FindEligibleForUpdate(_ context.Context, branchID, productID uuid.UUID, now time.Time) ([]inventory.StockBatch, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []inventory.StockBatch
	for _, b := range r.store.batches {
		if b.BranchID == branchID && b.ProductID == productID && b.IsEligible(now) {
			out = append(out, b)
		}
	}
	inventory.SortForDeduction(out)
	return out, nil
}

func (r *memBatchRepo) FindByIDsForUpdate(_ context.Context, ids []uuid.UUID) ([]inventory.StockBatch, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]inventory.StockBatch, 0, len(ids))
	for _, id := range ids {
		if b, ok := r.store.batches[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBatchRepo) FindByProduct(_ context.Context, branchID, productID uuid.UUID) ([]inventory.StockBatch, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []inventory.StockBatch
	for _, b := range r.store.batches {
		if b.BranchID == branchID && b.ProductID == productID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBatchRepo) AggregateRemainingBase(_ context.Context, branchID uuid.UUID, productIDs []uuid.UUID, now time.Time) (map[uuid.UUID]int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID]int64, len(productIDs))
	for _, b := range r.store.batches {
		if b.BranchID == branchID && wanted[b.ProductID] && b.IsEligible(now) {
			out[b.ProductID] += b.QuantityLeftBase
		}
	}
	return out, nil
}

func (r *memBatchRepo) FindExpiringWithin(_ context.Context, branchID uuid.UUID, now time.Time, window time.Duration) ([]inventory.StockBatch, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []inventory.StockBatch
	for _, b := range r.store.batches {
		if branchID != uuid.Nil && b.BranchID != branchID {
			continue
		}
		if b.HasStock() && b.WillExpireWithin(now, window) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBatchRepo) SaveAll(_ context.Context, batches []*inventory.StockBatch) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, b := range batches {
		r.store.batches[b.ID] = *b
	}
	return nil
}

type memUsageRepo struct{ store *memStore }

func (r *memUsageRepo) FindBySale(_ context.Context, saleID uuid.UUID) ([]inventory.UsageRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []inventory.UsageRecord
	for _, rec := range r.store.usage {
		if rec.SaleID == saleID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memUsageRepo) FindUnrestoredBySale(_ context.Context, saleID uuid.UUID) ([]inventory.UsageRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []inventory.UsageRecord
	for _, rec := range r.store.usage {
		if rec.SaleID == saleID && !rec.IsRestored {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memUsageRepo) SaveAll(_ context.Context, records []*inventory.UsageRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, rec := range records {
		r.store.usage[rec.ID] = *rec
	}
	return nil
}

type memSaleRepo struct{ store *memStore }

func (r *memSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*sales.Sale, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.sales[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &s, nil
}

func (r *memSaleRepo) FindAll(_ context.Context, _ shared.Filter) ([]sales.Sale, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]sales.Sale, 0, len(r.store.sales))
	for _, s := range r.store.sales {
		out = append(out, s)
	}
	return out, nil
}

func (r *memSaleRepo) Save(_ context.Context, s *sales.Sale) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.sales[s.ID] = *s
	return nil
}

func (r *memSaleRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.sales)), nil
}

func (r *memSaleRepo) FindByIDForBranch(_ context.Context, branchID, id uuid.UUID) (*sales.Sale, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.sales[id]
	if !ok || s.BranchID != branchID {
		return nil, shared.ErrNotFound
	}
	return &s, nil
}

func (r *memSaleRepo) FindAllForBranch(_ context.Context, branchID uuid.UUID, _ shared.Filter) ([]sales.Sale, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []sales.Sale
	for _, s := range r.store.sales {
		if s.BranchID == branchID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSaleRepo) FindBySaleNumber(_ context.Context, branchID uuid.UUID, saleNumber string) (*sales.Sale, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, s := range r.store.sales {
		if s.BranchID == branchID && s.SaleNumber == saleNumber {
			found := s
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memSaleRepo) ExistsBySaleNumber(_ context.Context, branchID uuid.UUID, saleNumber string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, s := range r.store.sales {
		if s.BranchID == branchID && s.SaleNumber == saleNumber {
			return true, nil
		}
	}
	return false, nil
}

type memDeliveryRepo struct{ store *memStore }

func (r *memDeliveryRepo) FindByID(_ context.Context, id uuid.UUID) (*sales.Delivery, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	d, ok := r.store.deliveries[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &d, nil
}

func (r *memDeliveryRepo) FindAll(_ context.Context, _ shared.Filter) ([]sales.Delivery, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]sales.Delivery, 0, len(r.store.deliveries))
	for _, d := range r.store.deliveries {
		out = append(out, d)
	}
	return out, nil
}

func (r *memDeliveryRepo) Save(_ context.Context, d *sales.Delivery) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.deliveries[d.ID] = *d
	return nil
}

func (r *memDeliveryRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.deliveries)), nil
}

func (r *memDeliveryRepo) FindByIDForBranch(_ context.Context, branchID, id uuid.UUID) (*sales.Delivery, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	d, ok := r.store.deliveries[id]
	if !ok || d.BranchID != branchID {
		return nil, shared.ErrNotFound
	}
	return &d, nil
}

func (r *memDeliveryRepo) FindAllForBranch(_ context.Context, branchID uuid.UUID, _ shared.Filter) ([]sales.Delivery, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []sales.Delivery
	for _, d := range r.store.deliveries {
		if d.BranchID == branchID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memDeliveryRepo) FindBySaleID(_ context.Context, saleID uuid.UUID) (*sales.Delivery, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, d := range r.store.deliveries {
		if d.SaleID == saleID {
			found := d
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memDeliveryRepo) FindBySaleIDForUpdate(ctx context.Context, saleID uuid.UUID) (*sales.Delivery, error) {
	return r.FindBySaleID(ctx, saleID)
}

type memAlertRepo struct{ store *memStore }

func (r *memAlertRepo) Save(_ context.Context, a *inventory.InventoryAlert) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.alerts[a.ID] = *a
	return nil
}

func (r *memAlertRepo) ExistsOpen(_ context.Context, branchID, productID uuid.UUID, alertType string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, a := range r.store.alerts {
		if a.BranchID == branchID && a.ProductID == productID && a.AlertType == alertType && !a.Acknowledged {
			return true, nil
		}
	}
	return false, nil
}

func (r *memAlertRepo) FindUnacknowledgedForBranch(_ context.Context, branchID uuid.UUID) ([]inventory.InventoryAlert, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []inventory.InventoryAlert
	for _, a := range r.store.alerts {
		if a.BranchID == branchID && !a.Acknowledged {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAlertRepo) Acknowledge(_ context.Context, alertID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.alerts[alertID]
	if !ok {
		return shared.ErrNotFound
	}
	a.Acknowledge()
	r.store.alerts[alertID] = a
	return nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturingPublisher) byType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}
