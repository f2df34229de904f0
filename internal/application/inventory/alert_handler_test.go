package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []StockAlert
}

func (n *fakeNotifier) SendAlert(_ context.Context, alert StockAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return nil
}

func TestStockAlertHandler(t *testing.T) {
	ctx := context.Background()
	branchID := uuid.New()
	productID := uuid.New()

	newHandler := func() (*StockAlertHandler, *memStore, *fakeNotifier) {
		store := newMemStore()
		notifier := &fakeNotifier{}
		handler := NewStockAlertHandler(store.scope(), zap.NewNop()).WithNotifier(notifier)
		return handler, store, notifier
	}

	alertsFor := func(t *testing.T, store *memStore) []inventory.InventoryAlert {
		t.Helper()
		repo := memAlertRepo{store: store}
		alerts, err := repo.FindUnacknowledgedForBranch(ctx, branchID)
		require.NoError(t, err)
		return alerts
	}

	t.Run("low stock event records an alert and notifies", func(t *testing.T) {
		handler, store, notifier := newHandler()
		event := inventory.NewStockBelowThresholdEvent(productID, branchID, "Rice", "kg",
			decimal.NewFromInt(1), decimal.NewFromInt(2))

		require.NoError(t, handler.Handle(ctx, event))

		alerts := alertsFor(t, store)
		require.Len(t, alerts, 1)
		assert.Equal(t, inventory.AlertTypeLowStock, alerts[0].AlertType)
		require.Len(t, notifier.alerts, 1)
		assert.Equal(t, "Rice", notifier.alerts[0].ProductName)
	})

	t.Run("an open alert of the same type is not duplicated", func(t *testing.T) {
		handler, store, notifier := newHandler()
		event := inventory.NewStockBelowThresholdEvent(productID, branchID, "Rice", "kg",
			decimal.NewFromInt(1), decimal.NewFromInt(2))

		require.NoError(t, handler.Handle(ctx, event))
		require.NoError(t, handler.Handle(ctx, event))

		assert.Len(t, alertsFor(t, store), 1, "one open alert row")
		assert.Len(t, notifier.alerts, 2, "notification still pushed each time")
	})

	t.Run("expiring batch event records an expiring alert", func(t *testing.T) {
		handler, store, notifier := newHandler()
		expiry := time.Now().Add(48 * time.Hour)
		event := inventory.NewBatchExpiringEvent(uuid.New(), productID, branchID,
			"Milk", decimal.NewFromInt(3), "kg", expiry)

		require.NoError(t, handler.Handle(ctx, event))

		alerts := alertsFor(t, store)
		require.Len(t, alerts, 1)
		assert.Equal(t, inventory.AlertTypeExpiring, alerts[0].AlertType)
		require.Len(t, notifier.alerts, 1)
		assert.Contains(t, notifier.alerts[0].Message, "Milk")
	})

	t.Run("recovery notifies without persisting an alert row", func(t *testing.T) {
		handler, store, notifier := newHandler()
		event := inventory.NewStockRecoveredEvent(productID, branchID, "Rice", "kg",
			decimal.NewFromInt(5), decimal.NewFromInt(2))

		require.NoError(t, handler.Handle(ctx, event))

		assert.Empty(t, alertsFor(t, store))
		require.Len(t, notifier.alerts, 1)
		assert.Equal(t, "recovered", notifier.alerts[0].AlertType)
	})
}

func TestExpiryDetector_Scan(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes an event per expiring batch across branches", func(t *testing.T) {
		store := newMemStore()
		events := &capturingPublisher{}
		detector := NewExpiryDetector(store.scope(), zap.NewNop(), 72*time.Hour, time.Hour)
		detector.SetEventPublisher(events)

		branchA := uuid.New()
		branchB := uuid.New()
		soon := time.Now().Add(24 * time.Hour)
		later := time.Now().Add(30 * 24 * time.Hour)

		for _, branchID := range []uuid.UUID{branchA, branchB} {
			p, err := inventory.NewProduct(branchID, "Milk", "kg",
				decimal.NewFromInt(10), decimal.NewFromInt(6), decimal.Zero)
			require.NoError(t, err)
			store.addProduct(p)

			expiring, err := inventory.NewStockBatch(branchID, p.ID,
				decimal.NewFromInt(2), 2000,
				decimal.NewFromInt(10), decimal.NewFromInt(6), &soon, time.Now())
			require.NoError(t, err)
			store.addBatch(expiring)

			keeps, err := inventory.NewStockBatch(branchID, p.ID,
				decimal.NewFromInt(2), 2000,
				decimal.NewFromInt(10), decimal.NewFromInt(6), &later, time.Now())
			require.NoError(t, err)
			store.addBatch(keeps)
		}

		require.NoError(t, detector.Scan(ctx))

		expiringEvents := events.byType(inventory.EventTypeBatchExpiring)
		require.Len(t, expiringEvents, 2)
		branches := map[uuid.UUID]bool{}
		for _, e := range expiringEvents {
			branches[e.BranchID()] = true
		}
		assert.True(t, branches[branchA])
		assert.True(t, branches[branchB])
	})

	t.Run("drained batches are not reported", func(t *testing.T) {
		store := newMemStore()
		events := &capturingPublisher{}
		detector := NewExpiryDetector(store.scope(), zap.NewNop(), 72*time.Hour, time.Hour)
		detector.SetEventPublisher(events)

		branchID := uuid.New()
		p, err := inventory.NewProduct(branchID, "Milk", "kg",
			decimal.NewFromInt(10), decimal.NewFromInt(6), decimal.Zero)
		require.NoError(t, err)
		store.addProduct(p)

		soon := time.Now().Add(24 * time.Hour)
		empty, err := inventory.NewStockBatch(branchID, p.ID,
			decimal.NewFromInt(2), 2000,
			decimal.NewFromInt(10), decimal.NewFromInt(6), &soon, time.Now())
		require.NoError(t, err)
		require.NoError(t, empty.DeductBase(2000, 1000))
		store.addBatch(empty)

		require.NoError(t, detector.Scan(ctx))
		assert.Empty(t, events.byType(inventory.EventTypeBatchExpiring))
	})
}
