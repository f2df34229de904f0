package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ims/backend/internal/domain/inventory"
	"github.com/ims/backend/internal/domain/unit"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type inventoryFixture struct {
	store    *memStore
	service  *InventoryService
	events   *capturingPublisher
	branchID uuid.UUID
}

func newInventoryFixture(t *testing.T) *inventoryFixture {
	t.Helper()
	store := newMemStore()
	scope := store.scope()
	units := testUnits(t)
	events := &capturingPublisher{}

	service := NewInventoryService(scope, units)
	service.SetEventPublisher(events)
	service.SetLowStockDetector(NewLowStockDetector(scope, units, zap.NewNop()))

	return &inventoryFixture{
		store:    store,
		service:  service,
		events:   events,
		branchID: uuid.New(),
	}
}

func TestInventoryService_CreateProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the product with an opening batch", func(t *testing.T) {
		f := newInventoryFixture(t)

		resp, err := f.service.CreateProduct(ctx, f.branchID, CreateProductRequest{
			Name:            "Rice",
			Unit:            "kg",
			UnitPrice:       decimal.NewFromInt(12),
			UnitCost:        decimal.NewFromInt(8),
			Threshold:       decimal.NewFromInt(2),
			InitialQuantity: decimal.NewFromInt(5),
		})
		require.NoError(t, err)
		assert.Equal(t, "Rice", resp.Name)

		batches, err := f.service.ListBatches(ctx, f.branchID, resp.ID)
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.True(t, batches[0].QuantityLeft.Equal(decimal.NewFromInt(5)))

		assert.Len(t, f.events.byType(inventory.EventTypeStockAdded), 1)
	})

	t.Run("no opening batch without an initial quantity", func(t *testing.T) {
		f := newInventoryFixture(t)

		resp, err := f.service.CreateProduct(ctx, f.branchID, CreateProductRequest{
			Name:      "Rice",
			Unit:      "kg",
			UnitPrice: decimal.NewFromInt(12),
			UnitCost:  decimal.NewFromInt(8),
		})
		require.NoError(t, err)

		batches, err := f.service.ListBatches(ctx, f.branchID, resp.ID)
		require.NoError(t, err)
		assert.Empty(t, batches)
		assert.Empty(t, f.events.byType(inventory.EventTypeStockAdded))
	})

	t.Run("rejects an unknown unit", func(t *testing.T) {
		f := newInventoryFixture(t)

		_, err := f.service.CreateProduct(ctx, f.branchID, CreateProductRequest{
			Name: "Rice", Unit: "bag", UnitPrice: decimal.NewFromInt(12), UnitCost: decimal.NewFromInt(8),
		})
		var unknown *unit.UnknownUnitError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "bag", unknown.Unit)
	})

	t.Run("rejects a duplicate name within the branch", func(t *testing.T) {
		f := newInventoryFixture(t)
		req := CreateProductRequest{
			Name: "Rice", Unit: "kg", UnitPrice: decimal.NewFromInt(12), UnitCost: decimal.NewFromInt(8),
		}
		_, err := f.service.CreateProduct(ctx, f.branchID, req)
		require.NoError(t, err)
		_, err = f.service.CreateProduct(ctx, f.branchID, req)
		require.Error(t, err)

		// the same name in another branch is fine
		_, err = f.service.CreateProduct(ctx, uuid.New(), req)
		require.NoError(t, err)
	})
}

func TestInventoryService_AddStock(t *testing.T) {
	ctx := context.Background()

	create := func(t *testing.T, f *inventoryFixture, threshold int64) *ProductResponse {
		t.Helper()
		resp, err := f.service.CreateProduct(ctx, f.branchID, CreateProductRequest{
			Name:      "Rice",
			Unit:      "kg",
			UnitPrice: decimal.NewFromInt(12),
			UnitCost:  decimal.NewFromInt(8),
			Threshold: decimal.NewFromInt(threshold),
		})
		require.NoError(t, err)
		return resp
	}

	t.Run("intake defaults to the product's current price and cost", func(t *testing.T) {
		f := newInventoryFixture(t)
		product := create(t, f, 0)

		batch, err := f.service.AddStock(ctx, f.branchID, product.ID, AddStockRequest{
			Quantity: decimal.NewFromInt(3),
		})
		require.NoError(t, err)
		assert.True(t, batch.UnitPrice.Equal(decimal.NewFromInt(12)))
		assert.True(t, batch.UnitCost.Equal(decimal.NewFromInt(8)))
	})

	t.Run("explicit intake price is kept on the batch", func(t *testing.T) {
		f := newInventoryFixture(t)
		product := create(t, f, 0)
		price := decimal.NewFromInt(15)

		batch, err := f.service.AddStock(ctx, f.branchID, product.ID, AddStockRequest{
			Quantity:  decimal.NewFromInt(3),
			UnitPrice: &price,
		})
		require.NoError(t, err)
		assert.True(t, batch.UnitPrice.Equal(price))
		assert.True(t, batch.UnitCost.Equal(decimal.NewFromInt(8)))
	})

	t.Run("rejects quantities finer than the unit can store", func(t *testing.T) {
		f := newInventoryFixture(t)
		product := create(t, f, 0)

		_, err := f.service.AddStock(ctx, f.branchID, product.ID, AddStockRequest{
			Quantity: decimal.RequireFromString("0.0005"),
		})
		var imprecise *inventory.ImpreciseQuantityError
		require.ErrorAs(t, err, &imprecise)
	})

	t.Run("an intake above the threshold re-arms the low stock alert", func(t *testing.T) {
		f := newInventoryFixture(t)
		product := create(t, f, 2)

		// product starts with nothing, so the first evaluation flags it
		f.service.detector.Evaluate(ctx, f.branchID, []uuid.UUID{product.ID})
		require.True(t, f.store.product(product.ID).LowStockNotified)

		_, err := f.service.AddStock(ctx, f.branchID, product.ID, AddStockRequest{
			Quantity: decimal.NewFromInt(10),
		})
		require.NoError(t, err)

		assert.False(t, f.store.product(product.ID).LowStockNotified)
		assert.Len(t, f.events.byType(inventory.EventTypeStockRecovered), 1)
	})

	t.Run("unknown product fails", func(t *testing.T) {
		f := newInventoryFixture(t)
		_, err := f.service.AddStock(ctx, f.branchID, uuid.New(), AddStockRequest{
			Quantity: decimal.NewFromInt(1),
		})
		require.Error(t, err)
	})
}

func TestInventoryService_GetStockLevels(t *testing.T) {
	ctx := context.Background()
	f := newInventoryFixture(t)

	rice, err := f.service.CreateProduct(ctx, f.branchID, CreateProductRequest{
		Name: "Rice", Unit: "kg", UnitPrice: decimal.NewFromInt(12), UnitCost: decimal.NewFromInt(8),
		Threshold: decimal.NewFromInt(2), InitialQuantity: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	eggs, err := f.service.CreateProduct(ctx, f.branchID, CreateProductRequest{
		Name: "Eggs", Unit: "pcs", UnitPrice: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(1),
		Threshold: decimal.NewFromInt(12), InitialQuantity: decimal.NewFromInt(6),
	})
	require.NoError(t, err)

	// an expired batch must not show up in availability
	expired := time.Now().Add(-time.Hour)
	_, err = f.service.AddStock(ctx, f.branchID, rice.ID, AddStockRequest{
		Quantity: decimal.NewFromInt(100), ExpiryDate: &expired,
	})
	require.NoError(t, err)

	levels, err := f.service.GetStockLevels(ctx, f.branchID, nil)
	require.NoError(t, err)
	require.Len(t, levels, 2)

	byID := make(map[uuid.UUID]StockLevelResponse, len(levels))
	for _, l := range levels {
		byID[l.ProductID] = l
	}
	assert.True(t, byID[rice.ID].Available.Equal(decimal.NewFromInt(5)))
	assert.False(t, byID[rice.ID].BelowStock)
	assert.True(t, byID[eggs.ID].Available.Equal(decimal.NewFromInt(6)))
	assert.True(t, byID[eggs.ID].BelowStock, "below an inclusive threshold of 12")
}

func TestInventoryService_Alerts(t *testing.T) {
	ctx := context.Background()
	f := newInventoryFixture(t)
	productID := uuid.New()

	repo := &memAlertRepo{store: f.store}
	alert := inventory.NewInventoryAlert(f.branchID, productID, inventory.AlertTypeLowStock, "Rice is low on stock")
	require.NoError(t, repo.Save(ctx, alert))

	alerts, err := f.service.ListAlerts(ctx, f.branchID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, inventory.AlertTypeLowStock, alerts[0].AlertType)

	require.NoError(t, f.service.AcknowledgeAlert(ctx, alerts[0].ID))

	alerts, err = f.service.ListAlerts(ctx, f.branchID)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestInventoryService_ConsumptionHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("reports consumed quantity per intake batch", func(t *testing.T) {
		f := newInventoryFixture(t)

		rice, err := f.service.CreateProduct(ctx, f.branchID, CreateProductRequest{
			Name: "Rice", Unit: "kg",
			UnitPrice: decimal.NewFromInt(12), UnitCost: decimal.NewFromInt(8),
			InitialQuantity: decimal.NewFromInt(5),
		})
		require.NoError(t, err)
		_, err = f.service.AddStock(ctx, f.branchID, rice.ID, AddStockRequest{
			Quantity: decimal.NewFromInt(3),
		})
		require.NoError(t, err)

		batches, err := f.service.ListBatches(ctx, f.branchID, rice.ID)
		require.NoError(t, err)
		require.Len(t, batches, 2)

		drained := f.store.batch(batches[0].ID)
		require.NoError(t, drained.DeductBase(2000, 1000))
		f.store.addBatch(&drained)

		history, err := f.service.ConsumptionHistory(ctx, f.branchID, rice.ID)
		require.NoError(t, err)
		require.Len(t, history, 1, "untouched batches carry no consumption")
		assert.True(t, history[0].Quantity.Equal(decimal.NewFromInt(2)))
	})

	t.Run("unknown product fails", func(t *testing.T) {
		f := newInventoryFixture(t)
		_, err := f.service.ConsumptionHistory(ctx, f.branchID, uuid.New())
		assert.Error(t, err)
	})
}
