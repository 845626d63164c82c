package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"furnistore/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	st := NewStore(db)
	require.NoError(t, st.Migrate())
	return st
}

func seedWarehouse(t *testing.T, st *Store) *model.Warehouse {
	t.Helper()
	w := &model.Warehouse{Name: "Lagos Mainland", State: "Lagos", IsAvailable: true}
	require.NoError(t, st.CreateWarehouse(context.Background(), w))
	return w
}

func seedProduct(t *testing.T, st *Store, slug string) *model.Product {
	t.Helper()
	p := &model.Product{Slug: slug, Name: "Test " + slug, Price: decimal.NewFromInt(50000)}
	require.NoError(t, st.CreateProduct(context.Background(), p))
	return p
}

func TestStoreProductCRUD(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	p := seedProduct(t, st, "ikoyi-executive-desk")
	require.NotZero(t, p.ID)

	got, err := st.GetProductBySlug(ctx, "ikoyi-executive-desk")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(50000)))

	// Duplicate slug must be rejected before it reaches the database.
	dup := &model.Product{Slug: "ikoyi-executive-desk", Name: "dup", Price: decimal.NewFromInt(1)}
	assert.ErrorIs(t, st.CreateProduct(ctx, dup), ErrSlugTaken)

	got.DiscountPercent = 20
	require.NoError(t, st.UpdateProduct(ctx, got))
	updated, err := st.GetProduct(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(20), updated.DiscountPercent)

	require.NoError(t, st.DeleteProduct(ctx, got.ID))
	_, err = st.GetProduct(ctx, got.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestStoreUpdateProductKeepsCreatedAt(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	p := seedProduct(t, st, "ikoyi-executive-desk")
	created, err := st.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.False(t, created.CreatedAt.IsZero())

	// Admin updates arrive as request-built structs with zero timestamps.
	update := &model.Product{
		Slug:            "ikoyi-executive-desk",
		Name:            "Ikoyi Executive Desk v2",
		Price:           decimal.NewFromInt(55000),
		DiscountPercent: 10,
	}
	update.ID = p.ID
	require.NoError(t, st.UpdateProduct(ctx, update))

	got, err := st.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ikoyi Executive Desk v2", got.Name)
	assert.Equal(t, created.CreatedAt.Unix(), got.CreatedAt.Unix())
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStoreProductTiersRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	nine := 9
	p := &model.Product{
		Slug:  "abuja-dining-chair",
		Name:  "Abuja Dining Chair",
		Price: decimal.NewFromInt(48000),
		BulkPricingTiers: []model.BulkPricingTier{
			{MinQuantity: 4, MaxQuantity: &nine, Price: decimal.NewFromInt(45000)},
			{MinQuantity: 10, Price: decimal.NewFromInt(40000)},
		},
	}
	require.NoError(t, st.CreateProduct(ctx, p))

	got, err := st.GetProductBySlug(ctx, "abuja-dining-chair")
	require.NoError(t, err)
	require.Len(t, got.BulkPricingTiers, 2)
	assert.Equal(t, 4, got.BulkPricingTiers[0].MinQuantity)
	require.NotNil(t, got.BulkPricingTiers[0].MaxQuantity)
	assert.Equal(t, 9, *got.BulkPricingTiers[0].MaxQuantity)
	assert.Nil(t, got.BulkPricingTiers[1].MaxQuantity)
	assert.True(t, got.BulkPricingTiers[1].Price.Equal(decimal.NewFromInt(40000)))
}

func TestStoreListProductsFilters(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	desk := seedProduct(t, st, "ikoyi-executive-desk")
	desk.CategorySlug = "tables"
	require.NoError(t, st.UpdateProduct(ctx, desk))
	chair := seedProduct(t, st, "abuja-dining-chair")
	chair.CategorySlug = "sofas"
	require.NoError(t, st.UpdateProduct(ctx, chair))

	all, total, err := st.ListProducts(ctx, ProductFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, all, 2)

	tables, total, err := st.ListProducts(ctx, ProductFilters{Category: "tables"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "ikoyi-executive-desk", tables[0].Slug)

	byName, total, err := st.ListProducts(ctx, ProductFilters{Query: "DINING"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "abuja-dining-chair", byName[0].Slug)
}

func TestStoreUpsertStock(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	w := seedWarehouse(t, st)
	p := seedProduct(t, st, "kano-queen-bed-frame")

	change, err := st.UpsertStock(ctx, model.WarehouseStock{
		WarehouseID: w.ID, ProductID: p.ID, StockQuantity: 20, ReorderLevel: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, change.QuantityBefore)
	assert.Equal(t, 20, change.QuantityAfter)

	// Second upsert updates the same row.
	change, err = st.UpsertStock(ctx, model.WarehouseStock{
		WarehouseID: w.ID, ProductID: p.ID, StockQuantity: 35, ReorderLevel: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 20, change.QuantityBefore)
	assert.Equal(t, 35, change.QuantityAfter)

	rows, err := st.ListWarehouseStock(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 35, rows[0].StockQuantity)
}

func TestStoreUpsertStockGuards(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	w := seedWarehouse(t, st)
	p := seedProduct(t, st, "enugu-bookshelf")

	_, err := st.UpsertStock(ctx, model.WarehouseStock{WarehouseID: 999, ProductID: p.ID, StockQuantity: 5})
	assert.ErrorIs(t, err, ErrWarehouseNotFound)

	_, err = st.UpsertStock(ctx, model.WarehouseStock{WarehouseID: w.ID, ProductID: 999, StockQuantity: 5})
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = st.UpsertStock(ctx, model.WarehouseStock{
		WarehouseID: w.ID, ProductID: p.ID, StockQuantity: 3, ReservedQuantity: 5,
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	w.IsAvailable = false
	require.NoError(t, st.UpdateWarehouse(ctx, w))
	_, err = st.UpsertStock(ctx, model.WarehouseStock{WarehouseID: w.ID, ProductID: p.ID, StockQuantity: 5})
	assert.ErrorIs(t, err, ErrWarehouseClosed)
}

func TestStoreAdjustStock(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	w := seedWarehouse(t, st)
	p := seedProduct(t, st, "ibadan-coffee-table")

	_, err := st.UpsertStock(ctx, model.WarehouseStock{WarehouseID: w.ID, ProductID: p.ID, StockQuantity: 10})
	require.NoError(t, err)

	change, err := st.AdjustStock(ctx, w.ID, p.ID, -4)
	require.NoError(t, err)
	assert.Equal(t, 10, change.QuantityBefore)
	assert.Equal(t, 6, change.QuantityAfter)

	_, err = st.AdjustStock(ctx, w.ID, p.ID, -7)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// Cannot adjust below the reserved floor.
	_, err = st.ReserveStock(ctx, w.ID, p.ID, 5)
	require.NoError(t, err)
	_, err = st.AdjustStock(ctx, w.ID, p.ID, -2)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestStoreReservationLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	w := seedWarehouse(t, st)
	p := seedProduct(t, st, "lagos-3-seater-sofa")

	_, err := st.UpsertStock(ctx, model.WarehouseStock{WarehouseID: w.ID, ProductID: p.ID, StockQuantity: 10})
	require.NoError(t, err)

	_, err = st.ReserveStock(ctx, w.ID, p.ID, 6)
	require.NoError(t, err)

	// Only 4 left sellable.
	_, err = st.ReserveStock(ctx, w.ID, p.ID, 5)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// Release 2 of them.
	_, err = st.SettleReservation(ctx, w.ID, p.ID, 2, false)
	require.NoError(t, err)

	// Consume the remaining 4: stock drops, reservation clears.
	change, err := st.SettleReservation(ctx, w.ID, p.ID, 4, true)
	require.NoError(t, err)
	assert.Equal(t, 6, change.QuantityAfter)

	rows, err := st.ListWarehouseStock(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 6, rows[0].StockQuantity)
	assert.Equal(t, 0, rows[0].ReservedQuantity)
}

func TestStoreOrderStatusTransitions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	w := seedWarehouse(t, st)
	p := seedProduct(t, st, "ikoyi-executive-desk")

	o := &model.Order{
		OrderNo: "FSTEST00000001", ProductID: p.ID, WarehouseID: w.ID,
		Quantity: 1, UnitPrice: decimal.NewFromInt(40000), TotalPrice: decimal.NewFromInt(40000),
		Status: model.OrderPending, CustomerName: "Ada",
	}
	require.NoError(t, st.CreateOrder(ctx, o))

	got, err := st.GetOrderByNo(ctx, "FSTEST00000001")
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, got.Status)

	fulfilled, err := st.UpdateOrderStatus(ctx, o.OrderNo, model.OrderPending, model.OrderFulfilled)
	require.NoError(t, err)
	assert.Equal(t, model.OrderFulfilled, fulfilled.Status)

	// A fulfilled order cannot be cancelled.
	_, err = st.UpdateOrderStatus(ctx, o.OrderNo, model.OrderPending, model.OrderCancelled)
	assert.ErrorIs(t, err, ErrOrderNotPending)

	_, err = st.GetOrderByNo(ctx, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestStoreDeleteWarehouseCascades(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	w := seedWarehouse(t, st)
	p := seedProduct(t, st, "enugu-bookshelf")

	_, err := st.UpsertStock(ctx, model.WarehouseStock{WarehouseID: w.ID, ProductID: p.ID, StockQuantity: 5})
	require.NoError(t, err)

	require.NoError(t, st.DeleteWarehouse(ctx, w.ID))

	rows, err := st.ListWarehouseStock(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
