package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"furnistore/internal/catalog"
	"furnistore/internal/config"
	"furnistore/internal/model"
)

func testConfig() config.AppConfig {
	return config.AppConfig{
		AdminToken:       "test-admin-token",
		BrowseRateLimit:  1000,
		BrowseRateWindow: time.Minute,
		RequestTimeout:   10 * time.Second,
	}
}

// newDegradedRouter serves only the bundled fallback catalog.
func newDegradedRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fb, err := catalog.NewFallback()
	require.NoError(t, err)
	svc := catalog.NewService(catalog.NewGuard("", ""), nil, fb, zap.NewNop(), catalog.ServiceOptions{})

	r := gin.New()
	Setup(r, svc, nil, testConfig())
	return r
}

// newHealthyRouter backs the service with a temp sqlite store.
func newHealthyRouter(t *testing.T) (*gin.Engine, *catalog.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	st := catalog.NewStore(db)
	require.NoError(t, st.Migrate())

	fb, err := catalog.NewFallback()
	require.NoError(t, err)
	svc := catalog.NewService(catalog.NewGuard("sqlite://test.db", "test-admin-token"), st, fb, zap.NewNop(), catalog.ServiceOptions{})

	r := gin.New()
	Setup(r, svc, nil, testConfig())
	return r, st
}

func doJSON(r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListProductsServesFallback(t *testing.T) {
	r := newDegradedRouter(t)

	w := doJSON(r, http.MethodGet, "/api/products", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Data struct {
			Products []model.Product `json:"products"`
			Total    int             `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 6, out.Data.Total)
	assert.Len(t, out.Data.Products, 6)
}

func TestGetProductIncludesQuoteAndAvailability(t *testing.T) {
	r := newDegradedRouter(t)

	w := doJSON(r, http.MethodGet, "/api/products/ikoyi-executive-desk", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Data struct {
			Quote struct {
				UnitPrice decimal.Decimal `json:"unit_price"`
			} `json:"quote"`
			Availability struct {
				Status string `json:"status"`
			} `json:"availability"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Data.Quote.UnitPrice.Equal(decimal.NewFromInt(40000)), "got %s", out.Data.Quote.UnitPrice)
	assert.Equal(t, "in_stock", out.Data.Availability.Status)
}

func TestGetProductNotFound(t *testing.T) {
	r := newDegradedRouter(t)
	w := doJSON(r, http.MethodGet, "/api/products/no-such-slug", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuoteEndpoint(t *testing.T) {
	r := newDegradedRouter(t)

	w := doJSON(r, http.MethodGet, "/api/products/abuja-dining-chair/quote?quantity=12&tier=1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Data struct {
			DisplayUnit  string `json:"display_unit"`
			DisplayTotal string `json:"display_total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "40000", out.Data.DisplayUnit)
	assert.Equal(t, "480000", out.Data.DisplayTotal)
}

func TestQuoteBadQuantity(t *testing.T) {
	r := newDegradedRouter(t)

	w := doJSON(r, http.MethodGet, "/api/products/abuja-dining-chair/quote?quantity=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/api/products/abuja-dining-chair/quote?quantity=0", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStockEndpointZeroCountIsOutOfStock(t *testing.T) {
	r := newDegradedRouter(t)

	w := doJSON(r, http.MethodGet, "/api/products/enugu-bookshelf/stock", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "out_of_stock", out.Data.Status)
}

func TestAdminRequiresToken(t *testing.T) {
	r := newDegradedRouter(t)

	w := doJSON(r, http.MethodPost, "/api/admin/products", gin.H{"slug": "x", "name": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/api/admin/products", gin.H{"slug": "x", "name": "x"},
		map[string]string{"X-Admin-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminWriteRejectedWhenUnconfigured(t *testing.T) {
	r := newDegradedRouter(t)

	w := doJSON(r, http.MethodPost, "/api/admin/products",
		gin.H{"slug": "new-stool", "name": "New Stool", "price": 15000},
		map[string]string{"X-Admin-Token": "test-admin-token"})

	// The rejection is explicit and user visible, never a silent 200.
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not configured")
}

func TestAdminProductCreateRejectsBadTiers(t *testing.T) {
	r, _ := newHealthyRouter(t)

	w := doJSON(r, http.MethodPost, "/api/admin/products", gin.H{
		"slug": "bad-tiers", "name": "Bad Tiers", "price": 1000,
		"bulk_pricing_tiers": []gin.H{
			{"min_quantity": 5, "price": 900},
			{"min_quantity": 2, "price": 800},
		},
	}, map[string]string{"X-Admin-Token": "test-admin-token"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderFlowEndToEnd(t *testing.T) {
	r, _ := newHealthyRouter(t)
	token := map[string]string{"X-Admin-Token": "test-admin-token"}

	w := doJSON(r, http.MethodPost, "/api/admin/warehouses",
		gin.H{"name": "Lagos Mainland", "state": "Lagos"}, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/api/admin/products",
		gin.H{"slug": "test-desk", "name": "Test Desk", "price": 50000, "discount_percent": 20}, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPut, "/api/admin/stock",
		gin.H{"warehouse_id": 1, "product_id": 1, "stock_quantity": 10, "reorder_level": 2}, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/api/orders", gin.H{
		"product_id": 1, "warehouse_id": 1, "quantity": 2, "customer_name": "Ada",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var placed struct {
		Data model.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &placed))
	require.NotEmpty(t, placed.Data.OrderNo)
	// Discounted server-side price: 50000 less 20 percent.
	assert.Equal(t, "40000", placed.Data.UnitPrice.StringFixed(0))

	w = doJSON(r, http.MethodGet, "/api/orders/"+placed.Data.OrderNo, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/api/admin/orders/"+placed.Data.OrderNo+"/fulfill", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	// Fulfilling twice conflicts: the order already left pending.
	w = doJSON(r, http.MethodPost, "/api/admin/orders/"+placed.Data.OrderNo+"/fulfill", nil, token)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = doJSON(r, http.MethodPost, "/api/admin/orders/"+placed.Data.OrderNo+"/cancel", nil, token)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodGet, "/api/products/test-desk/stock", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var avail struct {
		Data struct {
			TotalStock     int `json:"total_stock"`
			TotalAvailable int `json:"total_available"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &avail))
	assert.Equal(t, 8, avail.Data.TotalStock)
	assert.Equal(t, 8, avail.Data.TotalAvailable)
}

func TestOrderInsufficientStock(t *testing.T) {
	r, _ := newHealthyRouter(t)
	token := map[string]string{"X-Admin-Token": "test-admin-token"}

	doJSON(r, http.MethodPost, "/api/admin/warehouses", gin.H{"name": "Kano Depot", "state": "Kano"}, token)
	doJSON(r, http.MethodPost, "/api/admin/products", gin.H{"slug": "scarce", "name": "Scarce", "price": 1000}, token)
	doJSON(r, http.MethodPut, "/api/admin/stock",
		gin.H{"warehouse_id": 1, "product_id": 1, "stock_quantity": 1}, token)

	w := doJSON(r, http.MethodPost, "/api/orders", gin.H{
		"product_id": 1, "warehouse_id": 1, "quantity": 5, "customer_name": "Bola",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient stock")
}

func TestLowStockReportEndpoint(t *testing.T) {
	r, _ := newHealthyRouter(t)
	token := map[string]string{"X-Admin-Token": "test-admin-token"}

	doJSON(r, http.MethodPost, "/api/admin/warehouses", gin.H{"name": "Enugu Depot", "state": "Enugu"}, token)
	doJSON(r, http.MethodPost, "/api/admin/products", gin.H{"slug": "thin", "name": "Thin", "price": 1000}, token)
	doJSON(r, http.MethodPut, "/api/admin/stock",
		gin.H{"warehouse_id": 1, "product_id": 1, "stock_quantity": 2, "reorder_level": 5}, token)

	w := doJSON(r, http.MethodGet, "/api/admin/reports/low-stock", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Data []struct {
			Summary struct {
				Status     string `json:"status"`
				TotalStock int    `json:"total_stock"`
			} `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Data, 1)
	assert.Equal(t, "low_stock", out.Data[0].Summary.Status)
	assert.Equal(t, 2, out.Data[0].Summary.TotalStock)
}
