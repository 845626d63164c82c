package router

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"furnistore/internal/catalog"
	"furnistore/internal/config"
	"furnistore/internal/middleware"
	"furnistore/internal/model"
	"furnistore/internal/pricing"
)

// Setup registers all HTTP routes.
func Setup(r *gin.Engine, svc *catalog.Service, rdb *rd.Client, cfg config.AppConfig) {
	r.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	browse := middleware.BrowseRateLimit(rdb, cfg.BrowseRateLimit, cfg.BrowseRateWindow)

	// Storefront
	r.GET("/api/products", browse, listProducts(svc))
	r.GET("/api/products/:slug", browse, getProduct(svc))
	r.GET("/api/products/:slug/quote", browse, quoteProduct(svc))
	r.GET("/api/products/:slug/stock", browse, getProductStock(svc))
	r.GET("/api/categories", browse, listCategories(svc))
	r.POST("/api/orders", placeOrder(svc))
	r.GET("/api/orders/:order_no", getOrder(svc))

	// Admin
	admin := r.Group("/api/admin", middleware.AdminAuth(cfg.AdminToken))
	admin.POST("/products", createProduct(svc))
	admin.PUT("/products/:id", updateProduct(svc))
	admin.DELETE("/products/:id", deleteProduct(svc))
	admin.GET("/warehouses", listWarehouses(svc))
	admin.POST("/warehouses", createWarehouse(svc))
	admin.PUT("/warehouses/:id", updateWarehouse(svc))
	admin.DELETE("/warehouses/:id", deleteWarehouse(svc))
	admin.GET("/stock/:product_id", getStockRows(svc))
	admin.PUT("/stock", upsertStock(svc))
	admin.POST("/stock/adjust", adjustStock(svc))
	admin.GET("/orders", listOrders(svc))
	admin.POST("/orders/:order_no/fulfill", fulfillOrder(svc))
	admin.POST("/orders/:order_no/cancel", cancelOrder(svc))
	admin.GET("/reports/low-stock", lowStockReport(svc))
}

// respondError maps the catalog error taxonomy onto HTTP statuses. A
// ConfigurationError surfaces as 503 with its message: writes against an
// unconfigured store fail loudly, never silently.
func respondError(c *gin.Context, err error) {
	var cfgErr *catalog.ConfigurationError
	var valErr *pricing.ValidationError

	switch {
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": 503, "msg": cfgErr.Error()})
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": valErr.Error()})
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrWarehouseNotFound),
		errors.Is(err, catalog.ErrStockNotFound),
		errors.Is(err, catalog.ErrOrderNotFound),
		errors.Is(err, catalog.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": err.Error()})
	case errors.Is(err, catalog.ErrSlugTaken),
		errors.Is(err, catalog.ErrOrderNotPending):
		c.JSON(http.StatusConflict, gin.H{"code": 409, "msg": err.Error()})
	case errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, catalog.ErrWarehouseClosed):
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
	}
}

// listProducts serves the storefront catalog page.
func listProducts(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.Query("page"))
		pageSize, _ := strconv.Atoi(c.Query("page_size"))
		f := catalog.ProductFilters{
			Query:    c.Query("q"),
			Category: c.Query("category"),
			Page:     page,
			PageSize: pageSize,
		}
		list, total, err := svc.ListProducts(c.Request.Context(), f)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"products": list, "total": total}})
	}
}

// getProduct returns a product with its default quote and availability.
func getProduct(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.GetProductBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			respondError(c, err)
			return
		}
		q, err := pricing.Resolve(p, pricing.NoTier, 1)
		if err != nil {
			respondError(c, err)
			return
		}
		summary := svc.Availability(c.Request.Context(), p, 0)
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"product":      p,
			"quote":        q,
			"availability": summary,
		}})
	}
}

// quoteProduct resolves the effective price for a quantity and optional
// bulk tier selection.
func quoteProduct(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.GetProductBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			respondError(c, err)
			return
		}

		quantity := 1
		if v := c.Query("quantity"); v != "" {
			quantity, err = strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid quantity"})
				return
			}
		}
		tier := pricing.NoTier
		if v := c.Query("tier"); v != "" {
			tier, err = strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid tier index"})
				return
			}
		}

		q, err := pricing.Resolve(p, tier, quantity)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"quote":          q,
			"display_unit":   q.DisplayUnitPrice(),
			"display_total":  q.DisplayTotalPrice(),
			"suggested_tier": pricing.TierFor(p, quantity),
		}})
	}
}

// getProductStock aggregates the product's warehouse rows, optionally
// scoped to one warehouse.
func getProductStock(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.GetProductBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			respondError(c, err)
			return
		}
		var warehouseID uint
		if v := c.Query("warehouse_id"); v != "" {
			id, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid warehouse id"})
				return
			}
			warehouseID = uint(id)
		}
		summary := svc.Availability(c.Request.Context(), p, warehouseID)
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": summary})
	}
}

func listCategories(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.ListCategories(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": list})
	}
}

// placeOrder reserves stock and records the order.
func placeOrder(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ProductID     uint   `json:"product_id" binding:"required,min=1"`
			WarehouseID   uint   `json:"warehouse_id" binding:"required,min=1"`
			Quantity      int    `json:"quantity" binding:"required,min=1"`
			CustomerName  string `json:"customer_name" binding:"required"`
			CustomerPhone string `json:"customer_phone"`
			CustomerEmail string `json:"customer_email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		order, err := svc.PlaceOrder(c.Request.Context(), catalog.OrderInput{
			ProductID:     req.ProductID,
			WarehouseID:   req.WarehouseID,
			Quantity:      req.Quantity,
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			CustomerEmail: req.CustomerEmail,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": order})
	}
}

func getOrder(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := svc.GetOrder(c.Request.Context(), c.Param("order_no"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": o})
	}
}

// productRequest is the admin create/update payload.
type productRequest struct {
	Slug            string   `json:"slug" binding:"required"`
	Name            string   `json:"name" binding:"required"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	ImageURL        string   `json:"image_url"`
	Price           float64  `json:"price" binding:"min=0"`
	OriginalPrice   *float64 `json:"original_price"`
	DiscountPercent float64  `json:"discount_percent" binding:"min=0,max=100"`
	BulkTiers       []struct {
		MinQuantity     int      `json:"min_quantity" binding:"required,min=1"`
		MaxQuantity     *int     `json:"max_quantity"`
		Price           float64  `json:"price" binding:"min=0"`
		DiscountPercent *float64 `json:"discount_percent"`
	} `json:"bulk_pricing_tiers"`
	StockCount *int `json:"stock_count"`
	InStock    bool `json:"in_stock"`
}

func (req productRequest) toModel() (*model.Product, error) {
	p := &model.Product{
		Slug:            req.Slug,
		Name:            req.Name,
		Description:     req.Description,
		CategorySlug:    req.Category,
		ImageURL:        req.ImageURL,
		Price:           decimal.NewFromFloat(req.Price),
		DiscountPercent: req.DiscountPercent,
		StockCount:      req.StockCount,
		InStock:         req.InStock,
	}
	if req.OriginalPrice != nil {
		op := decimal.NewFromFloat(*req.OriginalPrice)
		p.OriginalPrice = &op
	}
	for _, t := range req.BulkTiers {
		p.BulkPricingTiers = append(p.BulkPricingTiers, model.BulkPricingTier{
			MinQuantity:     t.MinQuantity,
			MaxQuantity:     t.MaxQuantity,
			Price:           decimal.NewFromFloat(t.Price),
			DiscountPercent: t.DiscountPercent,
		})
	}
	if err := pricing.ValidateTiers(p.BulkPricingTiers); err != nil {
		return nil, err
	}
	return p, nil
}

func createProduct(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		p, err := req.toModel()
		if err != nil {
			respondError(c, err)
			return
		}
		if err := svc.CreateProduct(c.Request.Context(), p); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": p})
	}
}

func updateProduct(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid product id"})
			return
		}
		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		p, err := req.toModel()
		if err != nil {
			respondError(c, err)
			return
		}
		p.ID = uint(id)
		if err := svc.UpdateProduct(c.Request.Context(), p); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": p})
	}
}

func deleteProduct(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid product id"})
			return
		}
		if err := svc.DeleteProduct(c.Request.Context(), uint(id)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "deleted"})
	}
}

type warehouseRequest struct {
	Name         string `json:"name" binding:"required"`
	State        string `json:"state" binding:"required"`
	Address      string `json:"address"`
	ContactPhone string `json:"contact_phone"`
	ContactEmail string `json:"contact_email"`
	MapLink      string `json:"map_link"`
	Capacity     *int   `json:"capacity"`
	IsAvailable  *bool  `json:"is_available"`
}

func (req warehouseRequest) toModel() *model.Warehouse {
	w := &model.Warehouse{
		Name:         req.Name,
		State:        req.State,
		Address:      req.Address,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		MapLink:      req.MapLink,
		Capacity:     req.Capacity,
		IsAvailable:  true,
	}
	if req.IsAvailable != nil {
		w.IsAvailable = *req.IsAvailable
	}
	return w
}

func listWarehouses(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.ListWarehouses(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": list})
	}
}

func createWarehouse(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req warehouseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		w := req.toModel()
		if err := svc.CreateWarehouse(c.Request.Context(), w); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": w})
	}
}

func updateWarehouse(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid warehouse id"})
			return
		}
		var req warehouseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		w := req.toModel()
		w.ID = uint(id)
		if err := svc.UpdateWarehouse(c.Request.Context(), w); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": w})
	}
}

func deleteWarehouse(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid warehouse id"})
			return
		}
		if err := svc.DeleteWarehouse(c.Request.Context(), uint(id)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "deleted"})
	}
}

// getStockRows returns the raw per-warehouse rows plus the aggregated
// summary for one product.
func getStockRows(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("product_id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid product id"})
			return
		}
		p, err := svc.GetProduct(c.Request.Context(), uint(id))
		if err != nil {
			respondError(c, err)
			return
		}
		rows, err := svc.ListWarehouseStock(c.Request.Context(), p.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"rows":    rows,
			"summary": svc.Availability(c.Request.Context(), p, 0),
		}})
	}
}

func upsertStock(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			WarehouseID      uint `json:"warehouse_id" binding:"required,min=1"`
			ProductID        uint `json:"product_id" binding:"required,min=1"`
			StockQuantity    int  `json:"stock_quantity" binding:"min=0"`
			ReservedQuantity int  `json:"reserved_quantity" binding:"min=0"`
			ReorderLevel     int  `json:"reorder_level" binding:"min=0"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		change, err := svc.UpsertStock(c.Request.Context(), model.WarehouseStock{
			WarehouseID:      req.WarehouseID,
			ProductID:        req.ProductID,
			StockQuantity:    req.StockQuantity,
			ReservedQuantity: req.ReservedQuantity,
			ReorderLevel:     req.ReorderLevel,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": change.Row})
	}
}

func adjustStock(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			WarehouseID uint   `json:"warehouse_id" binding:"required,min=1"`
			ProductID   uint   `json:"product_id" binding:"required,min=1"`
			Delta       int    `json:"delta" binding:"required"`
			Reference   string `json:"reference"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		change, err := svc.AdjustStock(c.Request.Context(), req.WarehouseID, req.ProductID, req.Delta, req.Reference)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"row":             change.Row,
			"quantity_before": change.QuantityBefore,
			"quantity_after":  change.QuantityAfter,
		}})
	}
}

func listOrders(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var status *model.OrderStatus
		if v := c.Query("status"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < int(model.OrderPending) || n > int(model.OrderCancelled) {
				c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid status"})
				return
			}
			st := model.OrderStatus(n)
			status = &st
		}
		list, err := svc.ListOrders(c.Request.Context(), status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": list})
	}
}

func fulfillOrder(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := svc.FulfillOrder(c.Request.Context(), c.Param("order_no"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": o})
	}
}

func cancelOrder(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := svc.CancelOrder(c.Request.Context(), c.Param("order_no"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": o})
	}
}

func lowStockReport(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := svc.LowStockReport(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": entries, "generated_at": time.Now().UTC()})
	}
}
