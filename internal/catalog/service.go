package catalog

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"furnistore/internal/model"
	"furnistore/internal/pricing"
	"furnistore/internal/queue"
	"furnistore/internal/stock"
	rediskey "furnistore/pkg/redis"
)

// MovementRecorder appends movement events to the outbox stream.
type MovementRecorder interface {
	Record(ctx context.Context, msg queue.MovementMessage) error
}

// Service routes every catalog operation through the configuration guard:
// reads degrade to the fallback catalog when the store is unconfigured or
// failing (logged, never surfaced), writes are rejected loudly and never
// silently dropped.
type Service struct {
	guard    Guard
	store    *Store // nil when the store could not be opened
	fb       *Fallback
	cache    *rd.Client // nil disables the list cache
	outbox   MovementRecorder
	log      *zap.Logger
	cacheTTL time.Duration
}

// ServiceOptions carries the optional collaborators.
type ServiceOptions struct {
	Cache    *rd.Client
	Outbox   MovementRecorder
	CacheTTL time.Duration
}

func NewService(guard Guard, store *Store, fb *Fallback, log *zap.Logger, opts ServiceOptions) *Service {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		guard:    guard,
		store:    store,
		fb:       fb,
		cache:    opts.Cache,
		outbox:   opts.Outbox,
		log:      log,
		cacheTTL: ttl,
	}
}

// Degraded reports whether reads are currently served from the fallback
// catalog.
func (s *Service) Degraded() bool {
	return s.store == nil || !s.guard.Configured()
}

func (s *Service) readFallback(op string, err error) {
	if err != nil {
		s.log.Warn("serving fallback catalog",
			zap.String("op", op),
			zap.Error(&TransientReadError{Op: op, Err: err}))
	}
}

func (s *Service) writeGate(op string) error {
	if !s.guard.Configured() {
		return &ConfigurationError{Op: op}
	}
	if s.store == nil {
		return &WriteFailure{Op: op, Err: ErrStoreUnreachable}
	}
	return nil
}

// storefront reads

type productPage struct {
	Products []model.Product `json:"products"`
	Total    int             `json:"total"`
}

func (s *Service) ListProducts(ctx context.Context, f ProductFilters) ([]model.Product, int, error) {
	if s.Degraded() {
		s.readFallback("list products", nil)
		list, total := s.fb.ListProducts(f)
		return list, total, nil
	}

	key := s.listCacheKey(f)
	if s.cache != nil && key != "" {
		if val, err := s.cache.Get(ctx, key).Result(); err == nil {
			var page productPage
			if err := json.Unmarshal([]byte(val), &page); err == nil {
				return page.Products, page.Total, nil
			}
		}
	}

	list, total, err := s.store.ListProducts(ctx, f)
	if err != nil {
		s.readFallback("list products", err)
		fbList, fbTotal := s.fb.ListProducts(f)
		return fbList, fbTotal, nil
	}

	if s.cache != nil && key != "" {
		if data, err := json.Marshal(productPage{Products: list, Total: total}); err == nil {
			s.cache.Set(ctx, key, data, s.cacheTTL)
		}
	}
	return list, total, nil
}

func (s *Service) listCacheKey(f ProductFilters) string {
	data, err := json.Marshal(f.normalized())
	if err != nil {
		return ""
	}
	return rediskey.ProductListKey(fmt.Sprintf("%x", md5.Sum(data)))
}

func (s *Service) invalidateProductCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	keys, err := s.cache.Keys(ctx, rediskey.ProductListKey("*")).Result()
	if err == nil && len(keys) > 0 {
		s.cache.Del(ctx, keys...)
	}
}

func (s *Service) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	if s.Degraded() {
		s.readFallback("get product", nil)
		return s.fb.GetProductBySlug(slug)
	}
	p, err := s.store.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
		s.readFallback("get product", err)
		return s.fb.GetProductBySlug(slug)
	}
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id uint) (*model.Product, error) {
	if s.Degraded() {
		s.readFallback("get product", nil)
		return s.fb.GetProduct(id)
	}
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
		s.readFallback("get product", err)
		return s.fb.GetProduct(id)
	}
	return p, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	if s.Degraded() {
		s.readFallback("list categories", nil)
		return s.fb.ListCategories(), nil
	}
	list, err := s.store.ListCategories(ctx)
	if err != nil {
		s.readFallback("list categories", err)
		return s.fb.ListCategories(), nil
	}
	return list, nil
}

// Availability aggregates the product's warehouse rows. Under fallback the
// catalog carries no warehouse truth, so the legacy product fields drive
// the whole-product answer, with stock_count == 0 authoritative when
// present; an explicit warehouse scope cannot be answered without rows and
// resolves to out of stock.
func (s *Service) Availability(ctx context.Context, p *model.Product, warehouseID uint) stock.Summary {
	if !s.Degraded() {
		rows, err := s.store.ListWarehouseStock(ctx, p.ID)
		if err == nil {
			return stock.Summarize(rows, warehouseID)
		}
		s.readFallback("list warehouse stock", err)
	}
	if warehouseID != stock.AllWarehouses {
		return stock.Summary{Status: stock.StatusOutOfStock}
	}
	return legacyAvailability(p)
}

func legacyAvailability(p *model.Product) stock.Summary {
	if p.StockCount != nil {
		n := *p.StockCount
		st := stock.StatusInStock
		if n <= 0 {
			st = stock.StatusOutOfStock
		}
		return stock.Summary{TotalStock: n, TotalAvailable: n, Status: st}
	}
	if p.InStock {
		return stock.Summary{Status: stock.StatusInStock}
	}
	return stock.Summary{Status: stock.StatusOutOfStock}
}

func (s *Service) ListWarehouseStock(ctx context.Context, productID uint) ([]model.WarehouseStock, error) {
	if s.Degraded() {
		s.readFallback("list warehouse stock", nil)
		return []model.WarehouseStock{}, nil
	}
	rows, err := s.store.ListWarehouseStock(ctx, productID)
	if err != nil {
		s.readFallback("list warehouse stock", err)
		return []model.WarehouseStock{}, nil
	}
	return rows, nil
}

func (s *Service) ListWarehouses(ctx context.Context) ([]model.Warehouse, error) {
	if s.Degraded() {
		s.readFallback("list warehouses", nil)
		return []model.Warehouse{}, nil
	}
	list, err := s.store.ListWarehouses(ctx)
	if err != nil {
		s.readFallback("list warehouses", err)
		return []model.Warehouse{}, nil
	}
	return list, nil
}

// admin writes

func (s *Service) CreateProduct(ctx context.Context, p *model.Product) error {
	if err := s.writeGate("create product"); err != nil {
		return err
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return classifyWrite("create product", err)
	}
	go s.invalidateProductCache(context.Background())
	return nil
}

func (s *Service) UpdateProduct(ctx context.Context, p *model.Product) error {
	if err := s.writeGate("update product"); err != nil {
		return err
	}
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return classifyWrite("update product", err)
	}
	go s.invalidateProductCache(context.Background())
	return nil
}

func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.writeGate("delete product"); err != nil {
		return err
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return classifyWrite("delete product", err)
	}
	go s.invalidateProductCache(context.Background())
	return nil
}

func (s *Service) CreateWarehouse(ctx context.Context, w *model.Warehouse) error {
	if err := s.writeGate("create warehouse"); err != nil {
		return err
	}
	return classifyWrite("create warehouse", s.store.CreateWarehouse(ctx, w))
}

func (s *Service) UpdateWarehouse(ctx context.Context, w *model.Warehouse) error {
	if err := s.writeGate("update warehouse"); err != nil {
		return err
	}
	return classifyWrite("update warehouse", s.store.UpdateWarehouse(ctx, w))
}

func (s *Service) DeleteWarehouse(ctx context.Context, id uint) error {
	if err := s.writeGate("delete warehouse"); err != nil {
		return err
	}
	return classifyWrite("delete warehouse", s.store.DeleteWarehouse(ctx, id))
}

func (s *Service) UpsertStock(ctx context.Context, in model.WarehouseStock) (*StockChange, error) {
	if err := s.writeGate("upsert stock"); err != nil {
		return nil, err
	}
	change, err := s.store.UpsertStock(ctx, in)
	if err != nil {
		return nil, classifyWrite("upsert stock", err)
	}
	s.emitMovement(ctx, model.MovementSet, change, "admin upsert")
	go s.invalidateProductCache(context.Background())
	return change, nil
}

func (s *Service) AdjustStock(ctx context.Context, warehouseID, productID uint, delta int, reference string) (*StockChange, error) {
	if err := s.writeGate("adjust stock"); err != nil {
		return nil, err
	}
	change, err := s.store.AdjustStock(ctx, warehouseID, productID, delta)
	if err != nil {
		return nil, classifyWrite("adjust stock", err)
	}
	s.emitMovement(ctx, model.MovementAdjust, change, reference)
	go s.invalidateProductCache(context.Background())
	return change, nil
}

// orders

// OrderInput is a storefront order request. The unit price is always
// resolved server side from the product's current pricing.
type OrderInput struct {
	ProductID     uint
	WarehouseID   uint
	Quantity      int
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
}

// PlaceOrder reserves stock and records the order in one flow. The bulk
// tier matching the quantity is applied automatically.
func (s *Service) PlaceOrder(ctx context.Context, in OrderInput) (*model.Order, error) {
	if err := s.writeGate("place order"); err != nil {
		return nil, err
	}

	p, err := s.store.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, classifyWrite("place order", err)
	}

	q, err := pricing.Resolve(p, pricing.TierFor(p, in.Quantity), in.Quantity)
	if err != nil {
		return nil, err
	}

	change, err := s.store.ReserveStock(ctx, in.WarehouseID, in.ProductID, in.Quantity)
	if err != nil {
		return nil, classifyWrite("place order", err)
	}

	order := &model.Order{
		OrderNo:       newOrderNo(),
		ProductID:     in.ProductID,
		WarehouseID:   in.WarehouseID,
		Quantity:      in.Quantity,
		UnitPrice:     q.UnitPrice,
		TotalPrice:    q.TotalPrice,
		Status:        model.OrderPending,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		CustomerEmail: in.CustomerEmail,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		// Return the allocation so a failed insert never strands reserved
		// units.
		if _, relErr := s.store.SettleReservation(ctx, in.WarehouseID, in.ProductID, in.Quantity, false); relErr != nil {
			s.log.Error("release reservation after failed order insert",
				zap.Uint("product_id", in.ProductID), zap.Error(relErr))
		}
		return nil, classifyWrite("place order", err)
	}

	s.emitMovement(ctx, model.MovementReserve, change, order.OrderNo)
	return order, nil
}

// FulfillOrder ships a pending order: the reservation and the physical
// stock are both consumed.
func (s *Service) FulfillOrder(ctx context.Context, orderNo string) (*model.Order, error) {
	if err := s.writeGate("fulfill order"); err != nil {
		return nil, err
	}
	o, err := s.store.UpdateOrderStatus(ctx, orderNo, model.OrderPending, model.OrderFulfilled)
	if err != nil {
		return nil, classifyWrite("fulfill order", err)
	}
	change, err := s.store.SettleReservation(ctx, o.WarehouseID, o.ProductID, o.Quantity, true)
	if err != nil {
		return nil, classifyWrite("fulfill order", err)
	}
	s.emitMovement(ctx, model.MovementFulfill, change, o.OrderNo)
	go s.invalidateProductCache(context.Background())
	return o, nil
}

// CancelOrder releases a pending order's allocation back to sellable stock.
func (s *Service) CancelOrder(ctx context.Context, orderNo string) (*model.Order, error) {
	if err := s.writeGate("cancel order"); err != nil {
		return nil, err
	}
	o, err := s.store.UpdateOrderStatus(ctx, orderNo, model.OrderPending, model.OrderCancelled)
	if err != nil {
		return nil, classifyWrite("cancel order", err)
	}
	change, err := s.store.SettleReservation(ctx, o.WarehouseID, o.ProductID, o.Quantity, false)
	if err != nil {
		return nil, classifyWrite("cancel order", err)
	}
	s.emitMovement(ctx, model.MovementRelease, change, o.OrderNo)
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, orderNo string) (*model.Order, error) {
	if s.Degraded() {
		return nil, ErrOrderNotFound
	}
	return s.store.GetOrderByNo(ctx, orderNo)
}

func (s *Service) ListOrders(ctx context.Context, status *model.OrderStatus) ([]model.Order, error) {
	if s.Degraded() {
		s.readFallback("list orders", nil)
		return []model.Order{}, nil
	}
	list, err := s.store.ListOrders(ctx, status)
	if err != nil {
		s.readFallback("list orders", err)
		return []model.Order{}, nil
	}
	return list, nil
}

// reports

// LowStockEntry pairs a product with its aggregated stock summary.
type LowStockEntry struct {
	Product model.Product `json:"product"`
	Summary stock.Summary `json:"summary"`
}

// LowStockReport classifies every product with the stock resolver and
// returns those not fully in stock. The figures derive from real warehouse
// rows, never from a flat percentage estimate.
func (s *Service) LowStockReport(ctx context.Context) ([]LowStockEntry, error) {
	if s.Degraded() {
		s.readFallback("low stock report", nil)
		return []LowStockEntry{}, nil
	}

	products, _, err := s.store.ListProducts(ctx, ProductFilters{PageSize: 100})
	if err != nil {
		s.readFallback("low stock report", err)
		return []LowStockEntry{}, nil
	}
	rows, err := s.store.ListAllStock(ctx)
	if err != nil {
		s.readFallback("low stock report", err)
		return []LowStockEntry{}, nil
	}

	byProduct := make(map[uint][]model.WarehouseStock, len(products))
	for _, r := range rows {
		byProduct[r.ProductID] = append(byProduct[r.ProductID], r)
	}

	out := make([]LowStockEntry, 0)
	for _, p := range products {
		summary := stock.Summarize(byProduct[p.ID], stock.AllWarehouses)
		if summary.Status != stock.StatusInStock {
			out = append(out, LowStockEntry{Product: p, Summary: summary})
		}
	}
	return out, nil
}

// helpers

func (s *Service) emitMovement(ctx context.Context, movementType string, change *StockChange, reference string) {
	if s.outbox == nil || change == nil {
		return
	}
	msg := queue.MovementMessage{
		MovementID:     uuid.New().String(),
		WarehouseID:    change.Row.WarehouseID,
		ProductID:      change.Row.ProductID,
		MovementType:   movementType,
		QuantityChange: change.QuantityAfter - change.QuantityBefore,
		QuantityBefore: change.QuantityBefore,
		QuantityAfter:  change.QuantityAfter,
		Reference:      reference,
	}
	// Audit is best effort: the stock row is the source of truth, so an
	// outbox failure must not fail the write it describes.
	if err := s.outbox.Record(ctx, msg); err != nil {
		s.log.Warn("record movement event", zap.String("movement_id", msg.MovementID), zap.Error(err))
	}
}

func classifyWrite(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrWarehouseNotFound),
		errors.Is(err, ErrStockNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrOrderNotPending),
		errors.Is(err, ErrSlugTaken),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrWarehouseClosed):
		return err
	default:
		return &WriteFailure{Op: op, Err: err}
	}
}

func newOrderNo() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "FS" + strings.ToUpper(id[:12])
}
