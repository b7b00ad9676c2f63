package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func getMySQLAdapter(t *testing.T, opts ...MySQLOption) *MySQLAdapter {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/storefront"
	}

	db, err := OpenMySQL(dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("MySQL not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	adapter := NewMySQLAdapter(db, testLogger(), opts...)
	if err := adapter.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return adapter
}

func seedProduct(t *testing.T, adapter *MySQLAdapter, price string, quantity int) int64 {
	t.Helper()
	ctx := context.Background()

	scope, err := adapter.Begin(ctx, port.ScopeOptions{})
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	defer scope.Rollback()

	p := domain.Product{Name: "test product", Price: decimal.RequireFromString(price), Quantity: quantity}
	if err := adapter.CreateProduct(ctx, scope, &p); err != nil {
		t.Fatalf("seed product failed: %v", err)
	}
	if err := scope.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	return p.ID
}

func stockOf(t *testing.T, adapter *MySQLAdapter, id int64) int {
	t.Helper()
	var quantity int
	if err := adapter.db.QueryRow(`SELECT quantity FROM products WHERE id = ?`, id).Scan(&quantity); err != nil {
		t.Fatalf("read stock failed: %v", err)
	}
	return quantity
}

func orderCount(t *testing.T, adapter *MySQLAdapter) int {
	t.Helper()
	var count int
	adapter.db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&count)
	return count
}

func newEngine(adapter *MySQLAdapter, opts ...service.EngineOption) *service.Engine {
	return service.NewEngine(adapter, adapter, adapter, adapter, testLogger(), opts...)
}

func TestPlaceOrder_Success(t *testing.T) {
	adapter := getMySQLAdapter(t)
	ctx := context.Background()

	a := seedProduct(t, adapter, "10.50", 10)
	b := seedProduct(t, adapter, "3.25", 5)
	placedAt := time.Date(2026, 3, 14, 15, 9, 26, 535897000, time.UTC)

	order, err := newEngine(adapter).PlaceOrder(ctx, domain.Order{PlacedAt: placedAt}, []domain.LineRequest{
		{ProductID: a, Quantity: 2},
		{ProductID: b, Quantity: 4},
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	if !order.Total.Equal(decimal.RequireFromString("34")) {
		t.Errorf("expected total 34, got %s", order.Total)
	}
	if stockOf(t, adapter, a) != 8 || stockOf(t, adapter, b) != 1 {
		t.Errorf("unexpected stock %d/%d", stockOf(t, adapter, a), stockOf(t, adapter, b))
	}

	stored, err := newEngine(adapter).GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if !stored.Total.Equal(order.Total) || len(stored.Lines) != 2 {
		t.Errorf("stored order %+v does not match placed order %+v", stored, order)
	}
	if !stored.Lines[0].Subtotal.Equal(decimal.RequireFromString("21")) {
		t.Errorf("expected first subtotal 21, got %s", stored.Lines[0].Subtotal)
	}
	if !stored.PlacedAt.Equal(placedAt) {
		t.Errorf("expected placed_at %v, got %v", placedAt, stored.PlacedAt)
	}
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	adapter := getMySQLAdapter(t)
	ctx := context.Background()

	a := seedProduct(t, adapter, "1.00", 6)
	before := orderCount(t, adapter)

	_, err := newEngine(adapter).PlaceOrder(ctx, domain.Order{}, []domain.LineRequest{
		{ProductID: a, Quantity: 3},
		{ProductID: a, Quantity: 4},
	})

	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	if stockErr.Requested != 7 || stockErr.Available != 6 {
		t.Errorf("unexpected error detail %+v", stockErr)
	}
	if stockOf(t, adapter, a) != 6 {
		t.Errorf("expected stock 6, got %d", stockOf(t, adapter, a))
	}
	if orderCount(t, adapter) != before {
		t.Error("expected no order to be persisted")
	}
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	adapter := getMySQLAdapter(t)
	ctx := context.Background()

	a := seedProduct(t, adapter, "1.00", 6)

	_, err := newEngine(adapter).PlaceOrder(ctx, domain.Order{}, []domain.LineRequest{
		{ProductID: a, Quantity: 1},
		{ProductID: -1, Quantity: 1},
	})
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got: %v", err)
	}
	if stockOf(t, adapter, a) != 6 {
		t.Errorf("expected stock 6, got %d", stockOf(t, adapter, a))
	}
}

func TestPlaceOrder_Concurrent(t *testing.T) {
	adapter := getMySQLAdapter(t)

	initialStock := 20
	totalRequests := 50
	a := seedProduct(t, adapter, "1.00", initialStock)
	engine := newEngine(adapter, service.WithScopeTimeout(10*time.Second))

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.PlaceOrder(context.Background(), domain.Order{}, []domain.LineRequest{{ProductID: a, Quantity: 1}})
			if err == nil {
				successCount.Add(1)
				return
			}
			if !errors.Is(err, domain.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}
	if stockOf(t, adapter, a) != 0 {
		t.Errorf("expected stock 0, got %d", stockOf(t, adapter, a))
	}
}

func TestPlaceOrder_OppositeLineOrderDoesNotDeadlock(t *testing.T) {
	adapter := getMySQLAdapter(t)

	a := seedProduct(t, adapter, "1.00", 100)
	b := seedProduct(t, adapter, "2.00", 100)
	engine := newEngine(adapter, service.WithScopeTimeout(10*time.Second))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lines := []domain.LineRequest{{ProductID: a, Quantity: 1}, {ProductID: b, Quantity: 1}}
			if i%2 == 1 {
				lines[0], lines[1] = lines[1], lines[0]
			}
			if _, err := engine.PlaceOrder(context.Background(), domain.Order{}, lines); err != nil {
				t.Errorf("placement %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if stockOf(t, adapter, a) != 60 || stockOf(t, adapter, b) != 60 {
		t.Errorf("expected stock 60/60, got %d/%d", stockOf(t, adapter, a), stockOf(t, adapter, b))
	}
}

func TestPlaceOrder_LockWaitTimeoutIsContention(t *testing.T) {
	adapter := getMySQLAdapter(t, WithLockWaitTimeout(time.Second))
	ctx := context.Background()

	a := seedProduct(t, adapter, "1.00", 5)

	holder, err := adapter.db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	defer holder.Rollback()
	var locked int64
	if err := holder.QueryRowContext(ctx, `SELECT id FROM products WHERE id = ? FOR UPDATE`, a).Scan(&locked); err != nil {
		t.Fatalf("lock failed: %v", err)
	}

	_, err = newEngine(adapter).PlaceOrder(ctx, domain.Order{}, []domain.LineRequest{{ProductID: a, Quantity: 1}})
	if !errors.Is(err, domain.ErrContention) {
		t.Fatalf("expected ErrContention, got: %v", err)
	}

	holder.Rollback()
	if stockOf(t, adapter, a) != 5 {
		t.Errorf("expected stock 5, got %d", stockOf(t, adapter, a))
	}
}

func TestPlaceOrder_CallerCancellation(t *testing.T) {
	adapter := getMySQLAdapter(t)

	a := seedProduct(t, adapter, "1.00", 5)

	holder, err := adapter.db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	defer holder.Rollback()
	var locked int64
	if err := holder.QueryRow(`SELECT id FROM products WHERE id = ? FOR UPDATE`, a).Scan(&locked); err != nil {
		t.Fatalf("lock failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err = newEngine(adapter).PlaceOrder(ctx, domain.Order{}, []domain.LineRequest{{ProductID: a, Quantity: 1}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the caller's context error, got: %v", err)
	}

	holder.Rollback()
	if stockOf(t, adapter, a) != 5 {
		t.Errorf("expected stock 5, got %d", stockOf(t, adapter, a))
	}
}

func TestDecrementStock_Conditional(t *testing.T) {
	adapter := getMySQLAdapter(t)
	ctx := context.Background()

	a := seedProduct(t, adapter, "1.00", 3)

	scope, err := adapter.Begin(ctx, port.ScopeOptions{})
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	defer scope.Rollback()

	ok, err := adapter.DecrementStock(ctx, scope, a, 4)
	if err != nil || ok {
		t.Fatalf("expected rejected decrement, got ok=%v err=%v", ok, err)
	}
	ok, err = adapter.DecrementStock(ctx, scope, a, 3)
	if err != nil || !ok {
		t.Fatalf("expected decrement, got ok=%v err=%v", ok, err)
	}
	if err := scope.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if stockOf(t, adapter, a) != 0 {
		t.Errorf("expected stock 0, got %d", stockOf(t, adapter, a))
	}
}

func TestCatalog_EndToEnd(t *testing.T) {
	adapter := getMySQLAdapter(t)
	ctx := context.Background()
	catalog := service.NewCatalogService(adapter, adapter, adapter, testLogger())

	category, err := catalog.CreateCategory(ctx, domain.Category{Name: "cat-" + time.Now().Format("150405.000000")})
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	if _, err := catalog.CreateCategory(ctx, domain.Category{Name: category.Name}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected duplicate name to be rejected, got: %v", err)
	}

	product, err := catalog.CreateProduct(ctx, domain.Product{
		Name:       "Hammer",
		Price:      decimal.RequireFromString("12.90"),
		Quantity:   4,
		CategoryID: &category.ID,
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	update := *product
	update.Price = decimal.RequireFromString("13.10")
	update.Quantity = 999
	if err := catalog.UpdateProduct(ctx, update); err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	if err := catalog.UpdateProduct(ctx, update); err != nil {
		t.Fatalf("UpdateProduct with unchanged values failed: %v", err)
	}

	restocked, err := catalog.Restock(ctx, product.ID, 6)
	if err != nil {
		t.Fatalf("Restock failed: %v", err)
	}
	if restocked.Quantity != 10 {
		t.Errorf("expected quantity 10, got %d", restocked.Quantity)
	}
	if !restocked.Price.Equal(decimal.RequireFromString("13.1")) {
		t.Errorf("expected price 13.1, got %s", restocked.Price)
	}

	engine := newEngine(adapter)
	order, err := engine.PlaceOrder(ctx, domain.Order{}, []domain.LineRequest{{ProductID: product.ID, Quantity: 2}})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	detail, err := engine.GetOrderDetail(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrderDetail failed: %v", err)
	}
	if len(detail) != 1 || detail[0].ProductName != "Hammer" || detail[0].CategoryName != category.Name {
		t.Errorf("unexpected detail %+v", detail)
	}

	if err := catalog.DeleteProduct(ctx, product.ID); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ordered product delete to be rejected, got: %v", err)
	}

	if err := catalog.DeleteCategory(ctx, category.ID); err != nil {
		t.Fatalf("DeleteCategory failed: %v", err)
	}
	got, err := catalog.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if got.CategoryID != nil {
		t.Errorf("expected category to be cleared, got %d", *got.CategoryID)
	}
}

func TestCatalog_StoreRejectionsAreInvalidInput(t *testing.T) {
	adapter := getMySQLAdapter(t)
	ctx := context.Background()
	catalog := service.NewCatalogService(adapter, adapter, adapter, testLogger())

	id := seedProduct(t, adapter, "1.00", 5)
	if _, err := catalog.Restock(ctx, id, domain.MaxQuantity); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected stock overflow to be rejected as invalid input, got: %v", err)
	}
	if stockOf(t, adapter, id) != 5 {
		t.Errorf("expected stock 5, got %d", stockOf(t, adapter, id))
	}

	// a duplicate that slips past the name check still reports its field
	name := "dup-" + time.Now().Format("150405.000000")
	if _, err := catalog.CreateCategory(ctx, domain.Category{Name: name}); err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	scope, err := adapter.Begin(ctx, port.ScopeOptions{})
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	err = adapter.CreateCategory(ctx, scope, &domain.Category{Name: name})
	scope.Rollback()
	var invalid *domain.InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError, got: %v", err)
	}
	if invalid.Field != "name" {
		t.Errorf("expected field name, got %q", invalid.Field)
	}

	product, err := catalog.CreateProduct(ctx, domain.Product{
		Name:     "smallest price",
		Price:    decimal.RequireFromString("0.0001"),
		Quantity: 1,
	})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	stored, err := catalog.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if !stored.Price.Equal(product.Price) {
		t.Errorf("expected stored price %s, got %s", product.Price, stored.Price)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	adapter := getMySQLAdapter(t)

	_, err := newEngine(adapter).GetOrder(context.Background(), -1)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}
