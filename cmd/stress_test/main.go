package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/obs"
)

func main() {
	initialStock := flag.Int("stock", 20, "initial stock of each product")
	totalRequests := flag.Int("requests", 50, "number of concurrent placements")
	products := flag.Int("products", 2, "number of products each placement spans")
	flag.Parse()

	cfg := config.Load()
	logger := obs.NewLogger(os.Stderr, "warn", "stress_test")
	ctx := context.Background()

	db, err := storage.OpenMySQL(cfg.MySQLDSN)
	if err != nil {
		logger.Error("failed to open mysql", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.MySQLMaxOpenConns)

	adapter := storage.NewMySQLAdapter(db, logger, storage.WithLockWaitTimeout(cfg.LockWaitTimeout))
	if err := adapter.Migrate(ctx); err != nil {
		logger.Error("failed to migrate", "error", err)
		os.Exit(1)
	}

	catalog := service.NewCatalogService(adapter, adapter, adapter, logger)
	engine := service.NewEngine(adapter, adapter, adapter, adapter, logger, service.WithScopeTimeout(cfg.ScopeTimeout))
	retry := service.RetryPolicy{Attempts: cfg.RetryAttempts, BaseDelay: cfg.RetryBaseDelay, MaxDelay: time.Second}
	orderService := service.NewOrderService(engine, nil, retry, *totalRequests, logger)
	defer orderService.Close()

	// Fresh products for this run
	ids := make([]int64, 0, *products)
	for i := 0; i < *products; i++ {
		p, err := catalog.CreateProduct(ctx, domain.Product{
			Name:     fmt.Sprintf("stress-%s", uuid.NewString()[:8]),
			Price:    decimal.RequireFromString("1.00"),
			Quantity: *initialStock,
		})
		if err != nil {
			logger.Error("failed to create product", "error", err)
			os.Exit(1)
		}
		ids = append(ids, p.ID)
	}

	// Counters
	var successCount atomic.Int32
	var stockCount atomic.Int32
	var otherCount atomic.Int32

	// Spawn concurrent requests, alternating line order across products
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			lines := make([]domain.LineRequest, 0, len(ids))
			for j := range ids {
				id := ids[(j+n)%len(ids)]
				lines = append(lines, domain.LineRequest{ProductID: id, Quantity: 1})
			}

			_, err := orderService.PlaceOrder(ctx, service.PlaceOrderRequest{
				RequestID: uuid.NewString(),
				Lines:     lines,
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				stockCount.Add(1)
			default:
				otherCount.Add(1)
				logger.Warn("placement failed", "error", err)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	expected := int32(min(*initialStock, *totalRequests))

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Products:         %d\n", len(ids))
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Out of stock:     %d\n", stockCount.Load())
	fmt.Printf("Other failures:   %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	failed := false
	if success == expected && otherCount.Load() == 0 {
		fmt.Printf("PASS: exactly %d orders succeeded\n", expected)
	} else {
		fmt.Printf("FAIL: expected %d successes and no other failures\n", expected)
		failed = true
	}

	// Verify final stock in MySQL
	for _, id := range ids {
		p, err := catalog.GetProduct(ctx, id)
		if err != nil {
			fmt.Printf("FAIL: read product %d: %v\n", id, err)
			failed = true
			continue
		}
		want := *initialStock - int(success)
		if p.Quantity == want {
			fmt.Printf("PASS: product %d stock %d\n", id, p.Quantity)
		} else {
			fmt.Printf("FAIL: product %d expected stock %d, got %d\n", id, want, p.Quantity)
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}
