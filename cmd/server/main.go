package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/adapter/handler/orderpb"
	"github.com/rl1809/storefront/internal/adapter/messaging"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/obs"
	"github.com/rl1809/storefront/internal/port"
)

const publishTimeout = 5 * time.Second

func main() {
	cfg := config.Load()
	logger := obs.NewLogger(os.Stdout, cfg.LogLevel, "storefront")

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize MySQL
	db, err := storage.OpenMySQL(cfg.MySQLDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.MySQLMaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQLMaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQLConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		return err
	}
	logger.Info("connected to mysql")

	mysqlAdapter := storage.NewMySQLAdapter(db, logger, storage.WithLockWaitTimeout(cfg.LockWaitTimeout))
	if cfg.Migrate {
		if err := mysqlAdapter.Migrate(ctx); err != nil {
			return err
		}
	}

	// Initialize Redis, optional
	var cache port.CacheRepository
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		cache = storage.NewRedisAdapter(rdb, cfg.IdempotencyTTL)
		logger.Info("connected to redis", "addr", cfg.RedisAddr)
	} else {
		logger.Warn("REDIS_ADDR not set, idempotency keys disabled")
	}

	// Initialize event publisher, RabbitMQ when configured
	var publisher port.EventPublisher = messaging.LogPublisher{Logger: logger}
	if cfg.AMQPURL != "" {
		mq, err := messaging.NewRabbitMQ(cfg.AMQPURL, cfg.EventQueue, logger)
		if err != nil {
			return err
		}
		defer mq.Close()
		publisher = mq
	}

	// Initialize services
	engine := service.NewEngine(mysqlAdapter, mysqlAdapter, mysqlAdapter, mysqlAdapter, logger,
		service.WithScopeTimeout(cfg.ScopeTimeout))
	retry := service.RetryPolicy{
		Attempts:  cfg.RetryAttempts,
		BaseDelay: cfg.RetryBaseDelay,
		MaxDelay:  time.Second,
	}
	orderService := service.NewOrderService(engine, cache, retry, cfg.EventQueueSize, logger)
	catalogService := service.NewCatalogService(mysqlAdapter, mysqlAdapter, mysqlAdapter, logger)

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.EventWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, orderService.GetEventQueue(), publisher, logger)
		}(i)
	}
	logger.Info("started event workers", "count", cfg.EventWorkers)

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	orderpb.RegisterOrderServiceServer(grpcServer, handler.NewGRPCHandler(orderService, logger))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(orderService, catalogService, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpHandler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	// Close event queue and wait for workers to drain it. Handlers that
	// outlived Shutdown still commit but drop their events.
	orderService.Close()
	wg.Wait()
	logger.Info("workers stopped")

	return nil
}

// workerLoop publishes committed orders until the queue is closed. A failed
// publish is logged; the order itself is already durable.
func workerLoop(id int, queue <-chan domain.OrderPlacedEvent, publisher port.EventPublisher, logger *slog.Logger) {
	for event := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)

		if err := publisher.PublishOrderPlaced(ctx, event); err != nil {
			logger.Error("failed to publish order event", "worker", id, "order_id", event.OrderID, "error", err)
		} else {
			logger.Debug("published order event", "worker", id, "order_id", event.OrderID)
		}

		cancel()
	}
}
