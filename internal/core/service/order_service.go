package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

var ErrDuplicateRequest = errors.New("duplicate request")

const idempotencyKeyPrefix = "order:req:"

type PlaceOrderRequest struct {
	// RequestID makes the placement idempotent when a cache is configured.
	RequestID string
	PlacedAt  time.Time
	Lines     []domain.LineRequest
}

// OrderService is the entry point used by the transports. It wraps the
// Engine with request idempotency, retries on contention and an
// after-commit event queue.
type OrderService struct {
	engine     *Engine
	cache      port.CacheRepository
	retry      RetryPolicy
	eventQueue chan domain.OrderPlacedEvent
	logger     *slog.Logger

	// mu guards closed so a placement that outlives Close never sends on
	// the closed queue.
	mu     sync.RWMutex
	closed bool
}

// NewOrderService creates the service. cache may be nil, which disables
// idempotency keys. A negative queueSize is treated as 0.
func NewOrderService(engine *Engine, cache port.CacheRepository, retry RetryPolicy, queueSize int, logger *slog.Logger) *OrderService {
	queueSize = max(queueSize, 0)
	return &OrderService{
		engine:     engine,
		cache:      cache,
		retry:      retry,
		eventQueue: make(chan domain.OrderPlacedEvent, queueSize),
		logger:     logger,
	}
}

func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	var key string
	if s.cache != nil && req.RequestID != "" {
		key = idempotencyKeyPrefix + req.RequestID

		ok, err := s.cache.SetIdempotency(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return s.replay(ctx, key)
		}
	}

	var order *domain.Order
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.engine.PlaceOrder(ctx, domain.Order{PlacedAt: req.PlacedAt}, req.Lines)
		return err
	})
	if err != nil {
		if key != "" {
			if releaseErr := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), key); releaseErr != nil {
				s.logger.Warn("failed to release idempotency key", "key", key, "error", releaseErr)
			}
		}
		return nil, err
	}

	if key != "" {
		if err := s.cache.CompleteIdempotency(context.WithoutCancel(ctx), key, order.ID); err != nil {
			s.logger.Warn("failed to record idempotency key", "key", key, "order_id", order.ID, "error", err)
		}
	}

	s.enqueue(order)
	return order, nil
}

func (s *OrderService) replay(ctx context.Context, key string) (*domain.Order, error) {
	orderID, found, err := s.cache.LookupIdempotency(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	if !found {
		return nil, ErrDuplicateRequest
	}
	s.logger.Info("replaying placed order", "key", key, "order_id", orderID)
	return s.engine.GetOrder(ctx, orderID)
}

func (s *OrderService) enqueue(order *domain.Order) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.logger.Warn("event queue closed, dropping order placed event", "order_id", order.ID)
		return
	}
	select {
	case s.eventQueue <- domain.NewOrderPlacedEvent(order):
	default:
		s.logger.Warn("event queue full, dropping order placed event", "order_id", order.ID)
	}
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return s.engine.GetOrder(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.engine.ListOrders(ctx)
}

func (s *OrderService) GetOrderDetail(ctx context.Context, id int64) ([]domain.OrderDetailLine, error) {
	return s.engine.GetOrderDetail(ctx, id)
}

func (s *OrderService) GetEventQueue() <-chan domain.OrderPlacedEvent {
	return s.eventQueue
}

// Close closes the event queue. Placements that complete afterwards still
// commit, but their events are dropped. Close is safe to call more than once.
func (s *OrderService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.eventQueue)
}
