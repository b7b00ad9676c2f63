package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// Engine places orders against shared inventory. Each call runs in its own
// scope: product rows are locked in ascending id order, stock is checked
// against the aggregated demand per product, and the order, its lines and
// the stock decrements are committed together or not at all.
type Engine struct {
	uow          port.UnitOfWork
	inventory    port.InventoryAccessor
	orders       port.OrderAccessor
	lines        port.OrderLineAccessor
	scopeTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

type EngineOption func(*Engine)

// WithScopeTimeout bounds how long one placement may hold its scope,
// including time spent waiting for row locks. Zero means no bound.
func WithScopeTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.scopeTimeout = d }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(
	uow port.UnitOfWork,
	inventory port.InventoryAccessor,
	orders port.OrderAccessor,
	lines port.OrderLineAccessor,
	logger *slog.Logger,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		uow:       uow,
		inventory: inventory,
		orders:    orders,
		lines:     lines,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type demand struct {
	ids      []int64
	quantity map[int64]int
}

func aggregateDemand(shell domain.Order, requested []domain.LineRequest) (demand, error) {
	if shell.ID != 0 {
		return demand{}, &domain.InvalidInputError{Field: "order.id", Reason: "is assigned on placement"}
	}
	if !shell.Total.IsZero() {
		return demand{}, &domain.InvalidInputError{Field: "order.total", Reason: "is derived from the lines"}
	}
	if len(requested) == 0 {
		return demand{}, &domain.InvalidInputError{Field: "lines", Reason: "must not be empty"}
	}

	d := demand{quantity: make(map[int64]int, len(requested))}
	for i, line := range requested {
		if line.Quantity <= 0 {
			return demand{}, &domain.InvalidInputError{
				Field:  fmt.Sprintf("lines[%d].quantity", i),
				Reason: "must be positive",
			}
		}
		current, seen := d.quantity[line.ProductID]
		if !seen {
			d.ids = append(d.ids, line.ProductID)
		}
		if current > math.MaxInt32-line.Quantity {
			return demand{}, &domain.InvalidInputError{
				Field:  fmt.Sprintf("lines[%d].quantity", i),
				Reason: "total for product is too large",
			}
		}
		d.quantity[line.ProductID] = current + line.Quantity
	}
	slices.Sort(d.ids)
	return d, nil
}

// PlaceOrder validates and persists an order with its lines. The shell
// carries the placement time (zero means now) and must have no id and a
// zero total.
func (e *Engine) PlaceOrder(ctx context.Context, shell domain.Order, requested []domain.LineRequest) (*domain.Order, error) {
	d, err := aggregateDemand(shell, requested)
	if err != nil {
		return nil, err
	}
	if shell.PlacedAt.IsZero() {
		shell.PlacedAt = e.now()
	}

	scopeCtx, cancel := e.scopeContext(ctx)
	defer cancel()

	order, err := e.place(scopeCtx, shell, requested, d)
	if err != nil {
		err = contentionOnTimeout(ctx, scopeCtx, err)
		e.logger.Debug("order rejected", "error", err, "lines", len(requested))
		return nil, err
	}

	e.logger.Info("order placed",
		"order_id", order.ID,
		"lines", len(order.Lines),
		"total", order.Total.String(),
	)
	return order, nil
}

func (e *Engine) place(ctx context.Context, shell domain.Order, requested []domain.LineRequest, d demand) (*domain.Order, error) {
	scope, err := e.uow.Begin(ctx, port.ScopeOptions{})
	if err != nil {
		return nil, err
	}
	defer scope.Rollback()

	products := make(map[int64]*domain.Product, len(d.ids))
	for _, id := range d.ids {
		product, err := e.inventory.GetProductForUpdate(ctx, scope, id)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.ProductNotFoundError{ProductID: id}
		}
		if err != nil {
			return nil, err
		}
		products[id] = product
	}

	for _, id := range d.ids {
		if want, have := d.quantity[id], products[id].Quantity; want > have {
			return nil, &domain.InsufficientStockError{ProductID: id, Requested: want, Available: have}
		}
	}

	order := domain.Order{PlacedAt: shell.PlacedAt, Total: decimal.Zero}
	if err := e.orders.InsertOrder(ctx, scope, &order); err != nil {
		return nil, err
	}

	total := decimal.Zero
	order.Lines = make([]domain.OrderLine, 0, len(requested))
	for _, req := range requested {
		line := domain.OrderLine{
			OrderID:   order.ID,
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			Subtotal:  products[req.ProductID].Price.Mul(decimal.NewFromInt(int64(req.Quantity))),
		}
		if err := e.lines.InsertOrderLine(ctx, scope, &line); err != nil {
			return nil, err
		}
		total = total.Add(line.Subtotal)
		order.Lines = append(order.Lines, line)
	}

	for _, id := range d.ids {
		ok, err := e.inventory.DecrementStock(ctx, scope, id, d.quantity[id])
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &domain.ContentionError{Op: fmt.Sprintf("decrement stock of product %d", id)}
		}
	}

	ok, err := e.orders.UpdateOrderTotal(ctx, scope, order.ID, total)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.StorageError{
			Op:  "update order total",
			Err: fmt.Errorf("order %d: %w", order.ID, domain.ErrNotFound),
		}
	}
	order.Total = total

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := scope.Commit(); err != nil {
		return nil, err
	}
	return &order, nil
}

func (e *Engine) scopeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.scopeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.scopeTimeout)
}

// contentionOnTimeout turns a failure caused by the engine's own scope
// deadline into a retryable contention error. Caller cancellation and
// business rejections pass through unchanged.
func contentionOnTimeout(parent, scoped context.Context, err error) error {
	if parent.Err() != nil || !errors.Is(scoped.Err(), context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, domain.ErrContention) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrProductNotFound) ||
		errors.Is(err, domain.ErrInsufficientStock) {
		return err
	}
	return &domain.ContentionError{Op: "place order", Err: err}
}

// GetOrder reads an order header with its lines.
func (e *Engine) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	var order *domain.Order
	err := inScope(ctx, e.uow, port.ScopeOptions{ReadOnly: true}, func(scope port.Scope) error {
		o, err := e.orders.GetOrder(ctx, scope, id)
		if err != nil {
			return err
		}
		lines, err := e.lines.ListOrderLines(ctx, scope, id)
		if err != nil {
			return err
		}
		o.Lines = lines
		order = o
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns order headers without lines.
func (e *Engine) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	err := inScope(ctx, e.uow, port.ScopeOptions{ReadOnly: true}, func(scope port.Scope) error {
		var err error
		orders, err = e.orders.ListOrders(ctx, scope)
		return err
	})
	return orders, err
}

// GetOrderDetail lists the lines of an order joined with product and
// category names.
func (e *Engine) GetOrderDetail(ctx context.Context, id int64) ([]domain.OrderDetailLine, error) {
	var detail []domain.OrderDetailLine
	err := inScope(ctx, e.uow, port.ScopeOptions{ReadOnly: true}, func(scope port.Scope) error {
		if _, err := e.orders.GetOrder(ctx, scope, id); err != nil {
			return err
		}
		var err error
		detail, err = e.lines.ListOrderDetail(ctx, scope, id)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	return detail, err
}
