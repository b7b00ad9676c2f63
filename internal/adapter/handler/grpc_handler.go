package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/storefront/internal/adapter/handler/orderpb"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

type GRPCHandler struct {
	orderpb.UnimplementedOrderServiceServer
	orders OrderPlacer
	logger *slog.Logger
}

func NewGRPCHandler(orders OrderPlacer, logger *slog.Logger) *GRPCHandler {
	return &GRPCHandler{orders: orders, logger: logger}
}

func (h *GRPCHandler) PlaceOrder(ctx context.Context, req *orderpb.PlaceOrderRequest) (*orderpb.Order, error) {
	lines := make([]domain.LineRequest, 0, len(req.GetLines()))
	for _, l := range req.GetLines() {
		lines = append(lines, domain.LineRequest{ProductID: l.GetProductId(), Quantity: int(l.GetQuantity())})
	}

	order, err := h.orders.PlaceOrder(ctx, service.PlaceOrderRequest{
		RequestID: req.GetRequestId(),
		Lines:     lines,
	})
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toPBOrder(order), nil
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *orderpb.GetOrderRequest) (*orderpb.Order, error) {
	if req.GetId() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id must be a positive integer")
	}

	order, err := h.orders.GetOrder(ctx, req.GetId())
	if err != nil {
		return nil, h.toStatus(err)
	}
	return toPBOrder(order), nil
}

func grpcCode(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrInsufficientStock):
		return codes.FailedPrecondition
	case errors.Is(err, service.ErrDuplicateRequest):
		return codes.AlreadyExists
	case errors.Is(err, domain.ErrContention):
		return codes.Aborted
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

func (h *GRPCHandler) toStatus(err error) error {
	code := grpcCode(err)
	if code == codes.Internal {
		h.logger.Error("grpc request failed", "error", err)
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}

func toPBOrder(o *domain.Order) *orderpb.Order {
	out := &orderpb.Order{
		Id:       o.ID,
		PlacedAt: o.PlacedAt.UTC().Format(time.RFC3339Nano),
		Total:    o.Total.String(),
		Lines:    make([]*orderpb.OrderLine, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		out.Lines = append(out.Lines, &orderpb.OrderLine{
			Id:        l.ID,
			ProductId: l.ProductID,
			Quantity:  int32(l.Quantity),
			Subtotal:  l.Subtotal.String(),
		})
	}
	return out
}
