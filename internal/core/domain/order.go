package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID       int64
	PlacedAt time.Time
	Total    decimal.Decimal
	Lines    []OrderLine
}

// OrderLine freezes the unit price observed at placement into Subtotal.
type OrderLine struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	Subtotal  decimal.Decimal
}

// LineRequest is one requested (product, quantity) pair of a placement.
type LineRequest struct {
	ProductID int64
	Quantity  int
}

// OrderDetailLine is the read model behind the order detail listing.
type OrderDetailLine struct {
	LineID       int64
	ProductID    int64
	ProductName  string
	CategoryName string
	Quantity     int
	Subtotal     decimal.Decimal
}

// OrderPlacedEvent is published after a placement commits.
type OrderPlacedEvent struct {
	OrderID  int64             `json:"order_id"`
	PlacedAt time.Time         `json:"placed_at"`
	Total    decimal.Decimal   `json:"total"`
	Lines    []OrderPlacedLine `json:"lines"`
}

type OrderPlacedLine struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func NewOrderPlacedEvent(order *Order) OrderPlacedEvent {
	event := OrderPlacedEvent{
		OrderID:  order.ID,
		PlacedAt: order.PlacedAt,
		Total:    order.Total,
		Lines:    make([]OrderPlacedLine, 0, len(order.Lines)),
	}
	for _, line := range order.Lines {
		event.Lines = append(event.Lines, OrderPlacedLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal,
		})
	}
	return event
}
