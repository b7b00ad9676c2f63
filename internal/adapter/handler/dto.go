package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

type LineItemHTTP struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type PlaceOrderHTTPRequest struct {
	RequestID string         `json:"request_id"`
	PlacedAt  *time.Time     `json:"placed_at,omitempty"`
	Lines     []LineItemHTTP `json:"lines"`
}

type OrderLineHTTPResponse struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type OrderHTTPResponse struct {
	ID       int64                   `json:"id"`
	PlacedAt time.Time               `json:"placed_at"`
	Total    decimal.Decimal         `json:"total"`
	Lines    []OrderLineHTTPResponse `json:"lines,omitempty"`
}

type OrderDetailLineHTTPResponse struct {
	LineID       int64           `json:"line_id"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	CategoryName string          `json:"category_name,omitempty"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type OrderDetailHTTPResponse struct {
	OrderID int64                         `json:"order_id"`
	Lines   []OrderDetailLineHTTPResponse `json:"lines"`
}

type CategoryHTTPRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CategoryHTTPResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ProductHTTPRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	CategoryID  *int64          `json:"category_id,omitempty"`
}

type ProductHTTPResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	CategoryID  *int64          `json:"category_id,omitempty"`
}

type RestockHTTPRequest struct {
	Quantity int `json:"quantity"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func toOrderResponse(o *domain.Order) OrderHTTPResponse {
	resp := OrderHTTPResponse{ID: o.ID, PlacedAt: o.PlacedAt, Total: o.Total}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, OrderLineHTTPResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal,
		})
	}
	return resp
}

func toCategoryResponse(c *domain.Category) CategoryHTTPResponse {
	return CategoryHTTPResponse{ID: c.ID, Name: c.Name, Description: c.Description}
}

func toProductResponse(p *domain.Product) ProductHTTPResponse {
	return ProductHTTPResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Quantity,
		CategoryID:  p.CategoryID,
	}
}

func (r ProductHTTPRequest) toDomain(id int64) domain.Product {
	return domain.Product{
		ID:          id,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Quantity:    r.Quantity,
		CategoryID:  r.CategoryID,
	}
}
