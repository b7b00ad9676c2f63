package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubOrders struct {
	placeFn  func(ctx context.Context, req service.PlaceOrderRequest) (*domain.Order, error)
	getFn    func(ctx context.Context, id int64) (*domain.Order, error)
	orders   []domain.Order
	detail   []domain.OrderDetailLine
	err      error
	lastReq  service.PlaceOrderRequest
	lastID   int64
	listHits int
}

func (s *stubOrders) PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*domain.Order, error) {
	s.lastReq = req
	if s.placeFn != nil {
		return s.placeFn(ctx, req)
	}
	return nil, s.err
}

func (s *stubOrders) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	s.lastID = id
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, s.err
}

func (s *stubOrders) ListOrders(ctx context.Context) ([]domain.Order, error) {
	s.listHits++
	return s.orders, s.err
}

func (s *stubOrders) GetOrderDetail(ctx context.Context, id int64) ([]domain.OrderDetailLine, error) {
	s.lastID = id
	return s.detail, s.err
}

// stubCatalog keeps categories and products in maps and skips validation
// unless err is set.
type stubCatalog struct {
	categories map[int64]domain.Category
	products   map[int64]domain.Product
	nextID     int64
	err        error
	lastCreate domain.Product
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		categories: make(map[int64]domain.Category),
		products:   make(map[int64]domain.Product),
	}
}

func (s *stubCatalog) CreateCategory(ctx context.Context, c domain.Category) (*domain.Category, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.nextID++
	c.ID = s.nextID
	s.categories[c.ID] = c
	return &c, nil
}

func (s *stubCatalog) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	c, ok := s.categories[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (s *stubCatalog) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range s.categories {
		out = append(out, c)
	}
	return out, s.err
}

func (s *stubCatalog) UpdateCategory(ctx context.Context, c domain.Category) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.categories[c.ID]; !ok {
		return domain.ErrNotFound
	}
	s.categories[c.ID] = c
	return nil
}

func (s *stubCatalog) DeleteCategory(ctx context.Context, id int64) error {
	if _, ok := s.categories[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *stubCatalog) CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	s.lastCreate = p
	if s.err != nil {
		return nil, s.err
	}
	s.nextID++
	p.ID = s.nextID
	s.products[p.ID] = p
	return &p, nil
}

func (s *stubCatalog) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, &domain.ProductNotFoundError{ProductID: id}
	}
	return &p, nil
}

func (s *stubCatalog) ListProducts(ctx context.Context, categoryID *int64) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range s.products {
		if categoryID != nil && (p.CategoryID == nil || *p.CategoryID != *categoryID) {
			continue
		}
		out = append(out, p)
	}
	return out, s.err
}

func (s *stubCatalog) UpdateProduct(ctx context.Context, p domain.Product) error {
	current, ok := s.products[p.ID]
	if !ok {
		return &domain.ProductNotFoundError{ProductID: p.ID}
	}
	p.Quantity = current.Quantity
	s.products[p.ID] = p
	return nil
}

func (s *stubCatalog) DeleteProduct(ctx context.Context, id int64) error {
	if _, ok := s.products[id]; !ok {
		return &domain.ProductNotFoundError{ProductID: id}
	}
	delete(s.products, id)
	return nil
}

func (s *stubCatalog) Restock(ctx context.Context, id int64, quantity int) (*domain.Product, error) {
	if quantity <= 0 {
		return nil, &domain.InvalidInputError{Field: "quantity", Reason: "must be greater than 0"}
	}
	p, ok := s.products[id]
	if !ok {
		return nil, &domain.ProductNotFoundError{ProductID: id}
	}
	p.Quantity += quantity
	s.products[id] = p
	return &p, nil
}
