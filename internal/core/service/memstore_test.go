package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// memStore is an in-memory store with row locks held until commit or
// rollback and writes buffered per scope, mirroring InnoDB closely enough
// for the placement properties.
type memStore struct {
	mu         sync.Mutex
	products   map[int64]domain.Product
	categories map[int64]domain.Category
	orders     map[int64]domain.Order
	lines      []domain.OrderLine
	nextID     int64
	rowLocks   map[int64]chan struct{}
	failures   map[string]error
	failCount  map[string]int
	begins     int
}

func newMemStore() *memStore {
	return &memStore{
		products:   make(map[int64]domain.Product),
		categories: make(map[int64]domain.Category),
		orders:     make(map[int64]domain.Order),
		rowLocks:   make(map[int64]chan struct{}),
		failures:   make(map[string]error),
		failCount:  make(map[string]int),
	}
}

func (m *memStore) addProduct(id int64, price string, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = domain.Product{
		ID:       id,
		Name:     "product",
		Price:    decimal.RequireFromString(price),
		Quantity: quantity,
	}
}

func (m *memStore) stock(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Quantity
}

func (m *memStore) counts() (orders, lines int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders), len(m.lines)
}

// failOn makes the next times calls of op return err.
func (m *memStore) failOn(op string, err error, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
	m.failCount[op] = times
}

func (m *memStore) injected(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCount[op] <= 0 {
		return nil
	}
	m.failCount[op]--
	return m.failures[op]
}

func (m *memStore) rowLock(id int64) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.rowLocks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		m.rowLocks[id] = ch
	}
	return ch
}

func (m *memStore) allocID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return m.nextID
}

type memScope struct {
	store    *memStore
	readOnly bool
	held     map[int64]chan struct{}
	stock    map[int64]int
	orders   map[int64]domain.Order
	lines    []domain.OrderLine
	pending  []func()
	done     bool
}

func (m *memStore) Begin(ctx context.Context, opts port.ScopeOptions) (port.Scope, error) {
	if err := m.injected("begin"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.begins++
	m.mu.Unlock()
	return &memScope{
		store:    m,
		readOnly: opts.ReadOnly,
		held:     make(map[int64]chan struct{}),
		stock:    make(map[int64]int),
		orders:   make(map[int64]domain.Order),
	}, nil
}

func (s *memScope) lock(ctx context.Context, id int64) error {
	if _, ok := s.held[id]; ok {
		return nil
	}
	ch := s.store.rowLock(id)
	select {
	case ch <- struct{}{}:
		s.held[id] = ch
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *memScope) release() {
	for id, ch := range s.held {
		<-ch
		delete(s.held, id)
	}
	s.done = true
}

func (s *memScope) Commit() error {
	if s.done {
		return errors.New("scope already finished")
	}
	if err := s.store.injected("commit"); err != nil {
		s.release()
		return err
	}

	s.store.mu.Lock()
	for id, delta := range s.stock {
		p := s.store.products[id]
		p.Quantity += delta
		if p.Quantity < 0 {
			panic("committed negative stock")
		}
		s.store.products[id] = p
	}
	for id, o := range s.orders {
		s.store.orders[id] = o
	}
	s.store.lines = append(s.store.lines, s.lines...)
	for _, apply := range s.pending {
		apply()
	}
	s.store.mu.Unlock()

	s.release()
	return nil
}

func (s *memScope) Rollback() error {
	if s.done {
		return nil
	}
	s.release()
	return nil
}

func asMemScope(scope port.Scope) *memScope {
	return scope.(*memScope)
}

func (m *memStore) GetProductForUpdate(ctx context.Context, scope port.Scope, id int64) (*domain.Product, error) {
	if err := m.injected("get_product"); err != nil {
		return nil, err
	}
	s := asMemScope(scope)
	if err := s.lock(ctx, id); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.Quantity += s.stock[id]
	return &p, nil
}

func (m *memStore) DecrementStock(ctx context.Context, scope port.Scope, id int64, quantity int) (bool, error) {
	if err := m.injected("decrement"); err != nil {
		return false, err
	}
	s := asMemScope(scope)
	if err := s.lock(ctx, id); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || p.Quantity+s.stock[id] < quantity {
		return false, nil
	}
	s.stock[id] -= quantity
	return true, nil
}

func (m *memStore) IncrementStock(ctx context.Context, scope port.Scope, id int64, quantity int) (bool, error) {
	if err := m.injected("increment"); err != nil {
		return false, err
	}
	s := asMemScope(scope)
	if err := s.lock(ctx, id); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return false, nil
	}
	// an INT column rejects the overflowing sum
	if p.Quantity+s.stock[id]+quantity > domain.MaxQuantity {
		return false, &domain.InvalidInputError{Field: "quantity", Reason: "out of range"}
	}
	s.stock[id] += quantity
	return true, nil
}

func (m *memStore) InsertOrder(ctx context.Context, scope port.Scope, order *domain.Order) error {
	if err := m.injected("insert_order"); err != nil {
		return err
	}
	order.ID = m.allocID()
	asMemScope(scope).orders[order.ID] = domain.Order{ID: order.ID, PlacedAt: order.PlacedAt, Total: order.Total}
	return nil
}

func (m *memStore) UpdateOrderTotal(ctx context.Context, scope port.Scope, id int64, total decimal.Decimal) (bool, error) {
	if err := m.injected("update_total"); err != nil {
		return false, err
	}
	s := asMemScope(scope)
	o, ok := s.orders[id]
	if !ok {
		return false, nil
	}
	o.Total = total
	s.orders[id] = o
	return true, nil
}

func (m *memStore) GetOrder(ctx context.Context, scope port.Scope, id int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

func (m *memStore) ListOrders(ctx context.Context, scope port.Scope) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orders := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		orders = append(orders, o)
	}
	slices.SortFunc(orders, func(a, b domain.Order) int { return int(b.ID - a.ID) })
	return orders, nil
}

func (m *memStore) InsertOrderLine(ctx context.Context, scope port.Scope, line *domain.OrderLine) error {
	if err := m.injected("insert_line"); err != nil {
		return err
	}
	line.ID = m.allocID()
	s := asMemScope(scope)
	s.lines = append(s.lines, *line)
	return nil
}

func (m *memStore) ListOrderLines(ctx context.Context, scope port.Scope, orderID int64) ([]domain.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var lines []domain.OrderLine
	for _, l := range m.lines {
		if l.OrderID == orderID {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

func (m *memStore) ListOrderDetail(ctx context.Context, scope port.Scope, orderID int64) ([]domain.OrderDetailLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var detail []domain.OrderDetailLine
	for _, l := range m.lines {
		if l.OrderID != orderID {
			continue
		}
		p := m.products[l.ProductID]
		var categoryName string
		if p.CategoryID != nil {
			categoryName = m.categories[*p.CategoryID].Name
		}
		detail = append(detail, domain.OrderDetailLine{
			LineID:       l.ID,
			ProductID:    l.ProductID,
			ProductName:  p.Name,
			CategoryName: categoryName,
			Quantity:     l.Quantity,
			Subtotal:     l.Subtotal,
		})
	}
	return detail, nil
}

func (m *memStore) CreateCategory(ctx context.Context, scope port.Scope, category *domain.Category) error {
	category.ID = m.allocID()
	c := *category
	s := asMemScope(scope)
	s.pending = append(s.pending, func() { m.categories[c.ID] = c })
	return nil
}

func (m *memStore) GetCategory(ctx context.Context, scope port.Scope, id int64) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) ListCategories(ctx context.Context, scope port.Scope) ([]domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	categories := make([]domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int { return int(a.ID - b.ID) })
	return categories, nil
}

func (m *memStore) UpdateCategory(ctx context.Context, scope port.Scope, category domain.Category) (bool, error) {
	m.mu.Lock()
	_, ok := m.categories[category.ID]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	s := asMemScope(scope)
	s.pending = append(s.pending, func() { m.categories[category.ID] = category })
	return true, nil
}

func (m *memStore) DeleteCategory(ctx context.Context, scope port.Scope, id int64) (bool, error) {
	m.mu.Lock()
	_, ok := m.categories[id]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	s := asMemScope(scope)
	s.pending = append(s.pending, func() { delete(m.categories, id) })
	return true, nil
}

func (m *memStore) CategoryNameExists(ctx context.Context, scope port.Scope, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateProduct(ctx context.Context, scope port.Scope, product *domain.Product) error {
	product.ID = m.allocID()
	p := *product
	s := asMemScope(scope)
	s.pending = append(s.pending, func() { m.products[p.ID] = p })
	return nil
}

func (m *memStore) GetProduct(ctx context.Context, scope port.Scope, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) ListProducts(ctx context.Context, scope port.Scope, categoryID *int64) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var products []domain.Product
	for _, p := range m.products {
		if categoryID != nil && (p.CategoryID == nil || *p.CategoryID != *categoryID) {
			continue
		}
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int { return int(a.ID - b.ID) })
	return products, nil
}

func (m *memStore) UpdateProduct(ctx context.Context, scope port.Scope, product domain.Product) (bool, error) {
	m.mu.Lock()
	_, ok := m.products[product.ID]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	s := asMemScope(scope)
	s.pending = append(s.pending, func() {
		current := m.products[product.ID]
		product.Quantity = current.Quantity
		m.products[product.ID] = product
	})
	return true, nil
}

func (m *memStore) DeleteProduct(ctx context.Context, scope port.Scope, id int64) (bool, error) {
	m.mu.Lock()
	_, ok := m.products[id]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	s := asMemScope(scope)
	s.pending = append(s.pending, func() { delete(m.products, id) })
	return true, nil
}
