package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

// Scope is an open transactional unit of work. Rollback after a successful
// Commit is a no-op, so callers may always defer it.
type Scope interface {
	Commit() error
	Rollback() error
}

type ScopeOptions struct {
	ReadOnly bool
}

// UnitOfWork opens scopes. Accessors never begin or end a scope themselves.
type UnitOfWork interface {
	Begin(ctx context.Context, opts ScopeOptions) (Scope, error)
}

type InventoryAccessor interface {
	// GetProductForUpdate reads a product and locks its row until the scope ends.
	// Returns domain.ErrNotFound if the product does not exist.
	GetProductForUpdate(ctx context.Context, scope Scope, id int64) (*domain.Product, error)

	// DecrementStock subtracts quantity only if the resulting stock stays
	// non-negative. Reports false when no row satisfied the condition.
	DecrementStock(ctx context.Context, scope Scope, id int64, quantity int) (bool, error)
}

type OrderAccessor interface {
	// InsertOrder persists the header and sets order.ID.
	InsertOrder(ctx context.Context, scope Scope, order *domain.Order) error
	UpdateOrderTotal(ctx context.Context, scope Scope, id int64, total decimal.Decimal) (bool, error)
	GetOrder(ctx context.Context, scope Scope, id int64) (*domain.Order, error)
	ListOrders(ctx context.Context, scope Scope) ([]domain.Order, error)
}

type OrderLineAccessor interface {
	// InsertOrderLine persists the line and sets line.ID.
	InsertOrderLine(ctx context.Context, scope Scope, line *domain.OrderLine) error
	ListOrderLines(ctx context.Context, scope Scope, orderID int64) ([]domain.OrderLine, error)
	ListOrderDetail(ctx context.Context, scope Scope, orderID int64) ([]domain.OrderDetailLine, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, scope Scope, category *domain.Category) error
	GetCategory(ctx context.Context, scope Scope, id int64) (*domain.Category, error)
	ListCategories(ctx context.Context, scope Scope) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, scope Scope, category domain.Category) (bool, error)
	DeleteCategory(ctx context.Context, scope Scope, id int64) (bool, error)
	CategoryNameExists(ctx context.Context, scope Scope, name string) (bool, error)
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, scope Scope, product *domain.Product) error
	GetProduct(ctx context.Context, scope Scope, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, scope Scope, categoryID *int64) ([]domain.Product, error)

	// UpdateProduct writes name, description, price and category. Quantity is
	// left untouched.
	UpdateProduct(ctx context.Context, scope Scope, product domain.Product) (bool, error)
	DeleteProduct(ctx context.Context, scope Scope, id int64) (bool, error)
	IncrementStock(ctx context.Context, scope Scope, id int64, quantity int) (bool, error)
}
