package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

type CatalogService struct {
	uow        port.UnitOfWork
	categories port.CategoryRepository
	products   port.ProductRepository
	logger     *slog.Logger
}

func NewCatalogService(uow port.UnitOfWork, categories port.CategoryRepository, products port.ProductRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		uow:        uow,
		categories: categories,
		products:   products,
		logger:     logger,
	}
}

func categoryNotFound(id int64) error {
	return fmt.Errorf("category %d: %w", id, domain.ErrNotFound)
}

func (s *CatalogService) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return nil, &domain.InvalidInputError{Field: "name", Reason: "must not be empty"}
	}

	err := inScope(ctx, s.uow, port.ScopeOptions{}, func(scope port.Scope) error {
		exists, err := s.categories.CategoryNameExists(ctx, scope, category.Name)
		if err != nil {
			return err
		}
		if exists {
			return &domain.InvalidInputError{Field: "name", Reason: "a category with this name already exists"}
		}
		return s.categories.CreateCategory(ctx, scope, &category)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("category created", "category_id", category.ID, "name", category.Name)
	return &category, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	var category *domain.Category
	err := inScope(ctx, s.uow, port.ScopeOptions{ReadOnly: true}, func(scope port.Scope) error {
		var err error
		category, err = s.categories.GetCategory(ctx, scope, id)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, categoryNotFound(id)
	}
	return category, err
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	err := inScope(ctx, s.uow, port.ScopeOptions{ReadOnly: true}, func(scope port.Scope) error {
		var err error
		categories, err = s.categories.ListCategories(ctx, scope)
		return err
	})
	return categories, err
}

func (s *CatalogService) UpdateCategory(ctx context.Context, category domain.Category) error {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return &domain.InvalidInputError{Field: "name", Reason: "must not be empty"}
	}

	return inScope(ctx, s.uow, port.ScopeOptions{}, func(scope port.Scope) error {
		ok, err := s.categories.UpdateCategory(ctx, scope, category)
		if err != nil {
			return err
		}
		if !ok {
			return categoryNotFound(category.ID)
		}
		return nil
	})
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	return inScope(ctx, s.uow, port.ScopeOptions{}, func(scope port.Scope) error {
		ok, err := s.categories.DeleteCategory(ctx, scope, id)
		if err != nil {
			return err
		}
		if !ok {
			return categoryNotFound(id)
		}
		return nil
	})
}

func validateProduct(p domain.Product, creating bool) error {
	if strings.TrimSpace(p.Name) == "" {
		return &domain.InvalidInputError{Field: "name", Reason: "must not be empty"}
	}
	if !p.Price.IsPositive() {
		return &domain.InvalidInputError{Field: "price", Reason: "must be greater than 0"}
	}
	if !p.Price.Equal(p.Price.Truncate(domain.PriceScale)) {
		return &domain.InvalidInputError{Field: "price", Reason: fmt.Sprintf("must have at most %d decimal places", domain.PriceScale)}
	}
	if p.Price.GreaterThanOrEqual(domain.MaxPrice) {
		return &domain.InvalidInputError{Field: "price", Reason: "must be less than " + domain.MaxPrice.String()}
	}
	if creating {
		if err := validateQuantity(p.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func validateQuantity(n int) error {
	if n <= 0 {
		return &domain.InvalidInputError{Field: "quantity", Reason: "must be greater than 0"}
	}
	if n > domain.MaxQuantity {
		return &domain.InvalidInputError{Field: "quantity", Reason: fmt.Sprintf("must not exceed %d", domain.MaxQuantity)}
	}
	return nil
}

func (s *CatalogService) requireCategory(ctx context.Context, scope port.Scope, id *int64) error {
	if id == nil {
		return nil
	}
	_, err := s.categories.GetCategory(ctx, scope, *id)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.InvalidInputError{Field: "category_id", Reason: fmt.Sprintf("category %d does not exist", *id)}
	}
	return err
}

func (s *CatalogService) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	if err := validateProduct(product, true); err != nil {
		return nil, err
	}

	err := inScope(ctx, s.uow, port.ScopeOptions{}, func(scope port.Scope) error {
		if err := s.requireCategory(ctx, scope, product.CategoryID); err != nil {
			return err
		}
		return s.products.CreateProduct(ctx, scope, &product)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("product created", "product_id", product.ID, "quantity", product.Quantity)
	return &product, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var product *domain.Product
	err := inScope(ctx, s.uow, port.ScopeOptions{ReadOnly: true}, func(scope port.Scope) error {
		var err error
		product, err = s.products.GetProduct(ctx, scope, id)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.ProductNotFoundError{ProductID: id}
	}
	return product, err
}

// ListProducts lists every product, or only those of categoryID when set.
func (s *CatalogService) ListProducts(ctx context.Context, categoryID *int64) ([]domain.Product, error) {
	var products []domain.Product
	err := inScope(ctx, s.uow, port.ScopeOptions{ReadOnly: true}, func(scope port.Scope) error {
		var err error
		products, err = s.products.ListProducts(ctx, scope, categoryID)
		return err
	})
	return products, err
}

// UpdateProduct changes the descriptive fields and price of a product. Stock
// is only changed by placements and Restock.
func (s *CatalogService) UpdateProduct(ctx context.Context, product domain.Product) error {
	product.Name = strings.TrimSpace(product.Name)
	if err := validateProduct(product, false); err != nil {
		return err
	}

	return inScope(ctx, s.uow, port.ScopeOptions{}, func(scope port.Scope) error {
		if err := s.requireCategory(ctx, scope, product.CategoryID); err != nil {
			return err
		}
		ok, err := s.products.UpdateProduct(ctx, scope, product)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.ProductNotFoundError{ProductID: product.ID}
		}
		return nil
	})
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	return inScope(ctx, s.uow, port.ScopeOptions{}, func(scope port.Scope) error {
		ok, err := s.products.DeleteProduct(ctx, scope, id)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.ProductNotFoundError{ProductID: id}
		}
		return nil
	})
}

// Restock adds quantity to the on-hand stock of a product and returns the
// product as committed.
func (s *CatalogService) Restock(ctx context.Context, id int64, quantity int) (*domain.Product, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	err := inScope(ctx, s.uow, port.ScopeOptions{}, func(scope port.Scope) error {
		ok, err := s.products.IncrementStock(ctx, scope, id, quantity)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.ProductNotFoundError{ProductID: id}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("product restocked", "product_id", id, "quantity", quantity)
	return s.GetProduct(ctx, id)
}
