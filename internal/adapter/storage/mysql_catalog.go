package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

func (m *MySQLAdapter) CreateCategory(ctx context.Context, scope port.Scope, category *domain.Category) error {
	tx, err := txFrom(scope)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO categories (name, description)
		VALUES (?, ?)`,
		category.Name, category.Description,
	)
	if err != nil {
		return classify("insert category", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return classify("insert category", err)
	}
	category.ID = id
	return nil
}

func (m *MySQLAdapter) GetCategory(ctx context.Context, scope port.Scope, id int64) (*domain.Category, error) {
	tx, err := txFrom(scope)
	if err != nil {
		return nil, err
	}

	var c domain.Category
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, description
		FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, classify("get category", err)
	}
	return &c, nil
}

func (m *MySQLAdapter) ListCategories(ctx context.Context, scope port.Scope) ([]domain.Category, error) {
	tx, err := txFrom(scope)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, name, description FROM categories ORDER BY id`)
	if err != nil {
		return nil, classify("list categories", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, classify("list categories", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list categories", err)
	}
	return categories, nil
}

func (m *MySQLAdapter) UpdateCategory(ctx context.Context, scope port.Scope, category domain.Category) (bool, error) {
	tx, err := txFrom(scope)
	if err != nil {
		return false, err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE categories
		SET name = ?, description = ?
		WHERE id = ?`,
		category.Name, category.Description, category.ID,
	)
	if err != nil {
		return false, classify("update category", err)
	}
	return affected("update category", result)
}

func (m *MySQLAdapter) DeleteCategory(ctx context.Context, scope port.Scope, id int64) (bool, error) {
	tx, err := txFrom(scope)
	if err != nil {
		return false, err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return false, classify("delete category", err)
	}
	return affected("delete category", result)
}

func (m *MySQLAdapter) CategoryNameExists(ctx context.Context, scope port.Scope, name string) (bool, error) {
	tx, err := txFrom(scope)
	if err != nil {
		return false, err
	}

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM categories WHERE name = ?)`, name,
	).Scan(&exists)
	if err != nil {
		return false, classify("category name exists", err)
	}
	return exists, nil
}

func (m *MySQLAdapter) CreateProduct(ctx context.Context, scope port.Scope, product *domain.Product) error {
	tx, err := txFrom(scope)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO products (name, description, price, quantity, category_id)
		VALUES (?, ?, ?, ?, ?)`,
		product.Name, product.Description, product.Price, product.Quantity, nullableID(product.CategoryID),
	)
	if err != nil {
		return classify("insert product", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return classify("insert product", err)
	}
	product.ID = id
	return nil
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, scope port.Scope, id int64) (*domain.Product, error) {
	tx, err := txFrom(scope)
	if err != nil {
		return nil, err
	}

	p, err := scanProduct(tx.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, classify("get product", err)
	}
	return p, nil
}

func (m *MySQLAdapter) ListProducts(ctx context.Context, scope port.Scope, categoryID *int64) ([]domain.Product, error) {
	tx, err := txFrom(scope)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if categoryID != nil {
		query += ` WHERE category_id = ?`
		args = append(args, *categoryID)
	}
	query += ` ORDER BY id`

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list products", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, classify("list products", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list products", err)
	}
	return products, nil
}

func (m *MySQLAdapter) UpdateProduct(ctx context.Context, scope port.Scope, product domain.Product) (bool, error) {
	tx, err := txFrom(scope)
	if err != nil {
		return false, err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE products
		SET name = ?, description = ?, price = ?, category_id = ?
		WHERE id = ?`,
		product.Name, product.Description, product.Price, nullableID(product.CategoryID), product.ID,
	)
	if err != nil {
		return false, classify("update product", err)
	}
	return affected("update product", result)
}

func (m *MySQLAdapter) DeleteProduct(ctx context.Context, scope port.Scope, id int64) (bool, error) {
	tx, err := txFrom(scope)
	if err != nil {
		return false, err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return false, classify("delete product", err)
	}
	return affected("delete product", result)
}
