package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const productColumns = `id, name, description, price, quantity, category_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p        domain.Product
		category sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity, &category); err != nil {
		return nil, err
	}
	p.CategoryID = idFromNull(category)
	return &p, nil
}

func (m *MySQLAdapter) GetProductForUpdate(ctx context.Context, scope port.Scope, id int64) (*domain.Product, error) {
	tx, err := txFrom(scope)
	if err != nil {
		return nil, err
	}

	p, err := scanProduct(tx.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, classify("lock product", err)
	}
	return p, nil
}

func (m *MySQLAdapter) DecrementStock(ctx context.Context, scope port.Scope, id int64, quantity int) (bool, error) {
	tx, err := txFrom(scope)
	if err != nil {
		return false, err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity - ?
		WHERE id = ? AND quantity >= ?`,
		quantity, id, quantity,
	)
	if err != nil {
		return false, classify("decrement stock", err)
	}
	return affected("decrement stock", result)
}

func (m *MySQLAdapter) IncrementStock(ctx context.Context, scope port.Scope, id int64, quantity int) (bool, error) {
	tx, err := txFrom(scope)
	if err != nil {
		return false, err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity + ?
		WHERE id = ?`,
		quantity, id,
	)
	if err != nil {
		return false, classify("increment stock", err)
	}
	return affected("increment stock", result)
}
