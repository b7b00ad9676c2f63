package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

func (m *MySQLAdapter) InsertOrder(ctx context.Context, scope port.Scope, order *domain.Order) error {
	tx, err := txFrom(scope)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO orders (placed_at, total)
		VALUES (?, ?)`,
		order.PlacedAt.UTC(), order.Total,
	)
	if err != nil {
		return classify("insert order", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return classify("insert order", err)
	}
	order.ID = id
	return nil
}

func (m *MySQLAdapter) UpdateOrderTotal(ctx context.Context, scope port.Scope, id int64, total decimal.Decimal) (bool, error) {
	tx, err := txFrom(scope)
	if err != nil {
		return false, err
	}

	result, err := tx.ExecContext(ctx, `UPDATE orders SET total = ? WHERE id = ?`, total, id)
	if err != nil {
		return false, classify("update order total", err)
	}
	return affected("update order total", result)
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, scope port.Scope, id int64) (*domain.Order, error) {
	tx, err := txFrom(scope)
	if err != nil {
		return nil, err
	}

	var o domain.Order
	err = tx.QueryRowContext(ctx, `
		SELECT id, placed_at, total
		FROM orders WHERE id = ?`, id,
	).Scan(&o.ID, &o.PlacedAt, &o.Total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, classify("get order", err)
	}
	return &o, nil
}

// ListOrders returns order headers, newest first.
func (m *MySQLAdapter) ListOrders(ctx context.Context, scope port.Scope) ([]domain.Order, error) {
	tx, err := txFrom(scope)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, placed_at, total FROM orders ORDER BY id DESC`)
	if err != nil {
		return nil, classify("list orders", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.PlacedAt, &o.Total); err != nil {
			return nil, classify("list orders", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list orders", err)
	}
	return orders, nil
}

func (m *MySQLAdapter) InsertOrderLine(ctx context.Context, scope port.Scope, line *domain.OrderLine) error {
	tx, err := txFrom(scope)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO order_lines (order_id, product_id, quantity, subtotal)
		VALUES (?, ?, ?, ?)`,
		line.OrderID, line.ProductID, line.Quantity, line.Subtotal,
	)
	if err != nil {
		return classify("insert order line", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return classify("insert order line", err)
	}
	line.ID = id
	return nil
}

func (m *MySQLAdapter) ListOrderLines(ctx context.Context, scope port.Scope, orderID int64) ([]domain.OrderLine, error) {
	tx, err := txFrom(scope)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, subtotal
		FROM order_lines WHERE order_id = ?
		ORDER BY id`, orderID,
	)
	if err != nil {
		return nil, classify("list order lines", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.Subtotal); err != nil {
			return nil, classify("list order lines", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list order lines", err)
	}
	return lines, nil
}

func (m *MySQLAdapter) ListOrderDetail(ctx context.Context, scope port.Scope, orderID int64) ([]domain.OrderDetailLine, error) {
	tx, err := txFrom(scope)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT l.id, l.product_id, p.name, COALESCE(c.name, ''), l.quantity, l.subtotal
		FROM order_lines l
		JOIN products p ON p.id = l.product_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE l.order_id = ?
		ORDER BY l.id`, orderID,
	)
	if err != nil {
		return nil, classify("list order detail", err)
	}
	defer rows.Close()

	var detail []domain.OrderDetailLine
	for rows.Next() {
		var d domain.OrderDetailLine
		if err := rows.Scan(&d.LineID, &d.ProductID, &d.ProductName, &d.CategoryName, &d.Quantity, &d.Subtotal); err != nil {
			return nil, classify("list order detail", err)
		}
		detail = append(detail, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list order detail", err)
	}
	return detail, nil
}
