package storage

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id          BIGINT       NOT NULL AUTO_INCREMENT,
		name        VARCHAR(255) NOT NULL,
		description TEXT         NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_categories_name (name)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS products (
		id          BIGINT         NOT NULL AUTO_INCREMENT,
		name        VARCHAR(255)   NOT NULL,
		description TEXT           NOT NULL,
		price       DECIMAL(19, 4) NOT NULL,
		quantity    INT            NOT NULL,
		category_id BIGINT         NULL,
		PRIMARY KEY (id),
		KEY idx_products_category (category_id),
		CONSTRAINT chk_products_quantity CHECK (quantity >= 0),
		CONSTRAINT chk_products_price CHECK (price >= 0),
		CONSTRAINT fk_products_category FOREIGN KEY (category_id)
			REFERENCES categories (id) ON DELETE SET NULL
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS orders (
		id        BIGINT         NOT NULL AUTO_INCREMENT,
		placed_at DATETIME(6)    NOT NULL,
		total     DECIMAL(19, 4) NOT NULL DEFAULT 0,
		PRIMARY KEY (id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS order_lines (
		id         BIGINT         NOT NULL AUTO_INCREMENT,
		order_id   BIGINT         NOT NULL,
		product_id BIGINT         NOT NULL,
		quantity   INT            NOT NULL,
		subtotal   DECIMAL(19, 4) NOT NULL,
		PRIMARY KEY (id),
		KEY idx_order_lines_order (order_id),
		CONSTRAINT chk_order_lines_quantity CHECK (quantity > 0),
		CONSTRAINT fk_order_lines_order FOREIGN KEY (order_id)
			REFERENCES orders (id) ON DELETE CASCADE,
		CONSTRAINT fk_order_lines_product FOREIGN KEY (product_id)
			REFERENCES products (id)
	) ENGINE=InnoDB`,
}

// Migrate creates the tables the adapter needs. It is safe to run on every
// start.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	m.logger.Info("schema migrated", "tables", len(schema))
	return nil
}

// Ping reports whether the database is reachable.
func (m *MySQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}
