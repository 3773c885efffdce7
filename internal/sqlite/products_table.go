package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

const (
	insertProduct      = "INSERT INTO products (name, quantity) VALUES (?, ?)"
	selectProductsName = "SELECT id, name, quantity FROM products WHERE name = ? ORDER BY id"
	selectProductsAll  = "SELECT id, name, quantity FROM products ORDER BY id"
	deleteProductsName = "DELETE FROM products WHERE name = ?"
)

// Insert adds a product row and returns the id SQLite assigned to it.
func (b *Backend) Insert(ctx context.Context, name string, quantity int64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return 0, ErrDetached
	}

	res, err := b.db.ExecContext(ctx, insertProduct, name, quantity)
	if err != nil {
		return 0, fmt.Errorf("inserting product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted id: %w", err)
	}
	return id, nil
}

// FindByName returns products whose name matches exactly. The default BINARY
// collation makes the comparison case-sensitive.
func (b *Backend) FindByName(ctx context.Context, name string) ([]types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, ErrDetached
	}

	rows, err := b.db.QueryContext(ctx, selectProductsName, name)
	if err != nil {
		return nil, fmt.Errorf("querying products by name: %w", err)
	}
	return scanProducts(rows)
}

// DeleteByName removes every product with the given name.
func (b *Backend) DeleteByName(ctx context.Context, name string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return 0, ErrDetached
	}

	res, err := b.db.ExecContext(ctx, deleteProductsName, name)
	if err != nil {
		return 0, fmt.Errorf("deleting products: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading deleted row count: %w", err)
	}
	return n, nil
}

// ListAll returns every product in id order.
func (b *Backend) ListAll(ctx context.Context) ([]types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, ErrDetached
	}

	rows, err := b.db.QueryContext(ctx, selectProductsAll)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	return scanProducts(rows)
}

// scanProducts drains rows into records and closes rows.
func scanProducts(rows *sql.Rows) ([]types.Record, error) {
	defer rows.Close()

	records := []types.Record{}
	for rows.Next() {
		var r types.Record
		if err := rows.Scan(&r.ID, &r.Name, &r.Quantity); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}
	return records, nil
}
