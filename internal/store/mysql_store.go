package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/store/db"
)

var _ ProductStore = (*MySQLStore)(nil)

const mysqlProductColumns = `id, name, price, available, created_at, updated_at`

// MySQLStore implements ProductStore on MySQL through database/sql.
// MySQL has no RETURNING clause, so writes run in a transaction that re-reads the row.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(sqlDB *sql.DB) *MySQLStore {
	return &MySQLStore{db: sqlDB}
}

func (m *MySQLStore) Insert(ctx context.Context, params db.CreateParams) (*db.Product, error) {
	var product *db.Product
	err := m.withTransaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO products (name, price) VALUES (?, ?)`, params.Name, params.Price)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		product, err = findByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

func (m *MySQLStore) CountAvailable(ctx context.Context) (int64, error) {
	var count int64
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE available = TRUE`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count available products: %w", err)
	}
	return count, nil
}

func (m *MySQLStore) FindPage(ctx context.Context, offset, limit int64) ([]db.Product, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+mysqlProductColumns+` FROM products WHERE available = TRUE ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to find products page: %w", err)
	}
	return collectRows(rows)
}

func (m *MySQLStore) FindByID(ctx context.Context, id int64) (*db.Product, error) {
	product, err := findByID(ctx, m.db, id)
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

func (m *MySQLStore) FindByIDs(ctx context.Context, ids []int64) ([]db.Product, error) {
	if len(ids) == 0 {
		return []db.Product{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+mysqlProductColumns+` FROM products WHERE id IN (`+placeholders+`) ORDER BY id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find products by IDs: %w", err)
	}
	return collectRows(rows)
}

func (m *MySQLStore) ReplaceFields(ctx context.Context, id int64, patch db.Patch) (*db.Product, error) {
	var product *db.Product
	err := m.withTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE products
			SET name       = COALESCE(?, name),
			    price      = COALESCE(?, price),
			    available  = COALESCE(?, available),
			    updated_at = CURRENT_TIMESTAMP(6)
			WHERE id = ?`,
			patch.Name, patch.Price, patch.Available, id)
		if err != nil {
			return err
		}
		// RowsAffected is 0 for a no-op update, so existence is checked by reading back.
		product, err = findByID(ctx, tx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// withTransaction runs fn in a transaction, committing on success and rolling back otherwise.
func (m *MySQLStore) withTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findByID(ctx context.Context, q queryRower, id int64) (*db.Product, error) {
	row := q.QueryRowContext(ctx, `SELECT `+mysqlProductColumns+` FROM products WHERE id = ?`, id)
	var p db.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Available, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func collectRows(rows *sql.Rows) ([]db.Product, error) {
	defer rows.Close()
	products := make([]db.Product, 0)
	for rows.Next() {
		var p db.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Available, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}
