package store

import (
	"context"
	"errors"
	"fmt"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/store/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ ProductStore = (*PgStore)(nil)

// PgStore implements ProductStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
	q  *db.Queries
}

// NewPgStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{
		db: dbp,
		q:  db.New(dbp),
	}
}

// Insert adds a new product to the system.
func (p *PgStore) Insert(ctx context.Context, params db.CreateParams) (*db.Product, error) {
	product, err := p.q.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &product, nil
}

func (p *PgStore) CountAvailable(ctx context.Context) (int64, error) {
	count, err := p.q.CountAvailable(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count available products: %w", err)
	}
	return count, nil
}

// FindPage retrieves available products with pagination support.
// It returns a slice of products, which may be empty if no products exist.
func (p *PgStore) FindPage(ctx context.Context, offset, limit int64) ([]db.Product, error) {
	products, err := p.q.FindPage(ctx, db.FindPageParams{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("failed to find products page: %w", err)
	}
	return products, nil
}

// FindByID retrieves a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) FindByID(ctx context.Context, id int64) (*db.Product, error) {
	product, err := p.q.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return &product, nil
}

// FindByIDs retrieves products by IDs
// It returns a slice of products, which may be empty if no products exist.
func (p *PgStore) FindByIDs(ctx context.Context, ids []int64) ([]db.Product, error) {
	if len(ids) == 0 {
		return []db.Product{}, nil
	}
	products, err := p.q.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to find products by IDs: %w", err)
	}
	return products, nil
}

// ReplaceFields overwrites the patched columns.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) ReplaceFields(ctx context.Context, id int64, patch db.Patch) (*db.Product, error) {
	product, err := p.q.ReplaceFields(ctx, id, patch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &product, nil
}
