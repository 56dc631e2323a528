// Package store provides an interface for product storage operations.
package store

import (
	"context"

	"github.com/abgdnv/productcatalog/internal/store/db"
)

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type ProductStore interface {
	// Insert adds a new product. The store assigns the id and sets available to true.
	Insert(ctx context.Context, params db.CreateParams) (*db.Product, error)

	// CountAvailable returns the number of products with available = true.
	CountAvailable(ctx context.Context) (int64, error)

	// FindPage returns up to limit available products ordered by id, skipping offset.
	// Returns an empty slice if the page is out of range.
	FindPage(ctx context.Context, offset, limit int64) ([]db.Product, error)

	// FindByID retrieves a product regardless of availability.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id int64) (*db.Product, error)

	// FindByIDs returns the products matching ids regardless of availability, ordered by id.
	// Unknown ids are skipped.
	FindByIDs(ctx context.Context, ids []int64) ([]db.Product, error)

	// ReplaceFields overwrites the non-nil patch fields and returns the updated row.
	// Returns ErrProductNotFound if no product exists with the given ID.
	ReplaceFields(ctx context.Context, id int64, patch db.Patch) (*db.Product, error)
}
