package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/store/db"
)

var _ ProductStore = (*InMemoryStore)(nil)

// InMemoryStore implements ProductStore using an in-memory map.
// Ids are assigned sequentially starting at 1.
type InMemoryStore struct {
	mu       sync.RWMutex
	products map[int64]db.Product
	nextID   int64
	now      func() time.Time
}

// NewInMemoryStore creates a new instance of ProductStore
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		products: make(map[int64]db.Product),
		nextID:   1,
		now:      time.Now,
	}
}

func (s *InMemoryStore) Insert(_ context.Context, params db.CreateParams) (*db.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	product := db.Product{
		ID:        s.nextID,
		Name:      params.Name,
		Price:     params.Price,
		Available: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextID++
	s.products[product.ID] = product

	return &product, nil
}

func (s *InMemoryStore) CountAvailable(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, p := range s.products {
		if p.Available {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) FindPage(_ context.Context, offset, limit int64) ([]db.Product, error) {
	s.mu.RLock()
	available := make([]db.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.Available {
			available = append(available, p)
		}
	}
	s.mu.RUnlock()

	sortByID(available)
	size := int64(len(available))
	if offset < 0 || limit <= 0 || offset >= size {
		return []db.Product{}, nil
	}
	end := offset + min(limit, size-offset)
	return available[offset:end], nil
}

// FindByID retrieves a product by its ID.
func (s *InMemoryStore) FindByID(_ context.Context, id int64) (*db.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, errors.ErrProductNotFound
	}
	return &p, nil
}

func (s *InMemoryStore) FindByIDs(_ context.Context, ids []int64) ([]db.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make([]db.Product, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := s.products[id]; ok {
			found = append(found, p)
		}
	}
	sortByID(found)
	return found, nil
}

func (s *InMemoryStore) ReplaceFields(_ context.Context, id int64, patch db.Patch) (*db.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, errors.ErrProductNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Available != nil {
		p.Available = *patch.Available
	}
	p.UpdatedAt = s.now().UTC()
	s.products[id] = p

	return &p, nil
}

func sortByID(products []db.Product) {
	slices.SortFunc(products, func(a, b db.Product) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
