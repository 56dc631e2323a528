// Package service provides the implementation of product-related business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/events"
	"github.com/abgdnv/productcatalog/internal/store"
	"github.com/abgdnv/productcatalog/internal/store/db"
	"github.com/abgdnv/productcatalog/pkg/messaging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultPage  int32 = 1
	DefaultLimit int32 = 10
)

var tracer = otel.Tracer("github.com/abgdnv/productcatalog/internal/service")

// ProductService defines the methods for managing products.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// Create adds a new, available product.
	Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error)

	// FindAll returns one page of available products with pagination metadata.
	// Zero page or limit take the defaults.
	FindAll(ctx context.Context, page, limit int32) (*ProductPageDto, error)

	// FindByID retrieves a single available product.
	// Returns a NotFoundError if the product is missing or soft-deleted.
	FindByID(ctx context.Context, id int64) (*ProductDto, error)

	// Update replaces the supplied fields of a product, available or not.
	// A missing product is reported through UpdateResult.Message, not as an error.
	Update(ctx context.Context, id int64, product ProductUpdateDto) (*UpdateResult, error)

	// Remove soft-deletes an available product and returns it.
	// Returns a NotFoundError if the product is missing or already removed.
	Remove(ctx context.Context, id int64) (*ProductDto, error)

	// Validate checks that every id has a backing record, regardless of availability.
	// Returns an InvalidProductsError listing the missing ids otherwise.
	Validate(ctx context.Context, ids []int64) ([]ProductDto, error)
}

// Service implements ProductService and provides methods to manage products.
type Service struct {
	repository store.ProductStore
	publisher  messaging.Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new instance of ProductService with the provided repository.
// A nil publisher disables lifecycle events.
func NewService(repo store.ProductStore, publisher messaging.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return &Service{
		repository: repo,
		publisher:  publisher,
		logger:     logger.With("component", "service"),
		now:        time.Now,
	}
}

// ProductCreateDto represents the data transfer object for creating a new product.
type ProductCreateDto struct {
	Name  string  `json:"name"  validate:"required,max=100"`
	Price float64 `json:"price" validate:"min=0"`
}

// ProductUpdateDto carries the fields to replace. Nil fields are left untouched.
// ID is accepted so callers can send the whole record back, but it is never written.
type ProductUpdateDto struct {
	ID        *int64   `json:"id,omitempty"`
	Name      *string  `json:"name,omitempty"      validate:"omitempty,min=1,max=100"`
	Price     *float64 `json:"price,omitempty"     validate:"omitempty,min=0"`
	Available *bool    `json:"available,omitempty"`
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PageMetaDto describes the position of a page within all available products.
type PageMetaDto struct {
	Total    int64 `json:"total"`
	Page     int32 `json:"page"`
	LastPage int64 `json:"lastPage"`
}

// ProductPageDto is one page of available products.
type ProductPageDto struct {
	Data []ProductDto `json:"data"`
	Meta PageMetaDto  `json:"meta"`
}

// UpdateResult is the outcome of Update. Exactly one of Product and Message is set.
type UpdateResult struct {
	Product *ProductDto
	Message string
}

// Found reports whether the update target existed.
func (r *UpdateResult) Found() bool {
	return r.Product != nil
}

// Create creates a new product and returns it as a ProductDto.
func (s *Service) Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error) {
	ctx, span := tracer.Start(ctx, "ProductService.Create")
	defer span.End()

	p, err := s.repository.Insert(ctx, db.CreateParams{Name: product.Name, Price: product.Price})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	span.SetAttributes(attribute.Int64("product.id", p.ID))

	s.publish(ctx, events.ProductCreated(toSnapshot(p), s.now()))
	return toDto(p), nil
}

// FindAll retrieves a page of available products.
// An out-of-range page yields empty data with the true totals.
func (s *Service) FindAll(ctx context.Context, page, limit int32) (*ProductPageDto, error) {
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	ctx, span := tracer.Start(ctx, "ProductService.FindAll", trace.WithAttributes(
		attribute.Int("page", int(page)),
		attribute.Int("limit", int(limit)),
	))
	defer span.End()

	total, err := s.repository.CountAvailable(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	meta := PageMetaDto{
		Total:    total,
		Page:     page,
		LastPage: lastPage(total, limit),
	}
	offset := int64(page-1) * int64(limit)
	if offset >= total {
		return &ProductPageDto{Data: []ProductDto{}, Meta: meta}, nil
	}

	products, err := s.repository.FindPage(ctx, offset, int64(limit))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	return &ProductPageDto{
		Data: toDtos(products),
		Meta: meta,
	}, nil
}

// FindByID retrieves an available product by its ID.
func (s *Service) FindByID(ctx context.Context, id int64) (*ProductDto, error) {
	ctx, span := tracer.Start(ctx, "ProductService.FindByID", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	product, err := s.findAvailable(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDto(product), nil
}

// Update replaces the supplied fields of the product with the given ID.
// The product may be soft-deleted; sending available=true reactivates it.
func (s *Service) Update(ctx context.Context, id int64, product ProductUpdateDto) (*UpdateResult, error) {
	ctx, span := tracer.Start(ctx, "ProductService.Update", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	if product.ID != nil && *product.ID != id {
		s.logger.DebugContext(ctx, "Ignoring id in update payload", "ID", id, "payloadID", *product.ID)
	}

	existing, err := s.repository.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			return &UpdateResult{Message: fmt.Sprintf("Product with id %d not found, cannot update", id)}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to fetch product with ID %d: %w", id, err)
	}

	patch := db.Patch{
		Name:      product.Name,
		Price:     product.Price,
		Available: product.Available,
	}
	if patch.IsEmpty() {
		return &UpdateResult{Product: toDto(existing)}, nil
	}
	updated, err := s.repository.ReplaceFields(ctx, id, patch)
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			return &UpdateResult{Message: fmt.Sprintf("Product with id %d not found, cannot update", id)}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to update product with ID %d: %w", id, err)
	}

	s.publish(ctx, events.ProductUpdated(toSnapshot(updated), s.now()))
	return &UpdateResult{Product: toDto(updated)}, nil
}

// Remove marks an available product as unavailable and returns the resulting record.
func (s *Service) Remove(ctx context.Context, id int64) (*ProductDto, error) {
	ctx, span := tracer.Start(ctx, "ProductService.Remove", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	if _, err := s.findAvailable(ctx, id); err != nil {
		return nil, err
	}

	unavailable := false
	removed, err := s.repository.ReplaceFields(ctx, id, db.Patch{Available: &unavailable})
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			return nil, &perrors.NotFoundError{ID: id}
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to remove product with ID %d: %w", id, err)
	}

	s.publish(ctx, events.ProductRemoved(toSnapshot(removed), s.now()))
	return toDto(removed), nil
}

// Validate confirms every distinct id has a record. Duplicates are ignored.
func (s *Service) Validate(ctx context.Context, ids []int64) ([]ProductDto, error) {
	distinct := dedupe(ids)
	ctx, span := tracer.Start(ctx, "ProductService.Validate", trace.WithAttributes(
		attribute.Int("ids.requested", len(ids)),
		attribute.Int("ids.distinct", len(distinct)),
	))
	defer span.End()

	products, err := s.repository.FindByIDs(ctx, distinct)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	if len(products) != len(distinct) {
		found := make(map[int64]struct{}, len(products))
		for _, p := range products {
			found[p.ID] = struct{}{}
		}
		missing := make([]int64, 0, len(distinct)-len(products))
		for _, id := range distinct {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil, &perrors.InvalidProductsError{Missing: missing}
	}

	return toDtos(products), nil
}

// findAvailable returns the product if it exists and is available.
func (s *Service) findAvailable(ctx context.Context, id int64) (*db.Product, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			return nil, &perrors.NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to fetch product by ID %d: %w", id, err)
	}
	if !product.Available {
		return nil, &perrors.NotFoundError{ID: id}
	}
	return product, nil
}

// publish sends a lifecycle event. Failures are logged and never fail the operation.
func (s *Service) publish(ctx context.Context, event messaging.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish product event", "subject", event.Subject(), "key", event.Key(), "error", err)
	}
}

// lastPage is ceil(total / limit).
func lastPage(total int64, limit int32) int64 {
	l := int64(limit)
	return (total + l - 1) / l
}

// dedupe returns the distinct ids, sorted ascending.
func dedupe(ids []int64) []int64 {
	distinct := slices.Clone(ids)
	slices.Sort(distinct)
	return slices.Compact(distinct)
}

// toDto converts a db.Product to a ProductDto.
func toDto(product *db.Product) *ProductDto {
	return &ProductDto{
		ID:        product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Available: product.Available,
		CreatedAt: product.CreatedAt,
		UpdatedAt: product.UpdatedAt,
	}
}

func toDtos(products []db.Product) []ProductDto {
	dtos := make([]ProductDto, len(products))
	for i := range products {
		dtos[i] = *toDto(&products[i])
	}
	return dtos
}

func toSnapshot(product *db.Product) events.ProductSnapshot {
	return events.ProductSnapshot{
		ID:        product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Available: product.Available,
	}
}
