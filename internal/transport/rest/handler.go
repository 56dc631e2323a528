// Package rest provides HTTP handlers for product-related operations.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/service"
	"github.com/abgdnv/productcatalog/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  service.ProductService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new instance of Handler with the provided service.
func NewHandler(service service.ProductService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the product service.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Post("/", h.Create)
		r.Post("/validate", h.Validate)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.FindByID)
			r.Patch("/", h.Update)
			r.Delete("/", h.Remove)
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// FindByID retrieves an available product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}

	h.logger.DebugContext(r.Context(), "Received request to find product by ID", "ID", id)
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err, fmt.Sprintf("Failed to retrieve product with ID %d", id))
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, found)
}

// FindAll retrieves one page of available products.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	page, ok := web.ParseOptionalGt(r, w, h.logger, "page", 0, service.DefaultPage)
	if !ok {
		return
	}
	limit, ok := web.ParseOptionalGt(r, w, h.logger, "limit", 0, service.DefaultLimit)
	if !ok {
		return
	}
	h.logger.DebugContext(r.Context(), "Received request to find all products", "page", page, "limit", limit)
	list, err := h.service.FindAll(r.Context(), page, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error retrieving product list", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	h.logger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list.Data), "total", list.Meta.Total)
	web.RespondJSON(w, h.logger, http.StatusOK, list)
}

// Create handles the creation of a new product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var productCreateDto service.ProductCreateDto
	if !h.decodeAndValidate(w, r, &productCreateDto) {
		return
	}

	newProduct, err := h.service.Create(r.Context(), productCreateDto)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error creating product", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to create product")
		return
	}
	h.logger.InfoContext(r.Context(), "Product created successfully", "ID", newProduct.ID, "Name", newProduct.Name)
	web.RespondJSON(w, h.logger, http.StatusCreated, newProduct)
}

// Update replaces the supplied fields of a product. An unknown id yields 200 with a message.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	var productUpdateDto service.ProductUpdateDto
	if !h.decodeAndValidate(w, r, &productUpdateDto) {
		return
	}

	result, err := h.service.Update(r.Context(), id, productUpdateDto)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error updating product", "ID", id, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, fmt.Sprintf("Failed to update product with ID %d", id))
		return
	}
	if !result.Found() {
		h.logger.WarnContext(r.Context(), "Product not found for update", "ID", id)
		web.RespondJSON(w, h.logger, http.StatusOK, map[string]string{"message": result.Message})
		return
	}
	h.logger.InfoContext(r.Context(), "Product updated successfully", "ID", result.Product.ID, "Name", result.Product.Name)
	web.RespondJSON(w, h.logger, http.StatusOK, result.Product)
}

// Remove soft-deletes a product and returns the resulting record.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	h.logger.DebugContext(r.Context(), "Received request to remove product", "ID", id)
	removed, err := h.service.Remove(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err, fmt.Sprintf("Failed to remove product with ID %d", id))
		return
	}
	h.logger.InfoContext(r.Context(), "Product removed successfully", "ID", id)
	web.RespondJSON(w, h.logger, http.StatusOK, removed)
}

type validateRequest struct {
	IDs []int64 `json:"ids" validate:"dive,gt=0"`
}

// Validate checks that every requested id has a product record.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	products, err := h.service.Validate(r.Context(), req.IDs)
	if err != nil {
		var invalid *perrors.InvalidProductsError
		if errors.As(err, &invalid) {
			h.logger.WarnContext(r.Context(), "Some products are not valid", "missing", invalid.Missing)
			web.RespondJSON(w, h.logger, http.StatusBadRequest, map[string]any{
				"error":   "Some products were not found",
				"missing": invalid.Missing,
			})
			return
		}
		h.logger.ErrorContext(r.Context(), "Error validating products", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to validate products")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, products)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodeAndValidate reads the JSON body into dst and runs struct validation.
// On failure it writes a 400 response and returns false.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		if fields, ok := web.FieldErrors(err); ok {
			h.logger.WarnContext(r.Context(), "Validation errors occurred", "errors", fields)
			web.RespondJSON(w, h.logger, http.StatusBadRequest, map[string]any{"validation_errors": fields})
			return false
		}
		h.logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	var notFound *perrors.NotFoundError
	if errors.As(err, &notFound) {
		h.logger.WarnContext(r.Context(), "Product not found", "ID", notFound.ID)
		web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", notFound.ID))
		return
	}
	h.logger.ErrorContext(r.Context(), internalMsg, "error", err)
	web.RespondError(w, h.logger, http.StatusInternalServerError, internalMsg)
}
