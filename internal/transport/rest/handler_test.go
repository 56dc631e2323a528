package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/service"
	"github.com/abgdnv/productcatalog/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProductService is a mock implementation of the ProductService interface
type mockProductService struct {
	product  *service.ProductDto
	page     *service.ProductPageDto
	products []service.ProductDto
	update   *service.UpdateResult
	error    error

	gotPage, gotLimit int32
	ids               []int64
}

func (m *mockProductService) Create(_ context.Context, _ service.ProductCreateDto) (*service.ProductDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockProductService) FindAll(_ context.Context, page, limit int32) (*service.ProductPageDto, error) {
	m.gotPage, m.gotLimit = page, limit
	if m.error != nil {
		return nil, m.error
	}
	return m.page, nil
}

func (m *mockProductService) FindByID(_ context.Context, _ int64) (*service.ProductDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockProductService) Update(_ context.Context, _ int64, _ service.ProductUpdateDto) (*service.UpdateResult, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.update, nil
}

func (m *mockProductService) Remove(_ context.Context, _ int64) (*service.ProductDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockProductService) Validate(_ context.Context, ids []int64) ([]service.ProductDto, error) {
	m.ids = ids
	if m.error != nil {
		return nil, m.error
	}
	return m.products, nil
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValidationErrorResponse struct {
	ValidationErrors map[string]string `json:"validation_errors"`
}

// toJSON is a helper function to convert a struct to JSON string
func toJSON(t *testing.T, v any) string {
	t.Helper()
	bytes, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal to JSON: %v", err)
	}
	return string(bytes)
}

func newRouter(svc service.ProductService) *chi.Mux {
	r := chi.NewRouter()
	NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(r)
	return r
}

func Test_ProductAPI_FindByID(t *testing.T) {
	product := &service.ProductDto{ID: 1, Name: "Lamp", Price: 20, Available: true}
	testCases := []struct {
		name         string
		mockService  *mockProductService
		productID    string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - product found",
			mockService:  &mockProductService{product: product},
			productID:    "1",
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, product),
		},
		{
			name:         "Error - product not found",
			mockService:  &mockProductService{error: &perrors.NotFoundError{ID: 1}},
			productID:    "1",
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Product with ID 1 not found"}),
		},
		{
			name:         "Error - invalid ID",
			mockService:  &mockProductService{},
			productID:    "abc",
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid ID: abc"}),
		},
		{
			name:         "Error - internal error",
			mockService:  &mockProductService{error: errors.New("db down")},
			productID:    "1",
			expectedCode: http.StatusInternalServerError,
			expectedBody: toJSON(t, ErrorResponse{Error: "Failed to retrieve product with ID 1"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			router := newRouter(tc.mockService)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+tc.productID, nil)
			rr := httptest.NewRecorder()
			// when
			router.ServeHTTP(rr, req)
			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_ProductAPI_FindAll(t *testing.T) {
	page := &service.ProductPageDto{
		Data: []service.ProductDto{{ID: 1, Name: "Lamp", Available: true}},
		Meta: service.PageMetaDto{Total: 1, Page: 1, LastPage: 1},
	}
	testCases := []struct {
		name          string
		mockService   *mockProductService
		query         string
		expectedCode  int
		expectedPage  int32
		expectedLimit int32
	}{
		{
			name:          "Success - defaults",
			mockService:   &mockProductService{page: page},
			expectedCode:  http.StatusOK,
			expectedPage:  1,
			expectedLimit: 10,
		},
		{
			name:          "Success - explicit page and limit",
			mockService:   &mockProductService{page: page},
			query:         "?page=2&limit=5",
			expectedCode:  http.StatusOK,
			expectedPage:  2,
			expectedLimit: 5,
		},
		{
			name:         "Error - zero limit",
			mockService:  &mockProductService{page: page},
			query:        "?limit=0",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Error - negative page",
			mockService:  &mockProductService{page: page},
			query:        "?page=-1",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:          "Error - store error",
			mockService:   &mockProductService{error: errors.New("db down")},
			expectedCode:  http.StatusInternalServerError,
			expectedPage:  1,
			expectedLimit: 10,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			router := newRouter(tc.mockService)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/products"+tc.query, nil)
			rr := httptest.NewRecorder()
			// when
			router.ServeHTTP(rr, req)
			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.Equal(t, tc.expectedPage, tc.mockService.gotPage)
			assert.Equal(t, tc.expectedLimit, tc.mockService.gotLimit)
			if tc.expectedCode == http.StatusOK {
				assert.JSONEq(t, toJSON(t, page), rr.Body.String())
			}
		})
	}
}

func Test_ProductAPI_Create(t *testing.T) {
	product := &service.ProductDto{ID: 1, Name: "Lamp", Price: 20, Available: true}
	testCases := []struct {
		name         string
		mockService  *mockProductService
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - product created",
			mockService:  &mockProductService{product: product},
			body:         `{"name":"Lamp","price":20}`,
			expectedCode: http.StatusCreated,
			expectedBody: toJSON(t, product),
		},
		{
			name:         "Error - validation failed",
			mockService:  &mockProductService{},
			body:         `{"price":-1}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ValidationErrorResponse{ValidationErrors: map[string]string{
				"Name":  "failed on rule: required",
				"Price": "failed on rule: min",
			}}),
		},
		{
			name:         "Error - invalid body",
			mockService:  &mockProductService{},
			body:         `not json`,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid request body"}),
		},
		{
			name:         "Error - store error",
			mockService:  &mockProductService{error: errors.New("db down")},
			body:         `{"name":"Lamp","price":20}`,
			expectedCode: http.StatusInternalServerError,
			expectedBody: toJSON(t, ErrorResponse{Error: "Failed to create product"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			router := newRouter(tc.mockService)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			// when
			router.ServeHTTP(rr, req)
			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_ProductAPI_Update(t *testing.T) {
	product := &service.ProductDto{ID: 1, Name: "New", Available: true}
	testCases := []struct {
		name         string
		mockService  *mockProductService
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - product updated",
			mockService:  &mockProductService{update: &service.UpdateResult{Product: product}},
			body:         `{"name":"New"}`,
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, product),
		},
		{
			name: "Success - unknown product yields message",
			mockService: &mockProductService{update: &service.UpdateResult{
				Message: "Product with id 1 not found, cannot update",
			}},
			body:         `{"name":"New"}`,
			expectedCode: http.StatusOK,
			expectedBody: `{"message":"Product with id 1 not found, cannot update"}`,
		},
		{
			name:         "Error - negative price",
			mockService:  &mockProductService{},
			body:         `{"price":-3}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ValidationErrorResponse{ValidationErrors: map[string]string{
				"Price": "failed on rule: min",
			}}),
		},
		{
			name:         "Error - internal error",
			mockService:  &mockProductService{error: errors.New("db down")},
			body:         `{"name":"New"}`,
			expectedCode: http.StatusInternalServerError,
			expectedBody: toJSON(t, ErrorResponse{Error: "Failed to update product with ID 1"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			router := newRouter(tc.mockService)
			req := httptest.NewRequest(http.MethodPatch, "/api/v1/products/1", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			// when
			router.ServeHTTP(rr, req)
			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_ProductAPI_Remove(t *testing.T) {
	removed := &service.ProductDto{ID: 1, Name: "Lamp", Available: false}
	testCases := []struct {
		name         string
		mockService  *mockProductService
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - product removed",
			mockService:  &mockProductService{product: removed},
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, removed),
		},
		{
			name:         "Error - already removed",
			mockService:  &mockProductService{error: &perrors.NotFoundError{ID: 1}},
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Product with ID 1 not found"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			router := newRouter(tc.mockService)
			req := httptest.NewRequest(http.MethodDelete, "/api/v1/products/1", nil)
			rr := httptest.NewRecorder()
			// when
			router.ServeHTTP(rr, req)
			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_ProductAPI_Validate(t *testing.T) {
	testCases := []struct {
		name         string
		mockService  *mockProductService
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - all products valid",
			mockService:  &mockProductService{products: []service.ProductDto{{ID: 5}, {ID: 7}}},
			body:         `{"ids":[5,5,7]}`,
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, []service.ProductDto{{ID: 5}, {ID: 7}}),
		},
		{
			name:         "Error - missing products",
			mockService:  &mockProductService{error: &perrors.InvalidProductsError{Missing: []int64{999}}},
			body:         `{"ids":[5,999]}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error":"Some products were not found","missing":[999]}`,
		},
		{
			name:         "Error - non-positive id",
			mockService:  &mockProductService{},
			body:         `{"ids":[0]}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ValidationErrorResponse{ValidationErrors: map[string]string{
				"IDs[0]": "failed on rule: gt",
			}}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			router := newRouter(tc.mockService)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/products/validate", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			// when
			router.ServeHTTP(rr, req)
			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_ProductAPI_EndToEnd(t *testing.T) {
	// given
	svc := service.NewService(store.NewInMemoryStore(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := newRouter(svc)
	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	rr := do(http.MethodPost, "/api/v1/products", `{"name":"Lamp","price":20}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created service.ProductDto
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	// when
	rr = do(http.MethodDelete, "/api/v1/products/1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	// then
	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/api/v1/products/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodDelete, "/api/v1/products/1", "").Code)

	rr = do(http.MethodGet, "/api/v1/products", "")
	var page service.ProductPageDto
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Empty(t, page.Data)
	assert.Equal(t, int64(0), page.Meta.Total)

	rr = do(http.MethodPatch, "/api/v1/products/1", `{"id":99,"name":"x"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var updated service.ProductDto
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "x", updated.Name)

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/healthz", "").Code)
}
