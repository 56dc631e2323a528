// Package nats exposes the product service as a NATS micro service with request/reply endpoints.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/service"
	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/abgdnv/productcatalog/pkg/web"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Endpoint names. The subject of each endpoint is "<group>.<name>".
const (
	CreateProduct    = "create_product"
	GetProducts      = "get_products"
	GetProduct       = "get_product"
	UpdateProduct    = "update_product"
	DeleteProduct    = "delete_product"
	ValidateProducts = "validate_products"
)

const instrumentationName = "github.com/abgdnv/productcatalog/internal/transport/nats"

// handlerFunc handles the payload of one request and returns the value to reply with.
type handlerFunc func(ctx context.Context, data []byte) (any, error)

type Server struct {
	service  service.ProductService
	validate *validator.Validate
	logger   *slog.Logger
	timeout  time.Duration
	tracer   trace.Tracer
	requests metric.Int64Counter
}

// NewServer creates the RPC server. timeout bounds every request handled by it.
func NewServer(svc service.ProductService, timeout time.Duration, logger *slog.Logger) (*Server, error) {
	requests, err := otel.Meter(instrumentationName).Int64Counter("rpc.server.requests",
		metric.WithDescription("Number of handled RPC requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}
	return &Server{
		service:  svc,
		validate: validator.New(),
		logger:   logger.With("component", "rpc"),
		timeout:  timeout,
		tracer:   otel.Tracer(instrumentationName),
		requests: requests,
	}, nil
}

// Register adds the micro service and all product endpoints to the connection.
// The caller stops the returned service on shutdown.
func (s *Server) Register(nc *natsgo.Conn, cfg config.RPCConfig) (micro.Service, error) {
	svc, err := micro.AddService(nc, micro.Config{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Description: "Product catalog",
		QueueGroup:  cfg.QueueGroup,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add micro service: %w", err)
	}

	group := svc.AddGroup(cfg.Group)
	for name, fn := range s.endpoints() {
		if err := group.AddEndpoint(name, s.Handler(name, fn)); err != nil {
			_ = svc.Stop()
			return nil, fmt.Errorf("failed to add endpoint %s: %w", name, err)
		}
	}
	s.logger.Info("RPC endpoints registered", "service", cfg.Name, "group", cfg.Group, "queue", cfg.QueueGroup)
	return svc, nil
}

func (s *Server) endpoints() map[string]handlerFunc {
	return map[string]handlerFunc{
		CreateProduct:    s.create,
		GetProducts:      s.findAll,
		GetProduct:       s.findOne,
		UpdateProduct:    s.update,
		DeleteProduct:    s.remove,
		ValidateProducts: s.validateProducts,
	}
}

// Handler adapts fn to a micro.Handler: it bounds the request with the server timeout,
// replies with JSON on success and maps errors to service error codes.
func (s *Server) Handler(name string, fn handlerFunc) micro.Handler {
	return micro.HandlerFunc(func(req micro.Request) {
		reqID := req.Headers().Get(middleware.RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		ctx = context.WithValue(ctx, middleware.RequestIDKey, reqID)
		ctx, span := s.tracer.Start(ctx, "rpc "+name,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("messaging.destination.name", req.Subject())),
		)
		defer span.End()

		start := time.Now()
		status := http.StatusOK
		result, err := invoke(ctx, fn, req.Data())
		if err != nil {
			status = s.respondError(ctx, req, name, err)
			span.SetStatus(codes.Error, err.Error())
		} else if err := req.RespondJSON(result); err != nil {
			s.logger.ErrorContext(ctx, "Failed to send RPC reply", "endpoint", name, "error", err)
		}

		s.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("endpoint", name),
			attribute.Int("status", status),
		))
		s.logger.DebugContext(ctx, "RPC request completed",
			"endpoint", name,
			"status", status,
			"duration_ms", float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// invoke runs fn, turning a panic into an internal error.
func invoke(ctx context.Context, fn handlerFunc, data []byte) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			result, err = nil, fmt.Errorf("panic in RPC handler: %v", p)
		}
	}()
	return fn(ctx, data)
}

func (s *Server) create(ctx context.Context, data []byte) (any, error) {
	var dto service.ProductCreateDto
	if err := decode(data, &dto); err != nil {
		return nil, err
	}
	if err := s.validateStruct(dto); err != nil {
		return nil, err
	}
	created, err := s.service.Create(ctx, dto)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Product created successfully", "ID", created.ID, "Name", created.Name)
	return created, nil
}

func (s *Server) findAll(ctx context.Context, data []byte) (any, error) {
	var req pageRequest
	if err := decodeOptional(data, &req); err != nil {
		return nil, err
	}
	page, err := positiveOrDefault("page", req.Page, service.DefaultPage)
	if err != nil {
		return nil, err
	}
	limit, err := positiveOrDefault("limit", req.Limit, service.DefaultLimit)
	if err != nil {
		return nil, err
	}
	return s.service.FindAll(ctx, page, limit)
}

func (s *Server) findOne(ctx context.Context, data []byte) (any, error) {
	id, err := decodeID(data)
	if err != nil {
		return nil, err
	}
	return s.service.FindByID(ctx, id)
}

func (s *Server) update(ctx context.Context, data []byte) (any, error) {
	var req updateRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	if req.ID <= 0 {
		return nil, badRequest("id must be a positive integer")
	}
	dto := req.toDto()
	if err := s.validateStruct(dto); err != nil {
		return nil, err
	}
	result, err := s.service.Update(ctx, int64(req.ID), dto)
	if err != nil {
		return nil, err
	}
	if !result.Found() {
		s.logger.WarnContext(ctx, "Product not found for update", "ID", int64(req.ID))
		return messageReply{Message: result.Message}, nil
	}
	s.logger.InfoContext(ctx, "Product updated successfully", "ID", result.Product.ID)
	return result.Product, nil
}

func (s *Server) remove(ctx context.Context, data []byte) (any, error) {
	id, err := decodeID(data)
	if err != nil {
		return nil, err
	}
	removed, err := s.service.Remove(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Product removed successfully", "ID", removed.ID)
	return removed, nil
}

func (s *Server) validateProducts(ctx context.Context, data []byte) (any, error) {
	ids, err := decodeIDs(data)
	if err != nil {
		return nil, err
	}
	return s.service.Validate(ctx, ids)
}

func (s *Server) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	if fields, ok := web.FieldErrors(err); ok {
		return &rpcError{status: http.StatusBadRequest, message: "validation failed", validationErrors: fields}
	}
	return badRequest("invalid request body")
}

// respondError replies with the service error headers and a JSON body. It returns the status sent.
func (s *Server) respondError(ctx context.Context, req micro.Request, endpoint string, err error) int {
	body := toErrorBody(err)
	switch {
	case body.Status >= http.StatusInternalServerError:
		s.logger.ErrorContext(ctx, "RPC request failed", "endpoint", endpoint, "error", err)
	case body.Status == http.StatusNotFound:
		s.logger.WarnContext(ctx, "Product not found", "endpoint", endpoint, "error", err)
	default:
		s.logger.WarnContext(ctx, "Rejected RPC request", "endpoint", endpoint, "error", err)
	}

	payload, mErr := marshal(body)
	if mErr != nil {
		s.logger.ErrorContext(ctx, "Failed to encode RPC error", "endpoint", endpoint, "error", mErr)
	}
	if rErr := req.Error(strconv.Itoa(body.Status), body.Message, payload); rErr != nil {
		s.logger.ErrorContext(ctx, "Failed to send RPC error reply", "endpoint", endpoint, "error", rErr)
	}
	return body.Status
}

// toErrorBody maps handler and service errors to the reply body. Internal causes are not exposed.
func toErrorBody(err error) errorBody {
	var rErr *rpcError
	if errors.As(err, &rErr) {
		return errorBody{Status: rErr.status, Message: rErr.message, ValidationErrors: rErr.validationErrors}
	}
	var notFound *perrors.NotFoundError
	if errors.As(err, &notFound) {
		return errorBody{Status: http.StatusNotFound, Message: fmt.Sprintf("Product with id %d not found", notFound.ID)}
	}
	var invalid *perrors.InvalidProductsError
	if errors.As(err, &invalid) {
		return errorBody{Status: http.StatusBadRequest, Message: "Some products were not found", Missing: invalid.Missing}
	}
	if errors.Is(err, perrors.ErrProductNotFound) {
		return errorBody{Status: http.StatusNotFound, Message: "Product not found"}
	}
	return errorBody{Status: http.StatusInternalServerError, Message: "internal server error"}
}
