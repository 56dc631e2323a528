// Package app contains the application setup for the product catalog service.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/abgdnv/productcatalog/internal/config"
	"github.com/abgdnv/productcatalog/internal/service"
	"github.com/abgdnv/productcatalog/internal/store"
	natsrpc "github.com/abgdnv/productcatalog/internal/transport/nats"
	"github.com/abgdnv/productcatalog/internal/transport/rest"
	"github.com/abgdnv/productcatalog/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/productcatalog/pkg/config"
	"github.com/abgdnv/productcatalog/pkg/kafka"
	"github.com/abgdnv/productcatalog/pkg/messaging"
	pnats "github.com/abgdnv/productcatalog/pkg/nats"
	"github.com/abgdnv/productcatalog/pkg/server"
	"github.com/go-chi/chi/v5"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// ServiceName is the name the service reports to tracing, metrics and health checks.
const ServiceName = "product-catalog"

type Dependencies struct {
	ProductService service.ProductService
	Logger         *slog.Logger
	// MetricsHandler serves Prometheus metrics. Nil disables the endpoint.
	MetricsHandler http.Handler
}

func SetupDependencies(repo store.ProductStore, publisher messaging.Publisher, logger *slog.Logger) *Dependencies {
	return &Dependencies{
		ProductService: service.NewService(repo, publisher, logger),
		Logger:         logger,
	}
}

// closerFunc adapts a plain close function to io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// SetupStore opens the configured database and returns the store backed by it,
// wrapped in a circuit breaker when enabled. The returned closer releases the connection.
func SetupStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.ProductStore, io.Closer, error) {
	var (
		repo   store.ProductStore
		closer io.Closer = closerFunc(func() error { return nil })
	)
	switch cfg.Database.Driver {
	case pkgconfig.DriverPostgres:
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, nil, err
		}
		repo = store.NewPgStore(dbPool)
		closer = closerFunc(func() error { dbPool.Close(); return nil })
	case pkgconfig.DriverMySQL:
		sqlDB, err := bootstrap.NewMySQL(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, nil, err
		}
		repo = store.NewMySQLStore(sqlDB)
		closer = sqlDB
	case pkgconfig.DriverMemory:
		logger.Warn("Using in-memory store, data will not survive a restart")
		repo = store.NewInMemoryStore()
	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %q", cfg.Database.Driver)
	}
	logger.Info("Product store ready", "driver", cfg.Database.Driver)

	if cfg.CircuitBreaker.Enabled {
		repo = store.NewBreakerStore(repo, cfg.CircuitBreaker, logger)
	}
	return repo, closer, nil
}

// SetupPublisher creates the event publisher for the configured driver.
// The returned closer flushes and releases the publisher.
func SetupPublisher(ctx context.Context, cfg pkgconfig.EventsConfig, nc *natsgo.Conn) (messaging.Publisher, io.Closer, error) {
	switch cfg.Driver {
	case pkgconfig.EventsNone, "":
		return messaging.NoopPublisher{}, closerFunc(func() error { return nil }), nil
	case pkgconfig.EventsNats:
		js, err := pnats.NewJetStreamContext(nc)
		if err != nil {
			return nil, nil, err
		}
		if err := pnats.EnsureStream(ctx, js, cfg.Stream, messaging.ProductEventsWildcard); err != nil {
			return nil, nil, err
		}
		return pnats.NewNatsPublisher(js), closerFunc(func() error { return nil }), nil
	case pkgconfig.EventsKafka:
		publisher := kafka.NewPublisher(cfg.Kafka.Brokers)
		return publisher, publisher, nil
	default:
		return nil, nil, fmt.Errorf("unsupported events driver: %q", cfg.Driver)
	}
}

// SetupHttpHandler initializes the routes for the product catalog application.
func SetupHttpHandler(deps *Dependencies, metricsPath string) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps, metricsPath)
	return mux
}

// wireRoutes sets up the HTTP routes for the product catalog application.
func wireRoutes(mux *chi.Mux, deps *Dependencies, metricsPath string) {
	productHandler := rest.NewHandler(deps.ProductService, deps.Logger)
	productHandler.RegisterRoutes(mux)
	if deps.MetricsHandler != nil {
		mux.Method(http.MethodGet, metricsPath, deps.MetricsHandler)
	}
}

// SetupHttpServer creates and configures an HTTP server for the product catalog application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps, cfg.Telemetry.Metrics.Path)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, ServiceName, mux)
}

// SetupGrpcServer initializes the gRPC server exposing health checks for the service.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) (*grpc.Server, *health.Server) {
	return server.NewGRPCServer(deps.Logger, reflectionEnabled, []string{ServiceName})
}

// SetupRPC registers the NATS micro service that serves the product endpoints.
func SetupRPC(deps *Dependencies, nc *natsgo.Conn, cfg pkgconfig.RPCConfig) (micro.Service, error) {
	rpcServer, err := natsrpc.NewServer(deps.ProductService, cfg.Timeout, deps.Logger)
	if err != nil {
		return nil, err
	}
	return rpcServer.Register(nc, cfg)
}
