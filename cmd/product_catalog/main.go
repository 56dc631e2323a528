// Package main runs the product catalog service: NATS RPC endpoints, REST API, gRPC health and pprof.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/abgdnv/productcatalog/internal/app"
	"github.com/abgdnv/productcatalog/internal/config"
	"github.com/abgdnv/productcatalog/pkg/bootstrap"
	"github.com/abgdnv/productcatalog/pkg/config/configloader"
	pnats "github.com/abgdnv/productcatalog/pkg/nats"
	"github.com/abgdnv/productcatalog/pkg/telemetry"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health"
)

const serviceName = "catalog"

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, acquires the store and broker connections and serves
// the RPC, HTTP, gRPC and pprof endpoints until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName, config.Defaults())
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if cfg.Telemetry.Traces.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, app.ServiceName, cfg.Telemetry.Traces)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error("Failed to shut down tracer provider", "error", err)
			}
		}()
	}

	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		mp, handler, err := telemetry.NewMeterProvider(app.ServiceName)
		if err != nil {
			return fmt.Errorf("failed to create meter provider: %w", err)
		}
		metricsHandler = handler
		defer func() {
			if err := mp.Shutdown(context.Background()); err != nil {
				logger.Error("Failed to shut down meter provider", "error", err)
			}
		}()
	}

	repo, storeCloser, err := app.SetupStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to set up product store: %w", err)
	}
	defer func() {
		if err := storeCloser.Close(); err != nil {
			logger.Error("Failed to close product store", "error", err)
		}
	}()

	nc, err := pnats.NewClient(cfg.Nats.Url, app.ServiceName, cfg.Nats.Timeout, logger)
	if err != nil {
		return err
	}
	defer nc.Close()
	logger.Info("Successfully connected to NATS", "url", nc.ConnectedUrl())

	publisher, publisherCloser, err := app.SetupPublisher(ctx, cfg.Events, nc)
	if err != nil {
		return fmt.Errorf("failed to set up event publisher: %w", err)
	}
	defer func() {
		if err := publisherCloser.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()

	deps := app.SetupDependencies(repo, publisher, logger)
	deps.MetricsHandler = metricsHandler

	rpcService, err := app.SetupRPC(deps, nc, cfg.RPC)
	if err != nil {
		return fmt.Errorf("failed to start RPC service: %w", err)
	}

	httpServer := app.SetupHttpServer(deps, cfg)
	grpcServer, healthServer := app.SetupGrpcServer(deps, cfg.GRPC.ReflectionEnabled)
	pprofServer := &http.Server{
		Addr:              cfg.PProf.Addr,
		ReadHeaderTimeout: cfg.HTTPServer.Timeout.ReadHeader,
	}

	g, gCtx := errgroup.WithContext(ctx)
	// closed once the RPC service has stopped; the listeners shut down after it
	rpcDrained := make(chan struct{})

	// Stop consuming RPC requests on context cancellation, draining in-flight ones
	g.Go(func() error {
		defer close(rpcDrained)
		<-gCtx.Done()
		logger.Info("Stopping RPC service...")
		if err := rpcService.Stop(); err != nil {
			return fmt.Errorf("rpc service stop failed: %w", err)
		}
		if err := nc.Drain(); err != nil {
			logger.Warn("NATS drain failed", "error", err)
		}
		return nil
	})

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server once the RPC service has drained
	g.Go(func() error {
		<-rpcDrained
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Start the gRPC server
	g.Go(func() error {
		grpcAddr := ":" + cfg.GRPC.Port
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port: %w", err)
		}
		logger.Info("gRPC server listening", slog.String("addr", grpcAddr))
		return grpcServer.Serve(lis)
	})
	// gracefully shutdown gRPC server once the RPC service has drained
	g.Go(func() error {
		<-rpcDrained
		logger.Info("Shutting down gRPC server...")
		return stopGrpc(grpcServer, healthServer, cfg.Shutdown.Timeout, logger)
	})

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server once the RPC service has drained
		g.Go(func() error {
			<-rpcDrained
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// grpcStopper is the part of *grpc.Server used during shutdown.
type grpcStopper interface {
	GracefulStop()
	Stop()
}

// stopGrpc reports NOT_SERVING to health checks, then stops the server,
// forcing it once timeout elapses.
func stopGrpc(grpcServer grpcStopper, healthServer *health.Server, timeout time.Duration, logger *slog.Logger) error {
	healthServer.Shutdown()
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
		logger.Info("gRPC server stopped gracefully.")
		return nil
	case <-time.After(timeout):
		logger.Warn("gRPC server graceful stop timed out. Forcing stop.")
		grpcServer.Stop()
		return fmt.Errorf("grpc server graceful stop timed out")
	}
}
