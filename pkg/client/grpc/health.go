// Package grpc provides the client used to probe the catalog's gRPC health service.
package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/abgdnv/productcatalog/pkg/client/grpc/interceptors"
	"github.com/abgdnv/productcatalog/pkg/config"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthProbe checks the serving status of a gRPC server.
type HealthProbe struct {
	conn   *grpc.ClientConn
	client healthpb.HealthClient
}

// NewHealthProbe creates a probe for target. Each attempt is bounded by timeout
// and transient failures are retried according to retry.
func NewHealthProbe(target string, timeout time.Duration, retry config.RetryConfig, opts ...grpc.DialOption) (*HealthProbe, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(
			interceptors.NewRetryInterceptor(retry),
			interceptors.UnaryClientTimeoutInterceptor(timeout),
		),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC client for %s: %w", target, err)
	}
	return &HealthProbe{conn: conn, client: healthpb.NewHealthClient(conn)}, nil
}

// Check returns nil when service reports SERVING. An empty service checks the server as a whole.
func (p *HealthProbe) Check(ctx context.Context, service string) error {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("service %q is %s", service, resp.GetStatus())
	}
	return nil
}

func (p *HealthProbe) Close() error {
	return p.conn.Close()
}
