// Package main probes the catalog's gRPC health endpoint and exits non-zero unless it is serving.
// It is meant for container health checks.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/abgdnv/productcatalog/internal/app"
	grpcclient "github.com/abgdnv/productcatalog/pkg/client/grpc"
	"github.com/abgdnv/productcatalog/pkg/config"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "gRPC address of the catalog")
	service := flag.String("service", app.ServiceName, "service name to check, empty for the whole server")
	timeout := flag.Duration("timeout", 2*time.Second, "timeout of a single attempt")
	attempts := flag.Uint("attempts", 3, "maximum number of attempts")
	flag.Parse()

	retry := config.RetryConfig{MaxAttempts: *attempts, InitialBackoff: 200 * time.Millisecond}
	if err := retry.Validate(); err != nil {
		log.Fatalf("invalid retry settings: %v", err)
	}
	probe, err := grpcclient.NewHealthProbe(*addr, *timeout, retry)
	if err != nil {
		log.Fatalf("failed to create health probe: %v", err)
	}
	defer func() { _ = probe.Close() }()

	if err := probe.Check(context.Background(), *service); err != nil {
		log.Printf("unhealthy: %v", err)
		_ = probe.Close()
		os.Exit(1)
	}
	log.Printf("%s is serving", *addr)
}
