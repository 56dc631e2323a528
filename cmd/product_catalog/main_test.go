package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakeGrpcServer struct {
	block   chan struct{}
	stopped bool
}

func (f *fakeGrpcServer) GracefulStop() {
	<-f.block
}

func (f *fakeGrpcServer) Stop() {
	f.stopped = true
	close(f.block)
}

func Test_stopGrpc(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	testCases := []struct {
		name       string
		drained    bool
		wantErr    bool
		wantForced bool
	}{
		{name: "graceful", drained: true},
		{name: "forced after timeout", wantErr: true, wantForced: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			healthServer := health.NewServer()
			server := &fakeGrpcServer{block: make(chan struct{})}
			if tc.drained {
				server.block = closedChan()
			}
			// when
			err := stopGrpc(server, healthServer, 50*time.Millisecond, logger)
			// then
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.wantForced, server.stopped)
			resp, err := healthServer.Check(context.Background(), &healthpb.HealthCheckRequest{})
			require.NoError(t, err)
			assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
		})
	}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
