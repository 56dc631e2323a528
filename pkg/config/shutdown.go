package config

import (
	"fmt"
	"time"
)

// ShutdownConfig bounds how long each listener may drain after SIGTERM.
// The RPC service stops consuming first and NATS is drained; the HTTP, gRPC and pprof
// servers then shut down concurrently, each within Timeout.
// The same budget applies to flushing the tracer provider.
type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

func (c *ShutdownConfig) String() string {
	return fmt.Sprintf("\n--- Shutdown ---\n  timeout: %s\n", c.Timeout)
}

func (c *ShutdownConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("shutdown.timeout must be greater than 0, got %s", c.Timeout)
	}
	return nil
}
