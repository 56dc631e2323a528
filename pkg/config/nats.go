package config

import (
	"fmt"
	"strings"
	"time"
)

type NATSConfig struct {
	Url     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// String returns a string representation of the NATS configuration.
func (c *NATSConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- NATS ---\n")
	b.WriteString(fmt.Sprintf("  url: %s\n", c.Url))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *NATSConfig) Validate() error {
	if c.Url == "" {
		return fmt.Errorf("NATS URL is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("nats dial timeout is not configured")
	}
	return nil
}

// RPCConfig configures the NATS micro service that exposes the request/reply endpoints.
type RPCConfig struct {
	Name       string        `koanf:"name"`
	Version    string        `koanf:"version"`
	Group      string        `koanf:"group"`
	QueueGroup string        `koanf:"queue"`
	Timeout    time.Duration `koanf:"timeout"`
}

// String returns a string representation of the RPC configuration.
func (c *RPCConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- RPC ---\n")
	b.WriteString(fmt.Sprintf("  name: %s\n", c.Name))
	b.WriteString(fmt.Sprintf("  version: %s\n", c.Version))
	b.WriteString(fmt.Sprintf("  group: %s\n", c.Group))
	b.WriteString(fmt.Sprintf("  queue: %s\n", c.QueueGroup))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *RPCConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("RPC service name is not configured")
	}
	if c.Version == "" {
		return fmt.Errorf("RPC service version is not configured")
	}
	if c.Group == "" {
		return fmt.Errorf("RPC endpoint group is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("RPC request timeout must be greater than zero")
	}
	return nil
}
