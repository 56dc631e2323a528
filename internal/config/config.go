// Package config holds the configuration of the product catalog service.
package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/abgdnv/productcatalog/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer     config.HTTPConfig           `koanf:"server"`
	Database       config.DatabaseConfig       `koanf:"database"`
	Log            config.LogConfig            `koanf:"log"`
	PProf          config.PProfConfig          `koanf:"pprof"`
	GRPC           config.GrpcServerConfig     `koanf:"grpc"`
	Nats           config.NATSConfig           `koanf:"nats"`
	RPC            config.RPCConfig            `koanf:"rpc"`
	Events         config.EventsConfig         `koanf:"events"`
	CircuitBreaker config.CircuitBreakerConfig `koanf:"circuitbreaker"`
	Telemetry      config.TelemetryConfig      `koanf:"telemetry"`
	Shutdown       config.ShutdownConfig       `koanf:"shutdown"`
}

// Defaults are applied before config.yaml and the environment.
func Defaults() map[string]any {
	return map[string]any{
		"server.port":               8080,
		"server.maxHeaderBytes":     1 << 20,
		"server.timeout.read":       "5s",
		"server.timeout.write":      "10s",
		"server.timeout.idle":       "60s",
		"server.timeout.readHeader": "2s",

		"database.driver":  config.DriverPostgres,
		"database.timeout": "5s",

		"log.level": "info",

		"pprof.enabled": false,
		"pprof.addr":    "localhost:6060",

		"grpc.port":       "50051",
		"grpc.reflection": false,

		"nats.url":     "nats://localhost:4222",
		"nats.timeout": "5s",

		"rpc.name":    "product-catalog",
		"rpc.version": "1.0.0",
		"rpc.group":   "products",
		"rpc.queue":   "product-catalog",
		"rpc.timeout": "5s",

		"events.driver": config.EventsNone,
		"events.stream": "PRODUCTS",

		"circuitbreaker.enabled":             true,
		"circuitbreaker.maxrequests":         1,
		"circuitbreaker.consecutivefailures": 5,
		"circuitbreaker.errorratepercent":    50,
		"circuitbreaker.opentimeout":         "10s",

		"telemetry.traces.enabled":           false,
		"telemetry.traces.otlphttp.endpoint": "localhost:4318",
		"telemetry.traces.otlphttp.insecure": true,
		"telemetry.traces.otlphttp.timeout":  "5s",
		"telemetry.metrics.enabled":          true,
		"telemetry.metrics.path":             "/metrics",

		"shutdown.timeout": "10s",
	}
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Database.String())

	b.WriteString("\n--- gRPC ---\n")
	b.WriteString(fmt.Sprintf("  grpc.port: %s\n", c.GRPC.Port))
	b.WriteString(fmt.Sprintf("  grpc.reflection: %t\n", c.GRPC.ReflectionEnabled))

	b.WriteString(c.Nats.String())
	b.WriteString(c.RPC.String())
	b.WriteString(c.Events.String())
	b.WriteString(c.CircuitBreaker.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Shutdown.String())

	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.Database,
		&c.Log,
		&c.PProf,
		&c.GRPC,
		&c.Nats,
		&c.RPC,
		&c.Events,
		&c.CircuitBreaker,
		&c.Telemetry,
		&c.Shutdown,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
