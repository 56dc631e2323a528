package config

import (
	"fmt"
	"strings"
)

// Supported event publishers.
const (
	EventsNone  = "none"
	EventsNats  = "nats"
	EventsKafka = "kafka"
)

type EventsConfig struct {
	Driver string      `koanf:"driver"`
	Stream string      `koanf:"stream"`
	Kafka  KafkaConfig `koanf:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
}

// String returns a string representation of the events configuration.
func (c *EventsConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Events ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Driver))
	b.WriteString(fmt.Sprintf("  stream: %s\n", c.Stream))
	b.WriteString(fmt.Sprintf("  kafka.brokers: %s\n", strings.Join(c.Kafka.Brokers, ",")))
	return b.String()
}

func (c *EventsConfig) Validate() error {
	switch c.Driver {
	case "", EventsNone:
		return nil
	case EventsNats:
		if c.Stream == "" {
			return fmt.Errorf("events stream is not configured")
		}
	case EventsKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are not configured")
		}
	default:
		return fmt.Errorf("unsupported events driver: %q", c.Driver)
	}
	return nil
}
