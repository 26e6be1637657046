package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// Config holds Kafka producer configuration
type Config struct {
	Brokers  []string
	ClientID string

	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:      []string{"localhost:9092"},
		ClientID:     "stock-ledger-service",
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,
		WriteTimeout: 10 * time.Second,
	}
}

// writer builds the writer for one topic. Messages are hashed on their key.
func (c *Config) writer(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    c.BatchSize,
		BatchTimeout: c.BatchTimeout,
		RequiredAcks: kafka.RequiredAcks(c.RequiredAcks),
		WriteTimeout: c.WriteTimeout,
		Transport:    &kafka.Transport{ClientID: c.ClientID},
	}
}

// Topics contains the Kafka topic names this service writes to
var Topics = struct {
	LedgerEvents string
}{
	LedgerEvents: "wms.stock-ledger.events",
}
