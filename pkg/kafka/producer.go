package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/mikidaniel85/warehouse-pbb/pkg/cloudevents"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	"github.com/mikidaniel85/warehouse-pbb/pkg/metrics"
)

const tracerScope = "stock-ledger/kafka"

// Producer publishes CloudEvents to Kafka topics, one writer per topic.
type Producer struct {
	config  *Config
	metrics *metrics.Metrics
	logger  *logging.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewProducer creates a new Kafka producer. m and logger may be nil.
func NewProducer(config *Config, m *metrics.Metrics, logger *logging.Logger) *Producer {
	return &Producer{
		config:  config,
		metrics: m,
		logger:  logger,
		writers: make(map[string]*kafka.Writer),
	}
}

func (p *Producer) writerFor(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.writers[topic]
	if !ok {
		w = p.config.writer(topic)
		p.writers[topic] = w
	}
	return w
}

// ceHeaders returns the binary-mode CloudEvents attributes of event.
func ceHeaders(event *cloudevents.WMSCloudEvent) []kafka.Header {
	attrs := [][2]string{
		{"ce-specversion", event.SpecVersion},
		{"ce-type", event.Type},
		{"ce-source", event.Source},
		{"ce-id", event.ID},
		{"ce-time", event.Time.Format(time.RFC3339)},
		{"content-type", event.DataContentType},
		{"ce-wmscorrelationid", event.CorrelationID},
		{"ce-wmsactor", event.Actor},
	}
	headers := make([]kafka.Header, 0, len(attrs))
	for _, kv := range attrs {
		if kv[1] != "" {
			headers = append(headers, kafka.Header{Key: kv[0], Value: []byte(kv[1])})
		}
	}
	return headers
}

// NewMessage encodes event as a Kafka message keyed by subject, so every
// event for one slot lands on the same partition. The trace context of ctx
// travels in the headers.
func NewMessage(ctx context.Context, event *cloudevents.WMSCloudEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	msg := kafka.Message{
		Key:     []byte(event.Subject),
		Value:   data,
		Headers: ceHeaders(event),
		Time:    event.Time,
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &msg})
	return msg, nil
}

// PublishEvent writes event to topic and waits for the configured acks.
func (p *Producer) PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	start := time.Now()
	ctx, span := otel.Tracer(tracerScope).Start(ctx, "kafka.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKey.String("kafka"),
			semconv.MessagingDestinationNameKey.String(topic),
			semconv.MessagingOperationKey.String("publish"),
			attribute.String("messaging.message_id", event.ID),
			attribute.String("cloudevents.event_type", event.Type),
		),
	)
	defer span.End()

	err := p.publish(ctx, topic, event)

	elapsed := time.Since(start)
	p.metrics.RecordKafkaPublish(topic, event.Type, err == nil, elapsed)
	if p.logger != nil {
		p.logger.KafkaPublish(ctx, topic, event.Type, err == nil, elapsed)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (p *Producer) publish(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	msg, err := NewMessage(ctx, event)
	if err != nil {
		return err
	}
	if err := p.writerFor(topic).WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.ID, topic, err)
	}
	return nil
}

// Close flushes and closes every writer, returning the first failure.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var first error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && first == nil {
			first = fmt.Errorf("close writer for %s: %w", topic, err)
		}
	}
	p.writers = make(map[string]*kafka.Writer)
	return first
}

// headerCarrier lets the otel propagator read and write message headers.
type headerCarrier struct {
	msg *kafka.Message
}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i := range c.msg.Headers {
		if c.msg.Headers[i].Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, len(c.msg.Headers))
	for i, h := range c.msg.Headers {
		keys[i] = h.Key
	}
	return keys
}
