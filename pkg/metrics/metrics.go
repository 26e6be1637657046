package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpBuckets  = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	storeBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}
	kafkaBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1}
)

// Metrics holds the stock ledger service metrics. All Record methods are safe
// to call on a nil receiver so components can run without a registry.
type Metrics struct {
	service  string
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge

	kafkaPublished *prometheus.CounterVec
	kafkaDuration  *prometheus.HistogramVec

	storeOps      *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	txRetries     *prometheus.CounterVec

	mutations    *prometheus.CounterVec
	units        *prometheus.CounterVec
	shortfall    prometheus.Counter
	transitions  *prometheus.CounterVec
	auditFailed  prometheus.Counter
	auditDropped prometheus.Counter

	breakerState *prometheus.GaugeVec
	breakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{ServiceName: serviceName, Namespace: "wms"}
}

// builder registers collectors under one namespace as they are declared.
type builder struct {
	ns      string
	service string
	reg     *prometheus.Registry
}

func (b builder) counters(name, help string, labels ...string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: b.ns, Name: name, Help: help}, append([]string{"service"}, labels...))
	b.reg.MustRegister(c)
	return c
}

func (b builder) counter(name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: b.ns, Name: name, Help: help,
		ConstLabels: prometheus.Labels{"service": b.service},
	})
	b.reg.MustRegister(c)
	return c
}

func (b builder) histograms(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: b.ns, Name: name, Help: help, Buckets: buckets}, append([]string{"service"}, labels...))
	b.reg.MustRegister(h)
	return h
}

func (b builder) gauges(name, help string, labels ...string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: b.ns, Name: name, Help: help}, append([]string{"service"}, labels...))
	b.reg.MustRegister(g)
	return g
}

// New creates a new Metrics instance backed by a private registry.
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	b := builder{ns: config.Namespace, service: config.ServiceName, reg: registry}

	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: b.ns, Name: "http_requests_in_flight", Help: "HTTP requests currently being served",
		ConstLabels: prometheus.Labels{"service": config.ServiceName},
	})
	registry.MustRegister(inFlight)

	return &Metrics{
		service:  config.ServiceName,
		registry: registry,

		httpRequests: b.counters("http_requests_total", "HTTP requests by route and status", "method", "path", "status"),
		httpDuration: b.histograms("http_request_duration_seconds", "HTTP request latency", httpBuckets, "method", "path"),
		httpInFlight: inFlight,

		kafkaPublished: b.counters("kafka_events_published_total", "Ledger events handed to Kafka", "topic", "event_type", "status"),
		kafkaDuration:  b.histograms("kafka_publish_duration_seconds", "Kafka publish latency", kafkaBuckets, "topic"),

		storeOps:      b.counters("mongodb_operations_total", "Store operations by collection and outcome", "collection", "operation", "status"),
		storeDuration: b.histograms("mongodb_operation_duration_seconds", "Store operation latency", storeBuckets, "collection", "operation"),
		txRetries:     b.counters("mongodb_transaction_retries_total", "Transactions retried after a transient write conflict", "operation"),

		mutations:    b.counters("ledger_mutations_total", "Stock ledger mutations by operation and outcome", "operation", "status"),
		units:        b.counters("ledger_units_total", "Units moved through the ledger by operation", "operation"),
		shortfall:    b.counter("ledger_decrement_shortfall_units_total", "Requested units not removed because the slot was clamped at zero"),
		transitions:  b.counters("pull_request_transitions_total", "Pull request state transitions", "status"),
		auditFailed:  b.counter("audit_write_failures_total", "Audit records the sink failed to persist"),
		auditDropped: b.counter("audit_dropped_total", "Audit records dropped because the recorder buffer was full"),

		breakerState: b.gauges("circuit_breaker_state", "Circuit breaker state (0=closed, 1=half-open, 2=open)", "name"),
		breakerTrips: b.counters("circuit_breaker_trips_total", "Circuit breaker trips", "name"),
	}
}

// Handler serves the registry in the OpenMetrics format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(m.service, method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(m.service, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight marks a request as started.
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	if m != nil {
		m.httpInFlight.Inc()
	}
}

// DecrementHTTPRequestsInFlight marks a request as finished.
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	if m != nil {
		m.httpInFlight.Dec()
	}
}

// RecordKafkaPublish records one publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.kafkaPublished.WithLabelValues(m.service, topic, eventType, outcome(success)).Inc()
	m.kafkaDuration.WithLabelValues(m.service, topic).Observe(duration.Seconds())
}

// RecordMongoDBOperation records one store operation.
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeOps.WithLabelValues(m.service, collection, operation, outcome(success)).Inc()
	m.storeDuration.WithLabelValues(m.service, collection, operation).Observe(duration.Seconds())
}

// RecordTransactionRetry records one retried transaction attempt.
func (m *Metrics) RecordTransactionRetry(operation string) {
	if m != nil {
		m.txRetries.WithLabelValues(m.service, operation).Inc()
	}
}

// RecordLedgerMutation records a receive/decrement/relocate outcome and the units it moved.
func (m *Metrics) RecordLedgerMutation(operation string, units int, success bool) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(m.service, operation, outcome(success)).Inc()
	if success && units > 0 {
		m.units.WithLabelValues(m.service, operation).Add(float64(units))
	}
}

// RecordShortfall records units an approval asked for but the slot did not hold.
func (m *Metrics) RecordShortfall(units int) {
	if m != nil && units > 0 {
		m.shortfall.Add(float64(units))
	}
}

// RecordRequestTransition records a pull request reaching a terminal status.
func (m *Metrics) RecordRequestTransition(status string) {
	if m != nil {
		m.transitions.WithLabelValues(m.service, status).Inc()
	}
}

// RecordAuditFailure records an audit record the sink rejected.
func (m *Metrics) RecordAuditFailure() {
	if m != nil {
		m.auditFailed.Inc()
	}
}

// RecordAuditDropped records an audit record discarded before reaching the sink.
func (m *Metrics) RecordAuditDropped() {
	if m != nil {
		m.auditDropped.Inc()
	}
}

// SetCircuitBreakerState publishes the breaker state as a gauge.
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m != nil {
		m.breakerState.WithLabelValues(m.service, name).Set(float64(state))
	}
}

// RecordCircuitBreakerTrip records a breaker opening.
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	if m != nil {
		m.breakerTrips.WithLabelValues(m.service, name).Inc()
	}
}
