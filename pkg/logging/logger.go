// Package logging builds the JSON slog logger every component writes to and
// carries request scoped attributes through context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// LogLevel is a textual log level as it appears in configuration.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

var slogLevels = map[LogLevel]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

// ParseLevel maps a level name in any case onto a LogLevel. Unknown names are info.
func ParseLevel(s string) LogLevel {
	level := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := slogLevels[level]; !ok {
		return LevelInfo
	}
	return level
}

// Config describes the logger of one binary.
type Config struct {
	Level       LogLevel
	ServiceName string
	Environment string
	Version     string
	Output      io.Writer
	AddSource   bool
}

// DefaultConfig reads LOG_LEVEL, ENVIRONMENT and VERSION and writes to stdout.
func DefaultConfig(serviceName string) *Config {
	return &Config{
		Level:       ParseLevel(os.Getenv("LOG_LEVEL")),
		ServiceName: serviceName,
		Environment: envOr("ENVIRONMENT", "development"),
		Version:     envOr("VERSION", "unknown"),
		Output:      os.Stdout,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Logger is a slog.Logger with the service's event helpers.
type Logger struct {
	*slog.Logger
}

// New creates a JSON logger stamped with the service, environment and version.
// Timestamps are written in UTC.
func New(config *Config) *Logger {
	level, ok := slogLevels[config.Level]
	if !ok {
		level = slog.LevelInfo
	}
	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     level,
		AddSource: config.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if t, ok := a.Value.Any().(time.Time); ok && a.Key == slog.TimeKey {
				a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
			}
			return a
		},
	})
	return &Logger{Logger: slog.New(handler).With(
		"service", config.ServiceName,
		"environment", config.Environment,
		"version", config.Version,
	)}
}

// NewNop discards everything.
func NewNop() *Logger {
	return New(&Config{Level: LevelError, ServiceName: "nop", Output: io.Discard})
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithContext adds the request, correlation and trace ids and the actor found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if attrs := contextAttrs(ctx); len(attrs) > 0 {
		return l.with(attrs...)
	}
	return l
}

// WithError adds err as the error attribute. A nil err changes nothing.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with("error", err.Error())
}

// WithComponent names the component writing the lines.
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// SetDefault installs l as the slog default.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

// outcome logs successes at debug and failures at error.
func (l *Logger) outcome(ctx context.Context, success bool, msg string, attrs ...any) {
	level := slog.LevelDebug
	if !success {
		level = slog.LevelError
	}
	l.WithContext(ctx).Log(ctx, level, msg, append(attrs, "success", success)...)
}

// Audit mirrors an audit record into the log stream.
func (l *Logger) Audit(ctx context.Context, action, actor, role, detail string) {
	l.WithContext(ctx).Info("Audit event", "auditAction", action, "actor", actor, "actorRole", role, "detail", detail)
}

// LedgerMutation logs a quantity change applied to a slot.
func (l *Logger) LedgerMutation(ctx context.Context, operation, locationID string, delta, quantity int) {
	l.WithContext(ctx).Info("Ledger mutation", "operation", operation, "locationId", locationID, "delta", delta, "quantity", quantity)
}

// DatabaseQuery logs one store operation.
func (l *Logger) DatabaseQuery(ctx context.Context, collection, operation string, duration time.Duration, success bool, rowsAffected int64) {
	l.outcome(ctx, success, "Database query",
		"collection", collection, "operation", operation, "durationMs", duration.Milliseconds(), "rowsAffected", rowsAffected)
}

// KafkaPublish logs one broker delivery.
func (l *Logger) KafkaPublish(ctx context.Context, topic, eventType string, success bool, duration time.Duration) {
	l.outcome(ctx, success, "Kafka publish", "topic", topic, "eventType", eventType, "durationMs", duration.Milliseconds())
}

// Panic logs a recovered panic with the current goroutine's stack.
func (l *Logger) Panic(ctx context.Context, recovered any) {
	stack := make([]byte, 8<<10)
	stack = stack[:runtime.Stack(stack, false)]
	l.WithContext(ctx).Error("Panic recovered", "panic", recovered, "stack", string(stack))
}

type contextKey string

// Context keys read by WithContext
const (
	RequestIDKey     contextKey = "requestId"
	CorrelationIDKey contextKey = "correlationId"
	TraceIDKey       contextKey = "traceId"
	ActorKey         contextKey = "actor"
)

var contextKeys = []contextKey{RequestIDKey, CorrelationIDKey, TraceIDKey, ActorKey}

func contextAttrs(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	var attrs []any
	for _, key := range contextKeys {
		if v := ctx.Value(key); v != nil {
			attrs = append(attrs, string(key), v)
		}
	}
	return attrs
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

func ContextWithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

// ContextWithActor tags the context with the acting user's email.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}
