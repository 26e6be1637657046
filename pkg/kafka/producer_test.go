package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/mikidaniel85/warehouse-pbb/pkg/cloudevents"
)

func TestNewMessage_BinaryModeHeaders(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	event := &cloudevents.WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            cloudevents.StockReceived,
		Source:          cloudevents.SourceStockLedger,
		Subject:         "WH1_1_A_2_item-a",
		ID:              "evt-1",
		Time:            time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		DataContentType: "application/json",
		Actor:           "boss@example.com",
	}
	msg, err := NewMessage(ctx, event)
	require.NoError(t, err)

	assert.Equal(t, "WH1_1_A_2_item-a", string(msg.Key))
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "evt-1", headers["ce-id"])
	assert.Equal(t, "2026-03-01T10:00:00Z", headers["ce-time"])
	assert.Equal(t, "boss@example.com", headers["ce-wmsactor"])
	assert.NotContains(t, headers, "ce-wmscorrelationid")
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", headers["traceparent"])

	var decoded cloudevents.WMSCloudEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "evt-1", decoded.ID)
}
