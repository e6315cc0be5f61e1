package kafkax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	spanID, _ := trace.SpanIDFromHex("b7ad6b7169203331")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	headers := InjectTraceHeaders(ctx, EventMeta{EventID: "evt-1"}.Headers())
	assert.NotEmpty(t, HeaderValue(headers, "traceparent"))
	assert.Equal(t, "evt-1", HeaderValue(headers, HeaderEventID))

	assert.Contains(t, HeaderValue(headers, "traceparent"), traceID.String())

	// an existing header is overwritten, not duplicated
	headers = InjectTraceHeaders(ctx, headers)
	assert.Len(t, headers, 3)
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, SplitBrokers(" kafka-1:9092,,kafka-2:9092 "))
	assert.Nil(t, SplitBrokers(""))
	assert.Nil(t, ReadyCheck(""))
}
