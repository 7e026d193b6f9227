package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestLoggerFromContext_AddsTraceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "test-service", "production")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10},
		SpanID:  trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	traced := LoggerFromContext(ctx, logger)
	traced.Info().Msg("traced line")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", line["trace_id"])
	assert.Equal(t, "0102030405060708", line["span_id"])
	assert.Equal(t, "test-service", line["service"])
}

func TestLoggerFromContext_NoSpanLeavesLoggerUntouched(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "test-service", "production")

	plain := LoggerFromContext(context.Background(), logger)
	plain.Info().Msg("plain line")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.NotContains(t, line, "trace_id")
	assert.NotContains(t, line, "span_id")
}
