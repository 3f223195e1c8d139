package debugapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/annel0/chunkstore/internal/logging"
)

func TestServer_RequestIDFollowsTrace(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	reg := prometheus.NewRegistry()
	srv := NewServer(Config{
		Registerer: reg,
		Gatherer:   reg,
		Logger:     logging.NewWriterLogger("debugapi", io.Discard, logging.ERROR),
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	spans := sr.Ended()
	require.Len(t, spans, 1, "Запрос трассируется")
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), rec.Header().Get(requestIDHeader),
		"Идентификатор запроса совпадает с trace-ID")
}
