package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"github.com/nalberthy/url-shorten/gee"
	"github.com/nalberthy/url-shorten/internal/platform/metrics"
)

func TestMetricsLabelsByRoute(t *testing.T) {
	r := gee.New()
	r.Use(Metrics())
	r.GET("/:code", func(ctx *gee.Context) { ctx.Redirect(http.StatusMovedPermanently, "https://example.com") })

	hits := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/:code", "301")
	misses := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404")
	beforeHits, beforeMisses := testutil.ToFloat64(hits), testutil.ToFloat64(misses)

	for _, path := range []string{"/abc123", "/promo", "/a/b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, beforeHits+2, testutil.ToFloat64(hits))
	assert.Equal(t, beforeMisses+1, testutil.ToFloat64(misses))
	assert.Zero(t, testutil.ToFloat64(metrics.HTTPInflightRequests))
}

func TestTraceNameUsesRoutePattern(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	r := gee.New()
	r.Use(TraceName())
	r.GET("/api/urls/:code/clicks", func(ctx *gee.Context) { ctx.Status(http.StatusOK) })

	for _, path := range []string{"/api/urls/promo/clicks", "/missing/x/y"} {
		ctx, span := tp.Tracer("test").Start(t.Context(), "http")
		req := httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx)
		r.ServeHTTP(httptest.NewRecorder(), req)
		span.End()
	}

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "GET /api/urls/:code/clicks", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), semconv.HTTPRoute("/api/urls/:code/clicks"))
	assert.Equal(t, "GET "+unmatchedRoute, spans[1].Name())
}
