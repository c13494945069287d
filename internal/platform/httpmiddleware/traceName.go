package httpmiddleware

import (
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/nalberthy/url-shorten/gee"
)

// TraceName 用路由模板给 otelhttp 建的 span 命名，如 "GET /:code"
func TraceName() gee.HandlerFunc {
	return func(ctx *gee.Context) {
		span := trace.SpanFromContext(ctx.Req.Context())
		route := routeLabel(ctx)
		span.SetName(ctx.Method + " " + route)
		if ctx.RoutePattern != "" {
			span.SetAttributes(semconv.HTTPRoute(ctx.RoutePattern))
		}
		ctx.Next()
	}
}
