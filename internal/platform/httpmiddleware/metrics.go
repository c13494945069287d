package httpmiddleware

import (
	"strconv"
	"time"

	"github.com/nalberthy/url-shorten/gee"
	"github.com/nalberthy/url-shorten/internal/platform/metrics"
)

// unmatchedRoute 是 404/405 请求的 route 标签，避免把真实 path 当成标签值
const unmatchedRoute = "UNMATCHED"

func routeLabel(ctx *gee.Context) string {
	if ctx.RoutePattern == "" {
		return unmatchedRoute
	}
	return ctx.RoutePattern
}

// Metrics 记录请求数、耗时和在途请求数，按路由模板聚合
func Metrics() gee.HandlerFunc {
	return func(ctx *gee.Context) {
		start := time.Now()
		metrics.HTTPInflightRequests.Inc()
		defer metrics.HTTPInflightRequests.Dec()

		route := routeLabel(ctx)
		defer func() {
			status := strconv.Itoa(ctx.Writer.Status())
			metrics.HTTPRequestsTotal.WithLabelValues(ctx.Method, route, status).Inc()
			metrics.HTTPRequestDurationSeconds.WithLabelValues(ctx.Method, route).Observe(time.Since(start).Seconds())
		}()
		ctx.Next()
	}
}
