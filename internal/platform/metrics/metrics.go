package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Prometheus 不允许重复注册同名指标，否则 panic
	once sync.Once

	// HTTPRequestsTotal 累计请求数。
	//
	// labels：
	// - method：HTTP 方法
	// - route：路由模板（/api/urls/:code，而不是真实 path，避免高基数）
	// - status：HTTP 状态码
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDurationSeconds 请求耗时分布，用于算 P95/P99。
	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPInflightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	LinksCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shortlink_created_total",
			Help: "Short links created.",
		},
	)

	// ShortlinkRedirects 跳转结果：result=hit|miss|error
	ShortlinkRedirects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_redirects_total",
			Help: "Short link resolutions by result.",
		},
		[]string{"result"},
	)

	// CodeCollisions 短码生成冲突：source=filter（布隆过滤器拦截）|store（存储确认已占用）
	CodeCollisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_code_collisions_total",
			Help: "Generated short code candidates rejected as taken.",
		},
		[]string{"source"},
	)

	// ClickEventsDropped 点击明细因队列满或发送失败被丢弃的数量
	ClickEventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "click_events_dropped_total",
			Help: "Click events dropped before persistence.",
		},
		[]string{"collector"},
	)

	ClickEventsFlushed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "click_events_flushed_total",
			Help: "Click events written to the click store.",
		},
	)
)

// Init 注册指标，只执行一次
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			HTTPInflightRequests,
			LinksCreated,
			ShortlinkRedirects,
			CodeCollisions,
			ClickEventsDropped,
			ClickEventsFlushed,
		)
	})
}
