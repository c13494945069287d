package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nalberthy/url-shorten/gee"
	"github.com/nalberthy/url-shorten/gee/middleware"
	"github.com/nalberthy/url-shorten/internal/app/shortlink"
	"github.com/nalberthy/url-shorten/internal/app/shortlink/codefilter"
	shortlinkhttpapi "github.com/nalberthy/url-shorten/internal/app/shortlink/httpapi"
	"github.com/nalberthy/url-shorten/internal/platform/auth"
	"github.com/nalberthy/url-shorten/internal/platform/config"
	"github.com/nalberthy/url-shorten/internal/platform/httpmiddleware"
	"github.com/nalberthy/url-shorten/internal/platform/httpserver"
	"github.com/nalberthy/url-shorten/internal/platform/logging"
	"github.com/nalberthy/url-shorten/internal/platform/metrics"
	"github.com/nalberthy/url-shorten/internal/platform/trace"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cfg := config.Load()

	logCloser := logging.Setup(cfg)
	defer logCloser.Close()

	metrics.Init()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 存储
	store, closeStore, err := openStore(stopCtx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()

	// 短码过滤器：预期 100 万短码，1% 误判率
	filter := codefilter.New(codefilter.DefaultExpectedCodes, codefilter.DefaultFalsePositiveRate)
	alloc := shortlink.NewAllocator(store, filter, cfg.CodeMaxAttempts)

	// JWT
	ts, err := auth.NewHS256Service(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		log.Fatal(err)
	}

	// 点击明细
	clicks, err := newClickPipeline(stopCtx, cfg, store)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.TracingEnabled {
		shutdown, err := trace.InitTrace(cfg.OtlpGrpcEndpoint, cfg.ServiceName, version)
		if err != nil {
			slog.Error("trace init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					slog.Error("trace shutdown failed", "err", err)
				}
			}()
		}
	} else {
		slog.Warn("tracing disabled by config", "TRACING_ENABLED", false)
	}

	deps := shortlinkhttpapi.Deps{
		Links:     shortlink.NewLinkService(shortlink.LinkServiceConfig{BaseURL: cfg.BaseURL}, store, store, alloc),
		Accounts:  shortlink.NewAccountService(store, store, auth.NewBcryptHasher(cfg.BcryptCost)),
		Tokens:    ts,
		Collector: clicks.collector,
	}

	// 对外业务
	r := gee.New()
	r.Use(gee.Recovery(), middleware.ReqID(), middleware.AccessLog(), httpmiddleware.Metrics(), httpmiddleware.TraceName())
	shortlinkhttpapi.RegisterAPIRoutes(r, deps)
	shortlinkhttpapi.RegisterPublicRoutes(r, deps)

	publicHandler := http.Handler(r)
	if cfg.TracingEnabled {
		publicHandler = otelhttp.NewHandler(r, "http")
	}
	publicSrv := httpserver.New(cfg, publicHandler)

	// 仅本机/内网
	adminSrv := httpserver.NewAdmin(cfg, adminMux(cfg, store))

	errch := make(chan error, 2)
	go func() {
		errch <- httpserver.RunWithGracefulShutdownContext(publicSrv, cfg.ShutdownTimeout, stopCtx)
	}()
	go func() {
		errch <- httpserver.RunWithGracefulShutdownContext(adminSrv, cfg.ShutdownTimeout, stopCtx)
	}()
	slog.Info("server started", "addr", cfg.Addr, "admin_addr", cfg.AdminAddr, "store", cfg.StoreDriver, "collector", cfg.ClickCollector)

	err = <-errch
	if err != nil {
		stop()
		select {
		case <-errch:
		case <-time.After(cfg.ShutdownTimeout + time.Second):
		}
		clicks.shutdown()
		log.Fatal(err)
	}

	stop()
	<-errch
	// 服务器停止后不会再有新的点击，关闭收集器并等消费者把缓冲区刷完
	clicks.shutdown()
}

func adminMux(cfg config.Config, store shortlink.Store) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	// 存储连接状态检测
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			slog.Error("readyz ping failed", "err", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("store not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"service_name": cfg.ServiceName,
			"version":      version,
			"commit":       commit,
			"build_time":   buildTime,
			"go_version":   runtime.Version(),
		})
	})

	if cfg.PprofEnabled {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}
