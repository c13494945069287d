package gee

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serve(engine *Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func shortlinkRoutes() *Engine {
	engine := New()
	ok := func(name string) HandlerFunc {
		return func(ctx *Context) {
			ctx.String(http.StatusOK, "%s %s code=%s", name, ctx.RoutePattern, ctx.Param("code"))
		}
	}
	engine.GET("/healthz", ok("health"))
	engine.GET("/:code", ok("resolve"))
	engine.POST("/api/urls/shorten", ok("shorten"))
	engine.GET("/api/urls/list", ok("list"))
	engine.GET("/api/urls/:code/clicks", ok("clicks"))
	engine.DELETE("/api/urls/:code", ok("delete"))
	return engine
}

func TestRouteMatching(t *testing.T) {
	engine := shortlinkRoutes()
	cases := []struct {
		method, path string
		want         string
	}{
		{http.MethodGet, "/healthz", "health /healthz code="},
		{http.MethodGet, "/abc123", "resolve /:code code=abc123"},
		{http.MethodGet, "/abc123/", "resolve /:code code=abc123"},
		{http.MethodGet, "/api/urls/list", "list /api/urls/list code="},
		{http.MethodGet, "/api/urls/promo/clicks", "clicks /api/urls/:code/clicks code=promo"},
		{http.MethodDelete, "/api/urls/promo", "delete /api/urls/:code code=promo"},
		// 静态段 list 没有 DELETE，回溯到参数段
		{http.MethodDelete, "/api/urls/list", "delete /api/urls/:code code=list"},
		{http.MethodPost, "/api/urls/shorten", "shorten /api/urls/shorten code="},
	}
	for _, tc := range cases {
		w := serve(engine, tc.method, tc.path)
		if w.Code != http.StatusOK {
			t.Errorf("%s %s: expected 200, got %d", tc.method, tc.path, w.Code)
			continue
		}
		if got := w.Body.String(); got != tc.want {
			t.Errorf("%s %s: got %q, want %q", tc.method, tc.path, got, tc.want)
		}
	}
}

func TestNotFound(t *testing.T) {
	engine := shortlinkRoutes()
	for _, path := range []string{"/", "/a/b", "/api/urls/promo/clicks/extra"} {
		w := serve(engine, http.MethodGet, path)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"route not found"`) {
			t.Errorf("%s: expected JSON error body, got %s", path, w.Body.String())
		}
	}
}

func TestCustomNoRoute(t *testing.T) {
	engine := New()
	engine.NoRoute(func(ctx *Context) {
		ctx.JSON(http.StatusNotFound, H{"error": "page not found"})
	})

	w := serve(engine, http.MethodGet, "/not-exists")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if !strings.Contains(w.Body.String(), "page not found") {
		t.Errorf("expected custom error message, got: %s", w.Body.String())
	}
}

func TestMethodNotAllowedListsAllowedMethods(t *testing.T) {
	engine := shortlinkRoutes()

	w := serve(engine, http.MethodPost, "/api/urls/list")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
	if got := w.Header().Get("Allow"); got != "DELETE, GET" {
		t.Errorf("Allow: got %q", got)
	}

	w = serve(engine, http.MethodGet, "/api/urls/shorten")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
	if got := w.Header().Get("Allow"); got != "DELETE, POST" {
		t.Errorf("Allow: got %q", got)
	}
}

func TestCustomNoMethod(t *testing.T) {
	engine := New()
	engine.NoMethod(func(ctx *Context) {
		ctx.JSON(http.StatusMethodNotAllowed, H{"error": "use GET"})
	})
	engine.GET("/test", func(ctx *Context) { ctx.String(200, "ok") })

	w := serve(engine, http.MethodPost, "/test")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, w.Code)
	}
	if !strings.Contains(w.Body.String(), "use GET") {
		t.Errorf("expected custom error message, got: %s", w.Body.String())
	}
}

func TestUnmatchedRequestsGoThroughMiddleware(t *testing.T) {
	var seen []string
	engine := New()
	engine.Use(func(ctx *Context) {
		ctx.Next()
		seen = append(seen, ctx.Method+" "+ctx.RoutePattern)
	})
	engine.GET("/test", func(ctx *Context) { ctx.String(200, "ok") })

	serve(engine, http.MethodGet, "/missing")
	serve(engine, http.MethodPost, "/test")

	if len(seen) != 2 || seen[0] != "GET " || seen[1] != "POST " {
		t.Errorf("middleware should see unmatched requests with empty route, got %v", seen)
	}
}

func TestCatchAll(t *testing.T) {
	engine := New()
	engine.GET("/static/*filepath", func(ctx *Context) { ctx.String(200, "%s", ctx.Param("filepath")) })

	if got := serve(engine, http.MethodGet, "/static/css/site.css").Body.String(); got != "css/site.css" {
		t.Errorf("got %q", got)
	}
	if got := serve(engine, http.MethodGet, "/static/100%25.css").Body.String(); got != "100%.css" {
		t.Errorf("param with %% rendered as %q", got)
	}
	if w := serve(engine, http.MethodGet, "/static"); w.Code != http.StatusNotFound {
		t.Errorf("catch-all needs at least one segment, got %d", w.Code)
	}
}

func TestAddRoutePanics(t *testing.T) {
	cases := map[string]func(e *Engine){
		"duplicate": func(e *Engine) {
			e.GET("/:code", func(*Context) {})
			e.GET("/:code", func(*Context) {})
		},
		"wildcard name conflict": func(e *Engine) {
			e.GET("/api/urls/:code/clicks", func(*Context) {})
			e.DELETE("/api/urls/:id", func(*Context) {})
		},
		"no handler": func(e *Engine) {
			e.GET("/x")
		},
	}
	for name, register := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			register(New())
		})
	}
}
