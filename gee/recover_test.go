package gee

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestRecoveryReturnsErrorResponse(t *testing.T) {
	logs := captureLogs(t)

	var ran []string
	engine := New()
	engine.Use(Recovery())
	engine.GET("/panic", func(ctx *Context) {
		ran = append(ran, "first")
		panic("boom")
	}, func(ctx *Context) {
		ran = append(ran, "second")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("X-Request-ID", "rid-1")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Message != "Internal Server Error" || body.RequestId != "rid-1" {
		t.Errorf("unexpected body %+v", body)
	}
	if len(ran) != 1 {
		t.Errorf("handlers after the panic must not run, ran %v", ran)
	}

	var entry map[string]any
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
		t.Fatalf("log is not json: %v: %s", err, logs.String())
	}
	if entry["panic"] != "boom" || entry["request_id"] != "rid-1" {
		t.Errorf("unexpected log entry %v", entry)
	}
	if s, _ := entry["stack"].(string); !strings.Contains(s, "recover_test.go") {
		t.Errorf("stack should point at the panicking handler, got %q", s)
	}
}

func TestRecoveryCatchesMiddlewarePanic(t *testing.T) {
	captureLogs(t)

	engine := New()
	engine.Use(Recovery())
	engine.Use(func(ctx *Context) {
		panic("panic in middleware")
	})
	engine.GET("/test", func(ctx *Context) {
		ctx.String(200, "ok")
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestRecoveryKeepsWrittenResponse(t *testing.T) {
	captureLogs(t)

	engine := New()
	engine.Use(Recovery())
	engine.GET("/:code", func(ctx *Context) {
		ctx.Redirect(http.StatusMovedPermanently, "https://example.com")
		panic("after redirect")
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/abc123", nil))

	if w.Code != http.StatusMovedPermanently {
		t.Errorf("expected the already written 301, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("no error body after the header was sent, got %q", w.Body.String())
	}
}

func TestRecoveryRepanicsAbortHandler(t *testing.T) {
	engine := New()
	engine.Use(Recovery())
	engine.GET("/abort", func(ctx *Context) {
		panic(http.ErrAbortHandler)
	})

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/abort", nil))
}
