package gee

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseWriterStatusTracking(t *testing.T) {
	w := httptest.NewRecorder()
	rw := NewResponseWriter(w)

	if rw.Status() != http.StatusOK || rw.Written() {
		t.Fatalf("fresh writer: status=%d written=%v", rw.Status(), rw.Written())
	}

	rw.WriteHeader(http.StatusMovedPermanently)
	rw.WriteHeader(http.StatusInternalServerError) // 第二次调用应被忽略

	if rw.Status() != http.StatusMovedPermanently {
		t.Errorf("expected 301, got %d", rw.Status())
	}
	if w.Code != http.StatusMovedPermanently {
		t.Errorf("expected underlying 301, got %d", w.Code)
	}
}

func TestResponseWriterWriteImpliesOK(t *testing.T) {
	w := httptest.NewRecorder()
	rw := NewResponseWriter(w)

	rw.Write([]byte("hello"))
	rw.Write([]byte(" world"))

	if !rw.Written() || rw.Status() != http.StatusOK {
		t.Errorf("written=%v status=%d", rw.Written(), rw.Status())
	}
	if rw.Size() != 11 {
		t.Errorf("expected size 11, got %d", rw.Size())
	}
}

func TestResponseWriterFlushAndUnwrap(t *testing.T) {
	w := httptest.NewRecorder()
	rw := NewResponseWriter(w)

	if err := http.NewResponseController(rw).Flush(); err != nil {
		t.Fatalf("flush through controller: %v", err)
	}
	if !w.Flushed {
		t.Error("expected underlying recorder to be flushed")
	}
	if !rw.Written() {
		t.Error("flush should commit the header")
	}
	if rw.Unwrap() != http.ResponseWriter(w) {
		t.Error("Unwrap should return the wrapped writer")
	}
}

// 中间件在 Next 之后读到的是 handler 最终写出的状态和大小
func TestMiddlewareSeesFinalStatusAndSize(t *testing.T) {
	engine := New()

	var status, size int
	engine.Use(func(ctx *Context) {
		ctx.Next()
		status = ctx.Writer.Status()
		size = ctx.Writer.Size()
	})
	engine.GET("/:code", func(ctx *Context) {
		ctx.Redirect(http.StatusMovedPermanently, "https://example.com")
	})
	engine.POST("/echo", func(ctx *Context) {
		ctx.Writer.Write([]byte("hello"))
	})

	serve(engine, http.MethodGet, "/abc123")
	if status != http.StatusMovedPermanently || size != 0 {
		t.Errorf("redirect: status=%d size=%d", status, size)
	}

	serve(engine, http.MethodPost, "/echo")
	if status != http.StatusOK || size != 5 {
		t.Errorf("echo: status=%d size=%d", status, size)
	}
}
