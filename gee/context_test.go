package gee

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func runChain(handlers ...HandlerFunc) (*Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c := newContext(w, httptest.NewRequest(http.MethodGet, "/", nil))
	c.handlers = handlers
	c.Next()
	return c, w
}

func TestMiddlewareExecutionOrder(t *testing.T) {
	var order []string
	wrap := func(name string) HandlerFunc {
		return func(c *Context) {
			order = append(order, name+"-before")
			c.Next()
			order = append(order, name+"-after")
		}
	}
	runChain(wrap("m1"), wrap("m2"), func(*Context) { order = append(order, "handler") })

	want := []string{"m1-before", "m2-before", "handler", "m2-after", "m1-after"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("got %v, want %v", order, want)
	}
}

func TestAbortStopsHandlerChain(t *testing.T) {
	cases := map[string]func(*Context){
		"Abort":               func(c *Context) { c.Abort(); c.Next() },
		"Fail":                func(c *Context) { c.Fail(http.StatusBadRequest, "bad request") },
		"AbortWithStatus":     func(c *Context) { c.AbortWithStatus(http.StatusForbidden) },
		"AbortWithError":      func(c *Context) { c.AbortWithError(http.StatusUnauthorized, "unauthorized") },
		"AbortWithStatusJSON": func(c *Context) { c.AbortWithStatusJSON(http.StatusConflict, H{"x": 1}) },
	}
	for name, stop := range cases {
		t.Run(name, func(t *testing.T) {
			ran := 0
			c, _ := runChain(
				func(c *Context) { ran++; c.Next() },
				func(c *Context) { ran++; stop(c) },
				func(c *Context) { ran++ },
			)
			if ran != 2 {
				t.Errorf("expected 2 handlers executed, got %d", ran)
			}
			if !c.IsAborted() {
				t.Error("context should be aborted")
			}
		})
	}
}

func TestAbortWithErrorWritesErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	c := newContext(w, req)

	c.AbortWithError(http.StatusNotFound, "URL not found")

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: %s", ct)
	}
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	want := ErrorResponse{Code: http.StatusNotFound, Message: "URL not found", RequestId: "req-42"}
	if !reflect.DeepEqual(body, want) {
		t.Errorf("got %+v, want %+v", body, want)
	}
}

// 已经写出响应之后再 abort 不能覆盖原来的状态码
func TestAbortAfterWriteKeepsResponse(t *testing.T) {
	_, w := runChain(func(c *Context) {
		c.String(http.StatusCreated, "created")
		c.AbortWithError(http.StatusInternalServerError, "late failure")
	})
	if w.Code != http.StatusCreated || w.Body.String() != "created" {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}

func TestAbortWithStatusJSONUnencodable(t *testing.T) {
	_, w := runChain(func(c *Context) {
		c.AbortWithStatusJSON(http.StatusOK, H{"ch": make(chan int)})
	})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestParamAndRoutePattern(t *testing.T) {
	engine := New()
	var params map[string]string
	var route string
	engine.GET("/api/urls/:code/clicks", func(c *Context) {
		params = c.Params
		route = c.RoutePattern
		c.Status(http.StatusNoContent)
	})

	serve(engine, http.MethodGet, "/api/urls/promo/clicks")
	if !reflect.DeepEqual(params, map[string]string{"code": "promo"}) {
		t.Errorf("params: %v", params)
	}
	if route != "/api/urls/:code/clicks" {
		t.Errorf("route: %s", route)
	}
}
