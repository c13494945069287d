package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nalberthy/url-shorten/gee"
	"github.com/nalberthy/url-shorten/internal/app/shortlink"
	"github.com/nalberthy/url-shorten/internal/platform/auth"
)

var errorKinds = []struct {
	kind   error
	status int
}{
	{shortlink.ErrValidation, http.StatusBadRequest},
	{shortlink.ErrUnauthorized, http.StatusUnauthorized},
	{shortlink.ErrForbidden, http.StatusForbidden},
	{shortlink.ErrNotFound, http.StatusNotFound},
	{shortlink.ErrConflict, http.StatusConflict},
}

// abortWithDomainError 把领域错误映射成 HTTP 错误响应；未知错误记日志并返回 500
func abortWithDomainError(ctx *gee.Context, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			ctx.AbortWithError(k.status, clientMessage(err, k.kind))
			return
		}
	}
	if errors.Is(err, shortlink.ErrAllocationExhausted) {
		slog.Warn("short code allocation exhausted",
			"request_id", ctx.Req.Header.Get("X-Request-ID"), "err", err)
		ctx.AbortWithError(http.StatusServiceUnavailable, "could not allocate a short code, please retry")
		return
	}
	slog.Error("request failed",
		"request_id", ctx.Req.Header.Get("X-Request-ID"),
		"method", ctx.Method,
		"route", ctx.RoutePattern,
		"err", err)
	ctx.AbortWithError(http.StatusInternalServerError, "internal server error")
}

// clientMessage 去掉 "kind: " 前缀，只留具体原因
func clientMessage(err, kind error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, kind.Error()+": "); ok {
		return rest
	}
	return msg
}

// callerID 返回当前调用者，匿名时为 ""
func callerID(ctx *gee.Context) string {
	return auth.CallerID(ctx.Req.Context())
}
