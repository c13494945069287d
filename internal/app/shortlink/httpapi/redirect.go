package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/nalberthy/url-shorten/gee"
	"github.com/nalberthy/url-shorten/internal/app/shortlink"
	"github.com/nalberthy/url-shorten/internal/app/shortlink/stats"
	"github.com/nalberthy/url-shorten/internal/platform/httpmiddleware"
	"github.com/nalberthy/url-shorten/internal/platform/metrics"
)

// notFoundResponse 在统一错误结构上带回请求的短码
type notFoundResponse struct {
	gee.ErrorResponse
	ShortCode string `json:"short_code"`
}

// NewRedirectHandler 解析短码并 301 跳转。click_count 在解析时同步累加，
// 点击明细异步交给 collector。
func NewRedirectHandler(links *shortlink.LinkService, collector stats.Collector) gee.HandlerFunc {
	return func(ctx *gee.Context) {
		code := ctx.Param("code")
		link, err := links.Resolve(ctx.Req.Context(), code)
		if err != nil {
			if errors.Is(err, shortlink.ErrNotFound) {
				metrics.ShortlinkRedirects.WithLabelValues("miss").Inc()
				ctx.AbortWithStatusJSON(http.StatusNotFound, notFoundResponse{
					ErrorResponse: gee.NewErrorResponse(ctx, http.StatusNotFound, "URL not found"),
					ShortCode:     code,
				})
				return
			}
			metrics.ShortlinkRedirects.WithLabelValues("error").Inc()
			abortWithDomainError(ctx, err)
			return
		}
		metrics.ShortlinkRedirects.WithLabelValues("hit").Inc()

		collector.Collect(shortlink.ClickEvent{
			LinkID:    link.ID,
			Code:      code,
			ClickedAt: time.Now().UTC(),
			IP:        httpmiddleware.ClientIP(ctx.Req),
			UserAgent: ctx.Req.UserAgent(),
			Referer:   ctx.Req.Referer(),
		})

		ctx.SetHeader("Cache-Control", "no-store")
		ctx.Redirect(http.StatusMovedPermanently, link.OriginalURL)
	}
}
