// Package httpapi 是短链服务的传输层：HTTP <-> 领域。
//
// handler 只做参数绑定、错误映射和响应格式，规则都在 internal/app/shortlink 里。
package httpapi

import (
	"net/http"

	"github.com/nalberthy/url-shorten/gee"
	"github.com/nalberthy/url-shorten/internal/app/shortlink"
	"github.com/nalberthy/url-shorten/internal/app/shortlink/stats"
	"github.com/nalberthy/url-shorten/internal/platform/auth"
	"github.com/nalberthy/url-shorten/internal/platform/httpmiddleware"
)

type Deps struct {
	Links     *shortlink.LinkService
	Accounts  *shortlink.AccountService
	Tokens    auth.TokenService
	Collector stats.Collector
}

// RegisterAPIRoutes 挂载 /api 下的 JSON 接口
func RegisterAPIRoutes(r *gee.Engine, d Deps) {
	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", NewRegisterHandler(d.Accounts, d.Tokens))
	authGroup.POST("/login", NewLoginHandler(d.Accounts, d.Tokens))
	authGroup.GET("/profile", httpmiddleware.AuthRequired(d.Tokens), NewProfileHandler(d.Accounts))

	required := httpmiddleware.AuthRequired(d.Tokens)
	optional := httpmiddleware.AuthOptional(d.Tokens)

	urls := api.Group("/urls")
	urls.POST("/shorten", optional, NewShortenHandler(d.Links))
	urls.GET("/list", optional, NewListHandler(d.Links))
	urls.GET("/my", required, NewMyURLsHandler(d.Links))
	urls.GET("/stats", optional, NewStatsHandler(d.Links))
	urls.GET("/:code/clicks", required, NewClicksHandler(d.Links))
	urls.DELETE("/:code", required, NewDeleteHandler(d.Links))
}

// RegisterPublicRoutes 挂载根路径上的跳转和健康检查。
// 跳转入口不放在 /api 下，用户直接在浏览器访问 /{code}。
func RegisterPublicRoutes(r *gee.Engine, d Deps) {
	r.GET("/healthz", func(ctx *gee.Context) {
		ctx.String(http.StatusOK, "ok")
	})
	r.GET("/:code", NewRedirectHandler(d.Links, d.Collector))
}
