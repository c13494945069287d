package httpapi

import (
	"net/http"
	"strconv"

	"github.com/nalberthy/url-shorten/gee"
	"github.com/nalberthy/url-shorten/internal/app/shortlink"
)

func NewShortenHandler(links *shortlink.LinkService) gee.HandlerFunc {
	return func(ctx *gee.Context) {
		var req shortenRequest
		if err := ctx.BindJSON(&req); err != nil {
			return
		}
		view, err := links.Create(ctx.Req.Context(), shortlink.CreateLinkInput{
			OriginalURL: req.OriginalURL,
			CustomCode:  req.CustomCode,
			IsPublic:    req.IsPublic,
		}, callerID(ctx))
		if err != nil {
			abortWithDomainError(ctx, err)
			return
		}
		ctx.JSON(http.StatusCreated, toLinkResponse(view))
	}
}

// NewListHandler ?page=&limit=，非法值回落到默认
func NewListHandler(links *shortlink.LinkService) gee.HandlerFunc {
	return func(ctx *gee.Context) {
		page, err := links.List(ctx.Req.Context(),
			ctx.QueryInt("page", shortlink.DefaultPage),
			ctx.QueryInt("limit", shortlink.DefaultLimit),
			callerID(ctx))
		if err != nil {
			abortWithDomainError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, toListResponse(page, toListItem))
	}
}

func NewMyURLsHandler(links *shortlink.LinkService) gee.HandlerFunc {
	return func(ctx *gee.Context) {
		page, err := links.ListOwned(ctx.Req.Context(), callerID(ctx),
			ctx.QueryInt("page", shortlink.DefaultPage),
			ctx.QueryInt("limit", shortlink.DefaultLimit))
		if err != nil {
			abortWithDomainError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, toListResponse(page, toLinkResponse))
	}
}

func NewStatsHandler(links *shortlink.LinkService) gee.HandlerFunc {
	return func(ctx *gee.Context) {
		stats, err := links.Stats(ctx.Req.Context(), callerID(ctx))
		if err != nil {
			abortWithDomainError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, toStatsResponse(stats))
	}
}

func NewDeleteHandler(links *shortlink.LinkService) gee.HandlerFunc {
	return func(ctx *gee.Context) {
		if err := links.Delete(ctx.Req.Context(), ctx.Param("code"), callerID(ctx)); err != nil {
			abortWithDomainError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, messageResponse{Message: "URL deleted successfully"})
	}
}

// NewClicksHandler ?cursor=<上一页的 nextCursor>&limit=
func NewClicksHandler(links *shortlink.LinkService) gee.HandlerFunc {
	return func(ctx *gee.Context) {
		var cursor int64
		if v := ctx.Query("cursor"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				ctx.AbortWithError(http.StatusBadRequest, "invalid cursor")
				return
			}
			cursor = n
		}
		page, err := links.Clicks(ctx.Req.Context(), ctx.Param("code"), callerID(ctx), cursor,
			ctx.QueryInt("limit", shortlink.DefaultLimit))
		if err != nil {
			abortWithDomainError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, toClicksResponse(page))
	}
}
