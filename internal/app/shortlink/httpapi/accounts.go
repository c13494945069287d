package httpapi

import (
	"net/http"

	"github.com/nalberthy/url-shorten/gee"
	"github.com/nalberthy/url-shorten/internal/app/shortlink"
	"github.com/nalberthy/url-shorten/internal/platform/auth"
)

func NewRegisterHandler(accounts *shortlink.AccountService, ts auth.TokenService) gee.HandlerFunc {
	return func(ctx *gee.Context) {
		var req registerRequest
		if err := ctx.BindJSON(&req); err != nil {
			return
		}
		account, err := accounts.Register(ctx.Req.Context(), req.Name, req.Email, req.Password)
		if err != nil {
			abortWithDomainError(ctx, err)
			return
		}
		writeAuthResponse(ctx, http.StatusCreated, ts, account)
	}
}

func NewLoginHandler(accounts *shortlink.AccountService, ts auth.TokenService) gee.HandlerFunc {
	return func(ctx *gee.Context) {
		var req loginRequest
		if err := ctx.BindJSON(&req); err != nil {
			return
		}
		account, err := accounts.Authenticate(ctx.Req.Context(), req.Email, req.Password)
		if err != nil {
			abortWithDomainError(ctx, err)
			return
		}
		writeAuthResponse(ctx, http.StatusOK, ts, account)
	}
}

func writeAuthResponse(ctx *gee.Context, status int, ts auth.TokenService, account shortlink.Account) {
	token, err := ts.Sign(auth.Claims{UserID: account.ID, Email: account.Email, Name: account.Name})
	if err != nil {
		abortWithDomainError(ctx, err)
		return
	}
	ctx.JSON(status, authResponse{User: toAccountResponse(account), AccessToken: token})
}

// NewProfileHandler 返回调用者账号和用量。账号以数据库为准，不用 token 里的快照。
func NewProfileHandler(accounts *shortlink.AccountService) gee.HandlerFunc {
	return func(ctx *gee.Context) {
		id := callerID(ctx)
		account, err := accounts.FindByID(ctx.Req.Context(), id)
		if err != nil {
			abortWithDomainError(ctx, err)
			return
		}
		usage, err := accounts.UsageStats(ctx.Req.Context(), id)
		if err != nil {
			abortWithDomainError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, profileResponse{
			User:  toAccountResponse(account),
			Stats: usageResponse{TotalURLs: usage.TotalURLs, TotalClicks: usage.TotalClicks},
		})
	}
}
