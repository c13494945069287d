package middleware

import (
	"github.com/google/uuid"

	"github.com/nalberthy/url-shorten/gee"
)

const requestIDHeader = "X-Request-ID"

// maxRequestIDLen 超过这个长度的外部 request id 不采用
const maxRequestIDLen = 128

func ReqID() gee.HandlerFunc {
	return func(ctx *gee.Context) {
		id := ctx.Req.Header.Get(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
			ctx.Req.Header.Set(requestIDHeader, id)
		}
		ctx.SetHeader(requestIDHeader, id)

		ctx.Next()
	}
}
