package gee

// ErrorResponse 是所有错误响应的 JSON 结构
type ErrorResponse struct {
	Code      int          `json:"code"`                 //错误码，与 HTTP 状态码一致
	Message   string       `json:"message"`              //错误信息
	RequestId string       `json:"request_id,omitempty"` //请求序号
	Details   []FieldError `json:"details,omitempty"`    //参数校验失败的字段
}

func NewErrorResponse(c *Context, code int, message string) ErrorResponse {
	return ErrorResponse{
		Code:      code,
		Message:   message,
		RequestId: c.Req.Header.Get("X-Request-ID"), //没有就空
	}
}
