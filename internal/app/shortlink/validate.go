package shortlink

import (
	"net/url"
	"regexp"
	"strings"
)

// ValidateURL 校验用户提交的原始链接。
//
// 规则：
// - scheme 必须是 http/https
// - host 不能为空
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}
	if strings.TrimSpace(u.Host) == "" {
		return ErrInvalidURL
	}
	return nil
}

var codeRe = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)

// 与站点已有路由冲突的短码
var reservedCodes = map[string]struct{}{
	"api":     {},
	"healthz": {},
	"favicon": {},
}

// ValidateCode 校验用户自定义短码。
//
// 规则：
// - 仅允许字母、数字、下划线和连字符
// - 长度 3~20
// - 不能占用站点已有路由前缀
func ValidateCode(code string) error {
	if !codeRe.MatchString(code) {
		return ErrInvalidCode
	}
	if _, ok := reservedCodes[strings.ToLower(code)]; ok {
		return ErrInvalidCode
	}
	return nil
}

// NormalizeEmail 统一邮箱格式，保证唯一索引按同一形式比较。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
