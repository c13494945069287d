package httpmiddleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP 获取真实客户端 IP，写入点击明细。
//
// 只有直连方是可信代理（本机、私网、docker bridge）时才读取转发头，
// 否则客户端可以伪造 X-Forwarded-For。
func ClientIP(req *http.Request) string {
	remoteHost, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		remoteHost = req.RemoteAddr
	}
	remoteIP := net.ParseIP(remoteHost)
	if remoteIP == nil || !isTrustedProxy(remoteIP) {
		return remoteHost
	}

	// CF-Connecting-IP > X-Forwarded-For 第一个 > X-Real-IP
	if ip := validIP(req.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := validIP(first); ip != "" {
			return ip
		}
	}
	if ip := validIP(req.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return remoteHost
}

func validIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || net.ParseIP(s) == nil {
		return ""
	}
	return s
}

// isTrustedProxy 本机回环、RFC1918 私网、IPv6 ULA
func isTrustedProxy(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate()
}
