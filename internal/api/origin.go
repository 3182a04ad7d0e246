package api

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// resolveOrigin 推导打印页的对外地址：配置的公网地址优先，
// 其次按反向代理头，最后回退到请求自身的 Host。
func resolveOrigin(c *gin.Context, publicBaseURL string) string {
	if publicBaseURL != "" {
		return strings.TrimRight(publicBaseURL, "/")
	}

	scheme := c.GetHeader("X-Forwarded-Proto")
	if scheme == "" {
		if c.Request.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	host := c.GetHeader("X-Forwarded-Host")
	if host == "" {
		host = c.Request.Host
	}
	if host == "" {
		return ""
	}
	return scheme + "://" + host
}
