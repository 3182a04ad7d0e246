package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"magicyan/internal/auth"
)

// GateCookieName 是站点门禁 Cookie 的名称，与渲染编排注入的保持一致。
const GateCookieName = "site_auth"

// SiteGateMiddleware 校验站点门禁令牌。secret 为空时门禁关闭、直接放行。
func SiteGateMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		token, err := c.Cookie(GateCookieName)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "site access requires authentication"})
			return
		}
		if err := auth.ValidateGateToken(secret, token); err != nil {
			LoggerFromContext(c).Warn("site gate token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "site access requires authentication"})
			return
		}
		c.Next()
	}
}
