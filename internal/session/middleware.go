package session

import (
	"crypto/subtle"
	"net/http"

	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/config"
	"github.com/gin-gonic/gin"
)

// AdminKeyHeader 是主持端命令携带共享密钥的请求头
const AdminKeyHeader = "X-Admin-Key"

// RequireAdminKey 校验主持端请求的共享密钥。
// 未配置密钥时放行（本地开发模式）。
func RequireAdminKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := config.Cfg.Server.AdminKey
		if expected == "" {
			c.Next()
			return
		}

		provided := c.GetHeader(AdminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "主持端密钥错误"})
			return
		}
		c.Next()
	}
}
