package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jamesaja2/warphotokalender/pkg/jwt"
	"github.com/jamesaja2/warphotokalender/pkg/response"
)

// AdminAuth 管理端认证中间件
// 从 Authorization: Bearer <token> 中提取并验证管理会话 Token
func AdminAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		if claims.Role != "admin" {
			response.Forbidden(c, 10003, "无权限访问")
			c.Abort()
			return
		}

		c.Next()
	}
}
