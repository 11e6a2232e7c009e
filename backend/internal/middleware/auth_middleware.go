/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 20:41:15
 * @FilePath: \mood-diary\backend\internal\middleware\auth_middleware.go
 * @LastEditTime: 2025-11-03 19:14:22
 */
package middleware

import (
	"net/http"
	"strings"

	response "mood-diary/backend/internal/infra/common"
	"mood-diary/backend/internal/infra/token"

	"github.com/gin-gonic/gin"
)

// AccessTokenParser 校验 access token，*token.JWTManager 实现了该接口。
type AccessTokenParser interface {
	ParseAccessToken(raw string) (token.AccessClaims, error)
}

// Authenticator 用于保护路由分组。
type Authenticator interface {
	Handle() gin.HandlerFunc
}

// AuthMiddleware 校验 Bearer access token，并把会员 ID 写入 gin 上下文的 "userID"。
type AuthMiddleware struct {
	parser AccessTokenParser
}

// NewAuthMiddleware 创建鉴权中间件。
func NewAuthMiddleware(parser AccessTokenParser) *AuthMiddleware {
	return &AuthMiddleware{parser: parser}
}

// Handle 返回 gin 中间件。
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "missing authorization header", nil)
			c.Abort()
			return
		}

		claims, err := m.parser.ParseAccessToken(strings.TrimSpace(authHeader[7:]))
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "invalid token", nil)
			c.Abort()
			return
		}

		c.Set("userID", claims.MemberID)
		c.Next()
	}
}
