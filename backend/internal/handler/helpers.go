package handler

import (
	"net/http"

	response "mood-diary/backend/internal/infra/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// extractUserID 读取鉴权中间件写入上下文的会员 ID。
func extractUserID(c *gin.Context) (uint, bool) {
	val, ok := c.Get("userID")
	if !ok {
		return 0, false
	}
	switch id := val.(type) {
	case uint:
		return id, id > 0
	case uint64:
		return uint(id), id > 0
	case int:
		if id <= 0 {
			return 0, false
		}
		return uint(id), true
	case int64:
		if id <= 0 {
			return 0, false
		}
		return uint(id), true
	case float64:
		if id <= 0 {
			return 0, false
		}
		return uint(id), true
	default:
		return 0, false
	}
}

// requireUser 在请求缺少会员 ID 时返回 401。
func requireUser(c *gin.Context, log *zap.SugaredLogger) (uint, bool) {
	userID, ok := extractUserID(c)
	if !ok {
		log.Warnw("missing user id")
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "missing user id", nil)
		return 0, false
	}
	return userID, true
}

// bindJSON 解析请求体，格式错误时返回 400。
func bindJSON(c *gin.Context, log *zap.SugaredLogger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		log.Warnw("invalid request body", "error", err)
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "invalid request body", nil)
		return false
	}
	return true
}
