/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-13 23:10:00
 * @FilePath: \mood-diary\backend\internal\middleware\ip_limit_middleware.go
 * @LastEditTime: 2025-11-03 19:40:05
 */
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	response "mood-diary/backend/internal/infra/common"
	appLogger "mood-diary/backend/internal/infra/logger"
	"mood-diary/backend/internal/infra/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IPLimitConfig 描述单个客户端 IP 的请求额度。
type IPLimitConfig struct {
	Prefix      string
	MaxRequests int
	Window      time.Duration
}

// IPLimitMiddleware 按客户端 IP 对无需登录的接口限流。
type IPLimitMiddleware struct {
	limiter ratelimit.Limiter
	cfg     IPLimitConfig
	logger  *zap.SugaredLogger
}

// NewIPLimitMiddleware 创建限流中间件；limiter 为 nil 或 MaxRequests 不大于 0 时直接放行。
func NewIPLimitMiddleware(limiter ratelimit.Limiter, cfg IPLimitConfig) *IPLimitMiddleware {
	if cfg.Prefix == "" {
		cfg.Prefix = "ip"
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &IPLimitMiddleware{
		limiter: limiter,
		cfg:     cfg,
		logger:  appLogger.S().With("component", "middleware.iplimit"),
	}
}

// Handle 返回 gin 中间件。
func (m *IPLimitMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.limiter == nil || m.cfg.MaxRequests <= 0 {
			c.Next()
			return
		}
		ip := strings.TrimSpace(c.ClientIP())
		if ip == "" {
			c.Next()
			return
		}

		res, err := m.limiter.Allow(c.Request.Context(), m.cfg.Prefix+":"+ip, m.cfg.MaxRequests, m.cfg.Window)
		if err != nil {
			m.logger.Warnw("ip limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}
		if !res.Allowed {
			SetRetryAfter(c, res.RetryAfter)
			m.logger.Infow("ip rate limited", "ip", ip, "path", c.FullPath())
			response.Fail(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "request rate limited", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// SetRetryAfter 写入 Retry-After 头，单位为秒，向上取整。
func SetRetryAfter(c *gin.Context, wait time.Duration) {
	if wait <= 0 {
		return
	}
	c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
}
