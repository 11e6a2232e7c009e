package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mood-diary/backend/internal/domain/member"
	"mood-diary/backend/internal/infra/ratelimit"
	"mood-diary/backend/internal/infra/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(parser AccessTokenParser) *gin.Engine {
	r := gin.New()
	r.GET("/me", NewAuthMiddleware(parser).Handle(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.MustGet("userID")})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	jwt := token.NewJWTManager("secret", time.Hour, 24*time.Hour, 30*time.Minute)
	router := protectedRouter(jwt)

	pair, err := jwt.GenerateTokens(context.Background(), &member.Member{ID: 42, Provider: member.ProviderKakao})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "access token", header: "Bearer " + pair.AccessToken, status: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + pair.AccessToken, status: http.StatusOK},
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "basic auth", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "refresh token", header: "Bearer " + pair.RefreshToken, status: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer nope", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"user_id":42}`, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"UNAUTHORIZED"`)
			}
		})
	}
}

func TestIPLimitMiddleware(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter()
	r := gin.New()
	r.Use(NewIPLimitMiddleware(limiter, IPLimitConfig{Prefix: "auth", MaxRequests: 2, Window: time.Minute}).Handle())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, call("10.0.0.1").Code)
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1").Code)

	blocked := call("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "60", blocked.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, call("10.0.0.2").Code, "budgets are per IP")
}

func TestIPLimitMiddlewareDisabled(t *testing.T) {
	r := gin.New()
	r.Use(NewIPLimitMiddleware(nil, IPLimitConfig{MaxRequests: 1}).Handle())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}
