package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"mood-diary/backend/internal/handler"
	"mood-diary/backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	AuthHandler      *handler.AuthHandler
	MemberHandler    *handler.MemberHandler
	DiaryHandler     *handler.DiaryHandler
	RecommendHandler *handler.RecommendHandler
	AuthMW           middleware.Authenticator
	AuthLimit        *middleware.IPLimitMiddleware
	CORSOrigins      []string
}

// NewRouter 构建 gin 引擎，挂载全部 REST 路由与公共中间件。
func NewRouter(opts RouterOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
		AllowOriginFunc:  allowOrigin(opts.CORSOrigins),
	}))
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health", "/metrics"},
		Formatter: gin.LogFormatter(func(params gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s\" %d %s\n",
				params.ClientIP,
				params.TimeStamp.Format(time.RFC3339),
				params.Method,
				params.Path,
				params.StatusCode,
				params.Latency,
			)
		}),
	}))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		if opts.AuthHandler != nil {
			authGroup := api.Group("/auth")
			if opts.AuthLimit != nil {
				authGroup.Use(opts.AuthLimit.Handle())
			}
			authGroup.GET("/oauth/:provider/login", opts.AuthHandler.LoginRedirect)
			authGroup.GET("/oauth/:provider/callback", opts.AuthHandler.Callback)
			authGroup.POST("/register", opts.AuthHandler.Register)
			authGroup.POST("/refresh", opts.AuthHandler.Refresh)
			authGroup.POST("/logout", opts.AuthHandler.Logout)
		}

		// 以下路由均需携带 access token
		protected := api.Group("")
		if opts.AuthMW != nil {
			protected.Use(opts.AuthMW.Handle())
		}

		if opts.MemberHandler != nil {
			members := protected.Group("/members")
			members.GET("/me", opts.MemberHandler.GetMe)
			members.PATCH("/me", opts.MemberHandler.UpdateMe)
			members.DELETE("/me", opts.MemberHandler.DeleteMe)
			members.GET("/me/profile", opts.MemberHandler.GetProfile)
		}

		if opts.DiaryHandler != nil {
			diary := protected.Group("/diary")
			diary.GET("", opts.DiaryHandler.List)
			diary.GET("/by-period", opts.DiaryHandler.ByPeriod)
			diary.POST("/create", opts.DiaryHandler.Create)
			diary.POST("/search", opts.DiaryHandler.Search)
			diary.GET("/:id", opts.DiaryHandler.Get)
			diary.DELETE("/:id", opts.DiaryHandler.Delete)
		}

		if opts.RecommendHandler != nil {
			protected.POST("/ai/moods", opts.RecommendHandler.ExtractMoods)
			protected.POST("/music/recommend", opts.RecommendHandler.RecommendMusic)
		}
	}

	return r
}

// allowOrigin 放行配置中的来源以及本地开发地址。
func allowOrigin(origins []string) func(string) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[o] = struct{}{}
		}
	}
	return func(origin string) bool {
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
	}
}
