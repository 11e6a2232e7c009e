/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-09 20:51:28
 * @FilePath: \mood-diary\backend\internal\bootstrap\bootstrap.go
 * @LastEditTime: 2025-11-04 21:48:03
 */
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"mood-diary/backend/internal/app"
	"mood-diary/backend/internal/config"
	"mood-diary/backend/internal/handler"
	"mood-diary/backend/internal/infra/metrics"
	"mood-diary/backend/internal/infra/model/gemini"
	"mood-diary/backend/internal/infra/oauth"
	"mood-diary/backend/internal/infra/ratelimit"
	"mood-diary/backend/internal/infra/token"
	"mood-diary/backend/internal/infra/youtube"
	"mood-diary/backend/internal/middleware"
	"mood-diary/backend/internal/repository"
	"mood-diary/backend/internal/server"
	authsvc "mood-diary/backend/internal/service/auth"
	diarysvc "mood-diary/backend/internal/service/diary"
	membersvc "mood-diary/backend/internal/service/member"
	"mood-diary/backend/internal/service/recommend"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	refreshTokenPrefix = "diary:refresh"
	rateLimitPrefix    = "diary:ratelimit"
)

type Application struct {
	Resources    *app.Resources
	AuthSvc      *authsvc.Service
	MemberSvc    *membersvc.Service
	DiarySvc     *diarysvc.Service
	RecommendSvc *recommend.Service
	Router       http.Handler
}

// BuildApplication 基于已打开的资源装配仓储、服务、处理器与路由。
func BuildApplication(ctx context.Context, logger *zap.SugaredLogger, resources *app.Resources) (*Application, error) {
	settings := resources.Settings
	metrics.MustRegister()

	memberRepo := repository.NewMemberRepository(resources.DB)
	diaryRepo := repository.NewDiaryRepository(resources.DB)

	jwt := token.NewJWTManager(settings.JWT.Secret, settings.JWT.AccessTTL, settings.JWT.RefreshTTL, settings.JWT.SignupTTL)

	var (
		refreshStore authsvc.RefreshTokenStore
		limiter      ratelimit.Limiter
	)
	if resources.Redis != nil {
		refreshStore = token.NewRedisRefreshTokenStore(resources.Redis, refreshTokenPrefix)
		limiter = ratelimit.NewRedisLimiter(resources.Redis, rateLimitPrefix)
	} else {
		refreshStore = token.NewMemoryRefreshTokenStore()
		limiter = ratelimit.NewMemoryLimiter()
		logger.Infow("using in-memory refresh token store and rate limiter; state won't persist across restarts")
	}

	providers := buildProviders(settings, logger)

	generator, videos, err := buildAIClients(ctx, settings, logger)
	if err != nil {
		return nil, err
	}

	authService := authsvc.NewService(memberRepo, providers, jwt, refreshStore)
	memberService := membersvc.NewService(memberRepo, refreshStore)
	diaryService := diarysvc.NewService(diaryRepo, diarysvc.WithLocation(settings.Location))
	recommendService := recommend.NewService(generator, videos, memberService, limiter, recommend.Quota{
		Limit:  settings.AILimit.Limit,
		Window: settings.AILimit.Window,
	})

	router := server.NewRouter(server.RouterOptions{
		AuthHandler:      handler.NewAuthHandler(authService),
		MemberHandler:    handler.NewMemberHandler(memberService),
		DiaryHandler:     handler.NewDiaryHandler(diaryService),
		RecommendHandler: handler.NewRecommendHandler(recommendService),
		AuthMW:           middleware.NewAuthMiddleware(jwt),
		AuthLimit: middleware.NewIPLimitMiddleware(limiter, middleware.IPLimitConfig{
			Prefix:      "auth",
			MaxRequests: settings.AuthLimit.Limit,
			Window:      settings.AuthLimit.Window,
		}),
		CORSOrigins: settings.Server.CORSOrigins,
	})

	return &Application{
		Resources:    resources,
		AuthSvc:      authService,
		MemberSvc:    memberService,
		DiarySvc:     diaryService,
		RecommendSvc: recommendService,
		Router:       router,
	}, nil
}

func buildProviders(settings config.Settings, logger *zap.SugaredLogger) *oauth.Registry {
	var providers []oauth.Provider
	if settings.Kakao.Enabled() {
		providers = append(providers, oauth.NewKakao(oauth.Credentials(settings.Kakao)))
	} else {
		logger.Warnw("kakao login disabled: credentials not configured")
	}
	if settings.Naver.Enabled() {
		providers = append(providers, oauth.NewNaver(oauth.Credentials(settings.Naver)))
	} else {
		logger.Warnw("naver login disabled: credentials not configured")
	}
	return oauth.NewRegistry(providers...)
}

// buildAIClients 对未配置 API Key 的客户端返回 nil 接口，
// 推荐服务据此返回未配置错误。
func buildAIClients(ctx context.Context, settings config.Settings, logger *zap.SugaredLogger) (recommend.TextGenerator, recommend.VideoFinder, error) {
	var (
		generator recommend.TextGenerator
		videos    recommend.VideoFinder
	)

	if settings.Gemini.APIKey != "" {
		opts := []gemini.Option{gemini.WithModel(settings.Gemini.Model)}
		if settings.Gemini.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(settings.Gemini.BaseURL))
		}
		if settings.Gemini.RPS > 0 {
			opts = append(opts, gemini.WithRateLimiter(rate.NewLimiter(rate.Limit(settings.Gemini.RPS), 1)))
		}
		client := gemini.NewClient(settings.Gemini.APIKey, opts...)
		generator = client
		logger.Infow("gemini enabled", "model", client.Model())
	} else {
		logger.Warnw("gemini disabled: GEMINI_API_KEY not set")
	}

	if settings.YouTube.APIKey != "" {
		var opts []youtube.Option
		if settings.YouTube.RPS > 0 {
			opts = append(opts, youtube.WithRateLimiter(rate.NewLimiter(rate.Limit(settings.YouTube.RPS), 1)))
		}
		client, err := youtube.NewClient(ctx, settings.YouTube.APIKey, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("init youtube client: %w", err)
		}
		videos = client
	} else {
		logger.Warnw("youtube lookup disabled: YOUTUBE_API_KEY not set")
	}

	return generator, videos, nil
}
