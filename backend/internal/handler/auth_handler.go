/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 20:42:09
 * @FilePath: \mood-diary\backend\internal\handler\auth_handler.go
 * @LastEditTime: 2025-11-03 20:31:57
 */
package handler

import (
	"errors"
	"net/http"
	"time"

	"mood-diary/backend/internal/domain/member"
	response "mood-diary/backend/internal/infra/common"
	appLogger "mood-diary/backend/internal/infra/logger"
	"mood-diary/backend/internal/service/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

// AuthHandler 负责社交登录、注册以及令牌的刷新与注销。
type AuthHandler struct {
	service *auth.Service
	logger  *zap.SugaredLogger
}

// NewAuthHandler 创建认证处理器。
func NewAuthHandler(service *auth.Service) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  appLogger.S().With("component", "auth.handler"),
	}
}

// RegisterRequest 是持有 signup token 的会员完成注册时提交的资料。
type RegisterRequest struct {
	SignupToken    string   `json:"signup_token" binding:"required"`
	Nickname       string   `json:"nickname"`
	Introduce      string   `json:"introduce"`
	FavoriteGenres []string `json:"favorite_genres"`
}

// RefreshRequest 用于刷新与注销，携带 refresh token。
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LoginRedirect 将浏览器重定向到第三方授权页，state 写入短期 Cookie，回调时校验。
func (h *AuthHandler) LoginRedirect(c *gin.Context) {
	log := h.scope("login_redirect")
	provider := c.Param("provider")

	state := uuid.NewString()
	target, err := h.service.AuthCodeURL(provider, state)
	if err != nil {
		log.Warnw("unknown provider", "provider", provider)
		response.Fail(c, http.StatusNotFound, response.ErrNotFound, err.Error(), nil)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, int(oauthStateTTL.Seconds()), "/api/auth", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusFound, target)
}

// Callback 用授权码换取令牌：已注册会员直接登录，新会员获得 signup token。
func (h *AuthHandler) Callback(c *gin.Context) {
	provider := c.Param("provider")
	log := h.scope("callback").With("provider", provider)

	if expected, err := c.Cookie(oauthStateCookie); err == nil && expected != "" {
		if c.Query("state") != expected {
			log.Warnw("oauth state mismatch")
			response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "oauth state mismatch", nil)
			return
		}
		c.SetCookie(oauthStateCookie, "", -1, "/api/auth", "", c.Request.TLS != nil, true)
	}

	result, err := h.service.SocialLogin(c.Request.Context(), provider, c.Query("code"))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrCodeRequired), errors.Is(err, auth.ErrEmailRequired):
			response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		case errors.Is(err, auth.ErrUnknownProvider):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound, err.Error(), nil)
		case errors.Is(err, auth.ErrProviderFailed):
			response.Fail(c, http.StatusBadGateway, response.ErrUpstream, "social login provider request failed", nil)
		case errors.Is(err, auth.ErrEmailTaken):
			response.Fail(c, http.StatusConflict, response.ErrEmailTaken, err.Error(), nil)
		default:
			log.Errorw("social login failed", "error", err)
			response.Internal(c)
		}
		return
	}

	log.Infow("callback handled", "member_id", result.Member.ID, "registered", result.Registered)
	response.Success(c, http.StatusOK, result, nil)
}

// Register 激活待注册会员。
func (h *AuthHandler) Register(c *gin.Context) {
	log := h.scope("register")

	var req RegisterRequest
	if !bindJSON(c, log, &req) {
		return
	}

	m, tokens, err := h.service.Register(c.Request.Context(), auth.RegisterParams{
		SignupToken:    req.SignupToken,
		Nickname:       req.Nickname,
		Introduce:      req.Introduce,
		FavoriteGenres: req.FavoriteGenres,
	})
	if err != nil {
		if field := member.Field(err); field != "" {
			response.Fail(c, http.StatusBadRequest, response.ErrValidationFailed, "validation failed", map[string]string{field: err.Error()})
			return
		}
		switch {
		case errors.Is(err, auth.ErrSignupTokenInvalid):
			response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, err.Error(), nil)
		case errors.Is(err, auth.ErrAlreadyRegistered):
			response.Fail(c, http.StatusConflict, response.ErrConflict, err.Error(), nil)
		case errors.Is(err, auth.ErrNicknameTaken):
			response.Fail(c, http.StatusConflict, response.ErrNicknameTaken, err.Error(), nil)
		default:
			log.Errorw("register failed", "error", err)
			response.Internal(c)
		}
		return
	}

	log.Infow("member registered", "member_id", m.ID)
	response.Created(c, gin.H{"member": m, "tokens": tokens}, nil)
}

// Refresh 轮换令牌对。
func (h *AuthHandler) Refresh(c *gin.Context) {
	log := h.scope("refresh")

	var req RefreshRequest
	if !bindJSON(c, log, &req) {
		return
	}

	tokens, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.failToken(c, log, err)
		return
	}
	response.Success(c, http.StatusOK, tokens, nil)
}

// Logout 吊销提交的 refresh token。
func (h *AuthHandler) Logout(c *gin.Context) {
	log := h.scope("logout")

	var req RefreshRequest
	if !bindJSON(c, log, &req) {
		return
	}

	if err := h.service.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		h.failToken(c, log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"logged_out": true}, nil)
}

func (h *AuthHandler) failToken(c *gin.Context, log *zap.SugaredLogger, err error) {
	switch {
	case errors.Is(err, auth.ErrRefreshTokenRequired):
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
	case errors.Is(err, auth.ErrRefreshTokenInvalid),
		errors.Is(err, auth.ErrRefreshTokenExpired),
		errors.Is(err, auth.ErrRefreshTokenRevoked),
		errors.Is(err, auth.ErrMemberInactive):
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, err.Error(), nil)
	default:
		log.Errorw("token request failed", "error", err)
		response.Internal(c)
	}
}

func (h *AuthHandler) scope(operation string) *zap.SugaredLogger {
	if h.logger == nil {
		h.logger = appLogger.S().With("component", "auth.handler")
	}
	return h.logger.With("operation", operation)
}
