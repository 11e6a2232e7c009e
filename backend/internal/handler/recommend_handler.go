package handler

import (
	"errors"
	"net/http"

	response "mood-diary/backend/internal/infra/common"
	appLogger "mood-diary/backend/internal/infra/logger"
	"mood-diary/backend/internal/middleware"
	"mood-diary/backend/internal/service/recommend"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecommendHandler 负责情绪提取与音乐推荐接口。
type RecommendHandler struct {
	service *recommend.Service
	logger  *zap.SugaredLogger
}

// NewRecommendHandler 创建推荐处理器。
func NewRecommendHandler(service *recommend.Service) *RecommendHandler {
	return &RecommendHandler{
		service: service,
		logger:  appLogger.S().With("component", "recommend.handler"),
	}
}

// ExtractMoodsRequest 对应 POST /api/ai/moods。
type ExtractMoodsRequest struct {
	Content string `json:"content"`
}

// RecommendMusicRequest 对应 POST /api/music/recommend，
// 未提交 FavoriteGenres 时使用会员保存的偏好。
type RecommendMusicRequest struct {
	Moods          []string `json:"moods"`
	FavoriteGenres []string `json:"favorite_genres"`
}

// ExtractMoods 返回日记文本中的情绪。
func (h *RecommendHandler) ExtractMoods(c *gin.Context) {
	log := h.scope("extract_moods")
	userID, ok := requireUser(c, log)
	if !ok {
		return
	}

	var req ExtractMoodsRequest
	if !bindJSON(c, log, &req) {
		return
	}

	moods, err := h.service.ExtractMoods(c.Request.Context(), userID, req.Content)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"moods": moods}, nil)
}

// RecommendMusic 根据情绪返回至多三首可播放的歌曲。
func (h *RecommendHandler) RecommendMusic(c *gin.Context) {
	log := h.scope("recommend_music")
	userID, ok := requireUser(c, log)
	if !ok {
		return
	}

	var req RecommendMusicRequest
	if !bindJSON(c, log, &req) {
		return
	}

	tracks, err := h.service.RecommendMusic(c.Request.Context(), userID, req.Moods, req.FavoriteGenres)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	response.Success(c, http.StatusOK, tracks, response.MetaCount{Count: len(tracks)})
}

func (h *RecommendHandler) fail(c *gin.Context, log *zap.SugaredLogger, err error) {
	var limited *recommend.RateLimitError
	switch {
	case errors.As(err, &limited):
		middleware.SetRetryAfter(c, limited.RetryAfter)
		response.Fail(c, http.StatusTooManyRequests, response.ErrTooManyRequests, recommend.ErrRateLimited.Error(), nil)
	case errors.Is(err, recommend.ErrContentRequired):
		response.Fail(c, http.StatusBadRequest, response.ErrValidationFailed, err.Error(), map[string]string{"content": err.Error()})
	case errors.Is(err, recommend.ErrMoodsRequired):
		response.Fail(c, http.StatusBadRequest, response.ErrValidationFailed, err.Error(), map[string]string{"moods": err.Error()})
	case errors.Is(err, recommend.ErrMoodsUnavailable):
		response.Fail(c, http.StatusBadRequest, response.ErrMoodsUnavailable, err.Error(), nil)
	case errors.Is(err, recommend.ErrNotConfigured):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrUpstream, err.Error(), nil)
	case errors.Is(err, recommend.ErrUpstream):
		log.Warnw("model answer unusable", "error", err)
		response.Fail(c, http.StatusBadGateway, response.ErrUpstream, recommend.ErrUpstream.Error(), nil)
	default:
		log.Errorw("recommend request failed", "error", err)
		response.Internal(c)
	}
}

func (h *RecommendHandler) scope(operation string) *zap.SugaredLogger {
	if h.logger == nil {
		h.logger = appLogger.S().With("component", "recommend.handler")
	}
	return h.logger.With("operation", operation)
}
