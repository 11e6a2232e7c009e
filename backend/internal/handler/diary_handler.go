package handler

import (
	"errors"
	"net/http"

	domain "mood-diary/backend/internal/domain/diary"
	response "mood-diary/backend/internal/infra/common"
	appLogger "mood-diary/backend/internal/infra/logger"
	diarysvc "mood-diary/backend/internal/service/diary"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DiaryHandler 对外提供当前会员的日记接口。
type DiaryHandler struct {
	service *diarysvc.Service
	logger  *zap.SugaredLogger
}

// NewDiaryHandler 创建日记处理器。
func NewDiaryHandler(service *diarysvc.Service) *DiaryHandler {
	return &DiaryHandler{
		service: service,
		logger:  appLogger.S().With("component", "diary.handler"),
	}
}

// CreateDiaryRequest 对应 POST /api/diary/create，Date 可省略，默认当天。
type CreateDiaryRequest struct {
	Title            string        `json:"title"`
	Content          string        `json:"content"`
	Moods            []string      `json:"moods"`
	Date             *string       `json:"date"`
	RecommendedTrack *domain.Track `json:"recommended_track"`
}

// SearchDiaryRequest 对应 POST /api/diary/search。
type SearchDiaryRequest struct {
	Query string `json:"q"`
}

// List 返回会员全部 (date, id)，供日历视图使用。
func (h *DiaryHandler) List(c *gin.Context) {
	log := h.scope("list")
	userID, ok := requireUser(c, log)
	if !ok {
		return
	}

	refs, err := h.service.ListDates(c.Request.Context(), userID)
	if err != nil {
		log.Errorw("list dates failed", "error", err, "user_id", userID)
		response.Internal(c)
		return
	}
	if refs == nil {
		refs = []domain.DateRef{}
	}
	response.Success(c, http.StatusOK, refs, response.MetaCount{Count: len(refs)})
}

// Get 返回单篇日记。
func (h *DiaryHandler) Get(c *gin.Context) {
	log := h.scope("get")
	userID, ok := requireUser(c, log)
	if !ok {
		return
	}

	entry, err := h.service.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.fail(c, log, err)
		return
	}
	response.Success(c, http.StatusOK, entry, nil)
}

// Create 为指定日期写入新日记。
func (h *DiaryHandler) Create(c *gin.Context) {
	log := h.scope("create")
	userID, ok := requireUser(c, log)
	if !ok {
		return
	}
	log = log.With("user_id", userID)

	var req CreateDiaryRequest
	if !bindJSON(c, log, &req) {
		return
	}

	entry, err := h.service.Create(c.Request.Context(), userID, diarysvc.CreateParams{
		Title:            req.Title,
		Content:          req.Content,
		Moods:            req.Moods,
		Date:             req.Date,
		RecommendedTrack: req.RecommendedTrack,
	})
	if err != nil {
		h.fail(c, log, err)
		return
	}
	log.Infow("entry created", "entry_id", entry.ID, "date", entry.Date)
	response.Created(c, entry, nil)
}

// Delete 删除单篇日记。
func (h *DiaryHandler) Delete(c *gin.Context) {
	log := h.scope("delete")
	userID, ok := requireUser(c, log)
	if !ok {
		return
	}

	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		h.fail(c, log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id}, nil)
}

// Search 在标题与正文中按关键词检索。
func (h *DiaryHandler) Search(c *gin.Context) {
	log := h.scope("search")
	userID, ok := requireUser(c, log)
	if !ok {
		return
	}

	var req SearchDiaryRequest
	if !bindJSON(c, log, &req) {
		return
	}

	entries, err := h.service.Search(c.Request.Context(), userID, req.Query)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	response.Success(c, http.StatusOK, entries, response.MetaCount{Count: len(entries)})
}

// ByPeriod 返回最近一周、一月或一年的情绪统计。
func (h *DiaryHandler) ByPeriod(c *gin.Context) {
	log := h.scope("by_period")
	userID, ok := requireUser(c, log)
	if !ok {
		return
	}

	stats, err := h.service.MoodCounts(c.Request.Context(), userID, c.Query("period"))
	if err != nil {
		h.fail(c, log, err)
		return
	}
	response.Success(c, http.StatusOK, stats, nil)
}

// fail 将日记服务的错误映射为统一响应。
func (h *DiaryHandler) fail(c *gin.Context, log *zap.SugaredLogger, err error) {
	var verr *diarysvc.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Fail(c, http.StatusBadRequest, response.ErrValidationFailed, "validation failed", verr.Fields)
	case errors.Is(err, diarysvc.ErrEntryExists):
		response.Fail(c, http.StatusBadRequest, response.ErrEntryAlreadyExists, err.Error(), nil)
	case errors.Is(err, diarysvc.ErrFutureDate):
		response.Fail(c, http.StatusBadRequest, response.ErrFutureDate, err.Error(), nil)
	case errors.Is(err, diarysvc.ErrEntryNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound, err.Error(), nil)
	default:
		log.Errorw("diary request failed", "error", err)
		response.Internal(c)
	}
}

func (h *DiaryHandler) scope(operation string) *zap.SugaredLogger {
	if h.logger == nil {
		h.logger = appLogger.S().With("component", "diary.handler")
	}
	return h.logger.With("operation", operation)
}
