/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 22:38:26
 * @FilePath: \mood-diary\backend\internal\handler\member_handler.go
 * @LastEditTime: 2025-11-03 21:02:36
 */
package handler

import (
	"errors"
	"net/http"

	"mood-diary/backend/internal/domain/member"
	response "mood-diary/backend/internal/infra/common"
	appLogger "mood-diary/backend/internal/infra/logger"
	membersvc "mood-diary/backend/internal/service/member"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MemberHandler 处理当前登录会员的账户接口。
type MemberHandler struct {
	service *membersvc.Service
	logger  *zap.SugaredLogger
}

// NewMemberHandler 创建会员处理器。
func NewMemberHandler(service *membersvc.Service) *MemberHandler {
	return &MemberHandler{
		service: service,
		logger:  appLogger.S().With("component", "member.handler"),
	}
}

// UpdateMeRequest 用于部分更新资料，未提交的字段保持不变。
type UpdateMeRequest struct {
	Nickname       *string   `json:"nickname"`
	Introduce      *string   `json:"introduce"`
	FavoriteGenres *[]string `json:"favorite_genres"`
}

// GetMe 返回账户信息。
func (h *MemberHandler) GetMe(c *gin.Context) {
	log := h.scope("get_me")
	userID, ok := requireUser(c, log)
	if !ok {
		return
	}

	account, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	response.Success(c, http.StatusOK, account, nil)
}

// GetProfile 返回带第三方头像的个人资料卡。
func (h *MemberHandler) GetProfile(c *gin.Context) {
	log := h.scope("get_profile")
	userID, ok := requireUser(c, log)
	if !ok {
		return
	}

	profile, err := h.service.Profile(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, log, err)
		return
	}
	response.Success(c, http.StatusOK, profile, nil)
}

// UpdateMe 部分更新个人资料。
func (h *MemberHandler) UpdateMe(c *gin.Context) {
	log := h.scope("update_me")
	userID, ok := requireUser(c, log)
	if !ok {
		return
	}
	log = log.With("user_id", userID)

	var req UpdateMeRequest
	if !bindJSON(c, log, &req) {
		return
	}

	account, err := h.service.Update(c.Request.Context(), userID, membersvc.UpdateParams{
		Nickname:       req.Nickname,
		Introduce:      req.Introduce,
		FavoriteGenres: req.FavoriteGenres,
	})
	if err != nil {
		h.fail(c, log, err)
		return
	}
	log.Infow("profile updated")
	response.Success(c, http.StatusOK, account, nil)
}

// DeleteMe 注销账户并删除全部日记。
func (h *MemberHandler) DeleteMe(c *gin.Context) {
	log := h.scope("delete_me")
	userID, ok := requireUser(c, log)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID); err != nil {
		h.fail(c, log, err)
		return
	}
	log.Infow("account deleted", "user_id", userID)
	response.NoContent(c)
}

func (h *MemberHandler) fail(c *gin.Context, log *zap.SugaredLogger, err error) {
	if field := member.Field(err); field != "" {
		response.Fail(c, http.StatusBadRequest, response.ErrValidationFailed, "validation failed", map[string]string{field: err.Error()})
		return
	}
	switch {
	case errors.Is(err, membersvc.ErrMemberNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound, err.Error(), nil)
	case errors.Is(err, membersvc.ErrNicknameTaken):
		response.Fail(c, http.StatusConflict, response.ErrNicknameTaken, err.Error(), nil)
	default:
		log.Errorw("member request failed", "error", err)
		response.Internal(c)
	}
}

func (h *MemberHandler) scope(operation string) *zap.SugaredLogger {
	if h.logger == nil {
		h.logger = appLogger.S().With("component", "member.handler")
	}
	return h.logger.With("operation", operation)
}
