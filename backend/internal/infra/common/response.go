/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-09 19:32:07
 * @FilePath: \mood-diary\backend\internal\infra\common\response.go
 * @LastEditTime: 2025-10-31 19:55:30
 */
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorCode 是响应中供程序识别的错误码。
type ErrorCode string

const (
	ErrBadRequest         ErrorCode = "BAD_REQUEST"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrForbidden          ErrorCode = "FORBIDDEN"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrConflict           ErrorCode = "CONFLICT"
	ErrTooManyRequests    ErrorCode = "TOO_MANY_REQUESTS"
	ErrInternal           ErrorCode = "INTERNAL_ERROR"
	ErrValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrEntryAlreadyExists ErrorCode = "ENTRY_ALREADY_EXISTS"
	ErrFutureDate         ErrorCode = "FUTURE_DATE"
	ErrEmailTaken         ErrorCode = "EMAIL_TAKEN"
	ErrNicknameTaken      ErrorCode = "NICKNAME_TAKEN"
	ErrMoodsUnavailable   ErrorCode = "MOODS_UNAVAILABLE"
	ErrUpstream           ErrorCode = "UPSTREAM_ERROR"
)

// Error 是响应中的错误部分。
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

// Response 是所有接口统一的响应结构。
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
	Meta    any    `json:"meta,omitempty"`
}

// MetaCount 用于列表类响应。
type MetaCount struct {
	Count int `json:"count"`
}

// Success 写入成功响应，status 为 0 时使用 200。
func Success(c *gin.Context, status int, data any, meta any) {
	if status == 0 {
		status = http.StatusOK
	}
	resp := Response{Success: true, Data: data}
	if meta != nil {
		resp.Meta = meta
	}
	c.JSON(status, resp)
}

// Created 写入 201 响应。
func Created(c *gin.Context, data any, meta any) {
	Success(c, http.StatusCreated, data, meta)
}

// NoContent 写入空的 204 响应。
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Fail 写入错误响应，status 为 0 时使用 500。
func Fail(c *gin.Context, status int, code ErrorCode, message string, details any) {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	resp := Response{
		Success: false,
		Error:   &Error{Code: code, Message: message},
	}
	if details != nil {
		resp.Error.Details = details
	}
	c.JSON(status, resp)
}

// Internal 写入通用 500 响应，不暴露内部错误信息。
func Internal(c *gin.Context) {
	Fail(c, http.StatusInternalServerError, ErrInternal, "internal server error", nil)
}
