package diary

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrEntryNotFound 同时覆盖日记不存在与不属于当前会员两种情况。
	ErrEntryNotFound = errors.New("diary entry not found")
	// ErrEntryExists 表示该日期已写过日记。
	ErrEntryExists = errors.New("a diary entry already exists for this date")
	// ErrFutureDate 拒绝晚于今天的日期。
	ErrFutureDate = errors.New("entry date cannot be in the future")
	// 所有 *ValidationError 都可通过 errors.Is 匹配 ErrValidation。
	ErrValidation = errors.New("validation failed")
)

// ValidationError 按字段记录校验失败信息。
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

func (e *ValidationError) empty() bool {
	return e == nil || len(e.Fields) == 0
}

// Error 按字段名顺序拼接信息，保证输出稳定。
func (e *ValidationError) Error() string {
	if e.empty() {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// Is 支持 errors.Is(err, ErrValidation)。
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
