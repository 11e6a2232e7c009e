package diary

import (
	"regexp"
	"strings"
	"time"

	domain "mood-diary/backend/internal/domain/diary"
)

var dateFormat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Today 返回服务时区下当天的零点。
func (s *Service) Today() time.Time {
	return truncateToDay(s.now(), s.location)
}

// NormalizeDate 把调用方传入的日期归一为日历日。
//
// 支持 nil（当天）、YYYY-MM-DD 字符串或 time 值，time 值按服务时区截断到当天。
// 格式错误返回 "date" 字段的 *ValidationError，晚于今天返回 ErrFutureDate。
func (s *Service) NormalizeDate(value any) (time.Time, error) {
	today := s.Today()

	var day time.Time
	switch v := value.(type) {
	case nil:
		return today, nil
	case string:
		parsed, err := s.parseDay(v)
		if err != nil {
			return time.Time{}, err
		}
		day = parsed
	case *string:
		if v == nil {
			return today, nil
		}
		parsed, err := s.parseDay(*v)
		if err != nil {
			return time.Time{}, err
		}
		day = parsed
	case time.Time:
		if v.IsZero() {
			return today, nil
		}
		day = truncateToDay(v, s.location)
	case *time.Time:
		if v == nil || v.IsZero() {
			return today, nil
		}
		day = truncateToDay(*v, s.location)
	default:
		return time.Time{}, newValidationError("date", "date must be a string in YYYY-MM-DD format")
	}

	if day.After(today) {
		return time.Time{}, ErrFutureDate
	}
	return day, nil
}

func (s *Service) parseDay(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if !dateFormat.MatchString(trimmed) {
		return time.Time{}, newValidationError("date", "date must use the YYYY-MM-DD format")
	}
	day, err := time.ParseInLocation(domain.DateLayout, trimmed, s.location)
	if err != nil {
		return time.Time{}, newValidationError("date", "date is not a valid calendar day")
	}
	return day, nil
}

func truncateToDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	year, month, day := local.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func formatDay(t time.Time) string {
	return t.Format(domain.DateLayout)
}
