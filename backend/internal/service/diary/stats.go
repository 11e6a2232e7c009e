package diary

import (
	"context"
	"fmt"
	"strings"

	domain "mood-diary/backend/internal/domain/diary"
)

// periodDays 记录各统计周期对应的天数。
var periodDays = map[string]int{
	"week":  7,
	"month": 30,
	"year":  365,
}

// Periods 按展示顺序列出支持的统计周期。
var Periods = []string{"week", "month", "year"}

// MoodStats 是某个日期窗口内的情绪统计。
type MoodStats struct {
	Period     string         `json:"period"`
	StartDate  string         `json:"start_date"`
	EndDate    string         `json:"end_date"`
	MoodCounts map[string]int `json:"mood_counts"`
}

// MoodCounts 统计日期位于 [today-N, today] 内的日记情绪，
// week、month、year 分别对应 N 为 7、30、365。
func (s *Service) MoodCounts(ctx context.Context, ownerID uint, period string) (MoodStats, error) {
	days, ok := periodDays[period]
	if !ok {
		return MoodStats{}, newValidationError("period", "period must be one of "+strings.Join(Periods, ", "))
	}

	end := s.Today()
	start := end.AddDate(0, 0, -days)
	stats := MoodStats{
		Period:     period,
		StartDate:  formatDay(start),
		EndDate:    formatDay(end),
		MoodCounts: map[string]int{},
	}

	records, err := s.entries.ListBetween(ctx, ownerID, stats.StartDate, stats.EndDate)
	if err != nil {
		s.scope("mood_counts").Errorw("list entries failed", "error", err, "owner_id", ownerID)
		return MoodStats{}, fmt.Errorf("list entries: %w", err)
	}

	for i := range records {
		moods, err := domain.DecodeMoods(records[i].Moods)
		if err != nil {
			return MoodStats{}, fmt.Errorf("decode moods: %w", err)
		}
		for _, mood := range moods {
			stats.MoodCounts[mood]++
		}
	}
	return stats, nil
}

