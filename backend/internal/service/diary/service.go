package diary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	domain "mood-diary/backend/internal/domain/diary"
	appLogger "mood-diary/backend/internal/infra/logger"
	"mood-diary/backend/internal/infra/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// MaxTitleLength 是标题的最大字符数。
	MaxTitleLength = 100
	// MinContentLength 是正文去除空白后的最少字符数。
	MinContentLength = 20
)

// Store 是服务依赖的持久化接口，*repository.DiaryRepository 实现了该接口。
type Store interface {
	Create(ctx context.Context, entry *domain.Entry) error
	ExistsForDate(ctx context.Context, ownerID uint, date string) (bool, error)
	FindByID(ctx context.Context, ownerID uint, id string) (*domain.Entry, error)
	ListDates(ctx context.Context, ownerID uint) ([]domain.DateRef, error)
	ListBetween(ctx context.Context, ownerID uint, from, to string) ([]domain.Entry, error)
	Search(ctx context.Context, ownerID uint, query string) ([]domain.Entry, error)
	Delete(ctx context.Context, ownerID uint, id string) error
}

// Service 为已登录会员提供日记相关操作。
type Service struct {
	entries  Store
	now      func() time.Time
	location *time.Location
	logger   *zap.SugaredLogger
}

// Option 用于定制 Service。
type Option func(*Service)

// WithClock 替换时钟，主要用于测试。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation 设置判断“今天”所用的时区。
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// NewService 基于日记存储创建服务。
func NewService(entries Store, opts ...Option) *Service {
	s := &Service{
		entries:  entries,
		now:      time.Now,
		location: time.Local,
		logger:   appLogger.S().With("component", "diary.service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Entry 是日记对外返回的视图。
type Entry struct {
	ID               string        `json:"id"`
	Date             string        `json:"date"`
	Title            string        `json:"title"`
	Content          string        `json:"content"`
	Moods            []string      `json:"moods"`
	RecommendedTrack *domain.Track `json:"recommended_track"`
	CreatedAt        time.Time     `json:"created_at"`
}

// CreateParams 是创建日记的原始输入，Date 支持 NormalizeDate 接受的所有类型。
type CreateParams struct {
	Title            string
	Content          string
	Moods            []string
	Date             any
	RecommendedTrack *domain.Track
}

// Create 校验输入，保证每天只有一篇日记，然后写入存储。
func (s *Service) Create(ctx context.Context, ownerID uint, params CreateParams) (Entry, error) {
	log := s.scope("create").With("owner_id", ownerID)

	title := strings.TrimSpace(params.Title)
	verr := &ValidationError{}
	switch {
	case title == "":
		verr.add("title", "title is required")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		verr.add("title", fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}
	if strings.TrimSpace(params.Content) == "" {
		verr.add("content", "content is required")
	} else if countVisible(params.Content) < MinContentLength {
		verr.add("content", fmt.Sprintf("content must contain at least %d non-whitespace characters", MinContentLength))
	}
	if !verr.empty() {
		log.Infow("create rejected", "fields", verr.Fields)
		metrics.RecordDiaryWrite("invalid")
		return Entry{}, verr
	}

	day, err := s.NormalizeDate(params.Date)
	if err != nil {
		log.Infow("create rejected by date", "error", err)
		metrics.RecordDiaryWrite("invalid_date")
		return Entry{}, err
	}
	date := formatDay(day)
	log = log.With("entry_date", date)

	exists, err := s.entries.ExistsForDate(ctx, ownerID, date)
	if err != nil {
		log.Errorw("check existing entry failed", "error", err)
		return Entry{}, fmt.Errorf("check existing entry: %w", err)
	}
	if exists {
		log.Infow("entry already exists")
		metrics.RecordDiaryWrite("conflict")
		return Entry{}, ErrEntryExists
	}

	moods, err := domain.EncodeMoods(cleanMoods(params.Moods))
	if err != nil {
		return Entry{}, fmt.Errorf("encode moods: %w", err)
	}
	track, err := domain.EncodeTrack(params.RecommendedTrack)
	if err != nil {
		return Entry{}, fmt.Errorf("encode track: %w", err)
	}

	record := &domain.Entry{
		ID:               uuid.NewString(),
		OwnerID:          ownerID,
		EntryDate:        date,
		Title:            title,
		Content:          params.Content,
		Moods:            moods,
		RecommendedTrack: track,
	}
	if err := s.entries.Create(ctx, record); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Infow("entry inserted concurrently")
			metrics.RecordDiaryWrite("conflict")
			return Entry{}, ErrEntryExists
		}
		log.Errorw("insert entry failed", "error", err)
		metrics.RecordDiaryWrite("error")
		return Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	metrics.RecordDiaryWrite("created")
	log.Infow("entry created", "entry_id", record.ID)
	return toView(record)
}

// Get 返回会员自己的日记，他人的日记按不存在处理。
func (s *Service) Get(ctx context.Context, ownerID uint, id string) (Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Entry{}, ErrEntryNotFound
	}
	record, err := s.entries.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, fmt.Errorf("find entry: %w", err)
	}
	return toView(record)
}

// ListDates 按日期顺序列出会员全部 (date, id)。
func (s *Service) ListDates(ctx context.Context, ownerID uint) ([]domain.DateRef, error) {
	refs, err := s.entries.ListDates(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list entry dates: %w", err)
	}
	return refs, nil
}

// Delete 物理删除会员自己的日记。
func (s *Service) Delete(ctx context.Context, ownerID uint, id string) error {
	log := s.scope("delete").With("owner_id", ownerID, "entry_id", id)

	if _, err := uuid.Parse(id); err != nil {
		return ErrEntryNotFound
	}
	if err := s.entries.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntryNotFound
		}
		log.Errorw("delete entry failed", "error", err)
		return fmt.Errorf("delete entry: %w", err)
	}
	log.Infow("entry deleted")
	return nil
}

// Search 查找标题或正文包含关键词的日记。
func (s *Service) Search(ctx context.Context, ownerID uint, query string) ([]Entry, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, newValidationError("q", "search query is required")
	}

	records, err := s.entries.Search(ctx, ownerID, q)
	if err != nil {
		s.scope("search").Errorw("search entries failed", "error", err, "owner_id", ownerID)
		return nil, fmt.Errorf("search entries: %w", err)
	}
	return toViews(records)
}

func (s *Service) scope(operation string) *zap.SugaredLogger {
	if s.logger == nil {
		s.logger = appLogger.S().With("component", "diary.service")
	}
	return s.logger.With("operation", operation)
}

func toView(record *domain.Entry) (Entry, error) {
	moods, err := domain.DecodeMoods(record.Moods)
	if err != nil {
		return Entry{}, fmt.Errorf("decode moods: %w", err)
	}
	track, err := domain.DecodeTrack(record.RecommendedTrack)
	if err != nil {
		return Entry{}, fmt.Errorf("decode track: %w", err)
	}
	return Entry{
		ID:               record.ID,
		Date:             record.EntryDate,
		Title:            record.Title,
		Content:          record.Content,
		Moods:            moods,
		RecommendedTrack: track,
		CreatedAt:        record.CreatedAt,
	}, nil
}

func toViews(records []domain.Entry) ([]Entry, error) {
	out := make([]Entry, 0, len(records))
	for i := range records {
		view, err := toView(&records[i])
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

func countVisible(text string) int {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// cleanMoods 去除首尾空白并丢弃空项，重复项按原顺序保留。
func cleanMoods(moods []string) []string {
	out := make([]string, 0, len(moods))
	for _, m := range moods {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
