package recommend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mood-diary/backend/internal/domain/diary"
	appLogger "mood-diary/backend/internal/infra/logger"
	"mood-diary/backend/internal/infra/metrics"
	"mood-diary/backend/internal/infra/model/gemini"
	"mood-diary/backend/internal/infra/ratelimit"
	"mood-diary/backend/internal/infra/youtube"

	"go.uber.org/zap"
)

const minMoods = 2

var (
	ErrContentRequired  = errors.New("diary content is required")
	ErrMoodsRequired    = errors.New("at least one mood is required")
	ErrMoodsUnavailable = errors.New("moods could not be extracted from the diary")
	ErrUpstream         = errors.New("generative model returned an unusable answer")
	ErrNotConfigured    = errors.New("ai features are not configured")
	ErrRateLimited      = errors.New("too many ai requests")
)

// RateLimitError 携带被拒绝调用的等待时长，可用 errors.Is 匹配 ErrRateLimited。
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrRateLimited.Error(), e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// TextGenerator 是生成式模型，*gemini.Client 实现了该接口。
type TextGenerator interface {
	GenerateContent(ctx context.Context, req gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error)
	Model() string
}

// VideoFinder 把歌曲解析为视频，*youtube.Client 实现了该接口。
type VideoFinder interface {
	FindVideo(ctx context.Context, title, artist string) (youtube.Video, error)
}

// GenreSource 提供会员保存的偏好曲风。
type GenreSource interface {
	FavoriteGenres(ctx context.Context, memberID uint) ([]string, error)
}

// Quota 是两个 AI 接口共用的单会员额度。
type Quota struct {
	Limit  int
	Window time.Duration
}

// Service 从日记中提取情绪，并据此推荐可播放的歌曲。
type Service struct {
	generator TextGenerator
	videos    VideoFinder
	genres    GenreSource
	limiter   ratelimit.Limiter
	quota     Quota
	logger    *zap.SugaredLogger
}

// NewService 创建推荐服务。未配置密钥时 generator 与 videos 可为 nil，
// 此时相关操作返回 ErrNotConfigured。
func NewService(generator TextGenerator, videos VideoFinder, genres GenreSource, limiter ratelimit.Limiter, quota Quota) *Service {
	return &Service{
		generator: generator,
		videos:    videos,
		genres:    genres,
		limiter:   limiter,
		quota:     quota,
		logger:    appLogger.S().With("component", "recommend.service"),
	}
}

// ExtractMoods 请求模型分析日记文本中的情绪。
func (s *Service) ExtractMoods(ctx context.Context, memberID uint, content string) ([]string, error) {
	log := s.scope("extract_moods").With("member_id", memberID)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrContentRequired
	}
	if s.generator == nil {
		return nil, ErrNotConfigured
	}
	if err := s.allow(ctx, memberID); err != nil {
		return nil, err
	}

	text, err := s.generate(ctx, "extract_moods", moodPrompt(content))
	if err != nil {
		log.Warnw("mood generation failed", "error", err)
		return nil, err
	}
	if strings.Contains(text, moodUnavailable) {
		log.Infow("model declined to extract moods")
		return nil, ErrMoodsUnavailable
	}

	moods := parseMoods(text)
	if len(moods) < minMoods {
		log.Warnw("too few moods in model answer", "answer", text)
		return nil, fmt.Errorf("%w: got %d moods", ErrUpstream, len(moods))
	}
	log.Infow("moods extracted", "count", len(moods))
	return moods, nil
}

// RecommendMusic 根据情绪推荐至多三首歌并逐一解析为视频。
// genres 为 nil 时使用会员保存的偏好，找不到视频的歌曲会被跳过。
func (s *Service) RecommendMusic(ctx context.Context, memberID uint, moods []string, genres []string) ([]diary.Track, error) {
	log := s.scope("recommend_music").With("member_id", memberID)

	moods = compact(moods)
	if len(moods) == 0 {
		return nil, ErrMoodsRequired
	}
	if s.generator == nil || s.videos == nil {
		return nil, ErrNotConfigured
	}
	if genres == nil && s.genres != nil {
		stored, err := s.genres.FavoriteGenres(ctx, memberID)
		if err != nil {
			return nil, fmt.Errorf("load favorite genres: %w", err)
		}
		genres = stored
	}
	genres = compact(genres)

	if err := s.allow(ctx, memberID); err != nil {
		return nil, err
	}

	text, err := s.generate(ctx, "recommend_music", musicPrompt(moods, genres))
	if err != nil {
		log.Warnw("music generation failed", "error", err)
		return nil, err
	}
	suggestions := parseSuggestions(text)
	if len(suggestions) == 0 {
		log.Warnw("no songs in model answer", "answer", text)
		return nil, fmt.Errorf("%w: no songs suggested", ErrUpstream)
	}

	tracks := make([]diary.Track, 0, len(suggestions))
	for _, sug := range suggestions {
		start := time.Now()
		video, err := s.videos.FindVideo(ctx, sug.Title, sug.Artist)
		if err != nil {
			status := "error"
			if errors.Is(err, youtube.ErrNoResults) {
				status = "not_found"
			}
			metrics.ObserveVideoLookup(status, time.Since(start))
			log.Warnw("video lookup failed", "title", sug.Title, "artist", sug.Artist, "error", err)
			continue
		}
		metrics.ObserveVideoLookup("ok", time.Since(start))
		tracks = append(tracks, diary.Track{
			VideoID:   video.ID,
			Title:     sug.Title,
			Artist:    sug.Artist,
			Thumbnail: video.Thumbnail,
			EmbedURL:  video.EmbedURL,
		})
	}
	log.Infow("music recommended", "suggested", len(suggestions), "resolved", len(tracks))
	return tracks, nil
}

func (s *Service) generate(ctx context.Context, operation, prompt string) (string, error) {
	start := time.Now()
	resp, err := s.generator.GenerateContent(ctx, gemini.UserPrompt(prompt))
	if err != nil {
		metrics.ObserveModelCall(operation, "error", s.generator.Model(), time.Since(start), nil)
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	metrics.ObserveModelCall(operation, "ok", s.generator.Model(), time.Since(start), resp.UsageMetadata)

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty answer", ErrUpstream)
	}
	return text, nil
}

func (s *Service) allow(ctx context.Context, memberID uint) error {
	if s.limiter == nil || s.quota.Limit <= 0 {
		return nil
	}
	res, err := s.limiter.Allow(ctx, "ai:member:"+strconv.FormatUint(uint64(memberID), 10), s.quota.Limit, s.quota.Window)
	if err != nil {
		// 限流器故障时放行。
		s.scope("rate_limit").Warnw("rate limiter failed", "error", err)
		return nil
	}
	if !res.Allowed {
		return &RateLimitError{RetryAfter: res.RetryAfter}
	}
	return nil
}

func (s *Service) scope(operation string) *zap.SugaredLogger {
	if s.logger == nil {
		s.logger = appLogger.S().With("component", "recommend.service")
	}
	return s.logger.With("operation", operation)
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
