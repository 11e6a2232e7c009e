// Package youtube 通过 YouTube Data API v3 把推荐歌曲解析为可播放的视频。
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

const (
	embedURLPrefix = "https://www.youtube.com/embed/"
	defaultTimeout = 10 * time.Second
)

// ErrNoResults 表示未检索到视频。
var ErrNoResults = errors.New("youtube: no video found")

// Video 是检索结果中日记需要保存的字段。
type Video struct {
	ID        string
	Title     string
	Thumbnail string
	EmbedURL  string
}

// Client 封装生成的检索客户端。
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	service    *ytapi.Service
}

// Option 用于配置 Client。
type Option func(*Client)

// WithEndpoint 覆盖接口根地址，便于对接测试服务。
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient 替换 HTTP 客户端。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimiter 对检索请求限速。
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// NewClient 创建检索客户端，API Key 在每次调用时作为查询参数携带。
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("youtube: api key is required")
	}
	c := &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(c.httpClient)}
	if c.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(c.endpoint))
	}
	svc, err := ytapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("youtube: create service: %w", err)
	}
	c.service = svc
	return c, nil
}

// FindVideo 返回 "{title} {artist} official" 的首个视频。
func (c *Client) FindVideo(ctx context.Context, title, artist string) (Video, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Video{}, fmt.Errorf("youtube: rate limiter: %w", err)
		}
	}

	query := strings.TrimSpace(fmt.Sprintf("%s %s official", strings.TrimSpace(title), strings.TrimSpace(artist)))
	resp, err := c.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(1).
		Context(ctx).
		Do(googleapi.QueryParameter("key", c.apiKey))
	if err != nil {
		return Video{}, fmt.Errorf("youtube: search %q: %w", query, err)
	}

	for _, item := range resp.Items {
		if item == nil || item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		video := Video{
			ID:       item.Id.VideoId,
			EmbedURL: embedURLPrefix + item.Id.VideoId,
		}
		if item.Snippet != nil {
			video.Title = item.Snippet.Title
			video.Thumbnail = pickThumbnail(item.Snippet.Thumbnails)
		}
		return video, nil
	}
	return Video{}, ErrNoResults
}

// pickThumbnail 依次选择 high、medium、default 分辨率的缩略图。
func pickThumbnail(th *ytapi.ThumbnailDetails) string {
	if th == nil {
		return ""
	}
	for _, t := range []*ytapi.Thumbnail{th.High, th.Medium, th.Default} {
		if t != nil && t.Url != "" {
			return t.Url
		}
	}
	return ""
}
