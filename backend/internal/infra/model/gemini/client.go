package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// defaultBaseURL 是 Generative Language API 的根地址。
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModel 在未配置模型时使用。
	DefaultModel   = "gemini-2.0-flash"
	defaultTimeout = 30 * time.Second
)

// Client 通过 HTTP 调用 Gemini generateContent 接口。
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option 用于定制 Client。
type Option func(*Client)

// WithBaseURL 覆盖接口根地址，主要用于测试。
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient 注入请求使用的 http.Client。
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithModel 设置请求未指定模型时的默认模型。
func WithModel(model string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(model); trimmed != "" {
			c.model = trimmed
		}
	}
}

// WithRateLimiter 对外部调用限速，每次请求都需等待令牌。
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// NewClient 创建客户端，默认超时 30 秒。
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultBaseURL,
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	return client
}

// Model 返回默认模型名。
func (c *Client) Model() string {
	return c.model
}

// APIError 是接口返回的错误结构。
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Status != "" {
		return fmt.Sprintf("gemini api error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini api error %d: %s", e.StatusCode, e.Message)
}

// GenerateContent 发送请求并解析响应，提示词被安全策略拦截时返回错误。
func (c *Client) GenerateContent(ctx context.Context, req GenerateContentRequest) (GenerateContentResponse, error) {
	if c == nil {
		return GenerateContentResponse{}, fmt.Errorf("gemini client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if len(req.Contents) == 0 {
		return GenerateContentResponse{}, fmt.Errorf("contents must not be empty")
	}
	if c.apiKey == "" {
		return GenerateContentResponse{}, fmt.Errorf("gemini api key not configured")
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return GenerateContentResponse{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return GenerateContentResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return GenerateContentResponse{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return GenerateContentResponse{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return GenerateContentResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return GenerateContentResponse{}, parseAPIError(resp.StatusCode, rawBody)
	}

	var out GenerateContentResponse
	if err := json.Unmarshal(rawBody, &out); err != nil {
		return GenerateContentResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return out, fmt.Errorf("prompt blocked: %s", out.PromptFeedback.BlockReason)
	}
	return out, nil
}

func parseAPIError(status int, payload []byte) error {
	var env struct {
		Error APIError `json:"error"`
	}
	if len(payload) == 0 || json.Unmarshal(payload, &env) != nil || env.Error.Message == "" {
		return &APIError{
			StatusCode: status,
			Message:    strings.TrimSpace(fmt.Sprintf("status %d %s", status, string(payload))),
		}
	}
	env.Error.StatusCode = status
	return &env.Error
}
