// Package oauth 实现各社交渠道的授权码登录及随后的资料查询。
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultTimeout  = 10 * time.Second
	maxProfileBytes = 1 << 20
)

var (
	// ErrUnknownProvider 表示不支持的登录渠道。
	ErrUnknownProvider = errors.New("oauth: unknown provider")
	// ErrExchange 包装授权码换取令牌时的错误。
	ErrExchange = errors.New("oauth: code exchange failed")
	// ErrProfile 包装资料查询的错误。
	ErrProfile = errors.New("oauth: profile request failed")
)

// Profile 是登录后获得的第三方账号资料。
type Profile struct {
	Provider     string
	ID           string
	Email        string
	ProfileImage string
}

// Provider 表示一个社交登录渠道。
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Authenticate(ctx context.Context, code string) (Profile, error)
}

// Credentials 是在第三方平台注册应用得到的凭证。
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Option 用于定制登录渠道。
type Option func(*codeFlow)

// WithHTTPClient 替换换取令牌与查询资料共用的 HTTP 客户端。
func WithHTTPClient(hc *http.Client) Option {
	return func(f *codeFlow) {
		if hc != nil {
			f.httpClient = hc
		}
	}
}

// WithEndpoints 覆盖渠道地址，便于对接测试服务。
func WithEndpoints(authURL, tokenURL, profileURL string) Option {
	return func(f *codeFlow) {
		f.config.Endpoint.AuthURL = authURL
		f.config.Endpoint.TokenURL = tokenURL
		f.profileURL = profileURL
	}
}

// codeFlow 是各渠道共用的授权码流程，差异只在地址与资料解析。
type codeFlow struct {
	name         string
	config       *oauth2.Config
	profileURL   string
	httpClient   *http.Client
	parseProfile func(raw []byte) (Profile, error)
}

func newCodeFlow(name string, creds Credentials, endpoint oauth2.Endpoint, profileURL string, parse func([]byte) (Profile, error), opts []Option) *codeFlow {
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	f := &codeFlow{
		name: name,
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Endpoint:     endpoint,
		},
		profileURL:   profileURL,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		parseProfile: parse,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *codeFlow) Name() string {
	return f.name
}

func (f *codeFlow) AuthCodeURL(state string) string {
	return f.config.AuthCodeURL(state)
}

// Authenticate 换取令牌后用新令牌查询账号资料。
func (f *codeFlow) Authenticate(ctx context.Context, code string) (Profile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)

	token, err := f.config.Exchange(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %s: %v", ErrExchange, f.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.profileURL, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %s: %v", ErrProfile, f.name, err)
	}
	token.SetAuthHeader(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %s: %v", ErrProfile, f.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %s: read body: %v", ErrProfile, f.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("%w: %s: status %d", ErrProfile, f.name, resp.StatusCode)
	}

	profile, err := f.parseProfile(raw)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %s: %v", ErrProfile, f.name, err)
	}
	if profile.ID == "" {
		return Profile{}, fmt.Errorf("%w: %s: missing account id", ErrProfile, f.name)
	}
	profile.Provider = f.name
	return profile, nil
}

// Registry 按名称查找登录渠道。
type Registry struct {
	providers map[string]Provider
}

// NewRegistry 按 Name 建立渠道索引。
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// Get 返回 name 对应的登录渠道。
func (r *Registry) Get(name string) (Provider, error) {
	if r != nil {
		if p, ok := r.providers[name]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

func decodeJSON(raw []byte, out any) error {
	return json.Unmarshal(raw, out)
}
