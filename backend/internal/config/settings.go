package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	// ModeLocal 使用 SQLite 文件，令牌与限流均存放在进程内。
	ModeLocal = "local"
	// ModeOnline 使用 MySQL 与 Redis。
	ModeOnline = "online"

	defaultLocalDBRelPath = "data/mood-diary.db"
	defaultTimezone       = "Asia/Seoul"
)

// Settings 是完整的运行时配置，启动时解析一次。
type Settings struct {
	Mode       string
	SQLitePath string
	Location   *time.Location

	Server    ServerSettings
	MySQL     MySQLSettings
	Redis     RedisSettings
	JWT       JWTSettings
	Kakao     OAuthProviderSettings
	Naver     OAuthProviderSettings
	Gemini    GeminiSettings
	YouTube   YouTubeSettings
	AILimit   RateLimitSettings
	AuthLimit RateLimitSettings
}

type ServerSettings struct {
	Port         string
	CORSOrigins  []string
	ShutdownWait time.Duration
}

type MySQLSettings struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type RedisSettings struct {
	Endpoint string
	Password string
	DB       int
}

type JWTSettings struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	SignupTTL  time.Duration
}

type OAuthProviderSettings struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled 判断该登录渠道是否配置了凭证。
func (o OAuthProviderSettings) Enabled() bool {
	return o.ClientID != "" && o.ClientSecret != ""
}

type GeminiSettings struct {
	APIKey  string
	Model   string
	BaseURL string
	// RPS 限制对外调用频率，0 表示不限制。
	RPS float64
}

type YouTubeSettings struct {
	APIKey string
	RPS    float64
}

// RateLimitSettings 描述固定窗口内的调用额度。
// AILimit 按会员计数，情绪提取与音乐推荐共用；AuthLimit 按客户端 IP 作用于 /api/auth。
type RateLimitSettings struct {
	Limit  int
	Window time.Duration
}

// Load 先加载 env 文件，再从进程环境变量解析 Settings。
func Load() (Settings, error) {
	LoadEnvFiles()

	s := Settings{
		Mode:       strings.ToLower(envString("APP_MODE", ModeOnline)),
		SQLitePath: normalisePath(envString("LOCAL_SQLITE_PATH", defaultLocalDBRelPath)),
		Server: ServerSettings{
			Port:        envString("SERVER_PORT", "8080"),
			CORSOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		MySQL: MySQLSettings{
			Host:     envString("MYSQL_HOST", "127.0.0.1"),
			User:     envString("MYSQL_USER", "root"),
			Password: os.Getenv("MYSQL_PASSWORD"),
			Database: envString("MYSQL_DATABASE", "mood_diary"),
		},
		Redis: RedisSettings{
			Endpoint: envString("REDIS_ENDPOINT", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		JWT: JWTSettings{
			Secret: strings.TrimSpace(os.Getenv("JWT_SECRET")),
		},
		Kakao: OAuthProviderSettings{
			ClientID:     envString("KAKAO_CLIENT_ID", ""),
			ClientSecret: envString("KAKAO_CLIENT_SECRET", ""),
			RedirectURL:  envString("KAKAO_REDIRECT_URL", ""),
		},
		Naver: OAuthProviderSettings{
			ClientID:     envString("NAVER_CLIENT_ID", ""),
			ClientSecret: envString("NAVER_CLIENT_SECRET", ""),
			RedirectURL:  envString("NAVER_REDIRECT_URL", ""),
		},
		Gemini: GeminiSettings{
			APIKey:  envString("GEMINI_API_KEY", ""),
			Model:   envString("GEMINI_MODEL", ""),
			BaseURL: envString("GEMINI_BASE_URL", ""),
		},
		YouTube: YouTubeSettings{
			APIKey: envString("YOUTUBE_API_KEY", ""),
		},
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	s.Server.ShutdownWait, err = envDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)
	collect(err)
	s.MySQL.Port, err = envInt("MYSQL_PORT", 3306)
	collect(err)
	s.Redis.DB, err = envInt("REDIS_DB", 0)
	collect(err)
	s.JWT.AccessTTL, err = envDuration("JWT_ACCESS_TTL", 24*time.Hour)
	collect(err)
	s.JWT.RefreshTTL, err = envDuration("JWT_REFRESH_TTL", 7*24*time.Hour)
	collect(err)
	s.JWT.SignupTTL, err = envDuration("JWT_SIGNUP_TTL", 30*time.Minute)
	collect(err)
	s.Gemini.RPS, err = envFloat("GEMINI_RPS", 2)
	collect(err)
	s.YouTube.RPS, err = envFloat("YOUTUBE_RPS", 5)
	collect(err)
	s.AILimit.Limit, err = envInt("AI_RATE_LIMIT", 20)
	collect(err)
	s.AILimit.Window, err = envDuration("AI_RATE_WINDOW", time.Hour)
	collect(err)
	s.AuthLimit.Limit, err = envInt("AUTH_RATE_LIMIT", 30)
	collect(err)
	s.AuthLimit.Window, err = envDuration("AUTH_RATE_WINDOW", time.Minute)
	collect(err)

	tz := envString("APP_TIMEZONE", defaultTimezone)
	s.Location, err = time.LoadLocation(tz)
	if err != nil {
		collect(fmt.Errorf("APP_TIMEZONE %q: %w", tz, err))
	}

	if s.Mode != ModeOnline && s.Mode != ModeLocal {
		collect(fmt.Errorf("APP_MODE must be %q or %q, got %q", ModeOnline, ModeLocal, s.Mode))
	}
	if s.JWT.Secret == "" {
		collect(errors.New("JWT_SECRET is required"))
	}

	if len(errs) > 0 {
		return Settings{}, errors.Join(errs...)
	}
	return s, nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// normalisePath 展开 ~ 并把相对路径转为绝对路径。
func normalisePath(raw string) string {
	if raw == "" {
		return raw
	}
	if strings.HasPrefix(raw, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			raw = filepath.Join(home, strings.TrimPrefix(raw, "~"))
		}
	}
	if filepath.IsAbs(raw) {
		return raw
	}
	if abs, err := filepath.Abs(raw); err == nil {
		return abs
	}
	return raw
}
