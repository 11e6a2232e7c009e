/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 20:40:06
 * @FilePath: \mood-diary\backend\internal\service\auth\service.go
 * @LastEditTime: 2025-11-02 23:11:37
 */
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mood-diary/backend/internal/domain/member"
	appLogger "mood-diary/backend/internal/infra/logger"
	"mood-diary/backend/internal/infra/metrics"
	"mood-diary/backend/internal/infra/oauth"
	"mood-diary/backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUnknownProvider      = errors.New("unsupported login provider")
	ErrCodeRequired         = errors.New("authorization code is required")
	ErrProviderFailed       = errors.New("social login provider request failed")
	ErrEmailRequired        = errors.New("the provider account has no email")
	ErrEmailTaken           = errors.New("email already registered with another account")
	ErrSignupTokenInvalid   = errors.New("signup token is invalid or expired")
	ErrAlreadyRegistered    = errors.New("member already registered")
	ErrNicknameTaken        = errors.New("nickname already taken")
	ErrMemberInactive       = errors.New("member has not completed registration")
	ErrRefreshTokenInvalid  = errors.New("refresh token is invalid")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrRefreshTokenRevoked  = errors.New("refresh token revoked")
	ErrRefreshTokenRequired = errors.New("refresh token is required")
)

// TokenPair 是下发给已登录会员的凭证，RefreshTokenID 与 RefreshTokenExpiresAt 仅在服务端使用。
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	ExpiresIn             int64     `json:"expires_in"` // seconds
	RefreshTokenID        string    `json:"-"`
	RefreshTokenExpiresAt time.Time `json:"-"`
}

// RefreshTokenClaims 是 refresh token 解析后的内容。
type RefreshTokenClaims struct {
	MemberID  uint
	TokenID   string
	ExpiresAt time.Time
}

// TokenManager 负责签发与解析会员令牌。
type TokenManager interface {
	GenerateTokens(ctx context.Context, m *member.Member) (TokenPair, error)
	ParseRefreshToken(token string) (RefreshTokenClaims, error)
	GenerateSignupToken(m *member.Member) (string, time.Time, error)
	ParseSignupToken(token string) (uint, error)
}

// RefreshTokenStore 记录仍然有效的 refresh token。
type RefreshTokenStore interface {
	Save(ctx context.Context, memberID uint, tokenID string, expiresAt time.Time) error
	Delete(ctx context.Context, memberID uint, tokenID string) error
	Exists(ctx context.Context, memberID uint, tokenID string) (bool, error)
	RevokeAll(ctx context.Context, memberID uint) error
}

// ProviderRegistry 按名称查找社交登录渠道。
type ProviderRegistry interface {
	Get(name string) (oauth.Provider, error)
}

// Service 负责社交登录、注册与令牌生命周期。
type Service struct {
	members      *repository.MemberRepository
	providers    ProviderRegistry
	tokenManager TokenManager
	refreshStore RefreshTokenStore
	now          func() time.Time
	logger       *zap.SugaredLogger
}

// NewService 创建认证服务。
func NewService(members *repository.MemberRepository, providers ProviderRegistry, tm TokenManager, store RefreshTokenStore) *Service {
	return &Service{
		members:      members,
		providers:    providers,
		tokenManager: tm,
		refreshStore: store,
		now:          time.Now,
		logger:       appLogger.S().With("component", "auth.service"),
	}
}

// LoginResult 是 OAuth 回调的结果：已注册会员获得 Tokens，新会员获得 SignupToken 用于完成注册。
type LoginResult struct {
	Registered      bool           `json:"registered"`
	Member          *member.Member `json:"member"`
	Tokens          *TokenPair     `json:"tokens,omitempty"`
	SignupToken     string         `json:"signup_token,omitempty"`
	SignupExpiresAt *time.Time     `json:"signup_expires_at,omitempty"`
}

// AuthCodeURL 返回第三方授权页地址。
func (s *Service) AuthCodeURL(providerName, state string) (string, error) {
	provider, err := s.providers.Get(providerName)
	if err != nil {
		return "", ErrUnknownProvider
	}
	return provider.AuthCodeURL(state), nil
}

// SocialLogin 完成 providerName 的授权码流程。
//
// 会员通过第三方账号 ID 定位；首次登录的账号以未激活状态保存，
// 若邮箱已属于其他会员则拒绝。
func (s *Service) SocialLogin(ctx context.Context, providerName, code string) (LoginResult, error) {
	log := s.scope("social_login").With("provider", providerName)

	if strings.TrimSpace(code) == "" {
		return LoginResult{}, ErrCodeRequired
	}
	provider, err := s.providers.Get(providerName)
	if err != nil {
		log.Warnw("unknown provider")
		return LoginResult{}, ErrUnknownProvider
	}

	profile, err := provider.Authenticate(ctx, code)
	if err != nil {
		log.Warnw("provider authentication failed", "error", err)
		metrics.RecordSocialLogin(providerName, "provider_error")
		return LoginResult{}, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	log = log.With("provider_user_id", profile.ID)

	m, err := s.members.FindByProviderUserID(ctx, providerName, profile.ID)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		m, err = s.createPending(ctx, providerName, profile)
		if err != nil {
			metrics.RecordSocialLogin(providerName, "rejected")
			return LoginResult{}, err
		}
		log.Infow("pending member created", "member_id", m.ID)
	default:
		log.Errorw("find member failed", "error", err)
		return LoginResult{}, fmt.Errorf("find member: %w", err)
	}

	if !m.IsActive {
		signup, exp, err := s.tokenManager.GenerateSignupToken(m)
		if err != nil {
			log.Errorw("generate signup token failed", "error", err)
			return LoginResult{}, fmt.Errorf("generate signup token: %w", err)
		}
		metrics.RecordSocialLogin(providerName, "signup")
		return LoginResult{Registered: false, Member: m, SignupToken: signup, SignupExpiresAt: &exp}, nil
	}

	now := s.now()
	m.LastLoginAt = &now
	if profile.ProfileImage != "" {
		m.ProfileImage = profile.ProfileImage
	}
	if err := s.members.Update(ctx, m); err != nil {
		log.Errorw("update last login failed", "error", err, "member_id", m.ID)
		return LoginResult{}, fmt.Errorf("update last login: %w", err)
	}

	tokens, err := s.issueAndStoreTokens(ctx, m)
	if err != nil {
		return LoginResult{}, err
	}
	metrics.RecordSocialLogin(providerName, "login")
	log.Infow("login success", "member_id", m.ID)
	return LoginResult{Registered: true, Member: m, Tokens: &tokens}, nil
}

func (s *Service) createPending(ctx context.Context, providerName string, profile oauth.Profile) (*member.Member, error) {
	log := s.scope("create_pending").With("provider", providerName)

	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email == "" {
		log.Warnw("provider returned no email")
		return nil, ErrEmailRequired
	}

	taken, err := s.members.EmailInUse(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		log.Warnw("email already registered")
		return nil, ErrEmailTaken
	}

	m := &member.Member{
		Provider:       providerName,
		ProviderUserID: profile.ID,
		Email:          email,
		ProfileImage:   profile.ProfileImage,
	}
	if err := m.SetGenres(nil); err != nil {
		return nil, err
	}
	if err := s.members.Create(ctx, m); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 同一账号的并发回调已抢先写入。
			existing, findErr := s.members.FindByProviderUserID(ctx, providerName, profile.ID)
			if findErr == nil {
				return existing, nil
			}
			return nil, ErrEmailTaken
		}
		log.Errorw("create member failed", "error", err)
		return nil, fmt.Errorf("create member: %w", err)
	}
	return m, nil
}

// RegisterParams 是完成注册时提交的资料。
type RegisterParams struct {
	SignupToken    string
	Nickname       string
	Introduce      string
	FavoriteGenres []string
}

// Register 激活 signup token 对应的会员并直接登录。
func (s *Service) Register(ctx context.Context, params RegisterParams) (*member.Member, TokenPair, error) {
	log := s.scope("register")

	memberID, err := s.tokenManager.ParseSignupToken(strings.TrimSpace(params.SignupToken))
	if err != nil {
		log.Warnw("parse signup token failed", "error", err)
		return nil, TokenPair{}, ErrSignupTokenInvalid
	}
	log = log.With("member_id", memberID)

	profile, err := member.NormalizeProfile(params.Nickname, params.Introduce, params.FavoriteGenres)
	if err != nil {
		return nil, TokenPair{}, err
	}

	m, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, TokenPair{}, ErrSignupTokenInvalid
		}
		return nil, TokenPair{}, fmt.Errorf("find member: %w", err)
	}
	if m.IsActive {
		return nil, TokenPair{}, ErrAlreadyRegistered
	}

	taken, err := s.members.NicknameTaken(ctx, profile.Nickname, m.ID)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("check nickname: %w", err)
	}
	if taken {
		log.Infow("nickname taken", "nickname", profile.Nickname)
		return nil, TokenPair{}, ErrNicknameTaken
	}

	now := s.now()
	m.Nickname = &profile.Nickname
	m.Introduce = profile.Introduce
	if err := m.SetGenres(profile.FavoriteGenres); err != nil {
		return nil, TokenPair{}, fmt.Errorf("encode genres: %w", err)
	}
	m.IsActive = true
	m.LastLoginAt = &now

	if err := s.members.Update(ctx, m); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, TokenPair{}, ErrNicknameTaken
		}
		log.Errorw("activate member failed", "error", err)
		return nil, TokenPair{}, fmt.Errorf("activate member: %w", err)
	}

	tokens, err := s.issueAndStoreTokens(ctx, m)
	if err != nil {
		return nil, TokenPair{}, err
	}
	log.Infow("member registered")
	return m, tokens, nil
}

// Refresh 轮换 refresh token：旧令牌立即吊销并签发新的令牌对，每个 refresh token 只能使用一次。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	log := s.scope("refresh")

	if strings.TrimSpace(refreshToken) == "" {
		return TokenPair{}, ErrRefreshTokenRequired
	}

	claims, err := s.tokenManager.ParseRefreshToken(refreshToken)
	if err != nil {
		log.Warnw("parse refresh token failed", "error", err)
		return TokenPair{}, ErrRefreshTokenInvalid
	}
	if claims.ExpiresAt.IsZero() {
		return TokenPair{}, ErrRefreshTokenInvalid
	}
	if s.now().After(claims.ExpiresAt) {
		return TokenPair{}, ErrRefreshTokenExpired
	}

	ok, err := s.refreshStore.Exists(ctx, claims.MemberID, claims.TokenID)
	if err != nil {
		log.Errorw("refresh store check failed", "error", err)
		return TokenPair{}, fmt.Errorf("check refresh token: %w", err)
	}
	if !ok {
		log.Warnw("refresh token revoked", "member_id", claims.MemberID)
		return TokenPair{}, ErrRefreshTokenRevoked
	}

	m, err := s.members.FindByID(ctx, claims.MemberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenPair{}, ErrRefreshTokenRevoked
		}
		return TokenPair{}, fmt.Errorf("load member: %w", err)
	}
	if !m.IsActive {
		return TokenPair{}, ErrMemberInactive
	}

	if err := s.refreshStore.Delete(ctx, claims.MemberID, claims.TokenID); err != nil {
		log.Errorw("delete old refresh token failed", "error", err, "token_id", claims.TokenID)
		return TokenPair{}, fmt.Errorf("delete refresh token: %w", err)
	}
	return s.issueAndStoreTokens(ctx, m)
}

// Logout 吊销提交的 refresh token。
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	log := s.scope("logout")

	if strings.TrimSpace(refreshToken) == "" {
		return ErrRefreshTokenRequired
	}
	claims, err := s.tokenManager.ParseRefreshToken(refreshToken)
	if err != nil {
		log.Warnw("parse refresh token failed", "error", err)
		return ErrRefreshTokenInvalid
	}
	if err := s.refreshStore.Delete(ctx, claims.MemberID, claims.TokenID); err != nil {
		log.Errorw("delete refresh token failed", "error", err, "token_id", claims.TokenID)
		return fmt.Errorf("delete refresh token: %w", err)
	}
	log.Infow("logged out", "member_id", claims.MemberID)
	return nil
}

func (s *Service) issueAndStoreTokens(ctx context.Context, m *member.Member) (TokenPair, error) {
	log := s.scope("issue_tokens").With("member_id", m.ID)

	tokens, err := s.tokenManager.GenerateTokens(ctx, m)
	if err != nil {
		log.Errorw("generate tokens failed", "error", err)
		return TokenPair{}, fmt.Errorf("generate tokens: %w", err)
	}
	if tokens.RefreshTokenID == "" || tokens.RefreshTokenExpiresAt.IsZero() {
		return TokenPair{}, fmt.Errorf("refresh token metadata missing")
	}
	if err := s.refreshStore.Save(ctx, m.ID, tokens.RefreshTokenID, tokens.RefreshTokenExpiresAt); err != nil {
		log.Errorw("save refresh token failed", "error", err)
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return tokens, nil
}

func (s *Service) scope(operation string) *zap.SugaredLogger {
	if s.logger == nil {
		s.logger = appLogger.S().With("component", "auth.service")
	}
	return s.logger.With("operation", operation)
}
