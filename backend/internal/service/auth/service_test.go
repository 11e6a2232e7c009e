package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"mood-diary/backend/internal/domain/diary"
	"mood-diary/backend/internal/domain/member"
	"mood-diary/backend/internal/infra/oauth"
	"mood-diary/backend/internal/infra/token"
	"mood-diary/backend/internal/repository"
	"mood-diary/backend/internal/service/auth"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubProvider struct {
	name     string
	profiles map[string]oauth.Profile
}

func (p *stubProvider) Name() string                    { return p.name }
func (p *stubProvider) AuthCodeURL(state string) string { return "https://login.example/" + p.name + "?state=" + state }
func (p *stubProvider) Authenticate(_ context.Context, code string) (oauth.Profile, error) {
	profile, ok := p.profiles[code]
	if !ok {
		return oauth.Profile{}, fmt.Errorf("%w: bad code", oauth.ErrExchange)
	}
	profile.Provider = p.name
	return profile, nil
}

type fixture struct {
	svc     *auth.Service
	members *repository.MemberRepository
	store   *token.MemoryRefreshTokenStore
	jwt     *token.JWTManager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true, Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&member.Member{}, &diary.Entry{}))

	kakao := &stubProvider{name: member.ProviderKakao, profiles: map[string]oauth.Profile{
		"kim":      {ID: "k-1", Email: "Kim@Example.com", ProfileImage: "https://img/kim.png"},
		"no-email": {ID: "k-2"},
	}}
	naver := &stubProvider{name: member.ProviderNaver, profiles: map[string]oauth.Profile{
		"kim-naver": {ID: "n-1", Email: "kim@example.com"},
		"lee":       {ID: "n-2", Email: "lee@example.com"},
	}}

	members := repository.NewMemberRepository(db)
	store := token.NewMemoryRefreshTokenStore()
	jwt := token.NewJWTManager("test-secret", time.Hour, 24*time.Hour, 30*time.Minute)
	return fixture{
		svc:     auth.NewService(members, oauth.NewRegistry(kakao, naver), jwt, store),
		members: members,
		store:   store,
		jwt:     jwt,
	}
}

func (f fixture) signUp(t *testing.T, code, nickname string) (*member.Member, auth.TokenPair) {
	t.Helper()
	res, err := f.svc.SocialLogin(context.Background(), member.ProviderKakao, code)
	require.NoError(t, err)
	require.False(t, res.Registered)
	m, tokens, err := f.svc.Register(context.Background(), auth.RegisterParams{
		SignupToken: res.SignupToken,
		Nickname:    nickname,
	})
	require.NoError(t, err)
	return m, tokens
}

func TestFirstLoginCreatesPendingMember(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.SocialLogin(context.Background(), member.ProviderKakao, "kim")
	require.NoError(t, err)

	assert.False(t, res.Registered)
	assert.Nil(t, res.Tokens)
	require.NotNil(t, res.SignupExpiresAt)
	assert.Equal(t, "kim@example.com", res.Member.Email)
	assert.False(t, res.Member.IsActive)

	id, err := f.jwt.ParseSignupToken(res.SignupToken)
	require.NoError(t, err)
	assert.Equal(t, res.Member.ID, id)

	again, err := f.svc.SocialLogin(context.Background(), member.ProviderKakao, "kim")
	require.NoError(t, err)
	assert.Equal(t, res.Member.ID, again.Member.ID, "second callback reuses the pending member")
}

func TestRegisterActivatesAndLogsIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.SocialLogin(ctx, member.ProviderKakao, "kim")
	require.NoError(t, err)

	m, tokens, err := f.svc.Register(ctx, auth.RegisterParams{
		SignupToken:    res.SignupToken,
		Nickname:       " 하늘 ",
		Introduce:      "매일 쓰는 사람",
		FavoriteGenres: []string{"인디", "인디", "재즈"},
	})
	require.NoError(t, err)
	assert.True(t, m.IsActive)
	assert.Equal(t, "하늘", m.NicknameValue())
	assert.Equal(t, []string{"인디", "재즈"}, m.Genres())
	assert.NotEmpty(t, tokens.AccessToken)

	live, err := f.store.Exists(ctx, m.ID, tokens.RefreshTokenID)
	require.NoError(t, err)
	assert.True(t, live)

	_, _, err = f.svc.Register(ctx, auth.RegisterParams{SignupToken: res.SignupToken, Nickname: "다른이름"})
	assert.ErrorIs(t, err, auth.ErrAlreadyRegistered)

	login, err := f.svc.SocialLogin(ctx, member.ProviderKakao, "kim")
	require.NoError(t, err)
	assert.True(t, login.Registered)
	require.NotNil(t, login.Tokens)
	assert.NotNil(t, login.Member.LastLoginAt)
}

func TestRegisterRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUp(t, "kim", "하늘")

	lee, err := f.svc.SocialLogin(ctx, member.ProviderNaver, "lee")
	require.NoError(t, err)

	_, _, err = f.svc.Register(ctx, auth.RegisterParams{SignupToken: lee.SignupToken, Nickname: "하늘"})
	assert.ErrorIs(t, err, auth.ErrNicknameTaken)

	_, _, err = f.svc.Register(ctx, auth.RegisterParams{SignupToken: lee.SignupToken, Nickname: "  "})
	assert.ErrorIs(t, err, member.ErrNicknameRequired)

	_, _, err = f.svc.Register(ctx, auth.RegisterParams{SignupToken: "garbage", Nickname: "바다"})
	assert.ErrorIs(t, err, auth.ErrSignupTokenInvalid)

	pair, err := f.jwt.GenerateTokens(ctx, lee.Member)
	require.NoError(t, err)
	_, _, err = f.svc.Register(ctx, auth.RegisterParams{SignupToken: pair.AccessToken, Nickname: "바다"})
	assert.ErrorIs(t, err, auth.ErrSignupTokenInvalid, "access tokens cannot register")
}

func TestSocialLoginFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUp(t, "kim", "하늘")

	tests := []struct {
		name     string
		provider string
		code     string
		want     error
	}{
		{name: "missing code", provider: member.ProviderKakao, code: " ", want: auth.ErrCodeRequired},
		{name: "unknown provider", provider: "google", code: "x", want: auth.ErrUnknownProvider},
		{name: "exchange failure", provider: member.ProviderKakao, code: "bad", want: auth.ErrProviderFailed},
		{name: "no email", provider: member.ProviderKakao, code: "no-email", want: auth.ErrEmailRequired},
		{name: "email used by another provider", provider: member.ProviderNaver, code: "kim-naver", want: auth.ErrEmailTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SocialLogin(ctx, tt.provider, tt.code)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, first := f.signUp(t, "kim", "하늘")

	second, err := f.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshTokenID, second.RefreshTokenID)

	_, err = f.svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenRevoked, "a refresh token is single use")

	live, err := f.store.Exists(ctx, m.ID, second.RefreshTokenID)
	require.NoError(t, err)
	assert.True(t, live)

	_, err = f.svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, auth.ErrRefreshTokenRequired)
	_, err = f.svc.Refresh(ctx, second.AccessToken)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenInvalid)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, tokens := f.signUp(t, "kim", "하늘")

	require.NoError(t, f.svc.Logout(ctx, tokens.RefreshToken))

	_, err := f.svc.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenRevoked)

	err = f.svc.Logout(ctx, "not-a-token")
	assert.True(t, errors.Is(err, auth.ErrRefreshTokenInvalid))
}

func TestAuthCodeURL(t *testing.T) {
	f := newFixture(t)

	url, err := f.svc.AuthCodeURL(member.ProviderNaver, "xyz")
	require.NoError(t, err)
	assert.Equal(t, "https://login.example/naver?state=xyz", url)

	_, err = f.svc.AuthCodeURL("apple", "xyz")
	assert.ErrorIs(t, err, auth.ErrUnknownProvider)
}
