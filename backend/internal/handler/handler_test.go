package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mood-diary/backend/internal/domain/diary"
	"mood-diary/backend/internal/domain/member"
	"mood-diary/backend/internal/handler"
	"mood-diary/backend/internal/infra/model/gemini"
	"mood-diary/backend/internal/infra/oauth"
	"mood-diary/backend/internal/infra/ratelimit"
	"mood-diary/backend/internal/infra/token"
	"mood-diary/backend/internal/infra/youtube"
	"mood-diary/backend/internal/middleware"
	"mood-diary/backend/internal/repository"
	"mood-diary/backend/internal/server"
	authsvc "mood-diary/backend/internal/service/auth"
	diarysvc "mood-diary/backend/internal/service/diary"
	membersvc "mood-diary/backend/internal/service/member"
	"mood-diary/backend/internal/service/recommend"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var kst = time.FixedZone("KST", 9*60*60)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta *struct {
		Count int `json:"count"`
	} `json:"meta"`
}

type stubProvider struct {
	name     string
	profiles map[string]oauth.Profile
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) AuthCodeURL(state string) string {
	return "https://login.example/" + p.name + "?state=" + state
}

func (p *stubProvider) Authenticate(_ context.Context, code string) (oauth.Profile, error) {
	profile, ok := p.profiles[code]
	if !ok {
		return oauth.Profile{}, oauth.ErrExchange
	}
	profile.Provider = p.name
	return profile, nil
}

type stubGenerator struct {
	answer string
}

func (g *stubGenerator) GenerateContent(context.Context, gemini.GenerateContentRequest) (gemini.GenerateContentResponse, error) {
	return gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{{Content: gemini.Content{Parts: []gemini.Part{{Text: g.answer}}}}},
	}, nil
}

func (g *stubGenerator) Model() string { return "stub" }

type stubVideos struct{}

func (stubVideos) FindVideo(_ context.Context, title, artist string) (youtube.Video, error) {
	id := "vid-" + title
	return youtube.Video{ID: id, Title: title + " - " + artist, Thumbnail: "https://i.ytimg.com/" + id, EmbedURL: "https://www.youtube.com/embed/" + id}, nil
}

type testEnv struct {
	t         *testing.T
	db        *gorm.DB
	router    http.Handler
	jwt       *token.JWTManager
	generator *stubGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true, Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&member.Member{}, &diary.Entry{}))

	members := repository.NewMemberRepository(db)
	jwt := token.NewJWTManager("handler-secret", time.Hour, 24*time.Hour, 30*time.Minute)
	store := token.NewMemoryRefreshTokenStore()
	limiter := ratelimit.NewMemoryLimiter()
	generator := &stubGenerator{}

	registry := oauth.NewRegistry(&stubProvider{name: member.ProviderKakao, profiles: map[string]oauth.Profile{
		"new-user": {ID: "k-100", Email: "new@example.com"},
	}})

	memberService := membersvc.NewService(members, store)
	diaryService := diarysvc.NewService(
		repository.NewDiaryRepository(db),
		diarysvc.WithLocation(kst),
		diarysvc.WithClock(func() time.Time { return time.Date(2024, 5, 20, 10, 0, 0, 0, kst) }),
	)
	recommendService := recommend.NewService(generator, stubVideos{}, memberService, limiter, recommend.Quota{Limit: 3, Window: time.Hour})

	router := server.NewRouter(server.RouterOptions{
		AuthHandler:      handler.NewAuthHandler(authsvc.NewService(members, registry, jwt, store)),
		MemberHandler:    handler.NewMemberHandler(memberService),
		DiaryHandler:     handler.NewDiaryHandler(diaryService),
		RecommendHandler: handler.NewRecommendHandler(recommendService),
		AuthMW:           middleware.NewAuthMiddleware(jwt),
	})

	return &testEnv{t: t, db: db, router: router, jwt: jwt, generator: generator}
}

// member 写入一个已激活会员，并返回对应的 Bearer 头。
func (e *testEnv) member(providerID, nickname string) (*member.Member, string) {
	e.t.Helper()
	m := &member.Member{
		Provider:       member.ProviderKakao,
		ProviderUserID: providerID,
		Email:          providerID + "@example.com",
		Nickname:       &nickname,
		IsActive:       true,
	}
	require.NoError(e.t, m.SetGenres([]string{"인디"}))
	require.NoError(e.t, e.db.Create(m).Error)

	pair, err := e.jwt.GenerateTokens(context.Background(), m)
	require.NoError(e.t, err)
	return m, "Bearer " + pair.AccessToken
}

func (e *testEnv) do(method, path, bearer string, body any) (*httptest.ResponseRecorder, envelope) {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
