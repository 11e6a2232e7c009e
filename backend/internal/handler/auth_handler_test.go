package handler_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginPayload struct {
	Registered  bool   `json:"registered"`
	SignupToken string `json:"signup_token"`
	Tokens      *struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	} `json:"tokens"`
}

func TestLoginRedirectSetsState(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/oauth/kakao/login", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "login.example", location.Host)
	state := location.Query().Get("state")
	assert.NotEmpty(t, state)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "oauth_state", cookies[0].Name)
	assert.Equal(t, state, cookies[0].Value)

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/oauth/apple/login", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCallbackStateMismatch(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/oauth/kakao/callback?code=new-user&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "expected"})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupFlow(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(http.MethodGet, "/api/auth/oauth/kakao/callback?code=new-user", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[loginPayload](t, body.Data)
	assert.False(t, first.Registered)
	require.NotEmpty(t, first.SignupToken)
	assert.Nil(t, first.Tokens)

	rec, body = env.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"signup_token": first.SignupToken,
		"nickname":     "열한글자가넘는긴닉네임",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	assert.Contains(t, body.Error.Details, "nickname")

	rec, body = env.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"signup_token":    first.SignupToken,
		"nickname":        "새싹",
		"favorite_genres": []string{"발라드"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	registered := decode[struct {
		Tokens struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"tokens"`
	}](t, body.Data)
	require.NotEmpty(t, registered.Tokens.AccessToken)

	rec, body = env.do(http.MethodGet, "/api/members/me", "Bearer "+registered.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body.Data), `"nickname":"새싹"`)

	rec, body = env.do(http.MethodGet, "/api/auth/oauth/kakao/callback?code=new-user", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[loginPayload](t, body.Data)
	assert.True(t, again.Registered)
	require.NotNil(t, again.Tokens)

	rec, body = env.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": again.Tokens.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decode[struct {
		RefreshToken string `json:"refresh_token"`
	}](t, body.Data)
	assert.NotEqual(t, again.Tokens.RefreshToken, rotated.RefreshToken)

	rec, _ = env.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": again.Tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "rotated tokens cannot be reused")

	rec, _ = env.do(http.MethodPost, "/api/auth/logout", "", map[string]string{"refresh_token": rotated.RefreshToken})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": rotated.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallbackErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{name: "missing code", path: "/api/auth/oauth/kakao/callback", status: http.StatusBadRequest, code: "BAD_REQUEST"},
		{name: "unknown provider", path: "/api/auth/oauth/apple/callback?code=x", status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "exchange failure", path: "/api/auth/oauth/kakao/callback?code=bogus", status: http.StatusBadGateway, code: "UPSTREAM_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.do(http.MethodGet, tt.path, "", nil)
			assert.Equal(t, tt.status, rec.Code)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestRegisterRejectsBadSignupToken(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(http.MethodPost, "/api/auth/register", "", map[string]any{"signup_token": "nope", "nickname": "새싹"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)

	rec, _ = env.do(http.MethodPost, "/api/auth/register", "", map[string]any{"nickname": "새싹"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
