package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	tokenStatus   int
	profileStatus int
	profileBody   string
	gotForm       url.Values
	gotAuth       string
}

func (f *fakeProvider) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.gotForm = r.PostForm
		if f.tokenStatus != 0 {
			w.WriteHeader(f.tokenStatus)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		f.gotAuth = r.Header.Get("Authorization")
		if f.profileStatus != 0 {
			w.WriteHeader(f.profileStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.profileBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func creds() Credentials {
	return Credentials{ClientID: "cid", ClientSecret: "csecret", RedirectURL: "http://localhost/cb"}
}

func TestKakaoAuthenticate(t *testing.T) {
	fake := &fakeProvider{profileBody: `{
		"id": 3141592653,
		"kakao_account": {
			"email": "kim@example.com",
			"profile": {"profile_image_url": "https://img/kim.png"}
		}
	}`}
	srv := fake.server(t)

	p := NewKakao(creds(), WithEndpoints(srv.URL+"/auth", srv.URL+"/token", srv.URL+"/me"), WithHTTPClient(srv.Client()))
	profile, err := p.Authenticate(context.Background(), "code-1")
	require.NoError(t, err)

	assert.Equal(t, Profile{
		Provider:     "kakao",
		ID:           "3141592653",
		Email:        "kim@example.com",
		ProfileImage: "https://img/kim.png",
	}, profile)
	assert.Equal(t, "code-1", fake.gotForm.Get("code"))
	assert.Equal(t, "cid", fake.gotForm.Get("client_id"))
	assert.Equal(t, "csecret", fake.gotForm.Get("client_secret"))
	assert.Equal(t, "Bearer at-1", fake.gotAuth)
}

func TestNaverAuthenticate(t *testing.T) {
	fake := &fakeProvider{profileBody: `{
		"resultcode": "00",
		"message": "success",
		"response": {"id": "nv-77", "email": "lee@example.com", "profile_image": "https://img/lee.png"}
	}`}
	srv := fake.server(t)

	p := NewNaver(creds(), WithEndpoints(srv.URL+"/auth", srv.URL+"/token", srv.URL+"/me"), WithHTTPClient(srv.Client()))
	profile, err := p.Authenticate(context.Background(), "code-2")
	require.NoError(t, err)
	assert.Equal(t, "naver", profile.Provider)
	assert.Equal(t, "nv-77", profile.ID)
	assert.Equal(t, "lee@example.com", profile.Email)
}

func TestNaverRejectsFailedResultCode(t *testing.T) {
	fake := &fakeProvider{profileBody: `{"resultcode": "024", "message": "Authentication failed"}`}
	srv := fake.server(t)

	p := NewNaver(creds(), WithEndpoints(srv.URL+"/auth", srv.URL+"/token", srv.URL+"/me"), WithHTTPClient(srv.Client()))
	_, err := p.Authenticate(context.Background(), "code")
	assert.ErrorIs(t, err, ErrProfile)
}

func TestAuthenticateFailures(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeProvider
		want error
	}{
		{name: "exchange rejected", fake: &fakeProvider{tokenStatus: http.StatusBadRequest}, want: ErrExchange},
		{name: "profile unauthorized", fake: &fakeProvider{profileStatus: http.StatusUnauthorized}, want: ErrProfile},
		{name: "profile without id", fake: &fakeProvider{profileBody: `{"kakao_account": {}}`}, want: ErrProfile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := tt.fake.server(t)
			p := NewKakao(creds(), WithEndpoints(srv.URL+"/auth", srv.URL+"/token", srv.URL+"/me"), WithHTTPClient(srv.Client()))
			_, err := p.Authenticate(context.Background(), "code")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(NewKakao(creds()), NewNaver(creds()))

	p, err := reg.Get("kakao")
	require.NoError(t, err)
	assert.Contains(t, p.AuthCodeURL("st"), "https://kauth.kakao.com/oauth/authorize?")
	assert.Contains(t, p.AuthCodeURL("st"), "state=st")

	_, err = reg.Get("google")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
