package handler_test

import (
	"net/http"
	"strings"
	"testing"

	"mood-diary/backend/internal/domain/diary"
	diarysvc "mood-diary/backend/internal/service/diary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const longContent = "오늘은 비가 와서 하루 종일 집에서 좋아하는 책을 읽었다."

func TestDiaryRequiresBearerToken(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(http.MethodGet, "/api/diary", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
}

func TestDiaryCreateGetListDelete(t *testing.T) {
	env := newTestEnv(t)
	_, bearer := env.member("u1", "하늘")

	rec, body := env.do(http.MethodPost, "/api/diary/create", bearer, map[string]any{
		"title":   "비 오는 날",
		"content": longContent,
		"moods":   []string{"우울", "안도"},
		"date":    "2024-05-18",
		"recommended_track": diary.Track{
			VideoID: "abc", Title: "Rain", Artist: "Someone", EmbedURL: "https://www.youtube.com/embed/abc",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[diarysvc.Entry](t, body.Data)
	assert.Equal(t, "2024-05-18", created.Date)
	assert.Equal(t, []string{"우울", "안도"}, created.Moods)
	require.NotNil(t, created.RecommendedTrack)
	assert.Equal(t, "abc", created.RecommendedTrack.VideoID)

	rec, body = env.do(http.MethodPost, "/api/diary/create", bearer, map[string]any{
		"title":   "오늘",
		"content": longContent,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	today := decode[diarysvc.Entry](t, body.Data)
	assert.Equal(t, "2024-05-20", today.Date, "date defaults to today")

	rec, body = env.do(http.MethodGet, "/api/diary", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	refs := decode[[]diary.DateRef](t, body.Data)
	assert.Equal(t, []diary.DateRef{{Date: "2024-05-18", ID: created.ID}, {Date: "2024-05-20", ID: today.ID}}, refs)
	require.NotNil(t, body.Meta)
	assert.Equal(t, 2, body.Meta.Count)

	rec, body = env.do(http.MethodGet, "/api/diary/"+created.ID, bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "비 오는 날", decode[diarysvc.Entry](t, body.Data).Title)

	rec, _ = env.do(http.MethodDelete, "/api/diary/"+created.ID, bearer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = env.do(http.MethodDelete, "/api/diary/"+created.ID, bearer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestDiaryCreateFailures(t *testing.T) {
	env := newTestEnv(t)
	_, bearer := env.member("u1", "하늘")

	rec, _ := env.do(http.MethodPost, "/api/diary/create", bearer, map[string]any{
		"title": "첫 일기", "content": longContent, "date": "2024-05-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name    string
		body    map[string]any
		code    string
		details []string
	}{
		{name: "same day", body: map[string]any{"title": "또", "content": longContent, "date": "2024-05-01"}, code: "ENTRY_ALREADY_EXISTS"},
		{name: "future", body: map[string]any{"title": "내일", "content": longContent, "date": "2024-05-21"}, code: "FUTURE_DATE"},
		{name: "bad date", body: map[string]any{"title": "t", "content": longContent, "date": "2024/05/02"}, code: "VALIDATION_FAILED", details: []string{"date"}},
		{name: "blank title and short content", body: map[string]any{"title": " ", "content": "짧다"}, code: "VALIDATION_FAILED", details: []string{"title", "content"}},
		{name: "long title", body: map[string]any{"title": strings.Repeat("가", 101), "content": longContent, "date": "2024-05-03"}, code: "VALIDATION_FAILED", details: []string{"title"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.do(http.MethodPost, "/api/diary/create", bearer, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			for _, field := range tt.details {
				assert.Contains(t, body.Error.Details, field)
			}
		})
	}
}

func TestDiaryIsOwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.member("alice", "앨리스")
	_, bob := env.member("bob", "밥")

	rec, body := env.do(http.MethodPost, "/api/diary/create", alice, map[string]any{"title": "비밀", "content": longContent})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[diarysvc.Entry](t, body.Data).ID

	rec, _ = env.do(http.MethodGet, "/api/diary/"+id, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = env.do(http.MethodDelete, "/api/diary/"+id, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = env.do(http.MethodGet, "/api/diary", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(body.Data))

	rec, _ = env.do(http.MethodGet, "/api/diary/not-a-uuid", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiarySearch(t *testing.T) {
	env := newTestEnv(t)
	_, bearer := env.member("u1", "하늘")

	for _, e := range []map[string]any{
		{"title": "Rainy Day", "content": longContent, "date": "2024-05-10"},
		{"title": "맑음", "content": "햇살이 좋아서 공원을 오래 걸었다. RAIN 은 없었다.", "date": "2024-05-11"},
		{"title": "평범", "content": "특별한 일 없이 조용히 지나간 평범한 하루였다.", "date": "2024-05-12"},
	} {
		rec, _ := env.do(http.MethodPost, "/api/diary/create", bearer, e)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, body := env.do(http.MethodPost, "/api/diary/search", bearer, map[string]string{"q": "rain"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]diarysvc.Entry](t, body.Data), 2)
	assert.Equal(t, 2, body.Meta.Count)

	rec, body = env.do(http.MethodPost, "/api/diary/search", bearer, map[string]string{"q": "없는단어"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(body.Data))

	rec, body = env.do(http.MethodPost, "/api/diary/search", bearer, map[string]string{"q": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	assert.Contains(t, body.Error.Details, "q")
}

func TestDiaryByPeriod(t *testing.T) {
	env := newTestEnv(t)
	_, bearer := env.member("u1", "하늘")

	for _, e := range []map[string]any{
		{"title": "a", "content": longContent, "date": "2024-05-20", "moods": []string{"기쁨", "설렘"}},
		{"title": "b", "content": longContent, "date": "2024-05-13", "moods": []string{"기쁨"}},
		{"title": "c", "content": longContent, "date": "2024-05-12", "moods": []string{"슬픔"}},
	} {
		rec, _ := env.do(http.MethodPost, "/api/diary/create", bearer, e)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, body := env.do(http.MethodGet, "/api/diary/by-period?period=week", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[diarysvc.MoodStats](t, body.Data)
	assert.Equal(t, "week", stats.Period)
	assert.Equal(t, "2024-05-13", stats.StartDate)
	assert.Equal(t, "2024-05-20", stats.EndDate)
	assert.Equal(t, map[string]int{"기쁨": 2, "설렘": 1}, stats.MoodCounts)

	rec, body = env.do(http.MethodGet, "/api/diary/by-period?period=decade", bearer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Error.Details["period"], "week, month, year")
}
