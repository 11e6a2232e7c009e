package token

import (
	"context"
	"testing"
	"time"

	"mood-diary/backend/internal/domain/member"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMember() *member.Member {
	return &member.Member{ID: 42, Provider: member.ProviderKakao}
}

func TestJWTManagerRoundTrip(t *testing.T) {
	mgr := NewJWTManager("secret", time.Hour, 24*time.Hour, 0)

	pair, err := mgr.GenerateTokens(context.Background(), testMember())
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshTokenID)
	assert.InDelta(t, time.Hour.Seconds(), float64(pair.ExpiresIn), 5)

	access, err := mgr.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), access.MemberID)

	refresh, err := mgr.ParseRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), refresh.MemberID)
	assert.Equal(t, pair.RefreshTokenID, refresh.TokenID)
	assert.WithinDuration(t, pair.RefreshTokenExpiresAt, refresh.ExpiresAt, time.Second)
}

func TestJWTManagerRejectsWrongTokenType(t *testing.T) {
	mgr := NewJWTManager("secret", time.Hour, time.Hour, time.Minute)

	pair, err := mgr.GenerateTokens(context.Background(), testMember())
	require.NoError(t, err)
	signup, _, err := mgr.GenerateSignupToken(testMember())
	require.NoError(t, err)

	_, err = mgr.ParseAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)
	_, err = mgr.ParseRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)
	_, err = mgr.ParseAccessToken(signup)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	id, err := mgr.ParseSignupToken(signup)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestJWTManagerRejectsForeignSignature(t *testing.T) {
	mine := NewJWTManager("secret", time.Hour, time.Hour, 0)
	theirs := NewJWTManager("other", time.Hour, time.Hour, 0)

	pair, err := theirs.GenerateTokens(context.Background(), testMember())
	require.NoError(t, err)

	_, err = mine.ParseAccessToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestJWTManagerRejectsExpiredToken(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":          "42",
		"exp":          time.Now().Add(-time.Minute).Unix(),
		claimTokenType: tokenTypeAccess,
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWTManager("secret", time.Hour, time.Hour, 0).ParseAccessToken(raw)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestRedisRefreshTokenStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisRefreshTokenStore(client, "")
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, store.Save(ctx, 1, "a", exp))
	require.NoError(t, store.Save(ctx, 1, "b", exp))
	require.NoError(t, store.Save(ctx, 2, "c", exp))
	assert.True(t, mr.Exists("diary:refresh:1:a"))

	ok, err := store.Exists(ctx, 1, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, 1, "a"))
	ok, err = store.Exists(ctx, 1, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.RevokeAll(ctx, 1))
	ok, err = store.Exists(ctx, 1, "b")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Exists(ctx, 2, "c")
	require.NoError(t, err)
	assert.True(t, ok, "other members keep their tokens")
}

func TestMemoryRefreshTokenStore(t *testing.T) {
	store := NewMemoryRefreshTokenStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, 1, "live", time.Now().Add(time.Hour)))
	require.NoError(t, store.Save(ctx, 1, "stale", time.Now().Add(-time.Second)))

	ok, err := store.Exists(ctx, 1, "live")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, 1, "stale")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.RevokeAll(ctx, 1))
	ok, err = store.Exists(ctx, 1, "live")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, store.Save(ctx, 1, "", time.Now()))
}
