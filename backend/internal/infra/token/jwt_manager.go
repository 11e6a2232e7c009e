/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 20:40:41
 * @FilePath: \mood-diary\backend\internal\infra\token\jwt_manager.go
 * @LastEditTime: 2025-11-01 22:19:06
 */
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"mood-diary/backend/internal/domain/member"
	"mood-diary/backend/internal/service/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	claimTokenType   = "token_type"
	claimTokenID     = "jti"
	claimProvider    = "provider"
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
	tokenTypeSignup  = "signup"

	defaultSignupTTL = 30 * time.Minute
)

var (
	ErrTokenInvalid   = errors.New("token invalid")
	ErrWrongTokenType = errors.New("unexpected token type")
)

// AccessClaims 是鉴权中间件从 access token 中读取的内容。
type AccessClaims struct {
	MemberID  uint
	ExpiresAt time.Time
}

// JWTManager 使用 HS256 签发会员令牌：access、refresh，
// 以及 OAuth 回调到完成注册之间使用的短期 signup token。
type JWTManager struct {
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	signupTTL  time.Duration
}

// NewJWTManager 创建管理器，signupTTL 不大于 0 时默认 30 分钟。
func NewJWTManager(secret string, accessTTL, refreshTTL, signupTTL time.Duration) *JWTManager {
	if signupTTL <= 0 {
		signupTTL = defaultSignupTTL
	}
	return &JWTManager{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL, signupTTL: signupTTL}
}

// GenerateTokens 为已激活会员签发 access 与 refresh token。
func (m *JWTManager) GenerateTokens(_ context.Context, mem *member.Member) (auth.TokenPair, error) {
	accessToken, accessExp, _, err := m.buildToken(mem, m.accessTTL, tokenTypeAccess, "")
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, refreshExp, refreshID, err := m.buildToken(mem, m.refreshTTL, tokenTypeRefresh, uuid.NewString())
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}

	return auth.TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		ExpiresIn:             int64(time.Until(accessExp).Seconds()),
		RefreshTokenID:        refreshID,
		RefreshTokenExpiresAt: refreshExp,
	}, nil
}

// GenerateSignupToken 为新建会员签发用于完成注册的令牌。
func (m *JWTManager) GenerateSignupToken(mem *member.Member) (string, time.Time, error) {
	signed, exp, _, err := m.buildToken(mem, m.signupTTL, tokenTypeSignup, "")
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate signup token: %w", err)
	}
	return signed, exp, nil
}

func (m *JWTManager) buildToken(mem *member.Member, ttl time.Duration, tokenType string, tokenID string) (string, time.Time, string, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	expiresAt := time.Now().Add(ttl)

	claims := jwt.MapClaims{
		"sub":          strconv.FormatUint(uint64(mem.ID), 10),
		"exp":          expiresAt.Unix(),
		"iat":          time.Now().Unix(),
		claimProvider:  mem.Provider,
		claimTokenType: tokenType,
	}
	if tokenID != "" {
		claims[claimTokenID] = tokenID
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.secret))
	if err != nil {
		return "", time.Time{}, "", err
	}
	return signed, expiresAt, tokenID, nil
}

// ParseAccessToken 校验 access token 并返回其主体。
func (m *JWTManager) ParseAccessToken(raw string) (AccessClaims, error) {
	claims, err := m.parse(raw, tokenTypeAccess)
	if err != nil {
		return AccessClaims{}, err
	}
	id, err := subject(claims)
	if err != nil {
		return AccessClaims{}, err
	}
	return AccessClaims{MemberID: id, ExpiresAt: expiry(claims)}, nil
}

// ParseRefreshToken 校验 refresh token，返回会员 ID 与 jti。
func (m *JWTManager) ParseRefreshToken(raw string) (auth.RefreshTokenClaims, error) {
	claims, err := m.parse(raw, tokenTypeRefresh)
	if err != nil {
		return auth.RefreshTokenClaims{}, err
	}
	id, err := subject(claims)
	if err != nil {
		return auth.RefreshTokenClaims{}, err
	}
	tokenID, _ := claims[claimTokenID].(string)
	if tokenID == "" {
		return auth.RefreshTokenClaims{}, errors.New("missing refresh token id")
	}
	return auth.RefreshTokenClaims{
		MemberID:  id,
		TokenID:   tokenID,
		ExpiresAt: expiry(claims),
	}, nil
}

// ParseSignupToken 校验 signup token，返回对应的会员 ID。
func (m *JWTManager) ParseSignupToken(raw string) (uint, error) {
	claims, err := m.parse(raw, tokenTypeSignup)
	if err != nil {
		return 0, err
	}
	return subject(claims)
}

func (m *JWTManager) parse(raw string, wantType string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return []byte(m.secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if tType, _ := claims[claimTokenType].(string); tType != wantType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func subject(claims jwt.MapClaims) (uint, error) {
	var subRaw string
	switch v := claims["sub"].(type) {
	case string:
		subRaw = v
	case float64:
		if v < 0 {
			return 0, errors.New("invalid subject")
		}
		subRaw = fmt.Sprintf("%.0f", v)
	case json.Number:
		subRaw = v.String()
	default:
		return 0, errors.New("missing subject")
	}

	id64, err := strconv.ParseUint(subRaw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse subject: %w", err)
	}
	if id64 == 0 {
		return 0, errors.New("invalid subject")
	}
	return uint(id64), nil
}

func expiry(claims jwt.MapClaims) time.Time {
	switch v := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(v), 0)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return time.Unix(n, 0)
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(n, 0)
		}
	}
	return time.Time{}
}
