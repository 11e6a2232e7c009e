package oauth

import (
	"fmt"

	"mood-diary/backend/internal/domain/member"

	"golang.org/x/oauth2"
)

const (
	naverProfileURL = "https://openapi.naver.com/v1/nid/me"
	naverResultOK   = "00"
)

var naverEndpoint = oauth2.Endpoint{
	AuthURL:  "https://nid.naver.com/oauth2.0/authorize",
	TokenURL: "https://nid.naver.com/oauth2.0/token",
}

type naverUser struct {
	ResultCode string `json:"resultcode"`
	Message    string `json:"message"`
	Response   struct {
		ID           jsonID `json:"id"`
		Email        string `json:"email"`
		ProfileImage string `json:"profile_image"`
	} `json:"response"`
}

// NewNaver 创建 Naver 登录渠道。
func NewNaver(creds Credentials, opts ...Option) Provider {
	return newCodeFlow(member.ProviderNaver, creds, naverEndpoint, naverProfileURL, parseNaver, opts)
}

func parseNaver(raw []byte) (Profile, error) {
	var user naverUser
	if err := decodeJSON(raw, &user); err != nil {
		return Profile{}, err
	}
	if user.ResultCode != naverResultOK {
		return Profile{}, fmt.Errorf("naver resultcode %q: %s", user.ResultCode, user.Message)
	}
	return Profile{
		ID:           string(user.Response.ID),
		Email:        user.Response.Email,
		ProfileImage: user.Response.ProfileImage,
	}, nil
}
