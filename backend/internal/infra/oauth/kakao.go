package oauth

import (
	"mood-diary/backend/internal/domain/member"

	"golang.org/x/oauth2"
)

const kakaoProfileURL = "https://kapi.kakao.com/v2/user/me"

var kakaoEndpoint = oauth2.Endpoint{
	AuthURL:  "https://kauth.kakao.com/oauth/authorize",
	TokenURL: "https://kauth.kakao.com/oauth/token",
}

type kakaoUser struct {
	ID      jsonID `json:"id"`
	Account struct {
		Email   string `json:"email"`
		Profile struct {
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

// NewKakao 创建 Kakao 登录渠道。
func NewKakao(creds Credentials, opts ...Option) Provider {
	return newCodeFlow(member.ProviderKakao, creds, kakaoEndpoint, kakaoProfileURL, parseKakao, opts)
}

func parseKakao(raw []byte) (Profile, error) {
	var user kakaoUser
	if err := decodeJSON(raw, &user); err != nil {
		return Profile{}, err
	}
	return Profile{
		ID:           string(user.ID),
		Email:        user.Account.Email,
		ProfileImage: user.Account.Profile.ProfileImageURL,
	}, nil
}
