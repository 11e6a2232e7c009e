package member

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	MaxNicknameLength  = 10
	MaxIntroduceLength = 25
	MaxGenres          = 10
	maxGenreLength     = 20
)

var (
	ErrNicknameRequired = errors.New("nickname is required")
	ErrNicknameTooLong  = errors.New("nickname must be at most 10 characters")
	ErrIntroduceTooLong = errors.New("introduce must be at most 25 characters")
	ErrTooManyGenres    = errors.New("at most 10 favorite genres are allowed")
	ErrGenreTooLong     = errors.New("favorite genre must be at most 20 characters")
)

// NormalizeNickname 去除空白并校验昵称长度。
func NormalizeNickname(raw string) (string, error) {
	nickname := strings.TrimSpace(raw)
	if nickname == "" {
		return "", ErrNicknameRequired
	}
	if utf8.RuneCountInString(nickname) > MaxNicknameLength {
		return "", ErrNicknameTooLong
	}
	return nickname, nil
}

// NormalizeIntroduce 去除空白并校验一句话简介的长度。
func NormalizeIntroduce(raw string) (string, error) {
	introduce := strings.TrimSpace(raw)
	if utf8.RuneCountInString(introduce) > MaxIntroduceLength {
		return "", ErrIntroduceTooLong
	}
	return introduce, nil
}

// NormalizeGenres 去除空白、空项与重复项，保持原有顺序。
func NormalizeGenres(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	genres := make([]string, 0, len(raw))
	for _, item := range raw {
		genre := strings.TrimSpace(item)
		if genre == "" {
			continue
		}
		if utf8.RuneCountInString(genre) > maxGenreLength {
			return nil, ErrGenreTooLong
		}
		if _, dup := seen[genre]; dup {
			continue
		}
		seen[genre] = struct{}{}
		genres = append(genres, genre)
	}
	if len(genres) > MaxGenres {
		return nil, ErrTooManyGenres
	}
	return genres, nil
}

// Field 返回校验错误对应的字段名，非本包的校验错误返回空字符串。
func Field(err error) string {
	switch {
	case errors.Is(err, ErrNicknameRequired), errors.Is(err, ErrNicknameTooLong):
		return "nickname"
	case errors.Is(err, ErrIntroduceTooLong):
		return "introduce"
	case errors.Is(err, ErrTooManyGenres), errors.Is(err, ErrGenreTooLong):
		return "favorite_genres"
	default:
		return ""
	}
}

// Profile 是校验并归一化后的注册资料。
type Profile struct {
	Nickname       string
	Introduce      string
	FavoriteGenres []string
}

// NormalizeProfile 一次校验全部三个资料字段。
func NormalizeProfile(nickname, introduce string, genres []string) (Profile, error) {
	n, err := NormalizeNickname(nickname)
	if err != nil {
		return Profile{}, err
	}
	i, err := NormalizeIntroduce(introduce)
	if err != nil {
		return Profile{}, err
	}
	g, err := NormalizeGenres(genres)
	if err != nil {
		return Profile{}, err
	}
	return Profile{Nickname: n, Introduce: i, FavoriteGenres: g}, nil
}
