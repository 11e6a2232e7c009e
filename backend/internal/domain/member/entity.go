/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 20:38:45
 * @FilePath: \mood-diary\backend\internal\domain\member\entity.go
 * @LastEditTime: 2025-10-31 23:40:18
 */
package member

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// 支持的社交登录渠道。
const (
	ProviderKakao = "kakao"
	ProviderNaver = "naver"
)

// Member 是社交账号及注册时填写的资料，完成注册前保持未激活状态。
type Member struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Provider       string         `gorm:"size:20;not null;uniqueIndex:uk_member_provider_uid,priority:1;uniqueIndex:uk_member_provider_email,priority:1" json:"provider"`
	ProviderUserID string         `gorm:"size:255;not null;uniqueIndex:uk_member_provider_uid,priority:2" json:"-"`
	Email          string         `gorm:"size:255;not null;uniqueIndex:uk_member_provider_email,priority:2" json:"email"`
	ProfileImage   string         `gorm:"size:512" json:"profile_image"`
	Nickname       *string        `gorm:"size:10;uniqueIndex:uk_member_nickname" json:"nickname"` // NULL until registration
	Introduce      string         `gorm:"size:25" json:"introduce"`
	FavoriteGenres datatypes.JSON `gorm:"type:json" json:"-"`
	IsActive       bool           `gorm:"not null;default:false" json:"is_active"`
	LastLoginAt    *time.Time     `json:"last_login_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName 固定迁移使用的表名。
func (Member) TableName() string {
	return "members"
}

// NicknameValue 返回昵称，未设置时返回空字符串。
func (m *Member) NicknameValue() string {
	if m == nil || m.Nickname == nil {
		return ""
	}
	return *m.Nickname
}

// Genres 解析 FavoriteGenres，兼容空列。
func (m *Member) Genres() []string {
	genres := []string{}
	if m == nil || len(m.FavoriteGenres) == 0 {
		return genres
	}
	if err := json.Unmarshal(m.FavoriteGenres, &genres); err != nil {
		return []string{}
	}
	return genres
}

// SetGenres 将曲风写入 JSON 列。
func (m *Member) SetGenres(genres []string) error {
	if genres == nil {
		genres = []string{}
	}
	raw, err := json.Marshal(genres)
	if err != nil {
		return err
	}
	m.FavoriteGenres = datatypes.JSON(raw)
	return nil
}
