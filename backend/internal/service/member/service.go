/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 22:37:41
 * @FilePath: \mood-diary\backend\internal\service\member\service.go
 * @LastEditTime: 2025-11-02 23:29:15
 */
package member

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "mood-diary/backend/internal/domain/member"
	appLogger "mood-diary/backend/internal/infra/logger"
	"mood-diary/backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrMemberNotFound = errors.New("member not found")
	ErrNicknameTaken  = errors.New("nickname already taken")
)

// TokenRevoker 吊销会员的全部 refresh token。
type TokenRevoker interface {
	RevokeAll(ctx context.Context, memberID uint) error
}

// Service 管理当前会员的账户。
type Service struct {
	members *repository.MemberRepository
	tokens  TokenRevoker
	logger  *zap.SugaredLogger
}

// NewService 创建会员服务。
func NewService(members *repository.MemberRepository, tokens TokenRevoker) *Service {
	return &Service{
		members: members,
		tokens:  tokens,
		logger:  appLogger.S().With("component", "member.service"),
	}
}

// Account 是账户页展示的会员信息。
type Account struct {
	ID             uint       `json:"id"`
	Provider       string     `json:"provider"`
	Email          string     `json:"email"`
	Nickname       string     `json:"nickname"`
	Introduce      string     `json:"introduce"`
	FavoriteGenres []string   `json:"favorite_genres"`
	LastLoginAt    *time.Time `json:"last_login_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Profile 是会员对外展示的资料卡。
type Profile struct {
	Nickname       string   `json:"nickname"`
	Introduce      string   `json:"introduce"`
	FavoriteGenres []string `json:"favorite_genres"`
	ProfileImage   string   `json:"profile_image"`
}

// UpdateParams 描述部分更新，nil 字段保持不变。
type UpdateParams struct {
	Nickname       *string
	Introduce      *string
	FavoriteGenres *[]string
}

// Get 返回会员的账户信息。
func (s *Service) Get(ctx context.Context, memberID uint) (Account, error) {
	m, err := s.load(ctx, memberID)
	if err != nil {
		return Account{}, err
	}
	return toAccount(m), nil
}

// Profile 返回会员资料卡。
func (s *Service) Profile(ctx context.Context, memberID uint) (Profile, error) {
	m, err := s.load(ctx, memberID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		Nickname:       m.NicknameValue(),
		Introduce:      m.Introduce,
		FavoriteGenres: m.Genres(),
		ProfileImage:   m.ProfileImage,
	}, nil
}

// FavoriteGenres 返回保存的偏好曲风，作为音乐推荐的默认值。
func (s *Service) FavoriteGenres(ctx context.Context, memberID uint) ([]string, error) {
	m, err := s.load(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return m.Genres(), nil
}

// Update 按注册时的校验规则更新非 nil 字段。
func (s *Service) Update(ctx context.Context, memberID uint, params UpdateParams) (Account, error) {
	log := s.scope("update").With("member_id", memberID)

	m, err := s.load(ctx, memberID)
	if err != nil {
		return Account{}, err
	}

	if params.Nickname != nil {
		nickname, err := domain.NormalizeNickname(*params.Nickname)
		if err != nil {
			return Account{}, err
		}
		if nickname != m.NicknameValue() {
			taken, err := s.members.NicknameTaken(ctx, nickname, m.ID)
			if err != nil {
				return Account{}, fmt.Errorf("check nickname: %w", err)
			}
			if taken {
				return Account{}, ErrNicknameTaken
			}
		}
		m.Nickname = &nickname
	}
	if params.Introduce != nil {
		introduce, err := domain.NormalizeIntroduce(*params.Introduce)
		if err != nil {
			return Account{}, err
		}
		m.Introduce = introduce
	}
	if params.FavoriteGenres != nil {
		genres, err := domain.NormalizeGenres(*params.FavoriteGenres)
		if err != nil {
			return Account{}, err
		}
		if err := m.SetGenres(genres); err != nil {
			return Account{}, fmt.Errorf("encode genres: %w", err)
		}
	}

	if err := s.members.Update(ctx, m); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Account{}, ErrNicknameTaken
		}
		log.Errorw("update member failed", "error", err)
		return Account{}, fmt.Errorf("update member: %w", err)
	}
	log.Infow("member updated")
	return toAccount(m), nil
}

// Delete 删除会员及其全部日记，并注销所有会话。
func (s *Service) Delete(ctx context.Context, memberID uint) error {
	log := s.scope("delete").With("member_id", memberID)

	if err := s.members.DeleteWithEntries(ctx, memberID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		log.Errorw("delete member failed", "error", err)
		return fmt.Errorf("delete member: %w", err)
	}
	if s.tokens != nil {
		if err := s.tokens.RevokeAll(ctx, memberID); err != nil {
			// 账户已删除，残留令牌在刷新时也会失败。
			log.Warnw("revoke refresh tokens failed", "error", err)
		}
	}
	log.Infow("member deleted")
	return nil
}

func (s *Service) load(ctx context.Context, memberID uint) (*domain.Member, error) {
	m, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("find member: %w", err)
	}
	return m, nil
}

func (s *Service) scope(operation string) *zap.SugaredLogger {
	if s.logger == nil {
		s.logger = appLogger.S().With("component", "member.service")
	}
	return s.logger.With("operation", operation)
}

func toAccount(m *domain.Member) Account {
	return Account{
		ID:             m.ID,
		Provider:       m.Provider,
		Email:          m.Email,
		Nickname:       m.NicknameValue(),
		Introduce:      m.Introduce,
		FavoriteGenres: m.Genres(),
		LastLoginAt:    m.LastLoginAt,
		CreatedAt:      m.CreatedAt,
	}
}
