/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 20:39:17
 * @FilePath: \mood-diary\backend\internal\repository\member_repository.go
 * @LastEditTime: 2025-10-31 23:58:41
 */
package repository

import (
	"context"

	"mood-diary/backend/internal/domain/diary"
	"mood-diary/backend/internal/domain/member"

	"gorm.io/gorm"
)

// MemberRepository 封装 members 表的读写。
type MemberRepository struct {
	db *gorm.DB
}

// NewMemberRepository 基于共享的 *gorm.DB 创建仓储。
func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// Create 新增会员。
func (r *MemberRepository) Create(ctx context.Context, m *member.Member) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// FindByID 按主键查询会员。
func (r *MemberRepository) FindByID(ctx context.Context, id uint) (*member.Member, error) {
	var m member.Member
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByProviderUserID 根据第三方账号查找会员。
func (r *MemberRepository) FindByProviderUserID(ctx context.Context, provider, providerUserID string) (*member.Member, error) {
	var m member.Member
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// EmailInUse 判断邮箱是否已被任意渠道的会员使用。
func (r *MemberRepository) EmailInUse(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&member.Member{}).
		Where("email = ?", email).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// NicknameTaken 判断昵称是否已被其他会员占用。
func (r *MemberRepository) NicknameTaken(ctx context.Context, nickname string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&member.Member{}).
		Where("nickname = ? AND id <> ?", nickname, excludeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update 保存会员的全部字段。
func (r *MemberRepository) Update(ctx context.Context, m *member.Member) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// DeleteWithEntries 在同一事务中删除会员及其全部日记。
func (r *MemberRepository) DeleteWithEntries(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", id).Delete(&diary.Entry{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&member.Member{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
