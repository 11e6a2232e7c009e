package repository

import (
	"context"
	"strings"

	"mood-diary/backend/internal/domain/diary"

	"gorm.io/gorm"
)

// likeEscape 是模糊查询使用的转义字符，MySQL 与 SQLite 都支持显式 ESCAPE。
const likeEscape = "!"

// DiaryRepository 封装 diary_entries 表的读写。
type DiaryRepository struct {
	db *gorm.DB
}

// NewDiaryRepository 基于共享的 *gorm.DB 创建仓储。
func NewDiaryRepository(db *gorm.DB) *DiaryRepository {
	return &DiaryRepository{db: db}
}

// Create 插入日记。同一会员同一天的第二条记录会触发唯一索引，
// 在开启 TranslateError 时表现为 gorm.ErrDuplicatedKey。
func (r *DiaryRepository) Create(ctx context.Context, entry *diary.Entry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ExistsForDate 判断会员在该日期是否已有日记。
func (r *DiaryRepository) ExistsForDate(ctx context.Context, ownerID uint, date string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&diary.Entry{}).
		Where("owner_id = ? AND entry_date = ?", ownerID, date).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByID 仅在日记属于 ownerID 时返回，否则返回 gorm.ErrRecordNotFound。
func (r *DiaryRepository) FindByID(ctx context.Context, ownerID uint, id string) (*diary.Entry, error) {
	var entry diary.Entry
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListDates 按日期升序返回会员全部 (date, id)。
func (r *DiaryRepository) ListDates(ctx context.Context, ownerID uint) ([]diary.DateRef, error) {
	refs := make([]diary.DateRef, 0)
	err := r.db.WithContext(ctx).
		Model(&diary.Entry{}).
		Select("entry_date AS date, id").
		Where("owner_id = ?", ownerID).
		Order("entry_date ASC").
		Order("id ASC").
		Scan(&refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// ListBetween 返回 entry_date 落在 [from, to] 内的日记。
func (r *DiaryRepository) ListBetween(ctx context.Context, ownerID uint, from, to string) ([]diary.Entry, error) {
	var entries []diary.Entry
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND entry_date >= ? AND entry_date <= ?", ownerID, from, to).
		Order("entry_date ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Search 在标题或正文中不区分大小写地匹配关键词，按创建时间倒序。
// SQLite 的 LOWER 只处理 ASCII，因此 SQLite 下在 Go 中逐条匹配。
func (r *DiaryRepository) Search(ctx context.Context, ownerID uint, query string) ([]diary.Entry, error) {
	tx := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC")

	if r.db.Dialector.Name() != "sqlite" {
		pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
		tx = tx.Where("(LOWER(title) LIKE ? ESCAPE '"+likeEscape+"' OR LOWER(content) LIKE ? ESCAPE '"+likeEscape+"')", pattern, pattern)
	}

	var entries []diary.Entry
	if err := tx.Find(&entries).Error; err != nil {
		return nil, err
	}
	if r.db.Dialector.Name() != "sqlite" {
		return entries, nil
	}

	needle := strings.ToLower(query)
	matched := entries[:0]
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Title), needle) || strings.Contains(strings.ToLower(e.Content), needle) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// Delete 删除会员自己的日记；不存在或不属于该会员时返回 gorm.ErrRecordNotFound。
func (r *DiaryRepository) Delete(ctx context.Context, ownerID uint, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&diary.Entry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(
		likeEscape, likeEscape+likeEscape,
		"%", likeEscape+"%",
		"_", likeEscape+"_",
	)
	return replacer.Replace(value)
}
