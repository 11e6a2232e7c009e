package diary

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// DateLayout 是 Entry.EntryDate 的存储与传输格式。
const DateLayout = "2006-01-02"

// Entry 是会员某一天的日记。
type Entry struct {
	ID               string         `gorm:"primaryKey;size:36" json:"id"`                                                // uuid, assigned on create
	OwnerID          uint           `gorm:"not null;uniqueIndex:uk_diary_owner_date,priority:1" json:"-"`                // owning member
	EntryDate        string         `gorm:"size:10;not null;uniqueIndex:uk_diary_owner_date,priority:2" json:"date"`     // YYYY-MM-DD, one entry per owner per day
	Title            string         `gorm:"size:100;not null" json:"title"`                                              // short title
	Content          string         `gorm:"type:text;not null" json:"content"`                                           // body text
	Moods            datatypes.JSON `gorm:"type:json" json:"moods"`                                                      // ordered mood labels
	RecommendedTrack datatypes.JSON `gorm:"type:json" json:"recommended_track"`                                          // optional Track
	CreatedAt        time.Time      `gorm:"index:idx_diary_created_at" json:"created_at"`                                // server timestamp
	UpdatedAt        time.Time      `json:"-"`
}

// TableName 固定迁移使用的表名。
func (Entry) TableName() string {
	return "diary_entries"
}

// Track 是已解析为视频的推荐歌曲。
type Track struct {
	VideoID   string `json:"video_id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Thumbnail string `json:"thumbnail"`
	EmbedURL  string `json:"embed_url"`
}

// DateRef 是日历列表返回的投影。
type DateRef struct {
	Date string `json:"date"`
	ID   string `json:"id"`
}

// EncodeMoods 将情绪序列化到 JSON 列，nil 存为空数组。
func EncodeMoods(moods []string) (datatypes.JSON, error) {
	if moods == nil {
		moods = []string{}
	}
	raw, err := json.Marshal(moods)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// DecodeMoods 与 EncodeMoods 相反，空列解析为空数组。
func DecodeMoods(raw datatypes.JSON) ([]string, error) {
	moods := []string{}
	if len(raw) == 0 || string(raw) == "null" {
		return moods, nil
	}
	if err := json.Unmarshal(raw, &moods); err != nil {
		return nil, err
	}
	return moods, nil
}

// EncodeTrack 序列化可选歌曲，nil 存为 SQL NULL。
func EncodeTrack(track *Track) (datatypes.JSON, error) {
	if track == nil {
		return nil, nil
	}
	raw, err := json.Marshal(track)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// DecodeTrack 在未保存歌曲时返回 nil。
func DecodeTrack(raw datatypes.JSON) (*Track, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var track Track
	if err := json.Unmarshal(raw, &track); err != nil {
		return nil, err
	}
	return &track, nil
}
