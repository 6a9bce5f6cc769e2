package models

import (
	"time"
)

// Topic 论坛主题帖
// ID 为站点分配的主题 ID，不使用自增主键，作为回复表的关联键
type Topic struct {
	ID             int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Title          string     `gorm:"size:500;not null" json:"title"`
	URL            string     `gorm:"uniqueIndex;size:500;not null" json:"url"`
	Content        string     `gorm:"type:text" json:"content"` // 主贴内容(Markdown格式)
	NodeName       string     `gorm:"size:50;index" json:"node_name"`
	MemberUsername *string    `gorm:"size:50;index" json:"member_username"` // 作者用户名，解析不到时为空
	Replies        uint       `gorm:"default:0;index" json:"replies"`
	Created        int64      `gorm:"not null;index" json:"created"`  // 创建时间戳(秒)
	LastTouched    *int64     `gorm:"index" json:"last_touched"`      // 最后活跃时间戳
	LastModified   *int64     `json:"last_modified"`                  // 最后修改时间戳
	IsDeleted      bool       `gorm:"default:false" json:"is_deleted"`
	TotalThanks    uint       `gorm:"default:0" json:"total_thanks"`           // 主题下所有回复的总感谢数(派生)
	HotnessScore   float64    `gorm:"default:0;index" json:"hotness_score"`    // 热度分数(派生)
	CrawledAt      time.Time  `json:"crawled_at"`

	// 非数据库字段，批量查询时填充
	TopReplies []Reply `gorm:"-" json:"top_replies,omitempty"`
}
