package models

import (
	"time"
)

// Reply 主题下的回复(楼层)
// ID 为站点分配的回复 ID；页面未给出时使用 topic_id*1000+floor 合成
type Reply struct {
	ID             int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	TopicID        int64     `gorm:"not null;index" json:"topic_id"`
	Topic          Topic     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	MemberUsername *string   `gorm:"size:50;index" json:"member_username"` // 匿名/已注销用户为空
	Content        string    `gorm:"size:3000" json:"content"`             // 回复内容(Markdown格式)
	Floor          uint      `gorm:"index" json:"floor"`                   // 楼层号，从 1 开始
	Created        int64     `gorm:"not null;index" json:"created"`
	LastModified   *int64    `json:"last_modified"`
	Thanks         uint      `gorm:"default:0" json:"thanks"` // 感谢数
	CrawledAt      time.Time `json:"crawled_at"`
}
