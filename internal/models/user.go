package models

import (
	"time"
)

// User 被采集到的论坛用户
// 只做首次发现记录(insert-if-absent)，不更新不删除
type User struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	FirstSeenAt time.Time `json:"first_seen_at"` // 首次采集时间
}
