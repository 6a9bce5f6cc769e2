package store

import (
	"fmt"
	"time"
	"v2pulse/internal/models"
)

// Stats 数据库概览统计
type Stats struct {
	UsersCount     int64  `json:"users_count"`
	TopicsCount    int64  `json:"topics_count"`
	RepliesCount   int64  `json:"replies_count"`
	TodayTopics    int64  `json:"today_topics"`
	LatestActivity string `json:"latest_activity,omitempty"`
	OldestActivity string `json:"oldest_activity,omitempty"`
}

// GetStats 统计各实体数量及活跃时间范围
func (s *Store) GetStats() (*Stats, error) {
	var stats Stats

	if err := s.db.Model(&models.User{}).Count(&stats.UsersCount).Error; err != nil {
		return nil, fmt.Errorf("统计用户数失败: %w", err)
	}
	if err := s.db.Model(&models.Topic{}).Count(&stats.TopicsCount).Error; err != nil {
		return nil, fmt.Errorf("统计主题数失败: %w", err)
	}
	if err := s.db.Model(&models.Reply{}).Count(&stats.RepliesCount).Error; err != nil {
		return nil, fmt.Errorf("统计回复数失败: %w", err)
	}

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := s.db.Model(&models.Topic{}).
		Where("crawled_at >= ?", dayStart).
		Count(&stats.TodayTopics).Error; err != nil {
		return nil, fmt.Errorf("统计今日主题数失败: %w", err)
	}

	var latest, oldest *int64
	if err := s.db.Model(&models.Topic{}).
		Select("MAX(last_touched)").Scan(&latest).Error; err == nil && latest != nil {
		stats.LatestActivity = time.Unix(*latest, 0).Format("2006-01-02 15:04:05")
	}
	if err := s.db.Model(&models.Topic{}).
		Select("MIN(created)").Scan(&oldest).Error; err == nil && oldest != nil {
		stats.OldestActivity = time.Unix(*oldest, 0).Format("2006-01-02 15:04:05")
	}

	return &stats, nil
}
