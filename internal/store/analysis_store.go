package store

import (
	"fmt"
	"time"
	"v2pulse/internal/models"
	"v2pulse/internal/utils"

	"gorm.io/gorm"
)

// RecomputeTotalThanks 重算主题的总感谢数(回复感谢数之和)
// ids 为 nil 时重算全部主题，返回受影响的主题数
func (s *Store) RecomputeTotalThanks(ids []int64) (int64, error) {
	q := s.db.Model(&models.Topic{})
	if ids != nil {
		q = q.Where("id IN ?", ids)
	} else {
		q = q.Session(&gorm.Session{AllowGlobalUpdate: true})
	}

	result := q.Update("total_thanks", gorm.Expr(
		"(SELECT COALESCE(SUM(thanks), 0) FROM replies WHERE replies.topic_id = topics.id)",
	))
	if result.Error != nil {
		return 0, fmt.Errorf("更新总感谢数失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// RecomputeHotness 重算主题热度分数
// ids 为 nil 时重算全部；last_touched 为空的主题无法计算衰减，跳过
// 分数计算与测试共用 utils.HotnessConfig.Score，保证口径一致
func (s *Store) RecomputeHotness(ids []int64, cfg utils.HotnessConfig) (int64, error) {
	q := s.db.Model(&models.Topic{}).
		Select("id", "replies", "total_thanks", "last_touched").
		Where("last_touched IS NOT NULL")
	if ids != nil {
		q = q.Where("id IN ?", ids)
	}

	var rows []models.Topic
	if err := q.Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("查询主题热度输入失败: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	now := time.Now().Unix()
	var updated int64

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			score := cfg.Score(row.Replies, row.TotalThanks, *row.LastTouched, now)
			res := tx.Model(&models.Topic{}).
				Where("id = ?", row.ID).
				UpdateColumn("hotness_score", score)
			if res.Error != nil {
				return res.Error
			}
			updated += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("更新热度分数失败: %w", err)
	}
	return updated, nil
}

// HotnessStats 热度分布统计
type HotnessStats struct {
	ScoredTopics int64   `json:"scored_topics"`
	AvgHotness   float64 `json:"avg_hotness"`
	MaxHotness   float64 `json:"max_hotness"`
	AvgThanks    float64 `json:"avg_thanks"`
}

// GetHotnessStats 统计有热度分数的主题分布
func (s *Store) GetHotnessStats() (*HotnessStats, error) {
	var stats HotnessStats
	err := s.db.Model(&models.Topic{}).
		Select("COUNT(*) AS scored_topics",
			"COALESCE(AVG(hotness_score), 0) AS avg_hotness",
			"COALESCE(MAX(hotness_score), 0) AS max_hotness",
			"COALESCE(AVG(total_thanks), 0) AS avg_thanks").
		Where("hotness_score > 0").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("查询热度统计失败: %w", err)
	}
	return &stats, nil
}
