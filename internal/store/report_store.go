package store

import (
	"errors"
	"fmt"
	"time"
	"v2pulse/internal/models"

	"gorm.io/gorm"
)

// InsertReport 保存一份生成好的报告，返回报告 ID
func (s *Store) InsertReport(report *models.Report) (int64, error) {
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now()
	}
	if err := s.db.Create(report).Error; err != nil {
		return 0, fmt.Errorf("保存报告失败: %w", err)
	}
	return report.ID, nil
}

// LatestReport 取某节点(或全站)最新一份报告，没有时返回 nil
func (s *Store) LatestReport(node string) (*models.Report, error) {
	q := s.db.Order("generated_at DESC")
	if node != "" {
		q = q.Where("node_name = ?", node)
	}

	var report models.Report
	err := q.First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询最新报告失败: %w", err)
	}
	return &report, nil
}
