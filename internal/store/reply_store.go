package store

import (
	"fmt"
	"log"
	"v2pulse/internal/models"

	"gorm.io/gorm/clause"
)

// replyUpdateColumns 冲突时只更新内容、感谢数和抓取时间，作者/楼层不可变
var replyUpdateColumns = []string{"content", "thanks", "crawled_at"}

// UpsertReply 插入或按 ID 更新单条回复
func (s *Store) UpsertReply(reply *models.Reply) error {
	sanitizeReply(reply)

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(replyUpdateColumns),
	}).Create(reply).Error
	if err != nil {
		return fmt.Errorf("保存回复 %d 失败: %w", reply.ID, err)
	}
	return nil
}

// BatchUpsertReplies 批量插入或更新回复，按 500 条分块提交
func (s *Store) BatchUpsertReplies(replies []models.Reply) error {
	if len(replies) == 0 {
		return nil
	}
	for i := range replies {
		sanitizeReply(&replies[i])
	}

	for start := 0; start < len(replies); start += replyChunkSize {
		end := start + replyChunkSize
		if end > len(replies) {
			end = len(replies)
		}
		chunk := replies[start:end]

		err := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(replyUpdateColumns),
		}).Create(&chunk).Error
		if err != nil {
			return fmt.Errorf("批量保存回复失败 (批次 %d): %w", start/replyChunkSize+1, err)
		}
	}

	log.Printf("批量插入/更新 %d 个回复", len(replies))
	return nil
}
