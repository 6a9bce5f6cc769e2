package store

import (
	"fmt"
	"log"
	"time"
	"v2pulse/internal/models"

	"gorm.io/gorm/clause"
)

// topicUpdateColumns 冲突时允许更新的字段，作者/节点/创建时间不可变
var topicUpdateColumns = []string{
	"title", "content", "replies",
	"last_touched", "last_modified", "is_deleted", "crawled_at",
}

// UpsertTopic 插入或按 ID 更新单个主题
func (s *Store) UpsertTopic(topic *models.Topic) error {
	sanitizeTopic(topic)

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(topicUpdateColumns),
	}).Create(topic).Error
	if err != nil {
		return fmt.Errorf("保存主题 %d 失败: %w", topic.ID, err)
	}
	return nil
}

// BatchUpsertTopics 批量插入或更新主题，整批一个语句
func (s *Store) BatchUpsertTopics(topics []models.Topic) error {
	if len(topics) == 0 {
		return nil
	}
	for i := range topics {
		sanitizeTopic(&topics[i])
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(topicUpdateColumns),
	}).Create(&topics).Error
	if err != nil {
		return fmt.Errorf("批量保存主题失败: %w", err)
	}
	log.Printf("批量插入/更新 %d 个主题", len(topics))
	return nil
}

// LastTouchedByIDs 批量查询主题的最后活跃时间戳，单条查询
// 库中无记录或 last_touched 为空的主题不出现在返回的 map 中
func (s *Store) LastTouchedByIDs(ids []int64) (map[int64]int64, error) {
	if len(ids) == 0 {
		return map[int64]int64{}, nil
	}

	var rows []struct {
		ID          int64
		LastTouched *int64
	}
	err := s.db.Model(&models.Topic{}).
		Select("id", "last_touched").
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("批量查询最后活跃时间失败: %w", err)
	}

	result := make(map[int64]int64, len(rows))
	for _, row := range rows {
		if row.LastTouched != nil {
			result[row.ID] = *row.LastTouched
		}
	}
	return result, nil
}

// HotTopics 查询节点或全站的热门主题
// node 为空表示全站；只取窗口内 hotness_score > 0 的主题，按分数和活跃时间降序
func (s *Store) HotTopics(node string, limit, periodHours int) ([]models.Topic, error) {
	cutoff := time.Now().Add(-time.Duration(periodHours) * time.Hour).Unix()

	q := s.db.Where("last_touched >= ? AND hotness_score > 0", cutoff)
	if node != "" {
		q = q.Where("node_name = ?", node)
	}

	var topics []models.Topic
	err := q.Order("hotness_score DESC, last_touched DESC").Limit(limit).Find(&topics).Error
	if err != nil {
		return nil, fmt.Errorf("查询热门主题失败: %w", err)
	}
	return topics, nil
}

// RecentActiveTopicIDs 查询最近活跃的主题 ID，limit 防止数据量过大
func (s *Store) RecentActiveTopicIDs(hoursBack, limit int) ([]int64, error) {
	cutoff := time.Now().Add(-time.Duration(hoursBack) * time.Hour).Unix()

	var ids []int64
	err := s.db.Model(&models.Topic{}).
		Where("last_touched >= ?", cutoff).
		Order("last_touched DESC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("查询最近活跃主题失败: %w", err)
	}
	return ids, nil
}

// TopicsWithTopReplies 批量取主题及各自的高感谢回复，两条查询避免 N+1
// 返回顺序与传入的 ids 一致
func (s *Store) TopicsWithTopReplies(ids []int64, replyLimit int) ([]models.Topic, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var topics []models.Topic
	if err := s.db.Where("id IN ?", ids).Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("批量查询主题失败: %w", err)
	}
	topicMap := make(map[int64]*models.Topic, len(topics))
	for i := range topics {
		topicMap[topics[i].ID] = &topics[i]
	}

	var replies []models.Reply
	err := s.db.Where("topic_id IN ?", ids).
		Order("topic_id, thanks DESC, created ASC").
		Find(&replies).Error
	if err != nil {
		return nil, fmt.Errorf("批量查询回复失败: %w", err)
	}

	// 每个主题只保留前 replyLimit 条
	for _, reply := range replies {
		t, ok := topicMap[reply.TopicID]
		if !ok || len(t.TopReplies) >= replyLimit {
			continue
		}
		t.TopReplies = append(t.TopReplies, reply)
	}

	result := make([]models.Topic, 0, len(ids))
	for _, id := range ids {
		if t, ok := topicMap[id]; ok {
			result = append(result, *t)
		}
	}
	return result, nil
}

// CleanOldData 清理过期主题及其回复
// 以最后活跃时间判断，没有活跃时间的按创建时间判断
func (s *Store) CleanOldData(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays).Unix()

	var ids []int64
	err := s.db.Model(&models.Topic{}).
		Where("last_touched < ? OR (last_touched IS NULL AND created < ?)", cutoff, cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("查询过期主题失败: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.db.Where("topic_id IN ?", ids).Delete(&models.Reply{}).Error; err != nil {
		return 0, fmt.Errorf("清理过期回复失败: %w", err)
	}
	result := s.db.Where("id IN ?", ids).Delete(&models.Topic{})
	if result.Error != nil {
		return 0, fmt.Errorf("清理过期主题失败: %w", result.Error)
	}

	log.Printf("清理了 %d 个过期主题", result.RowsAffected)
	return result.RowsAffected, nil
}
