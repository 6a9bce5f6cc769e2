package crawler

import (
	"context"
	"testing"
	"time"

	"v2pulse/internal/models"
	"v2pulse/internal/utils"
)

// 批量入库被一条坏记录拖垮时，逐条回退应保住其余正常记录
func TestProcessBatchFallbackSkipsBadRows(t *testing.T) {
	s := newCrawlerStore(t)
	cfg := testCrawlerConfig("http://127.0.0.1:0")
	cfg.FetchReplies = false
	seen, err := utils.NewSeenCache(16, time.Minute)
	if err != nil {
		t.Fatalf("NewSeenCache: %v", err)
	}
	p := NewPipeline(NewFetcher(cfg), s, cfg, seen)

	now := time.Now().Unix()
	// 7002 的 URL 与 7001 撞车, 触发 url 唯一索引, 整批写入失败
	summaries := []models.TopicSummary{
		{ID: 7001, Title: "正常主题一", URL: "https://www.v2ex.com/t/7001", NodeName: "create", Created: now, LastTouched: now},
		{ID: 7002, Title: "撞车主题", URL: "https://www.v2ex.com/t/7001", NodeName: "create", Created: now, LastTouched: now},
		{ID: 7003, Title: "正常主题二", URL: "https://www.v2ex.com/t/7003", NodeName: "create", Created: now, LastTouched: now},
	}

	result := p.Process(context.Background(), summaries)
	if result.TopicsSaved != 2 {
		t.Fatalf("TopicsSaved = %d, 期望 2", result.TopicsSaved)
	}

	var count int64
	if err := s.DB().Model(&models.Topic{}).Count(&count).Error; err != nil {
		t.Fatalf("统计主题失败: %v", err)
	}
	if count != 2 {
		t.Errorf("入库主题数 = %d, 期望 2", count)
	}

	for _, id := range []int64{7001, 7003} {
		var got models.Topic
		if err := s.DB().First(&got, id).Error; err != nil {
			t.Errorf("正常主题 %d 未入库: %v", id, err)
		}
	}
	var bad models.Topic
	if err := s.DB().First(&bad, 7002).Error; err == nil {
		t.Error("坏记录 7002 不应入库")
	}
}

// 整批都正常时不应走回退路径, 计数与输入一致
func TestProcessBatchAllValid(t *testing.T) {
	s := newCrawlerStore(t)
	cfg := testCrawlerConfig("http://127.0.0.1:0")
	cfg.FetchReplies = false
	seen, err := utils.NewSeenCache(16, time.Minute)
	if err != nil {
		t.Fatalf("NewSeenCache: %v", err)
	}
	p := NewPipeline(NewFetcher(cfg), s, cfg, seen)

	author := "dave"
	now := time.Now().Unix()
	summaries := []models.TopicSummary{
		{ID: 7101, Title: "主题甲", URL: "https://www.v2ex.com/t/7101", NodeName: "create", MemberUsername: &author, Created: now, LastTouched: now},
		{ID: 7102, Title: "主题乙", URL: "https://www.v2ex.com/t/7102", NodeName: "create", Created: now, LastTouched: now},
	}

	result := p.Process(context.Background(), summaries)
	if result.TopicsSaved != 2 {
		t.Errorf("TopicsSaved = %d, 期望 2", result.TopicsSaved)
	}
	if result.UsersSaved != 1 {
		t.Errorf("UsersSaved = %d, 期望 1", result.UsersSaved)
	}
}
