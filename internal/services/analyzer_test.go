package services

import (
	"testing"
	"time"

	"v2pulse/internal/config"
	"v2pulse/internal/models"
)

func testAnalysisConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
		ReplyWeight:     5.0,
		ThanksWeight:    3.0,
		TimeDecayHours:  168,
		MaxHotnessScore: 999999.0,
	}
}

func TestAnalyzeRecent(t *testing.T) {
	s := newServiceStore(t)
	now := time.Now().Unix()

	touched := now - 3600
	topic := models.Topic{
		ID: 1, Title: "主题", URL: "https://x/t/1", NodeName: "create",
		Replies: 10, Created: now - 7200, LastTouched: &touched,
	}
	if err := s.UpsertTopic(&topic); err != nil {
		t.Fatalf("准备主题失败: %v", err)
	}
	replies := []models.Reply{
		{ID: 101, TopicID: 1, Content: "a", Floor: 1, Created: now, Thanks: 4},
		{ID: 102, TopicID: 1, Content: "b", Floor: 2, Created: now, Thanks: 2},
	}
	if err := s.BatchUpsertReplies(replies); err != nil {
		t.Fatalf("准备回复失败: %v", err)
	}

	a := NewAnalyzerService(s, testAnalysisConfig())
	updated, err := a.AnalyzeRecent(24)
	if err != nil {
		t.Fatalf("分析失败: %v", err)
	}
	if updated != 1 {
		t.Fatalf("应更新 1 个主题, 实际 %d", updated)
	}

	var got models.Topic
	s.DB().First(&got, 1)
	if got.TotalThanks != 6 {
		t.Errorf("感谢汇总错误: %d", got.TotalThanks)
	}
	// 1 小时前活跃, 衰减接近 1: score ≈ (10*5 + 6*3) * (1 - 3600/604800)
	if got.HotnessScore < 60 || got.HotnessScore > 68 {
		t.Errorf("热度分数超出预期范围: %f", got.HotnessScore)
	}

	stats, err := a.Stats()
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if stats.ScoredTopics != 1 {
		t.Errorf("有分主题数应为 1, 实际 %d", stats.ScoredTopics)
	}
}

func TestAnalyzeRecentNoActivity(t *testing.T) {
	s := newServiceStore(t)
	a := NewAnalyzerService(s, testAnalysisConfig())

	updated, err := a.AnalyzeRecent(24)
	if err != nil {
		t.Fatalf("空库分析失败: %v", err)
	}
	if updated != 0 {
		t.Errorf("空库不应有更新: %d", updated)
	}
}

func TestAnalyzeAllIdempotent(t *testing.T) {
	s := newServiceStore(t)
	now := time.Now().Unix()

	touched := now - 600
	topic := models.Topic{
		ID: 2, Title: "主题", URL: "https://x/t/2", NodeName: "qna",
		Replies: 3, Created: now, LastTouched: &touched,
	}
	if err := s.UpsertTopic(&topic); err != nil {
		t.Fatalf("准备主题失败: %v", err)
	}

	a := NewAnalyzerService(s, testAnalysisConfig())
	if _, err := a.AnalyzeAll(); err != nil {
		t.Fatalf("首次全量分析失败: %v", err)
	}
	var first models.Topic
	s.DB().First(&first, 2)

	// 重复执行结果一致
	if _, err := a.AnalyzeAll(); err != nil {
		t.Fatalf("二次全量分析失败: %v", err)
	}
	var second models.Topic
	s.DB().First(&second, 2)

	if diff := second.HotnessScore - first.HotnessScore; diff < -0.5 || diff > 0.5 {
		t.Errorf("重复分析分数漂移: %f -> %f", first.HotnessScore, second.HotnessScore)
	}
}
