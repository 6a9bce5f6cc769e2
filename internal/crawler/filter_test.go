package crawler

import (
	"testing"

	"v2pulse/internal/models"
)

func TestSelectStale(t *testing.T) {
	summaries := []models.TopicSummary{
		{ID: 1, LastTouched: 1000}, // 库中没有 -> 保留
		{ID: 2, LastTouched: 2000}, // 比库中新 -> 保留
		{ID: 3, LastTouched: 3000}, // 与库中相同 -> 丢弃
		{ID: 4, LastTouched: 3500}, // 比库中旧 -> 丢弃
	}
	stored := map[int64]int64{
		2: 1500,
		3: 3000,
		4: 4000,
	}

	got := selectStale(summaries, stored)
	if len(got) != 2 {
		t.Fatalf("期望保留 2 个, 实际 %d", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 2 {
		t.Errorf("保留的主题错误: %d, %d", got[0].ID, got[1].ID)
	}
}

func TestSelectStaleEmpty(t *testing.T) {
	if got := selectStale(nil, map[int64]int64{}); len(got) != 0 {
		t.Errorf("空输入应返回空结果: %v", got)
	}
}
