package crawler

import (
	"fmt"
	"log"

	"v2pulse/internal/models"
	"v2pulse/internal/store"
)

// Filter 增量更新过滤器
// 对比存储中的最后活跃时间，筛出需要重新抓取详情的主题
type Filter struct {
	store *store.Store
}

// NewFilter 创建过滤器
func NewFilter(s *store.Store) *Filter {
	return &Filter{store: s}
}

// FilterStale 筛出新主题和有新活动的主题，只读不写
// 保留条件: 库中没有记录, 或页面上的活跃时间严格晚于库中记录
func (f *Filter) FilterStale(summaries []models.TopicSummary) ([]models.TopicSummary, error) {
	if len(summaries) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.ID)
	}

	stored, err := f.store.LastTouchedByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("查询已存主题活跃时间失败: %w", err)
	}

	stale := selectStale(summaries, stored)
	log.Printf("增量过滤: %d 个主题中 %d 个需要更新", len(summaries), len(stale))
	return stale, nil
}

// selectStale 纯过滤逻辑，stored 中缺失的 ID 视为新主题
func selectStale(summaries []models.TopicSummary, stored map[int64]int64) []models.TopicSummary {
	var stale []models.TopicSummary
	for _, s := range summaries {
		last, ok := stored[s.ID]
		if !ok || s.LastTouched > last {
			stale = append(stale, s)
		}
	}
	return stale
}
