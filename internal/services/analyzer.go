package services

import (
	"fmt"
	"log"

	"v2pulse/internal/config"
	"v2pulse/internal/store"
	"v2pulse/internal/utils"
)

// recentTopicLimit 增量分析单次处理的主题上限
const recentTopicLimit = 2000

// AnalyzerService 热度分析服务: 重算感谢汇总和热度分数
// 所有操作幂等，可重复执行，与爬取的先后顺序无关
type AnalyzerService struct {
	store *store.Store
	cfg   utils.HotnessConfig
}

// NewAnalyzerService 创建分析服务
func NewAnalyzerService(s *store.Store, cfg config.AnalysisConfig) *AnalyzerService {
	return &AnalyzerService{
		store: s,
		cfg: utils.HotnessConfig{
			ReplyWeight:    cfg.ReplyWeight,
			ThanksWeight:   cfg.ThanksWeight,
			TimeDecayHours: cfg.TimeDecayHours,
			MaxScore:       cfg.MaxHotnessScore,
		},
	}
}

// AnalyzeRecent 只重算最近活跃的主题，日常调度用这个
func (a *AnalyzerService) AnalyzeRecent(hoursBack int) (int64, error) {
	ids, err := a.store.RecentActiveTopicIDs(hoursBack, recentTopicLimit)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		log.Printf("最近 %d 小时没有活跃主题, 跳过分析", hoursBack)
		return 0, nil
	}
	return a.recompute(ids)
}

// AnalyzeAll 全量重算，修完数据或调整权重后手动触发
func (a *AnalyzerService) AnalyzeAll() (int64, error) {
	return a.recompute(nil)
}

// recompute 先汇总感谢数再算热度，ids 为 nil 时处理全部主题
func (a *AnalyzerService) recompute(ids []int64) (int64, error) {
	if _, err := a.store.RecomputeTotalThanks(ids); err != nil {
		return 0, fmt.Errorf("重算感谢汇总失败: %w", err)
	}

	updated, err := a.store.RecomputeHotness(ids, a.cfg)
	if err != nil {
		return 0, fmt.Errorf("重算热度分数失败: %w", err)
	}

	log.Printf("热度分析完成, 更新了 %d 个主题", updated)
	return updated, nil
}

// Stats 热度分布概览
func (a *AnalyzerService) Stats() (*store.HotnessStats, error) {
	return a.store.GetHotnessStats()
}
