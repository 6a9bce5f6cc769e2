package utils

// HotnessConfig 热度计算参数
type HotnessConfig struct {
	ReplyWeight    float64 // 回复数权重 (5.0)
	ThanksWeight   float64 // 感谢数权重 (3.0)
	TimeDecayHours int     // 时间衰减周期(小时, 168 = 7天)
	MaxScore       float64 // 热度分数上限 (999999)
}

// DefaultHotnessConfig 默认热度参数
var DefaultHotnessConfig = HotnessConfig{
	ReplyWeight:    5.0,
	ThanksWeight:   3.0,
	TimeDecayHours: 168,
	MaxScore:       999999.0,
}

// Score 计算单个主题的热度分数
//
//	raw   = replies*ReplyWeight + thanks*ThanksWeight
//	decay = max(0.1, 1.0 - (now-lastTouched)/(TimeDecayHours*3600))
//	score = min(raw*decay, MaxScore)
//
// 衰减系数下限 0.1，再老的主题分数也不会归零；上限封顶防止极端回复量跑飞
func (c HotnessConfig) Score(replies, thanks uint, lastTouched, now int64) float64 {
	raw := float64(replies)*c.ReplyWeight + float64(thanks)*c.ThanksWeight

	decay := 1.0 - float64(now-lastTouched)/float64(int64(c.TimeDecayHours)*3600)
	if decay < 0.1 {
		decay = 0.1
	}

	score := raw * decay
	if score > c.MaxScore {
		score = c.MaxScore
	}
	return score
}
