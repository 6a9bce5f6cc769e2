package models

import (
	"time"
)

// 报告类型
const (
	ReportTypeHotspot = "hotspot"
	ReportTypeTrend   = "trend"
	ReportTypeSummary = "summary"
)

// SiteWideNode 全站报告使用的虚拟节点名
const SiteWideNode = "全站"

// Report LLM 生成的分析报告，生成后不再修改
type Report struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	NodeName       string    `gorm:"size:50;not null;index" json:"node_name"` // 节点名称或"全站"
	ReportType     string    `gorm:"size:20;default:'hotspot'" json:"report_type"`
	PeriodStart    time.Time `gorm:"not null" json:"period_start"` // 分析数据起始时间
	PeriodEnd      time.Time `gorm:"not null" json:"period_end"`
	TopicsAnalyzed int       `gorm:"default:0" json:"topics_analyzed"`
	Title          string    `gorm:"size:200;not null" json:"title"`
	Content        string    `gorm:"type:text;not null" json:"content"` // 报告内容(Markdown格式)
	GeneratedAt    time.Time `gorm:"index" json:"generated_at"`
}
