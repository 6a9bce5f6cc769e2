package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// TargetNode 要爬取的论坛节点
type TargetNode struct {
	Name  string // 节点路径名，如 "programmer"
	Title string // 节点显示名，如 "程序员"
}

// CrawlerConfig 爬虫配置
type CrawlerConfig struct {
	DelaySeconds         float64 // 请求间基础延迟
	MaxRetries           int
	TimeoutSeconds       int
	MaxPagesPerNode      int
	FetchReplies         bool
	MaxConcurrentNodes   int // 节点间并发数，1 为串行
	MaxConcurrentReplies int // 详情抓取并发数
	BatchSize            int // 批量入库大小
	BaseURL              string
}

// AnalysisConfig 热度分析配置
type AnalysisConfig struct {
	ReplyWeight     float64
	ThanksWeight    float64
	TimeDecayHours  int
	MaxHotnessScore float64
}

// ReportConfig 报告生成配置
type ReportConfig struct {
	HoursBack         int
	TopTopicsPerNode  int
	TopRepliesPerTopic int
	MaxContentLength  int
}

// LLMConfig LLM 客户端配置，Models 为失败时依次回退的候选模型列表
type LLMConfig struct {
	BaseURL        string
	Token          string
	Models         []string
	TimeoutSeconds int
	MaxRetries     int
}

// NotionConfig Notion 发布配置
type NotionConfig struct {
	Token        string
	ParentPageID string
}

// Config 全部运行配置，启动时构建一次后注入各组件
type Config struct {
	DatabaseURL   string
	TargetNodes   []TargetNode
	RetentionDays int
	Crawler       CrawlerConfig
	Analysis      AnalysisConfig
	Report        ReportConfig
	LLM           LLMConfig
	Notion        NotionConfig
}

// Load 从 .env 和环境变量加载配置
// 数据库 DSN 缺失视为致命错误，在任何爬取开始前失败
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// 没有 .env 文件时直接读系统环境变量
	}

	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		TargetNodes:   parseTargetNodes(os.Getenv("TARGET_NODES")),
		RetentionDays: envInt("DATA_RETENTION_DAYS", 90),
		Crawler: CrawlerConfig{
			DelaySeconds:         envFloat("CRAWLER_DELAY_SECONDS", 1.0),
			MaxRetries:           envInt("CRAWLER_MAX_RETRIES", 3),
			TimeoutSeconds:       envInt("CRAWLER_TIMEOUT_SECONDS", 30),
			MaxPagesPerNode:      envInt("CRAWLER_MAX_PAGES_PER_NODE", 5),
			FetchReplies:         envBool("CRAWLER_FETCH_REPLIES", true),
			MaxConcurrentNodes:   envInt("CRAWLER_MAX_CONCURRENT_NODES", 1),
			MaxConcurrentReplies: envInt("CRAWLER_MAX_CONCURRENT_REPLIES", 10),
			BatchSize:            envInt("CRAWLER_BATCH_SIZE", 10),
			BaseURL:              envStr("CRAWLER_BASE_URL", "https://www.v2ex.com"),
		},
		Analysis: AnalysisConfig{
			ReplyWeight:     envFloat("ANALYSIS_REPLY_WEIGHT", 5.0),
			ThanksWeight:    envFloat("ANALYSIS_THANKS_WEIGHT", 3.0),
			TimeDecayHours:  envInt("ANALYSIS_TIME_DECAY_HOURS", 168),
			MaxHotnessScore: envFloat("ANALYSIS_MAX_HOTNESS_SCORE", 999999.0),
		},
		Report: ReportConfig{
			HoursBack:          envInt("REPORT_HOURS_BACK", 48),
			TopTopicsPerNode:   envInt("REPORT_TOP_TOPICS_PER_NODE", 30),
			TopRepliesPerTopic: envInt("REPORT_TOP_REPLIES_PER_TOPIC", 10),
			MaxContentLength:   envInt("REPORT_MAX_CONTENT_LENGTH", 50000),
		},
		LLM: LLMConfig{
			BaseURL:        envStr("LLM_BASE_URL", "https://api.openai.com/v1"),
			Token:          os.Getenv("LLM_TOKEN"),
			Models:         parseList(envStr("LLM_MODELS", "gpt-4o-mini")),
			TimeoutSeconds: envInt("LLM_TIMEOUT_SECONDS", 360),
			MaxRetries:     envInt("LLM_MAX_RETRIES", 2),
		},
		Notion: NotionConfig{
			Token:        os.Getenv("NOTION_TOKEN"),
			ParentPageID: os.Getenv("NOTION_PARENT_PAGE_ID"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("数据库配置缺失: 必须设置 DATABASE_URL")
	}
	if len(cfg.TargetNodes) == 0 {
		cfg.TargetNodes = defaultTargetNodes()
	}

	return cfg, nil
}

// parseTargetNodes 解析 "name=title;name=title" 格式的节点配置
func parseTargetNodes(s string) []TargetNode {
	s = strings.Trim(strings.TrimSpace(s), `'"`)
	if s == "" {
		return nil
	}

	var nodes []TargetNode
	for _, pair := range strings.Split(s, ";") {
		name, title, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		title = strings.TrimSpace(title)
		if name == "" || title == "" {
			continue
		}
		nodes = append(nodes, TargetNode{Name: name, Title: title})
	}
	return nodes
}

func defaultTargetNodes() []TargetNode {
	return []TargetNode{
		{Name: "create", Title: "分享创造"},
		{Name: "ideas", Title: "奇思妙想"},
		{Name: "qna", Title: "问与答"},
		{Name: "programmer", Title: "程序员"},
	}
}

func parseList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true")
	}
	return def
}
