package tasks

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"v2pulse/internal/config"
	"v2pulse/internal/crawler"
	"v2pulse/internal/models"
	"v2pulse/internal/services"
	"v2pulse/internal/store"
)

// 各任务的调度节奏
const (
	crawlSpec    = "*/30 * * * *" // 每 30 分钟增量爬取
	analysisSpec = "5 * * * *"    // 每小时第 5 分钟重算热度
	reportSpec   = "0 9 * * *"    // 每天 9 点生成并发布报告
	cleanupSpec  = "30 3 * * *"   // 每天凌晨清理过期数据
)

// crawlTimeout 单次定时爬取的超时上限，留够下一轮触发前的余量
const crawlTimeout = 25 * time.Minute

// Scheduler 定时任务调度器，把爬取、分析、报告和清理串成日常节奏
// reports/notion 可为 nil，表示未配置 LLM 或 Notion，对应任务不注册
type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	store    *store.Store
	crawler  *crawler.Crawler
	analyzer *services.AnalyzerService
	reports  *services.ReportService
	notion   *services.NotionService
}

// NewScheduler 创建调度器
func NewScheduler(cfg *config.Config, s *store.Store, c *crawler.Crawler,
	analyzer *services.AnalyzerService, reports *services.ReportService,
	notion *services.NotionService) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		cfg:      cfg,
		store:    s,
		crawler:  c,
		analyzer: analyzer,
		reports:  reports,
		notion:   notion,
	}
}

// Run 注册任务并阻塞运行，ctx 取消时优雅停止
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(crawlSpec, s.runCrawl); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(analysisSpec, s.runAnalysis); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(cleanupSpec, s.runCleanup); err != nil {
		return err
	}
	if s.reports != nil {
		if _, err := s.cron.AddFunc(reportSpec, s.runReports); err != nil {
			return err
		}
	} else {
		log.Println("未配置 LLM, 跳过报告任务注册")
	}

	log.Printf("调度器启动: 爬取(%s) 分析(%s) 清理(%s)", crawlSpec, analysisSpec, cleanupSpec)
	s.cron.Start()

	<-ctx.Done()
	log.Println("调度器收到停止信号, 等待运行中的任务结束")
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	return nil
}

func (s *Scheduler) runCrawl() {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), crawlTimeout)
	defer cancel()

	result := s.crawler.CrawlAll(ctx)
	if !result.Success {
		log.Printf("定时爬取部分失败: %s", result.Error)
	}
	log.Printf("定时爬取完成, 更新 %d 个主题, 耗时 %s",
		result.TopicsSaved, time.Since(start).Round(time.Millisecond))
}

func (s *Scheduler) runAnalysis() {
	start := time.Now()
	updated, err := s.analyzer.AnalyzeRecent(s.cfg.Report.HoursBack)
	if err != nil {
		log.Printf("定时热度分析失败: %v", err)
		return
	}
	log.Printf("定时热度分析完成, 更新 %d 个主题, 耗时 %s",
		updated, time.Since(start).Round(time.Millisecond))
}

func (s *Scheduler) runCleanup() {
	if _, err := s.store.CleanOldData(s.cfg.RetentionDays); err != nil {
		log.Printf("定时清理失败: %v", err)
	}
}

// runReports 为每个配置节点和全站各生成一份报告，失败互不影响
func (s *Scheduler) runReports() {
	for _, node := range s.cfg.TargetNodes {
		report, err := s.reports.GenerateNodeReport(node.Name, models.ReportTypeHotspot)
		if err != nil {
			log.Printf("节点 %s 报告生成失败: %v", node.Name, err)
			continue
		}
		s.publish(report)
	}

	report, err := s.reports.GenerateSiteReport(models.ReportTypeHotspot)
	if err != nil {
		log.Printf("全站报告生成失败: %v", err)
		return
	}
	s.publish(report)
}

func (s *Scheduler) publish(report *models.Report) {
	if s.notion == nil {
		return
	}
	if _, err := s.notion.PublishReport(report); err != nil {
		log.Printf("报告 %q 发布到 Notion 失败: %v", report.Title, err)
	}
}
