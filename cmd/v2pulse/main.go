package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"

	"v2pulse/internal/api"
	"v2pulse/internal/config"
	"v2pulse/internal/crawler"
	"v2pulse/internal/db"
	"v2pulse/internal/models"
	"v2pulse/internal/services"
	"v2pulse/internal/store"
	"v2pulse/internal/tasks"
)

// app 各子命令共享的运行环境
type app struct {
	cfg   *config.Config
	store *store.Store
}

// bootstrap 加载配置并连接数据库，配置缺失在这里直接失败
func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	gdb, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, store: store.New(gdb)}, nil
}

// reportServices 按配置构建报告和发布服务，未配置 Notion 时第二个返回值为 nil
func (a *app) reportServices() (*services.ReportService, *services.NotionService, error) {
	llm, err := services.NewLLMClient(a.cfg.LLM)
	if err != nil {
		return nil, nil, err
	}
	reports := services.NewReportService(a.store, llm, a.cfg.Report)

	var notion *services.NotionService
	if a.cfg.Notion.Token != "" && a.cfg.Notion.ParentPageID != "" {
		notion = services.NewNotionService(a.cfg.Notion)
	}
	return reports, notion, nil
}

// outputOptions 结果输出格式，json 便于接进其他工具
type outputOptions struct {
	Output string `short:"o" long:"output" choice:"text" choice:"json" default:"text" description:"结果输出格式"`
}

func (o outputOptions) print(v any, text string) {
	if o.Output == "json" {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			log.Printf("结果序列化失败: %v", err)
			return
		}
		fmt.Println(string(data))
		return
	}
	fmt.Println(text)
}

// crawlCommand 增量爬取全部配置节点
type crawlCommand struct {
	outputOptions
}

func (c *crawlCommand) Execute(_ []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	result := crawler.New(a.cfg, a.store).CrawlAll(context.Background())
	c.print(result, fmt.Sprintf("发现 %d 个主题, 更新 %d 个, 保存 %d 条回复, %d 个新用户",
		result.TopicsFound, result.TopicsSaved, result.RepliesSaved, result.UsersSaved))

	if !result.Success {
		return fmt.Errorf("部分节点爬取失败: %s", result.Error)
	}
	return nil
}

// analysisCommand 重算感谢汇总和热度分数
type analysisCommand struct {
	outputOptions
	All       bool `long:"all" description:"全量重算而不是只处理最近活跃的主题"`
	HoursBack int  `long:"hours-back" description:"活跃窗口小时数, 默认取报告配置"`
}

func (c *analysisCommand) Execute(_ []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	hoursBack := c.HoursBack
	if hoursBack <= 0 {
		hoursBack = a.cfg.Report.HoursBack
	}

	analyzer := services.NewAnalyzerService(a.store, a.cfg.Analysis)
	var updated int64
	if c.All {
		updated, err = analyzer.AnalyzeAll()
	} else {
		updated, err = analyzer.AnalyzeRecent(hoursBack)
	}
	if err != nil {
		return err
	}

	c.print(map[string]int64{"updated": updated},
		fmt.Sprintf("热度分析完成, 更新了 %d 个主题", updated))
	return nil
}

// reportCommand 生成热点报告，可选发布到 Notion
type reportCommand struct {
	outputOptions
	Nodes   string `long:"nodes" description:"逗号分隔的节点列表, 只为这些节点生成报告"`
	Site    bool   `long:"site" description:"生成全站报告"`
	Type    string `long:"report-type" choice:"hotspot" choice:"trend" choice:"summary" default:"hotspot" description:"报告类型"`
	Publish bool   `long:"publish" description:"生成后发布到 Notion"`
}

func (c *reportCommand) Execute(_ []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	reports, notion, err := a.reportServices()
	if err != nil {
		return err
	}
	if c.Publish && notion == nil {
		return fmt.Errorf("Notion 配置缺失, 无法发布")
	}

	var nodes []string
	for _, node := range strings.Split(c.Nodes, ",") {
		if node = strings.TrimSpace(node); node != "" {
			nodes = append(nodes, node)
		}
	}
	site := c.Site
	if len(nodes) == 0 && !site {
		// 不指定范围时: 每个配置节点一份 + 全站一份
		for _, node := range a.cfg.TargetNodes {
			nodes = append(nodes, node.Name)
		}
		site = true
	}

	// 单份失败不中断其余报告
	var generated []*models.Report
	for _, node := range nodes {
		report, err := reports.GenerateNodeReport(node, c.Type)
		if err != nil {
			log.Printf("节点 %s 报告生成失败: %v", node, err)
			continue
		}
		generated = append(generated, report)
	}
	if site {
		if report, err := reports.GenerateSiteReport(c.Type); err == nil {
			generated = append(generated, report)
		} else {
			log.Printf("全站报告生成失败: %v", err)
		}
	}

	if c.Publish {
		for _, report := range generated {
			url, err := notion.PublishReport(report)
			if err != nil {
				log.Printf("报告 %q 发布失败: %v", report.Title, err)
				continue
			}
			log.Printf("报告已发布: %s", url)
		}
	}

	c.print(generated, fmt.Sprintf("生成了 %d 份报告", len(generated)))
	if len(generated) == 0 {
		return fmt.Errorf("没有生成任何报告")
	}
	return nil
}

// cleanupCommand 清理超过保留期的主题和回复
type cleanupCommand struct {
	outputOptions
	RetentionDays int `long:"retention-days" description:"数据保留天数, 默认取配置"`
}

func (c *cleanupCommand) Execute(_ []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	retention := c.RetentionDays
	if retention <= 0 {
		retention = a.cfg.RetentionDays
	}
	deleted, err := a.store.CleanOldData(retention)
	if err != nil {
		return err
	}
	c.print(map[string]int64{"deleted": deleted},
		fmt.Sprintf("清理了 %d 个过期主题", deleted))
	return nil
}

// statsCommand 打印数据概览
type statsCommand struct {
	outputOptions
}

func (c *statsCommand) Execute(_ []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	stats, err := a.store.GetStats()
	if err != nil {
		return err
	}
	hotness, err := a.store.GetHotnessStats()
	if err != nil {
		return err
	}

	c.print(map[string]any{"database": stats, "hotness": hotness},
		fmt.Sprintf("用户 %d, 主题 %d, 回复 %d, 今日新增 %d, 有热度分主题 %d",
			stats.UsersCount, stats.TopicsCount, stats.RepliesCount,
			stats.TodayTopics, hotness.ScoredTopics))
	return nil
}

// fullCommand 完整流水线: 爬取 -> 分析 -> 报告
type fullCommand struct {
	outputOptions
	Publish bool `long:"publish" description:"报告生成后发布到 Notion"`
}

func (c *fullCommand) Execute(_ []string) error {
	crawl := crawlCommand{outputOptions: c.outputOptions}
	if err := crawl.Execute(nil); err != nil {
		log.Printf("爬取阶段部分失败, 继续后续阶段: %v", err)
	}

	analysis := analysisCommand{outputOptions: c.outputOptions}
	if err := analysis.Execute(nil); err != nil {
		return err
	}

	report := reportCommand{
		outputOptions: c.outputOptions,
		Type:          models.ReportTypeHotspot,
		Publish:       c.Publish,
	}
	return report.Execute(nil)
}

// scheduleCommand 常驻运行, 按固定节奏执行爬取/分析/报告/清理
type scheduleCommand struct{}

func (c *scheduleCommand) Execute(_ []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	analyzer := services.NewAnalyzerService(a.store, a.cfg.Analysis)
	crawl := crawler.New(a.cfg, a.store)

	// LLM 未配置时只调度爬取/分析/清理
	reports, notion, err := a.reportServices()
	if err != nil {
		log.Printf("报告服务不可用: %v", err)
		reports, notion = nil, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return tasks.NewScheduler(a.cfg, a.store, crawl, analyzer, reports, notion).Run(ctx)
}

// serveCommand 启动只读 JSON API
type serveCommand struct {
	Port string `long:"port" env:"PORT" default:"8080" description:"HTTP 监听端口"`
}

func (c *serveCommand) Execute(_ []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	analyzer := services.NewAnalyzerService(a.store, a.cfg.Analysis)
	return api.NewServer(a.store, analyzer).Run(c.Port)
}

func main() {
	parser := flags.NewNamedParser("v2pulse", flags.Default)

	parser.AddCommand("crawl", "增量爬取", "爬取全部配置节点并入库", &crawlCommand{})
	parser.AddCommand("analysis", "热度分析", "重算感谢汇总和热度分数", &analysisCommand{})
	parser.AddCommand("report", "生成报告", "用 LLM 生成热点报告, 可发布到 Notion", &reportCommand{})
	parser.AddCommand("cleanup", "数据清理", "删除超过保留期的主题和回复", &cleanupCommand{})
	parser.AddCommand("stats", "数据概览", "打印数据库和热度统计", &statsCommand{})
	parser.AddCommand("full", "完整流水线", "依次执行爬取、分析和报告", &fullCommand{})
	parser.AddCommand("schedule", "定时调度", "常驻运行全部定时任务", &scheduleCommand{})
	parser.AddCommand("serve", "API 服务", "启动只读 JSON API", &serveCommand{})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}
