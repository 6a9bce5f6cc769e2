package crawler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"v2pulse/internal/config"
	"v2pulse/internal/models"
	"v2pulse/internal/store"
	"v2pulse/internal/utils"
)

// seenCacheSize 一次运行内作者去重缓存容量
const seenCacheSize = 8192

// Crawler 爬取调度器，驱动 解析 -> 过滤 -> 抓取入库 全流程
type Crawler struct {
	cfg      *config.Config
	fetcher  *Fetcher
	parser   *ListingParser
	filter   *Filter
	pipeline *Pipeline
}

// New 创建爬取调度器
func New(cfg *config.Config, s *store.Store) *Crawler {
	fetcher := NewFetcher(cfg.Crawler)
	seen, err := utils.NewSeenCache(seenCacheSize, time.Hour)
	if err != nil {
		// 容量参数为正数时不会失败，保险起见退化为不去重
		log.Printf("创建作者去重缓存失败: %v", err)
		seen = nil
	}
	return &Crawler{
		cfg:      cfg,
		fetcher:  fetcher,
		parser:   NewListingParser(cfg.Crawler.BaseURL),
		filter:   NewFilter(s),
		pipeline: NewPipeline(fetcher, s, cfg.Crawler, seen),
	}
}

// CrawlAll 爬取全部配置节点，汇总计数
// 单个节点失败不影响其他节点，整体结果反映部分成功
func (c *Crawler) CrawlAll(ctx context.Context) models.CrawlResult {
	nodes := c.cfg.TargetNodes
	log.Printf("开始爬取 %d 个节点", len(nodes))
	start := time.Now()

	var results []models.CrawlResult
	var errs []string

	if c.cfg.Crawler.MaxConcurrentNodes > 1 {
		results, errs = c.crawlConcurrent(ctx, nodes)
	} else {
		results, errs = c.crawlSerial(ctx, nodes)
	}

	var total models.CrawlResult
	for _, r := range results {
		total.TopicsFound += r.TopicsFound
		total.TopicsSaved += r.TopicsSaved
		total.RepliesSaved += r.RepliesSaved
		total.UsersSaved += r.UsersSaved
	}
	total.Success = len(errs) == 0
	if len(errs) > 0 {
		total.Error = strings.Join(errs, "; ")
	}

	log.Printf("爬取完成, 耗时 %v: 发现 %d, 保存 %d, 回复 %d, 新用户 %d",
		time.Since(start).Round(time.Second),
		total.TopicsFound, total.TopicsSaved, total.RepliesSaved, total.UsersSaved)
	return total
}

// crawlSerial 串行逐节点爬取，节点之间留基础延迟
func (c *Crawler) crawlSerial(ctx context.Context, nodes []config.TargetNode) ([]models.CrawlResult, []string) {
	var results []models.CrawlResult
	var errs []string

	for i, node := range nodes {
		if i > 0 {
			select {
			case <-time.After(c.fetcher.Delay()):
			case <-ctx.Done():
				errs = append(errs, ctx.Err().Error())
				return results, errs
			}
		}

		result, err := c.CrawlNode(ctx, node)
		if err != nil {
			log.Printf("节点 %s 爬取失败: %v", node.Name, err)
			errs = append(errs, fmt.Sprintf("%s: %v", node.Name, err))
			continue
		}
		results = append(results, result)
	}
	return results, errs
}

// crawlConcurrent 节点间有界并发爬取
func (c *Crawler) crawlConcurrent(ctx context.Context, nodes []config.TargetNode) ([]models.CrawlResult, []string) {
	type nodeOutcome struct {
		result models.CrawlResult
		err    error
		name   string
	}

	sem := make(chan struct{}, c.cfg.Crawler.MaxConcurrentNodes)
	outcomes := make(chan nodeOutcome, len(nodes))

	var wg sync.WaitGroup
	for _, node := range nodes {
		wg.Add(1)
		go func(node config.TargetNode) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := c.CrawlNode(ctx, node)
			outcomes <- nodeOutcome{result: result, err: err, name: node.Name}
		}(node)
	}
	wg.Wait()
	close(outcomes)

	var results []models.CrawlResult
	var errs []string
	for o := range outcomes {
		if o.err != nil {
			log.Printf("节点 %s 爬取失败: %v", o.name, o.err)
			errs = append(errs, fmt.Sprintf("%s: %v", o.name, o.err))
			continue
		}
		results = append(results, o.result)
	}
	return results, errs
}

// CrawlNode 爬取单个节点: 逐页解析列表 -> 增量过滤 -> 并发抓取入库
func (c *Crawler) CrawlNode(ctx context.Context, node config.TargetNode) (models.CrawlResult, error) {
	log.Printf("开始爬取节点 %s(%s)", node.Name, node.Title)

	summaries, err := c.collectSummaries(ctx, node)
	if err != nil {
		return models.CrawlResult{}, err
	}

	result := models.CrawlResult{TopicsFound: len(summaries), Success: true}
	if len(summaries) == 0 {
		return result, nil
	}

	stale, err := c.filter.FilterStale(summaries)
	if err != nil {
		return models.CrawlResult{}, err
	}

	saved := c.pipeline.Process(ctx, stale)
	result.TopicsSaved = saved.TopicsSaved
	result.RepliesSaved = saved.RepliesSaved
	result.UsersSaved = saved.UsersSaved

	log.Printf("节点 %s 完成: 发现 %d, 更新 %d", node.Name, result.TopicsFound, result.TopicsSaved)
	return result, nil
}

// collectSummaries 逐页抓取列表，页码递增
// 首页为空视为疑似故障放弃本轮，后续空页视为节点翻到了底
func (c *Crawler) collectSummaries(ctx context.Context, node config.TargetNode) ([]models.TopicSummary, error) {
	var summaries []models.TopicSummary

	for page := 1; page <= c.cfg.Crawler.MaxPagesPerNode; page++ {
		if page > 1 {
			select {
			case <-time.After(c.fetcher.Delay()):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		url := fmt.Sprintf("%s/go/%s?p=%d", c.fetcher.BaseURL(), node.Name, page)
		html, err := c.fetcher.FetchPage(ctx, url)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("节点 %s 首页抓取失败: %w", node.Name, err)
			}
			log.Printf("警告: 节点 %s 第 %d 页抓取失败, 停止翻页: %v", node.Name, page, err)
			break
		}

		pageSummaries, err := c.parser.Parse(html, node.Name, time.Now())
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("节点 %s 首页解析失败: %w", node.Name, err)
			}
			log.Printf("警告: 节点 %s 第 %d 页解析失败, 停止翻页: %v", node.Name, page, err)
			break
		}

		if len(pageSummaries) == 0 {
			if page == 1 {
				return nil, fmt.Errorf("节点 %s 首页没有解析到任何主题", node.Name)
			}
			break
		}

		summaries = append(summaries, pageSummaries...)
	}

	return summaries, nil
}
