package crawler

import (
	"context"
	"log"
	"sync"
	"time"

	"v2pulse/internal/config"
	"v2pulse/internal/models"
	"v2pulse/internal/store"
	"v2pulse/internal/utils"
)

// PipelineResult 一批主题处理完成后的计数
type PipelineResult struct {
	TopicsSaved  int
	RepliesSaved int
	UsersSaved   int
}

// fetchOutcome 单个主题的抓取产物，经 channel 汇聚
type fetchOutcome struct {
	topic   models.Topic
	replies []models.Reply
	authors []string
}

// Pipeline 并发抓取详情并批量入库
// 详情抓取受 worker 池限制并发，入库以批为单位，批失败时逐条回退
type Pipeline struct {
	fetcher *Fetcher
	parser  *DetailParser
	store   *store.Store
	cfg     config.CrawlerConfig
	seen    *utils.SeenCache
}

// NewPipeline 创建处理管道
func NewPipeline(fetcher *Fetcher, s *store.Store, cfg config.CrawlerConfig, seen *utils.SeenCache) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		parser:  NewDetailParser(),
		store:   s,
		cfg:     cfg,
		seen:    seen,
	}
}

// Process 处理一组需要更新的主题
// 抓取失败的主题仍然以列表页摘要数据入库，整体不向上抛错
func (p *Pipeline) Process(ctx context.Context, summaries []models.TopicSummary) PipelineResult {
	var result PipelineResult
	if len(summaries) == 0 {
		return result
	}

	batchSize := p.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	for start := 0; start < len(summaries); start += batchSize {
		end := start + batchSize
		if end > len(summaries) {
			end = len(summaries)
		}

		outcomes := p.fetchBatch(ctx, summaries[start:end])
		saved := p.persistBatch(outcomes)
		result.TopicsSaved += saved.TopicsSaved
		result.RepliesSaved += saved.RepliesSaved
		result.UsersSaved += saved.UsersSaved

		log.Printf("进度: 已处理 %d/%d 个主题", end, len(summaries))
	}

	return result
}

// fetchBatch 用 worker 池并发抓取一批主题的详情
func (p *Pipeline) fetchBatch(ctx context.Context, batch []models.TopicSummary) []fetchOutcome {
	workers := p.cfg.MaxConcurrentReplies
	if workers <= 0 {
		workers = 1
	}
	if workers > len(batch) {
		workers = len(batch)
	}

	jobs := make(chan models.TopicSummary)
	results := make(chan fetchOutcome, len(batch))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for summary := range jobs {
				results <- p.fetchOne(ctx, summary)
			}
		}()
	}

	go func() {
		for _, summary := range batch {
			jobs <- summary
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	outcomes := make([]fetchOutcome, 0, len(batch))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// fetchOne 抓取单个主题详情，失败时退化为仅摘要数据
func (p *Pipeline) fetchOne(ctx context.Context, summary models.TopicSummary) fetchOutcome {
	lastTouched := summary.LastTouched
	topic := models.Topic{
		ID:             summary.ID,
		Title:          summary.Title,
		URL:            summary.URL,
		NodeName:       summary.NodeName,
		MemberUsername: summary.MemberUsername,
		Replies:        summary.Replies,
		Created:        summary.Created,
		LastTouched:    &lastTouched,
		CrawledAt:      time.Now(),
	}

	outcome := fetchOutcome{topic: topic}
	if summary.MemberUsername != nil {
		outcome.authors = append(outcome.authors, *summary.MemberUsername)
	}

	if !p.cfg.FetchReplies {
		return outcome
	}

	html, err := p.fetcher.FetchPage(ctx, topicURL(p.fetcher.BaseURL(), summary.ID))
	if err != nil {
		log.Printf("警告: 抓取主题 %d 详情失败, 仅保存摘要: %v", summary.ID, err)
		return outcome
	}

	detail := p.parser.Parse(html, summary.ID, time.Now())
	outcome.topic.Content = detail.Content

	for _, r := range detail.Replies {
		outcome.replies = append(outcome.replies, models.Reply{
			ID:             r.ID,
			TopicID:        r.TopicID,
			MemberUsername: r.MemberUsername,
			Content:        r.Content,
			Floor:          r.Floor,
			Created:        r.Created,
			Thanks:         r.Thanks,
		})
		if r.MemberUsername != nil {
			outcome.authors = append(outcome.authors, *r.MemberUsername)
		}
	}
	return outcome
}

// persistBatch 整批入库: 先主题、再回复、最后新作者
// 批量失败时逐条回退，只跳过真正坏掉的记录
func (p *Pipeline) persistBatch(outcomes []fetchOutcome) PipelineResult {
	var result PipelineResult

	topics := make([]models.Topic, 0, len(outcomes))
	var replies []models.Reply
	var authors []string
	for _, o := range outcomes {
		topics = append(topics, o.topic)
		replies = append(replies, o.replies...)
		for _, name := range o.authors {
			// 一次运行内同一作者只提交一次
			if p.seen == nil || !p.seen.Seen(name) {
				authors = append(authors, name)
			}
		}
	}

	if err := p.store.BatchUpsertTopics(topics); err != nil {
		log.Printf("批量保存主题失败, 回退逐条保存: %v", err)
		for i := range topics {
			if err := p.store.UpsertTopic(&topics[i]); err != nil {
				log.Printf("跳过主题 %d: %v", topics[i].ID, err)
				continue
			}
			result.TopicsSaved++
		}
	} else {
		result.TopicsSaved = len(topics)
	}

	if err := p.store.BatchUpsertReplies(replies); err != nil {
		log.Printf("批量保存回复失败, 回退逐条保存: %v", err)
		for i := range replies {
			if err := p.store.UpsertReply(&replies[i]); err != nil {
				log.Printf("跳过回复 %d: %v", replies[i].ID, err)
				continue
			}
			result.RepliesSaved++
		}
	} else {
		result.RepliesSaved = len(replies)
	}

	saved, err := p.store.InsertUsers(authors)
	if err != nil {
		log.Printf("保存新作者失败: %v", err)
	}
	result.UsersSaved = int(saved)

	return result
}
