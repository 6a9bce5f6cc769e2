package crawler

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"v2pulse/internal/models"
	"v2pulse/internal/utils"
)

// topicIDPattern 从帖子链接中提取主题 ID，如 /t/1043210#reply5
var topicIDPattern = regexp.MustCompile(`/t/(\d+)`)

// listingStrategy 一种历史版式的列表页抽取方式
// 站点改版时追加新策略，不修改已有策略
type listingStrategy struct {
	name     string
	selector string // 定位每个条目的标题链接
}

// 按优先级排列的版式策略，先桌面版后移动版
var listingStrategies = []listingStrategy{
	{name: "desktop", selector: "div.cell a.topic-link"},
	{name: "mobile", selector: "div.cell span.item_title > a"},
}

// ListingParser 节点列表页解析器
type ListingParser struct {
	baseURL string
}

// NewListingParser 创建列表页解析器
func NewListingParser(baseURL string) *ListingParser {
	return &ListingParser{baseURL: baseURL}
}

// Parse 解析列表页 HTML，返回主题摘要
// 依次尝试各版式策略，第一个产出条目的策略生效；全部落空返回空列表
func (p *ListingParser) Parse(html, nodeName string, now time.Time) ([]models.TopicSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("解析列表页 HTML 失败: %w", err)
	}

	for _, strategy := range listingStrategies {
		summaries := p.extract(doc, strategy, nodeName, now)
		if len(summaries) > 0 {
			if strategy.name != listingStrategies[0].name {
				log.Printf("节点 %s 使用 %s 版式解析", nodeName, strategy.name)
			}
			return summaries, nil
		}
	}
	return nil, nil
}

// extract 按单一策略抽取条目，拿不到主题 ID 的条目静默丢弃
func (p *ListingParser) extract(doc *goquery.Document, strategy listingStrategy, nodeName string, now time.Time) []models.TopicSummary {
	var summaries []models.TopicSummary

	doc.Find(strategy.selector).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		m := topicIDPattern.FindStringSubmatch(href)
		if m == nil {
			return
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return
		}

		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}

		cell := link.Closest("div.cell")
		summary := models.TopicSummary{
			ID:       id,
			Title:    title,
			URL:      fmt.Sprintf("%s/t/%d", p.baseURL, id),
			NodeName: nodeName,
		}

		// 作者：个人主页链接
		if author := parseAuthor(cell); author != "" {
			summary.MemberUsername = &author
		}

		// 回复数：解析失败按 0 处理
		countText := strings.TrimSpace(cell.Find("a.count_livid").First().Text())
		if countText == "" {
			countText = strings.TrimSpace(cell.Find(".count_livid").First().Text())
		}
		if n, err := strconv.Atoi(countText); err == nil {
			summary.Replies = utils.ClampReplies(n)
		}

		// 最后活跃时间：优先 title 属性里的绝对时间，其次相对时间文本
		ago := cell.Find(".ago").First()
		timeText, ok := ago.Attr("title")
		if !ok || strings.TrimSpace(timeText) == "" {
			timeText = ago.Text()
		}
		summary.LastTouched = ParseTimestamp(timeText, now)
		summary.Created = summary.LastTouched

		summaries = append(summaries, summary)
	})

	return summaries
}

// parseAuthor 从条目中找作者用户名
func parseAuthor(cell *goquery.Selection) string {
	var author string
	cell.Find(`a[href*="/member/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if idx := strings.Index(href, "/member/"); idx >= 0 {
			name := strings.Trim(href[idx+len("/member/"):], "/")
			if name != "" {
				author = name
				return false
			}
		}
		return true
	})
	return author
}
