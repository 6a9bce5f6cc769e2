package crawler

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"

	"v2pulse/internal/models"
	"v2pulse/internal/utils"
)

// replyIDPattern 回复块的 id 属性，如 r_12345678
var replyIDPattern = regexp.MustCompile(`^r_(\d+)$`)

// thanksPattern 感谢计数，如 "♥ 3"
var thanksPattern = regexp.MustCompile(`♥\s*(\d+)`)

// DetailParser 主题详情页解析器
type DetailParser struct {
	sanitizer *bluemonday.Policy
	converter *md.Converter
}

// NewDetailParser 创建详情页解析器
func NewDetailParser() *DetailParser {
	return &DetailParser{
		sanitizer: bluemonday.UGCPolicy(),
		converter: md.NewConverter("", true, nil),
	}
}

// Parse 解析详情页 HTML，返回主贴正文和全部回复
// 解析失败返回空正文/空回复，不向上抛错
func (p *DetailParser) Parse(html string, topicID int64, now time.Time) *models.TopicDetail {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Printf("警告: 解析主题 %d 详情页失败: %v", topicID, err)
		return &models.TopicDetail{}
	}

	return &models.TopicDetail{
		Content: p.parseContent(doc, html, topicID),
		Replies: p.parseReplies(doc, topicID, now),
	}
}

// parseContent 提取主贴正文并转为 Markdown
// 依次尝试: 正文选择器 -> 无 id 的 cell 块 -> readability 整页抽取
func (p *DetailParser) parseContent(doc *goquery.Document, html string, topicID int64) string {
	if block := doc.Find(".topic_content").First(); block.Length() > 0 {
		if content := p.normalize(block); content != "" {
			return content
		}
	}

	if block := doc.Find("#Main div.cell:not([id])").First(); block.Length() > 0 {
		if content := p.normalize(block); content != "" {
			return content
		}
	}

	article, err := readability.FromReader(strings.NewReader(html), nil)
	if err == nil && article.Content != "" {
		if content := p.htmlToMarkdown(article.Content); content != "" {
			log.Printf("主题 %d 使用整页抽取获得正文", topicID)
			return content
		}
	}

	log.Printf("警告: 主题 %d 未找到正文内容", topicID)
	return ""
}

// parseReplies 提取全部回复块，楼层号按文档顺序从 1 开始
func (p *DetailParser) parseReplies(doc *goquery.Document, topicID int64, now time.Time) []models.ReplySummary {
	var replies []models.ReplySummary

	doc.Find(`div.cell[id^="r_"]`).Each(func(i int, cell *goquery.Selection) {
		floor := uint(i + 1)

		// 站点分配的回复 ID；缺失或无法解析时按楼层合成确定性 ID
		id := int64(0)
		if attr, ok := cell.Attr("id"); ok {
			if m := replyIDPattern.FindStringSubmatch(attr); m != nil {
				id, _ = strconv.ParseInt(m[1], 10, 64)
			}
		}
		if id == 0 {
			id = topicID*1000 + int64(floor)
		}

		reply := models.ReplySummary{
			ID:      id,
			TopicID: topicID,
			Floor:   floor,
			Content: p.normalize(cell.Find(".reply_content").First()),
			Created: ParseTimestamp(cell.Find(".ago").First().Text(), now),
		}

		if author := parseAuthor(cell); author != "" {
			reply.MemberUsername = &author
		}

		// 感谢数在带心形符号的计数元素里，缺失按 0
		if m := thanksPattern.FindStringSubmatch(cell.Find(".small.fade").Text()); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				reply.Thanks = uint(n)
			}
		}

		replies = append(replies, reply)
	})

	return replies
}

// normalize 把选区的 HTML 清洗并转为精简 Markdown
func (p *DetailParser) normalize(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	html, err := sel.Html()
	if err != nil {
		return ""
	}
	return p.htmlToMarkdown(html)
}

// htmlToMarkdown 先过安全策略再转 Markdown，合并多余空行
func (p *DetailParser) htmlToMarkdown(html string) string {
	clean := p.sanitizer.Sanitize(html)
	markdown, err := p.converter.ConvertString(clean)
	if err != nil {
		log.Printf("警告: HTML 转 Markdown 失败: %v", err)
		// 转换失败时退化为纯文本
		doc, derr := goquery.NewDocumentFromReader(strings.NewReader(clean))
		if derr != nil {
			return ""
		}
		return strings.TrimSpace(doc.Text())
	}
	return utils.CollapseBlankLines(markdown)
}

// topicURL 主题详情页地址
func topicURL(baseURL string, topicID int64) string {
	return fmt.Sprintf("%s/t/%d", baseURL, topicID)
}
