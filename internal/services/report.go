package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"v2pulse/internal/config"
	"v2pulse/internal/models"
	"v2pulse/internal/store"
)

// hotspotPromptTemplate 热点分析提示词，{content} 为已编号的讨论材料
// 要求每条结论都标注 [Source: T_n] 来源，便于追溯
const hotspotPromptTemplate = `你是一位为顶级技术公司服务的资深行业分析师。你的任务是分析以下来自V2EX社区的、已编号的原始讨论材料，并为技术决策者撰写一份循序渐进、可追溯来源的情报简报。

**原始讨论材料:**
{content}

---

**你的分析任务:**
请严格按照以下两个阶段进行分析和内容生成。**至关重要的一点是：你的每一条分析、洞察和建议都必须在结尾处使用 ` + "`[Source: T_n]`" + ` 或 ` + "`[Sources: T_n, T_m]`" + ` 的格式明确标注其信息来源。**

**第一阶段：热门主题速览 (Top Topics Summary)**
首先，请通读所有材料，对每个热门主题进行简明扼要的总结。

**第二阶段：深度情报洞察 (In-depth Intelligence Report)**
在完成速览后，请转换视角，基于第一阶段你总结的所有信息，进行更高层级的趋势分析和洞察提炼。

---

**请严格遵照以下Markdown格式输出完整报告:**

# 📈 V2EX社区热点与情报洞察报告

## 🔥 本时段热门主题速览

[在此处罗列最重要的5-10个热门主题的速览]

## 💡 核心洞察 (Executive Summary)

[用一句话高度概括你发现的最重要的趋势或洞察，逐条列出]

## 🔍 趋势与信号分析 (Trends & Signals Analysis)

[新兴技术与工具风向、讨论热点的内在关联、普遍痛点与潜在需求]

## 🎯 行动建议 (Actionable Recommendations)

[分别给个人开发者和技术团队提出具体建议]`

// defaultPromptTemplate 非热点类型报告的兜底提示词
const defaultPromptTemplate = "请总结以下内容的主要看点、争议和结论：\n\n{content}"

// 格式化主贴/回复时的摘录长度
const (
	topicExcerptRunes = 800
	replyExcerptRunes = 200
	repliesPerTopic   = 5
)

// ReportService 报告生成服务: 取热门主题 -> LLM 分析 -> 组装 Markdown -> 入库
type ReportService struct {
	store *store.Store
	llm   *LLMClient
	cfg   config.ReportConfig
}

// NewReportService 创建报告服务
func NewReportService(s *store.Store, llm *LLMClient, cfg config.ReportConfig) *ReportService {
	return &ReportService{store: s, llm: llm, cfg: cfg}
}

// GenerateNodeReport 为单个节点生成热点报告
func (r *ReportService) GenerateNodeReport(node string, reportType string) (*models.Report, error) {
	return r.generate(node, reportType)
}

// GenerateSiteReport 生成全站热点报告
func (r *ReportService) GenerateSiteReport(reportType string) (*models.Report, error) {
	return r.generate(models.SiteWideNode, reportType)
}

// generate 节点与全站共用的生成流程，node 为 "全站" 时不过滤节点
func (r *ReportService) generate(node, reportType string) (*models.Report, error) {
	log.Printf("开始为 %s 生成 %s 报告", node, reportType)

	end := time.Now()
	start := end.Add(-time.Duration(r.cfg.HoursBack) * time.Hour)

	queryNode := node
	if node == models.SiteWideNode {
		queryNode = ""
	}
	hotTopics, err := r.store.HotTopics(queryNode, r.cfg.TopTopicsPerNode, r.cfg.HoursBack)
	if err != nil {
		return nil, err
	}
	if len(hotTopics) == 0 {
		return nil, fmt.Errorf("%s 在过去 %d 小时内无热门主题", node, r.cfg.HoursBack)
	}

	// 批量取详情和高感谢回复，避免逐主题查询
	ids := make([]int64, 0, len(hotTopics))
	for _, t := range hotTopics {
		ids = append(ids, t.ID)
	}
	topics, err := r.store.TopicsWithTopReplies(ids, r.cfg.TopRepliesPerTopic)
	if err != nil {
		return nil, err
	}

	material := r.formatTopics(topics)

	template := hotspotPromptTemplate
	if reportType != models.ReportTypeHotspot {
		log.Printf("报告类型 %s 没有专门的提示词模板, 使用默认分析", reportType)
		template = defaultPromptTemplate
	}

	result, err := r.llm.Analyze(material, template)
	if err != nil {
		return nil, fmt.Errorf("LLM 分析失败: %w", err)
	}

	title := fmt.Sprintf("📈 [%s]节点热点洞察报告", node)
	if node == models.SiteWideNode {
		title = "🌟 V2EX全站热点洞察报告"
	}

	report := &models.Report{
		NodeName:       node,
		ReportType:     reportType,
		PeriodStart:    start,
		PeriodEnd:      end,
		TopicsAnalyzed: len(topics),
		Title:          title,
		Content:        r.assembleMarkdown(title, topics, result, start, end),
		GeneratedAt:    time.Now(),
	}

	if _, err := r.store.InsertReport(report); err != nil {
		return nil, err
	}
	if result.Partial {
		log.Printf("警告: %s 报告基于不完整的 LLM 响应生成", node)
	}
	log.Printf("%s 报告生成完成, 分析了 %d 个主题", node, len(topics))
	return report, nil
}

// formatTopics 把热门主题合并成一份带 [Source: T_n] 编号的分析材料
func (r *ReportService) formatTopics(topics []models.Topic) string {
	var sb strings.Builder
	sb.WriteString("=== V2EX热门主题综合分析文档 ===\n")
	fmt.Fprintf(&sb, "总计 %d 个热门主题\n\n", len(topics))

	for i, topic := range topics {
		fmt.Fprintf(&sb, "\n### [Source: T%d] %s\n", i+1, topic.Title)
		fmt.Fprintf(&sb, "- 节点: %s\n", topic.NodeName)
		if topic.MemberUsername != nil {
			fmt.Fprintf(&sb, "- 作者: %s\n", *topic.MemberUsername)
		}
		fmt.Fprintf(&sb, "- 回复数: %d\n", topic.Replies)
		fmt.Fprintf(&sb, "- 感谢数: %d\n", topic.TotalThanks)
		fmt.Fprintf(&sb, "- 热度: %.2f\n", topic.HotnessScore)
		fmt.Fprintf(&sb, "- URL: %s\n\n", topic.URL)

		if content := strings.TrimSpace(topic.Content); content != "" {
			sb.WriteString("**主贴内容:**\n")
			sb.WriteString(excerpt(content, topicExcerptRunes))
			sb.WriteString("\n\n")
		}

		if len(topic.TopReplies) > 0 {
			sb.WriteString("**热门回复:**\n")
			for j, reply := range topic.TopReplies {
				if j >= repliesPerTopic {
					break
				}
				content := strings.TrimSpace(reply.Content)
				if content == "" {
					continue
				}
				author := "匿名"
				if reply.MemberUsername != nil {
					author = *reply.MemberUsername
				}
				thanks := ""
				if reply.Thanks > 0 {
					thanks = fmt.Sprintf("(感谢: %d)", reply.Thanks)
				}
				fmt.Fprintf(&sb, "%d. %s %s: %s\n", j+1, author, thanks, excerpt(content, replyExcerptRunes))
			}
			sb.WriteString("\n")
		}

		sb.WriteString("---\n")
	}

	return r.truncateMaterial(sb.String())
}

// truncateMaterial 超长材料智能截断，优先在主题分隔符处断开
func (r *ReportService) truncateMaterial(content string) string {
	max := r.cfg.MaxContentLength
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}

	truncated := string(runes[:max])

	// 先试主题分隔符，再试段落/句子边界，避免把一个主题拦腰截断
	if pos := strings.LastIndex(truncated, "---"); pos > max*7/10 {
		truncated = truncated[:pos]
	} else {
		for _, delim := range []string{"\n\n", "\n", "。", "."} {
			if pos := strings.LastIndex(truncated, delim); pos > max*8/10 {
				truncated = truncated[:pos+len(delim)]
				break
			}
		}
	}

	log.Printf("分析材料被截断: %d -> %d 字符", len(runes), len([]rune(truncated)))
	return truncated + "\n\n...[内容过长已被截断]"
}

// excerpt 内容摘录，超长加省略号
func excerpt(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// assembleMarkdown 组装最终 Markdown 报告: 头部 -> 分析正文 -> 来源清单 -> 统计
func (r *ReportService) assembleMarkdown(title string, topics []models.Topic, result *LLMResult, start, end time.Time) string {
	const timeLayout = "2006-01-02 15:04:05"

	lines := []string{
		"# " + title,
		"",
		fmt.Sprintf("*报告生成时间: %s*", time.Now().Format(timeLayout)),
		fmt.Sprintf("*数据范围: %s - %s*", start.Format(timeLayout), end.Format(timeLayout)),
		"",
		"---",
		"",
		result.Analysis,
		"",
		"---",
		"",
		"## 📚 来源清单 (Source List)",
		"",
	}

	for i, topic := range topics {
		lines = append(lines, fmt.Sprintf("- **[T%d]**: [%s](%s) (%s | %d回复 | %d感谢)",
			i+1, topic.Title, topic.URL, topic.NodeName, topic.Replies, topic.TotalThanks))
	}

	lines = append(lines, "", "---", "",
		fmt.Sprintf("*分析引擎: %s*", result.Model),
		"",
		fmt.Sprintf("📊 **统计摘要**: 本报告分析了 %d 个热门主题", len(topics)),
	)

	if result.Partial {
		lines = append(lines, "", "*注意：由于与分析引擎的连接意外中断，此报告可能不完整。*")
	}

	lines = append(lines, "", "*本报告由AI自动生成，仅供参考*")
	return strings.Join(lines, "\n")
}
