package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"v2pulse/internal/config"
	"v2pulse/internal/models"
)

const (
	notionAPIBase    = "https://api.notion.com/v1"
	notionVersion    = "2022-06-28"
	notionTextLimit  = 2000 // 单个文本段上限
	notionBlockBatch = 100  // 单次请求的子块上限
	notionMaxBlocks  = 1000 // 单份报告的总块数上限
)

// NotionService 把生成的报告发布到 Notion，按 年/月/日 层级组织页面
type NotionService struct {
	client       *http.Client
	baseURL      string
	token        string
	parentPageID string
}

// NewNotionService 创建 Notion 发布服务
func NewNotionService(cfg config.NotionConfig) *NotionService {
	return &NotionService{
		client:       &http.Client{Timeout: 30 * time.Second},
		baseURL:      notionAPIBase,
		token:        cfg.Token,
		parentPageID: cfg.ParentPageID,
	}
}

// PublishReport 发布一份报告，返回页面地址
// 同一天已存在同名报告时跳过创建，直接返回已有页面
func (n *NotionService) PublishReport(report *models.Report) (string, error) {
	if n.token == "" || n.parentPageID == "" {
		return "", fmt.Errorf("Notion 配置不完整: 需要 NOTION_TOKEN 和 NOTION_PARENT_PAGE_ID")
	}

	date := report.GeneratedAt
	if date.IsZero() {
		date = time.Now()
	}
	year := fmt.Sprintf("%d", date.Year())
	month := fmt.Sprintf("%02d月", int(date.Month()))
	day := fmt.Sprintf("%02d日", date.Day())

	log.Printf("开始发布报告到 Notion: %s/%s/%s - %s", year, month, day, report.Title)

	yearID, err := n.findOrCreateChild(n.parentPageID, year)
	if err != nil {
		return "", fmt.Errorf("年份页面处理失败: %w", err)
	}
	monthID, err := n.findOrCreateChild(yearID, month)
	if err != nil {
		return "", fmt.Errorf("月份页面处理失败: %w", err)
	}
	dayID, err := n.findOrCreateChild(monthID, day)
	if err != nil {
		return "", fmt.Errorf("日期页面处理失败: %w", err)
	}

	if existingID, err := n.findChild(dayID, report.Title); err == nil && existingID != "" {
		url := notionPageURL(existingID)
		log.Printf("报告已存在, 跳过创建: %s", url)
		return url, nil
	}

	blocks := markdownToBlocks(report.Content)
	if len(blocks) > notionMaxBlocks {
		log.Printf("报告内容过长(%d 个块), 截断到 %d 个块", len(blocks), notionMaxBlocks)
		blocks = blocks[:notionMaxBlocks]
		blocks = append(blocks, paragraphBlock(
			richTextSegment("⚠️ 内容过长已截断，完整内容请查看数据库记录", nil)))
	}

	first := blocks
	var rest []notionBlock
	if len(blocks) > notionBlockBatch {
		first = blocks[:notionBlockBatch]
		rest = blocks[notionBlockBatch:]
	}

	pageID, err := n.createPage(dayID, report.Title, first)
	if err != nil {
		return "", fmt.Errorf("创建报告页面失败: %w", err)
	}

	for start := 0; start < len(rest); start += notionBlockBatch {
		end := start + notionBlockBatch
		if end > len(rest) {
			end = len(rest)
		}
		if err := n.appendBlocks(pageID, rest[start:end]); err != nil {
			return "", fmt.Errorf("追加报告内容失败: %w", err)
		}
	}

	url := notionPageURL(pageID)
	log.Printf("报告页面创建成功: %s", url)
	return url, nil
}

// findOrCreateChild 在父页面下查找同名子页面，没有则创建
func (n *NotionService) findOrCreateChild(parentID, title string) (string, error) {
	id, err := n.findChild(parentID, title)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	log.Printf("创建页面: %s", title)
	return n.createPage(parentID, title, nil)
}

// childBlock 子块列表里的一项，只关心子页面类型
type childBlock struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	ChildPage struct {
		Title string `json:"title"`
	} `json:"child_page"`
}

// findChild 在父页面的子块中按标题找子页面，找不到返回空 ID
func (n *NotionService) findChild(parentID, title string) (string, error) {
	raw, err := n.request(http.MethodGet, "blocks/"+parentID+"/children", nil)
	if err != nil {
		return "", err
	}

	var children struct {
		Results []childBlock `json:"results"`
	}
	if err := json.Unmarshal(raw, &children); err != nil {
		return "", fmt.Errorf("解析子页面列表失败: %w", err)
	}

	for _, child := range children.Results {
		if child.Type == "child_page" && child.ChildPage.Title == title {
			return child.ID, nil
		}
	}
	return "", nil
}

// createPage 创建页面，blocks 可为空
func (n *NotionService) createPage(parentID, title string, blocks []notionBlock) (string, error) {
	payload := map[string]any{
		"parent": map[string]any{"page_id": parentID},
		"properties": map[string]any{
			"title": map[string]any{
				"title": []map[string]any{
					{"text": map[string]any{"content": title}},
				},
			},
		},
	}
	if len(blocks) > 0 {
		payload["children"] = blocks
	}

	raw, err := n.request(http.MethodPost, "pages", payload)
	if err != nil {
		return "", err
	}

	var page struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return "", fmt.Errorf("解析页面响应失败: %w", err)
	}
	return page.ID, nil
}

// appendBlocks 向已有页面追加子块
func (n *NotionService) appendBlocks(pageID string, blocks []notionBlock) error {
	_, err := n.request(http.MethodPatch, "blocks/"+pageID+"/children", map[string]any{
		"children": blocks,
	})
	return err
}

// request 发送 Notion API 请求，返回原始 JSON
func (n *NotionService) request(method, endpoint string, payload any) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("序列化请求失败: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, n.baseURL+"/"+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", notionVersion)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("Notion API 请求失败: %d - %s", resp.StatusCode, notionErrorMessage(raw))
	}
	return raw, nil
}

// notionErrorMessage 从错误响应里提取 message 字段
func notionErrorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return string(raw)
}

// notionPageURL 页面 ID 转公开地址
func notionPageURL(pageID string) string {
	return "https://www.notion.so/" + strings.ReplaceAll(pageID, "-", "")
}
