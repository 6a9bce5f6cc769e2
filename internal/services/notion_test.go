package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"v2pulse/internal/config"
	"v2pulse/internal/models"
)

// fakeNotion 内存版 Notion API: 维护页面树, 记录创建次数
type fakeNotion struct {
	mu       sync.Mutex
	children map[string][]childBlock // 父页面 ID -> 子页面
	creates  int
	appends  int
	srv      *httptest.Server
}

func newFakeNotion(t *testing.T) *fakeNotion {
	t.Helper()
	f := &fakeNotion{children: map[string][]childBlock{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/blocks/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		pageID := parts[1]

		f.mu.Lock()
		defer f.mu.Unlock()

		if r.Method == http.MethodPatch {
			f.appends++
			fmt.Fprint(w, `{}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"results": f.children[pageID]})
	})
	mux.HandleFunc("/pages", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Parent struct {
				PageID string `json:"page_id"`
			} `json:"parent"`
			Properties struct {
				Title struct {
					Title []struct {
						Text struct {
							Content string `json:"content"`
						} `json:"text"`
					} `json:"title"`
				} `json:"title"`
			} `json:"properties"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		f.creates++
		title := payload.Properties.Title.Title[0].Text.Content
		id := fmt.Sprintf("page-%d", f.creates)

		child := childBlock{ID: id, Type: "child_page"}
		child.ChildPage.Title = title
		f.children[payload.Parent.PageID] = append(f.children[payload.Parent.PageID], child)

		json.NewEncoder(w).Encode(map[string]any{"id": id})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func newTestNotionService(f *fakeNotion) *NotionService {
	n := NewNotionService(config.NotionConfig{Token: "t", ParentPageID: "root"})
	n.baseURL = f.srv.URL
	return n
}

func testReport() *models.Report {
	return &models.Report{
		NodeName:    "create",
		ReportType:  models.ReportTypeHotspot,
		Title:       "测试报告",
		Content:     "# 标题\n\n正文段落 [Source: T1]\n\n- 条目一\n- 条目二",
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublishReportCreatesHierarchy(t *testing.T) {
	f := newFakeNotion(t)
	n := newTestNotionService(f)

	url, err := n.PublishReport(testReport())
	if err != nil {
		t.Fatalf("发布失败: %v", err)
	}
	if !strings.HasPrefix(url, "https://www.notion.so/") {
		t.Errorf("页面地址错误: %q", url)
	}
	// 年 + 月 + 日 + 报告 = 4 次页面创建
	if f.creates != 4 {
		t.Errorf("期望创建 4 个页面, 实际 %d", f.creates)
	}

	// 层级标题正确
	if f.children["root"][0].ChildPage.Title != "2024" {
		t.Errorf("年份页面标题错误: %q", f.children["root"][0].ChildPage.Title)
	}
	yearID := f.children["root"][0].ID
	if f.children[yearID][0].ChildPage.Title != "05月" {
		t.Errorf("月份页面标题错误: %q", f.children[yearID][0].ChildPage.Title)
	}
}

func TestPublishReportIdempotent(t *testing.T) {
	f := newFakeNotion(t)
	n := newTestNotionService(f)
	report := testReport()

	first, err := n.PublishReport(report)
	if err != nil {
		t.Fatalf("首次发布失败: %v", err)
	}
	creates := f.creates

	// 同一天同名报告不重复创建
	second, err := n.PublishReport(report)
	if err != nil {
		t.Fatalf("二次发布失败: %v", err)
	}
	if f.creates != creates {
		t.Errorf("重复发布不应创建新页面: %d -> %d", creates, f.creates)
	}
	if first != second {
		t.Errorf("应返回已有页面地址: %q != %q", first, second)
	}
}

func TestPublishReportMissingConfig(t *testing.T) {
	n := NewNotionService(config.NotionConfig{})
	if _, err := n.PublishReport(testReport()); err == nil {
		t.Fatalf("配置缺失应报错")
	}
}

func TestMarkdownToBlocks(t *testing.T) {
	markdown := strings.Join([]string{
		"# 一级标题",
		"",
		"## 二级标题",
		"",
		"普通段落，带**加粗**和[链接](https://example.com)。",
		"",
		"- 条目一",
		"- 条目二",
		"",
		"---",
		"",
		"> 引用内容",
	}, "\n")

	blocks := markdownToBlocks(markdown)

	var types []string
	for _, b := range blocks {
		types = append(types, b["type"].(string))
	}
	want := []string{"heading_1", "heading_2", "paragraph",
		"bulleted_list_item", "bulleted_list_item", "divider", "quote"}
	if len(types) != len(want) {
		t.Fatalf("块数量错误: %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("第 %d 块类型错误: %s, 期望 %s", i, types[i], want[i])
		}
	}

	// 段落里的加粗和链接保留为富文本标记
	para := blocks[2]["paragraph"].(map[string]any)["rich_text"].([]richText)
	var hasBold, hasLink bool
	for _, seg := range para {
		if ann, ok := seg["annotations"].(map[string]any); ok && ann["bold"] == true {
			hasBold = true
		}
		if text, ok := seg["text"].(map[string]any); ok && text["link"] != nil {
			hasLink = true
		}
	}
	if !hasBold || !hasLink {
		t.Errorf("富文本标记缺失: bold=%v link=%v", hasBold, hasLink)
	}
}

func TestMarkdownToBlocksSplitsLongText(t *testing.T) {
	long := strings.Repeat("长", 4500)
	blocks := markdownToBlocks(long)
	if len(blocks) != 1 {
		t.Fatalf("应为单个段落块: %d", len(blocks))
	}

	segs := blocks[0]["paragraph"].(map[string]any)["rich_text"].([]richText)
	if len(segs) != 3 {
		t.Fatalf("4500 字符应拆成 3 段, 实际 %d", len(segs))
	}
	for i, seg := range segs {
		content := seg["text"].(map[string]any)["content"].(string)
		if n := len([]rune(content)); n > notionTextLimit {
			t.Errorf("第 %d 段超过单段上限: %d", i, n)
		}
	}
}

func TestMarkdownToBlocksBatchLimit(t *testing.T) {
	// 超过单次请求上限的块应分批追加
	var sb strings.Builder
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&sb, "第%d段\n\n", i)
	}

	f := newFakeNotion(t)
	n := newTestNotionService(f)
	report := testReport()
	report.Content = sb.String()

	if _, err := n.PublishReport(report); err != nil {
		t.Fatalf("发布长报告失败: %v", err)
	}
	if f.appends != 1 {
		t.Errorf("150 个块应产生 1 次追加请求, 实际 %d", f.appends)
	}
}
