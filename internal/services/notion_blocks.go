package services

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// notionBlock Notion API 的块对象，结构动态，直接用 map 组装
type notionBlock = map[string]any

// richText Notion 的富文本段
type richText = map[string]any

var markdownParser = goldmark.New()

// markdownToBlocks 把 Markdown 报告转成 Notion 块列表
// 支持标题、段落、列表、引用、分隔线和代码块，其余节点退化为纯文本段落
func markdownToBlocks(markdown string) []notionBlock {
	source := []byte(markdown)
	doc := markdownParser.Parser().Parse(text.NewReader(source))

	var blocks []notionBlock
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		blocks = append(blocks, convertNode(node, source)...)
	}
	return blocks
}

// convertNode 转换单个顶层节点，列表会展开成多个块
func convertNode(node ast.Node, source []byte) []notionBlock {
	switch n := node.(type) {
	case *ast.Heading:
		return []notionBlock{headingBlock(n.Level, inlineRichText(n, source))}

	case *ast.Paragraph:
		rt := inlineRichText(n, source)
		if len(rt) == 0 {
			return nil
		}
		return []notionBlock{paragraphBlock(rt...)}

	case *ast.ThematicBreak:
		return []notionBlock{{"object": "block", "type": "divider", "divider": map[string]any{}}}

	case *ast.List:
		blockType := "bulleted_list_item"
		if n.IsOrdered() {
			blockType = "numbered_list_item"
		}
		var blocks []notionBlock
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			rt := itemRichText(item, source)
			if len(rt) == 0 {
				continue
			}
			blocks = append(blocks, notionBlock{
				"object":  "block",
				"type":    blockType,
				blockType: map[string]any{"rich_text": rt},
			})
		}
		return blocks

	case *ast.Blockquote:
		var rt []richText
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			rt = append(rt, inlineRichText(c, source)...)
		}
		if len(rt) == 0 {
			return nil
		}
		return []notionBlock{{
			"object": "block",
			"type":   "quote",
			"quote":  map[string]any{"rich_text": rt},
		}}

	case *ast.FencedCodeBlock:
		var sb strings.Builder
		for i := 0; i < n.Lines().Len(); i++ {
			line := n.Lines().At(i)
			sb.Write(line.Value(source))
		}
		language := string(n.Language(source))
		if language == "" {
			language = "plain text"
		}
		return []notionBlock{{
			"object": "block",
			"type":   "code",
			"code": map[string]any{
				"rich_text": appendSegments(nil, sb.String(), nil, ""),
				"language":  language,
			},
		}}

	default:
		content := strings.TrimSpace(nodeText(node, source))
		if content == "" {
			return nil
		}
		return []notionBlock{paragraphBlock(appendSegments(nil, content, nil, "")...)}
	}
}

// itemRichText 列表项的富文本，紧凑列表的内容在 TextBlock 里
func itemRichText(item ast.Node, source []byte) []richText {
	var rt []richText
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			rt = append(rt, inlineRichText(c, source)...)
		}
	}
	return rt
}

// inlineRichText 把行内节点转成富文本段，保留加粗、斜体、行内代码和链接
func inlineRichText(parent ast.Node, source []byte) []richText {
	var out []richText

	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		switch n := c.(type) {
		case *ast.Text:
			out = appendSegments(out, string(n.Segment.Value(source)), nil, "")
			if n.SoftLineBreak() || n.HardLineBreak() {
				out = appendSegments(out, " ", nil, "")
			}
		case *ast.String:
			out = appendSegments(out, string(n.Value), nil, "")
		case *ast.CodeSpan:
			out = appendSegments(out, nodeText(n, source), map[string]any{"code": true}, "")
		case *ast.Emphasis:
			annotations := map[string]any{"italic": true}
			if n.Level >= 2 {
				annotations = map[string]any{"bold": true}
			}
			out = appendSegments(out, nodeText(n, source), annotations, "")
		case *ast.Link:
			out = appendSegments(out, nodeText(n, source), nil, string(n.Destination))
		case *ast.AutoLink:
			url := string(n.URL(source))
			out = appendSegments(out, url, nil, url)
		default:
			out = appendSegments(out, nodeText(n, source), nil, "")
		}
	}
	return out
}

// nodeText 取节点下全部文本
func nodeText(node ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(node, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := c.(*ast.Text); ok {
				sb.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// appendSegments 追加文本段，超过单段上限时按 2000 字符拆分
func appendSegments(out []richText, content string, annotations map[string]any, linkURL string) []richText {
	if content == "" {
		return out
	}
	runes := []rune(content)
	for start := 0; start < len(runes); start += notionTextLimit {
		end := start + notionTextLimit
		if end > len(runes) {
			end = len(runes)
		}
		seg := richTextSegment(string(runes[start:end]), annotations)
		if linkURL != "" {
			seg["text"].(map[string]any)["link"] = map[string]any{"url": linkURL}
		}
		out = append(out, seg)
	}
	return out
}

// richTextSegment 单个文本段
func richTextSegment(content string, annotations map[string]any) richText {
	seg := richText{
		"type": "text",
		"text": map[string]any{"content": content},
	}
	if len(annotations) > 0 {
		seg["annotations"] = annotations
	}
	return seg
}

// paragraphBlock 普通段落块
func paragraphBlock(rt ...richText) notionBlock {
	return notionBlock{
		"object":    "block",
		"type":      "paragraph",
		"paragraph": map[string]any{"rich_text": rt},
	}
}

// headingBlock 标题块，Notion 只支持三级标题，更深的层级并入三级
func headingBlock(level int, rt []richText) notionBlock {
	if level > 3 {
		level = 3
	}
	if level < 1 {
		level = 1
	}
	blockType := []string{"heading_1", "heading_2", "heading_3"}[level-1]
	return notionBlock{
		"object":  "block",
		"type":    blockType,
		blockType: map[string]any{"rich_text": rt},
	}
}
