package utils

import (
	"log"
	"regexp"
	"strings"
)

// 内容截断后缀标记
const (
	TopicTruncateSuffix = "...[内容被截断]"
	ReplyTruncateSuffix = "...[回复被截断]"
)

// TruncateRunes 按字符数截断字符串
func TruncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// TruncateWithSuffix 超长内容截断并追加标记，结果字符数恰好等于 max
func TruncateWithSuffix(s string, max int, suffix string) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	cut := max - len([]rune(suffix))
	if cut < 0 {
		cut = 0
	}
	log.Printf("内容被截断: %d -> %d 字符", len(r), max)
	return string(r[:cut]) + suffix
}

// ClampReplies 回复数限制在 0~65535
func ClampReplies(n int) uint {
	if n < 0 {
		return 0
	}
	if n > 65535 {
		return 65535
	}
	return uint(n)
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// CollapseBlankLines 合并连续空行并去掉首尾空白
func CollapseBlankLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
