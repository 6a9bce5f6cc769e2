package crawler

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// 相对时间短语，如 "5 分钟前"、"3 小时前"、"2 天前"
var relativeTime = regexp.MustCompile(`(\d+)\s*(分钟|小时|天)前`)

// ParseTimestamp 把页面上的时间文本解析为秒级时间戳
// 支持相对时间短语和绝对时间字符串；无法识别时回退为 now
// 回退是有意为之的有损行为，时间精度只做尽力而为
func ParseTimestamp(s string, now time.Time) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.Unix()
	}

	if m := relativeTime.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil {
			switch m[2] {
			case "分钟":
				return now.Unix() - n*60
			case "小时":
				return now.Unix() - n*3600
			case "天":
				return now.Unix() - n*86400
			}
		}
	}

	// "YYYY-MM-DD HH:MM:SS" 等绝对时间格式
	if t, err := dateparse.ParseIn(s, now.Location()); err == nil {
		return t.Unix()
	}

	return now.Unix()
}
