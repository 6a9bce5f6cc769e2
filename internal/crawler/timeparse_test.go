package crawler

import (
	"testing"
	"time"
)

func TestParseTimestampRelative(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want int64
	}{
		{"5 分钟前", now.Unix() - 5*60},
		{"5分钟前", now.Unix() - 5*60},
		{"3 小时前", now.Unix() - 3*3600},
		{"2 天前", now.Unix() - 2*86400},
		{"  1 小时前  ", now.Unix() - 3600},
	}
	for _, tt := range tests {
		if got := ParseTimestamp(tt.in, now); got != tt.want {
			t.Errorf("ParseTimestamp(%q) = %d, 期望 %d", tt.in, got, tt.want)
		}
	}
}

func TestParseTimestampAbsolute(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	got := ParseTimestamp("2024-04-30 08:30:00", now)
	want := time.Date(2024, 4, 30, 8, 30, 0, 0, time.UTC).Unix()
	if got != want {
		t.Errorf("绝对时间解析错误: %d, 期望 %d", got, want)
	}
}

func TestParseTimestampFallback(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// 无法识别的文本回退为 now，有损但不报错
	for _, in := range []string{"", "刚刚", "不是时间", "昨天"} {
		if got := ParseTimestamp(in, now); got != now.Unix() {
			t.Errorf("ParseTimestamp(%q) = %d, 期望回退为 now %d", in, got, now.Unix())
		}
	}
}
