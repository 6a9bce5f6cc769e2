package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"v2pulse/internal/config"
)

func testCrawlerConfig(baseURL string) config.CrawlerConfig {
	return config.CrawlerConfig{
		DelaySeconds:         0,
		MaxRetries:           0,
		TimeoutSeconds:       5,
		MaxPagesPerNode:      3,
		FetchReplies:         true,
		MaxConcurrentNodes:   1,
		MaxConcurrentReplies: 3,
		BatchSize:            10,
		BaseURL:              baseURL,
	}
}

func TestFetchPageOK(t *testing.T) {
	var gotUA, gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := NewFetcher(testCrawlerConfig(srv.URL))
	body, err := f.FetchPage(context.Background(), srv.URL+"/go/create")
	if err != nil {
		t.Fatalf("抓取失败: %v", err)
	}
	if !strings.Contains(body, "ok") {
		t.Errorf("响应内容错误: %q", body)
	}
	if gotUA == "" {
		t.Errorf("应携带 User-Agent")
	}
	if gotReferer != srv.URL+"/" {
		t.Errorf("Referer 错误: %q", gotReferer)
	}
}

func TestFetchPageGivesUpAfterRetries(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(testCrawlerConfig(srv.URL))
	if _, err := f.FetchPage(context.Background(), srv.URL); err == nil {
		t.Fatalf("重试耗尽后应返回错误")
	}
	if hits != 1 {
		t.Errorf("MaxRetries=0 时只应请求 1 次, 实际 %d", hits)
	}
}

func TestFetchPageContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := testCrawlerConfig(srv.URL)
	cfg.MaxRetries = 3
	f := NewFetcher(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := f.FetchPage(ctx, srv.URL)
	if err == nil {
		t.Fatalf("取消的 context 应中断重试")
	}
	// 取消后不应把退避等完
	if time.Since(start) > 2*time.Second {
		t.Errorf("取消后退避等待未被中断")
	}
}

func TestBackoffRateLimitLonger(t *testing.T) {
	// 同一重试轮次下, 限流退避必须明显长于一般错误退避
	for attempt := 1; attempt <= 3; attempt++ {
		generic := backoff(attempt, &testError{})
		limited := backoff(attempt, &rateLimitError{url: "x"})
		if limited <= generic {
			t.Errorf("第 %d 轮: 限流退避 %v 应长于一般退避 %v", attempt, limited, generic)
		}
	}

	// 退避随轮次递增
	if backoff(3, &testError{}) <= backoff(1, &testError{}) {
		// 抖动范围(1~3秒)小于指数增长差(2^3-2^1=6秒), 不会交叉
		t.Errorf("退避时长应随重试轮次增长")
	}
}

type testError struct{}

func (e *testError) Error() string { return "一般错误" }
