package crawler

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"v2pulse/internal/config"
)

// Fetcher 带重试和限速退避的页面抓取器
type Fetcher struct {
	client     *http.Client
	baseURL    string
	maxRetries int
	delay      time.Duration
}

// NewFetcher 创建抓取器
func NewFetcher(cfg config.CrawlerConfig) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		baseURL:    cfg.BaseURL,
		maxRetries: cfg.MaxRetries,
		delay:      time.Duration(cfg.DelaySeconds * float64(time.Second)),
	}
}

// BaseURL 站点根地址
func (f *Fetcher) BaseURL() string {
	return f.baseURL
}

// Delay 请求间基础延迟
func (f *Fetcher) Delay() time.Duration {
	return f.delay
}

// FetchPage 抓取一个页面，返回 HTML 文本
// 429 的退避明显长于一般错误，重试耗尽后返回错误
func (f *Fetcher) FetchPage(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(attempt, lastErr)
			log.Printf("第 %d 次重试 %s, 等待 %v: %v", attempt, url, wait, lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}

	return "", fmt.Errorf("抓取 %s 失败(重试 %d 次): %w", url, f.maxRetries, lastErr)
}

// rateLimitError 标记 429 响应，退避策略据此区分
type rateLimitError struct {
	url string
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("触发限流(429): %s", e.url)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("User-Agent", randomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Referer", f.baseURL+"/")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &rateLimitError{url: url}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP 状态码: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取响应失败: %w", err)
	}
	return string(body), nil
}

// backoff 计算第 attempt 次重试前的等待时长
// 限流时指数基数放大 3 倍并加 2~5 秒抖动，一般错误加 1~3 秒抖动
func backoff(attempt int, err error) time.Duration {
	if _, ok := err.(*rateLimitError); ok {
		secs := (1<<uint(attempt))*3 + 2 + rand.Intn(4)
		return time.Duration(secs) * time.Second
	}
	secs := (1 << uint(attempt)) + 1 + rand.Intn(3)
	return time.Duration(secs) * time.Second
}
