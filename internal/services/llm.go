package services

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"v2pulse/internal/config"
)

// LLMResult 一次分析调用的结果
// Partial 表示连接中断但已收到部分内容，内容仍可用
type LLMResult struct {
	Analysis string
	Model    string
	Partial  bool
}

// LLMClient OpenAI 兼容接口的流式客户端
// 按候选模型列表依次回退，单个模型内部按配置重试
type LLMClient struct {
	client  *http.Client
	baseURL string
	token   string
	models  []string
	retries int
}

// NewLLMClient 创建 LLM 客户端
func NewLLMClient(cfg config.LLMConfig) (*LLMClient, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("LLM 配置不完整: 必须设置 LLM_TOKEN")
	}
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("LLM 配置不完整: 候选模型列表为空")
	}
	return &LLMClient{
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		models:  cfg.Models,
		retries: cfg.MaxRetries,
	}, nil
}

// chat/completions 请求与流式响应片段
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Analyze 把内容套入提示词模板并流式调用 LLM
// 所有候选模型都失败时返回最后一个错误
func (c *LLMClient) Analyze(content, promptTemplate string) (*LLMResult, error) {
	prompt := strings.ReplaceAll(promptTemplate, "{content}", content)
	log.Printf("开始 LLM 内容分析, 内容长度 %d 字符", len([]rune(content)))

	var lastErr error
	for _, model := range c.models {
		for attempt := 0; attempt <= c.retries; attempt++ {
			result, err := c.streamOnce(model, prompt)
			if err == nil {
				log.Printf("LLM 分析完成, 模型 %s, 输出 %d 字符", model, len([]rune(result.Analysis)))
				return result, nil
			}
			lastErr = err
			log.Printf("模型 %s 第 %d 次调用失败: %v", model, attempt+1, err)
		}
		log.Printf("模型 %s 重试耗尽, 切换下一个候选模型", model)
	}
	return nil, fmt.Errorf("全部候选模型调用失败: %w", lastErr)
}

// streamOnce 单次流式调用
// 连接提前断开但已收到内容时按部分成功返回，不触发重试
func (c *LLMClient) streamOnce(model, prompt string) (*LLMResult, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Stream:      true,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("LLM API 请求失败: %d - %s", resp.StatusCode, string(body))
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimSpace(line[len("data: "):])
		if data == "[DONE]" {
			break
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			log.Printf("警告: 无法解析的流式片段: %s", data)
			continue
		}
		if len(chunk.Choices) > 0 {
			sb.WriteString(chunk.Choices[0].Delta.Content)
		}
	}

	if err := scanner.Err(); err != nil {
		if sb.Len() > 0 {
			log.Printf("LLM 连接提前关闭, 使用已接收的 %d 字符作为结果: %v", sb.Len(), err)
			return &LLMResult{Analysis: sb.String(), Model: model, Partial: true}, nil
		}
		return nil, fmt.Errorf("流式读取失败且未收到任何数据: %w", err)
	}

	if sb.Len() == 0 {
		return nil, errors.New("LLM 返回了空内容")
	}
	return &LLMResult{Analysis: sb.String(), Model: model}, nil
}
