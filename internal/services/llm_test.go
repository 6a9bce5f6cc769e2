package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"v2pulse/internal/config"
)

func testLLMConfig(baseURL string, models ...string) config.LLMConfig {
	return config.LLMConfig{
		BaseURL:        baseURL,
		Token:          "test-token",
		Models:         models,
		TimeoutSeconds: 5,
		MaxRetries:     0,
	}
}

func sseLine(content string) string {
	chunk := map[string]any{
		"choices": []map[string]any{
			{"delta": map[string]any{"content": content}},
		},
	}
	data, _ := json.Marshal(chunk)
	return "data: " + string(data) + "\n\n"
}

func TestAnalyzeStreaming(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("缺少鉴权头")
		}
		body, _ := io.ReadAll(r.Body)
		var req chatRequest
		json.Unmarshal(body, &req)
		gotPrompt = req.Messages[0].Content
		if !req.Stream {
			t.Errorf("应使用流式请求")
		}
		if req.Temperature != 0.3 {
			t.Errorf("温度应为 0.3, 实际 %v", req.Temperature)
		}

		fmt.Fprint(w, sseLine("分析"))
		fmt.Fprint(w, sseLine("结果"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c, err := NewLLMClient(testLLMConfig(srv.URL, "test-model"))
	if err != nil {
		t.Fatalf("创建客户端失败: %v", err)
	}

	result, err := c.Analyze("原始内容", "请分析: {content}")
	if err != nil {
		t.Fatalf("分析失败: %v", err)
	}
	if result.Analysis != "分析结果" {
		t.Errorf("流式内容拼接错误: %q", result.Analysis)
	}
	if result.Model != "test-model" || result.Partial {
		t.Errorf("结果元信息错误: %+v", result)
	}
	if !strings.Contains(gotPrompt, "原始内容") {
		t.Errorf("提示词模板未填充内容: %q", gotPrompt)
	}
}

func TestAnalyzeModelFallback(t *testing.T) {
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req chatRequest
		json.Unmarshal(body, &req)
		models = append(models, req.Model)

		if req.Model == "broken-model" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, sseLine("备用模型的结果"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c, err := NewLLMClient(testLLMConfig(srv.URL, "broken-model", "backup-model"))
	if err != nil {
		t.Fatalf("创建客户端失败: %v", err)
	}

	result, err := c.Analyze("内容", "{content}")
	if err != nil {
		t.Fatalf("候选模型回退失败: %v", err)
	}
	if result.Analysis != "备用模型的结果" || result.Model != "backup-model" {
		t.Errorf("应使用备用模型: %+v", result)
	}
	if len(models) != 2 {
		t.Errorf("应依次尝试两个模型: %v", models)
	}
}

func TestAnalyzePartialOnDisconnect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 声明比实际更长的响应, 连接结束时客户端读到非预期 EOF
		payload := sseLine("部分内容")
		w.Header().Set("Content-Length", fmt.Sprint(len(payload)+512))
		io.WriteString(w, payload)
	}))
	defer srv.Close()

	c, err := NewLLMClient(testLLMConfig(srv.URL, "test-model"))
	if err != nil {
		t.Fatalf("创建客户端失败: %v", err)
	}

	result, err := c.Analyze("内容", "{content}")
	if err != nil {
		t.Fatalf("已收到部分数据时应按部分成功返回: %v", err)
	}
	if !result.Partial {
		t.Errorf("应标记为部分结果")
	}
	if result.Analysis != "部分内容" {
		t.Errorf("部分内容错误: %q", result.Analysis)
	}
}

func TestAnalyzeAllModelsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewLLMClient(testLLMConfig(srv.URL, "a", "b"))
	if err != nil {
		t.Fatalf("创建客户端失败: %v", err)
	}
	if _, err := c.Analyze("内容", "{content}"); err == nil {
		t.Fatalf("全部模型失败时应返回错误")
	}
}

func TestNewLLMClientValidation(t *testing.T) {
	if _, err := NewLLMClient(config.LLMConfig{Models: []string{"m"}}); err == nil {
		t.Errorf("缺少 token 应报错")
	}
	if _, err := NewLLMClient(config.LLMConfig{Token: "t"}); err == nil {
		t.Errorf("空模型列表应报错")
	}
}
