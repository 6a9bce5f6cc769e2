package config

import (
	"testing"
)

func TestParseTargetNodes(t *testing.T) {
	nodes := parseTargetNodes("create=分享创造;qna=问与答")
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	if nodes[0].Name != "create" || nodes[0].Title != "分享创造" {
		t.Errorf("unexpected first node: %+v", nodes[0])
	}
	if nodes[1].Name != "qna" || nodes[1].Title != "问与答" {
		t.Errorf("unexpected second node: %+v", nodes[1])
	}
}

func TestParseTargetNodesMalformed(t *testing.T) {
	// 缺少等号或空值的条目应被跳过
	nodes := parseTargetNodes("create=分享创造;broken;=无名;empty=")
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	if nodes[0].Name != "create" {
		t.Errorf("unexpected node: %+v", nodes[0])
	}
}

func TestParseTargetNodesQuoted(t *testing.T) {
	// 环境变量可能带引号
	nodes := parseTargetNodes(`"programmer=程序员"`)
	if len(nodes) != 1 || nodes[0].Name != "programmer" {
		t.Fatalf("unexpected nodes: %+v", nodes)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "host=localhost user=postgres dbname=v2pulse")
	t.Setenv("TARGET_NODES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Crawler.MaxConcurrentNodes != 1 {
		t.Errorf("expected serial default, got %d", cfg.Crawler.MaxConcurrentNodes)
	}
	if cfg.Analysis.ReplyWeight != 5.0 || cfg.Analysis.ThanksWeight != 3.0 {
		t.Errorf("unexpected analysis weights: %+v", cfg.Analysis)
	}
	if cfg.Analysis.TimeDecayHours != 168 {
		t.Errorf("expected 168h decay window, got %d", cfg.Analysis.TimeDecayHours)
	}
	if len(cfg.TargetNodes) == 0 {
		t.Error("expected default target nodes")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "host=localhost user=postgres dbname=v2pulse")
	t.Setenv("CRAWLER_MAX_CONCURRENT_NODES", "3")
	t.Setenv("LLM_MODELS", "model-a, model-b")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Crawler.MaxConcurrentNodes != 3 {
		t.Errorf("expected 3, got %d", cfg.Crawler.MaxConcurrentNodes)
	}
	if len(cfg.LLM.Models) != 2 || cfg.LLM.Models[1] != "model-b" {
		t.Errorf("unexpected models: %v", cfg.LLM.Models)
	}
}
