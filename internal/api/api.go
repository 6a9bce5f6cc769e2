package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"v2pulse/internal/services"
	"v2pulse/internal/store"
)

// Server 只读 JSON API: 数据概览、热门主题和最新报告
type Server struct {
	store    *store.Store
	analyzer *services.AnalyzerService
}

// NewServer 创建 API 服务
func NewServer(s *store.Store, analyzer *services.AnalyzerService) *Server {
	return &Server{store: s, analyzer: analyzer}
}

// Router 注册路由
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	api := r.Group("/api")
	{
		api.GET("/stats", s.handleStats)
		api.GET("/hot", s.handleHot)
		api.GET("/reports/latest", s.handleLatestReport)
	}
	return r
}

// Run 启动 HTTP 服务
func (s *Server) Run(port string) error {
	log.Printf("API 服务启动于 :%s", port)
	return s.Router().Run(":" + port)
}

// handleStats 数据概览: 实体计数 + 热度分布
func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.store.GetStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	hotness, err := s.analyzer.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"database": stats,
		"hotness":  hotness,
	})
}

// handleHot 热门主题, 参数: node(空为全站), hours(默认48), limit(默认20, 上限100)
func (s *Server) handleHot(c *gin.Context) {
	node := c.Query("node")
	hours := queryInt(c, "hours", 48)
	limit := queryInt(c, "limit", 20)
	if limit > 100 {
		limit = 100
	}

	topics, err := s.store.HotTopics(node, limit, hours)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(topics),
		"topics": topics,
	})
}

// handleLatestReport 最新报告, node 为空时返回任意节点的最新一份
func (s *Server) handleLatestReport(c *gin.Context) {
	report, err := s.store.LatestReport(c.Query("node"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "暂无报告"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func queryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
