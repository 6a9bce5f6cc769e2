package models

// TopicSummary 列表页解析出的主题摘要，入库前的临时数据
type TopicSummary struct {
	ID             int64
	Title          string
	URL            string
	NodeName       string
	MemberUsername *string
	Replies        uint
	Created        int64
	LastTouched    int64 // 列表页取不到时等于 Created
}

// ReplySummary 详情页解析出的单条回复
type ReplySummary struct {
	ID             int64
	TopicID        int64
	MemberUsername *string
	Content        string
	Floor          uint
	Created        int64
	Thanks         uint
}

// TopicDetail 详情页解析结果：主贴正文 + 全部回复
type TopicDetail struct {
	Content string
	Replies []ReplySummary
}

// CrawlResult 一次爬取任务的汇总计数
type CrawlResult struct {
	TopicsFound  int    `json:"topics_found"`
	TopicsSaved  int    `json:"topics_saved"`
	RepliesSaved int    `json:"replies_saved"`
	UsersSaved   int    `json:"users_saved"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}
