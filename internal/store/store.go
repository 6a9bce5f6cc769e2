package store

import (
	"time"
	"v2pulse/internal/models"
	"v2pulse/internal/utils"

	"gorm.io/gorm"
)

// 入库前的字段边界
const (
	maxTitleLen    = 500
	maxURLLen      = 500
	maxUsernameLen = 50
	maxContentLen  = 16000
	maxReplyLen    = 3000

	replyChunkSize = 500
)

// Store 存储网关，所有实体的持久化操作都经过这里
type Store struct {
	db *gorm.DB
}

// New 创建存储网关
func New(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

// DB 暴露底层连接，只给只读 API 层使用
func (s *Store) DB() *gorm.DB {
	return s.db
}

// sanitizeTopic 入库前清理主题字段：超长截断、回复数限幅
func sanitizeTopic(t *models.Topic) {
	t.Title = utils.TruncateRunes(t.Title, maxTitleLen)
	t.URL = utils.TruncateRunes(t.URL, maxURLLen)
	t.Content = utils.TruncateWithSuffix(t.Content, maxContentLen, utils.TopicTruncateSuffix)
	t.NodeName = utils.TruncateRunes(t.NodeName, maxUsernameLen)
	if t.MemberUsername != nil {
		u := utils.TruncateRunes(*t.MemberUsername, maxUsernameLen)
		t.MemberUsername = &u
	}
	if t.CrawledAt.IsZero() {
		t.CrawledAt = time.Now()
	}
}

// sanitizeReply 入库前清理回复字段
func sanitizeReply(r *models.Reply) {
	r.Content = utils.TruncateWithSuffix(r.Content, maxReplyLen, utils.ReplyTruncateSuffix)
	if r.MemberUsername != nil {
		u := utils.TruncateRunes(*r.MemberUsername, maxUsernameLen)
		r.MemberUsername = &u
	}
	if r.CrawledAt.IsZero() {
		r.CrawledAt = time.Now()
	}
}
