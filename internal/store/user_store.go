package store

import (
	"fmt"
	"strings"
	"time"
	"v2pulse/internal/models"
	"v2pulse/internal/utils"

	"gorm.io/gorm/clause"
)

// InsertUsers 批量记录新发现的用户名，已存在的忽略
// 返回实际写入的条数
func (s *Store) InsertUsers(usernames []string) (int64, error) {
	users := make([]models.User, 0, len(usernames))
	seen := make(map[string]bool, len(usernames))
	now := time.Now()

	for _, name := range usernames {
		name = utils.TruncateRunes(strings.TrimSpace(name), maxUsernameLen)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		users = append(users, models.User{Username: name, FirstSeenAt: now})
	}
	if len(users) == 0 {
		return 0, nil
	}

	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoNothing: true,
	}).Create(&users)
	if result.Error != nil {
		return 0, fmt.Errorf("批量插入用户失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}
