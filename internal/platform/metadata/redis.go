package metadata

import (
	"fmt"

	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/database"
)

// WarmupMirror 把SQLite中的权威元数据写入Redis镜像
func WarmupMirror() error {
	lastID, err := GetLastCommittedVoteID()
	if err != nil {
		return fmt.Errorf("无法读取提交检查点: %w", err)
	}

	pipe := database.RDB.TxPipeline()
	pipe.Set(database.Ctx, RedisLastCommittedVoteIDKey, lastID, 0)
	if _, err := pipe.Exec(database.Ctx); err != nil {
		return fmt.Errorf("预热元数据镜像失败: %w", err)
	}
	return nil
}
