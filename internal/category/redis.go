package category

import (
	"fmt"

	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/database"
)

// --- Redis 键名常量 ---

const (
	// StatusKey 是一个 Redis Hash 的键，镜像每个类别的生命周期状态。
	// Field: 类别ID
	// Value: Status 字符串
	StatusKey = "category:status"

	// ResultsKeyPrefix 是每个类别计票镜像的键前缀。
	// 完整键形如 category:results:<id>，是一个 候选项->票数 的Hash。
	ResultsKeyPrefix = "category:results:"
)

// ResultsKey 返回一个类别计票镜像的完整Redis键
func ResultsKey(categoryID string) string {
	return ResultsKeyPrefix + categoryID
}

// WarmupMirror 把内存仓库的状态全量写入Redis镜像。
// 在启动、Redis重启恢复和完全重置后调用。镜像只服务于观测，
// 写失败不影响核心状态。
func WarmupMirror(store *Store) error {
	pipe := database.RDB.Pipeline()

	pipe.Del(database.Ctx, StatusKey)
	for _, c := range store.List() {
		pipe.HSet(database.Ctx, StatusKey, c.ID, string(c.Status))

		resultsKey := ResultsKey(c.ID)
		pipe.Del(database.Ctx, resultsKey)
		for option, count := range c.Results {
			pipe.HSet(database.Ctx, resultsKey, option, count)
		}
	}

	if _, err := pipe.Exec(database.Ctx); err != nil {
		return fmt.Errorf("预热类别镜像到Redis失败: %w", err)
	}

	fmt.Printf("成功预热 %d 个类别的Redis镜像。\n", store.Len())
	return nil
}
