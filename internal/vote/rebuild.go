package vote

import (
	"fmt"

	"github.com/SumedhUnveil/live-voting-gritgags/internal/category"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/participant"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/database"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/metadata"
)

// RestoreState 在启动时从投票日志重建内存权威状态：
// 每个类别的计票与总票数，以及两条去重索引。
// 必须在编排器启动之前、对尚未共享的仓库调用。
// 计票严格等于已落库投票按候选项分组的计数，不存在任何漂移。
func RestoreState(store *category.Store, registry *participant.Registry) error {
	const batchSize = 1000

	restored := 0
	var lastID uint
	for {
		var records []Record
		if err := database.DB.Where("id > ?", lastID).Order("id asc").Limit(batchSize).Find(&records).Error; err != nil {
			return fmt.Errorf("分批读取投票日志失败: %w", err)
		}
		if len(records) == 0 {
			break
		}

		for _, r := range records {
			registry.MarkVoted(r.ParticipantID, r.DeviceID, r.CategoryID)
			cat, ok := store.Get(r.CategoryID)
			if !ok {
				fmt.Printf("警告: 投票日志中的类别 %s 已不存在，跳过该条记录。\n", r.CategoryID)
				continue
			}
			cat.Results[r.Option]++
			cat.VoteCount++
		}

		restored += len(records)
		lastID = records[len(records)-1].ID
		if len(records) < batchSize {
			break
		}
	}

	if restored > 0 {
		fmt.Printf("恢复: 从投票日志重建了 %d 条已落库投票的状态。\n", restored)
	}
	return nil
}

// WarmupMirror 把投票日志的总量写入Redis镜像。
// 计票和去重索引的镜像由类别与注册表各自的预热负责。
func WarmupMirror() error {
	var total int64
	if err := database.DB.Model(&Record{}).Count(&total).Error; err != nil {
		return fmt.Errorf("无法统计投票日志: %w", err)
	}
	if err := database.RDB.Set(database.Ctx, metadata.RedisTotalVotesKey, total, 0).Err(); err != nil {
		return fmt.Errorf("预热总票数镜像失败: %w", err)
	}
	return nil
}
