package vote

import (
	"fmt"

	"github.com/SumedhUnveil/live-voting-gritgags/internal/participant"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/database"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/metadata"
	"github.com/SumedhUnveil/live-voting-gritgags/pkg/lifecycle"
)

// PrimeDB 迁移投票日志表
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("无法迁移投票日志表: %w", err)
	}
	return nil
}

// ResetDB 清空投票日志及其Redis镜像。
// 由全局重置操作调用，此时编排器已经清空了内存状态。
func ResetDB() error {
	if err := database.DB.Exec("DELETE FROM vote_records").Error; err != nil {
		return fmt.Errorf("无法清空投票日志: %w", err)
	}
	if err := metadata.SetLastCommittedVoteID(0); err != nil {
		return fmt.Errorf("无法重置提交检查点: %w", err)
	}

	if database.IsRedisHealthy() {
		pipe := database.RDB.TxPipeline()
		pipe.Del(database.Ctx, participant.VotedByParticipantKey)
		pipe.Del(database.Ctx, participant.VotedByDeviceKey)
		pipe.Set(database.Ctx, metadata.RedisTotalVotesKey, 0, 0)
		pipe.Set(database.Ctx, metadata.RedisLastCommittedVoteIDKey, 0, 0)
		if _, err := pipe.Exec(database.Ctx); err != nil {
			fmt.Printf("警告: 清空投票Redis镜像失败: %v\n", err)
		}
	}
	return nil
}

// StartProcessor 在后台goroutine中启动写入器。
// gracefulHandle 控制何时停止接收、转入排空；
// forcefulHandle 是排空阶段的最后期限。
func StartProcessor(p *Processor, gracefulManager, forcefulManager *lifecycle.Manager) error {
	gracefulHandle, err := gracefulManager.NewServiceHandle("投票写入器")
	if err != nil {
		return fmt.Errorf("无法注册投票写入器: %w", err)
	}
	forcefulHandle, err := forcefulManager.NewServiceHandle("投票写入器排空")
	if err != nil {
		return fmt.Errorf("无法注册投票写入器排空: %w", err)
	}
	go p.run(gracefulHandle, forcefulHandle)
	return nil
}
