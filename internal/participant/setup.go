package participant

import (
	"fmt"

	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/database"
)

// PrimeDB 负责迁移participant表并预热Redis已知身份镜像
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("无法迁移participant表: %w", err)
	}
	fmt.Println("Participant数据库表迁移成功。")
	return WarmupKnownMirror()
}

// WarmupKnownMirror 从SQLite加载所有出现过的参与者ID，预热到Redis的Set中
func WarmupKnownMirror() error {
	var records []Record
	if err := database.DB.Select("uuid").Find(&records).Error; err != nil {
		return fmt.Errorf("无法从SQLite读取参与者UUID: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("无现有参与者数据，无需预热身份镜像。")
		return nil
	}

	// 将UUID转换为interface{}切片以用于SAdd
	ids := make([]interface{}, len(records))
	for i, r := range records {
		ids[i] = r.UUID
	}

	pipe := database.RDB.Pipeline()
	// 先清空旧的镜像，确保数据一致性
	pipe.Del(database.Ctx, KnownParticipantsKey)
	pipe.SAdd(database.Ctx, KnownParticipantsKey, ids...)

	if _, err := pipe.Exec(database.Ctx); err != nil {
		return fmt.Errorf("预热参与者身份镜像到Redis失败: %w", err)
	}

	fmt.Printf("成功预热 %d 个参与者身份到Redis。\n", len(records))
	return nil
}

// ResetDB 执行完全重置：清空所有参与者行和相关Redis镜像
func ResetDB() error {
	if err := database.DB.Exec("DELETE FROM participants").Error; err != nil {
		return fmt.Errorf("清空participant表失败: %w", err)
	}

	if database.IsRedisHealthy() {
		pipe := database.RDB.Pipeline()
		pipe.Del(database.Ctx, KnownParticipantsKey)
		pipe.Del(database.Ctx, VotedByParticipantKey)
		pipe.Del(database.Ctx, VotedByDeviceKey)
		if _, err := pipe.Exec(database.Ctx); err != nil {
			fmt.Printf("警告: 清空参与者Redis镜像失败: %v\n", err)
		}
	}
	return nil
}
