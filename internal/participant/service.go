package participant

import (
	"errors"
	"fmt"

	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/database"
	"github.com/SumedhUnveil/live-voting-gritgags/pkg/token"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnsureIdentity 解析客户端带来的身份令牌；令牌缺失或非法时签发新身份。
// 返回参与者ID和（可能是新签发的）身份令牌。
func EnsureIdentity(tokenStr string) (string, string, error) {
	if tokenStr != "" {
		if id, ok := token.VerifyIdentity(tokenStr); ok {
			return id, tokenStr, nil
		}
		fmt.Println("检测到无效的身份令牌，将签发新身份。")
	}

	newUUID, err := uuid.NewV7()
	if err != nil {
		return "", "", fmt.Errorf("无法生成UUID v7: %w", err)
	}
	id := newUUID.String()

	signed, err := token.SignIdentity(id)
	if err != nil {
		return "", "", fmt.Errorf("无法签发身份令牌: %w", err)
	}
	return id, signed, nil
}

// PersistSeen 将一个参与者记录为"出现过"。
// 幂等操作：记录已存在时只更新显示名。join不在热路径上，直接同步落库。
func PersistSeen(id, displayName string) error {
	record := Record{UUID: id, DisplayName: displayName}
	if err := database.DB.Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if displayName != "" {
				return database.DB.Model(&Record{}).Where("uuid = ?", id).
					Update("display_name", displayName).Error
			}
			return nil
		}
		// SQLite的唯一约束错误未必映射为gorm.ErrDuplicatedKey，按存在处理
		var count int64
		if countErr := database.DB.Model(&Record{}).Where("uuid = ?", id).Count(&count).Error; countErr == nil && count > 0 {
			return nil
		}
		return fmt.Errorf("无法持久化参与者 %s: %w", id, err)
	}

	// 新参与者同时加入Redis已知身份镜像
	if database.IsRedisHealthy() {
		if err := database.RDB.SAdd(database.Ctx, KnownParticipantsKey, id).Err(); err != nil {
			fmt.Printf("警告: 无法将参与者 %s 写入Redis镜像: %v\n", id, err)
		}
	}
	return nil
}
