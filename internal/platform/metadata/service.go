package metadata

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PrimeDB 负责迁移metadata表
func PrimeDB() error {
	if err := database.DB.AutoMigrate(&Metadata{}); err != nil {
		return fmt.Errorf("无法迁移metadata表: %w", err)
	}
	fmt.Println("Metadata数据库表迁移成功。")
	return nil
}

// GetValue 读取一个元数据键的值，键不存在时返回空字符串
func GetValue(key string) (string, error) {
	var record Metadata
	err := database.DB.Where("key = ?", key).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("无法读取元数据 %s: %w", key, err)
	}
	return record.Value, nil
}

// SetValue 写入一个元数据键的值，键已存在时覆盖
func SetValue(key, value string) error {
	record := Metadata{Key: key, Value: value}
	err := database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("无法写入元数据 %s: %w", key, err)
	}
	return nil
}

// GetLastCommittedVoteID 返回最后一条已落库投票的自增ID，用于启动时恢复处理进度
func GetLastCommittedVoteID() (uint, error) {
	value, err := GetValue(LastCommittedVoteIDKey)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("元数据 %s 的值非法: %w", LastCommittedVoteIDKey, err)
	}
	return uint(id), nil
}

// SetLastCommittedVoteID 更新落库检查点
func SetLastCommittedVoteID(id uint) error {
	return SetValue(LastCommittedVoteIDKey, strconv.FormatUint(uint64(id), 10))
}
