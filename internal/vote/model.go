package vote

import (
	"time"

	"gorm.io/gorm"
)

// Record 定义了单条已落库投票的数据结构。
// 这是一条不可变事实：写入之后永不修改，整张表是追加日志，
// 只用于启动恢复和事后审计。
type Record struct {
	gorm.Model

	// CategoryID 是所投类别的业务ID
	CategoryID string `gorm:"index" json:"category_id"`

	// Option 是所投的候选项
	Option string `json:"option"`

	// ParticipantID 是投票者的参与者身份
	ParticipantID string `gorm:"index" json:"participant_id"`

	// DeviceID 是投票者的设备指纹
	DeviceID string `gorm:"index" json:"device_id"`

	// CastAt 是投票被准入的时刻
	CastAt time.Time `json:"cast_at"`
}

// TableName 指定持久化表名
func (Record) TableName() string {
	return "vote_records"
}
