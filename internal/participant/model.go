package participant

import (
	"time"

	"gorm.io/gorm"
)

// Record 定义了参与者在SQLite数据库中的持久化模型。
// 每个出现过的参与者一行，只用于事后审计和恢复已知身份集合。
type Record struct {
	// UUID 是参与者的主键，由服务端在首次join时签发。
	UUID string `gorm:"primarykey;type:varchar(36)"`

	// DisplayName 是参与者自报的显示名。
	DisplayName string

	// 部分gorm.Model，由GORM自动管理
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName 指定持久化表名
func (Record) TableName() string {
	return "participants"
}
