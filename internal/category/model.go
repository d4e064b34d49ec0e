package category

import (
	"time"

	"gorm.io/gorm"
)

// Status 定义了类别的生命周期状态
// 状态只能严格前进: not-started -> active -> completed -> revealed
type Status string

const (
	// StatusNotStarted 表示类别尚未开始投票
	StatusNotStarted Status = "not-started"
	// StatusActive 表示类别正在接受投票
	StatusActive Status = "active"
	// StatusCompleted 表示类别投票已结束但尚未揭晓
	StatusCompleted Status = "completed"
	// StatusRevealed 表示类别结果已向所有人揭晓，是终态
	StatusRevealed Status = "revealed"
)

// Record 定义了类别在SQLite中的持久化模型。
// 内存仓库才是运行期的权威数据，这张表用于恢复和事后审计。
type Record struct {
	gorm.Model

	// CategoryID 是类别的业务主键，来自导入文件
	CategoryID string `gorm:"uniqueIndex;not null" json:"id"`

	// Title 是类别的标题，例如 "最佳新人奖"
	Title string `json:"title"`

	// Description 是类别的说明文字
	Description string `json:"description"`

	// Options 是候选项列表的JSON序列化，启动一轮时会对它做快照
	Options string `json:"options"`

	// Status 是类别的生命周期状态
	Status Status `json:"status"`

	// VoteCount 是已落库投票的总数
	VoteCount int `json:"voteCount"`

	// Results 是 候选项->票数 映射的JSON序列化
	Results string `json:"results"`

	// Revealed 标记结果是否已揭晓
	Revealed bool `json:"revealed"`

	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	RevealedAt  *time.Time `json:"revealedAt"`
}

// TableName 指定持久化表名
func (Record) TableName() string {
	return "categories"
}
