package session

import "time"

// Phase 是会话的阶段
type Phase string

const (
	// PhaseVoting 表示会话正在接受投票
	PhaseVoting Phase = "voting"
	// PhaseCompleted 表示会话已被主持人结束
	PhaseCompleted Phase = "completed"
)

// Session 是当前唯一的投票轮。
// 全系统的中心不变量：任何时刻最多存在一个 Active 的会话。
// 会话只在编排器的单一写入者循环内被创建和修改。
type Session struct {
	// ID 是服务端生成的会话标识
	ID string

	// CategoryID 指向本轮对应的类别
	CategoryID string

	// Active 标记会话是否仍在接受投票
	Active bool

	// Phase 是会话阶段
	Phase Phase

	// Options 是开轮时对类别候选项的快照。
	// 整轮期间不可变，即使类别记录被并发编辑。
	Options []string

	// Results 是工作计票，活动期间与类别的计票保持同一份数据
	Results map[string]int

	StartedAt time.Time
	EndedAt   *time.Time
}

// HasOption 判断一个候选项是否在本轮快照的候选列表中
func (s *Session) HasOption(option string) bool {
	for _, o := range s.Options {
		if o == option {
			return true
		}
	}
	return false
}

// TotalVotes 返回工作计票的总票数
func (s *Session) TotalVotes() int {
	total := 0
	for _, count := range s.Results {
		total += count
	}
	return total
}

// AdmittedVote 是一条已通过准入检查、等待批量落库的投票。
// 准入成功的瞬间它就已经计入两条去重索引，落库只是事后的审计动作。
type AdmittedVote struct {
	CategoryID    string
	Option        string
	ParticipantID string
	DeviceID      string
	CastAt        time.Time

	// Epoch 是准入时刻的重置纪元。完全重置会推进纪元，
	// 落库管道据此丢弃重置前准入、重置后才提交的滞留投票。
	Epoch uint64
}

// VoteQueue 是编排器向持久化管道投递已准入投票的边界。
// 由vote模块的处理器实现。
type VoteQueue interface {
	// Enqueue 将一条已准入投票放入有界队列，队满时返回ErrQueueFull
	Enqueue(v AdmittedVote) error
	// Depth 返回队列当前积压深度（观测用）
	Depth() int
	// DiscardPending 丢弃队列中所有尚未取出的投票，返回丢弃数量。
	// 完全重置时由编排器调用，防止旧纪元投票落入新日志。
	DiscardPending() int
}
