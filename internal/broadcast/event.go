package broadcast

// Audience 标识一次广播面向的受众组。
// 全系统只有两个受众组：主持端和参与端，同一状态变更向两组
// 各投递一次、各自携带自己的投影。
type Audience string

const (
	// AudienceAdmin 是主持端受众，可以看到实时计票
	AudienceAdmin Audience = "admin"
	// AudienceParticipant 是参与端受众，投影中的计票永远被剥除
	AudienceParticipant Audience = "participant"
)

// Event 是广播信道上的统一消息信封
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// 所有对外广播的事件类型
const (
	// EventSessionStarted 在主持人开启一个类别时发出
	EventSessionStarted = "session-started"
	// EventSessionStopped 在主持人结束当前类别时发出
	EventSessionStopped = "session-stopped"
	// EventWinnerRevealed 是唯一一个向参与端携带完整计票的事件
	EventWinnerRevealed = "winner-revealed"
	// EventTallyUpdate 只发往主持端，随批量落库推进
	EventTallyUpdate = "tally-update"
	// EventParticipantCount 在参与者加入或离开时发往两端
	EventParticipantCount = "participant-count"
	// EventComplete 在最后一个类别揭晓后发出，客户端据此进入收尾状态
	EventComplete = "event-complete"
	// EventReset 在主持人执行完全重置后发出，客户端必须重新同步
	EventReset = "event-reset"
)
