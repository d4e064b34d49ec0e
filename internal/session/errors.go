package session

import "errors"

// 所有准入和生命周期错误都在任何状态变更之前同步返回给调用方，
// 被拒绝的命令绝不留下部分生效的状态。
var (
	// ErrInvalidTransition 表示生命周期命令在错误的类别/会话状态下被发出
	ErrInvalidTransition = errors.New("非法的状态转换")

	// ErrNoActiveSession 表示在没有活跃会话时提交了投票或结束命令
	ErrNoActiveSession = errors.New("当前没有活跃的投票轮")

	// ErrNotCompleted 表示对尚未结束的类别发出了揭晓命令
	ErrNotCompleted = errors.New("类别尚未结束，无法揭晓")

	// ErrAlreadyRevealed 表示类别结果已经揭晓过
	ErrAlreadyRevealed = errors.New("类别结果已经揭晓")

	// ErrMissingDeviceID 表示客户端未携带设备标识，属于协议违例
	ErrMissingDeviceID = errors.New("缺少设备标识")

	// ErrDuplicateParticipantVote 表示该参与者已为此类别投过票
	ErrDuplicateParticipantVote = errors.New("该参与者已为此类别投过票")

	// ErrDuplicateDeviceVote 表示该设备已为此类别投过票
	ErrDuplicateDeviceVote = errors.New("该设备已为此类别投过票")

	// ErrInvalidOption 表示所投候选项不在本轮快照的候选列表中
	ErrInvalidOption = errors.New("候选项不在本轮候选列表中")

	// ErrCategoryNotFound 表示指定的类别不存在
	ErrCategoryNotFound = errors.New("类别不存在")

	// ErrQueueFull 表示投票队列已满，这是对调用方可见的背压信号
	ErrQueueFull = errors.New("投票队列已满，请稍后重试")

	// ErrStopped 表示编排器已停机，不再接受任何操作
	ErrStopped = errors.New("会话编排器已停机")

	// ErrInvalidIdentity 表示身份令牌缺失或非法
	ErrInvalidIdentity = errors.New("身份令牌非法")
)

// IsDuplicateVote 判断一个错误是否属于重复投票（任一身份轴）
func IsDuplicateVote(err error) bool {
	return errors.Is(err, ErrDuplicateParticipantVote) || errors.Is(err, ErrDuplicateDeviceVote)
}
