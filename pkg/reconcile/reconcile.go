// Package reconcile 实现参与者客户端的状态恢复层。
// 它以本地事实为先：视图状态永远先由本地投票历史推导，
// 服务端事件只提供"当前在投哪个类别"这类全局事实。
// 传输层可能重放、乱序或丢失事件，这一层必须对此免疫。
package reconcile

import (
	"time"
)

// ViewState 是参与者界面的四种视图状态
type ViewState string

const (
	ViewWaiting         ViewState = "waiting"
	ViewVoting          ViewState = "voting"
	ViewVoted           ViewState = "voted"
	ViewSessionComplete ViewState = "session-complete"
)

// 服务端事件流中与视图推导相关的事件类型
const (
	EventSessionStarted = "session-started"
	EventSessionStopped = "session-stopped"
	EventWinnerRevealed = "winner-revealed"
	EventComplete       = "event-complete"
	EventReset          = "event-reset"
)

// Event 是从服务端事件流解码出的最小事实集合。
// 未知的事件类型会被安全地忽略。
type Event struct {
	Type       string `json:"type"`
	CategoryID string `json:"categoryId"`
}

// Snapshot 是重连时通过状态查询获得的点时刻快照
type Snapshot struct {
	ActiveCategoryID string `json:"activeCategoryId"`
	Complete         bool   `json:"complete"`
}

// VoteEntry 是本地投票历史中的一条记录
type VoteEntry struct {
	CategoryID string    `json:"categoryId"`
	Option     string    `json:"option"`
	CastAt     time.Time `json:"castAt"`
}

// History 是单个参与者的本地持久化记录。
// 以参与者标识为键，跨断线、刷新存活。
type History struct {
	ParticipantID string            `json:"participantId"`
	Votes         map[string]string `json:"votes"`
	Entries       []VoteEntry       `json:"entries"`
}

// Store 抽象本地历史的持久化介质
type Store interface {
	Load(participantID string) (*History, error)
	Save(h *History) error
}

// Reconciler 是驱动视图状态的小型本地状态机。
// 非并发安全：预期由客户端的单一事件处理循环持有。
type Reconciler struct {
	store   Store
	history *History

	activeCategory string
	complete       bool
	view           ViewState
}

// New 加载participantID的本地历史并构造一个处于waiting状态的状态机
func New(store Store, participantID string) (*Reconciler, error) {
	h, err := store.Load(participantID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		h = &History{ParticipantID: participantID, Votes: map[string]string{}}
	}
	if h.Votes == nil {
		h.Votes = map[string]string{}
	}
	return &Reconciler{store: store, history: h, view: ViewWaiting}, nil
}

// View 返回当前推导出的视图状态
func (r *Reconciler) View() ViewState {
	return r.view
}

// HasVoted 报告本地历史中是否存在对该类别的投票
func (r *Reconciler) HasVoted(categoryID string) bool {
	_, ok := r.history.Votes[categoryID]
	return ok
}

// VotedOption 返回本地历史中该类别所投的候选项
func (r *Reconciler) VotedOption(categoryID string) (string, bool) {
	option, ok := r.history.Votes[categoryID]
	return option, ok
}

// ApplyEvent 消化一条服务端事件并返回重新推导的视图状态。
// 事件是幂等的：重复投递同一事件不会改变结果。
func (r *Reconciler) ApplyEvent(e Event) (ViewState, error) {
	switch e.Type {
	case EventSessionStarted:
		r.activeCategory = e.CategoryID
	case EventSessionStopped, EventWinnerRevealed:
		if e.CategoryID == r.activeCategory {
			r.activeCategory = ""
		}
	case EventComplete:
		r.complete = true
	case EventReset:
		// 服务端已完全重置，本地历史随之作废
		r.activeCategory = ""
		r.complete = false
		r.history.Votes = map[string]string{}
		r.history.Entries = nil
		if err := r.store.Save(r.history); err != nil {
			return r.view, err
		}
	}
	r.recompute()
	return r.view, nil
}

// RecordVote 在服务端确认到达之前乐观地记录一票。
// 这保证提交与确认之间不会闪现投票表单。
func (r *Reconciler) RecordVote(categoryID, option string) error {
	if _, ok := r.history.Votes[categoryID]; ok {
		return nil
	}
	r.history.Votes[categoryID] = option
	r.history.Entries = append(r.history.Entries, VoteEntry{
		CategoryID: categoryID,
		Option:     option,
		CastAt:     time.Now(),
	})
	if err := r.store.Save(r.history); err != nil {
		return err
	}
	r.recompute()
	return nil
}

// Resync 用一次全量状态查询的结果覆盖全局事实。
// 每次重连都必须调用：不能假设断线期间的事件没有丢失。
func (r *Reconciler) Resync(s Snapshot) ViewState {
	r.activeCategory = s.ActiveCategoryID
	r.complete = s.Complete
	r.recompute()
	return r.view
}

// recompute 按固定优先级重新推导视图状态：
// 活动已整体结束 > 本地历史已投当前类别 > 当前类别可投 > 等待。
// 本地历史优先于服务端信号，重连的客户端绝不会为已投过的
// 类别再次渲染投票表单。
func (r *Reconciler) recompute() {
	switch {
	case r.complete:
		r.view = ViewSessionComplete
	case r.activeCategory != "" && r.HasVoted(r.activeCategory):
		r.view = ViewVoted
	case r.activeCategory != "":
		r.view = ViewVoting
	default:
		r.view = ViewWaiting
	}
}
