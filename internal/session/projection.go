package session

import (
	"time"

	"github.com/SumedhUnveil/live-voting-gritgags/internal/broadcast"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/category"
)

// 双受众广播的实现方式：一次内部状态变更 + 两个纯投影函数。
// 两个受众组看到的是同一份数据的不同投影，而不是两份独立维护的拷贝。

// SessionView 是会话对外的投影
type SessionView struct {
	ID         string         `json:"id"`
	CategoryID string         `json:"categoryId"`
	Title      string         `json:"title"`
	Active     bool           `json:"active"`
	Phase      Phase          `json:"phase"`
	Options    []string       `json:"options"`
	Results    map[string]int `json:"results"`
	TotalVotes int            `json:"totalVotes"`
	StartedAt  time.Time      `json:"startedAt"`
	EndedAt    *time.Time     `json:"endedAt,omitempty"`
}

// CategoryView 是类别对外的投影
type CategoryView struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Options     []string       `json:"options"`
	Status      string         `json:"status"`
	VoteCount   int            `json:"voteCount"`
	Results     map[string]int `json:"results"`
	Revealed    bool           `json:"revealed"`
	Winner      []string       `json:"winner,omitempty"`
}

// StateView 是"当前完整状态"查询的投影，重连的客户端用它做全量同步。
// 相同状态下的两次查询产生逐字节一致的结果。
type StateView struct {
	Session          *SessionView   `json:"session,omitempty"`
	Categories       []CategoryView `json:"categories"`
	ParticipantCount int            `json:"participantCount"`
	EventComplete    bool           `json:"eventComplete"`
}

// projectSession 生成会话的受众投影。
// 参与端投影的计票永远被剥除为空映射——参与者在揭晓之前
// 不允许观察到任何实时票数。
func projectSession(s *Session, title string, admin bool) *SessionView {
	if s == nil {
		return nil
	}

	view := &SessionView{
		ID:         s.ID,
		CategoryID: s.CategoryID,
		Title:      title,
		Active:     s.Active,
		Phase:      s.Phase,
		Options:    append([]string(nil), s.Options...),
		Results:    map[string]int{},
		StartedAt:  s.StartedAt,
		EndedAt:    s.EndedAt,
	}
	if admin {
		view.Results = cloneResults(s.Results)
		view.TotalVotes = s.TotalVotes()
	}
	return view
}

// projectCategory 生成类别的受众投影。
// 已揭晓类别的结果对两端都是公开的（揭晓正是唯一的公开时刻），
// 其余状态下参与端一律拿到空映射。
func projectCategory(c *category.Category, admin bool) CategoryView {
	view := CategoryView{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Options:     append([]string(nil), c.Options...),
		Status:      string(c.Status),
		Results:     map[string]int{},
		Revealed:    c.Revealed,
	}
	if admin || c.Status == category.StatusRevealed {
		view.Results = c.CloneResults()
		view.VoteCount = c.VoteCount
	}
	if c.Status == category.StatusRevealed {
		view.Winner = c.Winners()
	}
	return view
}

// cloneResults 拷贝一份计票映射，避免投影持有对权威数据的引用
func cloneResults(results map[string]int) map[string]int {
	cloned := make(map[string]int, len(results))
	for option, count := range results {
		cloned[option] = count
	}
	return cloned
}

// sessionEvent 为一个会话生命周期事件生成单受众投影的事件体
func sessionEvent(eventType string, s *Session, title string, admin bool) broadcast.Event {
	return broadcast.Event{
		Type:    eventType,
		Payload: projectSession(s, title, admin),
	}
}

// winnerRevealedPayload 是winner-revealed事件的载荷，两端收到完全一致的数据
type winnerRevealedPayload struct {
	CategoryID string         `json:"categoryId"`
	Title      string         `json:"title"`
	Results    map[string]int `json:"results"`
	Winner     []string       `json:"winner"`
	TotalVotes int            `json:"totalVotes"`
}

// tallyUpdatePayload 是tally-update事件的载荷，只发往主持端
type tallyUpdatePayload struct {
	CategoryID string         `json:"categoryId"`
	Results    map[string]int `json:"results"`
	TotalVotes int            `json:"totalVotes"`
}

// participantCountPayload 是participant-count事件的载荷
type participantCountPayload struct {
	Count int `json:"count"`
}
