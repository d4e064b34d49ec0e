package broadcast

import (
	"sync"
	"time"
)

// SystemStats 维护进程级的观测计数器。
// 它只服务于观测，任何业务决策都不依赖这里的数值。
type SystemStats struct {
	mu sync.Mutex

	currentConnections int
	peakConnections    int
	totalConnections   int
	queueDepth         int
	lastVoteAt         time.Time
}

// GlobalStats 是全局的统计实例
var GlobalStats = &SystemStats{}

// StatsSnapshot 是对外暴露的统计快照
type StatsSnapshot struct {
	CurrentConnections int        `json:"currentConnections"`
	PeakConnections    int        `json:"peakConnections"`
	TotalConnections   int        `json:"totalConnections"`
	QueueDepth         int        `json:"queueDepth"`
	LastVoteAt         *time.Time `json:"lastVoteAt,omitempty"`
}

// ConnectionOpened 记录一个新连接
func (s *SystemStats) ConnectionOpened() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentConnections++
	s.totalConnections++
	if s.currentConnections > s.peakConnections {
		s.peakConnections = s.currentConnections
	}
}

// ConnectionClosed 记录一个连接断开
func (s *SystemStats) ConnectionClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentConnections > 0 {
		s.currentConnections--
	}
}

// SetQueueDepth 更新投票队列的当前深度
func (s *SystemStats) SetQueueDepth(depth int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queueDepth = depth
}

// MarkVote 记录最近一次投票被接受的时间
func (s *SystemStats) MarkVote() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastVoteAt = time.Now()
}

// Snapshot 返回当前统计的一份拷贝
func (s *SystemStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := StatsSnapshot{
		CurrentConnections: s.currentConnections,
		PeakConnections:    s.peakConnections,
		TotalConnections:   s.totalConnections,
		QueueDepth:         s.queueDepth,
	}
	if !s.lastVoteAt.IsZero() {
		t := s.lastVoteAt
		snapshot.LastVoteAt = &t
	}
	return snapshot
}

// Reset 清零统计（仅在完全重置时使用，连接计数保留）
func (s *SystemStats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queueDepth = 0
	s.lastVoteAt = time.Time{}
}
