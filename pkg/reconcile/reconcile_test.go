package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore 是测试用的内存Store
type memStore struct {
	saved map[string]*History
}

func newMemStore() *memStore {
	return &memStore{saved: map[string]*History{}}
}

func (s *memStore) Load(participantID string) (*History, error) {
	return s.saved[participantID], nil
}

func (s *memStore) Save(h *History) error {
	s.saved[h.ParticipantID] = h
	return nil
}

func TestReconnectWithLocalHistoryResolvesToVoted(t *testing.T) {
	store := newMemStore()

	first, err := New(store, "p1")
	require.NoError(t, err)
	require.NoError(t, first.RecordVote("catX", "Alice"))

	// 模拟刷新：用同一份本地历史重建状态机
	second, err := New(store, "p1")
	require.NoError(t, err)

	// 服务端的round-started先于投票核对到达，本地事实必须赢
	view, err := second.ApplyEvent(Event{Type: EventSessionStarted, CategoryID: "catX"})
	require.NoError(t, err)
	assert.Equal(t, ViewVoted, view)

	option, ok := second.VotedOption("catX")
	assert.True(t, ok)
	assert.Equal(t, "Alice", option)
}

func TestViewStatePriorityOrder(t *testing.T) {
	r, err := New(newMemStore(), "p1")
	require.NoError(t, err)

	assert.Equal(t, ViewWaiting, r.View())

	view, err := r.ApplyEvent(Event{Type: EventSessionStarted, CategoryID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, ViewVoting, view)

	require.NoError(t, r.RecordVote("c1", "A"))
	assert.Equal(t, ViewVoted, r.View())

	view, err = r.ApplyEvent(Event{Type: EventSessionStopped, CategoryID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, ViewWaiting, view)

	// 整体收尾优先于一切其他信号
	view, err = r.ApplyEvent(Event{Type: EventComplete})
	require.NoError(t, err)
	assert.Equal(t, ViewSessionComplete, view)
	view, err = r.ApplyEvent(Event{Type: EventSessionStarted, CategoryID: "c2"})
	require.NoError(t, err)
	assert.Equal(t, ViewSessionComplete, view)
}

func TestApplyEventIsIdempotent(t *testing.T) {
	r, err := New(newMemStore(), "p1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		view, err := r.ApplyEvent(Event{Type: EventSessionStarted, CategoryID: "c1"})
		require.NoError(t, err)
		assert.Equal(t, ViewVoting, view)
	}

	require.NoError(t, r.RecordVote("c1", "A"))
	// 重放round-started不会把已投状态打回投票表单
	view, err := r.ApplyEvent(Event{Type: EventSessionStarted, CategoryID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, ViewVoted, view)
}

func TestRecordVoteIsOptimisticAndFirstWriteWins(t *testing.T) {
	store := newMemStore()
	r, err := New(store, "p1")
	require.NoError(t, err)

	require.NoError(t, r.RecordVote("c1", "A"))
	// 确认事件重放或重复点击不改写第一笔记录
	require.NoError(t, r.RecordVote("c1", "B"))

	option, _ := r.VotedOption("c1")
	assert.Equal(t, "A", option)
	assert.Len(t, store.saved["p1"].Entries, 1)
}

func TestResyncOverridesGlobalFacts(t *testing.T) {
	r, err := New(newMemStore(), "p1")
	require.NoError(t, err)

	// 断线期间错过了round-started，重连后全量同步补上
	view := r.Resync(Snapshot{ActiveCategoryID: "c2"})
	assert.Equal(t, ViewVoting, view)

	view = r.Resync(Snapshot{Complete: true})
	assert.Equal(t, ViewSessionComplete, view)
}

func TestResetEventClearsLocalHistory(t *testing.T) {
	store := newMemStore()
	r, err := New(store, "p1")
	require.NoError(t, err)
	require.NoError(t, r.RecordVote("c1", "A"))

	view, err := r.ApplyEvent(Event{Type: EventReset})
	require.NoError(t, err)
	assert.Equal(t, ViewWaiting, view)
	assert.False(t, r.HasVoted("c1"))
	assert.Empty(t, store.saved["p1"].Votes)
}

func TestUnknownEventIsIgnored(t *testing.T) {
	r, err := New(newMemStore(), "p1")
	require.NoError(t, err)

	view, err := r.ApplyEvent(Event{Type: "participant-count"})
	require.NoError(t, err)
	assert.Equal(t, ViewWaiting, view)
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	r, err := New(store, "p1")
	require.NoError(t, err)
	require.NoError(t, r.RecordVote("c1", "A"))

	reloaded, err := store.Load("p1")
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, "A", reloaded.Votes["c1"])

	// 不存在的参与者返回nil而不是错误
	missing, err := store.Load("nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
