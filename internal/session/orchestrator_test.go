package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SumedhUnveil/live-voting-gritgags/internal/broadcast"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/category"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/participant"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/database"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/metadata"
	"github.com/SumedhUnveil/live-voting-gritgags/pkg/token"
)

const seedJSON = `[
	{"id": "c1", "title": "类别一", "description": "", "options": ["A", "B", "C"]},
	{"id": "c2", "title": "类别二", "description": "", "options": ["X", "Y"]},
	{"id": "c3", "title": "类别三", "description": "", "options": ["甲", "乙"]}
]`

// stubQueue 同步收集已准入投票，测试自行决定何时"落库"
type stubQueue struct {
	mu    sync.Mutex
	votes []AdmittedVote
	full  bool
}

func (q *stubQueue) Enqueue(v AdmittedVote) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return ErrQueueFull
	}
	q.votes = append(q.votes, v)
	return nil
}

func (q *stubQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.votes)
}

func (q *stubQueue) DiscardPending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.votes)
	q.votes = nil
	return n
}

func (q *stubQueue) drain() []AdmittedVote {
	q.mu.Lock()
	defer q.mu.Unlock()
	votes := q.votes
	q.votes = nil
	return votes
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *stubQueue) {
	t.Helper()

	// 测试不运行Redis，统一走降级路径
	database.UpdateStatus(false, "")
	token.GenerateSecretKey()

	dir := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "voting.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	database.DB = db

	require.NoError(t, metadata.PrimeDB())
	require.NoError(t, participant.PrimeDB())

	seedPath := filepath.Join(dir, "categories.json")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedJSON), 0o644))
	store, err := category.PrimeDB(seedPath)
	require.NoError(t, err)

	o := NewOrchestrator(store, participant.NewRegistry(), broadcast.NewHub(), seedPath)
	queue := &stubQueue{}
	o.AttachQueue(queue)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	o.Start(ctx)
	return o, queue
}

func TestSubmitVoteRejectsDuplicatesOnBothAxes(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	require.NoError(t, o.StartCategory("c1"))

	require.NoError(t, o.SubmitVote("p1", "d1", "c1", "A"))

	// 同一参与者换设备
	assert.ErrorIs(t, o.SubmitVote("p1", "d2", "c1", "B"), ErrDuplicateParticipantVote)
	// 同一设备换参与者（刷新页面换了身份）
	assert.ErrorIs(t, o.SubmitVote("p2", "d1", "c1", "B"), ErrDuplicateDeviceVote)

	// 全新的身份和设备不受影响
	require.NoError(t, o.SubmitVote("p2", "d2", "c1", "B"))
}

func TestSubmitVoteValidation(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	assert.ErrorIs(t, o.SubmitVote("p1", "d1", "c1", "A"), ErrNoActiveSession)

	require.NoError(t, o.StartCategory("c1"))

	assert.ErrorIs(t, o.SubmitVote("p1", "d1", "c2", "X"), ErrNoActiveSession)
	assert.ErrorIs(t, o.SubmitVote("p1", "", "c1", "A"), ErrMissingDeviceID)
	assert.ErrorIs(t, o.SubmitVote("p1", "d1", "c1", "Z"), ErrInvalidOption)
}

func TestConcurrentStartYieldsSingleActiveSession(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	ids := []string{"c1", "c2", "c3"}
	errs := make([]error, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = o.StartCategory(id)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, succeeded)

	view, err := o.CurrentState(true)
	require.NoError(t, err)
	require.NotNil(t, view.Session)
	assert.True(t, view.Session.Active)
}

func TestRoundTripTally(t *testing.T) {
	o, queue := newTestOrchestrator(t)
	require.NoError(t, o.StartCategory("c1"))

	options := []string{"A", "A", "B", "B", "C"}
	for i, option := range options {
		pid := string(rune('a' + i))
		require.NoError(t, o.SubmitVote("p-"+pid, "d-"+pid, "c1", option))
	}

	require.NoError(t, o.ApplyCommitted(queue.drain()))
	require.NoError(t, o.StopCategory("c1"))

	view, err := o.CategoryResults("c1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 2, "B": 2, "C": 1}, view.Results)
	assert.Equal(t, 5, view.VoteCount)
}

func TestRevealTieAndIdempotency(t *testing.T) {
	o, queue := newTestOrchestrator(t)
	require.NoError(t, o.StartCategory("c1"))

	// 未结束前揭晓是乱序命令
	assert.ErrorIs(t, o.RevealWinner("c1"), ErrNotCompleted)

	options := []string{"A", "A", "A", "B", "B", "B", "C"}
	for i, option := range options {
		pid := string(rune('a' + i))
		require.NoError(t, o.SubmitVote("p-"+pid, "d-"+pid, "c1", option))
	}
	require.NoError(t, o.ApplyCommitted(queue.drain()))
	require.NoError(t, o.StopCategory("c1"))

	require.NoError(t, o.RevealWinner("c1"))
	assert.ErrorIs(t, o.RevealWinner("c1"), ErrAlreadyRevealed)

	view, err := o.CategoryResults("c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, view.Winner)
	assert.Equal(t, 7, view.VoteCount)
}

func TestQueueFullLeavesNoStateBehind(t *testing.T) {
	o, queue := newTestOrchestrator(t)
	require.NoError(t, o.StartCategory("c1"))

	queue.full = true
	assert.ErrorIs(t, o.SubmitVote("p1", "d1", "c1", "A"), ErrQueueFull)

	// 背压拒绝不得留下任何去重痕迹，去压后同一身份可以重投
	queue.full = false
	require.NoError(t, o.SubmitVote("p1", "d1", "c1", "A"))
}

func TestJoinReconnectRestoresVotedState(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	first, err := o.Join("", "小张")
	require.NoError(t, err)
	assert.Equal(t, participant.ViewWaiting, first.ViewState)

	require.NoError(t, o.StartCategory("c1"))
	require.NoError(t, o.SubmitVote(first.ParticipantID, "d1", "c1", "A"))
	require.NoError(t, o.Leave(first.ParticipantID))

	// 带着原令牌重连，不能再次被询问投票
	second, err := o.Join(first.Token, "小张")
	require.NoError(t, err)
	assert.Equal(t, first.ParticipantID, second.ParticipantID)
	assert.True(t, second.HasVoted)
	assert.Equal(t, participant.ViewVoted, second.ViewState)
}

func TestParticipantProjectionHidesTallies(t *testing.T) {
	o, queue := newTestOrchestrator(t)
	require.NoError(t, o.StartCategory("c1"))
	require.NoError(t, o.SubmitVote("p1", "d1", "c1", "A"))
	require.NoError(t, o.ApplyCommitted(queue.drain()))

	adminView, err := o.CurrentState(true)
	require.NoError(t, err)
	require.NotNil(t, adminView.Session)
	assert.Equal(t, map[string]int{"A": 1}, adminView.Session.Results)

	participantView, err := o.CurrentState(false)
	require.NoError(t, err)
	require.NotNil(t, participantView.Session)
	assert.Empty(t, participantView.Session.Results)
	for _, cat := range participantView.Categories {
		assert.Empty(t, cat.Results)
	}

	// 揭晓后结果对参与端公开
	require.NoError(t, o.StopCategory("c1"))
	require.NoError(t, o.RevealWinner("c1"))

	participantView, err = o.CurrentState(false)
	require.NoError(t, err)
	for _, cat := range participantView.Categories {
		if cat.ID == "c1" {
			assert.Equal(t, map[string]int{"A": 1}, cat.Results)
			assert.Equal(t, []string{"A"}, cat.Winner)
		}
	}
}

func TestEventCompleteAfterAllRevealed(t *testing.T) {
	o, queue := newTestOrchestrator(t)

	for _, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, o.StartCategory(id))
		require.NoError(t, o.StopCategory(id))
		require.NoError(t, o.RevealWinner(id))
	}
	require.NoError(t, o.ApplyCommitted(queue.drain()))

	view, err := o.CurrentState(false)
	require.NoError(t, err)
	assert.True(t, view.EventComplete)

	result, err := o.Join("", "迟到的人")
	require.NoError(t, err)
	assert.Equal(t, participant.ViewSessionComplete, result.ViewState)
}

func TestResetRestoresInitialState(t *testing.T) {
	o, queue := newTestOrchestrator(t)

	require.NoError(t, o.StartCategory("c1"))
	require.NoError(t, o.SubmitVote("p1", "d1", "c1", "A"))
	require.NoError(t, o.ApplyCommitted(queue.drain()))
	require.NoError(t, o.StopCategory("c1"))
	require.NoError(t, o.RevealWinner("c1"))

	require.NoError(t, o.Reset())

	view, err := o.CurrentState(true)
	require.NoError(t, err)
	assert.Nil(t, view.Session)
	assert.False(t, view.EventComplete)
	require.Len(t, view.Categories, 3)
	for _, cat := range view.Categories {
		assert.Equal(t, string(category.StatusNotStarted), cat.Status)
		assert.Zero(t, cat.VoteCount)
		assert.Empty(t, cat.Results)
		assert.False(t, cat.Revealed)
	}

	// 重置后同一类别可以重新走完整生命周期，原有去重索引已清空
	require.NoError(t, o.StartCategory("c1"))
	require.NoError(t, o.SubmitVote("p1", "d1", "c1", "A"))
}

func TestResetDropsInFlightVotes(t *testing.T) {
	o, queue := newTestOrchestrator(t)

	require.NoError(t, o.StartCategory("c1"))
	require.NoError(t, o.SubmitVote("p1", "d1", "c1", "A"))

	// 模拟落库管道：批次在重置前取出，重置后才提交
	batch := queue.drain()
	require.Len(t, batch, 1)

	require.NoError(t, o.Reset())
	require.NoError(t, o.ApplyCommitted(batch))

	// 重置后的类别不应带着任何残留计票
	results, err := o.CategoryResults("c1")
	require.NoError(t, err)
	assert.Zero(t, results.VoteCount)
	assert.Empty(t, results.Results)

	// 旧纪元投票也不应阻止同一参与者在重置后重新投票
	require.NoError(t, o.StartCategory("c1"))
	require.NoError(t, o.SubmitVote("p1", "d1", "c1", "B"))
	require.NoError(t, o.ApplyCommitted(queue.drain()))
	results, err = o.CategoryResults("c1")
	require.NoError(t, err)
	assert.Equal(t, 1, results.VoteCount)
	assert.Equal(t, map[string]int{"B": 1}, results.Results)
}

func TestResetPurgesQueuedVotes(t *testing.T) {
	o, queue := newTestOrchestrator(t)

	require.NoError(t, o.StartCategory("c1"))
	require.NoError(t, o.SubmitVote("p1", "d1", "c1", "A"))
	require.NoError(t, o.SubmitVote("p2", "d2", "c1", "B"))
	require.Equal(t, 2, queue.Depth())

	// 重置会同步清空待落库队列
	require.NoError(t, o.Reset())
	assert.Zero(t, queue.Depth())
}

func TestStateQueryIsIdempotent(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	require.NoError(t, o.StartCategory("c1"))

	first, err := o.CurrentState(false)
	require.NoError(t, err)
	second, err := o.CurrentState(false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
