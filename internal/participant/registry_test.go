package participant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupIndexesAreIndependent(t *testing.T) {
	r := NewRegistry()
	r.MarkVoted("p1", "d1", "c1")

	assert.True(t, r.HasParticipantVoted("p1", "c1"))
	assert.True(t, r.HasDeviceVoted("d1", "c1"))

	// 两条索引各自独立：换设备的老参与者和换身份的老设备都会命中
	assert.False(t, r.HasParticipantVoted("p2", "c1"))
	assert.False(t, r.HasDeviceVoted("d2", "c1"))

	// 类别是复合键的一部分，换类别后两条轴都放行
	assert.False(t, r.HasParticipantVoted("p1", "c2"))
	assert.False(t, r.HasDeviceVoted("d1", "c2"))
}

func TestMarkVotedFlipsConnectedParticipant(t *testing.T) {
	r := NewRegistry()
	r.Join(&Participant{ID: "p1", ViewState: ViewVoting})

	r.MarkVoted("p1", "d1", "c1")

	p, ok := r.Get("p1")
	assert.True(t, ok)
	assert.True(t, p.HasVoted)
	assert.Equal(t, ViewVoted, p.ViewState)
}

func TestRoundTransitions(t *testing.T) {
	r := NewRegistry()
	r.Join(&Participant{ID: "p1"})
	r.Join(&Participant{ID: "p2"})
	r.MarkVoted("p1", "d1", "c1")

	r.BeginRound()
	for _, p := range r.Connected() {
		assert.False(t, p.HasVoted)
		assert.Equal(t, ViewVoting, p.ViewState)
	}

	// 新一轮只重置连接状态，去重索引仍然记得上一轮的投票
	assert.True(t, r.HasParticipantVoted("p1", "c1"))

	r.EndRound()
	for _, p := range r.Connected() {
		assert.Equal(t, ViewWaiting, p.ViewState)
	}

	r.MarkComplete()
	for _, p := range r.Connected() {
		assert.Equal(t, ViewSessionComplete, p.ViewState)
	}
}

func TestResetAllClearsIndexes(t *testing.T) {
	r := NewRegistry()
	r.Join(&Participant{ID: "p1", HasVoted: true, ViewState: ViewVoted})
	r.MarkVoted("p1", "d1", "c1")

	r.ResetAll()

	assert.False(t, r.HasParticipantVoted("p1", "c1"))
	assert.False(t, r.HasDeviceVoted("d1", "c1"))

	p, _ := r.Get("p1")
	assert.False(t, p.HasVoted)
}

func TestLeaveOnlyRemovesConnection(t *testing.T) {
	r := NewRegistry()
	r.Join(&Participant{ID: "p1"})
	r.MarkVoted("p1", "d1", "c1")

	r.Leave("p1")

	assert.Equal(t, 0, r.Count())
	// 断线销毁的是连接，不是投票事实
	assert.True(t, r.HasParticipantVoted("p1", "c1"))
}
