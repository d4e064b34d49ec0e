package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvOne(t *testing.T, sub *Subscriber) Event {
	t.Helper()
	select {
	case e := <-sub.C():
		return e
	default:
		t.Fatal("期望有一个待投递事件")
		return Event{}
	}
}

func TestBroadcastReachesOnlyTargetAudience(t *testing.T) {
	h := NewHub()
	admin := h.Subscribe(AudienceAdmin)
	part := h.Subscribe(AudienceParticipant)
	defer h.Unsubscribe(admin)
	defer h.Unsubscribe(part)

	h.Broadcast(AudienceAdmin, Event{Type: EventTallyUpdate})

	e := recvOne(t, admin)
	assert.Equal(t, EventTallyUpdate, e.Type)

	select {
	case <-part.C():
		t.Fatal("参与端不应收到tally-update")
	default:
	}
}

func TestBroadcastAllReachesBothAudiences(t *testing.T) {
	h := NewHub()
	admin := h.Subscribe(AudienceAdmin)
	part := h.Subscribe(AudienceParticipant)
	defer h.Unsubscribe(admin)
	defer h.Unsubscribe(part)

	h.BroadcastAll(Event{Type: EventWinnerRevealed})

	assert.Equal(t, EventWinnerRevealed, recvOne(t, admin).Type)
	assert.Equal(t, EventWinnerRevealed, recvOne(t, part).Type)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe(AudienceParticipant)
	defer h.Unsubscribe(sub)

	// 填满积压后继续广播不得阻塞
	for i := 0; i < subscriberBuffer+10; i++ {
		h.Broadcast(AudienceParticipant, Event{Type: EventParticipantCount})
	}

	received := 0
	for {
		select {
		case <-sub.C():
			received++
			continue
		default:
		}
		break
	}
	assert.Equal(t, subscriberBuffer, received)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe(AudienceAdmin)
	require.Equal(t, 1, h.SubscriberCount(AudienceAdmin))

	h.Unsubscribe(sub)
	assert.Equal(t, 0, h.SubscriberCount(AudienceAdmin))

	// 二次注销不触发panic也不影响计数
	h.Unsubscribe(sub)
	assert.Equal(t, 0, h.SubscriberCount(AudienceAdmin))
}

func TestStatsTrackConnections(t *testing.T) {
	s := &SystemStats{}

	s.ConnectionOpened()
	s.ConnectionOpened()
	s.ConnectionClosed()

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.CurrentConnections)
	assert.Equal(t, 2, snap.PeakConnections)
	assert.Equal(t, 2, snap.TotalConnections)
	assert.Nil(t, snap.LastVoteAt)

	s.MarkVote()
	snap = s.Snapshot()
	require.NotNil(t, snap.LastVoteAt)

	s.Reset()
	snap = s.Snapshot()
	assert.Nil(t, snap.LastVoteAt)
	assert.Equal(t, 0, snap.QueueDepth)
	// 连接计数反映真实连接，重置不清零
	assert.Equal(t, 1, snap.CurrentConnections)
}
