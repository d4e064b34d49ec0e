package vote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/config"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/session"
)

func newTestProcessor(capacity, batchSize int) *Processor {
	cfg := config.QueueConfig{Capacity: capacity, BatchSize: batchSize, DrainDelayMs: 0}
	return NewProcessor(cfg, nil)
}

func TestEnqueueBackpressure(t *testing.T) {
	p := newTestProcessor(2, 10)

	require.NoError(t, p.Enqueue(session.AdmittedVote{CategoryID: "c1", Option: "A"}))
	require.NoError(t, p.Enqueue(session.AdmittedVote{CategoryID: "c1", Option: "B"}))
	assert.Equal(t, 2, p.Depth())

	// 队满是对调用方可见的信号，不是静默丢弃
	assert.ErrorIs(t, p.Enqueue(session.AdmittedVote{CategoryID: "c1", Option: "C"}), session.ErrQueueFull)
	assert.Equal(t, 2, p.Depth())
}

func TestCollectBatchHonorsBatchSize(t *testing.T) {
	p := newTestProcessor(100, 3)

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Enqueue(session.AdmittedVote{CategoryID: "c1", Option: "A"}))
	}

	first := <-p.queue
	batch := p.collectBatch(first)
	assert.Len(t, batch, 3)
	assert.Equal(t, 2, p.Depth())

	// 队列见底时批次不足额也立即返回，不阻塞等待
	next := <-p.queue
	batch = p.collectBatch(next)
	assert.Len(t, batch, 2)
	assert.Equal(t, 0, p.Depth())
}

func TestDiscardPendingEmptiesQueue(t *testing.T) {
	p := newTestProcessor(10, 10)

	for i := 0; i < 4; i++ {
		require.NoError(t, p.Enqueue(session.AdmittedVote{CategoryID: "c1", Option: "A"}))
	}

	assert.Equal(t, 4, p.DiscardPending())
	assert.Equal(t, 0, p.Depth())

	// 空队列上重复调用是无害的
	assert.Equal(t, 0, p.DiscardPending())
}

func TestRecordFromAdmittedVote(t *testing.T) {
	p := newTestProcessor(10, 10)
	v := session.AdmittedVote{
		CategoryID:    "c1",
		Option:        "A",
		ParticipantID: "p1",
		DeviceID:      "d1",
	}
	require.NoError(t, p.Enqueue(v))

	got := <-p.queue
	assert.Equal(t, v.CategoryID, got.CategoryID)
	assert.Equal(t, v.Option, got.Option)
	assert.Equal(t, v.ParticipantID, got.ParticipantID)
	assert.Equal(t, v.DeviceID, got.DeviceID)
}
