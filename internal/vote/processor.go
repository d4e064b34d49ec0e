package vote

import (
	"fmt"
	"time"

	"github.com/SumedhUnveil/live-voting-gritgags/internal/broadcast"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/category"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/participant"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/config"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/database"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/metadata"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/session"
	"github.com/SumedhUnveil/live-voting-gritgags/pkg/lifecycle"
)

// Processor 是投票持久化管道：一个单一写入者，从有界队列按批
// 取出已准入投票并落库。排空循环由唯一的处理器Goroutine独占，
// 结构上保证绝不会被并发重入。
//
// 落库失败只会记录日志并在下一个排空周期重试，已准入的内存状态
// （去重索引、工作计票）绝不回滚——现场活动以内存为权威，
// SQLite日志服务于事后审计。
type Processor struct {
	queue      chan session.AdmittedVote
	batchSize  int
	drainDelay time.Duration

	orch *session.Orchestrator
}

// NewProcessor 按配置构造处理器
func NewProcessor(cfg config.QueueConfig, orch *session.Orchestrator) *Processor {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 10000
	}
	return &Processor{
		queue:      make(chan session.AdmittedVote, capacity),
		batchSize:  batchSize,
		drainDelay: cfg.DrainDelay(),
		orch:       orch,
	}
}

// Enqueue 实现 session.VoteQueue。
// 队列是有界的：队满直接向准入路径返回ErrQueueFull，
// 让背压对提交方可见，而不是靠盲目延迟吸收。
func (p *Processor) Enqueue(v session.AdmittedVote) error {
	select {
	case p.queue <- v:
		broadcast.GlobalStats.SetQueueDepth(len(p.queue))
		return nil
	default:
		fmt.Println("警告: 投票队列已满，已向提交方返回背压信号。")
		return session.ErrQueueFull
	}
}

// Depth 实现 session.VoteQueue
func (p *Processor) Depth() int {
	return len(p.queue)
}

// DiscardPending 实现 session.VoteQueue。
// 非阻塞地清空队列中全部积压投票，在完全重置时由编排器调用。
func (p *Processor) DiscardPending() int {
	discarded := 0
	for {
		select {
		case <-p.queue:
			discarded++
		default:
			broadcast.GlobalStats.SetQueueDepth(0)
			return discarded
		}
	}
}

// run 是处理器的主循环，响应两阶段停机：
// 收到优雅停机信号后尽力排空队列，强制停机信号会中断排空。
func (p *Processor) run(gracefulHandle, forcefulHandle *lifecycle.Handle) {
	defer gracefulHandle.Close()
	defer forcefulHandle.Close()
	fmt.Println("投票处理器 (Vote Processor) 已启动。")

	for {
		select {
		case <-gracefulHandle.Done():
			fmt.Println("Vote Processor: 收到优雅停机信号，正在排空剩余投票...")
			p.drainRemaining(forcefulHandle)
			fmt.Println("Vote Processor: 优雅停机完成，主循环退出。")
			return
		case first := <-p.queue:
			batch := p.collectBatch(first)
			p.commitWithRetry(gracefulHandle, batch)
			broadcast.GlobalStats.SetQueueDepth(len(p.queue))

			// 批次之间短暂让步，避免持续满载时排空循环饿死其他任务
			if len(p.queue) > 0 && p.drainDelay > 0 {
				_ = gracefulHandle.Sleep(p.drainDelay)
			}
		}
	}
}

// collectBatch 以first为首条，非阻塞地凑满一个批次
func (p *Processor) collectBatch(first session.AdmittedVote) []session.AdmittedVote {
	batch := make([]session.AdmittedVote, 0, p.batchSize)
	batch = append(batch, first)
	for len(batch) < p.batchSize {
		select {
		case v := <-p.queue:
			batch = append(batch, v)
		default:
			return batch
		}
	}
	return batch
}

// commitWithRetry 带指数退避地提交一个批次，直到成功或停机。
// 整个批次作为一个整体重试，不会部分提交后丢弃剩余。
func (p *Processor) commitWithRetry(handle *lifecycle.Handle, batch []session.AdmittedVote) {
	initialDelay := 8 * time.Millisecond
	maxDelay := 2 * time.Second

	delay := initialDelay
	for {
		err := p.commitBatch(batch)
		if err == nil {
			return
		}
		fmt.Printf("错误: 批量落库失败 (%d 票)，将在 %v 后重试: %v\n", len(batch), delay, err)
		if sleepErr := handle.Sleep(delay); sleepErr != nil {
			// 停机信号中断了重试，批次由排空逻辑接手或放弃
			fmt.Printf("Vote Processor: 重试被停机信号中断，放弃 %d 票的落库（内存计票不受影响）。\n", len(batch))
			return
		}
		if delay < maxDelay {
			delay *= 2
		}
	}
}

// commitBatch 提交单个批次：SQLite落库、检查点推进、Redis镜像、
// 最后通知编排器推进工作计票并向主持端广播。
//
// 批次带着准入时的重置纪元。纪元过期的投票在落库前就被剔除，
// 落库期间恰好撞上重置的批次会被补偿删除，保证重置后的日志
// 不含任何旧纪元记录。
func (p *Processor) commitBatch(batch []session.AdmittedVote) error {
	epoch := p.orch.Epoch()
	fresh := batch[:0:0]
	for _, v := range batch {
		if v.Epoch == epoch {
			fresh = append(fresh, v)
		}
	}
	if len(fresh) < len(batch) {
		fmt.Printf("Vote Processor: 批次中有 %d 票在重置前准入，已丢弃。\n", len(batch)-len(fresh))
	}
	if len(fresh) == 0 {
		return nil
	}
	batch = fresh

	records := make([]Record, len(batch))
	for i, v := range batch {
		records[i] = Record{
			CategoryID:    v.CategoryID,
			Option:        v.Option,
			ParticipantID: v.ParticipantID,
			DeviceID:      v.DeviceID,
			CastAt:        v.CastAt,
		}
	}

	// 1. 追加写入持久化日志
	if err := database.DB.Create(&records).Error; err != nil {
		return fmt.Errorf("写入投票日志失败: %w", err)
	}

	// 落库与重置存在竞争窗口：写入期间纪元推进说明这些记录
	// 落进了重置后的新日志，立即物理删除并放弃整个批次
	if p.orch.Epoch() != epoch {
		ids := make([]uint, len(records))
		for i, r := range records {
			ids[i] = r.ID
		}
		if err := database.DB.Unscoped().Where("id IN ?", ids).Delete(&Record{}).Error; err != nil {
			fmt.Printf("警告: 清理旧纪元投票记录失败: %v\n", err)
		}
		fmt.Printf("Vote Processor: 落库期间发生重置，已回收 %d 条旧纪元记录。\n", len(records))
		return nil
	}

	// 2. 推进落库检查点
	lastID := records[len(records)-1].ID
	if err := metadata.SetLastCommittedVoteID(lastID); err != nil {
		fmt.Printf("警告: 推进落库检查点失败: %v\n", err)
	}

	// 3. 更新Redis观测镜像（镜像不可用时跳过，不影响落库结果）
	p.mirrorBatch(batch, lastID)

	// 4. 只有落库成功的投票才进入工作计票
	if err := p.orch.ApplyCommitted(batch); err != nil {
		fmt.Printf("警告: 编排器未能应用已落库批次: %v\n", err)
	}
	return nil
}

// mirrorBatch 把一个已落库批次写入Redis镜像
func (p *Processor) mirrorBatch(batch []session.AdmittedVote, lastID uint) {
	if !database.IsRedisHealthy() {
		return
	}

	pipe := database.RDB.TxPipeline()
	for _, v := range batch {
		pipe.HIncrBy(database.Ctx, category.ResultsKey(v.CategoryID), v.Option, 1)
		pipe.SAdd(database.Ctx, participant.VotedByParticipantKey, participant.DedupMember(v.ParticipantID, v.CategoryID))
		pipe.SAdd(database.Ctx, participant.VotedByDeviceKey, participant.DedupMember(v.DeviceID, v.CategoryID))
	}
	pipe.IncrBy(database.Ctx, metadata.RedisTotalVotesKey, int64(len(batch)))
	pipe.Set(database.Ctx, metadata.RedisLastCommittedVoteIDKey, lastID, 0)

	if _, err := pipe.Exec(database.Ctx); err != nil {
		fmt.Printf("警告: 更新投票Redis镜像失败: %v\n", err)
	}
}

// drainRemaining 在优雅停机阶段尽力处理队列中剩余的投票，
// 强制停机信号会立即中断排空过程。
func (p *Processor) drainRemaining(forcefulHandle *lifecycle.Handle) {
	for {
		select {
		case <-forcefulHandle.Done():
			fmt.Printf("Vote Processor: 收到强制停机信号，排空被中断，剩余 %d 票未落库。\n", len(p.queue))
			return
		default:
		}

		select {
		case first := <-p.queue:
			batch := p.collectBatch(first)
			if err := p.commitBatch(batch); err != nil {
				// 排空模式下简化重试：失败即放弃本批
				fmt.Printf("排空队列时落库失败，已放弃 %d 票: %v\n", len(batch), err)
			}
		default:
			// 队列已空，排空完成
			return
		}
	}
}

// 确认接口实现
var _ session.VoteQueue = (*Processor)(nil)
