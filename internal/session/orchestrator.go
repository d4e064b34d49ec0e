package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/SumedhUnveil/live-voting-gritgags/internal/broadcast"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/category"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/participant"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/database"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/metadata"
	"github.com/google/uuid"
)

// Orchestrator 是类别生命周期的状态机，也是全部服务端可变状态
// （会话、类别仓库、去重索引）的单一写入者。
//
// 并发纪律：所有公开操作都被打包成闭包、投递到同一个事件循环
// Goroutine里顺序执行，每个操作从头到尾执行完毕、绝不与其他操作
// 交错。并发的投票提交因此在结构上就是无竞争的，而不是靠加锁。
// 只有持久化落库和对外广播允许相对调用方异步进行。
type Orchestrator struct {
	cmds    chan func()
	stopped chan struct{}

	categories *category.Store
	registry   *participant.Registry
	hub        *broadcast.Hub
	queue      VoteQueue

	// resetVoteLog 由装配层注入，Reset时清空投票日志（避免反向依赖vote模块）
	resetVoteLog func() error

	seedPath string

	current       *Session
	eventComplete bool

	// epoch 是重置纪元计数，只在事件循环内推进。
	// 落库管道通过Epoch()原子读取，用于丢弃跨越重置的滞留批次。
	epoch atomic.Uint64
}

// Global 是全局的编排器实例，由startup在装配完成后设置
var Global *Orchestrator

// NewOrchestrator 创建一个尚未启动的编排器。
// 投票队列在处理器构造完成后通过AttachQueue注入。
func NewOrchestrator(store *category.Store, registry *participant.Registry, hub *broadcast.Hub, seedPath string) *Orchestrator {
	return &Orchestrator{
		cmds:       make(chan func(), 256),
		stopped:    make(chan struct{}),
		categories: store,
		registry:   registry,
		hub:        hub,
		seedPath:   seedPath,
	}
}

// AttachQueue 注入投票持久化队列，必须在Start之前调用
func (o *Orchestrator) AttachQueue(queue VoteQueue) {
	o.queue = queue
}

// Epoch 返回当前重置纪元，供落库管道校验批次是否仍然有效
func (o *Orchestrator) Epoch() uint64 {
	return o.epoch.Load()
}

// SetResetVoteLog 注入投票日志的重置函数，必须在Start之前调用
func (o *Orchestrator) SetResetVoteLog(fn func() error) {
	o.resetVoteLog = fn
}

// Start 启动事件循环。ctx取消后循环退出，此后所有操作返回ErrStopped。
func (o *Orchestrator) Start(ctx context.Context) {
	go o.run(ctx)
}

// Stopped 返回一个channel，事件循环退出后该channel关闭
func (o *Orchestrator) Stopped() <-chan struct{} {
	return o.stopped
}

// run 是编排器的事件循环主体
func (o *Orchestrator) run(ctx context.Context) {
	fmt.Println("会话编排器 (Session Orchestrator) 已启动。")
	for {
		select {
		case <-ctx.Done():
			close(o.stopped)
			fmt.Println("会话编排器已停机。")
			return
		case f := <-o.cmds:
			f()
		}
	}
}

// do 将一个操作投递到事件循环并等待其执行完毕
func (o *Orchestrator) do(f func()) error {
	done := make(chan struct{})
	select {
	case o.cmds <- func() { f(); close(done) }:
	case <-o.stopped:
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-o.stopped:
		return ErrStopped
	}
}

// --- 主持人生命周期命令 ---

// StartCategory 开启一个类别的投票轮。
// 已存在活跃会话、或目标类别不在not-started状态时，
// 返回ErrInvalidTransition且不产生任何状态变更。
func (o *Orchestrator) StartCategory(categoryID string) error {
	var opErr error
	err := o.do(func() {
		cat, ok := o.categories.Get(categoryID)
		if !ok {
			opErr = ErrCategoryNotFound
			return
		}
		if o.current != nil && o.current.Active {
			opErr = ErrInvalidTransition
			return
		}
		if !cat.CanStart() {
			opErr = ErrInvalidTransition
			return
		}

		sessionID, err := uuid.NewV7()
		if err != nil {
			opErr = fmt.Errorf("无法生成会话ID: %w", err)
			return
		}

		now := time.Now()
		// 工作计票与类别计票共享同一份映射，两者天然保持一致
		o.current = &Session{
			ID:         sessionID.String(),
			CategoryID: cat.ID,
			Active:     true,
			Phase:      PhaseVoting,
			Options:    append([]string(nil), cat.Options...),
			Results:    cat.Results,
			StartedAt:  now,
		}

		cat.Status = category.StatusActive
		cat.StartedAt = &now
		if err := category.Persist(cat); err != nil {
			fmt.Printf("警告: 持久化类别 %s 失败: %v\n", cat.ID, err)
		}
		o.mirrorCategoryStatus(cat)

		// 新一轮开始，所有在线参与者回到未投票状态
		o.registry.BeginRound()

		o.hub.Broadcast(broadcast.AudienceAdmin,
			sessionEvent(broadcast.EventSessionStarted, o.current, cat.Title, true))
		o.hub.Broadcast(broadcast.AudienceParticipant,
			sessionEvent(broadcast.EventSessionStarted, o.current, cat.Title, false))

		fmt.Printf("投票轮已开启: %s (%s)\n", cat.Title, cat.ID)
	})
	if err != nil {
		return err
	}
	return opErr
}

// StopCategory 结束当前的投票轮。
// 指定类别与活跃会话不匹配时返回ErrNoActiveSession。
func (o *Orchestrator) StopCategory(categoryID string) error {
	var opErr error
	err := o.do(func() {
		if o.current == nil || !o.current.Active || o.current.CategoryID != categoryID {
			opErr = ErrNoActiveSession
			return
		}
		cat, ok := o.categories.Get(categoryID)
		if !ok || !cat.CanStop() {
			opErr = ErrNoActiveSession
			return
		}

		now := time.Now()
		o.current.Active = false
		o.current.Phase = PhaseCompleted
		o.current.EndedAt = &now

		// 工作计票全程与类别计票同源，这里只需推进生命周期并落库
		cat.Status = category.StatusCompleted
		cat.CompletedAt = &now
		if err := category.Persist(cat); err != nil {
			fmt.Printf("警告: 持久化类别 %s 失败: %v\n", cat.ID, err)
		}
		o.mirrorCategoryStatus(cat)

		o.registry.EndRound()

		o.hub.Broadcast(broadcast.AudienceAdmin,
			sessionEvent(broadcast.EventSessionStopped, o.current, cat.Title, true))
		o.hub.Broadcast(broadcast.AudienceParticipant,
			sessionEvent(broadcast.EventSessionStopped, o.current, cat.Title, false))

		fmt.Printf("投票轮已结束: %s，共 %d 票。\n", cat.ID, cat.VoteCount)
	})
	if err != nil {
		return err
	}
	return opErr
}

// RevealWinner 揭晓一个已结束类别的结果。
// 这是唯一一个向两个受众组广播完整计票的操作。
func (o *Orchestrator) RevealWinner(categoryID string) error {
	var opErr error
	err := o.do(func() {
		cat, ok := o.categories.Get(categoryID)
		if !ok {
			opErr = ErrCategoryNotFound
			return
		}
		if cat.Revealed {
			opErr = ErrAlreadyRevealed
			return
		}
		if cat.Status != category.StatusCompleted {
			opErr = ErrNotCompleted
			return
		}

		now := time.Now()
		winners := cat.Winners()
		cat.Revealed = true
		cat.Status = category.StatusRevealed
		cat.RevealedAt = &now
		if err := category.Persist(cat); err != nil {
			fmt.Printf("警告: 持久化类别 %s 失败: %v\n", cat.ID, err)
		}
		o.mirrorCategoryStatus(cat)

		o.hub.BroadcastAll(broadcast.Event{
			Type: broadcast.EventWinnerRevealed,
			Payload: winnerRevealedPayload{
				CategoryID: cat.ID,
				Title:      cat.Title,
				Results:    cat.CloneResults(),
				Winner:     winners,
				TotalVotes: cat.VoteCount,
			},
		})
		fmt.Printf("结果已揭晓: %s，获胜者 %v。\n", cat.ID, winners)

		// 最后一个类别揭晓后，整个活动进入收尾状态
		if o.categories.AllRevealed() {
			o.eventComplete = true
			o.registry.MarkComplete()
			o.hub.BroadcastAll(broadcast.Event{Type: broadcast.EventComplete, Payload: nil})
			fmt.Println("所有类别均已揭晓，活动收尾。")
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// Reset 执行完全重置：清空会话、类别、投票日志、身份/设备索引和
// 参与者连接状态，并从导入文件重新播种类别。这是唯一的破坏性恢复
// 手段，不存在部分重置。
func (o *Orchestrator) Reset() error {
	var opErr error
	err := o.do(func() {
		fmt.Println("开始执行完全重置...")

		// 先推进纪元并清空待落库队列：重置前准入、尚未落库的投票
		// 一律作废，不允许写进重置后的新日志或新计票
		o.epoch.Add(1)
		if o.queue != nil {
			if discarded := o.queue.DiscardPending(); discarded > 0 {
				fmt.Printf("重置: 已丢弃 %d 条未落库投票。\n", discarded)
			}
		}

		o.current = nil
		o.eventComplete = false
		o.registry.ResetAll()

		if o.resetVoteLog != nil {
			if err := o.resetVoteLog(); err != nil {
				opErr = fmt.Errorf("重置投票日志失败: %w", err)
				return
			}
		}
		if err := participant.ResetDB(); err != nil {
			opErr = fmt.Errorf("重置参与者数据失败: %w", err)
			return
		}

		store, err := category.ResetDB(o.seedPath)
		if err != nil {
			opErr = fmt.Errorf("重新导入类别失败: %w", err)
			return
		}
		o.categories = store

		if err := metadata.SetLastCommittedVoteID(0); err != nil {
			fmt.Printf("警告: 重置落库检查点失败: %v\n", err)
		}
		if err := metadata.SetValue(metadata.EventResetAtKey, time.Now().Format(time.RFC3339)); err != nil {
			fmt.Printf("警告: 记录重置时间失败: %v\n", err)
		}

		if database.IsRedisHealthy() {
			if err := category.WarmupMirror(o.categories); err != nil {
				fmt.Printf("警告: %v\n", err)
			}
		}

		broadcast.GlobalStats.Reset()
		o.hub.BroadcastAll(broadcast.Event{Type: broadcast.EventReset, Payload: nil})
		fmt.Println("完全重置完成。")
	})
	if err != nil {
		return err
	}
	return opErr
}

// --- 参与者操作 ---

// SubmitVote 是投票准入的核心路径。
// 步骤1-5同步完成且无竞争（由单一写入者循环保证）：校验会话与
// 身份、两条去重索引查重、候选项校验、入队、写索引。调用方立刻
// 得到确认，绝不等待落库。
func (o *Orchestrator) SubmitVote(participantID, deviceID, categoryID, option string) error {
	var opErr error
	err := o.do(func() {
		if o.current == nil || !o.current.Active || o.current.CategoryID != categoryID {
			opErr = ErrNoActiveSession
			return
		}
		// 设备标识是强制的：刷新页面会换参与者ID，但设备不变
		if deviceID == "" {
			opErr = ErrMissingDeviceID
			return
		}
		if o.registry.HasDeviceVoted(deviceID, categoryID) {
			opErr = ErrDuplicateDeviceVote
			return
		}
		if o.registry.HasParticipantVoted(participantID, categoryID) {
			opErr = ErrDuplicateParticipantVote
			return
		}
		if !o.current.HasOption(option) {
			opErr = ErrInvalidOption
			return
		}

		vote := AdmittedVote{
			CategoryID:    categoryID,
			Option:        option,
			ParticipantID: participantID,
			DeviceID:      deviceID,
			CastAt:        time.Now(),
			Epoch:         o.epoch.Load(),
		}
		// 队满是对调用方可见的背压信号，此时不产生任何状态变更
		if err := o.queue.Enqueue(vote); err != nil {
			opErr = err
			return
		}

		// 入队成功后同步写入两条去重索引——这是防重复投票的
		// 完整性关键路径，必须先于任何异步持久化动作
		o.registry.MarkVoted(participantID, deviceID, categoryID)
		broadcast.GlobalStats.MarkVote()
	})
	if err != nil {
		return err
	}
	return opErr
}

// JoinResult 是join操作的返回值
type JoinResult struct {
	ParticipantID string                `json:"participantId"`
	Token         string                `json:"token"`
	DisplayName   string                `json:"displayName"`
	HasVoted      bool                  `json:"hasVoted"`
	ViewState     participant.ViewState `json:"viewState"`
	State         StateView             `json:"state"`
}

// Join 登记一个参与者连接。身份令牌合法时沿用原参与者ID，
// 否则签发新身份。返回值携带全量状态快照供客户端同步。
func (o *Orchestrator) Join(tokenStr, displayName string) (JoinResult, error) {
	// 身份解析和落库不触碰编排器状态，在循环外完成
	id, signedToken, err := participant.EnsureIdentity(tokenStr)
	if err != nil {
		return JoinResult{}, err
	}
	if err := participant.PersistSeen(id, displayName); err != nil {
		fmt.Printf("警告: %v\n", err)
	}

	var result JoinResult
	err = o.do(func() {
		p := &participant.Participant{
			ID:          id,
			DisplayName: displayName,
			ViewState:   participant.ViewWaiting,
		}

		// 重连的参与者必须恢复其投票状态，不能被再次询问
		if o.eventComplete {
			p.ViewState = participant.ViewSessionComplete
		} else if o.current != nil && o.current.Active {
			if o.registry.HasParticipantVoted(id, o.current.CategoryID) {
				p.HasVoted = true
				p.ViewState = participant.ViewVoted
			} else {
				p.ViewState = participant.ViewVoting
			}
		}

		o.registry.Join(p)
		o.broadcastParticipantCount()

		result = JoinResult{
			ParticipantID: id,
			Token:         signedToken,
			DisplayName:   displayName,
			HasVoted:      p.HasVoted,
			ViewState:     p.ViewState,
			State:         o.stateViewLocked(false),
		}
	})
	if err != nil {
		return JoinResult{}, err
	}
	return result, nil
}

// Leave 注销一个参与者连接。身份本身由客户端令牌保留，
// 重连时会以同一参与者ID回来。
func (o *Orchestrator) Leave(participantID string) error {
	return o.do(func() {
		if _, ok := o.registry.Get(participantID); !ok {
			return
		}
		o.registry.Leave(participantID)
		o.broadcastParticipantCount()
	})
}

// --- 查询操作 ---

// CurrentState 返回当前完整状态的受众投影。
// 幂等：状态未变时两次查询产生逐字节一致的结果。
func (o *Orchestrator) CurrentState(admin bool) (StateView, error) {
	var view StateView
	err := o.do(func() {
		view = o.stateViewLocked(admin)
	})
	return view, err
}

// AdminStatusView 是主持端状态面板的投影
type AdminStatusView struct {
	CurrentSession   *SessionView            `json:"currentSession,omitempty"`
	ParticipantCount int                     `json:"participantCount"`
	Categories       []CategoryView          `json:"categories"`
	Stats            broadcast.StatsSnapshot `json:"stats"`
}

// AdminStatus 返回主持端状态面板所需的全量数据
func (o *Orchestrator) AdminStatus() (AdminStatusView, error) {
	var view AdminStatusView
	err := o.do(func() {
		state := o.stateViewLocked(true)
		stats := broadcast.GlobalStats.Snapshot()
		if o.queue != nil {
			stats.QueueDepth = o.queue.Depth()
		}
		view = AdminStatusView{
			CurrentSession:   state.Session,
			ParticipantCount: state.ParticipantCount,
			Categories:       state.Categories,
			Stats:            stats,
		}
	})
	return view, err
}

// CategoryResults 返回单个类别的聚合计票快照（主持端观测接口）
func (o *Orchestrator) CategoryResults(categoryID string) (CategoryView, error) {
	var view CategoryView
	var opErr error
	err := o.do(func() {
		cat, ok := o.categories.Get(categoryID)
		if !ok {
			opErr = ErrCategoryNotFound
			return
		}
		view = projectCategory(cat, true)
	})
	if err != nil {
		return CategoryView{}, err
	}
	return view, opErr
}

// stateViewLocked 构建状态投影，必须在事件循环内调用
func (o *Orchestrator) stateViewLocked(admin bool) StateView {
	view := StateView{
		Categories:       make([]CategoryView, 0, o.categories.Len()),
		ParticipantCount: o.registry.Count(),
		EventComplete:    o.eventComplete,
	}

	var currentTitle string
	if o.current != nil {
		if cat, ok := o.categories.Get(o.current.CategoryID); ok {
			currentTitle = cat.Title
		}
	}
	view.Session = projectSession(o.current, currentTitle, admin)

	for _, cat := range o.categories.List() {
		view.Categories = append(view.Categories, projectCategory(cat, admin))
	}
	return view
}

// --- 持久化管道回调 ---

// ApplyCommitted 在一批投票成功落库后由投票处理器调用。
// 每条已落库投票把对应类别的计票加一；当前会话的工作计票与
// 类别计票同源，随之自动推进。随后向主持端推送一次tally-update。
func (o *Orchestrator) ApplyCommitted(votes []AdmittedVote) error {
	return o.do(func() {
		touched := make(map[string]*category.Category)
		for _, vote := range votes {
			// 落库期间发生过完全重置的批次不进入计票
			if vote.Epoch != o.epoch.Load() {
				fmt.Printf("警告: 丢弃旧纪元投票 (类别 %s)，该票在重置前准入。\n", vote.CategoryID)
				continue
			}
			cat, ok := o.categories.Get(vote.CategoryID)
			if !ok {
				// 只可能发生在落库期间执行了完全重置的场合
				fmt.Printf("警告: 已落库投票指向未知类别 %s，跳过计票。\n", vote.CategoryID)
				continue
			}
			cat.Results[vote.Option]++
			cat.VoteCount++
			touched[cat.ID] = cat
		}

		for _, cat := range touched {
			if o.current != nil && o.current.CategoryID == cat.ID {
				o.hub.Broadcast(broadcast.AudienceAdmin, broadcast.Event{
					Type: broadcast.EventTallyUpdate,
					Payload: tallyUpdatePayload{
						CategoryID: cat.ID,
						Results:    cat.CloneResults(),
						TotalVotes: cat.VoteCount,
					},
				})
			}
		}
	})
}

// --- 维护操作 ---

// WarmRedisMirror 把编排器的权威状态全量重写进Redis镜像。
// 在Redis重启恢复时由健康检查器触发。
func (o *Orchestrator) WarmRedisMirror() error {
	var opErr error
	err := o.do(func() {
		if err := category.WarmupMirror(o.categories); err != nil {
			opErr = err
			return
		}
		if err := participant.WarmupKnownMirror(); err != nil {
			opErr = err
			return
		}
		opErr = o.warmDedupMirrorLocked()
	})
	if err != nil {
		return err
	}
	return opErr
}

// warmDedupMirrorLocked 重建去重索引的Redis镜像，必须在事件循环内调用
func (o *Orchestrator) warmDedupMirrorLocked() error {
	byParticipant, byDevice := o.registry.DedupMembers()

	pipe := database.RDB.Pipeline()
	pipe.Del(database.Ctx, participant.VotedByParticipantKey)
	pipe.Del(database.Ctx, participant.VotedByDeviceKey)
	if len(byParticipant) > 0 {
		pipe.SAdd(database.Ctx, participant.VotedByParticipantKey, byParticipant...)
	}
	if len(byDevice) > 0 {
		pipe.SAdd(database.Ctx, participant.VotedByDeviceKey, byDevice...)
	}
	if _, err := pipe.Exec(database.Ctx); err != nil {
		return fmt.Errorf("重建去重索引镜像失败: %w", err)
	}
	return nil
}

// CreateFinalSnapshot 在停机时把所有类别的运行期状态写回SQLite
func (o *Orchestrator) CreateFinalSnapshot() error {
	var opErr error
	err := o.do(func() {
		for _, cat := range o.categories.List() {
			if err := category.Persist(cat); err != nil {
				opErr = err
				return
			}
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// broadcastParticipantCount 向两端推送在线参与者数量，必须在事件循环内调用
func (o *Orchestrator) broadcastParticipantCount() {
	event := broadcast.Event{
		Type:    broadcast.EventParticipantCount,
		Payload: participantCountPayload{Count: o.registry.Count()},
	}
	o.hub.Broadcast(broadcast.AudienceAdmin, event)
	o.hub.Broadcast(broadcast.AudienceParticipant, event)
}

// mirrorCategoryStatus 把单个类别的状态写进Redis镜像，失败只告警
func (o *Orchestrator) mirrorCategoryStatus(cat *category.Category) {
	if !database.IsRedisHealthy() {
		return
	}
	if err := database.RDB.HSet(database.Ctx, category.StatusKey, cat.ID, string(cat.Status)).Err(); err != nil {
		fmt.Printf("警告: 更新类别状态镜像失败: %v\n", err)
	}
}
