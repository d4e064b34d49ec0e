package participant

// ViewState 是参与者客户端的视图状态，服务端维护一份用于投影
type ViewState string

const (
	// ViewWaiting 表示当前没有进行中的投票轮
	ViewWaiting ViewState = "waiting"
	// ViewVoting 表示有进行中的投票轮且该参与者尚未投票
	ViewVoting ViewState = "voting"
	// ViewVoted 表示该参与者已为当前类别投过票
	ViewVoted ViewState = "voted"
	// ViewSessionComplete 表示整个活动已经收尾
	ViewSessionComplete ViewState = "session-complete"
)

// Participant 是一个当前连接着的参与者。
// 断线即销毁，逻辑身份由客户端令牌跨连接保留。
type Participant struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"displayName"`
	ConnectionID string    `json:"-"`
	HasVoted     bool      `json:"hasVoted"`
	ViewState    ViewState `json:"viewState"`
}

// voteKey 是去重索引的复合键：一条身份轴 + 一个类别
type voteKey struct {
	identity   string
	categoryID string
}

// Registry 维护在线参与者集合和两条独立的投票去重索引。
// 两条索引缺一不可：刷新页面会换一个参与者ID，但设备指纹不变。
// Registry 由会话编排器独占写入，因此不带锁。
type Registry struct {
	connected          map[string]*Participant
	votedByParticipant map[voteKey]struct{}
	votedByDevice      map[voteKey]struct{}
}

// NewRegistry 创建一个空的注册表
func NewRegistry() *Registry {
	return &Registry{
		connected:          make(map[string]*Participant),
		votedByParticipant: make(map[voteKey]struct{}),
		votedByDevice:      make(map[voteKey]struct{}),
	}
}

// Join 登记一个在线参与者，同一ID重复join时覆盖连接信息
func (r *Registry) Join(p *Participant) {
	r.connected[p.ID] = p
}

// Get 查找一个在线参与者
func (r *Registry) Get(id string) (*Participant, bool) {
	p, ok := r.connected[id]
	return p, ok
}

// Leave 移除一个在线参与者
func (r *Registry) Leave(id string) {
	delete(r.connected, id)
}

// Count 返回在线参与者数量
func (r *Registry) Count() int {
	return len(r.connected)
}

// Connected 返回所有在线参与者
func (r *Registry) Connected() []*Participant {
	list := make([]*Participant, 0, len(r.connected))
	for _, p := range r.connected {
		list = append(list, p)
	}
	return list
}

// HasParticipantVoted 查询 (参与者, 类别) 去重索引
func (r *Registry) HasParticipantVoted(participantID, categoryID string) bool {
	_, ok := r.votedByParticipant[voteKey{participantID, categoryID}]
	return ok
}

// HasDeviceVoted 查询 (设备, 类别) 去重索引
func (r *Registry) HasDeviceVoted(deviceID, categoryID string) bool {
	_, ok := r.votedByDevice[voteKey{deviceID, categoryID}]
	return ok
}

// MarkVoted 将一次已准入的投票同步写入两条去重索引，
// 并更新参与者的投票状态。必须在任何异步持久化动作之前完成。
func (r *Registry) MarkVoted(participantID, deviceID, categoryID string) {
	r.votedByParticipant[voteKey{participantID, categoryID}] = struct{}{}
	r.votedByDevice[voteKey{deviceID, categoryID}] = struct{}{}

	if p, ok := r.connected[participantID]; ok {
		p.HasVoted = true
		p.ViewState = ViewVoted
	}
}

// BeginRound 在新一轮开始时重置所有在线参与者的投票状态
func (r *Registry) BeginRound() {
	for _, p := range r.connected {
		p.HasVoted = false
		p.ViewState = ViewVoting
	}
}

// EndRound 在一轮结束时将所有在线参与者置回等待状态
func (r *Registry) EndRound() {
	for _, p := range r.connected {
		p.HasVoted = false
		p.ViewState = ViewWaiting
	}
}

// MarkComplete 在活动收尾时更新所有在线参与者的视图状态
func (r *Registry) MarkComplete() {
	for _, p := range r.connected {
		p.ViewState = ViewSessionComplete
	}
}

// DedupMembers 导出两条去重索引的镜像成员表示，供Redis镜像重建使用
func (r *Registry) DedupMembers() (byParticipant, byDevice []interface{}) {
	for key := range r.votedByParticipant {
		byParticipant = append(byParticipant, DedupMember(key.identity, key.categoryID))
	}
	for key := range r.votedByDevice {
		byDevice = append(byDevice, DedupMember(key.identity, key.categoryID))
	}
	return
}

// ResetAll 清空两条去重索引并将在线参与者置回初始状态。
// 只应由完全重置调用。
func (r *Registry) ResetAll() {
	r.votedByParticipant = make(map[voteKey]struct{})
	r.votedByDevice = make(map[voteKey]struct{})
	for _, p := range r.connected {
		p.HasVoted = false
		p.ViewState = ViewWaiting
	}
}
