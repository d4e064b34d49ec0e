package broadcast

import (
	"fmt"
	"sync"
)

// subscriberBuffer 是单个订阅者的事件积压上限。
// 慢客户端超过积压后会丢事件，客户端依靠重连后的全量状态同步兜底。
const subscriberBuffer = 64

// Subscriber 代表一个已注册的事件接收端
type Subscriber struct {
	audience Audience
	ch       chan Event
}

// C 返回订阅者的只读事件channel
func (s *Subscriber) C() <-chan Event {
	return s.ch
}

// Audience 返回订阅者所属的受众组
func (s *Subscriber) Audience() Audience {
	return s.audience
}

// Hub 维护两个受众组的订阅者集合，并负责状态变更的扇出。
// 它只做投递，不持有任何业务状态，投影在事件生成侧完成。
type Hub struct {
	mu   sync.Mutex
	subs map[Audience]map[*Subscriber]struct{}
}

// NewHub 创建一个新的广播中心
func NewHub() *Hub {
	return &Hub{
		subs: map[Audience]map[*Subscriber]struct{}{
			AudienceAdmin:       make(map[*Subscriber]struct{}),
			AudienceParticipant: make(map[*Subscriber]struct{}),
		},
	}
}

// Subscribe 将一个新的订阅者注册到指定受众组
func (h *Hub) Subscribe(audience Audience) *Subscriber {
	sub := &Subscriber{
		audience: audience,
		ch:       make(chan Event, subscriberBuffer),
	}

	h.mu.Lock()
	h.subs[audience][sub] = struct{}{}
	h.mu.Unlock()

	GlobalStats.ConnectionOpened()
	return sub
}

// Unsubscribe 注销一个订阅者并关闭其channel
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	group, ok := h.subs[sub.audience]
	if ok {
		if _, exists := group[sub]; exists {
			delete(group, sub)
			close(sub.ch)
		} else {
			ok = false
		}
	}
	h.mu.Unlock()

	if ok {
		GlobalStats.ConnectionClosed()
	}
}

// Broadcast 向单个受众组的所有订阅者投递一个事件
func (h *Hub) Broadcast(audience Audience, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliverLocked(audience, event)
}

// BroadcastAll 向两个受众组投递同一个事件。
// 只用于winner-revealed这类两端看到完全一致数据的场合。
func (h *Hub) BroadcastAll(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliverLocked(AudienceAdmin, event)
	h.deliverLocked(AudienceParticipant, event)
}

// deliverLocked 执行实际投递，调用前必须持有h.mu
func (h *Hub) deliverLocked(audience Audience, event Event) {
	for sub := range h.subs[audience] {
		select {
		case sub.ch <- event:
		default:
			// 订阅者积压已满，丢弃本事件，客户端靠重新同步恢复
			fmt.Printf("广播中心: 订阅者积压已满，丢弃事件 %s\n", event.Type)
		}
	}
}

// SubscriberCount 返回指定受众组当前的订阅者数量
func (h *Hub) SubscriberCount(audience Audience) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[audience])
}
