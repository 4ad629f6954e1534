package botmgr

import (
	"sync"

	"go.uber.org/zap"
)

// Event 事件总线上流转的一条事件，字段按事件类型选择性填充
type Event struct {
	Kind      string  `json:"event"`
	SessionID string  `json:"sessionId"`
	Username  string  `json:"username,omitempty"`
	Message   string  `json:"message,omitempty"`
	Health    float64 `json:"health,omitempty"`
	Food      float64 `json:"food,omitempty"`
	Reason    string  `json:"reason,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// 总线事件名称。end事件在总线上以disconnect名义发布。
const (
	BusSpawn      = "spawn"
	BusChat       = "chat"
	BusHealth     = "health"
	BusDeath      = "death"
	BusDisconnect = "disconnect"
	BusError      = "error"
)

// BusEventKinds 总线上会出现的全部事件名称，按固定顺序排列
var BusEventKinds = []string{BusSpawn, BusChat, BusHealth, BusDeath, BusDisconnect, BusError}

// Subscription 一次订阅的句柄，用于注销
type Subscription struct {
	kind string
	id   uint64
}

type busHandler struct {
	id uint64
	fn func(Event)
}

// EventBus 同步的发布/订阅总线。
// 投递按订阅注册顺序进行；单个处理器的panic会被捕获并记录，
// 不影响后续处理器。无持久化与回放，晚到的订阅者收不到历史事件。
type EventBus struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[string][]busHandler
	log      *zap.SugaredLogger
}

// NewEventBus 创建事件总线
func NewEventBus(log *zap.SugaredLogger) *EventBus {
	return &EventBus{
		handlers: make(map[string][]busHandler),
		log:      log,
	}
}

// Subscribe 注册事件处理器，返回用于注销的订阅句柄
func (b *EventBus) Subscribe(kind string, fn func(Event)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[kind] = append(b.handlers[kind], busHandler{id: b.nextID, fn: fn})
	return &Subscription{kind: kind, id: b.nextID}
}

// Unsubscribe 注销订阅，允许在publish进行期间调用
func (b *EventBus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[sub.kind]
	for i, h := range handlers {
		if h.id == sub.id {
			b.handlers[sub.kind] = append(handlers[:i:i], handlers[i+1:]...)
			return
		}
	}
}

// Publish 同步发布事件。先对订阅者列表做快照再迭代，
// 以容忍处理器在回调中注销自己或其他订阅。
func (b *EventBus) Publish(evt Event) {
	b.mu.Lock()
	snapshot := make([]busHandler, len(b.handlers[evt.Kind]))
	copy(snapshot, b.handlers[evt.Kind])
	b.mu.Unlock()

	for _, h := range snapshot {
		b.invoke(h, evt)
	}
}

func (b *EventBus) invoke(h busHandler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorw("事件处理器崩溃", "event", evt.Kind, "sessionId", evt.SessionID, "panic", r)
		}
	}()
	h.fn(evt)
}
