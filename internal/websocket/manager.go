package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"city.newnan/craft-console/internal/logger"
	"city.newnan/craft-console/pkg/botmgr"
)

// 设置 websocket 连接的配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 允许所有域的请求
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub 管理事件推送的 WebSocket 连接。Hub 在独立端口上提供
// /bot-events 端点，把会话事件广播给所有已连接的前端，
// 并处理前端通过 WebSocket 发来的会话控制消息。
type Hub struct {
	manager    *botmgr.Manager
	dispatcher *botmgr.Dispatcher
	bus        *botmgr.EventBus
	port       int
	log        *zap.SugaredLogger

	// 所有客户端
	clients map[string]*Client
	// 互斥锁
	mutex sync.RWMutex
	// 注册通道
	register chan *Client
	// 注销通道
	unregister chan *Client
	// 广播通道
	broadcast chan []byte

	startOnce sync.Once
	server    *http.Server
	started   bool
}

// NewHub 创建新的 Hub
func NewHub(manager *botmgr.Manager, dispatcher *botmgr.Dispatcher, bus *botmgr.EventBus, port int) *Hub {
	return &Hub{
		manager:    manager,
		dispatcher: dispatcher,
		bus:        bus,
		port:       port,
		log:        logger.GetLogger(),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
	}
}

// Init 启动 Hub：订阅事件总线、启动主循环并监听 WebSocket 端口。
// 重复调用是幂等的。
func (h *Hub) Init() error {
	h.startOnce.Do(func() {
		for _, kind := range botmgr.BusEventKinds {
			h.bus.Subscribe(kind, h.onBotEvent)
		}

		go h.run()

		mux := http.NewServeMux()
		mux.HandleFunc("/bot-events", h.handleConnection)
		h.server = &http.Server{
			Addr:    fmt.Sprintf(":%d", h.port),
			Handler: mux,
		}
		go func() {
			h.log.Infow("WebSocket 事件服务已启动", "port", h.port)
			if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				h.log.Errorw("WebSocket 事件服务异常退出", "error", err)
			}
		}()
		h.started = true
	})
	return nil
}

// Started 返回 Hub 是否已经启动
func (h *Hub) Started() bool {
	return h.started
}

// Shutdown 关闭 WebSocket 服务
func (h *Hub) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

// onBotEvent 把总线事件包装为 bot_event 消息并广播
func (h *Hub) onBotEvent(evt botmgr.Event) {
	data, err := sonic.Marshal(Message{Type: MessageTypeBotEvent, Data: evt})
	if err != nil {
		h.log.Errorw("编码事件消息失败", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.log.Warnw("广播通道已满，丢弃事件", "event", evt.Kind)
	}
}

// run 运行 Hub 的主循环
func (h *Hub) run() {
	// 处理心跳和断线检测
	go func() {
		heartbeatTicker := time.NewTicker(10 * time.Second)
		for range heartbeatTicker.C {
			h.checkHeartbeats()
		}
	}()

	for {
		select {
		// 注册新客户端
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.ID] = client
			h.mutex.Unlock()
			h.log.Infow("事件客户端已连接", "clientId", client.ID)

		// 注销客户端
		case client := <-h.unregister:
			if client == nil {
				continue
			}

			// 防止重复关闭
			client.ClosedMutex.Lock()
			if client.Closed {
				client.ClosedMutex.Unlock()
				continue
			}
			client.Closed = true
			client.ClosedMutex.Unlock()

			h.mutex.Lock()
			delete(h.clients, client.ID)
			h.mutex.Unlock()

			// 关闭发送通道
			close(client.Send)
			h.log.Infow("事件客户端已断开", "clientId", client.ID)

		// 广播消息
		case message := <-h.broadcast:
			// 迭代期间只持有读锁，淘汰的客户端先记下ID，
			// 等释放读锁后再从表里删除，避免锁重入
			var evicted []string
			h.mutex.RLock()
			for _, client := range h.clients {
				if !h.sendMessage(client, message) {
					evicted = append(evicted, client.ID)
				}
			}
			h.mutex.RUnlock()

			if len(evicted) > 0 {
				h.mutex.Lock()
				for _, id := range evicted {
					delete(h.clients, id)
				}
				h.mutex.Unlock()
			}
		}
	}
}

// sendMessage 向客户端发送消息，发送失败时把客户端标记为已关闭
// 并返回false，由调用方负责从客户端表里移除
func (h *Hub) sendMessage(client *Client, message []byte) bool {
	// 检查客户端是否已关闭
	client.ClosedMutex.Lock()
	if client.Closed {
		client.ClosedMutex.Unlock()
		return false
	}
	client.ClosedMutex.Unlock()

	// 非阻塞发送
	select {
	case client.Send <- message:
		return true
	default:
		// 发送失败，客户端可能已断开或缓冲区已满
		client.ClosedMutex.Lock()
		if !client.Closed {
			close(client.Send)
			client.Closed = true
		}
		client.ClosedMutex.Unlock()
		h.log.Warnw("客户端发送缓冲区已满，移除客户端", "clientId", client.ID)
		return false
	}
}

// checkHeartbeats 检查所有客户端的心跳
func (h *Hub) checkHeartbeats() {
	timeout := time.Now().Add(-60 * time.Second)

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for id, client := range h.clients {
		if client.lastPingTime().Before(timeout) {
			h.log.Warnw("客户端心跳超时，断开连接", "clientId", id)

			client.ClosedMutex.Lock()
			if !client.Closed {
				client.Conn.Close()
				client.Closed = true
				close(client.Send)
			}
			client.ClosedMutex.Unlock()

			delete(h.clients, id)
		}
	}
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
