package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"city.newnan/craft-console/pkg/botmgr"
)

// MessageType 消息类型
const (
	MessageTypeInitialState  = "initial_state"   // 连接建立后推送的会话快照
	MessageTypeBotEvent      = "bot_event"       // 会话事件
	MessageTypeStartBot      = "start_bot"       // 启动会话
	MessageTypeStopBot       = "stop_bot"        // 结束会话
	MessageTypeSendCommand   = "send_command"    // 下发命令
	MessageTypeStartResult   = "bot_start_result"
	MessageTypeStopResult    = "bot_stop_result"
	MessageTypeCommandResult = "command_result"
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
	MessageTypeError         = "error"
)

// Message WebSocket消息结构
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Client 表示 WebSocket 客户端
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
	// 最近一次收到客户端消息的时间（UnixNano），
	// 读协程写入、心跳检查协程读取，用原子操作避免竞态
	lastPing    atomic.Int64
	Hub         *Hub
	Closed      bool
	ClosedMutex sync.Mutex
}

// touchPing 记录客户端最近一次活跃时间
func (c *Client) touchPing() {
	c.lastPing.Store(time.Now().UnixNano())
}

// lastPingTime 返回客户端最近一次活跃时间
func (c *Client) lastPingTime() time.Time {
	return time.Unix(0, c.lastPing.Load())
}

// handleConnection 处理WebSocket连接
func (h *Hub) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorw("升级WebSocket连接失败", "error", err)
		return
	}

	client := &Client{
		ID:   uuid.New().String(),
		Conn: conn,
		Send: make(chan []byte, 256),
		Hub:  h,
	}
	client.touchPing()

	// 先把当前所有会话的快照排进发送队列，保证客户端收到的
	// 第一条消息是initial_state，随后才是事件流
	client.Send <- MarshalMessage(MessageTypeInitialState, map[string]any{
		"sessions": h.manager.Snapshots(),
	})

	h.Register(client)

	go client.writePump()
	go client.readPump()
}

// readPump 从WebSocket连接读取消息
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	// 设置读取超时
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.touchPing()
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Warnw("读取WebSocket消息错误", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump 向WebSocket连接写入消息
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// 通道已关闭
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// startBotPayload start_bot 消息的数据体
type startBotPayload struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Version  string `json:"version"`
}

// stopBotPayload stop_bot 消息的数据体
type stopBotPayload struct {
	SessionID string `json:"sessionId"`
}

// commandPayload send_command 消息的数据体
type commandPayload struct {
	SessionID string         `json:"sessionId"`
	Command   string         `json:"command"`
	Args      map[string]any `json:"args"`
}

// envelope 解析入站消息时只解出类型，数据体延迟按类型解析
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// handleMessage 处理接收到的消息
func (c *Client) handleMessage(data []byte) {
	// 更新最后ping时间
	c.touchPing()

	var msg envelope
	if err := sonic.Unmarshal(data, &msg); err != nil {
		c.Hub.log.Warnw("解析消息失败", "error", err)
		c.reply(MessageTypeError, map[string]string{"message": "invalid message format"})
		return
	}

	switch msg.Type {
	case MessageTypePing:
		c.reply(MessageTypePong, nil)

	case MessageTypeStartBot:
		var payload startBotPayload
		if len(msg.Data) > 0 {
			if err := sonic.Unmarshal(msg.Data, &payload); err != nil {
				c.reply(MessageTypeError, map[string]string{"message": "invalid start_bot payload"})
				return
			}
		}
		sessionID, err := c.Hub.manager.StartBot(botmgr.BotConfig{
			Host:     payload.Host,
			Port:     payload.Port,
			Username: payload.Username,
			Password: payload.Password,
			Version:  payload.Version,
		})
		if err != nil {
			c.reply(MessageTypeStartResult, map[string]any{"success": false, "error": err.Error()})
			return
		}
		c.reply(MessageTypeStartResult, map[string]any{"success": true, "sessionId": sessionID})

	case MessageTypeStopBot:
		var payload stopBotPayload
		if err := sonic.Unmarshal(msg.Data, &payload); err != nil || payload.SessionID == "" {
			c.reply(MessageTypeError, map[string]string{"message": "sessionId is required"})
			return
		}
		if err := c.Hub.manager.StopBot(payload.SessionID); err != nil {
			c.reply(MessageTypeStopResult, map[string]any{
				"success":   false,
				"sessionId": payload.SessionID,
				"error":     err.Error(),
			})
			return
		}
		c.reply(MessageTypeStopResult, map[string]any{"success": true, "sessionId": payload.SessionID})

	case MessageTypeSendCommand:
		var payload commandPayload
		if err := sonic.Unmarshal(msg.Data, &payload); err != nil || payload.SessionID == "" || payload.Command == "" {
			c.reply(MessageTypeError, map[string]string{"message": "sessionId and command are required"})
			return
		}
		cmd, err := botmgr.ParseCommand(payload.Command, payload.Args)
		if err != nil {
			c.reply(MessageTypeError, map[string]string{"message": err.Error()})
			return
		}
		result := c.Hub.dispatcher.Execute(context.Background(), payload.SessionID, cmd)
		c.reply(MessageTypeCommandResult, map[string]any{
			"sessionId": payload.SessionID,
			"command":   payload.Command,
			"result":    result,
		})

	default:
		// 未知消息类型
		c.reply(MessageTypeError, map[string]string{"message": "unsupported message type: " + msg.Type})
	}
}

// reply 向当前客户端发送一条消息
func (c *Client) reply(msgType string, data any) {
	c.ClosedMutex.Lock()
	closed := c.Closed
	c.ClosedMutex.Unlock()
	if closed {
		return
	}
	select {
	case c.Send <- MarshalMessage(msgType, data):
	default:
	}
}

// MarshalMessage 将消息编码为JSON字节串
func MarshalMessage(msgType string, data any) []byte {
	payload, err := sonic.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		return []byte(`{"type":"error","data":{"message":"failed to encode message"}}`)
	}
	return payload
}
