package botmgr

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ManagedBot 表示一个被托管的机器人会话及其全部状态。
// 连接句柄由会话独占，创建后为nil，连接建立流程启动后非nil，
// 会话销毁时重新置为nil。
type ManagedBot struct {
	// ID 会话唯一标识符，创建时生成，不可变更
	ID string

	mu           sync.Mutex
	client       Client
	status       BotStatus
	config       BotConfig
	createdAt    time.Time
	lastActivity time.Time
	lastError    string
	listeners    []ListenerHandle
	memory       map[string]string
}

// Config 返回会话的服务器描述信息
func (b *ManagedBot) Config() BotConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.config
}

// Status 返回会话当前状态
func (b *ManagedBot) Status() BotStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Connection 返回连接句柄，尚未建立或已销毁时为nil
func (b *ManagedBot) Connection() Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client
}

// touch 更新最后活动时间，每次入站事件和出站命令都会调用
func (b *ManagedBot) touch() {
	b.mu.Lock()
	b.lastActivity = time.Now()
	b.mu.Unlock()
}

func (b *ManagedBot) setStatus(s BotStatus) {
	b.mu.Lock()
	b.status = s
	b.lastActivity = time.Now()
	b.mu.Unlock()
}

func (b *ManagedBot) setError(msg string) {
	b.mu.Lock()
	b.status = StatusError
	b.lastError = msg
	b.lastActivity = time.Now()
	b.mu.Unlock()
}

// Remember 在会话级键值记忆中存储一个条目
func (b *ManagedBot) Remember(key, value string) {
	b.mu.Lock()
	b.memory[key] = value
	b.mu.Unlock()
}

// Recall 读取记忆条目
func (b *ManagedBot) Recall(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.memory[key]
	return v, ok
}

// RecallAll 返回全部记忆条目的副本
func (b *ManagedBot) RecallAll() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]string, len(b.memory))
	for k, v := range b.memory {
		out[k] = v
	}
	return out
}

// Snapshot 生成面向API层的状态摘要。
// 已连接时附带协议客户端的实时生命值、位置等信息。
func (b *ManagedBot) Snapshot() BotSnapshot {
	b.mu.Lock()
	snap := BotSnapshot{
		SessionID:    b.ID,
		Status:       b.status,
		ServerInfo:   b.config,
		CreatedAt:    b.createdAt,
		LastActivity: b.lastActivity,
		LastError:    b.lastError,
	}
	client := b.client
	connected := b.status == StatusConnected
	b.mu.Unlock()

	if connected && client != nil {
		if state, err := client.State(); err == nil {
			snap.Connected = true
			snap.Health = state.Health
			snap.Food = state.Food
			pos := state.Position
			snap.Position = &pos
			snap.Dimension = state.Dimension
		}
	}
	return snap
}

// detachListeners 注销全部事件监听器并返回连接句柄。
// 必须在丢弃连接句柄之前调用，避免回调打到已销毁的会话上。
func (b *ManagedBot) detachListeners() Client {
	b.mu.Lock()
	client := b.client
	handles := b.listeners
	b.listeners = nil
	b.client = nil
	b.status = StatusDisconnected
	b.mu.Unlock()

	if client != nil {
		for _, h := range handles {
			client.Off(h)
		}
	}
	return client
}

// Options 管理器配置
type Options struct {
	// MaxBots 最大并发会话数量，0表示不限制
	MaxBots int
}

// Manager 负责机器人会话的全生命周期：创建、连接、监控、销毁。
// 一个Manager实例持有一个会话注册表和一条事件总线；
// 不使用任何包级可变状态，便于测试中构造隔离实例。
type Manager struct {
	dialer   Dialer
	registry *registry
	bus      *EventBus
	log      *zap.SugaredLogger
}

// NewManager 创建会话管理器
func NewManager(dialer Dialer, bus *EventBus, opts Options, log *zap.SugaredLogger) *Manager {
	return &Manager{
		dialer:   dialer,
		registry: newRegistry(opts.MaxBots),
		bus:      bus,
		log:      log,
	}
}

// Bus 返回管理器使用的事件总线
func (m *Manager) Bus() *EventBus {
	return m.bus
}

// StartBot 创建并启动一个机器人会话。
// 校验配置后立即返回会话ID，连接在后台进行；调用方通过
// status接口或事件总线观察连接结果。底层客户端同步创建失败时
// 不会留下注册表条目。
func (m *Manager) StartBot(config BotConfig) (string, error) {
	if err := config.Validate(); err != nil {
		return "", err
	}

	botID := uuid.New().String()
	bot := &ManagedBot{
		ID:           botID,
		status:       StatusConnecting,
		config:       config,
		createdAt:    time.Now(),
		lastActivity: time.Now(),
		memory:       make(map[string]string),
	}

	m.log.Infow("正在创建机器人",
		"sessionId", botID,
		"host", config.Host,
		"port", config.Port,
		"username", config.Username)

	client, err := m.dialer.Dial(config)
	if err != nil {
		m.log.Errorw("创建协议客户端失败", "sessionId", botID, "error", err)
		return "", fmt.Errorf("failed to create bot: %w", err)
	}

	bot.client = client
	if err := m.registry.create(bot); err != nil {
		client.Disconnect()
		return "", err
	}

	m.setupBotEvents(bot, client)
	return botID, nil
}

// setupBotEvents 为会话安装固定的一组事件监听器。
// 句柄记入会话，StopBot时统一注销。
func (m *Manager) setupBotEvents(bot *ManagedBot, client Client) {
	handles := []ListenerHandle{
		client.On(EventSpawn, func(ClientEvent) {
			m.log.Infow("机器人已出生", "sessionId", bot.ID)
			bot.setStatus(StatusConnected)
			m.bus.Publish(Event{Kind: BusSpawn, SessionID: bot.ID})
		}),
		client.On(EventError, func(e ClientEvent) {
			m.log.Errorw("机器人发生错误", "sessionId", bot.ID, "error", e.Error)
			bot.setError(e.Error)
			m.bus.Publish(Event{Kind: BusError, SessionID: bot.ID, Error: e.Error})
		}),
		client.On(EventEnd, func(e ClientEvent) {
			m.log.Infow("机器人连接结束", "sessionId", bot.ID, "reason", e.Reason)
			bot.setStatus(StatusDisconnected)
			m.bus.Publish(Event{Kind: BusDisconnect, SessionID: bot.ID, Reason: e.Reason})
		}),
		client.On(EventChat, func(e ClientEvent) {
			bot.touch()
			m.bus.Publish(Event{Kind: BusChat, SessionID: bot.ID, Username: e.Username, Message: e.Message})
		}),
		client.On(EventHealth, func(e ClientEvent) {
			bot.touch()
			m.bus.Publish(Event{Kind: BusHealth, SessionID: bot.ID, Health: e.Health, Food: e.Food})
		}),
		client.On(EventDeath, func(ClientEvent) {
			m.log.Infow("机器人死亡", "sessionId", bot.ID)
			bot.touch()
			m.bus.Publish(Event{Kind: BusDeath, SessionID: bot.ID})
		}),
	}

	bot.mu.Lock()
	bot.listeners = handles
	bot.mu.Unlock()
}

// StopBot 停止并销毁一个会话。先注销监听器，再断开连接，
// 最后删除注册表条目。对同一ID的第二次调用返回ErrBotNotFound。
func (m *Manager) StopBot(botID string) error {
	bot, ok := m.registry.get(botID)
	if !ok {
		return ErrBotNotFound
	}

	client := bot.detachListeners()
	if client != nil {
		client.Disconnect()
	}
	m.registry.remove(botID)

	m.log.Infow("机器人已停止", "sessionId", botID)
	return nil
}

// GetBot 查找会话
func (m *Manager) GetBot(botID string) (*ManagedBot, error) {
	bot, ok := m.registry.get(botID)
	if !ok {
		return nil, ErrBotNotFound
	}
	return bot, nil
}

// GetAllBots 返回全部会话
func (m *Manager) GetAllBots() []*ManagedBot {
	return m.registry.list()
}

// Snapshots 返回全部会话的状态摘要
func (m *Manager) Snapshots() []BotSnapshot {
	bots := m.registry.list()
	snaps := make([]BotSnapshot, 0, len(bots))
	for _, bot := range bots {
		snaps = append(snaps, bot.Snapshot())
	}
	return snaps
}

// Shutdown 停止全部会话，进程退出前调用
func (m *Manager) Shutdown() {
	for _, bot := range m.registry.list() {
		if err := m.StopBot(bot.ID); err != nil && err != ErrBotNotFound {
			m.log.Warnw("停止机器人失败", "sessionId", bot.ID, "error", err)
		}
	}
}
