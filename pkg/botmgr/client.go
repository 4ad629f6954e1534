package botmgr

import (
	"context"
)

// EventKind 协议客户端上报的事件类型
type EventKind string

const (
	// EventSpawn 机器人在世界中出生，连接就绪
	EventSpawn EventKind = "spawn"

	// EventChat 收到聊天消息
	EventChat EventKind = "chat"

	// EventHealth 生命值或饥饿值变化
	EventHealth EventKind = "health"

	// EventDeath 机器人死亡
	EventDeath EventKind = "death"

	// EventEnd 连接结束
	EventEnd EventKind = "end"

	// EventError 协议层错误
	EventError EventKind = "error"
)

// ClientEvent 协议客户端上报的一次事件，各字段按事件类型选择性填充
type ClientEvent struct {
	Kind     EventKind `json:"kind"`
	Username string    `json:"username,omitempty"` // chat: 发言者
	Message  string    `json:"message,omitempty"`  // chat: 消息内容
	Health   float64   `json:"health,omitempty"`   // health: 当前生命值
	Food     float64   `json:"food,omitempty"`     // health: 当前饥饿值
	Reason   string    `json:"reason,omitempty"`   // end: 断开原因
	Error    string    `json:"error,omitempty"`    // error: 错误信息
}

// ListenerHandle 事件监听器句柄，由会话持有并在停止时统一注销
type ListenerHandle uint64

// Client 是游戏协议客户端的抽象边界。
// 连接握手、数据包编解码等由具体实现负责，本包只依赖这里声明的
// 世界交互原语和事件回调。实现必须允许并发调用。
type Client interface {
	// On 注册事件监听器，返回可用于注销的句柄
	On(kind EventKind, fn func(ClientEvent)) ListenerHandle

	// Off 注销监听器，之后该回调不会再被调用
	Off(handle ListenerHandle)

	// Chat 原样发送一条聊天消息
	Chat(message string) error

	// GoTo 寻路移动到指定方块坐标，阻塞直到到达或寻路失败
	GoTo(ctx context.Context, x, y, z float64) error

	// Look 调整视角朝向
	Look(yaw, pitch float64) error

	// LookAt 看向指定坐标
	LookAt(x, y, z float64) error

	// Attack 攻击指定实体
	Attack(entityID int) error

	// Dig 挖掘指定坐标处的方块，阻塞直到完成
	Dig(ctx context.Context, pos Vec3) error

	// PlaceBlock 以手持物品对参考方块的指定面放置方块
	PlaceBlock(ctx context.Context, reference Vec3, face Vec3) error

	// Equip 将指定背包槽位的物品装备到手上
	Equip(slot int) error

	// GiveItem 特权（创造模式类）物品发放，返回发放到背包中的物品
	GiveItem(name string) (Item, error)

	// CanGiveItems 当前会话是否具备特权发放能力
	CanGiveItems() bool

	// BlockAt 查询指定坐标处的方块
	BlockAt(pos Vec3) (Block, error)

	// NearbyEntities 查询指定半径内的实体
	NearbyEntities(radius float64) ([]Entity, error)

	// NearbyBlocks 查询附近有代表性的非空气方块（用于环境观察）
	NearbyBlocks(radius int) ([]Block, error)

	// Inventory 返回当前背包内容
	Inventory() ([]Item, error)

	// KnownItemNames 返回注册表中全部已知方块/物品名称
	KnownItemNames() ([]string, error)

	// State 返回机器人的自身状态快照，仅在spawn之后有效
	State() (BotState, error)

	// Disconnect 优雅断开连接，随后强制结束底层进程/链接。
	// 调用后客户端不再可用。
	Disconnect()
}

// Dialer 创建协议客户端。Dial同步返回客户端对象，真正的连接在后台
// 进行，结果通过spawn/error/end事件上报；同步错误仅限于参数非法或
// 客户端本身无法启动。
type Dialer interface {
	Dial(config BotConfig) (Client, error)
}

// DialerFunc 便于用函数直接充当Dialer
type DialerFunc func(config BotConfig) (Client, error)

// Dial 实现Dialer接口
func (f DialerFunc) Dial(config BotConfig) (Client, error) {
	return f(config)
}
