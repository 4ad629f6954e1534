package botmgr

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// BotStatus 表示机器人会话的生命周期状态
type BotStatus string

const (
	// StatusConnecting 已创建会话，正在连接服务器
	StatusConnecting BotStatus = "connecting"

	// StatusConnected 已收到spawn确认，连接可用
	StatusConnected BotStatus = "connected"

	// StatusDisconnected 连接已结束
	StatusDisconnected BotStatus = "disconnected"

	// StatusError 发生致命错误，会话保留以供检查
	StatusError BotStatus = "error"
)

// 包级错误，供API层映射到HTTP状态码
var (
	// ErrBotNotFound 指定的会话不存在
	ErrBotNotFound = errors.New("bot not found")

	// ErrTooManyBots 超过最大并发会话数量限制
	ErrTooManyBots = errors.New("too many concurrent bots")

	// ErrCompletionUnavailable LLM服务不可达
	ErrCompletionUnavailable = errors.New("AI service unavailable")

	// ErrBadAIResponse LLM返回的命令批次无法解析
	ErrBadAIResponse = errors.New("invalid AI response format")
)

// BotConfig 创建机器人所需的服务器描述信息，会话创建后不可变更
type BotConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	Version  string `json:"version,omitempty"`
}

// Validate 校验必填字段
func (c *BotConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Username == "" {
		return errors.New("username is required")
	}
	return nil
}

// Vec3 世界坐标
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Offset 返回偏移后的新坐标
func (v Vec3) Offset(dx, dy, dz float64) Vec3 {
	return Vec3{X: v.X + dx, Y: v.Y + dy, Z: v.Z + dz}
}

// Sub 返回 v - o
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Floor 对三个分量分别向下取整，用于定位方块坐标
func (v Vec3) Floor() Vec3 {
	return Vec3{X: math.Floor(v.X), Y: math.Floor(v.Y), Z: math.Floor(v.Z)}
}

// DistanceTo 计算到另一坐标的欧氏距离
func (v Vec3) DistanceTo(o Vec3) float64 {
	d := v.Sub(o)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

// Block 世界中的一个方块
type Block struct {
	Name     string `json:"name"`
	Position Vec3   `json:"position"`
	Solid    bool   `json:"solid"`
}

// IsAir 判断方块是否为空气（不可交互）
func (b Block) IsAir() bool {
	return b.Name == "" || b.Name == "air" || b.Name == "cave_air" || b.Name == "void_air"
}

// Entity 世界中的一个实体
type Entity struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"` // hostile / passive / player / other
	Position Vec3   `json:"position"`
}

// Item 背包中的一个物品
type Item struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Count       int    `json:"count"`
	Slot        int    `json:"slot"`
}

// Experience 经验信息
type Experience struct {
	Level    int     `json:"level"`
	Points   int     `json:"points"`
	Progress float64 `json:"progress"`
}

// BotState 协议客户端上报的机器人自身状态快照
type BotState struct {
	Username   string     `json:"username"`
	Position   Vec3       `json:"position"`
	Yaw        float64    `json:"yaw"`
	Pitch      float64    `json:"pitch"`
	Health     float64    `json:"health"`
	Food       float64    `json:"food"`
	Experience Experience `json:"experience"`
	Dimension  string     `json:"dimension"`
	GameMode   string     `json:"gameMode"`
	TimeOfDay  int64      `json:"timeOfDay"`
	Weather    string     `json:"weather"`
}

// BotSnapshot 面向API和WebSocket层的会话状态摘要
type BotSnapshot struct {
	SessionID    string    `json:"sessionId"`
	Status       BotStatus `json:"status"`
	Connected    bool      `json:"connected"`
	Health       float64   `json:"health"`
	Food         float64   `json:"food"`
	Position     *Vec3     `json:"position"`
	Dimension    string    `json:"dimension,omitempty"`
	ServerInfo   BotConfig `json:"serverInfo"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	LastError    string    `json:"lastError,omitempty"`
}

// CommandResult 所有调度器命令统一返回的结果信封
type CommandResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// resultOK 构造成功结果
func resultOK(data any) CommandResult {
	return CommandResult{Success: true, Data: data}
}

// resultErr 构造失败结果
func resultErr(format string, args ...any) CommandResult {
	return CommandResult{Success: false, Error: fmt.Sprintf(format, args...)}
}
