package botmgr

import (
	"fmt"
)

// Command 是调度器可执行命令的封闭集合。
// 每个变体携带自己的强类型参数，松散的JSON参数只在ParseCommand
// 一处转换成类型化命令。
type Command interface {
	// Name 命令的规范名称
	Name() string

	isCommand()
}

// ChatCommand 发送聊天消息
type ChatCommand struct {
	Message string
}

// MoveCommand 寻路移动到指定方块坐标
type MoveCommand struct {
	X, Y, Z float64
}

// LookCommand 按偏航角/俯仰角调整视角
type LookCommand struct {
	Yaw, Pitch float64
}

// LookAtCommand 看向指定坐标
type LookAtCommand struct {
	X, Y, Z float64
}

// AttackCommand 攻击固定半径内最近的敌对实体
type AttackCommand struct{}

// DigCommand 挖掘指定坐标处的方块
type DigCommand struct {
	X, Y, Z float64
}

// DigHereCommand 挖掘面前的方块，目标由机器人朝向推算
type DigHereCommand struct{}

// DigBelowCommand 挖掘脚下的方块
type DigBelowCommand struct{}

// PlaceCommand 在指定坐标放置方块
type PlaceCommand struct {
	X, Y, Z   float64
	BlockName string
}

// PlaceHereCommand 在面前放置方块，目标由机器人朝向推算
type PlaceHereCommand struct {
	BlockName string
}

// PlaceBelowCommand 在脚下放置方块
type PlaceBelowCommand struct {
	BlockName string
}

// InventoryCommand 列出背包内容
type InventoryCommand struct{}

// StatusCommand 返回机器人完整状态
type StatusCommand struct{}

// ObserveCommand 观察周围环境并生成文字描述
type ObserveCommand struct{}

// RememberCommand 在会话记忆中存储键值对
type RememberCommand struct {
	Key, Value string
}

// RecallCommand 读取会话记忆，Key为空时返回全部条目
type RecallCommand struct {
	Key string
}

func (ChatCommand) Name() string       { return "chat" }
func (MoveCommand) Name() string       { return "move" }
func (LookCommand) Name() string       { return "look" }
func (LookAtCommand) Name() string     { return "lookAt" }
func (AttackCommand) Name() string     { return "attack" }
func (DigCommand) Name() string        { return "dig" }
func (DigHereCommand) Name() string    { return "digHere" }
func (DigBelowCommand) Name() string   { return "digBelow" }
func (PlaceCommand) Name() string      { return "place" }
func (PlaceHereCommand) Name() string  { return "placeHere" }
func (PlaceBelowCommand) Name() string { return "placeBelow" }
func (InventoryCommand) Name() string  { return "inventory" }
func (StatusCommand) Name() string     { return "status" }
func (ObserveCommand) Name() string    { return "observe" }
func (RememberCommand) Name() string   { return "remember" }
func (RecallCommand) Name() string     { return "recall" }

func (ChatCommand) isCommand()       {}
func (MoveCommand) isCommand()       {}
func (LookCommand) isCommand()       {}
func (LookAtCommand) isCommand()     {}
func (AttackCommand) isCommand()     {}
func (DigCommand) isCommand()        {}
func (DigHereCommand) isCommand()    {}
func (DigBelowCommand) isCommand()   {}
func (PlaceCommand) isCommand()      {}
func (PlaceHereCommand) isCommand()  {}
func (PlaceBelowCommand) isCommand() {}
func (InventoryCommand) isCommand()  {}
func (StatusCommand) isCommand()     {}
func (ObserveCommand) isCommand()    {}
func (RememberCommand) isCommand()   {}
func (RecallCommand) isCommand()     {}

// ParseCommand 把命令名和松散参数转换成类型化命令。
// 所有必填参数的缺失和类型错误都在这里拒绝，调度器收到的
// 命令保证参数完整。
func ParseCommand(name string, args map[string]any) (Command, error) {
	switch name {
	case "chat":
		msg, ok := stringArg(args, "message")
		if !ok || msg == "" {
			return nil, fmt.Errorf("message is required for chat command")
		}
		return ChatCommand{Message: msg}, nil

	case "move", "moveTo":
		x, y, z, err := coordArgs(args)
		if err != nil {
			return nil, fmt.Errorf("coordinates (x, y, z) are required for move command: %w", err)
		}
		return MoveCommand{X: x, Y: y, Z: z}, nil

	case "look":
		yaw, hasYaw := floatArg(args, "yaw")
		pitch, hasPitch := floatArg(args, "pitch")
		if !hasYaw && !hasPitch {
			return nil, fmt.Errorf("yaw or pitch is required for look command")
		}
		return LookCommand{Yaw: yaw, Pitch: pitch}, nil

	case "lookAt":
		x, y, z, err := coordArgs(args)
		if err != nil {
			return nil, fmt.Errorf("coordinates (x, y, z) are required for lookAt command: %w", err)
		}
		return LookAtCommand{X: x, Y: y, Z: z}, nil

	case "attack":
		return AttackCommand{}, nil

	case "dig":
		x, y, z, err := coordArgs(args)
		if err != nil {
			return nil, fmt.Errorf("coordinates (x, y, z) are required for dig command: %w", err)
		}
		return DigCommand{X: x, Y: y, Z: z}, nil

	case "digHere":
		return DigHereCommand{}, nil

	case "digBelow":
		return DigBelowCommand{}, nil

	case "place":
		x, y, z, err := coordArgs(args)
		if err != nil {
			return nil, fmt.Errorf("coordinates (x, y, z) are required for place command: %w", err)
		}
		blockName, ok := stringArg(args, "blockName")
		if !ok || blockName == "" {
			return nil, fmt.Errorf("blockName is required for place command")
		}
		return PlaceCommand{X: x, Y: y, Z: z, BlockName: blockName}, nil

	case "placeHere":
		blockName, ok := stringArg(args, "blockName")
		if !ok || blockName == "" {
			return nil, fmt.Errorf("blockName is required for placeHere command")
		}
		return PlaceHereCommand{BlockName: blockName}, nil

	case "placeBelow":
		blockName, ok := stringArg(args, "blockName")
		if !ok || blockName == "" {
			return nil, fmt.Errorf("blockName is required for placeBelow command")
		}
		return PlaceBelowCommand{BlockName: blockName}, nil

	case "inventory":
		return InventoryCommand{}, nil

	case "status":
		return StatusCommand{}, nil

	case "observe":
		return ObserveCommand{}, nil

	case "remember":
		key, ok := stringArg(args, "key")
		if !ok || key == "" {
			return nil, fmt.Errorf("key is required for remember command")
		}
		value, ok := stringArg(args, "value")
		if !ok {
			return nil, fmt.Errorf("value is required for remember command")
		}
		return RememberCommand{Key: key, Value: value}, nil

	case "recall":
		key, _ := stringArg(args, "key")
		return RecallCommand{Key: key}, nil

	default:
		return nil, fmt.Errorf("unknown command: %s", name)
	}
}

func stringArg(args map[string]any, key string) (string, bool) {
	if args == nil {
		return "", false
	}
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// floatArg 读取数值参数。JSON解析出的数字是float64，
// 也接受int以便测试和内部调用直接传参。
func floatArg(args map[string]any, key string) (float64, bool) {
	if args == nil {
		return 0, false
	}
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func coordArgs(args map[string]any) (x, y, z float64, err error) {
	x, okX := floatArg(args, "x")
	y, okY := floatArg(args, "y")
	z, okZ := floatArg(args, "z")
	if !okX || !okY || !okZ {
		return 0, 0, 0, fmt.Errorf("x, y and z must all be numbers")
	}
	return x, y, z, nil
}
