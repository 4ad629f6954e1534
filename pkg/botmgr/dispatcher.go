package botmgr

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// attackRadius 攻击命令搜索敌对实体的固定半径
const attackRadius = 4.0

// observeRadius 环境观察的搜索半径
const observeRadius = 16

// errBotNotAvailable 连接缺失或已销毁时所有命令共用的错误文案
const errBotNotAvailable = "Bot not available"

// Dispatcher 把类型化命令执行到指定会话的活动连接上，
// 返回统一的CommandResult。底层协议调用抛出的任何错误都在
// 这里被捕获并写入结果，不会向调用方传播故障。
type Dispatcher struct {
	manager *Manager
	log     *zap.SugaredLogger
}

// NewDispatcher 创建命令调度器
func NewDispatcher(manager *Manager, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{manager: manager, log: log}
}

// Execute 对一个会话执行一条命令。
// 会话不存在或连接缺失时返回失败结果而非错误。
func (d *Dispatcher) Execute(ctx context.Context, botID string, cmd Command) CommandResult {
	bot, err := d.manager.GetBot(botID)
	if err != nil {
		return resultErr("%s", errBotNotAvailable)
	}
	client := bot.Connection()
	if client == nil {
		return resultErr("%s", errBotNotAvailable)
	}

	// 无论命令成败都刷新活跃时间
	bot.touch()
	return d.run(ctx, bot, client, cmd)
}

func (d *Dispatcher) run(ctx context.Context, bot *ManagedBot, client Client, cmd Command) CommandResult {
	switch c := cmd.(type) {
	case ChatCommand:
		if err := client.Chat(c.Message); err != nil {
			return resultErr("%s", err.Error())
		}
		return resultOK(nil)

	case MoveCommand:
		if err := client.GoTo(ctx, c.X, c.Y, c.Z); err != nil {
			return resultErr("%s", err.Error())
		}
		return resultOK(map[string]any{"position": Vec3{X: c.X, Y: c.Y, Z: c.Z}})

	case LookCommand:
		if err := client.Look(c.Yaw, c.Pitch); err != nil {
			return resultErr("%s", err.Error())
		}
		return resultOK(nil)

	case LookAtCommand:
		if err := client.LookAt(c.X, c.Y, c.Z); err != nil {
			return resultErr("%s", err.Error())
		}
		return resultOK(nil)

	case AttackCommand:
		return d.attack(client)

	case DigCommand:
		return d.dig(ctx, client, Vec3{X: c.X, Y: c.Y, Z: c.Z})

	case DigHereCommand:
		target, err := facingTarget(client)
		if err != nil {
			return resultErr("%s", err.Error())
		}
		return d.dig(ctx, client, target)

	case DigBelowCommand:
		target, err := belowTarget(client)
		if err != nil {
			return resultErr("%s", err.Error())
		}
		return d.dig(ctx, client, target)

	case PlaceCommand:
		return d.place(ctx, client, Vec3{X: c.X, Y: c.Y, Z: c.Z}, c.BlockName)

	case PlaceHereCommand:
		target, err := facingTarget(client)
		if err != nil {
			return resultErr("%s", err.Error())
		}
		return d.place(ctx, client, target, c.BlockName)

	case PlaceBelowCommand:
		target, err := belowTarget(client)
		if err != nil {
			return resultErr("%s", err.Error())
		}
		return d.place(ctx, client, target, c.BlockName)

	case InventoryCommand:
		items, err := client.Inventory()
		if err != nil {
			return resultErr("%s", err.Error())
		}
		return resultOK(map[string]any{"items": items})

	case StatusCommand:
		state, err := client.State()
		if err != nil {
			return resultErr("%s", err.Error())
		}
		return resultOK(map[string]any{
			"username":   state.Username,
			"position":   state.Position,
			"health":     state.Health,
			"food":       state.Food,
			"experience": state.Experience,
			"dimension":  state.Dimension,
			"gameMode":   state.GameMode,
			"timeOfDay":  state.TimeOfDay,
			"weather":    state.Weather,
		})

	case ObserveCommand:
		return d.observe(client)

	case RememberCommand:
		bot.Remember(c.Key, c.Value)
		return resultOK(map[string]any{"remembered": c.Key})

	case RecallCommand:
		if c.Key == "" {
			return resultOK(map[string]any{"memory": bot.RecallAll()})
		}
		value, ok := bot.Recall(c.Key)
		if !ok {
			return resultErr("Nothing remembered under key '%s'", c.Key)
		}
		return resultOK(map[string]any{"key": c.Key, "value": value})

	default:
		return resultErr("unknown command: %s", cmd.Name())
	}
}

// attack 查找固定半径内最近的敌对实体并攻击。
// 没有目标不是故障，返回显式的"no target"错误结果。
func (d *Dispatcher) attack(client Client) CommandResult {
	entities, err := client.NearbyEntities(attackRadius)
	if err != nil {
		return resultErr("%s", err.Error())
	}

	state, err := client.State()
	if err != nil {
		return resultErr("%s", err.Error())
	}

	var target *Entity
	best := math.MaxFloat64
	for i, e := range entities {
		if e.Kind != "hostile" {
			continue
		}
		dist := state.Position.DistanceTo(e.Position)
		if dist < attackRadius && dist < best {
			best = dist
			target = &entities[i]
		}
	}

	if target == nil {
		return resultErr("No nearby entities to attack")
	}
	if err := client.Attack(target.ID); err != nil {
		return resultErr("%s", err.Error())
	}
	return resultOK(map[string]any{"attacked": target.Name})
}

// dig 解析目标坐标处的方块并挖掘。
// 目标是空气时不触发底层挖掘操作，直接返回显式错误。
func (d *Dispatcher) dig(ctx context.Context, client Client, target Vec3) CommandResult {
	target = target.Floor()
	block, err := client.BlockAt(target)
	if err != nil {
		return resultErr("%s", err.Error())
	}
	if block.IsAir() {
		return resultErr("No block to dig at that location")
	}
	if err := client.Dig(ctx, target); err != nil {
		return resultErr("%s", err.Error())
	}
	return resultOK(map[string]any{"dug": block.Name, "position": target})
}

// placeFaces 寻找放置参考方块时的固定优先顺序：
// 下、东、西、南、北、上
var placeFaces = []Vec3{
	{X: 0, Y: -1, Z: 0},
	{X: 1, Y: 0, Z: 0},
	{X: -1, Y: 0, Z: 0},
	{X: 0, Y: 0, Z: 1},
	{X: 0, Y: 0, Z: -1},
	{X: 0, Y: 1, Z: 0},
}

// place 解析可放置物品、装备到手上、寻找相邻实体方块作为参考面，
// 然后对该面放置新方块。
func (d *Dispatcher) place(ctx context.Context, client Client, target Vec3, blockName string) CommandResult {
	target = target.Floor()

	item, err := d.resolvePlaceableItem(client, blockName)
	if err != nil {
		return resultErr("%s", err.Error())
	}

	if err := client.Equip(item.Slot); err != nil {
		return resultErr("%s", err.Error())
	}

	var reference *Block
	for _, face := range placeFaces {
		block, err := client.BlockAt(target.Offset(face.X, face.Y, face.Z))
		if err != nil {
			continue
		}
		if !block.IsAir() && block.Solid {
			reference = &block
			break
		}
	}
	if reference == nil {
		return resultErr("No adjacent block to place against")
	}

	face := target.Sub(reference.Position)
	if err := client.PlaceBlock(ctx, reference.Position, face); err != nil {
		return resultErr("%s", err.Error())
	}
	return resultOK(map[string]any{"placed": item.Name, "position": target, "against": reference.Name})
}

// resolvePlaceableItem 方块名称解析算法：
// 规范化小写后先在已知注册表中做精确匹配（普通与命名空间形式），
// 再做双向子串匹配；仍未命中则用同样的规则搜索背包；最后尝试
// 特权物品发放。全部失败时列出背包中实际可用的物品名。
func (d *Dispatcher) resolvePlaceableItem(client Client, blockName string) (Item, error) {
	requested := strings.ToLower(strings.TrimSpace(blockName))

	canonical := ""
	if names, err := client.KnownItemNames(); err == nil {
		canonical = matchKnownName(names, requested)
	}

	items, err := client.Inventory()
	if err != nil {
		return Item{}, err
	}

	// 优先用注册表解析出的规范名搜索背包，找不到再退回原始请求名
	for _, candidate := range []string{canonical, requested} {
		if candidate == "" {
			continue
		}
		if item, ok := matchInventory(items, candidate); ok {
			return item, nil
		}
	}

	if canonical != "" && client.CanGiveItems() {
		item, err := client.GiveItem(canonical)
		if err == nil {
			return item, nil
		}
		d.log.Warnw("特权物品发放失败", "item", canonical, "error", err)
	}

	available := make([]string, 0, len(items))
	for _, it := range items {
		available = append(available, it.Name)
	}
	sort.Strings(available)
	if len(available) == 0 {
		return Item{}, fmt.Errorf("Block '%s' not found and inventory is empty", blockName)
	}
	return Item{}, fmt.Errorf("Block '%s' not found. Available items: %s", blockName, strings.Join(available, ", "))
}

// matchKnownName 在注册表名称中解析规范名
func matchKnownName(names []string, requested string) string {
	stripped := strings.TrimPrefix(requested, "minecraft:")

	// 精确匹配：普通形式与命名空间形式
	for _, name := range names {
		lower := strings.ToLower(name)
		if lower == requested || lower == stripped || lower == "minecraft:"+stripped {
			return name
		}
	}

	// 双向子串匹配
	for _, name := range names {
		lower := strings.ToLower(name)
		if strings.Contains(lower, stripped) || strings.Contains(stripped, lower) {
			return name
		}
	}
	return ""
}

// matchInventory 用精确/子串规则在背包中搜索物品，
// 同时比较内部名称和显示名称
func matchInventory(items []Item, requested string) (Item, bool) {
	for _, it := range items {
		if strings.EqualFold(it.Name, requested) || strings.EqualFold(it.DisplayName, requested) {
			return it, true
		}
	}
	for _, it := range items {
		name := strings.ToLower(it.Name)
		display := strings.ToLower(it.DisplayName)
		if strings.Contains(name, requested) || strings.Contains(requested, name) ||
			(display != "" && strings.Contains(display, requested)) {
			return it, true
		}
	}
	return Item{}, false
}

// observe 汇总附近方块、实体和背包，生成一段简短的文字描述
func (d *Dispatcher) observe(client Client) CommandResult {
	state, err := client.State()
	if err != nil {
		return resultErr("%s", err.Error())
	}

	blocks, err := client.NearbyBlocks(observeRadius)
	if err != nil {
		return resultErr("%s", err.Error())
	}
	entities, err := client.NearbyEntities(observeRadius)
	if err != nil {
		return resultErr("%s", err.Error())
	}
	items, err := client.Inventory()
	if err != nil {
		return resultErr("%s", err.Error())
	}

	blockCounts := make(map[string]int)
	for _, b := range blocks {
		blockCounts[b.Name]++
	}
	blockNames := make([]string, 0, len(blockCounts))
	for name := range blockCounts {
		blockNames = append(blockNames, name)
	}
	sort.Strings(blockNames)

	entityNames := make([]string, 0, len(entities))
	for _, e := range entities {
		entityNames = append(entityNames, e.Name)
	}
	sort.Strings(entityNames)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Standing at (%.0f, %.0f, %.0f) in %s.",
		state.Position.X, state.Position.Y, state.Position.Z, state.Dimension)
	if len(blockNames) > 0 {
		fmt.Fprintf(&sb, " Nearby blocks: %s.", strings.Join(blockNames, ", "))
	}
	if len(entityNames) > 0 {
		fmt.Fprintf(&sb, " Nearby entities: %s.", strings.Join(entityNames, ", "))
	} else {
		sb.WriteString(" No entities nearby.")
	}
	fmt.Fprintf(&sb, " Carrying %d item stacks.", len(items))

	return resultOK(map[string]any{
		"description": sb.String(),
		"blocks":      blocks,
		"entities":    entities,
		"inventory":   items,
	})
}

// facingTarget 根据机器人位置与偏航角推算面前的方块坐标
func facingTarget(client Client) (Vec3, error) {
	state, err := client.State()
	if err != nil {
		return Vec3{}, err
	}
	dx := -math.Sin(state.Yaw)
	dz := -math.Cos(state.Yaw)

	// 取主导分量对应的整格偏移
	offset := Vec3{}
	if math.Abs(dx) >= math.Abs(dz) {
		offset.X = math.Copysign(1, dx)
	} else {
		offset.Z = math.Copysign(1, dz)
	}
	return state.Position.Floor().Offset(offset.X, 0, offset.Z), nil
}

// belowTarget 机器人脚下的方块坐标
func belowTarget(client Client) (Vec3, error) {
	state, err := client.State()
	if err != nil {
		return Vec3{}, err
	}
	return state.Position.Floor().Offset(0, -1, 0), nil
}
