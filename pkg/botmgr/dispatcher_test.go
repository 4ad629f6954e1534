package botmgr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestDispatcher 启动一个带单个fake客户端的调度环境
func newTestDispatcher(t *testing.T, client *fakeClient) (*Dispatcher, string) {
	t.Helper()
	m, _ := newTestManager(t, client)
	id, err := m.StartBot(testConfig())
	require.NoError(t, err)
	client.emit(ClientEvent{Kind: EventSpawn})
	return NewDispatcher(m, zap.NewNop().Sugar()), id
}

func TestExecuteUnknownSession(t *testing.T) {
	m, _ := newTestManager(t)
	d := NewDispatcher(m, zap.NewNop().Sugar())

	res := d.Execute(context.Background(), "nope", ChatCommand{Message: "hi"})
	assert.False(t, res.Success)
	assert.Equal(t, "Bot not available", res.Error)
}

func TestExecuteChat(t *testing.T) {
	client := newFakeClient()
	d, id := newTestDispatcher(t, client)

	res := d.Execute(context.Background(), id, ChatCommand{Message: "hello world"})
	assert.True(t, res.Success)
	assert.Equal(t, []string{"hello world"}, client.chats)
}

func TestExecuteMove(t *testing.T) {
	client := newFakeClient()
	d, id := newTestDispatcher(t, client)

	res := d.Execute(context.Background(), id, MoveCommand{X: 10, Y: 64, Z: -5})
	require.True(t, res.Success)
	assert.Equal(t, []Vec3{{X: 10, Y: 64, Z: -5}}, client.moves)
}

func TestExecuteTouchesActivityOnFailure(t *testing.T) {
	client := newFakeClient()
	m, _ := newTestManager(t, client)
	id, err := m.StartBot(testConfig())
	require.NoError(t, err)
	client.emit(ClientEvent{Kind: EventSpawn})
	d := NewDispatcher(m, zap.NewNop().Sugar())

	bot, err := m.GetBot(id)
	require.NoError(t, err)
	before := bot.Snapshot().LastActivity

	// 失败的命令同样算作出站活动
	time.Sleep(5 * time.Millisecond)
	res := d.Execute(context.Background(), id, DigCommand{X: 1, Y: 64, Z: 1})
	require.False(t, res.Success)

	assert.True(t, bot.Snapshot().LastActivity.After(before))
}

func TestDigAirDoesNotInvokeDig(t *testing.T) {
	client := newFakeClient()
	d, id := newTestDispatcher(t, client)

	res := d.Execute(context.Background(), id, DigCommand{X: 1, Y: 64, Z: 1})
	assert.False(t, res.Success)
	assert.Equal(t, "No block to dig at that location", res.Error)
	assert.Empty(t, client.digs, "dig must not be attempted on air")
}

func TestDigSolidBlock(t *testing.T) {
	client := newFakeClient()
	target := Vec3{X: 1, Y: 63, Z: 1}
	client.blocks[target] = Block{Name: "stone", Position: target, Solid: true}
	d, id := newTestDispatcher(t, client)

	// 非整数坐标向下取整到方块坐标
	res := d.Execute(context.Background(), id, DigCommand{X: 1.7, Y: 63.2, Z: 1.9})
	require.True(t, res.Success)
	assert.Equal(t, []Vec3{target}, client.digs)
}

func TestAttackNoTarget(t *testing.T) {
	client := newFakeClient()
	client.state.Position = Vec3{X: 0, Y: 64, Z: 0}
	// 友好实体和半径外的敌对实体都不是目标
	client.entities = []Entity{
		{ID: 1, Name: "cow", Kind: "passive", Position: Vec3{X: 1, Y: 64, Z: 0}},
		{ID: 2, Name: "zombie", Kind: "hostile", Position: Vec3{X: 10, Y: 64, Z: 0}},
	}
	d, id := newTestDispatcher(t, client)

	res := d.Execute(context.Background(), id, AttackCommand{})
	assert.False(t, res.Success)
	assert.Equal(t, "No nearby entities to attack", res.Error)
	assert.Empty(t, client.attacks)
}

func TestAttackNearestHostile(t *testing.T) {
	client := newFakeClient()
	client.state.Position = Vec3{X: 0, Y: 64, Z: 0}
	client.entities = []Entity{
		{ID: 7, Name: "skeleton", Kind: "hostile", Position: Vec3{X: 3, Y: 64, Z: 0}},
		{ID: 8, Name: "zombie", Kind: "hostile", Position: Vec3{X: 1, Y: 64, Z: 0}},
	}
	d, id := newTestDispatcher(t, client)

	res := d.Execute(context.Background(), id, AttackCommand{})
	require.True(t, res.Success)
	assert.Equal(t, []int{8}, client.attacks, "nearest hostile wins")
}

func TestPlaceNoAdjacentBlock(t *testing.T) {
	client := newFakeClient()
	client.items = []Item{{Name: "dirt", Count: 64, Slot: 3}}
	d, id := newTestDispatcher(t, client)

	res := d.Execute(context.Background(), id, PlaceCommand{X: 5, Y: 70, Z: 5, BlockName: "dirt"})
	assert.False(t, res.Success)
	assert.Equal(t, "No adjacent block to place against", res.Error)
}

func TestPlaceAgainstBlockBelow(t *testing.T) {
	client := newFakeClient()
	client.items = []Item{{Name: "dirt", Count: 64, Slot: 3}}
	below := Vec3{X: 5, Y: 69, Z: 5}
	client.blocks[below] = Block{Name: "stone", Position: below, Solid: true}
	d, id := newTestDispatcher(t, client)

	res := d.Execute(context.Background(), id, PlaceCommand{X: 5, Y: 70, Z: 5, BlockName: "dirt"})
	require.True(t, res.Success, "unexpected error: %s", res.Error)

	assert.Equal(t, []int{3}, client.equips)
	require.Len(t, client.places, 1)
	assert.Equal(t, below, client.places[0].Reference)
	assert.Equal(t, Vec3{X: 0, Y: 1, Z: 0}, client.places[0].Face)
}

func TestPlaceResolvesSubstringMatch(t *testing.T) {
	client := newFakeClient()
	client.itemNames = []string{"oak_planks", "stone", "dirt"}
	client.items = []Item{{Name: "oak_planks", DisplayName: "Oak Planks", Count: 12, Slot: 1}}
	below := Vec3{X: 0, Y: -1, Z: 0}
	client.blocks[below] = Block{Name: "grass_block", Position: below, Solid: true}
	d, id := newTestDispatcher(t, client)

	res := d.Execute(context.Background(), id, PlaceCommand{X: 0, Y: 0, Z: 0, BlockName: "planks"})
	require.True(t, res.Success, "unexpected error: %s", res.Error)
	assert.Equal(t, []int{1}, client.equips)
}

func TestPlaceFallsBackToGiveItem(t *testing.T) {
	client := newFakeClient()
	client.itemNames = []string{"diamond_block"}
	client.canGive = true
	client.giveItem = Item{Name: "diamond_block", Count: 1, Slot: 0}
	below := Vec3{X: 0, Y: -1, Z: 0}
	client.blocks[below] = Block{Name: "stone", Position: below, Solid: true}
	d, id := newTestDispatcher(t, client)

	res := d.Execute(context.Background(), id, PlaceCommand{X: 0, Y: 0, Z: 0, BlockName: "diamond_block"})
	require.True(t, res.Success, "unexpected error: %s", res.Error)
	assert.Equal(t, []string{"diamond_block"}, client.given)
}

func TestPlaceUnknownBlockListsInventory(t *testing.T) {
	client := newFakeClient()
	client.items = []Item{
		{Name: "torch", Count: 5, Slot: 0},
		{Name: "cobblestone", Count: 32, Slot: 1},
	}
	d, id := newTestDispatcher(t, client)

	res := d.Execute(context.Background(), id, PlaceCommand{X: 0, Y: 0, Z: 0, BlockName: "netherite_block"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Block 'netherite_block' not found")
	assert.Contains(t, res.Error, "cobblestone, torch")
}

func TestDigBelow(t *testing.T) {
	client := newFakeClient()
	client.state.Position = Vec3{X: 2.3, Y: 64.0, Z: 7.8}
	below := Vec3{X: 2, Y: 63, Z: 7}
	client.blocks[below] = Block{Name: "grass_block", Position: below, Solid: true}
	d, id := newTestDispatcher(t, client)

	res := d.Execute(context.Background(), id, DigBelowCommand{})
	require.True(t, res.Success, "unexpected error: %s", res.Error)
	assert.Equal(t, []Vec3{below}, client.digs)
}

func TestStatusCommand(t *testing.T) {
	client := newFakeClient()
	client.state = BotState{
		Username:  "TestBot",
		Position:  Vec3{X: 1, Y: 64, Z: 2},
		Health:    18,
		Food:      16,
		Dimension: "overworld",
		GameMode:  "survival",
		Weather:   "clear",
	}
	d, id := newTestDispatcher(t, client)

	res := d.Execute(context.Background(), id, StatusCommand{})
	require.True(t, res.Success)
	data, ok := res.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "TestBot", data["username"])
	assert.Equal(t, 18.0, data["health"])
	assert.Equal(t, "overworld", data["dimension"])
}

func TestObserveDescription(t *testing.T) {
	client := newFakeClient()
	client.state = BotState{Position: Vec3{X: 10, Y: 64, Z: 20}, Dimension: "overworld"}
	client.blocks[Vec3{X: 9, Y: 63, Z: 20}] = Block{Name: "stone", Solid: true}
	client.items = []Item{{Name: "torch", Count: 5}}
	d, id := newTestDispatcher(t, client)

	res := d.Execute(context.Background(), id, ObserveCommand{})
	require.True(t, res.Success)
	data := res.Data.(map[string]any)
	desc := data["description"].(string)
	assert.Contains(t, desc, "Standing at (10, 64, 20) in overworld.")
	assert.Contains(t, desc, "stone")
	assert.Contains(t, desc, "No entities nearby.")
	assert.Contains(t, desc, "1 item stacks")
}

func TestRememberAndRecallCommands(t *testing.T) {
	client := newFakeClient()
	d, id := newTestDispatcher(t, client)

	res := d.Execute(context.Background(), id, RememberCommand{Key: "home", Value: "spawn point"})
	require.True(t, res.Success)

	res = d.Execute(context.Background(), id, RecallCommand{Key: "home"})
	require.True(t, res.Success)
	data := res.Data.(map[string]any)
	assert.Equal(t, "spawn point", data["value"])

	res = d.Execute(context.Background(), id, RecallCommand{Key: "nothing"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Nothing remembered under key 'nothing'")
}
