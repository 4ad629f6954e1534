package botmgr

import (
	"context"
	"errors"
	"sync"
)

// fakeClient 测试用的协议客户端替身，记录全部调用并允许注入
// 世界状态与事件
type fakeClient struct {
	mu        sync.Mutex
	next      ListenerHandle
	listeners map[ListenerHandle]fakeListener

	chats     []string
	moves     []Vec3
	digs      []Vec3
	places    []fakePlace
	equips    []int
	attacks   []int
	given     []string
	discarded bool

	state     BotState
	stateErr  error
	blocks    map[Vec3]Block
	entities  []Entity
	items     []Item
	itemNames []string
	canGive   bool
	giveItem  Item
	giveErr   error
	digErr    error
	chatErr   error
}

type fakeListener struct {
	kind EventKind
	fn   func(ClientEvent)
}

type fakePlace struct {
	Reference Vec3
	Face      Vec3
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		listeners: make(map[ListenerHandle]fakeListener),
		blocks:    make(map[Vec3]Block),
	}
}

// emit 模拟协议层上报一次事件
func (f *fakeClient) emit(evt ClientEvent) {
	f.mu.Lock()
	var fns []func(ClientEvent)
	for _, l := range f.listeners {
		if l.kind == evt.Kind {
			fns = append(fns, l.fn)
		}
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(evt)
	}
}

func (f *fakeClient) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *fakeClient) On(kind EventKind, fn func(ClientEvent)) ListenerHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.listeners[f.next] = fakeListener{kind: kind, fn: fn}
	return f.next
}

func (f *fakeClient) Off(handle ListenerHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.listeners, handle)
}

func (f *fakeClient) Chat(message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chatErr != nil {
		return f.chatErr
	}
	f.chats = append(f.chats, message)
	return nil
}

func (f *fakeClient) GoTo(_ context.Context, x, y, z float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, Vec3{X: x, Y: y, Z: z})
	f.state.Position = Vec3{X: x, Y: y, Z: z}
	return nil
}

func (f *fakeClient) Look(yaw, pitch float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Yaw = yaw
	f.state.Pitch = pitch
	return nil
}

func (f *fakeClient) LookAt(x, y, z float64) error { return nil }

func (f *fakeClient) Attack(entityID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attacks = append(f.attacks, entityID)
	return nil
}

func (f *fakeClient) Dig(_ context.Context, pos Vec3) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.digErr != nil {
		return f.digErr
	}
	f.digs = append(f.digs, pos)
	return nil
}

func (f *fakeClient) PlaceBlock(_ context.Context, reference Vec3, face Vec3) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.places = append(f.places, fakePlace{Reference: reference, Face: face})
	return nil
}

func (f *fakeClient) Equip(slot int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.equips = append(f.equips, slot)
	return nil
}

func (f *fakeClient) GiveItem(name string) (Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.giveErr != nil {
		return Item{}, f.giveErr
	}
	f.given = append(f.given, name)
	return f.giveItem, nil
}

func (f *fakeClient) CanGiveItems() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canGive
}

func (f *fakeClient) BlockAt(pos Vec3) (Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.blocks[pos]; ok {
		return b, nil
	}
	return Block{Name: "air", Position: pos}, nil
}

func (f *fakeClient) NearbyEntities(radius float64) ([]Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Entity(nil), f.entities...), nil
}

func (f *fakeClient) NearbyBlocks(radius int) ([]Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Block, 0, len(f.blocks))
	for _, b := range f.blocks {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeClient) Inventory() ([]Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Item(nil), f.items...), nil
}

func (f *fakeClient) KnownItemNames() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.itemNames...), nil
}

func (f *fakeClient) State() (BotState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stateErr != nil {
		return BotState{}, f.stateErr
	}
	return f.state, nil
}

func (f *fakeClient) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discarded = true
}

// fakeDialer 按顺序为每次Dial返回一个预置客户端
type fakeDialer struct {
	mu      sync.Mutex
	clients []*fakeClient
	dialed  int
	err     error
}

func (d *fakeDialer) Dial(config BotConfig) (Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	if d.dialed >= len(d.clients) {
		return nil, errors.New("no more fake clients")
	}
	c := d.clients[d.dialed]
	d.dialed++
	return c, nil
}
