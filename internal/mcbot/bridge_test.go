package mcbot

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"city.newnan/craft-console/pkg/botmgr"
)

// fakeAgent 管道另一端的代理进程替身，记录收到的调用
type fakeAgent struct {
	mu    sync.Mutex
	calls map[string]json.RawMessage
	conn  *jsonrpc2.Conn
	state botmgr.BotState
}

func (a *fakeAgent) handle(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	a.mu.Lock()
	if req.Params != nil {
		a.calls[req.Method] = *req.Params
	} else {
		a.calls[req.Method] = nil
	}
	a.mu.Unlock()

	switch req.Method {
	case "state":
		return a.state, nil
	case "inventory":
		return []botmgr.Item{{Name: "torch", Count: 5, Slot: 0}}, nil
	case "canGiveItems":
		return true, nil
	default:
		return nil, nil
	}
}

func (a *fakeAgent) received(method string) (json.RawMessage, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	params, ok := a.calls[method]
	return params, ok
}

// newTestBridge 用net.Pipe代替子进程stdio搭建桥接环境
func newTestBridge(t *testing.T) (*bridge, *fakeAgent) {
	t.Helper()

	clientSide, agentSide := net.Pipe()

	b := &bridge{
		listeners: make(map[botmgr.ListenerHandle]listenerEntry),
		log:       zap.NewNop().Sugar(),
	}
	b.conn = jsonrpc2.NewConn(context.Background(),
		jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.PlainObjectCodec{}),
		jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(b.handle)))

	agent := &fakeAgent{
		calls: make(map[string]json.RawMessage),
		state: botmgr.BotState{Username: "TestBot", Position: botmgr.Vec3{X: 1, Y: 64, Z: 2}, Health: 20},
	}
	agent.conn = jsonrpc2.NewConn(context.Background(),
		jsonrpc2.NewBufferedStream(agentSide, jsonrpc2.PlainObjectCodec{}),
		jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(agent.handle)))

	t.Cleanup(func() {
		b.conn.Close()
		agent.conn.Close()
	})
	return b, agent
}

func TestBridgeChatCall(t *testing.T) {
	b, agent := newTestBridge(t)

	require.NoError(t, b.Chat("hello"))

	params, ok := agent.received("chat")
	require.True(t, ok)
	var got map[string]string
	require.NoError(t, json.Unmarshal(params, &got))
	assert.Equal(t, "hello", got["message"])
}

func TestBridgeStateRoundTrip(t *testing.T) {
	b, _ := newTestBridge(t)

	state, err := b.State()
	require.NoError(t, err)
	assert.Equal(t, "TestBot", state.Username)
	assert.Equal(t, botmgr.Vec3{X: 1, Y: 64, Z: 2}, state.Position)
	assert.Equal(t, 20.0, state.Health)
}

func TestBridgeInventoryRoundTrip(t *testing.T) {
	b, _ := newTestBridge(t)

	items, err := b.Inventory()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "torch", items[0].Name)
	assert.True(t, b.CanGiveItems())
}

func TestBridgeDigCoordinates(t *testing.T) {
	b, agent := newTestBridge(t)

	require.NoError(t, b.Dig(context.Background(), botmgr.Vec3{X: 3, Y: 62, Z: -4}))

	params, ok := agent.received("dig")
	require.True(t, ok)
	var got coordParams
	require.NoError(t, json.Unmarshal(params, &got))
	assert.Equal(t, coordParams{X: 3, Y: 62, Z: -4}, got)
}

func TestBridgeEventDispatch(t *testing.T) {
	b, agent := newTestBridge(t)

	events := make(chan botmgr.ClientEvent, 1)
	b.On(botmgr.EventChat, func(e botmgr.ClientEvent) { events <- e })

	err := agent.conn.Notify(context.Background(), "event",
		botmgr.ClientEvent{Kind: botmgr.EventChat, Username: "Steve", Message: "hi"})
	require.NoError(t, err)

	select {
	case evt := <-events:
		assert.Equal(t, "Steve", evt.Username)
		assert.Equal(t, "hi", evt.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not dispatched")
	}
}

func TestBridgeOffStopsDispatch(t *testing.T) {
	b, agent := newTestBridge(t)

	events := make(chan botmgr.ClientEvent, 1)
	handle := b.On(botmgr.EventChat, func(e botmgr.ClientEvent) { events <- e })
	b.Off(handle)

	require.NoError(t, agent.conn.Notify(context.Background(), "event",
		botmgr.ClientEvent{Kind: botmgr.EventChat, Message: "hi"}))

	select {
	case <-events:
		t.Fatal("listener should have been removed")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestBridgeKindFiltering(t *testing.T) {
	b, agent := newTestBridge(t)

	chats := make(chan botmgr.ClientEvent, 2)
	b.On(botmgr.EventChat, func(e botmgr.ClientEvent) { chats <- e })

	require.NoError(t, agent.conn.Notify(context.Background(), "event",
		botmgr.ClientEvent{Kind: botmgr.EventHealth, Health: 10}))
	require.NoError(t, agent.conn.Notify(context.Background(), "event",
		botmgr.ClientEvent{Kind: botmgr.EventChat, Message: "after"}))

	select {
	case evt := <-chats:
		assert.Equal(t, "after", evt.Message, "health event must not reach chat listener")
	case <-time.After(2 * time.Second):
		t.Fatal("chat event was not dispatched")
	}
}

func TestDisconnectReapsAgentProcessOnce(t *testing.T) {
	log := zap.NewNop().Sugar()
	d, err := NewDialer("cat", time.Second, log)
	require.NoError(t, err)

	client, err := d.Dial(botmgr.BotConfig{Host: "localhost", Port: 25565, Username: "TestBot"})
	require.NoError(t, err)

	var mu sync.Mutex
	ended := false
	client.On(botmgr.EventEnd, func(botmgr.ClientEvent) {
		mu.Lock()
		ended = true
		mu.Unlock()
	})

	// 关闭连接后cat收到EOF自行退出，Disconnect在宽限期内返回，
	// 不会对同一进程重复Wait
	done := make(chan struct{})
	go func() {
		client.Disconnect()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(killGrace + 2*time.Second):
		t.Fatal("Disconnect did not return after agent exit")
	}

	// 主动断开的会话不再上报end事件
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, ended)
}
