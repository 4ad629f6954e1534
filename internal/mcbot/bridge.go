// Package mcbot 把游戏协议客户端的抽象边界接到一个外部的
// mineflayer代理进程上。桥接器启动代理子进程，通过其标准输入输出
// 以JSON-RPC 2.0通信：世界交互原语映射为RPC调用，协议事件以
// 通知的形式回传并分发给已注册的监听器。
package mcbot

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/zap"

	"city.newnan/craft-console/pkg/botmgr"
)

// callTimeout 普通RPC调用的超时；寻路、挖掘等长操作由调用方
// 通过context控制
const callTimeout = 10 * time.Second

// killGrace 优雅退出通知发出后，强制结束进程前的等待时间
const killGrace = 3 * time.Second

// Dialer 为每个会话启动一个代理子进程
type Dialer struct {
	agentCmd []string
	timeout  time.Duration
	log      *zap.SugaredLogger
}

// NewDialer 创建桥接Dialer。command是代理进程的启动命令行，
// 例如 "node agent/mineflayer-agent.js"。
func NewDialer(command string, connectTimeout time.Duration, log *zap.SugaredLogger) (*Dialer, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("agent command is empty")
	}
	return &Dialer{agentCmd: parts, timeout: connectTimeout, log: log}, nil
}

// Dial 启动代理进程并发出connect通知。连接在代理进程内
// 异步进行，结果通过spawn/error/end事件回传。
func (d *Dialer) Dial(config botmgr.BotConfig) (botmgr.Client, error) {
	cmd := exec.Command(d.agentCmd[0], d.agentCmd[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start agent process: %w", err)
	}

	b := &bridge{
		cmd:       cmd,
		listeners: make(map[botmgr.ListenerHandle]listenerEntry),
		log:       d.log.With("agentPid", cmd.Process.Pid),
	}

	// 代理进程的标准错误直接转发到日志
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			b.log.Debugw("代理进程输出", "line", scanner.Text())
		}
	}()

	stream := jsonrpc2.NewBufferedStream(stdioPipe{out: stdin, in: stdout}, jsonrpc2.PlainObjectCodec{})
	b.conn = jsonrpc2.NewConn(context.Background(), stream,
		jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(b.handle)))

	// 进程回收只在这一个协程里做：代理进程异常退出时上报end事件，
	// 避免会话永远停在connecting；Disconnect通过exited通道等待回收完成
	b.exited = make(chan struct{})
	go func() {
		<-b.conn.DisconnectNotify()
		cmd.Wait()
		close(b.exited)
		b.emit(botmgr.ClientEvent{Kind: botmgr.EventEnd, Reason: "agent process exited"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if err := b.conn.Notify(ctx, "connect", connectParams{
		Host:      config.Host,
		Port:      config.Port,
		Username:  config.Username,
		Password:  config.Password,
		Version:   config.Version,
		TimeoutMS: int(d.timeout / time.Millisecond),
	}); err != nil {
		b.Disconnect()
		return nil, fmt.Errorf("failed to send connect request: %w", err)
	}

	return b, nil
}

type listenerEntry struct {
	kind botmgr.EventKind
	fn   func(botmgr.ClientEvent)
}

// bridge 一个会话对应一个桥接器实例，独占一个代理进程
type bridge struct {
	cmd *exec.Cmd
	// exited 在代理进程被回收后关闭
	exited chan struct{}
	conn   *jsonrpc2.Conn
	log    *zap.SugaredLogger

	mu         sync.Mutex
	nextHandle botmgr.ListenerHandle
	listeners  map[botmgr.ListenerHandle]listenerEntry
	closed     bool
}

// RPC参数与结果的线上结构

type connectParams struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password,omitempty"`
	Version   string `json:"version,omitempty"`
	TimeoutMS int    `json:"timeoutMs"`
}

type coordParams struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type lookParams struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

type placeParams struct {
	Reference coordParams `json:"reference"`
	Face      coordParams `json:"face"`
}

type radiusParams struct {
	Radius float64 `json:"radius"`
}

type nameParams struct {
	Name string `json:"name"`
}

// handle 处理代理进程发来的请求，目前只有event通知
func (b *bridge) handle(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	if req.Method != "event" || !req.Notif {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "unknown method: " + req.Method}
	}
	if req.Params == nil {
		return nil, nil
	}

	var evt botmgr.ClientEvent
	if err := json.Unmarshal(*req.Params, &evt); err != nil {
		b.log.Warnw("无法解析代理事件", "error", err)
		return nil, nil
	}
	b.emit(evt)
	return nil, nil
}

// emit 把事件分发给匹配的监听器。先做快照再调用，
// 允许监听器在回调中注销自己。
func (b *bridge) emit(evt botmgr.ClientEvent) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	var targets []func(botmgr.ClientEvent)
	for _, entry := range b.listeners {
		if entry.kind == evt.Kind {
			targets = append(targets, entry.fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range targets {
		fn(evt)
	}
}

func (b *bridge) On(kind botmgr.EventKind, fn func(botmgr.ClientEvent)) botmgr.ListenerHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextHandle++
	b.listeners[b.nextHandle] = listenerEntry{kind: kind, fn: fn}
	return b.nextHandle
}

func (b *bridge) Off(handle botmgr.ListenerHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, handle)
}

// call 带默认超时的RPC调用
func (b *bridge) call(method string, params, result any) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return b.conn.Call(ctx, method, params, result)
}

func (b *bridge) Chat(message string) error {
	return b.call("chat", map[string]string{"message": message}, nil)
}

func (b *bridge) GoTo(ctx context.Context, x, y, z float64) error {
	return b.conn.Call(ctx, "goto", coordParams{X: x, Y: y, Z: z}, nil)
}

func (b *bridge) Look(yaw, pitch float64) error {
	return b.call("look", lookParams{Yaw: yaw, Pitch: pitch}, nil)
}

func (b *bridge) LookAt(x, y, z float64) error {
	return b.call("lookAt", coordParams{X: x, Y: y, Z: z}, nil)
}

func (b *bridge) Attack(entityID int) error {
	return b.call("attack", map[string]int{"entityId": entityID}, nil)
}

func (b *bridge) Dig(ctx context.Context, pos botmgr.Vec3) error {
	return b.conn.Call(ctx, "dig", coordParams{X: pos.X, Y: pos.Y, Z: pos.Z}, nil)
}

func (b *bridge) PlaceBlock(ctx context.Context, reference botmgr.Vec3, face botmgr.Vec3) error {
	return b.conn.Call(ctx, "placeBlock", placeParams{
		Reference: coordParams{X: reference.X, Y: reference.Y, Z: reference.Z},
		Face:      coordParams{X: face.X, Y: face.Y, Z: face.Z},
	}, nil)
}

func (b *bridge) Equip(slot int) error {
	return b.call("equip", map[string]int{"slot": slot}, nil)
}

func (b *bridge) GiveItem(name string) (botmgr.Item, error) {
	var item botmgr.Item
	err := b.call("giveItem", nameParams{Name: name}, &item)
	return item, err
}

func (b *bridge) CanGiveItems() bool {
	var can bool
	if err := b.call("canGiveItems", nil, &can); err != nil {
		return false
	}
	return can
}

func (b *bridge) BlockAt(pos botmgr.Vec3) (botmgr.Block, error) {
	var block botmgr.Block
	err := b.call("blockAt", coordParams{X: pos.X, Y: pos.Y, Z: pos.Z}, &block)
	return block, err
}

func (b *bridge) NearbyEntities(radius float64) ([]botmgr.Entity, error) {
	var entities []botmgr.Entity
	err := b.call("nearbyEntities", radiusParams{Radius: radius}, &entities)
	return entities, err
}

func (b *bridge) NearbyBlocks(radius int) ([]botmgr.Block, error) {
	var blocks []botmgr.Block
	err := b.call("nearbyBlocks", radiusParams{Radius: float64(radius)}, &blocks)
	return blocks, err
}

func (b *bridge) Inventory() ([]botmgr.Item, error) {
	var items []botmgr.Item
	err := b.call("inventory", nil, &items)
	return items, err
}

func (b *bridge) KnownItemNames() ([]string, error) {
	var names []string
	err := b.call("itemNames", nil, &names)
	return names, err
}

func (b *bridge) State() (botmgr.BotState, error) {
	var state botmgr.BotState
	err := b.call("state", nil, &state)
	return state, err
}

// Disconnect 先通知代理进程优雅退出，超过宽限期后强制结束
func (b *bridge) Disconnect() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if err := b.conn.Notify(ctx, "quit", nil); err != nil {
		b.log.Debugw("发送退出通知失败", "error", err)
	}
	b.conn.Close()

	// 等待Dial里安装的回收协程完成；进程的Wait只会在那里调用
	select {
	case <-b.exited:
	case <-time.After(killGrace):
		b.log.Warnw("代理进程未在宽限期内退出，强制结束")
		b.cmd.Process.Kill()
		<-b.exited
	}
}

// stdioPipe 把子进程的stdin/stdout组合成一个ReadWriteCloser
type stdioPipe struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (p stdioPipe) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p stdioPipe) Write(b []byte) (int, error) { return p.out.Write(b) }

func (p stdioPipe) Close() error {
	p.out.Close()
	return p.in.Close()
}
