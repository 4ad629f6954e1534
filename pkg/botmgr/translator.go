package botmgr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// systemPrompt 固定的系统提示词，枚举完整命令词汇表和示例
const systemPrompt = `You are a Minecraft bot command translator. Your job is to convert natural language instructions into a series of executable Minecraft bot commands.

Available Commands:
- chat <message> - Send a chat message
- move <x> <y> <z> - Move to coordinates (pathfinding)
- look <yaw> <pitch> - Look in direction (yaw: 0-360, pitch: -90 to 90)
- lookAt <x> <y> <z> - Look at coordinates
- attack - Attack nearby hostile mobs
- dig <x> <y> <z> - Dig block at coordinates
- digHere - Dig the block in front of the bot
- digBelow - Dig the block under the bot
- place <x> <y> <z> <blockName> - Place block at coordinates
- placeHere <blockName> - Place block in front of the bot
- placeBelow <blockName> - Place block under the bot
- inventory - Check inventory
- status - Get bot status
- observe - Describe the surroundings
- remember <key> <value> - Store a note for later
- recall <key> - Retrieve a stored note

Rules:
1. Convert user instructions into a JSON array of commands
2. Each command should be: {"command": "commandName", "args": {...}}
3. Use relative positioning when possible: coordinate args may be strings like "current.x + 5"
4. Only simple expressions of the form "current.<axis> + number" or "current.<axis> - number" are allowed
5. Be creative but safe - don't make the bot do dangerous things
6. If instruction is unclear, ask for clarification in plain text instead of emitting JSON

Examples:
User: "Go forward 5 blocks"
Response: [{"command": "move", "args": {"x": "current.x", "y": "current.y", "z": "current.z + 5"}}]

User: "Say hello and then attack any mobs nearby"
Response: [
  {"command": "chat", "args": {"message": "Hello everyone!"}},
  {"command": "attack", "args": {}}
]

User: "Dig a 2x2 hole in front of me"
Response: [
  {"command": "dig", "args": {"x": "current.x + 1", "y": "current.y - 1", "z": "current.z"}},
  {"command": "dig", "args": {"x": "current.x + 2", "y": "current.y - 1", "z": "current.z"}},
  {"command": "dig", "args": {"x": "current.x + 1", "y": "current.y - 1", "z": "current.z + 1"}},
  {"command": "dig", "args": {"x": "current.x + 2", "y": "current.y - 1", "z": "current.z + 1"}}
]

Always respond with a valid JSON array of commands, or ask for clarification if the instruction is ambiguous.`

// defaultCommandDelay 批次内相邻命令之间的固定间隔，
// 避免底层连接被连续操作压垮
const defaultCommandDelay = 500 * time.Millisecond

// CompletionClient 是LLM文本补全服务的抽象边界
type CompletionClient interface {
	// Complete 发送system+user提示词，返回模型的文本回复
	Complete(ctx context.Context, system, user string) (string, error)
}

// CommandOutcome 批次中单条命令的执行记录
type CommandOutcome struct {
	Command string         `json:"command"`
	Args    map[string]any `json:"args"`
	Result  CommandResult  `json:"result"`
}

// InstructionResult 一次自然语言指令的聚合结果。
// 模型要求澄清时Clarification非空且不含命令记录。
type InstructionResult struct {
	Success            bool             `json:"success"`
	Instruction        string           `json:"instruction"`
	AIResponse         string           `json:"aiResponse,omitempty"`
	Clarification      string           `json:"clarification,omitempty"`
	Message            string           `json:"message,omitempty"`
	Commands           []CommandOutcome `json:"commands,omitempty"`
	TotalCommands      int              `json:"totalCommands"`
	SuccessfulCommands int              `json:"successfulCommands"`
}

// rawCommand LLM返回的命令批次中的一项
type rawCommand struct {
	Command string         `json:"command"`
	Args    map[string]any `json:"args"`
}

// Translator 把自由文本指令翻译成命令批次并顺序执行。
// 流程：组装上下文 → LLM请求 → 解析JSON命令数组 → 解析相对坐标 →
// 逐条交给调度器执行 → 返回聚合结果。
type Translator struct {
	manager    *Manager
	dispatcher *Dispatcher
	llm        CompletionClient
	delay      time.Duration
	log        *zap.SugaredLogger
}

// NewTranslator 创建指令翻译器
func NewTranslator(manager *Manager, dispatcher *Dispatcher, llm CompletionClient, log *zap.SugaredLogger) *Translator {
	return &Translator{
		manager:    manager,
		dispatcher: dispatcher,
		llm:        llm,
		delay:      defaultCommandDelay,
		log:        log,
	}
}

// SetCommandDelay 调整命令间隔，测试中用于去掉等待
func (t *Translator) SetCommandDelay(d time.Duration) {
	t.delay = d
}

// Execute 处理一条自然语言指令。
// 会话不存在时返回ErrBotNotFound；LLM不可达时返回包装了
// ErrCompletionUnavailable的错误；命令批次内单条失败不会中断
// 批次，每条命令的结果独立记录。
func (t *Translator) Execute(ctx context.Context, botID, instruction string) (*InstructionResult, error) {
	bot, err := t.manager.GetBot(botID)
	if err != nil {
		return nil, err
	}
	client := bot.Connection()
	if client == nil {
		return nil, ErrBotNotFound
	}

	state, err := client.State()
	if err != nil {
		return nil, fmt.Errorf("failed to read bot state: %w", err)
	}

	contextPrompt := fmt.Sprintf(`
Current Bot Status:
- Position: x=%.0f, y=%.0f, z=%.0f
- Health: %.0f/20
- Food: %.0f/20
- Username: %s

User Instruction: "%s"

Convert this instruction into Minecraft bot commands:`,
		state.Position.X, state.Position.Y, state.Position.Z,
		state.Health, state.Food, bot.Config().Username, instruction)

	response, err := t.llm.Complete(ctx, systemPrompt, contextPrompt)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	commands, ok, err := extractCommandBatch(response)
	if err != nil {
		t.log.Errorw("解析LLM命令批次失败", "sessionId", botID, "response", response)
		return nil, fmt.Errorf("%w: %v", ErrBadAIResponse, err)
	}
	if !ok {
		// 没有JSON数组：当作澄清请求而不是错误返回
		return &InstructionResult{
			Success:       false,
			Instruction:   instruction,
			Clarification: response,
			Message:       "AI needs clarification for this instruction",
		}, nil
	}

	result := &InstructionResult{
		Success:       true,
		Instruction:   instruction,
		AIResponse:    response,
		TotalCommands: len(commands),
	}

	// 批次内乐观跟踪位置：move成功后直接采用目标坐标，
	// 不回查协议客户端
	trackedPos := state.Position

	for i, raw := range commands {
		if i > 0 && t.delay > 0 {
			select {
			case <-time.After(t.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		outcome := t.executeOne(ctx, botID, raw, &trackedPos)
		result.Commands = append(result.Commands, outcome)
		if outcome.Result.Success {
			result.SuccessfulCommands++
		}
	}

	return result, nil
}

// executeOne 解析相对坐标、构造类型化命令并执行一条批次项
func (t *Translator) executeOne(ctx context.Context, botID string, raw rawCommand, trackedPos *Vec3) CommandOutcome {
	args, err := resolveRelativeArgs(raw.Args, *trackedPos)
	if err != nil {
		return CommandOutcome{
			Command: raw.Command,
			Args:    raw.Args,
			Result:  resultErr("%s", err.Error()),
		}
	}

	cmd, err := ParseCommand(raw.Command, args)
	if err != nil {
		return CommandOutcome{
			Command: raw.Command,
			Args:    args,
			Result:  resultErr("%s", err.Error()),
		}
	}

	res := t.dispatcher.Execute(ctx, botID, cmd)

	if move, isMove := cmd.(MoveCommand); isMove && res.Success {
		*trackedPos = Vec3{X: move.X, Y: move.Y, Z: move.Z}
	}

	return CommandOutcome{Command: raw.Command, Args: args, Result: res}
}

// extractCommandBatch 从LLM回复中提取首个中括号界定的JSON数组。
// 找不到数组时ok为false，调用方按澄清请求处理。
func extractCommandBatch(response string) (commands []rawCommand, ok bool, err error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return nil, false, nil
	}

	if err := sonic.Unmarshal([]byte(response[start:end+1]), &commands); err != nil {
		return nil, false, err
	}
	return commands, true, nil
}

// resolveRelativeArgs 把包含current占位符的坐标字符串求值成数字。
// 只处理x/y/z三个参数，替换互相独立。
func resolveRelativeArgs(args map[string]any, pos Vec3) (map[string]any, error) {
	if args == nil {
		return nil, nil
	}

	resolved := make(map[string]any, len(args))
	for k, v := range args {
		resolved[k] = v
	}

	for _, axis := range []string{"x", "y", "z"} {
		s, isString := resolved[axis].(string)
		if !isString {
			continue
		}
		// 模型偶尔会把纯数字也写成字符串，同样走封闭文法求值
		v, err := EvalRelative(s, pos)
		if err != nil {
			return nil, fmt.Errorf("invalid %s coordinate %q: %w", axis, s, err)
		}
		resolved[axis] = v
	}
	return resolved, nil
}
