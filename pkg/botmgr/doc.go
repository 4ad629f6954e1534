/*
Package botmgr 提供Minecraft机器人会话的创建、监控与命令调度能力。

主要特性:

  - 会话管理：创建/连接/监控/销毁机器人会话，会话间互相隔离
  - 事件总线：把协议层事件（spawn/chat/health/death/disconnect/error）
    同步分发给HTTP状态接口和WebSocket广播等多个观察者
  - 命令调度：把封闭词汇表中的抽象命令（聊天、移动、挖掘、放置、
    攻击、观察、记忆等）执行到底层协议连接上，返回统一的结果信封
  - 指令翻译：借助LLM把自然语言翻译成命令批次并顺序执行，
    相对坐标用封闭文法的算术求值器安全解析
  - 服务器探测：TCP可达性探测与协议层Ping，组合成连接诊断报告

游戏协议客户端以Client接口为边界注入，连接握手与数据包编解码
由具体实现负责。本包不持有任何包级可变状态，所有组件显式构造、
显式传递，便于在测试中搭建隔离实例。

基本用法:

	bus := botmgr.NewEventBus(log)
	manager := botmgr.NewManager(dialer, bus, botmgr.Options{MaxBots: 5}, log)
	dispatcher := botmgr.NewDispatcher(manager, log)

	// 启动机器人
	sessionID, err := manager.StartBot(botmgr.BotConfig{
		Host:     "mc.example.com",
		Port:     25565,
		Username: "console-bot",
	})
	if err != nil {
		// 处理错误
	}

	// 执行命令
	result := dispatcher.Execute(ctx, sessionID, botmgr.ChatCommand{Message: "hello"})

	// 订阅事件
	sub := bus.Subscribe(botmgr.BusChat, func(evt botmgr.Event) {
		// 处理聊天事件
	})
	defer bus.Unsubscribe(sub)

	// 停止机器人
	manager.StopBot(sessionID)
*/
package botmgr
