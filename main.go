package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	v1 "city.newnan/craft-console/api/v1"
	"city.newnan/craft-console/internal/config"
	"city.newnan/craft-console/internal/llm"
	"city.newnan/craft-console/internal/logger"
	"city.newnan/craft-console/internal/mcbot"
	"city.newnan/craft-console/internal/router"
	"city.newnan/craft-console/internal/websocket"
	"city.newnan/craft-console/pkg/botmgr"
)

// @title           Craft Console API
// @version         1.0
// @description     Minecraft 机器人会话管理控制台 API
// @termsOfService  http://swagger.io/terms/

// @contact.name   API 支持
// @contact.url    http://www.newnan.city/support
// @contact.email  support@newnan.city

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

func main() {
	// 加载配置
	cfg := config.LoadConfig()

	// 初始化日志
	if cfg.Mode != "release" {
		logger.SetDevelopment()
	}
	log := logger.GetLogger()
	defer logger.Sync()

	// 协议客户端桥接器
	dialer, err := mcbot.NewDialer(cfg.AgentCommand, cfg.BotConnectTimeout, log)
	if err != nil {
		log.Fatalw("初始化代理桥接器失败", "error", err)
	}

	// 会话管理核心
	bus := botmgr.NewEventBus(log)
	manager := botmgr.NewManager(dialer, bus, botmgr.Options{MaxBots: cfg.MaxBots}, log)
	dispatcher := botmgr.NewDispatcher(manager, log)

	// 自然语言指令翻译器
	llmClient := llm.NewClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel)
	translator := botmgr.NewTranslator(manager, dispatcher, llmClient, log)

	// WebSocket事件推送
	hub := websocket.NewHub(manager, dispatcher, bus, cfg.WebSocketPort)

	// 初始化路由
	r := router.SetupRouter(cfg, router.Controllers{
		Bot:     v1.NewBotController(manager, cfg),
		Command: v1.NewCommandController(manager, dispatcher, translator),
		Server:  v1.NewServerController(cfg),
		WS:      v1.NewWSController(hub, cfg),
	})

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler: r,
	}

	// 启动服务器（非阻塞）
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("监听失败", "error", err)
		}
	}()

	log.Infow("服务器开始运行", "host", cfg.ServerHost, "port", cfg.ServerPort)

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infow("正在关闭服务器...")

	// 先结束所有机器人会话，再关闭HTTP与WebSocket服务
	manager.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hub.Shutdown(ctx); err != nil {
		log.Warnw("WebSocket服务关闭异常", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("服务器被强制关闭", "error", err)
	}

	log.Infow("服务器优雅退出")
}
