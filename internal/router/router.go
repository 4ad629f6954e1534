package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	v1 "city.newnan/craft-console/api/v1"
	"city.newnan/craft-console/internal/config"
)

// Controllers 路由所需的全部控制器
type Controllers struct {
	Bot     *v1.BotController
	Command *v1.CommandController
	Server  *v1.ServerController
	WS      *v1.WSController
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, ctrl Controllers) *gin.Engine {
	// 设置Gin模式
	gin.SetMode(cfg.Mode)

	// 创建路由引擎
	r := gin.New()

	// 使用中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// 配置跨域
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(corsConfig))

	// 默认路由
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "欢迎使用Craft Console API",
		})
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// API文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 会话生命周期
	r.POST("/session/start", ctrl.Bot.Start)
	r.POST("/session/stop", ctrl.Bot.Stop)
	r.DELETE("/session/stop", ctrl.Bot.Stop)
	r.GET("/session/status", ctrl.Bot.Status)

	// 命令与自然语言指令
	r.POST("/command", ctrl.Command.Execute)
	r.POST("/ai-command", ctrl.Command.AICommand)

	// 服务器探测
	r.POST("/server/test-connection", ctrl.Server.TestConnection)
	r.GET("/server/test-connection", ctrl.Server.PingServer)
	r.POST("/server/diagnose", ctrl.Server.Diagnose)

	// WebSocket事件端点
	r.POST("/ws/init", ctrl.WS.Init)

	return r
}
