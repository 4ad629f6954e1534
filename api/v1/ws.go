package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"city.newnan/craft-console/internal/config"
	"city.newnan/craft-console/internal/model"
	"city.newnan/craft-console/internal/websocket"
)

// WSController WebSocket端点初始化控制器
type WSController struct {
	Hub    *websocket.Hub
	Config *config.Config
}

// NewWSController 创建WebSocket控制器
func NewWSController(hub *websocket.Hub, cfg *config.Config) *WSController {
	return &WSController{Hub: hub, Config: cfg}
}

// Init 启动WebSocket事件端点
// @Summary 启动WebSocket事件端点
// @Description 在独立端口上启动/bot-events事件推送端点，已启动时为幂等空操作
// @Tags WebSocket
// @Produce json
// @Success 200 {object} model.WSInitResponse "端点已就绪"
// @Router /ws/init [post]
func (c *WSController) Init(ctx *gin.Context) {
	alreadyRunning := c.Hub.Started()
	if err := c.Hub.Init(); err != nil {
		ctx.JSON(http.StatusInternalServerError, model.NewErrorResponse("failed to start websocket endpoint: "+err.Error()))
		return
	}

	message := "WebSocket endpoint started"
	if alreadyRunning {
		message = "WebSocket endpoint already running"
	}
	ctx.JSON(http.StatusOK, model.WSInitResponse{
		Success: true,
		Port:    c.Config.WebSocketPort,
		Message: message,
	})
}
