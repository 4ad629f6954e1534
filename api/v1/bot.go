package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"city.newnan/craft-console/internal/config"
	"city.newnan/craft-console/internal/model"
	"city.newnan/craft-console/pkg/botmgr"
)

// BotController 会话生命周期相关API控制器
type BotController struct {
	Manager *botmgr.Manager
	Config  *config.Config
}

// NewBotController 创建会话控制器
func NewBotController(manager *botmgr.Manager, cfg *config.Config) *BotController {
	return &BotController{
		Manager: manager,
		Config:  cfg,
	}
}

// Start 启动机器人会话
// @Summary 启动机器人会话
// @Description 连接到指定服务器并创建一个新的机器人会话
// @Tags 会话管理
// @Accept json
// @Produce json
// @Param session body model.StartSessionRequest true "连接参数"
// @Success 200 {object} model.StartSessionResponse "会话已创建"
// @Failure 400 {object} model.ErrorResponse "请求参数错误"
// @Failure 500 {object} model.ErrorResponse "连接失败"
// @Router /session/start [post]
func (c *BotController) Start(ctx *gin.Context) {
	var req model.StartSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewErrorResponse("invalid request body: "+err.Error()))
		return
	}

	// 未提供的字段回落到配置默认值
	if req.Host == "" {
		req.Host = c.Config.MinecraftDefaultHost
	}
	if req.Port == 0 {
		req.Port = c.Config.MinecraftDefaultPort
	}
	if req.Version == "" {
		req.Version = c.Config.MinecraftDefaultVersion
	}

	cfg := botmgr.BotConfig{
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
		Version:  req.Version,
	}
	if err := cfg.Validate(); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewErrorResponse(err.Error()))
		return
	}

	sessionID, err := c.Manager.StartBot(cfg)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, model.NewErrorResponse("failed to start bot: "+err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, model.StartSessionResponse{
		Success:   true,
		SessionID: sessionID,
		Message:   "Bot session started",
	})
}

// Stop 结束机器人会话
// @Summary 结束机器人会话
// @Description 断开机器人并移除会话
// @Tags 会话管理
// @Accept json
// @Produce json
// @Param session body model.StopSessionRequest false "会话标识（POST时从请求体取）"
// @Param sessionId query string false "会话标识（DELETE时从查询参数取）"
// @Success 200 {object} model.StopSessionResponse "会话已结束"
// @Failure 400 {object} model.ErrorResponse "缺少会话标识"
// @Failure 404 {object} model.ErrorResponse "会话不存在"
// @Router /session/stop [post]
func (c *BotController) Stop(ctx *gin.Context) {
	sessionID := ctx.Query("sessionId")
	if sessionID == "" && ctx.Request.Method == http.MethodPost {
		var req model.StopSessionRequest
		if err := ctx.ShouldBindJSON(&req); err == nil {
			sessionID = req.SessionID
		}
	}
	if sessionID == "" {
		ctx.JSON(http.StatusBadRequest, model.NewErrorResponse("sessionId is required"))
		return
	}

	if err := c.Manager.StopBot(sessionID); err != nil {
		if errors.Is(err, botmgr.ErrBotNotFound) {
			ctx.JSON(http.StatusNotFound, model.NewErrorResponse("session not found: "+sessionID))
			return
		}
		ctx.JSON(http.StatusInternalServerError, model.NewErrorResponse("failed to stop bot: "+err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, model.StopSessionResponse{
		Success:   true,
		SessionID: sessionID,
		Message:   "Bot session stopped",
	})
}

// Status 查询会话状态
// @Summary 查询会话状态
// @Description 带sessionId时返回单个会话详情，否则返回全部会话列表
// @Tags 会话管理
// @Produce json
// @Param sessionId query string false "会话标识"
// @Success 200 {object} model.SessionListResponse "会话列表"
// @Failure 404 {object} model.ErrorResponse "会话不存在"
// @Router /session/status [get]
func (c *BotController) Status(ctx *gin.Context) {
	sessionID := ctx.Query("sessionId")
	if sessionID != "" {
		bot, err := c.Manager.GetBot(sessionID)
		if err != nil {
			ctx.JSON(http.StatusNotFound, model.NewErrorResponse("session not found: "+sessionID))
			return
		}
		ctx.JSON(http.StatusOK, bot.Snapshot())
		return
	}

	snapshots := c.Manager.Snapshots()
	ctx.JSON(http.StatusOK, model.SessionListResponse{
		Sessions: snapshots,
		Total:    len(snapshots),
	})
}
