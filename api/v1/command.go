package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"city.newnan/craft-console/internal/model"
	"city.newnan/craft-console/pkg/botmgr"
)

// CommandController 命令与自然语言指令API控制器
type CommandController struct {
	Manager    *botmgr.Manager
	Dispatcher *botmgr.Dispatcher
	Translator *botmgr.Translator
}

// NewCommandController 创建命令控制器
func NewCommandController(manager *botmgr.Manager, dispatcher *botmgr.Dispatcher, translator *botmgr.Translator) *CommandController {
	return &CommandController{
		Manager:    manager,
		Dispatcher: dispatcher,
		Translator: translator,
	}
}

// Execute 执行单条命令
// @Summary 执行单条命令
// @Description 向指定会话的机器人下发一条结构化命令
// @Tags 命令
// @Accept json
// @Produce json
// @Param command body model.CommandRequest true "命令内容"
// @Success 200 {object} model.CommandResponse "执行结果"
// @Failure 400 {object} model.ErrorResponse "命令或参数无效"
// @Failure 404 {object} model.ErrorResponse "会话不存在或未连接"
// @Router /command [post]
func (c *CommandController) Execute(ctx *gin.Context) {
	var req model.CommandRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewErrorResponse("invalid request body: "+err.Error()))
		return
	}
	if req.SessionID == "" || req.Command == "" {
		ctx.JSON(http.StatusBadRequest, model.NewErrorResponse("sessionId and command are required"))
		return
	}

	cmd, err := botmgr.ParseCommand(req.Command, req.Args)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewErrorResponse(err.Error()))
		return
	}

	bot, err := c.Manager.GetBot(req.SessionID)
	if err != nil || bot.Connection() == nil {
		ctx.JSON(http.StatusNotFound, model.NewErrorResponse("Bot not found or not connected"))
		return
	}

	result := c.Dispatcher.Execute(ctx.Request.Context(), req.SessionID, cmd)
	ctx.JSON(http.StatusOK, model.CommandResponse{
		Success: result.Success,
		Command: req.Command,
		Result:  result,
	})
}

// AICommand 执行自然语言指令
// @Summary 执行自然语言指令
// @Description 把自然语言指令翻译成命令序列并依次执行
// @Tags 命令
// @Accept json
// @Produce json
// @Param instruction body model.AICommandRequest true "指令内容"
// @Success 200 {object} botmgr.InstructionResult "聚合执行结果"
// @Failure 400 {object} model.ErrorResponse "缺少必填字段"
// @Failure 404 {object} model.ErrorResponse "会话不存在"
// @Failure 503 {object} model.ErrorResponse "AI服务不可用"
// @Router /ai-command [post]
func (c *CommandController) AICommand(ctx *gin.Context) {
	var req model.AICommandRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewErrorResponse("invalid request body: "+err.Error()))
		return
	}
	if req.SessionID == "" || req.Instruction == "" {
		ctx.JSON(http.StatusBadRequest, model.NewErrorResponse("sessionId and instruction are required"))
		return
	}

	result, err := c.Translator.Execute(ctx.Request.Context(), req.SessionID, req.Instruction)
	if err != nil {
		switch {
		case errors.Is(err, botmgr.ErrBotNotFound):
			ctx.JSON(http.StatusNotFound, model.NewErrorResponse("Bot not found or not connected"))
		case errors.Is(err, botmgr.ErrCompletionUnavailable):
			ctx.JSON(http.StatusServiceUnavailable, model.NewErrorResponse(err.Error()))
		default:
			ctx.JSON(http.StatusInternalServerError, model.NewErrorResponse(err.Error()))
		}
		return
	}

	ctx.JSON(http.StatusOK, result)
}
