package v1

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"city.newnan/craft-console/internal/config"
	"city.newnan/craft-console/internal/model"
	"city.newnan/craft-console/pkg/botmgr"
)

// ServerController 服务器探测与诊断API控制器
type ServerController struct {
	Config *config.Config
}

// NewServerController 创建服务器探测控制器
func NewServerController(cfg *config.Config) *ServerController {
	return &ServerController{Config: cfg}
}

// probeTarget 解析探测目标，未提供的字段回落到配置默认值
func (c *ServerController) probeTarget(ctx *gin.Context) (string, int, string) {
	var req model.ServerProbeRequest
	if ctx.Request.Method != http.MethodGet {
		ctx.ShouldBindJSON(&req)
	} else {
		req.Host = ctx.Query("host")
		if port, err := strconv.Atoi(ctx.Query("port")); err == nil {
			req.Port = port
		}
		req.Version = ctx.Query("version")
	}
	if req.Host == "" {
		req.Host = c.Config.MinecraftDefaultHost
	}
	if req.Port == 0 {
		req.Port = c.Config.MinecraftDefaultPort
	}
	if req.Version == "" {
		req.Version = c.Config.MinecraftDefaultVersion
	}
	return req.Host, req.Port, req.Version
}

// TestConnection TCP连通性探测
// @Summary TCP连通性探测
// @Description 对目标服务器做一次原始TCP可达性探测
// @Tags 服务器
// @Accept json
// @Produce json
// @Param target body model.ServerProbeRequest false "探测目标"
// @Success 200 {object} model.ConnectionTestResponse "可达"
// @Failure 408 {object} model.ErrorResponse "连接超时"
// @Failure 503 {object} model.ErrorResponse "无法连接"
// @Router /server/test-connection [post]
func (c *ServerController) TestConnection(ctx *gin.Context) {
	host, port, _ := c.probeTarget(ctx)

	start := time.Now()
	if err := botmgr.TestTCPConnection(host, port); err != nil {
		status := http.StatusServiceUnavailable
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			status = http.StatusRequestTimeout
		}
		ctx.JSON(status, model.NewErrorResponse("connection failed: "+err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, model.ConnectionTestResponse{
		Success: true,
		Host:    host,
		Port:    port,
		Latency: time.Since(start).Milliseconds(),
		Message: "Server is reachable",
	})
}

// PingServer 协议层Ping
// @Summary 协议层Ping
// @Description 用Minecraft协议Ping目标服务器，返回版本与在线人数等元数据
// @Tags 服务器
// @Produce json
// @Param host query string false "服务器地址"
// @Param port query int false "服务器端口"
// @Success 200 {object} model.ServerPingResponse "服务器元数据"
// @Failure 503 {object} model.ErrorResponse "Ping失败"
// @Router /server/test-connection [get]
func (c *ServerController) PingServer(ctx *gin.Context) {
	host, port, _ := c.probeTarget(ctx)

	info, err := botmgr.PingServer(host, port)
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, model.NewErrorResponse("ping failed: "+err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, model.ServerPingResponse{
		Success:    true,
		Host:       host,
		Port:       port,
		ServerInfo: info,
	})
}

// Diagnose 连接诊断
// @Summary 连接诊断
// @Description 依次执行TCP探测与协议Ping，返回具名测试结果列表和一行总结
// @Tags 服务器
// @Accept json
// @Produce json
// @Param target body model.ServerProbeRequest false "诊断目标"
// @Success 200 {object} botmgr.Diagnostics "诊断结果"
// @Router /server/diagnose [post]
func (c *ServerController) Diagnose(ctx *gin.Context) {
	host, port, version := c.probeTarget(ctx)
	ctx.JSON(http.StatusOK, botmgr.Diagnose(host, port, version))
}
