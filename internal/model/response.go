package model

import "city.newnan/craft-console/pkg/botmgr"

// ErrorResponse 错误响应结构，所有4xx/5xx响应都使用这个形状
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

// StartSessionResponse 启动会话的响应
type StartSessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message,omitempty"`
}

// StopSessionResponse 结束会话的响应
type StopSessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message,omitempty"`
}

// SessionListResponse 会话列表响应
type SessionListResponse struct {
	Sessions []botmgr.BotSnapshot `json:"sessions"`
	Total    int                  `json:"total"`
}

// CommandResponse 单条命令的执行结果
type CommandResponse struct {
	Success bool                 `json:"success"`
	Command string               `json:"command"`
	Result  botmgr.CommandResult `json:"result"`
}

// ConnectionTestResponse TCP连通性探测的结果
type ConnectionTestResponse struct {
	Success bool   `json:"success"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Latency int64  `json:"latencyMs"`
	Message string `json:"message,omitempty"`
}

// ServerPingResponse 协议层ping的结果，附带服务器元数据
type ServerPingResponse struct {
	Success    bool                   `json:"success"`
	Host       string                 `json:"host"`
	Port       int                    `json:"port"`
	ServerInfo *botmgr.ServerPingInfo `json:"serverInfo,omitempty"`
	Message    string                 `json:"message,omitempty"`
}

// WSInitResponse WebSocket端点初始化的响应
type WSInitResponse struct {
	Success bool   `json:"success"`
	Port    int    `json:"port"`
	Message string `json:"message,omitempty"`
}
