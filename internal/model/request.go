package model

// StartSessionRequest 启动会话的请求体
type StartSessionRequest struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Version  string `json:"version"`
}

// StopSessionRequest 结束会话的请求体
type StopSessionRequest struct {
	SessionID string `json:"sessionId"`
}

// CommandRequest 下发单条命令的请求体
type CommandRequest struct {
	SessionID string         `json:"sessionId"`
	Command   string         `json:"command"`
	Args      map[string]any `json:"args"`
}

// AICommandRequest 自然语言指令的请求体
type AICommandRequest struct {
	SessionID   string `json:"sessionId"`
	Instruction string `json:"instruction"`
}

// ServerProbeRequest 服务器探测类接口公用的请求体
type ServerProbeRequest struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Version string `json:"version"`
}
