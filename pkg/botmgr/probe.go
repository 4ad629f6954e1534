package botmgr

import (
	"fmt"
	"net"
	"time"

	"github.com/bytedance/sonic"
	"github.com/xrjr/mcutils/pkg/ping"
)

// probeTimeout TCP可达性探测的固定超时
const probeTimeout = 5 * time.Second

// mcVersion 表示服务器版本信息
type mcVersion struct {
	Name     string `json:"name"`     // 版本名称
	Protocol int    `json:"protocol"` // 协议版本
}

// mcPlayers 表示玩家信息
type mcPlayers struct {
	Max    int `json:"max"`    // 最大玩家数
	Online int `json:"online"` // 在线玩家数
}

// mcStatus 用于解析Ping返回的JSON数据
type mcStatus struct {
	Version     mcVersion   `json:"version"`     // 版本信息
	Players     mcPlayers   `json:"players"`     // 玩家信息
	Description interface{} `json:"description"` // 服务器描述，可能是字符串或对象
}

// descriptionText 从不同格式的描述字段中提取纯文本
func (s *mcStatus) descriptionText() string {
	switch desc := s.Description.(type) {
	case string:
		return desc
	case map[string]interface{}:
		if text, ok := desc["text"].(string); ok {
			result := text
			if extra, ok := desc["extra"].([]interface{}); ok {
				for _, item := range extra {
					if extraItem, ok := item.(map[string]interface{}); ok {
						if extraText, ok := extraItem["text"].(string); ok {
							result += extraText
						}
					}
				}
			}
			return result
		}
	}
	return ""
}

// ServerPingInfo 协议层Ping返回的服务器元数据
type ServerPingInfo struct {
	Version     string `json:"version"`
	Protocol    int    `json:"protocol"`
	Players     int    `json:"players"`
	MaxPlayers  int    `json:"maxPlayers"`
	Description string `json:"description"`
	LatencyMS   int    `json:"latencyMs"`
}

// TestTCPConnection 对目标做一次原始TCP可达性探测
func TestTCPConnection(host string, port int) error {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", host, port), probeTimeout)
	if err != nil {
		return err
	}
	conn.Close()
	return nil
}

// PingServer 用Minecraft协议Ping服务器并解析元数据
func PingServer(host string, port int) (*ServerPingInfo, error) {
	properties, latency, err := ping.Ping(host, port)
	if err != nil {
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	// properties是松散的map，经由sonic转成结构体
	jsonData, err := sonic.Marshal(properties)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize server properties: %w", err)
	}
	var status mcStatus
	if err := sonic.Unmarshal(jsonData, &status); err != nil {
		return nil, fmt.Errorf("failed to parse server status: %w", err)
	}

	return &ServerPingInfo{
		Version:     status.Version.Name,
		Protocol:    status.Version.Protocol,
		Players:     status.Players.Online,
		MaxPlayers:  status.Players.Max,
		Description: status.descriptionText(),
		LatencyMS:   int(latency),
	}, nil
}

// DiagnosticTest 诊断中的一项具名测试结果
type DiagnosticTest struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // pass / fail / error / info
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Diagnostics 连接诊断的汇总结果
type Diagnostics struct {
	Host    string           `json:"host"`
	Port    int              `json:"port"`
	Tests   []DiagnosticTest `json:"tests"`
	Summary string           `json:"summary"`
}

// Diagnose 对目标服务器依次执行TCP探测和协议Ping，
// 外加一条机器人连接版本的提示信息，并生成一行总结
func Diagnose(host string, port int, botVersion string) *Diagnostics {
	diag := &Diagnostics{Host: host, Port: port}

	if err := TestTCPConnection(host, port); err != nil {
		diag.Tests = append(diag.Tests, DiagnosticTest{
			Name:    "TCP Connection",
			Status:  "fail",
			Message: "Cannot connect to port: " + err.Error(),
		})
	} else {
		diag.Tests = append(diag.Tests, DiagnosticTest{
			Name:    "TCP Connection",
			Status:  "pass",
			Message: "Port is reachable",
		})
	}

	if info, err := PingServer(host, port); err != nil {
		diag.Tests = append(diag.Tests, DiagnosticTest{
			Name:    "Minecraft Protocol",
			Status:  "fail",
			Message: "Server ping failed: " + err.Error(),
		})
	} else {
		diag.Tests = append(diag.Tests, DiagnosticTest{
			Name:    "Minecraft Protocol",
			Status:  "pass",
			Message: "Server responds to Minecraft protocol",
			Details: info,
		})
	}

	diag.Tests = append(diag.Tests, DiagnosticTest{
		Name:    "Version Check",
		Status:  "info",
		Message: fmt.Sprintf("Bot will attempt to connect with version %s", botVersion),
	})

	passCount, failCount := 0, 0
	for _, t := range diag.Tests {
		switch t.Status {
		case "pass":
			passCount++
		case "fail":
			failCount++
		}
	}
	switch {
	case failCount == 0:
		diag.Summary = "All tests passed! Server should be connectable."
	case passCount == 0:
		diag.Summary = "All tests failed. Check if server is running and accessible."
	default:
		diag.Summary = "Mixed results. Check failed tests for issues."
	}

	return diag
}
