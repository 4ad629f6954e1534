package config

import (
	"os"
	"strconv"
	"time"
)

// Config 存储应用程序配置
type Config struct {
	// 服务器配置
	ServerPort     int
	ServerHost     string
	Mode           string
	AllowedOrigins []string

	// Minecraft配置
	MinecraftDefaultHost    string
	MinecraftDefaultPort    int
	MinecraftDefaultVersion string
	BotConnectTimeout       time.Duration
	MaxBots                 int

	// WebSocket配置
	WebSocketPort int

	// 协议客户端代理进程的启动命令
	AgentCommand string

	// LLM配置
	AIBaseURL string
	AIAPIKey  string
	AIModel   string
}

// GetEnv 从环境变量中获取字符串值，如果不存在则返回默认值
func GetEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value
}

// GetEnvInt 从环境变量中获取整数值，如果不存在或解析失败则返回默认值
func GetEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// GetEnvDuration 从环境变量中获取时间间隔，如果不存在则返回默认值
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	durationValue, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return durationValue
}

// LoadConfig 从环境变量加载配置
func LoadConfig() *Config {
	return &Config{
		// 服务器配置
		ServerPort:     GetEnvInt("SERVER_PORT", 8080),
		ServerHost:     GetEnv("SERVER_HOST", "0.0.0.0"),
		Mode:           GetEnv("GIN_MODE", "debug"),
		AllowedOrigins: []string{GetEnv("ALLOWED_ORIGINS", "*")},

		// Minecraft配置
		MinecraftDefaultHost:    GetEnv("MINECRAFT_DEFAULT_HOST", "localhost"),
		MinecraftDefaultPort:    GetEnvInt("MINECRAFT_DEFAULT_PORT", 25565),
		MinecraftDefaultVersion: GetEnv("MINECRAFT_DEFAULT_VERSION", "1.21.1"),
		BotConnectTimeout:       GetEnvDuration("MINECRAFT_BOT_TIMEOUT", 30*time.Second),
		MaxBots:                 GetEnvInt("MINECRAFT_MAX_BOTS", 5),

		// WebSocket配置
		WebSocketPort: GetEnvInt("WEBSOCKET_PORT", 3001),

		// 协议客户端代理进程
		AgentCommand: GetEnv("MCBOT_AGENT_CMD", "node agent/mineflayer-agent.js"),

		// LLM配置
		AIBaseURL: GetEnv("OPENAI_API_URL", "https://api.openai.com"),
		AIAPIKey:  GetEnv("OPENAI_API_KEY", ""),
		AIModel:   GetEnv("OPENAI_MODEL", "gpt-4"),
	}
}
