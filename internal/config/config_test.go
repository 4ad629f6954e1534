package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "localhost", cfg.MinecraftDefaultHost)
	assert.Equal(t, 25565, cfg.MinecraftDefaultPort)
	assert.Equal(t, "1.21.1", cfg.MinecraftDefaultVersion)
	assert.Equal(t, 30*time.Second, cfg.BotConnectTimeout)
	assert.Equal(t, 5, cfg.MaxBots)
	assert.Equal(t, 3001, cfg.WebSocketPort)
	assert.Equal(t, "gpt-4", cfg.AIModel)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MINECRAFT_MAX_BOTS", "2")
	t.Setenv("MINECRAFT_BOT_TIMEOUT", "10s")
	t.Setenv("WEBSOCKET_PORT", "4001")

	cfg := LoadConfig()
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 2, cfg.MaxBots)
	assert.Equal(t, 10*time.Second, cfg.BotConnectTimeout)
	assert.Equal(t, 4001, cfg.WebSocketPort)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STRING", "value")
	assert.Equal(t, "value", GetEnv("TEST_STRING", "fallback"))
	assert.Equal(t, "fallback", GetEnv("TEST_MISSING", "fallback"))

	t.Setenv("TEST_INT", "not-a-number")
	assert.Equal(t, 7, GetEnvInt("TEST_INT", 7))

	t.Setenv("TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, GetEnvDuration("TEST_DURATION", time.Minute))
}
