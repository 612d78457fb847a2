package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	req := require.New(t)
	dir := writeConfig(t, `
auth:
  secret: test-secret
websocket:
  ping_interval: 5s
  pong_wait: 20s
broadcast:
  driver: redis
redis:
  address: cache:6379
`)

	cfg, err := Load(dir)
	req.NoError(err)

	req.Equal(8000, cfg.Server.Port)
	req.Equal("0.0.0.0:8000", cfg.Server.Addr())
	req.Equal(5*time.Second, cfg.WebSocket.PingInterval)
	req.Equal(20*time.Second, cfg.WebSocket.PongWait)
	req.Equal(10*time.Second, cfg.WebSocket.WriteWait)
	req.Equal(int64(65536), cfg.WebSocket.MaxMessageSize)
	req.Equal(256, cfg.WebSocket.SendBuffer)
	req.Equal("test-secret", cfg.Auth.Secret)
	req.Equal(15*time.Minute, cfg.Auth.AccessTokenTTL)
	req.Equal("sqlite", cfg.Database.Driver)
	req.Equal("redis", cfg.Broadcast.Driver)
	req.Equal("cache:6379", cfg.Broadcast.Redis.Address)
	req.Equal("chat-broker", cfg.Log.ServiceName)
}

func TestLoad_EnvOverrides(t *testing.T) {
	req := require.New(t)
	dir := writeConfig(t, "auth:\n  secret: from-file\n")

	t.Setenv("PORT", "9100")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	req.NoError(err)
	req.Equal(9100, cfg.Server.Port)
	req.Equal("from-env", cfg.Auth.Secret)
	req.Equal("debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing secret", body: "server:\n  port: 8000\n"},
		{name: "unknown broadcast driver", body: "auth:\n  secret: s\nbroadcast:\n  driver: nats\n"},
		{name: "unknown database driver", body: "auth:\n  secret: s\ndatabase:\n  driver: oracle\n"},
		{name: "ping not shorter than pong wait", body: "auth:\n  secret: s\nwebsocket:\n  ping_interval: 60s\n  pong_wait: 30s\n"},
		{name: "bad port", body: "auth:\n  secret: s\nserver:\n  port: 70000\n"},
	}

	t.Setenv("JWT_SECRET", "")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}
