package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadClient_Defaults(t *testing.T) {
	t.Setenv("API_URL", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("REQUEST_TIMEOUT", "")
	t.Setenv("API_WITH_CREDENTIALS", "")

	cfg := LoadClient()
	assert.Equal(t, "http://localhost:8080/api", cfg.APIURL)
	assert.Equal(t, "/api/socket", cfg.SocketPath)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "@every 10m", cfg.ChatCacheSweep)
	assert.True(t, cfg.WithCredentials)
}

func TestLoadClient_Overrides(t *testing.T) {
	t.Setenv("API_URL", "https://skills.example.com/api")
	t.Setenv("STORAGE_DRIVER", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("API_WITH_CREDENTIALS", "false")

	cfg := LoadClient()
	assert.Equal(t, "https://skills.example.com/api", cfg.APIURL)
	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, 3, cfg.Storage.RedisDB)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.WithCredentials)
}

func TestLoadServer_BadDurationFallsBack(t *testing.T) {
	t.Setenv("TOKEN_TTL", "forever")
	cfg := LoadServer()
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
}
