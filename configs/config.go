package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/anjiri1684/skill_exchange/logger"
)

var loadEnv sync.Once

// Config returns the value of key, loading .env on first use.
func Config(key string) string {
	loadEnv.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			zap.L().Debug("no .env file found, reading from system environment variables")
		}
	})
	return os.Getenv(key)
}

func getenv(key, def string) string {
	if v := Config(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := Config(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getInt(key string, def int) int {
	v := Config(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := Config(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// StorageConfig selects the durable client storage backend.
type StorageConfig struct {
	Driver        string // memory, sqlite, postgres, redis
	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type ClientConfig struct {
	APIURL         string
	SocketPath     string
	RequestTimeout time.Duration
	// WithCredentials makes the request client replay cookies the API sets.
	WithCredentials bool
	Storage         StorageConfig
	ChatCacheSweep  string
	Log             logger.Config
}

func LoadClient() ClientConfig {
	return ClientConfig{
		APIURL:          getenv("API_URL", "http://localhost:8080/api"),
		SocketPath:      getenv("SOCKET_PATH", "/api/socket"),
		RequestTimeout:  getDuration("REQUEST_TIMEOUT", 15*time.Second),
		WithCredentials: getBool("API_WITH_CREDENTIALS", true),
		Storage: StorageConfig{
			Driver:        getenv("STORAGE_DRIVER", "sqlite"),
			DSN:           getenv("STORAGE_DSN", "skillswap.db"),
			RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: Config("REDIS_PASSWORD"),
			RedisDB:       getInt("REDIS_DB", 0),
		},
		ChatCacheSweep: getenv("CHAT_CACHE_SWEEP", "@every 10m"),
		Log:            loadLog(),
	}
}

type ServerConfig struct {
	Port           string
	DatabaseDriver string
	DatabaseURL    string
	JWTSecret      string
	TokenTTL       time.Duration
	AdminName      string
	AdminEmail     string
	AdminPassword  string
	CloudinaryURL  string
	Log            logger.Config
}

func LoadServer() ServerConfig {
	return ServerConfig{
		Port:           getenv("APP_PORT", "8080"),
		DatabaseDriver: getenv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getenv("DATABASE_URL", "file:skillswap-dev.db"),
		JWTSecret:      getenv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:       getDuration("TOKEN_TTL", 72*time.Hour),
		AdminName:      getenv("ADMIN_FULL_NAME", "Site Admin"),
		AdminEmail:     Config("ADMIN_EMAIL"),
		AdminPassword:  Config("ADMIN_PASSWORD"),
		CloudinaryURL:  Config("CLOUDINARY_URL"),
		Log:            loadLog(),
	}
}

func loadLog() logger.Config {
	return logger.Config{
		Level:  getenv("LOG_LEVEL", "info"),
		Format: getenv("LOG_FORMAT", "console"),
		Output: getenv("LOG_OUTPUT", "stderr"),
	}
}
