// Файл: pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type ServerConfig struct {
	Port string
}

type JWTConfig struct {
	SecretKey string
}

type RedisConfig struct {
	Address  string
	Password string
}

// PushConfig - настройки push-канала (websocket) HR-платформы.
type PushConfig struct {
	Endpoint     string
	WriteTimeout time.Duration
	PongTimeout  time.Duration
}

// GatewayConfig - адреса доменных сервисов, из которых собирается лента.
type GatewayConfig struct {
	LeaveBaseURL      string
	TaskBaseURL       string
	AttendanceBaseURL string
	ChatBaseURL       string
	FetchLimit        int
	RequestTimeout    time.Duration
}

// FeedConfig - параметры самого агрегатора.
type FeedConfig struct {
	MaxItems        int
	RefreshInterval time.Duration
}

type Config struct {
	Server  ServerConfig
	JWT     JWTConfig
	Redis   RedisConfig
	Push    PushConfig
	Gateway GatewayConfig
	Feed    FeedConfig
}

func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Предупреждение: .env файл не найден или не удалось его загрузить.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", "9A4D2AD385B2BAA8DC78F558B548F"),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Push: PushConfig{
			Endpoint:     getEnv("PUSH_ENDPOINT", "ws://localhost:9090/ws"),
			WriteTimeout: 10 * time.Second,
			PongTimeout:  60 * time.Second,
		},
		Gateway: GatewayConfig{
			LeaveBaseURL:      getEnv("LEAVE_SERVICE_URL", "http://localhost:8081"),
			TaskBaseURL:       getEnv("TASK_SERVICE_URL", "http://localhost:8082"),
			AttendanceBaseURL: getEnv("ATTENDANCE_SERVICE_URL", "http://localhost:8083"),
			ChatBaseURL:       getEnv("CHAT_SERVICE_URL", "http://localhost:8084"),
			FetchLimit:        getEnvInt("GATEWAY_FETCH_LIMIT", 20),
			RequestTimeout:    15 * time.Second,
		},
		Feed: FeedConfig{
			MaxItems:        getEnvInt("FEED_MAX_ITEMS", 50),
			RefreshInterval: time.Minute * 5,
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
