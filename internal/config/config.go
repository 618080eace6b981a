package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Database  DatabaseConfig
	Invite    InviteConfig
	LogLevel  string
	TypingTTL time.Duration
}

type ServerConfig struct {
	Port            string
	StaticDir       string
	Mode            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type WebSocketConfig struct {
	ReadLimit  int64
	SendBuffer int
}

// DatabaseConfig configures the optional activity journal. An empty URL disables it.
type DatabaseConfig struct {
	URL           string
	JournalBuffer int
}

type InviteConfig struct {
	Secret []byte
	TTL    time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:            normalizePort(getEnvOrDefault("PORT", "5000")),
			StaticDir:       getEnvOrDefault("STATIC_DIR", "frontend/dist"),
			Mode:            getEnvOrDefault("GIN_MODE", "release"),
			ReadTimeout:     getDurationOrDefault("READ_TIMEOUT", "15s"),
			WriteTimeout:    getDurationOrDefault("WRITE_TIMEOUT", "15s"),
			ShutdownTimeout: getDurationOrDefault("SHUTDOWN_TIMEOUT", "10s"),
		},
		WebSocket: WebSocketConfig{
			ReadLimit:  int64(getIntOrDefault("WS_READ_LIMIT", 65536)),
			SendBuffer: getIntOrDefault("WS_SEND_BUFFER", 256),
		},
		Database: DatabaseConfig{
			URL:           os.Getenv("DATABASE_URL"),
			JournalBuffer: getIntOrDefault("JOURNAL_BUFFER", 1024),
		},
		Invite: InviteConfig{
			Secret: []byte(os.Getenv("INVITE_SECRET")),
			TTL:    getDurationOrDefault("INVITE_TTL", "24h"),
		},
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		TypingTTL: getDurationOrDefault("TYPING_TTL", "1.5s"),
	}
}

// normalizePort accepts both "5000" and ":5000".
func normalizePort(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key, defaultValue string) time.Duration {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("Invalid duration for %s: %v", key, err)
	}
	return duration
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("Invalid integer for %s: %v", key, err)
	}
	return intValue
}
