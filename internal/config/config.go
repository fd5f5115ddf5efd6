package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string
	MySQLDSN   string
	RedisAddr  string
	RedisDB    int
	RedisPass  string
	JWTSecret  string
	LogLevel   string

	// Circulation policy
	DefaultLoanDays      int // due date when the borrower picks no date
	DueSoonDays          int // reminder window before the due date, boundary inclusive
	ReservationGraceDays int // how long a notified reservation is held

	// Notification sinks
	SlackBotToken   string
	SlackEnabled    bool
	MailWebhookURL  string
	AdminSlackEmail string
}

// Load builds Config from environment with sensible defaults. A .env file in
// the working directory is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		MySQLDSN:   getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/libcirc?charset=utf8mb4&parseTime=True&loc=UTC"),
		RedisAddr:  getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:    getEnvInt("REDIS_DB", 0),
		RedisPass:  os.Getenv("REDIS_PASSWORD"),
		JWTSecret:  getEnv("JWT_SECRET", "change-me"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		DefaultLoanDays:      getEnvInt("DEFAULT_LOAN_DAYS", 14),
		DueSoonDays:          getEnvInt("DUE_SOON_DAYS", 3),
		ReservationGraceDays: getEnvInt("RESERVATION_GRACE_DAYS", 7),

		SlackBotToken:   os.Getenv("SLACK_BOT_TOKEN"),
		SlackEnabled:    getEnvBool("SLACK_ENABLED", false),
		MailWebhookURL:  os.Getenv("MAIL_WEBHOOK_URL"),
		AdminSlackEmail: os.Getenv("ADMIN_SLACK_EMAIL"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return def
}
