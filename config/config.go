package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds process configuration loaded from environment variables.
// User-editable settings (symbols, profile, votes, paper) live in the
// settings file instead.
type Config struct {
	// Telegram delivery; both must be set to enable it.
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string

	// Infrastructure. An empty RedisAddr runs without Redis.
	RedisAddr     string
	RedisPassword string
	JournalPath   string
	SettingsPath  string
	AdsPath       string
	HTTPAddr      string
	MetricsAddr   string

	// Public market data APIs
	ExchangeBaseURL  string
	CoinGeckoBaseURL string

	LogLevel string
}

// Load reads configuration from the environment, first loading envFiles
// (default ".env") when present. Variables already set in the environment
// win over file values.
func Load(envFiles ...string) *Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	return &Config{
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		JournalPath:   getEnv("JOURNAL_PATH", "data/paper.db"),
		SettingsPath:  getEnv("SETTINGS_PATH", "settings.yaml"),
		AdsPath:       getEnv("ADS_PATH", "ads.json"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		ExchangeBaseURL:  getEnv("EXCHANGE_BASE_URL", "https://api.binance.com"),
		CoinGeckoBaseURL: getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// TelegramEnabled reports whether Telegram credentials are configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}
