package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "REDIS_ADDR", "HTTP_ADDR", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	if cfg.RedisAddr != "" || cfg.HTTPAddr != ":8080" || cfg.LogLevel != "info" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.TelegramEnabled() {
		t.Error("telegram should be disabled without credentials")
	}
}

func TestLoad_EnvFileAndOverride(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "TELEGRAM_BOT_TOKEN=file-token\nTELEGRAM_CHAT_ID=42\nHTTP_ADDR=:7000\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// Registers cleanup for the variables the file will set.
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	os.Unsetenv("TELEGRAM_BOT_TOKEN")
	os.Unsetenv("TELEGRAM_CHAT_ID")
	t.Setenv("HTTP_ADDR", ":9999")

	cfg := Load(envFile)
	if cfg.TelegramBotToken != "file-token" || cfg.TelegramChatID != "42" {
		t.Errorf("file values not loaded: %+v", cfg)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("environment should win over file: %q", cfg.HTTPAddr)
	}
	if !cfg.TelegramEnabled() {
		t.Error("telegram should be enabled")
	}
}
