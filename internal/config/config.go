package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	BotToken    string
	DatabaseURL string
	HTTPAddr    string
	LogLevel    string
	Env         string // dev|prod
	SentryDSN   string

	// Зеркала исследований шлём сюда (id группы, может быть отрицательным).
	MirrorChatID int64
	// Итоговые оповещения о подписи — отдельный чат; если не задан, берём MirrorChatID.
	NotifyChatID int64
	// Публичный URL вебхука; пустой — не регистрируем (локальная разработка через туннель).
	WebhookURL string

	VoiceSaveDir string
	ReportDir    string

	// Параметры воркера голосовых ответов.
	VoicePollInterval time.Duration
	VoiceProcessDelay time.Duration
	VoiceBatchSize    int
	VoiceMaxAttempts  int
	VoiceRetryBackoff time.Duration
}

func Load() (*Config, error) {
	mirrorChat, err := parseInt64(mustEnv("TELEGRAM_CHAT_ID"))
	if err != nil {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
	}
	notifyChat := mirrorChat
	if v := os.Getenv("TELEGRAM_NOTIFY_CHAT_ID"); v != "" {
		notifyChat, err = parseInt64(v)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_NOTIFY_CHAT_ID: %w", err)
		}
	}

	cfg := &Config{
		BotToken:    mustEnv("BOT_TOKEN"),
		DatabaseURL: mustEnv("DATABASE_URL"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		Env:         getenv("ENV", "dev"),
		SentryDSN:   os.Getenv("SENTRY_DSN"),

		MirrorChatID: mirrorChat,
		NotifyChatID: notifyChat,
		WebhookURL:   os.Getenv("WEBHOOK_URL"),

		VoiceSaveDir: getenv("VOICE_SAVE_DIR", "/data/voices"),
		ReportDir:    getenv("REPORT_DIR", "/data/reports"),

		VoicePollInterval: getdur("VOICE_POLL_INTERVAL", 30*time.Second),
		VoiceProcessDelay: getdur("VOICE_PROCESS_DELAY", 5*time.Minute),
		VoiceBatchSize:    getint("VOICE_BATCH_SIZE", 10),
		VoiceMaxAttempts:  getint("VOICE_MAX_ATTEMPTS", 8),
		VoiceRetryBackoff: getdur("VOICE_RETRY_BACKOFF", time.Minute),
	}
	return cfg, nil
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("required env " + k + " is empty")
	}
	return v
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseInt64(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad id %q: %w", s, err)
	}
	return n, nil
}
