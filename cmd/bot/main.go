package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/radpacs/telegram-study-bot/internal/app"
	"github.com/radpacs/telegram-study-bot/internal/config"
	"github.com/radpacs/telegram-study-bot/internal/db"
	"github.com/radpacs/telegram-study-bot/internal/jobs"
	"github.com/radpacs/telegram-study-bot/internal/logging"
	"github.com/radpacs/telegram-study-bot/internal/notify"
	"github.com/radpacs/telegram-study-bot/internal/observability"
	"github.com/radpacs/telegram-study-bot/internal/reports"
	"github.com/radpacs/telegram-study-bot/internal/sign"
	"github.com/radpacs/telegram-study-bot/internal/storage"
	"github.com/radpacs/telegram-study-bot/internal/tg"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("нет .env файла, используем переменные окружения")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("конфигурация: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("логгер: %v", err)
	}
	defer lg.Closer()
	slog := lg.Sugar

	closeSentry, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, "study-bot")
	if err != nil {
		slog.Warnw("sentry init failed", "err", err)
	}
	defer closeSentry()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		slog.Fatalw("db connect failed", "err", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		slog.Fatalw("db migrate failed", "err", err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		slog.Fatalw("bot init failed", "err", err)
	}
	slog.Infow("bot started", "username", bot.Self.UserName)

	if cfg.WebhookURL != "" {
		if err := tg.SetWebhook(bot, cfg.WebhookURL); err != nil {
			slog.Fatalw("setWebhook failed", "url", cfg.WebhookURL, "err", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := db.NewStore(database)
	limiter := tg.NewStudyLimiter()
	syncer := tg.NewSyncer(bot, store, cfg.MirrorChatID, limiter, slog)
	reportStore := reports.NewStore(cfg.ReportDir)
	dispatcher := notify.NewDispatcher(bot, cfg.NotifyChatID, slog)
	signSvc := sign.NewService(store, syncer, reportStore, dispatcher, slog)

	voiceFiles := storage.NewFiles(cfg.VoiceSaveDir)
	if err := voiceFiles.EnsureDir(); err != nil {
		slog.Fatalw("voice dir init failed", "dir", cfg.VoiceSaveDir, "err", err)
	}
	poller := jobs.NewVoicePoller(store, tg.NewFileFetcher(bot), voiceFiles, syncer, jobs.VoicePollerConfig{
		BatchSize:   cfg.VoiceBatchSize,
		MaxAttempts: cfg.VoiceMaxAttempts,
		Backoff:     cfg.VoiceRetryBackoff,
	}, slog)

	runner := jobs.New(ctx, slog)
	runner.Every(cfg.VoicePollInterval, "voice_poller", poller.Tick)

	app.StartHTTP(ctx, cfg.HTTPAddr, database, app.Handlers{
		Webhook:    app.NewWebhookHandler(store, cfg.VoiceProcessDelay, slog),
		Sign:       app.NewSignHandler(signSvc, slog),
		Report:     app.NewReportHandler(reportStore, store, slog),
		Export:     app.NewExportHandler(store, slog),
		VoiceAdmin: app.NewVoiceAdminHandler(store, slog),
		LogLevel:   lg.Level,
	})
	slog.Infow("http server started", "addr", cfg.HTTPAddr)

	<-ctx.Done()
	slog.Infow("shutting down")
}
