package tg

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/radpacs/telegram-study-bot/internal/apperr"
)

// SetWebhook — регистрация публичного URL вебхука у телеграма.
func SetWebhook(bot *tgbotapi.BotAPI, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return apperr.Validationf("webhook url %q: %v", url, err)
	}
	if _, err := Request(bot, wh); err != nil {
		return apperr.Externalf("setWebhook: %v", err)
	}
	return nil
}

// DeleteWebhook — снятие вебхука (например, для перехода на long polling в dev).
func DeleteWebhook(bot *tgbotapi.BotAPI, dropPending bool) error {
	if _, err := Request(bot, tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending}); err != nil {
		return apperr.Externalf("deleteWebhook: %v", err)
	}
	return nil
}
