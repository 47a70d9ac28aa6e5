package tg

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/radpacs/telegram-study-bot/internal/apperr"
	"github.com/radpacs/telegram-study-bot/internal/metrics"
	"github.com/radpacs/telegram-study-bot/internal/models"
)

type mirrorStore interface {
	GetStudyDetail(ctx context.Context, id int64) (*models.StudyDetail, error)
	SetMirror(ctx context.Context, id, chatID, messageID int64) error
	ClearMirror(ctx context.Context, id int64) error
}

// Syncer держит зеркальное сообщение исследования в актуальном состоянии.
// Все записи зеркала одного исследования идут через общий StudyLimiter,
// снапшот перечитывается уже под замком.
type Syncer struct {
	bot     *tgbotapi.BotAPI
	store   mirrorStore
	chatID  int64 // дефолтная группа
	limiter *StudyLimiter
	log     *zap.SugaredLogger
}

func NewSyncer(bot *tgbotapi.BotAPI, store mirrorStore, chatID int64, limiter *StudyLimiter, log *zap.SugaredLogger) *Syncer {
	return &Syncer{bot: bot, store: store, chatID: chatID, limiter: limiter, log: log}
}

// Create — первое зеркальное сообщение исследования; возвращает и сохраняет
// пару (chat_id, message_id).
func (s *Syncer) Create(ctx context.Context, studyID int64) (int64, int64, error) {
	unlock := s.limiter.Lock(studyID)
	defer unlock()

	d, err := s.store.GetStudyDetail(ctx, studyID)
	if err != nil {
		return 0, 0, err
	}

	msg := tgbotapi.NewMessage(s.chatID, BuildStudyMessage(d))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	m, err := Send(s.bot, msg)
	if err != nil {
		return 0, 0, apperr.Externalf("sendMessage for study %d: %v", studyID, err)
	}

	messageID := int64(m.MessageID)
	if err := s.store.SetMirror(ctx, studyID, s.chatID, messageID); err != nil {
		return 0, 0, err
	}
	return s.chatID, messageID, nil
}

// Edit — перечитывает исследование и полностью перезаписывает текст зеркала.
// Требует уже созданного зеркала.
func (s *Syncer) Edit(ctx context.Context, studyID int64) error {
	unlock := s.limiter.Lock(studyID)
	defer unlock()

	d, err := s.store.GetStudyDetail(ctx, studyID)
	if err != nil {
		return err
	}
	if !d.HasMirror() {
		return apperr.Validationf("study %d has no mirror message", studyID)
	}

	edit := tgbotapi.NewEditMessageText(*d.TelegramChatID, int(*d.TelegramMessageID), BuildStudyMessage(d))
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true

	if _, err := Request(s.bot, edit); err != nil {
		// идентичный текст телеграм считает ошибкой — для нас это успех
		if strings.Contains(err.Error(), "message is not modified") {
			metrics.MirrorEdits.WithLabelValues("noop").Inc()
			return nil
		}
		metrics.MirrorEdits.WithLabelValues("error").Inc()
		return apperr.Externalf("editMessageText for study %d: %v", studyID, err)
	}
	metrics.MirrorEdits.WithLabelValues("ok").Inc()
	return nil
}

// Delete — удаление зеркала (вызывается коллаборатором при удалении
// исследования). Повторное удаление — no-op.
func (s *Syncer) Delete(ctx context.Context, studyID, chatID, messageID int64) error {
	unlock := s.limiter.Lock(studyID)
	defer unlock()

	if _, err := Request(s.bot, tgbotapi.NewDeleteMessage(chatID, int(messageID))); err != nil {
		if !strings.Contains(err.Error(), "message to delete not found") {
			return apperr.Externalf("deleteMessage %d/%d: %v", chatID, messageID, err)
		}
		s.log.Debugw("mirror already deleted", "study_id", studyID, "message_id", messageID)
	}
	return s.store.ClearMirror(ctx, studyID)
}
