package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radpacs/telegram-study-bot/internal/apperr"
	"github.com/radpacs/telegram-study-bot/internal/metrics"
	"github.com/radpacs/telegram-study-bot/internal/models"
)

type intakeStore interface {
	FindStudyByMirror(ctx context.Context, chatID, messageID int64) (int64, error)
	InsertPendingVoice(ctx context.Context, job models.PendingVoiceJob) (bool, error)
}

// WebhookHandler — приём апдейтов телеграма. Быстрый и синхронный: никаких
// скачиваний, только фиксация намерения в pending_voice. Неинтересные и
// кривые апдейты подтверждаем 200 (ретраи по ним бесполезны); ошибка
// хранилища отдаёт 500 — пусть телеграм доставит апдейт ещё раз.
type WebhookHandler struct {
	store intakeStore
	delay time.Duration // отсрочка обработки: врач успевает перезаписать голосовое
	log   *zap.SugaredLogger
	now   func() time.Time
}

func NewWebhookHandler(store intakeStore, delay time.Duration, log *zap.SugaredLogger) *WebhookHandler {
	return &WebhookHandler{store: store, delay: delay, log: log, now: time.Now}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	metrics.WebhookUpdates.Inc()
	reqID := uuid.NewString()

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.log.Debugw("webhook: malformed update", "req_id", reqID, "err", err)
		ackOK(w)
		return
	}

	msg := update.Message
	if msg == nil || msg.ReplyToMessage == nil || msg.Chat == nil {
		ackOK(w)
		return
	}

	studyID, err := h.store.FindStudyByMirror(r.Context(), msg.Chat.ID, int64(msg.ReplyToMessage.MessageID))
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			h.log.Errorw("webhook: mirror lookup failed", "req_id", reqID, "err", err)
			metrics.HandlerErrors.Inc()
			http.Error(w, "storage unavailable", http.StatusInternalServerError)
			return
		}
		ackOK(w)
		return
	}

	// голосовое приоритетнее аудиофайла; без того и другого апдейт неинтересен
	var fileID string
	switch {
	case msg.Voice != nil:
		fileID = msg.Voice.FileID
	case msg.Audio != nil:
		fileID = msg.Audio.FileID
	default:
		ackOK(w)
		return
	}

	updateID := int64(update.UpdateID)
	inserted, err := h.store.InsertPendingVoice(r.Context(), models.PendingVoiceJob{
		StudyID:        studyID,
		ChatID:         msg.Chat.ID,
		ReplyMessageID: int64(msg.MessageID),
		FileID:         fileID,
		UpdateID:       &updateID,
		ProcessAt:      h.now().Add(h.delay),
	})
	if err != nil {
		h.log.Errorw("webhook: queue voice job failed", "req_id", reqID, "study_id", studyID, "err", err)
		metrics.HandlerErrors.Inc()
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
		return
	}
	if inserted {
		metrics.VoiceJobsQueued.Inc()
		h.log.Infow("voice reply queued", "req_id", reqID, "study_id", studyID, "update_id", updateID)
	} else {
		h.log.Debugw("webhook: duplicate update ignored", "req_id", reqID, "update_id", updateID)
	}
	ackOK(w)
}

func ackOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

// WithNow — инъекция часов для тестов.
func (h *WebhookHandler) WithNow(now func() time.Time) *WebhookHandler {
	h.now = now
	return h
}
