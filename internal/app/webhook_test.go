package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radpacs/telegram-study-bot/internal/apperr"
	"github.com/radpacs/telegram-study-bot/internal/models"
)

type fakeIntakeStore struct {
	mirrorChatID    int64
	mirrorMessageID int64
	studyID         int64
	seenUpdates     map[int64]bool
	jobs            []models.PendingVoiceJob
	findErr         error
	insertErr       error
}

func (f *fakeIntakeStore) FindStudyByMirror(ctx context.Context, chatID, messageID int64) (int64, error) {
	if f.findErr != nil {
		return 0, f.findErr
	}
	if chatID == f.mirrorChatID && messageID == f.mirrorMessageID {
		return f.studyID, nil
	}
	return 0, apperr.NotFoundf("study with mirror (%d, %d)", chatID, messageID)
}

func (f *fakeIntakeStore) InsertPendingVoice(ctx context.Context, job models.PendingVoiceJob) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if job.UpdateID != nil {
		if f.seenUpdates == nil {
			f.seenUpdates = map[int64]bool{}
		}
		if f.seenUpdates[*job.UpdateID] {
			return false, nil
		}
		f.seenUpdates[*job.UpdateID] = true
	}
	f.jobs = append(f.jobs, job)
	return true, nil
}

var testNow = time.Date(2025, 8, 29, 12, 0, 0, 0, time.UTC)

func newTestWebhook(store *fakeIntakeStore) *WebhookHandler {
	h := NewWebhookHandler(store, 5*time.Minute, zap.NewNop().Sugar())
	return h.WithNow(func() time.Time { return testNow })
}

func postUpdate(t *testing.T, h *WebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/telegram/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("вебхук всегда отвечает 200, получили %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("неожиданное тело ответа: %s", rec.Body.String())
	}
	return rec
}

func TestWebhookQueuesVoiceReply(t *testing.T) {
	store := &fakeIntakeStore{mirrorChatID: -100500, mirrorMessageID: 77, studyID: 42}
	h := newTestWebhook(store)

	postUpdate(t, h, `{"update_id":1,"message":{"message_id":90,"chat":{"id":-100500},
		"reply_to_message":{"message_id":77},"voice":{"file_id":"VOICE1"}}}`)

	if len(store.jobs) != 1 {
		t.Fatalf("ожидали одно задание, получили %d", len(store.jobs))
	}
	job := store.jobs[0]
	if job.StudyID != 42 || job.FileID != "VOICE1" || job.ReplyMessageID != 90 {
		t.Fatalf("неожиданное задание: %+v", job)
	}
	if !job.ProcessAt.Equal(testNow.Add(5 * time.Minute)) {
		t.Fatalf("process_at должен быть now+5m, получили %v", job.ProcessAt)
	}
}

func TestWebhookIgnoresUnknownMirror(t *testing.T) {
	store := &fakeIntakeStore{mirrorChatID: -100500, mirrorMessageID: 77, studyID: 42}
	h := newTestWebhook(store)

	postUpdate(t, h, `{"update_id":2,"message":{"message_id":91,"chat":{"id":-100500},
		"reply_to_message":{"message_id":9999},"voice":{"file_id":"VOICE1"}}}`)

	if len(store.jobs) != 0 {
		t.Fatal("ответ на чужое сообщение не должен создавать задание")
	}
}

func TestWebhookIgnoresNonReplyAndNonAudio(t *testing.T) {
	store := &fakeIntakeStore{mirrorChatID: -100500, mirrorMessageID: 77, studyID: 42}
	h := newTestWebhook(store)

	// не reply
	postUpdate(t, h, `{"update_id":3,"message":{"message_id":92,"chat":{"id":-100500},"voice":{"file_id":"V"}}}`)
	// reply без аудио
	postUpdate(t, h, `{"update_id":4,"message":{"message_id":93,"chat":{"id":-100500},
		"reply_to_message":{"message_id":77},"text":"looks fine"}}`)
	// мусор
	postUpdate(t, h, `{"nonsense`)
	// пустой апдейт
	postUpdate(t, h, `{}`)

	if len(store.jobs) != 0 {
		t.Fatalf("не ожидали заданий, получили %d", len(store.jobs))
	}
}

func TestWebhookVoiceTakesPrecedenceOverAudio(t *testing.T) {
	store := &fakeIntakeStore{mirrorChatID: -100500, mirrorMessageID: 77, studyID: 42}
	h := newTestWebhook(store)

	postUpdate(t, h, `{"update_id":5,"message":{"message_id":94,"chat":{"id":-100500},
		"reply_to_message":{"message_id":77},"voice":{"file_id":"VOICE"},"audio":{"file_id":"AUDIO"}}}`)

	if len(store.jobs) != 1 || store.jobs[0].FileID != "VOICE" {
		t.Fatalf("voice имеет приоритет над audio: %+v", store.jobs)
	}
}

func TestWebhookStoreErrorIsNotAcked(t *testing.T) {
	body := `{"update_id":7,"message":{"message_id":96,"chat":{"id":-100500},
		"reply_to_message":{"message_id":77},"voice":{"file_id":"VOICE1"}}}`

	// ошибка вставки: 200 не отдаём, телеграм доставит апдейт повторно
	store := &fakeIntakeStore{mirrorChatID: -100500, mirrorMessageID: 77, studyID: 42,
		insertErr: errors.New("db down")}
	h := newTestWebhook(store)
	req := httptest.NewRequest("POST", "/telegram/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 500 {
		t.Fatalf("ошибка хранилища должна давать 500, получили %d", rec.Code)
	}

	// ошибка поиска зеркала (не «не найдено») — тоже без подтверждения
	store = &fakeIntakeStore{mirrorChatID: -100500, mirrorMessageID: 77, studyID: 42,
		findErr: errors.New("db down")}
	h = newTestWebhook(store)
	req = httptest.NewRequest("POST", "/telegram/webhook", strings.NewReader(body))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 500 {
		t.Fatalf("ошибка поиска зеркала должна давать 500, получили %d", rec.Code)
	}
	if len(store.jobs) != 0 {
		t.Fatal("задание при этом не создаётся")
	}
}

func TestWebhookDeduplicatesRedelivery(t *testing.T) {
	store := &fakeIntakeStore{mirrorChatID: -100500, mirrorMessageID: 77, studyID: 42}
	h := newTestWebhook(store)

	body := `{"update_id":6,"message":{"message_id":95,"chat":{"id":-100500},
		"reply_to_message":{"message_id":77},"voice":{"file_id":"VOICE1"}}}`
	postUpdate(t, h, body)
	postUpdate(t, h, body)

	if len(store.jobs) != 1 {
		t.Fatalf("повторная доставка апдейта не должна плодить задания, получили %d", len(store.jobs))
	}
}
