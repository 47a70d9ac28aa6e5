package tg

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/radpacs/telegram-study-bot/internal/apperr"
	"github.com/radpacs/telegram-study-bot/internal/models"
)

type fakeMirrorStore struct {
	detail  *models.StudyDetail
	mirrors []int64 // message_id каждого SetMirror
	cleared []int64
}

func (f *fakeMirrorStore) GetStudyDetail(ctx context.Context, id int64) (*models.StudyDetail, error) {
	if f.detail == nil || f.detail.ID != id {
		return nil, apperr.NotFoundf("study %d", id)
	}
	d := *f.detail
	return &d, nil
}

func (f *fakeMirrorStore) SetMirror(ctx context.Context, id, chatID, messageID int64) error {
	f.mirrors = append(f.mirrors, messageID)
	return nil
}

func (f *fakeMirrorStore) ClearMirror(ctx context.Context, id int64) error {
	f.cleared = append(f.cleared, id)
	return nil
}

// newTestBot поднимает заглушку Bot API: ответы задаются по имени метода,
// остальное (getMe и т.п.) получает пустой ok-результат.
func newTestBot(t *testing.T, responses map[string]string) *tgbotapi.BotAPI {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if body, ok := responses[path.Base(r.URL.Path)]; ok {
			_, _ = w.Write([]byte(body))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	t.Cleanup(srv.Close)

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint("TEST", srv.URL+"/bot%s/%s")
	if err != nil {
		t.Fatal(err)
	}
	return bot
}

func newTestSyncer(t *testing.T, store *fakeMirrorStore, responses map[string]string) *Syncer {
	t.Helper()
	bot := newTestBot(t, responses)
	return NewSyncer(bot, store, -100500, NewStudyLimiter(), zap.NewNop().Sugar())
}

func mirroredStudy() *models.StudyDetail {
	return &models.StudyDetail{
		ID:                42,
		PatientCode:       "P-1001",
		PatientFirstname:  "Sara",
		PatientLastname:   "Ahmadi",
		TelegramChatID:    ptrInt(-100500),
		TelegramMessageID: ptrInt(77),
	}
}

func TestSyncerCreateStoresMirror(t *testing.T) {
	store := &fakeMirrorStore{detail: &models.StudyDetail{
		ID: 42, PatientCode: "P-1001", PatientFirstname: "Sara", PatientLastname: "Ahmadi",
	}}
	s := newTestSyncer(t, store, map[string]string{
		"sendMessage": `{"ok":true,"result":{"message_id":321,"date":1,"chat":{"id":-100500,"type":"supergroup"},"text":"x"}}`,
	})

	chatID, messageID, err := s.Create(context.Background(), 42)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if chatID != -100500 || messageID != 321 {
		t.Fatalf("ожидали (-100500, 321), получили (%d, %d)", chatID, messageID)
	}
	if len(store.mirrors) != 1 || store.mirrors[0] != 321 {
		t.Fatalf("пара зеркала не сохранена: %v", store.mirrors)
	}
}

func TestSyncerEditNotModifiedIsNoop(t *testing.T) {
	store := &fakeMirrorStore{detail: mirroredStudy()}
	s := newTestSyncer(t, store, map[string]string{
		"editMessageText": `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`,
	})

	if err := s.Edit(context.Background(), 42); err != nil {
		t.Fatalf("идентичный текст — не ошибка: %v", err)
	}
}

func TestSyncerEditRequiresMirror(t *testing.T) {
	store := &fakeMirrorStore{detail: &models.StudyDetail{
		ID: 42, PatientCode: "P-1001", PatientFirstname: "Sara", PatientLastname: "Ahmadi",
	}}
	s := newTestSyncer(t, store, nil)

	err := s.Edit(context.Background(), 42)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("правка без зеркала должна давать ErrValidation, получили %v", err)
	}
}

func TestSyncerDeleteSwallowsAlreadyDeleted(t *testing.T) {
	store := &fakeMirrorStore{detail: mirroredStudy()}
	s := newTestSyncer(t, store, map[string]string{
		"deleteMessage": `{"ok":false,"error_code":400,"description":"Bad Request: message to delete not found"}`,
	})

	if err := s.Delete(context.Background(), 42, -100500, 77); err != nil {
		t.Fatalf("повторное удаление — no-op, получили %v", err)
	}
	if len(store.cleared) != 1 || store.cleared[0] != 42 {
		t.Fatalf("пара зеркала должна сброситься и при отсутствующем сообщении: %v", store.cleared)
	}
}

func TestSyncerDeleteRealErrorPropagates(t *testing.T) {
	store := &fakeMirrorStore{detail: mirroredStudy()}
	s := newTestSyncer(t, store, map[string]string{
		"deleteMessage": `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`,
	})

	err := s.Delete(context.Background(), 42, -100500, 77)
	if !errors.Is(err, apperr.ErrExternal) {
		t.Fatalf("ожидали ErrExternal, получили %v", err)
	}
	if len(store.cleared) != 0 {
		t.Fatal("при настоящей ошибке пара зеркала не сбрасывается")
	}
}
