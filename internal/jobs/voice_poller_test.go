package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radpacs/telegram-study-bot/internal/apperr"
	"github.com/radpacs/telegram-study-bot/internal/models"
)

type fakeVoiceStore struct {
	due      []models.PendingVoiceJob
	attached map[int64]string
	done     []int64
	deferred map[int64]time.Time
	failed   []int64
}

func newFakeVoiceStore(jobs ...models.PendingVoiceJob) *fakeVoiceStore {
	return &fakeVoiceStore{
		due:      jobs,
		attached: map[int64]string{},
		deferred: map[int64]time.Time{},
	}
}

func (f *fakeVoiceStore) DueVoiceJobs(ctx context.Context, now time.Time, batch int) ([]models.PendingVoiceJob, error) {
	if len(f.due) > batch {
		return f.due[:batch], nil
	}
	return f.due, nil
}

func (f *fakeVoiceStore) AttachAudio(ctx context.Context, id int64, path string) error {
	f.attached[id] = path
	return nil
}

func (f *fakeVoiceStore) MarkVoiceDone(ctx context.Context, id int64) error {
	f.done = append(f.done, id)
	return nil
}

func (f *fakeVoiceStore) DeferVoiceJob(ctx context.Context, id int64, nextAt time.Time) error {
	f.deferred[id] = nextAt
	return nil
}

func (f *fakeVoiceStore) MarkVoiceFailed(ctx context.Context, id int64) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeFetcher struct {
	failFor map[string]bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	if f.failFor[fileID] {
		return nil, apperr.TransientIOf("download %s: 404", fileID)
	}
	return []byte("OggS fake audio"), nil
}

type fakeWriter struct {
	written map[string][]byte
}

func (f *fakeWriter) Write(name string, data []byte) (string, error) {
	if f.written == nil {
		f.written = map[string][]byte{}
	}
	f.written[name] = data
	return "/data/voices/" + name, nil
}

type fakeEditSink struct {
	edits []int64
	err   error
}

func (f *fakeEditSink) Edit(ctx context.Context, studyID int64) error {
	f.edits = append(f.edits, studyID)
	return f.err
}

var pollNow = time.Date(2025, 8, 29, 12, 0, 0, 0, time.UTC)

func newTestPoller(store *fakeVoiceStore, fetcher *fakeFetcher, mirror *fakeEditSink, maxAttempts int) (*VoicePoller, *fakeWriter) {
	w := &fakeWriter{}
	p := NewVoicePoller(store, fetcher, w, mirror, VoicePollerConfig{
		BatchSize:   10,
		MaxAttempts: maxAttempts,
		Backoff:     time.Minute,
	}, zap.NewNop().Sugar()).WithNow(func() time.Time { return pollNow })
	return p, w
}

func job(id, studyID, replyID int64, fileID string, attempts int) models.PendingVoiceJob {
	return models.PendingVoiceJob{
		ID: id, StudyID: studyID, ChatID: -100500, ReplyMessageID: replyID,
		FileID: fileID, ProcessAt: pollNow.Add(-time.Minute), Attempts: attempts,
	}
}

func TestPollerProcessesJob(t *testing.T) {
	store := newFakeVoiceStore(job(1, 42, 90, "VOICE1", 0))
	mirror := &fakeEditSink{}
	p, w := newTestPoller(store, &fakeFetcher{}, mirror, 8)

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку тика: %v", err)
	}
	wantName := "study_42_reply_90.ogg"
	if _, ok := w.written[wantName]; !ok {
		t.Fatalf("файл должен сохраниться как %s, записано: %v", wantName, w.written)
	}
	if store.attached[42] != "/data/voices/"+wantName {
		t.Fatalf("audio_report_path не обновлён: %v", store.attached)
	}
	if len(store.done) != 1 || store.done[0] != 1 {
		t.Fatalf("задание должно закрыться: %v", store.done)
	}
	if len(mirror.edits) != 1 || mirror.edits[0] != 42 {
		t.Fatalf("после прикрепления зеркало правится один раз: %v", mirror.edits)
	}
}

func TestPollerFailureLeavesJobPending(t *testing.T) {
	store := newFakeVoiceStore(
		job(1, 42, 90, "BROKEN", 0),
		job(2, 43, 91, "VOICE2", 0),
	)
	mirror := &fakeEditSink{}
	p, _ := newTestPoller(store, &fakeFetcher{failFor: map[string]bool{"BROKEN": true}}, mirror, 8)

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("ошибка задания не должна валить тик: %v", err)
	}

	// первое задание не закрыто и перенесено, второе обработано
	if len(store.done) != 1 || store.done[0] != 2 {
		t.Fatalf("закрыться должно только задание 2: %v", store.done)
	}
	next, ok := store.deferred[1]
	if !ok {
		t.Fatal("неудачное задание должно быть перенесено")
	}
	if !next.Equal(pollNow.Add(time.Minute)) {
		t.Fatalf("первый перенос — на базовый бэкофф, получили %v", next)
	}
	if len(store.failed) != 0 {
		t.Fatal("до потолка попыток задание не закрывается")
	}
	if len(mirror.edits) != 1 || mirror.edits[0] != 43 {
		t.Fatalf("зеркало правится только для успешного задания: %v", mirror.edits)
	}
}

func TestPollerBackoffGrowsWithAttempts(t *testing.T) {
	store := newFakeVoiceStore(job(1, 42, 90, "BROKEN", 3))
	p, _ := newTestPoller(store, &fakeFetcher{failFor: map[string]bool{"BROKEN": true}}, &fakeEditSink{}, 8)

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку тика: %v", err)
	}
	next := store.deferred[1]
	if !next.Equal(pollNow.Add(8 * time.Minute)) {
		t.Fatalf("после 3 попыток бэкофф 1m<<3=8m, получили %v", next)
	}
}

func TestPollerBackoffCapsAtOneHour(t *testing.T) {
	// большое число попыток не должно переполнять сдвиг: пауза упирается в час
	store := newFakeVoiceStore(job(1, 42, 90, "BROKEN", 50))
	p, _ := newTestPoller(store, &fakeFetcher{failFor: map[string]bool{"BROKEN": true}}, &fakeEditSink{}, 64)

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку тика: %v", err)
	}
	next, ok := store.deferred[1]
	if !ok {
		t.Fatal("задание должно быть перенесено")
	}
	if !next.Equal(pollNow.Add(time.Hour)) {
		t.Fatalf("пауза ограничена часом, получили перенос на %v", next.Sub(pollNow))
	}
}

func TestPollerGivesUpAtMaxAttempts(t *testing.T) {
	store := newFakeVoiceStore(job(1, 42, 90, "BROKEN", 7))
	p, _ := newTestPoller(store, &fakeFetcher{failFor: map[string]bool{"BROKEN": true}}, &fakeEditSink{}, 8)

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку тика: %v", err)
	}
	if len(store.failed) != 1 || store.failed[0] != 1 {
		t.Fatalf("на восьмой попытке задание закрывается как failed: %v", store.failed)
	}
	if len(store.deferred) != 0 {
		t.Fatal("после потолка переносов быть не должно")
	}
}

func TestPollerMirrorEditFailureDoesNotReopenJob(t *testing.T) {
	store := newFakeVoiceStore(job(1, 42, 90, "VOICE1", 0))
	mirror := &fakeEditSink{err: errors.New("telegram down")}
	p, _ := newTestPoller(store, &fakeFetcher{}, mirror, 8)

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку тика: %v", err)
	}
	if len(store.done) != 1 {
		t.Fatal("задание остаётся закрытым: файл уже скачан и прикреплён")
	}
	if len(store.deferred) != 0 && len(store.failed) != 0 {
		t.Fatal("неудача правки зеркала не переоткрывает задание")
	}
}
