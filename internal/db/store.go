package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/radpacs/telegram-study-bot/internal/ctxutil"
	"github.com/radpacs/telegram-study-bot/internal/models"
)

// Store — методная обёртка над функциями пакета, чтобы сервисы могли
// принимать узкие интерфейсы. Каждый вызов получает стандартный таймаут БД.
type Store struct {
	DB *sql.DB
}

func NewStore(database *sql.DB) *Store { return &Store{DB: database} }

func (s *Store) GetStudyDetail(ctx context.Context, id int64) (*models.StudyDetail, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return GetStudyDetail(ctx, s.DB, id)
}

func (s *Store) FindStudyByMirror(ctx context.Context, chatID, messageID int64) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return FindStudyByMirror(ctx, s.DB, chatID, messageID)
}

func (s *Store) SetResidentChecked(ctx context.Context, id int64, checked bool) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return SetResidentChecked(ctx, s.DB, id, checked)
}

func (s *Store) SetAttendingChecked(ctx context.Context, id int64, checked bool) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return SetAttendingChecked(ctx, s.DB, id, checked)
}

func (s *Store) CascadeUnsign(ctx context.Context, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return CascadeUnsign(ctx, s.DB, id)
}

func (s *Store) SetMirror(ctx context.Context, id, chatID, messageID int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return SetMirror(ctx, s.DB, id, chatID, messageID)
}

func (s *Store) ClearMirror(ctx context.Context, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return ClearMirror(ctx, s.DB, id)
}

func (s *Store) AttachAudio(ctx context.Context, id int64, path string) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return AttachAudio(ctx, s.DB, id, path)
}

func (s *Store) AttachReport(ctx context.Context, id int64, path string) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return AttachReport(ctx, s.DB, id, path)
}

func (s *Store) InsertPendingVoice(ctx context.Context, job models.PendingVoiceJob) (bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return InsertPendingVoice(ctx, s.DB, job)
}

func (s *Store) DueVoiceJobs(ctx context.Context, now time.Time, batch int) ([]models.PendingVoiceJob, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return DueVoiceJobs(ctx, s.DB, now, batch)
}

func (s *Store) MarkVoiceDone(ctx context.Context, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return MarkVoiceDone(ctx, s.DB, id)
}

func (s *Store) DeferVoiceJob(ctx context.Context, id int64, nextAt time.Time) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return DeferVoiceJob(ctx, s.DB, id, nextAt)
}

func (s *Store) MarkVoiceFailed(ctx context.Context, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return MarkVoiceFailed(ctx, s.DB, id)
}

func (s *Store) RequeueVoiceJobs(ctx context.Context, ids []int64, at time.Time) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return RequeueVoiceJobs(ctx, s.DB, ids, at)
}

func (s *Store) ListStudies(ctx context.Context, f StudyFilter) ([]models.StudyDetail, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	return ListStudies(ctx, s.DB, f)
}
