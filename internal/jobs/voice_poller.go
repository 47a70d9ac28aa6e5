package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radpacs/telegram-study-bot/internal/models"
	"github.com/radpacs/telegram-study-bot/internal/observability"
	"github.com/radpacs/telegram-study-bot/internal/tg"
)

type voiceStore interface {
	DueVoiceJobs(ctx context.Context, now time.Time, batch int) ([]models.PendingVoiceJob, error)
	AttachAudio(ctx context.Context, id int64, path string) error
	MarkVoiceDone(ctx context.Context, id int64) error
	DeferVoiceJob(ctx context.Context, id int64, nextAt time.Time) error
	MarkVoiceFailed(ctx context.Context, id int64) error
}

type fileFetcher interface {
	Fetch(ctx context.Context, fileID string) ([]byte, error)
}

type fileWriter interface {
	Write(name string, data []byte) (string, error)
}

type mirrorSyncer interface {
	Edit(ctx context.Context, studyID int64) error
}

// VoicePoller — потребитель очереди pending_voice. Каждый тик берёт пачку
// созревших заданий и обрабатывает их строго последовательно, чтобы не
// дёргать телеграм параллельно и не перемежать записи по одному исследованию.
type VoicePoller struct {
	store   voiceStore
	fetcher fileFetcher
	files   fileWriter
	mirror  mirrorSyncer
	log     *zap.SugaredLogger

	batch       int
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time // подменяется в тестах
}

type VoicePollerConfig struct {
	BatchSize   int
	MaxAttempts int
	Backoff     time.Duration
}

func NewVoicePoller(store voiceStore, fetcher fileFetcher, files fileWriter, mirror mirrorSyncer, cfg VoicePollerConfig, log *zap.SugaredLogger) *VoicePoller {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Minute
	}
	return &VoicePoller{
		store:       store,
		fetcher:     fetcher,
		files:       files,
		mirror:      mirror,
		log:         log,
		batch:       cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
		now:         time.Now,
	}
}

// Tick — одна итерация воркера; отдаётся в Runner.Every.
func (p *VoicePoller) Tick(ctx context.Context) error {
	jobs, err := p.store.DueVoiceJobs(ctx, p.now(), p.batch)
	if err != nil {
		p.log.Errorw("voice poller: due query failed", "err", err)
		observability.CaptureErr(err)
		return err
	}
	for _, job := range jobs {
		if err := p.process(ctx, job); err != nil {
			// ошибка одного задания не трогает остальные в пачке
			p.log.Warnw("voice job failed",
				"job_id", job.ID, "study_id", job.StudyID, "attempt", job.Attempts+1, "err", err)
			p.retryOrGiveUp(ctx, job)
			continue
		}
		voiceJobsProcessed.WithLabelValues("ok").Inc()
	}
	return nil
}

func (p *VoicePoller) process(ctx context.Context, job models.PendingVoiceJob) error {
	data, err := p.fetcher.Fetch(ctx, job.FileID)
	if err != nil {
		return err
	}
	path, err := p.files.Write(tg.VoiceFilename(job.StudyID, job.ReplyMessageID), data)
	if err != nil {
		return err
	}
	if err := p.store.AttachAudio(ctx, job.StudyID, path); err != nil {
		return err
	}
	if err := p.store.MarkVoiceDone(ctx, job.ID); err != nil {
		return err
	}
	// зеркало правим уже после done: его неудача — не повод качать файл заново
	if err := p.mirror.Edit(ctx, job.StudyID); err != nil {
		p.log.Warnw("voice job: mirror edit failed", "study_id", job.StudyID, "err", err)
		observability.CaptureStudyErr(err, job.StudyID)
	}
	return nil
}

func (p *VoicePoller) retryOrGiveUp(ctx context.Context, job models.PendingVoiceJob) {
	if job.Attempts+1 >= p.maxAttempts {
		if err := p.store.MarkVoiceFailed(ctx, job.ID); err != nil {
			p.log.Errorw("voice job: mark failed", "job_id", job.ID, "err", err)
			observability.CaptureErr(err)
			return
		}
		voiceJobsProcessed.WithLabelValues("gave_up").Inc()
		p.log.Warnw("voice job gave up after max attempts", "job_id", job.ID, "attempts", job.Attempts+1)
		return
	}
	// экспоненциальная пауза от базового бэкоффа, потолок — час.
	// Сдвиг тоже ограничиваем: при большом числе попыток он переполнил бы
	// Duration в минус, и проверка потолка перестала бы работать.
	shift := job.Attempts
	if shift > 12 {
		shift = 12
	}
	delay := p.backoff << uint(shift)
	if delay <= 0 || delay > time.Hour {
		delay = time.Hour
	}
	if err := p.store.DeferVoiceJob(ctx, job.ID, p.now().Add(delay)); err != nil {
		p.log.Errorw("voice job: defer failed", "job_id", job.ID, "err", err)
		observability.CaptureErr(err)
		return
	}
	voiceJobsProcessed.WithLabelValues("retry").Inc()
}

// WithNow — инъекция часов для детерминированных тестов.
func (p *VoicePoller) WithNow(now func() time.Time) *VoicePoller {
	p.now = now
	return p
}
