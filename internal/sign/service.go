package sign

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radpacs/telegram-study-bot/internal/apperr"
	"github.com/radpacs/telegram-study-bot/internal/ctxutil"
	"github.com/radpacs/telegram-study-bot/internal/models"
	"github.com/radpacs/telegram-study-bot/internal/observability"
)

type StudyStore interface {
	GetStudyDetail(ctx context.Context, id int64) (*models.StudyDetail, error)
	SetResidentChecked(ctx context.Context, id int64, checked bool) error
	SetAttendingChecked(ctx context.Context, id int64, checked bool) error
	CascadeUnsign(ctx context.Context, id int64) error
}

type MirrorSyncer interface {
	Edit(ctx context.Context, studyID int64) error
}

type ReportReader interface {
	Read(studyID int64) (string, error)
}

type Notifier interface {
	AnnounceFinalSign(ctx context.Context, d *models.StudyDetail, reportText string)
}

// Result — флаги подписи после операции.
type Result struct {
	ResidentChecked  bool
	AttendingChecked bool
}

// Service — конечный автомат подписи: Unsigned (0,0) → ResidentSigned (1,0)
// → FullySigned (1,1). Состояние (0,1) достижимо только действиями админа.
type Service struct {
	store    StudyStore
	mirror   MirrorSyncer
	reports  ReportReader
	notifier Notifier
	log      *zap.SugaredLogger
}

func NewService(store StudyStore, mirror MirrorSyncer, reports ReportReader, notifier Notifier, log *zap.SugaredLogger) *Service {
	return &Service{store: store, mirror: mirror, reports: reports, notifier: notifier, log: log}
}

// SetResident — подпись/снятие подписи ординатора.
func (s *Service) SetResident(ctx context.Context, studyID int64, actor models.Actor, checked bool) (Result, error) {
	d, err := s.store.GetStudyDetail(ctx, studyID)
	if err != nil {
		return Result{}, err
	}
	if !models.CanSign(actor, d, models.TargetResident) {
		return Result{}, apperr.Forbiddenf("resident sign on study %d is only for the corresponding resident", studyID)
	}

	if !checked && d.AttendingChecked {
		if actor.Role != models.Admin {
			return Result{}, apperr.Conflictf("cannot uncheck resident after attending has signed")
		}
		// каскад: админ снимает подпись ординатора — падают обе, одной записью
		if err := s.store.CascadeUnsign(ctx, studyID); err != nil {
			return Result{}, err
		}
		s.editMirror(ctx, studyID)
		return Result{ResidentChecked: false, AttendingChecked: false}, nil
	}

	if err := s.store.SetResidentChecked(ctx, studyID, checked); err != nil {
		return Result{}, err
	}
	s.editMirror(ctx, studyID)
	return Result{ResidentChecked: checked, AttendingChecked: d.AttendingChecked}, nil
}

// SetAttending — подпись/снятие подписи аттендинга. Переход 0→1 порождает
// итоговое оповещение; его неудача на результат не влияет.
func (s *Service) SetAttending(ctx context.Context, studyID int64, actor models.Actor, checked bool) (Result, error) {
	d, err := s.store.GetStudyDetail(ctx, studyID)
	if err != nil {
		return Result{}, err
	}
	if !models.CanSign(actor, d, models.TargetAttending) {
		return Result{}, apperr.Forbiddenf("attending sign on study %d is only for the corresponding attending", studyID)
	}
	if checked && !d.ResidentChecked && actor.Role != models.Admin {
		return Result{}, apperr.Conflictf("resident must sign first")
	}

	if err := s.store.SetAttendingChecked(ctx, studyID, checked); err != nil {
		return Result{}, err
	}

	if checked && !d.AttendingChecked {
		go s.announce(studyID)
	}

	s.editMirror(ctx, studyID)
	return Result{ResidentChecked: d.ResidentChecked, AttendingChecked: checked}, nil
}

// Неудача правки зеркала после успешной записи состояния не отдаётся
// вызывающему: логируем и шлём в Sentry, как и с голосовыми заданиями.
func (s *Service) editMirror(ctx context.Context, studyID int64) {
	if err := s.mirror.Edit(ctx, studyID); err != nil {
		s.log.Warnw("mirror edit failed after sign-off write", "study_id", studyID, "err", err)
		observability.CaptureStudyErr(err, studyID)
	}
}

func (s *Service) announce(studyID int64) {
	ctx, cancel := ctxutil.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	d, err := s.store.GetStudyDetail(ctx, studyID)
	if err != nil {
		s.log.Warnw("final sign announce: reload failed", "study_id", studyID, "err", err)
		return
	}
	reportText, err := s.reports.Read(studyID)
	if err != nil {
		s.log.Warnw("final sign announce: report read failed", "study_id", studyID, "err", err)
		reportText = ""
	}
	s.notifier.AnnounceFinalSign(ctx, d, reportText)
}
