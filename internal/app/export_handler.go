package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/radpacs/telegram-study-bot/internal/db"
	"github.com/radpacs/telegram-study-bot/internal/export"
	"github.com/radpacs/telegram-study-bot/internal/models"
)

type worklistStore interface {
	ListStudies(ctx context.Context, f db.StudyFilter) ([]models.StudyDetail, error)
}

// ExportHandler — ворклист исследований в .xlsx по фильтрам.
type ExportHandler struct {
	store worklistStore
	log   *zap.SugaredLogger
}

func NewExportHandler(store worklistStore, log *zap.SugaredLogger) *ExportHandler {
	return &ExportHandler{store: store, log: log}
}

// GET /export/studies.xlsx?patient_code=&lastname=&modality=CT&modality=MR&exam_type=&date_from=&date_to=
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFromRequest(r); !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	f := db.StudyFilter{
		PatientCode:     q.Get("patient_code"),
		PatientLastname: q.Get("lastname"),
		ModalityCodes:   q["modality"],
		ExamTypeCode:    q.Get("exam_type"),
		DateFrom:        q.Get("date_from"),
		DateTo:          q.Get("date_to"),
	}

	studies, err := h.store.ListStudies(r.Context(), f)
	if err != nil {
		h.log.Errorw("export: list studies failed", "err", err)
		writeAppErr(w, err)
		return
	}

	name := "studies_" + time.Now().Format("2006-01-02") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := export.WriteStudiesXLSX(w, studies); err != nil {
		// заголовки уже ушли, остаётся только залогировать
		h.log.Errorw("export: write xlsx failed", "err", err)
	}
}

type requeueStore interface {
	RequeueVoiceJobs(ctx context.Context, ids []int64, at time.Time) (int64, error)
}

// VoiceAdminHandler — ручной возврат голосовых заданий в очередь (админ).
type VoiceAdminHandler struct {
	store requeueStore
	log   *zap.SugaredLogger
}

func NewVoiceAdminHandler(store requeueStore, log *zap.SugaredLogger) *VoiceAdminHandler {
	return &VoiceAdminHandler{store: store, log: log}
}

// POST /admin/voice/requeue  body: {"ids":[1,2]}
func (h *VoiceAdminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if actor.Role != models.Admin {
		writeErr(w, http.StatusForbidden, "admin only")
		return
	}
	var body struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.IDs) == 0 {
		writeErr(w, http.StatusBadRequest, "ids are required")
		return
	}
	n, err := h.store.RequeueVoiceJobs(r.Context(), body.IDs, time.Now())
	if err != nil {
		h.log.Errorw("voice requeue failed", "err", err)
		writeAppErr(w, err)
		return
	}
	h.log.Infow("voice jobs requeued", "actor_id", actor.ID, "count", n)
	writeJSON(w, map[string]any{"ok": true, "requeued": n})
}
