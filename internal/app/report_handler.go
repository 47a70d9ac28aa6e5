package app

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/radpacs/telegram-study-bot/internal/observability"
)

type reportStore interface {
	Read(studyID int64) (string, error)
	Write(studyID int64, text string) (string, error)
}

type reportAttacher interface {
	AttachReport(ctx context.Context, id int64, path string) error
}

// ReportHandler — чтение/запись текста отчёта. Сам текст живёт файлом,
// в studies пишем только путь.
type ReportHandler struct {
	reports reportStore
	store   reportAttacher
	log     *zap.SugaredLogger
}

func NewReportHandler(reports reportStore, store reportAttacher, log *zap.SugaredLogger) *ReportHandler {
	return &ReportHandler{reports: reports, store: store, log: log}
}

// GET /studies/{id}/report
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFromRequest(r); !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	studyID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid study id")
		return
	}
	text, err := h.reports.Read(studyID)
	if err != nil {
		h.log.Errorw("report read failed", "study_id", studyID, "err", err)
		observability.CaptureErr(err)
		writeAppErr(w, err)
		return
	}
	writeJSON(w, map[string]string{"text": text})
}

// PUT /studies/{id}/report
func (h *ReportHandler) Put(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFromRequest(r); !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	studyID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid study id")
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json body")
		return
	}

	path, err := h.reports.Write(studyID, body.Text)
	if err != nil {
		h.log.Errorw("report write failed", "study_id", studyID, "err", err)
		observability.CaptureErr(err)
		writeAppErr(w, err)
		return
	}
	if err := h.store.AttachReport(r.Context(), studyID, path); err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "path": path})
}
