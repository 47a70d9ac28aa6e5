package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/radpacs/telegram-study-bot/internal/apperr"
	"github.com/radpacs/telegram-study-bot/internal/models"
	"github.com/radpacs/telegram-study-bot/internal/sign"
)

// actorFromRequest — аутентификацию делает внешний слой, сюда приходят
// заголовки с уже проверенной личностью.
func actorFromRequest(r *http.Request) (models.Actor, bool) {
	id, err := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	if err != nil {
		return models.Actor{}, false
	}
	role := models.Role(r.Header.Get("X-Actor-Role"))
	switch role {
	case models.Admin, models.Resident, models.Attending:
	default:
		return models.Actor{}, false
	}
	return models.Actor{ID: id, Role: role}, true
}

type signService interface {
	SetResident(ctx context.Context, studyID int64, actor models.Actor, checked bool) (sign.Result, error)
	SetAttending(ctx context.Context, studyID int64, actor models.Actor, checked bool) (sign.Result, error)
}

type SignHandler struct {
	svc signService
	log *zap.SugaredLogger
}

func NewSignHandler(svc signService, log *zap.SugaredLogger) *SignHandler {
	return &SignHandler{svc: svc, log: log}
}

// POST /studies/{id}/sign  body: {"role":"resident|attending","checked":bool}
func (h *SignHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	studyID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid study id")
		return
	}

	var body struct {
		Role    string `json:"role"`
		Checked bool   `json:"checked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json body")
		return
	}

	var res sign.Result
	switch body.Role {
	case "resident":
		res, err = h.svc.SetResident(r.Context(), studyID, actor, body.Checked)
	case "attending":
		res, err = h.svc.SetAttending(r.Context(), studyID, actor, body.Checked)
	default:
		writeErr(w, http.StatusBadRequest, "invalid role")
		return
	}
	if err != nil {
		h.log.Warnw("sign request rejected", "study_id", studyID, "actor_id", actor.ID, "err", err)
		writeAppErr(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"ok":                true,
		"resident_checked":  boolToInt(res.ResidentChecked),
		"attending_checked": boolToInt(res.AttendingChecked),
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeAppErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		writeErr(w, http.StatusForbidden, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		writeErr(w, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrExternal):
		writeErr(w, http.StatusBadGateway, err.Error())
	default:
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}
