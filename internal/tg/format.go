package tg

import (
	"fmt"
	"strings"

	"github.com/radpacs/telegram-study-bot/internal/models"
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Esc — минимальное экранирование для parse_mode=HTML. Любое
// интерполируемое поле проходит через неё, иначе телеграм отклонит payload.
func Esc(s string) string {
	return htmlEscaper.Replace(s)
}

func orDash(p *string) string {
	if p == nil || *p == "" {
		return "-"
	}
	return *p
}

func orEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func mark(ok bool) string {
	if ok {
		return "✔"
	}
	return "✖"
}

// BuildStudyMessage — детерминированный рендер исследования в HTML-разметку
// зеркального сообщения. Порядок секций фиксированный.
func BuildStudyMessage(s *models.StudyDetail) string {
	var lines []string
	lines = append(lines, "<b>🩺 Study</b>")
	lines = append(lines, fmt.Sprintf("Study #%d — %s (%s)",
		s.ID, Esc(orEmpty(s.ExamTypeCode)), Esc(orEmpty(s.ModalityCode))))
	if s.ExamDetails != nil && *s.ExamDetails != "" {
		lines = append(lines, "Details: "+Esc(*s.ExamDetails))
	}

	lines = append(lines, fmt.Sprintf("Patient: <b>%s %s</b> <i>(code %s)</i>",
		Esc(s.PatientFirstname), Esc(s.PatientLastname), Esc(s.PatientCode)))

	var ageGender []string
	if s.PatientAge != nil {
		ageGender = append(ageGender, fmt.Sprintf("Age: %d", *s.PatientAge))
	}
	if s.PatientGender != nil && *s.PatientGender != "" {
		ageGender = append(ageGender, "Gender: "+Esc(*s.PatientGender))
	}
	if len(ageGender) > 0 {
		lines = append(lines, strings.Join(ageGender, " • "))
	}

	lines = append(lines, fmt.Sprintf("Date/Time: %s %s",
		Esc(orDash(s.ExamDateJalali)), Esc(orEmpty(s.ExamTime))))

	if s.Description != nil && *s.Description != "" {
		lines = append(lines, "Note: "+Esc(*s.Description))
	}

	lines = append(lines, "Resident: "+Esc(orDash(s.ResidentFullname)))
	lines = append(lines, "Attending: "+Esc(orDash(s.AttendingFullname)))

	lines = append(lines, "Audio : "+mark(s.AudioReportPath != nil && *s.AudioReportPath != ""))
	lines = append(lines, "Report: "+mark(s.TextReportPath != nil && *s.TextReportPath != ""))

	lines = append(lines, fmt.Sprintf("Status: Resident <b>%s</b> • Attending <b>%s</b>",
		mark(s.ResidentChecked), mark(s.AttendingChecked)))

	if s.DicomURL != nil && *s.DicomURL != "" {
		lines = append(lines, fmt.Sprintf(`<a href="%s">Open DICOM</a>`, Esc(*s.DicomURL)))
	}

	return strings.Join(lines, "\n")
}
