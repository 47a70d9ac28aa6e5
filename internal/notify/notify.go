package notify

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/radpacs/telegram-study-bot/internal/models"
	"github.com/radpacs/telegram-study-bot/internal/observability"
	"github.com/radpacs/telegram-study-bot/internal/tg"
)

var boldRe = regexp.MustCompile(`\*\*([^*]+)\*\*`)

// markdownToHTML — минимальная конвертация: **текст** → <b>текст</b>.
// Диктовки приходят с маркдауновским жирным, телеграму нужен HTML-тег.
func markdownToHTML(text string) string {
	return boldRe.ReplaceAllString(text, "<b>$1</b>")
}

// Dispatcher — широковещательное оповещение об итоговой подписи.
// Строго best-effort: любая ошибка гасится здесь и не доходит до запроса,
// который подпись выполнил.
type Dispatcher struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zap.SugaredLogger
}

func NewDispatcher(bot *tgbotapi.BotAPI, chatID int64, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{bot: bot, chatID: chatID, log: log}
}

func (d *Dispatcher) AnnounceFinalSign(ctx context.Context, study *models.StudyDetail, reportText string) {
	text := BuildFinalSignMessage(study, reportText)

	msg := tgbotapi.NewMessage(d.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := tg.Send(d.bot, msg); err != nil {
		d.log.Warnw("final sign announce failed", "study_id", study.ID, "err", err)
		observability.CaptureErr(err)
	}
}

// BuildFinalSignMessage — шаблон проще зеркального: заголовок, пациент,
// врачи, дата и тело отчёта в <pre>.
func BuildFinalSignMessage(study *models.StudyDetail, reportText string) string {
	modality := firstNonEmpty(study.ModalityCode, study.ModalityName, "Imaging")
	examType := firstNonEmpty(study.ExamTypeCode, study.ExamTypeName, "")
	title := examType
	if study.ExamDetails != nil && *study.ExamDetails != "" {
		title += fmt.Sprintf(" (%s)", *study.ExamDetails)
	}
	if title == "" {
		title = modality
	} else {
		title += ", " + modality
	}

	lines := []string{
		"<b>Final report signed</b>",
		fmt.Sprintf("<b>Study #%d</b> — %s", study.ID, tg.Esc(title)),
		fmt.Sprintf("Patient: <b>%s %s, code: %s</b>",
			tg.Esc(study.PatientFirstname), tg.Esc(study.PatientLastname), tg.Esc(study.PatientCode)),
		"Resident: <b>" + tg.Esc(deref(study.ResidentFullname, "-")) + "</b>",
		"Attending: <b>" + tg.Esc(deref(study.AttendingFullname, "-")) + "</b>",
		fmt.Sprintf("Date/Time: %s %s", tg.Esc(deref(study.ExamDateJalali, "-")), tg.Esc(deref(study.ExamTime, ""))),
	}
	if strings.TrimSpace(reportText) != "" {
		lines = append(lines, "<pre>"+markdownToHTML(tg.Esc(reportText))+"</pre>")
	}
	return strings.Join(lines, "\n")
}

func deref(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func firstNonEmpty(a, b *string, def string) string {
	if a != nil && *a != "" {
		return *a
	}
	if b != nil && *b != "" {
		return *b
	}
	return def
}
