package models

import "time"

// StudyDetail — проекция исследования со всеми join-полями для отображения
// (пациент, врачи, модальность, тип исследования). Именно её рендерим в чат.
type StudyDetail struct {
	ID               int64
	PatientID        int64
	PatientCode      string
	PatientFirstname string
	PatientLastname  string
	PatientAge       *int64
	PatientGender    *string
	ModalityCode     *string
	ModalityName     *string
	ExamTypeCode     *string
	ExamTypeName     *string
	ExamDetails      *string
	ExamDateJalali   *string
	ExamTime         *string
	Description      *string
	DicomURL         *string

	ResidentID        *int64
	AttendingID       *int64
	ResidentFullname  *string
	AttendingFullname *string

	ResidentChecked  bool
	AttendingChecked bool

	// Зеркало в Telegram. Оба поля NULL, пока Create не выполнился.
	TelegramChatID    *int64
	TelegramMessageID *int64

	AudioReportPath *string
	TextReportPath  *string

	CreatedAt time.Time
}

// HasMirror — создано ли уже зеркальное сообщение.
func (s *StudyDetail) HasMirror() bool {
	return s.TelegramChatID != nil && s.TelegramMessageID != nil
}
