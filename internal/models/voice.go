package models

import "time"

// PendingVoiceJob — отложенная загрузка голосового ответа из чата.
// Строки никогда не удаляются: done=true означает «обработано»,
// failed=true — «сдались после лимита попыток». Это и аудит-след.
type PendingVoiceJob struct {
	ID             int64
	StudyID        int64
	ChatID         int64
	ReplyMessageID int64
	FileID         string
	// UpdateID телеграмовского апдейта; уникальный индекс по нему гасит
	// повторные доставки вебхука.
	UpdateID  *int64
	ProcessAt time.Time
	Attempts  int
	Done      bool
	Failed    bool
	CreatedAt time.Time
}
