package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/radpacs/telegram-study-bot/internal/models"
)

// InsertPendingVoice — фиксация намерения скачать голосовой ответ.
// Повторная доставка того же update_id молча игнорируется (ON CONFLICT),
// возвращаем, вставилась ли строка.
func InsertPendingVoice(ctx context.Context, database *sql.DB, job models.PendingVoiceJob) (bool, error) {
	res, err := database.ExecContext(ctx, `
		INSERT INTO pending_voice (study_id, chat_id, reply_message_id, file_id, update_id, process_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (update_id) WHERE update_id IS NOT NULL DO NOTHING
	`, job.StudyID, job.ChatID, job.ReplyMessageID, job.FileID, job.UpdateID, job.ProcessAt)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// DueVoiceJobs — задания, готовые к обработке: не сделанные, с наступившим
// process_at, старые вперёд (порядок вставки). batch — ограничение выборки.
func DueVoiceJobs(ctx context.Context, database *sql.DB, now time.Time, batch int) ([]models.PendingVoiceJob, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT id, study_id, chat_id, reply_message_id, file_id, update_id,
		       process_at, attempts, done, failed, created_at
		FROM pending_voice
		WHERE done = FALSE AND process_at <= $1
		ORDER BY id
		LIMIT $2
	`, now, batch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PendingVoiceJob
	for rows.Next() {
		var (
			j        models.PendingVoiceJob
			updateID sql.NullInt64
		)
		if err := rows.Scan(&j.ID, &j.StudyID, &j.ChatID, &j.ReplyMessageID, &j.FileID,
			&updateID, &j.ProcessAt, &j.Attempts, &j.Done, &j.Failed, &j.CreatedAt); err != nil {
			return nil, err
		}
		j.UpdateID = nullInt(updateID)
		out = append(out, j)
	}
	return out, rows.Err()
}

func MarkVoiceDone(ctx context.Context, database *sql.DB, id int64) error {
	_, err := database.ExecContext(ctx, `UPDATE pending_voice SET done = TRUE WHERE id = $1`, id)
	return err
}

// DeferVoiceJob — неудачная попытка: инкремент счётчика и перенос на nextAt.
func DeferVoiceJob(ctx context.Context, database *sql.DB, id int64, nextAt time.Time) error {
	_, err := database.ExecContext(ctx, `
		UPDATE pending_voice SET attempts = attempts + 1, process_at = $1 WHERE id = $2
	`, nextAt, id)
	return err
}

// MarkVoiceFailed — потолок попыток достигнут; задание закрываем, но след
// в таблице остаётся.
func MarkVoiceFailed(ctx context.Context, database *sql.DB, id int64) error {
	_, err := database.ExecContext(ctx, `
		UPDATE pending_voice SET done = TRUE, failed = TRUE, attempts = attempts + 1 WHERE id = $1
	`, id)
	return err
}

// RequeueVoiceJobs — ручной возврат закрытых заданий в очередь (операционный
// инструмент: телеграм мог отдать файл после истечения попыток).
func RequeueVoiceJobs(ctx context.Context, database *sql.DB, ids []int64, at time.Time) (int64, error) {
	res, err := database.ExecContext(ctx, `
		UPDATE pending_voice
		SET done = FALSE, failed = FALSE, attempts = 0, process_at = $1
		WHERE id = ANY($2)
	`, at, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
