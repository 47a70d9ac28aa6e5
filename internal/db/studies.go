package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/radpacs/telegram-study-bot/internal/apperr"
	"github.com/radpacs/telegram-study-bot/internal/models"
)

const studyDetailQuery = `
SELECT
    s.id,
    s.patient_id,
    p.patient_code,
    p.firstname,
    p.lastname,
    s.patient_age,
    p.gender,
    m.code,
    m.name,
    e.code,
    e.name,
    s.exam_details,
    s.exam_date_jalali,
    s.exam_time,
    s.description,
    s.dicom_url,
    s.corresponding_resident_id,
    s.corresponding_attending_id,
    r.full_name,
    a.full_name,
    s.resident_checked,
    s.attending_checked,
    s.telegram_chat_id,
    s.telegram_message_id,
    s.audio_report_path,
    s.text_report_path,
    s.created_at
FROM studies s
JOIN patients p ON p.id = s.patient_id
LEFT JOIN users r ON r.id = s.corresponding_resident_id
LEFT JOIN users a ON a.id = s.corresponding_attending_id
LEFT JOIN modalities m ON m.id = s.modality_id
LEFT JOIN exam_types e ON e.id = s.exam_type_id
`

// GetStudyDetail — полная проекция исследования для рендера сообщения.
func GetStudyDetail(ctx context.Context, database *sql.DB, id int64) (*models.StudyDetail, error) {
	row := database.QueryRowContext(ctx, studyDetailQuery+` WHERE s.id = $1`, id)
	d, err := scanStudyDetail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("study %d", id)
	}
	return d, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudyDetail(row rowScanner) (*models.StudyDetail, error) {
	var (
		d          models.StudyDetail
		age        sql.NullInt64
		gender     sql.NullString
		modCode    sql.NullString
		modName    sql.NullString
		examCode   sql.NullString
		examName   sql.NullString
		details    sql.NullString
		dateJalali sql.NullString
		examTime   sql.NullString
		descr      sql.NullString
		dicomURL   sql.NullString
		residentID sql.NullInt64
		attendID   sql.NullInt64
		resName    sql.NullString
		attName    sql.NullString
		chatID     sql.NullInt64
		messageID  sql.NullInt64
		audioPath  sql.NullString
		reportPath sql.NullString
	)
	err := row.Scan(
		&d.ID, &d.PatientID, &d.PatientCode, &d.PatientFirstname, &d.PatientLastname,
		&age, &gender,
		&modCode, &modName, &examCode, &examName,
		&details, &dateJalali, &examTime, &descr, &dicomURL,
		&residentID, &attendID, &resName, &attName,
		&d.ResidentChecked, &d.AttendingChecked,
		&chatID, &messageID, &audioPath, &reportPath,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.PatientAge = nullInt(age)
	d.PatientGender = nullStr(gender)
	d.ModalityCode = nullStr(modCode)
	d.ModalityName = nullStr(modName)
	d.ExamTypeCode = nullStr(examCode)
	d.ExamTypeName = nullStr(examName)
	d.ExamDetails = nullStr(details)
	d.ExamDateJalali = nullStr(dateJalali)
	d.ExamTime = nullStr(examTime)
	d.Description = nullStr(descr)
	d.DicomURL = nullStr(dicomURL)
	d.ResidentID = nullInt(residentID)
	d.AttendingID = nullInt(attendID)
	d.ResidentFullname = nullStr(resName)
	d.AttendingFullname = nullStr(attName)
	d.TelegramChatID = nullInt(chatID)
	d.TelegramMessageID = nullInt(messageID)
	d.AudioReportPath = nullStr(audioPath)
	d.TextReportPath = nullStr(reportPath)
	return &d, nil
}

// FindStudyByMirror — сопоставление ответа в чате с исследованием по паре
// (chat_id, message_id) его зеркального сообщения.
func FindStudyByMirror(ctx context.Context, database *sql.DB, chatID, messageID int64) (int64, error) {
	var id int64
	err := database.QueryRowContext(ctx, `
		SELECT id FROM studies
		WHERE telegram_chat_id = $1 AND telegram_message_id = $2
	`, chatID, messageID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.NotFoundf("study with mirror (%d, %d)", chatID, messageID)
	}
	return id, err
}

func SetResidentChecked(ctx context.Context, database *sql.DB, id int64, checked bool) error {
	return execStudyUpdate(ctx, database, id, `UPDATE studies SET resident_checked = $1 WHERE id = $2`, checked, id)
}

func SetAttendingChecked(ctx context.Context, database *sql.DB, id int64, checked bool) error {
	return execStudyUpdate(ctx, database, id, `UPDATE studies SET attending_checked = $1 WHERE id = $2`, checked, id)
}

// CascadeUnsign — каскадный сброс обеих подписей одним UPDATE.
// Атомарность строки гарантирует, что (0,1) снаружи не наблюдаем.
func CascadeUnsign(ctx context.Context, database *sql.DB, id int64) error {
	res, err := database.ExecContext(ctx, `
		UPDATE studies SET resident_checked = FALSE, attending_checked = FALSE WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFoundf("study %d", id)
	}
	return nil
}

func SetMirror(ctx context.Context, database *sql.DB, id, chatID, messageID int64) error {
	return execStudyUpdate(ctx, database, id,
		`UPDATE studies SET telegram_chat_id = $1, telegram_message_id = $2 WHERE id = $3`, chatID, messageID, id)
}

func ClearMirror(ctx context.Context, database *sql.DB, id int64) error {
	return execStudyUpdate(ctx, database, id,
		`UPDATE studies SET telegram_chat_id = NULL, telegram_message_id = NULL WHERE id = $1`, id)
}

func AttachAudio(ctx context.Context, database *sql.DB, id int64, path string) error {
	return execStudyUpdate(ctx, database, id, `UPDATE studies SET audio_report_path = $1 WHERE id = $2`, path, id)
}

func AttachReport(ctx context.Context, database *sql.DB, id int64, path string) error {
	return execStudyUpdate(ctx, database, id, `UPDATE studies SET text_report_path = $1 WHERE id = $2`, path, id)
}

func execStudyUpdate(ctx context.Context, database *sql.DB, id int64, query string, args ...any) error {
	res, err := database.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFoundf("study %d", id)
	}
	return nil
}

// StudyFilter — фильтры ворклиста для экспорта.
type StudyFilter struct {
	PatientCode      string
	PatientLastname  string
	ModalityCodes    []string
	ExamTypeCode     string
	DateFrom         string
	DateTo           string
	Limit            int
}

// ListStudies — отфильтрованный ворклист, новые сверху.
func ListStudies(ctx context.Context, database *sql.DB, f StudyFilter) ([]models.StudyDetail, error) {
	q := studyDetailQuery + ` WHERE 1=1`
	args := []any{}
	idx := 1
	if f.PatientCode != "" {
		q += fmt.Sprintf(" AND p.patient_code = $%d", idx)
		args = append(args, f.PatientCode)
		idx++
	}
	if f.PatientLastname != "" {
		q += fmt.Sprintf(" AND p.lastname ILIKE $%d", idx)
		args = append(args, "%"+f.PatientLastname+"%")
		idx++
	}
	if len(f.ModalityCodes) > 0 {
		q += fmt.Sprintf(" AND m.code = ANY($%d)", idx)
		args = append(args, pq.Array(f.ModalityCodes))
		idx++
	}
	if f.ExamTypeCode != "" {
		q += fmt.Sprintf(" AND e.code = $%d", idx)
		args = append(args, f.ExamTypeCode)
		idx++
	}
	if f.DateFrom != "" {
		q += fmt.Sprintf(" AND s.exam_date_jalali >= $%d", idx)
		args = append(args, f.DateFrom)
		idx++
	}
	if f.DateTo != "" {
		q += fmt.Sprintf(" AND s.exam_date_jalali <= $%d", idx)
		args = append(args, f.DateTo)
		idx++
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 500
	}
	q += fmt.Sprintf(" ORDER BY s.id DESC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := database.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.StudyDetail, 0, limit)
	for rows.Next() {
		d, err := scanStudyDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
