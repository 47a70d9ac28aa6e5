package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/radpacs/telegram-study-bot/internal/models"
)

var worklistHeader = []string{
	"Study #", "Patient code", "Patient", "Age", "Gender",
	"Modality", "Exam type", "Date", "Time",
	"Resident", "Attending", "Resident signed", "Attending signed",
	"Audio", "Report",
}

// WriteStudiesXLSX — ворклист исследований одним листом.
func WriteStudiesXLSX(w io.Writer, studies []models.StudyDetail) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Studies"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for col, h := range worklistHeader {
		cell := fmt.Sprintf("%s1", colName(col+1))
		if err := f.SetCellStr(sheet, cell, h); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	end := colName(len(worklistHeader)) + "1"
	_ = f.SetCellStyle(sheet, "A1", end, bold)
	_ = f.AutoFilter(sheet, "A1:"+end, nil)

	for r, s := range studies {
		row := studyRow(&s)
		for c, val := range row {
			cell := fmt.Sprintf("%s%d", colName(c+1), r+2)
			if err := f.SetCellStr(sheet, cell, val); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	// эвристическая ширина: по длине заголовка и первых строк
	for c := 1; c <= len(worklistHeader); c++ {
		maxim := len(worklistHeader[c-1])
		for r := 0; r < minim(50, len(studies)); r++ {
			if l := len(studyRow(&studies[r])[c-1]); l > maxim {
				maxim = l
			}
		}
		w := float64(maxim) * 0.9
		if w < 10 {
			w = 10
		}
		if w > 40 {
			w = 40
		}
		_ = f.SetColWidth(sheet, colName(c), colName(c), w)
	}

	return f.Write(w)
}

func studyRow(s *models.StudyDetail) []string {
	return []string{
		strconv.FormatInt(s.ID, 10),
		s.PatientCode,
		s.PatientFirstname + " " + s.PatientLastname,
		int64OrEmpty(s.PatientAge),
		strOrEmpty(s.PatientGender),
		strOrEmpty(s.ModalityCode),
		strOrEmpty(s.ExamTypeCode),
		strOrEmpty(s.ExamDateJalali),
		strOrEmpty(s.ExamTime),
		strOrEmpty(s.ResidentFullname),
		strOrEmpty(s.AttendingFullname),
		yesNo(s.ResidentChecked),
		yesNo(s.AttendingChecked),
		yesNo(s.AudioReportPath != nil && *s.AudioReportPath != ""),
		yesNo(s.TextReportPath != nil && *s.TextReportPath != ""),
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func int64OrEmpty(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

// helpers
func colName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}

func minim(a, b int) int {
	if a < b {
		return a
	}
	return b
}
