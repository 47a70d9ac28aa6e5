package reports

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/radpacs/telegram-study-bot/internal/apperr"
)

// Store — текст отчёта лежит файлом рядом с БД; в studies хранится только путь.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store { return &Store{Dir: dir} }

func (s *Store) path(studyID int64) string {
	return filepath.Join(s.Dir, fmt.Sprintf("study_%d.txt", studyID))
}

// Read — текст отчёта; отсутствие файла — это просто пустой отчёт.
func (s *Store) Read(studyID int64) (string, error) {
	data, err := os.ReadFile(s.path(studyID))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", apperr.TransientIOf("read report for study %d: %v", studyID, err)
	}
	return string(data), nil
}

// Write — сохранить текст отчёта; возвращает путь для записи в studies.
func (s *Store) Write(studyID int64, text string) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", apperr.TransientIOf("mkdir %s: %v", s.Dir, err)
	}
	p := s.path(studyID)
	if err := os.WriteFile(p, []byte(text), 0o644); err != nil {
		return "", apperr.TransientIOf("write report for study %d: %v", studyID, err)
	}
	return p, nil
}
