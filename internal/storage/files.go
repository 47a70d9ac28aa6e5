package storage

import (
	"os"
	"path/filepath"

	"github.com/radpacs/telegram-study-bot/internal/apperr"
)

// Files — локальное файловое хранилище (голосовые ответы, отчёты).
type Files struct {
	Dir string
}

func NewFiles(dir string) *Files { return &Files{Dir: dir} }

// EnsureDir — создаём каталог заранее, чтобы воркер не падал на первом файле.
func (f *Files) EnsureDir() error {
	return os.MkdirAll(f.Dir, 0o755)
}

// Write — сохранить байты под данным именем; возвращает абсолютный путь.
func (f *Files) Write(name string, data []byte) (string, error) {
	abs, err := filepath.Abs(filepath.Join(f.Dir, name))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", apperr.TransientIOf("mkdir for %s: %v", abs, err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return "", apperr.TransientIOf("write %s: %v", abs, err)
	}
	return abs, nil
}
