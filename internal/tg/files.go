package tg

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/radpacs/telegram-study-bot/internal/apperr"
	"github.com/radpacs/telegram-study-bot/internal/observability"
)

// FileFetcher — резолв file_id через getFile и скачивание байтов с
// файлового эндпоинта бота.
type FileFetcher struct {
	bot    *tgbotapi.BotAPI
	client *http.Client
}

func NewFileFetcher(bot *tgbotapi.BotAPI) *FileFetcher {
	return &FileFetcher{
		bot:    bot,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (f *FileFetcher) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	file, err := f.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		if isSystemErr(err) {
			observability.CaptureErr(err)
		}
		return nil, apperr.Externalf("getFile %s: %v", fileID, err)
	}
	url := file.Link(f.bot.Token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperr.TransientIOf("download %s: %v", fileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.TransientIOf("download %s: %s", fileID, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.TransientIOf("download %s: %v", fileID, err)
	}
	return data, nil
}

// VoiceFilename — детерминированное имя файла для скачанного ответа.
func VoiceFilename(studyID, replyMessageID int64) string {
	return fmt.Sprintf("study_%d_reply_%d.ogg", studyID, replyMessageID)
}
