package reporter

import (
	"context"
	"errors"
	"fmt"

	"go-cvlibrary-scraper/internal/config"
	"go-cvlibrary-scraper/internal/models"
	"go-cvlibrary-scraper/internal/telegram"
)

// SessionNotifier is what TelegramReporter needs from the bot.
type SessionNotifier interface {
	SendSessionSummary(rec *models.SessionRecord) error
	SendError(err error) error
}

type TelegramReporter struct {
	bot SessionNotifier
}

// NewTelegramReporter returns nil, nil when Telegram is not configured.
func NewTelegramReporter(cfg *config.Config) (*TelegramReporter, error) {
	if !cfg.Telegram.Enabled() {
		return nil, nil
	}
	bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID)
	if err != nil {
		return nil, err
	}
	return &TelegramReporter{bot: bot}, nil
}

// Report sends the summary, followed by a separate alert when the session
// ended with an error.
func (t *TelegramReporter) Report(_ context.Context, rec *models.SessionRecord) error {
	err := t.bot.SendSessionSummary(rec)
	if rec.Error != "" {
		err = errors.Join(err, t.bot.SendError(fmt.Errorf("session %s: %s", rec.ID, rec.Error)))
	}
	if err != nil {
		return fmt.Errorf("telegram notification: %w", err)
	}
	return nil
}
