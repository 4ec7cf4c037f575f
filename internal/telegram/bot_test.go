package telegram

import (
	"errors"
	"testing"
	"time"

	"go-cvlibrary-scraper/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (r *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		r.sent = append(r.sent, msg)
	}
	return tgbotapi.Message{}, r.err
}

func sampleSession() *models.SessionRecord {
	start := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	rec := models.NewSessionRecord("session_20261017_090000_ab12cd", models.SearchCriteria{
		Keywords: []string{"python", "django"},
		Location: "St. Albans",
	}, start)
	rec.Success = true
	rec.Statistics.Succeeded = 3
	rec.Statistics.Failed = 1
	rec.Statistics.Attempted = 4
	rec.Errors = append(rec.Errors, models.CandidateError{CVID: "123", Message: "timeout (30s)"})
	rec.Finish(start.Add(95 * time.Second))
	return rec
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `a\_b\*c\.d\!`, EscapeMarkdown("a_b*c.d!"))
}

func TestFormatSessionSummary(t *testing.T) {
	text := FormatSessionSummary(sampleSession())

	assert.Contains(t, text, "✅ *Scrape finished*")
	assert.Contains(t, text, `St\. Albans`)
	assert.Contains(t, text, "Saved: 3")
	assert.Contains(t, text, `75\.0%`)
	assert.Contains(t, text, `1m 35s`)
	assert.Contains(t, text, `timeout \(30s\)`)
	assert.Contains(t, text, `session\_20261017\_090000\_ab12cd`)
}

func TestFormatSessionSummary_TruncatesErrors(t *testing.T) {
	rec := sampleSession()
	for i := 0; i < 7; i++ {
		rec.Errors = append(rec.Errors, models.CandidateError{CVID: "x", Message: "boom"})
	}
	assert.Contains(t, FormatSessionSummary(rec), "…and 3 more")
}

func TestBot_SendSessionSummary(t *testing.T) {
	s := &recordingSender{}
	bot := &Bot{api: s, chatID: 42}

	require.NoError(t, bot.SendSessionSummary(sampleSession()))
	require.Len(t, s.sent, 1)
	assert.Equal(t, int64(42), s.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, s.sent[0].ParseMode)

	s.err = errors.New("network down")
	assert.Error(t, bot.SendError(errors.New("login failed")))
}
