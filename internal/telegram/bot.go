package telegram

import (
	"fmt"
	"strings"

	"go-cvlibrary-scraper/internal/models"
	"go-cvlibrary-scraper/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxListedErrors = 5

// sender is the slice of *tgbotapi.BotAPI the bot uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api    sender
	chatID int64
}

func NewBot(token string, chatID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &Bot{api: api, chatID: chatID}, nil
}

var markdownEscaper = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(",
	")", "\\)", "~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#",
	"+", "\\+", "-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{",
	"}", "\\}", ".", "\\.", "!", "\\!",
)

// EscapeMarkdown escapes every MarkdownV2 control character.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// FormatSessionSummary renders a finished session as a MarkdownV2 message.
func FormatSessionSummary(rec *models.SessionRecord) string {
	st := rec.Statistics
	status := "✅ *Scrape finished*"
	if !rec.Success {
		status = "❌ *Scrape failed*"
	}

	var b strings.Builder
	b.WriteString(status + "\n")
	fmt.Fprintf(&b, "🔍 %s", EscapeMarkdown(rec.Criteria.KeywordQuery()))
	if rec.Criteria.Location != "" {
		fmt.Fprintf(&b, " in %s", EscapeMarkdown(rec.Criteria.Location))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "📥 Saved: %d  ⚠️ Failed: %d  ⏭ Skipped: %d\n", st.Succeeded, st.Failed, st.Skipped)
	fmt.Fprintf(&b, "📊 Success rate: %s%%\n", EscapeMarkdown(fmt.Sprintf("%.1f", st.SuccessRate)))
	fmt.Fprintf(&b, "⏱ Duration: %s\n", EscapeMarkdown(utils.FormatDuration(st.EndTime.Sub(st.StartTime))))
	fmt.Fprintf(&b, "🔖 Session: `%s`\n", EscapeMarkdown(rec.ID))

	if rec.Error != "" {
		fmt.Fprintf(&b, "\n💥 %s\n", EscapeMarkdown(rec.Error))
	}
	for i, e := range rec.Errors {
		if i == maxListedErrors {
			fmt.Fprintf(&b, "…and %d more\n", len(rec.Errors)-maxListedErrors)
			break
		}
		fmt.Fprintf(&b, "• %s: %s\n", EscapeMarkdown(e.CVID), EscapeMarkdown(e.Message))
	}
	return b.String()
}

func (b *Bot) SendSessionSummary(rec *models.SessionRecord) error {
	msg := tgbotapi.NewMessage(b.chatID, FormatSessionSummary(rec))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendError(err error) error {
	msg := tgbotapi.NewMessage(b.chatID, fmt.Sprintf("❌ Error: %v", err))
	_, sendErr := b.api.Send(msg)
	return sendErr
}
