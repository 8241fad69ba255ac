package delivery

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ds124wfegd/calendar-reminders/internal/entity"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const ChannelTelegram = "telegram"

// botSender is satisfied by *tgbotapi.BotAPI.
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramSender struct {
	bot botSender
}

// NewTelegramSender bounds every Bot API request by timeout.
func NewTelegramSender(token string, timeout time.Duration) (*TelegramSender, error) {
	client := &http.Client{Timeout: timeout}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramSender{bot: api}, nil
}

func (t *TelegramSender) SendReminder(ctx context.Context, event *entity.Event, msg *Message) error {
	if event.Owner == nil || event.Owner.TelegramID == "" {
		return fmt.Errorf("telegram: %w", entity.ErrChannelNotApplicable)
	}
	chatID, err := strconv.ParseInt(event.Owner.TelegramID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", event.Owner.TelegramID, entity.ErrChannelNotApplicable)
	}

	out := tgbotapi.NewMessage(chatID, telegramText(msg))
	out.ParseMode = tgbotapi.ModeHTML

	// tgbotapi has no context support
	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(out)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send telegram reminder: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("telegram: %w", ctx.Err())
	}
}

func telegramText(msg *Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ <b>%s</b> starts %s\n", html.EscapeString(msg.Title), msg.Kind.Timeframe())
	fmt.Fprintf(&b, "%s, %s", msg.Date, msg.Time)
	if msg.Location != "" {
		fmt.Fprintf(&b, "\n📍 %s", html.EscapeString(msg.Location))
	}
	return b.String()
}
