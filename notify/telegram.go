package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbot "github.com/go-telegram/bot"

	"github.com/scriptnet/manuwatch/tracker"
)

// TelegramSender posts messages to the Telegram Bot API. The listener's
// Bot field is the bot path segment ("bot<token>") as stored by older
// configurations, or a bare token; ChatID is the destination chat.
// Failures propagate to the caller.
type TelegramSender struct {
	opts []tgbot.Option
}

// NewTelegramSender creates the telegram sender. Extra bot options are
// applied to every bot client, e.g. tgbot.WithServerURL in tests.
func NewTelegramSender(opts ...tgbot.Option) *TelegramSender {
	return &TelegramSender{opts: opts}
}

func (*TelegramSender) Channel() string { return tracker.ChannelTelegram }

func (*TelegramSender) BestEffort() bool { return false }

func (s *TelegramSender) Send(ctx context.Context, listener tracker.Listener, message string) error {
	token := strings.TrimPrefix(strings.TrimSpace(listener.Bot), "bot")
	if token == "" {
		return errors.New("notify: telegram listener has no bot token")
	}
	if strings.TrimSpace(listener.ChatID) == "" {
		return errors.New("notify: telegram listener has no chat id")
	}

	options := append([]tgbot.Option{tgbot.WithSkipGetMe()}, s.opts...)
	bot, err := tgbot.New(token, options...)
	if err != nil {
		return fmt.Errorf("notify: init telegram bot: %w", err)
	}

	_, err = bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: chatID(listener.ChatID),
		Text:   message,
	})
	if err != nil {
		return fmt.Errorf("notify: telegram send: %w", err)
	}
	return nil
}

// chatID converts numeric chat IDs to int64 and keeps channel usernames as
// strings, matching the Bot API's union type.
func chatID(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if numeric, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return numeric
	}
	return trimmed
}
