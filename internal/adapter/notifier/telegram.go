package notifier

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/semmidev/vaultkeep/internal/domain"
)

// maxMessageLen is Telegram's limit for a text message.
const maxMessageLen = 4096

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramNotifier struct {
	bot    sender
	chatID int64
	prefix string
}

func NewTelegram(botToken, chatID, appName string) (*TelegramNotifier, error) {
	id, err := parseChatID(chatID)
	if err != nil {
		return nil, err
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, domain.NewConfigurationError("failed to create telegram bot", err)
	}

	return newTelegram(bot, id, appName), nil
}

func newTelegram(bot sender, chatID int64, appName string) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID, prefix: "[" + appName + "] "}
}

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, domain.NewConfigurationError(fmt.Sprintf("invalid telegram chat id %q", chatID), err)
	}
	return id, nil
}

func (t *TelegramNotifier) Notify(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, truncate(t.prefix+message, maxMessageLen))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - len("...")
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
