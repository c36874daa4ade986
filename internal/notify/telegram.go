package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts notices to a chat without blocking the caller.
type Telegram struct {
	api    sender
	chatID int64
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewTelegram authorizes the bot and returns a notifier for chatID.
func NewTelegram(token string, chatID int64, logger *slog.Logger) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, tgbotapi.APIEndpoint, chatID, &http.Client{}, logger)
}

// NewTelegramWithEndpoint is NewTelegram against a custom API endpoint.
func NewTelegramWithEndpoint(token, endpoint string, chatID int64, client *http.Client, logger *slog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("telegram notifier authorized", "account", bot.Self.UserName)
	return &Telegram{api: bot, chatID: chatID, logger: logger}, nil
}

// Notify sends the message in the background.
func (t *Telegram) Notify(_ context.Context, message string) {
	msg := tgbotapi.NewMessage(t.chatID, "⚠️ "+message)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if _, err := t.api.Send(msg); err != nil {
			t.logger.Error("failed to send telegram notice", "chat_id", t.chatID, "error", err)
		}
	}()
}

// Close waits for notices still being sent.
func (t *Telegram) Close() {
	t.wg.Wait()
}
