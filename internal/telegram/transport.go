// Package telegram adapts the Bot API client to the chat operations the
// worker needs: send, edit in place and send photo.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/you/reelscribe/internal/domain"
)

// API is the subset of *tgbotapi.BotAPI used here.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Connect authorizes the bot token. endpoint may be empty for the public API.
func Connect(token, endpoint string, debug bool) (*tgbotapi.BotAPI, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	// long enough for a photo upload, GetUpdates uses its own timeout
	hc := &http.Client{Timeout: 2 * time.Minute}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, hc)
	if err != nil {
		return nil, fmt.Errorf("authorize bot: %w", err)
	}
	bot.Debug = debug
	return bot, nil
}

// Transport sends replies through the Bot API. Failures are returned as
// *domain.TransportError.
type Transport struct {
	api API
}

func NewTransport(api API) *Transport {
	return &Transport{api: api}
}

func (t *Transport) Send(ctx context.Context, chatID int64, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, &domain.TransportError{Op: "send", Err: err}
	}
	m, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, &domain.TransportError{Op: "send", Err: err}
	}
	return m.MessageID, nil
}

func (t *Transport) Edit(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return &domain.TransportError{Op: "edit", Err: err}
	}
	if _, err := t.api.Request(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		if isNotModified(err) {
			return nil
		}
		return &domain.TransportError{Op: "edit", Err: err}
	}
	return nil
}

func (t *Transport) SendPhoto(ctx context.Context, chatID int64, image []byte, caption string) error {
	if err := ctx.Err(); err != nil {
		return &domain.TransportError{Op: "send photo", Err: err}
	}
	p := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "thumbnail.png", Bytes: image})
	p.Caption = caption
	if _, err := t.api.Send(p); err != nil {
		return &domain.TransportError{Op: "send photo", Err: err}
	}
	return nil
}

// isNotModified reports the Bot API refusal to edit a message to its current text.
func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
