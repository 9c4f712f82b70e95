// Package bot handles Telegram updates: it remembers the link a user sent,
// offers the two actions and queues the chosen one for the worker.
package bot

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/you/reelscribe/internal/domain"
	"github.com/you/reelscribe/internal/jobs"
	"github.com/you/reelscribe/internal/link"
	"github.com/you/reelscribe/internal/logx"
	"github.com/you/reelscribe/internal/metrics"
	"github.com/you/reelscribe/internal/pipeline"
	"github.com/you/reelscribe/internal/session"
)

const callbackPrefix = "act:"

const welcomeText = `👋 Hi! I turn Instagram videos into text and thumbnails.

Send me a link to an Instagram video and pick what you need:
• 📝 Transcript: the original transcript with Turkish and English translations
• 🎨 Thumbnail: a vertical cover image with a catchy hook

Supported link formats:
• https://www.instagram.com/p/...
• https://www.instagram.com/reel/...
• https://www.instagram.com/reels/...
• https://www.instagram.com/tv/...`

const formatHint = `This is not a valid Instagram link.

Please send a link in one of these formats:
• instagram.com/p/...
• instagram.com/reel/...
• instagram.com/reels/...
• instagram.com/tv/...`

const (
	chooseText = "What should I do with this video?"
	queuedText = "🕒 Your request is queued..."
	noLinkText = "Please send an Instagram link first."
)

// API is the subset of *tgbotapi.BotAPI used by the handler.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Options for queued tasks.
type Options struct {
	Queue   string        // asynq queue name
	Timeout time.Duration // whole pipeline bound
}

// Handler routes updates.
type Handler struct {
	api   API
	store session.Store
	queue Enqueuer
	opts  Options
}

func New(api API, store session.Store, queue Enqueuer, opts Options) *Handler {
	return &Handler{api: api, store: store, queue: queue, opts: opts}
}

// Run handles updates until the channel closes or ctx is done.
func (h *Handler) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			h.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate processes one update.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		metrics.UpdatesTotal.WithLabelValues("message").Inc()
		h.onMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		metrics.UpdatesTotal.WithLabelValues("callback").Inc()
		h.onCallback(ctx, upd.CallbackQuery)
	default:
		metrics.UpdatesTotal.WithLabelValues("other").Inc()
	}
}

func (h *Handler) onMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil || m.Chat == nil {
		return
	}
	log.Info().
		Int64("chat_id", m.Chat.ID).
		Int64("user_id", m.From.ID).
		Msg("message received")

	if m.IsCommand() {
		switch m.Command() {
		case "start", "help":
			if err := h.store.Clear(ctx, m.From.ID); err != nil {
				log.Warn().Err(err).Int64("user_id", m.From.ID).Msg("clear stored link failed")
			}
			h.reply(m.Chat.ID, welcomeText)
		default:
			h.reply(m.Chat.ID, "Unknown command. Send /start for help.")
		}
		return
	}

	text := m.Text
	if text == "" {
		text = m.Caption
	}
	url, ok := link.Extract(text)
	if !ok {
		h.reply(m.Chat.ID, formatHint)
		return
	}

	if err := h.store.SetLink(ctx, m.From.ID, url); err != nil {
		log.Error().Err(err).Int64("user_id", m.From.ID).Msg("store link failed")
		h.reply(m.Chat.ID, pipeline.MsgGeneric)
		return
	}
	log.Info().Str("url", url).Msg("link stored; asking for action")

	msg := tgbotapi.NewMessage(m.Chat.ID, chooseText)
	msg.ReplyToMessageID = m.MessageID
	msg.ReplyMarkup = actionKeyboard()
	if _, err := h.api.Send(msg); err != nil {
		log.Error().Err(err).Msg("send action keyboard failed")
	}
}

func actionKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Transcript", callbackPrefix+string(domain.ActionTranscript)),
			tgbotapi.NewInlineKeyboardButtonData("🎨 Thumbnail", callbackPrefix+string(domain.ActionThumbnail)),
		),
	)
}

func (h *Handler) onCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
		h.answer(cq, "")
		return
	}
	userID := cq.From.ID
	chatID := cq.Message.Chat.ID

	if !strings.HasPrefix(cq.Data, callbackPrefix) {
		h.answer(cq, "")
		return
	}
	action, err := domain.ParseAction(strings.TrimPrefix(cq.Data, callbackPrefix))
	if err != nil {
		h.answer(cq, "Unknown action")
		return
	}

	url, ok, err := h.store.Link(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("load stored link failed")
		h.answer(cq, "Internal error")
		return
	}
	if !ok {
		h.answer(cq, noLinkText)
		h.reply(chatID, noLinkText)
		return
	}
	h.answer(cq, "")

	req := domain.Request{
		ID:     jobs.NewRequestID(),
		ChatID: chatID,
		UserID: userID,
		URL:    url,
		Action: action,
	}
	ctx = logx.WithRequest(ctx, req.ID, userID)
	l := logx.FromCtx(ctx)
	l.Info().Str("action", string(action)).Str("url", url).Msg("action selected")

	status, err := h.api.Send(tgbotapi.NewMessage(chatID, queuedText))
	if err != nil {
		l.Error().Err(err).Msg("send status message failed")
		return
	}
	req.StatusMessageID = status.MessageID

	if err := h.enqueue(ctx, req); err != nil {
		l.Error().Err(err).Msg("asynq enqueue failed")
		if _, err := h.api.Request(tgbotapi.NewEditMessageText(chatID, status.MessageID, pipeline.MsgGeneric)); err != nil {
			l.Error().Err(err).Msg("report enqueue failure failed")
		}
		return
	}
	l.Info().Msg("request queued")
}

func (h *Handler) enqueue(ctx context.Context, req domain.Request) error {
	task, err := jobs.NewRequestTask(req)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.MaxRetry(0)}
	if h.opts.Queue != "" {
		opts = append(opts, asynq.Queue(h.opts.Queue))
	}
	if h.opts.Timeout > 0 {
		opts = append(opts, asynq.Timeout(h.opts.Timeout))
	}
	_, err = h.queue.EnqueueContext(ctx, task, opts...)
	return err
}

func (h *Handler) reply(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("send reply failed")
	}
}

func (h *Handler) answer(cq *tgbotapi.CallbackQuery, text string) {
	if _, err := h.api.Request(tgbotapi.NewCallback(cq.ID, text)); err != nil {
		log.Warn().Err(err).Msg("answer callback failed")
	}
}
